package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/frontier/internal/di"
	"github.com/aristath/frontier/internal/modules/historical"
)

func newImportCommand(a *app) *cobra.Command {
	var historyDB string

	cmd := &cobra.Command{
		Use:   "import <prices.csv>",
		Short: "Load a long-format price CSV (date,symbol,close) into the history database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.HistoryDB
			if historyDB != "" {
				path = historyDB
			}
			return a.runImport(cmd, args[0], path)
		},
	}
	cmd.Flags().StringVar(&historyDB, "history-db", "", "history database path (default FRONTIER_HISTORY_DB)")

	return cmd
}

func (a *app) runImport(cmd *cobra.Command, csvPath, dbPath string) error {
	file, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open price file: %w", err)
	}
	defer file.Close()

	points, err := historical.ReadCSV(file, nil, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", csvPath, err)
	}

	db, err := di.OpenHistoryDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store := historical.NewHistoryDB(db.Conn(), a.log)
	if err := store.StorePrices(cmd.Context(), points); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Imported %d prices into %s\n", len(points), db.Path())
	return nil
}
