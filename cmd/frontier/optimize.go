package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/frontier/internal/di"
	"github.com/aristath/frontier/internal/modules/display"
	"github.com/aristath/frontier/internal/services"
)

type optimizeFlags struct {
	assets         []string
	lookback       string
	asOf           string
	trials         int
	periodsPerYear int
	seed           uint64
	workers        int
	batchSize      int
	pricesCSV      string
	historyDB      string
	format         string
}

func newOptimizeCommand(a *app) *cobra.Command {
	var f optimizeFlags

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Sample random long-only portfolios and report the maximum Sharpe allocation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOptimize(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&f.assets, "assets", nil, "comma-separated asset symbols (default FRONTIER_ASSETS)")
	flags.StringVar(&f.lookback, "lookback", "", "price window ending at --as-of, e.g. 2y, 18m, 26w")
	flags.StringVar(&f.asOf, "as-of", "", "last date of the price window (YYYY-MM-DD, default today)")
	flags.IntVar(&f.trials, "trials", 0, "number of random portfolios to sample")
	flags.IntVar(&f.periodsPerYear, "periods-per-year", 0, "return periods per year used to annualize")
	flags.Uint64Var(&f.seed, "seed", 0, "random seed; omit to draw one")
	flags.IntVar(&f.workers, "workers", 0, "parallel workers (0 uses one per CPU)")
	flags.IntVar(&f.batchSize, "batch-size", 0, "trials per random stream")
	flags.StringVar(&f.pricesCSV, "prices-csv", "", "long-format price CSV (date,symbol,close)")
	flags.StringVar(&f.historyDB, "history-db", "", "history database path")
	flags.StringVar(&f.format, "format", string(display.FormatText), "output format: text, json, msgpack or csv")

	return cmd
}

func (a *app) runOptimize(cmd *cobra.Command, f optimizeFlags) error {
	format, err := display.ParseFormat(f.format)
	if err != nil {
		return err
	}

	cfg := *a.cfg
	flags := cmd.Flags()
	if flags.Changed("assets") {
		cfg.Assets = f.assets
	}
	if flags.Changed("lookback") {
		cfg.Lookback = f.lookback
	}
	if flags.Changed("trials") {
		cfg.NumTrials = f.trials
	}
	if flags.Changed("periods-per-year") {
		cfg.PeriodsPerYear = f.periodsPerYear
	}
	if flags.Changed("seed") {
		seed := f.seed
		cfg.Seed = &seed
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = f.batchSize
	}
	if flags.Changed("prices-csv") {
		cfg.PricesCSV = f.pricesCSV
	}
	if flags.Changed("history-db") {
		cfg.HistoryDB = f.historyDB
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var asOf time.Time
	if f.asOf != "" {
		asOf, err = time.Parse(time.DateOnly, f.asOf)
		if err != nil {
			return fmt.Errorf("invalid --as-of %q: %w", f.asOf, err)
		}
	}

	// optimize never writes prices, so history.db is opened read-only and must exist
	container, err := di.WireReadOnly(&cfg, a.log)
	if err != nil {
		return err
	}
	defer container.Close()

	log := a.log.With().Str("command", "optimize").Logger()
	result, err := container.OptimizationService.Optimize(cmd.Context(), services.OptimizationRequest{
		Assets:         cfg.Assets,
		Lookback:       cfg.Lookback,
		AsOf:           asOf,
		NumTrials:      &cfg.NumTrials,
		PeriodsPerYear: &cfg.PeriodsPerYear,
		Seed:           cfg.Seed,
		Workers:        cfg.Workers,
		BatchSize:      cfg.BatchSize,
		Progress: func(done, total int) {
			log.Debug().Int("done", done).Int("total", total).Msg("Optimization progress")
		},
	})
	if err != nil {
		return err
	}

	return writeResult(a.stdout, format, result)
}

// writeResult renders a run. Structured formats carry the full result so the seed
// and price window travel with the report; CSV and text render the report and text
// adds a line with the run's provenance.
func writeResult(w io.Writer, format display.Format, result *services.OptimizationResult) error {
	switch format {
	case display.FormatJSON:
		return display.EncodeJSON(w, result)
	case display.FormatMsgpack:
		return display.EncodeMsgpack(w, result)
	}

	if err := display.Write(w, format, result.Report); err != nil {
		return err
	}
	if format == display.FormatCSV {
		return nil
	}

	window := ""
	if result.From != nil && result.To != nil {
		window = fmt.Sprintf(", %s to %s", result.From.Format(time.DateOnly), result.To.Format(time.DateOnly))
	}
	_, err := fmt.Fprintf(w, "Seed: %d (%d trials, %d observations%s)\n",
		result.Seed, result.NumTrials, result.Observations, window)
	return err
}
