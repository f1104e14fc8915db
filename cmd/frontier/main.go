// Package main is the frontier command line tool. It runs Monte Carlo Sharpe ratio
// optimizations from a terminal and loads price history into the history database.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/server"
	"github.com/aristath/frontier/pkg/logger"
)

// app carries state shared by every subcommand
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	logLevel string
	stdout   io.Writer
	stderr   io.Writer
}

func main() {
	// Ctrl+C cancels a running optimization between batches
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. Reports go to stdout, logs to stderr.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "frontier",
		Short:         "Monte Carlo Sharpe ratio portfolio optimizer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to LOG_LEVEL")

	root.AddCommand(
		newOptimizeCommand(a),
		newImportCommand(a),
		newVersionCommand(a),
	)
	return root
}

// init loads the environment configuration and builds the stderr logger
func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.log = logger.New(logger.Config{
		Level:  level,
		Pretty: true,
		Output: a.stderr,
	})
	return nil
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the frontier version",
		Args:  cobra.NoArgs,
		// Skips config loading so version works with a broken environment
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "frontier %s\n", server.Version)
		},
	}
}
