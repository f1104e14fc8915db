// Package di provides dependency injection wiring and initialization.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Open the price source (CSV file or history.db)
// 2. Initialize services
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	return wire(cfg, log, InitializeDatabases)
}

// WireReadOnly is Wire with history.db opened read-only; it fails when the
// database has not been created yet.
func WireReadOnly(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	return wire(cfg, log, InitializeReadOnlyDatabases)
}

func wire(cfg *config.Config, log zerolog.Logger, initDatabases func(*config.Config, zerolog.Logger) (*Container, error)) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	container, err := initDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	InitializeServices(container, cfg, log)

	log.Info().
		Str("price_source", container.PriceSourceName).
		Int("default_trials", cfg.NumTrials).
		Msg("Dependency injection wiring completed")

	return container, nil
}

// Close releases the databases held by the container
func (c *Container) Close() error {
	if c == nil || c.HistoryDB == nil {
		return nil
	}
	if err := c.HistoryDB.Close(); err != nil {
		return fmt.Errorf("failed to close history database: %w", err)
	}
	return nil
}
