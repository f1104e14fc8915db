// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/historical"
)

// InitializeDatabases opens the price source selected by the configuration.
// A CSV file takes precedence; otherwise history.db is opened and migrated.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	return initializeDatabases(cfg, log, OpenHistoryDB)
}

// InitializeReadOnlyDatabases is InitializeDatabases for callers that only query
// prices. history.db must already exist and is neither created nor migrated.
func InitializeReadOnlyDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	return initializeDatabases(cfg, log, OpenHistoryDBReadOnly)
}

func initializeDatabases(cfg *config.Config, log zerolog.Logger, open func(string) (*database.DB, error)) (*Container, error) {
	container := &Container{}

	if cfg.UsesCSV() {
		container.Prices = historical.NewCSVSource(cfg.PricesCSV, log)
		container.PriceSourceName = PriceSourceCSV
		log.Info().Str("path", cfg.PricesCSV).Msg("Using CSV price source")
		return container, nil
	}

	historyDB, err := open(cfg.HistoryDB)
	if err != nil {
		return nil, err
	}
	container.HistoryDB = historyDB
	container.HistoryStore = historical.NewHistoryDB(historyDB.Conn(), log)
	container.Prices = container.HistoryStore
	container.PriceSourceName = PriceSourceHistoryDB

	log.Info().Str("path", historyDB.Path()).Msg("History database initialized")
	return container, nil
}

// OpenHistoryDB opens history.db at path and applies its schema
func OpenHistoryDB(path string) (*database.DB, error) {
	historyDB, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}

	if err := historyDB.Migrate(); err != nil {
		historyDB.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}

	return historyDB, nil
}

// OpenHistoryDBReadOnly opens an existing history.db for queries only
func OpenHistoryDBReadOnly(path string) (*database.DB, error) {
	historyDB, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileReadOnly,
		Name:    "history",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database (run `frontier import` first): %w", err)
	}
	return historyDB, nil
}
