package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/services"
)

// InitializeServices creates the optimizer and the service that feeds it
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) {
	container.Optimizer = optimization.NewMonteCarloOptimizer(log)

	container.OptimizationService = services.NewOptimizationService(
		container.Prices,
		container.Optimizer,
		services.OptimizationDefaults{
			Lookback:       cfg.Lookback,
			NumTrials:      cfg.NumTrials,
			PeriodsPerYear: cfg.PeriodsPerYear,
			Workers:        cfg.Workers,
			BatchSize:      cfg.BatchSize,
		},
		log,
	)
}
