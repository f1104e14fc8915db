/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every long-lived dependency of the server and the CLI.
 * It is built once by Wire and handed to the entry points.
 */
package di

import (
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/services"
)

// Price source names reported by the system status endpoint
const (
	PriceSourceCSV       = "csv"
	PriceSourceHistoryDB = "history_db"
)

// Container holds all application dependencies
type Container struct {
	// Databases (nil when prices come from a CSV file)
	HistoryDB *database.DB

	// Price sources
	HistoryStore    *historical.HistoryDB // nil when prices come from a CSV file
	Prices          historical.PriceSource
	PriceSourceName string

	// Services
	Optimizer           *optimization.MonteCarloOptimizer
	OptimizationService *services.OptimizationService
}
