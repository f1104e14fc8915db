package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/frontier/internal/database"
)

// SystemStatusResponse reports host load and the state of the price source.
type SystemStatusResponse struct {
	Status        string  `json:"status"` // "healthy" or "degraded"
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	LogicalCPUs   int     `json:"logical_cpus"`
	Goroutines    int     `json:"goroutines"`
	PriceSource   string  `json:"price_source"`
	HistoryDB     string  `json:"history_db,omitempty"` // "ok" or the health check error
	Uptime        string  `json:"uptime"`
}

// SystemHandlers serves system monitoring endpoints
type SystemHandlers struct {
	historyDB   *database.DB
	priceSource string
	startedAt   time.Time
	log         zerolog.Logger
}

// NewSystemHandlers creates new system handlers. historyDB may be nil.
func NewSystemHandlers(log zerolog.Logger, historyDB *database.DB, priceSource string) *SystemHandlers {
	return &SystemHandlers{
		historyDB:   historyDB,
		priceSource: priceSource,
		startedAt:   time.Now(),
		log:         log.With().Str("handler", "system").Logger(),
	}
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		LogicalCPUs:   runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		PriceSource:   h.priceSource,
		Uptime:        time.Since(h.startedAt).Round(time.Second).String(),
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		response.LogicalCPUs = n
	}

	if h.historyDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.historyDB.HealthCheck(ctx); err != nil {
			h.log.Warn().Err(err).Msg("History database health check failed")
			response.Status = "degraded"
			response.HistoryDB = err.Error()
		} else {
			response.HistoryDB = "ok"
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// getSystemStats returns CPU and memory utilisation in percent; zero when unavailable
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	var cpuPercent, memPercent float64

	if values, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		h.log.Debug().Err(err).Msg("Failed to read CPU usage")
	} else if len(values) > 0 {
		cpuPercent = values[0]
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Debug().Err(err).Msg("Failed to read memory usage")
	} else {
		memPercent = memStat.UsedPercent
	}

	return cpuPercent, memPercent
}
