// Package services provides core business services shared across multiple modules.
package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/modules/statistics"
)

// OptimizationDefaults fill in request fields left at their zero value.
type OptimizationDefaults struct {
	Lookback       string
	NumTrials      int
	PeriodsPerYear int
	Workers        int // 0 uses one worker per logical CPU
	BatchSize      int
}

// OptimizationRequest describes one Monte Carlo run.
type OptimizationRequest struct {
	Assets         []string
	Lookback       string
	AsOf           time.Time // end of the price window; zero means now
	NumTrials      *int    // nil uses the configured default; explicit values are never replaced
	PeriodsPerYear *int    // nil uses the configured default; explicit values are never replaced
	Seed           *uint64 // nil draws a fresh seed, reported in the result
	Workers        int
	BatchSize      int
	Progress       optimization.ProgressFunc
}

// OptimizationResult wraps a report with the metadata needed to reproduce it.
type OptimizationResult struct {
	RunID          string                     `json:"run_id" msgpack:"run_id"`
	Seed           uint64                     `json:"seed" msgpack:"seed"`
	NumTrials      int                        `json:"num_trials" msgpack:"num_trials"`
	PeriodsPerYear int                        `json:"periods_per_year" msgpack:"periods_per_year"`
	BatchSize      int                        `json:"batch_size" msgpack:"batch_size"`
	Observations   int                        `json:"observations" msgpack:"observations"`
	From           *time.Time                 `json:"from,omitempty" msgpack:"from,omitempty"`
	To             *time.Time                 `json:"to,omitempty" msgpack:"to,omitempty"`
	DurationMs     int64                      `json:"duration_ms" msgpack:"duration_ms"`
	Summary        optimization.SharpeSummary `json:"summary" msgpack:"summary"`
	Report         *optimization.Report       `json:"report" msgpack:"report"`
}

// OptimizationService loads price history, derives return statistics and runs the
// Monte Carlo optimizer over them.
type OptimizationService struct {
	prices    historical.PriceSource
	optimizer *optimization.MonteCarloOptimizer
	defaults  OptimizationDefaults
	now       func() time.Time
	log       zerolog.Logger
}

// NewOptimizationService creates a new optimization service. prices may be nil when
// callers only supply return series directly.
func NewOptimizationService(
	prices historical.PriceSource,
	optimizer *optimization.MonteCarloOptimizer,
	defaults OptimizationDefaults,
	log zerolog.Logger,
) *OptimizationService {
	if defaults.Lookback == "" {
		defaults.Lookback = historical.DefaultLookback
	}
	if defaults.PeriodsPerYear == 0 {
		defaults.PeriodsPerYear = optimization.DefaultPeriodsPerYear
	}
	if defaults.BatchSize == 0 {
		defaults.BatchSize = optimization.DefaultBatchSize
	}
	return &OptimizationService{
		prices:    prices,
		optimizer: optimizer,
		defaults:  defaults,
		now:       time.Now,
		log:       log.With().Str("service", "optimization").Logger(),
	}
}

// LoadSeries fetches prices for assets over the lookback window ending at asOf and
// converts them to a return series.
func (s *OptimizationService) LoadSeries(ctx context.Context, assets []string, lookback string, asOf time.Time) (domain.ReturnSeries, error) {
	if len(assets) == 0 {
		return domain.ReturnSeries{}, fmt.Errorf("%w: at least one asset is required", domain.ErrInvalidInput)
	}
	if s.prices == nil {
		return domain.ReturnSeries{}, fmt.Errorf("no price source configured")
	}
	if lookback == "" {
		lookback = s.defaults.Lookback
	}
	if asOf.IsZero() {
		asOf = s.now()
	}

	from, err := historical.ParseLookback(lookback, asOf)
	if err != nil {
		return domain.ReturnSeries{}, err
	}

	points, err := s.prices.DailyPrices(ctx, assets, from)
	if err != nil {
		return domain.ReturnSeries{}, fmt.Errorf("failed to load prices: %w", err)
	}

	series, err := historical.BuildReturnSeries(assets, points)
	if err != nil {
		return domain.ReturnSeries{}, err
	}

	s.log.Debug().
		Strs("assets", assets).
		Str("lookback", lookback).
		Int("price_points", len(points)).
		Int("observations", series.Len()).
		Msg("Built return series")

	return series, nil
}

// Optimize loads price history for the requested assets and runs the optimizer.
func (s *OptimizationService) Optimize(ctx context.Context, req OptimizationRequest) (*OptimizationResult, error) {
	series, err := s.LoadSeries(ctx, req.Assets, req.Lookback, req.AsOf)
	if err != nil {
		return nil, err
	}
	return s.OptimizeSeries(ctx, series, req)
}

// OptimizeSeries runs the optimizer on a caller-supplied return series. req.Assets and
// req.Lookback are ignored.
func (s *OptimizationService) OptimizeSeries(ctx context.Context, series domain.ReturnSeries, req OptimizationRequest) (*OptimizationResult, error) {
	start := time.Now()
	run := s.applyDefaults(req)

	stats, err := statistics.Compute(series)
	if err != nil {
		return nil, err
	}

	seed := s.resolveSeed(req.Seed)
	runID := uuid.NewString()
	log := s.log.With().Str("run_id", runID).Uint64("seed", seed).Logger()

	log.Info().
		Strs("assets", stats.Assets()).
		Int("observations", stats.Observations()).
		Int("num_trials", run.numTrials).
		Int("workers", run.workers).
		Msg("Starting optimization")

	report, err := s.optimizer.RunParallel(ctx, stats, optimization.Options{
		NumTrials:      run.numTrials,
		PeriodsPerYear: run.periodsPerYear,
		BatchSize:      run.batchSize,
		Progress:       req.Progress,
	}, seed, run.workers)
	if err != nil {
		log.Error().Err(err).Msg("Optimization failed")
		return nil, err
	}

	summary, err := optimization.Summarize(report)
	if err != nil {
		return nil, err
	}

	result := &OptimizationResult{
		RunID:          runID,
		Seed:           seed,
		NumTrials:      run.numTrials,
		PeriodsPerYear: run.periodsPerYear,
		BatchSize:      run.batchSize,
		Observations:   stats.Observations(),
		DurationMs:     time.Since(start).Milliseconds(),
		Summary:        summary,
		Report:         report,
	}
	if n := len(series.Dates); n > 0 {
		from, to := series.Dates[0], series.Dates[n-1]
		result.From, result.To = &from, &to
	}

	log.Info().Int64("duration_ms", result.DurationMs).Msg("Optimization complete")
	return result, nil
}

// runSettings are the resolved sizes of one run.
type runSettings struct {
	numTrials      int
	periodsPerYear int
	batchSize      int
	workers        int
}

// applyDefaults fills unset request fields. An explicit trial count or annualization
// factor is passed through as given, so the optimizer rejects non-positive values.
func (s *OptimizationService) applyDefaults(req OptimizationRequest) runSettings {
	run := runSettings{
		numTrials:      s.defaults.NumTrials,
		periodsPerYear: s.defaults.PeriodsPerYear,
		batchSize:      req.BatchSize,
		workers:        req.Workers,
	}
	if req.NumTrials != nil {
		run.numTrials = *req.NumTrials
	}
	if req.PeriodsPerYear != nil {
		run.periodsPerYear = *req.PeriodsPerYear
	}
	if run.batchSize <= 0 {
		run.batchSize = s.defaults.BatchSize
	}
	if run.workers <= 0 {
		run.workers = s.defaults.Workers
	}
	if run.workers <= 0 {
		run.workers = logicalCPUs()
	}
	return run
}

// resolveSeed returns the requested seed or draws a new one. Drawn seeds are logged
// and returned in the result so any run can be replayed.
func (s *OptimizationService) resolveSeed(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return rand.Uint64()
}

func logicalCPUs() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
