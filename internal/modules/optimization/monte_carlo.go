// Package optimization samples random long-only portfolios against fixed return
// statistics and selects the allocation with the highest Sharpe ratio.
package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/statistics"
)

// Defaults applied to zero-valued Options fields.
const (
	DefaultEpsilon           = 1e-12 // volatility at or below this leaves Sharpe undefined
	DefaultMaxSampleAttempts = 10    // weight draws per trial before ErrDegenerateSample
	DefaultBatchSize         = 512   // trials per batch (progress granularity, parallel partition size)
	DefaultPeriodsPerYear    = 252   // trading days
)

// ProgressFunc receives the number of completed trials. It may be called from
// several goroutines during a parallel run.
type ProgressFunc func(done, total int)

// Options configures a Monte Carlo run.
type Options struct {
	NumTrials         int
	PeriodsPerYear    int
	Epsilon           float64
	MaxSampleAttempts int
	BatchSize         int
	Progress          ProgressFunc
}

func (o Options) withDefaults() Options {
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.MaxSampleAttempts <= 0 {
		o.MaxSampleAttempts = DefaultMaxSampleAttempts
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

func validateRun(stats *statistics.ReturnStatistics, opts Options) error {
	if stats == nil {
		return fmt.Errorf("%w: return statistics are required", domain.ErrInvalidInput)
	}
	if opts.NumTrials <= 0 {
		return fmt.Errorf("%w: number of trials must be positive, got %d", domain.ErrInvalidInput, opts.NumTrials)
	}
	if opts.PeriodsPerYear <= 0 {
		return fmt.Errorf("%w: periods per year must be positive, got %d", domain.ErrInvalidInput, opts.PeriodsPerYear)
	}
	return nil
}

// TrialResult is one sampled portfolio. Sharpe is nil when the portfolio's volatility
// is at or below epsilon; such trials are kept but never selected as the optimum.
type TrialResult struct {
	Index          int       `json:"index" msgpack:"index"`
	Weights        []float64 `json:"weights" msgpack:"weights"`
	ExpectedReturn float64   `json:"expected_return" msgpack:"expected_return"`
	Volatility     float64   `json:"volatility" msgpack:"volatility"`
	Sharpe         *float64  `json:"sharpe" msgpack:"sharpe"`
}

// SharpeDefined reports whether the trial takes part in optimum selection.
func (t TrialResult) SharpeDefined() bool {
	return t.Sharpe != nil
}

// Report is the outcome of a run: every trial in trial order plus the indices of the
// maximum-Sharpe and minimum-volatility trials. OptimumIndex is -1 when no trial has
// a defined Sharpe ratio.
type Report struct {
	Assets             []string      `json:"assets" msgpack:"assets"`
	Trials             []TrialResult `json:"trials" msgpack:"trials"`
	OptimumIndex       int           `json:"optimum_index" msgpack:"optimum_index"`
	MinVolatilityIndex int           `json:"min_volatility_index" msgpack:"min_volatility_index"`
}

// Optimum returns the maximum-Sharpe trial.
func (r *Report) Optimum() (TrialResult, bool) {
	if r.OptimumIndex < 0 || r.OptimumIndex >= len(r.Trials) {
		return TrialResult{}, false
	}
	return r.Trials[r.OptimumIndex], true
}

// MinVolatility returns the lowest-volatility trial.
func (r *Report) MinVolatility() (TrialResult, bool) {
	if r.MinVolatilityIndex < 0 || r.MinVolatilityIndex >= len(r.Trials) {
		return TrialResult{}, false
	}
	return r.Trials[r.MinVolatilityIndex], true
}

// UndefinedSharpeCount returns how many trials were excluded from selection.
func (r *Report) UndefinedSharpeCount() int {
	count := 0
	for _, t := range r.Trials {
		if !t.SharpeDefined() {
			count++
		}
	}
	return count
}

// newReport scans trials in index order. Strict comparisons keep the first trial on ties.
func newReport(assets []string, trials []TrialResult) *Report {
	optimum, minVol := -1, -1
	for i := range trials {
		t := &trials[i]
		if t.Sharpe != nil && (optimum < 0 || *t.Sharpe > *trials[optimum].Sharpe) {
			optimum = i
		}
		if minVol < 0 || t.Volatility < trials[minVol].Volatility {
			minVol = i
		}
	}
	return &Report{
		Assets:             assets,
		Trials:             trials,
		OptimumIndex:       optimum,
		MinVolatilityIndex: minVol,
	}
}

// evaluator scores weight vectors against annualized statistics. It is read-only after
// construction and safe to share between goroutines.
type evaluator struct {
	mean    *mat.VecDense
	cov     *mat.SymDense // per-period covariance scaled by periods per year
	periods float64
	epsilon float64
}

func newEvaluator(stats *statistics.ReturnStatistics, opts Options) *evaluator {
	periods := float64(opts.PeriodsPerYear)

	cov := stats.CovarianceMatrix()
	cov.ScaleSym(periods, cov)

	return &evaluator{
		mean:    stats.MeanVector(),
		cov:     cov,
		periods: periods,
		epsilon: opts.Epsilon,
	}
}

func (e *evaluator) evaluate(index int, weights []float64) TrialResult {
	w := mat.NewVecDense(len(weights), weights)

	expectedReturn := mat.Dot(e.mean, w) * e.periods

	// wᵀΣw is non-negative for a PSD matrix; rounding can push it just below zero.
	variance := mat.Inner(w, e.cov, w)
	if variance < 0 {
		variance = 0
	}
	volatility := math.Sqrt(variance)

	result := TrialResult{
		Index:          index,
		Weights:        weights,
		ExpectedReturn: expectedReturn,
		Volatility:     volatility,
	}
	if volatility > e.epsilon {
		sharpe := expectedReturn / volatility
		result.Sharpe = &sharpe
	}
	return result
}

// sampleWeights draws n values from src and normalizes them into a long-only weight
// vector. Draws that are negative, non-finite or sum to zero are discarded and redrawn.
// It returns the number of attempts used.
func sampleWeights(src RandomSource, n, maxAttempts int) ([]float64, int, error) {
	weights := make([]float64, n)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sum := 0.0
		usable := true
		for j := range weights {
			v := src.Float64()
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				usable = false
			}
			weights[j] = v
			sum += v
		}
		if !usable || sum <= 0 || math.IsInf(sum, 0) {
			continue
		}

		for j := range weights {
			weights[j] /= sum
		}
		return weights, attempt, nil
	}

	return nil, maxAttempts, fmt.Errorf("%w: %d attempts produced no usable sample", domain.ErrDegenerateSample, maxAttempts)
}

// MonteCarloOptimizer runs random-weight portfolio sampling.
type MonteCarloOptimizer struct {
	log zerolog.Logger
}

// NewMonteCarloOptimizer creates a new Monte Carlo optimizer.
func NewMonteCarloOptimizer(log zerolog.Logger) *MonteCarloOptimizer {
	return &MonteCarloOptimizer{
		log: log.With().Str("component", "monte_carlo").Logger(),
	}
}

// Run evaluates opts.NumTrials random portfolios drawn sequentially from src and returns
// every trial together with the maximum-Sharpe selection. The run is all or nothing:
// invalid input or an exhausted resampling budget returns an error and no report.
func (o *MonteCarloOptimizer) Run(stats *statistics.ReturnStatistics, opts Options, src RandomSource) (*Report, error) {
	opts = opts.withDefaults()
	if err := validateRun(stats, opts); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: random source is required", domain.ErrInvalidInput)
	}

	o.log.Info().
		Int("num_assets", stats.N()).
		Int("num_trials", opts.NumTrials).
		Int("periods_per_year", opts.PeriodsPerYear).
		Msg("Starting Monte Carlo run")

	eval := newEvaluator(stats, opts)
	n := stats.N()
	trials := make([]TrialResult, opts.NumTrials)

	for i := 0; i < opts.NumTrials; i++ {
		weights, attempts, err := sampleWeights(src, n, opts.MaxSampleAttempts)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}
		if attempts > 1 {
			o.log.Debug().Int("trial", i).Int("attempts", attempts).Msg("Resampled degenerate weights")
		}

		trials[i] = eval.evaluate(i, weights)

		if opts.Progress != nil && ((i+1)%opts.BatchSize == 0 || i+1 == opts.NumTrials) {
			opts.Progress(i+1, opts.NumTrials)
		}
	}

	report := newReport(stats.Assets(), trials)
	o.logReport(report)
	return report, nil
}

func (o *MonteCarloOptimizer) logReport(report *Report) {
	event := o.log.Info().
		Int("num_trials", len(report.Trials)).
		Int("undefined_sharpe", report.UndefinedSharpeCount())

	if best, ok := report.Optimum(); ok {
		event = event.
			Int("optimum_index", best.Index).
			Float64("sharpe", *best.Sharpe).
			Float64("expected_return", best.ExpectedReturn).
			Float64("volatility", best.Volatility)
	} else {
		o.log.Warn().Msg("No trial produced a defined Sharpe ratio")
	}

	event.Msg("Monte Carlo run complete")
}
