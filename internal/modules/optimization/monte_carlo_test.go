package optimization

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/statistics"
)

// scriptedSource replays fixed values, cycling when exhausted.
type scriptedSource struct {
	values []float64
	pos    int
}

func (s *scriptedSource) Float64() float64 {
	v := s.values[s.pos%len(s.values)]
	s.pos++
	return v
}

func twoAssetStats(t *testing.T) *statistics.ReturnStatistics {
	t.Helper()
	stats, err := statistics.Compute(domain.ReturnSeries{
		Assets: []string{"A", "B"},
		Rows: [][]float64{
			{0.01, 0.00},
			{-0.01, 0.01},
			{0.02, -0.01},
			{0.00, 0.02},
		},
	})
	require.NoError(t, err)
	return stats
}

func fourAssetStats(t *testing.T) *statistics.ReturnStatistics {
	t.Helper()
	stats, err := statistics.Compute(domain.ReturnSeries{
		Assets: []string{"AAPL", "MSFT", "GLD", "TLT"},
		Rows: [][]float64{
			{0.012, 0.008, -0.002, 0.001},
			{-0.004, 0.002, 0.003, 0.002},
			{0.007, 0.011, -0.001, -0.003},
			{-0.010, -0.006, 0.004, 0.005},
			{0.003, 0.004, 0.000, -0.001},
			{0.015, 0.009, -0.005, -0.002},
			{-0.002, -0.001, 0.002, 0.003},
		},
	})
	require.NoError(t, err)
	return stats
}

func newTestOptimizer() *MonteCarloOptimizer {
	return NewMonteCarloOptimizer(zerolog.Nop())
}

func TestRun_TwoAssetScriptedTrials(t *testing.T) {
	src := &scriptedSource{values: []float64{0.2, 0.8, 0.5, 0.5, 0.9, 0.1}}

	report, err := newTestOptimizer().Run(twoAssetStats(t), Options{NumTrials: 3, PeriodsPerYear: 252}, src)
	require.NoError(t, err)
	require.Len(t, report.Trials, 3)

	expectedWeights := [][]float64{{0.2, 0.8}, {0.5, 0.5}, {0.9, 0.1}}
	for i, trial := range report.Trials {
		assert.Equal(t, i, trial.Index)
		assert.InDeltaSlice(t, expectedWeights[i], trial.Weights, 1e-12)
		// Both assets average 0.5% per period
		assert.InDelta(t, 1.26, trial.ExpectedReturn, 1e-9)
	}

	balanced := report.Trials[1]
	assert.InDelta(t, math.Sqrt(0.0042), balanced.Volatility, 1e-9)
	require.NotNil(t, balanced.Sharpe)
	assert.InDelta(t, 1.26/math.Sqrt(0.0042), *balanced.Sharpe, 1e-6)

	// Annualized variances 0.042 for both assets and covariance -0.0336
	tilted := []struct {
		index      int
		variance   float64
		volatility float64
		sharpe     float64
	}{
		{0, 0.017808, 0.133447, 9.44198},
		{2, 0.028392, 0.168499, 7.47778},
	}
	for _, want := range tilted {
		trial := report.Trials[want.index]
		assert.InDelta(t, math.Sqrt(want.variance), trial.Volatility, 1e-12)
		assert.InDelta(t, want.volatility, trial.Volatility, 1e-6)
		require.NotNil(t, trial.Sharpe)
		assert.InDelta(t, 1.26/math.Sqrt(want.variance), *trial.Sharpe, 1e-9)
		assert.InDelta(t, want.sharpe, *trial.Sharpe, 1e-5)
	}

	assert.Equal(t, 1, report.OptimumIndex)
	assert.Equal(t, 1, report.MinVolatilityIndex)

	best, ok := report.Optimum()
	require.True(t, ok)
	assert.Equal(t, balanced, best)
}

func TestRun_DegenerateSourceFails(t *testing.T) {
	src := &scriptedSource{values: []float64{0, 0}}

	report, err := newTestOptimizer().Run(twoAssetStats(t), Options{NumTrials: 5, PeriodsPerYear: 252}, src)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, domain.ErrDegenerateSample))
	assert.Equal(t, DefaultMaxSampleAttempts*2, src.pos, "every attempt should draw a full vector")
}

func TestRun_ResamplesUnusableDraws(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"zero sum", []float64{0, 0, 0.25, 0.75}},
		{"negative value", []float64{-0.5, 0.9, 0.25, 0.75}},
		{"nan value", []float64{math.NaN(), 0.3, 0.25, 0.75}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &scriptedSource{values: tt.values}
			report, err := newTestOptimizer().Run(twoAssetStats(t), Options{NumTrials: 1, PeriodsPerYear: 252}, src)
			require.NoError(t, err)
			assert.InDeltaSlice(t, []float64{0.25, 0.75}, report.Trials[0].Weights, 1e-12)
		})
	}
}

func TestRun_SingleTrialIsOptimum(t *testing.T) {
	report, err := newTestOptimizer().Run(fourAssetStats(t), Options{NumTrials: 1, PeriodsPerYear: 252}, NewSeededSource(7))
	require.NoError(t, err)
	require.Len(t, report.Trials, 1)
	assert.Equal(t, 0, report.OptimumIndex)
	assert.Equal(t, 0, report.MinVolatilityIndex)
}

func TestRun_TiesResolveToLowestIndex(t *testing.T) {
	// (1,1) and (3,3) both normalize to exactly (0.5, 0.5)
	src := &scriptedSource{values: []float64{0.9, 0.1, 1, 1, 3, 3}}

	report, err := newTestOptimizer().Run(twoAssetStats(t), Options{NumTrials: 3, PeriodsPerYear: 252}, src)
	require.NoError(t, err)
	require.NotNil(t, report.Trials[1].Sharpe)
	require.NotNil(t, report.Trials[2].Sharpe)
	assert.Equal(t, *report.Trials[1].Sharpe, *report.Trials[2].Sharpe)
	assert.Equal(t, 1, report.OptimumIndex)
	assert.Equal(t, 1, report.MinVolatilityIndex)
}

func TestRun_ZeroVolatilityLeavesSharpeUndefined(t *testing.T) {
	stats, err := statistics.Compute(domain.ReturnSeries{
		Assets: []string{"CASH", "BILL"},
		Rows: [][]float64{
			{0.0001, 0.0002},
			{0.0001, 0.0002},
			{0.0001, 0.0002},
		},
	})
	require.NoError(t, err)

	report, err := newTestOptimizer().Run(stats, Options{NumTrials: 10, PeriodsPerYear: 252}, NewSeededSource(1))
	require.NoError(t, err)
	require.Len(t, report.Trials, 10)

	for _, trial := range report.Trials {
		assert.Nil(t, trial.Sharpe)
		assert.False(t, trial.SharpeDefined())
	}
	assert.Equal(t, -1, report.OptimumIndex)
	assert.Equal(t, 10, report.UndefinedSharpeCount())

	_, ok := report.Optimum()
	assert.False(t, ok)
}

func TestRun_InvalidInput(t *testing.T) {
	stats := twoAssetStats(t)
	src := NewSeededSource(1)

	tests := []struct {
		name  string
		stats *statistics.ReturnStatistics
		opts  Options
		src   RandomSource
	}{
		{"zero trials", stats, Options{NumTrials: 0, PeriodsPerYear: 252}, src},
		{"negative trials", stats, Options{NumTrials: -3, PeriodsPerYear: 252}, src},
		{"zero periods per year", stats, Options{NumTrials: 10, PeriodsPerYear: 0}, src},
		{"nil statistics", nil, Options{NumTrials: 10, PeriodsPerYear: 252}, src},
		{"nil source", stats, Options{NumTrials: 10, PeriodsPerYear: 252}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := newTestOptimizer().Run(tt.stats, tt.opts, tt.src)
			require.Error(t, err)
			assert.Nil(t, report)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}

func TestRun_SameSeedSameReport(t *testing.T) {
	stats := fourAssetStats(t)
	opts := Options{NumTrials: 500, PeriodsPerYear: 252}

	first, err := newTestOptimizer().Run(stats, opts, NewSeededSource(42))
	require.NoError(t, err)
	second, err := newTestOptimizer().Run(stats, opts, NewSeededSource(42))
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reports differ for the same seed (-first +second):\n%s", diff)
	}

	other, err := newTestOptimizer().Run(stats, opts, NewSeededSource(43))
	require.NoError(t, err)
	assert.NotEqual(t, first.Trials[0].Weights, other.Trials[0].Weights)
}

func TestRun_TrialProperties(t *testing.T) {
	report, err := newTestOptimizer().Run(fourAssetStats(t), Options{NumTrials: 2000, PeriodsPerYear: 252}, NewSeededSource(2024))
	require.NoError(t, err)
	require.Len(t, report.Trials, 2000)

	best, ok := report.Optimum()
	require.True(t, ok)

	for i, trial := range report.Trials {
		assert.Equal(t, i, trial.Index)
		require.Len(t, trial.Weights, 4)

		sum := 0.0
		for _, w := range trial.Weights {
			assert.GreaterOrEqual(t, w, 0.0)
			assert.LessOrEqual(t, w, 1.0)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
		assert.GreaterOrEqual(t, trial.Volatility, 0.0)

		if trial.Sharpe != nil {
			assert.InDelta(t, trial.ExpectedReturn/trial.Volatility, *trial.Sharpe, 1e-12)
			assert.LessOrEqual(t, *trial.Sharpe, *best.Sharpe)
			if *trial.Sharpe == *best.Sharpe {
				assert.GreaterOrEqual(t, i, report.OptimumIndex)
			}
		}
		assert.GreaterOrEqual(t, trial.Volatility, report.Trials[report.MinVolatilityIndex].Volatility)
	}
}

func TestRun_ReportsProgressPerBatch(t *testing.T) {
	var calls [][2]int
	opts := Options{
		NumTrials:      25,
		PeriodsPerYear: 252,
		BatchSize:      10,
		Progress: func(done, total int) {
			calls = append(calls, [2]int{done, total})
		},
	}

	_, err := newTestOptimizer().Run(twoAssetStats(t), opts, NewSeededSource(3))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{10, 25}, {20, 25}, {25, 25}}, calls)
}

func TestRun_DoesNotMutateStatistics(t *testing.T) {
	stats := twoAssetStats(t)
	before := stats.Covariance()

	_, err := newTestOptimizer().Run(stats, Options{NumTrials: 50, PeriodsPerYear: 252}, NewSeededSource(9))
	require.NoError(t, err)
	assert.Equal(t, before, stats.Covariance())
}
