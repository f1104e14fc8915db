package display

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/modules/optimization"
)

func ptr(v float64) *float64 {
	return &v
}

func sampleReport() *optimization.Report {
	return &optimization.Report{
		Assets: []string{"JPM", "AAPL", "GLD"},
		Trials: []optimization.TrialResult{
			{Index: 0, Weights: []float64{0.5, 0.3, 0.2}, ExpectedReturn: 0.08, Volatility: 0.25, Sharpe: ptr(0.32)},
			{Index: 1, Weights: []float64{0.2, 0.5, 0.3}, ExpectedReturn: 0.1234, Volatility: 0.2, Sharpe: ptr(0.617)},
			{Index: 2, Weights: []float64{0.1, 0.1, 0.8}, ExpectedReturn: 0.02, Volatility: 0.15, Sharpe: ptr(0.1333)},
		},
		OptimumIndex:       1,
		MinVolatilityIndex: 2,
	}
}

func sumPercent(lines []AllocationLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Percent)
	}
	return total
}

func TestAllocation_SumsToHundred(t *testing.T) {
	tests := []struct {
		name     string
		weights  []float64
		expected []string
	}{
		{"exact", []float64{0.2, 0.8}, []string{"20.00", "80.00"}},
		{"thirds", []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, []string{"33.34", "33.33", "33.33"}},
		{"largest remainder wins", []float64{0.12345, 0.45678, 0.41977}, []string{"12.34", "45.68", "41.98"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assets := make([]string, len(tt.weights))
			for i := range assets {
				assets[i] = string(rune('A' + i))
			}

			lines := Allocation(assets, tt.weights)
			require.Len(t, lines, len(tt.weights))
			for i, l := range lines {
				assert.Equal(t, assets[i], l.Asset)
				assert.Equal(t, tt.expected[i], l.Percent.StringFixed(2))
			}
			assert.True(t, sumPercent(lines).Equal(decimal.NewFromInt(100)), "sum was %s", sumPercent(lines))
		})
	}
}

func TestWriteAllocationSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAllocationSummary(&buf, sampleReport()))

	expected := "Simulation Complete for Portfolio: [JPM, AAPL, GLD]\n" +
		rule + "\n" +
		"OPTIMAL ASSET ALLOCATION (Max Sharpe Ratio)\n" +
		rule + "\n" +
		"JPM     : 20.00%\n" +
		"AAPL    : 50.00%\n" +
		"GLD     : 30.00%\n" +
		rule + "\n" +
		"Expected Annual Return: 12.34%\n" +
		"Annual Volatility:    20.00%\n" +
		"Sharpe Ratio:         0.62\n" +
		rule + "\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteAllocationSummary_NoOptimum(t *testing.T) {
	report := &optimization.Report{
		Assets:             []string{"CASH"},
		Trials:             []optimization.TrialResult{{Index: 0, Weights: []float64{1}}},
		OptimumIndex:       -1,
		MinVolatilityIndex: 0,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAllocationSummary(&buf, report))
	assert.Contains(t, buf.String(), "No portfolio with a defined Sharpe ratio in 1 trials")
	assert.NotContains(t, buf.String(), "OPTIMAL ASSET ALLOCATION")
}

func TestWriteSharpeSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSharpeSummary(&buf, optimization.SharpeSummary{
		Defined: 3, Undefined: 1, Mean: 1, Median: 1, P5: 0.5, P95: 1.5, Max: 1.5,
	}))
	assert.Equal(t,
		"Sharpe distribution: 3 defined, 1 undefined\n  mean 1.00  median 1.00  p5 0.50  p95 1.50  max 1.50\n",
		buf.String())
}
