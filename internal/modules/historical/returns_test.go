package historical

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildReturnSeries(t *testing.T) {
	points := []PricePoint{
		{Symbol: "B", Date: day("2024-01-03"), Close: 50},
		{Symbol: "A", Date: day("2024-01-02"), Close: 100},
		{Symbol: "B", Date: day("2024-01-02"), Close: 40},
		{Symbol: "A", Date: day("2024-01-03"), Close: 110},
		{Symbol: "A", Date: day("2024-01-04"), Close: 99},
		{Symbol: "B", Date: day("2024-01-04"), Close: 50},
		{Symbol: "IGNORED", Date: day("2024-01-04"), Close: 1},
	}

	series, err := BuildReturnSeries([]string{"A", "B"}, points)
	require.NoError(t, err)
	require.NoError(t, series.Validate())

	assert.Equal(t, []string{"A", "B"}, series.Assets)
	assert.Equal(t, []time.Time{day("2024-01-03"), day("2024-01-04")}, series.Dates)
	require.Len(t, series.Rows, 2)
	assert.InDeltaSlice(t, []float64{0.10, 0.25}, series.Rows[0], 1e-12)
	assert.InDeltaSlice(t, []float64{-0.10, 0.0}, series.Rows[1], 1e-12)
}

func TestBuildReturnSeries_DropsIncompleteDates(t *testing.T) {
	points := []PricePoint{
		{Symbol: "A", Date: day("2024-01-02"), Close: 100},
		{Symbol: "B", Date: day("2024-01-02"), Close: 10},
		// B missing on the 3rd
		{Symbol: "A", Date: day("2024-01-03"), Close: 150},
		{Symbol: "A", Date: day("2024-01-04"), Close: 120},
		{Symbol: "B", Date: day("2024-01-04"), Close: 11},
		{Symbol: "A", Date: day("2024-01-05"), Close: 126},
		{Symbol: "B", Date: day("2024-01-05"), Close: 11},
	}

	series, err := BuildReturnSeries([]string{"A", "B"}, points)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{day("2024-01-04"), day("2024-01-05")}, series.Dates)
	// Return spans the dropped date
	assert.InDeltaSlice(t, []float64{0.20, 0.10}, series.Rows[0], 1e-12)
	assert.InDeltaSlice(t, []float64{0.05, 0.0}, series.Rows[1], 1e-12)
}

func TestBuildReturnSeries_Errors(t *testing.T) {
	complete := []PricePoint{
		{Symbol: "A", Date: day("2024-01-02"), Close: 100},
		{Symbol: "A", Date: day("2024-01-03"), Close: 101},
		{Symbol: "A", Date: day("2024-01-04"), Close: 102},
	}

	tests := []struct {
		name   string
		assets []string
		points []PricePoint
	}{
		{"no assets", nil, complete},
		{"duplicate asset", []string{"A", "A"}, complete},
		{"unknown symbol", []string{"A", "ZZZ"}, complete},
		{"empty window", []string{"A"}, nil},
		{"too few dates", []string{"A"}, complete[:2]},
		{"non-positive price", []string{"A"}, []PricePoint{
			{Symbol: "A", Date: day("2024-01-02"), Close: 0},
			{Symbol: "A", Date: day("2024-01-03"), Close: 101},
			{Symbol: "A", Date: day("2024-01-04"), Close: 102},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildReturnSeries(tt.assets, tt.points)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}
