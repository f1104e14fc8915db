// Package domain provides the return series model and shared errors.
package domain

import (
	"fmt"
	"math"
	"time"
)

// ReturnSeries is an ordered sequence of per-period returns for a fixed asset universe.
// Rows[t][j] is the return of Assets[j] in period t. Dates is optional; when present it
// carries the period end date of each row.
type ReturnSeries struct {
	Assets []string
	Dates  []time.Time
	Rows   [][]float64
}

// NewReturnSeriesFromMaps builds a series from observations keyed by asset identifier.
// Every observation must contain a value for every asset; missing values are an error,
// never a silent zero.
func NewReturnSeriesFromMaps(assets []string, observations []map[string]float64) (ReturnSeries, error) {
	rows := make([][]float64, len(observations))
	for t, obs := range observations {
		if len(obs) != len(assets) {
			return ReturnSeries{}, fmt.Errorf("%w: observation %d has %d values, expected %d", ErrInvalidInput, t, len(obs), len(assets))
		}
		row := make([]float64, len(assets))
		for j, asset := range assets {
			v, ok := obs[asset]
			if !ok {
				return ReturnSeries{}, fmt.Errorf("%w: observation %d is missing asset %s", ErrInvalidInput, t, asset)
			}
			row[j] = v
		}
		rows[t] = row
	}

	series := ReturnSeries{
		Assets: append([]string(nil), assets...),
		Rows:   rows,
	}
	if err := series.Validate(); err != nil {
		return ReturnSeries{}, err
	}
	return series, nil
}

// Len returns the number of observations.
func (s ReturnSeries) Len() int {
	return len(s.Rows)
}

// Column returns a copy of the returns of asset j across all observations.
func (s ReturnSeries) Column(j int) []float64 {
	col := make([]float64, len(s.Rows))
	for t, row := range s.Rows {
		col[t] = row[j]
	}
	return col
}

// Validate checks the properties every consumer of a return series relies on:
// at least one asset with unique non-empty identifiers, at least two observations,
// N finite values per observation and, when dates are present, one date per row.
func (s ReturnSeries) Validate() error {
	n := len(s.Assets)
	if n == 0 {
		return fmt.Errorf("%w: empty asset universe", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, n)
	for _, asset := range s.Assets {
		if asset == "" {
			return fmt.Errorf("%w: empty asset identifier", ErrInvalidInput)
		}
		if _, dup := seen[asset]; dup {
			return fmt.Errorf("%w: duplicate asset identifier %s", ErrInvalidInput, asset)
		}
		seen[asset] = struct{}{}
	}

	if len(s.Rows) < 2 {
		return fmt.Errorf("%w: need at least 2 observations, got %d", ErrInvalidInput, len(s.Rows))
	}
	if len(s.Dates) != 0 && len(s.Dates) != len(s.Rows) {
		return fmt.Errorf("%w: %d dates for %d observations", ErrInvalidInput, len(s.Dates), len(s.Rows))
	}

	for t, row := range s.Rows {
		if len(row) != n {
			return fmt.Errorf("%w: observation %d has %d values, expected %d", ErrInvalidInput, t, len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite return %v for %s at observation %d", ErrInvalidInput, v, s.Assets[j], t)
			}
		}
	}

	return nil
}
