package historical

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/frontier/internal/domain"
)

// BuildReturnSeries pivots price points into a per-period simple return series.
//
// Dates are aligned across assets; a date on which any asset lacks a price is
// dropped. The return on each retained date is close/previousClose - 1 relative to
// the previous retained date, so the first retained date produces no row.
func BuildReturnSeries(assets []string, points []PricePoint) (domain.ReturnSeries, error) {
	if len(assets) == 0 {
		return domain.ReturnSeries{}, fmt.Errorf("%w: no assets requested", domain.ErrInvalidInput)
	}

	index := make(map[string]int, len(assets))
	for i, a := range assets {
		if _, dup := index[a]; dup {
			return domain.ReturnSeries{}, fmt.Errorf("%w: duplicate asset %q", domain.ErrInvalidInput, a)
		}
		index[a] = i
	}

	type dayPrices struct {
		close []float64
		have  []bool
		count int
	}

	seen := make([]bool, len(assets))
	byDate := make(map[time.Time]*dayPrices)

	for _, p := range points {
		j, ok := index[p.Symbol]
		if !ok {
			continue
		}
		day := dayOf(p.Date)
		d, ok := byDate[day]
		if !ok {
			d = &dayPrices{close: make([]float64, len(assets)), have: make([]bool, len(assets))}
			byDate[day] = d
		}
		if !d.have[j] {
			d.have[j] = true
			d.count++
		}
		d.close[j] = p.Close
		seen[j] = true
	}

	for j, ok := range seen {
		if !ok {
			return domain.ReturnSeries{}, fmt.Errorf("%w: no prices for %s", domain.ErrInvalidInput, assets[j])
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for day, d := range byDate {
		if d.count == len(assets) {
			dates = append(dates, day)
		}
	}
	sort.Slice(dates, func(a, b int) bool { return dates[a].Before(dates[b]) })

	if len(dates) < 3 {
		return domain.ReturnSeries{}, fmt.Errorf("%w: %d complete price dates in window, need at least 3", domain.ErrInvalidInput, len(dates))
	}

	series := domain.ReturnSeries{
		Assets: append([]string(nil), assets...),
		Dates:  make([]time.Time, 0, len(dates)-1),
		Rows:   make([][]float64, 0, len(dates)-1),
	}

	prev := byDate[dates[0]].close
	for _, day := range dates[1:] {
		curr := byDate[day].close
		row := make([]float64, len(assets))
		for j := range assets {
			if prev[j] <= 0 {
				return domain.ReturnSeries{}, fmt.Errorf("%w: non-positive price for %s before %s", domain.ErrInvalidInput, assets[j], day.Format(time.DateOnly))
			}
			row[j] = curr[j]/prev[j] - 1
		}
		series.Dates = append(series.Dates, day)
		series.Rows = append(series.Rows, row)
		prev = curr
	}

	return series, nil
}
