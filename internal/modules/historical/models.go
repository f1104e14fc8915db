// Package historical turns daily price history into the per-period return series the
// optimizer consumes.
package historical

import (
	"context"
	"time"
)

// PricePoint is a single daily closing price.
type PricePoint struct {
	Symbol string
	Date   time.Time
	Close  float64
}

// PriceSource supplies daily closing prices for a set of symbols from a start date onwards.
type PriceSource interface {
	DailyPrices(ctx context.Context, symbols []string, from time.Time) ([]PricePoint, error)
}

// dayOf truncates t to its UTC calendar day so prices from different sources align.
func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func symbolSet(symbols []string) map[string]bool {
	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set
}
