package historical

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/frontier/internal/domain"
)

// DefaultLookback is the price window used when none is configured.
const DefaultLookback = "2y"

// ParseLookback resolves a window such as "2y", "18m", "6w" or "90d" to the start
// date that lies that far before asOf.
func ParseLookback(window string, asOf time.Time) (time.Time, error) {
	window = strings.TrimSpace(strings.ToLower(window))
	if len(window) < 2 {
		return time.Time{}, fmt.Errorf("%w: invalid lookback %q", domain.ErrInvalidInput, window)
	}

	amount, err := strconv.Atoi(window[:len(window)-1])
	if err != nil || amount <= 0 {
		return time.Time{}, fmt.Errorf("%w: invalid lookback %q", domain.ErrInvalidInput, window)
	}

	asOf = dayOf(asOf)
	switch window[len(window)-1] {
	case 'y':
		return asOf.AddDate(-amount, 0, 0), nil
	case 'm':
		return asOf.AddDate(0, -amount, 0), nil
	case 'w':
		return asOf.AddDate(0, 0, -7*amount), nil
	case 'd':
		return asOf.AddDate(0, 0, -amount), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown lookback unit in %q (use y, m, w or d)", domain.ErrInvalidInput, window)
	}
}
