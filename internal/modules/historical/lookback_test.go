package historical

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/domain"
)

func TestParseLookback(t *testing.T) {
	asOf := time.Date(2024, 6, 15, 17, 30, 0, 0, time.UTC)

	tests := []struct {
		window   string
		expected time.Time
	}{
		{"2y", day("2022-06-15")},
		{"18m", day("2022-12-15")},
		{"6w", day("2024-05-04")},
		{"90d", day("2024-03-17")},
		{" 1Y ", day("2023-06-15")},
	}

	for _, tt := range tests {
		t.Run(tt.window, func(t *testing.T) {
			from, err := ParseLookback(tt.window, asOf)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(from), "expected %s, got %s", tt.expected, from)
		})
	}
}

func TestParseLookback_Invalid(t *testing.T) {
	for _, window := range []string{"", "y", "0y", "-1y", "2x", "twoy", "2.5y"} {
		t.Run(window, func(t *testing.T) {
			_, err := ParseLookback(window, time.Now())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}
