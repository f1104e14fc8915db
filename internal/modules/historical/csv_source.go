package historical

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"
)

// csvRow is one line of a long-format price file: date,symbol,close
type csvRow struct {
	Date   string  `csv:"date"`
	Symbol string  `csv:"symbol"`
	Close  float64 `csv:"close"`
}

// CSVSource reads daily prices from a long-format CSV file.
type CSVSource struct {
	path string
	log  zerolog.Logger
}

// NewCSVSource creates a price source backed by the CSV file at path.
func NewCSVSource(path string, log zerolog.Logger) *CSVSource {
	return &CSVSource{
		path: path,
		log:  log.With().Str("component", "csv_prices").Logger(),
	}
}

// DailyPrices reads the whole file and keeps rows for the requested symbols on or after from.
func (s *CSVSource) DailyPrices(ctx context.Context, symbols []string, from time.Time) ([]PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file: %w", err)
	}
	defer f.Close()

	points, err := ReadCSV(f, symbols, from)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	s.log.Debug().
		Str("path", s.path).
		Int("symbols", len(symbols)).
		Int("points", len(points)).
		Msg("Loaded prices from CSV")

	return points, nil
}

// ReadCSV parses long-format price rows from r. An empty symbols slice keeps every symbol.
func ReadCSV(r io.Reader, symbols []string, from time.Time) ([]PricePoint, error) {
	var rows []csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	wanted := symbolSet(symbols)
	start := dayOf(from)
	points := make([]PricePoint, 0, len(rows))

	for i, row := range rows {
		if len(wanted) > 0 && !wanted[row.Symbol] {
			continue
		}
		date, err := time.Parse(time.DateOnly, row.Date)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q: %w", i+2, row.Date, err)
		}
		if !from.IsZero() && date.Before(start) {
			continue
		}
		points = append(points, PricePoint{
			Symbol: row.Symbol,
			Date:   date,
			Close:  row.Close,
		})
	}

	return points, nil
}
