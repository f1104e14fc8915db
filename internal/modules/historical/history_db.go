package historical

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/database"
)

// HistoryDB reads daily closing prices from the daily_prices table.
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// DailyPrices returns closing prices for symbols with a date on or after from,
// ordered by date ascending.
func (h *HistoryDB) DailyPrices(ctx context.Context, symbols []string, from time.Time) ([]PricePoint, error) {
	if len(symbols) == 0 {
		return []PricePoint{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(symbols)), ",")
	query := `
		SELECT symbol, date, close
		FROM daily_prices
		WHERE symbol IN (` + placeholders + `) AND date >= ?
		ORDER BY date ASC, symbol ASC
	`

	args := make([]interface{}, 0, len(symbols)+1)
	for _, s := range symbols {
		args = append(args, s)
	}
	args = append(args, dayOf(from).Unix())

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var (
			p        PricePoint
			dateUnix int64
		)
		if err := rows.Scan(&p.Symbol, &dateUnix, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		p.Date = dayOf(time.Unix(dateUnix, 0))
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	h.log.Debug().Strs("symbols", symbols).Int("points", len(points)).Msg("Loaded prices from history database")
	return points, nil
}

// StorePrices upserts price points in a single transaction.
func (h *HistoryDB) StorePrices(ctx context.Context, points []PricePoint) error {
	err := database.WithTransaction(h.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO daily_prices (symbol, date, close) VALUES (?, ?, ?)
			ON CONFLICT(symbol, date) DO UPDATE SET close = excluded.close
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, p.Symbol, dayOf(p.Date).Unix(), p.Close); err != nil {
				return fmt.Errorf("failed to store %s %s: %w", p.Symbol, p.Date.Format(time.DateOnly), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.log.Info().Int("points", len(points)).Msg("Stored daily prices")
	return nil
}
