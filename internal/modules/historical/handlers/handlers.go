// Package handlers provides HTTP handlers for price history and return statistics.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/statistics"
)

// Handler handles historical data HTTP requests
type Handler struct {
	prices   historical.PriceSource
	lookback string
	now      func() time.Time
	log      zerolog.Logger
}

// NewHandler creates a new historical data handler. lookback is used when a request
// does not name a window.
func NewHandler(prices historical.PriceSource, lookback string, log zerolog.Logger) *Handler {
	if lookback == "" {
		lookback = historical.DefaultLookback
	}
	return &Handler{
		prices:   prices,
		lookback: lookback,
		now:      time.Now,
		log:      log.With().Str("handler", "historical").Logger(),
	}
}

// HandleGetDailyPrices handles GET /api/historical/prices/daily/{symbol}
func (h *Handler) HandleGetDailyPrices(w http.ResponseWriter, r *http.Request, symbol string) {
	from, ok := h.window(w, r)
	if !ok {
		return
	}

	points, err := h.prices.DailyPrices(r.Context(), []string{symbol}, from)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get daily prices")
		h.writeError(w, http.StatusInternalServerError, "Failed to get daily prices")
		return
	}

	prices := make([]map[string]interface{}, 0, len(points))
	for _, p := range points {
		prices = append(prices, map[string]interface{}{
			"date":  p.Date.Format(time.DateOnly),
			"close": p.Close,
		})
	}

	h.writeData(w, map[string]interface{}{
		"symbol": symbol,
		"prices": prices,
		"count":  len(prices),
	})
}

// HandleGetReturns handles GET /api/historical/returns?assets=A,B&lookback=1y
func (h *Handler) HandleGetReturns(w http.ResponseWriter, r *http.Request) {
	series, ok := h.loadSeries(w, r)
	if !ok {
		return
	}

	dates := make([]string, len(series.Dates))
	for i, d := range series.Dates {
		dates[i] = d.Format(time.DateOnly)
	}

	h.writeData(w, map[string]interface{}{
		"assets": series.Assets,
		"dates":  dates,
		"rows":   series.Rows,
		"count":  series.Len(),
	})
}

// HandleGetStatistics handles GET /api/historical/returns/statistics
func (h *Handler) HandleGetStatistics(w http.ResponseWriter, r *http.Request) {
	periods := 252
	if v := r.URL.Query().Get("periods_per_year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "periods_per_year must be a positive integer")
			return
		}
		periods = parsed
	}

	stats, ok := h.loadStatistics(w, r)
	if !ok {
		return
	}

	mean := stats.MeanReturn()
	annualized := make([]float64, len(mean))
	for i, m := range mean {
		annualized[i] = m * float64(periods)
	}

	h.writeData(w, map[string]interface{}{
		"assets":            stats.Assets(),
		"observations":      stats.Observations(),
		"mean_return":       mean,
		"annualized_return": annualized,
		"covariance":        stats.Covariance(),
	})
}

// HandleGetCorrelationMatrix handles GET /api/historical/returns/correlation-matrix
func (h *Handler) HandleGetCorrelationMatrix(w http.ResponseWriter, r *http.Request) {
	threshold := 0.7
	if v := r.URL.Query().Get("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			h.writeError(w, http.StatusBadRequest, "threshold must be between 0 and 1")
			return
		}
		threshold = parsed
	}

	stats, ok := h.loadStatistics(w, r)
	if !ok {
		return
	}

	pairs := stats.HighCorrelations(threshold)
	h.writeData(w, map[string]interface{}{
		"threshold": threshold,
		"pairs":     pairs,
		"count":     len(pairs),
	})
}

func (h *Handler) window(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	lookback := r.URL.Query().Get("lookback")
	if lookback == "" {
		lookback = h.lookback
	}
	from, err := historical.ParseLookback(lookback, h.now())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return time.Time{}, false
	}
	return from, true
}

func (h *Handler) loadSeries(w http.ResponseWriter, r *http.Request) (domain.ReturnSeries, bool) {
	assets := config.SplitList(r.URL.Query().Get("assets"))
	if len(assets) == 0 {
		h.writeError(w, http.StatusBadRequest, "assets query parameter is required")
		return domain.ReturnSeries{}, false
	}

	from, ok := h.window(w, r)
	if !ok {
		return domain.ReturnSeries{}, false
	}

	points, err := h.prices.DailyPrices(r.Context(), assets, from)
	if err != nil {
		h.log.Error().Err(err).Strs("assets", assets).Msg("Failed to get daily prices")
		h.writeError(w, http.StatusInternalServerError, "Failed to get daily prices")
		return domain.ReturnSeries{}, false
	}

	series, err := historical.BuildReturnSeries(assets, points)
	if err != nil {
		h.writeError(w, statusFor(err), err.Error())
		return domain.ReturnSeries{}, false
	}
	return series, true
}

func (h *Handler) loadStatistics(w http.ResponseWriter, r *http.Request) (*statistics.ReturnStatistics, bool) {
	series, ok := h.loadSeries(w, r)
	if !ok {
		return nil, false
	}
	stats, err := statistics.Compute(series)
	if err != nil {
		h.writeError(w, statusFor(err), err.Error())
		return nil, false
	}
	return stats, true
}

func statusFor(err error) int {
	if errors.Is(err, domain.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": h.now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
