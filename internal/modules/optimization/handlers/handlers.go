// Package handlers provides HTTP handlers for Monte Carlo portfolio optimization.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/display"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/services"
)

// OptimizationService is the subset of services.OptimizationService used by the handlers
type OptimizationService interface {
	Optimize(ctx context.Context, req services.OptimizationRequest) (*services.OptimizationResult, error)
	OptimizeSeries(ctx context.Context, series domain.ReturnSeries, req services.OptimizationRequest) (*services.OptimizationResult, error)
}

// Handler handles optimization HTTP requests
type Handler struct {
	service OptimizationService
	log     zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(service OptimizationService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "optimization").Logger(),
	}
}

// MonteCarloRequest is the body of a Monte Carlo run, sent as JSON or MessagePack.
// When Returns is set the run uses those observations directly; otherwise prices for
// Assets are loaded over Lookback. An omitted num_trials or periods_per_year uses the
// server default; an explicit value is used as sent and must be positive.
type MonteCarloRequest struct {
	Assets         []string             `json:"assets" msgpack:"assets"`
	Returns        []map[string]float64 `json:"returns,omitempty" msgpack:"returns,omitempty"`
	Lookback       string               `json:"lookback,omitempty" msgpack:"lookback,omitempty"`
	NumTrials      *int                 `json:"num_trials,omitempty" msgpack:"num_trials,omitempty"`
	PeriodsPerYear *int                 `json:"periods_per_year,omitempty" msgpack:"periods_per_year,omitempty"`
	Seed           *uint64              `json:"seed,omitempty" msgpack:"seed,omitempty"`
	Workers        int                  `json:"workers,omitempty" msgpack:"workers,omitempty"`
	BatchSize      int                  `json:"batch_size,omitempty" msgpack:"batch_size,omitempty"`
	IncludeTrials  bool                 `json:"include_trials,omitempty" msgpack:"include_trials,omitempty"`
}

// MonteCarloResponse is a run result with the selected portfolios resolved.
// Report.Trials is omitted unless the request set include_trials.
type MonteCarloResponse struct {
	*services.OptimizationResult
	Optimum       *optimization.TrialResult `json:"optimum" msgpack:"optimum"`
	MinVolatility *optimization.TrialResult `json:"min_volatility" msgpack:"min_volatility"`
}

// HandleMonteCarlo handles POST /api/optimization/monte-carlo
func (h *Handler) HandleMonteCarlo(w http.ResponseWriter, r *http.Request) {
	var req MonteCarloRequest
	if err := decodeRequest(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	start := time.Now()
	result, err := h.run(r.Context(), req, nil)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Msg("Monte Carlo run failed")
		}
		h.writeError(w, status, err.Error())
		return
	}

	h.log.Info().
		Str("run_id", result.RunID).
		Int("num_trials", result.NumTrials).
		Dur("elapsed", time.Since(start)).
		Msg("Monte Carlo run served")

	response := newResponse(result, req.IncludeTrials)
	if wantsMsgpack(r) {
		w.Header().Set("Content-Type", display.FormatMsgpack.ContentType())
		w.WriteHeader(http.StatusOK)
		if err := display.EncodeMsgpack(w, response); err != nil {
			h.log.Error().Err(err).Msg("Failed to encode msgpack response")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, response)
}

// run dispatches a request to the service, either on supplied returns or on loaded prices.
func (h *Handler) run(ctx context.Context, req MonteCarloRequest, progress optimization.ProgressFunc) (*services.OptimizationResult, error) {
	svcReq := services.OptimizationRequest{
		Assets:         req.Assets,
		Lookback:       req.Lookback,
		NumTrials:      req.NumTrials,
		PeriodsPerYear: req.PeriodsPerYear,
		Seed:           req.Seed,
		Workers:        req.Workers,
		BatchSize:      req.BatchSize,
		Progress:       progress,
	}

	if len(req.Returns) > 0 {
		series, err := domain.NewReturnSeriesFromMaps(req.Assets, req.Returns)
		if err != nil {
			return nil, err
		}
		return h.service.OptimizeSeries(ctx, series, svcReq)
	}
	return h.service.Optimize(ctx, svcReq)
}

func newResponse(result *services.OptimizationResult, includeTrials bool) MonteCarloResponse {
	response := MonteCarloResponse{OptimizationResult: result}
	if best, ok := result.Report.Optimum(); ok {
		response.Optimum = &best
	}
	if calm, ok := result.Report.MinVolatility(); ok {
		response.MinVolatility = &calm
	}
	if !includeTrials {
		trimmed := *result.Report
		trimmed.Trials = nil
		copied := *result
		copied.Report = &trimmed
		response.OptimizationResult = &copied
	}
	return response
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDegenerateSample):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// isMsgpack matches both the registered and the legacy x- MessagePack media types
func isMsgpack(header string) bool {
	header = strings.ToLower(header)
	return strings.Contains(header, "application/msgpack") || strings.Contains(header, "application/x-msgpack")
}

func wantsMsgpack(r *http.Request) bool {
	return isMsgpack(r.Header.Get("Accept"))
}

// decodeRequest reads a MessagePack body when Content-Type says so, JSON otherwise
func decodeRequest(r *http.Request, req *MonteCarloRequest) error {
	if isMsgpack(r.Header.Get("Content-Type")) {
		return msgpack.NewDecoder(r.Body).Decode(req)
	}
	return json.NewDecoder(r.Body).Decode(req)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
