package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/historical"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := database.New(database.Config{
		Path: "file:" + t.Name() + "?mode=memory&cache=shared",
		Name: "history",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	history := historical.NewHistoryDB(db.Conn(), log)
	service := services.NewOptimizationService(
		history,
		optimization.NewMonteCarloOptimizer(log),
		services.OptimizationDefaults{NumTrials: 100, Workers: 1},
		log,
	)

	return New(Config{
		Log:                 log,
		HistoryDB:           db,
		Prices:              history,
		PriceSourceName:     "history_db",
		OptimizationService: service,
		Port:                0,
		DevMode:             true,
	})
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "frontier", body["service"])
}

func TestServer_SystemStatus(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "history_db", status.PriceSource)
	assert.Equal(t, "ok", status.HistoryDB)
	assert.Greater(t, status.LogicalCPUs, 0)
}

func TestServer_MonteCarloWithSuppliedReturns(t *testing.T) {
	s := newTestServer(t)

	body := `{
		"assets": ["A", "B"],
		"returns": [
			{"A": 0.01, "B": 0.00},
			{"A": -0.01, "B": 0.01},
			{"A": 0.02, "B": -0.01},
			{"A": 0.00, "B": 0.02}
		],
		"num_trials": 300,
		"periods_per_year": 252,
		"seed": 9
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/optimization/monte-carlo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(9), response["seed"])
	assert.NotNil(t, response["optimum"])
}

const suppliedReturns = `"returns": [
		{"A": 0.01, "B": 0.00},
		{"A": -0.01, "B": 0.01},
		{"A": 0.02, "B": -0.01},
		{"A": 0.00, "B": 0.02}
	]`

func postSupplied(t *testing.T, s *Server, fields string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"assets": ["A", "B"], ` + suppliedReturns + fields + `}`
	req := httptest.NewRequest(http.MethodPost, "/api/optimization/monte-carlo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_MonteCarloExplicitZeroSizesAreBadRequest(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		fields string
	}{
		{"zero trials", `, "num_trials": 0, "periods_per_year": 252`},
		{"zero periods per year", `, "num_trials": 10, "periods_per_year": 0`},
		{"zero trials with default periods", `, "num_trials": 0`},
		{"negative periods with default trials", `, "periods_per_year": -12`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postSupplied(t, s, tt.fields)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestServer_MonteCarloOmittedSizesUseDefaults(t *testing.T) {
	s := newTestServer(t)

	w := postSupplied(t, s, `, "seed": 3`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(100), response["num_trials"])
	assert.Equal(t, float64(252), response["periods_per_year"])
}

func TestServer_MonteCarloUnknownAssetIsBadRequest(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/optimization/monte-carlo",
		strings.NewReader(`{"assets":["NOPE"],"num_trials":10,"periods_per_year":252}`))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_HistoricalRoutesMounted(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/historical/prices/daily/AAPL", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Shutdown(t *testing.T) {
	s := newTestServer(t)
	assert.NoError(t, s.Shutdown(context.Background()))
}
