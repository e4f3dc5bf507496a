package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volrv/internal/backtest"
	"volrv/internal/cache"
	"volrv/internal/config"
	"volrv/internal/roll"
	"volrv/internal/store"
)

func testServer(t *testing.T, repo store.Repository) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	return NewServer(cfg, repo, cache.NewMemoryCache(), nil, nil, nil, nil)
}

func seedRun(t *testing.T, repo store.Repository) *backtest.Result {
	t.Helper()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	result := &backtest.Result{
		RunID:      "run-test-1",
		Underlying: "VX",
		Positions: []backtest.Position{
			{Date: day, Underlying: "VX", Contract: "VXH4", Size: 1, Flag: backtest.FlagOK},
		},
		Trades: []backtest.Trade{
			{Date: day, Underlying: "VX", Contract: "VXH4", QuantityDelta: 1,
				Price: 17.5, Type: backtest.TradeRebalance, Notional: 17.5},
		},
		PnL: []backtest.PnLRecord{
			{Date: day, Underlying: "VX", NetPnL: 0, Equity: 1000, Flag: backtest.FlagOK},
		},
		Attribution: []backtest.AttributionRecord{
			{Date: day, Underlying: "VX", CarryBasis: backtest.CarryProxyEstimate},
		},
		RollEvents: []roll.Event{
			{Date: day, FromContract: "VXH4", ToContract: "VXJ4",
				Trigger: roll.TriggerExpiryOffset, DaysToExpiry: 5},
		},
		Summary: backtest.Summary{RunID: "run-test-1", Underlying: "VX", TradingDays: 1},
	}
	require.NoError(t, repo.SaveRun(context.Background(), result))
	return result
}

func doRequest(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t, store.NewMemoryRepository())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListRunsReturnsSeededSummary(t *testing.T) {
	repo := store.NewMemoryRepository()
	seedRun(t, repo)
	s := testServer(t, repo)

	w, resp := doRequest(t, s, http.MethodGet, "/api/v1/runs")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var summaries []backtest.Summary
	require.NoError(t, json.Unmarshal(data, &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "run-test-1", summaries[0].RunID)
}

func TestGetRunArtifacts(t *testing.T) {
	repo := store.NewMemoryRepository()
	seeded := seedRun(t, repo)
	s := testServer(t, repo)

	tests := []struct {
		path  string
		count int
	}{
		{"/api/v1/runs/run-test-1/positions", len(seeded.Positions)},
		{"/api/v1/runs/run-test-1/trades", len(seeded.Trades)},
		{"/api/v1/runs/run-test-1/pnl", len(seeded.PnL)},
		{"/api/v1/runs/run-test-1/attribution", len(seeded.Attribution)},
		{"/api/v1/runs/run-test-1/rolls", len(seeded.RollEvents)},
	}
	for _, tt := range tests {
		w, resp := doRequest(t, s, http.MethodGet, tt.path)
		require.Equal(t, http.StatusOK, w.Code, tt.path)
		require.True(t, resp.Success, tt.path)

		items, ok := resp.Data.([]interface{})
		require.True(t, ok, tt.path)
		assert.Len(t, items, tt.count, tt.path)
	}
}

func TestGetSummaryCachesAfterRepoHit(t *testing.T) {
	repo := store.NewMemoryRepository()
	seedRun(t, repo)
	s := testServer(t, repo)

	w, resp := doRequest(t, s, http.MethodGet, "/api/v1/runs/run-test-1")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	// Delete from the repo; the cached summary must still serve.
	require.NoError(t, repo.DeleteRun(context.Background(), "run-test-1"))
	w, resp = doRequest(t, s, http.MethodGet, "/api/v1/runs/run-test-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestUnknownRunReturns404(t *testing.T) {
	s := testServer(t, store.NewMemoryRepository())
	w, resp := doRequest(t, s, http.MethodGet, "/api/v1/runs/nope/trades")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
}

func TestTriggerWithoutRunnerIs503(t *testing.T) {
	s := testServer(t, store.NewMemoryRepository())
	w, resp := doRequest(t, s, http.MethodPost, "/api/v1/runs")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)
}

func TestBadLimitRejected(t *testing.T) {
	s := testServer(t, store.NewMemoryRepository())
	w, resp := doRequest(t, s, http.MethodGet, "/api/v1/runs?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
}
