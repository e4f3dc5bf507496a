package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volrv/internal/backtest"
)

func sampleResult(runID string) *backtest.Result {
	day := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	return &backtest.Result{
		RunID:      runID,
		Underlying: "VX",
		Positions: []backtest.Position{
			{Date: day, Underlying: "VX", Contract: "VXG4", Size: 2, Flag: backtest.FlagOK},
		},
		Trades: []backtest.Trade{
			{Date: day, Underlying: "VX", Contract: "VXG4", QuantityDelta: 2,
				Price: 16, Type: backtest.TradeRebalance, Notional: 32},
		},
		PnL: []backtest.PnLRecord{
			{Date: day, Underlying: "VX", NetPnL: 1.5, Equity: 1001.5, Flag: backtest.FlagOK},
		},
		Attribution: []backtest.AttributionRecord{
			{Date: day, Underlying: "VX", Total: 1.5, CarryBasis: backtest.CarryProxyEstimate},
		},
		Summary: backtest.Summary{RunID: runID, Underlying: "VX", TotalNetPnL: 1.5},
	}
}

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveRun(ctx, sampleResult("r1")))
	require.NoError(t, repo.SaveRun(ctx, sampleResult("r2")))

	summary, err := repo.GetSummary(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1.5, summary.TotalNetPnL)

	trades, err := repo.GetTrades(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, backtest.TradeRebalance, trades[0].Type)

	positions, err := repo.GetPositions(ctx, "r2")
	require.NoError(t, err)
	assert.Len(t, positions, 1)
}

func TestMemoryRepositoryListNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.SaveRun(ctx, sampleResult("old")))
	require.NoError(t, repo.SaveRun(ctx, sampleResult("new")))

	summaries, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "new", summaries[0].RunID)

	limited, err := repo.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].RunID)
}

func TestMemoryRepositoryNotFoundAndDelete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetSummary(ctx, "nope")
	assert.Equal(t, ErrRunNotFound, err)

	require.NoError(t, repo.SaveRun(ctx, sampleResult("r1")))
	require.NoError(t, repo.DeleteRun(ctx, "r1"))
	assert.Equal(t, ErrRunNotFound, repo.DeleteRun(ctx, "r1"))

	summaries, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
