package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaxDrawdown(t *testing.T) {
	day := func(i int, equity float64) PnLRecord {
		return PnLRecord{Date: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC), Equity: equity}
	}

	assert.Zero(t, maxDrawdown(nil))
	assert.Zero(t, maxDrawdown([]PnLRecord{day(0, 100), day(1, 110), day(2, 120)}),
		"monotone equity has no drawdown")

	dd := maxDrawdown([]PnLRecord{
		day(0, 100), day(1, 120), day(2, 90), day(3, 110), day(4, 80),
	})
	assert.InDelta(t, 40.0, dd, 1e-12, "peak 120 to trough 80")
}

func TestAnnualizedSharpe(t *testing.T) {
	assert.Zero(t, annualizedSharpe(nil))
	assert.Zero(t, annualizedSharpe([]float64{0.01}))
	assert.Zero(t, annualizedSharpe([]float64{0.01, 0.01, 0.01}),
		"zero variance yields zero, not infinity")

	returns := []float64{0.01, -0.005, 0.02, 0.0, 0.015}
	sharpe := annualizedSharpe(returns)
	assert.Greater(t, sharpe, 0.0)
	assert.False(t, math.IsNaN(sharpe))
	assert.False(t, math.IsInf(sharpe, 0))
}

func TestHitRateExcludesFlatAndSkippedDays(t *testing.T) {
	cfg := testConfig()
	result := &Result{
		RunID:      "r1",
		Underlying: "VX",
		PnL: []PnLRecord{
			{PositionPrev: 0, NetPnL: 0, Flag: FlagOK},                // flat, excluded
			{PositionPrev: 1, NetPnL: 5, Flag: FlagOK},                // win
			{PositionPrev: 1, NetPnL: -2, Flag: FlagOK},               // loss
			{PositionPrev: 1, NetPnL: 0, Flag: FlagSkippedNoData},     // skipped, excluded
			{PositionPrev: -1, NetPnL: 3, Flag: FlagOK},               // win
		},
	}
	s := BuildSummary(cfg, result, 0, 1)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 1e-12)
	assert.Equal(t, 1, s.SkippedNoDataCount)
}

func TestSummaryTurnoverNormalizedByCapital(t *testing.T) {
	cfg := testConfig() // initial capital 1000
	result := &Result{
		RunID: "r2",
		Trades: []Trade{
			{Notional: 300, Cost: 1, Type: TradeRebalance},
			{Notional: 200, Cost: 2, Type: TradeRoll},
			{Notional: 500, Cost: 3, Type: TradeRoll},
		},
	}
	s := BuildSummary(cfg, result, 0, 0)
	assert.InDelta(t, 1.0, s.Turnover, 1e-12)
	assert.InDelta(t, 6.0, s.TotalCost, 1e-12)
	assert.Equal(t, 1, s.RebalanceTradeCount)
	assert.Equal(t, 2, s.RollTradeCount)
}
