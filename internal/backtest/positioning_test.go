package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"volrv/internal/config"
)

func sizerConfig(mode string) (config.BacktestConfig, config.RiskConfig) {
	bt := config.BacktestConfig{SizingMode: mode, SignalScale: 1, BaseSize: 2}
	risk := config.RiskConfig{PositionCap: 100, VolWindow: 20}
	return bt, risk
}

func TestRawTargetSizingModes(t *testing.T) {
	bt, risk := sizerConfig("sign")
	s := NewSizer(bt, risk)
	assert.Equal(t, 2.0, s.RawTarget(0.7))
	assert.Equal(t, -2.0, s.RawTarget(-0.1))
	assert.Zero(t, s.RawTarget(0))

	bt, risk = sizerConfig("proportional")
	s = NewSizer(bt, risk)
	assert.InDelta(t, 1.0, s.RawTarget(0.5), 1e-12)

	bt, risk = sizerConfig("tanh")
	s = NewSizer(bt, risk)
	assert.InDelta(t, 2*math.Tanh(0.5), s.RawTarget(0.5), 1e-12)

	bt.SignalScale = 2
	s = NewSizer(bt, risk)
	assert.InDelta(t, 2*math.Tanh(0.25), s.RawTarget(0.5), 1e-12,
		"signal scale divides before the squash")
}

func TestConstrainClampsToPositionCap(t *testing.T) {
	bt, risk := sizerConfig("proportional")
	risk.PositionCap = 3
	s := NewSizer(bt, risk)

	assert.InDelta(t, 3.0, s.Constrain(25, 100, 1000), 1e-12)
	assert.InDelta(t, -3.0, s.Constrain(-25, 100, 1000), 1e-12)
	assert.InDelta(t, 1.5, s.Constrain(1.5, 100, 1000), 1e-12)
}

func TestConstrainAppliesLeverageCap(t *testing.T) {
	bt, risk := sizerConfig("proportional")
	risk.LeverageCap = 2
	s := NewSizer(bt, risk)

	// capital 1000, price 100: at most 20 units of notional per unit of
	// leverage, so 2x caps size at 20.
	assert.InDelta(t, 20.0, s.Constrain(50, 100, 1000), 1e-12)
	assert.InDelta(t, -20.0, s.Constrain(-50, 100, 1000), 1e-12)
}

func TestRiskScaleDefaultsWhileWindowFills(t *testing.T) {
	bt, risk := sizerConfig("proportional")
	risk.RiskTargetingEnabled = true
	risk.TargetVolatility = 0.1
	risk.VolWindow = 5
	s := NewSizer(bt, risk)

	for i := 0; i < 4; i++ {
		s.ObserveReturn(0.03)
	}
	assert.InDelta(t, 7.0, s.Constrain(7, 100, 1e9), 1e-12,
		"scale stays 1 until the window is full")

	s.ObserveReturn(-0.03)
	scaled := s.Constrain(7, 100, 1e9)
	assert.Less(t, math.Abs(scaled), 7.0, "full window with high vol scales down")
}

func TestAnnualizedVol(t *testing.T) {
	assert.Zero(t, annualizedVol(nil))
	assert.Zero(t, annualizedVol([]float64{0.01, 0.01, 0.01}),
		"constant returns have zero deviation")

	vol := annualizedVol([]float64{0.02, -0.02, 0.02, -0.02})
	assert.InDelta(t, 0.02*math.Sqrt(252), vol, 1e-12)
}
