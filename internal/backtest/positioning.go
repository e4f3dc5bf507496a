package backtest

import (
	"math"

	"volrv/internal/config"
)

// Sizer maps a lagged signal value to a target position size and applies
// the configured constraints in fixed order: risk-targeting scale, then the
// hard per-underlying cap, then the portfolio leverage cap.
type Sizer struct {
	btCfg   config.BacktestConfig
	riskCfg config.RiskConfig

	returns []float64 // trailing stitched daily returns, oldest first
}

// NewSizer creates a sizer.
func NewSizer(btCfg config.BacktestConfig, riskCfg config.RiskConfig) *Sizer {
	return &Sizer{btCfg: btCfg, riskCfg: riskCfg}
}

// RawTarget maps signal magnitude to an unconstrained target size.
func (s *Sizer) RawTarget(signalValue float64) float64 {
	scaled := signalValue / s.btCfg.SignalScale
	switch s.btCfg.SizingMode {
	case "sign":
		if scaled > 0 {
			return s.btCfg.BaseSize
		}
		if scaled < 0 {
			return -s.btCfg.BaseSize
		}
		return 0
	case "tanh":
		return s.btCfg.BaseSize * math.Tanh(scaled)
	default: // proportional
		return s.btCfg.BaseSize * scaled
	}
}

// Constrain applies risk targeting and the caps to a raw target. price and
// capital feed the leverage constraint; the hard position cap is checked by
// the engine after this returns.
func (s *Sizer) Constrain(rawTarget, price, capital float64) float64 {
	target := rawTarget

	if s.riskCfg.RiskTargetingEnabled {
		target *= s.riskScale()
	}

	target = clamp(target, s.riskCfg.PositionCap)

	if s.riskCfg.LeverageCap > 0 && price > 0 && capital > 0 {
		maxSize := s.riskCfg.LeverageCap * capital / price
		target = clamp(target, maxSize)
	}

	return target
}

// ObserveReturn records a realized daily return after the date's sizing
// decision, so the volatility estimate at date t only sees data through t-1.
func (s *Sizer) ObserveReturn(ret float64) {
	s.returns = append(s.returns, ret)
	if len(s.returns) > s.riskCfg.VolWindow {
		s.returns = s.returns[len(s.returns)-s.riskCfg.VolWindow:]
	}
}

// riskScale is target_vol over trailing realized vol, clamped by the
// leverage cap, defaulting to 1 while the window is still filling.
func (s *Sizer) riskScale() float64 {
	if len(s.returns) < s.riskCfg.VolWindow {
		return 1.0
	}
	vol := annualizedVol(s.returns)
	if vol <= 0 {
		return 1.0
	}
	scale := s.riskCfg.TargetVolatility / vol
	if s.riskCfg.LeverageCap > 0 && scale > s.riskCfg.LeverageCap {
		scale = s.riskCfg.LeverageCap
	}
	return scale
}

// annualizedVol is the population standard deviation of daily returns,
// annualized with the 252-day convention.
func annualizedVol(returns []float64) float64 {
	n := float64(len(returns))
	if n == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= n

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= n

	return math.Sqrt(variance) * math.Sqrt(252)
}

func clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
