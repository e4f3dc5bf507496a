package config

import (
	"volrv/internal/errors"
)

// Validate checks the recognized option surface. Violations are fatal and
// must abort before any trading date is processed.
func (c *Config) Validate() error {
	if err := c.Roll.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Costs.validate(); err != nil {
		return err
	}
	if err := c.Attribution.validate(); err != nil {
		return err
	}
	return nil
}

func (r *RollConfig) validate() error {
	switch r.TriggerMode {
	case "expiry_offset", "volume_crossover":
	default:
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"roll.trigger_mode must be expiry_offset or volume_crossover, got %q", r.TriggerMode).
			WithRule("roll_trigger_mode")
	}
	if r.ThresholdDays < 1 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"roll.threshold_days must be >= 1, got %d", r.ThresholdDays).
			WithRule("roll_threshold_days")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if b.Underlying == "" {
		return errors.New(errors.ErrCodeConfigMissing, "backtest.underlying is required", nil).
			WithRule("underlying")
	}
	if b.InitialCapital <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"backtest.initial_capital must be > 0, got %g", b.InitialCapital).
			WithRule("initial_capital")
	}
	if b.SignalColumn == "" {
		return errors.New(errors.ErrCodeConfigMissing, "backtest.signal_column is required", nil).
			WithRule("signal_column")
	}
	if b.ExecutionLag < 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"backtest.execution_lag must be >= 0, got %d", b.ExecutionLag).
			WithRule("execution_lag")
	}
	if b.EnforceNextBar && b.ExecutionLag < 1 {
		return errors.New(errors.ErrCodeConfigInvalid,
			"backtest.execution_lag must be >= 1 when enforce_next_bar is set", nil).
			WithRule("enforce_next_bar")
	}
	switch b.SizingMode {
	case "proportional", "sign", "tanh":
	default:
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"backtest.sizing_mode must be proportional, sign or tanh, got %q", b.SizingMode).
			WithRule("sizing_mode")
	}
	if b.SignalScale <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"backtest.signal_scale must be > 0, got %g", b.SignalScale).
			WithRule("signal_scale")
	}
	if b.BaseSize <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"backtest.base_size must be > 0, got %g", b.BaseSize).
			WithRule("base_size")
	}
	if b.MaxGapFraction < 0 || b.MaxGapFraction > 1 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"backtest.max_gap_fraction must be in [0, 1], got %g", b.MaxGapFraction).
			WithRule("max_gap_fraction")
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.PositionCap <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"risk.position_cap must be > 0, got %g", r.PositionCap).
			WithRule("position_cap")
	}
	if r.LeverageCap <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"risk.leverage_cap must be > 0, got %g", r.LeverageCap).
			WithRule("leverage_cap")
	}
	if r.RiskTargetingEnabled {
		if r.TargetVolatility <= 0 {
			return errors.Newf(errors.ErrCodeConfigInvalid,
				"risk.target_volatility must be > 0 when risk targeting is enabled, got %g", r.TargetVolatility).
				WithRule("target_volatility")
		}
		if r.VolWindow < 2 {
			return errors.Newf(errors.ErrCodeConfigInvalid,
				"risk.vol_window must be >= 2, got %d", r.VolWindow).
				WithRule("vol_window")
		}
	}
	return nil
}

func (c *CostConfig) validate() error {
	if c.CostBpsRebalance < 0 || c.CostBpsRoll < 0 || c.SlippageBps < 0 {
		return errors.New(errors.ErrCodeConfigInvalid,
			"costs bps rates must be >= 0", nil).WithRule("cost_bps")
	}
	return nil
}

func (a *AttributionConfig) validate() error {
	if a.Tolerance <= 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"attribution.tolerance must be > 0, got %g", a.Tolerance).
			WithRule("attribution_tolerance")
	}
	if a.CarryProxyDailyBps < 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"attribution.carry_proxy_daily_bps must be >= 0, got %g", a.CarryProxyDailyBps).
			WithRule("carry_proxy_daily_bps")
	}
	return nil
}
