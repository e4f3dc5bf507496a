package backtest

import (
	"math"
	"time"

	"volrv/internal/config"
)

// BuildSummary condenses a run's record streams into the machine-readable
// digest persisted alongside them.
func BuildSummary(cfg *config.Config, result *Result, maxAttrErr float64, skippedDates int) Summary {
	s := Summary{
		RunID:                  result.RunID,
		Underlying:             result.Underlying,
		GeneratedAt:            time.Now().UTC(),
		InitialCapital:         cfg.Backtest.InitialCapital,
		RollEventCount:         len(result.RollEvents),
		RollUnavailableCount:   len(result.Unavailable),
		SkippedNoDataCount:     skippedDates,
		AttributionMaxAbsError: maxAttrErr,
		Params:                 paramsSnapshot(cfg),
	}

	if len(result.PnL) > 0 {
		s.StartDate = result.PnL[0].Date
		s.EndDate = result.PnL[len(result.PnL)-1].Date
		s.TradingDays = len(result.PnL)
	}

	for _, t := range result.Trades {
		s.Turnover += t.Notional
		s.TotalCost += t.Cost
		if t.Type == TradeRoll {
			s.RollTradeCount++
		} else {
			s.RebalanceTradeCount++
		}
	}
	if cfg.Backtest.InitialCapital > 0 {
		s.Turnover /= cfg.Backtest.InitialCapital
	}

	var (
		netReturns []float64
		wins       int
		active     int
	)
	for _, rec := range result.PnL {
		s.TotalNetPnL += rec.NetPnL
		s.TotalGrossPnL += rec.GrossPnL
		if rec.Flag == FlagSkippedNoData {
			continue
		}
		if cfg.Backtest.InitialCapital > 0 {
			netReturns = append(netReturns, rec.NetPnL/cfg.Backtest.InitialCapital)
		}
		if rec.PositionPrev != 0 {
			active++
			if rec.NetPnL > 0 {
				wins++
			}
		}
	}
	for _, rec := range result.Attribution {
		if rec.Suspect {
			s.SuspectAttributionDays++
		}
	}

	s.FinalEquity = cfg.Backtest.InitialCapital + s.TotalNetPnL
	if active > 0 {
		s.HitRate = float64(wins) / float64(active)
	}
	s.Sharpe = annualizedSharpe(netReturns)
	s.MaxDrawdown = maxDrawdown(result.PnL)

	return s
}

// annualizedSharpe uses the 252-day convention with zero risk-free rate.
func annualizedSharpe(returns []float64) float64 {
	n := float64(len(returns))
	if n < 2 {
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
	variance /= n - 1
	if variance <= 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(252)
}

// maxDrawdown is the largest peak-to-trough equity decline, in currency.
func maxDrawdown(pnl []PnLRecord) float64 {
	var peak, maxDD float64
	for i, rec := range pnl {
		if i == 0 || rec.Equity > peak {
			peak = rec.Equity
		}
		if dd := peak - rec.Equity; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// paramsSnapshot records the knobs that shaped the run so results stay
// reproducible without the original config file.
func paramsSnapshot(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"underlying":         cfg.Backtest.Underlying,
		"initial_capital":    cfg.Backtest.InitialCapital,
		"signal_column":      cfg.Backtest.SignalColumn,
		"execution_lag":      cfg.Backtest.ExecutionLag,
		"sizing_mode":        cfg.Backtest.SizingMode,
		"signal_scale":       cfg.Backtest.SignalScale,
		"base_size":          cfg.Backtest.BaseSize,
		"roll_trigger_mode":  cfg.Roll.TriggerMode,
		"roll_threshold":     cfg.Roll.ThresholdDays,
		"position_cap":       cfg.Risk.PositionCap,
		"leverage_cap":       cfg.Risk.LeverageCap,
		"risk_targeting":     cfg.Risk.RiskTargetingEnabled,
		"target_volatility":  cfg.Risk.TargetVolatility,
		"vol_window":         cfg.Risk.VolWindow,
		"cost_bps_rebalance": cfg.Costs.CostBpsRebalance,
		"cost_bps_roll":      cfg.Costs.CostBpsRoll,
		"slippage_bps":       cfg.Costs.SlippageBps,
	}
}
