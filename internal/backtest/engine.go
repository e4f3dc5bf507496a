package backtest

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"volrv/internal/config"
	"volrv/internal/errors"
	"volrv/internal/logger"
	"volrv/internal/roll"
	"volrv/internal/signal"
)

// Engine turns a lagged signal and a continuous series into positions,
// trades, PnL and attribution records in a single deterministic forward
// pass. State at date t is a pure function of state at t-1 plus inputs
// dated at or before t; nothing is revised retroactively.
type Engine struct {
	cfg   *config.Config
	costs *CostModel
	attr  *Attributor
	log   logger.Logger
}

// NewEngine creates a backtest engine.
func NewEngine(cfg *config.Config, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Engine{
		cfg:   cfg,
		costs: NewCostModel(cfg.Costs),
		attr:  NewAttributor(cfg.Attribution, log),
		log:   log.WithField("component", "backtest_engine"),
	}
}

type execEntry struct {
	signalDate time.Time
	value      float64
}

// Run executes the backtest over one underlying's roll result.
func (e *Engine) Run(ctx context.Context, rollResult *roll.Result, signals *signal.Frame) (*Result, error) {
	btCfg := e.cfg.Backtest

	if err := signals.AssertLagged(btCfg.SignalColumn); err != nil {
		return nil, err
	}

	execMap, err := e.buildExecutionMap(rollResult.Series, signals)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:       uuid.New().String(),
		Underlying:  btCfg.Underlying,
		RollEvents:  rollResult.Events,
		Unavailable: rollResult.Unavailable,
	}

	sizer := NewSizer(btCfg, e.cfg.Risk)
	capital := btCfg.InitialCapital

	var (
		position      float64
		rawTarget     float64
		prevPrice     float64
		lastSignal    execEntry
		cumPnL        float64
		skippedDates  int
	)

	for i := range rollResult.Series.Points {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "run cancelled")
		}
		point := rollResult.Series.Points[i]
		date := point.Date

		// A date without usable data holds the previous position, emits no
		// trades, and is flagged; a price is never fabricated.
		if point.Missing || point.Close <= 0 {
			skippedDates++
			result.Positions = append(result.Positions, Position{
				Date: date, Underlying: btCfg.Underlying, Contract: point.Contract,
				Size: position, TargetRaw: rawTarget, Flag: FlagSkippedNoData,
			})
			result.PnL = append(result.PnL, PnLRecord{
				Date: date, Underlying: btCfg.Underlying, PositionPrev: position,
				CumulativePnL: cumPnL, Equity: capital + cumPnL, Flag: FlagSkippedNoData,
			})
			result.Attribution = append(result.Attribution, AttributionRecord{
				Date: date, Underlying: btCfg.Underlying, CarryBasis: CarryProxyEstimate,
			})
			e.log.Warn("date skipped, no usable data",
				"date", date.Format("2006-01-02"), "contract", point.Contract)
			continue
		}

		posPrev := position

		// Stitched continuous return; on roll dates this includes the
		// contract jump, which attribution separates back out.
		ret := 0.0
		if prevPrice > 0 {
			ret = point.Close/prevPrice - 1
		}

		// Sizing sees the signal mapped to this execution date (if any),
		// forward-carrying the previous target otherwise.
		if entry, ok := execMap[date]; ok {
			rawTarget = sizer.RawTarget(entry.value)
			lastSignal = entry
		}
		target := sizer.Constrain(rawTarget, point.Close, capital)

		if math.Abs(target) > e.cfg.Risk.PositionCap*(1+1e-9) {
			return nil, errors.Newf(errors.ErrCodeCapViolation,
				"realized position %.6f exceeds cap %.6f", target, e.cfg.Risk.PositionCap).
				WithDate(date).WithSymbol(point.Contract).WithRule("position_cap")
		}

		// Roll trades fire whenever this date substituted the held contract,
		// independently of any signal-driven rebalance.
		var dayCosts float64
		var rollEvent *roll.Event
		if ev, ok := rollResult.IsRollDate(date); ok {
			rollEvent = &ev
			if posPrev != 0 {
				closePrice, closeNotional, closeCost := e.costs.Fill(ev.FromPrice, -posPrev, TradeRoll)
				openPrice, openNotional, openCost := e.costs.Fill(ev.ToPrice, posPrev, TradeRoll)
				result.Trades = append(result.Trades,
					Trade{
						Date: date, Underlying: btCfg.Underlying, Contract: ev.FromContract,
						QuantityDelta: -posPrev, Price: closePrice, Type: TradeRoll,
						Cost: closeCost, Notional: closeNotional, SignalDate: lastSignal.signalDate,
					},
					Trade{
						Date: date, Underlying: btCfg.Underlying, Contract: ev.ToContract,
						QuantityDelta: posPrev, Price: openPrice, Type: TradeRoll,
						Cost: openCost, Notional: openNotional, SignalDate: lastSignal.signalDate,
					},
				)
				dayCosts += closeCost + openCost
			}
		}

		if delta := target - posPrev; delta != 0 {
			price, notional, cost := e.costs.Fill(point.Close, delta, TradeRebalance)
			result.Trades = append(result.Trades, Trade{
				Date: date, Underlying: btCfg.Underlying, Contract: point.Contract,
				QuantityDelta: delta, Price: price, Type: TradeRebalance,
				Cost: cost, Notional: notional, SignalDate: lastSignal.signalDate,
			})
			dayCosts += cost
		}
		position = target

		gross := posPrev * (point.Close - prevPrice)
		if prevPrice == 0 {
			gross = 0
		}
		net := gross - dayCosts
		cumPnL += net

		result.Positions = append(result.Positions, Position{
			Date: date, Underlying: btCfg.Underlying, Contract: point.Contract,
			Size: position, TargetRaw: rawTarget,
			SignalDate: lastSignal.signalDate, SignalValue: lastSignal.value,
			IsRollDate: rollEvent != nil, Flag: FlagOK,
		})
		result.PnL = append(result.PnL, PnLRecord{
			Date: date, Underlying: btCfg.Underlying, PositionPrev: posPrev,
			GrossPnL: gross, CostPnL: -dayCosts, NetPnL: net,
			CumulativePnL: cumPnL, Equity: capital + cumPnL, Flag: FlagOK,
		})

		attrRec := e.attr.Attribute(dayPnL{
			date:       date,
			underlying: btCfg.Underlying,
			posPrev:    posPrev,
			prevPrice:  prevPrice,
			gross:      gross,
			costs:      dayCosts,
			rollEvent:  rollEvent,
			carryProxy: e.carryProxy(signals, date, posPrev, prevPrice),
		})
		result.Attribution = append(result.Attribution, attrRec)
		if attrRec.Suspect {
			result.PnL[len(result.PnL)-1].Flag = FlagSuspect
		}

		// Volatility estimates for the next date may now see today's return.
		sizer.ObserveReturn(ret)
		prevPrice = point.Close
	}

	maxAttrErr := e.attr.VerifyCumulative(result.Attribution)
	result.Summary = BuildSummary(e.cfg, result, maxAttrErr, skippedDates)

	if n := rollResult.Series.Len(); n > 0 {
		frac := float64(skippedDates) / float64(n)
		if frac > btCfg.MaxGapFraction {
			return result, errors.Newf(errors.ErrCodeDataGap,
				"%d of %d dates skipped for missing data (%.1f%% > %.1f%% allowed)",
				skippedDates, n, frac*100, btCfg.MaxGapFraction*100).
				WithSymbol(btCfg.Underlying).WithRule("max_gap_fraction")
		}
	}

	return result, nil
}

// buildExecutionMap maps each signal date to its execution date on the
// series calendar, shifted by execution_lag. The lookahead guard refuses to
// execute at or before the timestamp the signal references.
func (e *Engine) buildExecutionMap(series *roll.ContinuousSeries, signals *signal.Frame) (map[time.Time]execEntry, error) {
	btCfg := e.cfg.Backtest

	dateIndex := make(map[time.Time]int, series.Len())
	for i, p := range series.Points {
		dateIndex[p.Date] = i
	}

	execMap := make(map[time.Time]execEntry)
	for _, signalDate := range signals.Dates() {
		value, ok := signals.Value(btCfg.SignalColumn, signalDate)
		if !ok {
			continue
		}
		idx, ok := dateIndex[signalDate]
		if !ok {
			continue
		}
		execIdx := idx + btCfg.ExecutionLag
		if execIdx >= series.Len() {
			continue
		}
		execDate := series.Points[execIdx].Date

		if btCfg.ExecutionLag > 0 && !execDate.After(signalDate) {
			return nil, errors.Newf(errors.ErrCodeLookahead,
				"execution date %s not after signal date %s with lag %d",
				execDate.Format("2006-01-02"), signalDate.Format("2006-01-02"), btCfg.ExecutionLag).
				WithDate(execDate).WithRule("execution_lag")
		}
		if btCfg.EnforceNextBar && execDate.Equal(signalDate) {
			return nil, errors.New(errors.ErrCodeLookahead,
				"refusing to execute at the signal's own timestamp", nil).
				WithDate(execDate).WithRule("enforce_next_bar")
		}

		execMap[execDate] = execEntry{signalDate: signalDate, value: value}
	}
	return execMap, nil
}

// carryProxy estimates the carry/theta component for non-roll dates. When a
// carry signal column is supplied the estimate follows it; otherwise an
// optional flat daily bps rate on held notional applies.
func (e *Engine) carryProxy(signals *signal.Frame, date time.Time, posPrev, prevPrice float64) float64 {
	if col := e.cfg.Backtest.CarrySignalColumn; col != "" && signals.HasColumn(col) {
		if v, ok := signals.Value(col, date); ok {
			return v * e.cfg.Backtest.InitialCapital / 252.0
		}
	}
	if bps := e.cfg.Attribution.CarryProxyDailyBps; bps > 0 {
		return bps / 10000.0 * math.Abs(posPrev) * prevPrice
	}
	return 0
}
