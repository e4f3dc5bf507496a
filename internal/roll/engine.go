package roll

import (
	"time"

	"volrv/internal/config"
	"volrv/internal/logger"
	"volrv/internal/market"
)

// Engine assigns an active contract per trading date for one underlying,
// using a same-day-only decision rule. It never consults data after the
// date being decided: rerunning on truncated history reproduces the same
// events up to the truncation point.
type Engine struct {
	cfg config.RollConfig
	log logger.Logger
}

// NewEngine creates a roll engine.
func NewEngine(cfg config.RollConfig, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Engine{cfg: cfg, log: log.WithField("component", "roll_engine")}
}

// Build walks the calendar in order and produces the continuous series and
// the append-only roll log for one chain.
func (e *Engine) Build(chain *market.Chain, cal *market.Calendar) *Result {
	result := &Result{
		Root:   chain.Root,
		Series: newContinuousSeries(),
	}

	var current *market.Contract

	for i := 0; i < cal.Len(); i++ {
		date := cal.At(i)

		// Re-anchor when there is no active contract yet, or the active
		// contract stopped publishing rows.
		if current == nil {
			current = e.firstListed(chain, date)
			if current == nil {
				continue
			}
			e.emitPoint(result, current, date, ReasonInitialize)
			continue
		}

		bar, listed := current.Bar(date)
		if !listed {
			next := e.nextListed(chain, current, date)
			if next == nil {
				// Nothing tradable this date for this underlying.
				continue
			}
			prevSymbol := current.Symbol
			fromPrice := lastCloseBefore(current, date)
			nextBar, _ := next.Bar(date)
			current = next
			result.Events = append(result.Events, Event{
				Date:         date,
				FromContract: prevSymbol,
				ToContract:   next.Symbol,
				Trigger:      TriggerUnavailable,
				DaysToExpiry: market.BusinessDaysBetween(date, next.Expiry),
				FromPrice:    fromPrice,
				ToPrice:      nextBar.Close,
			})
			e.logEvent(result.Events[len(result.Events)-1])
			e.emitPoint(result, current, date, string(TriggerUnavailable))
			continue
		}

		// A flagged row suppresses roll evaluation for this date only;
		// it never retroactively alters earlier decisions.
		if bar.Missing {
			e.emitPoint(result, current, date, ReasonDataMissing)
			continue
		}

		dte := market.BusinessDaysBetween(date, current.Expiry)
		reason := ReasonHold

		switch e.cfg.TriggerMode {
		case string(TriggerExpiryOffset):
			if dte <= e.cfg.ThresholdDays {
				if next := e.nextListed(chain, current, date); next != nil {
					current = e.roll(result, current, next, date, TriggerExpiryOffset, dte)
					reason = string(TriggerExpiryOffset)
				} else {
					result.Unavailable = append(result.Unavailable, UnavailableFlag{
						Date: date, Contract: current.Symbol, DaysToExpiry: dte,
					})
					e.log.Warn("roll threshold breached with no next contract",
						"date", date.Format("2006-01-02"),
						"contract", current.Symbol,
						"days_to_expiry", dte)
				}
			}
		case string(TriggerVolumeCrossover):
			if next := e.nextListed(chain, current, date); next != nil {
				nextBar, _ := next.Bar(date)
				if nextBar.Volume > bar.Volume {
					current = e.roll(result, current, next, date, TriggerVolumeCrossover, dte)
					reason = string(TriggerVolumeCrossover)
				}
			}
		}

		e.emitPoint(result, current, date, reason)
	}

	return result
}

// roll appends a roll event and returns the new active contract.
func (e *Engine) roll(result *Result, from, to *market.Contract, date time.Time, trigger Trigger, dte int) *market.Contract {
	fromBar, _ := from.Bar(date)
	toBar, _ := to.Bar(date)
	ev := Event{
		Date:         date,
		FromContract: from.Symbol,
		ToContract:   to.Symbol,
		Trigger:      trigger,
		DaysToExpiry: dte,
		FromPrice:    fromBar.Close,
		ToPrice:      toBar.Close,
	}
	result.Events = append(result.Events, ev)
	e.logEvent(ev)
	return to
}

func (e *Engine) emitPoint(result *Result, c *market.Contract, date time.Time, reason string) {
	bar, ok := c.Bar(date)
	if !ok {
		return
	}
	result.Series.append(SeriesPoint{
		Date:         date,
		Contract:     c.Symbol,
		Open:         bar.Open,
		High:         bar.High,
		Low:          bar.Low,
		Close:        bar.Close,
		Volume:       bar.Volume,
		DaysToExpiry: market.BusinessDaysBetween(date, c.Expiry),
		Reason:       reason,
		Missing:      bar.Missing,
	})
}

// firstListed returns the earliest-expiry contract with a row on date.
func (e *Engine) firstListed(chain *market.Chain, date time.Time) *market.Contract {
	for _, c := range chain.Contracts {
		if _, ok := c.Bar(date); ok {
			return c
		}
	}
	return nil
}

// nextListed returns the earliest contract expiring strictly after current
// that has a row on date. Expiry order is never violated: the chain only
// advances forward.
func (e *Engine) nextListed(chain *market.Chain, current *market.Contract, date time.Time) *market.Contract {
	for _, c := range chain.Contracts {
		if !c.Expiry.After(current.Expiry) {
			continue
		}
		if bar, ok := c.Bar(date); ok && !bar.Missing {
			return c
		}
	}
	return nil
}

func (e *Engine) logEvent(ev Event) {
	e.log.Info("roll event",
		"date", ev.Date.Format("2006-01-02"),
		"from", ev.FromContract,
		"to", ev.ToContract,
		"trigger", string(ev.Trigger),
		"days_to_expiry", ev.DaysToExpiry)
}

// lastCloseBefore finds the most recent close strictly before date; used to
// price the outgoing side of a forced substitution.
func lastCloseBefore(c *market.Contract, date time.Time) float64 {
	bars := c.Bars()
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Date.Before(date) {
			return bars[i].Close
		}
	}
	return 0
}
