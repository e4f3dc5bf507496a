package roll

import (
	"fmt"
	"time"
)

// Trigger names the rule that caused a contract substitution.
type Trigger string

const (
	TriggerExpiryOffset    Trigger = "expiry_offset"
	TriggerVolumeCrossover Trigger = "volume_crossover"
	// TriggerUnavailable marks a forced switch when the active contract
	// stopped trading before its scheduled roll.
	TriggerUnavailable Trigger = "contract_unavailable"
)

// Point selection reasons recorded on every series point.
const (
	ReasonInitialize  = "initialize_active_contract"
	ReasonHold        = "hold_active_contract"
	ReasonDataMissing = "data_missing"
)

// SeriesPoint is one date of the continuous series: the active contract and
// its price fields that date. Reason records why this contract was selected,
// so every assignment is auditable.
type SeriesPoint struct {
	Date         time.Time
	Contract     string
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	DaysToExpiry int
	Reason       string
	Missing      bool
}

// ContinuousSeries maps each trading date to exactly one active contract.
type ContinuousSeries struct {
	Points []SeriesPoint
	index  map[time.Time]int
}

func newContinuousSeries() *ContinuousSeries {
	return &ContinuousSeries{index: make(map[time.Time]int)}
}

func (s *ContinuousSeries) append(p SeriesPoint) {
	s.index[p.Date] = len(s.Points)
	s.Points = append(s.Points, p)
}

// At returns the series point for a date.
func (s *ContinuousSeries) At(date time.Time) (SeriesPoint, bool) {
	i, ok := s.index[date]
	if !ok {
		return SeriesPoint{}, false
	}
	return s.Points[i], true
}

// Len returns the number of dates covered.
func (s *ContinuousSeries) Len() int {
	return len(s.Points)
}

// ActiveSequence returns the de-duplicated ordered list of active contracts.
func (s *ContinuousSeries) ActiveSequence() []string {
	var seq []string
	for _, p := range s.Points {
		if len(seq) == 0 || seq[len(seq)-1] != p.Contract {
			seq = append(seq, p.Contract)
		}
	}
	return seq
}

// Event is one substitution in the roll log. Append-only; derived solely
// from information available as of its date.
type Event struct {
	Date         time.Time `json:"date"`
	FromContract string    `json:"from_contract"`
	ToContract   string    `json:"to_contract"`
	Trigger      Trigger   `json:"trigger_reason"`
	DaysToExpiry int       `json:"days_to_expiry_at_trigger"`
	FromPrice    float64   `json:"from_price"`
	ToPrice      float64   `json:"to_price"`
}

// String renders the event for the human-readable roll log.
func (e Event) String() string {
	return fmt.Sprintf("%s %s -> %s (%s, dte=%d, from=%.4f, to=%.4f)",
		e.Date.Format("2006-01-02"), e.FromContract, e.ToContract,
		e.Trigger, e.DaysToExpiry, e.FromPrice, e.ToPrice)
}

// UnavailableFlag records a date where the roll threshold was breached but
// no next contract existed; the engine holds rather than failing silently.
type UnavailableFlag struct {
	Date         time.Time `json:"date"`
	Contract     string    `json:"contract"`
	DaysToExpiry int       `json:"days_to_expiry"`
}

// Result is the roll engine output: a deterministic pure function of
// (contract history, calendar, configuration).
type Result struct {
	Root        string
	Series      *ContinuousSeries
	Events      []Event
	Unavailable []UnavailableFlag
}

// IsRollDate reports whether a roll executed on the given date, returning
// the event if so.
func (r *Result) IsRollDate(date time.Time) (Event, bool) {
	for _, e := range r.Events {
		if e.Date.Equal(date) {
			return e, true
		}
	}
	return Event{}, false
}
