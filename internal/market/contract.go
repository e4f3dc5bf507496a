package market

import (
	"sort"
	"time"
)

// Bar is one contract's daily price row. Missing marks rows the data QA
// layer flagged as unreliable; the roll and execution engines treat those
// dates as unavailable rather than filling them.
type Bar struct {
	Date    time.Time
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Volume  float64
	Missing bool
}

// Contract identifies one dated futures instrument and its price history.
// Immutable once loaded; consumers hold references, never copies.
type Contract struct {
	Symbol string
	Root   string
	Expiry time.Time

	bars  []Bar
	index map[time.Time]int
}

// NewContract builds a contract from bars, sorting them by date.
func NewContract(symbol, root string, expiry time.Time, bars []Bar) *Contract {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	index := make(map[time.Time]int, len(sorted))
	for i, b := range sorted {
		index[b.Date] = i
	}
	return &Contract{
		Symbol: symbol,
		Root:   root,
		Expiry: expiry,
		bars:   sorted,
		index:  index,
	}
}

// Bar returns the bar for a date, if one exists.
func (c *Contract) Bar(date time.Time) (Bar, bool) {
	i, ok := c.index[date]
	if !ok {
		return Bar{}, false
	}
	return c.bars[i], true
}

// Bars returns the full ordered history.
func (c *Contract) Bars() []Bar {
	return c.bars
}

// FirstDate returns the earliest bar date, or zero when empty.
func (c *Contract) FirstDate() time.Time {
	if len(c.bars) == 0 {
		return time.Time{}
	}
	return c.bars[0].Date
}

// Chain is one underlying's contracts ordered by expiry.
type Chain struct {
	Root      string
	Contracts []*Contract
}

// NewChain sorts contracts by expiry, breaking ties by symbol so the
// ordering is deterministic.
func NewChain(root string, contracts []*Contract) *Chain {
	sorted := make([]*Contract, len(contracts))
	copy(sorted, contracts)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Expiry.Equal(sorted[j].Expiry) {
			return sorted[i].Expiry.Before(sorted[j].Expiry)
		}
		return sorted[i].Symbol < sorted[j].Symbol
	})
	return &Chain{Root: root, Contracts: sorted}
}

// Next returns the contract with the earliest expiry strictly after the
// given contract's expiry, or nil when the chain is exhausted.
func (ch *Chain) Next(current *Contract) *Contract {
	for _, c := range ch.Contracts {
		if c.Expiry.After(current.Expiry) {
			return c
		}
	}
	return nil
}

// BySymbol looks up a contract in the chain.
func (ch *Chain) BySymbol(symbol string) *Contract {
	for _, c := range ch.Contracts {
		if c.Symbol == symbol {
			return c
		}
	}
	return nil
}

// Date normalizes a timestamp to a UTC trading date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD trading date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
