package market

import (
	"sort"
	"time"
)

// Calendar is the ordered, de-duplicated trading-date sequence supplied by
// the calendar collaborator. All day counting inside the roll and execution
// engines goes through it.
type Calendar struct {
	dates []time.Time
	index map[time.Time]int
}

// NewCalendar builds a calendar from dates, sorting and de-duplicating.
func NewCalendar(dates []time.Time) *Calendar {
	seen := make(map[time.Time]bool, len(dates))
	unique := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if !seen[d] {
			seen[d] = true
			unique = append(unique, d)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Before(unique[j]) })

	index := make(map[time.Time]int, len(unique))
	for i, d := range unique {
		index[d] = i
	}
	return &Calendar{dates: unique, index: index}
}

// Len returns the number of trading dates.
func (c *Calendar) Len() int {
	return len(c.dates)
}

// At returns the i-th trading date.
func (c *Calendar) At(i int) time.Time {
	return c.dates[i]
}

// Dates returns the ordered date sequence.
func (c *Calendar) Dates() []time.Time {
	return c.dates
}

// Index returns the position of a date in the calendar.
func (c *Calendar) Index(date time.Time) (int, bool) {
	i, ok := c.index[date]
	return i, ok
}

// Contains reports whether a date is a trading date.
func (c *Calendar) Contains(date time.Time) bool {
	_, ok := c.index[date]
	return ok
}

// DaysUntil counts trading dates in [from, to). Dates outside the calendar
// are located by binary search so expiry dates need not be trading dates.
func (c *Calendar) DaysUntil(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	lo := sort.Search(len(c.dates), func(i int) bool { return !c.dates[i].Before(from) })
	hi := sort.Search(len(c.dates), func(i int) bool { return !c.dates[i].Before(to) })
	return hi - lo
}

// BusinessDaysBetween counts weekdays in [from, to). Expiry distance uses
// this count rather than the loaded calendar so that dates near the end of
// the data window are not mistaken for imminent expiries.
func BusinessDaysBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	n := 0
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

// Shift returns the trading date lag steps after the given date, or false
// when the result falls past the end of the calendar.
func (c *Calendar) Shift(date time.Time, lag int) (time.Time, bool) {
	i, ok := c.index[date]
	if !ok {
		return time.Time{}, false
	}
	j := i + lag
	if j < 0 || j >= len(c.dates) {
		return time.Time{}, false
	}
	return c.dates[j], true
}
