package market

import (
	"strings"
	"testing"
	"time"
)

func TestCalendarDaysUntil(t *testing.T) {
	// Mon 2024-01-01 through Fri 2024-01-12, weekdays only.
	var dates []time.Time
	for d := Date(2024, 1, 1); !d.After(Date(2024, 1, 12)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
	}
	cal := NewCalendar(dates)

	if cal.Len() != 10 {
		t.Fatalf("expected 10 trading dates, got %d", cal.Len())
	}
	if got := cal.DaysUntil(Date(2024, 1, 1), Date(2024, 1, 8)); got != 5 {
		t.Errorf("DaysUntil(Jan1, Jan8) = %d, want 5", got)
	}
	// Expiry on a weekend still counts correctly.
	if got := cal.DaysUntil(Date(2024, 1, 5), Date(2024, 1, 6)); got != 1 {
		t.Errorf("DaysUntil(Fri, Sat) = %d, want 1", got)
	}
	if got := cal.DaysUntil(Date(2024, 1, 8), Date(2024, 1, 8)); got != 0 {
		t.Errorf("DaysUntil(same, same) = %d, want 0", got)
	}
}

func TestCalendarShift(t *testing.T) {
	cal := NewCalendar([]time.Time{
		Date(2024, 1, 2), Date(2024, 1, 3), Date(2024, 1, 4),
	})

	next, ok := cal.Shift(Date(2024, 1, 2), 1)
	if !ok || !next.Equal(Date(2024, 1, 3)) {
		t.Errorf("Shift(+1) = %v, %v; want 2024-01-03, true", next, ok)
	}
	if _, ok := cal.Shift(Date(2024, 1, 4), 1); ok {
		t.Error("Shift past calendar end should report false")
	}
	if _, ok := cal.Shift(Date(2024, 1, 5), 0); ok {
		t.Error("Shift from non-trading date should report false")
	}
}

func TestCalendarDeduplicates(t *testing.T) {
	cal := NewCalendar([]time.Time{
		Date(2024, 1, 3), Date(2024, 1, 2), Date(2024, 1, 3),
	})
	if cal.Len() != 2 {
		t.Fatalf("expected 2 unique dates, got %d", cal.Len())
	}
	if !cal.At(0).Equal(Date(2024, 1, 2)) {
		t.Errorf("calendar not sorted: first date %v", cal.At(0))
	}
}

func TestChainOrderingAndNext(t *testing.T) {
	front := NewContract("VXF4", "VX", Date(2024, 1, 17), nil)
	second := NewContract("VXG4", "VX", Date(2024, 2, 14), nil)
	third := NewContract("VXH4", "VX", Date(2024, 3, 20), nil)

	// Deliberately unordered input.
	chain := NewChain("VX", []*Contract{third, front, second})

	if chain.Contracts[0].Symbol != "VXF4" || chain.Contracts[2].Symbol != "VXH4" {
		t.Fatalf("chain not expiry-ordered: %v", []string{
			chain.Contracts[0].Symbol, chain.Contracts[1].Symbol, chain.Contracts[2].Symbol,
		})
	}
	if next := chain.Next(front); next == nil || next.Symbol != "VXG4" {
		t.Errorf("Next(front) should be VXG4")
	}
	if next := chain.Next(third); next != nil {
		t.Errorf("Next(last) should be nil, got %s", next.Symbol)
	}
}

func TestReadContracts(t *testing.T) {
	input := strings.Join([]string{
		"date,symbol,root,expiry,open,high,low,close,volume,is_missing",
		"2024-01-02,VXF4,VX,2024-01-17,14.1,14.5,13.9,14.2,1200,false",
		"2024-01-03,VXF4,VX,2024-01-17,14.2,14.4,14.0,14.1,1100,false",
		"2024-01-02,VXG4,VX,2024-02-14,15.0,15.2,14.8,15.1,300,false",
		"2024-01-03,VXG4,VX,2024-02-14,15.1,15.3,14.9,15.0,350,true",
	}, "\n")

	hist, err := ReadContracts(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadContracts failed: %v", err)
	}

	chain, ok := hist.Chain("VX")
	if !ok {
		t.Fatal("expected VX chain")
	}
	if len(chain.Contracts) != 2 {
		t.Fatalf("expected 2 contracts, got %d", len(chain.Contracts))
	}
	if chain.Contracts[0].Symbol != "VXF4" {
		t.Errorf("front contract should be VXF4, got %s", chain.Contracts[0].Symbol)
	}

	bar, ok := chain.Contracts[1].Bar(Date(2024, 1, 3))
	if !ok {
		t.Fatal("expected VXG4 bar on 2024-01-03")
	}
	if !bar.Missing {
		t.Error("is_missing flag not carried through")
	}
	if bar.Close != 15.0 {
		t.Errorf("VXG4 close = %g, want 15.0", bar.Close)
	}

	if hist.Calendar.Len() != 2 {
		t.Errorf("calendar should have 2 dates, got %d", hist.Calendar.Len())
	}
}

func TestReadContractsMissingColumn(t *testing.T) {
	input := "date,symbol,root,open\n2024-01-02,VXF4,VX,14.1\n"
	if _, err := ReadContracts(strings.NewReader(input)); err == nil {
		t.Fatal("expected error for missing required columns")
	}
}
