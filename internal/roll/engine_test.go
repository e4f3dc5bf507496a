package roll

import (
	"encoding/json"
	"testing"
	"time"

	"volrv/internal/config"
	"volrv/internal/market"
)

// weekdays returns n consecutive weekday dates starting 2024-01-01 (a Monday).
func weekdays(n int) []time.Time {
	dates := make([]time.Time, 0, n)
	d := market.Date(2024, 1, 1)
	for len(dates) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return dates
}

// flatContract builds a contract with constant close over dates[from:to+1].
func flatContract(symbol string, expiry time.Time, dates []time.Time, from, to int, close, volume float64) *market.Contract {
	var bars []market.Bar
	for i := from; i <= to && i < len(dates); i++ {
		bars = append(bars, market.Bar{Date: dates[i], Close: close, Volume: volume})
	}
	return market.NewContract(symbol, "VX", expiry, bars)
}

func expiryOffsetConfig(threshold int) config.RollConfig {
	return config.RollConfig{TriggerMode: "expiry_offset", ThresholdDays: threshold}
}

// Three contracts expiring on trading days 10, 40 and far beyond the window,
// threshold 5: expect exactly two rolls, on days 5 and 35, and a gapless
// continuous series.
func TestExpiryOffsetScenario(t *testing.T) {
	dates := weekdays(60)
	cal := market.NewCalendar(dates)
	farExpiry := dates[59].AddDate(0, 0, 45)

	chain := market.NewChain("VX", []*market.Contract{
		flatContract("VXF4", dates[10], dates, 0, 10, 20, 1000),
		flatContract("VXG4", dates[40], dates, 0, 40, 20, 1000),
		flatContract("VXH4", farExpiry, dates, 0, 59, 20, 1000),
	})

	result := NewEngine(expiryOffsetConfig(5), nil).Build(chain, cal)

	if len(result.Events) != 2 {
		t.Fatalf("expected exactly 2 roll events, got %d: %v", len(result.Events), result.Events)
	}
	if !result.Events[0].Date.Equal(dates[5]) {
		t.Errorf("first roll at %v, want day 5 (%v)", result.Events[0].Date, dates[5])
	}
	if !result.Events[1].Date.Equal(dates[35]) {
		t.Errorf("second roll at %v, want day 35 (%v)", result.Events[1].Date, dates[35])
	}
	if result.Events[0].DaysToExpiry != 5 || result.Events[1].DaysToExpiry != 5 {
		t.Errorf("events should trigger at 5 days to expiry, got %d and %d",
			result.Events[0].DaysToExpiry, result.Events[1].DaysToExpiry)
	}

	if result.Series.Len() != 60 {
		t.Errorf("continuous series has %d points, want 60 (no gaps)", result.Series.Len())
	}
	for i, want := range []string{"VXF4", "VXG4", "VXH4"} {
		seq := result.Series.ActiveSequence()
		if len(seq) != 3 {
			t.Fatalf("active sequence %v, want 3 contracts", seq)
		}
		if seq[i] != want {
			t.Errorf("active sequence[%d] = %s, want %s", i, seq[i], want)
		}
	}
	if len(result.Unavailable) != 0 {
		t.Errorf("unexpected roll_unavailable flags: %v", result.Unavailable)
	}
}

// The active-contract sequence must be piecewise constant and strictly
// follow expiry order.
func TestSeriesPiecewiseConstantExpiryOrder(t *testing.T) {
	dates := weekdays(60)
	cal := market.NewCalendar(dates)
	chain := market.NewChain("VX", []*market.Contract{
		flatContract("VXF4", dates[10], dates, 0, 10, 20, 1000),
		flatContract("VXG4", dates[40], dates, 0, 40, 20, 1000),
		flatContract("VXH4", dates[59].AddDate(0, 0, 45), dates, 0, 59, 20, 1000),
	})
	result := NewEngine(expiryOffsetConfig(5), nil).Build(chain, cal)

	expiryOf := map[string]time.Time{}
	for _, c := range chain.Contracts {
		expiryOf[c.Symbol] = c.Expiry
	}
	seq := result.Series.ActiveSequence()
	for i := 1; i < len(seq); i++ {
		if !expiryOf[seq[i]].After(expiryOf[seq[i-1]]) {
			t.Errorf("active sequence violates expiry order: %s then %s", seq[i-1], seq[i])
		}
	}
}

// Truncating the input history must reproduce identical roll events up to
// the truncation date.
func TestNoLookahead(t *testing.T) {
	dates := weekdays(60)
	full := market.NewChain("VX", []*market.Contract{
		flatContract("VXF4", dates[10], dates, 0, 10, 20, 1000),
		flatContract("VXG4", dates[40], dates, 0, 40, 20, 1000),
		flatContract("VXH4", dates[59].AddDate(0, 0, 45), dates, 0, 59, 20, 1000),
	})
	fullResult := NewEngine(expiryOffsetConfig(5), nil).Build(full, market.NewCalendar(dates))

	cut := 20 // truncate after day 19
	truncated := market.NewChain("VX", []*market.Contract{
		flatContract("VXF4", dates[10], dates, 0, 10, 20, 1000),
		flatContract("VXG4", dates[40], dates, 0, cut-1, 20, 1000),
		flatContract("VXH4", dates[59].AddDate(0, 0, 45), dates, 0, cut-1, 20, 1000),
	})
	truncResult := NewEngine(expiryOffsetConfig(5), nil).Build(truncated, market.NewCalendar(dates[:cut]))

	var fullUpToCut []Event
	for _, e := range fullResult.Events {
		if e.Date.Before(dates[cut]) {
			fullUpToCut = append(fullUpToCut, e)
		}
	}

	a, _ := json.Marshal(fullUpToCut)
	b, _ := json.Marshal(truncResult.Events)
	if string(a) != string(b) {
		t.Errorf("roll events changed under truncation:\nfull:      %s\ntruncated: %s", a, b)
	}
}

func TestVolumeCrossover(t *testing.T) {
	dates := weekdays(20)
	cal := market.NewCalendar(dates)

	// Next contract's volume first exceeds the front's on day 7.
	var frontBars, nextBars []market.Bar
	for i := 0; i < 20; i++ {
		frontBars = append(frontBars, market.Bar{Date: dates[i], Close: 20, Volume: 1000})
		vol := 500.0
		if i >= 7 {
			vol = 1500
		}
		nextBars = append(nextBars, market.Bar{Date: dates[i], Close: 21, Volume: vol})
	}
	chain := market.NewChain("VX", []*market.Contract{
		market.NewContract("VXF4", "VX", dates[15], frontBars),
		market.NewContract("VXG4", "VX", dates[19].AddDate(0, 0, 30), nextBars),
	})

	cfg := config.RollConfig{TriggerMode: "volume_crossover", ThresholdDays: 5}
	result := NewEngine(cfg, nil).Build(chain, cal)

	if len(result.Events) != 1 {
		t.Fatalf("expected 1 roll event, got %d", len(result.Events))
	}
	ev := result.Events[0]
	if !ev.Date.Equal(dates[7]) {
		t.Errorf("volume crossover rolled at %v, want day 7 (%v)", ev.Date, dates[7])
	}
	if ev.Trigger != TriggerVolumeCrossover {
		t.Errorf("trigger = %s, want volume_crossover", ev.Trigger)
	}
	if ev.FromPrice != 20 || ev.ToPrice != 21 {
		t.Errorf("event prices = %g -> %g, want 20 -> 21", ev.FromPrice, ev.ToPrice)
	}
}

// When the threshold is breached with no next contract the engine holds and
// flags roll_unavailable instead of failing.
func TestRollUnavailable(t *testing.T) {
	dates := weekdays(10)
	cal := market.NewCalendar(dates)
	chain := market.NewChain("VX", []*market.Contract{
		flatContract("VXF4", dates[8], dates, 0, 8, 20, 1000),
	})

	result := NewEngine(expiryOffsetConfig(5), nil).Build(chain, cal)

	if len(result.Events) != 0 {
		t.Errorf("expected no roll events, got %d", len(result.Events))
	}
	if len(result.Unavailable) == 0 {
		t.Fatal("expected roll_unavailable flags")
	}
	first := result.Unavailable[0]
	if !first.Date.Equal(dates[3]) {
		t.Errorf("first unavailable flag at %v, want day 3 (dte=5)", first.Date)
	}
	// The engine keeps assigning the held contract.
	for i := 0; i <= 8; i++ {
		p, ok := result.Series.At(dates[i])
		if !ok || p.Contract != "VXF4" {
			t.Errorf("day %d: active = %v, want VXF4", i, p.Contract)
		}
	}
}

// A flagged missing row suppresses roll evaluation that date only.
func TestMissingDataSuppressesRoll(t *testing.T) {
	dates := weekdays(20)
	cal := market.NewCalendar(dates)

	var frontBars []market.Bar
	for i := 0; i <= 10; i++ {
		frontBars = append(frontBars, market.Bar{
			Date: dates[i], Close: 20, Volume: 1000,
			Missing: i == 5, // QA flagged the would-be roll date
		})
	}
	chain := market.NewChain("VX", []*market.Contract{
		market.NewContract("VXF4", "VX", dates[10], frontBars),
		flatContract("VXG4", dates[19].AddDate(0, 0, 30), dates, 0, 19, 20, 1000),
	})

	result := NewEngine(expiryOffsetConfig(5), nil).Build(chain, cal)

	if len(result.Events) != 1 {
		t.Fatalf("expected 1 roll event, got %d", len(result.Events))
	}
	if !result.Events[0].Date.Equal(dates[6]) {
		t.Errorf("roll should defer to day 6, got %v", result.Events[0].Date)
	}
	p, _ := result.Series.At(dates[5])
	if p.Reason != ReasonDataMissing || !p.Missing {
		t.Errorf("day 5 point should be flagged data_missing, got %+v", p)
	}
}

// Identical inputs must produce byte-identical roll logs.
func TestDeterministicRollLog(t *testing.T) {
	dates := weekdays(60)
	build := func() []byte {
		chain := market.NewChain("VX", []*market.Contract{
			flatContract("VXF4", dates[10], dates, 0, 10, 20, 1000),
			flatContract("VXG4", dates[40], dates, 0, 40, 20, 1000),
			flatContract("VXH4", dates[59].AddDate(0, 0, 45), dates, 0, 59, 20, 1000),
		})
		result := NewEngine(expiryOffsetConfig(5), nil).Build(chain, market.NewCalendar(dates))
		out, err := json.Marshal(result.Events)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return out
	}

	if string(build()) != string(build()) {
		t.Error("roll log is not deterministic across identical runs")
	}
}
