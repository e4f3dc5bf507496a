// Package testutils provides file fixtures for pipeline-level tests.
package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Weekdays returns n consecutive weekdays starting from start.
func Weekdays(start time.Time, n int) []time.Time {
	dates := make([]time.Time, 0, n)
	d := start
	for len(dates) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return dates
}

// ContractRow is one line of a contracts fixture file.
type ContractRow struct {
	Date    time.Time
	Symbol  string
	Root    string
	Expiry  time.Time
	Close   float64
	Volume  float64
	Missing bool
}

// WriteContractsCSV writes a contracts fixture and returns its path.
func WriteContractsCSV(t *testing.T, dir string, rows []ContractRow) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("date,symbol,root,expiry,open,high,low,close,volume,is_missing\n")
	for _, r := range rows {
		missing := ""
		if r.Missing {
			missing = "true"
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%g,%g,%g,%g,%g,%s\n",
			r.Date.Format("2006-01-02"), r.Symbol, r.Root,
			r.Expiry.Format("2006-01-02"),
			r.Close, r.Close, r.Close, r.Close, r.Volume, missing))
	}
	return WriteFile(t, dir, "contracts.csv", sb.String())
}

// WriteSignalsCSV writes a signal fixture plus its lag metadata sidecar and
// returns both paths.
func WriteSignalsCSV(t *testing.T, dir, column string, dates []time.Time, values map[int]float64, lagDays int) (string, string) {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("date," + column + "\n")
	for i, d := range dates {
		cell := ""
		if v, ok := values[i]; ok {
			cell = fmt.Sprintf("%g", v)
		}
		sb.WriteString(d.Format("2006-01-02") + "," + cell + "\n")
	}
	signalsPath := WriteFile(t, dir, "signals.csv", sb.String())

	meta := fmt.Sprintf(`{"columns": {"%s": {"lag_days": %d, "source": "fixture"}}}`, column, lagDays)
	metaPath := WriteFile(t, dir, "signals_meta.json", meta)
	return signalsPath, metaPath
}

// WriteFile writes content under dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
