// Package signal ingests the already-lagged signal columns produced by the
// signal collaborator. The mathematics behind the columns is out of scope
// here; this package only guarantees the lag contract is declared and that
// lookups are by-date with no interpolation.
package signal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"volrv/internal/errors"
	"volrv/internal/market"
)

// ColumnMeta declares the lag contract for one signal column.
type ColumnMeta struct {
	LagDays int    `json:"lag_days"`
	Source  string `json:"source,omitempty"`
}

// Metadata is the machine-readable sidecar accompanying a signal file.
// Columns without an entry here are treated as undeclared and refused.
type Metadata struct {
	GeneratedAt string                `json:"generated_at,omitempty"`
	Columns     map[string]ColumnMeta `json:"columns"`
}

// Frame is a columnar signal series keyed by date.
type Frame struct {
	Meta Metadata

	dates   []time.Time
	columns map[string]map[time.Time]float64
}

// Load reads a signals CSV and its metadata sidecar. The sidecar is
// mandatory: a signal file without declared lag metadata fails fast.
func Load(signalsPath, metaPath string) (*Frame, error) {
	metaData, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSignalUnlagged,
			fmt.Sprintf("signal lag metadata not found: %s", metaPath))
	}
	var meta Metadata
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSignalUnlagged,
			fmt.Sprintf("failed to parse signal metadata: %s", metaPath))
	}

	f, err := os.Open(signalsPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataMissingFile,
			fmt.Sprintf("signals file not found: %s", signalsPath))
	}
	defer f.Close()

	return ReadFrame(f, meta)
}

// ReadFrame parses signal rows from r. Expected header: date,<column...>.
// Empty and NaN cells are absent values, never zero-filled.
func ReadFrame(r io.Reader, meta Metadata) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read signals header: %w", err)
	}
	if len(header) == 0 || header[0] != "date" {
		return nil, errors.New(errors.ErrCodeDataMissingFile,
			"signals file must start with a date column", nil)
	}

	frame := &Frame{
		Meta:    meta,
		columns: make(map[string]map[time.Time]float64),
	}
	for _, name := range header[1:] {
		frame.columns[name] = make(map[time.Time]float64)
	}

	seen := make(map[time.Time]bool)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read signals row %d: %w", line, err)
		}
		line++

		date, err := market.ParseDate(record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad date %q: %w", line, record[0], err)
		}
		if !seen[date] {
			seen[date] = true
			frame.dates = append(frame.dates, date)
		}

		for i, name := range header[1:] {
			cell := strings.TrimSpace(record[i+1])
			if cell == "" || strings.EqualFold(cell, "nan") {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad value %q in column %s: %w", line, cell, name, err)
			}
			if math.IsNaN(v) {
				continue
			}
			frame.columns[name][date] = v
		}
	}

	sort.Slice(frame.dates, func(i, j int) bool { return frame.dates[i].Before(frame.dates[j]) })
	return frame, nil
}

// Dates returns the ordered signal dates.
func (f *Frame) Dates() []time.Time {
	return f.dates
}

// HasColumn reports whether the frame carries a column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Value returns the signal value at a date; absent values report false.
func (f *Frame) Value(column string, date time.Time) (float64, bool) {
	col, ok := f.columns[column]
	if !ok {
		return 0, false
	}
	v, ok := col[date]
	return v, ok
}

// AssertLagged enforces the lag contract for a column: metadata must declare
// it, and the declared lag must be non-negative. This is the fail-fast gate
// the execution engine calls before consuming any value.
func (f *Frame) AssertLagged(column string) error {
	if !f.HasColumn(column) {
		return errors.Newf(errors.ErrCodeDataMissingFile,
			"signal column %q not present in signals file", column).
			WithRule("signal_column")
	}
	meta, ok := f.Meta.Columns[column]
	if !ok {
		return errors.Newf(errors.ErrCodeSignalUnlagged,
			"signal column %q has no declared lag metadata", column).
			WithRule("lag_metadata")
	}
	if meta.LagDays < 0 {
		return errors.Newf(errors.ErrCodeSignalUnlagged,
			"signal column %q declares negative lag %d", column, meta.LagDays).
			WithRule("lag_metadata")
	}
	return nil
}
