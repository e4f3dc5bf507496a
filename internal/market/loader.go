package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"volrv/internal/errors"
)

// History is the materialized contract universe for a run: every chain plus
// the trading calendar derived from the union of bar dates. Loaded once
// before the forward pass; read-only afterwards.
type History struct {
	Chains   map[string]*Chain
	Calendar *Calendar
}

// Chain returns the chain for an underlying root.
func (h *History) Chain(root string) (*Chain, bool) {
	ch, ok := h.Chains[root]
	return ch, ok
}

// LoadContractsCSV reads the standardized contract file produced by the
// data collaborator. Expected header:
//
//	date,symbol,root,expiry,open,high,low,close,volume,is_missing
func LoadContractsCSV(path string) (*History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataMissingFile,
			fmt.Sprintf("contracts file not found: %s", path))
	}
	defer f.Close()
	return ReadContracts(f)
}

type contractKey struct {
	symbol string
	root   string
}

// ReadContracts parses contract rows from r. Rows are grouped per contract
// and each group becomes an immutable Contract.
func ReadContracts(r io.Reader) (*History, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read contracts header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"date", "symbol", "root", "expiry", "close", "volume"} {
		if _, ok := col[required]; !ok {
			return nil, errors.Newf(errors.ErrCodeDataMissingFile,
				"contracts file missing required column %q", required)
		}
	}

	bars := make(map[contractKey][]Bar)
	expiries := make(map[contractKey]time.Time)
	var dates []time.Time

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read contracts row %d: %w", line, err)
		}
		line++

		date, err := ParseDate(record[col["date"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad date %q: %w", line, record[col["date"]], err)
		}
		expiry, err := ParseDate(record[col["expiry"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad expiry %q: %w", line, record[col["expiry"]], err)
		}

		key := contractKey{symbol: record[col["symbol"]], root: record[col["root"]]}
		expiries[key] = expiry

		bar := Bar{Date: date}
		bar.Close, err = strconv.ParseFloat(record[col["close"]], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad close %q: %w", line, record[col["close"]], err)
		}
		bar.Volume, _ = strconv.ParseFloat(record[col["volume"]], 64)
		if i, ok := col["open"]; ok {
			bar.Open, _ = strconv.ParseFloat(record[i], 64)
		}
		if i, ok := col["high"]; ok {
			bar.High, _ = strconv.ParseFloat(record[i], 64)
		}
		if i, ok := col["low"]; ok {
			bar.Low, _ = strconv.ParseFloat(record[i], 64)
		}
		if i, ok := col["is_missing"]; ok {
			bar.Missing = record[i] == "true" || record[i] == "1"
		}

		bars[key] = append(bars[key], bar)
		dates = append(dates, date)
	}

	byRoot := make(map[string][]*Contract)
	for key, contractBars := range bars {
		c := NewContract(key.symbol, key.root, expiries[key], contractBars)
		byRoot[key.root] = append(byRoot[key.root], c)
	}

	chains := make(map[string]*Chain, len(byRoot))
	for root, contracts := range byRoot {
		chains[root] = NewChain(root, contracts)
	}

	return &History{
		Chains:   chains,
		Calendar: NewCalendar(dates),
	}, nil
}
