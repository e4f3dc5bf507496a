package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"volrv/internal/backtest"
)

const dateLayout = "2006-01-02"

// FileStore exports a run's artifacts as CSV record streams plus JSON for
// the roll log and summary, mirroring what downstream report tooling reads.
type FileStore struct {
	baseDir string
}

// NewFileStore creates an exporter rooted at baseDir. Each run gets its own
// subdirectory named by run ID.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// Export writes every artifact of a run and returns the run directory.
func (f *FileStore) Export(result *backtest.Result) (string, error) {
	dir := filepath.Join(f.baseDir, result.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writePositions(filepath.Join(dir, "positions.csv"), result.Positions); err != nil {
		return "", err
	}
	if err := f.writeTrades(filepath.Join(dir, "trades.csv"), result.Trades); err != nil {
		return "", err
	}
	if err := f.writePnL(filepath.Join(dir, "pnl.csv"), result.PnL); err != nil {
		return "", err
	}
	if err := f.writeAttribution(filepath.Join(dir, "attribution.csv"), result.Attribution); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "roll_log.json"), result.RollEvents); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "roll_unavailable.json"), result.Unavailable); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "summary.json"), result.Summary); err != nil {
		return "", err
	}
	return dir, nil
}

func (f *FileStore) writePositions(path string, positions []backtest.Position) error {
	return writeCSV(path, []string{
		"date", "underlying", "contract", "size", "target_raw",
		"signal_date", "signal_value", "is_roll_date", "flag",
	}, len(positions), func(i int) []string {
		p := positions[i]
		signalDate := ""
		if !p.SignalDate.IsZero() {
			signalDate = p.SignalDate.Format(dateLayout)
		}
		return []string{
			p.Date.Format(dateLayout), p.Underlying, p.Contract,
			formatFloat(p.Size), formatFloat(p.TargetRaw),
			signalDate, formatFloat(p.SignalValue),
			strconv.FormatBool(p.IsRollDate), string(p.Flag),
		}
	})
}

func (f *FileStore) writeTrades(path string, trades []backtest.Trade) error {
	return writeCSV(path, []string{
		"date", "underlying", "contract", "quantity_delta", "price",
		"trade_type", "cost", "notional", "signal_date",
	}, len(trades), func(i int) []string {
		t := trades[i]
		signalDate := ""
		if !t.SignalDate.IsZero() {
			signalDate = t.SignalDate.Format(dateLayout)
		}
		return []string{
			t.Date.Format(dateLayout), t.Underlying, t.Contract,
			formatFloat(t.QuantityDelta), formatFloat(t.Price),
			string(t.Type), formatFloat(t.Cost), formatFloat(t.Notional), signalDate,
		}
	})
}

func (f *FileStore) writePnL(path string, records []backtest.PnLRecord) error {
	return writeCSV(path, []string{
		"date", "underlying", "position_prev", "gross_pnl", "cost_pnl",
		"net_pnl", "cumulative_pnl", "equity", "flag",
	}, len(records), func(i int) []string {
		r := records[i]
		return []string{
			r.Date.Format(dateLayout), r.Underlying,
			formatFloat(r.PositionPrev), formatFloat(r.GrossPnL), formatFloat(r.CostPnL),
			formatFloat(r.NetPnL), formatFloat(r.CumulativePnL), formatFloat(r.Equity),
			string(r.Flag),
		}
	})
}

func (f *FileStore) writeAttribution(path string, records []backtest.AttributionRecord) error {
	return writeCSV(path, []string{
		"date", "underlying", "total_pnl", "carry_roll_pnl", "spot_curve_pnl",
		"cost_pnl", "residual_pnl", "carry_basis", "suspect",
	}, len(records), func(i int) []string {
		r := records[i]
		return []string{
			r.Date.Format(dateLayout), r.Underlying,
			formatFloat(r.Total), formatFloat(r.CarryRollPnL), formatFloat(r.SpotCurvePnL),
			formatFloat(r.CostPnL), formatFloat(r.ResidualPnL),
			string(r.CarryBasis), strconv.FormatBool(r.Suspect),
		}
	})
}

func writeCSV(path string, header []string, n int, row func(i int) []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return file.Close()
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
