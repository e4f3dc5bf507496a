package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volrv/internal/testutils"
)

func TestRunnerEndToEnd(t *testing.T) {
	dir := t.TempDir()
	dates := testutils.Weekdays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 20)

	var rows []testutils.ContractRow
	frontExpiry := dates[11]
	backExpiry := dates[19].AddDate(0, 2, 0)
	for i, d := range dates {
		rows = append(rows,
			testutils.ContractRow{
				Date: d, Symbol: "VXF4", Root: "VX", Expiry: frontExpiry,
				Close: 15 + 0.1*float64(i), Volume: 1000,
			},
			testutils.ContractRow{
				Date: d, Symbol: "VXG4", Root: "VX", Expiry: backExpiry,
				Close: 16 + 0.1*float64(i), Volume: 500,
			},
		)
	}
	contractsPath := testutils.WriteContractsCSV(t, dir, rows)
	signalsPath, metaPath := testutils.WriteSignalsCSV(t, dir, "sig", dates,
		map[int]float64{0: 0.8, 10: -0.4}, 1)

	cfg := testConfig()
	cfg.Data.ContractsFile = contractsPath
	cfg.Data.SignalsFile = signalsPath
	cfg.Data.SignalMetaFile = metaPath
	cfg.Roll.TriggerMode = "expiry_offset"
	cfg.Roll.ThresholdDays = 5

	results, err := NewRunner(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	require.Contains(t, results, "VX")

	result := results["VX"]
	assert.Equal(t, "VX", result.Underlying)
	assert.Len(t, result.Positions, len(dates))
	require.NotEmpty(t, result.RollEvents)
	assert.Equal(t, "VXF4", result.RollEvents[0].FromContract)
	assert.Equal(t, "VXG4", result.RollEvents[0].ToContract)

	// The roll happened with a live position, so the pair must be present.
	var rollTrades int
	for _, tr := range result.Trades {
		if tr.Type == TradeRoll {
			rollTrades++
		}
	}
	assert.Equal(t, 2*len(result.RollEvents), rollTrades)

	for i, attr := range result.Attribution {
		sum := attr.CarryRollPnL + attr.SpotCurvePnL + attr.CostPnL + attr.ResidualPnL
		assert.InDelta(t, attr.Total, sum, 1e-9, "date index %d", i)
	}
	assert.NotEmpty(t, result.Summary.RunID)
}

func TestRunnerUnknownUnderlying(t *testing.T) {
	dir := t.TempDir()
	dates := testutils.Weekdays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 3)
	rows := []testutils.ContractRow{
		{Date: dates[0], Symbol: "CLF4", Root: "CL", Expiry: dates[2], Close: 70, Volume: 10},
	}
	contractsPath := testutils.WriteContractsCSV(t, dir, rows)
	signalsPath, metaPath := testutils.WriteSignalsCSV(t, dir, "sig", dates, nil, 1)

	cfg := testConfig()
	cfg.Backtest.Underlying = "VX"
	cfg.Data.ContractsFile = contractsPath
	cfg.Data.SignalsFile = signalsPath
	cfg.Data.SignalMetaFile = metaPath

	_, err := NewRunner(cfg, nil).Run(context.Background())
	require.Error(t, err)
}
