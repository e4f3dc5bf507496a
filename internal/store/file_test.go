package store

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volrv/internal/backtest"
	"volrv/internal/roll"
)

func TestFileStoreExportsAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	result := sampleResult("file-run")
	result.RollEvents = []roll.Event{{
		FromContract: "VXF4", ToContract: "VXG4",
		Trigger: roll.TriggerExpiryOffset, DaysToExpiry: 5,
		FromPrice: 15.5, ToPrice: 16.0,
	}}

	runDir, err := NewFileStore(dir).Export(result)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "file-run"), runDir)

	for _, name := range []string{
		"positions.csv", "trades.csv", "pnl.csv", "attribution.csv",
		"roll_log.json", "roll_unavailable.json", "summary.json",
	} {
		_, err := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, err, name)
	}

	f, err := os.Open(filepath.Join(runDir, "trades.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2, "header plus one trade")
	assert.Equal(t, "date", records[0][0])
	assert.Equal(t, "VXG4", records[1][2])

	data, err := os.ReadFile(filepath.Join(runDir, "summary.json"))
	require.NoError(t, err)
	var summary backtest.Summary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, "file-run", summary.RunID)

	data, err = os.ReadFile(filepath.Join(runDir, "roll_log.json"))
	require.NoError(t, err)
	var events []roll.Event
	require.NoError(t, json.Unmarshal(data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, roll.TriggerExpiryOffset, events[0].Trigger)
}
