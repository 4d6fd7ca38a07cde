package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	var r Results
	for _, v := range []float64{10, 12, 14} {
		r.DiscountedReturn.Add(v)
		r.UndiscountedReturn.Add(v + 1)
		r.Time.Add(1)
		r.TimePerAction.Add(0.1)
		r.ExploredNodes.Add(100)
		r.ExploredDepth.Add(5)
	}

	row := r.Summarize(128)
	require.Equal(t, 128, row.Simulations)
	require.Equal(t, 3, row.Runs)
	require.InDelta(t, 12.0, row.DiscountedReturn, 1e-12)
	require.InDelta(t, 13.0, row.UndiscountedReturn, 1e-12)
	require.Greater(t, row.DiscountedError, 0.0)

	r.Clear()
	require.Equal(t, 0, r.Time.Count())
}

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	rows := []Row{{Simulations: 16, Runs: 2, DiscountedReturn: 3.5}}
	require.NoError(t, w.WriteRows("rooms", rows))

	f, err := os.Open(filepath.Join(dir, "rooms.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2, "header plus one row")
	require.Equal(t, "simulations", records[0][0])
	require.Equal(t, "16", records[1][0])
	require.Equal(t, "3.5", records[1][4])
}
