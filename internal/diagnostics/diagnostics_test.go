package diagnostics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAccumulatesCountAndPeak(t *testing.T) {
	r := NewRegistry()
	r.Record("send", "0x3C", 10*time.Millisecond, 100)
	r.Record("send", "0x3C", 30*time.Millisecond, 50)

	snap := r.Snapshot("send")
	require.Len(t, snap, 1)
	assert.Equal(t, int64(2), snap[0].Count)
	assert.Equal(t, 40*time.Millisecond, snap[0].TotalTime)
	assert.Equal(t, 30*time.Millisecond, snap[0].PeakTime)
	assert.Equal(t, int64(150), snap[0].TotalBytes)
}

func TestSnapshotSortsByDescendingTotalTime(t *testing.T) {
	r := NewRegistry()
	r.Record("recv", "0x02", 5*time.Millisecond, 0)
	r.Record("recv", "0x06", 50*time.Millisecond, 0)

	snap := r.Snapshot("recv")
	require.Len(t, snap, 2)
	assert.Equal(t, "0x06", snap[0].Name)
	assert.Equal(t, "0x02", snap[1].Name)
}

func TestObserveRecordsElapsedDuration(t *testing.T) {
	r := NewRegistry()
	result := Observe(r, "timer", "save", func() int {
		time.Sleep(time.Millisecond)
		return 42
	})
	assert.Equal(t, 42, result)

	snap := r.Snapshot("timer")
	require.Len(t, snap, 1)
	assert.Equal(t, int64(1), snap[0].Count)
	assert.Greater(t, snap[0].TotalTime, time.Duration(0))
}

func TestWriteAllDumpsEachCategory(t *testing.T) {
	r := NewRegistry()
	r.Record("send", "0x3C", time.Millisecond, 10)

	var buf strings.Builder
	r.WriteAll(&buf, "send")
	assert.Contains(t, buf.String(), "0x3C")
	assert.Contains(t, buf.String(), "== send ==")
}
