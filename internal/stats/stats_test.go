package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSnapshotTotalsMatchCounters(t *testing.T) {
	s := New()
	for i := 0; i < 7; i++ {
		s.IncSuccess(10*time.Millisecond, 0)
	}
	for i := 0; i < 3; i++ {
		s.IncError(1)
	}

	rep := s.Snapshot(time.Second)
	require.Equal(t, uint64(7), rep.Success)
	require.Equal(t, uint64(3), rep.Error)
	require.Equal(t, uint64(3), rep.TotalRetry)
	require.Equal(t, rep.Success+rep.Error, uint64(10))
}

func TestSnapshotRPSUsesElapsed(t *testing.T) {
	s := New()
	s.IncSuccess(time.Millisecond, 0)
	s.IncSuccess(time.Millisecond, 0)
	rep := s.Snapshot(2 * time.Second)
	require.InDelta(t, 1.0, rep.RPS, 0.001)
}

func TestSnapshotAverageRTT(t *testing.T) {
	s := New()
	s.IncSuccess(100*time.Millisecond, 0)
	s.IncSuccess(300*time.Millisecond, 0)
	rep := s.Snapshot(time.Second)
	avgMs := float64(rep.TotalRTTMicros) / 1000.0 / float64(rep.Success)
	require.InDelta(t, 200.0, avgMs, 0.5)
}
