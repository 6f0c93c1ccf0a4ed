package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeriveParamsSingleStep200(t *testing.T) {
	p, err := DeriveParams(10, time.Second, 5, 1)
	require.NoError(t, err)
	require.Equal(t, 2, p.TotalIterations)
	require.Equal(t, 10, p.TotalRequests)
}

func TestDeriveParamsAutoBatchSize(t *testing.T) {
	p, err := DeriveParams(1000, time.Second, 0, 1)
	require.NoError(t, err)
	require.Equal(t, 5, p.BatchSize)
}

func TestDeriveParamsTickIntervalAt1000rps10Batch(t *testing.T) {
	p, err := DeriveParams(1000, time.Second, 10, 1)
	require.NoError(t, err)
	require.InDelta(t, 10*time.Millisecond, p.TickInterval, float64(2*time.Millisecond))
}

func TestDeriveParamsScenarioCountDividesTPS(t *testing.T) {
	p, err := DeriveParams(100, time.Second, 5, 2)
	require.NoError(t, err)
	require.Equal(t, 50, p.TargetTPS)
}

func TestDeriveParamsFloorsTPSAtOne(t *testing.T) {
	p, err := DeriveParams(1, time.Second, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, p.TargetTPS)
	require.Equal(t, 1, p.BatchSize)
}

func TestDeriveParamsRejectsZeroDuration(t *testing.T) {
	_, err := DeriveParams(10, 0, 1, 1)
	require.Error(t, err)
}

func TestDeriveParamsTotalRequestsFormula(t *testing.T) {
	p, err := DeriveParams(200, 2*time.Second, 4, 1)
	require.NoError(t, err)
	require.Equal(t, p.TotalIterations*p.BatchSize*p.ScenarioCount, p.TotalRequests)
}
