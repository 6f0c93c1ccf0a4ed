// Package runner implements the rate-paced scenario driver (spec.md
// §4.5): parameter derivation, the per-worker dispatcher, and the tick
// loop that issues batches and threads scenario chains through the
// event dispatcher. Grounded on original_source/src/runner.rs's
// RunParameter::new and Runner::run, realized here with Go goroutines
// and channels instead of a native thread pool.
package runner

import (
	"fmt"
	"math"
	"time"
)

// Params is the immutable set of derived pacing parameters for one
// worker's run (spec.md §3 "RunParameters").
type Params struct {
	TargetTPS       int
	BatchSize       int
	TickInterval    time.Duration
	TotalIterations int
	TotalRequests   int
	ScenarioCount   int
	Duration        time.Duration
}

// DeriveParams computes Params from the configured target_rps,
// duration, optional batch_size (0 means "Auto"), and scenario_count,
// following spec.md §4.5 exactly:
//
//	target_tps = max(1, target_rps / scenario_count)
//	batch_size = max(1, target_tps / 200)                [if absent]
//	tick_interval = 1s / (target_tps / batch_size)
//	total_iterations = ceil(target_tps * duration_s / batch_size)
//	total_requests = total_iterations * batch_size * scenario_count
func DeriveParams(targetRPS int, duration time.Duration, batchSize int, scenarioCount int) (Params, error) {
	if duration <= 0 {
		return Params{}, fmt.Errorf("duration must be > 0, got %s", duration)
	}
	if scenarioCount <= 0 {
		return Params{}, fmt.Errorf("scenario_count must be > 0, got %d", scenarioCount)
	}
	if targetRPS <= 0 {
		return Params{}, fmt.Errorf("target_rps must be >= 1, got %d", targetRPS)
	}

	targetTPS := targetRPS / scenarioCount
	if targetTPS < 1 {
		targetTPS = 1
	}

	bs := batchSize
	if bs <= 0 {
		bs = targetTPS / 200
		if bs < 1 {
			bs = 1
		}
	}

	tickInterval := time.Duration(float64(time.Second) * float64(bs) / float64(targetTPS))

	durationS := duration.Seconds()
	totalIterations := int(math.Ceil(float64(targetTPS) * durationS / float64(bs)))
	if totalIterations < 1 {
		totalIterations = 1
	}
	totalRequests := totalIterations * bs * scenarioCount

	return Params{
		TargetTPS:       targetTPS,
		BatchSize:       bs,
		TickInterval:    tickInterval,
		TotalIterations: totalIterations,
		TotalRequests:   totalRequests,
		ScenarioCount:   scenarioCount,
		Duration:        duration,
	}, nil
}
