// Package coordinator spawns N workers in parallel and aggregates
// their reports (spec.md §4.7). Grounded on
// original_source/src/runner.rs's AggregatedReport::add/report and
// this codebase's worker-pool fan-out pattern, adapted to a
// one-goroutine-per-worker Runner model.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riftload/riftload/internal/globalstore"
	"github.com/riftload/riftload/internal/runner"
	"github.com/riftload/riftload/internal/scenario"
	"github.com/riftload/riftload/internal/stats"
	"github.com/riftload/riftload/pkg/funclib"
	"github.com/riftload/riftload/pkg/value"
)

// AggregateReport is the cross-worker summary spec.md §4.7 describes.
type AggregateReport struct {
	TotalRPS       float64
	Elapsed        time.Duration
	Success        uint64
	Error          uint64
	TotalRTTMicros uint64
	TotalRetry     uint64
	WorkersMissing int
}

// SuccessRate returns the percentage of responses observed that were
// successful, or 0 if none were observed.
func (r AggregateReport) SuccessRate() float64 {
	total := r.Success + r.Error
	if total == 0 {
		return 0
	}
	return float64(r.Success) / float64(total) * 100
}

// AvgRTTMillis returns total_rtt_ms / success, spec.md §4.7's defined
// average-RTT formula; 0 if there were no successes.
func (r AggregateReport) AvgRTTMillis() float64 {
	if r.Success == 0 {
		return 0
	}
	return float64(r.TotalRTTMicros) / 1000.0 / float64(r.Success)
}

// Run spawns `parallel` independent workers, each with its own
// connection, Global store, and Runner, and aggregates their reports.
// A worker whose RunWorker returns an error (a failed dial, an
// assert_panic, or a cancelled ctx) sends no report — the aggregator
// simply counts it as missing rather than failing the whole run
// (spec.md §5, §7).
func Run(ctx context.Context, parallel int, baseURL string, scenarioTemplate []*scenario.Scenario, params runner.Params, globalVars ...value.Variable) (AggregateReport, error) {
	if parallel < 1 {
		return AggregateReport{}, errors.New("parallel worker count must be >= 1")
	}

	reports := make(chan stats.Report, parallel)
	var wg sync.WaitGroup
	var missing atomic.Int64

	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			global := globalstore.New()
			for _, v := range globalVars {
				global.Set(v.Name, v.Value)
			}
			eval := funclib.NewEvaluator()
			scenarios := cloneScenarios(scenarioTemplate)

			rep, err := runner.RunWorker(ctx, baseURL, scenarios, global, eval, params)
			if err != nil {
				missing.Add(1)
				return
			}
			reports <- rep
		}()
	}

	wg.Wait()
	close(reports)

	var agg AggregateReport
	for rep := range reports {
		agg.add(rep)
	}
	agg.WorkersMissing = int(missing.Load())

	return agg, nil
}

// add folds one worker's report into r: counters and RPS are summed,
// and Elapsed keeps the longest worker's value.
func (r *AggregateReport) add(rep stats.Report) {
	r.Success += rep.Success
	r.Error += rep.Error
	r.TotalRTTMicros += rep.TotalRTTMicros
	r.TotalRetry += rep.TotalRetry
	r.TotalRPS += rep.RPS
	if rep.Elapsed > r.Elapsed {
		r.Elapsed = rep.Elapsed
	}
}

// cloneScenarios returns a shallow copy of the scenario slice: each
// *Scenario is itself immutable after construction (spec.md §3), so
// workers can safely share the pointed-to Scenario values while each
// gets its own slice header and, via its own Global store, its own
// mutable variable state.
func cloneScenarios(src []*scenario.Scenario) []*scenario.Scenario {
	out := make([]*scenario.Scenario, len(src))
	copy(out, src)
	return out
}
