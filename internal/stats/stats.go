// Package stats implements ApiStats (spec.md §3): the lock-free
// per-worker counters updated with relaxed atomics, enriched with
// HdrHistogram-backed latency percentiles the same way this
// codebase's original Monitor type enriched its own counters.
// Grounded on original_source/src/stats.rs's
// ApiStats{success,error,total_rtt,total_retry} for the counter shape
// and on the histogram-enrichment idiom already present here.
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// ApiStats holds one worker's run counters. The counters are updated
// via relaxed atomics — spec.md §5 requires no ordering between
// them, only eventual-consistent totals at aggregation time. The
// latency histogram is guarded by mu.
type ApiStats struct {
	success        atomic.Uint64
	errorCount     atomic.Uint64
	totalRTTMicros atomic.Uint64
	totalRetry     atomic.Uint64

	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// New returns a zeroed ApiStats with a fresh latency histogram
// (1µs-30s range, 3 significant figures).
func New() *ApiStats {
	return &ApiStats{hist: hdrhistogram.New(1, 30_000_000, 3)}
}

// IncSuccess records one successful request with its round-trip time
// and the number of submission retries it took.
func (s *ApiStats) IncSuccess(rtt time.Duration, retries int) {
	s.success.Add(1)
	us := uint64(rtt.Microseconds())
	s.totalRTTMicros.Add(us)
	s.totalRetry.Add(uint64(retries))

	s.mu.Lock()
	_ = s.hist.RecordValue(int64(us))
	s.mu.Unlock()
}

// IncError records one failed request (transport error or assertion
// failure) and the submission retries it took before failing.
func (s *ApiStats) IncError(retries int) {
	s.errorCount.Add(1)
	s.totalRetry.Add(uint64(retries))
}

// Report is the point-in-time aggregate a worker hands to the
// coordinator (spec.md §4.7's per-worker RunReport).
type Report struct {
	RPS            float64
	Elapsed        time.Duration
	Success        uint64
	Error          uint64
	TotalRTTMicros uint64
	TotalRetry     uint64
	P50, P90, P99  time.Duration
}

// Snapshot computes a Report from the counters accumulated so far,
// given the wall-clock elapsed time of the run that produced them.
func (s *ApiStats) Snapshot(elapsed time.Duration) Report {
	success := s.success.Load()
	errs := s.errorCount.Load()
	total := success + errs

	rps := 0.0
	if elapsed > 0 {
		rps = float64(total) / elapsed.Seconds()
	}

	s.mu.Lock()
	p50 := time.Duration(s.hist.ValueAtQuantile(50)) * time.Microsecond
	p90 := time.Duration(s.hist.ValueAtQuantile(90)) * time.Microsecond
	p99 := time.Duration(s.hist.ValueAtQuantile(99)) * time.Microsecond
	s.mu.Unlock()

	return Report{
		RPS:            rps,
		Elapsed:        elapsed,
		Success:        success,
		Error:          errs,
		TotalRTTMicros: s.totalRTTMicros.Load(),
		TotalRetry:     s.totalRetry.Load(),
		P50:            p50,
		P90:            p90,
		P99:            p99,
	}
}
