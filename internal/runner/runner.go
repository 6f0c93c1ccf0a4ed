package runner

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/riftload/riftload/internal/globalstore"
	"github.com/riftload/riftload/internal/rlog"
	"github.com/riftload/riftload/internal/scenario"
	"github.com/riftload/riftload/internal/script"
	"github.com/riftload/riftload/internal/stats"
	"github.com/riftload/riftload/internal/transport"
	"github.com/riftload/riftload/pkg/funclib"
	"github.com/riftload/riftload/pkg/value"
)

// errWorkerTerminated is returned by Run when a scenario's AssertPanic
// flag fired: spec.md §7, "if assert_panic is set, terminates the
// worker" — its report is never produced; the aggregator tolerates
// the gap.
var errWorkerTerminated = errors.New("worker terminated: assert_panic triggered")

// workerTerminated is the sentinel panic value Run recovers from to
// implement assert_panic without crashing the process — "terminates
// the worker" is realized literally as a panic confined to one
// worker's goroutine.
type workerTerminated struct{ cause error }

// Runner drives one worker's scenario chain at the derived pacing
// parameters (spec.md §4.5). One Runner owns exactly one Dispatcher,
// one Global store, and the scenario chain it repeats every tick.
type Runner struct {
	Scenarios  []*scenario.Scenario
	Global     *globalstore.Store
	Eval       *funclib.Evaluator
	Stats      *stats.ApiStats
	Params     Params
	Dispatcher *Dispatcher
}

// New returns a Runner ready to drive scenarios over dispatcher.
func New(scenarios []*scenario.Scenario, global *globalstore.Store, eval *funclib.Evaluator, st *stats.ApiStats, params Params, dispatcher *Dispatcher) *Runner {
	return &Runner{Scenarios: scenarios, Global: global, Eval: eval, Stats: st, Params: params, Dispatcher: dispatcher}
}

// Run executes Params.TotalIterations ticks, each emitting BatchSize
// chain starts and following every chain to completion or gate,
// then terminates the dispatcher and returns the accumulated report.
func (r *Runner) Run(ctx context.Context) (rep stats.Report, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			if _, ok := rec.(workerTerminated); ok {
				err = errWorkerTerminated
				return
			}
			panic(rec)
		}
	}()

	ticker := time.NewTicker(r.Params.TickInterval)
	defer ticker.Stop()

	for iter := 0; iter < r.Params.TotalIterations; iter++ {
		select {
		case <-ctx.Done():
			r.Dispatcher.Commands() <- Terminate{}
			return r.Stats.Snapshot(time.Since(start)), ctx.Err()
		case <-ticker.C:
		}
		r.runIteration()
	}

	r.Dispatcher.Commands() <- Terminate{}
	return r.Stats.Snapshot(time.Since(start)), nil
}

// runIteration emits BatchSize chain starts and follows each chain,
// tracking a pending-delivery counter rather than a fixed target: a
// chain that is gated by a failed assertion produces fewer
// deliveries than a fully-completed chain would, and the pending
// counter accounts for that naturally instead of blocking forever on
// responses that an earlier gate prevented from ever being emitted.
func (r *Runner) runIteration() {
	reply := make(chan Delivery, r.Params.BatchSize*r.Params.ScenarioCount)
	pending := 0

	for b := 0; b < r.Params.BatchSize; b++ {
		r.emitStep(reply, EventContext{ScenarioID: 0, Vars: map[string]value.Value{}})
		pending++
	}

	for pending > 0 {
		d := <-reply
		pending--
		if next, ok := r.handleDelivery(d); ok {
			r.emitStep(reply, next)
			pending++
		}
	}
}

// emitStep runs ectx's scenario's pre-script (if any), builds the
// request, and either hands it to the dispatcher or — on a
// templating/script error — synthesizes the failing Delivery directly
// so the iteration's pending count stays balanced.
func (r *Runner) emitStep(reply chan Delivery, ectx EventContext) {
	sc := r.Scenarios[ectx.ScenarioID]

	vars := ectx.Vars
	if len(sc.PreScript) > 0 {
		merged, err := runScript(sc.PreScript, vars, r.Global, r.Eval)
		if err != nil {
			reply <- Delivery{Ctx: ectx, Err: err}
			return
		}
		vars = merged
	}

	req, err := sc.NextRequest(vars, r.Global)
	if err != nil {
		reply <- Delivery{Ctx: ectx, Err: err}
		return
	}

	r.Dispatcher.Commands() <- SendMessage{
		Ctx:   EventContext{ScenarioID: ectx.ScenarioID, Vars: vars},
		Req:   req,
		Reply: reply,
	}
}

// handleDelivery asserts, extracts, and (on success, when not the
// last step) returns the EventContext for the next chain step.
func (r *Runner) handleDelivery(d Delivery) (EventContext, bool) {
	sc := r.Scenarios[d.Ctx.ScenarioID]

	if d.Err != nil {
		retries := 0
		if d.Resp != nil {
			retries = d.Resp.RetryCount
		}
		r.Stats.IncError(retries)
		return EventContext{}, false
	}

	if err := sc.AssertResponse(d.Resp); err != nil {
		r.Stats.IncError(d.Resp.RetryCount)
		if sc.AssertPanic {
			panic(workerTerminated{cause: err})
		}
		return EventContext{}, false
	}

	rtt := time.Since(d.Resp.RequestStart)
	r.Stats.IncSuccess(rtt, d.Resp.RetryCount)

	extracted, err := sc.UpdateVariables(d.Resp, r.Eval)
	if err != nil {
		rlog.Warnf("extraction function failed for scenario %q: %v", sc.Name, err)
	}
	vars := mergeVars(d.Ctx.Vars, extracted)

	if len(sc.PostScript) > 0 {
		merged, err := runScript(sc.PostScript, vars, r.Global, r.Eval)
		if err != nil {
			rlog.Warnf("post-script failed for scenario %q: %v", sc.Name, err)
			return EventContext{}, false
		}
		vars = merged
	}

	nextID := d.Ctx.ScenarioID + 1
	if nextID >= len(r.Scenarios) {
		return EventContext{}, false
	}
	return EventContext{ScenarioID: nextID, Vars: vars}, true
}

// runScript seeds a script.Context's local scope with vars (so a
// script step can reference any already-accumulated chain variable),
// runs steps against it, and returns the resulting local scope as the
// new accumulated variable set — which already encodes "script
// outputs are later than what they were seeded with" (spec.md §9).
func runScript(steps []scenario.ScriptStep, vars map[string]value.Value, global *globalstore.Store, eval *funclib.Evaluator) (map[string]value.Value, error) {
	ctx := script.NewContext(global)
	for k, v := range vars {
		ctx.Local[k] = v
	}

	converted := make([]script.Step, len(steps))
	for i, st := range steps {
		args := make([]script.Arg, len(st.Args))
		for j, a := range st.Args {
			if a.IsRef {
				args[j] = script.RefArg(a.Ref)
			} else {
				args[j] = script.ConstArg(a.Constant)
			}
		}
		converted[i] = script.Step{Ret: st.Ret, Fn: st.Fn, Args: args}
	}

	if err := script.Run(ctx, eval, converted); err != nil {
		return vars, err
	}
	return ctx.Local, nil
}

func mergeVars(base map[string]value.Value, extracted []value.Variable) map[string]value.Value {
	out := make(map[string]value.Value, len(base)+len(extracted))
	for k, v := range base {
		out[k] = v
	}
	for _, v := range extracted {
		out[v.Name] = v.Value
	}
	return out
}

// RunWorker is one worker's full lifecycle: dial, run the dispatcher
// and runner concurrently, tear down. It pins its goroutine to one OS
// thread for the run's duration, approximating spec.md §5's "task
// executor pinned to one OS thread" as closely as Go's scheduler
// allows.
func RunWorker(ctx context.Context, baseURL string, scenarios []*scenario.Scenario, global *globalstore.Store, eval *funclib.Evaluator, params Params) (stats.Report, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	runID := uuid.NewString()
	rlog.Debugf("worker %s starting against %s", runID, baseURL)

	conn, err := transport.Dial(baseURL)
	if err != nil {
		rlog.Errorf("worker %s: dial failed: %v", runID, err)
		return stats.Report{}, err
	}
	defer conn.Close()

	dispatcher := NewDispatcher(conn)
	go dispatcher.Run(ctx)

	st := stats.New()
	r := New(scenarios, global, eval, st, params, dispatcher)
	rep, err := r.Run(ctx)
	if err != nil {
		rlog.Warnf("worker %s terminated: %v", runID, err)
	} else {
		rlog.Debugf("worker %s completed: success=%d error=%d", runID, rep.Success, rep.Error)
	}
	return rep, err
}
