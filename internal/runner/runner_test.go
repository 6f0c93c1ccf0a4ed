package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riftload/riftload/internal/globalstore"
	"github.com/riftload/riftload/internal/scenario"
	"github.com/riftload/riftload/internal/stats"
	"github.com/riftload/riftload/internal/transport"
	"github.com/riftload/riftload/pkg/funclib"
	"github.com/riftload/riftload/pkg/value"
)

func newTestRunner(scenarios []*scenario.Scenario) *Runner {
	return New(scenarios, globalstore.New(), funclib.NewEvaluator(), stats.New(), Params{ScenarioCount: len(scenarios)}, nil)
}

func TestMergeVarsOverwritesOnConflict(t *testing.T) {
	base := map[string]value.Value{"a": value.Int(1), "b": value.String("x")}
	extracted := []value.Variable{{Name: "a", Value: value.Int(2)}}
	merged := mergeVars(base, extracted)
	n, _ := merged["a"].AsInt()
	require.Equal(t, int32(2), n)
	require.Equal(t, "x", merged["b"].AsString())
}

func TestHandleDeliverySuccessAdvancesChain(t *testing.T) {
	step1 := &scenario.Scenario{
		Name:     "step1",
		Response: scenario.ResponseSpec{Status: 200},
		Extractors: []scenario.Extractor{
			{Name: "externalId", Source: scenario.SourceBody, Path: "ObjectId"},
		},
	}
	step2 := &scenario.Scenario{Name: "step2", Response: scenario.ResponseSpec{Status: 200}}

	r := newTestRunner([]*scenario.Scenario{step1, step2})

	resp := &transport.Response{Status: 200, RawBody: []byte(`{"ObjectId":"abc"}`), RequestStart: time.Now()}
	next, ok := r.handleDelivery(Delivery{Ctx: EventContext{ScenarioID: 0, Vars: map[string]value.Value{}}, Resp: resp})
	require.True(t, ok)
	require.Equal(t, 1, next.ScenarioID)
	require.Equal(t, "abc", next.Vars["externalId"].AsString())

	rep := r.Stats.Snapshot(time.Second)
	require.Equal(t, uint64(1), rep.Success)
}

func TestHandleDeliveryLastStepDoesNotContinue(t *testing.T) {
	only := &scenario.Scenario{Name: "only", Response: scenario.ResponseSpec{Status: 200}}
	r := newTestRunner([]*scenario.Scenario{only})
	resp := &transport.Response{Status: 200, RequestStart: time.Now()}
	_, ok := r.handleDelivery(Delivery{Ctx: EventContext{ScenarioID: 0, Vars: map[string]value.Value{}}, Resp: resp})
	require.False(t, ok)
}

func TestHandleDeliveryAssertionFailureGatesChain(t *testing.T) {
	step1 := &scenario.Scenario{Name: "step1", Response: scenario.ResponseSpec{Status: 200}}
	step2 := &scenario.Scenario{Name: "step2", Response: scenario.ResponseSpec{Status: 200}}
	r := newTestRunner([]*scenario.Scenario{step1, step2})

	resp := &transport.Response{Status: 500, RequestStart: time.Now()}
	_, ok := r.handleDelivery(Delivery{Ctx: EventContext{ScenarioID: 0, Vars: map[string]value.Value{}}, Resp: resp})
	require.False(t, ok)

	rep := r.Stats.Snapshot(time.Second)
	require.Equal(t, uint64(1), rep.Error)
	require.Equal(t, uint64(0), rep.Success)
}

func TestHandleDeliveryAssertPanicTerminatesWorker(t *testing.T) {
	step1 := &scenario.Scenario{Name: "step1", Response: scenario.ResponseSpec{Status: 200}, AssertPanic: true}
	r := newTestRunner([]*scenario.Scenario{step1})
	resp := &transport.Response{Status: 500, RequestStart: time.Now()}

	require.Panics(t, func() {
		r.handleDelivery(Delivery{Ctx: EventContext{ScenarioID: 0, Vars: map[string]value.Value{}}, Resp: resp})
	})
}

func TestHandleDeliveryTransportErrorIsCountedNotFatal(t *testing.T) {
	step1 := &scenario.Scenario{Name: "step1", Response: scenario.ResponseSpec{Status: 200}}
	r := newTestRunner([]*scenario.Scenario{step1})
	_, ok := r.handleDelivery(Delivery{Ctx: EventContext{ScenarioID: 0}, Err: errTestTransport})
	require.False(t, ok)
	rep := r.Stats.Snapshot(time.Second)
	require.Equal(t, uint64(1), rep.Error)
}

func TestRunScriptSeedsFromAccumulatedVars(t *testing.T) {
	steps := []scenario.ScriptStep{
		{Ret: "counter", Fn: funclib.Function{Kind: funclib.Plus}, Args: []scenario.ScriptArg{
			{IsRef: true, Ref: "counter"},
			{Constant: value.Int(1)},
		}},
	}
	vars := map[string]value.Value{"counter": value.Int(4)}
	merged, err := runScript(steps, vars, globalstore.New(), funclib.NewEvaluator())
	require.NoError(t, err)
	n, _ := merged["counter"].AsInt()
	require.Equal(t, int32(5), n)
}

var errTestTransport = &testTransportErr{}

type testTransportErr struct{}

func (e *testTransportErr) Error() string { return "simulated transport failure" }
