package funclib

import (
	"testing"
	"time"

	"github.com/riftload/riftload/pkg/value"
	"github.com/stretchr/testify/require"
)

func fixedEvaluator(now time.Time, rngValue int32) *Evaluator {
	return &Evaluator{
		Now: func() time.Time { return now },
		Rng: func(min, max int32) int32 { return rngValue },
	}
}

func TestSplitFirstLastNth(t *testing.T) {
	e := fixedEvaluator(time.Now(), 0)

	last := Function{Kind: Split, Delim: "/", Index: SplitIndex{Kind: Last}}
	v, err := e.Eval(last, []value.Value{value.String("http://localhost:8080/test/v1/foo/12345")})
	require.NoError(t, err)
	require.Equal(t, "12345", v.AsString())

	first := Function{Kind: Split, Delim: ",", Index: SplitIndex{Kind: First}}
	v, err = e.Eval(first, []value.Value{value.String("a,b,c")})
	require.NoError(t, err)
	require.Equal(t, "a", v.AsString())

	nth := Function{Kind: Split, Delim: ",", Index: SplitIndex{Kind: Nth, N: 1}}
	v, err = e.Eval(nth, []value.Value{value.String("a,b,c")})
	require.NoError(t, err)
	require.Equal(t, "b", v.AsString())
}

func TestSplitOutOfRangeYieldsEmpty(t *testing.T) {
	e := fixedEvaluator(time.Now(), 0)
	nth := Function{Kind: Split, Delim: ",", Index: SplitIndex{Kind: Nth, N: 10}}
	v, err := e.Eval(nth, []value.Value{value.String("a,b,c")})
	require.NoError(t, err)
	require.Equal(t, "", v.AsString())
}

func TestSplitJoinRoundTrip(t *testing.T) {
	e := fixedEvaluator(time.Now(), 0)
	segments := []string{"a", "b", "last"}
	joined := segments[0] + "/" + segments[1] + "/" + segments[2]

	last := Function{Kind: Split, Delim: "/", Index: SplitIndex{Kind: Last}}
	v, err := e.Eval(last, []value.Value{value.String(joined)})
	require.NoError(t, err)
	require.Equal(t, "last", v.AsString())
}

func TestRandomInRange(t *testing.T) {
	e := NewEvaluator()
	fn := Function{Kind: Random, Min: 5, Max: 10}
	for i := 0; i < 100; i++ {
		v, err := e.Eval(fn, nil)
		require.NoError(t, err)
		n, err := v.AsInt()
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, int32(5))
		require.LessOrEqual(t, n, int32(10))
	}
}

func TestPlusCommutative(t *testing.T) {
	e := fixedEvaluator(time.Now(), 0)
	fn := Function{Kind: Plus}
	a, b := value.Int(3), value.Int(4)
	v1, err := e.Eval(fn, []value.Value{a, b})
	require.NoError(t, err)
	v2, err := e.Eval(fn, []value.Value{b, a})
	require.NoError(t, err)
	require.Equal(t, v1.AsString(), v2.AsString())
}

func TestPlusCoercesStrings(t *testing.T) {
	e := fixedEvaluator(time.Now(), 0)
	fn := Function{Kind: Plus}
	v, err := e.Eval(fn, []value.Value{value.String("2"), value.Int(3)})
	require.NoError(t, err)
	n, err := v.AsInt()
	require.NoError(t, err)
	require.Equal(t, int32(5), n)
}

func TestPlusBadCoercionIsError(t *testing.T) {
	e := fixedEvaluator(time.Now(), 0)
	fn := Function{Kind: Plus}
	_, err := e.Eval(fn, []value.Value{value.String("nope"), value.Int(1)})
	require.Error(t, err)
}

func TestCopyPreservesVariant(t *testing.T) {
	e := fixedEvaluator(time.Now(), 0)
	fn := Function{Kind: Copy}

	vi, err := e.Eval(fn, []value.Value{value.Int(42)})
	require.NoError(t, err)
	require.True(t, vi.IsInt())
	n, _ := vi.AsInt()
	require.Equal(t, int32(42), n)

	vs, err := e.Eval(fn, []value.Value{value.String("hello")})
	require.NoError(t, err)
	require.True(t, vs.IsString())
	require.Equal(t, "hello", vs.AsString())
}

func TestNowWithoutFormatIsRFC3339UTC(t *testing.T) {
	fixed := time.Date(2026, 7, 30, 12, 0, 0, 0, time.FixedZone("X", 3600))
	e := fixedEvaluator(fixed, 0)
	v, err := e.Eval(Function{Kind: Now}, nil)
	require.NoError(t, err)
	require.Equal(t, fixed.UTC().Format(time.RFC3339), v.AsString())
}

func TestNowWithFormatIsTenCharDate(t *testing.T) {
	fixed := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	e := fixedEvaluator(fixed, 0)
	v, err := e.Eval(Function{Kind: Now}, []value.Value{value.String("%Y-%m-%d")})
	require.NoError(t, err)
	require.Len(t, v.AsString(), 10)
	require.Equal(t, "2026-07-30", v.AsString())
}

func TestCheckArity(t *testing.T) {
	require.NoError(t, Function{Kind: Plus}.CheckArity(2))
	require.Error(t, Function{Kind: Plus}.CheckArity(1))
	require.NoError(t, Function{Kind: Copy}.CheckArity(1))
	require.Error(t, Function{Kind: Copy}.CheckArity(0))
	require.NoError(t, Function{Kind: Random}.CheckArity(0))
	require.Error(t, Function{Kind: Random}.CheckArity(1))
	require.NoError(t, Function{Kind: Now}.CheckArity(0))
	require.NoError(t, Function{Kind: Now}.CheckArity(1))
	require.Error(t, Function{Kind: Now}.CheckArity(2))
	require.NoError(t, Function{Kind: Split}.CheckArity(1))
	require.Error(t, Function{Kind: Split}.CheckArity(2))
}
