// Package funclib implements the closed set of pure functions the script
// engine can invoke: Split, Random, Now, Plus, Copy. Each is a variant of
// the Function tagged union rather than a polymorphic interface, so arity
// and argument validation is total and checkable without reflection.
package funclib

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/riftload/riftload/pkg/value"
)

// Kind identifies which Function variant is in play.
type Kind int

const (
	Split Kind = iota
	Random
	Now
	Plus
	Copy
)

func (k Kind) String() string {
	switch k {
	case Split:
		return "Split"
	case Random:
		return "Random"
	case Now:
		return "Now"
	case Plus:
		return "Plus"
	case Copy:
		return "Copy"
	default:
		return "Unknown"
	}
}

// SplitIndexKind picks which token Split returns.
type SplitIndexKind int

const (
	First SplitIndexKind = iota
	Last
	Nth
)

// SplitIndex selects the token returned by a Split function; N is only
// meaningful when Kind == Nth.
type SplitIndex struct {
	Kind SplitIndexKind
	N    int
}

// Function is the closed tagged variant of operations the script engine
// can invoke. Exactly one of the per-kind fields is populated, matching
// the value of Kind — callers should not inspect fields for a Kind other
// than the one set.
type Function struct {
	Kind Kind

	// Split fields.
	Delim string
	Index SplitIndex

	// Random fields.
	Min, Max int32
}

// Arity returns the number of arguments a Function of this kind requires.
// Now is variadic between 0 and 1; Arity returns -1 for it and callers
// must use CheckArity instead of a direct comparison.
func (f Function) Arity() int {
	switch f.Kind {
	case Plus:
		return 2
	case Copy, Split:
		return 1
	case Random:
		return 0
	case Now:
		return -1
	default:
		return -1
	}
}

// CheckArity validates the number of evaluated arguments against what
// this Function's kind accepts. Now accepts 0 or 1.
func (f Function) CheckArity(n int) error {
	switch f.Kind {
	case Now:
		if n == 0 || n == 1 {
			return nil
		}
		return fmt.Errorf("Now: expected 0 or 1 argument, got %d", n)
	default:
		want := f.Arity()
		if n != want {
			return fmt.Errorf("%s: expected %d argument(s), got %d", f.Kind, want, n)
		}
		return nil
	}
}

// Clock and Rng are the replaceable seams spec.md §3 requires: Now and
// Random must be deterministic in tests. NewEvaluator wires the default
// wall-clock/PRNG seams; tests construct an Evaluator with fakes.
type Clock func() time.Time
type Rng func(min, max int32) int32

// Evaluator invokes Function variants against already-resolved arguments.
// It is the only place impurity (current time, randomness) enters the
// script engine.
type Evaluator struct {
	Now func() time.Time
	Rng func(min, max int32) int32
}

// NewEvaluator returns an Evaluator wired to the real wall clock and a
// real PRNG (math/rand/v2, auto-seeded).
func NewEvaluator() *Evaluator {
	return &Evaluator{
		Now: time.Now,
		Rng: func(min, max int32) int32 {
			if max <= min {
				return min
			}
			return min + rand.Int32N(max-min+1)
		},
	}
}

// Eval invokes fn with already-resolved args, after arity validation by
// the caller (the script engine performs CheckArity before calling Eval
// so that arity errors carry the Error shape callers expect, not a panic).
func (e *Evaluator) Eval(fn Function, args []value.Value) (value.Value, error) {
	switch fn.Kind {
	case Split:
		input, err := asString(args[0])
		if err != nil {
			return value.Value{}, err
		}
		return value.String(splitApply(input, fn.Delim, fn.Index)), nil

	case Random:
		return value.Int(e.Rng(fn.Min, fn.Max)), nil

	case Now:
		if len(args) == 0 {
			return value.String(e.Now().UTC().Format(time.RFC3339)), nil
		}
		format, err := asString(args[0])
		if err != nil {
			return value.Value{}, err
		}
		return value.String(strftimeFormat(e.Now().UTC(), format)), nil

	case Plus:
		a, err := args[0].AsInt()
		if err != nil {
			return value.Value{}, err
		}
		b, err := args[1].AsInt()
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(a + b), nil

	case Copy:
		return args[0].Clone(), nil

	default:
		return value.Value{}, fmt.Errorf("unknown function kind %v", fn.Kind)
	}
}

func asString(v value.Value) (string, error) {
	return v.AsString(), nil
}

// splitApply tokenizes input on delim and returns the token at idx,
// or the empty string when idx is out of range.
func splitApply(input, delim string, idx SplitIndex) string {
	parts := strings.Split(input, delim)
	switch idx.Kind {
	case First:
		if len(parts) == 0 {
			return ""
		}
		return parts[0]
	case Last:
		if len(parts) == 0 {
			return ""
		}
		return parts[len(parts)-1]
	case Nth:
		if idx.N < 0 || idx.N >= len(parts) {
			return ""
		}
		return parts[idx.N]
	default:
		return ""
	}
}

// strftimeFormat supports the subset of strftime directives the
// scripting config surface exposes (%Y, %m, %d, %H, %M, %S), falling
// back to Go's reference-time layout when the format string contains no
// '%' (so operators can also pass a Go layout directly).
func strftimeFormat(t time.Time, format string) string {
	if !strings.Contains(format, "%") {
		return t.Format(format)
	}
	replacer := strings.NewReplacer(
		"%Y", strconv.Itoa(t.Year()),
		"%m", pad2(int(t.Month())),
		"%d", pad2(t.Day()),
		"%H", pad2(t.Hour()),
		"%M", pad2(t.Minute()),
		"%S", pad2(t.Second()),
	)
	return replacer.Replace(format)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
