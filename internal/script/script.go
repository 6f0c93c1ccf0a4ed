// Package script implements the single-assignment expression evaluator
// used by scenario pre/post hooks: ordered steps of the form
// `name = fn(arg, ...)`, resolved against a two-tier (local, global)
// variable context. Grounded on this codebase's own
// placeholder-resolution pipeline and original_source/src/script.rs's
// ScriptVariable::exec dispatch, generalized to the closed funclib
// variant.
package script

import (
	"fmt"

	"github.com/riftload/riftload/internal/globalstore"
	"github.com/riftload/riftload/pkg/funclib"
	"github.com/riftload/riftload/pkg/value"
)

// Error is returned for unbound variables and arity/type mismatches —
// never a panic, per spec.md §4.2 and §7.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

func errorf(format string, args ...any) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// Arg is one resolved-or-unresolved script-step argument: either a
// constant Value or a reference to a variable name.
type Arg struct {
	IsRef    bool
	Constant value.Value
	Ref      string
}

// ConstArg builds a literal-valued Arg.
func ConstArg(v value.Value) Arg { return Arg{Constant: v} }

// RefArg builds a variable-reference Arg.
func RefArg(name string) Arg { return Arg{IsRef: true, Ref: name} }

// Step is one `ret = fn(args...)` assignment in execution order.
type Step struct {
	Ret  string
	Fn   funclib.Function
	Args []Arg
}

// Context is the per-chain-iteration scripting environment: local
// bindings shadow the worker's Global store, and the lifetime of Context
// is exactly one scenario-chain iteration.
type Context struct {
	Local  map[string]value.Value
	Global *globalstore.Store
}

// NewContext returns a Context with an empty local scope bound to global.
func NewContext(global *globalstore.Store) *Context {
	return &Context{Local: make(map[string]value.Value), Global: global}
}

// Resolve looks up name, preferring Local over Global, per spec.md §4.2.
func (c *Context) Resolve(name string) (value.Value, error) {
	if v, ok := c.Local[name]; ok {
		return v, nil
	}
	if c.Global != nil {
		if v, ok := c.Global.Get(name); ok {
			return v, nil
		}
	}
	return value.Value{}, errorf("Variable '%s' not found", name)
}

// resolveArg resolves a single Arg against ctx.
func (c *Context) resolveArg(a Arg) (value.Value, error) {
	if !a.IsRef {
		return a.Constant, nil
	}
	return c.Resolve(a.Ref)
}

// Run evaluates steps in order against ctx and evaluator, writing each
// step's result to ctx.Local[ret] and, when ret names an existing Global
// entry, back to the Global store atomically (spec.md §4.2 step 3).
// Evaluation stops at the first error.
func Run(ctx *Context, evaluator *funclib.Evaluator, steps []Step) error {
	for _, step := range steps {
		args := make([]value.Value, len(step.Args))
		for i, a := range step.Args {
			v, err := ctx.resolveArg(a)
			if err != nil {
				return err
			}
			args[i] = v
		}

		if err := step.Fn.CheckArity(len(args)); err != nil {
			return &Error{msg: err.Error()}
		}

		result, err := evaluator.Eval(step.Fn, args)
		if err != nil {
			return &Error{msg: err.Error()}
		}

		ctx.Local[step.Ret] = result
		if ctx.Global != nil && ctx.Global.Has(step.Ret) {
			ctx.Global.Set(step.Ret, result)
		}
	}
	return nil
}
