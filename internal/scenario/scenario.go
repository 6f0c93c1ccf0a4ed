package scenario

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/riftload/riftload/internal/globalstore"
	"github.com/riftload/riftload/internal/transport"
	"github.com/riftload/riftload/pkg/funclib"
	"github.com/riftload/riftload/pkg/value"
)

// HeaderAssertKind selects how a response header is checked.
type HeaderAssertKind int

const (
	HeaderNotNull HeaderAssertKind = iota
	HeaderEqual
)

// HeaderAssert is one response-header assertion. Name matching is
// case-insensitive, per spec.md §9 open-question resolution.
type HeaderAssert struct {
	Name  string
	Kind  HeaderAssertKind
	Value string
}

// BodyAssertKind selects how a body leaf is checked.
type BodyAssertKind int

const (
	BodyNotNull BodyAssertKind = iota
	BodyEqualString
	BodyEqualNumber
)

// BodyAssert is one dot-separated-path body assertion (spec.md §6:
// "assert.body entries use dot-separated nested keys").
type BodyAssert struct {
	Path   string
	Kind   BodyAssertKind
	String string
	Number float64
}

// ResponseSpec is a scenario's full expected-response contract.
type ResponseSpec struct {
	Status  int
	Headers []HeaderAssert
	Body    []BodyAssert
}

// ExtractSource selects where an Extractor reads its value from.
type ExtractSource int

const (
	SourceHeader ExtractSource = iota
	SourceBody
)

// Extractor maps one response field to a named chain variable,
// applied only on assertion success (spec.md §4.4).
type Extractor struct {
	Name   string
	Source ExtractSource
	Path   string
	Fn     *funclib.Function
}

// Scenario is one immutable step of a chain: a templated request plus
// its expected response and the variables it produces.
type Scenario struct {
	Name    string
	BaseURL string
	Method  string
	Path    *Template
	Headers map[string]string
	Body    *Template
	Timeout time.Duration

	Response ResponseSpec

	Extractors []Extractor

	PreScript  []ScriptStep
	PostScript []ScriptStep

	AssertPanic bool
}

// ScriptStep mirrors internal/script.Step without importing that
// package's Context type, so scenario stays free to run scripts
// against whatever Resolver/store pairing the runner assembles.
type ScriptStep struct {
	Ret  string
	Fn   funclib.Function
	Args []ScriptArg
}

// ScriptArg is a script-step argument: constant or variable reference.
type ScriptArg struct {
	IsRef    bool
	Constant value.Value
	Ref      string
}

// NextRequest substitutes every `${name}` occurrence in the path and
// body templates against vars (checked first) then global, prepends
// base_url to the path, and returns a fully materialized transport
// request. Fails if any referenced variable is unbound.
func (s *Scenario) NextRequest(vars map[string]value.Value, global *globalstore.Store) (*transport.Request, error) {
	resolve := func(name string) (value.Value, bool) {
		if v, ok := vars[name]; ok {
			return v, true
		}
		if global != nil {
			if v, ok := global.Get(name); ok {
				return v, true
			}
		}
		return value.Value{}, false
	}

	path, err := s.Path.Execute(resolve)
	if err != nil {
		return nil, err
	}

	var body []byte
	if s.Body != nil {
		bodyStr, err := s.Body.Execute(resolve)
		if err != nil {
			return nil, err
		}
		body = []byte(bodyStr)
	}

	headers := make(map[string]string, len(s.Headers))
	for k, v := range s.Headers {
		headers[k] = v
	}

	return &transport.Request{
		Method:  s.Method,
		URL:     s.BaseURL + path,
		Headers: headers,
		Body:    body,
		Timeout: s.Timeout,
	}, nil
}

// AssertResponse checks resp against s.Response in order: status,
// then headers, then body. Returns the first failure encountered, or
// nil if every assertion passed.
func (s *Scenario) AssertResponse(resp *transport.Response) error {
	if resp.Status != s.Response.Status {
		return &AssertionError{
			Kind:     "status",
			Expected: strconv.Itoa(s.Response.Status),
			Actual:   strconv.Itoa(resp.Status),
		}
	}

	for _, h := range s.Response.Headers {
		actual, present := lookupHeaderCI(resp.Headers, h.Name)
		switch h.Kind {
		case HeaderNotNull:
			if !present {
				return &AssertionError{Kind: "header", Path: h.Name, Expected: "present", Actual: "absent"}
			}
		case HeaderEqual:
			if !present || actual != h.Value {
				return &AssertionError{Kind: "header", Path: h.Name, Expected: h.Value, Actual: actual}
			}
		}
	}

	for _, b := range s.Response.Body {
		result := gjson.GetBytes(resp.RawBody, b.Path)
		if err := checkBodyAssert(b, result); err != nil {
			return err
		}
	}

	return nil
}

func checkBodyAssert(b BodyAssert, result gjson.Result) error {
	if result.IsArray() {
		return &AssertionError{Kind: "body", Path: b.Path, Expected: "scalar", Actual: "array (unsupported)"}
	}
	if result.IsObject() {
		return &AssertionError{Kind: "body", Path: b.Path, Expected: "scalar", Actual: "object (unsupported)"}
	}

	switch b.Kind {
	case BodyNotNull:
		if !result.Exists() {
			return &AssertionError{Kind: "body", Path: b.Path, Expected: "present", Actual: "absent"}
		}
	case BodyEqualString:
		if !result.Exists() || result.String() != b.String {
			return &AssertionError{Kind: "body", Path: b.Path, Expected: b.String, Actual: result.String()}
		}
	case BodyEqualNumber:
		if !result.Exists() || result.Num != b.Number {
			return &AssertionError{Kind: "body", Path: b.Path, Expected: fmt.Sprintf("%v", b.Number), Actual: fmt.Sprintf("%v", result.Num)}
		}
	}
	return nil
}

// UpdateVariables runs every extractor against resp, coercing numeric
// JSON leaves to Int and every other leaf to String, and returns the
// resulting Variable set. An extractor whose source is absent is
// simply skipped (spec.md §7: "Extraction failure ... the variable is
// simply not bound"), never an error.
func (s *Scenario) UpdateVariables(resp *transport.Response, eval *funclib.Evaluator) ([]value.Variable, error) {
	out := make([]value.Variable, 0, len(s.Extractors))
	for _, ex := range s.Extractors {
		var v value.Value
		var ok bool

		switch ex.Source {
		case SourceHeader:
			raw, present := lookupHeaderCI(resp.Headers, ex.Path)
			if present {
				v, ok = value.String(raw), true
			}
		case SourceBody:
			result := gjson.GetBytes(resp.RawBody, ex.Path)
			if result.Exists() && !result.IsArray() && !result.IsObject() {
				if result.Type == gjson.Number {
					v, ok = value.Int(int32(result.Num)), true
				} else {
					v, ok = value.String(result.String()), true
				}
			}
		}
		if !ok {
			continue
		}

		if ex.Fn != nil {
			if err := ex.Fn.CheckArity(1); err != nil {
				return out, err
			}
			result, err := eval.Eval(*ex.Fn, []value.Value{v})
			if err != nil {
				return out, err
			}
			v = result
		}

		out = append(out, value.Variable{Name: ex.Name, Value: v})
	}
	return out, nil
}

func lookupHeaderCI(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if equalFoldASCII(k, name) {
			return v, true
		}
	}
	return "", false
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
