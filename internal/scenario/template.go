// Package scenario implements declarative request chains: templated
// request bodies/URIs, response assertions, and variable extraction
// (spec.md §4.4). Template compilation reuses this codebase's
// pre-compile-at-load-time pattern, re-keyed from its original
// `{{name}}` delimiters to spec.md's `${name}` syntax.
package scenario

import (
	"strings"

	"github.com/riftload/riftload/pkg/value"
)

// part is one compiled fragment of a template: either literal text or
// a reference to a variable name.
type part struct {
	literal string
	isVar   bool
	name    string
}

// Template is a string pre-scanned for `${name}` occurrences, so that
// substitution at request time never re-parses the source text.
type Template struct {
	parts   []part
	varsSet map[string]struct{}
}

// CompileTemplate scans input once for `${name}` occurrences. An
// unterminated `${` is treated as literal text — a simple scan with
// no escaping and no nested braces.
func CompileTemplate(input string) *Template {
	t := &Template{varsSet: make(map[string]struct{})}
	i := 0
	var lit strings.Builder
	for i < len(input) {
		if input[i] == '$' && i+1 < len(input) && input[i+1] == '{' {
			end := strings.IndexByte(input[i+2:], '}')
			if end >= 0 {
				name := input[i+2 : i+2+end]
				if lit.Len() > 0 {
					t.parts = append(t.parts, part{literal: lit.String()})
					lit.Reset()
				}
				t.parts = append(t.parts, part{isVar: true, name: name})
				t.varsSet[name] = struct{}{}
				i = i + 2 + end + 1
				continue
			}
		}
		lit.WriteByte(input[i])
		i++
	}
	if lit.Len() > 0 {
		t.parts = append(t.parts, part{literal: lit.String()})
	}
	return t
}

// VarNames returns the distinct variable names referenced by t, in no
// particular order.
func (t *Template) VarNames() []string {
	names := make([]string, 0, len(t.varsSet))
	for n := range t.varsSet {
		names = append(names, n)
	}
	return names
}

// HasVars reports whether t references any variable at all — callers
// use this to skip substitution entirely for static templates.
func (t *Template) HasVars() bool { return len(t.varsSet) > 0 }

// Resolver looks up a variable by name, local context first.
type Resolver func(name string) (value.Value, bool)

// Execute substitutes every `${name}` in t via resolve, failing with
// a descriptive error naming the first unbound variable encountered.
func (t *Template) Execute(resolve Resolver) (string, error) {
	if !t.HasVars() {
		if len(t.parts) == 1 {
			return t.parts[0].literal, nil
		}
		return "", nil
	}
	var b strings.Builder
	for _, p := range t.parts {
		if !p.isVar {
			b.WriteString(p.literal)
			continue
		}
		v, ok := resolve(p.name)
		if !ok {
			return "", errorf("Variable '%s' not found", p.name)
		}
		b.WriteString(v.AsString())
	}
	return b.String(), nil
}
