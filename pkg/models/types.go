// Package models holds the declarative, YAML-shaped configuration
// types (spec.md §6): the raw structures gopkg.in/yaml.v3 unmarshals
// into, before pkg/config converts them into the core's runtime types
// (scenario.Scenario, runner.Params, and so on). Grounded on the
// teacher's pkg/models/types.go and pkg/config/config.go nested
// struct shapes, re-keyed to this spec's field names, and on
// original_source/src/config.rs for the exact field set.
package models

// Config is the top-level configuration document.
type Config struct {
	LogLevel string       `yaml:"log_level"`
	Parallel int          `yaml:"parallel"`
	Runner   RunnerConfig `yaml:"runner"`
}

// RunnerConfig is the runner section (spec.md §6 "runner").
type RunnerConfig struct {
	TargetRPS int              `yaml:"target_rps"`
	Duration  string           `yaml:"duration"`
	BatchSize BatchSize        `yaml:"batch_size"`
	BaseURL   string           `yaml:"base_url"`
	Global    GlobalConfig     `yaml:"global"`
	Scenarios []ScenarioConfig `yaml:"scenarios"`
}

// BatchSize parses either an integer or the literal string "Auto"
// (spec.md §6: "batch_size: integer, or the literal \"Auto\"").
type BatchSize struct {
	Auto  bool
	Fixed int
}

// UnmarshalYAML accepts a scalar int or the string "Auto".
func (b *BatchSize) UnmarshalYAML(unmarshal func(any) error) error {
	var asString string
	if err := unmarshal(&asString); err == nil {
		if asString == "Auto" || asString == "auto" {
			b.Auto = true
			return nil
		}
	}
	var asInt int
	if err := unmarshal(&asInt); err != nil {
		return err
	}
	b.Fixed = asInt
	return nil
}

// GlobalConfig declares the worker-startup Global store contents.
type GlobalConfig struct {
	Variables []VariableConfig `yaml:"variables"`
}

// VariableConfig is one global-store entry: either a literal Value or
// a zero-arg initializer Function, evaluated once by config.Build;
// every worker seeds its Global store from that one result.
type VariableConfig struct {
	Name     string          `yaml:"name"`
	Value    any             `yaml:"value,omitempty"`
	Function *FunctionConfig `yaml:"function,omitempty"`
}

// FunctionConfig is the YAML encoding of the closed funclib.Function
// variant.
type FunctionConfig struct {
	Kind  string `yaml:"kind"`
	Delim string `yaml:"delim,omitempty"`
	Index string `yaml:"index,omitempty"`
	N     int    `yaml:"n,omitempty"`
	Min   int32  `yaml:"min,omitempty"`
	Max   int32  `yaml:"max,omitempty"`
}

// ScenarioConfig is one ordered chain step (spec.md §6 "scenarios").
type ScenarioConfig struct {
	Name        string             `yaml:"name"`
	Request     RequestConfig      `yaml:"request"`
	Response    ResponseConfig     `yaml:"response"`
	PreScript   []ScriptStepConfig `yaml:"pre-script"`
	PostScript  []ScriptStepConfig `yaml:"post-script"`
	AssertPanic bool               `yaml:"assert_panic"`
}

// RequestConfig is a scenario's request template.
type RequestConfig struct {
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    string            `yaml:"body,omitempty"`
	Timeout string            `yaml:"timeout"`
}

// ResponseConfig is a scenario's expected response and the variables
// it defines on success.
type ResponseConfig struct {
	Assert AssertConfig      `yaml:"assert"`
	Define []ExtractorConfig `yaml:"define,omitempty"`
}

// AssertConfig is the response-assertion contract.
type AssertConfig struct {
	Status  int                  `yaml:"status"`
	Headers []HeaderAssertConfig `yaml:"headers,omitempty"`
	Body    []BodyAssertConfig   `yaml:"body,omitempty"`
}

// HeaderAssertConfig checks one response header.
type HeaderAssertConfig struct {
	Name    string  `yaml:"name"`
	NotNull bool    `yaml:"not_null,omitempty"`
	Equal   *string `yaml:"equal,omitempty"`
}

// BodyAssertConfig checks one dotted JSON path in the response body.
type BodyAssertConfig struct {
	Path        string   `yaml:"path"`
	NotNull     bool     `yaml:"not_null,omitempty"`
	EqualString *string  `yaml:"equal_string,omitempty"`
	EqualNumber *float64 `yaml:"equal_number,omitempty"`
}

// ExtractorConfig maps one response field to a named chain variable.
type ExtractorConfig struct {
	Name     string          `yaml:"name"`
	From     string          `yaml:"from"`
	Path     string          `yaml:"path"`
	Function *FunctionConfig `yaml:"function,omitempty"`
}

// ScriptStepConfig is one `ret = fn(args...)` pre/post-script step.
type ScriptStepConfig struct {
	Ret  string            `yaml:"ret"`
	Fn   FunctionConfig    `yaml:"fn"`
	Args []ScriptArgConfig `yaml:"args,omitempty"`
}

// ScriptArgConfig is a script-step argument: exactly one of Var or
// Const is set.
type ScriptArgConfig struct {
	Var   *string `yaml:"var,omitempty"`
	Const any     `yaml:"const,omitempty"`
}
