// Package config loads and validates riftload's declarative YAML
// configuration (spec.md §6) and converts it into the runtime types
// the core consumes: scenario.Scenario chains, runner.Params inputs,
// and startup Global-store seeds. Reuses this codebase's existing
// YAML-loading and hinted-error-reporting shapes, re-keyed to this
// declarative schema.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/riftload/riftload/internal/rlog"
	"github.com/riftload/riftload/internal/scenario"
	"github.com/riftload/riftload/pkg/funclib"
	"github.com/riftload/riftload/pkg/models"
	"github.com/riftload/riftload/pkg/value"
)

// LoadConfig reads and parses the YAML file at path into a
// models.Config. It does not validate semantic correctness — call
// Validate separately, after any dotted-path overrides are applied.
func LoadConfig(path string) (*models.Config, error) {
	return LoadConfigWithOverrides(path, nil)
}

// LoadConfigWithOverrides reads the YAML file at path, applies each
// "key.path=value" dotted override in order (spec.md §6), then
// decodes the result into a models.Config. Overrides are applied
// against the raw yaml.Node tree, before typed parsing, so an
// unknown path fails loudly instead of silently becoming a no-op.
func LoadConfigWithOverrides(path string, overrides []string) (*models.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := ApplyOverrides(&doc, overrides); err != nil {
		return nil, fmt.Errorf("apply overrides: %w", err)
	}

	var cfg models.Config
	if err := doc.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

// SaveConfig marshals cfg back to YAML at path, appending a short
// usage comment annotating how to re-run it.
func SaveConfig(path string, cfg *models.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	comment := fmt.Sprintf("\n# Run this configuration:\n# ./riftload --config %s\n", filepath.Base(path))
	data = append(data, []byte(comment)...)
	return os.WriteFile(path, data, 0o644)
}

// Built is the fully-converted, ready-to-run form of a loaded config.
type Built struct {
	LogLevel   rlog.Level
	Parallel   int
	BaseURL    string
	TargetRPS  int
	Duration   time.Duration
	BatchSize  int // 0 means "Auto" — runner.DeriveParams computes it
	GlobalVars []value.Variable
	Scenarios  []*scenario.Scenario
}

// Build validates and converts cfg into runtime types. Callers should
// call Validate first for the field-hinted error report; Build checks
// only what conversion needs (duration parses and is > 0, scenarios
// non-empty, globals, function kinds, timeouts) and returns plain
// wrapped errors. It does not check base_url, target_rps or methods.
func Build(cfg *models.Config) (*Built, error) {
	duration, err := time.ParseDuration(cfg.Runner.Duration)
	if err != nil {
		return nil, fmt.Errorf("runner.duration: %w", err)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("runner.duration must be > 0")
	}
	if len(cfg.Runner.Scenarios) == 0 {
		return nil, fmt.Errorf("runner.scenarios must be non-empty")
	}

	globalVars, err := buildGlobalVars(cfg.Runner.Global)
	if err != nil {
		return nil, err
	}

	scenarios := make([]*scenario.Scenario, 0, len(cfg.Runner.Scenarios))
	for i, sc := range cfg.Runner.Scenarios {
		built, err := buildScenario(sc, cfg.Runner.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("scenarios[%d] %q: %w", i, sc.Name, err)
		}
		scenarios = append(scenarios, built)
	}

	batchSize := 0
	if !cfg.Runner.BatchSize.Auto {
		batchSize = cfg.Runner.BatchSize.Fixed
	}

	parallel := cfg.Parallel
	if parallel <= 0 {
		parallel = 1
	}

	return &Built{
		LogLevel:   rlog.ParseLevel(cfg.LogLevel),
		Parallel:   parallel,
		BaseURL:    cfg.Runner.BaseURL,
		TargetRPS:  cfg.Runner.TargetRPS,
		Duration:   duration,
		BatchSize:  batchSize,
		GlobalVars: globalVars,
		Scenarios:  scenarios,
	}, nil
}

// buildGlobalVars evaluates each declared global's literal Value or
// zero-arg initializer Function once, at build time. Each worker
// later seeds its own Global store from this same list, so all
// workers start with the same initializer result.
func buildGlobalVars(g models.GlobalConfig) ([]value.Variable, error) {
	eval := funclib.NewEvaluator()
	out := make([]value.Variable, 0, len(g.Variables))
	for _, v := range g.Variables {
		if v.Name == "" {
			return nil, fmt.Errorf("global variable with empty name")
		}
		switch {
		case v.Function != nil:
			fn, err := functionFromConfig(v.Function)
			if err != nil {
				return nil, fmt.Errorf("global %q: %w", v.Name, err)
			}
			if err := fn.CheckArity(0); err != nil {
				return nil, fmt.Errorf("global %q: initializer function: %w", v.Name, err)
			}
			val, err := eval.Eval(fn, nil)
			if err != nil {
				return nil, fmt.Errorf("global %q: %w", v.Name, err)
			}
			out = append(out, value.Variable{Name: v.Name, Value: val})
		case v.Value != nil:
			val, err := valueFromAny(v.Value)
			if err != nil {
				return nil, fmt.Errorf("global %q: %w", v.Name, err)
			}
			out = append(out, value.Variable{Name: v.Name, Value: val})
		default:
			return nil, fmt.Errorf("global %q: must declare either value or function", v.Name)
		}
	}
	return out, nil
}

func valueFromAny(v any) (value.Value, error) {
	switch t := v.(type) {
	case int:
		return value.Int(int32(t)), nil
	case int32:
		return value.Int(t), nil
	case int64:
		return value.Int(int32(t)), nil
	case string:
		return value.String(t), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

func functionFromConfig(fc *models.FunctionConfig) (funclib.Function, error) {
	switch strings.ToLower(fc.Kind) {
	case "split":
		idx, err := splitIndexFromConfig(fc)
		if err != nil {
			return funclib.Function{}, err
		}
		return funclib.Function{Kind: funclib.Split, Delim: fc.Delim, Index: idx}, nil
	case "random":
		return funclib.Function{Kind: funclib.Random, Min: fc.Min, Max: fc.Max}, nil
	case "now":
		return funclib.Function{Kind: funclib.Now}, nil
	case "plus":
		return funclib.Function{Kind: funclib.Plus}, nil
	case "copy":
		return funclib.Function{Kind: funclib.Copy}, nil
	default:
		return funclib.Function{}, fmt.Errorf("unknown function kind %q", fc.Kind)
	}
}

func splitIndexFromConfig(fc *models.FunctionConfig) (funclib.SplitIndex, error) {
	switch strings.ToLower(fc.Index) {
	case "first", "":
		return funclib.SplitIndex{Kind: funclib.First}, nil
	case "last":
		return funclib.SplitIndex{Kind: funclib.Last}, nil
	case "nth":
		return funclib.SplitIndex{Kind: funclib.Nth, N: fc.N}, nil
	default:
		return funclib.SplitIndex{}, fmt.Errorf("unknown split index %q", fc.Index)
	}
}

func buildScenario(sc models.ScenarioConfig, baseURL string) (*scenario.Scenario, error) {
	timeout, err := time.ParseDuration(sc.Request.Timeout)
	if err != nil {
		return nil, fmt.Errorf("request.timeout: %w", err)
	}

	response, err := buildResponseSpec(sc.Response.Assert)
	if err != nil {
		return nil, err
	}

	extractors, err := buildExtractors(sc.Response.Define)
	if err != nil {
		return nil, err
	}

	preScript, err := buildScriptSteps(sc.PreScript)
	if err != nil {
		return nil, fmt.Errorf("pre-script: %w", err)
	}
	postScript, err := buildScriptSteps(sc.PostScript)
	if err != nil {
		return nil, fmt.Errorf("post-script: %w", err)
	}

	var bodyTemplate *scenario.Template
	if sc.Request.Body != "" {
		bodyTemplate = scenario.CompileTemplate(sc.Request.Body)
	}

	return &scenario.Scenario{
		Name:        sc.Name,
		BaseURL:     baseURL,
		Method:      strings.ToUpper(sc.Request.Method),
		Path:        scenario.CompileTemplate(sc.Request.Path),
		Headers:     sc.Request.Headers,
		Body:        bodyTemplate,
		Timeout:     timeout,
		Response:    response,
		Extractors:  extractors,
		PreScript:   preScript,
		PostScript:  postScript,
		AssertPanic: sc.AssertPanic,
	}, nil
}

func buildResponseSpec(a models.AssertConfig) (scenario.ResponseSpec, error) {
	headers := make([]scenario.HeaderAssert, 0, len(a.Headers))
	for _, h := range a.Headers {
		if h.Equal != nil {
			headers = append(headers, scenario.HeaderAssert{Name: h.Name, Kind: scenario.HeaderEqual, Value: *h.Equal})
		} else {
			headers = append(headers, scenario.HeaderAssert{Name: h.Name, Kind: scenario.HeaderNotNull})
		}
	}

	body := make([]scenario.BodyAssert, 0, len(a.Body))
	for _, b := range a.Body {
		switch {
		case b.EqualString != nil:
			body = append(body, scenario.BodyAssert{Path: b.Path, Kind: scenario.BodyEqualString, String: *b.EqualString})
		case b.EqualNumber != nil:
			body = append(body, scenario.BodyAssert{Path: b.Path, Kind: scenario.BodyEqualNumber, Number: *b.EqualNumber})
		default:
			body = append(body, scenario.BodyAssert{Path: b.Path, Kind: scenario.BodyNotNull})
		}
	}

	return scenario.ResponseSpec{Status: a.Status, Headers: headers, Body: body}, nil
}

func buildExtractors(defs []models.ExtractorConfig) ([]scenario.Extractor, error) {
	out := make([]scenario.Extractor, 0, len(defs))
	for _, d := range defs {
		var source scenario.ExtractSource
		switch strings.ToLower(d.From) {
		case "header":
			source = scenario.SourceHeader
		case "body":
			source = scenario.SourceBody
		default:
			return nil, fmt.Errorf("define %q: unknown from %q", d.Name, d.From)
		}

		var fnPtr *funclib.Function
		if d.Function != nil {
			fn, err := functionFromConfig(d.Function)
			if err != nil {
				return nil, fmt.Errorf("define %q: %w", d.Name, err)
			}
			fnPtr = &fn
		}

		out = append(out, scenario.Extractor{Name: d.Name, Source: source, Path: d.Path, Fn: fnPtr})
	}
	return out, nil
}

func buildScriptSteps(steps []models.ScriptStepConfig) ([]scenario.ScriptStep, error) {
	out := make([]scenario.ScriptStep, 0, len(steps))
	for _, s := range steps {
		fn, err := functionFromConfig(&s.Fn)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", s.Ret, err)
		}
		args := make([]scenario.ScriptArg, 0, len(s.Args))
		for _, a := range s.Args {
			if a.Var != nil {
				args = append(args, scenario.ScriptArg{IsRef: true, Ref: *a.Var})
				continue
			}
			v, err := valueFromAny(a.Const)
			if err != nil {
				return nil, fmt.Errorf("step %q: arg: %w", s.Ret, err)
			}
			args = append(args, scenario.ScriptArg{Constant: v})
		}
		out = append(out, scenario.ScriptStep{Ret: s.Ret, Fn: fn, Args: args})
	}
	return out, nil
}

// parseIntOverride is used by override.go to decide whether a dotted
// override value parseable as integer should be coerced to integer
// (spec.md §9 open question, resolved: yes, the source does this and
// this spec keeps that behavior).
func parseIntOverride(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
