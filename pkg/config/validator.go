package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/riftload/riftload/pkg/models"
)

// ValidationError represents a single validation error with context and suggestions.
type ValidationError struct {
	Field      string // Field path (e.g., "runner.scenarios[2].request.method")
	Value      string // The actual value provided (if any)
	Message    string // Error description
	Expected   string // Expected format/type
	Hint       string // Helpful suggestion
	DidYouMean string // Typo correction suggestion
}

// ValidationResult holds all validation errors.
type ValidationResult struct {
	Errors []ValidationError
}

// Add adds a new validation error.
func (v *ValidationResult) Add(err ValidationError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors.
func (v *ValidationResult) HasErrors() bool {
	return len(v.Errors) > 0
}

// FormatErrors formats all errors into a user-friendly string.
func (v *ValidationResult) FormatErrors() string {
	if !v.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n❌ Configuration Errors:\n")

	for i, err := range v.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %s\n", i+1, err.Field))

		if err.Value != "" {
			sb.WriteString(fmt.Sprintf("     ├─ Value: %q\n", truncate(err.Value, 50)))
		}

		sb.WriteString(fmt.Sprintf("     ├─ Error: %s\n", err.Message))

		if err.Expected != "" {
			sb.WriteString(fmt.Sprintf("     ├─ Expected: %s\n", err.Expected))
		}

		if err.DidYouMean != "" {
			sb.WriteString(fmt.Sprintf("     ├─ Did you mean: %q?\n", err.DidYouMean))
		}

		if err.Hint != "" {
			sb.WriteString(fmt.Sprintf("     └─ 💡 Hint: %s\n", err.Hint))
		}
	}

	return sb.String()
}

var validHTTPMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}
var validFunctionKinds = []string{"split", "random", "now", "plus", "copy"}

// Hints for common fields.
var fieldHints = map[string]string{
	"runner.base_url":    "Scheme + host the dispatcher's http2.ClientConn dials once per worker (e.g., https://api.example.com)",
	"runner.target_rps":  "Requests/sec for each worker across all chain steps; divided by scenario chain length to get chain starts/sec",
	"runner.duration":    "Test duration with unit (e.g., '30s', '2m', '1h')",
	"runner.batch_size":  "Integer, or the literal \"Auto\" to derive it from target_rps",
	"request.method":     "HTTP method: GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
	"request.timeout":    "Per-request timeout with unit (e.g., '5s')",
	"response.assert":    "status is required; headers/body assertions run in that order and gate chain continuation on failure",
	"define.from":        "\"header\" or \"body\"",
	"script.fn.kind":     "split, random, now, plus, or copy",
}

// Validate performs field-level structural checks beyond what
// yaml.Unmarshal already guarantees, reusing this codebase's own
// hinted-error reporting shape, re-keyed to this declarative schema
// (spec.md §6).
func Validate(cfg *models.Config) *ValidationResult {
	result := &ValidationResult{}

	if cfg.Runner.BaseURL == "" {
		result.Add(ValidationError{
			Field: "runner.base_url", Message: "base_url is required",
			Hint: GetHint("runner.base_url"),
		})
	} else if !strings.HasPrefix(cfg.Runner.BaseURL, "http://") && !strings.HasPrefix(cfg.Runner.BaseURL, "https://") {
		result.Add(ValidationError{
			Field: "runner.base_url", Value: cfg.Runner.BaseURL,
			Message: "must include an http:// or https:// scheme",
		})
	}

	if cfg.Runner.TargetRPS <= 0 {
		result.Add(ValidationError{
			Field: "runner.target_rps", Value: fmt.Sprint(cfg.Runner.TargetRPS),
			Message: "must be a positive integer", Hint: GetHint("runner.target_rps"),
		})
	}

	if _, err := time.ParseDuration(cfg.Runner.Duration); err != nil {
		result.Add(ValidationError{
			Field: "runner.duration", Value: cfg.Runner.Duration,
			Message: "not a valid duration", Hint: GetHint("runner.duration"),
		})
	}

	if len(cfg.Runner.Scenarios) == 0 {
		result.Add(ValidationError{
			Field: "runner.scenarios", Message: "at least one scenario is required",
		})
	}

	for i, sc := range cfg.Runner.Scenarios {
		validateScenario(result, i, sc)
	}

	return result
}

func validateScenario(result *ValidationResult, i int, sc models.ScenarioConfig) {
	prefix := fmt.Sprintf("runner.scenarios[%d]", i)

	if sc.Request.Method == "" {
		result.Add(ValidationError{Field: prefix + ".request.method", Message: "method is required"})
	} else if ok, suggestion := ValidateHTTPMethod(sc.Request.Method); !ok {
		result.Add(ValidationError{
			Field: prefix + ".request.method", Value: sc.Request.Method,
			Message: "not a recognized HTTP method", DidYouMean: suggestion,
			Hint: GetHint("request.method"),
		})
	}

	if sc.Request.Path == "" {
		result.Add(ValidationError{Field: prefix + ".request.path", Message: "path is required"})
	}

	if sc.Request.Timeout == "" {
		result.Add(ValidationError{Field: prefix + ".request.timeout", Message: "timeout is required", Hint: GetHint("request.timeout")})
	} else if _, err := time.ParseDuration(sc.Request.Timeout); err != nil {
		result.Add(ValidationError{
			Field: prefix + ".request.timeout", Value: sc.Request.Timeout,
			Message: "not a valid duration",
		})
	}

	if sc.Response.Assert.Status == 0 {
		result.Add(ValidationError{
			Field: prefix + ".response.assert.status", Message: "status is required",
			Hint: GetHint("response.assert"),
		})
	}

	for j, d := range sc.Response.Define {
		from := strings.ToLower(d.From)
		if from != "header" && from != "body" {
			result.Add(ValidationError{
				Field: fmt.Sprintf("%s.response.define[%d].from", prefix, j), Value: d.From,
				Message: "must be \"header\" or \"body\"", Hint: GetHint("define.from"),
				DidYouMean: FindClosestMatch(d.From, []string{"header", "body"}),
			})
		}
		if d.Function != nil {
			validateFunctionKind(result, fmt.Sprintf("%s.response.define[%d].function.kind", prefix, j), d.Function.Kind)
		}
	}

	for _, step := range append(append([]models.ScriptStepConfig{}, sc.PreScript...), sc.PostScript...) {
		validateFunctionKind(result, prefix+".script.fn.kind", step.Fn.Kind)
	}
}

func validateFunctionKind(result *ValidationResult, field, kind string) {
	lower := strings.ToLower(kind)
	for _, k := range validFunctionKinds {
		if lower == k {
			return
		}
	}
	result.Add(ValidationError{
		Field: field, Value: kind, Message: "not a recognized function kind",
		DidYouMean: FindClosestMatch(kind, validFunctionKinds),
		Hint:       GetHint("script.fn.kind"),
	})
}

// levenshteinDistance calculates the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// FindClosestMatch finds the closest matching field name from valid options.
func FindClosestMatch(input string, validOptions []string) string {
	if input == "" {
		return ""
	}

	bestMatch := ""
	bestDistance := 100

	for _, option := range validOptions {
		distance := levenshteinDistance(input, option)
		if distance < bestDistance && distance <= len(option)/2+1 {
			bestDistance = distance
			bestMatch = option
		}
	}

	if strings.EqualFold(input, bestMatch) {
		return ""
	}

	return bestMatch
}

// GetHint returns a helpful hint for a field.
func GetHint(field string) string {
	if hint, ok := fieldHints[field]; ok {
		return hint
	}
	return ""
}

// ValidateHTTPMethod checks if a method is valid and suggests corrections.
func ValidateHTTPMethod(method string) (bool, string) {
	upper := strings.ToUpper(method)
	for _, valid := range validHTTPMethods {
		if upper == valid {
			return true, ""
		}
	}
	suggestion := FindClosestMatch(method, validHTTPMethods)
	return false, suggestion
}

// truncate shortens a string for display.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// min returns the minimum of three integers.
func min(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
