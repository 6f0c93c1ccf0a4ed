// Package debug implements the single-iteration dry run (spec.md
// "debug mode", SPEC_FULL.md §4.8): it drives one scenario chain
// through one real connection with one worker and prints every
// request, response, assertion, and extracted variable in detail.
// Reuses this codebase's step-by-step colored output style, retargeted
// from a flat Step/Assertion model onto the scenario.Scenario chain
// and its own NextRequest/AssertResponse/UpdateVariables methods.
package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riftload/riftload/internal/globalstore"
	"github.com/riftload/riftload/internal/scenario"
	"github.com/riftload/riftload/internal/script"
	"github.com/riftload/riftload/internal/transport"
	"github.com/riftload/riftload/pkg/funclib"
	"github.com/riftload/riftload/pkg/value"
)

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
)

// RunDebugMode dials baseURL once and walks scenarios in order,
// stopping at the first failed assertion, request error, or
// assert_panic — exactly as a single chain would gate in the real
// runner, but verbose and synchronous.
func RunDebugMode(baseURL string, scenarios []*scenario.Scenario, global *globalstore.Store, eval *funclib.Evaluator) error {
	fmt.Println()
	fmt.Printf("%s%s🛠️  STARTING DEBUG MODE (Dry Run) 🛠️%s\n", colorBold, colorCyan, colorReset)
	fmt.Printf("%sRunning 1 iteration with 1 worker against %s%s\n\n", colorDim, baseURL, colorReset)

	conn, err := transport.Dial(baseURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", baseURL, err)
	}
	defer conn.Close()

	vars := map[string]value.Value{}
	allSuccess := true

	for i, sc := range scenarios {
		printStepHeader(i+1, sc.Name)

		if len(sc.PreScript) > 0 {
			vars, err = runScript(sc.PreScript, vars, global, eval)
			if err != nil {
				fmt.Printf("%s❌ pre-script failed: %v%s\n", colorRed, err, colorReset)
				allSuccess = false
				break
			}
			printVariables("PRE-SCRIPT OUTPUT", vars)
		}

		req, err := sc.NextRequest(vars, global)
		if err != nil {
			fmt.Printf("%s❌ failed to build request: %v%s\n", colorRed, err, colorReset)
			allSuccess = false
			break
		}
		printRequest(req)

		start := time.Now()
		resp, err := conn.Submit(context.Background(), req)
		latency := time.Since(start)
		if err != nil {
			printResponseError(err, latency)
			allSuccess = false
			break
		}
		printResponse(resp, latency)

		if err := sc.AssertResponse(resp); err != nil {
			printAssertionFailure(err)
			allSuccess = false
			if sc.AssertPanic {
				fmt.Printf("%s⚠️  assert_panic is set: a live run would terminate this worker here%s\n", colorYellow, colorReset)
			}
			break
		}
		fmt.Printf("\n%s[🛡️ ASSERTIONS]%s\n  %s✅ response matched\n", colorBold, colorReset, colorGreen)

		extracted, err := sc.UpdateVariables(resp, eval)
		if err != nil {
			fmt.Printf("%s❌ variable extraction failed: %v%s\n", colorRed, err, colorReset)
			allSuccess = false
			break
		}
		vars = mergeVars(vars, extracted)
		printExtracted(extracted)

		if len(sc.PostScript) > 0 {
			vars, err = runScript(sc.PostScript, vars, global, eval)
			if err != nil {
				fmt.Printf("%s❌ post-script failed: %v%s\n", colorRed, err, colorReset)
				allSuccess = false
				break
			}
			printVariables("POST-SCRIPT OUTPUT", vars)
		}
	}

	printSeparator()
	if allSuccess {
		fmt.Printf("%s%s✅ DEBUG SESSION COMPLETED SUCCESSFULLY%s\n\n", colorBold, colorGreen, colorReset)
	} else {
		fmt.Printf("%s%s❌ DEBUG SESSION COMPLETED WITH ERRORS%s\n\n", colorBold, colorRed, colorReset)
	}
	return nil
}

// runScript mirrors internal/runner's own pre/post-script seeding:
// a fresh script.Context's Local map starts from the chain's
// accumulated variables, and its post-run Local map becomes the new
// accumulated set.
func runScript(steps []scenario.ScriptStep, vars map[string]value.Value, global *globalstore.Store, eval *funclib.Evaluator) (map[string]value.Value, error) {
	ctx := script.NewContext(global)
	for k, v := range vars {
		ctx.Local[k] = v
	}
	converted := make([]script.Step, len(steps))
	for i, s := range steps {
		args := make([]script.Arg, len(s.Args))
		for j, a := range s.Args {
			if a.IsRef {
				args[j] = script.RefArg(a.Ref)
			} else {
				args[j] = script.ConstArg(a.Constant)
			}
		}
		converted[i] = script.Step{Ret: s.Ret, Fn: s.Fn, Args: args}
	}
	err := script.Run(ctx, eval, converted)
	return ctx.Local, err
}

func mergeVars(base map[string]value.Value, extracted []value.Variable) map[string]value.Value {
	out := make(map[string]value.Value, len(base)+len(extracted))
	for k, v := range base {
		out[k] = v
	}
	for _, e := range extracted {
		out[e.Name] = e.Value
	}
	return out
}

func printStepHeader(stepNum int, name string) {
	printSeparator()
	fmt.Printf("%s%s📍 STEP %d: %s%s\n", colorBold, colorMagenta, stepNum, name, colorReset)
	printSeparator()
}

func printSeparator() {
	fmt.Printf("%s----------------------------------------------------%s\n", colorDim, colorReset)
}

func printRequest(req *transport.Request) {
	fmt.Printf("\n%s[REQUEST]%s\n", colorBold, colorReset)
	fmt.Printf("%s%s%s %s%s%s\n", colorBold, colorGreen, req.Method, colorCyan, req.URL, colorReset)

	if len(req.Headers) > 0 {
		fmt.Printf("%sHeaders:%s\n", colorDim, colorReset)
		var keys []string
		for k := range req.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s%s:%s %s\n", colorYellow, k, colorReset, req.Headers[k])
		}
	}

	if len(req.Body) > 0 {
		fmt.Printf("%sBody:%s\n", colorDim, colorReset)
		printFormattedJSON(string(req.Body), "  ")
	}
}

func printResponse(resp *transport.Response, latency time.Duration) {
	fmt.Printf("\n%s[RESPONSE]%s\n", colorBold, colorReset)

	statusColor := colorGreen
	if resp.Status >= 400 {
		statusColor = colorRed
	} else if resp.Status >= 300 {
		statusColor = colorYellow
	}
	fmt.Printf("%sStatus:%s %s%d%s %s(Time: %s, Retries: %d)%s\n",
		colorDim, colorReset,
		statusColor, resp.Status, colorReset,
		colorDim, latency.Round(time.Millisecond), resp.RetryCount, colorReset)

	if len(resp.Headers) > 0 {
		fmt.Printf("%sHeaders:%s\n", colorDim, colorReset)
		var keys []string
		for k := range resp.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s%s:%s %s\n", colorYellow, k, colorReset, resp.Headers[k])
		}
	}

	if len(resp.RawBody) > 0 {
		fmt.Printf("%sBody:%s\n", colorDim, colorReset)
		bodyStr := string(resp.RawBody)
		if len(bodyStr) > 2000 {
			bodyStr = bodyStr[:2000] + fmt.Sprintf("\n  ... (truncated, %d bytes total)", len(resp.RawBody))
		}
		printFormattedJSON(bodyStr, "  ")
	}
}

func printResponseError(err error, latency time.Duration) {
	fmt.Printf("\n%s[RESPONSE]%s\n", colorBold, colorReset)
	fmt.Printf("%s❌ Request Failed%s %s(Time: %s)%s\n", colorRed, colorReset, colorDim, latency.Round(time.Millisecond), colorReset)
	fmt.Printf("  %sError:%s %v\n", colorRed, colorReset, err)
}

func printAssertionFailure(err error) {
	fmt.Printf("\n%s[🛡️ ASSERTIONS]%s\n", colorBold, colorReset)
	fmt.Printf("  %s❌ FAILED%s\n", colorRed, colorReset)
	fmt.Printf("     %s└─ %v%s\n", colorDim, err, colorReset)
}

func printExtracted(vars []value.Variable) {
	fmt.Printf("\n%s[🔍 VARIABLES EXTRACTED]%s\n", colorBold, colorReset)
	if len(vars) == 0 {
		fmt.Printf("  %s⚠️  No variables extracted%s\n", colorYellow, colorReset)
		return
	}
	for _, v := range vars {
		display := v.Value.String()
		if len(display) > 60 {
			display = display[:57] + "..."
		}
		fmt.Printf("  %s✅ %s%s = %s%q%s\n", colorGreen, colorBold, v.Name, colorCyan, display, colorReset)
	}
}

func printVariables(label string, vars map[string]value.Value) {
	fmt.Printf("\n%s[%s]%s\n", colorBold, label, colorReset)
	var keys []string
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s%s%s = %s%s%s\n", colorBold, k, colorReset, colorCyan, vars[k].String(), colorReset)
	}
}

func printFormattedJSON(s string, prefix string) {
	var jsonObj interface{}
	if err := json.Unmarshal([]byte(s), &jsonObj); err == nil {
		pretty, err := json.MarshalIndent(jsonObj, prefix, "  ")
		if err == nil {
			fmt.Printf("%s%s\n", prefix, string(pretty))
			return
		}
	}
	lines := strings.Split(s, "\n")
	for _, line := range lines {
		fmt.Printf("%s%s\n", prefix, line)
	}
}
