package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/riftload/riftload/internal/coordinator"
	"github.com/riftload/riftload/internal/debug"
	"github.com/riftload/riftload/internal/globalstore"
	"github.com/riftload/riftload/internal/report"
	"github.com/riftload/riftload/internal/rlog"
	"github.com/riftload/riftload/internal/runner"
	"github.com/riftload/riftload/pkg/config"
	"github.com/riftload/riftload/pkg/funclib"
	"github.com/riftload/riftload/pkg/value"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("\n❌ Fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	runtime.GOMAXPROCS(runtime.NumCPU())

	var (
		configPath string
		debugMode  bool
		reportPath string
		count      int
		overrides  overrideFlags
	)

	flag.StringVar(&configPath, "config", "./config.yaml", "Path to YAML configuration file")
	flag.BoolVar(&debugMode, "debug", false, "Run a single dry-run iteration with detailed output instead of a full load test")
	flag.StringVar(&reportPath, "report", "", "Path to save the JSON report (optional)")
	flag.IntVar(&count, "count", 0, "reserved")
	flag.Var(&overrides, "set", "Dotted-path config override key.path=value (repeatable)")
	flag.Parse()

	cfg, err := config.LoadConfigWithOverrides(configPath, overrides)
	if err != nil {
		fmt.Printf("❌ Error loading config file: %v\n", err)
		os.Exit(1)
	}

	result := config.Validate(cfg)
	if result.HasErrors() {
		fmt.Print(result.FormatErrors())
		os.Exit(1)
	}

	built, err := config.Build(cfg)
	if err != nil {
		fmt.Printf("❌ Error building configuration: %v\n", err)
		os.Exit(1)
	}

	rlog.SetLevel(built.LogLevel)

	if debugMode {
		global := globalstore.New()
		seedGlobal(global, built.GlobalVars)
		eval := funclib.NewEvaluator()
		if err := debug.RunDebugMode(built.BaseURL, built.Scenarios, global, eval); err != nil {
			fmt.Printf("❌ Debug mode error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), built.Duration+5*time.Second)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n⚠️  Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	params, err := runner.DeriveParams(built.TargetRPS, built.Duration, built.BatchSize, len(built.Scenarios))
	if err != nil {
		fmt.Printf("❌ Invalid runner parameters: %v\n", err)
		os.Exit(1)
	}

	rlog.Infof("starting run: target_rps=%d duration=%s batch_size=%d parallel=%d scenarios=%d",
		built.TargetRPS, built.Duration, params.BatchSize, built.Parallel, len(built.Scenarios))

	agg, err := coordinator.Run(ctx, built.Parallel, built.BaseURL, built.Scenarios, params, built.GlobalVars...)
	if err != nil {
		fmt.Printf("❌ Run failed: %v\n", err)
		os.Exit(1)
	}

	report.PrintConsole(agg)

	if reportPath != "" {
		if err := report.SaveJSON(agg, reportPath); err != nil {
			fmt.Printf("⚠️  Failed to save report: %v\n", err)
		} else {
			fmt.Printf("📊 Report saved to %s\n", reportPath)
		}
	}
}

// seedGlobal is the worker-startup Global-store seed every real
// worker also performs (internal/coordinator.Run, one clone of the
// same built.GlobalVars per worker).
func seedGlobal(g *globalstore.Store, vars []value.Variable) {
	for _, v := range vars {
		g.Set(v.Name, v.Value)
	}
}

// overrideFlags collects repeated -set key.path=value occurrences.
type overrideFlags []string

func (o *overrideFlags) String() string { return strings.Join(*o, ",") }
func (o *overrideFlags) Set(v string) error {
	*o = append(*o, v)
	return nil
}
