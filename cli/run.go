package cli

// run.go contains the root action: discover tests, fan them out across
// the worker pool, render live progress, and write the end-of-run
// reports.

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/tpdiff/tpdiff/history"
	"github.com/tpdiff/tpdiff/metricproto"
	"github.com/tpdiff/tpdiff/model"
	"github.com/tpdiff/tpdiff/report"
	"github.com/tpdiff/tpdiff/runner"
	"github.com/tpdiff/tpdiff/testindex"
	"github.com/tpdiff/tpdiff/tp"
	"github.com/tpdiff/tpdiff/trace"
)

// Exit codes: test failures are distinguished from harness problems so
// CI can tell a red suite from a broken run.
const (
	exitTestFailures = 1
	exitSetupError   = 2
)

func (a *App) run(ctx *cli.Context) error {
	startTime := time.Now()

	if ctx.NArg() != 1 {
		return cli.Exit("expected exactly one argument: the trace_processor binary", exitSetupError)
	}
	binary, err := filepath.Abs(ctx.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to resolve binary path: %v", err), exitSetupError)
	}

	var cfg Config
	if path := ctx.String("config"); path != "" {
		cfg, err = loadConfig(path)
		if err != nil {
			return cli.Exit(err.Error(), exitSetupError)
		}
	}

	rootDir := firstNonEmpty(ctx.String("root-dir"), cfg.RootDir)
	if rootDir == "" {
		if rootDir, err = os.Getwd(); err != nil {
			return cli.Exit(fmt.Sprintf("failed to resolve working directory: %v", err), exitSetupError)
		}
	}
	if rootDir, err = filepath.Abs(rootDir); err != nil {
		return cli.Exit(fmt.Sprintf("failed to resolve root dir: %v", err), exitSetupError)
	}

	filters, err := testindex.CompileFilters(ctx.String("query-metric-filter"), ctx.String("trace-filter"))
	if err != nil {
		return cli.Exit(err.Error(), exitSetupError)
	}

	tests, err := testindex.ReadAll(rootDir, filters)
	if err != nil {
		return cli.Exit(err.Error(), exitSetupError)
	}
	switch testType := ctx.String("test-type"); testType {
	case "all":
	case string(model.TestKindQuery):
		tests = testindex.FilterKind(tests, model.TestKindQuery)
	case string(model.TestKindMetric):
		tests = testindex.FilterKind(tests, model.TestKindMetric)
	default:
		return cli.Exit(fmt.Sprintf("invalid test type %q, want all, queries or metrics", testType), exitSetupError)
	}

	a.logger.Debug().
		Int("tests", len(tests)).
		Str("binary", binary).
		Str("root", rootDir).
		Msg("Discovered tests")

	palette := report.NewPalette(os.Stderr, ctx.Bool("no-colors"))

	var sink io.Writer = os.Stderr
	if path := ctx.String("log-file"); path != "" {
		logFile, err := os.Create(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to create log file: %v", err), exitSetupError)
		}
		defer logFile.Close()
		sink = io.MultiWriter(os.Stderr, report.NewStripWriter(logFile))
	}

	agg := report.NewAggregator(sink, palette, ctx.Bool("rebase"))
	agg.Banner(len(tests))

	outDir := filepath.Dir(binary)
	traceDescriptor := firstNonEmpty(ctx.String("trace-descriptor"), cfg.TraceDescriptor)
	if traceDescriptor == "" {
		traceDescriptor = tp.TraceDescriptorPath(outDir)
	}
	metricsDescriptors := tp.MetricsDescriptorPaths(outDir)
	if path := ctx.String("metrics-descriptor"); path != "" {
		metricsDescriptors = []string{path}
	} else if len(cfg.MetricsDescriptors) > 0 {
		metricsDescriptors = cfg.MetricsDescriptors
	}

	decoder, err := metricproto.NewDecoder(metricsDescriptors, metricproto.TraceMetricsMessage)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load metrics descriptors: %v", err), exitSetupError)
	}

	serializer := []string{filepath.Join(rootDir, "tools", "serialize_test_trace.py")}
	if override := firstNonEmpty(ctx.String("serializer"), cfg.Serializer); override != "" {
		serializer = strings.Fields(override)
	}

	run := &runner.Runner{
		Binary:  binary,
		RootDir: rootDir,
		Env:     tp.Env(rootDir, cfg.Env),
		Materializer: &trace.Materializer{
			Serializer:           serializer,
			TraceDescriptor:      traceDescriptor,
			ExtensionDescriptors: tp.ExtensionDescriptorPaths(outDir),
		},
		Decoder:   decoder,
		Palette:   palette,
		Rebase:    ctx.Bool("rebase"),
		KeepInput: ctx.Bool("keep-input"),
		Logger:    a.logger,
	}

	jobs := ctx.Int("jobs")
	if jobs <= 0 {
		jobs = cfg.Jobs
	}
	pool := runner.Pool{Workers: jobs}

	runner.InstallInterruptHandler()

	if err := pool.Run(context.Background(), tests, run.RunTest, agg.Handle); err != nil {
		return cli.Exit(fmt.Sprintf("internal error: %v", err), exitSetupError)
	}

	elapsed := time.Since(startTime)
	agg.Summary(elapsed)

	exitCode := 0
	if agg.Failed() > 0 {
		exitCode = exitTestFailures
		agg.PrintFailures()
	} else if agg.Rebased() == 0 {
		// Timing reports only describe runs where every test passed.
		if path := ctx.String("perf-file"); path != "" {
			if err := report.WritePerfFile(path, rootDir, agg.Perf()); err != nil {
				return cli.Exit(err.Error(), exitSetupError)
			}
		}
		if path := ctx.String("pprof-file"); path != "" {
			if err := report.WritePprofFile(path, rootDir, agg.Perf()); err != nil {
				return cli.Exit(err.Error(), exitSetupError)
			}
		}
	}

	report.WriteSlowest(os.Stdout, rootDir, agg.Perf(), ctx.Int("slowest"))

	if !ctx.Bool("no-history") {
		record := model.Run{
			ID:        uuid.New().String(),
			Timestamp: startTime,
			Args:      os.Args,
			Binary:    binary,
			RootDir:   rootDir,
			Git:       gitInfo(rootDir),
			ExitCode:  exitCode,
			Duration:  elapsed,
			Total:     agg.Total(),
			Passed:    agg.Passed(),
			Failed:    agg.Failed(),
			Rebased:   agg.Rebased(),
			Failures:  agg.Failures(),
			Perf:      agg.Perf(),
		}
		if err := history.Record(a.logger, rootDir, record); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to record run history")
		}
	}

	if exitCode != 0 {
		return cli.Exit("", exitCode)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
