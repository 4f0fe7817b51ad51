package runner

// runner.go contains the per-test execution path: validate inputs,
// materialize the trace, invoke trace_processor, decode the output and
// render the verdict block.

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"

	"github.com/tpdiff/tpdiff/metricproto"
	"github.com/tpdiff/tpdiff/model"
	"github.com/tpdiff/tpdiff/report"
	"github.com/tpdiff/tpdiff/tp"
	"github.com/tpdiff/tpdiff/trace"
)

// Runner executes a single test end to end. One Runner is shared by all
// workers; every per-test artifact is function local.
type Runner struct {
	// Binary is the trace_processor under test
	Binary string
	// RootDir is the suite root, used to shorten paths in repro output
	RootDir string
	// Env is the controlled child environment
	Env []string
	// Materializer serializes generative trace sources
	Materializer *trace.Materializer
	// Decoder normalizes binary metric output (nil only in tests that
	// never touch binary metrics)
	Decoder *metricproto.Decoder
	// Palette colors the progress markers
	Palette report.Palette
	// Rebase rewrites goldens on clean-exit mismatches
	Rebase bool
	// KeepInput leaves generated traces behind for debugging
	KeepInput bool

	Logger zerolog.Logger
}

// RunTest runs one test and returns its outcome. A non-nil error means
// the harness itself is broken (not the test) and aborts the whole run.
func (r *Runner) RunTest(ctx context.Context, test model.Test) (model.Outcome, error) {
	name := test.Name()
	out := model.Outcome{Name: name}

	// Missing inputs fail before any progress output or subprocess.
	if _, err := os.Stat(test.Trace); err != nil {
		out.Rendered = fmt.Sprintf("Trace file not found %s\n", test.Trace)
		return out, nil
	}
	if _, err := os.Stat(test.Expected); err != nil {
		out.Rendered = fmt.Sprintf("Expected file not found %s\n", test.Expected)
		return out, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s[ RUN      ]%s %s\n", r.Palette.Yellow, r.Palette.Reset, name)

	if test.Kind == model.TestKindQuery {
		if _, err := os.Stat(test.Query); err != nil {
			fmt.Fprintf(&b, "Query file not found %s\n", test.Query)
			out.Rendered = b.String()
			return out, nil
		}
	}

	gen, err := r.Materializer.Materialize(ctx, test.Trace)
	if err != nil {
		fmt.Fprintf(&b, "%v\n", err)
		fmt.Fprintf(&b, "%s[     FAIL ]%s %s\n", r.Palette.Red, r.Palette.Reset, name)
		out.Rendered = b.String()
		return out, nil
	}
	defer func() {
		if err := gen.Release(r.KeepInput); err != nil {
			r.Logger.Warn().Err(err).Str("trace", gen.Path).Msg("Failed to remove generated trace")
		}
	}()

	perfFile, err := os.CreateTemp("", "tpdiff-perf-*")
	if err != nil {
		return out, fmt.Errorf("failed to create perf temp file: %w", err)
	}
	perfPath := perfFile.Name()
	perfFile.Close()
	defer os.Remove(perfPath)

	res, execErr := r.execute(ctx, test, gen.Path, perfPath)

	if gen.Temp() && r.KeepInput {
		fmt.Fprintf(&b, "Saving generated input trace: %s\n", gen.Path)
	}

	if execErr != nil {
		fmt.Fprintf(&b, "%v\n", execErr)
		if len(res.Cmd) > 0 {
			b.WriteString(r.cmdlines(gen, res.Cmd))
		}
		fmt.Fprintf(&b, "%s[     FAIL ]%s %s\n", r.Palette.Red, r.Palette.Reset, name)
		out.Rendered = b.String()
		return out, nil
	}

	if res.Passed() {
		perf, err := parsePerfFile(perfPath, test)
		if err != nil {
			return out, err
		}
		fmt.Fprintf(&b, "%s[       OK ]%s %s (ingest: %.2f ms query: %.2f ms)\n",
			r.Palette.Green, r.Palette.Reset, name,
			float64(perf.IngestTimeNs)/1e6, float64(perf.RealTimeNs)/1e6)
		out.Passed = true
		out.Perf = perf
		out.Rendered = b.String()
		return out, nil
	}

	b.WriteString(res.Stderr)
	if res.ExitCode == 0 {
		fmt.Fprintf(&b, "Expected did not match actual for trace %s and %s %s\n",
			test.Trace, kindNoun(test.Kind), test.Query)
		fmt.Fprintf(&b, "Expected file: %s\n", test.Expected)
		b.WriteString(r.cmdlines(gen, res.Cmd))
		b.WriteString(diffText(res.Expected, res.Actual))
	} else {
		b.WriteString(r.cmdlines(gen, res.Cmd))
	}
	fmt.Fprintf(&b, "%s[     FAIL ]%s %s\n", r.Palette.Red, r.Palette.Reset, name)

	if r.Rebase {
		if res.ExitCode == 0 {
			fmt.Fprintf(&b, "Rebasing %s\n", test.Expected)
			if err := os.WriteFile(test.Expected, []byte(res.Actual), 0644); err != nil {
				return out, fmt.Errorf("failed to rebase %s: %w", test.Expected, err)
			}
			out.Rebased = true
		} else {
			fmt.Fprintf(&b, "Rebase failed for %s as query failed\n", test.Expected)
		}
	}

	out.Rendered = b.String()
	return out, nil
}

// execute invokes trace_processor for the test and decodes both sides
// of the comparison. The returned error covers exec failures without an
// exit code and undecodable output; the caller renders it as a test
// failure.
func (r *Runner) execute(ctx context.Context, test model.Test, tracePath, perfPath string) (model.TestResult, error) {
	var args []string
	if test.Kind == model.TestKindQuery {
		args = tp.QueryArgs(test.Query, perfPath, tracePath)
	} else {
		args = tp.MetricArgs(test.Query, test.MetricFormat, perfPath, tracePath)
	}
	res := model.TestResult{
		Test: test,
		Cmd:  append([]string{r.Binary}, args...),
	}

	expected, err := os.ReadFile(test.Expected)
	if err != nil {
		return res, fmt.Errorf("failed to read expected file: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Env = r.Env

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	r.Logger.Debug().Str("trace", test.Trace).Strs("cmd", res.Cmd).Msg("Invoking trace_processor")

	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return res, fmt.Errorf("failed to execute %s: %w", r.Binary, err)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	res.Stderr = stderrBuf.String()

	// Comparison only matters on a clean exit; a dirty exit fails the
	// test regardless of output.
	if res.ExitCode != 0 {
		return res, nil
	}

	if test.Kind == model.TestKindQuery || test.MetricFormat == model.MetricOutputJSON {
		res.Expected = string(expected)
		res.Actual = stdoutBuf.String()
		return res, nil
	}

	res.Expected, err = r.Decoder.RenderText(expected)
	if err != nil {
		return res, fmt.Errorf("failed to decode expected metrics %s: %w", test.Expected, err)
	}
	res.Actual, err = r.Decoder.RenderBinary(stdoutBuf.Bytes())
	if err != nil {
		return res, fmt.Errorf("failed to decode metric output of %s: %w", test.Query, err)
	}
	return res, nil
}

// cmdlines renders the reproduction commands shown in failure blocks,
// with paths shortened relative to the suite root.
func (r *Runner) cmdlines(gen *trace.Generated, cmd []string) string {
	var b strings.Builder
	if gen.Temp() {
		serializer := "tools/serialize_test_trace.py"
		if len(r.Materializer.Serializer) > 0 {
			parts := append([]string{relTo(r.RootDir, r.Materializer.Serializer[0])}, r.Materializer.Serializer[1:]...)
			serializer = strings.Join(parts, " ")
		}
		b.WriteString("Command to generate trace:\n")
		fmt.Fprintf(&b, "%s --descriptor %s %s > %s\n",
			serializer,
			relTo(r.RootDir, r.Materializer.TraceDescriptor),
			relTo(r.RootDir, gen.Source),
			relTo(r.RootDir, gen.Path))
	}
	fmt.Fprintf(&b, "Command line:\n%s\n", tp.Command(cmd[0], cmd[1:]))
	return b.String()
}

// parsePerfFile reads the timing side channel: exactly one line holding
// two comma separated integers (ingest ns, real ns). Anything else is a
// contract violation with the binary under test and aborts the run.
func parsePerfFile(path string, test model.Test) (*model.PerfResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read perf file for %s: %w", test.Name(), err)
	}
	content := strings.TrimRight(string(raw), "\r\n")
	if content == "" || strings.Contains(content, "\n") {
		return nil, fmt.Errorf("perf file for %s must hold exactly one line, got %q", test.Name(), string(raw))
	}
	fields := strings.Split(content, ",")
	if len(fields) != 2 {
		return nil, fmt.Errorf("perf file for %s must hold two comma separated values, got %q", test.Name(), content)
	}
	ingestNs, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ingest time in perf file for %s: %w", test.Name(), err)
	}
	realNs, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid real time in perf file for %s: %w", test.Name(), err)
	}

	return &model.PerfResult{
		Kind:         test.Kind,
		Trace:        test.Trace,
		Query:        test.Query,
		IngestTimeNs: ingestNs,
		RealTimeNs:   realNs,
	}, nil
}

// diffText renders a unified diff of the raw expected and actual
// output.
func diffText(expected, actual string) string {
	text, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	return text
}

// kindNoun is the singular noun used in mismatch headers.
func kindNoun(kind model.TestKind) string {
	if kind == model.TestKindMetric {
		return "metric"
	}
	return "query"
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
