package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/tpdiff/tpdiff/metricproto"
	"github.com/tpdiff/tpdiff/model"
	"github.com/tpdiff/tpdiff/tp"
	"github.com/tpdiff/tpdiff/trace"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// fakeTP writes a stand-in trace_processor_shell. The controlled child
// environment points PATH at a toolchain directory that does not exist
// in the fixture, so scripts may only use shell builtins.
//
// Query argv: -q <query> --perf-file <perf:$4> <trace>
// Metric argv: --run-metrics <m> --metrics-output=<f> --perf-file <perf:$5> <trace>
func fakeTP(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace_processor_shell")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

type querySuite struct {
	root     string
	trace    string
	query    string
	expected string
}

func newQuerySuite(t *testing.T, expectedContent string) querySuite {
	t.Helper()
	root := t.TempDir()
	s := querySuite{
		root:     root,
		trace:    filepath.Join(root, "test", "data", "trace.pb"),
		query:    filepath.Join(root, "test", "trace_processor", "q.sql"),
		expected: filepath.Join(root, "test", "trace_processor", "q.out"),
	}
	writeFile(t, s.trace, "\x00trace")
	writeFile(t, s.query, "select ts from slice;")
	writeFile(t, s.expected, expectedContent)
	return s
}

func (s querySuite) test() model.Test {
	return model.Test{
		Kind:     model.TestKindQuery,
		Trace:    s.trace,
		Query:    s.query,
		Expected: s.expected,
	}
}

func newRunner(t *testing.T, binary, root string) *Runner {
	t.Helper()
	return &Runner{
		Binary:       binary,
		RootDir:      root,
		Env:          tp.Env(root, nil),
		Materializer: &trace.Materializer{},
		Logger:       zerolog.Nop(),
	}
}

func TestRunTestQueryPass(t *testing.T) {
	s := newQuerySuite(t, "col\n1\n")
	bin := fakeTP(t, "printf 'col\\n1\\n'\nprintf '1000000,2000000' > \"$4\"\n")

	out, err := newRunner(t, bin, s.root).RunTest(context.Background(), s.test())
	require.NoError(t, err)
	require.True(t, out.Passed)
	require.False(t, out.Rebased)

	require.NotNil(t, out.Perf)
	require.Equal(t, int64(1000000), out.Perf.IngestTimeNs)
	require.Equal(t, int64(2000000), out.Perf.RealTimeNs)
	require.Equal(t, model.TestKindQuery, out.Perf.Kind)
	require.Equal(t, s.trace, out.Perf.Trace)

	require.Contains(t, out.Rendered, "[ RUN      ] q.sql trace.pb\n")
	require.Contains(t, out.Rendered, "[       OK ] q.sql trace.pb (ingest: 1.00 ms query: 2.00 ms)\n")
}

func TestRunTestQueryPassCRLF(t *testing.T) {
	// Goldens from Windows checkouts compare equal after normalization.
	s := newQuerySuite(t, "col\r\n1\r\n")
	bin := fakeTP(t, "printf 'col\\n1\\n'\nprintf '1,2' > \"$4\"\n")

	out, err := newRunner(t, bin, s.root).RunTest(context.Background(), s.test())
	require.NoError(t, err)
	require.True(t, out.Passed)
}

func TestRunTestQueryMismatch(t *testing.T) {
	s := newQuerySuite(t, "col\n2\n")
	bin := fakeTP(t, "printf 'col\\n1\\n'\nprintf '1,2' > \"$4\"\n")

	out, err := newRunner(t, bin, s.root).RunTest(context.Background(), s.test())
	require.NoError(t, err)
	require.False(t, out.Passed)
	require.Nil(t, out.Perf)

	require.Contains(t, out.Rendered, "Expected did not match actual for trace "+s.trace+" and query "+s.query+"\n")
	require.Contains(t, out.Rendered, "Expected file: "+s.expected+"\n")
	require.Contains(t, out.Rendered, "Command line:\n"+bin+" -q "+s.query)
	require.Contains(t, out.Rendered, "--- expected")
	require.Contains(t, out.Rendered, "+++ actual")
	require.Contains(t, out.Rendered, "-2")
	require.Contains(t, out.Rendered, "+1")
	require.Contains(t, out.Rendered, "[     FAIL ] q.sql trace.pb\n")
}

func TestRunTestMissingTrace(t *testing.T) {
	s := newQuerySuite(t, "col\n")
	require.NoError(t, os.Remove(s.trace))

	marker := filepath.Join(t.TempDir(), "invoked")
	bin := fakeTP(t, "printf x > "+marker+"\n")

	out, err := newRunner(t, bin, s.root).RunTest(context.Background(), s.test())
	require.NoError(t, err)
	require.False(t, out.Passed)
	require.Equal(t, "Trace file not found "+s.trace+"\n", out.Rendered)

	_, err = os.Stat(marker)
	require.True(t, os.IsNotExist(err))
}

func TestRunTestMissingExpected(t *testing.T) {
	s := newQuerySuite(t, "col\n")
	require.NoError(t, os.Remove(s.expected))

	out, err := newRunner(t, fakeTP(t, ""), s.root).RunTest(context.Background(), s.test())
	require.NoError(t, err)
	require.False(t, out.Passed)
	require.Equal(t, "Expected file not found "+s.expected+"\n", out.Rendered)
}

func TestRunTestMissingQueryNoSubprocess(t *testing.T) {
	s := newQuerySuite(t, "col\n")
	require.NoError(t, os.Remove(s.query))

	marker := filepath.Join(t.TempDir(), "invoked")
	bin := fakeTP(t, "printf x > "+marker+"\n")

	out, err := newRunner(t, bin, s.root).RunTest(context.Background(), s.test())
	require.NoError(t, err)
	require.False(t, out.Passed)
	require.Contains(t, out.Rendered, "[ RUN      ] q.sql trace.pb\n")
	require.Contains(t, out.Rendered, "Query file not found "+s.query+"\n")

	_, err = os.Stat(marker)
	require.True(t, os.IsNotExist(err))
}

func TestRunTestDirtyExit(t *testing.T) {
	s := newQuerySuite(t, "col\n")
	bin := fakeTP(t, "printf 'perfetto: query error\\n' >&2\nexit 3\n")

	out, err := newRunner(t, bin, s.root).RunTest(context.Background(), s.test())
	require.NoError(t, err)
	require.False(t, out.Passed)

	require.Contains(t, out.Rendered, "perfetto: query error\n")
	require.Contains(t, out.Rendered, "Command line:\n")
	require.Contains(t, out.Rendered, "[     FAIL ]")
	require.NotContains(t, out.Rendered, "Expected did not match actual")
}

func TestRunTestBinaryNotFound(t *testing.T) {
	s := newQuerySuite(t, "col\n")

	out, err := newRunner(t, filepath.Join(s.root, "missing_tp"), s.root).RunTest(context.Background(), s.test())
	require.NoError(t, err)
	require.False(t, out.Passed)
	require.Contains(t, out.Rendered, "failed to execute")
	require.Contains(t, out.Rendered, "[     FAIL ]")
}

func TestRunTestRebaseRewritesGolden(t *testing.T) {
	s := newQuerySuite(t, "old\n")
	bin := fakeTP(t, "printf 'new\\n'\nprintf '1,2' > \"$4\"\n")

	r := newRunner(t, bin, s.root)
	r.Rebase = true
	out, err := r.RunTest(context.Background(), s.test())
	require.NoError(t, err)
	require.False(t, out.Passed)
	require.True(t, out.Rebased)
	require.Contains(t, out.Rendered, "Rebasing "+s.expected+"\n")

	golden, err := os.ReadFile(s.expected)
	require.NoError(t, err)
	require.Equal(t, "new\n", string(golden))

	// An unmodified re-run against the rebased golden passes.
	r.Rebase = false
	out, err = r.RunTest(context.Background(), s.test())
	require.NoError(t, err)
	require.True(t, out.Passed)
}

func TestRunTestRebaseSkippedOnDirtyExit(t *testing.T) {
	s := newQuerySuite(t, "old\n")
	bin := fakeTP(t, "exit 1\n")

	r := newRunner(t, bin, s.root)
	r.Rebase = true
	out, err := r.RunTest(context.Background(), s.test())
	require.NoError(t, err)
	require.False(t, out.Rebased)
	require.Contains(t, out.Rendered, "Rebase failed for "+s.expected+" as query failed\n")

	golden, err := os.ReadFile(s.expected)
	require.NoError(t, err)
	require.Equal(t, "old\n", string(golden))
}

func TestRunTestMalformedPerfFile(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{name: "not numbers", script: "printf 'col\\n'\nprintf 'x,y' > \"$4\"\n"},
		{name: "one value", script: "printf 'col\\n'\nprintf '123' > \"$4\"\n"},
		{name: "two lines", script: "printf 'col\\n'\nprintf '1,2\\n3,4\\n' > \"$4\"\n"},
		{name: "empty", script: "printf 'col\\n'\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newQuerySuite(t, "col\n")
			bin := fakeTP(t, tt.script)

			_, err := newRunner(t, bin, s.root).RunTest(context.Background(), s.test())
			require.Error(t, err)
		})
	}
}

func newSerializer(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "serialize_test_trace.py")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nprintf 'WIRE'\n"), 0755))
	return path
}

func TestRunTestGeneratedTraceKeepInput(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "test", "data", "synth.textproto")
	query := filepath.Join(root, "test", "trace_processor", "q.sql")
	expected := filepath.Join(root, "test", "trace_processor", "q.out")
	writeFile(t, src, "packet {}")
	writeFile(t, query, "select 1;")
	writeFile(t, expected, "ok\n")

	bin := fakeTP(t, "printf 'ok\\n'\nprintf '1,2' > \"$4\"\n")
	r := newRunner(t, bin, root)
	r.Materializer = &trace.Materializer{
		Serializer:      []string{newSerializer(t)},
		TraceDescriptor: filepath.Join(root, "out", "trace.descriptor"),
	}
	r.KeepInput = true

	out, err := r.RunTest(context.Background(), model.Test{
		Kind: model.TestKindQuery, Trace: src, Query: query, Expected: expected,
	})
	require.NoError(t, err)
	require.True(t, out.Passed)

	var kept string
	for _, line := range strings.Split(out.Rendered, "\n") {
		if rest, ok := strings.CutPrefix(line, "Saving generated input trace: "); ok {
			kept = rest
		}
	}
	require.NotEmpty(t, kept)
	data, err := os.ReadFile(kept)
	require.NoError(t, err)
	require.Equal(t, "WIRE", string(data))
	require.NoError(t, os.Remove(kept))
}

func TestRunTestGeneratedTraceRepro(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "test", "data", "synth.py")
	query := filepath.Join(root, "test", "trace_processor", "q.sql")
	expected := filepath.Join(root, "test", "trace_processor", "q.out")
	writeFile(t, src, "")
	writeFile(t, query, "select 1;")
	writeFile(t, expected, "wanted\n")

	bin := fakeTP(t, "printf 'got\\n'\nprintf '1,2' > \"$4\"\n")
	r := newRunner(t, bin, root)
	r.Materializer = &trace.Materializer{
		Serializer:      []string{newSerializer(t)},
		TraceDescriptor: filepath.Join(root, "out", "trace.descriptor"),
	}

	out, err := r.RunTest(context.Background(), model.Test{
		Kind: model.TestKindQuery, Trace: src, Query: query, Expected: expected,
	})
	require.NoError(t, err)
	require.False(t, out.Passed)

	require.Contains(t, out.Rendered, "Command to generate trace:\n")
	require.Contains(t, out.Rendered, "--descriptor "+filepath.Join("out", "trace.descriptor"))
	require.Contains(t, out.Rendered, filepath.Join("test", "data", "synth.py"))
}

// metricsDescriptor writes a descriptor set defining
// perfetto.protos.TraceMetrics with one android_cpu.runtime_ns field.
func metricsDescriptor(t *testing.T) string {
	t.Helper()
	set := &descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{
			{
				Name:    proto.String("protos/perfetto/metrics/metrics.proto"),
				Package: proto.String("perfetto.protos"),
				Syntax:  proto.String("proto3"),
				MessageType: []*descriptorpb.DescriptorProto{
					{
						Name: proto.String("AndroidCpuMetric"),
						Field: []*descriptorpb.FieldDescriptorProto{
							{
								Name:   proto.String("runtime_ns"),
								Number: proto.Int32(1),
								Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
								Type:   descriptorpb.FieldDescriptorProto_TYPE_INT64.Enum(),
							},
						},
					},
					{
						Name: proto.String("TraceMetrics"),
						Field: []*descriptorpb.FieldDescriptorProto{
							{
								Name:     proto.String("android_cpu"),
								Number:   proto.Int32(1),
								Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
								Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
								TypeName: proto.String(".perfetto.protos.AndroidCpuMetric"),
							},
						},
					},
				},
			},
		},
	}
	raw, err := proto.Marshal(set)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "metrics.descriptor")
	require.NoError(t, os.WriteFile(path, raw, 0644))
	return path
}

func metricTest(t *testing.T, goldenText string) (model.Test, string) {
	t.Helper()
	root := t.TempDir()
	tracePath := filepath.Join(root, "test", "data", "trace.pb")
	expected := filepath.Join(root, "test", "trace_processor", "android_cpu.out")
	writeFile(t, tracePath, "\x00trace")
	writeFile(t, expected, goldenText)
	return model.Test{
		Kind:     model.TestKindMetric,
		Trace:    tracePath,
		Query:    "android_cpu",
		Expected: expected,
	}, root
}

func TestRunTestBinaryMetricPass(t *testing.T) {
	dec, err := metricproto.NewDecoder([]string{metricsDescriptor(t)}, metricproto.TraceMetricsMessage)
	require.NoError(t, err)

	test, root := metricTest(t, "android_cpu { runtime_ns: 123 }")

	// TraceMetrics{android_cpu: {runtime_ns: 123}} in wire format.
	bin := fakeTP(t, "printf '\\012\\002\\010\\173'\nprintf '3000000,4000000' > \"$5\"\n")
	r := newRunner(t, bin, root)
	r.Decoder = dec

	out, err := r.RunTest(context.Background(), test)
	require.NoError(t, err)
	require.True(t, out.Passed)
	require.Contains(t, out.Rendered, "[       OK ] android_cpu trace.pb (ingest: 3.00 ms query: 4.00 ms)\n")
}

func TestRunTestBinaryMetricMismatch(t *testing.T) {
	dec, err := metricproto.NewDecoder([]string{metricsDescriptor(t)}, metricproto.TraceMetricsMessage)
	require.NoError(t, err)

	test, root := metricTest(t, "android_cpu { runtime_ns: 999 }")

	bin := fakeTP(t, "printf '\\012\\002\\010\\173'\nprintf '1,2' > \"$5\"\n")
	r := newRunner(t, bin, root)
	r.Decoder = dec

	out, err := r.RunTest(context.Background(), test)
	require.NoError(t, err)
	require.False(t, out.Passed)

	// The diff runs over the decoded text renderings of both sides.
	require.Contains(t, out.Rendered, "and metric android_cpu\n")
	require.Contains(t, out.Rendered, "999")
	require.Contains(t, out.Rendered, "123")
}

func TestRunTestJSONMetric(t *testing.T) {
	root := t.TempDir()
	tracePath := filepath.Join(root, "test", "data", "trace.pb")
	expected := filepath.Join(root, "test", "trace_processor", "android_cpu.json.out")
	writeFile(t, tracePath, "\x00trace")
	writeFile(t, expected, "{\"android_cpu\":{}}\n")

	bin := fakeTP(t, "printf '{\"android_cpu\":{}}\\n'\nprintf '1,2' > \"$5\"\n")
	out, err := newRunner(t, bin, root).RunTest(context.Background(), model.Test{
		Kind:         model.TestKindMetric,
		Trace:        tracePath,
		Query:        "android_cpu",
		Expected:     expected,
		MetricFormat: model.MetricOutputJSON,
	})
	require.NoError(t, err)
	require.True(t, out.Passed)
}
