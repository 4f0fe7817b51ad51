package trace

// trace.go contains the materializer that turns generative trace
// sources (.py and .textproto) into the native wire format by invoking
// the external serializer tool.

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Generated is a trace file ready to hand to trace_processor. When the
// source needed serialization, Path points at a temp file owned by the
// caller.
type Generated struct {
	// Path of the usable trace file
	Path string
	// Source the trace came from (same as Path for native traces)
	Source string

	temp bool
}

// Temp reports whether Path is a generated temp file.
func (g *Generated) Temp() bool { return g.temp }

// Release removes the generated temp file. With keep set the file is
// left behind for debugging. Native traces are never touched.
func (g *Generated) Release(keep bool) error {
	if !g.temp || keep {
		return nil
	}
	return os.Remove(g.Path)
}

// Materializer invokes the external trace serializer. The serializer
// writes the wire format trace to stdout.
type Materializer struct {
	// Serializer command, e.g. [tools/serialize_test_trace.py]
	Serializer []string
	// Descriptor describing the root trace proto
	TraceDescriptor string
	// Extension descriptors merged in for textproto sources only
	ExtensionDescriptors []string
}

// Materialize returns a trace file in the native wire format. Sources
// ending in .py or .textproto are serialized into a fresh temp file;
// every other trace is passed through untouched.
func (m *Materializer) Materialize(ctx context.Context, tracePath string) (*Generated, error) {
	textproto := strings.HasSuffix(tracePath, ".textproto")
	if !textproto && !strings.HasSuffix(tracePath, ".py") {
		return &Generated{Path: tracePath, Source: tracePath}, nil
	}
	if len(m.Serializer) == 0 {
		return nil, fmt.Errorf("no serializer configured for generated trace %s", tracePath)
	}

	out, err := os.CreateTemp("", "tpdiff-trace-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp trace file: %w", err)
	}

	args := append([]string{}, m.Serializer[1:]...)
	args = append(args, "--descriptor", m.TraceDescriptor)
	if textproto {
		for _, ext := range m.ExtensionDescriptors {
			args = append(args, "--extension-descriptor", ext)
		}
	}
	args = append(args, tracePath)

	var stderrBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, m.Serializer[0], args...)
	cmd.Stdout = out
	cmd.Stderr = &stderrBuf

	if err := cmd.Run(); err != nil {
		out.Close()
		os.Remove(out.Name())
		return nil, fmt.Errorf("failed to serialize trace %s: %w\n%s", tracePath, err, stderrBuf.String())
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return nil, fmt.Errorf("failed to close temp trace file: %w", err)
	}

	return &Generated{Path: out.Name(), Source: tracePath, temp: true}, nil
}
