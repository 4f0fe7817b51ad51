package metricproto

// metricproto.go contains the decoder that turns trace_processor's
// binary metric output and the checked-in text goldens into one common
// text rendering, so both sides of the diff come from the same
// marshaler.

import (
	"fmt"
	"os"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// TraceMetricsMessage is the root message trace_processor emits for
// --run-metrics in binary mode.
const TraceMetricsMessage protoreflect.FullName = "perfetto.protos.TraceMetrics"

// Decoder renders metric payloads against a descriptor set loaded at
// startup. It is safe for concurrent use; every render works on a fresh
// dynamic message.
type Decoder struct {
	desc  protoreflect.MessageDescriptor
	types *dynamicpb.Types
}

// NewDecoder loads the given serialized FileDescriptorSet files, merges
// them and resolves the message the decoder operates on. Proto files
// appearing in more than one set are deduplicated by name.
func NewDecoder(descriptorPaths []string, message protoreflect.FullName) (*Decoder, error) {
	merged := &descriptorpb.FileDescriptorSet{}
	seen := make(map[string]bool)
	for _, path := range descriptorPaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read descriptor %s: %w", path, err)
		}
		var set descriptorpb.FileDescriptorSet
		if err := proto.Unmarshal(raw, &set); err != nil {
			return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
		}
		for _, file := range set.File {
			if seen[file.GetName()] {
				continue
			}
			seen[file.GetName()] = true
			merged.File = append(merged.File, file)
		}
	}

	files, err := protodesc.NewFiles(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to build descriptor registry: %w", err)
	}
	desc, err := files.FindDescriptorByName(message)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve message %s: %w", message, err)
	}
	md, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("%s is not a message", message)
	}

	return &Decoder{desc: md, types: dynamicpb.NewTypes(files)}, nil
}

// RenderBinary parses a wire format payload and renders it as text.
func (d *Decoder) RenderBinary(payload []byte) (string, error) {
	msg := dynamicpb.NewMessage(d.desc)
	opts := proto.UnmarshalOptions{Resolver: d.types}
	if err := opts.Unmarshal(payload, msg); err != nil {
		return "", fmt.Errorf("failed to parse binary metrics: %w", err)
	}
	return d.render(msg)
}

// RenderText parses text format golden content and re-renders it.
func (d *Decoder) RenderText(src []byte) (string, error) {
	msg := dynamicpb.NewMessage(d.desc)
	opts := prototext.UnmarshalOptions{Resolver: d.types}
	if err := opts.Unmarshal(src, msg); err != nil {
		return "", fmt.Errorf("failed to parse text metrics: %w", err)
	}
	return d.render(msg)
}

func (d *Decoder) render(msg proto.Message) (string, error) {
	out, err := prototext.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to render metrics: %w", err)
	}
	return string(out), nil
}
