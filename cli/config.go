package cli

// config.go contains the optional YAML configuration file carrying
// defaults for flags that rarely change between runs of one checkout.
// Flags always win over file values.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Suite root holding test/data and test/trace_processor
	RootDir string `yaml:"root_dir"`
	// Trace serializer command, split on whitespace
	Serializer string `yaml:"serializer"`
	// Path of the trace protobuf descriptor
	TraceDescriptor string `yaml:"trace_descriptor"`
	// Paths of the metrics descriptor sets
	MetricsDescriptors []string `yaml:"metrics_descriptors"`
	// Extra variables for the controlled child environment
	Env map[string]string `yaml:"env"`
	// Worker count
	Jobs int `yaml:"jobs"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}
