package cmd

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/herdtune/herdtune/tune"
	"github.com/herdtune/herdtune/tune/runner"
)

// Config represents the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version   string                 `yaml:"version"`
	Formats   map[string]tune.Format `yaml:"formats"`
	Toolchain runner.Toolchain       `yaml:"toolchain"`
}

// loadDefaultsConfig parses defaults.yaml into a Config struct.
// Unknown keys are errors so that typos surface instead of silently using zero values.
func loadDefaultsConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading defaults file: %w", err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing defaults YAML %s: %w", path, err)
	}
	return cfg, nil
}

// Format returns the named format descriptor with its name filled in.
func (c Config) Format(name string) (tune.Format, error) {
	f, ok := c.Formats[name]
	if !ok {
		return tune.Format{}, fmt.Errorf("unknown format %q (available: %s)", name, strings.Join(c.FormatNames(), ", "))
	}
	f.Name = name
	if err := f.Validate(); err != nil {
		return tune.Format{}, err
	}
	return f, nil
}

// FormatNames lists the configured formats in sorted order.
func (c Config) FormatNames() []string {
	names := make([]string, 0, len(c.Formats))
	for name := range c.Formats {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
