// Package config loads and validates the .vitestprovider.yaml configuration file.
package config

import "time"

// FileName is the name of the configuration file searched for by discovery.
const FileName = ".vitestprovider.yaml"

// Config represents the complete .vitestprovider.yaml configuration.
type Config struct {
	// Runtime is the identifier the provider claims in the host registry.
	Runtime string `yaml:"runtime,omitempty"`
	// Aliases are further runtime identifiers served by the same provider.
	Aliases []string `yaml:"aliases,omitempty"`
	// Node is the node binary name or path.
	Node string `yaml:"node,omitempty"`
	// Dir is the working directory of runs. Relative paths resolve against
	// the directory holding the config file.
	Dir         string            `yaml:"dir,omitempty"`
	NodePath    []string          `yaml:"nodePath,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	MetricsFile string            `yaml:"metricsFile,omitempty"`
	Timeout     string            `yaml:"timeout,omitempty"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

// TimeoutDuration returns the parsed timeout, or 0 when unset or invalid.
// Validate reports invalid values.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
