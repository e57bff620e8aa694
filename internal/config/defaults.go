package config

import "path/filepath"

// Default configuration values.
const (
	DefaultRuntime = "vitest"
	DefaultNode    = "node"
)

// applyDefaults fills in default values for unset fields and resolves
// relative paths against baseDir.
func applyDefaults(cfg *Config, baseDir string) {
	if cfg.Runtime == "" {
		cfg.Runtime = DefaultRuntime
	}
	if cfg.Node == "" {
		cfg.Node = DefaultNode
	}
	cfg.Dir = resolve(baseDir, cfg.Dir)
	for i, p := range cfg.NodePath {
		cfg.NodePath[i] = resolve(baseDir, p)
	}
	if cfg.MetricsFile != "" {
		cfg.MetricsFile = resolve(baseDir, cfg.MetricsFile)
	}
}

func resolve(baseDir, p string) string {
	if p == "" {
		return baseDir
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, p)
}
