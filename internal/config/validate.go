package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/AndreyAkinshin/vitestprovider/internal/engine"
)

// Runtime identifier: lowercase letter first, then lowercase, digits, dot, underscore, hyphen.
var runtimePattern = regexp.MustCompile(`^[a-z][a-z0-9._-]*$`)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a configuration for errors and returns warnings for non-fatal issues.
// It expects defaults to be applied.
func Validate(cfg *Config) (warnings []string, err error) {
	if !runtimePattern.MatchString(cfg.Runtime) {
		return nil, &ValidationError{
			Field:   "runtime",
			Message: "must match pattern ^[a-z][a-z0-9._-]*$",
		}
	}

	for _, alias := range cfg.Aliases {
		if !runtimePattern.MatchString(alias) {
			return nil, &ValidationError{
				Field:   "aliases",
				Message: fmt.Sprintf("%q must match pattern ^[a-z][a-z0-9._-]*$", alias),
			}
		}
		if alias == cfg.Runtime {
			warnings = append(warnings, fmt.Sprintf("alias %q repeats the runtime identifier", alias))
		}
	}

	if cfg.Node == "" {
		return nil, &ValidationError{Field: "node", Message: "is required"}
	}

	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, &ValidationError{Field: "timeout", Message: fmt.Sprintf("invalid duration %q", cfg.Timeout)}
		}
		if d < 0 {
			return nil, &ValidationError{Field: "timeout", Message: "must not be negative"}
		}
	}

	if info, err := os.Stat(cfg.Dir); err != nil || !info.IsDir() {
		return nil, &ValidationError{Field: "dir", Message: fmt.Sprintf("%s is not a directory", cfg.Dir)}
	}

	envWarnings, err := validateEnv(cfg.Env)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, envWarnings...)

	for _, p := range cfg.NodePath {
		if _, err := os.Stat(p); err != nil {
			warnings = append(warnings, fmt.Sprintf("nodePath entry %s does not exist", p))
		}
	}

	return warnings, nil
}

func validateEnv(env map[string]string) ([]string, error) {
	managed := map[string]bool{
		engine.EnvProviderKind: true,
		engine.EnvProvider:     true,
		engine.EnvProviderSpec: true,
	}

	var warnings []string
	for key := range env {
		if key == "" {
			return nil, &ValidationError{Field: "env", Message: "variable names must not be empty"}
		}
		if managed[key] {
			warnings = append(warnings, fmt.Sprintf("env %s is set by the provider and will be overridden", key))
		}
	}
	sort.Strings(warnings)
	return warnings, nil
}
