package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoConfig is returned when no config file exists in the start directory or any parent.
var ErrNoConfig = errors.New(FileName + " not found in the directory or any parent up to the root")

// FindConfigFrom walks up from startDir until it finds a config file and returns its path.
func FindConfigFrom(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", ErrNoConfig
		}
		dir = parent
	}
}

// Resolve loads the explicit config file when path is set, else the nearest
// config file above startDir, else the defaults rooted at startDir.
func Resolve(path, startDir string) (*Config, []string, error) {
	if path != "" {
		return LoadAndValidate(path)
	}

	found, err := FindConfigFrom(startDir)
	if errors.Is(err, ErrNoConfig) {
		cfg, err := Default(startDir)
		if err != nil {
			return nil, nil, err
		}
		warnings, err := Validate(cfg)
		if err != nil {
			return nil, warnings, err
		}
		return cfg, warnings, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search for %s: %w", FileName, err)
	}
	return LoadAndValidate(found)
}
