package engine

import (
	"path/filepath"
	"strings"
)

// AbsPath resolves p against dir (or the current directory when dir is
// empty) and cleans it.
func AbsPath(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if dir == "" {
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return filepath.Clean(p)
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		base = dir
	}
	return filepath.Join(base, p)
}

// AbsPaths applies AbsPath to every file.
func AbsPaths(dir string, files []string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = AbsPath(dir, f)
	}
	return out
}

// CLIFilter returns the filter a user would type for abs when running the
// engine from dir: the relative path when it stays inside dir, otherwise abs.
func CLIFilter(dir, abs string) string {
	base := dir
	if b, err := filepath.Abs(dir); err == nil {
		base = b
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || escapesUpward(rel) {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// CLIFilters applies CLIFilter to every absolute path.
func CLIFilters(dir string, abs []string) []string {
	out := make([]string, len(abs))
	for i, p := range abs {
		out[i] = CLIFilter(dir, p)
	}
	return out
}

func escapesUpward(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
