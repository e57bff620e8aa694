// Package engine locates and drives the vitest test engine.
package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// PackageName is the npm package name of the engine.
const PackageName = "vitest"

// defaultEntry is the programmatic entry module used when the manifest does
// not export "./node".
const defaultEntry = "dist/node.js"

// PackageJSON represents the relevant parts of the engine's package.json.
type PackageJSON struct {
	Name    string          `json:"name"`
	Version string          `json:"version"`
	Main    string          `json:"main"`
	Exports json.RawMessage `json:"exports"`
}

// Installation describes a resolved engine install.
type Installation struct {
	Root         string `json:"root"`         // Package directory (…/node_modules/vitest)
	ManifestPath string `json:"manifestPath"` // Absolute path of package.json
	Version      string `json:"version"`
	Entry        string `json:"entry"` // Absolute path of the programmatic entry module
}

// Locator resolves the engine the way Node's module resolution would from Dir.
type Locator struct {
	// Dir is the directory resolution starts from. Empty means the current directory.
	Dir string
	// NodePath lists extra module roots searched after the node_modules walk, like NODE_PATH.
	NodePath []string
}

// NewLocator creates a locator starting at dir. NODE_PATH entries from the
// environment are appended to nodePath.
func NewLocator(dir string, nodePath []string) *Locator {
	paths := append([]string(nil), nodePath...)
	if env := os.Getenv("NODE_PATH"); env != "" {
		for _, p := range filepath.SplitList(env) {
			if p != "" {
				paths = append(paths, p)
			}
		}
	}
	return &Locator{Dir: dir, NodePath: paths}
}

// Locate returns the engine installation, or false if the engine is not
// installed or its manifest is unreadable. It never fails otherwise and
// does not modify anything.
func (l *Locator) Locate() (*Installation, bool) {
	for _, candidate := range l.candidates() {
		if inst, ok := loadInstallation(candidate); ok {
			return inst, true
		}
	}
	return nil, false
}

// candidates lists package directories in resolution order.
func (l *Locator) candidates() []string {
	var dirs []string

	start := l.Dir
	if start == "" {
		start = "."
	}
	if dir, err := filepath.Abs(start); err == nil {
		for {
			if filepath.Base(dir) != "node_modules" {
				dirs = append(dirs, filepath.Join(dir, "node_modules", PackageName))
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				// Reached filesystem root
				break
			}
			dir = parent
		}
	}

	for _, p := range l.NodePath {
		if abs, err := filepath.Abs(p); err == nil {
			dirs = append(dirs, filepath.Join(abs, PackageName))
		}
	}
	return dirs
}

// loadInstallation reads pkgDir/package.json. Returns false if the file
// doesn't exist, is malformed, or belongs to another package.
func loadInstallation(pkgDir string) (*Installation, bool) {
	manifestPath := filepath.Join(pkgDir, "package.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, false
	}

	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, false
	}
	if pkg.Name != PackageName {
		return nil, false
	}

	return &Installation{
		Root:         pkgDir,
		ManifestPath: manifestPath,
		Version:      pkg.Version,
		Entry:        filepath.Join(pkgDir, filepath.FromSlash(entryFromManifest(&pkg))),
	}, true
}

// entryFromManifest picks the "./node" subpath export. Conditional exports
// prefer "import", then "default"; nested condition objects are followed.
func entryFromManifest(pkg *PackageJSON) string {
	if len(pkg.Exports) == 0 {
		return defaultEntry
	}
	var exports map[string]json.RawMessage
	if err := json.Unmarshal(pkg.Exports, &exports); err != nil {
		return defaultEntry
	}
	target, ok := exports["./node"]
	if !ok {
		return defaultEntry
	}
	if entry := resolveCondition(target, 0); entry != "" {
		return strings.TrimPrefix(entry, "./")
	}
	return defaultEntry
}

// maxConditionDepth bounds recursion through nested condition objects.
const maxConditionDepth = 8

func resolveCondition(raw json.RawMessage, depth int) string {
	if depth > maxConditionDepth {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var conds map[string]json.RawMessage
	if err := json.Unmarshal(raw, &conds); err != nil {
		return ""
	}
	for _, key := range []string{"import", "default", "node"} {
		if next, ok := conds[key]; ok {
			if entry := resolveCondition(next, depth+1); entry != "" {
				return entry
			}
		}
	}
	return ""
}
