// Package testhelper builds throwaway projects for exercising vitestprovider
// without a Node.js toolchain.
//
// A Project has a node_modules/vitest install and a fake node binary. The fake
// node copies a canned bridge result into place, so the provider sees exactly
// the engine output the test describes.
//
// Example usage in a Go test:
//
//	func TestRun(t *testing.T) {
//	    p := testhelper.NewProject(t)
//	    file := p.Path("a.test.ts")
//	    p.Result(testhelper.OK(testhelper.Module(file, 0, testhelper.Passing("works", 1))))
//	    p.WriteConfig()
//
//	    // run vitestprovider with --dir p.Dir
//	}
package testhelper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

// ConfigFileName is the config file written by WriteConfig.
const ConfigFileName = ".vitestprovider.yaml"

// EngineVersion is the version of the fake vitest install.
const EngineVersion = "1.6.0"

// FakeNodeScript stands in for node and is driven by environment variables:
//
//	FAKE_REQUEST_OUT  copy the bridge request here
//	FAKE_ENV_OUT      dump the child environment here
//	FAKE_SLEEP        exec sleep for this long before producing a result
//	FAKE_RESULT       copy this file next to the request as the bridge result
//	FAKE_EXIT         exit code (default 0)
const FakeNodeScript = `#!/bin/sh
dir=$(dirname "$2")
[ -n "$FAKE_REQUEST_OUT" ] && cp "$2" "$FAKE_REQUEST_OUT"
[ -n "$FAKE_ENV_OUT" ] && env > "$FAKE_ENV_OUT"
echo "RUN v` + EngineVersion + `"
echo "something went sideways" >&2
[ -n "$FAKE_SLEEP" ] && exec sleep "$FAKE_SLEEP"
[ -n "$FAKE_RESULT" ] && cp "$FAKE_RESULT" "$dir/result.json"
exit ${FAKE_EXIT:-0}
`

// Project is a temporary project directory with a fake engine.
type Project struct {
	// Dir is the project root holding node_modules and the config file.
	Dir string
	// Node is the node binary written to the config.
	Node string
	// Scratch holds the fake node, canned results and recordings.
	Scratch string
	// Env is written to the config's env map.
	Env map[string]string
	// Extra is appended verbatim to the config file.
	Extra string

	t testing.TB
}

// NewProject creates a project with vitest installed and a fake node binary.
// It skips the test on Windows and clears NODE_PATH for the test's duration.
func NewProject(t testing.TB) *Project {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	t.Setenv("NODE_PATH", "")

	p := &Project{
		Dir:     t.TempDir(),
		Scratch: t.TempDir(),
		Env:     map[string]string{},
		t:       t,
	}
	p.Write("node_modules/vitest/package.json", fmt.Sprintf(
		`{"name": "vitest", "version": %q, "exports": {"./node": {"import": "./dist/node.js"}}}`, EngineVersion))
	p.Write("node_modules/vitest/dist/node.js", "export {}\n")

	p.Node = filepath.Join(p.Scratch, "node")
	if err := os.WriteFile(p.Node, []byte(FakeNodeScript), 0755); err != nil {
		t.Fatal(err)
	}
	return p
}

// Path returns the absolute path of a slash-separated path inside Dir.
func (p *Project) Path(rel string) string {
	return filepath.Join(p.Dir, filepath.FromSlash(rel))
}

// Write creates a file inside Dir, along with its parent directories.
func (p *Project) Write(rel, content string) {
	p.t.Helper()
	path := p.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		p.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		p.t.Fatal(err)
	}
}

// RemoveInstall deletes the vitest install.
func (p *Project) RemoveInstall() {
	p.t.Helper()
	if err := os.RemoveAll(p.Path("node_modules")); err != nil {
		p.t.Fatal(err)
	}
}

// Result makes the fake engine report v as its bridge result.
func (p *Project) Result(v any) {
	p.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		p.t.Fatal(err)
	}
	path := filepath.Join(p.Scratch, "canned-result.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		p.t.Fatal(err)
	}
	p.Env["FAKE_RESULT"] = path
}

// RecordRequest makes the fake engine copy the bridge request to the
// returned path.
func (p *Project) RecordRequest() string {
	path := filepath.Join(p.Scratch, "request.json")
	p.Env["FAKE_REQUEST_OUT"] = path
	return path
}

// RecordEnv makes the fake engine dump its environment to the returned path.
func (p *Project) RecordEnv() string {
	path := filepath.Join(p.Scratch, "env.txt")
	p.Env["FAKE_ENV_OUT"] = path
	return path
}

// WriteConfig writes the config file pointing at the fake node.
func (p *Project) WriteConfig() string {
	p.t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "node: %q\n", p.Node)
	if len(p.Env) > 0 {
		b.WriteString("env:\n")
		keys := make([]string, 0, len(p.Env))
		for k := range p.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %q\n", k, p.Env[k])
		}
	}
	b.WriteString(p.Extra)
	p.Write(ConfigFileName, b.String())
	return p.Path(ConfigFileName)
}
