// Package integration contains end-to-end tests for the vitestprovider CLI.
//
// Each test builds a throwaway project with pkg/testhelper, so the whole
// pipeline from config discovery to the printed summary runs against a fake
// engine without a Node.js toolchain.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/AndreyAkinshin/vitestprovider/internal/cli"
	"github.com/AndreyAkinshin/vitestprovider/internal/testparser"
	"github.com/AndreyAkinshin/vitestprovider/pkg/testhelper"
)

type project struct {
	*testhelper.Project
	t *testing.T
}

func newProject(t *testing.T) *project {
	t.Helper()
	return &project{Project: testhelper.NewProject(t), t: t}
}

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(args ...string) cliResult {
	var stdout, stderr bytes.Buffer
	code := cli.RunContext(context.Background(), args, &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// run writes the config and runs the CLI against the project directory.
func (p *project) run(args ...string) cliResult {
	p.t.Helper()
	p.WriteConfig()
	return runCLI(append([]string{"--dir", p.Dir, "--no-color"}, args...)...)
}

// runJSON runs "run --json" with args and decodes the summary.
func (p *project) runJSON(args ...string) (cliResult, testparser.RunnerSummary) {
	p.t.Helper()
	res := p.run(append([]string{"run", "--json"}, args...)...)
	var summary testparser.RunnerSummary
	if err := json.Unmarshal([]byte(res.stdout), &summary); err != nil {
		p.t.Fatalf("stdout is not a JSON summary: %v\nstdout: %s\nstderr: %s", err, res.stdout, res.stderr)
	}
	return res, summary
}
