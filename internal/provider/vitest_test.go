package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/AndreyAkinshin/vitestprovider/internal/engine"
	"github.com/AndreyAkinshin/vitestprovider/internal/errors"
	"github.com/AndreyAkinshin/vitestprovider/internal/metrics"
	"github.com/AndreyAkinshin/vitestprovider/internal/output"
	"github.com/AndreyAkinshin/vitestprovider/internal/testing/mocks"
	"github.com/AndreyAkinshin/vitestprovider/internal/testparser"
)

// runFromJSON builds a successful run whose result context is decoded from payload.
func runFromJSON(t *testing.T, requested []string, elapsed time.Duration, payload string) *engine.Run {
	t.Helper()
	run := &engine.Run{ID: "run-1", Requested: requested, Elapsed: elapsed}
	if err := json.Unmarshal([]byte(payload), &run.Context); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return run
}

func newProvider(eng Engine) (*VitestProvider, *bytes.Buffer, *metrics.Metrics) {
	stderr := &bytes.Buffer{}
	m := metrics.New()
	p := NewVitestProvider(eng, output.NewWithWriters(&bytes.Buffer{}, stderr, false), m).
		WithClock(fakeclock.NewFakeClock(time.Unix(0, 0)))
	return p, stderr, m
}

// checkSummary verifies the count and message invariants.
func checkSummary(t *testing.T, s testparser.RunnerSummary) {
	t.Helper()
	if s.Results == nil {
		t.Error("Results is nil")
	}
	passed := 0
	for _, r := range s.Results {
		if r.Passed {
			passed++
		}
		if r.Passed != (r.Message == nil) {
			t.Errorf("result %q: passed=%v message=%v", r.Name, r.Passed, r.Message)
		}
	}
	if s.Total != len(s.Results) || s.Passed != passed || s.Failed != s.Total-passed {
		t.Errorf("counts inconsistent: %d/%d/%d over %d results", s.Passed, s.Failed, s.Total, len(s.Results))
	}
}

func TestRunTests_EmptyFiles(t *testing.T) {
	t.Parallel()
	eng := mocks.NewEngine().WithError(fmt.Errorf("must not be called"))
	p, stderr, _ := newProvider(eng)

	got := p.RunTests(context.Background(), nil)

	if diff := cmp.Diff(testparser.EmptySummary(), got); diff != "" {
		t.Errorf("RunTests(nil) mismatch (-want +got):\n%s", diff)
	}
	if eng.CallCount() != 0 {
		t.Errorf("engine called %d times", eng.CallCount())
	}
	if stderr.Len() != 0 {
		t.Errorf("unexpected diagnostics: %q", stderr.String())
	}
}

func TestRunTests_EngineNotInstalled(t *testing.T) {
	t.Parallel()
	eng := mocks.NewEngine().WithError(errors.Unavailable("vitest is not installed (no vitest/package.json resolvable from /p)"))
	p, stderr, m := newProvider(eng)

	got := p.RunTests(context.Background(), []string{"a.test.ts"})
	checkSummary(t, got)

	if got.Total != 1 || got.Failed != 1 {
		t.Fatalf("counts = %d/%d, want total 1 failed 1", got.Total, got.Failed)
	}
	r := got.Results[0]
	if r.Name != FailureName || r.File != "a.test.ts" || r.Passed {
		t.Errorf("result = %+v", r)
	}
	if !strings.Contains(*r.Message, "not installed") {
		t.Errorf("message = %q, want it to mention not installed", *r.Message)
	}
	if !strings.Contains(stderr.String(), "warning: vitest provider: EngineUnavailable") {
		t.Errorf("diagnostics = %q", stderr.String())
	}
	if n, err := testutil.GatherAndCount(m.Registry(), "vitestprovider_engine_errors_total"); err != nil || n != 1 {
		t.Errorf("engine error series = %d (%v), want 1", n, err)
	}
}

func TestRunTests_FailureKinds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "load failure",
			err:  errors.LoadFailure("failed to load vitest entry point: SyntaxError", nil),
			want: []string{"failed to load vitest entry point: SyntaxError"},
		},
		{
			name: "execution failure with output",
			err: errors.ExecutionFailure("vitest run threw: boom", nil).
				WithOutput("\x1b[32mRUN\x1b[0m v1.0.0\n", "\x1b[31mError: boom\x1b[0m"),
			want: []string{"vitest run threw: boom\n\nstdout:\nRUN v1.0.0\n\nstderr:\nError: boom"},
		},
		{
			name: "wrapped engine error",
			err:  fmt.Errorf("invoke: %w", errors.ExecutionFailure("vitest run ended without a result", nil).WithOutput("", "killed")),
			want: []string{"invoke: vitest run ended without a result\n\nstderr:\nkilled"},
		},
		{
			name: "plain error",
			err:  fmt.Errorf("unexpected"),
			want: []string{"unexpected"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, _, _ := newProvider(mocks.NewEngine().WithError(tt.err))
			got := p.RunTests(context.Background(), []string{"a.test.ts", "b.test.ts"})
			checkSummary(t, got)

			if got.Total != 2 || got.Failed != 2 {
				t.Fatalf("counts = %d/%d, want 2 failed of 2", got.Failed, got.Total)
			}
			for i, file := range []string{"a.test.ts", "b.test.ts"} {
				r := got.Results[i]
				if r.File != file || r.Name != FailureName {
					t.Errorf("result %d = %+v", i, r)
				}
				if *r.Message != tt.want[0] {
					t.Errorf("message = %q, want %q", *r.Message, tt.want[0])
				}
			}
		})
	}
}

func TestRunTests_Panic(t *testing.T) {
	t.Parallel()
	p, stderr, _ := newProvider(mocks.NewEngine().WithPanic("nil map write"))

	got := p.RunTests(context.Background(), []string{"a.test.ts"})
	checkSummary(t, got)

	if got.Failed != 1 || !strings.Contains(*got.Results[0].Message, "panicked: nil map write") {
		t.Errorf("summary = %+v", got)
	}
	if !strings.Contains(stderr.String(), "RuntimeError") {
		t.Errorf("diagnostics = %q", stderr.String())
	}
}

func TestRunTests_NilRun(t *testing.T) {
	t.Parallel()
	p, _, _ := newProvider(mocks.NewEngine().WithRun(nil))

	got := p.RunTests(context.Background(), []string{"a.test.ts"})
	checkSummary(t, got)
	if got.Failed != 1 || !strings.Contains(*got.Results[0].Message, "engine returned no result") {
		t.Errorf("summary = %+v", got)
	}
}

func TestRunTests_Success(t *testing.T) {
	t.Parallel()
	run := runFromJSON(t, []string{"/p/a.test.ts"}, 200*time.Millisecond, `{
		"files": [{"filepath": "/p/a.test.ts", "result": {"duration": 120}, "tasks": [
			{"name": "outer", "type": "suite", "tasks": [
				{"name": "inner", "type": "test", "result": {"state": "pass", "duration": 5}},
				{"name": "skipped", "type": "test", "mode": "skip"},
				{"name": "broken", "type": "test", "result": {"state": "fail", "duration": 3,
					"errors": [{"message": "expected 1 to be 2"}, {"message": "expected 1 to be 2"}]}}
			]}
		]}],
		"unhandledErrors": [{"message": "late", "stack": "Error: late"}]
	}`)
	eng := mocks.NewEngine().WithRun(run)
	p, _, m := newProvider(eng)

	got := p.RunTests(context.Background(), []string{"a.test.ts"})
	checkSummary(t, got)

	want := testparser.RunnerSummary{
		Passed:     2,
		Failed:     2,
		Total:      4,
		DurationMs: 8,
		Results: []testparser.TestRunResult{
			{Name: "inner", File: "/p/a.test.ts", Passed: true, DurationMs: 5},
			{Name: "skipped", File: "/p/a.test.ts", Passed: true},
			{Name: "broken", File: "/p/a.test.ts", Message: testparser.Msg("expected 1 to be 2"), DurationMs: 3},
			{Name: testparser.UnhandledName, File: "/p/a.test.ts", Message: testparser.Msg("Error: late")},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RunTests() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"a.test.ts"}}, eng.Calls()); diff != "" {
		t.Errorf("engine calls mismatch (-want +got):\n%s", diff)
	}
	if n, err := testutil.GatherAndCount(m.Registry(), "vitestprovider_unhandled_errors_total"); err != nil || n != 1 {
		t.Errorf("unhandled series = %d (%v), want 1", n, err)
	}
}

func TestRunTests_ModuleDurationFallback(t *testing.T) {
	t.Parallel()
	run := runFromJSON(t, []string{"/p/a.test.ts"}, 200*time.Millisecond, `{
		"files": [{"filepath": "/p/a.test.ts", "result": {"duration": 120}, "tasks": [
			{"name": "a", "type": "test", "result": {"state": "pass", "duration": 0}},
			{"name": "b", "type": "test", "result": {"state": "pass"}}
		]}]
	}`)
	p, _, _ := newProvider(mocks.NewEngine().WithRun(run))

	got := p.RunTests(context.Background(), []string{"/p/a.test.ts"})
	checkSummary(t, got)
	if got.DurationMs != 120 {
		t.Errorf("DurationMs = %v, want 120", got.DurationMs)
	}
}

func TestRunTests_FiltersUnrequestedModules(t *testing.T) {
	t.Parallel()
	run := runFromJSON(t, []string{"/p/a.test.ts"}, 0, `{"files": [
		{"filepath": "/p/a.test.ts", "tasks": [{"name": "a", "type": "test", "result": {"state": "pass"}}]},
		{"filepath": "/p/z.test.ts", "tasks": [{"name": "z", "type": "test", "result": {"state": "fail"}}]}
	]}`)
	p, _, _ := newProvider(mocks.NewEngine().WithRun(run))

	got := p.RunTests(context.Background(), []string{"a.test.ts"})
	checkSummary(t, got)
	if got.Total != 1 || got.Results[0].Name != "a" {
		t.Errorf("summary = %+v", got)
	}
}

func TestFailureSummary_EmptyFileList(t *testing.T) {
	t.Parallel()
	got := FailureSummary(nil, errors.Unavailable("vitest is not installed"))
	checkSummary(t, got)
	if got.Total != 1 || got.Results[0].File != testparser.UnknownFile {
		t.Errorf("summary = %+v", got)
	}
}

func TestFailureMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, testparser.UnknownError},
		{"reason only", errors.Unavailable("vitest is not installed"), "vitest is not installed"},
		{"blank output dropped", errors.ExecutionFailure("threw", nil).WithOutput("  \n", ""), "threw"},
		{"stdout only", errors.ExecutionFailure("threw", nil).WithOutput("log line\n", ""), "threw\n\nstdout:\nlog line"},
		{"ansi stripped", errors.ExecutionFailure("threw", nil).WithOutput("", "\x1b[1m\x1b[31mFAIL\x1b[39m\x1b[22m"), "threw\n\nstderr:\nFAIL"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FailureMessage(tt.err); got != tt.want {
				t.Errorf("FailureMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
