package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/acarl005/stripansi"

	"github.com/AndreyAkinshin/vitestprovider/internal/engine"
	"github.com/AndreyAkinshin/vitestprovider/internal/errors"
	"github.com/AndreyAkinshin/vitestprovider/internal/metrics"
	"github.com/AndreyAkinshin/vitestprovider/internal/output"
	"github.com/AndreyAkinshin/vitestprovider/internal/testparser"
)

// DefaultRuntimeID is the runtime identifier claimed when none is configured.
const DefaultRuntimeID = "vitest"

// FailureName names the synthetic results reported when the engine could not run.
const FailureName = "[vitest provider]"

// Engine runs the requested files and returns the engine's raw result.
type Engine interface {
	Invoke(ctx context.Context, files []string) (*engine.Run, error)
}

// VitestRegistry serves the vitest provider for its runtime identifier and
// delegates every other identifier to a fallback registry.
type VitestRegistry struct {
	runtimeID string
	provider  *VitestProvider
	fallback  Registry
}

// NewVitestRegistry creates a registry claiming runtimeID (DefaultRuntimeID
// when empty). fallback may be nil.
func NewVitestRegistry(runtimeID string, p *VitestProvider, fallback Registry) *VitestRegistry {
	if runtimeID == "" {
		runtimeID = DefaultRuntimeID
	}
	p.runtimeID = runtimeID
	return &VitestRegistry{runtimeID: runtimeID, provider: p, fallback: fallback}
}

// RuntimeID returns the claimed runtime identifier.
func (r *VitestRegistry) RuntimeID() string {
	return r.runtimeID
}

// Get returns the vitest provider for the claimed runtime, else whatever the
// fallback returns.
func (r *VitestRegistry) Get(runtimeID string) Provider {
	if runtimeID == r.runtimeID {
		return r.provider
	}
	if r.fallback == nil {
		return nil
	}
	return r.fallback.Get(runtimeID)
}

// Runtimes lists the claimed identifier followed by those the fallback
// reports, if it can list them.
func (r *VitestRegistry) Runtimes() []string {
	ids := []string{r.runtimeID}
	if lister, ok := r.fallback.(interface{ Runtimes() []string }); ok {
		ids = append(ids, lister.Runtimes()...)
	}
	return ids
}

// VitestProvider runs test files through the vitest engine.
type VitestProvider struct {
	engine    Engine
	out       *output.Writer
	metrics   *metrics.Metrics
	clock     clock.Clock
	runtimeID string
}

// NewVitestProvider creates a provider. out receives diagnostics and may be
// nil, as may m.
func NewVitestProvider(eng Engine, out *output.Writer, m *metrics.Metrics) *VitestProvider {
	if out == nil {
		out = output.Discard()
	}
	return &VitestProvider{
		engine:    eng,
		out:       out,
		metrics:   m,
		clock:     clock.NewClock(),
		runtimeID: DefaultRuntimeID,
	}
}

// WithClock replaces the clock measuring failed runs.
func (p *VitestProvider) WithClock(c clock.Clock) *VitestProvider {
	p.clock = c
	return p
}

// RunTests runs files and returns their summary. An empty list returns the
// empty summary without starting the engine.
func (p *VitestProvider) RunTests(ctx context.Context, files []string) (summary testparser.RunnerSummary) {
	if len(files) == 0 {
		p.metrics.RecordRun(p.runtimeID, metrics.OutcomeEmpty, 0, 0, 0)
		return testparser.EmptySummary()
	}

	start := p.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			summary = p.failureSummary(files, fmt.Errorf("engine invocation panicked: %v", r), p.clock.Since(start))
		}
	}()

	run, err := p.engine.Invoke(ctx, files)
	if err == nil && run == nil {
		err = errors.ExecutionFailure("engine returned no result", nil)
	}
	if err != nil {
		return p.failureSummary(files, err, p.clock.Since(start))
	}

	flat := testparser.Flatten(run.Context.Files, run.Requested)
	summary = testparser.BuildSummary(flat, run.Context.UnhandledErrors, run.Requested, run.Elapsed)

	p.out.Debug("vitest run %s: %d passed, %d failed in %s", run.ID, summary.Passed, summary.Failed, run.Elapsed)
	p.metrics.RecordUnhandled(len(run.Context.UnhandledErrors))
	outcome := metrics.OutcomePassed
	if summary.Failed > 0 {
		outcome = metrics.OutcomeFailed
	}
	p.metrics.RecordRun(p.runtimeID, outcome, summary.Passed, summary.Failed, run.Elapsed)
	return summary
}

// failureSummary reports err as one failing result per requested file.
func (p *VitestProvider) failureSummary(files []string, err error, elapsed time.Duration) testparser.RunnerSummary {
	kind := errors.KindOf(err)
	p.out.Warning("vitest provider: %s: %v", kind, err)
	p.metrics.RecordEngineError(kind.String())

	summary := FailureSummary(files, err)
	if elapsed > 0 {
		summary.DurationMs = float64(elapsed) / float64(time.Millisecond)
	}
	p.metrics.RecordRun(p.runtimeID, metrics.OutcomeAborted, 0, summary.Failed, elapsed)
	return summary
}

// FailureSummary builds the all-failing summary for an invocation that could
// not produce results: one failing result per file, or exactly one when
// files is empty.
func FailureSummary(files []string, err error) testparser.RunnerSummary {
	msg := FailureMessage(err)

	targets := files
	if len(targets) == 0 {
		targets = []string{testparser.UnknownFile}
	}

	results := make([]testparser.TestRunResult, 0, len(targets))
	for _, f := range targets {
		results = append(results, testparser.TestRunResult{
			Name:    FailureName,
			File:    f,
			Passed:  false,
			Message: testparser.Msg(msg),
		})
	}
	return testparser.RunnerSummary{
		Failed:  len(results),
		Total:   len(results),
		Results: results,
	}
}

// FailureMessage joins the failure reason with the captured engine output,
// stripped of terminal escapes.
func FailureMessage(err error) string {
	reason := testparser.UnknownError
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		reason = err.Error()
	}
	parts := []string{reason}

	stdout, stderr := errors.CapturedOutput(err)
	if s := strings.TrimSpace(stripansi.Strip(stdout)); s != "" {
		parts = append(parts, "stdout:\n"+s)
	}
	if s := strings.TrimSpace(stripansi.Strip(stderr)); s != "" {
		parts = append(parts, "stderr:\n"+s)
	}
	return strings.Join(parts, "\n\n")
}
