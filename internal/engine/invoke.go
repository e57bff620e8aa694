package engine

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AndreyAkinshin/vitestprovider/internal/errors"
)

//go:embed bridge.mjs
var bridgeScript []byte

// Environment markers telling nested tooling which provider is active.
const (
	EnvProviderKind = "TEST_HOST_PROVIDER_KIND"
	EnvProvider     = "TEST_HOST_PROVIDER"
	EnvProviderSpec = "TEST_HOST_PROVIDER_SPEC"
)

// Marker values.
const (
	ProviderKind     = "vitest"
	ProviderIdentity = "github.com/AndreyAkinshin/vitestprovider"
)

// ModeTest is the engine mode used for every run.
const ModeTest = "test"

// Bridge result statuses.
const (
	statusOK               = "ok"
	statusLoadFailure      = "load-failure"
	statusExecutionFailure = "execution-failure"
)

// Options is the option bag passed to the engine's entry point.
type Options struct {
	Run             bool     `json:"run"`
	Watch           bool     `json:"watch"`
	PassWithNoTests bool     `json:"passWithNoTests"`
	Reporters       []string `json:"reporters"`
	Silent          bool     `json:"silent"`
}

// RunOnceOptions returns the options for a single quiet, non-watching run.
func RunOnceOptions() Options {
	return Options{
		Run:             true,
		Watch:           false,
		PassWithNoTests: true,
		Reporters:       []string{},
		Silent:          true,
	}
}

// Request is what the bridge script reads.
type Request struct {
	Entry      string   `json:"entry"`
	Mode       string   `json:"mode"`
	Filters    []string `json:"filters"`
	Options    Options  `json:"options"`
	ResultFile string   `json:"resultFile"`
}

// bridgeResult is what the bridge script writes.
type bridgeResult struct {
	Status          string            `json:"status"`
	Reason          string            `json:"reason"`
	Files           []*ModuleResult   `json:"files"`
	UnhandledErrors []json.RawMessage `json:"unhandledErrors"`
}

// Run is the outcome of one successful engine invocation.
type Run struct {
	ID        string
	Requested []string // absolute paths of the requested files
	Filters   []string
	Context   ResultContext
	Stdout    string
	Stderr    string
	Elapsed   time.Duration
}

// Invoker calls the engine through the bridge script in a child node process.
type Invoker struct {
	Locator *Locator
	// Node is the node binary name or path.
	Node string
	// Dir is the working directory of the run. Empty means the current directory.
	Dir string
	// Env holds extra variables for the child environment.
	Env map[string]string
	// TempDir is where per-run directories are created. Empty means os.TempDir().
	TempDir string
	// WaitDelay bounds how long output streams held open by leftover engine
	// workers may delay the end of a run. Zero means DefaultWaitDelay.
	WaitDelay time.Duration
	Clock     clock.Clock
}

// DefaultWaitDelay is the wait delay used when Invoker.WaitDelay is zero.
const DefaultWaitDelay = 5 * time.Second

// NewInvoker creates an invoker running node in dir.
func NewInvoker(locator *Locator, node, dir string) *Invoker {
	return &Invoker{
		Locator: locator,
		Node:    node,
		Dir:     dir,
		Clock:   clock.NewClock(),
	}
}

// Invoke runs the engine once over files. An empty file list returns an
// empty run without touching the engine. Failures are *errors.EngineError
// of kind KindUnavailable, KindLoadFailure or KindExecutionFailure.
func (iv *Invoker) Invoke(ctx context.Context, files []string) (*Run, error) {
	run := &Run{ID: uuid.NewString()}
	if len(files) == 0 {
		return run, nil
	}

	inst, ok := iv.Locator.Locate()
	if !ok {
		return nil, errors.Unavailable(fmt.Sprintf(
			"vitest is not installed (no %s/package.json resolvable from %s)", PackageName, iv.workDir()))
	}
	if _, err := os.Stat(inst.Entry); err != nil {
		return nil, errors.LoadFailure(fmt.Sprintf("vitest %s entry module %s is missing", inst.Version, inst.Entry), err)
	}
	node, err := exec.LookPath(iv.nodeBinary())
	if err != nil {
		return nil, errors.LoadFailure("node runtime not found", err)
	}

	run.Requested = AbsPaths(iv.Dir, files)
	run.Filters = CLIFilters(iv.workDir(), run.Requested)

	runDir, err := os.MkdirTemp(iv.TempDir, "vitestprovider-"+run.ID+"-")
	if err != nil {
		return nil, errors.ExecutionFailure("failed to create bridge directory", err)
	}
	defer func() { _ = os.RemoveAll(runDir) }()

	scriptPath := filepath.Join(runDir, "bridge.mjs")
	requestPath := filepath.Join(runDir, "request.json")
	resultPath := filepath.Join(runDir, "result.json")

	req := Request{
		Entry:      inst.Entry,
		Mode:       ModeTest,
		Filters:    run.Filters,
		Options:    RunOnceOptions(),
		ResultFile: resultPath,
	}
	if err := writeBridgeFiles(scriptPath, requestPath, &req); err != nil {
		return nil, errors.ExecutionFailure("failed to prepare bridge", err)
	}

	start := iv.clk().Now()
	stdout, stderr, started, runErr := iv.runBridge(ctx, node, scriptPath, requestPath)
	run.Elapsed = iv.clk().Since(start)
	run.Stdout, run.Stderr = stdout, stderr

	if !started {
		return nil, errors.LoadFailure("failed to start node", runErr).WithOutput(stdout, stderr)
	}

	result, readErr := readBridgeResult(resultPath)
	if readErr != nil {
		cause := readErr
		switch {
		case ctx.Err() != nil:
			cause = ctx.Err()
		case runErr != nil:
			cause = runErr
		}
		return nil, errors.ExecutionFailure("vitest run ended without a result", cause).WithOutput(stdout, stderr)
	}

	switch result.Status {
	case statusOK:
	case statusLoadFailure:
		return nil, errors.LoadFailure("failed to load vitest entry point: "+result.Reason, nil).WithOutput(stdout, stderr)
	case statusExecutionFailure:
		return nil, errors.ExecutionFailure("vitest run threw: "+result.Reason, nil).WithOutput(stdout, stderr)
	default:
		return nil, errors.ExecutionFailure(fmt.Sprintf("unknown bridge status %q", result.Status), nil).WithOutput(stdout, stderr)
	}

	run.Context = ResultContext{
		Files:           result.Files,
		UnhandledErrors: result.UnhandledErrors,
	}
	return run, nil
}

// runBridge executes node with the bridge, draining both streams into
// in-memory sinks. started is false when the process never launched.
//
// Engine workers may inherit the streams and outlive the bridge, so the
// wait for them to close is bounded by the invoker's wait delay.
func (iv *Invoker) runBridge(ctx context.Context, node string, args ...string) (stdout, stderr string, started bool, err error) {
	cmd := exec.CommandContext(ctx, node, args...)
	cmd.Dir = iv.Dir
	cmd.Env = iv.environ()
	cmd.WaitDelay = iv.waitDelay()

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		_ = outW.Close()
		_ = errW.Close()
		return "", "", false, err
	}

	var outBuf, errBuf bytes.Buffer
	var waitErr error
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&outBuf, outR)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&errBuf, errR)
		return err
	})
	g.Go(func() error {
		waitErr = cmd.Wait()
		// Wait has stopped forwarding output; end both readers.
		_ = outW.Close()
		_ = errW.Close()
		return nil
	})

	copyErr := g.Wait()
	err = waitErr
	if err == nil {
		err = copyErr
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return outBuf.String(), errBuf.String(), true, err
}

// environ returns the child environment: the host environment, extra
// variables, then the provider markers. Later entries win, and the host
// process environment is left untouched.
func (iv *Invoker) environ() []string {
	env := os.Environ()

	keys := make([]string, 0, len(iv.Env))
	for k := range iv.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+iv.Env[k])
	}

	return append(env,
		EnvProviderKind+"="+ProviderKind,
		EnvProvider+"="+ProviderIdentity,
		EnvProviderSpec+"="+os.Getenv(EnvProviderSpec),
	)
}

func (iv *Invoker) workDir() string {
	if iv.Dir != "" {
		if abs, err := filepath.Abs(iv.Dir); err == nil {
			return abs
		}
		return iv.Dir
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

func (iv *Invoker) nodeBinary() string {
	if iv.Node == "" {
		return "node"
	}
	return iv.Node
}

func (iv *Invoker) waitDelay() time.Duration {
	if iv.WaitDelay <= 0 {
		return DefaultWaitDelay
	}
	return iv.WaitDelay
}

func (iv *Invoker) clk() clock.Clock {
	if iv.Clock == nil {
		return clock.NewClock()
	}
	return iv.Clock
}

func writeBridgeFiles(scriptPath, requestPath string, req *Request) error {
	if err := os.WriteFile(scriptPath, bridgeScript, 0o600); err != nil {
		return err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return os.WriteFile(requestPath, data, 0o600)
}

func readBridgeResult(path string) (*bridgeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var result bridgeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse bridge result: %w", err)
	}
	return &result, nil
}
