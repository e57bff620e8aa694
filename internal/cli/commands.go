package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/AndreyAkinshin/vitestprovider/internal/config"
	"github.com/AndreyAkinshin/vitestprovider/internal/engine"
	"github.com/AndreyAkinshin/vitestprovider/internal/errors"
	"github.com/AndreyAkinshin/vitestprovider/internal/metrics"
	"github.com/AndreyAkinshin/vitestprovider/internal/provider"
)

// run command flags.
var (
	RuntimeFlag = &cli.StringFlag{
		Name:    "runtime",
		EnvVars: prefixEnvVar("RUNTIME"),
		Usage:   "Runtime identifier to resolve in the provider registry (default: the configured runtime)",
	}
	NodeFlag = &cli.StringFlag{
		Name:    "node",
		EnvVars: prefixEnvVar("NODE"),
		Usage:   "Node.js binary name or path",
	}
	JSONFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the summary as JSON",
	}
	TableFlag = &cli.BoolFlag{
		Name:  "table",
		Usage: "Print every result as a table row",
	}
	MetricsFileFlag = &cli.StringFlag{
		Name:    "metrics-file",
		EnvVars: prefixEnvVar("METRICS_FILE"),
		Usage:   "Write Prometheus metrics to this textfile after the run",
	}
	TimeoutFlag = &cli.DurationFlag{
		Name:    "timeout",
		EnvVars: prefixEnvVar("TIMEOUT"),
		Usage:   "Cancel the run after this duration (e.g. '5m'); 0 means no limit",
	}
)

func (a *application) runCommand() *cli.Command {
	return &cli.Command{
		Name:         "run",
		Usage:        "Run test files through vitest and print the summary",
		ArgsUsage:    "<file>...",
		Flags:        []cli.Flag{RuntimeFlag, NodeFlag, JSONFlag, TableFlag, MetricsFileFlag, TimeoutFlag},
		Action:       a.cmdRun,
		OnUsageError: a.onUsageError,
	}
}

func (a *application) locateCommand() *cli.Command {
	return &cli.Command{
		Name:         "locate",
		Usage:        "Show the vitest installation the provider would use",
		Flags:        []cli.Flag{JSONFlag},
		OnUsageError: a.onUsageError,
		Action: func(c *cli.Context) error {
			cfg, err := a.loadConfig(c)
			if err != nil {
				return err
			}
			return a.cmdLocate(c, cfg)
		},
	}
}

// cmdRun resolves the provider for the requested runtime and runs the files.
func (a *application) cmdRun(c *cli.Context) error {
	if c.Bool(JSONFlag.Name) && c.Bool(TableFlag.Name) {
		return usageError("--json and --table are mutually exclusive")
	}

	cfg, err := a.loadConfig(c)
	if err != nil {
		return err
	}

	runtimeID := cfg.Runtime
	if c.IsSet(RuntimeFlag.Name) {
		runtimeID = c.String(RuntimeFlag.Name)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "failed to get working directory")
	}
	files := engine.AbsPaths(cwd, c.Args().Slice())

	m := metrics.New()
	registry := a.newRegistry(cfg, m)
	p := registry.Get(runtimeID)
	if p == nil {
		return errors.Configf("no provider for runtime %q (available: %s)", runtimeID, strings.Join(registry.Runtimes(), ", "))
	}

	ctx := c.Context
	if timeout := cfg.TimeoutDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	a.out.Debug("running %d file(s) with runtime %s in %s", len(files), runtimeID, cfg.Dir)
	summary := p.RunTests(ctx, files)

	switch {
	case c.Bool(JSONFlag.Name):
		if err := a.out.JSON(summary); err != nil {
			return err
		}
	case c.Bool(TableFlag.Name):
		a.out.ResultsTable(runtimeID, summary)
	default:
		a.out.PrintSummary(runtimeID, summary)
	}

	if cfg.MetricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.MetricsFile), 0755); err != nil {
			a.out.Warning("failed to create metrics directory: %v", err)
		} else if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			a.out.Warning("failed to write metrics: %v", err)
		} else {
			a.out.Debug("metrics written to %s", cfg.MetricsFile)
		}
	}

	if summary.Failed > 0 {
		return cli.Exit("", errors.ExitRuntimeError)
	}
	return nil
}

// cmdLocate prints the resolved installation, or fails with EngineUnavailable.
func (a *application) cmdLocate(c *cli.Context, cfg *config.Config) error {
	inst, ok := engine.NewLocator(cfg.Dir, cfg.NodePath).Locate()
	if !ok {
		return errors.Unavailable(fmt.Sprintf(
			"vitest is not installed (no %s/package.json resolvable from %s)", engine.PackageName, cfg.Dir))
	}

	if c.Bool(JSONFlag.Name) {
		return a.out.JSON(inst)
	}
	a.out.Success("vitest %s", inst.Version)
	a.out.Detail("Package", inst.Root)
	a.out.Detail("Manifest", inst.ManifestPath)
	a.out.Detail("Entry", inst.Entry)
	if _, err := os.Stat(inst.Entry); err != nil {
		a.out.Warning("entry module %s does not exist", inst.Entry)
	}
	return nil
}

// newRegistry wires the engine, provider and registry for cfg. Aliases are
// served by the same provider through the fallback registry.
func (a *application) newRegistry(cfg *config.Config, m *metrics.Metrics) *provider.VitestRegistry {
	locator := engine.NewLocator(cfg.Dir, cfg.NodePath)
	invoker := engine.NewInvoker(locator, cfg.Node, cfg.Dir)
	invoker.Env = cfg.Env
	vp := provider.NewVitestProvider(invoker, a.out, m)

	aliases := provider.NewMapRegistry()
	for _, alias := range cfg.Aliases {
		if alias != cfg.Runtime {
			aliases.Register(alias, vp)
		}
	}
	return provider.NewVitestRegistry(cfg.Runtime, vp, aliases)
}

// loadConfig resolves the config file and applies flag overrides.
func (a *application) loadConfig(c *cli.Context) (*config.Config, error) {
	start := c.String(DirFlag.Name)
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get working directory")
		}
		start = cwd
	}

	cfg, warnings, err := config.Resolve(c.String(ConfigFlag.Name), start)
	for _, w := range warnings {
		a.out.Warning("%s", w)
	}
	if err != nil {
		return nil, errors.Configf("invalid configuration: %v", err)
	}
	if cfg.Path != "" {
		a.out.Debug("using config %s", cfg.Path)
	}

	if c.IsSet(DirFlag.Name) {
		dir, err := filepath.Abs(c.String(DirFlag.Name))
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve --dir")
		}
		cfg.Dir = dir
	}
	if c.IsSet(NodeFlag.Name) {
		cfg.Node = c.String(NodeFlag.Name)
	}
	if c.IsSet(MetricsFileFlag.Name) {
		path, err := filepath.Abs(c.String(MetricsFileFlag.Name))
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve --metrics-file")
		}
		cfg.MetricsFile = path
	}
	if c.IsSet(TimeoutFlag.Name) {
		cfg.Timeout = c.Duration(TimeoutFlag.Name).String()
	}

	if _, err := config.Validate(cfg); err != nil {
		return nil, errors.Configf("invalid configuration: %v", err)
	}
	return cfg, nil
}
