// Package cli provides command-line interface functionality for vitestprovider.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/AndreyAkinshin/vitestprovider/internal/errors"
	"github.com/AndreyAkinshin/vitestprovider/internal/output"
)

// Version is set at build time.
var Version = "dev"

// EnvVarPrefix prefixes the environment variables that mirror flags.
const EnvVarPrefix = "VITEST_PROVIDER"

func prefixEnvVar(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

// Global flags.
var (
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		EnvVars: prefixEnvVar("CONFIG"),
		Usage:   "Path to the config file (default: nearest .vitestprovider.yaml)",
	}
	DirFlag = &cli.StringFlag{
		Name:    "dir",
		EnvVars: prefixEnvVar("DIR"),
		Usage:   "Working directory of the run (overrides the config file)",
	}
	QuietFlag = &cli.BoolFlag{
		Name:    "quiet",
		Aliases: []string{"q"},
		EnvVars: prefixEnvVar("QUIET"),
		Usage:   "Minimal output (errors only)",
	}
	VerboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		EnvVars: prefixEnvVar("VERBOSE"),
		Usage:   "Print debug diagnostics",
	}
	NoColorFlag = &cli.BoolFlag{
		Name:    "no-color",
		EnvVars: append(prefixEnvVar("NO_COLOR"), "NO_COLOR"),
		Usage:   "Disable colored output",
	}
)

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	return RunContext(context.Background(), args, os.Stdout, os.Stderr)
}

// RunContext executes the CLI writing to stdout and stderr and returns an exit code.
func RunContext(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &application{
		stdout: stdout,
		stderr: stderr,
		out:    output.NewWithWriters(stdout, stderr, output.IsTerminal(stdout)),
	}

	err := a.newApp().RunContext(ctx, append([]string{"vitestprovider"}, args...))
	if err == nil {
		return errors.ExitSuccess
	}

	// cli.Exit errors with an empty message only carry a code.
	if msg := err.Error(); msg != "" {
		a.out.ErrorPrefix("%s", msg)
	}
	return errors.GetExitCode(err)
}

// application holds the per-invocation state shared by commands.
type application struct {
	stdout io.Writer
	stderr io.Writer
	out    *output.Writer
}

func (a *application) newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "vitestprovider"
	app.Usage = "Run vitest test files and report a normalized summary"
	app.Version = Version
	app.Writer = a.stdout
	app.ErrWriter = a.stderr
	app.HideVersion = true
	app.Flags = []cli.Flag{ConfigFlag, DirFlag, QuietFlag, VerboseFlag, NoColorFlag}
	app.Before = func(c *cli.Context) error {
		if c.Bool(NoColorFlag.Name) {
			a.out = output.NewWithWriters(a.stdout, a.stderr, false)
		}
		a.out.SetQuiet(c.Bool(QuietFlag.Name))
		a.out.SetVerbose(c.Bool(VerboseFlag.Name))
		return nil
	}
	app.Commands = []*cli.Command{
		a.runCommand(),
		a.locateCommand(),
		{
			Name:  "version",
			Usage: "Print the version",
			Action: func(c *cli.Context) error {
				a.out.Println("vitestprovider %s", Version)
				return nil
			},
		},
	}
	// Exit codes are mapped by RunContext; never let the library exit the process.
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.OnUsageError = a.onUsageError
	app.Action = func(c *cli.Context) error {
		if c.Args().Present() {
			return usageError("unknown command %q", c.Args().First())
		}
		return cli.ShowAppHelp(c)
	}
	return app
}

// onUsageError turns flag parsing failures into config errors.
func (a *application) onUsageError(_ *cli.Context, err error, _ bool) error {
	return errors.Configf("%v", err)
}

// usageError reports a command-line mistake with the config exit code.
func usageError(format string, args ...interface{}) error {
	return cli.Exit(fmt.Sprintf(format, args...), errors.ExitConfigError)
}
