// Package vitestprovider provides public constants for external tools
// integrating with the vitestprovider CLI.
package vitestprovider

// Exit codes returned by the vitestprovider CLI.
const (
	// ExitSuccess indicates every test passed (or no files were given).
	ExitSuccess = 0

	// ExitFailure indicates failing tests, including synthetic failures for
	// an engine that could not run.
	ExitFailure = 1

	// ExitConfigError indicates an invalid config file, flag or runtime identifier.
	ExitConfigError = 2

	// ExitEnvError indicates vitest could not be located (locate command).
	ExitEnvError = 3
)

// Runtime is the default runtime identifier served by the provider.
const Runtime = "vitest"
