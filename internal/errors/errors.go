// Package errors provides the engine failure taxonomy and exit codes for vitestprovider.
package errors

import (
	"errors"
	"fmt"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess          = 0 // Success
	ExitRuntimeError     = 1 // Runtime error (tests failed, command failed, etc.)
	ExitConfigError      = 2 // Configuration error (invalid config, bad flags, etc.)
	ExitEnvironmentError = 3 // Environment error (vitest or node not available, etc.)
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	// KindUnavailable means the engine is not installed or cannot be resolved.
	KindUnavailable
	// KindLoadFailure means the entry module failed to import or lacked the entry point.
	KindLoadFailure
	// KindExecutionFailure means the entry point was invoked but threw.
	KindExecutionFailure
)

// String returns the taxonomy name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindUnavailable:
		return "EngineUnavailable"
	case KindLoadFailure:
		return "EngineLoadFailure"
	case KindExecutionFailure:
		return "EngineExecutionFailure"
	default:
		return "RuntimeError"
	}
}

// EngineError is the base error type for vitestprovider. Engine failures carry
// whatever the engine wrote to stdout and stderr before failing.
type EngineError struct {
	Kind   ErrorKind
	Reason string
	Stdout string
	Stderr string
	Cause  error
}

func (e *EngineError) Error() string {
	if e.Cause != nil && e.Reason == "" {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *EngineError) ExitCode() int {
	switch e.Kind {
	case KindConfig:
		return ExitConfigError
	case KindUnavailable, KindLoadFailure:
		return ExitEnvironmentError
	default:
		return ExitRuntimeError
	}
}

// WithOutput attaches captured engine output and returns the error.
func (e *EngineError) WithOutput(stdout, stderr string) *EngineError {
	e.Stdout = stdout
	e.Stderr = stderr
	return e
}

// Unavailable creates an EngineUnavailable error.
func Unavailable(reason string) *EngineError {
	return &EngineError{Kind: KindUnavailable, Reason: reason}
}

// LoadFailure creates an EngineLoadFailure error.
func LoadFailure(reason string, cause error) *EngineError {
	return &EngineError{Kind: KindLoadFailure, Reason: reason, Cause: cause}
}

// ExecutionFailure creates an EngineExecutionFailure error.
func ExecutionFailure(reason string, cause error) *EngineError {
	return &EngineError{Kind: KindExecutionFailure, Reason: reason, Cause: cause}
}

// Config creates a new configuration error.
func Config(message string) *EngineError {
	return &EngineError{Kind: KindConfig, Reason: message}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *EngineError {
	return Config(fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *EngineError {
	return &EngineError{Kind: KindRuntime, Reason: message, Cause: err}
}

// KindOf returns the kind of the first EngineError in err's chain, or KindRuntime.
func KindOf(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindRuntime
}

// GetExitCode returns the exit code for an error: the code of the first
// error in the chain that carries one, else ExitRuntimeError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return ExitRuntimeError
}

// CapturedOutput returns the engine output carried by the first EngineError in err's chain.
func CapturedOutput(err error) (stdout, stderr string) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Stdout, ee.Stderr
	}
	return "", ""
}
