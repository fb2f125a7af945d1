// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"io"
)

// Runner name constants for the available execution runners.
const (
	RunnerNative  RunnerName = "native"
	RunnerVirtual RunnerName = "virtual"
)

type (
	// RunnerName identifies an execution runner.
	RunnerName string

	// Script is a shell snippet to execute. Name labels the snippet in
	// diagnostics and logs; it never affects execution.
	Script struct {
		Name   string
		Source string
	}

	// ExecutionContext carries per-invocation I/O, environment, and
	// cancellation for a runner call.
	ExecutionContext struct {
		// Context is the Go context for cancellation. Nil means context.Background().
		Context context.Context
		// Stdout is where to write standard output
		Stdout io.Writer
		// Stderr is where to write standard error
		Stderr io.Writer
		// Stdin is where to read standard input
		Stdin io.Reader
		// Env is the full child environment. Nil means inherit the host
		// environment unmodified.
		Env map[string]string
		// WorkDir overrides the working directory when non-empty.
		WorkDir string
	}

	// Runner executes shell scripts. Implementations must not write to
	// stdout/stderr beyond the script's own output.
	Runner interface {
		// Name returns the runner name.
		Name() RunnerName
		// Available reports whether this runner can execute on this host.
		Available() bool
		// Run executes the script, streaming output to the context writers.
		Run(ctx *ExecutionContext, script Script) *Result
		// RunCapture executes the script and captures stdout/stderr into the Result.
		RunCapture(ctx *ExecutionContext, script Script) *Result
	}
)

// IsValid returns whether the RunnerName is recognized, and a list of
// validation errors if it is not.
func (n RunnerName) IsValid() (bool, []error) {
	switch n {
	case RunnerNative, RunnerVirtual:
		return true, nil
	}
	return false, []error{&UnknownRunnerError{Name: n}}
}

// String returns the runner name as a plain string.
func (n RunnerName) String() string { return string(n) }

// execContext returns the Go context to use for execution.
func (c *ExecutionContext) execContext() context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}

// FlockUnavailable reports whether err means the platform has no flock
// support, so callers can distinguish expected from unexpected lock failures.
func FlockUnavailable(err error) bool {
	return errors.Is(err, errFlockUnavailable)
}
