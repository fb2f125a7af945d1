// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrUnknownRunner is the sentinel error wrapped by UnknownRunnerError.
var ErrUnknownRunner = errors.New("unknown runner")

type (
	// Result contains the outcome of a script execution.
	Result struct {
		// ExitCode is the exit code of the script's process (or interpreter).
		ExitCode ExitCode
		// Error contains any infrastructure error that occurred. A non-zero
		// ExitCode with a nil Error means the script itself failed.
		Error error
		// Output contains captured stdout (RunCapture only).
		Output string
		// ErrOutput contains captured stderr (RunCapture only).
		ErrOutput string
	}

	// UnknownRunnerError is returned when a RunnerName is not recognized.
	// It wraps ErrUnknownRunner for errors.Is() compatibility.
	UnknownRunnerError struct {
		Name RunnerName
	}
)

// Error implements the error interface.
func (e *UnknownRunnerError) Error() string {
	return fmt.Sprintf("unknown runner %q (valid: %s, %s)", e.Name, RunnerNative, RunnerVirtual)
}

// Unwrap returns ErrUnknownRunner so callers can use errors.Is for programmatic detection.
func (e *UnknownRunnerError) Unwrap() error { return ErrUnknownRunner }

// NewErrorResult creates a Result with the given exit code and error.
func NewErrorResult(code ExitCode, err error) *Result {
	return &Result{ExitCode: code, Error: err}
}

// NewSuccessResult creates a Result with exit code 0 and no error.
func NewSuccessResult() *Result {
	return &Result{}
}

// extractExitCodeResult maps the error from cmd.Run()/cmd.Wait() to a Result.
// A *exec.ExitError becomes a plain non-zero exit (normal process termination);
// anything else is an infrastructure failure.
func extractExitCodeResult(err error) *Result {
	if err == nil {
		return NewSuccessResult()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &Result{ExitCode: ExitCode(exitErr.ExitCode())}
	}
	return NewErrorResult(1, fmt.Errorf("failed to execute script: %w", err))
}
