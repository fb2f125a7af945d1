// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableErrorError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "load modules"},
			expected: "failed to load modules",
		},
		{
			name: "operation with resource",
			err: &ActionableError{
				Operation: "install requirements",
				Resource:  "deploy/requirements_scc.txt",
			},
			expected: "failed to install requirements: deploy/requirements_scc.txt",
		},
		{
			name: "operation with cause",
			err: &ActionableError{
				Operation: "create virtual environment",
				Cause:     errors.New("exit status 1"),
			},
			expected: "failed to create virtual environment: exit status 1",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "install requirements",
				Resource:  "deploy/requirements_local.txt",
				Cause:     errors.New("pip not found"),
			},
			expected: "failed to install requirements: deploy/requirements_local.txt: pip not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableErrorFormat(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().
		WithOperation("create virtual environment").
		WithResource("env").
		WithSuggestion("Check that the target directory is writable").
		WithSuggestion("Remove a half-created env directory and retry").
		Wrap(errors.New("permission denied")).
		Build()

	got := err.Format(false)
	if !strings.Contains(got, "failed to create virtual environment: env: permission denied") {
		t.Errorf("Format(false) missing main message: %q", got)
	}
	if !strings.Contains(got, "• Check that the target directory is writable") {
		t.Errorf("Format(false) missing first suggestion: %q", got)
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") {
		t.Errorf("Format(true) missing error chain: %q", verbose)
	}
}

func TestActionableErrorUnwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("boom")
	err := NewErrorContext().
		WithOperation("install requirements").
		Wrap(sentinel).
		BuildError()

	if !errors.Is(err, sentinel) {
		t.Error("errors.Is() did not find wrapped sentinel")
	}

	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatal("errors.As() did not match *ActionableError")
	}
	if ae.Operation != "install requirements" {
		t.Errorf("Operation = %q, want %q", ae.Operation, "install requirements")
	}
}

func TestErrorContextBuildRequiresOperation(t *testing.T) {
	t.Parallel()

	if got := NewErrorContext().WithResource("env").Build(); got != nil {
		t.Errorf("Build() without operation = %v, want nil", got)
	}
	if got := NewErrorContext().BuildError(); got != nil {
		t.Errorf("BuildError() without operation = %v, want nil", got)
	}
}

func TestWrapWithOperation(t *testing.T) {
	t.Parallel()

	if got := WrapWithOperation(nil, "noop"); got != nil {
		t.Errorf("WrapWithOperation(nil) = %v, want nil", got)
	}

	err := WrapWithOperation(errors.New("boom"), "load modules")
	if err.Error() != "failed to load modules: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}
