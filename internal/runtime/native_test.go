// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"strings"
	"testing"
)

func TestNativeRunnerRun(t *testing.T) {
	t.Parallel()

	r := NewNativeRunner()
	if !r.Available() {
		t.Skip("no POSIX shell on this host")
	}

	var stdout bytes.Buffer
	ctx := &ExecutionContext{
		Stdout: &stdout,
		Stderr: &bytes.Buffer{},
		Env:    map[string]string{"GREETING": "hi", "PATH": "/usr/bin:/bin"},
	}

	res := r.Run(ctx, Script{Name: "greet", Source: `echo "$GREETING there"`})
	if res.Error != nil {
		t.Fatalf("Run() error = %v", res.Error)
	}
	if got := strings.TrimSpace(stdout.String()); got != "hi there" {
		t.Errorf("stdout = %q, want %q", got, "hi there")
	}
}

func TestNativeRunnerExitCodePropagation(t *testing.T) {
	t.Parallel()

	r := NewNativeRunner()
	if !r.Available() {
		t.Skip("no POSIX shell on this host")
	}

	ctx := &ExecutionContext{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
	res := r.Run(ctx, Script{Source: "exit 42"})
	if res.Error != nil {
		t.Fatalf("Run() error = %v, want exit code only", res.Error)
	}
	if res.ExitCode != 42 {
		t.Errorf("exit code = %d, want 42", res.ExitCode)
	}
}

func TestNativeRunnerRunCapture(t *testing.T) {
	t.Parallel()

	r := NewNativeRunner()
	if !r.Available() {
		t.Skip("no POSIX shell on this host")
	}

	ctx := &ExecutionContext{}
	res := r.RunCapture(ctx, Script{Source: "echo captured; echo diag >&2"})
	if res.Error != nil {
		t.Fatalf("RunCapture() error = %v", res.Error)
	}
	if strings.TrimSpace(res.Output) != "captured" {
		t.Errorf("Output = %q", res.Output)
	}
	if strings.TrimSpace(res.ErrOutput) != "diag" {
		t.Errorf("ErrOutput = %q", res.ErrOutput)
	}
}

func TestNativeRunnerConfiguredShellMissing(t *testing.T) {
	t.Parallel()

	r := &NativeRunner{Shell: "definitely-not-a-shell-binary"}
	if r.Available() {
		t.Error("Available() = true for a missing configured shell")
	}

	res := r.Run(&ExecutionContext{}, Script{Source: "true"})
	if res.Error == nil {
		t.Error("Run() with missing shell returned nil error")
	}
}
