// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"strings"
	"testing"
)

func TestVirtualRunnerRun(t *testing.T) {
	t.Parallel()

	r := NewVirtualRunner()
	if !r.Available() {
		t.Fatal("virtual runner must always be available")
	}

	var stdout bytes.Buffer
	ctx := &ExecutionContext{
		Stdout: &stdout,
		Stderr: &bytes.Buffer{},
		Env:    map[string]string{"GREETING": "hello"},
	}

	res := r.Run(ctx, Script{Name: "greet", Source: `echo "$GREETING world"`})
	if res.Error != nil {
		t.Fatalf("Run() error = %v", res.Error)
	}
	if !res.ExitCode.IsSuccess() {
		t.Fatalf("Run() exit code = %d", res.ExitCode)
	}
	if got := strings.TrimSpace(stdout.String()); got != "hello world" {
		t.Errorf("stdout = %q, want %q", got, "hello world")
	}
}

func TestVirtualRunnerExitCodePropagation(t *testing.T) {
	t.Parallel()

	r := NewVirtualRunner()
	ctx := &ExecutionContext{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Env: map[string]string{}}

	res := r.Run(ctx, Script{Source: "exit 7"})
	if res.Error != nil {
		t.Fatalf("Run() error = %v, want exit code only", res.Error)
	}
	if res.ExitCode != 7 {
		t.Errorf("exit code = %d, want 7", res.ExitCode)
	}
}

func TestVirtualRunnerSyntaxError(t *testing.T) {
	t.Parallel()

	r := NewVirtualRunner()
	ctx := &ExecutionContext{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Env: map[string]string{}}

	res := r.Run(ctx, Script{Source: "if then fi ((("})
	if res.Error == nil {
		t.Error("Run() with invalid syntax returned nil error")
	}
	if res.ExitCode.IsSuccess() {
		t.Error("Run() with invalid syntax reported success")
	}
}

func TestVirtualRunnerRunCapture(t *testing.T) {
	t.Parallel()

	r := NewVirtualRunner()
	ctx := &ExecutionContext{Env: map[string]string{}}

	res := r.RunCapture(ctx, Script{Source: "echo out; echo err >&2"})
	if res.Error != nil {
		t.Fatalf("RunCapture() error = %v", res.Error)
	}
	if strings.TrimSpace(res.Output) != "out" {
		t.Errorf("Output = %q, want %q", res.Output, "out")
	}
	if strings.TrimSpace(res.ErrOutput) != "err" {
		t.Errorf("ErrOutput = %q, want %q", res.ErrOutput, "err")
	}
}

func TestVirtualRunnerRunObserve(t *testing.T) {
	t.Parallel()

	r := NewVirtualRunner()
	ctx := &ExecutionContext{Env: map[string]string{"PATH": "/usr/bin"}}

	script := Script{
		Name:   "module-eval",
		Source: "export CUDA_HOME=/share/pkg/cuda/12.2\nexport PATH=/share/pkg/cuda/12.2/bin:$PATH\nLOCAL_ONLY=1",
	}
	res, vars := r.RunObserve(ctx, script)
	if res.Error != nil {
		t.Fatalf("RunObserve() error = %v", res.Error)
	}
	if vars["CUDA_HOME"] != "/share/pkg/cuda/12.2" {
		t.Errorf("CUDA_HOME = %q", vars["CUDA_HOME"])
	}
	if !strings.HasPrefix(vars["PATH"], "/share/pkg/cuda/12.2/bin:") {
		t.Errorf("PATH = %q, want cuda bin prefix", vars["PATH"])
	}
	if _, ok := vars["LOCAL_ONLY"]; ok {
		t.Error("non-exported variable leaked into observed env")
	}
}
