// SPDX-License-Identifier: MPL-2.0

package setup

import (
	"context"
	"errors"
	"io"
	"testing"

	"stackctl/internal/issue"
	"stackctl/internal/runtime"
)

func TestModuleLoaderMergesEmittedEnv(t *testing.T) {
	t.Parallel()

	loader := NewModuleLoader()
	loader.RunTool = func(_ context.Context, tool string, _ map[string]string, args ...string) (string, *runtime.Result) {
		if tool != "/libexec/lmod" {
			t.Errorf("tool = %q, want $LMOD_CMD value", tool)
		}
		if len(args) != 3 || args[0] != "bash" || args[1] != "load" {
			t.Errorf("args = %v, want [bash load <name>]", args)
		}
		return "export CUDA_HOME=/share/pkg/cuda/12.2\nexport PATH=/share/pkg/cuda/12.2/bin:$PATH\n",
			runtime.NewSuccessResult()
	}

	env := map[string]string{"PATH": "/usr/bin", "LMOD_CMD": "/libexec/lmod"}
	res := loader.Load(context.Background(), env, []string{"cuda/12.2"}, io.Discard)
	if res.Error != nil || !res.ExitCode.IsSuccess() {
		t.Fatalf("Load() = exit %d, err %v", res.ExitCode, res.Error)
	}

	if env["CUDA_HOME"] != "/share/pkg/cuda/12.2" {
		t.Errorf("CUDA_HOME = %q", env["CUDA_HOME"])
	}
	if env["PATH"] != "/share/pkg/cuda/12.2/bin:/usr/bin" {
		t.Errorf("PATH = %q", env["PATH"])
	}
}

func TestModuleLoaderToolFailurePropagates(t *testing.T) {
	t.Parallel()

	loader := NewModuleLoader()
	loader.RunTool = func(context.Context, string, map[string]string, ...string) (string, *runtime.Result) {
		return "", &runtime.Result{ExitCode: 4, ErrOutput: "Lmod has detected the following error\n"}
	}

	env := map[string]string{"LMOD_CMD": "/libexec/lmod"}
	res := loader.Load(context.Background(), env, []string{"cuda/99.9"}, io.Discard)
	if res.ExitCode != 4 {
		t.Errorf("exit code = %d, want 4", res.ExitCode)
	}
	if res.Error == nil {
		t.Error("failed module load should carry an actionable error")
	}
}

func TestModuleLoaderStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	var loaded []string
	loader := NewModuleLoader()
	loader.RunTool = func(_ context.Context, _ string, _ map[string]string, args ...string) (string, *runtime.Result) {
		name := args[len(args)-1]
		loaded = append(loaded, name)
		if name == "python3/3.10.12" {
			return "", &runtime.Result{ExitCode: 1}
		}
		return "", runtime.NewSuccessResult()
	}

	env := map[string]string{"LMOD_CMD": "/libexec/lmod"}
	res := loader.Load(context.Background(), env, []string{"python3/3.10.12", "cuda/12.2"}, io.Discard)
	if res.ExitCode.IsSuccess() {
		t.Fatal("Load() succeeded despite tool failure")
	}
	if len(loaded) != 1 {
		t.Errorf("tool invoked for %v, want stop after first failure", loaded)
	}
}

func TestModuleLoaderNoTool(t *testing.T) {
	t.Parallel()

	loader := NewModuleLoader()
	loader.LookPath = func(string) (string, error) {
		return "", errors.New("executable file not found in $PATH")
	}

	res := loader.Load(context.Background(), map[string]string{}, []string{"cuda/12.2"}, io.Discard)
	if res.ExitCode.IsSuccess() || res.Error == nil {
		t.Fatalf("Load() without tool = exit %d, err %v; want failure", res.ExitCode, res.Error)
	}

	var ae *issue.ActionableError
	if !errors.As(res.Error, &ae) || ae.Issue != issue.ModuleToolNotFoundId {
		t.Errorf("Load() error should carry ModuleToolNotFoundId, got %v", res.Error)
	}
}

func TestModuleLoaderBadEmittedCode(t *testing.T) {
	t.Parallel()

	loader := NewModuleLoader()
	loader.RunTool = func(context.Context, string, map[string]string, ...string) (string, *runtime.Result) {
		return "if then fi (((", runtime.NewSuccessResult()
	}

	env := map[string]string{"LMOD_CMD": "/libexec/lmod"}
	res := loader.Load(context.Background(), env, []string{"cuda/12.2"}, io.Discard)
	if res.ExitCode.IsSuccess() && res.Error == nil {
		t.Error("Load() with unparseable emitted code reported success")
	}
}
