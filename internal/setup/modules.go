// SPDX-License-Identifier: MPL-2.0

package setup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"os/exec"

	"stackctl/internal/issue"
	"stackctl/internal/runtime"
)

// envVarLmodCmd names the module tool binary on Lmod clusters.
const envVarLmodCmd = "LMOD_CMD"

// ModuleLoader integrates with the cluster module system (Lmod or
// Environment Modules). `module` is a shell function, not a binary, so the
// loader invokes the underlying tool (`$LMOD_CMD bash load <name>` or
// `modulecmd bash load <name>`), which prints shell code describing the
// environment changes. That code is evaluated in the embedded interpreter
// and the exported variables are merged into the step environment.
type ModuleLoader struct {
	// Eval evaluates emitted shell code and reports exported variables.
	Eval *runtime.VirtualRunner

	// LookPath resolves a binary on PATH. When nil, exec.LookPath is used.
	LookPath func(file string) (string, error)

	// RunTool invokes the module tool and returns its stdout.
	// When nil, the tool is executed as a subprocess. Tests override this.
	RunTool func(ctx context.Context, tool string, env map[string]string, args ...string) (stdout string, result *runtime.Result)
}

// NewModuleLoader creates a ModuleLoader using the real module tool.
func NewModuleLoader() *ModuleLoader {
	return &ModuleLoader{Eval: runtime.NewVirtualRunner()}
}

// Load loads each named module in order, merging the resulting environment
// mutations into env. The first failure aborts and its exit status is
// returned; a missing module tool is reported as an actionable error.
func (l *ModuleLoader) Load(ctx context.Context, env map[string]string, names []string, stderr io.Writer) *runtime.Result {
	tool, err := l.resolveTool(env)
	if err != nil {
		return runtime.NewErrorResult(1, err)
	}

	for _, name := range names {
		out, result := l.runTool(ctx, tool, env, "bash", "load", name)
		if stderr != nil && result.ErrOutput != "" {
			io.WriteString(stderr, result.ErrOutput)
		}
		if !result.ExitCode.IsSuccess() || result.Error != nil {
			if result.Error == nil {
				result.Error = issue.NewErrorContext().
					WithOperation("load module").
					WithResource(name).
					WithSuggestion("Run 'module avail' to list the modules this host provides").
					BuildError()
			}
			return result
		}

		if result := l.evalEmitted(ctx, env, name, out); result != nil {
			return result
		}
	}

	return runtime.NewSuccessResult()
}

// evalEmitted evaluates the shell code a module tool emitted for name and
// merges the exported variables into env. Returns nil on success.
func (l *ModuleLoader) evalEmitted(ctx context.Context, env map[string]string, name, code string) *runtime.Result {
	if code == "" {
		return nil
	}

	execCtx := &runtime.ExecutionContext{
		Context: ctx,
		Env:     maps.Clone(env),
	}
	result, vars := l.Eval.RunObserve(execCtx, runtime.Script{
		Name:   "module load " + name,
		Source: code,
	})
	if !result.ExitCode.IsSuccess() || result.Error != nil {
		if result.Error == nil {
			result.Error = issue.NewErrorContext().
				WithOperation("evaluate module environment").
				WithResource(name).
				BuildError()
		}
		return result
	}

	maps.Copy(env, vars)
	return nil
}

// resolveTool finds the module tool binary: $LMOD_CMD (step env first, then
// host), falling back to modulecmd on PATH.
func (l *ModuleLoader) resolveTool(env map[string]string) (string, error) {
	if cmd := env[envVarLmodCmd]; cmd != "" {
		return cmd, nil
	}

	lookPath := l.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if path, err := lookPath("modulecmd"); err == nil {
		return path, nil
	}

	return "", issue.NewErrorContext().
		WithOperation("locate the module tool").
		WithIssue(issue.ModuleToolNotFoundId).
		WithSuggestion("Run cluster setup on a host that provides the module system (e.g., an SCC login node)").
		WithSuggestion("Check that $LMOD_CMD is set or modulecmd is on your PATH").
		WithSuggestion("Use 'stackctl setup local' on hosts without a module system").
		BuildError()
}

func (l *ModuleLoader) runTool(ctx context.Context, tool string, env map[string]string, args ...string) (string, *runtime.Result) {
	if l.RunTool != nil {
		return l.RunTool(ctx, tool, env, args...)
	}

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Env = runtime.EnvToSlice(env)

	var stdout, stderrBuf bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderrBuf

	result := resultFromExecError(cmd.Run())
	result.ErrOutput = stderrBuf.String()
	return stdout.String(), result
}

// resultFromExecError mirrors the runner exit-code extraction for direct
// subprocess invocations.
func resultFromExecError(err error) *runtime.Result {
	if err == nil {
		return runtime.NewSuccessResult()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &runtime.Result{ExitCode: runtime.ExitCode(exitErr.ExitCode())}
	}
	return runtime.NewErrorResult(1, err)
}
