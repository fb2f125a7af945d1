// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// VirtualRunner executes scripts using the embedded mvdan/sh interpreter.
// It needs no shell binary on the host, which makes it the portable choice
// and the evaluator for modulecmd-emitted shell code.
type VirtualRunner struct{}

// NewVirtualRunner creates a new virtual runner.
func NewVirtualRunner() *VirtualRunner {
	return &VirtualRunner{}
}

// Name returns the runner name.
func (r *VirtualRunner) Name() RunnerName { return RunnerVirtual }

// Available returns whether this runner is available.
func (r *VirtualRunner) Available() bool {
	// Always available: the interpreter is compiled in.
	return true
}

// Run executes the script in the embedded interpreter, streaming output.
func (r *VirtualRunner) Run(ctx *ExecutionContext, script Script) *Result {
	return r.run(ctx, script, ctx.Stdout, ctx.Stderr, nil)
}

// RunCapture executes the script and captures stdout/stderr into the Result.
func (r *VirtualRunner) RunCapture(ctx *ExecutionContext, script Script) *Result {
	var stdout, stderr bytes.Buffer
	result := r.run(ctx, script, &stdout, &stderr, nil)
	result.Output = stdout.String()
	result.ErrOutput = stderr.String()
	return result
}

// RunObserve executes the script and returns the interpreter's final variable
// bindings alongside the Result. Setup uses this to harvest environment
// mutations emitted by module-system shell code.
func (r *VirtualRunner) RunObserve(ctx *ExecutionContext, script Script) (*Result, map[string]string) {
	vars := map[string]string{}
	var stderr bytes.Buffer
	result := r.run(ctx, script, io.Discard, &stderr, vars)
	result.ErrOutput = stderr.String()
	return result, vars
}

func (r *VirtualRunner) run(ctx *ExecutionContext, script Script, stdout, stderr io.Writer, observed map[string]string) *Result {
	name := script.Name
	if name == "" {
		name = "script"
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(script.Source), name)
	if err != nil {
		return NewErrorResult(1, fmt.Errorf("failed to parse script: %w", err))
	}

	env := ctx.Env
	if env == nil {
		env = HostEnv()
	}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(EnvToSlice(env)...)),
		interp.StdIO(ctx.Stdin, stdout, stderr),
	}
	if ctx.WorkDir != "" {
		opts = append(opts, interp.Dir(ctx.WorkDir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return NewErrorResult(1, fmt.Errorf("failed to create interpreter: %w", err))
	}

	runErr := runner.Run(ctx.execContext(), prog)

	if observed != nil {
		for name, v := range runner.Vars {
			if v.Exported && v.Kind == expand.String {
				observed[name] = v.Str
			}
		}
	}

	if runErr != nil {
		var exitStatus interp.ExitStatus
		if errors.As(runErr, &exitStatus) {
			return &Result{ExitCode: ExitCode(exitStatus)}
		}
		return NewErrorResult(1, fmt.Errorf("script execution failed: %w", runErr))
	}

	return NewSuccessResult()
}
