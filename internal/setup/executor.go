// SPDX-License-Identifier: MPL-2.0

package setup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"stackctl/internal/issue"
	"stackctl/internal/runtime"

	"mvdan.cc/sh/v3/syntax"
)

// errUnknownStep guards against plans carrying step types the executor
// does not know how to run.
var errUnknownStep = errors.New("unknown step kind")

// Executor runs a Plan, threading the mutated environment from step to step.
// Failures are fail-fast: the first non-zero step aborts the plan and its
// exit status propagates verbatim.
type Executor struct {
	// Runner executes shell steps (venv creation, installs).
	Runner runtime.Runner
	// Loader loads cluster modules.
	Loader *ModuleLoader
	// EnvBuilder builds the base environment for the plan.
	EnvBuilder runtime.EnvBuilder

	// Stdout/Stderr/Stdin are wired through to step subprocesses.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	// WorkDir is the deployment root all relative paths resolve against.
	WorkDir string

	// dirExists is a test seam for the venv existence check.
	dirExists func(path string) bool
	// acquireLock is a test seam for the cross-process venv lock.
	acquireLock func() (*runtime.RunLock, error)
}

// NewExecutor creates an Executor over the given runner.
func NewExecutor(runner runtime.Runner) *Executor {
	return &Executor{
		Runner:     runner,
		Loader:     NewModuleLoader(),
		EnvBuilder: &runtime.DefaultEnvBuilder{},
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Stdin:      os.Stdin,
	}
}

// Execute runs every step of the plan in order. The returned Result carries
// the exit status of the failing step, or zero when all steps succeed.
func (e *Executor) Execute(ctx context.Context, plan *Plan) *runtime.Result {
	env, err := e.EnvBuilder.Build()
	if err != nil {
		return runtime.NewErrorResult(1, issue.WrapWithOperation(err, "build environment"))
	}

	for _, step := range plan.Steps {
		slog.Debug("running setup step", "kind", step.Kind(), "step", step.Describe())

		var result *runtime.Result
		switch s := step.(type) {
		case *ModuleLoadStep:
			result = e.Loader.Load(ctx, env, s.Modules, e.Stderr)
		case *VenvCreateStep:
			result = e.createVenv(ctx, env, s)
		case *VenvActivateStep:
			e.activateVenv(env, s)
			result = runtime.NewSuccessResult()
		case *InstallStep:
			result = e.install(ctx, env, s)
		default:
			result = runtime.NewErrorResult(1, issue.NewErrorContext().
				WithOperation("execute setup step").
				WithResource(string(step.Kind())).
				Wrap(errUnknownStep).
				BuildError())
		}

		if !result.ExitCode.IsSuccess() || result.Error != nil {
			slog.Debug("setup step failed", "kind", step.Kind(), "exit_code", result.ExitCode)
			return result
		}
	}

	return runtime.NewSuccessResult()
}

// createVenv creates the virtual environment if its directory is absent.
// A cross-process flock serializes creation; the check-then-create sequence
// repeats under the lock so the loser of a race skips cleanly.
func (e *Executor) createVenv(ctx context.Context, env map[string]string, step *VenvCreateStep) *runtime.Result {
	dir := e.resolvePath(step.Dir)
	if e.venvExists(dir) {
		slog.Debug("virtual environment already exists, skipping creation", "dir", dir)
		return runtime.NewSuccessResult()
	}

	lock, err := e.venvLock()
	if err != nil {
		if !runtime.FlockUnavailable(err) {
			return runtime.NewErrorResult(1, issue.WrapWithOperation(err, "lock virtual environment creation"))
		}
	} else {
		defer lock.Release()
	}

	if e.venvExists(dir) {
		return runtime.NewSuccessResult()
	}

	script := runtime.Script{
		Name:   "venv-create",
		Source: quote(step.Python) + " -m venv " + quote(step.Dir),
	}
	result := e.run(ctx, env, script)
	if !result.ExitCode.IsSuccess() && result.Error == nil {
		// 127 is the shell's command-not-found status: the interpreter
		// itself is missing, not the venv module.
		id := issue.VenvCreateFailedId
		if result.ExitCode == 127 {
			id = issue.PythonNotFoundId
		}
		result.Error = issue.NewErrorContext().
			WithOperation("create virtual environment").
			WithResource(step.Dir).
			WithIssue(id).
			WithSuggestion("Check that the target directory is writable").
			WithSuggestion("Verify the interpreter ships the venv module").
			BuildError()
	}
	return result
}

// activateVenv applies the environment mutations of `source bin/activate`.
func (e *Executor) activateVenv(env map[string]string, step *VenvActivateStep) {
	dir := e.resolvePath(step.Dir)
	env["VIRTUAL_ENV"] = dir
	env["PATH"] = runtime.PrependPath(env, filepath.Join(dir, "bin"))
	delete(env, "PYTHONHOME")
}

// install invokes the package installer for a pinned spec or a requirements file.
func (e *Executor) install(ctx context.Context, env map[string]string, step *InstallStep) *runtime.Result {
	var source string
	var resource string
	if step.RequirementsFile != "" {
		resource = step.RequirementsFile
		source = "pip install -r " + quote(step.RequirementsFile)
	} else {
		resource = step.Spec
		source = "pip install " + quote(step.Spec)
	}

	result := e.run(ctx, env, runtime.Script{Name: "install", Source: source})
	if !result.ExitCode.IsSuccess() && result.Error == nil {
		result.Error = issue.NewErrorContext().
			WithOperation("install requirements").
			WithResource(resource).
			WithIssue(issue.InstallFailedId).
			WithSuggestion("Check network access to the package index").
			WithSuggestion("Re-run with --verbose for full installer output").
			BuildError()
	}
	return result
}

func (e *Executor) run(ctx context.Context, env map[string]string, script runtime.Script) *runtime.Result {
	return e.Runner.Run(&runtime.ExecutionContext{
		Context: ctx,
		Stdout:  e.Stdout,
		Stderr:  e.Stderr,
		Stdin:   e.Stdin,
		Env:     env,
		WorkDir: e.WorkDir,
	}, script)
}

func (e *Executor) venvExists(dir string) bool {
	if e.dirExists != nil {
		return e.dirExists(dir)
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

func (e *Executor) venvLock() (*runtime.RunLock, error) {
	if e.acquireLock != nil {
		return e.acquireLock()
	}
	return runtime.AcquireRunLock()
}

func (e *Executor) resolvePath(path string) string {
	if filepath.IsAbs(path) || e.WorkDir == "" {
		return path
	}
	return filepath.Join(e.WorkDir, path)
}

// quote shell-quotes a single word for the generated step scripts.
func quote(s string) string {
	quoted, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		// Quote only fails on control bytes; fall back to the raw string.
		return s
	}
	return quoted
}
