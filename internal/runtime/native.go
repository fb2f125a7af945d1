// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"stackctl/internal/issue"
)

// NativeRunner executes scripts using the system's POSIX shell.
type NativeRunner struct {
	// Shell overrides the default shell lookup when non-empty.
	Shell string
}

// NewNativeRunner creates a new native runner.
func NewNativeRunner() *NativeRunner {
	return &NativeRunner{}
}

// Name returns the runner name.
func (r *NativeRunner) Name() RunnerName { return RunnerNative }

// Available returns whether a usable shell exists on this host.
func (r *NativeRunner) Available() bool {
	_, err := r.getShell()
	return err == nil
}

// Run executes the script with the system shell, streaming output.
func (r *NativeRunner) Run(ctx *ExecutionContext, script Script) *Result {
	cmd, err := r.buildCmd(ctx, script)
	if err != nil {
		return NewErrorResult(1, err)
	}

	cmd.Stdout = ctx.Stdout
	cmd.Stderr = ctx.Stderr
	cmd.Stdin = ctx.Stdin

	return extractExitCodeResult(cmd.Run())
}

// RunCapture executes the script and captures stdout/stderr into the Result.
func (r *NativeRunner) RunCapture(ctx *ExecutionContext, script Script) *Result {
	cmd, err := r.buildCmd(ctx, script)
	if err != nil {
		return NewErrorResult(1, err)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := extractExitCodeResult(cmd.Run())
	result.Output = stdout.String()
	result.ErrOutput = stderr.String()
	return result
}

func (r *NativeRunner) buildCmd(ctx *ExecutionContext, script Script) (*exec.Cmd, error) {
	shell, err := r.getShell()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx.execContext(), shell, "-c", script.Source)
	if ctx.WorkDir != "" {
		cmd.Dir = ctx.WorkDir
	}
	if ctx.Env != nil {
		cmd.Env = EnvToSlice(ctx.Env)
	}
	return cmd, nil
}

// getShell resolves the shell binary: explicit override, then bash, then sh.
func (r *NativeRunner) getShell() (string, error) {
	if r.Shell != "" {
		if _, err := exec.LookPath(r.Shell); err != nil {
			return "", fmt.Errorf("configured shell %q not found: %w", r.Shell, err)
		}
		return r.Shell, nil
	}

	for _, candidate := range []string{"bash", "sh"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	if _, err := os.Stat("/bin/sh"); err == nil {
		return "/bin/sh", nil
	}

	return "", issue.NewErrorContext().
		WithOperation("locate a POSIX shell").
		WithIssue(issue.ShellNotFoundId).
		WithSuggestion("Install bash or sh").
		WithSuggestion("Use the virtual runner (--runner virtual)").
		BuildError()
}
