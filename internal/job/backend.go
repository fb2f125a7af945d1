// SPDX-License-Identifier: MPL-2.0

package job

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"stackctl/internal/runtime"
)

// cancelGrace is how long a canceled attempt gets to exit after SIGTERM
// before it is killed.
const cancelGrace = 5 * time.Second

type (
	// Backend launches one attempt of a job. Implementations wire the
	// attempt's stdout/stderr to log files under logDir/<job-id>/.
	Backend interface {
		Start(ctx context.Context, j *Job, logDir string) (Attempt, error)
	}

	// Attempt is a single running execution of a job.
	Attempt interface {
		// Wait blocks until the attempt finishes or ctx is done.
		// When ctx expires the attempt is terminated (SIGTERM, then
		// SIGKILL after a grace period) and ctx.Err() is returned.
		Wait(ctx context.Context) (int, error)
		// Terminate stops the attempt: SIGTERM, then SIGKILL after the
		// grace period if it is still alive.
		Terminate()
	}

	// LocalBackend runs jobs as local subprocesses.
	LocalBackend struct{}

	localAttempt struct {
		cmd  *exec.Cmd
		done chan struct{}
		err  error
		logs []*os.File
	}
)

// NewLocalBackend creates a backend running jobs as local subprocesses.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{}
}

// Start launches the job's argv with stdout/stderr redirected to
// <logDir>/<job-id>/{stdout,stderr}.log, recording the paths and PID on the job.
func (b *LocalBackend) Start(ctx context.Context, j *Job, logDir string) (Attempt, error) {
	jobDir := filepath.Join(logDir, j.ID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create job log dir: %w", err)
	}

	stdout, err := os.OpenFile(filepath.Join(jobDir, "stdout.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout log: %w", err)
	}
	stderr, err := os.OpenFile(filepath.Join(jobDir, "stderr.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		stdout.Close()
		return nil, fmt.Errorf("failed to open stderr log: %w", err)
	}
	j.StdoutPath = stdout.Name()
	j.StderrPath = stderr.Name()

	// The context is deliberately not wired into exec.CommandContext:
	// cancellation must go through Terminate so the child gets SIGTERM
	// and a grace period instead of an immediate SIGKILL.
	cmd := exec.Command(j.Spec.Argv[0], j.Spec.Argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Dir = j.Spec.Dir
	cmd.Env = os.Environ()
	for k, v := range j.Spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("failed to start job process: %w", err)
	}
	j.PID = cmd.Process.Pid

	a := &localAttempt{
		cmd:  cmd,
		done: make(chan struct{}),
		logs: []*os.File{stdout, stderr},
	}
	go a.reap()
	return a, nil
}

// reap waits for the process and closes the log files.
func (a *localAttempt) reap() {
	a.err = a.cmd.Wait()
	for _, f := range a.logs {
		f.Close()
	}
	close(a.done)
}

// Wait blocks until the attempt finishes or ctx is done.
func (a *localAttempt) Wait(ctx context.Context) (int, error) {
	select {
	case <-a.done:
		return exitCodeOf(a.err), a.waitErr()
	case <-ctx.Done():
		a.Terminate()
		<-a.done
		return exitCodeOf(a.err), ctx.Err()
	}
}

// Terminate sends SIGTERM and escalates to SIGKILL after the grace period.
func (a *localAttempt) Terminate() {
	proc := a.cmd.Process
	if proc == nil {
		return
	}
	_ = proc.Signal(syscall.SIGTERM)

	select {
	case <-a.done:
	case <-time.After(cancelGrace):
		_ = proc.Kill()
	}
}

// waitErr filters expected non-zero-exit errors; only infrastructure
// failures surface.
func (a *localAttempt) waitErr() error {
	if a.err == nil {
		return nil
	}
	if _, ok := a.err.(*exec.ExitError); ok {
		return nil
	}
	return a.err
}

// exitCodeOf extracts the exit code from a finished command.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		code := exitErr.ExitCode()
		if ok, _ := runtime.ExitCode(code).IsValid(); !ok {
			return 1
		}
		return code
	}
	return 1
}
