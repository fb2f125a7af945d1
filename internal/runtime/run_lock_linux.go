// SPDX-License-Identifier: MPL-2.0

//go:build linux

package runtime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// lockFileName is the well-known lock file name shared by all stackctl
// processes. The zero-byte lock file is harmless if orphaned: the kernel
// releases the flock automatically when the fd is closed, including on crash.
const lockFileName = "stackctl-venv.lock"

// errFlockUnavailable exists for cross-platform compatibility with
// run_lock_other.go. On Linux, AcquireRunLock never returns it.
var errFlockUnavailable = errors.New("flock not available on this platform")

// RunLock holds a blocking exclusive flock on a well-known file path,
// serializing virtual-environment creation across concurrent stackctl
// invocations on the same host (e.g. two setup runs racing on `env/`).
//
// The lock file lives in $XDG_RUNTIME_DIR (per-user tmpfs, auto-cleaned)
// with a fallback to os.TempDir() when the env var is unset.
type RunLock struct {
	file *os.File
}

// AcquireRunLock opens (or creates) the lock file and acquires a blocking
// exclusive flock. The call blocks until the lock is available.
func AcquireRunLock() (*RunLock, error) {
	lockPath := lockFilePath()

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock %s: %w", lockPath, err)
	}

	return &RunLock{file: f}, nil
}

// Release unlocks the flock and closes the file descriptor. It is safe to
// call multiple times; subsequent calls are no-ops.
func (l *RunLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}

// lockFilePath returns the path for the venv lock file.
func lockFilePath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, lockFileName)
}
