// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package runtime

import "errors"

// errFlockUnavailable is returned on platforms without flock support.
// The caller proceeds without cross-process serialization; venv creation
// stays idempotent either way.
var errFlockUnavailable = errors.New("flock not available on this platform")

// AcquireRunLock is a no-op on non-Linux platforms.
func AcquireRunLock() (*RunLock, error) {
	return nil, errFlockUnavailable
}

// RunLock is the non-Linux stub. Release is a no-op.
type RunLock struct{}

// Release is a no-op on non-Linux platforms.
func (l *RunLock) Release() {}
