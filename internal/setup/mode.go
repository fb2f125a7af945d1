// SPDX-License-Identifier: MPL-2.0

package setup

import (
	"errors"
	"fmt"
)

const (
	// ModeLocal installs workstation dependencies with no cluster preparation.
	ModeLocal Mode = "local"
	// ModeCluster prepares the SCC cluster environment before installing.
	ModeCluster Mode = "scc"
)

// ErrInvalidMode is the sentinel error wrapped by InvalidModeError.
var ErrInvalidMode = errors.New("invalid setup mode")

type (
	// Mode selects local vs. cluster dependency setup.
	Mode string

	// InvalidModeError is returned when a mode argument is not recognized.
	// It wraps ErrInvalidMode for errors.Is() compatibility.
	InvalidModeError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid setup mode %q (valid: %s, %s, or empty for %s)",
		e.Value, ModeLocal, ModeCluster, ModeCluster)
}

// Unwrap returns ErrInvalidMode so callers can use errors.Is for programmatic detection.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// ParseMode maps the CLI argument to a Mode. The empty argument selects
// cluster mode, matching the deployment script this tool replaced.
func ParseMode(arg string) (Mode, error) {
	switch arg {
	case string(ModeLocal):
		return ModeLocal, nil
	case string(ModeCluster), "":
		return ModeCluster, nil
	}
	return "", &InvalidModeError{Value: arg}
}

// IsValid returns whether the Mode is recognized, and a list of validation
// errors if it is not.
func (m Mode) IsValid() (bool, []error) {
	switch m {
	case ModeLocal, ModeCluster:
		return true, nil
	}
	return false, []error{&InvalidModeError{Value: string(m)}}
}

// String returns the mode as a plain string.
func (m Mode) String() string { return string(m) }
