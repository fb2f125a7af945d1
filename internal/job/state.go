// SPDX-License-Identifier: MPL-2.0

package job

import (
	"errors"
	"fmt"
)

// Job lifecycle states.
const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateCanceled  State = "CANCELLED"
)

// ErrInvalidState is the sentinel error wrapped by InvalidStateError.
var ErrInvalidState = errors.New("invalid job state")

type (
	// State is a job lifecycle state.
	State string

	// InvalidStateError is returned when a State value is not recognized.
	// It wraps ErrInvalidState for errors.Is() compatibility.
	InvalidStateError struct {
		Value State
	}
)

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid job state %q (valid: %s, %s, %s, %s, %s)",
		e.Value, StatePending, StateRunning, StateSucceeded, StateFailed, StateCanceled)
}

// Unwrap returns ErrInvalidState so callers can use errors.Is for programmatic detection.
func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// IsValid returns whether the State is recognized, and a list of validation
// errors if it is not.
func (s State) IsValid() (bool, []error) {
	switch s {
	case StatePending, StateRunning, StateSucceeded, StateFailed, StateCanceled:
		return true, nil
	}
	return false, []error{&InvalidStateError{Value: s}}
}

// IsTerminal returns true when no further transitions can occur.
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCanceled:
		return true
	}
	return false
}

// String returns the state as a plain string.
func (s State) String() string { return string(s) }

// ParseState maps a string (e.g., a --state flag value) to a State.
// Matching is exact and upper-case, mirroring the persisted form.
func ParseState(value string) (State, error) {
	s := State(value)
	if ok, errs := s.IsValid(); !ok {
		return "", errs[0]
	}
	return s, nil
}
