// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
)

// ErrRunnerAlreadyRegistered is the sentinel error wrapped by RunnerAlreadyRegisteredError.
var ErrRunnerAlreadyRegistered = errors.New("runner already registered")

type (
	// Registry holds the available runners keyed by name. It is populated
	// once at startup and read-only afterwards, so no locking is needed.
	Registry struct {
		runners map[RunnerName]Runner
	}

	// RunnerAlreadyRegisteredError is returned when a name is registered twice.
	// It wraps ErrRunnerAlreadyRegistered for errors.Is() compatibility.
	RunnerAlreadyRegisteredError struct {
		Name RunnerName
	}
)

// Error implements the error interface.
func (e *RunnerAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("runner %q already registered", e.Name)
}

// Unwrap returns ErrRunnerAlreadyRegistered so callers can use errors.Is for programmatic detection.
func (e *RunnerAlreadyRegisteredError) Unwrap() error { return ErrRunnerAlreadyRegistered }

// NewRegistry creates an empty runner registry.
func NewRegistry() *Registry {
	return &Registry{runners: map[RunnerName]Runner{}}
}

// BuildRegistry creates a registry populated with the built-in runners.
func BuildRegistry() *Registry {
	reg := NewRegistry()
	// Built-in names never collide; ignore the duplicate errors.
	_ = reg.Register(NewNativeRunner())
	_ = reg.Register(NewVirtualRunner())
	return reg
}

// Register adds a runner under its own name. Registering the same name twice
// is rejected so misconfigured wiring fails loudly at startup.
func (r *Registry) Register(runner Runner) error {
	name := runner.Name()
	if _, exists := r.runners[name]; exists {
		return &RunnerAlreadyRegisteredError{Name: name}
	}
	r.runners[name] = runner
	return nil
}

// Get returns the runner registered under name.
func (r *Registry) Get(name RunnerName) (Runner, error) {
	runner, ok := r.runners[name]
	if !ok {
		return nil, &UnknownRunnerError{Name: name}
	}
	return runner, nil
}

// Names returns the registered runner names.
func (r *Registry) Names() []RunnerName {
	names := make([]RunnerName, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	return names
}
