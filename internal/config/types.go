// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// RunnerNative runs setup steps in the host system shell.
	// Defined locally to avoid coupling config to internal/runtime;
	// the CLI layer casts to runtime.RunnerName at the boundary.
	RunnerNative RunnerMode = "native"
	// RunnerVirtual runs setup steps in the embedded mvdan/sh interpreter.
	RunnerVirtual RunnerMode = "virtual"
)

var (
	// ErrInvalidRunnerMode is returned when a RunnerMode value is not recognized.
	ErrInvalidRunnerMode = errors.New("invalid runner mode")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// RunnerMode specifies the execution runner for setup steps.
	RunnerMode string

	// InvalidRunnerModeError is returned when a RunnerMode value is not recognized.
	// It wraps ErrInvalidRunnerMode for errors.Is() compatibility.
	InvalidRunnerModeError struct {
		Value RunnerMode
	}

	// InvalidConfigError aggregates all validation failures found in a Config.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		Errs []error
	}

	// RequirementsConfig holds the requirements-file paths per setup mode.
	RequirementsConfig struct {
		// Local is the requirements file installed in local mode.
		Local string `mapstructure:"local" toml:"local"`
		// Cluster is the requirements file installed in cluster (scc) mode.
		Cluster string `mapstructure:"cluster" toml:"cluster"`
	}

	// JobsConfig holds the job manager settings.
	JobsConfig struct {
		// LogRoot is the directory holding per-job stdout/stderr logs.
		LogRoot string `mapstructure:"log_root" toml:"log_root"`
		// StatePath is the JSON file persisting job records across invocations.
		StatePath string `mapstructure:"state_path" toml:"state_path"`
		// MaxConcurrent caps the number of jobs running at once.
		MaxConcurrent int `mapstructure:"max_concurrent" toml:"max_concurrent"`
	}

	// UIConfig holds user-interface settings.
	UIConfig struct {
		// Verbose enables verbose diagnostic output.
		Verbose bool `mapstructure:"verbose" toml:"verbose"`
	}

	// Config is the effective stackctl configuration.
	Config struct {
		// VenvDir is the virtual environment directory, created if absent in cluster mode.
		VenvDir string `mapstructure:"venv_dir" toml:"venv_dir"`
		// Python is the interpreter used to create the virtual environment.
		Python string `mapstructure:"python" toml:"python"`
		// Runner selects the execution runner for setup steps.
		Runner RunnerMode `mapstructure:"runner" toml:"runner"`
		// Modules are the system modules loaded before cluster installs.
		Modules []string `mapstructure:"modules" toml:"modules"`
		// PinnedAccelerator is the pip spec of the GPU-enabled numerical
		// library installed into the venv before the cluster requirements.
		PinnedAccelerator string `mapstructure:"pinned_accelerator" toml:"pinned_accelerator"`
		// Requirements holds the per-mode requirements file paths.
		Requirements RequirementsConfig `mapstructure:"requirements" toml:"requirements"`
		// Jobs holds the job manager settings.
		Jobs JobsConfig `mapstructure:"jobs" toml:"jobs"`
		// UI holds user-interface settings.
		UI UIConfig `mapstructure:"ui" toml:"ui"`
	}
)

// Error implements the error interface.
func (e *InvalidRunnerModeError) Error() string {
	return fmt.Sprintf("invalid runner mode %q (valid: %s, %s)", e.Value, RunnerNative, RunnerVirtual)
}

// Unwrap returns ErrInvalidRunnerMode so callers can use errors.Is for programmatic detection.
func (e *InvalidRunnerModeError) Unwrap() error { return ErrInvalidRunnerMode }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig plus every aggregated validation error so
// callers can use errors.Is against both the sentinel and specific failures.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.Errs...)
}

// IsValid returns whether the RunnerMode is recognized, and a list of
// validation errors if it is not.
func (m RunnerMode) IsValid() (bool, []error) {
	switch m {
	case RunnerNative, RunnerVirtual:
		return true, nil
	}
	return false, []error{&InvalidRunnerModeError{Value: m}}
}

// String returns the runner mode as a plain string.
func (m RunnerMode) String() string { return string(m) }

// Validate checks the Config for invalid values and returns an
// InvalidConfigError aggregating every problem found, or nil.
func (c *Config) Validate() error {
	var errs []error

	if ok, verrs := c.Runner.IsValid(); !ok {
		errs = append(errs, verrs...)
	}
	if strings.TrimSpace(c.VenvDir) == "" {
		errs = append(errs, fmt.Errorf("venv_dir must not be empty"))
	}
	if strings.TrimSpace(c.Python) == "" {
		errs = append(errs, fmt.Errorf("python must not be empty"))
	}
	if strings.TrimSpace(c.Requirements.Local) == "" {
		errs = append(errs, fmt.Errorf("requirements.local must not be empty"))
	}
	if strings.TrimSpace(c.Requirements.Cluster) == "" {
		errs = append(errs, fmt.Errorf("requirements.cluster must not be empty"))
	}
	if c.Jobs.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("jobs.max_concurrent must be at least 1, got %d", c.Jobs.MaxConcurrent))
	}

	if len(errs) > 0 {
		return &InvalidConfigError{Errs: errs}
	}
	return nil
}

// DefaultConfig returns the built-in defaults, matching the SCC deployment
// layout the tool was written for.
func DefaultConfig() *Config {
	return &Config{
		VenvDir: "env",
		Python:  "python3",
		Runner:  RunnerNative,
		Modules: []string{"python3/3.10.12", "cuda/12.2"},
		PinnedAccelerator: "jax[cuda12]==0.4.30",
		Requirements: RequirementsConfig{
			Local:   "deploy/requirements_local.txt",
			Cluster: "deploy/requirements_scc.txt",
		},
		Jobs: JobsConfig{
			LogRoot:       "job_logs",
			StatePath:     "job_logs/state.json",
			MaxConcurrent: 32,
		},
		UI: UIConfig{
			Verbose: false,
		},
	}
}
