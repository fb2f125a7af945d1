// SPDX-License-Identifier: MPL-2.0

package setup

import (
	"fmt"
	"strings"
)

// Step kind constants, in the order cluster setup runs them.
const (
	StepModuleLoad   StepKind = "module-load"
	StepVenvCreate   StepKind = "venv-create"
	StepVenvActivate StepKind = "venv-activate"
	StepInstall      StepKind = "install"
)

type (
	// StepKind identifies a step type within a plan.
	StepKind string

	// Step is one unit of work in a setup plan.
	Step interface {
		Kind() StepKind
		// Describe returns a one-line human-readable description for
		// dry-run output and logs.
		Describe() string
	}

	// ModuleLoadStep loads system modules (Lmod / Environment Modules)
	// and merges the resulting environment mutations into the plan env.
	ModuleLoadStep struct {
		Modules []string
	}

	// VenvCreateStep creates the virtual environment directory if absent.
	// The step is idempotent: an existing directory is left untouched.
	VenvCreateStep struct {
		Dir    string
		Python string
	}

	// VenvActivateStep mutates the plan environment the way `source
	// env/bin/activate` would: VIRTUAL_ENV set, PATH prefixed with the
	// venv bin dir, PYTHONHOME removed. No subprocess runs.
	VenvActivateStep struct {
		Dir string
	}

	// InstallStep invokes the package installer. Exactly one of Spec
	// (a single pinned package spec) or RequirementsFile is set.
	InstallStep struct {
		Spec             string
		RequirementsFile string
	}

	// Plan is the ordered step list resolved from a Mode.
	Plan struct {
		Mode  Mode
		Steps []Step
	}
)

// Kind returns StepModuleLoad.
func (s *ModuleLoadStep) Kind() StepKind { return StepModuleLoad }

// Describe returns a one-line description of the step.
func (s *ModuleLoadStep) Describe() string {
	return "load modules " + strings.Join(s.Modules, ", ")
}

// Kind returns StepVenvCreate.
func (s *VenvCreateStep) Kind() StepKind { return StepVenvCreate }

// Describe returns a one-line description of the step.
func (s *VenvCreateStep) Describe() string {
	return fmt.Sprintf("create virtual environment %s (if absent, via %s)", s.Dir, s.Python)
}

// Kind returns StepVenvActivate.
func (s *VenvActivateStep) Kind() StepKind { return StepVenvActivate }

// Describe returns a one-line description of the step.
func (s *VenvActivateStep) Describe() string {
	return "activate virtual environment " + s.Dir
}

// Kind returns StepInstall.
func (s *InstallStep) Kind() StepKind { return StepInstall }

// Describe returns a one-line description of the step.
func (s *InstallStep) Describe() string {
	if s.RequirementsFile != "" {
		return "install requirements from " + s.RequirementsFile
	}
	return "install " + s.Spec
}

// Describe renders the plan for dry-run output, one numbered line per step.
func (p *Plan) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "setup plan (mode: %s)\n", p.Mode)
	for i, step := range p.Steps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step.Describe())
	}
	return b.String()
}
