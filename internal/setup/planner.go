// SPDX-License-Identifier: MPL-2.0

package setup

import (
	"stackctl/internal/config"
)

// Planner resolves a Mode into an ordered Plan using the effective config.
type Planner struct {
	cfg *config.Config
}

// NewPlanner creates a Planner over the given config.
func NewPlanner(cfg *config.Config) *Planner {
	return &Planner{cfg: cfg}
}

// Plan maps a mode to its step list.
//
// Local mode is a single installer invocation. Cluster mode prepares the
// environment first: modules, venv create-if-absent, activation, pinned
// accelerator install, then the cluster requirements file.
func (p *Planner) Plan(mode Mode) (*Plan, error) {
	if ok, errs := mode.IsValid(); !ok {
		return nil, errs[0]
	}

	switch mode {
	case ModeLocal:
		return &Plan{
			Mode: mode,
			Steps: []Step{
				&InstallStep{RequirementsFile: p.cfg.Requirements.Local},
			},
		}, nil
	default: // ModeCluster
		return &Plan{
			Mode: mode,
			Steps: []Step{
				&ModuleLoadStep{Modules: p.cfg.Modules},
				&VenvCreateStep{Dir: p.cfg.VenvDir, Python: p.cfg.Python},
				&VenvActivateStep{Dir: p.cfg.VenvDir},
				&InstallStep{Spec: p.cfg.PinnedAccelerator},
				&InstallStep{RequirementsFile: p.cfg.Requirements.Cluster},
			},
		}, nil
	}
}
