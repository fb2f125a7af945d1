// SPDX-License-Identifier: MPL-2.0

package setup

import (
	"errors"
	"strings"
	"testing"

	"stackctl/internal/config"
)

func TestPlannerLocalMode(t *testing.T) {
	t.Parallel()

	plan, err := NewPlanner(config.DefaultConfig()).Plan(ModeLocal)
	if err != nil {
		t.Fatalf("Plan(local) error = %v", err)
	}

	if len(plan.Steps) != 1 {
		t.Fatalf("Plan(local) has %d steps, want 1: %s", len(plan.Steps), plan.Describe())
	}
	install, ok := plan.Steps[0].(*InstallStep)
	if !ok {
		t.Fatalf("Plan(local) step = %T, want *InstallStep", plan.Steps[0])
	}
	if install.RequirementsFile != "deploy/requirements_local.txt" {
		t.Errorf("RequirementsFile = %q", install.RequirementsFile)
	}
	if install.Spec != "" {
		t.Errorf("Spec = %q, want empty", install.Spec)
	}
}

func TestPlannerClusterMode(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	plan, err := NewPlanner(cfg).Plan(ModeCluster)
	if err != nil {
		t.Fatalf("Plan(scc) error = %v", err)
	}

	wantKinds := []StepKind{
		StepModuleLoad,
		StepVenvCreate,
		StepVenvActivate,
		StepInstall,
		StepInstall,
	}
	if len(plan.Steps) != len(wantKinds) {
		t.Fatalf("Plan(scc) has %d steps, want %d: %s", len(plan.Steps), len(wantKinds), plan.Describe())
	}
	for i, kind := range wantKinds {
		if plan.Steps[i].Kind() != kind {
			t.Errorf("step %d kind = %q, want %q", i, plan.Steps[i].Kind(), kind)
		}
	}

	pinned := plan.Steps[3].(*InstallStep)
	if pinned.Spec != cfg.PinnedAccelerator {
		t.Errorf("pinned install Spec = %q, want %q", pinned.Spec, cfg.PinnedAccelerator)
	}
	reqs := plan.Steps[4].(*InstallStep)
	if reqs.RequirementsFile != cfg.Requirements.Cluster {
		t.Errorf("requirements install = %q, want %q", reqs.RequirementsFile, cfg.Requirements.Cluster)
	}

	modules := plan.Steps[0].(*ModuleLoadStep)
	if len(modules.Modules) != 2 {
		t.Errorf("module step loads %v, want the two configured modules", modules.Modules)
	}
}

func TestPlannerInvalidMode(t *testing.T) {
	t.Parallel()

	_, err := NewPlanner(config.DefaultConfig()).Plan(Mode("bogus"))
	if !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Plan(bogus) error = %v, want wrapping ErrInvalidMode", err)
	}
}

func TestPlanDescribe(t *testing.T) {
	t.Parallel()

	plan, err := NewPlanner(config.DefaultConfig()).Plan(ModeCluster)
	if err != nil {
		t.Fatal(err)
	}
	out := plan.Describe()
	for _, want := range []string{"mode: scc", "1. load modules", "jax[cuda12]", "requirements_scc.txt"} {
		if !strings.Contains(out, want) {
			t.Errorf("Describe() missing %q:\n%s", want, out)
		}
	}
}
