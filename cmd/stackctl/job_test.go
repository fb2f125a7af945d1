// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stackctl/internal/config"
	"stackctl/internal/job"
)

// writeJobConfig points the default config at a throwaway state/log area and
// returns the state path.
func writeJobConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	cfgToml := "[jobs]\nlog_root = " + tomlString(filepath.Join(dir, "logs")) + "\nstate_path = " + tomlString(statePath) + "\n"

	cfgDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte(cfgToml), 0o644); err != nil {
		t.Fatal(err)
	}
	config.SetConfigDirOverride(cfgDir)
	t.Cleanup(config.Reset)
	return statePath
}

// tomlString quotes a path for TOML, escaping backslashes for Windows paths.
func tomlString(s string) string {
	return `"` + strings.ReplaceAll(s, `\`, `\\`) + `"`
}

func TestRunJobListEmpty(t *testing.T) {
	writeJobConfig(t)

	var out bytes.Buffer
	jobListCmd.SetOut(&out)
	defer jobListCmd.SetOut(nil)

	if err := runJobList(jobListCmd, nil); err != nil {
		t.Fatalf("runJobList() failed: %v", err)
	}
	if !strings.Contains(out.String(), "No jobs recorded") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunJobStatusAndList(t *testing.T) {
	statePath := writeJobConfig(t)

	started := time.Now().Add(-time.Minute)
	ended := time.Now()
	code := 0
	seeded := &job.Job{
		ID:        "train-1",
		Spec:      job.Spec{Argv: []string{"python", "train.py"}},
		State:     job.StateSucceeded,
		Attempts:  1,
		CreatedAt: started,
		StartedAt: &started,
		EndedAt:   &ended,
		ExitCode:  &code,
	}
	if err := job.NewStore(statePath).Save(map[string]*job.Job{seeded.ID: seeded}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	jobStatusCmd.SetOut(&out)
	defer jobStatusCmd.SetOut(nil)
	if err := runJobStatus(jobStatusCmd, []string{"train-1"}); err != nil {
		t.Fatalf("runJobStatus() failed: %v", err)
	}
	if !strings.Contains(out.String(), "train-1") || !strings.Contains(out.String(), "SUCCEEDED") {
		t.Errorf("status output missing job details:\n%s", out.String())
	}

	out.Reset()
	jobListCmd.SetOut(&out)
	defer jobListCmd.SetOut(nil)
	if err := runJobList(jobListCmd, nil); err != nil {
		t.Fatalf("runJobList() failed: %v", err)
	}
	if !strings.Contains(out.String(), "train-1") {
		t.Errorf("list output missing seeded job:\n%s", out.String())
	}
}

func TestRunJobListStateFilter(t *testing.T) {
	statePath := writeJobConfig(t)

	now := time.Now()
	seeded := map[string]*job.Job{
		"ok-1":   {ID: "ok-1", Spec: job.Spec{Argv: []string{"true"}}, State: job.StateSucceeded, CreatedAt: now},
		"bad-1":  {ID: "bad-1", Spec: job.Spec{Argv: []string{"false"}}, State: job.StateFailed, CreatedAt: now},
		"gone-1": {ID: "gone-1", Spec: job.Spec{Argv: []string{"true"}}, State: job.StateCanceled, CreatedAt: now},
	}
	if err := job.NewStore(statePath).Save(seeded); err != nil {
		t.Fatal(err)
	}

	jobListState = "FAILED"
	defer func() { jobListState = "" }()

	var out bytes.Buffer
	jobListCmd.SetOut(&out)
	defer jobListCmd.SetOut(nil)
	if err := runJobList(jobListCmd, nil); err != nil {
		t.Fatalf("runJobList() failed: %v", err)
	}
	if !strings.Contains(out.String(), "bad-1") {
		t.Errorf("filtered list missing the FAILED job:\n%s", out.String())
	}
	if strings.Contains(out.String(), "ok-1") || strings.Contains(out.String(), "gone-1") {
		t.Errorf("filter leaked other states:\n%s", out.String())
	}

	jobListState = "exploded"
	if err := runJobList(jobListCmd, nil); err == nil {
		t.Error("an unrecognized --state value should be rejected")
	}
}

func TestRunJobStatusUnknown(t *testing.T) {
	writeJobConfig(t)

	err := runJobStatus(jobStatusCmd, []string{"ghost-job"})
	if !errors.Is(err, job.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestRunJobCancelFinishedJob(t *testing.T) {
	statePath := writeJobConfig(t)

	seeded := &job.Job{
		ID:        "done-1",
		Spec:      job.Spec{Argv: []string{"true"}},
		State:     job.StateSucceeded,
		CreatedAt: time.Now(),
	}
	if err := job.NewStore(statePath).Save(map[string]*job.Job{seeded.ID: seeded}); err != nil {
		t.Fatal(err)
	}

	if err := runJobCancel(jobCancelCmd, []string{"done-1"}); err == nil {
		t.Error("canceling a finished job should fail")
	}
}

func TestRunJobCancelPersistsState(t *testing.T) {
	statePath := writeJobConfig(t)

	seeded := &job.Job{
		ID:        "stuck-1",
		Spec:      job.Spec{Argv: []string{"sleep", "60"}},
		State:     job.StateRunning,
		CreatedAt: time.Now(),
		// PID 0: never signal anything, just flip the record.
	}
	if err := job.NewStore(statePath).Save(map[string]*job.Job{seeded.ID: seeded}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	jobCancelCmd.SetOut(&out)
	defer jobCancelCmd.SetOut(nil)
	if err := runJobCancel(jobCancelCmd, []string{"stuck-1"}); err != nil {
		t.Fatalf("runJobCancel() failed: %v", err)
	}

	reloaded, err := job.NewStore(statePath).Load()
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded["stuck-1"].State; got != job.StateCanceled {
		t.Errorf("persisted state = %s, want %s", got, job.StateCanceled)
	}
}
