// SPDX-License-Identifier: MPL-2.0

package job

import (
	"time"
)

// Job is the full record of one submitted job: its spec, lifecycle state,
// attempt bookkeeping, and log locations. Records are persisted as JSON.
type Job struct {
	ID       string `json:"job_id"`
	Spec     Spec   `json:"spec"`
	State    State  `json:"state"`
	Attempts int    `json:"attempts"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// ExitCode is the last attempt's exit code; nil until an attempt ends.
	ExitCode *int `json:"exit_code,omitempty"`
	// Error describes the failure when State is FAILED.
	Error string `json:"error,omitempty"`
	// PID is the last attempt's process id, 0 when never started.
	PID int `json:"pid,omitempty"`

	StdoutPath string `json:"stdout_path,omitempty"`
	StderrPath string `json:"stderr_path,omitempty"`
}

// Clone returns a deep-enough copy safe to hand to callers while the
// manager keeps mutating the original.
func (j *Job) Clone() *Job {
	out := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.EndedAt != nil {
		t := *j.EndedAt
		out.EndedAt = &t
	}
	if j.ExitCode != nil {
		c := *j.ExitCode
		out.ExitCode = &c
	}
	return &out
}

// Duration returns how long the job ran, or 0 when it never started.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if j.EndedAt != nil {
		end = *j.EndedAt
	}
	return end.Sub(*j.StartedAt)
}
