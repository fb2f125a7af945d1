// SPDX-License-Identifier: MPL-2.0

package job

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidSpec is the sentinel error wrapped by InvalidSpecError.
var ErrInvalidSpec = errors.New("invalid job spec")

type (
	// RetryPolicy controls how failed attempts are retried.
	RetryPolicy struct {
		// MaxRetries is the number of retries after the first attempt.
		// Zero means a single attempt.
		MaxRetries int `json:"max_retries"`
		// Backoff is the exponential backoff base: the delay before retry
		// n is Backoff^n (in seconds), plus jitter.
		Backoff time.Duration `json:"backoff"`
		// Jitter is the maximum random extra delay added to each backoff.
		Jitter time.Duration `json:"jitter"`
	}

	// Spec describes what a job runs and how.
	Spec struct {
		// Argv is the command and its arguments. Must be non-empty.
		Argv []string `json:"argv"`
		// Env holds extra environment entries layered over the host env.
		Env map[string]string `json:"env,omitempty"`
		// Dir is the working directory. Empty means the manager's cwd.
		Dir string `json:"dir,omitempty"`
		// Timeout bounds each attempt. Zero means no per-attempt timeout.
		Timeout time.Duration `json:"timeout,omitempty"`
		// RuntimeLimit bounds total wall time across all attempts.
		// Zero means unlimited.
		RuntimeLimit time.Duration `json:"runtime_limit,omitempty"`
		// Retry is the retry policy for failed attempts.
		Retry RetryPolicy `json:"retry"`
		// Name labels the job; it becomes the job id prefix.
		Name string `json:"name,omitempty"`
		// Tags carry caller metadata; the manager never reads them.
		Tags map[string]string `json:"tags,omitempty"`
	}

	// InvalidSpecError is returned when a Spec fails validation.
	// It wraps ErrInvalidSpec for errors.Is() compatibility.
	InvalidSpecError struct {
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid job spec: %s", e.Reason)
}

// Unwrap returns ErrInvalidSpec so callers can use errors.Is for programmatic detection.
func (e *InvalidSpecError) Unwrap() error { return ErrInvalidSpec }

// Validate checks the spec for structural problems.
func (s *Spec) Validate() error {
	if len(s.Argv) == 0 {
		return &InvalidSpecError{Reason: "argv must not be empty"}
	}
	if strings.TrimSpace(s.Argv[0]) == "" {
		return &InvalidSpecError{Reason: "argv[0] must not be empty"}
	}
	if s.Retry.MaxRetries < 0 {
		return &InvalidSpecError{Reason: "retry.max_retries must not be negative"}
	}
	return nil
}

// newJobID builds a unique, human-scannable job id:
// <name-or-binary>-<unix-millis>-<short uuid>.
func newJobID(spec *Spec, now time.Time) string {
	base := spec.Name
	if base == "" && len(spec.Argv) > 0 {
		base = filepath.Base(spec.Argv[0])
	}
	if base == "" {
		base = "job"
	}
	base = strings.ReplaceAll(base, " ", "_")
	short := uuid.NewString()[:8]
	return fmt.Sprintf("%s-%d-%s", base, now.UnixMilli(), short)
}

// backoffDelay computes the delay before retry attempt (1-based), applying
// the exponential base and random jitter.
func (p RetryPolicy) backoffDelay(attempt int) time.Duration {
	if p.Backoff <= 0 {
		return jitterOf(p.Jitter)
	}
	delay := time.Duration(math.Pow(p.Backoff.Seconds(), float64(attempt)) * float64(time.Second))
	return delay + jitterOf(p.Jitter)
}

func jitterOf(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
