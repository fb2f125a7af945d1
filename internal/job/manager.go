// SPDX-License-Identifier: MPL-2.0

package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"stackctl/internal/issue"
)

// Job lifecycle events observers can subscribe to. EventStart fires at the
// beginning of every attempt, so a retried job emits it once per attempt.
const (
	EventSubmit Event = "submit"
	EventStart  Event = "start"
	EventRetry  Event = "retry"
	EventFinish Event = "finish"
	EventCancel Event = "cancel"
)

// waitPoll is how often Wait re-checks a job's state.
const waitPoll = 50 * time.Millisecond

var (
	// ErrUnknownEvent is the sentinel error wrapped by UnknownEventError.
	ErrUnknownEvent = errors.New("unknown job event")

	// ErrJobNotFound is returned when a job id is not in the manager.
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateJob is returned when a named job is submitted while
	// another job with the same name is still pending or running.
	ErrDuplicateJob = errors.New("duplicate job name")
)

type (
	// Event names a job lifecycle transition.
	Event string

	// EventFunc observes a job transition. The job passed in is a clone;
	// mutating it has no effect on the manager.
	EventFunc func(j *Job)

	// UnknownEventError is returned when subscribing to an event the
	// manager does not emit. It wraps ErrUnknownEvent for errors.Is().
	UnknownEventError struct {
		Value Event
	}

	// Manager owns the job table: it launches attempts through a Backend,
	// bounds concurrency, applies retry policies, and persists every
	// state transition through its Store.
	Manager struct {
		backend Backend
		store   *Store
		logRoot string
		sem     *semaphore.Weighted

		mu        sync.Mutex
		jobs      map[string]*Job
		attempts  map[string]Attempt
		cancels   map[string]context.CancelFunc
		observers map[Event][]EventFunc

		// now is a seam for tests; defaults to time.Now.
		now func() time.Time
		// sleep is a seam for tests; defaults to a cancellable timer sleep.
		sleep func(ctx context.Context, d time.Duration) error

		wg sync.WaitGroup
	}
)

// Error implements the error interface.
func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown job event %q (valid: %s, %s, %s, %s, %s)",
		e.Value, EventSubmit, EventStart, EventRetry, EventFinish, EventCancel)
}

// Unwrap returns ErrUnknownEvent so callers can use errors.Is for programmatic detection.
func (e *UnknownEventError) Unwrap() error { return ErrUnknownEvent }

// IsValid returns whether the Event is one the manager emits, and a list of
// validation errors if it is not.
func (e Event) IsValid() (bool, []error) {
	switch e {
	case EventSubmit, EventStart, EventRetry, EventFinish, EventCancel:
		return true, nil
	}
	return false, []error{&UnknownEventError{Value: e}}
}

// NewManager builds a Manager persisting through store and writing per-job
// logs under logRoot. maxConcurrent bounds simultaneously running jobs;
// values below one run everything sequentially. Previously persisted jobs
// are loaded; any left RUNNING or PENDING by a crashed process are marked
// FAILED since their processes are no longer tracked.
func NewManager(backend Backend, store *Store, logRoot string, maxConcurrent int) (*Manager, error) {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	jobs, err := store.Load()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		backend:   backend,
		store:     store,
		logRoot:   logRoot,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		jobs:      jobs,
		attempts:  map[string]Attempt{},
		cancels:   map[string]context.CancelFunc{},
		observers: map[Event][]EventFunc{},
		now:       time.Now,
		sleep:     sleepCtx,
	}

	dirty := false
	for _, j := range m.jobs {
		// Repair records orphaned by a crashed manager. A live PID means
		// another stackctl process still owns the job; leave it alone.
		if !j.State.IsTerminal() && !pidAlive(j.PID) {
			j.State = StateFailed
			j.Error = "interrupted: manager restarted while job was in flight"
			if j.EndedAt == nil {
				t := m.now()
				j.EndedAt = &t
			}
			dirty = true
		}
	}
	if dirty {
		if err := m.persistLocked(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Subscribe registers fn for the given event. All observers for an event
// run synchronously, in registration order, on the goroutine performing
// the transition.
func (m *Manager) Subscribe(event Event, fn EventFunc) error {
	if ok, errs := event.IsValid(); !ok {
		return errs[0]
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers[event] = append(m.observers[event], fn)
	return nil
}

// Submit validates spec, records a PENDING job, and launches its run loop.
// A named spec is rejected while another job with the same name is still
// pending or running.
func (m *Manager) Submit(ctx context.Context, spec Spec) (*Job, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if spec.Name != "" {
		for _, existing := range m.jobs {
			if existing.Spec.Name == spec.Name && !existing.State.IsTerminal() {
				m.mu.Unlock()
				return nil, fmt.Errorf("%w: %q is already %s as %s",
					ErrDuplicateJob, spec.Name, existing.State, existing.ID)
			}
		}
	}

	j := &Job{
		ID:        newJobID(&spec, m.now()),
		Spec:      spec,
		State:     StatePending,
		CreatedAt: m.now(),
	}
	m.jobs[j.ID] = j
	if err := m.persistLocked(); err != nil {
		delete(m.jobs, j.ID)
		m.mu.Unlock()
		return nil, err
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancels[j.ID] = cancel
	out := j.Clone()
	m.mu.Unlock()

	m.emit(EventSubmit, out)
	slog.Debug("job submitted", "job", j.ID, "argv", spec.Argv)

	m.wg.Add(1)
	go m.run(runCtx, j.ID)
	return out, nil
}

// Status returns a snapshot of one job.
func (m *Manager) Status(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j.Clone(), nil
}

// List returns snapshots of every known job, newest first.
func (m *Manager) List() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.After(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	return out
}

// Cancel stops a pending or running job. The running attempt, if any, gets
// SIGTERM and the grace period. Canceling a terminal job is an error.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if j.State.IsTerminal() {
		state := j.State
		m.mu.Unlock()
		return issue.NewErrorContext().
			WithOperation("canceling job").
			WithResource(id).
			WithSuggestion(fmt.Sprintf("job already finished with state %s", state)).
			BuildError()
	}
	cancel := m.cancels[id]
	attempt := m.attempts[id]
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if attempt != nil {
		attempt.Terminate()
	}
	return nil
}

// Wait blocks until the job reaches a terminal state or ctx is done,
// returning the final snapshot.
func (m *Manager) Wait(ctx context.Context, id string) (*Job, error) {
	for {
		j, err := m.Status(id)
		if err != nil {
			return nil, err
		}
		if j.State.IsTerminal() {
			return j, nil
		}
		select {
		case <-ctx.Done():
			return j, ctx.Err()
		case <-time.After(waitPoll):
		}
	}
}

// Close waits for all in-flight run loops to settle. It does not cancel
// them; call Cancel per job for that.
func (m *Manager) Close() {
	m.wg.Wait()
}

// run is the per-job loop: attempts, retries with backoff, and the final
// transition. It owns the job's state after submission.
func (m *Manager) run(ctx context.Context, id string) {
	defer m.wg.Done()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.finish(id, StateCanceled, nil, "canceled while waiting for a slot")
		return
	}
	defer m.sem.Release(1)

	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok || j.State.IsTerminal() {
		m.mu.Unlock()
		return
	}
	spec := j.Spec
	m.mu.Unlock()

	deadline := time.Time{}
	if spec.RuntimeLimit > 0 {
		deadline = m.now().Add(spec.RuntimeLimit)
	}

	var lastCode int
	var lastErr string
	for attempt := 0; attempt <= spec.Retry.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			m.finish(id, StateCanceled, codePtr(lastCode), "canceled")
			return
		}
		if !deadline.IsZero() && !m.now().Before(deadline) {
			m.finish(id, StateFailed, codePtr(lastCode), "runtime limit exceeded")
			return
		}

		code, infraErr, err := m.runAttempt(ctx, id, attempt, spec, deadline)
		if err != nil {
			// The attempt never started or was torn down by cancellation.
			if errors.Is(err, context.Canceled) {
				m.finish(id, StateCanceled, codePtr(code), "canceled")
				return
			}
			lastErr = err.Error()
			lastCode = code
		} else if infraErr != nil {
			lastErr = infraErr.Error()
			lastCode = code
		} else if code == 0 {
			m.finish(id, StateSucceeded, codePtr(0), "")
			return
		} else {
			lastErr = fmt.Sprintf("exit code %d", code)
			lastCode = code
		}

		if attempt < spec.Retry.MaxRetries {
			delay := spec.Retry.backoffDelay(attempt + 1)
			slog.Debug("job retrying", "job", id, "attempt", attempt+1, "delay", delay)
			m.emitFor(id, EventRetry)
			if err := m.sleep(ctx, delay); err != nil {
				m.finish(id, StateCanceled, codePtr(lastCode), "canceled")
				return
			}
		}
	}

	m.finish(id, StateFailed, codePtr(lastCode), lastErr)
}

// runAttempt runs one attempt, honoring the per-attempt timeout and the
// overall runtime deadline. It returns the exit code, any infrastructure
// error from the attempt, and any error launching it.
func (m *Manager) runAttempt(ctx context.Context, id string, attempt int, spec Spec, deadline time.Time) (int, error, error) {
	attemptCtx := ctx
	var cancels []context.CancelFunc
	if spec.Timeout > 0 {
		c, cancel := context.WithTimeout(attemptCtx, spec.Timeout)
		attemptCtx, cancels = c, append(cancels, cancel)
	}
	if !deadline.IsZero() {
		c, cancel := context.WithDeadline(attemptCtx, deadline)
		attemptCtx, cancels = c, append(cancels, cancel)
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return 0, nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	j.State = StateRunning
	j.Attempts = attempt + 1
	if j.StartedAt == nil {
		t := m.now()
		j.StartedAt = &t
	}
	_ = m.persistLocked()
	m.mu.Unlock()

	m.emitFor(id, EventStart)
	slog.Debug("job attempt starting", "job", id, "attempt", attempt+1)

	m.mu.Lock()
	j = m.jobs[id]
	att, err := m.backend.Start(attemptCtx, j, m.logRoot)
	if err != nil {
		m.mu.Unlock()
		return -1, nil, err
	}
	m.attempts[id] = att
	_ = m.persistLocked()
	m.mu.Unlock()

	code, waitErr := att.Wait(attemptCtx)

	m.mu.Lock()
	delete(m.attempts, id)
	m.mu.Unlock()

	if waitErr != nil {
		if errors.Is(waitErr, context.DeadlineExceeded) {
			if !deadline.IsZero() && !m.now().Before(deadline) {
				return code, errors.New("runtime limit exceeded"), nil
			}
			return code, fmt.Errorf("attempt timed out after %s", spec.Timeout), nil
		}
		if errors.Is(waitErr, context.Canceled) {
			return code, nil, waitErr
		}
		return code, waitErr, nil
	}
	return code, nil, nil
}

// finish moves the job to its terminal state, persists, and notifies.
func (m *Manager) finish(id string, state State, code *int, reason string) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok || j.State.IsTerminal() {
		m.mu.Unlock()
		return
	}
	j.State = state
	j.Error = reason
	if code != nil {
		j.ExitCode = code
	}
	t := m.now()
	j.EndedAt = &t
	if cancel, ok := m.cancels[id]; ok {
		cancel()
		delete(m.cancels, id)
	}
	if err := m.persistLocked(); err != nil {
		slog.Warn("failed to persist job state", "job", id, "error", err)
	}
	out := j.Clone()
	m.mu.Unlock()

	slog.Debug("job finished", "job", id, "state", state, "reason", reason)
	if state == StateCanceled {
		m.emit(EventCancel, out)
	}
	m.emit(EventFinish, out)
}

// emitFor clones the job under the lock and notifies observers outside it.
func (m *Manager) emitFor(id string, event Event) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	out := j.Clone()
	m.mu.Unlock()
	m.emit(event, out)
}

func (m *Manager) emit(event Event, j *Job) {
	m.mu.Lock()
	fns := make([]EventFunc, len(m.observers[event]))
	copy(fns, m.observers[event])
	m.mu.Unlock()
	for _, fn := range fns {
		fn(j)
	}
}

// persistLocked saves the job table. Callers must hold m.mu.
func (m *Manager) persistLocked() error {
	return m.store.Save(m.jobs)
}

// pidAlive reports whether a process with the given pid exists. Signal 0
// performs the existence check without delivering anything.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func codePtr(c int) *int { return &c }
