package render

import (
	"errors"
	"sync"
	"time"

	"reel/internal/dispatch"
)

// ErrJobNotFound is returned when an event references an unknown job.
var ErrJobNotFound = errors.New("render: job not found")

// Tracker holds the live generation jobs. Records are ephemeral: a daemon
// restart loses them, and the reconciler re-derives project state from the
// artifact store instead.
type Tracker struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	byActive map[string]string
	now      func() time.Time
}

// NewTracker constructs an empty job registry.
func NewTracker() *Tracker {
	return &Tracker{
		jobs:     make(map[string]*Job),
		byActive: make(map[string]string),
		now:      time.Now,
	}
}

// Track registers a freshly dispatched job and marks it active for its
// project.
func (t *Tracker) Track(jobID, projectID string, promptCount int) Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	job := newJob(jobID, projectID, promptCount, t.now().UTC())
	t.jobs[jobID] = job
	t.byActive[projectID] = jobID
	return job.snapshot()
}

// Get returns a snapshot of the job.
func (t *Tracker) Get(jobID string) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return job.snapshot(), true
}

// Active returns the project's in-flight job, if any.
func (t *Tracker) Active(projectID string) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	jobID, ok := t.byActive[projectID]
	if !ok {
		return Job{}, false
	}
	job, ok := t.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return Job{}, false
	}
	return job.snapshot(), true
}

// Apply folds a worker lifecycle event into the job record and returns the
// updated snapshot. Replays of terminal events and duplicate per-prompt
// events are no-ops.
func (t *Tracker) Apply(event dispatch.Event) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[event.JobID]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	if job.Status.Terminal() {
		return job.snapshot(), nil
	}

	now := t.now().UTC()
	switch event.Type {
	case dispatch.EventAccepted:
		job.Status = JobProcessing
		if event.PromptCount > 0 {
			job.PromptCount = event.PromptCount
		}
	case dispatch.EventPromptCompleted:
		if _, seen := job.seenIndexes[event.PromptIndex]; !seen {
			job.seenIndexes[event.PromptIndex] = struct{}{}
			job.CompletedPrompts = len(job.seenIndexes)
		}
		job.addPaths(event.Paths)
		job.Status = JobProcessing
	case dispatch.EventPromptFailed:
		job.FailedPrompts++
		job.Status = JobProcessing
	case dispatch.EventCompleted:
		job.Status = JobCompleted
		if event.CompletedPrompts > 0 {
			job.CompletedPrompts = event.CompletedPrompts
		}
		job.addPaths(event.Paths)
		t.clearActiveLocked(job)
	case dispatch.EventFailed:
		job.Status = JobFailed
		job.Error = event.Error
		if event.CompletedPrompts > 0 {
			job.CompletedPrompts = event.CompletedPrompts
		}
		if event.FailedPrompts > 0 {
			job.FailedPrompts = event.FailedPrompts
		}
		job.addPaths(event.Paths)
		t.clearActiveLocked(job)
	}
	job.UpdatedAt = now
	return job.snapshot(), nil
}

// Forget releases a project's active-job slot without touching the record.
// Used when the project itself is removed.
func (t *Tracker) Forget(projectID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byActive, projectID)
}

func (t *Tracker) clearActiveLocked(job *Job) {
	if current, ok := t.byActive[job.ProjectID]; ok && current == job.ID {
		delete(t.byActive, job.ProjectID)
	}
}
