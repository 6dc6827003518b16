// Package stitch tracks assembly jobs that combine a project's clips into
// a single output artifact. Like the render tracker it is purely in-memory;
// persistent truth lives in the project store and the artifact store.
package stitch

import (
	"errors"
	"sync"
	"time"

	"reel/internal/dispatch"
)

// ErrJobNotFound is returned when an event references an unknown job.
var ErrJobNotFound = errors.New("stitch: job not found")

// JobStatus tracks a stitch job through its lifecycle.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further updates.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is one stitch unit of work: all of a project's clips in, one output
// path out.
type Job struct {
	ID         string
	ProjectID  string
	Status     JobStatus
	ClipCount  int
	OutputPath string
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Tracker holds the live stitch jobs keyed by id, with an active-job index
// per project.
type Tracker struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	byActive map[string]string
	now      func() time.Time
}

// NewTracker constructs an empty stitch registry.
func NewTracker() *Tracker {
	return &Tracker{
		jobs:     make(map[string]*Job),
		byActive: make(map[string]string),
		now:      time.Now,
	}
}

// Track registers a freshly dispatched stitch job.
func (t *Tracker) Track(jobID, projectID string, clipCount int) Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now().UTC()
	job := &Job{
		ID:        jobID,
		ProjectID: projectID,
		Status:    JobQueued,
		ClipCount: clipCount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.jobs[jobID] = job
	t.byActive[projectID] = jobID
	return *job
}

// Get returns a snapshot of the job.
func (t *Tracker) Get(jobID string) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Active returns the project's in-flight stitch job, if any.
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
	return *job, true
}

// Apply folds a worker lifecycle event into the job record. Terminal
// replays are no-ops.
func (t *Tracker) Apply(event dispatch.Event) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[event.JobID]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	if job.Status.Terminal() {
		return *job, nil
	}

	switch event.Type {
	case dispatch.EventAccepted:
		job.Status = JobProcessing
	case dispatch.EventCompleted:
		job.Status = JobCompleted
		job.OutputPath = event.OutputPath
		t.clearActiveLocked(job)
	case dispatch.EventFailed:
		job.Status = JobFailed
		job.Error = event.Error
		t.clearActiveLocked(job)
	}
	job.UpdatedAt = t.now().UTC()
	return *job, nil
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
