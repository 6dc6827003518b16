package render

import (
	"sort"
	"time"
)

// JobStatus tracks a generation job through its lifecycle.
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

// Job is the in-memory record of one clip generation batch. A job is
// created when the orchestrator dispatches work and mutated only through
// the tracker, which serializes updates per job.
type Job struct {
	ID               string
	ProjectID        string
	Status           JobStatus
	PromptCount      int
	CompletedPrompts int
	FailedPrompts    int
	ProducedPaths    []string
	Error            string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	seenIndexes map[int]struct{}
	pathSet     map[string]struct{}
}

func newJob(id, projectID string, promptCount int, now time.Time) *Job {
	return &Job{
		ID:          id,
		ProjectID:   projectID,
		Status:      JobQueued,
		PromptCount: promptCount,
		CreatedAt:   now,
		UpdatedAt:   now,
		seenIndexes: make(map[int]struct{}),
		pathSet:     make(map[string]struct{}),
	}
}

func (j *Job) addPaths(paths []string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, ok := j.pathSet[path]; ok {
			continue
		}
		j.pathSet[path] = struct{}{}
		j.ProducedPaths = append(j.ProducedPaths, path)
	}
	sort.Strings(j.ProducedPaths)
}

// snapshot returns a copy safe to hand to callers.
func (j *Job) snapshot() Job {
	out := *j
	out.ProducedPaths = append([]string(nil), j.ProducedPaths...)
	out.seenIndexes = nil
	out.pathSet = nil
	return out
}
