package render

import (
	"testing"

	"reel/internal/dispatch"
)

func TestTrackerCountsDistinctPromptIndexes(t *testing.T) {
	tracker := NewTracker()
	tracker.Track("job-1", "proj-1", 3)

	events := []dispatch.Event{
		{JobID: "job-1", Type: dispatch.EventPromptCompleted, PromptIndex: 0, Paths: []string{"clips/a.mp4"}},
		{JobID: "job-1", Type: dispatch.EventPromptCompleted, PromptIndex: 0, Paths: []string{"clips/a.mp4"}},
		{JobID: "job-1", Type: dispatch.EventPromptCompleted, PromptIndex: 2, Paths: []string{"clips/c.mp4"}},
	}
	var job Job
	var err error
	for _, evt := range events {
		job, err = tracker.Apply(evt)
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if job.CompletedPrompts != 2 {
		t.Fatalf("expected 2 distinct completions, got %d", job.CompletedPrompts)
	}
	if len(job.ProducedPaths) != 2 {
		t.Fatalf("expected deduplicated paths, got %v", job.ProducedPaths)
	}
}

func TestTrackerOutOfOrderDelivery(t *testing.T) {
	tracker := NewTracker()
	tracker.Track("job-1", "proj-1", 2)

	if _, err := tracker.Apply(dispatch.Event{JobID: "job-1", Type: dispatch.EventPromptCompleted, PromptIndex: 1, Paths: []string{"clips/b.mp4"}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	job, err := tracker.Apply(dispatch.Event{JobID: "job-1", Type: dispatch.EventAccepted, PromptCount: 2})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if job.CompletedPrompts != 1 {
		t.Fatalf("late accepted must not reset progress, got %d", job.CompletedPrompts)
	}
	if job.Status != JobProcessing {
		t.Fatalf("unexpected status %q", job.Status)
	}
}

func TestTrackerTerminalReplayIsNoOp(t *testing.T) {
	tracker := NewTracker()
	tracker.Track("job-1", "proj-1", 1)

	first, err := tracker.Apply(dispatch.Event{JobID: "job-1", Type: dispatch.EventCompleted, CompletedPrompts: 1, Paths: []string{"clips/a.mp4"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if first.Status != JobCompleted {
		t.Fatalf("expected completed, got %q", first.Status)
	}

	replay, err := tracker.Apply(dispatch.Event{JobID: "job-1", Type: dispatch.EventFailed, Error: "late failure"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if replay.Status != JobCompleted || replay.Error != "" {
		t.Fatalf("terminal job mutated by replay: %+v", replay)
	}
}

func TestTrackerFailureRetainsProducedClips(t *testing.T) {
	tracker := NewTracker()
	tracker.Track("job-1", "proj-1", 3)

	tracker.Apply(dispatch.Event{JobID: "job-1", Type: dispatch.EventPromptCompleted, PromptIndex: 0, Paths: []string{"clips/a.mp4"}})
	job, err := tracker.Apply(dispatch.Event{JobID: "job-1", Type: dispatch.EventFailed, CompletedPrompts: 1, FailedPrompts: 2, Error: "render backend unavailable"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if job.Status != JobFailed {
		t.Fatalf("expected failed, got %q", job.Status)
	}
	if len(job.ProducedPaths) != 1 || job.ProducedPaths[0] != "clips/a.mp4" {
		t.Fatalf("partial output lost: %v", job.ProducedPaths)
	}
	if job.FailedPrompts != 2 {
		t.Fatalf("expected 2 failed prompts, got %d", job.FailedPrompts)
	}
}

func TestTrackerActiveClearsOnTerminal(t *testing.T) {
	tracker := NewTracker()
	tracker.Track("job-1", "proj-1", 1)
	if _, ok := tracker.Active("proj-1"); !ok {
		t.Fatal("expected active job after Track")
	}
	tracker.Apply(dispatch.Event{JobID: "job-1", Type: dispatch.EventCompleted})
	if _, ok := tracker.Active("proj-1"); ok {
		t.Fatal("terminal job still reported active")
	}
}

func TestTrackerUnknownJob(t *testing.T) {
	tracker := NewTracker()
	if _, err := tracker.Apply(dispatch.Event{JobID: "ghost", Type: dispatch.EventAccepted}); err != ErrJobNotFound {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
