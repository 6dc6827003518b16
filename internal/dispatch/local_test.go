package dispatch

import (
	"context"
	"testing"
	"time"
)

func TestLocalDispatchRecordsMessages(t *testing.T) {
	d := NewLocalDispatcher(4)
	ctx := context.Background()

	jobID, err := d.Dispatch(ctx, KindRender, "proj-1", []byte(`{"prompts":["a"]}`))
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if jobID == "" {
		t.Fatal("expected job id")
	}

	messages := d.Dispatched()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Kind != KindRender || messages[0].ProjectID != "proj-1" {
		t.Fatalf("unexpected message: %#v", messages[0])
	}
	if messages[0].JobID != jobID {
		t.Fatalf("job id mismatch: %s vs %s", messages[0].JobID, jobID)
	}
}

func TestLocalConsumeDeliversEvents(t *testing.T) {
	d := NewLocalDispatcher(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 1)
	go func() {
		_ = d.Consume(ctx, func(_ context.Context, event Event) error {
			received <- event
			return nil
		})
	}()

	want := Event{Type: EventAccepted, JobID: "job-1", Kind: KindRender, ProjectID: "proj-1", PromptCount: 2}
	if err := d.PublishEvent(ctx, want); err != nil {
		t.Fatalf("PublishEvent failed: %v", err)
	}

	select {
	case got := <-received:
		if got.Type != want.Type || got.JobID != want.JobID || got.PromptCount != 2 {
			t.Fatalf("unexpected event: %#v", got)
		}
		if got.OccurredAt.IsZero() {
			t.Fatal("expected OccurredAt to be stamped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestParseEventType(t *testing.T) {
	for _, valid := range []string{"accepted", "prompt-completed", "prompt-failed", "completed", "failed"} {
		if _, ok := ParseEventType(valid); !ok {
			t.Fatalf("expected %q to parse", valid)
		}
	}
	if _, ok := ParseEventType("exploded"); ok {
		t.Fatal("expected unknown type to be rejected")
	}
	if !EventCompleted.IsTerminal() || !EventFailed.IsTerminal() {
		t.Fatal("terminal events misclassified")
	}
	if EventPromptCompleted.IsTerminal() {
		t.Fatal("prompt-completed should not be terminal")
	}
}
