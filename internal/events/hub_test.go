package events

import (
	"context"
	"testing"
	"time"
)

func TestHubAssignsMonotonicSequences(t *testing.T) {
	hub := NewHub(16, 0, 0)
	for i := 0; i < 5; i++ {
		if !hub.Publish(ProgressEvent{Type: "prompt-completed"}) {
			t.Fatalf("publish %d dropped", i)
		}
	}
	got, next, err := hub.Fetch(context.Background(), 0, 0, false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 events, got %d", len(got))
	}
	for i, evt := range got {
		if evt.Sequence != uint64(i+1) {
			t.Fatalf("event %d has sequence %d", i, evt.Sequence)
		}
	}
	if next != 5 {
		t.Fatalf("expected next sequence 5, got %d", next)
	}
}

func TestHubEvictsOldestWhenFull(t *testing.T) {
	hub := NewHub(3, 0, 0)
	for i := 0; i < 5; i++ {
		hub.Publish(ProgressEvent{Type: "prompt-completed", PromptIndex: i})
	}
	got, _, err := hub.Fetch(context.Background(), 0, 0, false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 buffered events, got %d", len(got))
	}
	if got[0].Sequence != 3 || got[2].Sequence != 5 {
		t.Fatalf("unexpected window: first=%d last=%d", got[0].Sequence, got[2].Sequence)
	}
	if first := hub.FirstSequence(); first != 3 {
		t.Fatalf("expected first sequence 3, got %d", first)
	}
}

func TestHubFetchSinceSkipsDelivered(t *testing.T) {
	hub := NewHub(16, 0, 0)
	for i := 0; i < 4; i++ {
		hub.Publish(ProgressEvent{Type: "prompt-completed"})
	}
	got, _, err := hub.Fetch(context.Background(), 2, 0, false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events after sequence 2, got %d", len(got))
	}
	if got[0].Sequence != 3 {
		t.Fatalf("expected sequence 3 first, got %d", got[0].Sequence)
	}
}

func TestHubFetchWaitWakesOnPublish(t *testing.T) {
	hub := NewHub(16, 0, 0)
	done := make(chan []ProgressEvent, 1)
	go func() {
		got, _, err := hub.Fetch(context.Background(), 0, 0, true)
		if err != nil {
			done <- nil
			return
		}
		done <- got
	}()
	time.Sleep(20 * time.Millisecond)
	hub.Publish(ProgressEvent{Type: "completed"})
	select {
	case got := <-done:
		if len(got) != 1 || got[0].Type != "completed" {
			t.Fatalf("unexpected events: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not wake after publish")
	}
}

func TestHubFetchWaitHonorsContext(t *testing.T) {
	hub := NewHub(16, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := hub.Fetch(ctx, 0, 0, true)
	if err == nil {
		t.Fatal("expected context error from waiting fetch")
	}
}

func TestHubThrottleKeepsTerminalEvents(t *testing.T) {
	hub := NewHub(64, 1, 1)
	if !hub.Publish(ProgressEvent{Type: "prompt-completed"}) {
		t.Fatal("first publish should pass the throttle")
	}
	dropped := false
	for i := 0; i < 10; i++ {
		if !hub.Publish(ProgressEvent{Type: "prompt-completed"}) {
			dropped = true
		}
	}
	if !dropped {
		t.Fatal("expected throttle to drop rapid non-terminal events")
	}
	if !hub.Publish(ProgressEvent{Type: "failed"}) {
		t.Fatal("terminal event must never be dropped")
	}
}

func TestHubTailReturnsMostRecent(t *testing.T) {
	hub := NewHub(16, 0, 0)
	for i := 0; i < 6; i++ {
		hub.Publish(ProgressEvent{Type: "prompt-completed", PromptIndex: i})
	}
	got, next := hub.Tail(2)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[1].PromptIndex != 5 || next != 6 {
		t.Fatalf("unexpected tail: last index %d next %d", got[1].PromptIndex, next)
	}
}
