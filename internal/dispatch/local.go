package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalDispatcher is an in-process Gateway and Inbox used when Redis is not
// configured, and by tests. Dispatched jobs are recorded; lifecycle events
// flow through a buffered channel.
type LocalDispatcher struct {
	events chan Event

	mu         sync.Mutex
	dispatched []Message
}

// NewLocalDispatcher returns a dispatcher with the given event buffer size.
func NewLocalDispatcher(bufferSize int) *LocalDispatcher {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &LocalDispatcher{
		events: make(chan Event, bufferSize),
	}
}

// Dispatch records the job request and returns a fresh job id.
func (d *LocalDispatcher) Dispatch(ctx context.Context, kind JobKind, projectID string, payload []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	message := Message{
		JobID:      uuid.NewString(),
		Kind:       kind,
		ProjectID:  projectID,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}
	d.mu.Lock()
	d.dispatched = append(d.dispatched, message)
	d.mu.Unlock()
	return message.JobID, nil
}

// PublishEvent feeds a lifecycle event into the inbox.
func (d *LocalDispatcher) PublishEvent(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case d.events <- event:
		return nil
	}
}

// Consume delivers events to the handler until the context ends. Handler
// errors drop the event; the reconciler is the fallback for lost signals.
func (d *LocalDispatcher) Consume(ctx context.Context, handler func(context.Context, Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-d.events:
			_ = handler(ctx, event)
		}
	}
}

// Dispatched returns a copy of all dispatched messages, oldest first.
func (d *LocalDispatcher) Dispatched() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, len(d.dispatched))
	copy(out, d.dispatched)
	return out
}
