package dispatch

import (
	"context"
	"strings"
	"time"
)

// JobKind names the unit of external compute being requested.
type JobKind string

const (
	KindRender JobKind = "render"
	KindStitch JobKind = "stitch"
)

// Message is the outbound envelope handed to external workers. Delivery is
// at-least-once; workers must treat the job id as their idempotency key.
type Message struct {
	JobID      string
	Kind       JobKind
	ProjectID  string
	Payload    []byte
	EnqueuedAt time.Time
}

// EventType names a job lifecycle signal reported back by a worker.
type EventType string

const (
	EventAccepted        EventType = "accepted"
	EventPromptCompleted EventType = "prompt-completed"
	EventPromptFailed    EventType = "prompt-failed"
	EventCompleted       EventType = "completed"
	EventFailed          EventType = "failed"
)

// ParseEventType converts a string into a known EventType.
func ParseEventType(value string) (EventType, bool) {
	switch EventType(strings.TrimSpace(value)) {
	case EventAccepted:
		return EventAccepted, true
	case EventPromptCompleted:
		return EventPromptCompleted, true
	case EventPromptFailed:
		return EventPromptFailed, true
	case EventCompleted:
		return EventCompleted, true
	case EventFailed:
		return EventFailed, true
	default:
		return "", false
	}
}

// IsTerminal reports whether the event ends its job.
func (t EventType) IsTerminal() bool {
	return t == EventCompleted || t == EventFailed
}

// Event is the inbound lifecycle envelope. Fields beyond Type, JobID, Kind,
// and ProjectID are populated per event type; duplicates and reordering are
// the consumer's problem to absorb.
type Event struct {
	Type             EventType
	JobID            string
	Kind             JobKind
	ProjectID        string
	PromptIndex      int
	PromptCount      int
	CompletedPrompts int
	FailedPrompts    int
	Paths            []string
	OutputPath       string
	Error            string
	OccurredAt       time.Time
}

// Gateway dispatches a job of the given kind and returns its identifier.
// Implementations guarantee at-least-once delivery, never at-most-once.
type Gateway interface {
	Dispatch(ctx context.Context, kind JobKind, projectID string, payload []byte) (string, error)
}

// Inbox delivers job lifecycle events reported by external workers. Consume
// blocks until the context ends and may redeliver events.
type Inbox interface {
	Consume(ctx context.Context, handler func(context.Context, Event) error) error
}
