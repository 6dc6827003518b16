package events

import (
	"context"
	"sync"
	"time"
)

const (
	// hubRetention is how long a finished project's hub stays readable for
	// late pollers after its last event.
	hubRetention  = 10 * time.Minute
	sweepInterval = time.Minute
)

// Broker manages one Hub per project. Hubs are created on first use and
// torn down when the last subscriber releases, when the project is dropped,
// or when a finished stream has had no readers for the retention window.
type Broker struct {
	mu           sync.Mutex
	capacity     int
	publishRate  float64
	publishBurst int
	hubs         map[string]*hubEntry
	now          func() time.Time
}

type hubEntry struct {
	hub       *Hub
	refs      int
	lastEvent time.Time
	terminal  bool
}

// NewBroker constructs a broker whose per-project hubs share the given
// buffer and throttle settings.
func NewBroker(capacity int, publishRate float64, publishBurst int) *Broker {
	return &Broker{
		capacity:     capacity,
		publishRate:  publishRate,
		publishBurst: publishBurst,
		hubs:         make(map[string]*hubEntry),
		now:          time.Now,
	}
}

// Publish delivers an event to the project's hub, creating the hub when
// needed. It reports whether the event was buffered.
func (b *Broker) Publish(projectID string, evt ProgressEvent) bool {
	if b == nil || projectID == "" {
		return false
	}
	b.mu.Lock()
	entry, ok := b.hubs[projectID]
	if !ok {
		entry = &hubEntry{hub: NewHub(b.capacity, b.publishRate, b.publishBurst)}
		b.hubs[projectID] = entry
	}
	entry.lastEvent = b.now()
	entry.terminal = evt.Terminal()
	hub := entry.hub
	b.mu.Unlock()
	evt.ProjectID = projectID
	return hub.Publish(evt)
}

// Subscribe returns the project's hub and a release func. The hub stays
// alive while at least one subscriber holds it; when the final release
// runs and the hub holds no undelivered interest, the broker forgets it.
func (b *Broker) Subscribe(projectID string) (*Hub, func()) {
	b.mu.Lock()
	entry, ok := b.hubs[projectID]
	if !ok {
		entry = &hubEntry{hub: NewHub(b.capacity, b.publishRate, b.publishBurst)}
		b.hubs[projectID] = entry
	}
	entry.refs++
	b.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			current, ok := b.hubs[projectID]
			if !ok || current != entry {
				return
			}
			current.refs--
			if current.refs <= 0 {
				delete(b.hubs, projectID)
			}
		})
	}
	return entry.hub, release
}

// Peek returns the project's hub without taking a subscription, or nil when
// no hub exists.
func (b *Broker) Peek(projectID string) *Hub {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.hubs[projectID]
	if !ok {
		return nil
	}
	return entry.hub
}

// Drop removes the project's hub unless subscribers still hold it.
func (b *Broker) Drop(projectID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.hubs[projectID]
	if ok && entry.refs <= 0 {
		delete(b.hubs, projectID)
	}
}

// ActiveHubs reports how many project hubs currently exist.
func (b *Broker) ActiveHubs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.hubs)
}

// Run sweeps finished, subscriber-less hubs until the context ends, so the
// broker does not hold one ring buffer per ever-active project over a long
// daemon lifetime.
func (b *Broker) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.evictIdle(b.now().Add(-hubRetention))
		}
	}
}

// evictIdle removes hubs whose stream has gone terminal, has no subscribers,
// and saw its last event before the cutoff. A fresh non-terminal publish
// re-arms a hub.
func (b *Broker) evictIdle(cutoff time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for projectID, entry := range b.hubs {
		if entry.refs <= 0 && entry.terminal && entry.lastEvent.Before(cutoff) {
			delete(b.hubs, projectID)
		}
	}
}
