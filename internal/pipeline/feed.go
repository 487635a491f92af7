package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/clipflow/internal/metrics"
)

// Kind names a change-feed event.
type Kind string

const (
	KindAdded      Kind = "added"
	KindBumped     Kind = "bumped"
	KindPinned     Kind = "pinned"
	KindUnpinned   Kind = "unpinned"
	KindDeleted    Kind = "deleted"
	KindCleared    Kind = "cleared"
	KindEvicted    Kind = "evicted"
	KindPaused     Kind = "paused"
	KindResumed    Kind = "resumed"
	KindVisibility Kind = "visibility"
	KindSettings   Kind = "settings"
)

// feedBuffer is the per-subscriber backlog before events are dropped.
const feedBuffer = 32

// ChangeEvent tells the presentation layer the history changed. It carries
// no content; subscribers refetch what they display.
type ChangeEvent struct {
	ID      uuid.UUID `json:"id"`
	Kind    Kind      `json:"kind"`
	EntryID int64     `json:"entry_id,omitempty"`
	Count   int       `json:"count,omitempty"`
	At      time.Time `json:"at"`
}

// Feed fans events out to subscribers. Slow subscribers lose events rather
// than stalling the pipeline.
type Feed struct {
	mu      sync.Mutex
	subs    map[uint64]chan ChangeEvent
	next    uint64
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewFeed creates an empty feed. m may be nil.
func NewFeed(m *metrics.Metrics) *Feed {
	return &Feed{
		subs:    make(map[uint64]chan ChangeEvent),
		metrics: m,
		now:     time.Now,
	}
}

// Subscribe returns a channel of events and a cancel func that closes it.
func (f *Feed) Subscribe() (<-chan ChangeEvent, func()) {
	ch := make(chan ChangeEvent, feedBuffer)

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()
	f.metrics.SubscriberAdded()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			close(ch)
			f.mu.Unlock()
			f.metrics.SubscriberRemoved()
		})
	}
}

// Subscribers returns the number of open subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Publish stamps and delivers an event to every subscriber.
func (f *Feed) Publish(kind Kind, entryID int64, count int) ChangeEvent {
	ev := ChangeEvent{
		ID:      uuid.New(),
		Kind:    kind,
		EntryID: entryID,
		Count:   count,
		At:      f.now().UTC(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}
