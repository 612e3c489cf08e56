// Package realtime fans out collection change notifications to subscribers.
// Events carry no row data; subscribers re-fetch the collection they care about.
package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Collections that publish change events.
const (
	CollectionOccupancy = "classroom_occupancy"
	CollectionTimetable = "timetable"
	CollectionChat      = "cr_chat_messages"
)

// Operations carried by events. OpResync is emitted after the upstream feed reconnects.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
	OpResync = "RESYNC"
)

// Collections lists every known collection.
func Collections() []string {
	return []string{CollectionOccupancy, CollectionTimetable, CollectionChat}
}

// Event announces that a collection changed.
type Event struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	At         time.Time `json:"at"`
}

// Notifier is implemented by anything that accepts change events.
type Notifier interface {
	Publish(evt Event)
}

// NopNotifier discards events.
type NopNotifier struct{}

// Publish implements Notifier.
func (NopNotifier) Publish(Event) {}

type subscriber struct {
	ch          chan Event
	collections map[string]struct{}
}

func (s *subscriber) wants(collection string) bool {
	if len(s.collections) == 0 {
		return true
	}
	_, ok := s.collections[collection]
	return ok
}

// Broker is an in-process publish/subscribe hub.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	buffer int
	closed bool
	logger *zap.Logger
}

// NewBroker builds a broker whose subscriber channels hold buffer events.
func NewBroker(buffer int, logger *zap.Logger) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{subs: make(map[uint64]*subscriber), buffer: buffer, logger: logger}
}

// Subscribe registers interest in the given collections, or all of them when none are given.
// The returned cancel func must be called to release the subscription.
func (b *Broker) Subscribe(collections ...string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, b.buffer), collections: make(map[string]struct{}, len(collections))}
	for _, c := range collections {
		sub.collections[c] = struct{}{}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if s, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.ch)
			}
			b.mu.Unlock()
		})
	}
}

// Publish delivers evt to every interested subscriber without blocking. A subscriber whose
// buffer is full already has a pending refresh, so the event is dropped for it.
func (b *Broker) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		if !sub.wants(evt.Collection) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.logger.Debug("realtime subscriber lagging, event coalesced", zap.String("collection", evt.Collection))
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
