// Package events implements the typed publish/subscribe bus that sync
// consumers (CLI status views, the agent loop) attach to. Emission is
// isolated per listener: a panicking handler is logged and dropped from the
// current publish, never preventing other listeners from receiving the event.
package events

import (
	"log/slog"
	"sync"
)

// Kind discriminates event types without a type switch.
type Kind string

const (
	KindOnline         Kind = "online"
	KindOffline        Kind = "offline"
	KindSyncStarted    Kind = "syncStart"
	KindSyncCompleted  Kind = "syncComplete"
	KindItemAdded      Kind = "itemAdded"
	KindCacheStarted   Kind = "caching"
	KindCacheCompleted Kind = "cached"
	KindCacheFailed    Kind = "error"
	KindItemsCleared   Kind = "itemsCleared"
)

// Event is implemented by every published event type.
type Event interface {
	Kind() Kind
}

// Online signals a connectivity transition to online.
type Online struct{}

// Offline signals a connectivity transition to offline.
type Offline struct{}

// SyncStarted is published before a drain pass processes its loaded items.
type SyncStarted struct {
	Pending int
}

// SyncCompleted is published after a drain pass. Failed counts failed
// delivery attempts during this pass, not terminal-failed items; Remaining
// is the fresh pending count after the pass.
type SyncCompleted struct {
	Synced    int
	Failed    int
	Remaining int
}

// ItemAdded is published when a record is appended to the outbox.
type ItemAdded struct {
	ItemType     string
	PendingCount int
}

// CacheStarted is published when a reference-data refresh begins.
type CacheStarted struct {
	Message string
}

// CacheCompleted is published after a successful refresh, with per-collection
// record counts.
type CacheCompleted struct {
	Message string
	Counts  map[string]int
}

// CacheFailed is published when a refresh fails.
type CacheFailed struct {
	Message string
}

// ItemsCleared is published after failed outbox items are discarded.
type ItemsCleared struct {
	PendingCount int
}

func (Online) Kind() Kind         { return KindOnline }
func (Offline) Kind() Kind        { return KindOffline }
func (SyncStarted) Kind() Kind    { return KindSyncStarted }
func (SyncCompleted) Kind() Kind  { return KindSyncCompleted }
func (ItemAdded) Kind() Kind      { return KindItemAdded }
func (CacheStarted) Kind() Kind   { return KindCacheStarted }
func (CacheCompleted) Kind() Kind { return KindCacheCompleted }
func (CacheFailed) Kind() Kind    { return KindCacheFailed }
func (ItemsCleared) Kind() Kind   { return KindItemsCleared }

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and should return quickly.
type Handler func(Event)

// Bus is a minimal in-process publish/subscribe fan-out.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	logger   *slog.Logger
}

// NewBus creates an event bus. A nil logger falls back to slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[int]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to every subscriber. Delivery order across
// subscribers is unspecified.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, e)
	}
}

// deliver invokes one handler, converting a panic into a log entry.
func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", e.Kind(), "panic", r)
		}
	}()
	h(e)
}
