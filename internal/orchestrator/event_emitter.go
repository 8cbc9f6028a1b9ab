package orchestrator

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultEventBuffer is the per-subscriber channel capacity.
const DefaultEventBuffer = 256

// emitTimeout bounds how long Emit waits on a full subscriber channel.
const emitTimeout = 100 * time.Millisecond

// EventEmitter fans events out to subscribers over buffered channels.
// A slow subscriber only delays the emitting goroutine, never other
// subscribers for longer than emitTimeout, and events are dropped for a
// subscriber whose channel stays full.
type EventEmitter struct {
	mu           sync.RWMutex
	subs         map[int]chan Event
	nextID       int
	closed       bool
	droppedCount atomic.Uint64
	logger       *slog.Logger
}

// NewEventEmitter creates an emitter with no subscribers.
func NewEventEmitter(logger *slog.Logger) *EventEmitter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EventEmitter{
		subs:   make(map[int]chan Event),
		logger: logger,
	}
}

// Subscribe returns a channel receiving every event emitted after the call
// and a function that unsubscribes and closes the channel.
func (e *EventEmitter) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	ch := make(chan Event, buffer)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := e.nextID
	e.nextID++
	e.subs[id] = ch
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if c, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(c)
			}
		})
	}
}

// Emit delivers an event to every subscriber.
// If a subscriber channel is full, it tries with a timeout before dropping the event.
func (e *EventEmitter) Emit(event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	for _, ch := range e.subs {
		select {
		case ch <- event:
			continue
		default:
		}

		select {
		case ch <- event:
		case <-time.After(emitTimeout):
			count := e.droppedCount.Add(1)
			if count%10 == 1 {
				e.logger.Warn("event channel full, dropped event", "kind", event.Kind(), "total_dropped", count)
			}
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Close closes every subscriber channel. Later emits are ignored.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}
