// Package eventbus is an in-memory, asynchronous event bus. Events go
// through a buffered channel and are handed to every listener by a small
// worker pool. Publish never blocks the caller.
package eventbus

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
)

const (
	defaultWorkers    = 3
	defaultBufferSize = 100
)

// EventBus is the interface for publishing events and managing subscribers.
type EventBus interface {
	// Publish enqueues an event. If the buffer is full or the bus is closed
	// the event is dropped and a warning is logged.
	Publish(eventType string, payload map[string]string)

	// Subscribe registers a listener for every published event. Call it
	// before the first Publish.
	Subscribe(listener Listener)

	// Close stops accepting events and waits for queued ones to be handled.
	Close()

	// Dropped returns how many events were discarded.
	Dropped() uint64
}

// Config tunes a bus. Zero values pick the defaults.
type Config struct {
	Workers    int
	BufferSize int
	Logger     *slog.Logger
	Clock      clockwork.Clock
}

type inMemoryBus struct {
	ch        chan Event
	listeners []Listener
	mu        sync.RWMutex
	wg        sync.WaitGroup
	workers   int
	closed    bool
	dropped   atomic.Uint64
	logger    *slog.Logger
	clock     clockwork.Clock
}

// New creates an in-memory EventBus and starts its workers.
func New(cfg Config) EventBus {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	b := &inMemoryBus{
		ch:      make(chan Event, cfg.BufferSize),
		workers: cfg.Workers,
		logger:  cfg.Logger,
		clock:   cfg.Clock,
	}
	b.startWorkers()
	return b
}

func (b *inMemoryBus) startWorkers() {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for e := range b.ch {
				b.dispatch(e)
			}
		}()
	}
}

// dispatch calls every listener. A panicking listener does not stop the others.
func (b *inMemoryBus) dispatch(e Event) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("eventbus listener panicked", "event_type", e.Type, "panic", r)
				}
			}()
			l(e)
		}()
	}
}

func (b *inMemoryBus) Publish(eventType string, payload map[string]string) {
	e := Event{
		Type:      eventType,
		Timestamp: b.clock.Now(),
		Payload:   payload,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.drop(eventType, "bus closed")
		return
	}

	select {
	case b.ch <- e:
	default:
		b.drop(eventType, "buffer full")
	}
}

func (b *inMemoryBus) drop(eventType, why string) {
	b.dropped.Add(1)
	b.logger.Warn("eventbus dropping event", "event_type", eventType, "reason", why)
}

func (b *inMemoryBus) Subscribe(listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, listener)
}

func (b *inMemoryBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.ch)
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *inMemoryBus) Dropped() uint64 { return b.dropped.Load() }
