package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Bus distributes execution events to subscribers.
type Bus interface {
	// Publish sends an event to all matching subscribers. Slow subscribers
	// whose buffers are full have the event dropped rather than blocking
	// the publisher.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a new subscriber with optional filtering. The
	// returned cleanup function must be called to release the subscription.
	Subscribe(ctx context.Context, filter Filter, bufferSize int) (<-chan Event, func())

	// Close shuts down the bus and closes all subscriber channels.
	Close() error
}

type subscription struct {
	id       string
	ch       chan Event
	filter   Filter
	ctx      context.Context
	cancel   context.CancelFunc
	created  time.Time
	received atomic.Int64
	dropped  atomic.Int64
}

// DefaultBus is the in-process Bus implementation. Delivery is non-blocking:
// each subscriber has a buffered channel and events are dropped per
// subscriber when the buffer is full.
type DefaultBus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscription
	closed      bool

	defaultBufferSize int
	dropHandler       func(sub string, event Event)
	publishedTotal    atomic.Int64
	droppedTotal      atomic.Int64
}

// Option configures a DefaultBus.
type Option func(*DefaultBus)

// WithDefaultBufferSize sets the buffer size used when Subscribe is called
// with bufferSize <= 0.
func WithDefaultBufferSize(size int) Option {
	return func(b *DefaultBus) {
		if size > 0 {
			b.defaultBufferSize = size
		}
	}
}

// WithDropHandler registers a callback invoked whenever an event is dropped
// for a slow subscriber.
func WithDropHandler(fn func(sub string, event Event)) Option {
	return func(b *DefaultBus) {
		if fn != nil {
			b.dropHandler = fn
		}
	}
}

// NewBus creates a bus with the given options.
func NewBus(opts ...Option) *DefaultBus {
	b := &DefaultBus{
		subscribers:       make(map[string]*subscription),
		defaultBufferSize: 100,
		dropHandler:       func(string, Event) {},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish sends an event to all matching subscribers.
//
// Safe for concurrent calls from multiple goroutines.
func (b *DefaultBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("event bus is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, sub := range b.subscribers {
		select {
		case <-sub.ctx.Done():
			// Subscriber gone, cleanup happens on unsubscribe.
			continue
		default:
		}

		if !sub.filter.Matches(event) {
			continue
		}

		// Delivery is per subscriber send-or-drop: once fan-out starts,
		// every matching subscriber either receives the event or has it
		// counted as dropped.
		select {
		case sub.ch <- event:
			sub.received.Add(1)
		default:
			sub.dropped.Add(1)
			b.droppedTotal.Add(1)
			b.dropHandler(sub.id, event)
		}
	}

	b.publishedTotal.Add(1)
	return nil
}

// Subscribe creates a subscription delivering events that match filter.
// bufferSize <= 0 selects the bus default. The cleanup function must be
// called to unsubscribe.
//
// Safe for concurrent calls from multiple goroutines.
func (b *DefaultBus) Subscribe(ctx context.Context, filter Filter, bufferSize int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bufferSize <= 0 {
		bufferSize = b.defaultBufferSize
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		id:      nextSubscriberID(),
		ch:      make(chan Event, bufferSize),
		filter:  filter,
		ctx:     subCtx,
		cancel:  cancel,
		created: time.Now(),
	}
	b.subscribers[sub.id] = sub

	cleanup := func() {
		b.unsubscribe(sub.id)
	}
	return sub.ch, cleanup
}

func (b *DefaultBus) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscribers[id]
	if !ok {
		return
	}
	sub.cancel()
	close(sub.ch)
	delete(b.subscribers, id)
}

// Close shuts down the bus. After Close, Publish returns an error and all
// subscriber channels are closed. Close is idempotent.
func (b *DefaultBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for id, sub := range b.subscribers {
		sub.cancel()
		close(sub.ch)
		delete(b.subscribers, id)
	}
	return nil
}

// SubscriberCount returns the number of active subscribers.
func (b *DefaultBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Stats returns total published and dropped event counts.
func (b *DefaultBus) Stats() (published, dropped int64) {
	return b.publishedTotal.Load(), b.droppedTotal.Load()
}

var subscriberCounter atomic.Uint64

func nextSubscriberID() string {
	return fmt.Sprintf("sub-%d", subscriberCounter.Add(1))
}

var _ Bus = (*DefaultBus)(nil)
