package events

import (
	"log/slog"
	"sync"
)

const defaultBufferSize = 64

// Bus fans values out to subscribers over buffered channels.
// Publish never blocks: a subscriber whose buffer is full loses its oldest
// pending value so the newest one can be queued.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   map[*Subscription[T]]struct{}
	closed bool
	logger *slog.Logger
}

// Subscription is a single consumer of a Bus.
type Subscription[T any] struct {
	bus     *Bus[T]
	ch      chan T
	mu      sync.Mutex
	dropped int
	once    sync.Once
}

// NewBus creates an empty bus.
func NewBus[T any](logger *slog.Logger) *Bus[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus[T]{
		subs:   make(map[*Subscription[T]]struct{}),
		logger: logger,
	}
}

// Subscribe registers a consumer with the given buffer size.
// On a closed bus the returned subscription's channel is already closed.
func (b *Bus[T]) Subscribe(buffer int) *Subscription[T] {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	sub := &Subscription[T]{bus: b, ch: make(chan T, buffer)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		sub.once.Do(func() {})
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers v to every subscriber.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for sub := range b.subs {
		sub.offer(v, b.logger)
	}
}

// Len returns the number of active subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription channel. Later publishes are ignored.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.once.Do(func() { close(sub.ch) })
		delete(b.subs, sub)
	}
}

func (b *Bus[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
	sub.once.Do(func() { close(sub.ch) })
}

// C returns the receive side of the subscription.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Dropped returns how many values were evicted because the buffer was full.
func (s *Subscription[T]) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close unsubscribes and closes the channel. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.bus.remove(s)
}

// offer is called with the bus read lock held, so the channel cannot be
// closed underneath it. s.mu serializes concurrent publishers per subscriber.
func (s *Subscription[T]) offer(v T, logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case s.ch <- v:
		return
	default:
	}

	// Full: evict the oldest value and retry once.
	select {
	case <-s.ch:
		s.dropped++
	default:
	}
	select {
	case s.ch <- v:
	default:
		s.dropped++
	}
	logger.Warn("Event subscriber queue full, dropped oldest", "dropped_total", s.dropped, "capacity", cap(s.ch))
}
