// Package router dispatches chat messages to per-thread listeners and keeps
// the ordered thread and message lists.
package router

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/chatline/internal/domain"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ErrThreadNotFound is returned for operations on a thread that is not open.
var ErrThreadNotFound = errors.New("thread not found")

// Listener receives messages for one thread.
type Listener func(domain.Message)

// Result describes what Route or Record did with a message.
type Result struct {
	Thread    domain.Thread
	Message   domain.Message
	Opened    bool // the thread did not exist before this message
	Duplicate bool // the id was already stored; nothing was delivered
}

type thread struct {
	domain.Thread
	messages []domain.Message
	seen     map[string]struct{}
}

type listenerEntry struct {
	id int64
	fn Listener
}

// Router holds open threads in insertion order. It is safe for concurrent use;
// listeners run outside the lock on the caller's goroutine.
type Router struct {
	mu        sync.RWMutex
	order     []string
	threads   map[string]*thread
	listeners map[string][]listenerEntry
	nextID    int64
	now       func() time.Time
	logger    *slog.Logger
}

// New creates an empty router.
func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		threads:   make(map[string]*thread),
		listeners: make(map[string][]listenerEntry),
		now:       time.Now,
		logger:    logger,
	}
}

// Open starts a new thread with a fresh id.
func (r *Router) Open(peer string) domain.Thread {
	t, _ := r.Ensure(uuid.NewString(), peer)
	return t
}

// Ensure opens thread id if it is not open yet. Opening an already-open
// thread is a no-op that returns the existing thread and false.
func (r *Router) Ensure(id, peer string) (domain.Thread, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, opened := r.ensureLocked(id, peer)
	return t.Thread, opened
}

func (r *Router) ensureLocked(id, peer string) (*thread, bool) {
	if t, ok := r.threads[id]; ok {
		return t, false
	}
	t := &thread{
		Thread: domain.Thread{ID: id, Peer: peer, OpenedAt: r.now()},
		seen:   make(map[string]struct{}),
	}
	r.threads[id] = t
	r.order = append(r.order, id)
	r.logger.Debug("Thread opened", "thread_id", id, "peer", peer)
	return t, true
}

// Close removes a thread with its messages and listeners.
func (r *Router) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.threads[id]; !ok {
		return ErrThreadNotFound
	}
	delete(r.threads, id)
	delete(r.listeners, id)
	r.order = lo.Without(r.order, id)
	r.logger.Debug("Thread closed", "thread_id", id)
	return nil
}

// Get returns an open thread.
func (r *Router) Get(id string) (domain.Thread, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.threads[id]
	if !ok {
		return domain.Thread{}, false
	}
	return t.Thread, true
}

// Threads returns open threads in the order they were opened.
func (r *Router) Threads() []domain.Thread {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.order, func(id string, _ int) domain.Thread {
		return r.threads[id].Thread
	})
}

// Messages returns a thread's messages in arrival order.
func (r *Router) Messages(id string) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.threads[id]
	if !ok {
		return nil, ErrThreadNotFound
	}
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out, nil
}

// Subscribe registers fn for messages routed to thread id. The listener only
// ever sees messages of that thread. The returned func unsubscribes.
func (r *Router) Subscribe(id string, fn Listener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry := listenerEntry{id: r.nextID, fn: fn}
	r.listeners[id] = append(r.listeners[id], entry)

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		remaining := lo.Reject(r.listeners[id], func(l listenerEntry, _ int) bool {
			return l.id == entry.id
		})
		if len(remaining) == 0 {
			delete(r.listeners, id)
			return
		}
		r.listeners[id] = remaining
	}
}

// ThreadKey derives the thread a message belongs to: its explicit thread id,
// or for legacy peers the counterpart's name as seen by self.
func ThreadKey(msg domain.Message, self string) string {
	if msg.ThreadID != "" {
		return msg.ThreadID
	}
	if msg.From == self {
		return msg.To
	}
	return msg.From
}

// Route stores an inbound message and delivers it to the thread's listeners.
// Unknown threads are opened with the other party as peer. A message id
// already stored in the thread is dropped.
func (r *Router) Route(msg domain.Message, self string) Result {
	msg.ThreadID = ThreadKey(msg, self)
	peer := msg.From
	if msg.From == self {
		peer = msg.To
	}
	res, _ := r.store(msg, peer, true)
	return res
}

// Record stores an outbound message without notifying listeners. The id is
// remembered so a server echo of the same message is deduplicated. The thread
// must be open.
func (r *Router) Record(msg domain.Message) (Result, error) {
	return r.store(msg, "", false)
}

// store appends msg to its thread. Inbound messages open unknown threads;
// outbound ones fail with ErrThreadNotFound, checked under the same lock
// that appends so a concurrent Close cannot be undone.
func (r *Router) store(msg domain.Message, peer string, inbound bool) (Result, error) {
	if msg.At.IsZero() {
		msg.At = r.now()
	}

	r.mu.Lock()
	var (
		t      *thread
		opened bool
	)
	if inbound {
		t, opened = r.ensureLocked(msg.ThreadID, peer)
	} else {
		var ok bool
		if t, ok = r.threads[msg.ThreadID]; !ok {
			r.mu.Unlock()
			return Result{}, ErrThreadNotFound
		}
	}
	res := Result{Thread: t.Thread, Message: msg, Opened: opened}

	if _, dup := t.seen[msg.ID]; dup {
		r.mu.Unlock()
		r.logger.Info("Ignoring duplicate message", "thread_id", msg.ThreadID, "message_id", msg.ID)
		res.Duplicate = true
		return res, nil
	}
	t.seen[msg.ID] = struct{}{}
	t.messages = append(t.messages, msg)

	var targets []Listener
	if inbound {
		targets = lo.Map(r.listeners[msg.ThreadID], func(l listenerEntry, _ int) Listener { return l.fn })
	}
	r.mu.Unlock()

	for _, fn := range targets {
		fn(msg)
	}
	return res, nil
}
