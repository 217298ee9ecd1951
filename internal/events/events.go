// Package events defines the typed client events and the bus that carries them.
package events

import (
	"time"

	"github.com/ashureev/chatline/internal/domain"
)

// Event is implemented by every value published on the client bus.
type Event interface {
	Kind() string
}

// Connecting is published before each dial attempt.
type Connecting struct {
	Attempt int
}

// Connected is published once a connection is open and the login announcement (if any) was replayed.
type Connected struct {
	Attempt   int
	Announced bool
}

// Disconnected is published when an open connection closes.
type Disconnected struct {
	Err error
}

// ReconnectScheduled is published when a retry timer is armed.
type ReconnectScheduled struct {
	Attempt int
	Delay   time.Duration
	Err     error
}

// GaveUp is published when the reconnect policy runs out of attempts.
type GaveUp struct {
	Attempts int
	Err      error
}

// Error reports a failure that was previously only logged: unknown inbound
// types, invalid frames, sends while disconnected.
type Error struct {
	Op  string
	Err error
}

// PresenceChanged is published after the roster applied a presence frame.
type PresenceChanged struct {
	Contact domain.Contact
	Removed bool
}

// ThreadOpened is published when a thread is created locally or by an inbound message.
type ThreadOpened struct {
	Thread domain.Thread
}

// ThreadClosed is published when a thread is explicitly closed.
type ThreadClosed struct {
	ThreadID string
}

// MessageReceived is published for every stored inbound message.
type MessageReceived struct {
	Message domain.Message
}

// DuplicateDropped is published when a redelivered message id is ignored.
type DuplicateDropped struct {
	ThreadID  string
	MessageID string
}

func (Connecting) Kind() string         { return "connecting" }
func (Connected) Kind() string          { return "connected" }
func (Disconnected) Kind() string       { return "disconnected" }
func (ReconnectScheduled) Kind() string { return "reconnect_scheduled" }
func (GaveUp) Kind() string             { return "gave_up" }
func (Error) Kind() string              { return "error" }
func (PresenceChanged) Kind() string    { return "presence" }
func (ThreadOpened) Kind() string       { return "thread_opened" }
func (ThreadClosed) Kind() string       { return "thread_closed" }
func (MessageReceived) Kind() string    { return "message" }
func (DuplicateDropped) Kind() string   { return "duplicate" }

// Error implements error so an Error event can be returned or wrapped directly.
func (e Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes the underlying error to errors.Is/As.
func (e Error) Unwrap() error {
	return e.Err
}
