// Package transport owns the single logical connection to the chat server and
// keeps it alive across disconnects.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned by Send while no connection is open. Frames are never queued.
	ErrNotConnected = errors.New("transport not connected")
	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("transport already running")
	// ErrRetriesExhausted is returned by Run when the reconnect policy gives up.
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
	// ErrConnClosed is returned by Conn operations after Close.
	ErrConnClosed = errors.New("connection closed")
)

// Conn is one open duplex channel carrying whole frames.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, frame []byte) error
	Close() error
}

// Dialer opens connections to the server.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Handler receives every inbound frame, one at a time, in transport order.
type Handler func(ctx context.Context, frame []byte)
