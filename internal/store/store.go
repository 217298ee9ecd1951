// Package store provides session persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ashureev/chatline/internal/domain"
)

// SessionStore keeps the logged-in display name across restarts.
type SessionStore interface {
	// LoadSession returns the persisted session, or nil if there is none.
	LoadSession(ctx context.Context) (*domain.Session, error)

	// SaveSession replaces the persisted session.
	SaveSession(ctx context.Context, session *domain.Session) error

	// ClearSession removes the persisted session.
	ClearSession(ctx context.Context) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
