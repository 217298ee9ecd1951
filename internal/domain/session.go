package domain

import (
	"strings"
	"time"
)

// Session holds the local identity. A nil *Session means logged out.
type Session struct {
	DisplayName string    `json:"display_name"`
	LoggedInAt  time.Time `json:"logged_in_at"`
}

// NewSession creates a session for a trimmed display name.
// Returns nil if the name is blank.
func NewSession(name string, now time.Time) *Session {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return &Session{DisplayName: name, LoggedInAt: now}
}
