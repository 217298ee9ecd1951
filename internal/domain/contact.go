// Package domain contains core domain types for the chatline client.
package domain

// PresenceState is the online/offline status broadcast for a contact.
type PresenceState string

const (
	// PresenceOnline marks a contact as reachable.
	PresenceOnline PresenceState = "online"
	// PresenceOffline marks a contact as gone. Offline contacts are dropped from the roster.
	PresenceOffline PresenceState = "offline"
)

// Valid reports whether s is a known presence state.
func (s PresenceState) Valid() bool {
	return s == PresenceOnline || s == PresenceOffline
}

// Contact represents another identity seen through presence events.
type Contact struct {
	Name  string        `json:"name"`
	State PresenceState `json:"state"`
}

// IsOnline returns true if the contact last announced itself online.
func (c Contact) IsOnline() bool {
	return c.State == PresenceOnline
}
