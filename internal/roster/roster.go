// Package roster keeps the presence-driven contact list.
package roster

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/chatline/internal/domain"
	"github.com/samber/lo"
)

// Roster holds online contacts in first-seen order. It is safe for concurrent use.
type Roster struct {
	mu       sync.RWMutex
	order    []string
	contacts map[string]domain.Contact
	logger   *slog.Logger
}

// New creates an empty roster.
func New(logger *slog.Logger) *Roster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Roster{
		contacts: make(map[string]domain.Contact),
		logger:   logger,
	}
}

// Apply upserts a contact going online and removes one going offline.
// It returns the contact and whether a known contact was removed; an
// offline event for an unknown name changes nothing.
func (r *Roster) Apply(name string, state domain.PresenceState) (domain.Contact, bool, error) {
	if name == "" {
		return domain.Contact{}, false, fmt.Errorf("presence without name")
	}
	if !state.Valid() {
		return domain.Contact{}, false, fmt.Errorf("unknown presence state %q", state)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	contact := domain.Contact{Name: name, State: state}
	if state == domain.PresenceOffline {
		_, existed := r.contacts[name]
		delete(r.contacts, name)
		r.order = lo.Without(r.order, name)
		r.logger.Debug("Contact offline", "name", name, "known", existed)
		return contact, existed, nil
	}

	if _, ok := r.contacts[name]; !ok {
		r.order = append(r.order, name)
	}
	r.contacts[name] = contact
	r.logger.Debug("Contact online", "name", name)
	return contact, false, nil
}

// Get returns a contact by name.
func (r *Roster) Get(name string) (domain.Contact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contacts[name]
	return c, ok
}

// Contacts returns known contacts in first-seen order.
func (r *Roster) Contacts() []domain.Contact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.order, func(name string, _ int) domain.Contact {
		return r.contacts[name]
	})
}

// Len returns the number of known contacts.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.contacts)
}
