// Package presence tracks the ephemeral display identity of anonymous chat
// participants. Entries live for the duration of a connection and are never
// shared with the persistent stores.
package presence

import "sync"

// Identity is the broadcast-time label of an anonymous participant.
type Identity struct {
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// Registry is a process-lifetime map of connection id to Identity.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Identity
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Identity)}
}

// Announce stores the display identity for a connection, replacing any
// previous announcement from the same connection.
func (r *Registry) Announce(connID string, identity Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[connID] = identity
}

// Lookup returns the stored identity for a connection, if any.
func (r *Registry) Lookup(connID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.entries[connID]
	return identity, ok
}

// Remove deletes the entry for a connection and returns what was stored,
// so the caller can broadcast the leave notice.
func (r *Registry) Remove(connID string) (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.entries[connID]
	if ok {
		delete(r.entries, connID)
	}
	return identity, ok
}

// Len reports the number of announced participants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
