// Package presence tracks which live connection currently reaches each party.
//
// The registry is the only shared mutable state on the signaling path. All
// operations are total and safe for concurrent use.
package presence

import (
	"sort"
	"sync"
)

type Role string

const (
	RoleCaller Role = "caller"
	RoleExpert Role = "expert"
)

type Entry struct {
	PartyID      string `json:"partyId"`
	Role         Role   `json:"role"`
	ConnectionID string `json:"connectionId"`
}

type Registry struct {
	mu      sync.RWMutex
	byParty map[string]Entry
	byConn  map[string]string // connectionID -> partyID
}

func NewRegistry() *Registry {
	return &Registry{
		byParty: make(map[string]Entry),
		byConn:  make(map[string]string),
	}
}

// Register binds partyID to connectionID. The last registration wins; the
// superseded connection keeps no entry, so its later disconnect is a no-op.
// When connectionID was speaking for another party, that party is displaced
// and its entry is returned.
func (r *Registry) Register(partyID string, role Role, connectionID string) (displaced Entry, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, found := r.byParty[partyID]; found && prev.ConnectionID != connectionID {
		delete(r.byConn, prev.ConnectionID)
	}
	// one connection speaks for one party
	if other, found := r.byConn[connectionID]; found && other != partyID {
		displaced, ok = r.byParty[other], true
		delete(r.byParty, other)
	}

	r.byParty[partyID] = Entry{PartyID: partyID, Role: role, ConnectionID: connectionID}
	r.byConn[connectionID] = partyID
	return displaced, ok
}

func (r *Registry) Resolve(partyID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byParty[partyID]
	if !ok {
		return "", false
	}
	return e.ConnectionID, true
}

// Unregister removes the entry whose current connection is connectionID.
func (r *Registry) Unregister(connectionID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	partyID, ok := r.byConn[connectionID]
	if !ok {
		return Entry{}, false
	}
	delete(r.byConn, connectionID)

	e := r.byParty[partyID]
	if e.ConnectionID != connectionID {
		return Entry{}, false
	}
	delete(r.byParty, partyID)
	return e, true
}

// Snapshot returns a copy of all entries ordered by party id.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.byParty))
	for _, e := range r.byParty {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].PartyID < out[j].PartyID })
	return out
}

// Parties returns the party ids currently registered with role.
func (r *Registry) Parties(role Role) []string {
	var ids []string
	for _, e := range r.Snapshot() {
		if e.Role == role {
			ids = append(ids, e.PartyID)
		}
	}
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byParty)
}

// PartyOf is the reverse lookup of Resolve.
func (r *Registry) PartyOf(connectionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byConn[connectionID]
	return p, ok
}
