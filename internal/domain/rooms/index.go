// Package rooms maintains the department interest-group index: which
// connections have explicitly joined which named group. Role and user
// targeting are not kept here; both derive from registry identity at
// broadcast time, which is correct at the expected ceiling of a few
// thousand concurrent staff connections per node.
package rooms

import (
	"sync"

	"github.com/google/uuid"
)

// Index is a two-way membership map: group name -> member set, plus a
// reverse set per connection id so disconnect cleanup is O(groups joined)
// with no scan.
type Index struct {
	mu      sync.RWMutex
	groups  map[string]map[uuid.UUID]struct{}
	joined  map[uuid.UUID]map[string]struct{}
}

func NewIndex() *Index {
	return &Index{
		groups: make(map[string]map[uuid.UUID]struct{}),
		joined: make(map[uuid.UUID]map[string]struct{}),
	}
}

// Join adds the connection to the named group, creating the group on first
// member. Idempotent: re-joining is a no-op.
func (x *Index) Join(connID uuid.UUID, group string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	members, ok := x.groups[group]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		x.groups[group] = members
	}
	members[connID] = struct{}{}

	sub, ok := x.joined[connID]
	if !ok {
		sub = make(map[string]struct{})
		x.joined[connID] = sub
	}
	sub[group] = struct{}{}
}

// Leave removes the connection from the named group. Empty groups are
// deleted immediately so the index stays bounded under churn. Leaving a
// group the connection never joined is a no-op.
func (x *Index) Leave(connID uuid.UUID, group string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.leaveLocked(connID, group)
}

func (x *Index) leaveLocked(connID uuid.UUID, group string) {
	if members, ok := x.groups[group]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(x.groups, group)
		}
	}
	if sub, ok := x.joined[connID]; ok {
		delete(sub, group)
		if len(sub) == 0 {
			delete(x.joined, connID)
		}
	}
}

// MembersOf returns a snapshot of the group's member set. The copy keeps
// broadcast iteration free of the index lock.
func (x *Index) MembersOf(group string) []uuid.UUID {
	x.mu.RLock()
	defer x.mu.RUnlock()

	members, ok := x.groups[group]
	if !ok {
		return nil
	}
	out := make([]uuid.UUID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// Joined returns the groups the connection is currently a member of.
func (x *Index) Joined(connID uuid.UUID) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	sub, ok := x.joined[connID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(sub))
	for g := range sub {
		out = append(out, g)
	}
	return out
}

// DropConnection removes the connection from every group it belongs to.
// Called on disconnect, after the registry entry is gone, so no broadcast
// resolves the id in the interim. Idempotent.
func (x *Index) DropConnection(connID uuid.UUID) {
	x.mu.Lock()
	defer x.mu.Unlock()

	sub, ok := x.joined[connID]
	if !ok {
		return
	}
	for group := range sub {
		if members, exists := x.groups[group]; exists {
			delete(members, connID)
			if len(members) == 0 {
				delete(x.groups, group)
			}
		}
	}
	delete(x.joined, connID)
}

// Counts returns per-group member counts for the stats surface.
func (x *Index) Counts() map[string]int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make(map[string]int, len(x.groups))
	for g, members := range x.groups {
		out[g] = len(members)
	}
	return out
}

// Len reports the number of non-empty groups.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.groups)
}
