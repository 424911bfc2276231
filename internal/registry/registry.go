// Package registry holds the in-memory set of open leveraged positions.
// The registry is the only shared mutable state in the agent; it serializes
// mutation behind a lock and hands out snapshots (copies) to readers so a
// long liquidation scan never observes, or blocks, concurrent routing.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/signalvault/vaultagent/internal/domain"
)

// Registry is a thread-safe mapping from position identifier to Position.
// It exclusively owns the stored Position records; consumers only ever
// receive copies.
type Registry struct {
	mu        sync.RWMutex
	positions map[string]domain.Position
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{positions: make(map[string]domain.Position)}
}

// Insert adds a position. Re-insertion of an existing identifier is
// rejected with domain.ErrDuplicateID rather than overwriting, so a replayed
// notification leaves an audit trail instead of silently clobbering state.
func (r *Registry) Insert(pos domain.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.positions[pos.ID]; ok {
		return fmt.Errorf("registry: insert %s: %w", pos.ID, domain.ErrDuplicateID)
	}
	r.positions[pos.ID] = pos
	return nil
}

// Remove deletes a position by identifier and returns it. Removing an
// unknown identifier is a no-op, not an error.
func (r *Registry) Remove(id string) (domain.Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.positions[id]
	if ok {
		delete(r.positions, id)
	}
	return pos, ok
}

// Get returns a copy of the position with the given identifier.
func (r *Registry) Get(id string) (domain.Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.positions[id]
	return pos, ok
}

// Snapshot returns an independent copy of all open positions ordered by
// opening time (ties broken by identifier). Iterating the snapshot never
// observes concurrent mutation of the live set.
func (r *Registry) Snapshot() []domain.Position {
	r.mu.RLock()
	out := make([]domain.Position, 0, len(r.positions))
	for _, pos := range r.positions {
		out = append(out, pos)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Size returns the number of currently-open leveraged positions.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.positions)
}
