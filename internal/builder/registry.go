package builder

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/odatabridge/internal/expr"
)

// Constructor builds the Entry for a recognized entity type.
// It runs at most once per type for the lifetime of a Cache.
type Constructor func(t *expr.Type) (*Entry, error)

// Registry maps entity types to their constructors. It is populated by
// explicit registration at startup and only read afterwards.
type Registry struct {
	mu           sync.RWMutex
	constructors map[EntityTypeID]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[EntityTypeID]Constructor)}
}

// Register associates a constructor with an entity type.
// Registering the same type twice is an error.
func (r *Registry) Register(t *expr.Type, c Constructor) error {
	if !t.IsPersistent() {
		return fmt.Errorf("register %s: not a persistent entity type", t)
	}
	id := IDOf(t)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.constructors[id]; dup {
		return fmt.Errorf("register %s: already registered", id)
	}
	r.constructors[id] = c
	return nil
}

// Lookup returns the constructor registered for id.
func (r *Registry) Lookup(id EntityTypeID) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constructors[id]
	return c, ok
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []EntityTypeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]EntityTypeID, 0, len(r.constructors))
	for id := range r.constructors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
