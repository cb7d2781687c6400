package builder

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/odatabridge/internal/expr"
)

// Cache holds one Entry per entity type. It is allocated once at startup,
// shared by every provider and session, and lives for the process.
//
// Thread-safety: GetOrCreate is safe for concurrent use. Concurrent first
// requests for the same type observe exactly one constructor call and all
// receive the same *Entry.
type Cache struct {
	registry *Registry
	group    singleflight.Group

	mu      sync.RWMutex
	entries map[EntityTypeID]*Entry

	builds atomic.Int64
}

// NewCache returns an empty cache drawing constructors from r.
func NewCache(r *Registry) *Cache {
	return &Cache{
		registry: r,
		entries:  make(map[EntityTypeID]*Entry),
	}
}

// GetOrCreate returns the cached Entry for t, constructing it on first use.
//
// A constructor failure is returned as the constructor's own error, not
// wrapped, and is not cached: a later call retries construction.
func (c *Cache) GetOrCreate(t *expr.Type) (*Entry, error) {
	id := IDOf(t)
	if e, ok := c.lookup(id); ok {
		return e, nil
	}

	v, err, _ := c.group.Do(string(id), func() (any, error) {
		// A call that finished between lookup and Do has already inserted.
		if e, ok := c.lookup(id); ok {
			return e, nil
		}
		e, err := c.construct(id, t)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[id] = e
		c.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

func (c *Cache) lookup(id EntityTypeID) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// construct runs the registered constructor. A panic carrying an error is
// returned as that error.
func (c *Cache) construct(id EntityTypeID, t *expr.Type) (e *Entry, err error) {
	ctor, ok := c.registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}

	defer func() {
		if r := recover(); r != nil {
			if perr, ok := r.(error); ok {
				err = perr
				return
			}
			err = fmt.Errorf("constructor for %s panicked: %v", id, r)
		}
	}()

	c.builds.Add(1)
	e, err = ctor(t)
	if err != nil {
		slog.Debug("builder construction failed", "entity", id, "error", err)
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("constructor for %s returned no entry", id)
	}
	slog.Debug("builder constructed", "entity", id)
	return e, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Builds returns how many times a constructor has been invoked.
func (c *Cache) Builds() int64 {
	return c.builds.Load()
}
