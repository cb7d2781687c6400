package builder

import (
	"context"
	"fmt"

	"github.com/roach88/odatabridge/internal/expr"
)

// Session is the backend connection handle a native query is bound to.
type Session interface {
	ID() string
}

// NativeQuery is a query object owned by the backend persistence engine.
// The translation layer only composes onto it, executes it or enumerates it.
type NativeQuery interface {
	// ElementType is the static element type of the query's results.
	ElementType() *expr.Type

	// CreateQuery composes n onto the query and returns the new query.
	// n must be rooted in this query's source.
	CreateQuery(n expr.Node) (NativeQuery, error)

	// Execute evaluates a scalar-valued n against the backend.
	Execute(ctx context.Context, n expr.Node) (any, error)

	// Enumerate runs the query and returns its rows.
	Enumerate(ctx context.Context) ([]any, error)
}

// EntityTypeID identifies a recognized entity type. It is the cache key.
type EntityTypeID string

// IDOf returns the cache key for t.
func IDOf(t *expr.Type) EntityTypeID {
	return EntityTypeID(t.Name)
}

// Factory creates a native query bound to a session.
type Factory func(Session) (NativeQuery, error)

// Entry is the per-entity-type builder. It is created once per
// EntityTypeID and is read-only afterwards.
type Entry struct {
	id      EntityTypeID
	typ     *expr.Type
	factory Factory
}

// NewEntry returns the builder for t.
func NewEntry(t *expr.Type, factory Factory) *Entry {
	return &Entry{id: IDOf(t), typ: t, factory: factory}
}

// ID returns the entity type identifier.
func (e *Entry) ID() EntityTypeID { return e.id }

// EntityType returns the entity type the entry builds queries for.
func (e *Entry) EntityType() *expr.Type { return e.typ }

// CreateNativeQuery creates a native query over every row of the entity
// type, bound to session.
func (e *Entry) CreateNativeQuery(session Session) (NativeQuery, error) {
	nq, err := e.factory(session)
	if err != nil {
		return nil, fmt.Errorf("create native query for %s: %w", e.id, err)
	}
	return nq, nil
}

// Materialize enumerates nq into a slice of opaque values.
func (e *Entry) Materialize(ctx context.Context, nq NativeQuery) ([]any, error) {
	rows, err := nq.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("materialize %s: %w", e.id, err)
	}
	return rows, nil
}
