package provider

import (
	"context"
	"log/slog"

	"github.com/roach88/odatabridge/internal/builder"
	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/linq"
	"github.com/roach88/odatabridge/internal/normalize"
)

// Mode is how a normalized tree is dispatched to the native backend.
type Mode int

const (
	// Scalar trees are executed and their value returned.
	Scalar Mode = iota
	// Sequence trees are composed into a new native query.
	Sequence
)

func (m Mode) String() string {
	if m == Sequence {
		return "sequence"
	}
	return "scalar"
}

// ModeOf derives the execution mode from a root result type: a sequence of
// a recognized entity is Sequence, anything else is Scalar.
func ModeOf(t *expr.Type) Mode {
	if elem := t.ElementType(); elem != nil && elem.IsPersistent() {
		return Sequence
	}
	return Scalar
}

// Provider adapts composed expression trees to the native backend.
// It holds no mutable state of its own; the builder cache it references is
// shared process-wide.
type Provider struct {
	session builder.Session
	cache   *builder.Cache
}

var _ linq.QueryProvider = (*Provider)(nil)

// New returns a provider bound to session, drawing builders from cache.
func New(session builder.Session, cache *builder.Cache) (*Provider, error) {
	if session == nil {
		return nil, argumentNull("session")
	}
	if cache == nil {
		return nil, argumentNull("cache")
	}
	return &Provider{session: session, cache: cache}, nil
}

// Session returns the session native queries are bound to.
func (p *Provider) Session() builder.Session { return p.session }

// CreateQuery returns a composable query over n. The element type is n's
// sequence element, or the resolved entity type when n is not a sequence.
func (p *Provider) CreateQuery(n expr.Node) (linq.Queryable, error) {
	if n == nil {
		return nil, argumentNull("expression")
	}
	elem := n.Type().ElementType()
	if elem == nil {
		resolved, err := builder.ResolveEntityType(n)
		if err != nil {
			return nil, err
		}
		elem = resolved
	}
	return p.CreateQueryOf(elem, n)
}

// CreateQueryOf returns a composable query over n with the given element
// type. n's type must be a parameterized shape.
func (p *Provider) CreateQueryOf(elem *expr.Type, n expr.Node) (*Query, error) {
	return newQuery(p, elem, n)
}

// Execute normalizes n and dispatches it to the native backend.
//
// A tree that normalizes to a constant returns the constant's value with no
// backend call. A sequence of entities is composed into a new native query
// and returned as a source-form *Query. A sequence of anything else is
// composed and materialized. Everything else is executed as a scalar.
//
// ctx reaches only the native backend; normalization, resolution and
// builder lookup do not block.
func (p *Provider) Execute(ctx context.Context, n expr.Node) (any, error) {
	if n == nil {
		return nil, argumentNull("expression")
	}
	e := normalize.Normalize(n)
	if c, ok := e.(*expr.Constant); ok {
		return c.Value, nil
	}

	mode := ModeOf(e.Type())
	entityType, err := builder.ResolveEntityType(e)
	if err != nil {
		return nil, err
	}
	entry, err := p.cache.GetOrCreate(entityType)
	if err != nil {
		return nil, err
	}
	slog.Debug("query dispatch", "entity", entry.ID(), "mode", mode, "session", p.session.ID())

	nq, err := entry.CreateNativeQuery(p.session)
	if err != nil {
		return nil, err
	}

	switch {
	case mode == Sequence:
		composed, err := nq.CreateQuery(e)
		if err != nil {
			return nil, err
		}
		return NewSource(p, composed)

	case e.Type().ElementType() != nil:
		composed, err := nq.CreateQuery(e)
		if err != nil {
			return nil, err
		}
		return entry.Materialize(ctx, composed)

	default:
		return nq.Execute(ctx, e)
	}
}
