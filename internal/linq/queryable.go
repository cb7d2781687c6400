package linq

import (
	"context"
	"fmt"

	"github.com/roach88/odatabridge/internal/expr"
)

// Queryable is a composable query: an expression tree plus the provider
// that can compose onto it or execute it.
type Queryable interface {
	ElementType() *expr.Type
	Expression() expr.Node
	Provider() QueryProvider
}

// QueryProvider turns expression trees into queries and results.
type QueryProvider interface {
	// CreateQuery returns a Queryable over the sequence expression n.
	CreateQuery(n expr.Node) (Queryable, error)

	// Execute evaluates n and returns its result.
	Execute(ctx context.Context, n expr.Node) (any, error)
}

// Enumerable is implemented by queryables that can produce their rows.
type Enumerable interface {
	Enumerate(ctx context.Context) ([]any, error)
}

// ToSlice enumerates q.
func ToSlice(ctx context.Context, q Queryable) ([]any, error) {
	e, ok := q.(Enumerable)
	if !ok {
		return nil, fmt.Errorf("queryable %T cannot be enumerated", q)
	}
	return e.Enumerate(ctx)
}

// Source returns the unbound source expression for entity type t.
func Source(t *expr.Type) expr.Node {
	return expr.Call(expr.SequenceOf(t), expr.QueryOperator(expr.OpSource))
}
