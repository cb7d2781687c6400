package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/odatabridge/internal/builder"
	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/ir"
	"github.com/roach88/odatabridge/internal/linq"
)

// Query is the composable handle returned to the composition layer.
//
// In source form it wraps a native query and its expression is a constant
// holding the Query itself, so further composition starts a new chain at
// that source. In composed form it wraps a provider and a partial tree.
type Query struct {
	provider   *Provider
	elem       *expr.Type
	expression expr.Node
	source     builder.NativeQuery
}

var (
	_ linq.Queryable  = (*Query)(nil)
	_ linq.Enumerable = (*Query)(nil)
)

// NewSource wraps a native query as the root of a new query chain.
func NewSource(p *Provider, nq builder.NativeQuery) (*Query, error) {
	if p == nil {
		return nil, argumentNull("provider")
	}
	if nq == nil {
		return nil, argumentNull("query")
	}
	q := &Query{provider: p, elem: nq.ElementType(), source: nq}
	q.expression = expr.Const(q, expr.SequenceOf(q.elem))
	return q, nil
}

func newQuery(p *Provider, elem *expr.Type, n expr.Node) (*Query, error) {
	if p == nil {
		return nil, argumentNull("provider")
	}
	if n == nil {
		return nil, argumentNull("expression")
	}
	if !n.Type().IsGeneric() {
		return nil, &ArgumentError{
			Code:     ErrCodeUnsupportedExpressionShape,
			Argument: "expression",
			Message:  fmt.Sprintf("type %s is not a parameterized shape", n.Type()),
		}
	}
	return &Query{provider: p, elem: elem, expression: n}, nil
}

// ElementType returns the static type of the query's elements.
func (q *Query) ElementType() *expr.Type { return q.elem }

// Expression returns the query's expression tree.
func (q *Query) Expression() expr.Node { return q.expression }

// Provider returns the provider that executes the query.
func (q *Query) Provider() linq.QueryProvider { return q.provider }

// NativeQuery returns the wrapped native query, or nil in composed form.
func (q *Query) NativeQuery() builder.NativeQuery { return q.source }

// String renders the source form by element type and the composed form by
// its expression.
func (q *Query) String() string {
	if q.source != nil {
		return fmt.Sprintf("Query<%s>", q.elem)
	}
	return expr.Format(q.expression)
}

// Enumerate executes the query and returns its rows. Every call executes
// again; nothing is cached.
func (q *Query) Enumerate(ctx context.Context) ([]any, error) {
	v, err := q.provider.Execute(ctx, q.expression)
	if err != nil {
		return nil, err
	}
	switch r := v.(type) {
	case *Query:
		if r.source == nil {
			return nil, fmt.Errorf("enumerate %s: execution returned an unbound query", q)
		}
		return r.source.Enumerate(ctx)
	case builder.NativeQuery:
		return r.Enumerate(ctx)
	case []any:
		return r, nil
	default:
		return nil, fmt.Errorf("enumerate %s: execution returned %T, not a sequence", q, v)
	}
}

// TypedQuery decodes the rows of a query into T.
type TypedQuery[T any] struct {
	*Query
}

// CreateTyped returns a typed query over n. n's type must be a
// parameterized shape.
func CreateTyped[T any](p *Provider, elem *expr.Type, n expr.Node) (*TypedQuery[T], error) {
	q, err := newQuery(p, elem, n)
	if err != nil {
		return nil, err
	}
	return &TypedQuery[T]{Query: q}, nil
}

// Typed views q's rows as T.
func Typed[T any](q *Query) *TypedQuery[T] {
	return &TypedQuery[T]{Query: q}
}

// All enumerates the query and decodes each row.
func (q *TypedQuery[T]) All(ctx context.Context) ([]T, error) {
	rows, err := q.Enumerate(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(rows))
	for i, row := range rows {
		v, err := decodeAs[T](row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// ExecuteAs executes n and converts the result to T.
func ExecuteAs[T any](ctx context.Context, p *Provider, n expr.Node) (T, error) {
	v, err := p.Execute(ctx, n)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeAs[T](v)
}

// decodeAs converts v to T directly, or through JSON when v is an entity
// row and T is a struct.
func decodeAs[T any](v any) (T, error) {
	var out T
	if t, ok := v.(T); ok {
		return t, nil
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return out, fmt.Errorf("cannot convert %T to %T", v, out)
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return out, fmt.Errorf("encode row: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode row into %T: %w", out, err)
	}
	return out, nil
}
