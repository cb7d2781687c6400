package linq

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/odatabridge/internal/expr"
)

// Where filters q by pred, a lambda over q's element type yielding bool.
func Where(q Queryable, pred *expr.Lambda) (Queryable, error) {
	if err := checkLambda(q, pred); err != nil {
		return nil, fmt.Errorf("where: %w", err)
	}
	if !pred.Body.Type().IsBoolean() {
		return nil, fmt.Errorf("where: predicate yields %s, want bool", pred.Body.Type())
	}
	return compose(q, expr.OpWhere, expr.SequenceOf(q.ElementType()), expr.QuoteOf(pred))
}

// Select projects each element of q through sel.
func Select(q Queryable, sel *expr.Lambda) (Queryable, error) {
	if err := checkLambda(q, sel); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return compose(q, expr.OpSelect, expr.SequenceOf(sel.Body.Type()), expr.QuoteOf(sel))
}

// OrderBy sorts q ascending by key.
func OrderBy(q Queryable, key *expr.Lambda) (Queryable, error) {
	return orderBy(q, expr.OpOrderBy, key)
}

// OrderByDescending sorts q descending by key.
func OrderByDescending(q Queryable, key *expr.Lambda) (Queryable, error) {
	return orderBy(q, expr.OpOrderByDescending, key)
}

// ThenBy adds an ascending secondary sort key.
func ThenBy(q Queryable, key *expr.Lambda) (Queryable, error) {
	return orderBy(q, expr.OpThenBy, key)
}

// ThenByDescending adds a descending secondary sort key.
func ThenByDescending(q Queryable, key *expr.Lambda) (Queryable, error) {
	return orderBy(q, expr.OpThenByDescending, key)
}

func orderBy(q Queryable, op string, key *expr.Lambda) (Queryable, error) {
	if err := checkLambda(q, key); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return compose(q, op, expr.SequenceOf(q.ElementType()), expr.QuoteOf(key))
}

// Skip bypasses the first n elements.
func Skip(q Queryable, n int) (Queryable, error) {
	if n < 0 {
		return nil, fmt.Errorf("skip: negative count %d", n)
	}
	return compose(q, expr.OpSkip, expr.SequenceOf(q.ElementType()), expr.Const(int64(n), expr.Int))
}

// Take keeps at most n elements.
func Take(q Queryable, n int) (Queryable, error) {
	if n < 0 {
		return nil, fmt.Errorf("take: negative count %d", n)
	}
	return compose(q, expr.OpTake, expr.SequenceOf(q.ElementType()), expr.Const(int64(n), expr.Int))
}

// OfType keeps the elements of q that are of entity type t.
func OfType(q Queryable, t *expr.Type) (Queryable, error) {
	if !t.AssignableTo(q.ElementType()) {
		return nil, fmt.Errorf("oftype: %s does not derive from %s", t, q.ElementType())
	}
	return compose(q, expr.OpOfType, expr.SequenceOf(t))
}

func compose(q Queryable, op string, t *expr.Type, args ...expr.Node) (Queryable, error) {
	call := expr.Call(t, expr.QueryOperator(op), append([]expr.Node{q.Expression()}, args...)...)
	return q.Provider().CreateQuery(call)
}

func checkLambda(q Queryable, l *expr.Lambda) error {
	if l == nil {
		return fmt.Errorf("lambda is required")
	}
	if len(l.Params) != 1 {
		return fmt.Errorf("lambda takes %d parameters, want 1", len(l.Params))
	}
	if !q.ElementType().AssignableTo(l.Params[0].T) {
		return fmt.Errorf("lambda parameter is %s, element type is %s", l.Params[0].T, q.ElementType())
	}
	return nil
}

// Count returns the number of elements in q.
func Count(ctx context.Context, q Queryable) (int64, error) {
	v, err := execute(ctx, q, expr.OpCount, expr.Int)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("count: provider returned %T", v)
	}
	return n, nil
}

// Any reports whether q has at least one element.
func Any(ctx context.Context, q Queryable) (bool, error) {
	v, err := execute(ctx, q, expr.OpAny, expr.Bool)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("any: provider returned %T", v)
	}
	return b, nil
}

// First returns the first element of q. An empty sequence is an error.
func First(ctx context.Context, q Queryable) (any, error) {
	return execute(ctx, q, expr.OpFirst, q.ElementType())
}

// FirstOrDefault returns the first element of q, or nil when q is empty.
func FirstOrDefault(ctx context.Context, q Queryable) (any, error) {
	return execute(ctx, q, expr.OpFirstOrDefault, q.ElementType())
}

// Sum adds sel over the elements of q. sel must yield int or decimal.
func Sum(ctx context.Context, q Queryable, sel *expr.Lambda) (decimal.Decimal, error) {
	if err := checkLambda(q, sel); err != nil {
		return decimal.Zero, fmt.Errorf("sum: %w", err)
	}
	rt := sel.Body.Type()
	if rt.Kind != expr.KindInt && rt.Kind != expr.KindDecimal {
		return decimal.Zero, fmt.Errorf("sum: selector yields %s, want int or decimal", rt)
	}
	call := expr.Call(rt, expr.QueryOperator(expr.OpSum), q.Expression(), expr.QuoteOf(sel))
	v, err := q.Provider().Execute(ctx, call)
	if err != nil {
		return decimal.Zero, err
	}
	switch v := v.(type) {
	case decimal.Decimal:
		return v, nil
	case int64:
		return decimal.NewFromInt(v), nil
	}
	return decimal.Zero, fmt.Errorf("sum: provider returned %T", v)
}

func execute(ctx context.Context, q Queryable, op string, t *expr.Type) (any, error) {
	call := expr.Call(t, expr.QueryOperator(op), q.Expression())
	return q.Provider().Execute(ctx, call)
}
