package queryir

import (
	"context"
	"fmt"

	"github.com/roach88/odatabridge/internal/linq"
)

// Compose builds the queryable for sel on provider p.
func Compose(r Resolver, p linq.QueryProvider, sel Select) (linq.Queryable, error) {
	elem, ok := r.EntitySet(sel.From)
	if !ok {
		return nil, fmt.Errorf("unknown entity set %q", sel.From)
	}
	q, err := p.CreateQuery(linq.Source(elem))
	if err != nil {
		return nil, err
	}

	if sel.Filter != nil {
		pred, err := Lower(r, elem, sel.Filter)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		if q, err = linq.Where(q, pred); err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
	}

	for i, key := range sel.OrderBy {
		it := linq.It(elem)
		member, err := linq.Field(it, key.Field)
		if err != nil {
			return nil, fmt.Errorf("order by: %w", err)
		}
		l := linq.Lambda(it, member)
		switch {
		case i == 0 && key.Descending:
			q, err = linq.OrderByDescending(q, l)
		case i == 0:
			q, err = linq.OrderBy(q, l)
		case key.Descending:
			q, err = linq.ThenByDescending(q, l)
		default:
			q, err = linq.ThenBy(q, l)
		}
		if err != nil {
			return nil, fmt.Errorf("order by %s: %w", key.Field, err)
		}
	}

	if sel.Skip != 0 {
		if q, err = linq.Skip(q, sel.Skip); err != nil {
			return nil, err
		}
	}
	if sel.Take != nil {
		if q, err = linq.Take(q, *sel.Take); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Run executes q on provider p. A Select returns its rows as []any. An
// Aggregate returns the value of its operator: int64 for count, bool for
// any, a row for first, decimal.Decimal for sum.
func Run(ctx context.Context, r Resolver, p linq.QueryProvider, q Query) (any, error) {
	switch query := q.(type) {
	case Select:
		qq, err := Compose(r, p, query)
		if err != nil {
			return nil, err
		}
		return linq.ToSlice(ctx, qq)

	case Aggregate:
		qq, err := Compose(r, p, query.Source)
		if err != nil {
			return nil, err
		}
		switch query.Op {
		case AggCount:
			return linq.Count(ctx, qq)
		case AggAny:
			return linq.Any(ctx, qq)
		case AggFirst:
			return linq.First(ctx, qq)
		case AggFirstOrDefault:
			return linq.FirstOrDefault(ctx, qq)
		case AggSum:
			it := linq.It(qq.ElementType())
			member, err := linq.Field(it, query.Field)
			if err != nil {
				return nil, fmt.Errorf("sum: %w", err)
			}
			return linq.Sum(ctx, qq, linq.Lambda(it, member))
		}
		return nil, fmt.Errorf("unknown aggregate %q", query.Op)

	case nil:
		return nil, fmt.Errorf("nil query")
	}
	return nil, fmt.Errorf("unknown query type: %T", q)
}
