package native

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/odatabridge/internal/expr"
)

// columnValue converts a driver value to the Go value of static type t.
func columnValue(t *expr.Type, v any) (any, error) {
	if v == nil {
		if t.Kind == expr.KindNullable || t.Kind == expr.KindObject {
			return nil, nil
		}
		return nil, fmt.Errorf("null is not a %s", t)
	}
	if t.Kind == expr.KindNullable {
		t = t.Elem
	}

	switch t.Kind {
	case expr.KindInt:
		if n, ok := v.(int64); ok {
			return n, nil
		}
	case expr.KindBool:
		if n, ok := v.(int64); ok {
			return n != 0, nil
		}
	case expr.KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case expr.KindDecimal:
		return toDecimal(v)
	case expr.KindObject:
		return v, nil
	}
	return nil, fmt.Errorf("%T is not a %s", v, t)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d, nil
	case string:
		return decimal.NewFromString(d)
	case int64:
		return decimal.NewFromInt(d), nil
	case float64:
		return decimal.NewFromFloat(d), nil
	}
	return decimal.Zero, fmt.Errorf("%T is not a decimal", v)
}

// sum adds decoded column values. Int selectors sum to int64, decimal
// selectors to decimal.Decimal. Nulls are skipped and an empty sum is zero.
func sum(t *expr.Type, rows []any) (any, error) {
	if t.Kind == expr.KindNullable {
		t = t.Elem
	}
	switch t.Kind {
	case expr.KindInt:
		var total int64
		for _, r := range rows {
			if r == nil {
				continue
			}
			n, ok := r.(int64)
			if !ok {
				return nil, fmt.Errorf("sum: %T is not an int", r)
			}
			total += n
		}
		return total, nil

	case expr.KindDecimal:
		total := decimal.Zero
		for _, r := range rows {
			if r == nil {
				continue
			}
			d, err := toDecimal(r)
			if err != nil {
				return nil, fmt.Errorf("sum: %w", err)
			}
			total = total.Add(d)
		}
		return total, nil
	}
	return nil, fmt.Errorf("sum: selector yields %s, want int or decimal", t)
}
