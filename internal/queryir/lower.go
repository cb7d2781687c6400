package queryir

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/ir"
	"github.com/roach88/odatabridge/internal/linq"
)

// Resolver looks up entity types by entity or entity set name.
// *schema.Model satisfies it.
type Resolver interface {
	Entity(name string) (*expr.Type, bool)
	EntitySet(name string) (*expr.Type, bool)
}

// Lower builds the predicate lambda it => p over rows of elem. Literals
// take the type of the field they are compared with. A nil p lowers to a
// nil lambda.
func Lower(r Resolver, elem *expr.Type, p Predicate) (*expr.Lambda, error) {
	if p == nil {
		return nil, nil
	}
	it := linq.It(elem)
	body, err := (&lowerer{resolver: r, it: it}).predicate(p)
	if err != nil {
		return nil, err
	}
	return linq.Lambda(it, body), nil
}

type lowerer struct {
	resolver Resolver
	it       *expr.Parameter
}

func (l *lowerer) predicate(p Predicate) (expr.Node, error) {
	switch pred := p.(type) {
	case Compare:
		return l.compare(pred)

	case StringCompare:
		return l.stringCompare(pred)

	case TypeIs:
		t, err := l.entity(pred.Entity)
		if err != nil {
			return nil, err
		}
		return expr.Is(l.it, t), nil

	case CastIsNull:
		t, err := l.entity(pred.Entity)
		if err != nil {
			return nil, err
		}
		return expr.Bin(expr.Equal, expr.SafeCast(l.it, t), expr.Null(t)), nil

	case And:
		return l.fold(pred.Predicates, expr.BoolConst(true), linq.And)

	case Or:
		return l.fold(pred.Predicates, expr.BoolConst(false), linq.Or)

	case Not:
		inner, err := l.predicate(pred.Predicate)
		if err != nil {
			return nil, err
		}
		return expr.NotOf(inner), nil

	case nil:
		return nil, fmt.Errorf("nil predicate")
	}
	return nil, fmt.Errorf("unknown predicate type: %T", p)
}

// fold joins preds with join. No predicates yields empty.
func (l *lowerer) fold(preds []Predicate, empty expr.Node, join func(a, b expr.Node) (expr.Node, error)) (expr.Node, error) {
	if len(preds) == 0 {
		return empty, nil
	}
	acc, err := l.predicate(preds[0])
	if err != nil {
		return nil, err
	}
	for _, p := range preds[1:] {
		next, err := l.predicate(p)
		if err != nil {
			return nil, err
		}
		if acc, err = join(acc, next); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (l *lowerer) entity(name string) (*expr.Type, error) {
	t, ok := l.resolver.Entity(name)
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", name)
	}
	return t, nil
}

func (l *lowerer) field(name string) (expr.Node, *expr.Type, error) {
	m, err := linq.Field(l.it, name)
	if err != nil {
		return nil, nil, err
	}
	return m, m.Type(), nil
}

func (l *lowerer) compare(c Compare) (expr.Node, error) {
	member, ft, err := l.field(c.Field)
	if err != nil {
		return nil, err
	}
	lit, err := literal(ft, c.Value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Field, err)
	}
	return linq.Compare(c.Op.Binary(), member, lit)
}

func (l *lowerer) stringCompare(c StringCompare) (expr.Node, error) {
	member, ft, err := l.field(c.Field)
	if err != nil {
		return nil, err
	}
	if base(ft).Kind != expr.KindString {
		return nil, fmt.Errorf("compare: %s is %s, not a string", c.Field, ft)
	}

	args := []expr.Node{member, expr.Const(c.Value, expr.String)}
	method := expr.StringCompare
	if c.Mode != nil {
		args = append(args, expr.Const(*c.Mode, expr.StringComparison))
		method = expr.StringCompareMode
	}
	call := expr.Call(expr.Int, method, args...)
	return linq.Compare(c.Op.Binary(), call, expr.Const(c.Result, expr.Int))
}

// literal converts v to a constant of field type ft.
func literal(ft *expr.Type, v ir.IRValue) (expr.Node, error) {
	if _, ok := v.(ir.IRNull); ok {
		if ft.Kind != expr.KindNullable {
			return nil, fmt.Errorf("%s cannot be null", ft)
		}
		return expr.Null(ft), nil
	}

	t := base(ft)
	switch t.Kind {
	case expr.KindInt:
		if n, ok := v.(ir.IRInt); ok {
			return expr.Const(int64(n), expr.Int), nil
		}
	case expr.KindDecimal:
		switch d := v.(type) {
		case ir.IRDecimal:
			return expr.Const(d.Decimal, expr.Decimal), nil
		case ir.IRInt:
			return expr.Const(decimal.NewFromInt(int64(d)), expr.Decimal), nil
		}
	case expr.KindString:
		if s, ok := v.(ir.IRString); ok {
			return expr.Const(string(s), expr.String), nil
		}
	case expr.KindBool:
		if b, ok := v.(ir.IRBool); ok {
			return expr.Const(bool(b), expr.Bool), nil
		}
	}
	return nil, fmt.Errorf("literal %T does not match %s", v, ft)
}

func base(t *expr.Type) *expr.Type {
	if t.Kind == expr.KindNullable {
		return t.Elem
	}
	return t
}
