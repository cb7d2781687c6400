package linq

import (
	"fmt"

	"github.com/roach88/odatabridge/internal/expr"
)

// It returns the conventional lambda parameter for element type t.
func It(t *expr.Type) *expr.Parameter {
	return expr.Param("it", t)
}

// Lambda builds a one-parameter lambda.
func Lambda(p *expr.Parameter, body expr.Node) *expr.Lambda {
	return expr.Fn(body, p)
}

// Field reads a field of x.
func Field(x expr.Node, name string) (expr.Node, error) {
	return expr.Prop(x, name)
}

// Lit builds a constant of type t.
func Lit(v any, t *expr.Type) expr.Node {
	return expr.Const(v, t)
}

// Eq builds l == r. One operand type must be assignable to the other.
func Eq(l, r expr.Node) (expr.Node, error) {
	if err := checkComparable(l, r); err != nil {
		return nil, err
	}
	return expr.Bin(expr.Equal, l, r), nil
}

// Compare builds l op r for an ordering or equality operator.
func Compare(op expr.BinaryOp, l, r expr.Node) (expr.Node, error) {
	if !op.IsComparison() {
		return nil, fmt.Errorf("%s is not a comparison", op)
	}
	if err := checkComparable(l, r); err != nil {
		return nil, err
	}
	return expr.Bin(op, l, r), nil
}

// And builds l && r.
func And(l, r expr.Node) (expr.Node, error) {
	if !l.Type().IsBoolean() || !r.Type().IsBoolean() {
		return nil, fmt.Errorf("and: operands must be boolean, got %s and %s", l.Type(), r.Type())
	}
	return expr.Bin(expr.AndAlso, l, r), nil
}

// Or builds l || r.
func Or(l, r expr.Node) (expr.Node, error) {
	if !l.Type().IsBoolean() || !r.Type().IsBoolean() {
		return nil, fmt.Errorf("or: operands must be boolean, got %s and %s", l.Type(), r.Type())
	}
	return expr.Bin(expr.OrElse, l, r), nil
}

func checkComparable(l, r expr.Node) error {
	lt, rt := l.Type(), r.Type()
	if lt.AssignableTo(rt) || rt.AssignableTo(lt) {
		return nil
	}
	return fmt.Errorf("cannot compare %s with %s", lt, rt)
}
