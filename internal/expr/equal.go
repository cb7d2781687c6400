package expr

import (
	"reflect"

	"github.com/roach88/odatabridge/internal/ir"
)

// Equivalent reports whether a and b are structurally equal trees.
// Node types, operators, methods, static types and constant values must all
// match. Constants holding non-comparable values fall back to deep equality.
func Equivalent(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !a.Type().Equal(b.Type()) {
		return false
	}

	switch x := a.(type) {
	case *Constant:
		y, ok := b.(*Constant)
		return ok && valuesEqual(x.Value, y.Value)

	case *Parameter:
		y, ok := b.(*Parameter)
		return ok && x.Name == y.Name

	case *MethodCall:
		y, ok := b.(*MethodCall)
		return ok && x.Method.Same(y.Method) &&
			Equivalent(x.Receiver, y.Receiver) && equivalentAll(x.Args, y.Args)

	case *Unary:
		y, ok := b.(*Unary)
		return ok && x.Op == y.Op && x.To.Equal(y.To) && Equivalent(x.Operand, y.Operand)

	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && Equivalent(x.Left, y.Left) && Equivalent(x.Right, y.Right)

	case *Conditional:
		y, ok := b.(*Conditional)
		return ok && Equivalent(x.Test, y.Test) &&
			Equivalent(x.IfTrue, y.IfTrue) && Equivalent(x.IfFalse, y.IfFalse)

	case *Member:
		y, ok := b.(*Member)
		return ok && x.Field == y.Field && Equivalent(x.Operand, y.Operand)

	case *Lambda:
		y, ok := b.(*Lambda)
		if !ok || len(x.Params) != len(y.Params) {
			return false
		}
		for i := range x.Params {
			if !Equivalent(x.Params[i], y.Params[i]) {
				return false
			}
		}
		return Equivalent(x.Body, y.Body)
	}
	return false
}

func equivalentAll(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equivalent(a[i], b[i]) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if av, ok := a.(ir.IRValue); ok {
		bv, ok := b.(ir.IRValue)
		return ok && ir.Equal(av, bv)
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
