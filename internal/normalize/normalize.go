package normalize

import (
	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/ir"
)

// Normalize rewrites n until no pattern matches anywhere in the tree.
// The input is never modified; unchanged subtrees are shared with the
// result. Normalize(Normalize(n)) is equivalent to Normalize(n).
func Normalize(n expr.Node) expr.Node {
	if n == nil {
		return nil
	}
	return visit(n)
}

// visit returns the fixed point of n. Patterns are matched at a node
// before its children are descended into, so an outer pattern sees the
// original shape of its operands. Rewrite output is visited again.
func visit(n expr.Node) expr.Node {
	if r, ok := rewrite(n); ok {
		return visit(r)
	}
	out := visitChildren(n)
	if out != n {
		if r, ok := rewrite(out); ok {
			return visit(r)
		}
	}
	return out
}

// visitChildren rebuilds n with normalized children. It returns n itself
// when no child changed.
func visitChildren(n expr.Node) expr.Node {
	switch n := n.(type) {
	case *expr.Constant, *expr.Parameter:
		return n

	case *expr.MethodCall:
		recv, recvChanged := visitOptional(n.Receiver)
		args, argsChanged := visitList(n.Args)
		if !recvChanged && !argsChanged {
			return n
		}
		return &expr.MethodCall{Receiver: recv, Method: n.Method, Args: args, T: n.T}

	case *expr.Unary:
		operand := visit(n.Operand)
		if operand == n.Operand {
			return n
		}
		return &expr.Unary{Op: n.Op, Operand: operand, To: n.To, T: n.T}

	case *expr.Binary:
		left, right := visit(n.Left), visit(n.Right)
		if left == n.Left && right == n.Right {
			return n
		}
		return &expr.Binary{Op: n.Op, Left: left, Right: right, T: n.T}

	case *expr.Conditional:
		test, a, b := visit(n.Test), visit(n.IfTrue), visit(n.IfFalse)
		if test == n.Test && a == n.IfTrue && b == n.IfFalse {
			return n
		}
		return &expr.Conditional{Test: test, IfTrue: a, IfFalse: b, T: n.T}

	case *expr.Member:
		operand := visit(n.Operand)
		if operand == n.Operand {
			return n
		}
		return &expr.Member{Operand: operand, Field: n.Field, T: n.T}

	case *expr.Lambda:
		body := visit(n.Body)
		if body == n.Body {
			return n
		}
		return &expr.Lambda{Params: n.Params, Body: body, T: n.T}
	}
	return n
}

func visitOptional(n expr.Node) (expr.Node, bool) {
	if n == nil {
		return nil, false
	}
	v := visit(n)
	return v, v != n
}

func visitList(nodes []expr.Node) ([]expr.Node, bool) {
	var out []expr.Node
	for i, a := range nodes {
		v := visit(a)
		if v != a && out == nil {
			out = make([]expr.Node, len(nodes))
			copy(out, nodes[:i])
		}
		if out != nil {
			out[i] = v
		}
	}
	if out == nil {
		return nodes, false
	}
	return out, true
}

// rewrite applies the first pattern matching n exactly.
func rewrite(n expr.Node) (expr.Node, bool) {
	switch n := n.(type) {
	case *expr.Binary:
		if r, ok := collapseNullableBool(n); ok {
			return r, true
		}
		return safeCastNullCheck(n)
	case *expr.Unary:
		return bareSafeCast(n)
	case *expr.MethodCall:
		return compareWithoutMode(n)
	}
	return nil, false
}

// safeCastNullCheck rewrites (p as T) == null. When p is a parameter whose
// type is assignable to T the cast cannot yield null, so the comparison is
// false. Otherwise it becomes !(p is T).
func safeCastNullCheck(n *expr.Binary) (expr.Node, bool) {
	if n.Op != expr.Equal || !isNullConstant(n.Right) {
		return nil, false
	}
	cast, ok := n.Left.(*expr.Unary)
	if !ok || cast.Op != expr.SafeCastAs {
		return nil, false
	}
	if p, ok := cast.Operand.(*expr.Parameter); ok && p.T.AssignableTo(cast.To) {
		return expr.BoolConst(false), true
	}
	return expr.NotOf(expr.Is(cast.Operand, cast.To)), true
}

// bareSafeCast rewrites p as T to p when p is a parameter assignable to T,
// and to the explicit conversion (T)p otherwise.
func bareSafeCast(n *expr.Unary) (expr.Node, bool) {
	if n.Op != expr.SafeCastAs {
		return nil, false
	}
	if p, ok := n.Operand.(*expr.Parameter); ok && p.T.AssignableTo(n.To) {
		return p, true
	}
	return expr.Cast(n.Operand, n.To), true
}

// compareWithoutMode drops the comparison-mode argument of the three
// argument string compare.
func compareWithoutMode(n *expr.MethodCall) (expr.Node, bool) {
	if !n.Method.Same(expr.StringCompareMode) || len(n.Args) != 3 {
		return nil, false
	}
	return &expr.MethodCall{
		Receiver: n.Receiver,
		Method:   expr.StringCompare,
		Args:     []expr.Node{n.Args[0], n.Args[1]},
		T:        n.T,
	}, true
}

// collapseNullableBool rewrites
//
//	(inner == null ? null : F) == true
//
// to F, where the comparison constant is a bool? true. When F is a
// conversion of a bool expression to bool?, the unconverted expression is
// returned instead.
func collapseNullableBool(n *expr.Binary) (expr.Node, bool) {
	if n.Op != expr.Equal {
		return nil, false
	}
	right, ok := n.Right.(*expr.Constant)
	if !ok || !right.T.IsNullableBool() || !isTrue(right.Value) {
		return nil, false
	}
	cond, ok := n.Left.(*expr.Conditional)
	if !ok {
		return nil, false
	}
	test, ok := cond.Test.(*expr.Binary)
	if !ok || test.Op != expr.Equal || !isNullConstant(test.Right) {
		return nil, false
	}
	if !isNullConstant(cond.IfTrue) {
		return nil, false
	}

	f := cond.IfFalse
	if conv, ok := f.(*expr.Unary); ok && conv.Op == expr.Convert && conv.T.IsNullableBool() {
		return conv.Operand, true
	}
	if !f.Type().IsBoolean() {
		return nil, false
	}
	return f, true
}

func isNullConstant(n expr.Node) bool {
	c, ok := n.(*expr.Constant)
	if !ok {
		return false
	}
	switch c.Value.(type) {
	case nil, ir.IRNull:
		return true
	}
	return false
}

func isTrue(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case ir.IRBool:
		return bool(v)
	}
	return false
}
