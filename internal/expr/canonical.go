package expr

import (
	"fmt"

	"github.com/roach88/odatabridge/internal/ir"
)

// Canonical converts n to an IR object suitable for canonical JSON.
// Constants whose value is not an IR-representable scalar (native query
// objects) are recorded by their printed form only.
func Canonical(n Node) ir.IRObject {
	switch n := n.(type) {
	case *Constant:
		obj := ir.O("node", "Constant", "type", n.T.String())
		if v, err := ir.FromGo(n.Value); err == nil {
			obj["value"] = v
		} else {
			obj["opaque"] = ir.IRString(formatValue(n.Value))
		}
		return obj

	case *Parameter:
		return ir.O("node", "Parameter", "name", n.Name, "type", n.T.String())

	case *MethodCall:
		obj := ir.O(
			"node", "MethodCall",
			"method", n.Method.String(),
			"args", canonicalList(n.Args),
			"type", n.T.String(),
		)
		if n.Receiver != nil {
			obj["receiver"] = Canonical(n.Receiver)
		}
		return obj

	case *Unary:
		obj := ir.O("node", "Unary", "op", n.Op.String(), "operand", Canonical(n.Operand), "type", n.T.String())
		if n.To != nil {
			obj["to"] = ir.IRString(n.To.String())
		}
		return obj

	case *Binary:
		return ir.O(
			"node", "Binary",
			"op", n.Op.String(),
			"left", Canonical(n.Left),
			"right", Canonical(n.Right),
			"type", n.T.String(),
		)

	case *Conditional:
		return ir.O(
			"node", "Conditional",
			"test", Canonical(n.Test),
			"ifTrue", Canonical(n.IfTrue),
			"ifFalse", Canonical(n.IfFalse),
			"type", n.T.String(),
		)

	case *Member:
		return ir.O("node", "Member", "operand", Canonical(n.Operand), "field", n.Field, "type", n.T.String())

	case *Lambda:
		params := make([]any, len(n.Params))
		for i, p := range n.Params {
			params[i] = Canonical(p)
		}
		return ir.O("node", "Lambda", "params", params, "body", Canonical(n.Body), "type", n.T.String())

	default:
		panic(fmt.Sprintf("expr: unknown node type %T", n))
	}
}

func canonicalList(nodes []Node) []any {
	out := make([]any, len(nodes))
	for i, a := range nodes {
		out[i] = Canonical(a)
	}
	return out
}

// Fingerprint returns the content hash of n's canonical form.
// Equivalent trees over IR-representable constants share a fingerprint.
func Fingerprint(n Node) (string, error) {
	return ir.Hash(ir.DomainExpression, Canonical(n))
}
