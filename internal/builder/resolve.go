package builder

import "github.com/roach88/odatabridge/internal/expr"

// ResolveEntityType derives the target entity type from the shape of n.
//
// Starting at the root, a node whose static type is a sequence of a
// recognized entity yields that entity. Otherwise, if the node is a method
// call, resolution continues at its first argument (the source position).
// Anything else ends the walk with a *ResolveError.
func ResolveEntityType(n expr.Node) (*expr.Type, error) {
	cur := n
	for cur != nil {
		if elem := cur.Type().ElementType(); elem != nil && elem.IsPersistent() {
			return elem, nil
		}
		call, ok := cur.(*expr.MethodCall)
		if !ok || len(call.Args) == 0 {
			break
		}
		cur = call.Args[0]
	}
	return nil, &ResolveError{Code: ErrCodeNoEntityType, Expression: expr.Format(n)}
}
