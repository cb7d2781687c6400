// Package expr provides the immutable expression tree consumed and produced
// by every stage of query translation.
//
// An expression tree is the structural form of a composed, not-yet-executed
// query. The composition layer (package linq) builds trees; the normalizer
// rewrites them; the provider inspects their shape; the backend translates
// them.
//
// SEALED INTERFACE:
//
// Node is a sealed interface using the marker method pattern. Only types in
// this package implement it, which keeps type switches in the normalizer and
// the SQL translator exhaustive:
//
//	switch n := node.(type) {
//	case *Constant:
//	case *Parameter:
//	case *MethodCall:
//	case *Unary:
//	case *Binary:
//	case *Conditional:
//	case *Member:
//	case *Lambda:
//	}
//
// STATIC TYPES:
//
// Every node carries a static result type (*Type). Sequence and Nullable are
// the generic (parameterized) shapes. Entities form a single-inheritance
// hierarchy; an entity is recognized by the persistence engine when its base
// chain reaches PersistentBase.
//
// IMMUTABILITY:
//
// Nodes are never mutated after construction. Rewrites build new nodes and
// share untouched subtrees with their input.
package expr
