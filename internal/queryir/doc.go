// Package queryir provides a textual query representation for entity sets.
//
// A Query names an entity set and carries a filter Predicate, sort keys
// and paging. It is the boundary between user-facing input (CLI flags,
// scenario files) and expression trees:
//
//	[filter text] → ParseFilter → [Predicate] → Lower → [*expr.Lambda]
//	[Select]      → Compose     → [linq.Queryable] → provider → SQL
//
// PREDICATES:
//
//   - Compare: Field <op> literal, with literals typed by the field
//   - StringCompare: string.Compare(Field, literal[, mode]) <op> n
//   - TypeIs: it is Entity
//   - CastIsNull: (it as Entity) == null
//   - And, Or, Not
//
// Validate reports constructs that have no direct SQL form. Safe casts and
// comparison modes are rewritten by the normalizer before translation, so
// a query with warnings still runs.
package queryir
