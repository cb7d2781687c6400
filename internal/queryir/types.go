package queryir

import (
	"fmt"

	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/ir"
)

// Query is a query request against an entity set.
//
// This is a sealed interface - only types in this package implement it.
//
// Query types:
//   - Select: rows of an entity set, filtered, ordered and paged
//   - Aggregate: a single value computed over a Select
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate is a filter condition over one row.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Compare: field <op> literal
//   - StringCompare: string.Compare(field, literal[, mode]) <op> result
//   - TypeIs: the row is an instance of an entity type
//   - CastIsNull: (row as Entity) == null
//   - And, Or, Not: boolean connectives
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select reads the rows of an entity set.
//
// Semantics:
//
//	From.Where(Filter).OrderBy(OrderBy...).Skip(Skip).Take(Take)
//
// Filter nil means every row. Take nil means no limit.
type Select struct {
	From    string     // Entity set name (e.g., "Orders")
	Filter  Predicate  // nil = no filter
	OrderBy []OrderKey // applied in order: first is the primary key
	Skip    int
	Take    *int
}

func (Select) queryNode() {}

// OrderKey is one sort key.
type OrderKey struct {
	Field      string
	Descending bool
}

// AggregateOp names a terminal operator.
type AggregateOp string

const (
	AggCount          AggregateOp = "count"
	AggAny            AggregateOp = "any"
	AggFirst          AggregateOp = "first"
	AggFirstOrDefault AggregateOp = "firstOrDefault"
	AggSum            AggregateOp = "sum"
)

// Aggregate computes one value over the rows of Source.
// Field names the summed field and is required only for AggSum.
type Aggregate struct {
	Source Select
	Op     AggregateOp
	Field  string
}

func (Aggregate) queryNode() {}

// CompareOp is a comparison operator.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var compareOps = [...]struct {
	symbol string
	binary expr.BinaryOp
}{
	OpEq: {"==", expr.Equal},
	OpNe: {"!=", expr.NotEqual},
	OpLt: {"<", expr.LessThan},
	OpLe: {"<=", expr.LessThanOrEqual},
	OpGt: {">", expr.GreaterThan},
	OpGe: {">=", expr.GreaterThanOrEqual},
}

func (op CompareOp) String() string {
	if int(op) < len(compareOps) {
		return compareOps[op].symbol
	}
	return fmt.Sprintf("CompareOp(%d)", int(op))
}

// Binary returns the expression operator for op.
func (op CompareOp) Binary() expr.BinaryOp {
	return compareOps[op].binary
}

// Compare is field <op> literal. A null Value with OpEq or OpNe tests for
// presence.
type Compare struct {
	Field string
	Op    CompareOp
	Value ir.IRValue
}

func (Compare) predicateNode() {}

// StringCompare is string.Compare(Field, Value) <Op> Result. Mode, when
// set, is passed as the comparison-mode argument.
type StringCompare struct {
	Field  string
	Value  string
	Mode   *int64
	Op     CompareOp
	Result int64
}

func (StringCompare) predicateNode() {}

// TypeIs holds for rows that are instances of Entity.
type TypeIs struct {
	Entity string
}

func (TypeIs) predicateNode() {}

// CastIsNull is (row as Entity) == null: it holds for rows that are not
// instances of Entity.
type CastIsNull struct {
	Entity string
}

func (CastIsNull) predicateNode() {}

// And holds when every predicate holds. An empty And is true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or holds when any predicate holds. An empty Or is false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates Predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}
