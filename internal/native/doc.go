// Package native is the backend persistence engine the query provider
// adapts to.
//
// A Session binds a SQLite store and an entity model. Each native Query
// holds an expression tree rooted at Source<T>(); composing onto it yields
// a new Query with a larger tree, and enumerating or executing compiles the
// tree to SQL with package querysql and decodes the rows against the model.
//
// Rows of whole entities are ir.IRObject values with every declared field
// present. Projected rows are plain Go values: int64, string, bool,
// decimal.Decimal or nil.
package native
