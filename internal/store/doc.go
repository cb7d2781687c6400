// Package store provides the SQLite storage behind the native query
// provider.
//
// Every entity instance is one row of the records table:
//
//	seq     INTEGER  insertion order, preserved across updates
//	entity  TEXT     exact entity type name
//	key     TEXT     canonical JSON of the key value
//	data    TEXT     canonical JSON of the field values
//	hash    TEXT     content hash of data, makes rewrites of equal data no-ops
//
// # Deterministic Query Results
//
// Queries compiled by package querysql always end their ORDER BY with
// seq ASC, so repeated reads return rows in the same order.
//
// # Parameterized SQL Only
//
// The store never formats values into SQL text. QueryRecords, QueryColumn
// and QueryScalar take ? placeholders and arguments.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
