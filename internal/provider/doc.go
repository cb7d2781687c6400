// Package provider adapts composed expression trees to the native query
// provider of the backend persistence engine.
//
// EXECUTION:
//
//	normalize -> constant short-circuit -> mode -> resolve entity type
//	          -> builder cache -> native compose (sequence) or execute (scalar)
//
// The tree handed to the native backend is exactly the normalized tree.
// Errors from resolution, builder construction and the backend reach the
// caller unmodified.
//
// QUERY WRAPPER:
//
// Query satisfies linq.Queryable so the composition layer can keep chaining
// operators. Enumerating a Query executes it again every time.
package provider
