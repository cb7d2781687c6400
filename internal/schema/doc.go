// Package schema loads the entity model from CUE.
//
// A model declares entities (fields, key, optional base entity) and entity
// sets (the names under which entities are addressed in links):
//
//	entity: Order: {
//		base: "BaseDocument"
//		fields: {Total: "decimal", Active: "bool"}
//	}
//	entitySet: Orders: "Order"
//
// Field types are int, string, bool and decimal, each optionally suffixed
// with ? for nullable. Keys are inherited from base entities. Every entity
// derives from expr.PersistentBase and is therefore recognized by the query
// provider.
//
// Each entity also gets a generated JSON Schema; records are validated
// against it before they are written.
package schema
