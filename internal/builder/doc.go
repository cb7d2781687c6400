// Package builder resolves the entity type a query targets and supplies the
// per-type native query builder for it.
//
// REGISTRY:
//
// Each recognized entity type gets an explicit Constructor in a Registry at
// startup. There is no runtime type instantiation: a type without a
// constructor fails with ErrNotRegistered.
//
// CACHE:
//
// Cache is the only shared mutable state in the translation layer. Entries
// are built lazily, at most once per EntityTypeID, through a singleflight
// group keyed by the type ID with a re-check of the map inside the flight.
// A failed construction is not cached and its error reaches the caller
// unwrapped.
//
// RESOLUTION:
//
// ResolveEntityType walks the first-argument chain of method calls from the
// root until it reaches a node typed as a sequence of a persistent entity.
package builder
