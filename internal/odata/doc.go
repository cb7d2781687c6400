// Package odata resolves entity links to the key of the entity they name.
//
// A link is absolute and ends in a key segment, Set(key), where Set is an
// entity set of the model and key is an int literal or a single-quoted
// string with '' escaping a quote. The named form Set(Field=key) is accepted
// when Field is the set's key field.
package odata
