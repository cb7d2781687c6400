// Package normalize rewrites expression trees into forms the native backend
// translates correctly.
//
// Normalize is a pure function. It recognizes four exact shapes and leaves
// everything else as it found it, with normalized children:
//
//   - (p as T) == null      becomes false, or !(p is T)
//   - p as T                becomes p, or (T)p
//   - String.Compare(a, b, mode)  becomes String.Compare(a, b)
//   - (x == null ? null : F) == true  becomes F
//
// The pass runs to a fixed point within one call, so normalizing an already
// normalized tree returns an equivalent tree.
package normalize
