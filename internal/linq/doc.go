// Package linq is the outward composition layer: query operators that
// extend an expression tree against any Queryable.
//
// Sequence operators (Where, Select, OrderBy, Skip, Take, ...) append a
// method call to the tree and hand it to the provider's CreateQuery.
// Scalar operators (Count, Any, First, Sum) append a method call and hand
// it to the provider's Execute. Lambdas are passed quoted, the way the
// backend expects them.
//
// The package depends only on the Queryable and QueryProvider interfaces;
// it knows nothing about normalization, builders or storage.
package linq
