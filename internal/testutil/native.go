package testutil

import (
	"context"
	"sync"

	"github.com/roach88/odatabridge/internal/builder"
	"github.com/roach88/odatabridge/internal/expr"
)

// StubSession is a fixed-ID session for tests.
type StubSession string

// ID returns the session identifier.
func (s StubSession) ID() string { return string(s) }

// NativeCalls records every call made into a family of CountingQuery values.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type NativeCalls struct {
	mu         sync.Mutex
	composed   []expr.Node
	executed   []expr.Node
	enumerates int
}

// Composed returns the trees passed to CreateQuery, in call order.
func (c *NativeCalls) Composed() []expr.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]expr.Node(nil), c.composed...)
}

// Executed returns the trees passed to Execute, in call order.
func (c *NativeCalls) Executed() []expr.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]expr.Node(nil), c.executed...)
}

// Enumerates returns how many times Enumerate was called.
func (c *NativeCalls) Enumerates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enumerates
}

// CountingQuery is a builder.NativeQuery that records calls and returns
// canned results: Rows from Enumerate and Scalar from Execute.
type CountingQuery struct {
	Elem   *expr.Type
	Rows   []any
	Scalar any
	Calls  *NativeCalls
}

var _ builder.NativeQuery = (*CountingQuery)(nil)

// NewCountingQuery returns a root query over elem yielding rows.
func NewCountingQuery(elem *expr.Type, rows ...any) *CountingQuery {
	return &CountingQuery{Elem: elem, Rows: rows, Calls: &NativeCalls{}}
}

// ElementType returns the query's element type.
func (q *CountingQuery) ElementType() *expr.Type { return q.Elem }

// CreateQuery records n and returns a child sharing q's results and calls.
func (q *CountingQuery) CreateQuery(n expr.Node) (builder.NativeQuery, error) {
	q.Calls.mu.Lock()
	q.Calls.composed = append(q.Calls.composed, n)
	q.Calls.mu.Unlock()

	elem := n.Type().ElementType()
	if elem == nil {
		elem = q.Elem
	}
	return &CountingQuery{Elem: elem, Rows: q.Rows, Scalar: q.Scalar, Calls: q.Calls}, nil
}

// Execute records n and returns Scalar.
func (q *CountingQuery) Execute(_ context.Context, n expr.Node) (any, error) {
	q.Calls.mu.Lock()
	q.Calls.executed = append(q.Calls.executed, n)
	q.Calls.mu.Unlock()
	return q.Scalar, nil
}

// Enumerate records the call and returns Rows.
func (q *CountingQuery) Enumerate(context.Context) ([]any, error) {
	q.Calls.mu.Lock()
	q.Calls.enumerates++
	q.Calls.mu.Unlock()
	return q.Rows, nil
}

// String identifies the query in printed trees.
func (q *CountingQuery) String() string {
	return "Native<" + q.Elem.String() + ">"
}

// RootConstructor returns a builder constructor whose entries hand out
// root for every session.
func RootConstructor(root *CountingQuery) builder.Constructor {
	return func(t *expr.Type) (*builder.Entry, error) {
		return builder.NewEntry(t, func(builder.Session) (builder.NativeQuery, error) {
			return root, nil
		}), nil
	}
}
