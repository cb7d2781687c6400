package provider

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatabridge/internal/builder"
	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/ir"
	"github.com/roach88/odatabridge/internal/linq"
	"github.com/roach88/odatabridge/internal/normalize"
	"github.com/roach88/odatabridge/internal/testutil"
)

var (
	baseDocument = expr.NewEntity("BaseDocument", nil, expr.Field{Name: "ID", Type: expr.Int})
	order        = expr.NewEntity("Order", baseDocument,
		expr.Field{Name: "Total", Type: expr.Decimal},
		expr.Field{Name: "Active", Type: expr.Bool},
	)
	summary = expr.NewObject("Summary", expr.Field{Name: "ID", Type: expr.Int})
)

type fixture struct {
	root     *testutil.CountingQuery
	cache    *builder.Cache
	provider *Provider
}

func newFixture(t *testing.T, rows ...any) *fixture {
	t.Helper()
	root := testutil.NewCountingQuery(order, rows...)
	reg := builder.NewRegistry()
	require.NoError(t, reg.Register(order, testutil.RootConstructor(root)))
	cache := builder.NewCache(reg)
	p, err := New(testutil.StubSession("s1"), cache)
	require.NoError(t, err)
	return &fixture{root: root, cache: cache, provider: p}
}

func whereSafeCastTree() expr.Node {
	o := expr.Param("o", order)
	return expr.Call(expr.SequenceOf(order), expr.QueryOperator(expr.OpWhere),
		linq.Source(order),
		expr.QuoteOf(expr.Fn(expr.Bin(expr.Equal, expr.SafeCast(o, baseDocument), expr.Null(baseDocument)), o)),
	)
}

func TestNewArgumentNull(t *testing.T) {
	cache := builder.NewCache(builder.NewRegistry())

	_, err := New(nil, cache)
	assert.True(t, IsArgumentNull(err))

	_, err = New(testutil.StubSession("s"), nil)
	assert.True(t, IsArgumentNull(err))

	var ae *ArgumentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "cache", ae.Argument)
}

func TestNewSourceArgumentNull(t *testing.T) {
	f := newFixture(t)

	_, err := NewSource(nil, f.root)
	assert.True(t, IsArgumentNull(err))

	_, err = NewSource(f.provider, nil)
	assert.True(t, IsArgumentNull(err))
}

func TestCreateQueryRequiresGenericShape(t *testing.T) {
	f := newFixture(t)
	count := expr.Call(expr.Int, expr.QueryOperator(expr.OpCount), linq.Source(order))

	_, err := f.provider.CreateQueryOf(order, count)
	assert.True(t, IsUnsupportedExpressionShape(err))

	_, err = CreateTyped[ir.IRObject](f.provider, order, count)
	assert.True(t, IsUnsupportedExpressionShape(err))

	_, err = f.provider.CreateQuery(count)
	assert.True(t, IsUnsupportedExpressionShape(err))

	_, err = f.provider.CreateQuery(nil)
	assert.True(t, IsArgumentNull(err))
}

func TestCreateQueryInfersElementType(t *testing.T) {
	f := newFixture(t)
	src := linq.Source(order)

	q, err := f.provider.CreateQuery(src)
	require.NoError(t, err)
	assert.True(t, q.ElementType().Equal(order))
	assert.Same(t, src, q.Expression())
	assert.Equal(t, f.provider, q.Provider())
}

func TestExecuteConstantShortCircuit(t *testing.T) {
	f := newFixture(t)
	nq := testutil.NewCountingQuery(order)

	got, err := f.provider.Execute(context.Background(), expr.Const(nq, expr.SequenceOf(order)))
	require.NoError(t, err)

	assert.Same(t, nq, got)
	assert.Empty(t, nq.Calls.Composed())
	assert.Empty(t, nq.Calls.Executed())
	assert.Equal(t, 0, nq.Calls.Enumerates())
	assert.Equal(t, int64(0), f.cache.Builds())
}

func TestExecuteSequenceHandsNormalizedTreeToNative(t *testing.T) {
	f := newFixture(t)
	tree := whereSafeCastTree()

	got, err := f.provider.Execute(context.Background(), tree)
	require.NoError(t, err)

	q, ok := got.(*Query)
	require.True(t, ok, "sequence execution returns a composable query, got %T", got)
	assert.NotNil(t, q.NativeQuery())
	assert.True(t, q.ElementType().Equal(order))

	composed := f.root.Calls.Composed()
	require.Len(t, composed, 1)
	assert.True(t, expr.Equivalent(normalize.Normalize(tree), composed[0]), expr.Format(composed[0]))
	assert.Equal(t, "Where(Source<Order>(), o => false)", expr.Format(composed[0]))
	assert.Empty(t, f.root.Calls.Executed())
}

func TestExecuteScalarDelegatesToNativeExecute(t *testing.T) {
	f := newFixture(t)
	f.root.Scalar = int64(3)
	count := expr.Call(expr.Int, expr.QueryOperator(expr.OpCount), linq.Source(order))

	got, err := f.provider.Execute(context.Background(), count)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)

	executed := f.root.Calls.Executed()
	require.Len(t, executed, 1)
	assert.Same(t, count, executed[0])
	assert.Empty(t, f.root.Calls.Composed())
}

func TestExecuteProjectionMaterializes(t *testing.T) {
	f := newFixture(t, int64(1), int64(2))
	o := expr.Param("o", order)
	sel := expr.Call(expr.SequenceOf(expr.Int), expr.QueryOperator(expr.OpSelect),
		linq.Source(order), expr.QuoteOf(expr.Fn(expr.MustProp(o, "ID"), o)))

	got, err := f.provider.Execute(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, got)
	assert.Len(t, f.root.Calls.Composed(), 1)
	assert.Equal(t, 1, f.root.Calls.Enumerates())
}

func TestExecuteNoEntityType(t *testing.T) {
	f := newFixture(t)
	_, err := f.provider.Execute(context.Background(), linq.Source(summary))
	assert.True(t, builder.IsNoEntityTypeFound(err))
}

func TestExecuteBuilderFailureIsRootCause(t *testing.T) {
	errBoom := errors.New("mapping for Order is invalid")
	reg := builder.NewRegistry()
	require.NoError(t, reg.Register(order, func(*expr.Type) (*builder.Entry, error) {
		return nil, errBoom
	}))
	p, err := New(testutil.StubSession("s1"), builder.NewCache(reg))
	require.NoError(t, err)

	_, err = p.Execute(context.Background(), linq.Source(order))
	assert.Equal(t, errBoom, err)
}

func TestEnumerateReExecutesEveryTime(t *testing.T) {
	f := newFixture(t, ir.O("ID", 1), ir.O("ID", 2))

	q, err := f.provider.CreateQuery(whereSafeCastTree())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		rows, err := linq.ToSlice(context.Background(), q)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	}
	assert.Len(t, f.root.Calls.Composed(), 3)
	assert.Equal(t, 3, f.root.Calls.Enumerates())
	assert.Equal(t, int64(1), f.cache.Builds())
}

func TestSourceFormExpressionHoldsItself(t *testing.T) {
	f := newFixture(t, ir.O("ID", 1))
	src, err := NewSource(f.provider, f.root)
	require.NoError(t, err)

	c, ok := src.Expression().(*expr.Constant)
	require.True(t, ok)
	assert.Same(t, src, c.Value)

	rows, err := src.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Empty(t, f.root.Calls.Composed())
}

func TestComposeOntoSourceForm(t *testing.T) {
	f := newFixture(t)
	src, err := NewSource(f.provider, f.root)
	require.NoError(t, err)

	it := linq.It(order)
	pred, err := linq.Eq(expr.MustProp(it, "Active"), linq.Lit(true, expr.Bool))
	require.NoError(t, err)
	q, err := linq.Where(src, linq.Lambda(it, pred))
	require.NoError(t, err)

	_, err = linq.ToSlice(context.Background(), q)
	require.NoError(t, err)

	composed := f.root.Calls.Composed()
	require.Len(t, composed, 1)
	assert.Equal(t, "Where(Query<Order>, it => (it.Active == true))", expr.Format(composed[0]))
}

func TestConcurrentExecuteBuildsOnce(t *testing.T) {
	f := newFixture(t)
	const goroutines = 32

	var wg sync.WaitGroup
	errs := make([]error, goroutines)
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = f.provider.Execute(context.Background(), linq.Source(order))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), f.cache.Builds())
}

func TestExecuteAs(t *testing.T) {
	f := newFixture(t)
	f.root.Scalar = int64(5)
	count := expr.Call(expr.Int, expr.QueryOperator(expr.OpCount), linq.Source(order))

	n, err := ExecuteAs[int64](context.Background(), f.provider, count)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, err = ExecuteAs[string](context.Background(), f.provider, count)
	assert.Error(t, err)
}

type orderRow struct {
	ID     int64
	Total  string
	Active bool
}

func TestTypedQueryDecodesRows(t *testing.T) {
	f := newFixture(t,
		ir.O("ID", 1, "Total", ir.MustIRDecimal("12.50"), "Active", true),
		ir.O("ID", 2, "Total", ir.MustIRDecimal("3"), "Active", false),
	)
	q, err := CreateTyped[orderRow](f.provider, order, linq.Source(order))
	require.NoError(t, err)

	rows, err := q.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []orderRow{
		{ID: 1, Total: "12.5", Active: true},
		{ID: 2, Total: "3", Active: false},
	}, rows)
}

func TestModeOf(t *testing.T) {
	assert.Equal(t, Sequence, ModeOf(expr.SequenceOf(order)))
	assert.Equal(t, Scalar, ModeOf(expr.SequenceOf(expr.Int)))
	assert.Equal(t, Scalar, ModeOf(expr.Int))
	assert.Equal(t, Scalar, ModeOf(order))
	assert.Equal(t, "sequence", Sequence.String())
}
