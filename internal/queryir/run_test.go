package queryir

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatabridge/internal/builder"
	"github.com/roach88/odatabridge/internal/ir"
	"github.com/roach88/odatabridge/internal/native"
	"github.com/roach88/odatabridge/internal/provider"
	"github.com/roach88/odatabridge/internal/schema"
	"github.com/roach88/odatabridge/internal/store"
)

// newProvider returns a provider over a store seeded with three orders and
// one contract.
func newProvider(t *testing.T) (*provider.Provider, *schema.Model) {
	t.Helper()
	ctx := context.Background()
	m := defaultModel(t)

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	seed := []struct {
		entity string
		data   map[string]any
	}{
		{"Order", map[string]any{"ID": 1, "OrderStatus": "New", "Total": "10.50", "Active": true, "CustomerID": "ALFKI"}},
		{"Order", map[string]any{"ID": 2, "OrderStatus": "Shipped", "Total": "20", "Active": true}},
		{"Order", map[string]any{"ID": 3, "OrderStatus": "New", "Total": "5.25", "Active": false}},
		{"Contract", map[string]any{"ID": 4, "Number": "C-1", "Signed": true}},
	}
	var recs []store.Record
	for _, s := range seed {
		et, ok := m.Entity(s.entity)
		require.True(t, ok)
		obj, err := m.Coerce(et, s.data)
		require.NoError(t, err)
		recs = append(recs, store.Record{Entity: s.entity, Key: obj["ID"], Data: obj})
	}
	require.NoError(t, st.PutAll(ctx, recs))

	session, err := native.NewSession(st, m)
	require.NoError(t, err)
	reg := builder.NewRegistry()
	require.NoError(t, native.Register(reg, m))
	p, err := provider.New(session, builder.NewCache(reg))
	require.NoError(t, err)
	return p, m
}

func mustFilter(t *testing.T, s string) Predicate {
	t.Helper()
	p, err := ParseFilter(s)
	require.NoError(t, err)
	return p
}

func ids(t *testing.T, v any) []int64 {
	t.Helper()
	rows, ok := v.([]any)
	require.True(t, ok, "want rows, got %T", v)
	out := []int64{}
	for _, r := range rows {
		obj, ok := r.(ir.IRObject)
		require.True(t, ok, "want object row, got %T", r)
		out = append(out, int64(obj["ID"].(ir.IRInt)))
	}
	return out
}

func TestRun_Select(t *testing.T) {
	p, m := newProvider(t)
	ctx := context.Background()
	one := 1

	tests := []struct {
		name  string
		query Select
		want  []int64
	}{
		{"all orders", Select{From: "Orders"}, []int64{1, 2, 3}},
		{"base set includes subtypes", Select{From: "Documents"}, []int64{1, 2, 3, 4}},
		{"filter and descending order", Select{From: "Orders", Filter: mustFilter(t, "OrderStatus == 'New'"), OrderBy: []OrderKey{{Field: "ID", Descending: true}}}, []int64{3, 1}},
		{"safe cast null", Select{From: "Documents", Filter: mustFilter(t, "as Order == null")}, []int64{4}},
		{"safe cast not null", Select{From: "Documents", Filter: mustFilter(t, "as Order != null")}, []int64{1, 2, 3}},
		{"type test in or", Select{From: "Documents", Filter: mustFilter(t, "is Contract or ID == 1")}, []int64{1, 4}},
		{"null test", Select{From: "Orders", Filter: mustFilter(t, "CustomerID == null")}, []int64{2, 3}},
		{"decimal compare", Select{From: "Orders", Filter: mustFilter(t, "Total > 10")}, []int64{1, 2}},
		{"string compare", Select{From: "Orders", Filter: mustFilter(t, "compare(OrderStatus, 'O') < 0")}, []int64{1, 3}},
		{"string compare mode", Select{From: "Orders", Filter: mustFilter(t, "compare(OrderStatus, 'New', 5) == 0")}, []int64{1, 3}},
		{"then by", Select{From: "Orders", OrderBy: []OrderKey{{Field: "Active"}, {Field: "Total", Descending: true}}}, []int64{3, 2, 1}},
		{"paging", Select{From: "Orders", OrderBy: []OrderKey{{Field: "ID"}}, Skip: 1, Take: &one}, []int64{2}},
		{"no match", Select{From: "Orders", Filter: mustFilter(t, "ID > 100")}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Run(ctx, m, p, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(t, got))
		})
	}
}

func TestRun_Aggregate(t *testing.T) {
	p, m := newProvider(t)
	ctx := context.Background()
	orders := Select{From: "Orders"}

	got, err := Run(ctx, m, p, Aggregate{Source: Select{From: "Orders", Filter: mustFilter(t, "Active == true")}, Op: AggCount})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	got, err = Run(ctx, m, p, Aggregate{Source: Select{From: "Orders", Filter: mustFilter(t, "ID > 100")}, Op: AggAny})
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = Run(ctx, m, p, Aggregate{Source: orders, Op: AggSum, Field: "Total"})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("35.75").Equal(got.(decimal.Decimal)), "sum = %v", got)

	got, err = Run(ctx, m, p, Aggregate{Source: Select{From: "Orders", OrderBy: []OrderKey{{Field: "ID", Descending: true}}}, Op: AggFirst})
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(3), got.(ir.IRObject)["ID"])

	got, err = Run(ctx, m, p, Aggregate{Source: Select{From: "Orders", Filter: mustFilter(t, "ID > 100")}, Op: AggFirstOrDefault})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRun_Errors(t *testing.T) {
	p, m := newProvider(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		query   Query
		wantErr string
	}{
		{"nil query", nil, "nil query"},
		{"unknown set", Select{From: "Nope"}, "unknown entity set"},
		{"bad filter field", Select{From: "Orders", Filter: mustFilter(t, "Nope == 1")}, "filter"},
		{"bad order field", Select{From: "Orders", OrderBy: []OrderKey{{Field: "Nope"}}}, "order by"},
		{"sum unknown field", Aggregate{Source: Select{From: "Orders"}, Op: AggSum, Field: "Nope"}, "sum"},
		{"unknown aggregate", Aggregate{Source: Select{From: "Orders"}, Op: "median"}, "unknown aggregate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(ctx, m, p, tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
