package fixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatabridge/internal/ir"
	"github.com/roach88/odatabridge/internal/schema"
	"github.com/roach88/odatabridge/internal/store"
)

func testModel(t *testing.T) *schema.Model {
	t.Helper()
	m, err := schema.Default()
	require.NoError(t, err)
	return m
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLoad_PreservesFileOrder(t *testing.T) {
	f, err := Load("testdata/northwind.yaml")
	require.NoError(t, err)

	names := []string{}
	for _, s := range f.Sections {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Orders", "Contract", "Customers", "Products"}, names)
	assert.Equal(t, 8, f.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read fixture file")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown top-level key", "record:\n  Orders: []\n", "failed to parse YAML"},
		{"records not a mapping", "records:\n  - Orders\n", "expected a mapping"},
		{"rows not a list", "records:\n  Orders: {ID: 1}\n", "records.Orders"},
		{"duplicate section", "records:\n  Orders: []\n  Orders: []\n", "duplicate section"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse([]byte("records:\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
}

func TestRecords_ResolvesSetsAndEntities(t *testing.T) {
	m := testModel(t)
	f, err := Load("testdata/northwind.yaml")
	require.NoError(t, err)

	recs, err := f.Records(m)
	require.NoError(t, err)
	require.Len(t, recs, 8)

	assert.Equal(t, "Order", recs[0].Entity)
	assert.Equal(t, ir.IRInt(1), recs[0].Key)
	assert.Equal(t, "Contract", recs[3].Entity)
	assert.Equal(t, "Customer", recs[4].Entity)
	assert.Equal(t, ir.IRString("ALFKI"), recs[4].Key)
	assert.Equal(t, ir.IRString("O'BR"), recs[5].Key)

	// Missing nullable fields are filled with null.
	assert.Equal(t, ir.IRNull{}, recs[1].Data["CustomerID"])
	assert.Equal(t, ir.MustIRDecimal("10.5").String(), recs[0].Data["Total"].(ir.IRDecimal).String())
}

func TestRecords_Errors(t *testing.T) {
	m := testModel(t)

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown section", "records:\n  Nope:\n    - {ID: 1}\n", "unknown entity or entity set"},
		{"abstract set", "records:\n  Documents:\n    - {ID: 1}\n", "abstract"},
		{"unknown field", "records:\n  Orders:\n    - {ID: 1, Colour: red, OrderStatus: New, Total: 1, Active: true}\n", "Colour"},
		{"wrong type", "records:\n  Orders:\n    - {ID: one, OrderStatus: New, Total: 1, Active: true}\n", "Orders[0]"},
		{"missing required field", "records:\n  Orders:\n    - {ID: 1, Total: 1, Active: true}\n", "Orders[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = f.Records(m)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	m := testModel(t)
	st := testStore(t)

	f, err := Load("testdata/northwind.yaml")
	require.NoError(t, err)

	n, err := f.Apply(ctx, st, m)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	rec, ok, err := st.Get(ctx, "Customer", ir.IRString("O'BR"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.IRString("O'Brien Trading"), rec.Data["CompanyName"])

	// Re-applying the same fixture is idempotent.
	n, err = f.Apply(ctx, st, m)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	count, err := st.QueryScalar(ctx, "SELECT COUNT(*) FROM records")
	require.NoError(t, err)
	assert.Equal(t, int64(8), count)
}

func TestApply_InvalidFixtureWritesNothing(t *testing.T) {
	ctx := context.Background()
	m := testModel(t)
	st := testStore(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	data := "records:\n  Orders:\n    - {ID: 1, OrderStatus: New, Total: 1, Active: true}\n  Products:\n    - {ProductID: 2}\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	_, err = f.Apply(ctx, st, m)
	require.Error(t, err)

	count, err := st.QueryScalar(ctx, "SELECT COUNT(*) FROM records")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
