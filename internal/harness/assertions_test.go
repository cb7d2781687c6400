package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatabridge/internal/fixture"
	"github.com/roach88/odatabridge/internal/schema"
	"github.com/roach88/odatabridge/internal/store"
)

// seededContext opens a temp store seeded with the northwind fixture.
func seededContext(t *testing.T) *AssertionContext {
	t.Helper()
	ctx := context.Background()

	m, err := schema.Default()
	require.NoError(t, err)
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f, err := fixture.Load("testdata/scenarios/northwind.yaml")
	require.NoError(t, err)
	_, err = f.Apply(ctx, st, m)
	require.NoError(t, err)

	return &AssertionContext{Store: st, Model: m, Ctx: ctx}
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	actx := seededContext(t)

	errs := EvaluateAssertions([]Assertion{
		{Type: AssertRecordCount, Entity: "Order", Count: 3},
		{Type: AssertRecordCount, Entity: "Contract", Count: 1},
		{Type: AssertRecordCount, Entity: "OrderDetail", Count: 0},
		{Type: AssertRecord, Entity: "Order", Key: 1, Expect: map[string]any{"OrderStatus": "New", "Total": "10.50", "Active": true}},
		{Type: AssertRecord, Entity: "Customer", Key: "O'BR", Expect: map[string]any{"Country": nil}},
	}, actx)

	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	actx := seededContext(t)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"wrong count", Assertion{Type: AssertRecordCount, Entity: "Order", Count: 2}, "2 Order records"},
		{"unknown entity count", Assertion{Type: AssertRecordCount, Entity: "Nope"}, "unknown entity type"},
		{"record missing", Assertion{Type: AssertRecord, Entity: "Order", Key: 99, Expect: map[string]any{"ID": 99}}, "record not found"},
		{"field differs", Assertion{Type: AssertRecord, Entity: "Order", Key: 1, Expect: map[string]any{"OrderStatus": "Shipped"}}, `field "OrderStatus" = "New"`},
		{"field absent", Assertion{Type: AssertRecord, Entity: "Order", Key: 1, Expect: map[string]any{"Colour": "red"}}, "not present"},
		{"bad key type", Assertion{Type: AssertRecord, Entity: "Order", Key: "one", Expect: map[string]any{"ID": 1}}, "key one"},
		{"unknown entity record", Assertion{Type: AssertRecord, Entity: "Nope", Key: 1, Expect: map[string]any{"ID": 1}}, "unknown entity type"},
		{"unknown type", Assertion{Type: "trace_order", Entity: "Order"}, "unknown assertion type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions([]Assertion{tt.assertion}, actx)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "assertions[0]")
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: AssertRecordCount, Expected: "3 Order records", Actual: "2 records"}
	assert.Equal(t, "Assertion failed: record_count\n  Expected: 3 Order records\n  Actual: 2 records", err.Error())
}
