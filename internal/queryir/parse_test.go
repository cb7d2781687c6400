package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatabridge/internal/ir"
)

func int64Ptr(n int64) *int64 { return &n }

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   Predicate
	}{
		{"empty", "   ", nil},
		{"string equals", "OrderStatus == 'New'", Compare{Field: "OrderStatus", Op: OpEq, Value: ir.IRString("New")}},
		{"double quoted", `OrderStatus == "New"`, Compare{Field: "OrderStatus", Op: OpEq, Value: ir.IRString("New")}},
		{"single equals", "ID = 3", Compare{Field: "ID", Op: OpEq, Value: ir.IRInt(3)}},
		{"not equal", "ID != -3", Compare{Field: "ID", Op: OpNe, Value: ir.IRInt(-3)}},
		{"less or equal", "ID <= 10", Compare{Field: "ID", Op: OpLe, Value: ir.IRInt(10)}},
		{"greater", "Total > 12.50", Compare{Field: "Total", Op: OpGt, Value: ir.MustIRDecimal("12.50")}},
		{"bool", "Active == true", Compare{Field: "Active", Op: OpEq, Value: ir.IRBool(true)}},
		{"null", "CustomerID == null", Compare{Field: "CustomerID", Op: OpEq, Value: ir.IRNull{}}},
		{"bare word", "OrderStatus == New", Compare{Field: "OrderStatus", Op: OpEq, Value: ir.IRString("New")}},
		{"escaped quote", "CustomerID == 'O''Brien'", Compare{Field: "CustomerID", Op: OpEq, Value: ir.IRString("O'Brien")}},
		{"operator inside quotes", "OrderStatus == 'a<=b'", Compare{Field: "OrderStatus", Op: OpEq, Value: ir.IRString("a<=b")}},
		{"type test", "is Order", TypeIs{Entity: "Order"}},
		{"safe cast null", "as Order == null", CastIsNull{Entity: "Order"}},
		{"safe cast not null", "AS Order != null", Not{Predicate: CastIsNull{Entity: "Order"}}},
		{"compare", "compare(OrderStatus, 'M') < 0", StringCompare{Field: "OrderStatus", Value: "M", Op: OpLt}},
		{"compare with mode", "compare(OrderStatus, 'm', 5) >= 0", StringCompare{Field: "OrderStatus", Value: "m", Mode: int64Ptr(5), Op: OpGe}},
		{
			"and",
			"Active == true AND ID > 1",
			And{Predicates: []Predicate{
				Compare{Field: "Active", Op: OpEq, Value: ir.IRBool(true)},
				Compare{Field: "ID", Op: OpGt, Value: ir.IRInt(1)},
			}},
		},
		{
			"and binds tighter than or",
			"ID == 1 or ID == 2 and Active == true",
			Or{Predicates: []Predicate{
				Compare{Field: "ID", Op: OpEq, Value: ir.IRInt(1)},
				And{Predicates: []Predicate{
					Compare{Field: "ID", Op: OpEq, Value: ir.IRInt(2)},
					Compare{Field: "Active", Op: OpEq, Value: ir.IRBool(true)},
				}},
			}},
		},
		{
			"parentheses",
			"(ID == 1 or ID == 2) and Active == true",
			And{Predicates: []Predicate{
				Or{Predicates: []Predicate{
					Compare{Field: "ID", Op: OpEq, Value: ir.IRInt(1)},
					Compare{Field: "ID", Op: OpEq, Value: ir.IRInt(2)},
				}},
				Compare{Field: "Active", Op: OpEq, Value: ir.IRBool(true)},
			}},
		},
		{
			"not",
			"not (is Order)",
			Not{Predicate: TypeIs{Entity: "Order"}},
		},
		{
			"keyword inside quotes",
			"OrderStatus == 'this and that'",
			Compare{Field: "OrderStatus", Op: OpEq, Value: ir.IRString("this and that")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		wantErr string
	}{
		{"no operator", "Active", "no comparison found"},
		{"missing operand", "ID ==", "missing an operand"},
		{"bad field", "1ID == 2", "invalid field name"},
		{"null ordering", "CustomerID < null", "null only supports"},
		{"empty and operand", "ID == 1 and  and ID == 2", "empty operand"},
		{"not without operand", "not  ", "no comparison found"},
		{"cast to value", "as Order == 3", "only null comparisons"},
		{"cast ordering", "as Order < null", "not supported"},
		{"is bad name", "is Or-der", "invalid entity name"},
		{"compare arity", "compare(OrderStatus) < 0", "want 2 or 3 arguments"},
		{"compare unquoted", "compare(OrderStatus, M) < 0", "quoted string"},
		{"compare mode", "compare(OrderStatus, 'M', x) < 0", "mode must be an integer"},
		{"compare result", "compare(OrderStatus, 'M') < zero", "result must be an integer"},
		{"compare unbalanced", "compare(OrderStatus, 'M' < 0", "unbalanced"},
		{"integer overflow", "ID == 99999999999999999999", "integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilter(tt.filter)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSplitByKeyword(t *testing.T) {
	assert.Equal(t, []string{"a == 1", "b == 2"}, splitByKeyword("a == 1 AND b == 2", "and"))
	assert.Equal(t, []string{"(a == 1 and b == 2)"}, splitByKeyword("(a == 1 and b == 2)", "and"))
	assert.Equal(t, []string{"Orders == 'x or y'"}, splitByKeyword("Orders == 'x or y'", "or"))
}

func TestUnwrapParens(t *testing.T) {
	inner, ok := unwrapParens("(a == 1)")
	assert.True(t, ok)
	assert.Equal(t, "a == 1", inner)

	_, ok = unwrapParens("(a == 1) and (b == 2)")
	assert.False(t, ok)
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, isNumeric("42"))
	assert.True(t, isNumeric("-7"))
	assert.False(t, isNumeric("-"))
	assert.False(t, isNumeric("4.2"))
	assert.True(t, isDecimal("4.2"))
	assert.False(t, isDecimal("4."))
	assert.False(t, isDecimal("4.-2"))
}
