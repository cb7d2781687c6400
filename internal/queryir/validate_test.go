package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatabridge/internal/ir"
)

func TestValidate_DirectQuery(t *testing.T) {
	take := 10
	query := Select{
		From: "Orders",
		Filter: And{Predicates: []Predicate{
			Compare{Field: "OrderStatus", Op: OpEq, Value: ir.IRString("New")},
			TypeIs{Entity: "Order"},
			StringCompare{Field: "OrderStatus", Value: "M", Op: OpLt},
		}},
		OrderBy: []OrderKey{{Field: "ID"}},
		Take:    &take,
	}

	result := Validate(query)

	assert.True(t, result.IsDirect)
	assert.Empty(t, result.Warnings)
}

func TestValidate_SafeCastNeedsRewrite(t *testing.T) {
	query := Select{
		From:   "Documents",
		Filter: Not{Predicate: CastIsNull{Entity: "Order"}},
	}

	result := Validate(query)

	assert.False(t, result.IsDirect)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "safe cast to Order")
}

func TestValidate_CompareModeNeedsRewrite(t *testing.T) {
	query := Select{
		From: "Orders",
		Filter: Or{Predicates: []Predicate{
			StringCompare{Field: "OrderStatus", Value: "m", Mode: int64Ptr(5), Op: OpEq},
			CastIsNull{Entity: "Contract"},
		}},
	}

	result := Validate(query)

	assert.False(t, result.IsDirect)
	assert.Len(t, result.Warnings, 2)
}

func TestValidate_Structure(t *testing.T) {
	take := -1
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"nil query", nil, "nil query"},
		{"missing set", Select{}, "no entity set"},
		{"negative skip", Select{From: "Orders", Skip: -2}, "negative skip"},
		{"negative take", Select{From: "Orders", Take: &take}, "negative take"},
		{"sum without field", Aggregate{Source: Select{From: "Orders"}, Op: AggSum}, "sum requires a field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			assert.False(t, result.IsDirect)
			require.Len(t, result.Warnings, 1)
			assert.Contains(t, result.Warnings[0], tt.want)
		})
	}
}

func TestValidate_AggregateInspectsSource(t *testing.T) {
	query := Aggregate{
		Source: Select{From: "Documents", Filter: CastIsNull{Entity: "Order"}},
		Op:     AggCount,
	}

	result := Validate(query)

	assert.False(t, result.IsDirect)
	assert.Len(t, result.Warnings, 1)
}

func TestCompareOpString(t *testing.T) {
	assert.Equal(t, "<=", OpLe.String())
	assert.Equal(t, "CompareOp(42)", CompareOp(42).String())
}
