package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/odatabridge/internal/ir"
	"github.com/roach88/odatabridge/internal/schema"
	"github.com/roach88/odatabridge/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext provides what assertions read from.
type AssertionContext struct {
	Store *store.Store
	Model *schema.Model
	Ctx   context.Context
}

// EvaluateAssertions runs every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRecordCount:
			err = assertRecordCount(actx, a)
		case AssertRecord:
			err = assertRecord(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertRecordCount checks the number of stored records of exactly
// assertion.Entity.
func assertRecordCount(actx *AssertionContext, assertion Assertion) error {
	if _, ok := actx.Model.Entity(assertion.Entity); !ok {
		return fmt.Errorf("unknown entity type %q", assertion.Entity)
	}
	v, err := actx.Store.QueryScalar(actx.Ctx, "SELECT COUNT(*) FROM records WHERE entity = ?", assertion.Entity)
	if err != nil {
		return fmt.Errorf("count %s: %w", assertion.Entity, err)
	}
	count, ok := v.(int64)
	if !ok {
		return fmt.Errorf("count %s: store returned %T", assertion.Entity, v)
	}

	if count != int64(assertion.Count) {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d %s records", assertion.Count, assertion.Entity),
			Actual:   fmt.Sprintf("%d records", count),
		}
	}
	return nil
}

// assertRecord looks up one record by key and validates expected fields
// using subset semantics.
func assertRecord(actx *AssertionContext, assertion Assertion) error {
	t, ok := actx.Model.Entity(assertion.Entity)
	if !ok {
		return fmt.Errorf("unknown entity type %q", assertion.Entity)
	}
	keyType, _ := t.Field(t.KeyField())
	key, err := actx.Model.Coerce(t, map[string]any{t.KeyField(): assertion.Key})
	if err != nil {
		return fmt.Errorf("key %v: %w", assertion.Key, err)
	}

	rec, found, err := actx.Store.Get(actx.Ctx, t.Name, key[t.KeyField()])
	if err != nil {
		return fmt.Errorf("get %s: %w", t.Name, err)
	}
	if !found {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("%s record with key %v (%s)", t.Name, assertion.Key, keyType),
			Actual:   "record not found",
		}
	}

	// Check each expected field in sorted order for deterministic messages
	fields := make([]string, 0, len(assertion.Expect))
	for f := range assertion.Expect {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		expected := assertion.Expect[field]
		actual, exists := rec.Data[field]
		if !exists {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("field %q to exist", field),
				Actual:   fmt.Sprintf("field %q not present in %s record", field, t.Name),
			}
		}
		if !matchValue(valueString(actual), expected) {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("field %q = %s", field, valueString(expected)),
				Actual:   fmt.Sprintf("field %q = %s", field, irString(actual)),
			}
		}
	}
	return nil
}

// irString renders an IR value with its kind for failure messages.
func irString(v ir.IRValue) string {
	switch v.(type) {
	case ir.IRString:
		return fmt.Sprintf("%q", valueString(v))
	}
	return valueString(v)
}
