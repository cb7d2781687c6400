package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"

	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/ir"
)

const decimalPattern = `^-?[0-9]+(\.[0-9]+)?$`

// compileRecordSchema builds the JSON Schema a stored record of t must
// satisfy: every field typed, non-nullable fields required, nothing extra.
func compileRecordSchema(t *expr.Type) (*gojsonschema.Schema, error) {
	props := make(map[string]any)
	var required []any
	for _, f := range t.AllFields() {
		props[f.Name] = jsonSchemaFor(f.Type)
		if f.Type.Kind != expr.KindNullable {
			required = append(required, f.Name)
		}
	}
	doc := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"title":                t.Name,
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
}

func jsonSchemaFor(t *expr.Type) map[string]any {
	nullable := t.Kind == expr.KindNullable
	if nullable {
		t = t.Elem
	}
	var s map[string]any
	switch t.Kind {
	case expr.KindInt:
		s = map[string]any{"type": "integer"}
	case expr.KindBool:
		s = map[string]any{"type": "boolean"}
	case expr.KindDecimal:
		s = map[string]any{"type": "string", "pattern": decimalPattern}
	default:
		s = map[string]any{"type": "string"}
	}
	if nullable {
		s["type"] = []any{s["type"], "null"}
	}
	return s
}

// ValidationError lists the schema violations of one record.
type ValidationError struct {
	Entity string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s record: %s", e.Entity, strings.Join(e.Issues, "; "))
}

// Validate checks rec against t's record schema.
func (m *Model) Validate(t *expr.Type, rec ir.IRObject) error {
	s, ok := m.schemas[t.Name]
	if !ok {
		return fmt.Errorf("entity %s is not part of the model", t.Name)
	}
	data, err := ir.MarshalCanonical(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", t.Name, err)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate %s record: %w", t.Name, err)
	}
	if result.Valid() {
		return nil
	}
	verr := &ValidationError{Entity: t.Name}
	for _, issue := range result.Errors() {
		verr.Issues = append(verr.Issues, issue.String())
	}
	return verr
}

// Coerce converts loosely typed field values (from YAML, JSON or a stored
// row) into the IR values t's fields declare. Missing nullable fields
// become null. Unknown fields are rejected.
func (m *Model) Coerce(t *expr.Type, raw map[string]any) (ir.IRObject, error) {
	out := make(ir.IRObject, len(raw))
	for name, v := range raw {
		ft, ok := t.Field(name)
		if !ok {
			return nil, fmt.Errorf("%s has no field %q", t.Name, name)
		}
		iv, err := coerceValue(ft, v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, name, err)
		}
		out[name] = iv
	}
	for _, f := range t.AllFields() {
		if _, ok := out[f.Name]; !ok && f.Type.Kind == expr.KindNullable {
			out[f.Name] = ir.IRNull{}
		}
	}
	return out, nil
}

// CoerceObject is Coerce for a record already decoded into IR values.
func (m *Model) CoerceObject(t *expr.Type, obj ir.IRObject) (ir.IRObject, error) {
	raw := make(map[string]any, len(obj))
	for k, v := range obj {
		raw[k] = v
	}
	return m.Coerce(t, raw)
}

func coerceValue(t *expr.Type, v any) (ir.IRValue, error) {
	switch v.(type) {
	case nil, ir.IRNull:
		if t.Kind == expr.KindNullable {
			return ir.IRNull{}, nil
		}
		return nil, fmt.Errorf("null is not a %s", t)
	}
	if t.Kind == expr.KindNullable {
		t = t.Elem
	}

	switch t.Kind {
	case expr.KindInt:
		return coerceInt(v)
	case expr.KindBool:
		switch b := v.(type) {
		case bool:
			return ir.IRBool(b), nil
		case ir.IRBool:
			return b, nil
		}
	case expr.KindString:
		switch s := v.(type) {
		case string:
			return ir.IRString(s), nil
		case ir.IRString:
			return s, nil
		}
	case expr.KindDecimal:
		return coerceDecimal(v)
	}
	return nil, fmt.Errorf("%T is not a %s", v, t)
}

func coerceInt(v any) (ir.IRValue, error) {
	switch n := v.(type) {
	case int:
		return ir.IRInt(n), nil
	case int64:
		return ir.IRInt(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows int", n)
		}
		return ir.IRInt(n), nil
	case ir.IRInt:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("%s is not an int", n)
		}
		return ir.IRInt(i), nil
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt64 {
			return nil, fmt.Errorf("%v is not an int", n)
		}
		return ir.IRInt(int64(n)), nil
	}
	return nil, fmt.Errorf("%T is not an int", v)
}

func coerceDecimal(v any) (ir.IRValue, error) {
	var s string
	switch d := v.(type) {
	case ir.IRDecimal:
		return d, nil
	case decimal.Decimal:
		return ir.IRDecimal{Decimal: d}, nil
	case string:
		s = d
	case ir.IRString:
		s = string(d)
	case int:
		return ir.IRDecimal{Decimal: decimal.NewFromInt(int64(d))}, nil
	case int64:
		return ir.IRDecimal{Decimal: decimal.NewFromInt(d)}, nil
	case ir.IRInt:
		return ir.IRDecimal{Decimal: decimal.NewFromInt(int64(d))}, nil
	case json.Number:
		s = d.String()
	case float64:
		// YAML decodes 12.5 as a float; its shortest form is the literal.
		s = strconv.FormatFloat(d, 'f', -1, 64)
	default:
		return nil, fmt.Errorf("%T is not a decimal", v)
	}
	return ir.NewIRDecimal(s)
}
