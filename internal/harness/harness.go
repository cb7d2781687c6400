package harness

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/odatabridge/internal/builder"
	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/fixture"
	"github.com/roach88/odatabridge/internal/ir"
	"github.com/roach88/odatabridge/internal/native"
	"github.com/roach88/odatabridge/internal/provider"
	"github.com/roach88/odatabridge/internal/queryir"
	"github.com/roach88/odatabridge/internal/schema"
	"github.com/roach88/odatabridge/internal/store"
)

// Harness holds the per-scenario execution state.
type Harness struct {
	store    *store.Store
	model    *schema.Model
	provider *provider.Provider
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the entity model
// 3. Apply fixtures
// 4. Run queries and compare results with expect clauses
// 5. Evaluate assertions against the stored records
//
// A failed expectation is reported in the Result; the returned error is
// for scenarios that cannot run at all.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	m, err := loadModel(scenario.Model)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for _, path := range scenario.Fixtures {
		f, err := fixture.Load(path)
		if err != nil {
			return nil, err
		}
		n, err := f.Apply(ctx, st, m)
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", path, err)
		}
		result.Seeded += n
	}

	session, err := native.NewSessionWithIDs(st, m, native.NewFixedIDs("scenario:"+scenario.Name))
	if err != nil {
		return nil, err
	}
	reg := builder.NewRegistry()
	if err := native.Register(reg, m); err != nil {
		return nil, err
	}
	p, err := provider.New(session, builder.NewCache(reg))
	if err != nil {
		return nil, err
	}

	h := &Harness{store: st, model: m, provider: p}

	for i := range scenario.Queries {
		h.runQuery(ctx, &scenario.Queries[i], result)
	}

	actx := &AssertionContext{Store: st, Model: m, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	slog.Debug("scenario completed",
		"scenario", scenario.Name,
		"queries", len(scenario.Queries),
		"pass", result.Pass,
	)
	return result, nil
}

func loadModel(path string) (*schema.Model, error) {
	if path == "" {
		return schema.Default()
	}
	m, err := schema.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return m, nil
}

// runQuery executes one step, records it in the trace and checks it.
func (h *Harness) runQuery(ctx context.Context, step *QueryStep, result *Result) {
	ev := TraceEvent{Step: step.Name, Query: step.Describe()}
	defer func() { result.AddTrace(ev) }()

	q, err := step.Query()
	if err == nil {
		if v := queryir.Validate(q); !v.IsDirect {
			ev.Warnings = v.Warnings
		}
		var out any
		out, err = queryir.Run(ctx, h.model, h.provider, q)
		if err == nil {
			err = h.record(&ev, step, out)
		}
	}

	if err != nil {
		ev.Error = err.Error()
		if step.Expect.Error == "" {
			result.AddError(fmt.Sprintf("query %s: unexpected error: %v", step.Name, err))
		} else if !strings.Contains(ev.Error, step.Expect.Error) {
			result.AddError(fmt.Sprintf("query %s: error %q does not contain %q", step.Name, ev.Error, step.Expect.Error))
		}
		return
	}

	if step.Expect.Error != "" {
		result.AddError(fmt.Sprintf("query %s: expected error containing %q, got success", step.Name, step.Expect.Error))
		return
	}

	if step.Expect.Keys != nil {
		want := make([]string, len(step.Expect.Keys))
		for i, k := range step.Expect.Keys {
			want[i] = valueString(k)
		}
		if !slices.Equal(want, ev.Keys) {
			result.AddError(fmt.Sprintf("query %s: keys = %v, want %v", step.Name, ev.Keys, want))
		}
		return
	}

	if !matchValue(ev.Value, step.Expect.Value) {
		result.AddError(fmt.Sprintf("query %s: value = %s, want %s", step.Name, ev.Value, valueString(step.Expect.Value)))
	}
}

// record fills ev from a query result: row keys for rows, a rendered value
// for scalars.
func (h *Harness) record(ev *TraceEvent, step *QueryStep, out any) error {
	elem, ok := h.model.EntitySet(step.Set)
	if !ok {
		return fmt.Errorf("unknown entity set %q", step.Set)
	}

	switch queryir.AggregateOp(step.Aggregate) {
	case "":
		rows, ok := out.([]any)
		if !ok {
			return fmt.Errorf("expected rows, got %T", out)
		}
		return h.recordKeys(ev, elem, rows)
	case queryir.AggFirst, queryir.AggFirstOrDefault:
		if out == nil {
			ev.Keys = []string{}
			return nil
		}
		return h.recordKeys(ev, elem, []any{out})
	}
	ev.Value = valueString(out)
	return nil
}

func (h *Harness) recordKeys(ev *TraceEvent, elem *expr.Type, rows []any) error {
	keyField := elem.KeyField()
	ev.Keys = make([]string, 0, len(rows))
	for i, r := range rows {
		obj, ok := r.(ir.IRObject)
		if !ok {
			return fmt.Errorf("row %d: expected an object, got %T", i, r)
		}
		ev.Keys = append(ev.Keys, valueString(obj[keyField]))
	}
	return nil
}

// valueString renders a result, key or YAML value for comparison.
func valueString(v any) string {
	switch v := v.(type) {
	case nil, ir.IRNull:
		return "null"
	case string:
		return v
	case ir.IRString:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case ir.IRInt:
		return strconv.FormatInt(int64(v), 10)
	case bool:
		return strconv.FormatBool(v)
	case ir.IRBool:
		return strconv.FormatBool(bool(v))
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case decimal.Decimal:
		return v.String()
	case ir.IRDecimal:
		return v.Decimal.String()
	}
	return fmt.Sprintf("%v", v)
}

// matchValue compares a rendered result with an expected YAML value.
// Numbers compare numerically so 15.75, "15.750" and 15.75 all match.
func matchValue(got string, want any) bool {
	ws := valueString(want)
	if got == ws {
		return true
	}
	gd, err := decimal.NewFromString(got)
	if err != nil {
		return false
	}
	wd, err := decimal.NewFromString(ws)
	if err != nil {
		return false
	}
	return gd.Equal(wd)
}
