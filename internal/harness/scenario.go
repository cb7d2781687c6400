package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/odatabridge/internal/queryir"
)

// Scenario defines a query scenario: seed data, queries with expected
// results, and assertions on the stored records.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is an optional path to a CUE entity model.
	// Empty means the default model.
	Model string `yaml:"model,omitempty"`

	// Fixtures lists seed files applied in order before the queries.
	Fixtures []string `yaml:"fixtures,omitempty"`

	// Queries run in order against the seeded store.
	Queries []QueryStep `yaml:"queries"`

	// Assertions validate the stored records after the queries.
	// Supported types: record_count, record
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// QueryStep is one query and its expected outcome.
type QueryStep struct {
	// Name identifies the step in the trace.
	Name string `yaml:"name"`

	// Set is the entity set queried (e.g., "Orders").
	Set string `yaml:"set"`

	// Filter is a filter expression (see queryir.ParseFilter).
	Filter string `yaml:"filter,omitempty"`

	// OrderBy lists sort keys: "Field" or "Field desc".
	OrderBy []string `yaml:"order_by,omitempty"`

	Skip int  `yaml:"skip,omitempty"`
	Take *int `yaml:"take,omitempty"`

	// Aggregate is count, any, first, firstOrDefault or sum.
	// Empty means the rows are returned.
	Aggregate string `yaml:"aggregate,omitempty"`

	// Field is the summed field (used by sum).
	Field string `yaml:"field,omitempty"`

	Expect ExpectClause `yaml:"expect"`
}

// ExpectClause specifies the expected query result.
// Exactly one of Keys, Value or Error is set.
type ExpectClause struct {
	// Keys are the expected row keys in order. An empty list expects no rows.
	Keys []any `yaml:"keys,omitempty"`

	// Value is the expected scalar (count, any, sum).
	Value any `yaml:"value,omitempty"`

	// Error is a substring of the expected error message.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates stored records.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record_count": Count stored records of Entity
	// - "record": Look up Entity by Key and verify expected fields
	Type string `yaml:"type"`

	// Entity is the entity type name.
	Entity string `yaml:"entity"`

	// Key is the record key (used by record).
	Key any `yaml:"key,omitempty"`

	// Count is the expected number of records (used by record_count).
	Count int `yaml:"count,omitempty"`

	// Expect contains expected field values (used by record).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordCount = "record_count"
	AssertRecord      = "record"
)

// LoadScenario reads and parses a scenario YAML file.
// Model and fixture paths are resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving relative paths against
// basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "querys:" vs "queries:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths relative to base path BEFORE validation
	scenario.Model = resolvePath(basePath, scenario.Model)
	for i, p := range scenario.Fixtures {
		scenario.Fixtures[i] = resolvePath(basePath, p)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	if s.Model != "" {
		if _, err := os.Stat(s.Model); os.IsNotExist(err) {
			return fmt.Errorf("model file not found: %s", s.Model)
		}
	}
	for _, p := range s.Fixtures {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("fixture file not found: %s", p)
		}
	}

	names := make(map[string]bool)
	for i, q := range s.Queries {
		if q.Name == "" {
			return fmt.Errorf("queries[%d]: name is required", i)
		}
		if names[q.Name] {
			return fmt.Errorf("queries[%d]: duplicate name %q", i, q.Name)
		}
		names[q.Name] = true
		if err := validateQuery(i, &q); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateQuery checks one query step and its expectation.
func validateQuery(index int, q *QueryStep) error {
	if q.Set == "" {
		return fmt.Errorf("queries[%d]: set is required", index)
	}
	if q.Skip < 0 || (q.Take != nil && *q.Take < 0) {
		return fmt.Errorf("queries[%d]: skip and take must be non-negative", index)
	}

	set := 0
	if q.Expect.Keys != nil {
		set++
	}
	if q.Expect.Value != nil {
		set++
	}
	if q.Expect.Error != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("queries[%d].expect: exactly one of keys, value or error is required", index)
	}

	switch queryir.AggregateOp(q.Aggregate) {
	case "", queryir.AggFirst, queryir.AggFirstOrDefault:
		if q.Expect.Value != nil {
			return fmt.Errorf("queries[%d].expect: rows are checked with keys, not value", index)
		}
	case queryir.AggCount, queryir.AggAny:
		if q.Expect.Keys != nil {
			return fmt.Errorf("queries[%d].expect: %s is checked with value, not keys", index, q.Aggregate)
		}
	case queryir.AggSum:
		if q.Field == "" {
			return fmt.Errorf("queries[%d]: field is required for sum", index)
		}
		if q.Expect.Keys != nil {
			return fmt.Errorf("queries[%d].expect: sum is checked with value, not keys", index)
		}
	default:
		return fmt.Errorf("queries[%d]: unknown aggregate %q", index, q.Aggregate)
	}

	for _, key := range q.OrderBy {
		if _, err := parseOrderKey(key); err != nil {
			return fmt.Errorf("queries[%d]: %w", index, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Entity == "" {
		return fmt.Errorf("assertions[%d]: entity is required", index)
	}

	switch a.Type {
	case AssertRecordCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
	case AssertRecord:
		if a.Key == nil {
			return fmt.Errorf("assertions[%d]: key is required for record", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for record", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// parseOrderKey parses "Field" or "Field asc|desc".
func parseOrderKey(s string) (queryir.OrderKey, error) {
	parts := strings.Fields(s)
	switch {
	case len(parts) == 1:
		return queryir.OrderKey{Field: parts[0]}, nil
	case len(parts) == 2 && strings.EqualFold(parts[1], "asc"):
		return queryir.OrderKey{Field: parts[0]}, nil
	case len(parts) == 2 && strings.EqualFold(parts[1], "desc"):
		return queryir.OrderKey{Field: parts[0], Descending: true}, nil
	}
	return queryir.OrderKey{}, fmt.Errorf("invalid order key %q", s)
}

// Query converts the step into a queryir query.
func (q *QueryStep) Query() (queryir.Query, error) {
	filter, err := queryir.ParseFilter(q.Filter)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	sel := queryir.Select{From: q.Set, Filter: filter, Skip: q.Skip, Take: q.Take}
	for _, s := range q.OrderBy {
		key, err := parseOrderKey(s)
		if err != nil {
			return nil, err
		}
		sel.OrderBy = append(sel.OrderBy, key)
	}
	if q.Aggregate == "" {
		return sel, nil
	}
	return queryir.Aggregate{Source: sel, Op: queryir.AggregateOp(q.Aggregate), Field: q.Field}, nil
}

// Describe renders the step as one line for the trace.
func (q *QueryStep) Describe() string {
	parts := []string{q.Set}
	if q.Filter != "" {
		parts = append(parts, "filter "+q.Filter)
	}
	if len(q.OrderBy) > 0 {
		parts = append(parts, "order by "+strings.Join(q.OrderBy, ", "))
	}
	if q.Skip != 0 {
		parts = append(parts, fmt.Sprintf("skip %d", q.Skip))
	}
	if q.Take != nil {
		parts = append(parts, fmt.Sprintf("take %d", *q.Take))
	}
	if q.Aggregate != "" {
		agg := q.Aggregate
		if q.Field != "" {
			agg += " " + q.Field
		}
		parts = append(parts, agg)
	}
	return strings.Join(parts, " | ")
}
