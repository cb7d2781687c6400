package fixture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/schema"
	"github.com/roach88/odatabridge/internal/store"
)

// File is a parsed fixture.
type File struct {
	Sections []Section
}

// Section is the rows listed under one entity or entity set name.
type Section struct {
	Name string
	Rows []map[string]any
}

type rawFile struct {
	Records yaml.Node `yaml:"records"`
}

// Load reads and parses a fixture file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses fixture YAML. Unknown top-level keys are rejected.
func Parse(data []byte) (*File, error) {
	var raw rawFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	node := &raw.Records
	if node.Kind == 0 {
		return &File{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("records: line %d: expected a mapping of entity names to rows", node.Line)
	}

	f := &File{}
	seen := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		name := key.Value
		if seen[name] {
			return nil, fmt.Errorf("records: line %d: duplicate section %q", key.Line, name)
		}
		seen[name] = true

		var rows []map[string]any
		if err := value.Decode(&rows); err != nil {
			return nil, fmt.Errorf("records.%s: %w", name, err)
		}
		f.Sections = append(f.Sections, Section{Name: name, Rows: rows})
	}
	return f, nil
}

// Len returns the number of rows in f.
func (f *File) Len() int {
	n := 0
	for _, s := range f.Sections {
		n += len(s.Rows)
	}
	return n
}

// Records resolves every row against m and returns store records in file
// order. A section name may be an entity or an entity set; either must
// name a concrete entity type.
func (f *File) Records(m *schema.Model) ([]store.Record, error) {
	recs := make([]store.Record, 0, f.Len())
	for _, s := range f.Sections {
		t, err := resolve(m, s.Name)
		if err != nil {
			return nil, err
		}
		keyField := t.KeyField()
		for i, row := range s.Rows {
			obj, err := m.Coerce(t, row)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", s.Name, i, err)
			}
			if err := m.Validate(t, obj); err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", s.Name, i, err)
			}
			recs = append(recs, store.Record{Entity: t.Name, Key: obj[keyField], Data: obj})
		}
	}
	return recs, nil
}

func resolve(m *schema.Model, name string) (*expr.Type, error) {
	t, ok := m.Entity(name)
	if !ok {
		if t, ok = m.EntitySet(name); !ok {
			return nil, fmt.Errorf("unknown entity or entity set %q", name)
		}
	}
	if t.Abstract {
		return nil, fmt.Errorf("%s: entity type %s is abstract", name, t.Name)
	}
	return t, nil
}

// Apply writes f's records to st in one transaction and returns how many
// were written.
func (f *File) Apply(ctx context.Context, st *store.Store, m *schema.Model) (int, error) {
	recs, err := f.Records(m)
	if err != nil {
		return 0, err
	}
	if err := st.PutAll(ctx, recs); err != nil {
		return 0, fmt.Errorf("apply fixture: %w", err)
	}
	slog.Debug("fixture applied", "records", len(recs), "sections", len(f.Sections))
	return len(recs), nil
}
