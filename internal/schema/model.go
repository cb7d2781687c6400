package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/roach88/odatabridge/internal/expr"
)

// Model is a loaded entity model: entity types, their keys, and the entity
// sets that expose them. A Model is immutable after loading and safe for
// concurrent use.
type Model struct {
	entities map[string]*expr.Type
	order    []string // declaration order, bases before derived
	sets     map[string]*expr.Type
	setNames []string
	schemas  map[string]*gojsonschema.Schema
}

// Entity returns the entity type with the given name.
func (m *Model) Entity(name string) (*expr.Type, bool) {
	t, ok := m.entities[name]
	return t, ok
}

// Entities returns every entity type, bases before derived types.
func (m *Model) Entities() []*expr.Type {
	out := make([]*expr.Type, len(m.order))
	for i, name := range m.order {
		out[i] = m.entities[name]
	}
	return out
}

// EntitySet returns the entity type exposed by the named set.
func (m *Model) EntitySet(name string) (*expr.Type, bool) {
	t, ok := m.sets[name]
	return t, ok
}

// EntitySets returns the set names in sorted order.
func (m *Model) EntitySets() []string {
	return slices.Clone(m.setNames)
}

// SetOf returns the name of the set exposing exactly t.
func (m *Model) SetOf(t *expr.Type) (string, bool) {
	for _, name := range m.setNames {
		if m.sets[name].Equal(t) {
			return name, true
		}
	}
	return "", false
}

// Subtypes returns t and every entity deriving from it, sorted by name.
func (m *Model) Subtypes(t *expr.Type) []*expr.Type {
	var out []*expr.Type
	for _, name := range m.order {
		if e := m.entities[name]; e.DerivesFrom(t) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *expr.Type) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func newModel(specs []entitySpec, sets map[string]string) (*Model, error) {
	byName := make(map[string]entitySpec, len(specs))
	for _, s := range specs {
		byName[s.name] = s
	}

	m := &Model{
		entities: make(map[string]*expr.Type, len(specs)),
		sets:     make(map[string]*expr.Type, len(sets)),
		schemas:  make(map[string]*gojsonschema.Schema, len(specs)),
	}

	visiting := make(map[string]bool)
	var resolve func(name string) (*expr.Type, error)
	resolve = func(name string) (*expr.Type, error) {
		if t, ok := m.entities[name]; ok {
			return t, nil
		}
		spec, ok := byName[name]
		if !ok {
			return nil, &LoadError{Field: "entity", Message: fmt.Sprintf("unknown entity %q", name)}
		}
		if visiting[name] {
			return nil, &LoadError{Field: "entity." + name + ".base", Message: "inheritance cycle", Pos: spec.pos}
		}
		visiting[name] = true
		defer delete(visiting, name)

		var base *expr.Type
		if spec.base != "" {
			b, err := resolve(spec.base)
			if err != nil {
				return nil, err
			}
			base = b
		}

		fields := make([]expr.Field, 0, len(spec.fields))
		for _, f := range spec.fields {
			ft, err := fieldType(f.typ)
			if err != nil {
				return nil, &LoadError{Field: "entity." + name + ".fields." + f.name, Message: err.Error(), Pos: spec.pos}
			}
			if base != nil {
				if _, dup := base.Field(f.name); dup {
					return nil, &LoadError{Field: "entity." + name + ".fields." + f.name, Message: "redeclares an inherited field", Pos: spec.pos}
				}
			}
			fields = append(fields, expr.Field{Name: f.name, Type: ft})
		}

		t := expr.NewEntity(name, base, fields...)
		t.Key = spec.key
		t.Abstract = spec.abstract
		if err := checkKey(t, spec); err != nil {
			return nil, err
		}

		m.entities[name] = t
		m.order = append(m.order, name)
		return t, nil
	}

	for _, s := range specs {
		if _, err := resolve(s.name); err != nil {
			return nil, err
		}
	}

	for setName, target := range sets {
		t, ok := m.entities[target]
		if !ok {
			return nil, &LoadError{Field: "entitySet." + setName, Message: fmt.Sprintf("unknown entity %q", target)}
		}
		m.sets[setName] = t
		m.setNames = append(m.setNames, setName)
	}
	slices.Sort(m.setNames)

	for _, name := range m.order {
		s, err := compileRecordSchema(m.entities[name])
		if err != nil {
			return nil, fmt.Errorf("record schema for %s: %w", name, err)
		}
		m.schemas[name] = s
	}
	return m, nil
}

func checkKey(t *expr.Type, spec entitySpec) error {
	key := t.KeyField()
	if key == "" {
		if t.Abstract {
			return nil
		}
		return &LoadError{Field: "entity." + spec.name + ".key", Message: "entity has no key", Pos: spec.pos}
	}
	kt, ok := t.Field(key)
	if !ok {
		return &LoadError{Field: "entity." + spec.name + ".key", Message: fmt.Sprintf("key %q is not a field", key), Pos: spec.pos}
	}
	if kt.Kind != expr.KindInt && kt.Kind != expr.KindString {
		return &LoadError{Field: "entity." + spec.name + ".key", Message: fmt.Sprintf("key %q must be a non-nullable int or string", key), Pos: spec.pos}
	}
	return nil
}

func fieldType(s string) (*expr.Type, error) {
	nullable := strings.HasSuffix(s, "?")
	var t *expr.Type
	switch strings.TrimSuffix(s, "?") {
	case "int":
		t = expr.Int
	case "string":
		t = expr.String
	case "bool":
		t = expr.Bool
	case "decimal":
		t = expr.Decimal
	default:
		return nil, fmt.Errorf("unknown field type %q", s)
	}
	if nullable {
		return expr.NullableOf(t), nil
	}
	return t, nil
}
