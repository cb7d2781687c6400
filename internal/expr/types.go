package expr

import "fmt"

// Kind classifies a Type.
type Kind int

const (
	KindObject Kind = iota
	KindBool
	KindInt
	KindString
	KindDecimal
	KindEntity
	KindSequence
	KindNullable
	KindFunc
)

// Field is a named, typed entity property.
type Field struct {
	Name string
	Type *Type
}

// Type is the static type of an expression node.
//
// Primitive and entity types are compared by identity of name and kind;
// Sequence, Nullable and Func types are compared structurally through Elem.
type Type struct {
	Name     string
	Kind     Kind
	Elem     *Type   // Sequence, Nullable: element type; Func: result type
	Base     *Type   // Entity: base type (nil only for PersistentBase and plain objects)
	Fields   []Field // Entity: declared fields, base fields excluded
	Key      string  // Entity: key field name, inherited when empty
	Abstract bool    // Entity: no rows of exactly this type
}

// Predeclared types.
var (
	Object         = &Type{Name: "object", Kind: KindObject}
	Bool           = &Type{Name: "bool", Kind: KindBool}
	Int            = &Type{Name: "int", Kind: KindInt}
	String         = &Type{Name: "string", Kind: KindString}
	Decimal        = &Type{Name: "decimal", Kind: KindDecimal}
	NullableBool   = NullableOf(Bool)
	PersistentBase = &Type{Name: "PersistentBase", Kind: KindEntity, Abstract: true}

	// StringComparison is the mode argument of the three-argument compare.
	StringComparison = &Type{Name: "StringComparison", Kind: KindInt}
)

// SequenceOf returns the generic sequence type with element t.
func SequenceOf(t *Type) *Type {
	return &Type{Name: "Sequence", Kind: KindSequence, Elem: t}
}

// NullableOf returns the nullable form of t. Nullable types are not nested.
func NullableOf(t *Type) *Type {
	if t.Kind == KindNullable {
		return t
	}
	return &Type{Name: "Nullable", Kind: KindNullable, Elem: t}
}

// FuncOf returns the type of a lambda producing result.
func FuncOf(result *Type) *Type {
	return &Type{Name: "Func", Kind: KindFunc, Elem: result}
}

// NewEntity declares an entity type deriving from base. A nil base means
// PersistentBase.
func NewEntity(name string, base *Type, fields ...Field) *Type {
	if base == nil {
		base = PersistentBase
	}
	return &Type{Name: name, Kind: KindEntity, Base: base, Fields: fields}
}

// NewObject declares a non-persistent structured type, such as a projection
// target. It is never recognized as an entity.
func NewObject(name string, fields ...Field) *Type {
	return &Type{Name: name, Kind: KindObject, Fields: fields}
}

// String renders the type the way it appears in printed trees.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindSequence:
		return fmt.Sprintf("Sequence<%s>", t.Elem)
	case KindNullable:
		return t.Elem.String() + "?"
	case KindFunc:
		return fmt.Sprintf("Func<%s>", t.Elem)
	default:
		return t.Name
	}
}

// IsGeneric reports whether t is a parameterized shape.
func (t *Type) IsGeneric() bool {
	return t != nil && (t.Kind == KindSequence || t.Kind == KindNullable)
}

// ElementType returns the element of a sequence type, or nil.
func (t *Type) ElementType() *Type {
	if t == nil || t.Kind != KindSequence {
		return nil
	}
	return t.Elem
}

// IsPersistent reports whether t is an entity recognized by the persistence
// engine: a proper subtype of PersistentBase.
func (t *Type) IsPersistent() bool {
	if t == nil || t.Kind != KindEntity || t == PersistentBase {
		return false
	}
	return t.DerivesFrom(PersistentBase)
}

// IsBoolean reports whether t is bool or bool?.
func (t *Type) IsBoolean() bool {
	if t == nil {
		return false
	}
	if t.Kind == KindNullable {
		return t.Elem.Kind == KindBool
	}
	return t.Kind == KindBool
}

// IsNullableBool reports whether t is bool?.
func (t *Type) IsNullableBool() bool {
	return t != nil && t.Kind == KindNullable && t.Elem.Kind == KindBool
}

// DerivesFrom reports whether u appears on t's base chain (t itself included).
func (t *Type) DerivesFrom(u *Type) bool {
	for cur := t; cur != nil; cur = cur.Base {
		if cur.Equal(u) {
			return true
		}
	}
	return false
}

// Equal reports whether t and u denote the same type.
func (t *Type) Equal(u *Type) bool {
	if t == u {
		return true
	}
	if t == nil || u == nil || t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case KindSequence, KindNullable, KindFunc:
		return t.Elem.Equal(u.Elem)
	default:
		return t.Name == u.Name
	}
}

// AssignableTo reports whether a value of type t can be used where u is
// expected without a runtime check: identical types, an entity to one of
// its bases, a value to its nullable form, and anything to object.
func (t *Type) AssignableTo(u *Type) bool {
	if t == nil || u == nil {
		return false
	}
	if t.Equal(u) || u.Equal(Object) {
		return true
	}
	switch {
	case u.Kind == KindNullable && t.Kind != KindNullable:
		return t.Equal(u.Elem)
	case t.Kind == KindEntity && u.Kind == KindEntity:
		return t.DerivesFrom(u)
	case t.Kind == KindSequence && u.Kind == KindSequence:
		// sequences are covariant in their element
		return t.Elem.AssignableTo(u.Elem)
	}
	return false
}

// Field looks up a field by name, searching base types.
func (t *Type) Field(name string) (*Type, bool) {
	for cur := t; cur != nil; cur = cur.Base {
		for _, f := range cur.Fields {
			if f.Name == name {
				return f.Type, true
			}
		}
	}
	return nil, false
}

// AllFields returns base fields first, then t's own fields.
func (t *Type) AllFields() []Field {
	if t == nil {
		return nil
	}
	fields := t.Base.AllFields()
	return append(fields, t.Fields...)
}

// KeyField returns the entity key field name, inherited from bases.
func (t *Type) KeyField() string {
	for cur := t; cur != nil; cur = cur.Base {
		if cur.Key != "" {
			return cur.Key
		}
	}
	return ""
}
