package expr

import "fmt"

// Method identifies a callable by declaring type, name and arity.
// Two methods are the same when all three match.
type Method struct {
	DeclaringType *Type
	Name          string
	Arity         int
}

// Same reports whether m and o identify the same method.
func (m *Method) Same(o *Method) bool {
	if m == o {
		return true
	}
	if m == nil || o == nil {
		return false
	}
	return m.DeclaringType.Equal(o.DeclaringType) && m.Name == o.Name && m.Arity == o.Arity
}

func (m *Method) String() string {
	return fmt.Sprintf("%s.%s/%d", m.DeclaringType, m.Name, m.Arity)
}

// Queryable declares the standard query operators.
var Queryable = &Type{Name: "Queryable", Kind: KindObject}

// String methods recognized by the normalizer and the SQL translator.
var (
	// StringCompare is String.Compare(a, b).
	StringCompare = &Method{DeclaringType: String, Name: "Compare", Arity: 2}
	// StringCompareMode is String.Compare(a, b, mode).
	StringCompareMode = &Method{DeclaringType: String, Name: "Compare", Arity: 3}
	// StringContains is s.Contains(sub).
	StringContains = &Method{DeclaringType: String, Name: "Contains", Arity: 1}
	// StringStartsWith is s.StartsWith(prefix).
	StringStartsWith = &Method{DeclaringType: String, Name: "StartsWith", Arity: 1}
)

// Query operator names.
const (
	OpSource            = "Source"
	OpWhere             = "Where"
	OpSelect            = "Select"
	OpOrderBy           = "OrderBy"
	OpOrderByDescending = "OrderByDescending"
	OpThenBy            = "ThenBy"
	OpThenByDescending  = "ThenByDescending"
	OpSkip              = "Skip"
	OpTake              = "Take"
	OpCount             = "Count"
	OpAny               = "Any"
	OpFirst             = "First"
	OpFirstOrDefault    = "FirstOrDefault"
	OpSum               = "Sum"
	OpOfType            = "OfType"
)

var queryOperatorArity = map[string]int{
	OpSource:            0,
	OpWhere:             2,
	OpSelect:            2,
	OpOrderBy:           2,
	OpOrderByDescending: 2,
	OpThenBy:            2,
	OpThenByDescending:  2,
	OpSkip:              2,
	OpTake:              2,
	OpCount:             1,
	OpAny:               1,
	OpFirst:             1,
	OpFirstOrDefault:    1,
	OpSum:               2,
	OpOfType:            1,
}

// QueryOperator returns the Queryable method with the given name.
// It panics on unknown names; the set is closed.
func QueryOperator(name string) *Method {
	arity, ok := queryOperatorArity[name]
	if !ok {
		panic(fmt.Sprintf("expr: unknown query operator %q", name))
	}
	return &Method{DeclaringType: Queryable, Name: name, Arity: arity}
}

// IsQueryOperator reports whether m is one of the standard query operators.
func IsQueryOperator(m *Method) bool {
	if m == nil || !m.DeclaringType.Equal(Queryable) {
		return false
	}
	arity, ok := queryOperatorArity[m.Name]
	return ok && arity == m.Arity
}

// StripQuote returns the lambda inside a quoted operator argument.
func StripQuote(n Node) (*Lambda, bool) {
	if u, ok := n.(*Unary); ok && u.Op == Quote {
		n = u.Operand
	}
	l, ok := n.(*Lambda)
	return l, ok
}
