package expr

import "fmt"

// Node is a sealed interface for expression tree nodes.
// Only the node types in this package implement it.
type Node interface {
	Type() *Type
	node() // Sealed
}

// Constant is an inline value. A Constant whose value is a native query
// object is the leaf of every composed query.
type Constant struct {
	Value any
	T     *Type
}

func (*Constant) node()         {}
func (n *Constant) Type() *Type { return n.T }

// Parameter is a lambda parameter reference.
type Parameter struct {
	Name string
	T    *Type
}

func (*Parameter) node()         {}
func (n *Parameter) Type() *Type { return n.T }

// MethodCall invokes Method on Receiver (nil for static methods) with Args.
type MethodCall struct {
	Receiver Node
	Method   *Method
	Args     []Node
	T        *Type
}

func (*MethodCall) node()         {}
func (n *MethodCall) Type() *Type { return n.T }

// UnaryOp identifies a unary operation.
type UnaryOp int

const (
	SafeCastAs      UnaryOp = iota // x as T: x when x is a T, else null
	TypeIs                         // x is T
	Not                            // !x
	Convert                        // implicit conversion to T
	ExplicitConvert                // (T)x, fails when x is not a T
	Quote                          // wraps a lambda passed to a query operator
	Negate                         // -x
)

var unaryOpNames = [...]string{
	SafeCastAs:      "SafeCastAs",
	TypeIs:          "TypeIs",
	Not:             "Not",
	Convert:         "Convert",
	ExplicitConvert: "ExplicitConvert",
	Quote:           "Quote",
	Negate:          "Negate",
}

func (op UnaryOp) String() string {
	if int(op) < len(unaryOpNames) {
		return unaryOpNames[op]
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

// Unary applies Op to Operand. To is the target type of SafeCastAs, TypeIs,
// Convert and ExplicitConvert; T is the node's result type.
type Unary struct {
	Op      UnaryOp
	Operand Node
	To      *Type
	T       *Type
}

func (*Unary) node()         {}
func (n *Unary) Type() *Type { return n.T }

// BinaryOp identifies a binary operation.
type BinaryOp int

const (
	Equal BinaryOp = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	AndAlso
	OrElse
	Add
	Subtract
	Multiply
)

var binaryOpNames = [...]string{
	Equal:              "Equal",
	NotEqual:           "NotEqual",
	LessThan:           "LessThan",
	LessThanOrEqual:    "LessThanOrEqual",
	GreaterThan:        "GreaterThan",
	GreaterThanOrEqual: "GreaterThanOrEqual",
	AndAlso:            "AndAlso",
	OrElse:             "OrElse",
	Add:                "Add",
	Subtract:           "Subtract",
	Multiply:           "Multiply",
}

var binaryOpSymbols = [...]string{
	Equal:              "==",
	NotEqual:           "!=",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
	AndAlso:            "&&",
	OrElse:             "||",
	Add:                "+",
	Subtract:           "-",
	Multiply:           "*",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// Symbol returns the infix operator used in printed trees.
func (op BinaryOp) Symbol() string {
	if int(op) < len(binaryOpSymbols) {
		return binaryOpSymbols[op]
	}
	return "?"
}

// IsComparison reports whether op yields a boolean from two operands of the
// same type.
func (op BinaryOp) IsComparison() bool {
	return op >= Equal && op <= GreaterThanOrEqual
}

// IsLogical reports whether op is a short-circuit boolean connective.
func (op BinaryOp) IsLogical() bool {
	return op == AndAlso || op == OrElse
}

// Binary applies Op to Left and Right.
type Binary struct {
	Op    BinaryOp
	Left  Node
	Right Node
	T     *Type
}

func (*Binary) node()         {}
func (n *Binary) Type() *Type { return n.T }

// Conditional is test ? IfTrue : IfFalse.
type Conditional struct {
	Test    Node
	IfTrue  Node
	IfFalse Node
	T       *Type
}

func (*Conditional) node()         {}
func (n *Conditional) Type() *Type { return n.T }

// Member reads a field of Operand.
type Member struct {
	Operand Node
	Field   string
	T       *Type
}

func (*Member) node()         {}
func (n *Member) Type() *Type { return n.T }

// Lambda is a function literal passed to query operators.
type Lambda struct {
	Params []*Parameter
	Body   Node
	T      *Type
}

func (*Lambda) node()         {}
func (n *Lambda) Type() *Type { return n.T }

// Const builds a Constant of type t.
func Const(v any, t *Type) *Constant {
	return &Constant{Value: v, T: t}
}

// Null builds the null constant of type t.
func Null(t *Type) *Constant {
	return &Constant{Value: nil, T: t}
}

// BoolConst builds a bool constant.
func BoolConst(b bool) *Constant {
	return &Constant{Value: b, T: Bool}
}

// Param builds a Parameter.
func Param(name string, t *Type) *Parameter {
	return &Parameter{Name: name, T: t}
}

// Call builds a static method call with result type t.
func Call(t *Type, m *Method, args ...Node) *MethodCall {
	return &MethodCall{Method: m, Args: args, T: t}
}

// CallOn builds an instance method call with result type t.
func CallOn(t *Type, receiver Node, m *Method, args ...Node) *MethodCall {
	return &MethodCall{Receiver: receiver, Method: m, Args: args, T: t}
}

// SafeCast builds x as t. A cast to a value type yields its nullable form.
func SafeCast(x Node, t *Type) *Unary {
	result := t
	if t.Kind != KindEntity && t.Kind != KindObject && t.Kind != KindString {
		result = NullableOf(t)
	}
	return &Unary{Op: SafeCastAs, Operand: x, To: t, T: result}
}

// Is builds x is t.
func Is(x Node, t *Type) *Unary {
	return &Unary{Op: TypeIs, Operand: x, To: t, T: Bool}
}

// NotOf builds !x. The result keeps x's type so bool? stays lifted.
func NotOf(x Node) *Unary {
	return &Unary{Op: Not, Operand: x, T: x.Type()}
}

// ConvertTo builds an implicit conversion of x to t.
func ConvertTo(x Node, t *Type) *Unary {
	return &Unary{Op: Convert, Operand: x, To: t, T: t}
}

// Cast builds the explicit conversion (t)x.
func Cast(x Node, t *Type) *Unary {
	return &Unary{Op: ExplicitConvert, Operand: x, To: t, T: t}
}

// QuoteOf wraps a lambda for use as a query operator argument.
func QuoteOf(l *Lambda) *Unary {
	return &Unary{Op: Quote, Operand: l, T: l.T}
}

// Neg builds -x.
func Neg(x Node) *Unary {
	return &Unary{Op: Negate, Operand: x, T: x.Type()}
}

// Bin builds a binary node, deriving the result type: comparisons yield
// bool, logical connectives yield bool unless an operand is bool?, and
// arithmetic takes the left operand's type.
func Bin(op BinaryOp, l, r Node) *Binary {
	var t *Type
	switch {
	case op.IsComparison():
		t = Bool
	case op.IsLogical():
		t = Bool
		if l.Type().IsNullableBool() || r.Type().IsNullableBool() {
			t = NullableBool
		}
	default:
		t = l.Type()
	}
	return &Binary{Op: op, Left: l, Right: r, T: t}
}

// BinTyped builds a binary node with an explicit result type.
func BinTyped(op BinaryOp, l, r Node, t *Type) *Binary {
	return &Binary{Op: op, Left: l, Right: r, T: t}
}

// Cond builds test ? a : b with result type t.
func Cond(test, a, b Node, t *Type) *Conditional {
	return &Conditional{Test: test, IfTrue: a, IfFalse: b, T: t}
}

// Prop builds a member access, resolving the field type from x's type.
func Prop(x Node, field string) (*Member, error) {
	ft, ok := x.Type().Field(field)
	if !ok {
		return nil, fmt.Errorf("type %s has no field %q", x.Type(), field)
	}
	return &Member{Operand: x, Field: field, T: ft}, nil
}

// MustProp is like Prop but panics on error.
// Use only in tests or with fields known to exist.
func MustProp(x Node, field string) *Member {
	m, err := Prop(x, field)
	if err != nil {
		panic(err)
	}
	return m
}

// Fn builds a lambda over params.
func Fn(body Node, params ...*Parameter) *Lambda {
	return &Lambda{Params: params, Body: body, T: FuncOf(body.Type())}
}
