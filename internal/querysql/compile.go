package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/ir"
)

// ErrUntranslatable is returned for tree shapes with no SQL form. The
// normalizer removes the common ones (safe casts, three-argument Compare,
// conditionals), so seeing them here means the tree was not normalized.
var ErrUntranslatable = errors.New("untranslatable expression")

func untranslatable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUntranslatable, fmt.Sprintf(format, args...))
}

// Hierarchy reports the stored entity types that are instances of a type.
// *schema.Model implements it.
type Hierarchy interface {
	Subtypes(t *expr.Type) []*expr.Type
}

// Shape is the row layout a Plan's SQL produces.
type Shape int

const (
	// Records rows are (seq, entity, key, data).
	Records Shape = iota
	// Column rows hold one projected value.
	Column
	// Scalar is a single row with a single value.
	Scalar
)

// Plan is a compiled query.
type Plan struct {
	SQL  string
	Args []any

	Shape Shape
	// Op is the terminal operator (Count, Any, First, FirstOrDefault, Sum)
	// or empty for sequences.
	Op string
	// Elem is the static type of each row: the entity type for Records, the
	// projected type for Column, the result type for Scalar.
	Elem *expr.Type
}

// SQLCompiler compiles normalized expression trees to parameterized SQL
// over the records table.
//
// Every row query ends its ORDER BY with seq ASC for deterministic results.
// Values are always ? parameters, never interpolated.
type SQLCompiler struct {
	hierarchy Hierarchy
}

// NewSQLCompiler creates a compiler that expands entity types through h.
func NewSQLCompiler(h Hierarchy) *SQLCompiler {
	return &SQLCompiler{hierarchy: h}
}

// binding is what a lambda parameter stands for: a row of the records table
// (node nil) or a projected expression evaluated in an outer scope.
type binding struct {
	node  expr.Node
	outer *scope
}

type scope struct {
	params map[*expr.Parameter]binding
}

func bind(p *expr.Parameter, b binding) *scope {
	return &scope{params: map[*expr.Parameter]binding{p: b}}
}

// query accumulates the clauses of the chain from the source outward.
type query struct {
	entities []string
	elem     *expr.Type
	where    []string
	args     []any
	order    []string
	orderArg []any
	proj     binding
	limit    int64 // -1 when unset
	offset   int64
	paged    bool
}

// Compile translates n into a Plan. n must be a query operator chain rooted
// at Source.
func (c *SQLCompiler) Compile(n expr.Node) (*Plan, error) {
	if n == nil {
		return nil, fmt.Errorf("cannot compile nil expression")
	}

	call, err := operator(n)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}

	switch call.Method.Name {
	case expr.OpCount, expr.OpAny, expr.OpFirst, expr.OpFirstOrDefault:
		q, err := c.chain(call.Args[0])
		if err != nil {
			return nil, err
		}
		return c.terminal(q, call.Method.Name, call.Type())
	case expr.OpSum:
		q, err := c.chain(call.Args[0])
		if err != nil {
			return nil, err
		}
		sel, ok := expr.StripQuote(call.Args[1])
		if !ok {
			return nil, untranslatable("sum selector is not a lambda")
		}
		q.proj = binding{node: sel.Body, outer: bind(sel.Params[0], q.proj)}
		q.elem = sel.Body.Type()
		plan, err := c.rows(q)
		if err != nil {
			return nil, err
		}
		plan.Op = expr.OpSum
		return plan, nil
	}

	q, err := c.chain(n)
	if err != nil {
		return nil, err
	}
	return c.rows(q)
}

// chain folds the sequence operators from Source outward.
func (c *SQLCompiler) chain(n expr.Node) (*query, error) {
	call, err := operator(n)
	if err != nil {
		return nil, err
	}

	if call.Method.Name == expr.OpSource {
		elem := call.Type().ElementType()
		if elem == nil || !elem.IsPersistent() {
			return nil, fmt.Errorf("source of %s is not an entity sequence", call.Type())
		}
		return &query{
			entities: c.entityNames(elem),
			elem:     elem,
			limit:    -1,
		}, nil
	}

	q, err := c.chain(call.Args[0])
	if err != nil {
		return nil, err
	}
	op := call.Method.Name

	switch op {
	case expr.OpWhere, expr.OpOrderBy, expr.OpOrderByDescending,
		expr.OpThenBy, expr.OpThenByDescending, expr.OpOfType:
		if q.paged {
			return nil, untranslatable("%s after Skip or Take", op)
		}
	}

	switch op {
	case expr.OpWhere:
		l, sc, err := c.lambda(call.Args[1], q)
		if err != nil {
			return nil, err
		}
		cond, args, err := c.expr(l.Body, sc)
		if err != nil {
			return nil, fmt.Errorf("where: %w", err)
		}
		q.where = append(q.where, cond)
		q.args = append(q.args, args...)

	case expr.OpOrderBy, expr.OpOrderByDescending, expr.OpThenBy, expr.OpThenByDescending:
		l, sc, err := c.lambda(call.Args[1], q)
		if err != nil {
			return nil, err
		}
		key, args, err := c.operand(l.Body, sc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		dir := " ASC"
		if op == expr.OpOrderByDescending || op == expr.OpThenByDescending {
			dir = " DESC"
		}
		if op == expr.OpOrderBy || op == expr.OpOrderByDescending {
			q.order, q.orderArg = nil, nil
		}
		q.order = append(q.order, key+dir)
		q.orderArg = append(q.orderArg, args...)

	case expr.OpSelect:
		l, sc, err := c.lambda(call.Args[1], q)
		if err != nil {
			return nil, err
		}
		q.proj = binding{node: l.Body, outer: sc}
		q.elem = l.Body.Type()

	case expr.OpOfType:
		if !c.isRow(q.proj) {
			return nil, untranslatable("OfType over a projection")
		}
		target := call.Type().ElementType()
		keep := make(map[string]bool)
		for _, name := range c.entityNames(target) {
			keep[name] = true
		}
		var names []string
		for _, name := range q.entities {
			if keep[name] {
				names = append(names, name)
			}
		}
		q.entities = names
		q.elem = target

	case expr.OpSkip:
		k, err := count(call.Args[1])
		if err != nil {
			return nil, err
		}
		q.offset += k
		if q.limit >= 0 {
			q.limit = max(q.limit-k, 0)
		}
		q.paged = true

	case expr.OpTake:
		k, err := count(call.Args[1])
		if err != nil {
			return nil, err
		}
		if q.limit < 0 || k < q.limit {
			q.limit = k
		}
		q.paged = true

	default:
		return nil, untranslatable("%s inside a query chain", op)
	}
	return q, nil
}

// operator returns n as a query operator call whose argument count matches
// the operator's arity.
func operator(n expr.Node) (*expr.MethodCall, error) {
	call, ok := n.(*expr.MethodCall)
	if !ok || !expr.IsQueryOperator(call.Method) {
		return nil, untranslatable("%s is not a query operator", expr.Format(n))
	}
	if len(call.Args) != call.Method.Arity {
		return nil, untranslatable("%s takes %d arguments, got %d", call.Method.Name, call.Method.Arity, len(call.Args))
	}
	return call, nil
}

func (c *SQLCompiler) lambda(arg expr.Node, q *query) (*expr.Lambda, *scope, error) {
	l, ok := expr.StripQuote(arg)
	if !ok || len(l.Params) != 1 {
		return nil, nil, untranslatable("operator argument %s is not a one-parameter lambda", expr.Format(arg))
	}
	return l, bind(l.Params[0], q.proj), nil
}

func count(n expr.Node) (int64, error) {
	c, ok := n.(*expr.Constant)
	if !ok {
		return 0, untranslatable("count %s is not a constant", expr.Format(n))
	}
	switch v := c.Value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case ir.IRInt:
		return int64(v), nil
	}
	return 0, fmt.Errorf("count constant is %T, want an integer", c.Value)
}

func (c *SQLCompiler) entityNames(t *expr.Type) []string {
	types := c.hierarchy.Subtypes(t)
	names := make([]string, 0, len(types))
	for _, st := range types {
		names = append(names, st.Name)
	}
	return names
}

// from renders the shared FROM/WHERE clause and its parameters.
func (q *query) from() (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(q.entities)+len(q.args))

	b.WriteString(" FROM records WHERE ")
	if len(q.entities) == 0 {
		b.WriteString("0")
	} else {
		b.WriteString("entity IN (")
		for i, name := range q.entities {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, name)
		}
		b.WriteString(")")
	}
	for _, cond := range q.where {
		b.WriteString(" AND ")
		b.WriteString(cond)
	}
	args = append(args, q.args...)
	return b.String(), args
}

// orderBy renders the ORDER BY clause. seq ASC is always the last key.
func (q *query) orderBy() (string, []any) {
	keys := append(append([]string(nil), q.order...), "seq ASC")
	return " ORDER BY " + strings.Join(keys, ", "), q.orderArg
}

func (q *query) page() (string, []any) {
	switch {
	case q.limit >= 0 && q.offset > 0:
		return " LIMIT ? OFFSET ?", []any{q.limit, q.offset}
	case q.limit >= 0:
		return " LIMIT ?", []any{q.limit}
	case q.offset > 0:
		return " LIMIT -1 OFFSET ?", []any{q.offset}
	}
	return "", nil
}

// rows compiles a row-producing query: whole records, or one projected
// column.
func (c *SQLCompiler) rows(q *query) (*Plan, error) {
	plan := &Plan{Shape: Records, Elem: q.elem}
	var (
		cols string
		args []any
	)
	if c.isRow(q.proj) {
		cols = "seq, entity, key, data"
	} else {
		col, colArgs, err := c.expr(q.proj.node, q.proj.outer)
		if err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
		cols, args = col, colArgs
		plan.Shape = Column
	}

	from, fromArgs := q.from()
	order, orderArgs := q.orderBy()
	page, pageArgs := q.page()

	plan.SQL = "SELECT " + cols + from + order + page
	plan.Args = concat(args, fromArgs, orderArgs, pageArgs)
	return plan, nil
}

// terminal compiles Count, Any, First and FirstOrDefault.
func (c *SQLCompiler) terminal(q *query, op string, result *expr.Type) (*Plan, error) {
	from, fromArgs := q.from()
	page, pageArgs := q.page()

	switch op {
	case expr.OpCount:
		plan := &Plan{Shape: Scalar, Op: op, Elem: result}
		if page == "" {
			plan.SQL = "SELECT COUNT(*)" + from
			plan.Args = fromArgs
		} else {
			plan.SQL = "SELECT COUNT(*) FROM (SELECT 1" + from + page + ")"
			plan.Args = concat(fromArgs, pageArgs)
		}
		return plan, nil

	case expr.OpAny:
		return &Plan{
			SQL:   "SELECT EXISTS (SELECT 1" + from + page + ")",
			Args:  concat(fromArgs, pageArgs),
			Shape: Scalar,
			Op:    op,
			Elem:  result,
		}, nil
	}

	// First and FirstOrDefault read at most one row.
	if q.limit < 0 || q.limit > 1 {
		q.limit = 1
	}
	plan, err := c.rows(q)
	if err != nil {
		return nil, err
	}
	plan.Op = op
	return plan, nil
}

func concat(parts ...[]any) []any {
	var out []any
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// isRow reports whether b stands for a whole record.
func (c *SQLCompiler) isRow(b binding) bool {
	for b.node != nil {
		switch n := b.node.(type) {
		case *expr.Parameter:
			next, ok := b.outer.params[n]
			if !ok {
				return false
			}
			b = next
		case *expr.Unary:
			if n.Op != expr.Convert && n.Op != expr.ExplicitConvert {
				return false
			}
			b = binding{node: n.Operand, outer: b.outer}
		default:
			return false
		}
	}
	return true
}

func (c *SQLCompiler) nodeIsRow(n expr.Node, sc *scope) bool {
	return c.isRow(binding{node: n, outer: sc})
}

// operand compiles n for use in a comparison, an arithmetic operation or a
// sort key. Decimals are stored as strings and compared as REAL.
func (c *SQLCompiler) operand(n expr.Node, sc *scope) (string, []any, error) {
	s, args, err := c.expr(n, sc)
	if err != nil {
		return "", nil, err
	}
	if isDecimal(n.Type()) {
		s = "CAST(" + s + " AS REAL)"
	}
	return s, args, nil
}

func isDecimal(t *expr.Type) bool {
	if t.Kind == expr.KindNullable {
		t = t.Elem
	}
	return t.Kind == expr.KindDecimal
}

func isNullable(t *expr.Type) bool {
	return t.Kind == expr.KindNullable
}

// expr compiles a value or predicate expression.
func (c *SQLCompiler) expr(n expr.Node, sc *scope) (string, []any, error) {
	switch n := n.(type) {
	case *expr.Constant:
		return constant(n)

	case *expr.Parameter:
		b, ok := sc.params[n]
		if !ok {
			return "", nil, fmt.Errorf("unbound parameter %s", n.Name)
		}
		if b.node == nil {
			return "", nil, untranslatable("whole record %s used as a value", n.Name)
		}
		return c.expr(b.node, b.outer)

	case *expr.Member:
		if !c.nodeIsRow(n.Operand, sc) {
			return "", nil, untranslatable("member %s of a non-record value", n.Field)
		}
		if !validField(n.Field) {
			return "", nil, fmt.Errorf("invalid field name %q", n.Field)
		}
		return "json_extract(data, '$." + n.Field + "')", nil, nil

	case *expr.Unary:
		return c.unary(n, sc)

	case *expr.Binary:
		return c.binary(n, sc)

	case *expr.MethodCall:
		return c.method(n, sc)

	case *expr.Conditional:
		return "", nil, untranslatable("conditional %s", expr.Format(n))

	default:
		return "", nil, untranslatable("%s", expr.Format(n))
	}
}

func validField(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func constant(n *expr.Constant) (string, []any, error) {
	if n.Value == nil {
		return "NULL", nil, nil
	}
	v, err := paramOf(n.Value)
	if err != nil {
		return "", nil, untranslatable("constant of type %s: %v", n.Type(), err)
	}
	return "?", []any{v}, nil
}

// paramOf converts a constant value to a SQL parameter. Booleans become
// 0/1 to match json_extract, decimals become their string form.
func paramOf(v any) (any, error) {
	if irv, ok := v.(ir.IRValue); ok {
		if d, ok := irv.(ir.IRDecimal); ok {
			return d.Decimal.String(), nil
		}
		if b, ok := irv.(ir.IRBool); ok {
			v = bool(b)
		} else {
			return ir.ToGo(irv)
		}
	}
	switch val := v.(type) {
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case decimal.Decimal:
		return val.String(), nil
	}
	return nil, fmt.Errorf("unsupported constant %T", v)
}

func (c *SQLCompiler) unary(n *expr.Unary, sc *scope) (string, []any, error) {
	switch n.Op {
	case expr.Not:
		s, args, err := c.expr(n.Operand, sc)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + s + ")", args, nil

	case expr.Negate:
		s, args, err := c.operand(n.Operand, sc)
		if err != nil {
			return "", nil, err
		}
		return "-(" + s + ")", args, nil

	case expr.Convert, expr.ExplicitConvert, expr.Quote:
		return c.expr(n.Operand, sc)

	case expr.TypeIs:
		if !c.nodeIsRow(n.Operand, sc) {
			return "", nil, untranslatable("type test on a non-record value")
		}
		names := c.entityNames(n.To)
		if len(names) == 0 {
			return "0", nil, nil
		}
		args := make([]any, len(names))
		for i, name := range names {
			args[i] = name
		}
		return "entity IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ") + ")", args, nil

	case expr.SafeCastAs:
		return "", nil, untranslatable("safe cast %s", expr.Format(n))
	}
	return "", nil, untranslatable("unary %s", n.Op)
}

var sqlOps = map[expr.BinaryOp]string{
	expr.Equal:              "=",
	expr.NotEqual:           "!=",
	expr.LessThan:           "<",
	expr.LessThanOrEqual:    "<=",
	expr.GreaterThan:        ">",
	expr.GreaterThanOrEqual: ">=",
	expr.AndAlso:            "AND",
	expr.OrElse:             "OR",
	expr.Add:                "+",
	expr.Subtract:           "-",
	expr.Multiply:           "*",
}

func isNullConstant(n expr.Node) bool {
	c, ok := n.(*expr.Constant)
	return ok && c.Value == nil
}

func (c *SQLCompiler) binary(n *expr.Binary, sc *scope) (string, []any, error) {
	op, ok := sqlOps[n.Op]
	if !ok {
		return "", nil, untranslatable("binary %s", n.Op)
	}

	if n.Op.IsLogical() {
		l, largs, err := c.expr(n.Left, sc)
		if err != nil {
			return "", nil, err
		}
		r, rargs, err := c.expr(n.Right, sc)
		if err != nil {
			return "", nil, err
		}
		return "(" + l + " " + op + " " + r + ")", concat(largs, rargs), nil
	}

	// x == null and x != null test presence.
	if n.Op == expr.Equal || n.Op == expr.NotEqual {
		var other expr.Node
		switch {
		case isNullConstant(n.Right):
			other = n.Left
		case isNullConstant(n.Left):
			other = n.Right
		}
		if other != nil {
			s, args, err := c.expr(other, sc)
			if err != nil {
				return "", nil, err
			}
			if n.Op == expr.Equal {
				return "(" + s + " IS NULL)", args, nil
			}
			return "(" + s + " IS NOT NULL)", args, nil
		}
	}

	if n.Op == expr.Add && n.Left.Type().Kind == expr.KindString {
		op = "||"
	}

	l, largs, err := c.operand(n.Left, sc)
	if err != nil {
		return "", nil, err
	}
	r, rargs, err := c.operand(n.Right, sc)
	if err != nil {
		return "", nil, err
	}
	args := concat(largs, rargs)
	nullable := isNullable(n.Left.Type()) || isNullable(n.Right.Type())

	switch {
	case nullable && n.Op == expr.Equal:
		// Null-safe: null == null holds, null == x does not.
		return "(" + l + " IS " + r + ")", args, nil
	case nullable && n.Op == expr.NotEqual:
		return "(" + l + " IS NOT " + r + ")", args, nil
	case nullable && n.Op.IsComparison():
		// An ordering comparison involving null is false, not unknown.
		return "COALESCE(" + l + " " + op + " " + r + ", 0)", args, nil
	}
	return "(" + l + " " + op + " " + r + ")", args, nil
}

func (c *SQLCompiler) method(n *expr.MethodCall, sc *scope) (string, []any, error) {
	switch {
	case n.Method.Same(expr.StringCompare):
		a, aargs, err := c.expr(n.Args[0], sc)
		if err != nil {
			return "", nil, err
		}
		b, bargs, err := c.expr(n.Args[1], sc)
		if err != nil {
			return "", nil, err
		}
		s := "(CASE WHEN " + a + " < " + b + " THEN -1 WHEN " + a + " > " + b + " THEN 1 ELSE 0 END)"
		return s, concat(aargs, bargs, aargs, bargs), nil

	case n.Method.Same(expr.StringCompareMode):
		return "", nil, untranslatable("string.Compare with a comparison mode")

	case n.Method.Same(expr.StringContains), n.Method.Same(expr.StringStartsWith):
		recv, rargs, err := c.expr(n.Receiver, sc)
		if err != nil {
			return "", nil, err
		}
		arg, aargs, err := c.expr(n.Args[0], sc)
		if err != nil {
			return "", nil, err
		}
		if n.Method.Same(expr.StringContains) {
			return "(instr(" + recv + ", " + arg + ") > 0)", concat(rargs, aargs), nil
		}
		return "(substr(" + recv + ", 1, length(" + arg + ")) = " + arg + ")", concat(rargs, aargs, aargs), nil
	}
	return "", nil, untranslatable("method %s", n.Method)
}
