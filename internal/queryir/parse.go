package queryir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/odatabridge/internal/ir"
)

// ParseFilter parses a filter expression into a Predicate.
//
// Supported forms:
//   - "Field == value" (also !=, <, <=, >, >=; a single = means ==)
//   - "is Entity" → TypeIs
//   - "as Entity == null" → CastIsNull; "!= null" negates it
//   - "compare(Field, 'text') < 0", with an optional third mode argument
//   - "a and b", "a or b", "not a", "(a)"
//
// Values are 'quoted' or "quoted" strings, null, true, false, integers,
// and decimals such as 12.50. Any other bare word is a string. Keywords
// are case-insensitive; "and" binds tighter than "or".
//
// An empty filter returns a nil Predicate.
func ParseFilter(filter string) (Predicate, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}

	if parts := splitByKeyword(filter, "or"); len(parts) > 1 {
		preds, err := parseAll(parts)
		if err != nil {
			return nil, err
		}
		return Or{Predicates: preds}, nil
	}

	if parts := splitByKeyword(filter, "and"); len(parts) > 1 {
		preds, err := parseAll(parts)
		if err != nil {
			return nil, err
		}
		return And{Predicates: preds}, nil
	}

	if rest, ok := cutKeyword(filter, "not"); ok {
		inner, err := ParseFilter(rest)
		if err != nil {
			return nil, err
		}
		if inner == nil {
			return nil, fmt.Errorf("not: missing operand")
		}
		return Not{Predicate: inner}, nil
	}

	if inner, ok := unwrapParens(filter); ok {
		return ParseFilter(inner)
	}

	return parseSingleComparison(filter)
}

func parseAll(parts []string) ([]Predicate, error) {
	preds := make([]Predicate, 0, len(parts))
	for _, part := range parts {
		pred, err := ParseFilter(part)
		if err != nil {
			return nil, err
		}
		if pred == nil {
			return nil, fmt.Errorf("empty operand in %q", strings.Join(parts, " ... "))
		}
		preds = append(preds, pred)
	}
	return preds, nil
}

// splitByKeyword splits filter at " kw " (case insensitive) wherever it
// occurs outside quotes and parentheses.
func splitByKeyword(filter, kw string) []string {
	sep := " " + kw + " "
	lower := strings.ToLower(filter)

	var parts []string
	start := 0
	scanTopLevel(filter, func(i int) bool {
		if i >= start && strings.HasPrefix(lower[i:], sep) {
			parts = append(parts, strings.TrimSpace(filter[start:i]))
			start = i + len(sep)
		}
		return true
	})
	return append(parts, strings.TrimSpace(filter[start:]))
}

// scanTopLevel calls visit with each byte offset of s that lies outside
// quotes and parentheses. It stops when visit returns false.
func scanTopLevel(s string, visit func(i int) bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			continue
		case c == '\'' || c == '"':
			quote = c
			continue
		case c == '(':
			depth++
			continue
		case c == ')':
			depth--
			continue
		}
		if depth == 0 && !visit(i) {
			return
		}
	}
}

// cutKeyword strips a leading keyword followed by whitespace.
func cutKeyword(s, kw string) (string, bool) {
	if len(s) <= len(kw) || !strings.EqualFold(s[:len(kw)], kw) {
		return "", false
	}
	if c := s[len(kw)]; c != ' ' && c != '\t' {
		return "", false
	}
	return strings.TrimSpace(s[len(kw):]), true
}

// unwrapParens removes one pair of parentheses enclosing all of s.
func unwrapParens(s string) (string, bool) {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return "", false
	}
	// "(a) and (b)" starts and ends with parens but is not enclosed.
	if closing := matchParen(s, 0); closing != len(s)-1 {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// matchParen returns the index of the parenthesis closing s[open], or -1.
func matchParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseSingleComparison parses one comparison, type test, safe-cast null
// test, or string compare.
func parseSingleComparison(s string) (Predicate, error) {
	if entity, ok := cutKeyword(s, "is"); ok {
		if !isIdentifier(entity) {
			return nil, fmt.Errorf("is: invalid entity name %q", entity)
		}
		return TypeIs{Entity: entity}, nil
	}

	if rest, ok := cutKeyword(s, "as"); ok {
		return parseCastIsNull(rest)
	}

	if len(s) > len("compare(") && strings.EqualFold(s[:len("compare(")], "compare(") {
		return parseStringCompare(s)
	}

	lhs, op, rhs, err := splitComparison(s)
	if err != nil {
		return nil, err
	}
	if !isIdentifier(lhs) {
		return nil, fmt.Errorf("invalid field name %q in: %s", lhs, s)
	}
	value, err := parseValue(rhs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s, err)
	}
	if _, isNull := value.(ir.IRNull); isNull && op != OpEq && op != OpNe {
		return nil, fmt.Errorf("null only supports == and !=: %s", s)
	}
	return Compare{Field: lhs, Op: op, Value: value}, nil
}

// parseCastIsNull parses "Entity == null" or "Entity != null" after "as".
func parseCastIsNull(s string) (Predicate, error) {
	entity, op, rhs, err := splitComparison(s)
	if err != nil {
		return nil, fmt.Errorf("as: %w", err)
	}
	if !isIdentifier(entity) {
		return nil, fmt.Errorf("as: invalid entity name %q", entity)
	}
	if !strings.EqualFold(rhs, "null") {
		return nil, fmt.Errorf("as %s: only null comparisons are supported", entity)
	}
	switch op {
	case OpEq:
		return CastIsNull{Entity: entity}, nil
	case OpNe:
		return Not{Predicate: CastIsNull{Entity: entity}}, nil
	}
	return nil, fmt.Errorf("as %s: operator %s is not supported", entity, op)
}

// parseStringCompare parses "compare(Field, 'text'[, mode]) op result".
func parseStringCompare(s string) (Predicate, error) {
	open := len("compare")
	closing := matchParen(s, open)
	if closing < 0 {
		return nil, fmt.Errorf("compare: unbalanced parentheses in: %s", s)
	}

	args := splitArgs(s[open+1 : closing])
	if len(args) != 2 && len(args) != 3 {
		return nil, fmt.Errorf("compare: want 2 or 3 arguments, got %d", len(args))
	}
	if !isIdentifier(args[0]) {
		return nil, fmt.Errorf("compare: invalid field name %q", args[0])
	}
	text, ok := unquote(args[1])
	if !ok {
		return nil, fmt.Errorf("compare: second argument must be a quoted string, got %s", args[1])
	}

	pred := StringCompare{Field: args[0], Value: text}
	if len(args) == 3 {
		mode, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("compare: mode must be an integer, got %s", args[2])
		}
		pred.Mode = &mode
	}

	lhs, op, rhs, err := splitComparison("x" + s[closing+1:])
	if err != nil || lhs != "x" {
		return nil, fmt.Errorf("compare: expected a comparison after the call in: %s", s)
	}
	result, err := strconv.ParseInt(rhs, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("compare: result must be an integer, got %s", rhs)
	}
	pred.Op = op
	pred.Result = result
	return pred, nil
}

// splitArgs splits a call's argument list at top-level commas.
func splitArgs(s string) []string {
	var args []string
	start := 0
	scanTopLevel(s, func(i int) bool {
		if s[i] == ',' {
			args = append(args, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
		return true
	})
	return append(args, strings.TrimSpace(s[start:]))
}

// operators is ordered so that two-character operators match first.
var operators = []struct {
	token string
	op    CompareOp
}{
	{"==", OpEq},
	{"!=", OpNe},
	{"<=", OpLe},
	{">=", OpGe},
	{"<", OpLt},
	{">", OpGt},
	{"=", OpEq},
}

// splitComparison finds the first top-level comparison operator in s.
func splitComparison(s string) (lhs string, op CompareOp, rhs string, err error) {
	at, width := -1, 0
	scanTopLevel(s, func(i int) bool {
		for _, o := range operators {
			if strings.HasPrefix(s[i:], o.token) {
				at, width, op = i, len(o.token), o.op
				return false
			}
		}
		return true
	})
	if at < 0 {
		return "", 0, "", fmt.Errorf("unsupported expression (no comparison found): %s", s)
	}
	lhs = strings.TrimSpace(s[:at])
	rhs = strings.TrimSpace(s[at+width:])
	if lhs == "" || rhs == "" {
		return "", 0, "", fmt.Errorf("comparison is missing an operand: %s", s)
	}
	return lhs, op, rhs, nil
}

// parseValue parses a literal.
func parseValue(value string) (ir.IRValue, error) {
	if s, ok := unquote(value); ok {
		return ir.IRString(s), nil
	}

	switch strings.ToLower(value) {
	case "null":
		return ir.IRNull{}, nil
	case "true":
		return ir.IRBool(true), nil
	case "false":
		return ir.IRBool(false), nil
	}

	if isNumeric(value) {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("integer %s: %w", value, err)
		}
		return ir.IRInt(n), nil
	}
	if isDecimal(value) {
		return ir.NewIRDecimal(value)
	}

	// Assume unquoted string literal
	return ir.IRString(value), nil
}

// unquote strips matching single or double quotes. Inside single quotes a
// doubled '' stands for one quote.
func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if (q != '\'' && q != '"') || s[len(s)-1] != q {
		return "", false
	}
	inner := s[1 : len(s)-1]
	if q == '\'' {
		inner = strings.ReplaceAll(inner, "''", "'")
	}
	return inner, true
}

// isNumeric checks if a string is a valid integer.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '-' || s[0] == '+' {
		start = 1
	}
	if start >= len(s) {
		return false
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isDecimal checks for an integer part, one dot, and a fraction.
func isDecimal(s string) bool {
	whole, frac, ok := strings.Cut(s, ".")
	return ok && isNumeric(whole) && frac != "" && isNumeric(frac) && frac[0] != '-' && frac[0] != '+'
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
