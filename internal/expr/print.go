package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/odatabridge/internal/ir"
)

// Format renders n in a compact, deterministic, C#-like syntax.
// The output is stable and is used by golden-file tests and CLI output.
func Format(n Node) string {
	var b strings.Builder
	write(&b, n)
	return b.String()
}

func write(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case nil:
		b.WriteString("<nil>")

	case *Constant:
		b.WriteString(formatValue(n.Value))

	case *Parameter:
		b.WriteString(n.Name)

	case *MethodCall:
		switch {
		case n.Receiver != nil:
			write(b, n.Receiver)
			b.WriteByte('.')
		case !n.Method.DeclaringType.Equal(Queryable):
			b.WriteString(n.Method.DeclaringType.Name)
			b.WriteByte('.')
		}
		b.WriteString(n.Method.Name)
		if n.Method.Name == OpSource || n.Method.Name == OpOfType {
			fmt.Fprintf(b, "<%s>", n.T.ElementType())
		}
		b.WriteByte('(')
		writeList(b, n.Args)
		b.WriteByte(')')

	case *Unary:
		writeUnary(b, n)

	case *Binary:
		b.WriteByte('(')
		write(b, n.Left)
		b.WriteByte(' ')
		b.WriteString(n.Op.Symbol())
		b.WriteByte(' ')
		write(b, n.Right)
		b.WriteByte(')')

	case *Conditional:
		b.WriteString("IIF(")
		writeList(b, []Node{n.Test, n.IfTrue, n.IfFalse})
		b.WriteByte(')')

	case *Member:
		write(b, n.Operand)
		b.WriteByte('.')
		b.WriteString(n.Field)

	case *Lambda:
		if len(n.Params) == 1 {
			b.WriteString(n.Params[0].Name)
		} else {
			b.WriteByte('(')
			for i, p := range n.Params {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(p.Name)
			}
			b.WriteByte(')')
		}
		b.WriteString(" => ")
		write(b, n.Body)
	}
}

func writeUnary(b *strings.Builder, n *Unary) {
	switch n.Op {
	case SafeCastAs:
		b.WriteByte('(')
		write(b, n.Operand)
		fmt.Fprintf(b, " as %s)", n.To)
	case TypeIs:
		b.WriteByte('(')
		write(b, n.Operand)
		fmt.Fprintf(b, " is %s)", n.To)
	case Not:
		b.WriteByte('!')
		write(b, n.Operand)
	case Convert:
		b.WriteString("Convert(")
		write(b, n.Operand)
		fmt.Fprintf(b, ", %s)", n.To)
	case ExplicitConvert:
		fmt.Fprintf(b, "((%s)", n.To)
		write(b, n.Operand)
		b.WriteByte(')')
	case Quote:
		write(b, n.Operand)
	case Negate:
		b.WriteByte('-')
		write(b, n.Operand)
	}
}

func writeList(b *strings.Builder, nodes []Node) {
	for i, a := range nodes {
		if i > 0 {
			b.WriteString(", ")
		}
		write(b, a)
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil, ir.IRNull:
		return "null"
	case string:
		return strconv.Quote(v)
	case ir.IRString:
		return strconv.Quote(string(v))
	case bool:
		return strconv.FormatBool(v)
	case ir.IRBool:
		return strconv.FormatBool(bool(v))
	case ir.IRDecimal:
		return v.Decimal.String() + "m"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
