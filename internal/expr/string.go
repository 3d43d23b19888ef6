package expr

import (
	"strconv"
	"strings"
)

// Dot is always written in call form, so it needs no level of its own.
const (
	precPostfix = iota + 1
	precSum
	precProduct
	precUnary
	precPrimary
)

// String renders n as expression text that Parse accepts and that evaluates
// to the same value.
func String(n Node) string {
	var b strings.Builder
	write(&b, n)
	return b.String()
}

func precedence(n Node) int {
	switch n := n.(type) {
	case *Sum:
		if len(n.Terms) == 1 && n.Terms[0].Neg {
			return precUnary
		}
		return precSum
	case *Bind, *Scale:
		return precProduct
	case *Invert:
		return precUnary
	case *Literal:
		if n.Value < 0 {
			return precUnary
		}
		return precPrimary
	case *Normalize, *Unitary:
		return precPostfix
	}
	return precPrimary
}

func wrap(b *strings.Builder, n Node, atLeast int) {
	if precedence(n) < atLeast {
		b.WriteByte('(')
		write(b, n)
		b.WriteByte(')')
		return
	}
	write(b, n)
}

func write(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Symbol:
		if n.Explicit {
			b.WriteString(fnSym + "(" + n.Name + ")")
			return
		}
		b.WriteString(n.Name)
	case *Literal:
		b.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
	case *Sum:
		for i, t := range n.Terms {
			switch {
			case i == 0 && t.Neg:
				b.WriteByte('-')
				wrap(b, t.Node, precUnary)
			case i == 0:
				wrap(b, t.Node, precSum)
			case t.Neg:
				b.WriteString(" - ")
				wrap(b, t.Node, precProduct)
			default:
				b.WriteString(" + ")
				wrap(b, t.Node, precProduct)
			}
		}
	case *Bind:
		wrap(b, n.Left, precProduct)
		b.WriteString(" * ")
		wrap(b, n.Right, precUnary)
	case *Scale:
		wrap(b, n.Factor, precProduct)
		b.WriteString(" * ")
		wrap(b, n.Child, precUnary)
	case *Invert:
		b.WriteByte('~')
		wrap(b, n.Child, precUnary)
	case *Dot:
		b.WriteString(fnDot + "(")
		write(b, n.Left)
		b.WriteString(", ")
		write(b, n.Right)
		b.WriteByte(')')
	case *Normalize:
		writeOperand(b, n.Child)
		b.WriteString(".normalized()")
	case *Unitary:
		writeOperand(b, n.Child)
		b.WriteString(".unitary()")
	case *Cast:
		b.WriteString(n.Mode.String() + "(")
		write(b, n.Child)
		if n.Target != "" {
			b.WriteString(", " + n.Target)
		}
		b.WriteByte(')')
	}
}

// writeOperand writes the child of a postfix. Anything but a primary or
// another postfix is parenthesised for readability; the grammar would accept
// it bare.
func writeOperand(b *strings.Builder, n Node) {
	switch n.(type) {
	case *Normalize, *Unitary:
		write(b, n)
	default:
		wrap(b, n, precPrimary)
	}
}
