package expr

import (
	"fmt"
	"strings"
)

// Function names recognised in call position.
const (
	fnDot         = "dot"
	fnReinterpret = "reinterpret"
	fnTranslate   = "translate"
	fnSym         = "sym"
)

// #region entry-points
// Parse parses a complete expression.
func Parse(src string) (Node, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	n, err := p.parseDot()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return n, nil
}

// ParseKind parses src and requires the result to have the given kind.
func ParseKind(src string, want Kind) (Node, error) {
	n, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if n.Kind() != want {
		return nil, &ParseError{Pos: 0, Token: strings.TrimSpace(src), Msg: fmt.Sprintf("expected %s expression, got %s", want, n.Kind())}
	}
	return n, nil
}

// ParseAssignment parses "dest = expr". The destination must be an
// identifier; the expression must be vector-valued.
func ParseAssignment(src string) (string, Node, error) {
	p, err := newParser(src)
	if err != nil {
		return "", nil, err
	}
	dest := p.peek()
	if dest.kind != tokIdent {
		return "", nil, p.errorf(dest, "expected destination name")
	}
	p.next()
	if eq := p.peek(); eq.kind != tokOp || eq.text != "=" {
		return "", nil, p.errorf(eq, "expected '='")
	}
	p.next()
	start := p.peek()
	n, err := p.parseDot()
	if err != nil {
		return "", nil, err
	}
	if err := p.expectEOF(); err != nil {
		return "", nil, err
	}
	if n.Kind() != Vector {
		return "", nil, p.errorf(start, "assigned expression must be a vector")
	}
	return dest.text, n, nil
}

// IsIdentifier reports whether s lexes as a single identifier.
func IsIdentifier(s string) bool {
	toks, err := lex(s)
	return err == nil && len(toks) == 2 && toks[0].kind == tokIdent && toks[0].pos == 0 && len(toks[0].text) == len(s)
}
// #endregion entry-points

// #region parser
type parser struct {
	toks []token
	i    int
}

func newParser(src string) (*parser, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks}, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == text
}

func (p *parser) expectOp(text string) error {
	t := p.peek()
	if t.kind != tokOp || t.text != text {
		return p.errorf(t, "expected '%s'", text)
	}
	p.next()
	return nil
}

func (p *parser) expectEOF() error {
	if t := p.peek(); t.kind != tokEOF {
		return p.errorf(t, "unexpected token")
	}
	return nil
}

func (p *parser) errorf(t token, format string, args ...any) *ParseError {
	msg := fmt.Sprintf(format, args...)
	if t.kind == tokEOF {
		return &ParseError{Pos: t.pos, Msg: msg + " (unexpected end of input)"}
	}
	return &ParseError{Pos: t.pos, Token: t.text, Msg: msg}
}

// parseDot: postfix ('@' postfix)*
func (p *parser) parseDot() (Node, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for p.isOp("@") {
		op := p.next()
		right, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		if left.Kind() != Vector || right.Kind() != Vector {
			return nil, p.errorf(op, "'@' requires two vector operands")
		}
		left = &Dot{Left: left, Right: right}
	}
	return left, nil
}

// parseSum: product (('+'|'-') product)*
func (p *parser) parseSum() (Node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	if !p.isOp("+") && !p.isOp("-") {
		return left, nil
	}
	var terms []Term
	if s, ok := left.(*Sum); ok {
		terms = append(terms, s.Terms...)
	} else {
		terms = append(terms, Term{Node: left})
	}
	for p.isOp("+") || p.isOp("-") {
		op := p.next()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		if right.Kind() != left.Kind() {
			return nil, p.errorf(op, "cannot combine %s and %s with '%s'", left.Kind(), right.Kind(), op.text)
		}
		terms = append(terms, Term{Neg: op.text == "-", Node: right})
	}
	return &Sum{Terms: terms}, nil
}

// parseProduct: unary ('*' unary)*
func (p *parser) parseProduct() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = product(left, right)
	}
	return left, nil
}

func product(left, right Node) Node {
	switch {
	case left.Kind() == Vector && right.Kind() == Vector:
		return &Bind{Left: left, Right: right}
	case left.Kind() == Scalar:
		return &Scale{Factor: left, Child: right}
	default:
		return &Scale{Factor: right, Child: left}
	}
}

// parseUnary: ('~'|'-') unary | primary
func (p *parser) parseUnary() (Node, error) {
	switch {
	case p.isOp("~"):
		op := p.next()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if child.Kind() != Vector {
			return nil, p.errorf(op, "'~' requires a vector operand")
		}
		return &Invert{Child: child}, nil
	case p.isOp("-"):
		p.next()
		if t := p.peek(); t.kind == tokNumber {
			p.next()
			return &Literal{Value: -t.num}, nil
		}
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Sum{Terms: []Term{{Neg: true, Node: child}}}, nil
	}
	return p.parsePrimary()
}

// parsePostfix: sum ('.' ('normalized'|'unitary') '(' ')')*
//
// The postfix applies to the whole sum before it, so A + B.unitary() is
// (A + B).unitary().
func (p *parser) parsePostfix() (Node, error) {
	n, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	for p.isOp(".") {
		p.next()
		method := p.peek()
		if method.kind != tokIdent || (method.text != "normalized" && method.text != "unitary") {
			return nil, p.errorf(method, "expected 'normalized' or 'unitary'")
		}
		p.next()
		if err := p.expectOp("("); err != nil {
			return nil, err
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		if n.Kind() != Vector {
			return nil, p.errorf(method, "'.%s()' requires a vector", method.text)
		}
		if method.text == "normalized" {
			n = &Normalize{Child: n}
		} else {
			n = &Unitary{Child: n}
		}
	}
	return n, nil
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.peek()
	switch {
	case t.kind == tokNumber:
		p.next()
		return &Literal{Value: t.num}, nil
	case t.kind == tokOp && t.text == "(":
		p.next()
		n, err := p.parseDot()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		return n, nil
	case t.kind == tokIdent:
		p.next()
		if p.isOp("(") {
			return p.parseCall(t)
		}
		return &Symbol{Name: t.text}, nil
	}
	return nil, p.errorf(t, "expected symbol, number or '('")
}

func (p *parser) parseCall(fn token) (Node, error) {
	p.next() // '('
	switch fn.text {
	case fnDot:
		a, err := p.parseVectorArg(fn)
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(","); err != nil {
			return nil, err
		}
		b, err := p.parseVectorArg(fn)
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		return &Dot{Left: a, Right: b}, nil
	case fnReinterpret, fnTranslate:
		child, err := p.parseVectorArg(fn)
		if err != nil {
			return nil, err
		}
		c := &Cast{Mode: Reinterpret, Child: child}
		if fn.text == fnTranslate {
			c.Mode = Translate
		}
		if p.isOp(",") {
			p.next()
			target := p.peek()
			if target.kind != tokIdent {
				return nil, p.errorf(target, "expected target vocabulary name")
			}
			p.next()
			c.Target = target.text
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		return c, nil
	case fnSym:
		name := p.peek()
		if name.kind != tokIdent {
			return nil, p.errorf(name, "expected pointer name")
		}
		p.next()
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		return &Symbol{Name: name.text, Explicit: true}, nil
	}
	return nil, p.errorf(fn, "unknown function")
}

func (p *parser) parseVectorArg(fn token) (Node, error) {
	start := p.peek()
	n, err := p.parseDot()
	if err != nil {
		return nil, err
	}
	if n.Kind() != Vector {
		return nil, p.errorf(start, "%s() requires vector arguments", fn.text)
	}
	return n, nil
}
// #endregion parser
