package expr

import "fmt"

// #region kinds
// Kind is the static type of an expression.
type Kind int

const (
	Vector Kind = iota
	Scalar
)

func (k Kind) String() string {
	if k == Scalar {
		return "scalar"
	}
	return "vector"
}
// #endregion kinds

// #region nodes
// Node is an immutable expression tree node.
type Node interface {
	Kind() Kind
	node()
}

// Symbol references a named pointer or, inside a model, a state. Explicit
// symbols (written sym(NAME)) always refer to a vocabulary pointer.
type Symbol struct {
	Name     string
	Explicit bool
}

// Literal is a numeric constant.
type Literal struct {
	Value float64
}

// Term is one signed operand of a Sum.
type Term struct {
	Neg  bool
	Node Node
}

// Sum adds signed terms left to right. A Sum with a single negative term is
// unary negation.
type Sum struct {
	Terms []Term
}

// Bind is circular convolution of two vectors.
type Bind struct {
	Left, Right Node
}

// Invert is the approximate inverse of a vector.
type Invert struct {
	Child Node
}

// Scale multiplies Child by the scalar Factor.
type Scale struct {
	Factor Node
	Child  Node
}

// Dot is the inner product of two vectors.
type Dot struct {
	Left, Right Node
}

// Normalize scales a vector to unit length.
type Normalize struct {
	Child Node
}

// Unitary projects a vector onto unit Fourier magnitudes.
type Unitary struct {
	Child Node
}

// CastMode selects how a Cast moves a vector between vocabularies.
type CastMode int

const (
	Reinterpret CastMode = iota
	Translate
)

func (m CastMode) String() string {
	if m == Translate {
		return "translate"
	}
	return "reinterpret"
}

// Cast moves Child into another vocabulary. Target is empty when the target
// vocabulary is to be inferred from the consuming context.
type Cast struct {
	Mode   CastMode
	Child  Node
	Target string
}

func (*Symbol) Kind() Kind    { return Vector }
func (*Literal) Kind() Kind   { return Scalar }
func (*Bind) Kind() Kind      { return Vector }
func (*Invert) Kind() Kind    { return Vector }
func (*Dot) Kind() Kind       { return Scalar }
func (*Normalize) Kind() Kind { return Vector }
func (*Unitary) Kind() Kind   { return Vector }
func (*Cast) Kind() Kind      { return Vector }

func (s *Sum) Kind() Kind {
	if len(s.Terms) == 0 {
		return Vector
	}
	return s.Terms[0].Node.Kind()
}

func (s *Scale) Kind() Kind { return s.Child.Kind() }

func (*Symbol) node()    {}
func (*Literal) node()   {}
func (*Sum) node()       {}
func (*Bind) node()      {}
func (*Invert) node()    {}
func (*Scale) node()     {}
func (*Dot) node()       {}
func (*Normalize) node() {}
func (*Unitary) node()   {}
func (*Cast) node()      {}
// #endregion nodes

// #region errors
// ParseError reports malformed or ill-typed expression text.
type ParseError struct {
	Pos   int    // byte offset into the parsed text
	Token string // offending token, empty at end of input
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse error at %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("parse error at %d near %q: %s", e.Pos, e.Token, e.Msg)
}

// KindError reports a value of the wrong kind reaching an operation. Trees
// built by Parse never produce it; hand-built trees can.
type KindError struct {
	Op   string
	Want Kind
	Got  Kind
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Op, e.Want, e.Got)
}
// #endregion errors
