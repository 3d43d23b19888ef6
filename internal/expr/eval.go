package expr

import (
	"fmt"

	"github.com/danielpatrickdp/spa-engine/internal/pointer"
)

// #region scope
// Scope supplies symbol values and casting to the evaluator.
type Scope interface {
	// Resolve returns the pointer a symbol denotes. hint is the vocabulary
	// the surrounding expression expects, nil when it cannot be inferred.
	Resolve(sym *Symbol, hint pointer.Space) (pointer.SemanticPointer, error)
	// SpaceOf returns the vocabulary a symbol is statically bound to, such
	// as the vocabulary of a state, or nil for a free pointer name.
	SpaceOf(sym *Symbol) pointer.Space
	// Cast converts v, already evaluated in its source vocabulary, for a
	// consumer expecting hint.
	Cast(c *Cast, v pointer.SemanticPointer, hint pointer.Space) (pointer.SemanticPointer, error)
}
// #endregion scope

// #region value
// Value is the result of evaluating an expression.
type Value struct {
	Kind    Kind
	Scalar  float64
	Pointer pointer.SemanticPointer
}

func (v Value) String() string {
	if v.Kind == Scalar {
		return fmt.Sprintf("%g", v.Scalar)
	}
	return v.Pointer.String()
}
// #endregion value

// #region eval
// Eval folds n into a value. hint is the vocabulary the caller expects the
// result in; pass nil when unknown.
func Eval(n Node, scope Scope, hint pointer.Space) (Value, error) {
	switch n := n.(type) {
	case *Symbol:
		p, err := scope.Resolve(n, hint)
		if err != nil {
			return Value{}, err
		}
		return vector(p), nil

	case *Literal:
		return Value{Kind: Scalar, Scalar: n.Value}, nil

	case *Sum:
		return evalSum(n, scope, hint)

	case *Bind:
		h := firstSpace(Infer(n.Left, scope), Infer(n.Right, scope), hint)
		a, err := evalVector("bind", n.Left, scope, h)
		if err != nil {
			return Value{}, err
		}
		b, err := evalVector("bind", n.Right, scope, h)
		if err != nil {
			return Value{}, err
		}
		p, err := a.Bind(b)
		if err != nil {
			return Value{}, err
		}
		return vector(p), nil

	case *Invert:
		p, err := evalVector("invert", n.Child, scope, hint)
		if err != nil {
			return Value{}, err
		}
		return vector(p.Invert()), nil

	case *Scale:
		f, err := Eval(n.Factor, scope, nil)
		if err != nil {
			return Value{}, err
		}
		if f.Kind != Scalar {
			return Value{}, &KindError{Op: "scale", Want: Scalar, Got: f.Kind}
		}
		c, err := Eval(n.Child, scope, hint)
		if err != nil {
			return Value{}, err
		}
		if c.Kind == Scalar {
			return Value{Kind: Scalar, Scalar: f.Scalar * c.Scalar}, nil
		}
		return vector(c.Pointer.Scale(f.Scalar)), nil

	case *Dot:
		h := firstSpace(Infer(n.Left, scope), Infer(n.Right, scope))
		a, err := evalVector("dot", n.Left, scope, h)
		if err != nil {
			return Value{}, err
		}
		b, err := evalVector("dot", n.Right, scope, h)
		if err != nil {
			return Value{}, err
		}
		d, err := a.Dot(b)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Scalar, Scalar: d}, nil

	case *Normalize:
		p, err := evalVector("normalized", n.Child, scope, hint)
		if err != nil {
			return Value{}, err
		}
		return vector(p.Normalized()), nil

	case *Unitary:
		p, err := evalVector("unitary", n.Child, scope, hint)
		if err != nil {
			return Value{}, err
		}
		return vector(p.Unitary()), nil

	case *Cast:
		p, err := evalVector(n.Mode.String(), n.Child, scope, Infer(n.Child, scope))
		if err != nil {
			return Value{}, err
		}
		out, err := scope.Cast(n, p, hint)
		if err != nil {
			return Value{}, err
		}
		return vector(out), nil
	}
	return Value{}, fmt.Errorf("evaluate: unsupported node %T", n)
}

// EvalPointer evaluates a vector-valued expression.
func EvalPointer(n Node, scope Scope, hint pointer.Space) (pointer.SemanticPointer, error) {
	return evalVector("evaluate", n, scope, hint)
}

// EvalScalar evaluates a scalar-valued expression.
func EvalScalar(n Node, scope Scope) (float64, error) {
	v, err := Eval(n, scope, nil)
	if err != nil {
		return 0, err
	}
	if v.Kind != Scalar {
		return 0, &KindError{Op: "evaluate", Want: Scalar, Got: v.Kind}
	}
	return v.Scalar, nil
}

func evalSum(n *Sum, scope Scope, hint pointer.Space) (Value, error) {
	if len(n.Terms) == 0 {
		return Value{}, fmt.Errorf("evaluate: empty sum")
	}
	kind := n.Kind()
	if kind == Scalar {
		var total float64
		for _, t := range n.Terms {
			v, err := Eval(t.Node, scope, nil)
			if err != nil {
				return Value{}, err
			}
			if v.Kind != Scalar {
				return Value{}, &KindError{Op: "sum", Want: Scalar, Got: v.Kind}
			}
			if t.Neg {
				total -= v.Scalar
			} else {
				total += v.Scalar
			}
		}
		return Value{Kind: Scalar, Scalar: total}, nil
	}

	h := firstSpace(Infer(n, scope), hint)
	var acc pointer.SemanticPointer
	for i, t := range n.Terms {
		p, err := evalVector("sum", t.Node, scope, h)
		if err != nil {
			return Value{}, err
		}
		switch {
		case i == 0 && t.Neg:
			acc = p.Neg()
		case i == 0:
			acc = p
		case t.Neg:
			acc, err = acc.Sub(p)
		default:
			acc, err = acc.Add(p)
		}
		if err != nil {
			return Value{}, err
		}
	}
	return vector(acc), nil
}

func evalVector(op string, n Node, scope Scope, hint pointer.Space) (pointer.SemanticPointer, error) {
	v, err := Eval(n, scope, hint)
	if err != nil {
		return pointer.SemanticPointer{}, err
	}
	if v.Kind != Vector {
		return pointer.SemanticPointer{}, &KindError{Op: op, Want: Vector, Got: v.Kind}
	}
	return v.Pointer, nil
}

func vector(p pointer.SemanticPointer) Value {
	return Value{Kind: Vector, Pointer: p}
}
// #endregion eval

// #region inference
// Infer returns the vocabulary n's value statically belongs to, or nil when
// only free pointer names are involved. Casts hide their source vocabulary.
func Infer(n Node, scope Scope) pointer.Space {
	switch n := n.(type) {
	case *Symbol:
		return scope.SpaceOf(n)
	case *Sum:
		var s pointer.Space
		for _, t := range n.Terms {
			s = firstSpace(s, Infer(t.Node, scope))
		}
		return s
	case *Bind:
		return firstSpace(Infer(n.Left, scope), Infer(n.Right, scope))
	case *Invert:
		return Infer(n.Child, scope)
	case *Scale:
		return Infer(n.Child, scope)
	case *Normalize:
		return Infer(n.Child, scope)
	case *Unitary:
		return Infer(n.Child, scope)
	}
	return nil
}

func firstSpace(spaces ...pointer.Space) pointer.Space {
	for _, s := range spaces {
		if s != nil {
			return s
		}
	}
	return nil
}
// #endregion inference
