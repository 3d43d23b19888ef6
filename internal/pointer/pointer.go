package pointer

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/danielpatrickdp/spa-engine/internal/algebra"
	"gonum.org/v1/gonum/mat"
)

// #region type
// SemanticPointer is an immutable real vector used as a symbolic value.
// Every operation returns a new pointer; the backing slice is never written
// after construction, so pointers handed out by a vocabulary share its data.
type SemanticPointer struct {
	v     []float64
	space Space
	alg   algebra.Algebra
	name  string
}

// New copies v into a fresh, untagged HRR pointer.
func New(v []float64) (SemanticPointer, error) {
	return NewWithAlgebra(v, algebra.HRR)
}

// NewWithAlgebra copies v into a fresh, untagged pointer bound under alg.
func NewWithAlgebra(v []float64, alg algebra.Algebra) (SemanticPointer, error) {
	if len(v) == 0 {
		return SemanticPointer{}, errors.New("semantic pointer: vector must have at least one dimension")
	}
	if alg == nil {
		return SemanticPointer{}, errors.New("semantic pointer: nil algebra")
	}
	if err := algebra.CheckDimensionality(alg, len(v)); err != nil {
		return SemanticPointer{}, fmt.Errorf("semantic pointer: %w", err)
	}
	return SemanticPointer{v: append([]float64(nil), v...), alg: alg}, nil
}

// Shared wraps v without copying. The caller must never mutate v afterwards.
// The pointer takes the algebra of space.
func Shared(v []float64, space Space, name string) SemanticPointer {
	return SemanticPointer{v: v, space: space, alg: algebraOf(space), name: name}
}

// Identity returns the binding identity of dimension d.
func Identity(d int, space Space) SemanticPointer {
	alg := algebraOf(space)
	return SemanticPointer{v: alg.Identity(d), space: space, alg: alg, name: "Identity"}
}

// Zero returns the zero pointer of dimension d.
func Zero(d int, space Space) SemanticPointer {
	return SemanticPointer{v: algebra.Zero(d), space: space, alg: algebraOf(space), name: "Zero"}
}

// AbsorbingElement returns the absorbing element of dimension d. It fails
// with algebra.ErrNoAbsorbingElement when the algebra of space has none.
func AbsorbingElement(d int, space Space) (SemanticPointer, error) {
	alg := algebraOf(space)
	v, err := alg.AbsorbingElement(d)
	if err != nil {
		return SemanticPointer{}, fmt.Errorf("%s: %w", alg.Name(), err)
	}
	return SemanticPointer{v: v, space: space, alg: alg, name: "AbsorbingElement"}, nil
}
// #endregion type

// #region accessors
// Dimensions returns the vector length.
func (p SemanticPointer) Dimensions() int { return len(p.v) }

// IsZero reports whether p is the zero value (no vector at all).
func (p SemanticPointer) IsZero() bool { return p.v == nil }

// Name returns the display name, empty when unnamed.
func (p SemanticPointer) Name() string { return p.name }

// Space returns the vocabulary p is tagged with, or nil.
func (p SemanticPointer) Space() Space { return p.space }

// Algebra returns the binding algebra, HRR unless set otherwise.
func (p SemanticPointer) Algebra() algebra.Algebra {
	if p.alg == nil {
		return algebra.HRR
	}
	return p.alg
}

// Vector returns a copy of the components.
func (p SemanticPointer) Vector() []float64 {
	return append([]float64(nil), p.v...)
}

// Data returns the shared backing slice. It must be treated as read-only.
func (p SemanticPointer) Data() []float64 { return p.v }

// WithName returns p relabelled.
func (p SemanticPointer) WithName(name string) SemanticPointer {
	p.name = name
	return p
}

// WithSpace returns p tagged with another vocabulary, sharing its data. The
// pointer adopts the algebra of space.
func (p SemanticPointer) WithSpace(space Space) SemanticPointer {
	p.space = space
	p.alg = algebraOf(space)
	return p
}

func (p SemanticPointer) String() string {
	if p.name != "" {
		return "SemanticPointer<" + p.name + ">"
	}
	return fmt.Sprintf("SemanticPointer%v", p.v)
}
// #endregion accessors

// #region binary-ops
// Add superposes p and o.
func (p SemanticPointer) Add(o SemanticPointer) (SemanticPointer, error) {
	space, err := combine("add", p, o)
	if err != nil {
		return SemanticPointer{}, err
	}
	return SemanticPointer{v: algebra.Superpose(p.v, o.v), space: space, alg: p.alg, name: binaryName(p, "+", o)}, nil
}

// Sub subtracts o from p.
func (p SemanticPointer) Sub(o SemanticPointer) (SemanticPointer, error) {
	space, err := combine("subtract", p, o)
	if err != nil {
		return SemanticPointer{}, err
	}
	out := make([]float64, len(p.v))
	for i := range out {
		out[i] = p.v[i] - o.v[i]
	}
	return SemanticPointer{v: out, space: space, alg: p.alg, name: binaryName(p, "-", o)}, nil
}

// Bind binds p with o under their algebra.
func (p SemanticPointer) Bind(o SemanticPointer) (SemanticPointer, error) {
	space, err := combine("bind", p, o)
	if err != nil {
		return SemanticPointer{}, err
	}
	return SemanticPointer{v: p.Algebra().Bind(p.v, o.v), space: space, alg: p.alg, name: binaryName(p, "*", o)}, nil
}

// Unbind binds p with the approximate inverse of o.
func (p SemanticPointer) Unbind(o SemanticPointer) (SemanticPointer, error) {
	return p.Bind(o.Invert())
}

// Dot returns the inner product.
func (p SemanticPointer) Dot(o SemanticPointer) (float64, error) {
	if _, err := combine("dot", p, o); err != nil {
		return 0, err
	}
	return dot(p.v, o.v), nil
}

// Compare returns the cosine similarity, 0 if either vector is zero.
func (p SemanticPointer) Compare(o SemanticPointer) (float64, error) {
	if _, err := combine("compare", p, o); err != nil {
		return 0, err
	}
	return Cosine(p.v, o.v), nil
}

// Distance is 1 - Compare.
func (p SemanticPointer) Distance(o SemanticPointer) (float64, error) {
	c, err := p.Compare(o)
	if err != nil {
		return 0, err
	}
	return 1 - c, nil
}

// MSE returns the mean squared componentwise error.
func (p SemanticPointer) MSE(o SemanticPointer) (float64, error) {
	if _, err := combine("mse", p, o); err != nil {
		return 0, err
	}
	var sum float64
	for i := range p.v {
		d := p.v[i] - o.v[i]
		sum += d * d
	}
	return sum / float64(len(p.v)), nil
}
// #endregion binary-ops

// #region unary-ops
// Neg returns -p.
func (p SemanticPointer) Neg() SemanticPointer {
	return p.scaled(-1, unaryName("-(", p, ")"))
}

// Scale multiplies every component by s.
func (p SemanticPointer) Scale(s float64) SemanticPointer {
	name := ""
	if p.name != "" {
		name = "(" + strconv.FormatFloat(s, 'g', -1, 64) + ")*(" + p.name + ")"
	}
	return p.scaled(s, name)
}

// Invert returns the approximate inverse.
func (p SemanticPointer) Invert() SemanticPointer {
	return SemanticPointer{v: p.Algebra().Invert(p.v), space: p.space, alg: p.alg, name: unaryName("~(", p, ")")}
}

// Normalized returns p scaled to unit length. The zero vector is returned
// unchanged.
func (p SemanticPointer) Normalized() SemanticPointer {
	name := unaryName("(", p, ").normalized()")
	n := p.Length()
	if n == 0 {
		return SemanticPointer{v: p.Vector(), space: p.space, alg: p.alg, name: name}
	}
	return p.scaled(1/n, name)
}

// Unitary projects p onto the nearest vector whose binding preserves length.
func (p SemanticPointer) Unitary() SemanticPointer {
	return SemanticPointer{v: p.Algebra().MakeUnitary(p.v), space: p.space, alg: p.alg, name: unaryName("(", p, ").unitary()")}
}

// Nondegenerate makes fractional binding powers of p well-defined.
func (p SemanticPointer) Nondegenerate() (SemanticPointer, error) {
	f, err := p.fractional("nondegenerate")
	if err != nil {
		return SemanticPointer{}, err
	}
	return SemanticPointer{v: f.Nondegenerate(p.v), space: p.space, alg: p.alg, name: unaryName("(", p, ").nondegenerate()")}, nil
}

// Pow raises p to a (possibly fractional) binding power.
func (p SemanticPointer) Pow(exponent float64) (SemanticPointer, error) {
	f, err := p.fractional("pow")
	if err != nil {
		return SemanticPointer{}, err
	}
	v, err := f.Pow(p.v, exponent)
	if err != nil {
		return SemanticPointer{}, err
	}
	name := ""
	if p.name != "" {
		name = "(" + p.name + ")**(" + strconv.FormatFloat(exponent, 'g', -1, 64) + ")"
	}
	return SemanticPointer{v: v, space: p.space, alg: p.alg, name: name}, nil
}

// Length returns the Euclidean norm.
func (p SemanticPointer) Length() float64 {
	return math.Sqrt(dot(p.v, p.v))
}

// BindingMatrix returns M with M·x == x * p, or M·x == p * x when
// swapInputs is set.
func (p SemanticPointer) BindingMatrix(swapInputs bool) *mat.Dense {
	return p.Algebra().BindingMatrix(p.v, swapInputs)
}
// #endregion unary-ops

// #region helpers
// Cosine returns the cosine similarity of two equal-length vectors, 0 when
// either is zero.
func Cosine(a, b []float64) float64 {
	na := math.Sqrt(dot(a, a))
	nb := math.Sqrt(dot(b, b))
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func (p SemanticPointer) scaled(s float64, name string) SemanticPointer {
	out := make([]float64, len(p.v))
	for i, x := range p.v {
		out[i] = x * s
	}
	return SemanticPointer{v: out, space: p.space, alg: p.alg, name: name}
}

func (p SemanticPointer) fractional(op string) (algebra.Fractional, error) {
	f, ok := p.Algebra().(algebra.Fractional)
	if !ok {
		return nil, fmt.Errorf("%s: not supported by the %s algebra", op, p.Algebra().Name())
	}
	return f, nil
}

func algebraOf(space Space) algebra.Algebra {
	if s, ok := space.(AlgebraSpace); ok {
		if alg := s.Algebra(); alg != nil {
			return alg
		}
	}
	return algebra.HRR
}

func combine(op string, a, b SemanticPointer) (Space, error) {
	if len(a.v) != len(b.v) {
		return nil, &DimensionMismatchError{Op: op, Want: len(a.v), Got: len(b.v)}
	}
	if a.Algebra() != b.Algebra() {
		return nil, &AlgebraMismatchError{Op: op, Left: a.Algebra().Name(), Right: b.Algebra().Name()}
	}
	if a.space != nil && b.space != nil && a.space != b.space {
		return nil, &SpaceMismatchError{Op: op, Left: a.space.Label(), Right: b.space.Label()}
	}
	if a.space != nil {
		return a.space, nil
	}
	return b.space, nil
}

func binaryName(a SemanticPointer, op string, b SemanticPointer) string {
	if a.name == "" || b.name == "" {
		return ""
	}
	return "(" + a.name + ")" + op + "(" + b.name + ")"
}

func unaryName(prefix string, p SemanticPointer, suffix string) string {
	if p.name == "" {
		return ""
	}
	return prefix + p.name + suffix
}
// #endregion helpers
