package cast

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/danielpatrickdp/spa-engine/internal/pointer"
	"github.com/danielpatrickdp/spa-engine/internal/vocab"
	"gonum.org/v1/gonum/mat"
)

// ErrNoSharedKeys is returned by Translate when no name pairs the two
// vocabularies.
var ErrNoSharedKeys = errors.New("vocabularies share no keys")

// #region errors
// CastTargetError reports a cast whose target vocabulary is missing or
// ambiguous.
type CastTargetError struct {
	Candidates []string
	Reason     string
}

func (e *CastTargetError) Error() string {
	if len(e.Candidates) == 0 {
		return "cast target: " + e.Reason
	}
	return fmt.Sprintf("cast target: %s (candidates: %s)", e.Reason, strings.Join(e.Candidates, ", "))
}
// #endregion errors

// #region reinterpret
// Reinterpret returns p's data unchanged, tagged as belonging to target.
func Reinterpret(p pointer.SemanticPointer, target pointer.Space) (pointer.SemanticPointer, error) {
	if target == nil {
		return pointer.SemanticPointer{}, &CastTargetError{Reason: "no target vocabulary"}
	}
	if p.Dimensions() != target.Dimensions() {
		return pointer.SemanticPointer{}, &pointer.DimensionMismatchError{
			Op:   "reinterpret",
			Want: target.Dimensions(),
			Got:  p.Dimensions(),
		}
	}
	return p.WithSpace(target), nil
}

// Infer picks the target vocabulary from the consuming contexts. Exactly one
// distinct non-nil candidate is required.
func Infer(candidates ...pointer.Space) (pointer.Space, error) {
	var found []pointer.Space
	for _, c := range candidates {
		if c == nil {
			continue
		}
		dup := false
		for _, f := range found {
			if f == c {
				dup = true
				break
			}
		}
		if !dup {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return nil, &CastTargetError{Reason: "target vocabulary cannot be inferred from context"}
	case 1:
		return found[0], nil
	}
	labels := make([]string, len(found))
	for i, f := range found {
		labels[i] = f.Label()
	}
	return nil, &CastTargetError{Candidates: labels, Reason: "target vocabulary is ambiguous"}
}
// #endregion reinterpret

// #region translate-options
// Solver selects how Translate builds its matrix.
type Solver int

const (
	// OuterProduct sums target ⊗ source over the key pairs.
	OuterProduct Solver = iota
	// LeastSquares finds the minimum-norm matrix mapping each source vector
	// onto its target as closely as possible.
	LeastSquares
)

type options struct {
	normalize bool
	solver    Solver
	keyMap    map[string]string
	keys      []string
	populate  bool
}

// Option configures Translate.
type Option func(*options)

// WithNormalize divides the outer-product sum by the number of key pairs.
func WithNormalize() Option { return func(o *options) { o.normalize = true } }

// WithSolver selects the construction method.
func WithSolver(s Solver) Option { return func(o *options) { o.solver = s } }

// WithKeyMap pairs source names with differently named target pointers.
func WithKeyMap(m map[string]string) Option { return func(o *options) { o.keyMap = m } }

// WithKeys restricts the pairs to the listed source names.
func WithKeys(keys ...string) Option { return func(o *options) { o.keys = keys } }

// WithPopulate generates target pointers for source names the target lacks.
func WithPopulate() Option { return func(o *options) { o.populate = true } }
// #endregion translate-options

// #region translate
// Pair links a source pointer name to a target pointer name.
type Pair struct {
	Source string
	Target string
}

// Transform is a linear map from one vocabulary into another.
type Transform struct {
	source *vocab.Vocabulary
	target *vocab.Vocabulary
	pairs  []Pair
	m      *mat.Dense // target.D × source.D
}

// Translate builds the transform mapping each paired source pointer onto
// its target pointer.
func Translate(source, target *vocab.Vocabulary, opts ...Option) (*Transform, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Resolve every pair before touching the target so that a failed
	// translate leaves both vocabularies as they were.
	var pairs []Pair
	var missing []string
	seen := make(map[string]bool)
	for _, k := range candidateKeys(source, o) {
		if !source.Contains(k) {
			return nil, fmt.Errorf("translate source: %w", &vocab.UnknownPointerError{Name: k, Vocab: source.Label()})
		}
		tk := targetName(k, o)
		if !target.Contains(tk) {
			switch {
			case o.populate:
				if !seen[tk] {
					seen[tk] = true
					missing = append(missing, tk)
				}
			case o.keyMap != nil:
				return nil, fmt.Errorf("translate target: %w", &vocab.UnknownPointerError{Name: tk, Vocab: target.Label()})
			default:
				continue
			}
		}
		pairs = append(pairs, Pair{Source: k, Target: tk})
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("translate %s to %s: %w", source.Label(), target.Label(), ErrNoSharedKeys)
	}

	src := mat.NewDense(len(pairs), source.Dimensions(), nil)
	for i, p := range pairs {
		s, err := source.Lookup(p.Source)
		if err != nil {
			return nil, fmt.Errorf("translate source: %w", err)
		}
		src.SetRow(i, s.Data())
	}

	var m *mat.Dense
	err := target.Update(func(tx *vocab.Tx) error {
		if len(missing) > 0 {
			if err := tx.Populate(strings.Join(missing, ";")); err != nil {
				return fmt.Errorf("translate populate %s: %w", target.Label(), err)
			}
		}
		tgt := mat.NewDense(len(pairs), target.Dimensions(), nil)
		for i, p := range pairs {
			t, err := tx.Lookup(p.Target)
			if err != nil {
				return fmt.Errorf("translate target: %w", err)
			}
			tgt.SetRow(i, t.Data())
		}
		var err error
		m, err = solve(src, tgt, o)
		if err != nil {
			return fmt.Errorf("translate %s to %s: %w", source.Label(), target.Label(), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Transform{source: source, target: target, pairs: pairs, m: m}, nil
}

func solve(src, tgt *mat.Dense, o options) (*mat.Dense, error) {
	if o.solver == LeastSquares {
		return leastSquares(src, tgt)
	}
	_, sd := src.Dims()
	_, td := tgt.Dims()
	m := mat.NewDense(td, sd, nil)
	m.Mul(tgt.T(), src)
	if o.normalize {
		n, _ := src.Dims()
		m.Scale(1/float64(n), m)
	}
	return m, nil
}

func candidateKeys(source *vocab.Vocabulary, o options) []string {
	switch {
	case o.keys != nil:
		return o.keys
	case o.keyMap != nil:
		keys := make([]string, 0, len(o.keyMap))
		for k := range o.keyMap {
			keys = append(keys, k)
		}
		order := make(map[string]int)
		for i, k := range source.Keys() {
			order[k] = i
		}
		sort.SliceStable(keys, func(i, j int) bool {
			oi, iok := order[keys[i]]
			oj, jok := order[keys[j]]
			if iok != jok {
				return iok
			}
			if oi != oj {
				return oi < oj
			}
			return keys[i] < keys[j]
		})
		return keys
	}
	return source.Keys()
}

func targetName(k string, o options) string {
	if t, ok := o.keyMap[k]; ok {
		return t
	}
	return k
}

// leastSquares returns the minimum-norm T with T·s_i ≈ t_i for each row
// pair, solving src·Tᵀ = tgt through the SVD.
func leastSquares(src, tgt *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(src, mat.SVDThin) {
		return nil, errors.New("least squares: SVD did not converge")
	}
	rank := svd.Rank(1e-12)
	if rank == 0 {
		return nil, errors.New("least squares: source vectors are all zero")
	}
	var xt mat.Dense
	svd.SolveTo(&xt, tgt, rank)
	var m mat.Dense
	m.CloneFrom(xt.T())
	return &m, nil
}
// #endregion translate

// #region transform
// Source returns the vocabulary the transform reads from.
func (t *Transform) Source() *vocab.Vocabulary { return t.source }

// Target returns the vocabulary the transform writes to.
func (t *Transform) Target() *vocab.Vocabulary { return t.target }

// Pairs returns the key pairs the transform was built from.
func (t *Transform) Pairs() []Pair { return append([]Pair(nil), t.pairs...) }

// Matrix returns a copy of the target.D × source.D matrix.
func (t *Transform) Matrix() *mat.Dense { return mat.DenseCopyOf(t.m) }

// Apply maps p into the target vocabulary.
func (t *Transform) Apply(p pointer.SemanticPointer) (pointer.SemanticPointer, error) {
	if p.Dimensions() != t.source.Dimensions() {
		return pointer.SemanticPointer{}, &pointer.DimensionMismatchError{
			Op:   "translate",
			Want: t.source.Dimensions(),
			Got:  p.Dimensions(),
		}
	}
	if s := p.Space(); s != nil && s != pointer.Space(t.source) {
		return pointer.SemanticPointer{}, &pointer.SpaceMismatchError{
			Op:    "translate",
			Left:  t.source.Label(),
			Right: s.Label(),
		}
	}
	var out mat.VecDense
	out.MulVec(t.m, mat.NewVecDense(p.Dimensions(), p.Vector()))
	name := ""
	if p.Name() != "" {
		name = "translate(" + p.Name() + ")"
	}
	return pointer.Shared(out.RawVector().Data, t.target, name), nil
}
// #endregion transform
