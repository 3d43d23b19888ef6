package vecgen

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"math/rand/v2"

	"github.com/danielpatrickdp/spa-engine/internal/algebra"
)

// DefaultMaxTries bounds the rejection sampling in GenerateConstrained.
const DefaultMaxTries = 100000

// ErrConstraintUnsatisfiable is matched by every *ConstraintError.
var ErrConstraintUnsatisfiable = errors.New("constraint unsatisfiable")

// #region errors
// ConstraintError reports that no candidate within the retry budget kept its
// similarity to every existing vector at or below the threshold.
type ConstraintError struct {
	Dimensions    int
	Existing      int
	MaxSimilarity float64
	Tries         int
	Best          float64 // lowest max-similarity seen across all candidates
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("could not find a %d-dimensional vector with similarity <= %.3f to %d existing vectors after %d tries (best %.3f)",
		e.Dimensions, e.MaxSimilarity, e.Existing, e.Tries, e.Best)
}

func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraintUnsatisfiable
}
// #endregion errors

// #region generate
// Generate draws an isotropic Gaussian vector and scales it to unit length.
func Generate(d int, rng *rand.Rand) []float64 {
	v := make([]float64, d)
	for {
		var sum float64
		for i := range v {
			v[i] = rng.NormFloat64()
			sum += v[i] * v[i]
		}
		if sum == 0 {
			continue
		}
		inv := 1 / math.Sqrt(sum)
		for i := range v {
			v[i] *= inv
		}
		return v
	}
}

// Constraint configures GenerateConstrained.
type Constraint struct {
	MaxSimilarity float64
	MaxTries      int
	// Transform, when set, is applied to each candidate before it is checked
	// against the existing vectors.
	Transform func([]float64) []float64
}

// DefaultConstraint returns the vocabulary defaults.
func DefaultConstraint() Constraint {
	return Constraint{MaxSimilarity: 0.1, MaxTries: DefaultMaxTries}
}

// GenerateConstrained draws candidates until one has cosine similarity at
// most c.MaxSimilarity to every vector in existing. Existing vectors need
// not be normalised.
func GenerateConstrained(d int, rng *rand.Rand, existing [][]float64, c Constraint) ([]float64, error) {
	tries := c.MaxTries
	if tries <= 0 {
		tries = DefaultMaxTries
	}
	norms := make([]float64, len(existing))
	for i, e := range existing {
		if len(e) != d {
			return nil, fmt.Errorf("existing vector %d: dimension %d, want %d", i, len(e), d)
		}
		norms[i] = math.Sqrt(dot(e, e))
	}

	best := math.Inf(1)
	for range tries {
		v := Generate(d, rng)
		if c.Transform != nil {
			v = c.Transform(v)
		}
		vn := math.Sqrt(dot(v, v))
		worst := math.Inf(-1)
		for i, e := range existing {
			if norms[i] == 0 || vn == 0 {
				continue
			}
			if s := dot(v, e) / (vn * norms[i]); s > worst {
				worst = s
				if worst > c.MaxSimilarity {
					break
				}
			}
		}
		if worst <= c.MaxSimilarity {
			return v, nil
		}
		best = min(best, worst)
	}
	return nil, &ConstraintError{
		Dimensions:    d,
		Existing:      len(existing),
		MaxSimilarity: c.MaxSimilarity,
		Tries:         tries,
		Best:          best,
	}
}
// #endregion generate

// #region iterators
// UnitLengthVectors yields an endless stream of random unit vectors.
func UnitLengthVectors(d int, rng *rand.Rand) iter.Seq[[]float64] {
	return func(yield func([]float64) bool) {
		for {
			if !yield(Generate(d, rng)) {
				return
			}
		}
	}
}

// UnitaryVectors yields an endless stream of random unitary vectors.
func UnitaryVectors(d int, rng *rand.Rand) iter.Seq[[]float64] {
	return func(yield func([]float64) bool) {
		for {
			if !yield(algebra.MakeUnitary(Generate(d, rng))) {
				return
			}
		}
	}
}
// #endregion iterators

// #region rng
// NewRand returns a PCG-backed generator seeded deterministically from seed.
func NewRand(seed uint64) (*rand.Rand, *rand.PCG) {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return rand.New(src), src
}
// #endregion rng

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
