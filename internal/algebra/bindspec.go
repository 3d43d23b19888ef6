package algebra

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// #region bind-spec
// BindSpec describes circular convolution as a Fourier-domain product network
// for a backend to compile: two input transforms into 4m product pairs
// (m = d/2+1 frequencies) and one output transform back to d dimensions.
//
// For input vectors a and b:
//
//	Bind(a, b) == Out · ((A·a) ⊙ (B·b))
//
// Row groups per frequency k are (Re·Re, Im·Im, Re·Im, Im·Re).
type BindSpec struct {
	Dimensions int
	InvertA    bool
	InvertB    bool
	A          *mat.Dense // 4m × d
	B          *mat.Dense // 4m × d
	Out        *mat.Dense // d × 4m
}

// NewBindSpec builds the product-network transforms for d-dimensional binding.
// invertA/invertB fold the involution of that input into its transform.
func NewBindSpec(d int, invertA, invertB bool) (*BindSpec, error) {
	if d < 1 {
		return nil, fmt.Errorf("bind spec: dimensions must be positive, got %d", d)
	}
	m := d/2 + 1
	re, im := dftRows(d, m)

	a := mat.NewDense(4*m, d, nil)
	b := mat.NewDense(4*m, d, nil)
	for k := 0; k < m; k++ {
		for n := 0; n < d; n++ {
			na, nb := n, n
			if invertA {
				na = involute(n, d)
			}
			if invertB {
				nb = involute(n, d)
			}
			a.Set(4*k, na, re[k][n])
			a.Set(4*k+1, na, im[k][n])
			a.Set(4*k+2, na, re[k][n])
			a.Set(4*k+3, na, im[k][n])

			b.Set(4*k, nb, re[k][n])
			b.Set(4*k+1, nb, im[k][n])
			b.Set(4*k+2, nb, im[k][n])
			b.Set(4*k+3, nb, re[k][n])
		}
	}

	out := mat.NewDense(d, 4*m, nil)
	for n := 0; n < d; n++ {
		for k := 0; k < m; k++ {
			w := 2.0
			if k == 0 || (d%2 == 0 && k == d/2) {
				w = 1
			}
			angle := 2 * math.Pi * float64(k*n) / float64(d)
			c := w * math.Cos(angle) / float64(d)
			s := w * math.Sin(angle) / float64(d)
			// Re Z = p0 - p1, Im Z = p2 + p3; z[n] += w(Re Z cos - Im Z sin)/d
			out.Set(n, 4*k, c)
			out.Set(n, 4*k+1, -c)
			out.Set(n, 4*k+2, -s)
			out.Set(n, 4*k+3, -s)
		}
	}

	return &BindSpec{
		Dimensions: d,
		InvertA:    invertA,
		InvertB:    invertB,
		A:          a,
		B:          b,
		Out:        out,
	}, nil
}

// Products returns the number of pairwise products the network computes.
func (s *BindSpec) Products() int {
	r, _ := s.A.Dims()
	return r
}

// Apply runs the specification exactly. It exists so a backend's compiled
// network can be checked against ground truth.
func (s *BindSpec) Apply(a, b []float64) []float64 {
	n := s.Products()
	pa := mat.NewVecDense(n, nil)
	pb := mat.NewVecDense(n, nil)
	pa.MulVec(s.A, mat.NewVecDense(len(a), append([]float64(nil), a...)))
	pb.MulVec(s.B, mat.NewVecDense(len(b), append([]float64(nil), b...)))
	pa.MulElemVec(pa, pb)

	out := mat.NewVecDense(s.Dimensions, nil)
	out.MulVec(s.Out, pa)
	return out.RawVector().Data
}
// #endregion bind-spec

// #region helpers
// dftRows returns the real and imaginary DFT rows for the first m frequencies.
func dftRows(d, m int) (re, im [][]float64) {
	re = make([][]float64, m)
	im = make([][]float64, m)
	for k := 0; k < m; k++ {
		re[k] = make([]float64, d)
		im[k] = make([]float64, d)
		for n := 0; n < d; n++ {
			angle := 2 * math.Pi * float64(k*n) / float64(d)
			re[k][n] = math.Cos(angle)
			im[k][n] = -math.Sin(angle)
		}
	}
	return re, im
}

// involute maps an input index to its position after Invert.
func involute(n, d int) int {
	if n == 0 {
		return 0
	}
	return d - n
}
// #endregion helpers
