package algebra

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// #region vtb
// vtbAlgebra binds by reshaping b into an s×s block (s = sqrt(d)) and
// applying sqrt(s)·B to each of the s sub-vectors of a. Dimensions must be
// perfect squares. Binding is not commutative and Identity is a right
// identity only.
type vtbAlgebra struct{}

func (vtbAlgebra) Name() string { return "vtb" }

func (vtbAlgebra) IsValidDimensionality(d int) bool {
	if d < 1 {
		return false
	}
	s := subDimensions(d)
	return s*s == d
}

func subDimensions(d int) int {
	return int(math.Round(math.Sqrt(float64(d))))
}

func (vtbAlgebra) Bind(a, b []float64) []float64 {
	s := subDimensions(len(a))
	scale := math.Sqrt(float64(s))
	out := make([]float64, len(a))
	for i := 0; i < s; i++ {
		for r := 0; r < s; r++ {
			var sum float64
			for c := 0; c < s; c++ {
				sum += b[r*s+c] * a[i*s+c]
			}
			out[i*s+r] = scale * sum
		}
	}
	return out
}

// Invert transposes the s×s block.
func (vtbAlgebra) Invert(v []float64) []float64 {
	s := subDimensions(len(v))
	out := make([]float64, len(v))
	for r := 0; r < s; r++ {
		for c := 0; c < s; c++ {
			out[r*s+c] = v[c*s+r]
		}
	}
	return out
}

// MakeUnitary replaces the block by its nearest orthogonal matrix, scaled by
// 1/sqrt(s) so that the vector has unit length.
func (a vtbAlgebra) MakeUnitary(v []float64) []float64 {
	s := subDimensions(len(v))
	var svd mat.SVD
	if !svd.Factorize(mat.NewDense(s, s, append([]float64(nil), v...)), mat.SVDFull) {
		return a.Identity(len(v))
	}
	var u, w, q mat.Dense
	svd.UTo(&u)
	svd.VTo(&w)
	q.Mul(&u, w.T())
	out := make([]float64, len(v))
	inv := 1 / math.Sqrt(float64(s))
	for r := 0; r < s; r++ {
		for c := 0; c < s; c++ {
			out[r*s+c] = q.At(r, c) * inv
		}
	}
	return out
}

func (vtbAlgebra) Identity(d int) []float64 {
	s := subDimensions(d)
	out := make([]float64, d)
	x := 1 / math.Sqrt(float64(s))
	for r := 0; r < s; r++ {
		out[r*s+r] = x
	}
	return out
}

func (vtbAlgebra) AbsorbingElement(int) ([]float64, error) {
	return nil, ErrNoAbsorbingElement
}

func (vtbAlgebra) BindingMatrix(v []float64, swapInputs bool) *mat.Dense {
	d := len(v)
	s := subDimensions(d)
	scale := math.Sqrt(float64(s))
	m := mat.NewDense(d, d, nil)
	for i := 0; i < s; i++ {
		for r := 0; r < s; r++ {
			for c := 0; c < s; c++ {
				if swapInputs {
					m.Set(i*s+r, r*s+c, scale*v[i*s+c])
				} else {
					m.Set(i*s+r, i*s+c, scale*v[r*s+c])
				}
			}
		}
	}
	return m
}
// #endregion vtb
