package algebra

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned by Pow for a fractional exponent on a vector whose
// DC or Nyquist Fourier coefficient is negative.
var ErrDegenerate = errors.New("fractional binding power requires a nondegenerate vector")

// #region fft
// rfft returns the d/2+1 non-redundant Fourier coefficients of v.
func rfft(v []float64) []complex128 {
	if len(v) == 1 {
		return []complex128{complex(v[0], 0)}
	}
	return fourier.NewFFT(len(v)).Coefficients(nil, v)
}

// irfft inverts rfft. gonum's Sequence is unnormalised, so the result is
// scaled by 1/n here.
func irfft(c []complex128, n int) []float64 {
	if n == 1 {
		return []float64{real(c[0])}
	}
	out := fourier.NewFFT(n).Sequence(nil, c)
	inv := 1 / float64(n)
	for i := range out {
		out[i] *= inv
	}
	return out
}
// #endregion fft

// #region bind
// Bind computes the circular convolution of a and b. Both must have the same
// length; callers check dimensions.
func Bind(a, b []float64) []float64 {
	if len(a) == 1 {
		return []float64{a[0] * b[0]}
	}
	fa := rfft(a)
	fb := rfft(b)
	for i := range fa {
		fa[i] *= fb[i]
	}
	return irfft(fa, len(a))
}

// Invert returns the approximate inverse (involution) of b:
// out[0] = b[0], out[k] = b[d-k].
func Invert(b []float64) []float64 {
	d := len(b)
	out := make([]float64, d)
	if d == 0 {
		return out
	}
	out[0] = b[0]
	for k := 1; k < d; k++ {
		out[k] = b[d-k]
	}
	return out
}

// Superpose adds a and b element-wise.
func Superpose(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}
// #endregion bind

// #region unitary
// MakeUnitary rescales every Fourier coefficient of v to magnitude 1 while
// keeping its phase. A zero coefficient becomes 1.
func MakeUnitary(v []float64) []float64 {
	c := rfft(v)
	for i, z := range c {
		mag := cmplx.Abs(z)
		if mag == 0 {
			c[i] = 1
			continue
		}
		c[i] = z / complex(mag, 0)
	}
	return irfft(c, len(v))
}

// IsUnitary reports whether every Fourier coefficient of v has magnitude 1
// within tol.
func IsUnitary(v []float64, tol float64) bool {
	for _, z := range rfft(v) {
		if math.Abs(cmplx.Abs(z)-1) > tol {
			return false
		}
	}
	return true
}
// #endregion unitary

// #region power
// Nondegenerate flips the sign of the DC and (for even d) Nyquist
// coefficients so both are non-negative. Fractional powers of the result
// stay real.
func Nondegenerate(v []float64) []float64 {
	c := rfft(v)
	c[0] = complex(math.Abs(real(c[0])), 0)
	if len(v)%2 == 0 && len(v) > 1 {
		last := len(c) - 1
		c[last] = complex(math.Abs(real(c[last])), 0)
	}
	return irfft(c, len(v))
}

// IsNondegenerate reports whether the DC and Nyquist coefficients of v are
// non-negative.
func IsNondegenerate(v []float64) bool {
	c := rfft(v)
	if real(c[0]) < 0 {
		return false
	}
	if len(v)%2 == 0 && len(v) > 1 && real(c[len(c)-1]) < 0 {
		return false
	}
	return true
}

// Pow raises v to a binding power: magnitudes to the exponent, phases
// multiplied by it. For integer exponents this equals repeated binding
// (and repeated binding with the inverse for negative exponents on unitary v).
func Pow(v []float64, exponent float64) ([]float64, error) {
	if math.Trunc(exponent) != exponent && !IsNondegenerate(v) {
		return nil, ErrDegenerate
	}
	c := rfft(v)
	for i, z := range c {
		r, theta := cmplx.Polar(z)
		c[i] = cmplx.Rect(math.Pow(r, exponent), theta*exponent)
	}
	return irfft(c, len(v)), nil
}
// #endregion power

// #region special-elements
// Identity returns the binding identity [1, 0, ..., 0].
func Identity(d int) []float64 {
	out := make([]float64, d)
	if d > 0 {
		out[0] = 1
	}
	return out
}

// Zero returns the zero vector.
func Zero(d int) []float64 {
	return make([]float64, d)
}

// AbsorbingElement returns the unit vector with all components 1/sqrt(d).
// Binding anything with it yields a multiple of itself.
func AbsorbingElement(d int) []float64 {
	out := make([]float64, d)
	x := 1 / math.Sqrt(float64(d))
	for i := range out {
		out[i] = x
	}
	return out
}
// #endregion special-elements

// #region binding-matrix
// BindingMatrix returns the d×d circulant matrix M with M·a == Bind(a, b).
// Binding is commutative, so the same matrix applied to a vector x gives
// Bind(x, b) regardless of input order.
func BindingMatrix(b []float64) *mat.Dense {
	d := len(b)
	m := mat.NewDense(d, d, nil)
	for k := 0; k < d; k++ {
		for i := 0; i < d; i++ {
			m.Set(k, i, b[((k-i)%d+d)%d])
		}
	}
	return m
}
// #endregion binding-matrix
