package algebra

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// #region interface
// Algebra is a binding algebra over real vectors. Superposition is always
// element-wise addition; the algebra supplies binding, the approximate
// inverse and its special elements.
type Algebra interface {
	Name() string
	IsValidDimensionality(d int) bool
	Bind(a, b []float64) []float64
	Invert(v []float64) []float64
	MakeUnitary(v []float64) []float64
	Identity(d int) []float64
	AbsorbingElement(d int) ([]float64, error)
	// BindingMatrix returns M with M·x == Bind(x, v), or with swapInputs
	// M·x == Bind(v, x).
	BindingMatrix(v []float64, swapInputs bool) *mat.Dense
}

// Fractional is implemented by algebras that define real binding powers.
type Fractional interface {
	Pow(v []float64, exponent float64) ([]float64, error)
	Nondegenerate(v []float64) []float64
}

// HRR is circular convolution, the default algebra.
var HRR Algebra = hrrAlgebra{}

// VTB is vector-derived transformation binding.
var VTB Algebra = vtbAlgebra{}

// ByName returns the algebra registered under name. The empty name is HRR.
func ByName(name string) (Algebra, error) {
	switch strings.ToLower(name) {
	case "", "hrr":
		return HRR, nil
	case "vtb":
		return VTB, nil
	}
	return nil, fmt.Errorf("unknown algebra %q (want hrr or vtb)", name)
}
// #endregion interface

// #region errors
// ErrNoAbsorbingElement is returned by algebras without an absorbing element.
var ErrNoAbsorbingElement = errors.New("algebra has no absorbing element")

// DimensionalityError reports a vector length the algebra cannot bind.
type DimensionalityError struct {
	Algebra    string
	Dimensions int
}

func (e *DimensionalityError) Error() string {
	return fmt.Sprintf("%d dimensions are not valid for the %s algebra", e.Dimensions, e.Algebra)
}

// CheckDimensionality returns a *DimensionalityError when d is invalid for a.
func CheckDimensionality(a Algebra, d int) error {
	if !a.IsValidDimensionality(d) {
		return &DimensionalityError{Algebra: a.Name(), Dimensions: d}
	}
	return nil
}
// #endregion errors

// #region hrr
type hrrAlgebra struct{}

func (hrrAlgebra) Name() string                                  { return "hrr" }
func (hrrAlgebra) IsValidDimensionality(d int) bool              { return d >= 1 }
func (hrrAlgebra) Bind(a, b []float64) []float64                 { return Bind(a, b) }
func (hrrAlgebra) Invert(v []float64) []float64                  { return Invert(v) }
func (hrrAlgebra) MakeUnitary(v []float64) []float64             { return MakeUnitary(v) }
func (hrrAlgebra) Identity(d int) []float64                      { return Identity(d) }
func (hrrAlgebra) AbsorbingElement(d int) ([]float64, error)     { return AbsorbingElement(d), nil }
func (hrrAlgebra) Pow(v []float64, e float64) ([]float64, error) { return Pow(v, e) }
func (hrrAlgebra) Nondegenerate(v []float64) []float64           { return Nondegenerate(v) }

// Circular convolution is commutative, so swapping inputs changes nothing.
func (hrrAlgebra) BindingMatrix(v []float64, _ bool) *mat.Dense { return BindingMatrix(v) }
// #endregion hrr
