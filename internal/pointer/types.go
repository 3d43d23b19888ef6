package pointer

import (
	"fmt"

	"github.com/danielpatrickdp/spa-engine/internal/algebra"
)

// #region space
// Space is the vocabulary a pointer belongs to. Pointers tagged with different
// spaces cannot be combined without an explicit cast; an untagged pointer is
// compatible with every space.
type Space interface {
	Dimensions() int
	Label() string
}

// AlgebraSpace is a Space whose pointers bind under a specific algebra.
// Pointers tagged with any other Space use HRR.
type AlgebraSpace interface {
	Space
	Algebra() algebra.Algebra
}
// #endregion space

// #region errors
// DimensionMismatchError reports an operation between vectors or vocabularies
// of incompatible size.
type DimensionMismatchError struct {
	Op   string
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: dimension mismatch: want %d, got %d", e.Op, e.Want, e.Got)
}

// SpaceMismatchError reports an operation between pointers of two different
// vocabularies of the same dimension.
type SpaceMismatchError struct {
	Op          string
	Left, Right string
}

func (e *SpaceMismatchError) Error() string {
	return fmt.Sprintf("%s: incompatible vocabularies %q and %q (cast explicitly)", e.Op, e.Left, e.Right)
}

// AlgebraMismatchError reports an operation between pointers of different
// binding algebras.
type AlgebraMismatchError struct {
	Op          string
	Left, Right string
}

func (e *AlgebraMismatchError) Error() string {
	return fmt.Sprintf("%s: incompatible algebras %s and %s", e.Op, e.Left, e.Right)
}
// #endregion errors
