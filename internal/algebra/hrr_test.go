package algebra

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// #region helpers
func randomUnit(t *testing.T, rng *rand.Rand, d int) []float64 {
	t.Helper()
	v := make([]float64, d)
	var sum float64
	for i := range v {
		v[i] = rng.NormFloat64()
		sum += v[i] * v[i]
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (norm(a) * norm(b))
}

func assertClose(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("index %d: got %.8f, want %.8f", i, got[i], want[i])
		}
	}
}

// naiveConv is the textbook definition c[k] = Σ a[i]·b[(k-i) mod d].
func naiveConv(a, b []float64) []float64 {
	d := len(a)
	out := make([]float64, d)
	for k := 0; k < d; k++ {
		for i := 0; i < d; i++ {
			out[k] += a[i] * b[((k-i)%d+d)%d]
		}
	}
	return out
}
// #endregion helpers

// #region bind-tests
func TestBindMatchesNaiveConvolution(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, d := range []int{1, 2, 3, 16, 17, 64} {
		a := randomUnit(t, rng, d)
		b := randomUnit(t, rng, d)
		assertClose(t, Bind(a, b), naiveConv(a, b), 1e-10)
	}
}

func TestBindCommutativeAndAssociative(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	a := randomUnit(t, rng, 64)
	b := randomUnit(t, rng, 64)
	c := randomUnit(t, rng, 64)

	assertClose(t, Bind(a, b), Bind(b, a), 1e-10)
	assertClose(t, Bind(a, Bind(b, c)), Bind(Bind(a, b), c), 1e-10)
}

func TestBindDistributesOverSuperposition(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	a := randomUnit(t, rng, 33)
	x := randomUnit(t, rng, 33)
	y := randomUnit(t, rng, 33)

	assertClose(t, Bind(a, Superpose(x, y)), Superpose(Bind(a, x), Bind(a, y)), 1e-10)
}

func TestBindWithIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	a := randomUnit(t, rng, 50)
	assertClose(t, Bind(a, Identity(50)), a, 1e-10)
}

func TestInvertInvolution(t *testing.T) {
	got := Invert([]float64{1, 2, 3, 4})
	assertClose(t, got, []float64{1, 4, 3, 2}, 0)
	assertClose(t, Invert(got), []float64{1, 2, 3, 4}, 0)
}

func TestUnbindRecovers(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	d := 64
	a := randomUnit(t, rng, d)
	b := randomUnit(t, rng, d)

	recovered := Bind(Bind(a, b), Invert(b))
	if c := cosine(recovered, a); c < 0.5 {
		t.Fatalf("expected similarity > 0.5 for random b, got %.4f", c)
	}

	u := MakeUnitary(b)
	recovered = Bind(Bind(a, u), Invert(u))
	if c := cosine(recovered, a); c < 0.999999 {
		t.Fatalf("expected exact recovery for unitary b, got %.8f", c)
	}
}

func TestUnbindExactInOneDimension(t *testing.T) {
	a := []float64{0.7}
	b := []float64{-1}
	assertClose(t, Bind(Bind(a, b), Invert(b)), a, 1e-12)
}
// #endregion bind-tests

// #region unitary-tests
func TestMakeUnitaryKeepsNorm(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	for _, d := range []int{64, 65, 100} {
		u := MakeUnitary(randomUnit(t, rng, d))
		if math.Abs(norm(u)-1) > 1e-9 {
			t.Fatalf("d=%d: unitary norm %.10f", d, norm(u))
		}
		uu := Bind(u, u)
		if math.Abs(norm(uu)-1) > 1e-9 {
			t.Fatalf("d=%d: u*u norm %.10f", d, norm(uu))
		}
		if math.Abs(norm(Bind(uu, u))-1) > 1e-9 {
			t.Fatalf("d=%d: u*u*u norm drifted", d)
		}
		if !IsUnitary(u, 1e-9) {
			t.Fatalf("d=%d: expected IsUnitary", d)
		}
	}
}

func TestMakeUnitaryIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 14))
	u := MakeUnitary(randomUnit(t, rng, 16))
	assertClose(t, MakeUnitary(u), u, 1e-10)
}

func TestMakeUnitaryZeroVector(t *testing.T) {
	got := MakeUnitary(Zero(8))
	assertClose(t, got, Identity(8), 1e-12)
}
// #endregion unitary-tests

// #region power-tests
func TestPowIntegerMatchesRepeatedBinding(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}

	p1, err := Pow(x, 1)
	if err != nil {
		t.Fatalf("Pow: %v", err)
	}
	assertClose(t, p1, x, 1e-9)

	p2, _ := Pow(x, 2)
	assertClose(t, p2, Bind(x, x), 1e-9)

	p4, _ := Pow(x, 4)
	assertClose(t, p4, Bind(Bind(x, x), Bind(x, x)), 1e-6)
}

func TestPowFractionalRequiresNondegenerate(t *testing.T) {
	x := MakeUnitary([]float64{1, 2, 3, 4, 5, 6})
	if IsNondegenerate(x) {
		t.Skip("vector happens to be nondegenerate")
	}
	_, err := Pow(x, 0.5)
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate, got %v", err)
	}
}

func TestPowFractionalAddsExponents(t *testing.T) {
	rng := rand.New(rand.NewPCG(15, 16))
	for _, d := range []int{1, 4, 9, 16, 129} {
		x := Nondegenerate(MakeUnitary(randomUnit(t, rng, d)))
		if !IsNondegenerate(x) {
			t.Fatalf("d=%d: Nondegenerate result is degenerate", d)
		}
		assertClose(t, Nondegenerate(x), x, 1e-10)

		a, _ := Pow(x, 1.3)
		b, _ := Pow(x, 0.4)
		sum, _ := Pow(x, 1.7)
		assertClose(t, Bind(a, b), sum, 1e-9)

		inv, _ := Pow(x, -1)
		assertClose(t, inv, Invert(x), 1e-9)

		zero, _ := Pow(x, 0)
		assertClose(t, zero, Identity(d), 1e-9)
	}
}
// #endregion power-tests

// #region special-element-tests
func TestAbsorbingElement(t *testing.T) {
	z := AbsorbingElement(16)
	if math.Abs(norm(z)-1) > 1e-12 {
		t.Fatalf("expected unit norm, got %.6f", norm(z))
	}
	rng := rand.New(rand.NewPCG(17, 18))
	a := randomUnit(t, rng, 16)
	bound := Bind(a, z)
	if c := math.Abs(cosine(bound, z)); math.Abs(c-1) > 1e-9 {
		t.Fatalf("expected binding to absorb into z, |cos|=%.6f", c)
	}
}

func TestBindingMatrix(t *testing.T) {
	rng := rand.New(rand.NewPCG(19, 20))
	a := randomUnit(t, rng, 64)
	b := randomUnit(t, rng, 64)

	var got mat.VecDense
	got.MulVec(BindingMatrix(b), mat.NewVecDense(64, a))
	assertClose(t, got.RawVector().Data, Bind(a, b), 1e-10)

	var swapped mat.VecDense
	swapped.MulVec(BindingMatrix(a), mat.NewVecDense(64, b))
	assertClose(t, swapped.RawVector().Data, Bind(a, b), 1e-10)
}
// #endregion special-element-tests
