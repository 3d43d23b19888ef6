package expr

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/danielpatrickdp/spa-engine/internal/pointer"
)

// #region helpers
type testSpace struct{ label string }

func (s *testSpace) Dimensions() int { return 64 }
func (s *testSpace) Label() string   { return s.label }

// mapScope resolves symbols from a fixed table. Names listed in states are
// bound to the state space.
type mapScope struct {
	vecs   map[string]pointer.SemanticPointer
	states map[string]pointer.Space
	casts  int
}

func (m *mapScope) Resolve(sym *Symbol, hint pointer.Space) (pointer.SemanticPointer, error) {
	p, ok := m.vecs[sym.Name]
	if !ok {
		return pointer.SemanticPointer{}, fmt.Errorf("unknown %q", sym.Name)
	}
	return p, nil
}

func (m *mapScope) SpaceOf(sym *Symbol) pointer.Space {
	if sym.Explicit {
		return nil
	}
	return m.states[sym.Name]
}

func (m *mapScope) Cast(c *Cast, v pointer.SemanticPointer, hint pointer.Space) (pointer.SemanticPointer, error) {
	m.casts++
	return v.WithSpace(hint), nil
}

func newScope(t *testing.T, names ...string) *mapScope {
	t.Helper()
	rng := rand.New(rand.NewPCG(1, 2))
	s := &mapScope{vecs: map[string]pointer.SemanticPointer{}, states: map[string]pointer.Space{}}
	for _, n := range names {
		v := make([]float64, 64)
		for i := range v {
			v[i] = rng.NormFloat64()
		}
		p, err := pointer.New(v)
		if err != nil {
			t.Fatalf("pointer.New: %v", err)
		}
		s.vecs[n] = p.Normalized().WithName(n)
	}
	return s
}

func mustParse(t *testing.T, src string) Node {
	t.Helper()
	n, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return n
}

func mustEval(t *testing.T, n Node, s Scope) Value {
	t.Helper()
	v, err := Eval(n, s, nil)
	if err != nil {
		t.Fatalf("Eval(%s): %v", String(n), err)
	}
	return v
}

func sameValue(a, b Value, tol float64) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == Scalar {
		return math.Abs(a.Scalar-b.Scalar) <= tol
	}
	x, y := a.Pointer.Data(), b.Pointer.Data()
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if math.Abs(x[i]-y[i]) > tol {
			return false
		}
	}
	return true
}
// #endregion helpers

// #region parse-tests
func TestParseStructure(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"A", "A"},
		{"A + B", "A + B"},
		{"A+B-C", "A + B - C"},
		{"A * B + C", "A * B + C"},
		{"A * (B + C)", "A * (B + C)"},
		{"~A * B", "~A * B"},
		{"~(A * B)", "~(A * B)"},
		{"-A", "-A"},
		{"-A * B", "-A * B"},
		{"2 * A", "2 * A"},
		{"A * 2", "2 * A"},
		{"-2 * A", "-2 * A"},
		{"0.5 * A + B", "0.5 * A + B"},
		{"A.normalized()", "A.normalized()"},
		{"(A + B).unitary()", "(A + B).unitary()"},
		{"A * B.unitary()", "(A * B).unitary()"},
		{"A + B.unitary()", "(A + B).unitary()"},
		{"A * (B.unitary())", "A * (B.unitary())"},
		{"-A.normalized()", "(-A).normalized()"},
		{"A.normalized() @ B", "dot(A.normalized(), B)"},
		{"A @ B", "dot(A, B)"},
		{"dot(A, B)", "dot(A, B)"},
		{"A * B @ C + D", "dot(A * B, C + D)"},
		{"dot(A, B) - 0.5", "dot(A, B) - 0.5"},
		{"0.5 * dot(A, B)", "0.5 * dot(A, B)"},
		{"reinterpret(A)", "reinterpret(A)"},
		{"translate(A + B, V2)", "translate(A + B, V2)"},
		{"sym(A) + b", "sym(A) + b"},
		{"A -\n  B", "A - B"},
		{"1e-05 * A", "1e-05 * A"},
	}
	for _, tc := range tests {
		n := mustParse(t, tc.src)
		if got := String(n); got != tc.want {
			t.Errorf("String(Parse(%q)) = %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestParseKinds(t *testing.T) {
	tests := []struct {
		src  string
		kind Kind
		node string
	}{
		{"A * B", Vector, "*expr.Bind"},
		{"2 * A", Vector, "*expr.Scale"},
		{"A * 2", Vector, "*expr.Scale"},
		{"2 * 3", Scalar, "*expr.Scale"},
		{"A @ B", Scalar, "*expr.Dot"},
		{"-A", Vector, "*expr.Sum"},
		{"-3", Scalar, "*expr.Literal"},
		{"dot(A, B) + dot(C, D)", Scalar, "*expr.Sum"},
	}
	for _, tc := range tests {
		n := mustParse(t, tc.src)
		if n.Kind() != tc.kind {
			t.Errorf("%q: kind %s, want %s", tc.src, n.Kind(), tc.kind)
		}
		if got := fmt.Sprintf("%T", n); got != tc.node {
			t.Errorf("%q: node %s, want %s", tc.src, got, tc.node)
		}
	}
}

func TestParseSumIsFlatLeftToRight(t *testing.T) {
	n := mustParse(t, "A - B + C")
	s, ok := n.(*Sum)
	if !ok || len(s.Terms) != 3 {
		t.Fatalf("expected flat three-term sum, got %#v", n)
	}
	if s.Terms[0].Neg || !s.Terms[1].Neg || s.Terms[2].Neg {
		t.Fatalf("unexpected signs: %+v", s.Terms)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src   string
		pos   int
		token string
	}{
		{"", 0, ""},
		{"A +", 3, ""},
		{"A + * B", 4, "*"},
		{"(A + B", 6, ""},
		{"A B", 2, "B"},
		{"A $ B", 2, "$"},
		{"~2", 0, "~"},
		{"A + 1", 2, "+"},
		{"2 @ A", 2, "@"},
		{"dot(1, A)", 4, "1"},
		{"A.foo()", 2, "foo"},
		{"2.5.normalized()", 4, "normalized"},
		{"A.unitary() * B", 12, "*"},
		{"cos(A)", 0, "cos"},
		{"translate(A, 3)", 13, "3"},
	}
	for _, tc := range tests {
		_, err := Parse(tc.src)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Parse(%q): expected *ParseError, got %v", tc.src, err)
			continue
		}
		if pe.Pos != tc.pos || pe.Token != tc.token {
			t.Errorf("Parse(%q): got pos=%d token=%q, want pos=%d token=%q (%v)", tc.src, pe.Pos, pe.Token, tc.pos, tc.token, pe)
		}
	}
}

func TestParseKindRequirement(t *testing.T) {
	if _, err := ParseKind("dot(A, B)", Scalar); err != nil {
		t.Fatalf("ParseKind scalar: %v", err)
	}
	_, err := ParseKind("A + B", Scalar)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestParseAssignment(t *testing.T) {
	dest, n, err := ParseAssignment("out = A * B")
	if err != nil {
		t.Fatalf("ParseAssignment: %v", err)
	}
	if dest != "out" || String(n) != "A * B" {
		t.Fatalf("got %q = %q", dest, String(n))
	}
	for _, bad := range []string{"out", "= A", "out = ", "out = dot(A, B)", "1 = A"} {
		if _, _, err := ParseAssignment(bad); err == nil {
			t.Errorf("ParseAssignment(%q): expected error", bad)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	for s, want := range map[string]bool{
		"A": true, "Abc_1": true, "_x": true, "": false, "1A": false, "A B": false, " A": false, "A+B": false,
	} {
		if got := IsIdentifier(s); got != want {
			t.Errorf("IsIdentifier(%q) = %v, want %v", s, got, want)
		}
	}
}
// #endregion parse-tests

// #region eval-tests
func TestEvalMatchesPointerOps(t *testing.T) {
	s := newScope(t, "A", "B", "C")
	a, b, c := s.vecs["A"], s.vecs["B"], s.vecs["C"]

	ab, _ := a.Bind(b)
	abc, _ := ab.Add(c)
	v := mustEval(t, mustParse(t, "A * B + C"), s)
	if !sameValue(v, Value{Kind: Vector, Pointer: abc}, 1e-12) {
		t.Fatal("A * B + C differs from pointer ops")
	}

	inv, _ := a.Bind(b.Invert())
	v = mustEval(t, mustParse(t, "A * ~B"), s)
	if !sameValue(v, Value{Kind: Vector, Pointer: inv}, 1e-12) {
		t.Fatal("A * ~B differs from pointer ops")
	}

	d, _ := a.Dot(b)
	v = mustEval(t, mustParse(t, "0.5 * (A @ B) - 1"), s)
	if v.Kind != Scalar || math.Abs(v.Scalar-(0.5*d-1)) > 1e-12 {
		t.Fatalf("expected %f, got %v", 0.5*d-1, v)
	}

	v = mustEval(t, mustParse(t, "-2 * A"), s)
	if !sameValue(v, Value{Kind: Vector, Pointer: a.Scale(-2)}, 1e-12) {
		t.Fatal("-2 * A differs from Scale(-2)")
	}
}

func TestPostfixBindsBelowSum(t *testing.T) {
	n := mustParse(t, "A + B.unitary()")
	u, ok := n.(*Unitary)
	if !ok {
		t.Fatalf("expected *Unitary at the root, got %T", n)
	}
	if _, ok := u.Child.(*Sum); !ok {
		t.Fatalf("expected the sum under .unitary(), got %T", u.Child)
	}

	n = mustParse(t, "A * B.normalized() @ C")
	d, ok := n.(*Dot)
	if !ok {
		t.Fatalf("expected '@' to bind last, got %T", n)
	}
	if norm, ok := d.Left.(*Normalize); !ok {
		t.Fatalf("expected Normalize on the left of '@', got %T", d.Left)
	} else if _, ok := norm.Child.(*Bind); !ok {
		t.Fatalf("expected the product under .normalized(), got %T", norm.Child)
	}
}

func TestEvalPostfix(t *testing.T) {
	s := newScope(t, "A", "B")
	v := mustEval(t, mustParse(t, "(A + B).normalized()"), s)
	if math.Abs(v.Pointer.Length()-1) > 1e-12 {
		t.Fatalf("expected unit length, got %f", v.Pointer.Length())
	}
	v = mustEval(t, mustParse(t, "(A.unitary()) * (A.unitary())"), s)
	if math.Abs(v.Pointer.Length()-1) > 1e-9 {
		t.Fatalf("expected unit length after unitary binding, got %f", v.Pointer.Length())
	}
}

func TestEvalNames(t *testing.T) {
	s := newScope(t, "A", "B")
	v := mustEval(t, mustParse(t, "A + ~B"), s)
	if got := v.Pointer.Name(); got != "(A)+(~(B))" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestEvalCastUsesScope(t *testing.T) {
	s := newScope(t, "A")
	target := &testSpace{label: "target"}
	v, err := Eval(mustParse(t, "reinterpret(A)"), s, target)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if s.casts != 1 || v.Pointer.Space() != target {
		t.Fatalf("expected scope cast to target, casts=%d", s.casts)
	}
}

func TestInferPrefersStateSpace(t *testing.T) {
	s := newScope(t, "A", "state")
	space := &testSpace{label: "v"}
	s.states["state"] = space

	if got := Infer(mustParse(t, "A * state + A"), s); got != space {
		t.Fatalf("expected inferred space %v, got %v", space, got)
	}
	if got := Infer(mustParse(t, "sym(state)"), s); got != nil {
		t.Fatalf("explicit symbols are never states, got %v", got)
	}
	if got := Infer(mustParse(t, "reinterpret(state)"), s); got != nil {
		t.Fatalf("casts hide the source space, got %v", got)
	}
}

func TestEvalUnknownSymbol(t *testing.T) {
	s := newScope(t, "A")
	if _, err := Eval(mustParse(t, "A + Missing"), s, nil); err == nil {
		t.Fatal("expected error for unknown symbol")
	}
}

func TestEvalKindErrorsForHandBuiltTrees(t *testing.T) {
	s := newScope(t, "A")
	_, err := Eval(InvertOf(Num(2)), s, nil)
	var ke *KindError
	if !errors.As(err, &ke) {
		t.Fatalf("expected *KindError, got %v", err)
	}
	if _, err := EvalScalar(Sym("A"), s); !errors.As(err, &ke) {
		t.Fatalf("expected *KindError from EvalScalar, got %v", err)
	}
	if _, err := EvalPointer(Num(1), s, nil); !errors.As(err, &ke) {
		t.Fatalf("expected *KindError from EvalPointer, got %v", err)
	}
}
// #endregion eval-tests

// #region round-trip-tests
func TestRoundTrip(t *testing.T) {
	s := newScope(t, "A", "B", "C", "D")
	sources := []string{
		"A",
		"A + B - C",
		"A - (B + C)",
		"A - (B - C)",
		"-(A + B) * C",
		"-A * -B",
		"~~A",
		"~-A",
		"A * B * C",
		"A * (B * C)",
		"2 * A * B",
		"A * 3 * B",
		"(A + B).normalized().unitary()",
		"-A.normalized()",
		"((A * ~B).normalized()) + 0.25 * C",
		"A + B.unitary()",
		"A * (B.unitary()) - C",
		"A @ B",
		"dot(A, B) * dot(C, D) - 2",
		"-dot(A, B)",
		"--2",
		"1e-05 * A + 1e+10 * B",
		"(0.5 - dot(A, B)) * C",
		"sym(A) * B",
	}
	for _, src := range sources {
		n := mustParse(t, src)
		text := String(n)
		again, err := Parse(text)
		if err != nil {
			t.Fatalf("reparse %q (from %q): %v", text, src, err)
		}
		if String(again) != text {
			t.Errorf("String not stable: %q -> %q", text, String(again))
		}
		if !sameValue(mustEval(t, n, s), mustEval(t, again, s), 1e-9) {
			t.Errorf("round trip of %q changed its value", src)
		}
	}
}

func TestRoundTripCombinators(t *testing.T) {
	s := newScope(t, "A", "B", "C")
	trees := []Node{
		Superpose(Sym("A"), BindOf(Sym("B"), Sym("C"))),
		Subtract(Sym("A"), Superpose(Sym("B"), Sym("C"))),
		Negate(Num(-2)),
		ScaleOf(-1.5, InvertOf(Sym("A"))),
		BindOf(Num(2), Sym("A")),
		NormalizeOf(Negate(Sym("A"))),
		UnitaryOf(Subtract(Sym("A"), Sym("B"))),
		Similarity(Superpose(Sym("A"), Sym("B")), Sym("C")),
		Superpose(Superpose(Sym("A"), Sym("B")), Sym("C")),
	}
	for _, n := range trees {
		text := String(n)
		again, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if !sameValue(mustEval(t, n, s), mustEval(t, again, s), 1e-9) {
			t.Errorf("round trip of %q changed its value", text)
		}
	}
}

func TestCastString(t *testing.T) {
	for _, tc := range []struct {
		n    Node
		want string
	}{
		{ReinterpretAs(Sym("A"), ""), "reinterpret(sym(A))"},
		{TranslateTo(Ref("a"), "V2"), "translate(a, V2)"},
	} {
		if got := String(tc.n); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}
// #endregion round-trip-tests
