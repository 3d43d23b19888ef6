package model

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/spa-engine/internal/action"
	"github.com/danielpatrickdp/spa-engine/internal/cast"
	"github.com/danielpatrickdp/spa-engine/internal/expr"
	"github.com/danielpatrickdp/spa-engine/internal/pointer"
	"github.com/danielpatrickdp/spa-engine/internal/vocab"
)

// #region helpers
func populate(t *testing.T, b *Builder, name string, d int, seed uint64, spec string) *vocab.Vocabulary {
	t.Helper()
	v, err := b.Vocabulary(name, d, vocab.WithSeed(seed))
	if err != nil {
		t.Fatalf("Vocabulary(%s): %v", name, err)
	}
	if err := v.Populate(spec); err != nil {
		t.Fatalf("Populate(%s): %v", name, err)
	}
	return v
}

func similarity(t *testing.T, n *Network, state, vocabName, key string) float64 {
	t.Helper()
	got, err := n.Value(state)
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	v, _ := n.Vocabulary(vocabName)
	want, err := v.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	c, err := got.Compare(want)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	return c
}

// castNetwork declares v1 and v2 (64-d, same keys, different vectors) and
// v3 (32-d, sharing A and B), with one state in each.
func castNetwork(t *testing.T) *Network {
	t.Helper()
	n, err := Build(func(b *Builder) error {
		populate(t, b, "V1", 64, 1, "A; B; C")
		populate(t, b, "V2", 64, 2, "A; B; C")
		populate(t, b, "V3", 32, 3, "A; B; D")
		for state, v := range map[string]string{"a": "V1", "b": "V2", "c": "V3"} {
			if err := b.State(state, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return n
}
// #endregion helpers

// #region builder-tests
func TestBuilderLifecycle(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Vocabulary("V", 16); !errors.Is(err, ErrNotBegun) {
		t.Fatalf("expected ErrNotBegun, got %v", err)
	}
	if err := b.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := b.Begin(); err == nil {
		t.Fatal("expected error on second Begin")
	}
	v := populate(t, b, "V", 16, 1, "A")
	n, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !v.Frozen() {
		t.Fatal("Finalize must freeze vocabularies")
	}
	if err := v.Populate("B"); !errors.Is(err, vocab.ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
	if err := b.State("s", "V"); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
	if _, err := b.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
	if got := n.Vocabularies(); len(got) != 1 || got[0] != "V" {
		t.Fatalf("unexpected vocabularies %v", got)
	}
}

func TestBuildFinalizesOnError(t *testing.T) {
	var v *vocab.Vocabulary
	boom := errors.New("boom")
	n, err := Build(func(b *Builder) error {
		v = populate(t, b, "V", 16, 1, "A")
		return boom
	})
	if !errors.Is(err, boom) || n != nil {
		t.Fatalf("expected fn error, got %v, %v", n, err)
	}
	if !v.Frozen() {
		t.Fatal("expected finalize to run on error")
	}
}

func TestBuildAcceptsExplicitFinalize(t *testing.T) {
	var v *vocab.Vocabulary
	n, err := Build(func(b *Builder) error {
		v = populate(t, b, "V", 16, 1, "A")
		_, err := b.Finalize()
		return err
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n == nil || !v.Frozen() {
		t.Fatalf("expected a finalized network, got %v", n)
	}
	if got, ok := n.Vocabulary("V"); !ok || got != v {
		t.Fatal("expected the network declared before Finalize")
	}
}

func TestBuildFinalizesOnPanic(t *testing.T) {
	var v *vocab.Vocabulary
	func() {
		defer func() { _ = recover() }()
		_, _ = Build(func(b *Builder) error {
			v = populate(t, b, "V", 16, 1, "A")
			panic("boom")
		})
	}()
	if v == nil || !v.Frozen() {
		t.Fatal("expected finalize to run on panic")
	}
}

func TestBuilderDeclarationErrors(t *testing.T) {
	_, err := Build(func(b *Builder) error {
		populate(t, b, "V", 16, 1, "A")
		if _, err := b.Vocabulary("V", 16); err == nil {
			t.Error("expected duplicate vocabulary error")
		}
		if err := b.State("s", "Missing"); !errors.Is(err, ErrUnknownVocabulary) {
			t.Errorf("expected ErrUnknownVocabulary, got %v", err)
		}
		if err := b.State("Upper", "V"); err == nil {
			t.Error("expected error for uppercase state name")
		}
		if err := b.State("s", "V"); err != nil {
			return err
		}
		if err := b.State("s", "V"); err == nil {
			t.Error("expected duplicate state error")
		}
		if err := b.Actions(action.NewBlock("bg")); err != nil {
			return err
		}
		if err := b.Actions(action.NewBlock("bg")); err == nil {
			t.Error("expected duplicate block error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
}
// #endregion builder-tests

// #region state-tests
func TestSetAndValue(t *testing.T) {
	n, err := Build(func(b *Builder) error {
		populate(t, b, "V", 32, 4, "A; B.unitary(); C = A * B")
		return b.State("s", "V")
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	zero, _ := n.Value("s")
	if zero.Length() != 0 {
		t.Fatal("states start at zero")
	}
	if err := n.Set("s", "C * ~B"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if c := similarity(t, n, "s", "V", "A"); c <= 0.95 {
		t.Fatalf("expected unbinding to recover A, similarity %.4f", c)
	}
	if err := n.Set("missing", "A"); !errors.Is(err, ErrUnknownState) {
		t.Fatalf("expected ErrUnknownState, got %v", err)
	}
	if _, err := n.Value("missing"); !errors.Is(err, ErrUnknownState) {
		t.Fatalf("expected ErrUnknownState, got %v", err)
	}
}

func TestEvaluateInfersVocabularyFromStates(t *testing.T) {
	n := castNetwork(t)
	if err := n.Set("a", "A"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := n.Evaluate("dot(a, A)", "")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.Kind != expr.Scalar || v.Scalar < 0.99 {
		t.Fatalf("expected dot(a, A) ~ 1, got %v", v)
	}

	var te *cast.CastTargetError
	if _, err := n.Evaluate("A + B", ""); !errors.As(err, &te) {
		t.Fatalf("expected CastTargetError for free names with several vocabularies, got %v", err)
	}
	if _, err := n.Evaluate("A + B", "V2"); err != nil {
		t.Fatalf("Evaluate with explicit vocabulary: %v", err)
	}
	if _, err := n.Evaluate("A", "Nope"); !errors.Is(err, ErrUnknownVocabulary) {
		t.Fatalf("expected ErrUnknownVocabulary, got %v", err)
	}
}
// #endregion state-tests

// #region cast-tests
func TestCrossVocabularyAssignmentNeedsCast(t *testing.T) {
	n := castNetwork(t)
	if err := n.Set("a", "A"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var sm *pointer.SpaceMismatchError
	if err := n.Set("b", "a"); !errors.As(err, &sm) {
		t.Fatalf("expected SpaceMismatchError, got %v", err)
	}

	if err := n.Set("b", "reinterpret(a)"); err != nil {
		t.Fatalf("Set reinterpret: %v", err)
	}
	a, _ := n.Value("a")
	b, _ := n.Value("b")
	for i, x := range a.Data() {
		if b.Data()[i] != x {
			t.Fatalf("reinterpret changed index %d", i)
		}
	}
	if b.Space() != pointer.Space(mustVocab(t, n, "V2")) {
		t.Fatal("expected b tagged with V2")
	}
}

func TestReinterpretDimensionMismatch(t *testing.T) {
	n := castNetwork(t)
	var dm *pointer.DimensionMismatchError
	if err := n.Set("c", "reinterpret(a)"); !errors.As(err, &dm) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
}

func TestTranslateAcrossDimensions(t *testing.T) {
	n := castNetwork(t)
	if err := n.Set("a", "B"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := n.Set("c", "translate(a)"); err != nil {
		t.Fatalf("Set translate: %v", err)
	}
	if c := similarity(t, n, "c", "V3", "B"); c < 0.8 {
		t.Fatalf("expected translated B close to V3's B, similarity %.4f", c)
	}
}

func TestExplicitCastTargets(t *testing.T) {
	n := castNetwork(t)
	if err := n.Set("a", "A"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := n.Evaluate("reinterpret(a, V2)", "")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.Pointer.Space() != pointer.Space(mustVocab(t, n, "V2")) {
		t.Fatal("expected explicit vocabulary target")
	}
	v, err = n.Evaluate("translate(a, c)", "")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.Pointer.Dimensions() != 32 {
		t.Fatal("expected state name to select its vocabulary as target")
	}

	var te *cast.CastTargetError
	if _, err := n.Evaluate("reinterpret(a)", ""); !errors.As(err, &te) {
		t.Fatalf("expected CastTargetError without context, got %v", err)
	}
	if _, err := n.Evaluate("reinterpret(a, nothing)", ""); !errors.As(err, &te) {
		t.Fatalf("expected CastTargetError for unknown target, got %v", err)
	}
}

func mustVocab(t *testing.T, n *Network, name string) *vocab.Vocabulary {
	t.Helper()
	v, ok := n.Vocabulary(name)
	if !ok {
		t.Fatalf("missing vocabulary %s", name)
	}
	return v
}
// #endregion cast-tests

// #region step-tests
func TestNetworkStep(t *testing.T) {
	n, err := Build(func(b *Builder) error {
		populate(t, b, "V", 64, 5, "Dog; Cat; Bark; Meow")
		for _, s := range []string{"vision", "motor"} {
			if err := b.State(s, "V"); err != nil {
				return err
			}
		}
		bg := action.NewBlock("bg", action.WithThreshold(0.5))
		if err := bg.Add("dot(vision, Dog)", "motor = Bark"); err != nil {
			return err
		}
		if err := bg.Add("dot(vision, Cat)", "motor = Meow"); err != nil {
			return err
		}
		return b.Actions(bg)
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	decisions, err := n.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(decisions) != 1 || decisions[0].Fired() {
		t.Fatalf("expected no action for empty vision, got %+v", decisions)
	}

	if err := n.Set("vision", "Cat"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	decisions, err = n.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if decisions[0].Winner != 1 {
		t.Fatalf("expected cat action, got %+v", decisions[0])
	}
	if c := similarity(t, n, "motor", "V", "Meow"); c < 0.99 {
		t.Fatalf("expected motor = Meow, similarity %.4f", c)
	}
}
// #endregion step-tests
