package model

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/danielpatrickdp/spa-engine/internal/action"
	"github.com/danielpatrickdp/spa-engine/internal/cast"
	"github.com/danielpatrickdp/spa-engine/internal/expr"
	"github.com/danielpatrickdp/spa-engine/internal/pointer"
	"github.com/danielpatrickdp/spa-engine/internal/vocab"
)

// #region errors
var (
	// ErrNotBegun is returned by builder calls made before Begin.
	ErrNotBegun = errors.New("builder not begun")
	// ErrFinalized is returned by builder calls made after Finalize.
	ErrFinalized = errors.New("builder already finalized")
	// ErrUnknownState is returned for references to undeclared states.
	ErrUnknownState = errors.New("unknown state")
	// ErrUnknownVocabulary is returned for references to undeclared vocabularies.
	ErrUnknownVocabulary = errors.New("unknown vocabulary")
)
// #endregion errors

// #region network
// Network is a finalized model: named vocabularies, named states holding a
// current value, and action blocks. It is the evaluation scope for
// expressions and the router for action blocks.
type Network struct {
	mu         sync.RWMutex
	stepMu     sync.Mutex
	vocabs     map[string]*vocab.Vocabulary
	vocabOrder []string
	states     map[string]*state
	stateOrder []string
	blocks     []*action.Block
	transforms map[[2]*vocab.Vocabulary]*cast.Transform
	translate  []cast.Option
}

type state struct {
	name  string
	vocab *vocab.Vocabulary
	value pointer.SemanticPointer
}

func newNetwork() *Network {
	return &Network{
		vocabs:     make(map[string]*vocab.Vocabulary),
		states:     make(map[string]*state),
		transforms: make(map[[2]*vocab.Vocabulary]*cast.Transform),
	}
}

// Vocabulary returns the named vocabulary.
func (n *Network) Vocabulary(name string) (*vocab.Vocabulary, bool) {
	v, ok := n.vocabs[name]
	return v, ok
}

// Vocabularies lists vocabulary names in declaration order.
func (n *Network) Vocabularies() []string { return slices.Clone(n.vocabOrder) }

// States lists state names in declaration order.
func (n *Network) States() []string { return slices.Clone(n.stateOrder) }

// StateVocabulary returns the vocabulary of a state.
func (n *Network) StateVocabulary(name string) (*vocab.Vocabulary, error) {
	s, ok := n.states[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	return s.vocab, nil
}

// Blocks returns the action blocks in declaration order.
func (n *Network) Blocks() []*action.Block { return slices.Clone(n.blocks) }

// Value returns the current value of a state.
func (n *Network) Value(name string) (pointer.SemanticPointer, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	s, ok := n.states[name]
	if !ok {
		return pointer.SemanticPointer{}, fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	return s.value, nil
}

// Set evaluates a vector expression in the state's vocabulary and stores it.
func (n *Network) Set(name, text string) error {
	space, err := n.Destination(name)
	if err != nil {
		return err
	}
	node, err := expr.ParseKind(text, expr.Vector)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	p, err := expr.EvalPointer(node, n, space)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return n.Assign(name, p)
}

// Evaluate parses and evaluates text. Free pointer names resolve in the
// named vocabulary; pass "" to infer it from states in the expression.
func (n *Network) Evaluate(text, vocabName string) (expr.Value, error) {
	node, err := expr.Parse(text)
	if err != nil {
		return expr.Value{}, err
	}
	var hint pointer.Space
	if vocabName != "" {
		v, ok := n.vocabs[vocabName]
		if !ok {
			return expr.Value{}, fmt.Errorf("%w: %q", ErrUnknownVocabulary, vocabName)
		}
		hint = v
	}
	return expr.Eval(node, n, hint)
}

// Step runs one decision cycle of every block in declaration order.
func (n *Network) Step() ([]action.Decision, error) {
	n.stepMu.Lock()
	defer n.stepMu.Unlock()
	decisions := make([]action.Decision, 0, len(n.blocks))
	for _, b := range n.blocks {
		d, err := b.Step(n)
		if err != nil {
			return decisions, fmt.Errorf("step %s: %w", b.Name(), err)
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}
// #endregion network

// #region scope
// Resolve returns a state's value for a state name, otherwise the pointer
// from the hinted vocabulary. Without a hint the model's only vocabulary is
// used; with several vocabularies the name is ambiguous.
func (n *Network) Resolve(sym *expr.Symbol, hint pointer.Space) (pointer.SemanticPointer, error) {
	if !sym.Explicit {
		n.mu.RLock()
		s, ok := n.states[sym.Name]
		var value pointer.SemanticPointer
		if ok {
			value = s.value
		}
		n.mu.RUnlock()
		if ok {
			return value, nil
		}
	}
	v, err := n.vocabFor(sym.Name, hint)
	if err != nil {
		return pointer.SemanticPointer{}, err
	}
	return v.Get(sym.Name)
}

// SpaceOf returns the vocabulary of a state reference.
func (n *Network) SpaceOf(sym *expr.Symbol) pointer.Space {
	if sym.Explicit {
		return nil
	}
	if s, ok := n.states[sym.Name]; ok {
		return s.vocab
	}
	return nil
}

// Cast moves p into the explicit target (a vocabulary or state name) or
// into the vocabulary the consumer expects.
func (n *Network) Cast(c *expr.Cast, p pointer.SemanticPointer, hint pointer.Space) (pointer.SemanticPointer, error) {
	target, err := n.castTarget(c, hint)
	if err != nil {
		return pointer.SemanticPointer{}, err
	}
	if c.Mode == expr.Reinterpret {
		return cast.Reinterpret(p, target)
	}
	source, ok := p.Space().(*vocab.Vocabulary)
	if !ok || source == nil {
		return pointer.SemanticPointer{}, &cast.CastTargetError{Reason: "translate: source vocabulary of " + expr.String(c.Child) + " is unknown"}
	}
	t, err := n.transform(source, target)
	if err != nil {
		return pointer.SemanticPointer{}, err
	}
	return t.Apply(p)
}

func (n *Network) castTarget(c *expr.Cast, hint pointer.Space) (*vocab.Vocabulary, error) {
	if c.Target != "" {
		if v, ok := n.vocabs[c.Target]; ok {
			return v, nil
		}
		if s, ok := n.states[c.Target]; ok {
			return s.vocab, nil
		}
		return nil, &cast.CastTargetError{Reason: fmt.Sprintf("%q is neither a vocabulary nor a state", c.Target)}
	}
	space, err := cast.Infer(hint)
	if err != nil {
		return nil, err
	}
	v, ok := space.(*vocab.Vocabulary)
	if !ok {
		return nil, &cast.CastTargetError{Reason: "target " + space.Label() + " is not a vocabulary"}
	}
	return v, nil
}

func (n *Network) transform(source, target *vocab.Vocabulary) (*cast.Transform, error) {
	key := [2]*vocab.Vocabulary{source, target}
	n.mu.RLock()
	t, ok := n.transforms[key]
	n.mu.RUnlock()
	if ok {
		return t, nil
	}
	t, err := cast.Translate(source, target, n.translate...)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	n.transforms[key] = t
	n.mu.Unlock()
	return t, nil
}

func (n *Network) vocabFor(name string, hint pointer.Space) (*vocab.Vocabulary, error) {
	if hint != nil {
		v, ok := hint.(*vocab.Vocabulary)
		if !ok {
			return nil, fmt.Errorf("resolve %q: %s is not a vocabulary", name, hint.Label())
		}
		return v, nil
	}
	if len(n.vocabOrder) == 1 {
		return n.vocabs[n.vocabOrder[0]], nil
	}
	return nil, &cast.CastTargetError{
		Candidates: n.Vocabularies(),
		Reason:     fmt.Sprintf("vocabulary of %q cannot be inferred", name),
	}
}
// #endregion scope

// #region router
// Destination returns the vocabulary of a state.
func (n *Network) Destination(dest string) (pointer.Space, error) {
	v, err := n.StateVocabulary(dest)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Assign stores p as the value of a state. p must be untagged or tagged
// with the state's vocabulary.
func (n *Network) Assign(dest string, p pointer.SemanticPointer) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.states[dest]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownState, dest)
	}
	if p.Dimensions() != s.vocab.Dimensions() {
		return &pointer.DimensionMismatchError{Op: "assign " + dest, Want: s.vocab.Dimensions(), Got: p.Dimensions()}
	}
	if sp := p.Space(); sp != nil && sp != pointer.Space(s.vocab) {
		return &pointer.SpaceMismatchError{Op: "assign " + dest, Left: s.vocab.Label(), Right: sp.Label()}
	}
	s.value = p.WithSpace(s.vocab)
	return nil
}
// #endregion router
