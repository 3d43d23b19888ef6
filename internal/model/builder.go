package model

import (
	"fmt"

	"github.com/danielpatrickdp/spa-engine/internal/action"
	"github.com/danielpatrickdp/spa-engine/internal/cast"
	"github.com/danielpatrickdp/spa-engine/internal/expr"
	"github.com/danielpatrickdp/spa-engine/internal/pointer"
	"github.com/danielpatrickdp/spa-engine/internal/vocab"
)

// #region builder
// Builder declares a network between Begin and Finalize. Finalize freezes
// every vocabulary; after it, the builder rejects further declarations.
type Builder struct {
	net       *Network
	begun     bool
	finalized bool
}

// NewBuilder returns a builder that has not begun.
func NewBuilder() *Builder {
	return &Builder{net: newNetwork()}
}

// Build runs fn between Begin and Finalize. Finalize runs even if fn fails
// or panics; fn's error takes precedence over Finalize's.
func Build(fn func(*Builder) error) (net *Network, err error) {
	b := NewBuilder()
	if err := b.Begin(); err != nil {
		return nil, err
	}
	defer func() {
		if b.finalized {
			return
		}
		finalized, ferr := b.Finalize()
		if err == nil {
			net, err = finalized, ferr
		}
	}()
	if err := fn(b); err != nil {
		return nil, err
	}
	if b.finalized {
		return b.net, nil
	}
	return b.Finalize()
}

// Begin opens the declaration scope.
func (b *Builder) Begin() error {
	if b.finalized {
		return ErrFinalized
	}
	if b.begun {
		return fmt.Errorf("begin: builder already begun")
	}
	b.begun = true
	return nil
}

// Finalize closes the scope, freezes all vocabularies and returns the
// network.
func (b *Builder) Finalize() (*Network, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	b.finalized = true
	for _, name := range b.net.vocabOrder {
		b.net.vocabs[name].Freeze()
	}
	return b.net, nil
}

func (b *Builder) check() error {
	if b.finalized {
		return ErrFinalized
	}
	if !b.begun {
		return ErrNotBegun
	}
	return nil
}
// #endregion builder

// #region declarations
// Vocabulary creates and registers a vocabulary named name.
func (b *Builder) Vocabulary(name string, d int, opts ...vocab.Option) (*vocab.Vocabulary, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	v, err := vocab.New(d, append(opts, vocab.WithName(name))...)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", name, err)
	}
	if err := b.AddVocabulary(v); err != nil {
		return nil, err
	}
	return v, nil
}

// AddVocabulary registers an existing vocabulary under its label.
func (b *Builder) AddVocabulary(v *vocab.Vocabulary) error {
	if err := b.check(); err != nil {
		return err
	}
	name := v.Label()
	if err := b.claim(name); err != nil {
		return err
	}
	b.net.vocabs[name] = v
	b.net.vocabOrder = append(b.net.vocabOrder, name)
	return nil
}

// State declares a state holding values of the named vocabulary. Its
// initial value is the zero pointer.
func (b *Builder) State(name, vocabName string) error {
	if err := b.check(); err != nil {
		return err
	}
	v, ok := b.net.vocabs[vocabName]
	if !ok {
		return fmt.Errorf("state %s: %w: %q", name, ErrUnknownVocabulary, vocabName)
	}
	if !expr.IsIdentifier(name) || vocab.ValidName(name) {
		return fmt.Errorf("state %s: state names are identifiers starting with a lowercase letter", name)
	}
	if err := b.claim(name); err != nil {
		return err
	}
	b.net.states[name] = &state{name: name, vocab: v, value: pointer.Zero(v.Dimensions(), v)}
	b.net.stateOrder = append(b.net.stateOrder, name)
	return nil
}

// Actions registers an action block.
func (b *Builder) Actions(block *action.Block) error {
	if err := b.check(); err != nil {
		return err
	}
	for _, existing := range b.net.blocks {
		if existing.Name() == block.Name() {
			return fmt.Errorf("actions %s: duplicate block name", block.Name())
		}
	}
	b.net.blocks = append(b.net.blocks, block)
	return nil
}

// TranslateWith sets the options used for translate casts.
func (b *Builder) TranslateWith(opts ...cast.Option) error {
	if err := b.check(); err != nil {
		return err
	}
	b.net.translate = opts
	return nil
}

func (b *Builder) claim(name string) error {
	if _, ok := b.net.vocabs[name]; ok {
		return fmt.Errorf("%q is already declared", name)
	}
	if _, ok := b.net.states[name]; ok {
		return fmt.Errorf("%q is already declared", name)
	}
	return nil
}
// #endregion declarations
