package vocab

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/danielpatrickdp/spa-engine/internal/algebra"
	"github.com/danielpatrickdp/spa-engine/internal/expr"
	"github.com/danielpatrickdp/spa-engine/internal/pointer"
	"github.com/danielpatrickdp/spa-engine/internal/vecgen"
	"gonum.org/v1/gonum/mat"
)

// #region vocabulary
// Vocabulary is an ordered set of named pointers of one dimensionality.
// Generated pointers keep pairwise cosine similarity at or below
// MaxSimilarity. A Vocabulary implements pointer.Space, and the pointers it
// returns are tagged with it.
type Vocabulary struct {
	mu      sync.RWMutex
	d       int
	cfg     Config
	rng     *rand.Rand
	src     *rand.PCG
	keys    []string
	entries map[string]*Entry
	frozen  bool
}

// New creates an empty vocabulary of dimensionality d.
func New(d int, opts ...Option) (*Vocabulary, error) {
	if d < 1 {
		return nil, fmt.Errorf("vocabulary dimensions must be positive, got %d", d)
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxSimilarity < -1 || cfg.MaxSimilarity > 1 {
		return nil, fmt.Errorf("max similarity must be within [-1, 1], got %g", cfg.MaxSimilarity)
	}
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = vecgen.DefaultMaxTries
	}
	if cfg.Algebra == nil {
		cfg.Algebra = algebra.HRR
	}
	if err := algebra.CheckDimensionality(cfg.Algebra, d); err != nil {
		return nil, fmt.Errorf("new vocabulary: %w", err)
	}
	rng, src := vecgen.NewRand(cfg.Seed)
	return &Vocabulary{
		d:       d,
		cfg:     cfg,
		rng:     rng,
		src:     src,
		entries: make(map[string]*Entry),
	}, nil
}

// Dimensions returns the vector length.
func (v *Vocabulary) Dimensions() int { return v.d }

// Label returns the configured name, or a name derived from the dimensions.
func (v *Vocabulary) Label() string {
	if v.cfg.Name != "" {
		return v.cfg.Name
	}
	return fmt.Sprintf("vocab%d", v.d)
}

func (v *Vocabulary) String() string { return "Vocabulary<" + v.Label() + ">" }

// Config returns the vocabulary's settings.
func (v *Vocabulary) Config() Config { return v.cfg }

// Strict reports whether unknown names are rejected.
func (v *Vocabulary) Strict() bool { return v.cfg.Strict }

// MaxSimilarity returns the similarity bound for generated pointers.
func (v *Vocabulary) MaxSimilarity() float64 { return v.cfg.MaxSimilarity }

// Algebra returns the binding algebra of every pointer in v.
func (v *Vocabulary) Algebra() algebra.Algebra { return v.cfg.Algebra }

// Freeze forbids Add and Populate. Non-strict lookups may still insert.
func (v *Vocabulary) Freeze() {
	v.mu.Lock()
	v.frozen = true
	v.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (v *Vocabulary) Frozen() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.frozen
}
// #endregion vocabulary

// #region read
// Keys returns the pointer names in insertion order.
func (v *Vocabulary) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.keys...)
}

// Len returns the number of stored pointers.
func (v *Vocabulary) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.keys)
}

// Contains reports whether name is stored.
func (v *Vocabulary) Contains(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.entries[name]
	return ok
}

// Generated reports whether name was drawn by the constrained generator.
func (v *Vocabulary) Generated(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.entries[name]
	return ok && e.Generated
}

// Entries returns the stored entries in insertion order. Vectors are shared.
func (v *Vocabulary) Entries() []Entry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]Entry, len(v.keys))
	for i, k := range v.keys {
		out[i] = *v.entries[k]
	}
	return out
}

// Vectors returns a len(Keys()) × Dimensions() matrix, one pointer per row.
func (v *Vocabulary) Vectors() *mat.Dense {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.keys) == 0 {
		return nil
	}
	m := mat.NewDense(len(v.keys), v.d, nil)
	for i, k := range v.keys {
		m.SetRow(i, v.entries[k].Vector)
	}
	return m
}

// Get returns the pointer stored under name. A strict vocabulary fails with
// *UnknownPointerError on a miss; a non-strict one generates the pointer
// under the similarity constraint, stores it and returns it.
func (v *Vocabulary) Get(name string) (pointer.SemanticPointer, error) {
	v.mu.RLock()
	p, ok, err := v.lookup(name)
	v.mu.RUnlock()
	if ok {
		return p, err
	}
	if v.cfg.Strict {
		return pointer.SemanticPointer{}, &UnknownPointerError{Name: name, Vocab: v.Label()}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if p, ok, err := v.lookup(name); ok {
		return p, err
	}
	tx := v.begin()
	p, err = tx.generate(name, nil)
	if err != nil {
		tx.rollback()
		return pointer.SemanticPointer{}, err
	}
	tx.commit()
	return p, nil
}

// Lookup returns the pointer stored under name without ever generating it,
// whether or not v is strict.
func (v *Vocabulary) Lookup(name string) (pointer.SemanticPointer, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok, err := v.lookup(name)
	if !ok {
		return pointer.SemanticPointer{}, &UnknownPointerError{Name: name, Vocab: v.Label()}
	}
	return p, err
}

// lookup resolves stored and special names. A special name the algebra does
// not provide is found but returns an error. Callers hold v.mu.
func (v *Vocabulary) lookup(name string) (pointer.SemanticPointer, bool, error) {
	if e, ok := v.entries[name]; ok {
		return pointer.Shared(e.Vector, v, name), true, nil
	}
	switch name {
	case NameIdentity:
		return pointer.Identity(v.d, v), true, nil
	case NameZero:
		return pointer.Zero(v.d, v), true, nil
	case NameAbsorbingElement:
		p, err := pointer.AbsorbingElement(v.d, v)
		return p, true, err
	}
	return pointer.SemanticPointer{}, false, nil
}
// #endregion read

// #region write
// Add inserts an explicit vector. The similarity constraint is not checked.
func (v *Vocabulary) Add(name string, vector []float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.frozen {
		return fmt.Errorf("add %q: %w", name, ErrFrozen)
	}
	tx := v.begin()
	if err := tx.insert(name, vector, false); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// Tx is the staged view of a vocabulary passed to Update.
type Tx struct {
	t *txn
}

// Update runs fn with v locked. Pointers fn adds through the Tx become
// visible only if fn returns nil; otherwise they are discarded and the random
// generator is rewound.
func (v *Vocabulary) Update(fn func(*Tx) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	tx := v.begin()
	if err := fn(&Tx{t: tx}); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

// Populate stages the entries of spec, as Vocabulary.Populate does.
func (x *Tx) Populate(spec string) error {
	if x.t.v.frozen {
		return fmt.Errorf("populate: %w", ErrFrozen)
	}
	return x.t.populate(spec)
}

// Lookup returns a stored, staged or special pointer without generating.
func (x *Tx) Lookup(name string) (pointer.SemanticPointer, error) {
	if e, ok := x.t.added[name]; ok {
		return pointer.Shared(e.Vector, x.t.v, name), nil
	}
	p, ok, err := x.t.v.lookup(name)
	if !ok {
		return pointer.SemanticPointer{}, &UnknownPointerError{Name: name, Vocab: x.t.v.Label()}
	}
	return p, err
}

// Restore loads entries into an empty vocabulary, keeping their generation
// flags, and optionally the generator state saved by RandState.
func (v *Vocabulary) Restore(entries []Entry, randState []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.keys) > 0 {
		return fmt.Errorf("restore: vocabulary %s is not empty", v.Label())
	}
	tx := v.begin()
	for _, e := range entries {
		if err := tx.insert(e.Name, e.Vector, e.Generated); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	if len(randState) > 0 {
		if err := v.src.UnmarshalBinary(randState); err != nil {
			return fmt.Errorf("restore rng: %w", err)
		}
	}
	tx.commit()
	return nil
}

// RandState returns the generator state so a restored vocabulary continues
// the same random sequence.
func (v *Vocabulary) RandState() ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.src.MarshalBinary()
}

// CreateSubset returns a strict vocabulary holding the listed pointers. The
// vectors are shared with v.
func (v *Vocabulary) CreateSubset(names []string) (*Vocabulary, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	cfg := v.cfg
	cfg.Strict = true
	cfg.Name = v.Label() + "[" + strings.Join(names, ",") + "]"
	sub, err := New(v.d, func(c *Config) { *c = cfg })
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		e, ok := v.entries[name]
		if !ok {
			return nil, &UnknownPointerError{Name: name, Vocab: v.Label()}
		}
		if _, dup := sub.entries[name]; dup {
			return nil, fmt.Errorf("create subset: %q: %w", name, ErrDuplicateKey)
		}
		cp := *e
		sub.keys = append(sub.keys, name)
		sub.entries[name] = &cp
	}
	return sub, nil
}

// ValidName reports whether name may be stored: an identifier starting with
// an uppercase letter that is not reserved.
func ValidName(name string) bool {
	if reserved[name] || !expr.IsIdentifier(name) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
// #endregion write

// #region parse
// Parse evaluates a vector expression over the vocabulary. In a non-strict
// vocabulary unknown names are generated; on failure nothing is inserted.
func (v *Vocabulary) Parse(text string) (pointer.SemanticPointer, error) {
	n, err := expr.ParseKind(text, expr.Vector)
	if err != nil {
		return pointer.SemanticPointer{}, err
	}
	return v.Evaluate(n)
}

// Evaluate is Parse for an already parsed tree.
func (v *Vocabulary) Evaluate(n expr.Node) (pointer.SemanticPointer, error) {
	if v.cfg.Strict {
		v.mu.RLock()
		defer v.mu.RUnlock()
		return expr.EvalPointer(n, &txn{v: v, readOnly: true}, v)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	tx := v.begin()
	p, err := expr.EvalPointer(n, tx, v)
	if err != nil {
		tx.rollback()
		return pointer.SemanticPointer{}, err
	}
	tx.commit()
	return p, nil
}
// #endregion parse
