package vocab

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/spa-engine/internal/algebra"
	"github.com/danielpatrickdp/spa-engine/internal/expr"
	"github.com/danielpatrickdp/spa-engine/internal/pointer"
	"github.com/danielpatrickdp/spa-engine/internal/vecgen"
)

// #region populate
// Populate adds the pointers described by a ';'-separated list of entries:
//
//	NAME               generate a new pointer
//	NAME.unitary()     generate a new unitary pointer
//	NAME.normalized()  generate a new pointer (already unit length)
//	NAME = expression  evaluate over the names defined so far
//
// Entries are processed left to right. If any entry fails, neither the
// vocabulary nor its random generator is changed.
func (v *Vocabulary) Populate(spec string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.frozen {
		return fmt.Errorf("populate: %w", ErrFrozen)
	}
	tx := v.begin()
	if err := tx.populate(spec); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

func (t *txn) populate(spec string) error {
	start := 0
	for start <= len(spec) {
		end := strings.IndexByte(spec[start:], ';')
		if end < 0 {
			end = len(spec)
		} else {
			end += start
		}
		if entry := spec[start:end]; strings.TrimSpace(entry) != "" {
			if err := t.populateEntry(entry, start); err != nil {
				return fmt.Errorf("populate %q: %w", strings.TrimSpace(entry), err)
			}
		}
		start = end + 1
	}
	return nil
}

func (t *txn) populateEntry(entry string, offset int) error {
	if strings.Contains(entry, "=") {
		name, n, err := expr.ParseAssignment(entry)
		if err != nil {
			return shift(err, offset)
		}
		if !ValidName(name) {
			return &NameError{Name: name}
		}
		p, err := expr.EvalPointer(n, t, t.v)
		if err != nil {
			return err
		}
		return t.insert(name, p.Data(), false)
	}

	n, err := expr.Parse(entry)
	if err != nil {
		return shift(err, offset)
	}
	name, transform, ok := generatorForm(n, t.v.cfg.Algebra)
	if !ok {
		lead := len(entry) - len(strings.TrimLeft(entry, " \t\r\n"))
		return &expr.ParseError{
			Pos:   offset + lead,
			Token: strings.TrimSpace(entry),
			Msg:   "expected NAME, NAME.unitary(), NAME.normalized() or NAME = expression",
		}
	}
	_, err = t.generate(name, transform)
	return err
}

// generatorForm accepts a bare name wrapped in any chain of .unitary() and
// .normalized() and returns the chain as a vector transform.
func generatorForm(n expr.Node, alg algebra.Algebra) (string, func([]float64) []float64, bool) {
	switch n := n.(type) {
	case *expr.Symbol:
		if n.Explicit {
			return "", nil, false
		}
		return n.Name, nil, true
	case *expr.Unitary:
		name, inner, ok := generatorForm(n.Child, alg)
		return name, then(inner, alg.MakeUnitary), ok
	case *expr.Normalize:
		name, inner, ok := generatorForm(n.Child, alg)
		return name, then(inner, normalize), ok
	}
	return "", nil, false
}

func then(first, next func([]float64) []float64) func([]float64) []float64 {
	if first == nil {
		return next
	}
	return func(x []float64) []float64 { return next(first(x)) }
}

func normalize(x []float64) []float64 {
	return pointer.Shared(x, nil, "").Normalized().Data()
}

func shift(err error, offset int) error {
	var pe *expr.ParseError
	if errors.As(err, &pe) {
		moved := *pe
		moved.Pos += offset
		return &moved
	}
	return err
}
// #endregion populate

// #region txn
// txn stages insertions so that a failed operation can be discarded. The
// caller holds v.mu for the lifetime of the txn.
type txn struct {
	v        *Vocabulary
	readOnly bool
	keys     []string
	added    map[string]*Entry
	snapshot []byte
}

func (v *Vocabulary) begin() *txn {
	snap, _ := v.src.MarshalBinary()
	return &txn{v: v, added: make(map[string]*Entry), snapshot: snap}
}

func (t *txn) rollback() {
	if t.snapshot != nil {
		_ = t.v.src.UnmarshalBinary(t.snapshot)
	}
	t.keys, t.added = nil, nil
}

func (t *txn) commit() {
	for _, k := range t.keys {
		t.v.keys = append(t.v.keys, k)
		t.v.entries[k] = t.added[k]
	}
	t.keys, t.added = nil, nil
}

func (t *txn) insert(name string, vector []float64, generated bool) error {
	if !ValidName(name) {
		return &NameError{Name: name}
	}
	if _, ok := t.v.entries[name]; ok {
		return fmt.Errorf("%q: %w", name, ErrDuplicateKey)
	}
	if _, ok := t.added[name]; ok {
		return fmt.Errorf("%q: %w", name, ErrDuplicateKey)
	}
	if len(vector) != t.v.d {
		return &pointer.DimensionMismatchError{Op: "insert " + name, Want: t.v.d, Got: len(vector)}
	}
	t.keys = append(t.keys, name)
	t.added[name] = &Entry{Name: name, Vector: append([]float64(nil), vector...), Generated: generated}
	return nil
}

func (t *txn) generate(name string, transform func([]float64) []float64) (pointer.SemanticPointer, error) {
	if !ValidName(name) {
		return pointer.SemanticPointer{}, &NameError{Name: name}
	}
	existing := make([][]float64, 0, len(t.v.keys)+len(t.keys))
	for _, k := range t.v.keys {
		existing = append(existing, t.v.entries[k].Vector)
	}
	for _, k := range t.keys {
		existing = append(existing, t.added[k].Vector)
	}
	vec, err := vecgen.GenerateConstrained(t.v.d, t.v.rng, existing, vecgen.Constraint{
		MaxSimilarity: t.v.cfg.MaxSimilarity,
		MaxTries:      t.v.cfg.MaxTries,
		Transform:     transform,
	})
	if err != nil {
		return pointer.SemanticPointer{}, fmt.Errorf("generate %q: %w", name, err)
	}
	if err := t.insert(name, vec, true); err != nil {
		return pointer.SemanticPointer{}, err
	}
	return pointer.Shared(t.added[name].Vector, t.v, name), nil
}
// #endregion txn

// #region scope
func (t *txn) Resolve(sym *expr.Symbol, hint pointer.Space) (pointer.SemanticPointer, error) {
	if e, ok := t.added[sym.Name]; ok {
		return pointer.Shared(e.Vector, t.v, sym.Name), nil
	}
	if p, ok, err := t.v.lookup(sym.Name); ok {
		return p, err
	}
	if t.readOnly || t.v.cfg.Strict {
		return pointer.SemanticPointer{}, &UnknownPointerError{Name: sym.Name, Vocab: t.v.Label()}
	}
	return t.generate(sym.Name, nil)
}

func (t *txn) SpaceOf(*expr.Symbol) pointer.Space { return nil }

// Cast inside a standalone vocabulary can only reinterpret into the
// vocabulary itself.
func (t *txn) Cast(c *expr.Cast, p pointer.SemanticPointer, hint pointer.Space) (pointer.SemanticPointer, error) {
	if c.Mode != expr.Reinterpret || (c.Target != "" && c.Target != t.v.Label()) {
		return pointer.SemanticPointer{}, fmt.Errorf("%s: vocabulary %s cannot resolve casts to other vocabularies", c.Mode, t.v.Label())
	}
	if p.Dimensions() != t.v.d {
		return pointer.SemanticPointer{}, &pointer.DimensionMismatchError{Op: "reinterpret", Want: t.v.d, Got: p.Dimensions()}
	}
	return p.WithSpace(t.v), nil
}
// #endregion scope
