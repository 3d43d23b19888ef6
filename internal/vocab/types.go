package vocab

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/spa-engine/internal/algebra"
	"github.com/danielpatrickdp/spa-engine/internal/vecgen"
)

// #region config
// Config holds the tunables of a vocabulary.
type Config struct {
	Name          string
	Seed          uint64
	Strict        bool    // unknown names fail instead of being generated
	MaxSimilarity float64 // upper bound on cosine similarity between generated pointers
	MaxTries      int     // rejection-sampling budget per generated pointer
	Algebra       algebra.Algebra
}

// DefaultConfig returns a strict HRR vocabulary with max similarity 0.1.
func DefaultConfig() Config {
	return Config{
		Strict:        true,
		MaxSimilarity: 0.1,
		MaxTries:      vecgen.DefaultMaxTries,
		Algebra:       algebra.HRR,
	}
}

// Option adjusts a Config.
type Option func(*Config)

func WithName(name string) Option          { return func(c *Config) { c.Name = name } }
func WithSeed(seed uint64) Option          { return func(c *Config) { c.Seed = seed } }
func WithStrict(strict bool) Option        { return func(c *Config) { c.Strict = strict } }
func WithMaxSimilarity(t float64) Option   { return func(c *Config) { c.MaxSimilarity = t } }
func WithMaxTries(n int) Option            { return func(c *Config) { c.MaxTries = n } }
func WithAlgebra(a algebra.Algebra) Option { return func(c *Config) { c.Algebra = a } }
// #endregion config

// #region entry
// Entry is one named vector. Vector is shared with the vocabulary and must
// not be modified.
type Entry struct {
	Name      string
	Vector    []float64
	Generated bool // false for vectors inserted with Add or computed from an expression
}
// #endregion entry

// #region special-names
// Names resolved to algebra constants instead of stored pointers.
const (
	NameIdentity         = "Identity"
	NameZero             = "Zero"
	NameAbsorbingElement = "AbsorbingElement"
)

var reserved = map[string]bool{
	NameIdentity:         true,
	NameZero:             true,
	NameAbsorbingElement: true,
	"None":               true,
	"True":               true,
	"False":              true,
}
// #endregion special-names

// #region errors
// ErrFrozen is returned when a frozen vocabulary is modified outside the
// non-strict lookup path.
var ErrFrozen = errors.New("vocabulary is frozen")

// ErrDuplicateKey is returned when a name is inserted twice.
var ErrDuplicateKey = errors.New("key already in vocabulary")

// UnknownPointerError reports a lookup miss in a strict vocabulary.
type UnknownPointerError struct {
	Name  string
	Vocab string
}

func (e *UnknownPointerError) Error() string {
	return fmt.Sprintf("unknown semantic pointer %q in vocabulary %s", e.Name, e.Vocab)
}

// NameError reports a key that cannot be used as a pointer name.
type NameError struct {
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid semantic pointer name %q: names are identifiers beginning with an uppercase letter and may not be reserved words", e.Name)
}
// #endregion errors
