package vocab

import (
	"log/slog"
	"slices"
	"sync"
)

// Map holds at most one vocabulary per dimensionality.
type Map struct {
	mu     sync.RWMutex
	byDim  map[int]*Vocabulary
	opts   []Option
	logger *slog.Logger
}

// NewMap creates an empty map. opts are applied to vocabularies created by
// GetOrCreate. A nil logger uses slog.Default().
func NewMap(logger *slog.Logger, opts ...Option) *Map {
	if logger == nil {
		logger = slog.Default()
	}
	return &Map{byDim: make(map[int]*Vocabulary), opts: opts, logger: logger}
}

// Add stores v under its dimensionality, replacing and logging any
// vocabulary already stored there.
func (m *Map) Add(v *Vocabulary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.byDim[v.Dimensions()]; ok && old != v {
		m.logger.Warn("replacing vocabulary",
			"dimensions", v.Dimensions(),
			"old", old.Label(),
			"new", v.Label(),
		)
	}
	m.byDim[v.Dimensions()] = v
}

// Get returns the vocabulary of dimensionality d.
func (m *Map) Get(d int) (*Vocabulary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.byDim[d]
	return v, ok
}

// GetOrCreate returns the vocabulary of dimensionality d, creating it when
// absent.
func (m *Map) GetOrCreate(d int) (*Vocabulary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.byDim[d]; ok {
		return v, nil
	}
	v, err := New(d, m.opts...)
	if err != nil {
		return nil, err
	}
	m.byDim[d] = v
	return v, nil
}

// Discard removes the vocabulary of dimensionality d.
func (m *Map) Discard(d int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byDim, d)
}

// Dimensions lists the stored dimensionalities in ascending order.
func (m *Map) Dimensions() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, 0, len(m.byDim))
	for d := range m.byDim {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of stored vocabularies.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byDim)
}
