package examine

import (
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/spa-engine/internal/pointer"
	"github.com/danielpatrickdp/spa-engine/internal/vocab"
)

// #region similarity
// Similarity returns a len(ptrs) × v.Len() matrix of dot products between
// each pointer and each vocabulary key, in key order. With normalize the
// entries are cosine similarities.
func Similarity(ptrs []pointer.SemanticPointer, v *vocab.Vocabulary, normalize bool) (*mat.Dense, error) {
	keys := v.Vectors()
	if keys == nil || len(ptrs) == 0 {
		return nil, fmt.Errorf("similarity: nothing to compare")
	}
	d := v.Dimensions()
	rows := mat.NewDense(len(ptrs), d, nil)
	for i, p := range ptrs {
		if p.Dimensions() != d {
			return nil, fmt.Errorf("similarity row %d: %w", i, &pointer.DimensionMismatchError{Op: "similarity", Want: d, Got: p.Dimensions()})
		}
		if normalize {
			p = p.Normalized()
		}
		rows.SetRow(i, p.Data())
	}
	if normalize {
		keys = normalizedRows(keys)
	}
	var out mat.Dense
	out.Mul(rows, keys.T())
	return &out, nil
}

func normalizedRows(m *mat.Dense) *mat.Dense {
	r, _ := m.Dims()
	out := mat.DenseCopyOf(m)
	for i := 0; i < r; i++ {
		n := mat.Norm(out.RowView(i), 2)
		if n == 0 {
			continue
		}
		row := out.RawRowView(i)
		for j := range row {
			row[j] /= n
		}
	}
	return out
}
// #endregion similarity

// #region text
// Text describes p as a weighted list of vocabulary keys, most similar
// first, e.g. "0.92A;0.31B".
func Text(p pointer.SemanticPointer, v *vocab.Vocabulary, opts TextOptions) (string, error) {
	sim, err := Similarity([]pointer.SemanticPointer{p}, v, opts.Normalize)
	if err != nil {
		return "", err
	}
	type match struct {
		key string
		sim float64
	}
	keys := v.Keys()
	matches := make([]match, len(keys))
	for i, k := range keys {
		matches[i] = match{key: k, sim: sim.At(0, i)}
	}
	slices.SortStableFunc(matches, func(a, b match) int {
		switch {
		case a.sim > b.sim:
			return -1
		case a.sim < b.sim:
			return 1
		}
		return 0
	})

	n := 0
	for n < len(matches) && matches[n].sim > opts.Threshold {
		n++
	}
	n = max(n, min(opts.MinimumCount, len(matches)))
	if opts.MaxItems > 0 {
		n = min(n, opts.MaxItems)
	}

	parts := make([]string, n)
	for i, m := range matches[:n] {
		if opts.Terse {
			parts[i] = m.key
		} else {
			parts[i] = fmt.Sprintf("%0.2f%s", m.sim, m.key)
		}
	}
	join := opts.Join
	if join == "" {
		join = ";"
	}
	return strings.Join(parts, join), nil
}
// #endregion text

// #region pairs
// Pairs binds every pair of distinct keys, in key order, naming each result
// "A*B".
func Pairs(v *vocab.Vocabulary) ([]pointer.SemanticPointer, error) {
	keys := v.Keys()
	var out []pointer.SemanticPointer
	for i, a := range keys {
		pa, err := v.Get(a)
		if err != nil {
			return nil, err
		}
		for _, b := range keys[i+1:] {
			pb, err := v.Get(b)
			if err != nil {
				return nil, err
			}
			bound, err := pa.Bind(pb)
			if err != nil {
				return nil, fmt.Errorf("bind %s*%s: %w", a, b, err)
			}
			out = append(out, bound.WithName(a+"*"+b))
		}
	}
	return out, nil
}
// #endregion pairs
