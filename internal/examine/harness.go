package examine

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/spa-engine/internal/pointer"
	"github.com/danielpatrickdp/spa-engine/internal/vocab"
)

// #region harness
// Harness checks that a vocabulary still satisfies the guarantees of its
// generator.
type Harness struct {
	config HarnessConfig
}

// NewHarness creates a harness with the given tolerances.
func NewHarness(config HarnessConfig) *Harness {
	return &Harness{config: config}
}

// Run measures the generated pointers of v: pairwise similarity against the
// vocabulary's max similarity, and their lengths against 1. Pointers added
// explicitly or computed from expressions are counted but not constrained.
func (h *Harness) Run(v *vocab.Vocabulary) Result {
	var metrics []Metric
	var failReasons []string

	var generated [][]float64
	for _, e := range v.Entries() {
		if e.Generated {
			generated = append(generated, e.Vector)
		}
	}
	metrics = append(metrics,
		Metric{Name: "pointers", Value: float64(v.Len()), Pass: true},
		Metric{Name: "generated", Value: float64(len(generated)), Pass: true},
	)

	// 1. Pairwise similarity of generated pointers
	maxSim := math.Inf(-1)
	for i := range generated {
		for j := i + 1; j < len(generated); j++ {
			maxSim = math.Max(maxSim, pointer.Cosine(generated[i], generated[j]))
		}
	}
	if len(generated) >= 2 {
		limit := v.MaxSimilarity() + h.config.Slack
		pass := maxSim <= limit
		metrics = append(metrics, Metric{Name: "max_similarity", Value: maxSim, Pass: pass})
		if !pass {
			failReasons = append(failReasons, fmt.Sprintf("similarity %.4f exceeds %.4f", maxSim, v.MaxSimilarity()))
		}
	}

	// 2. Length bounds
	if len(generated) > 0 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, g := range generated {
			n := norm(g)
			lo, hi = math.Min(lo, n), math.Max(hi, n)
		}
		loPass := lo >= 1-h.config.NormTolerance
		hiPass := hi <= 1+h.config.NormTolerance
		metrics = append(metrics,
			Metric{Name: "min_norm", Value: lo, Pass: loPass},
			Metric{Name: "max_norm", Value: hi, Pass: hiPass},
		)
		if !loPass {
			failReasons = append(failReasons, fmt.Sprintf("norm %.6f below 1", lo))
		}
		if !hiPass {
			failReasons = append(failReasons, fmt.Sprintf("norm %.6f above 1", hi))
		}
	}

	reason := "all checks passed"
	passed := len(failReasons) == 0
	if !passed {
		reason = fmt.Sprintf("check failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("check failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}
	return Result{Passed: passed, Metrics: metrics, Reason: reason}
}
// #endregion harness

// #region helpers
func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
// #endregion helpers
