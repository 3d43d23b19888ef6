package replay

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/danielpatrickdp/spa-engine/internal/action"
	"github.com/danielpatrickdp/spa-engine/internal/model"
)

// #region types
// StepResult captures the outcome of one fixture step.
type StepResult struct {
	StepID     string
	Decisions  []action.Decision
	Winners    map[string]string // block -> winning action, "" when nothing fired
	Checks     []CheckResult
	Mismatches []string
}

// Passed reports whether every expectation of the step held.
func (r StepResult) Passed() bool { return len(r.Mismatches) == 0 }

// CheckResult is a measured similarity check.
type CheckResult struct {
	FixtureCheck
	Similarity float64
	Pass       bool
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalSteps int
	Fired      int // block decisions that selected an action
	Idle       int // block decisions below threshold or without actions
	Failed     int // steps with at least one mismatch
}
// #endregion types

// #region replay
// Replay builds the fixture's network and runs its steps in order. sink, when
// non-nil, receives every decision. A build or evaluation error stops the run;
// unmet expectations are reported per step.
func Replay(f *Fixture, sink func(stepID string, d action.Decision)) ([]StepResult, *model.Network, error) {
	net, err := f.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build: %w", err)
	}

	results := make([]StepResult, 0, len(f.Steps))
	for i, step := range f.Steps {
		id := step.ID
		if id == "" {
			id = fmt.Sprintf("step%d", i+1)
		}
		r, err := runStep(net, id, step, sink)
		if err != nil {
			return results, net, fmt.Errorf("%s: %w", id, err)
		}
		results = append(results, r)
	}
	return results, net, nil
}

func runStep(net *model.Network, id string, step FixtureStep, sink func(string, action.Decision)) (StepResult, error) {
	r := StepResult{StepID: id, Winners: make(map[string]string)}

	for _, assign := range step.Set {
		dest, text, ok := strings.Cut(assign, "=")
		if !ok {
			return r, fmt.Errorf("set %q: expected \"state = expression\"", assign)
		}
		if err := net.Set(strings.TrimSpace(dest), strings.TrimSpace(text)); err != nil {
			return r, err
		}
	}

	decisions, err := net.Step()
	if err != nil {
		return r, err
	}
	r.Decisions = decisions
	for _, d := range decisions {
		r.Winners[d.Block] = d.Action
		if sink != nil {
			sink(id, d)
		}
	}

	for _, block := range slices.Sorted(maps.Keys(step.Expect)) {
		want := step.Expect[block]
		got, ok := r.Winners[block]
		if !ok {
			r.Mismatches = append(r.Mismatches, fmt.Sprintf("unknown block %s", block))
			continue
		}
		if got != want {
			r.Mismatches = append(r.Mismatches, fmt.Sprintf("%s: got %q, want %q", block, got, want))
		}
	}

	for _, c := range step.Checks {
		v, err := net.Evaluate(fmt.Sprintf("dot(%s.normalized(), %s)", c.State, c.Key), "")
		if err != nil {
			return r, fmt.Errorf("check %s: %w", c.State, err)
		}
		cr := CheckResult{FixtureCheck: c, Similarity: v.Scalar, Pass: v.Scalar >= c.Min}
		r.Checks = append(r.Checks, cr)
		if !cr.Pass {
			r.Mismatches = append(r.Mismatches, fmt.Sprintf("%s~%s: %.4f below %.4f", c.State, c.Key, v.Scalar, c.Min))
		}
	}
	return r, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []StepResult) Summary {
	s := Summary{TotalSteps: len(results)}
	for _, r := range results {
		for _, d := range r.Decisions {
			if d.Fired() {
				s.Fired++
			} else {
				s.Idle++
			}
		}
		if !r.Passed() {
			s.Failed++
		}
	}
	return s
}
// #endregion replay
