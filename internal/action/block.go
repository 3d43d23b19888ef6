package action

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielpatrickdp/spa-engine/internal/expr"
	"github.com/danielpatrickdp/spa-engine/internal/pointer"
	"github.com/google/uuid"
)

// #region block
// Block is an ordered set of competing actions. Each Step fires at most
// one of them: the first action with the strictly highest utility, unless
// every utility is below the configured threshold. Routes are applied on
// every step regardless of the outcome.
type Block struct {
	name      string
	threshold float64
	hasThresh bool
	observer  func(Phase)

	mu      sync.Mutex
	actions []Action
	routes  []Effect
	phase   atomic.Int32
}

// Option configures a Block.
type Option func(*Block)

// WithThreshold suppresses all actions whose utility is below t.
func WithThreshold(t float64) Option {
	return func(b *Block) {
		b.threshold = t
		b.hasThresh = true
	}
}

// WithObserver calls fn on every phase transition.
func WithObserver(fn func(Phase)) Option {
	return func(b *Block) { b.observer = fn }
}

// NewBlock creates an empty block.
func NewBlock(name string, opts ...Option) *Block {
	b := &Block{name: name}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the block name.
func (b *Block) Name() string { return b.name }

// Threshold returns the minimum utility and whether one is configured.
func (b *Block) Threshold() (float64, bool) { return b.threshold, b.hasThresh }

// Phase returns the current phase of the decision cycle.
func (b *Block) Phase() Phase { return Phase(b.phase.Load()) }

// Actions returns the registered actions in order.
func (b *Block) Actions() []Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Action(nil), b.actions...)
}

// Routes returns the unconditional effects.
func (b *Block) Routes() []Effect {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Effect(nil), b.routes...)
}

// Add parses and registers an action. utility must be scalar-valued; each
// effect has the form "dest = expression".
func (b *Block) Add(utility string, effects ...string) error {
	return b.AddNamed("", utility, effects...)
}

// AddNamed is Add with an explicit action name. An empty name gets the
// default "action<index>".
func (b *Block) AddNamed(name, utility string, effects ...string) error {
	u, err := expr.ParseKind(utility, expr.Scalar)
	if err != nil {
		return fmt.Errorf("parse utility: %w", err)
	}
	parsed, err := parseEffects(effects)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if name == "" {
		name = "action" + strconv.Itoa(len(b.actions))
	}
	b.actions = append(b.actions, Action{
		Name:    name,
		Utility: u,
		Effects: parsed,
	})
	return nil
}

// AddAction registers a prebuilt action.
func (b *Block) AddAction(a Action) error {
	if a.Utility == nil || a.Utility.Kind() != expr.Scalar {
		return fmt.Errorf("action %q: utility must be a scalar expression", a.Name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if a.Name == "" {
		a.Name = "action" + strconv.Itoa(len(b.actions))
	}
	b.actions = append(b.actions, a)
	return nil
}

// Route registers effects applied on every step.
func (b *Block) Route(effects ...string) error {
	parsed, err := parseEffects(effects)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes = append(b.routes, parsed...)
	return nil
}

func parseEffects(effects []string) ([]Effect, error) {
	out := make([]Effect, 0, len(effects))
	for _, s := range effects {
		dest, n, err := expr.ParseAssignment(s)
		if err != nil {
			return nil, fmt.Errorf("parse effect %q: %w", s, err)
		}
		out = append(out, Effect{Dest: dest, Expr: n})
	}
	return out, nil
}
// #endregion block

// #region step
// Step runs one decision cycle: Evaluate every utility, Select the winner,
// Route its effects, then return to Idle. Only the winner's effects are
// evaluated, and all routed values are computed before any is assigned.
func (b *Block) Step(r Router) (Decision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	defer b.enter(Idle)

	d := Decision{
		StepID:    uuid.New(),
		Block:     b.name,
		Winner:    -1,
		Utilities: make([]float64, len(b.actions)),
		CreatedAt: time.Now().UTC(),
	}

	b.enter(Evaluate)
	for i, a := range b.actions {
		u, err := expr.EvalScalar(a.Utility, r)
		if err != nil {
			return d, fmt.Errorf("evaluate utility of %s: %w", a.Name, err)
		}
		d.Utilities[i] = u
	}

	b.enter(Select)
	d.Winner = b.selectWinner(d.Utilities)

	b.enter(Route)
	effects := append([]Effect(nil), b.routes...)
	if d.Winner >= 0 {
		d.Action = b.actions[d.Winner].Name
		effects = append(effects, b.actions[d.Winner].Effects...)
	}
	values := make([]pointer.SemanticPointer, len(effects))
	for i, e := range effects {
		space, err := r.Destination(e.Dest)
		if err != nil {
			return d, fmt.Errorf("route %s: %w", e.Dest, err)
		}
		p, err := expr.EvalPointer(e.Expr, r, space)
		if err != nil {
			return d, fmt.Errorf("route %s: %w", e, err)
		}
		values[i] = p
	}
	for i, e := range effects {
		if err := r.Assign(e.Dest, values[i]); err != nil {
			return d, fmt.Errorf("assign %s: %w", e.Dest, err)
		}
		d.Applied = append(d.Applied, e.Dest)
	}
	return d, nil
}

// selectWinner returns the index of the first strictly maximal utility, or
// -1 when there are no actions or the maximum is below the threshold. NaN
// utilities never win.
func (b *Block) selectWinner(utilities []float64) int {
	winner := -1
	for i, u := range utilities {
		if math.IsNaN(u) {
			continue
		}
		if winner < 0 || u > utilities[winner] {
			winner = i
		}
	}
	if winner >= 0 && b.hasThresh && utilities[winner] < b.threshold {
		return -1
	}
	return winner
}

func (b *Block) enter(p Phase) {
	b.phase.Store(int32(p))
	if b.observer != nil {
		b.observer(p)
	}
}
// #endregion step
