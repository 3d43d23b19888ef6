package action

import (
	"time"

	"github.com/danielpatrickdp/spa-engine/internal/expr"
	"github.com/danielpatrickdp/spa-engine/internal/pointer"
	"github.com/google/uuid"
)

// #region phase
// Phase is the state of a block's decision cycle.
type Phase int32

const (
	Idle Phase = iota
	Evaluate
	Select
	Route
)

func (p Phase) String() string {
	switch p {
	case Evaluate:
		return "evaluate"
	case Select:
		return "select"
	case Route:
		return "route"
	}
	return "idle"
}
// #endregion phase

// #region action
// Effect assigns the value of Expr to the destination Dest.
type Effect struct {
	Dest string
	Expr expr.Node
}

func (e Effect) String() string { return e.Dest + " = " + expr.String(e.Expr) }

// Action pairs a scalar utility with the effects applied when it wins.
type Action struct {
	Name    string
	Utility expr.Node
	Effects []Effect
}
// #endregion action

// #region router
// Router is the environment a block runs against: it resolves names in
// utility and effect expressions and receives the winning effects.
type Router interface {
	expr.Scope
	// Destination returns the vocabulary values routed to dest must be in.
	Destination(dest string) (pointer.Space, error)
	// Assign stores a routed value.
	Assign(dest string, p pointer.SemanticPointer) error
}
// #endregion router

// #region decision
// Decision records one pass through the decision cycle.
type Decision struct {
	StepID    uuid.UUID
	Block     string
	Utilities []float64
	Winner    int    // index into the block's actions, -1 when nothing fired
	Action    string // name of the winner, empty when nothing fired
	Applied   []string
	CreatedAt time.Time
}

// Fired reports whether an action won.
func (d Decision) Fired() bool { return d.Winner >= 0 }
// #endregion decision
