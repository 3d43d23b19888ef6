package action

import (
	bt "github.com/joeycumines/go-behaviortree"
)

// Node wraps one decision cycle of b as a behaviour-tree leaf. Each tick
// runs Step against r and reports Success when an action fired, Failure
// when none did. If sink is non-nil it receives every decision.
func Node(b *Block, r Router, sink func(Decision)) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		d, err := b.Step(r)
		if err != nil {
			return bt.Failure, err
		}
		if sink != nil {
			sink(d)
		}
		if !d.Fired() {
			return bt.Failure, nil
		}
		return bt.Success, nil
	})
}
