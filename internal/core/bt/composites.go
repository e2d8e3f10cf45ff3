package bt

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyComposite = errors.New("composite node requires at least one child")
	ErrNilChild       = errors.New("composite node has a nil child")
)

// Composite is a node with an ordered, fixed list of children.
type Composite interface {
	Node
	Children() []Node
}

type composite struct {
	baseNode
	children []Node
}

func newComposite(name string, children []Node) (composite, error) {
	if len(children) == 0 {
		return composite{}, fmt.Errorf("%s: %w", name, ErrEmptyComposite)
	}
	cp := make([]Node, len(children))
	for i, ch := range children {
		if ch == nil {
			return composite{}, fmt.Errorf("%s child %d: %w", name, i, ErrNilChild)
		}
		cp[i] = ch
	}
	return composite{baseNode: baseNode{name: name}, children: cp}, nil
}

// Children returns a copy of the child list.
func (c composite) Children() []Node {
	cp := make([]Node, len(c.children))
	copy(cp, c.children)
	return cp
}

// Sequence evaluates children in order and stops at the first child that does not succeed,
// returning that child's state. Every tick starts again from the first child, so earlier
// steps act as preconditions that are re-checked each tick.
type Sequence struct {
	composite
}

func NewSequence(name string, children ...Node) (*Sequence, error) {
	c, err := newComposite(name, children)
	if err != nil {
		return nil, err
	}
	return &Sequence{composite: c}, nil
}

func (s *Sequence) Evaluate(ac *ActionContext, cc *ConditionContext) NodeState {
	for _, ch := range s.children {
		if st := ch.Evaluate(ac, cc); st != NodeSuccess {
			return st
		}
	}
	return NodeSuccess
}

// SelectorPolicy decides what a Selector does with a running child.
type SelectorPolicy int

const (
	// ContinueOnRunning moves on to the next sibling when a child is running; only a
	// success stops the scan. Later siblings may therefore act in the same tick.
	ContinueOnRunning SelectorPolicy = iota
	// ClaimOnRunning stops at a running child and reports NodeRunning.
	ClaimOnRunning
)

func (p SelectorPolicy) String() string {
	if p == ClaimOnRunning {
		return "claim"
	}
	return "continue"
}

// ParseSelectorPolicy accepts "continue" and "claim"; the empty string means continue.
func ParseSelectorPolicy(s string) (SelectorPolicy, error) {
	switch s {
	case "", "continue":
		return ContinueOnRunning, nil
	case "claim":
		return ClaimOnRunning, nil
	default:
		return ContinueOnRunning, fmt.Errorf("unknown selector policy %q", s)
	}
}

// Selector evaluates children in order until one succeeds.
type Selector struct {
	composite
	policy SelectorPolicy
}

func NewSelector(name string, policy SelectorPolicy, children ...Node) (*Selector, error) {
	c, err := newComposite(name, children)
	if err != nil {
		return nil, err
	}
	return &Selector{composite: c, policy: policy}, nil
}

func (s *Selector) Policy() SelectorPolicy { return s.policy }

func (s *Selector) Evaluate(ac *ActionContext, cc *ConditionContext) NodeState {
	for _, ch := range s.children {
		switch ch.Evaluate(ac, cc) {
		case NodeSuccess:
			return NodeSuccess
		case NodeRunning:
			if s.policy == ClaimOnRunning {
				return NodeRunning
			}
		}
	}
	return NodeFailure
}
