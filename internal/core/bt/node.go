package bt

import (
	"github.com/zeusync/crowdsim/internal/core/observability/log"
)

// Node is the unit of evaluation. Implementations hold no per-tick state; anything that
// must survive between ticks lives in the state the leaf functions are bound to.
type Node interface {
	Evaluate(ac *ActionContext, cc *ConditionContext) NodeState
	Name() string
}

type baseNode struct{ name string }

func (b baseNode) Name() string { return b.name }

// ActionFunc performs a side-effecting behavior and reports how far it got.
type ActionFunc func(ac *ActionContext) NodeState

// Predicate is a boolean check over the condition context.
type Predicate func(cc *ConditionContext) bool

// ActionNode is a leaf wrapping an ActionFunc. Its result is returned verbatim.
type ActionNode struct {
	baseNode
	fn     ActionFunc
	logger log.Log
}

func NewAction(name string, fn ActionFunc, opts ...LeafOption) *ActionNode {
	o := leafOptions{logger: log.Provide()}
	for _, opt := range opts {
		opt(&o)
	}
	return &ActionNode{baseNode: baseNode{name: name}, fn: fn, logger: o.logger}
}

func (a *ActionNode) Evaluate(ac *ActionContext, _ *ConditionContext) NodeState {
	if a.fn == nil {
		a.logger.Warn("action has no behavior", log.String("node", a.name))
		return NodeFailure
	}
	return a.fn(ac)
}

// ConditionNode is a leaf wrapping a Predicate. It never reports NodeRunning, and it fails
// safe when either the context or the predicate is missing.
type ConditionNode struct {
	baseNode
	pred   Predicate
	logger log.Log
}

func NewCondition(name string, pred Predicate, opts ...LeafOption) *ConditionNode {
	o := leafOptions{logger: log.Provide()}
	for _, opt := range opts {
		opt(&o)
	}
	return &ConditionNode{baseNode: baseNode{name: name}, pred: pred, logger: o.logger}
}

func (c *ConditionNode) Evaluate(_ *ActionContext, cc *ConditionContext) NodeState {
	if cc == nil {
		c.logger.Warn("condition context is nil", log.String("node", c.name))
		return NodeFailure
	}
	if c.pred == nil {
		c.logger.Warn("condition has no predicate", log.String("node", c.name))
		return NodeFailure
	}
	if c.pred(cc) {
		return NodeSuccess
	}
	return NodeFailure
}

type leafOptions struct {
	logger log.Log
}

// LeafOption customises action and condition leaves.
type LeafOption func(*leafOptions)

// WithLogger routes evaluation faults of a leaf to l.
func WithLogger(l log.Log) LeafOption {
	return func(o *leafOptions) { o.logger = log.OrNop(l) }
}
