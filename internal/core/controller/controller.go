// Package controller runs one behavior tree per NPC.
package controller

import (
	"errors"
	"fmt"

	"github.com/zeusync/crowdsim/internal/core/bt"
	"github.com/zeusync/crowdsim/internal/core/capability"
	"github.com/zeusync/crowdsim/internal/core/observability/log"
	"github.com/zeusync/crowdsim/internal/core/proximity"
)

var (
	ErrMissingAgent    = errors.New("navigation agent is missing")
	ErrMissingAnimator = errors.New("animator is missing")
	ErrDisabled        = errors.New("controller is disabled")
)

var _ capability.DestinationReceiver = (*Controller)(nil)

// Deps are the collaborators of one NPC. Agent and Animator are required; the rest may be nil.
type Deps struct {
	Self     capability.Transform
	Agent    capability.NavAgent
	Animator capability.Animator
	Query    capability.SpatialQuery
	// Subject is the subject of interest handed to every tick, usually the player.
	Subject capability.Transform
}

// Options tune a controller. The zero value runs DefaultTree with the faithful selector policy.
type Options struct {
	ProximityRadius float64
	Policy          bt.SelectorPolicy
	// Tree overrides DefaultTree.
	Tree   *bt.Config
	Logger log.Log
}

// Status is a diagnostic view of a controller.
type Status struct {
	Cursor       int          `json:"cursor"`
	Destinations int          `json:"destinations"`
	Last         bt.NodeState `json:"last"`
	Ticks        uint64       `json:"ticks"`
	Disabled     bool         `json:"disabled"`
}

// Controller owns one immutable tree and the state its leaves mutate. It is driven from a
// single goroutine, one Tick per simulation step.
type Controller struct {
	deps   Deps
	opts   Options
	logger log.Log

	tree         *bt.Tree
	state        State
	destinations []capability.Transform

	initialized bool
	disabled    bool
	last        bt.NodeState
	ticks       uint64
}

func New(deps Deps, opts Options) *Controller {
	if opts.ProximityRadius <= 0 {
		opts.ProximityRadius = proximity.DefaultRadius
	}
	return &Controller{
		deps:   deps,
		opts:   opts,
		logger: log.OrNop(opts.Logger).Named("controller"),
		last:   bt.NodeFailure,
	}
}

// Init checks the required handles and builds the tree. It runs at most once: a controller
// that fails here stays disabled and its failure is reported only this one time.
func (c *Controller) Init() error {
	if c.initialized {
		if c.disabled {
			return ErrDisabled
		}
		return nil
	}
	c.initialized = true

	if err := c.init(); err != nil {
		c.disabled = true
		c.logger.Error("controller disabled", log.Error(err))
		return err
	}
	return nil
}

func (c *Controller) init() error {
	var errs []error
	if c.deps.Agent == nil {
		errs = append(errs, ErrMissingAgent)
	}
	if c.deps.Animator == nil {
		errs = append(errs, ErrMissingAnimator)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	checkOpts := []proximity.Option{proximity.WithRadius(c.opts.ProximityRadius), proximity.WithLogger(c.logger)}
	c.state.subject = proximity.NewPlayerNearby(c.deps.Query, c.deps.Self, checkOpts...)
	c.state.hazard = proximity.NewCarNearby(c.deps.Query, c.deps.Self, checkOpts...)
	c.state.companion = proximity.NewAnimalNearby(c.deps.Query, c.deps.Self, checkOpts...)

	def := c.opts.Tree
	if def == nil {
		def = DefaultTree()
	}
	tree, err := def.Build(registry(&c.state), bt.BuildOptions{DefaultPolicy: c.opts.Policy, Logger: c.logger})
	if err != nil {
		return fmt.Errorf("build tree: %w", err)
	}
	c.tree = tree
	return nil
}

// Tick evaluates the tree once from the root. The first Tick initializes the controller if
// Init was not called. A disabled controller does nothing and reports NodeFailure.
func (c *Controller) Tick() bt.NodeState {
	if !c.initialized {
		// Init logs its own failure and leaves the controller disabled.
		if err := c.Init(); err != nil {
			return bt.NodeFailure
		}
	}
	if c.disabled {
		return bt.NodeFailure
	}

	ac := &bt.ActionContext{
		Agent:        c.deps.Agent,
		Animator:     c.deps.Animator,
		Subject:      c.deps.Subject,
		Destinations: c.destinations,
	}
	cc := &bt.ConditionContext{Subject: c.deps.Subject, NPC: c.deps.Self}

	c.last = c.tree.Evaluate(ac, cc)
	c.ticks++
	return c.last
}

// SetDestinations replaces the destination sequence. The cursor is kept, so destinations
// already reached stay reached.
func (c *Controller) SetDestinations(destinations []capability.Transform) {
	c.destinations = append([]capability.Transform(nil), destinations...)
}

func (c *Controller) Disabled() bool { return c.disabled }

func (c *Controller) Status() Status {
	return Status{
		Cursor:       c.state.Cursor,
		Destinations: len(c.destinations),
		Last:         c.last,
		Ticks:        c.ticks,
		Disabled:     c.disabled,
	}
}
