package controller

import (
	"github.com/zeusync/crowdsim/internal/core/bt"
	"github.com/zeusync/crowdsim/internal/core/capability"
	"github.com/zeusync/crowdsim/internal/core/proximity"
)

// Leaf names understood by the controller's registry.
const (
	CondHazardNearby    = "hazard-nearby"
	CondSubjectNearby   = "subject-nearby"
	CondCompanionNearby = "companion-nearby"

	ActAvoidHazard     = "avoid-hazard"
	ActGreetSubject    = "greet-subject"
	ActNoticeCompanion = "notice-companion"
	ActMoveToNext      = "move-to-next-destination"
)

// State is everything the leaves of one controller mutate or consult between ticks.
type State struct {
	// Cursor indexes the destination currently being travelled to. It only grows.
	Cursor int

	subject   *proximity.Check
	hazard    *proximity.Check
	companion *proximity.Check
}

func moveToNextDestination(s *State, ac *bt.ActionContext) bt.NodeState {
	if s.Cursor >= len(ac.Destinations) {
		return bt.NodeSuccess
	}
	dst := ac.Destinations[s.Cursor]
	if dst == nil || !dst.Valid() {
		return bt.NodeFailure
	}
	if ac.Agent == nil || ac.Animator == nil {
		return bt.NodeFailure
	}

	target := dst.Position()
	if capability.Distance(ac.Agent.Position(), target) > ac.Agent.StoppingDistance() {
		ac.Agent.SetStopped(false)
		ac.Agent.SetDestination(target)
		ac.Animator.SetFlag(capability.FlagWalking, true)
		return bt.NodeRunning
	}

	ac.Animator.SetFlag(capability.FlagWalking, false)
	s.Cursor++
	return bt.NodeSuccess
}

func greetSubject(s *State, ac *bt.ActionContext) bt.NodeState {
	halt(ac)
	if ac.Animator != nil {
		ac.Animator.SetFlag(capability.FlagDancing, true)
	}
	if s.subject != nil {
		s.subject.React()
	}
	return bt.NodeSuccess
}

func avoidHazard(s *State, ac *bt.ActionContext) bt.NodeState {
	halt(ac)
	if ac.Animator != nil {
		ac.Animator.SetFlag(capability.FlagAvoided, true)
	}
	if s.hazard != nil {
		s.hazard.React()
	}
	return bt.NodeSuccess
}

func noticeCompanion(s *State, _ *bt.ActionContext) bt.NodeState {
	if s.companion != nil {
		s.companion.React()
	}
	return bt.NodeSuccess
}

func halt(ac *bt.ActionContext) {
	if ac.Agent != nil {
		ac.Agent.SetStopped(true)
	}
	if ac.Animator != nil {
		ac.Animator.SetFlag(capability.FlagWalking, false)
	}
}

// nearby anchors the check at the evaluating NPC rather than at whatever the check was
// created with, so the condition stays a function of its context.
func nearby(c *proximity.Check, cc *bt.ConditionContext) bool {
	if c == nil || cc.NPC == nil || !cc.NPC.Valid() {
		return false
	}
	return c.CheckAt(cc.NPC.Position())
}

// registry binds every leaf to s.
func registry(s *State) bt.Registry {
	r := bt.NewRegistry()
	r.RegisterCondition(CondHazardNearby, bt.Condition(func(cc *bt.ConditionContext) bool { return nearby(s.hazard, cc) }))
	r.RegisterCondition(CondSubjectNearby, bt.Condition(func(cc *bt.ConditionContext) bool { return nearby(s.subject, cc) }))
	r.RegisterCondition(CondCompanionNearby, bt.Condition(func(cc *bt.ConditionContext) bool { return nearby(s.companion, cc) }))

	r.RegisterAction(ActAvoidHazard, bt.Action(func(ac *bt.ActionContext) bt.NodeState { return avoidHazard(s, ac) }))
	r.RegisterAction(ActGreetSubject, bt.Action(func(ac *bt.ActionContext) bt.NodeState { return greetSubject(s, ac) }))
	r.RegisterAction(ActNoticeCompanion, bt.Action(func(ac *bt.ActionContext) bt.NodeState { return noticeCompanion(s, ac) }))
	r.RegisterAction(ActMoveToNext, bt.Action(func(ac *bt.ActionContext) bt.NodeState { return moveToNextDestination(s, ac) }))
	return r
}

// DefaultTree is the tree every controller runs unless configured otherwise:
//
//	Selector(Sequence(hazard-nearby, avoid-hazard),
//	         Sequence(subject-nearby, greet-subject),
//	         move-to-next-destination)
func DefaultTree() *bt.Config {
	return &bt.Config{
		Root: "root",
		Nodes: map[string]bt.ConfigNode{
			"root":       {Type: "selector", Children: []string{"avoid", "greet", "move"}},
			"avoid":      {Type: "sequence", Children: []string{"hazard?", "step-aside"}},
			"greet":      {Type: "sequence", Children: []string{"subject?", "wave"}},
			"hazard?":    {Type: "condition", Condition: CondHazardNearby},
			"subject?":   {Type: "condition", Condition: CondSubjectNearby},
			"step-aside": {Type: "action", Action: ActAvoidHazard},
			"wave":       {Type: "action", Action: ActGreetSubject},
			"move":       {Type: "action", Action: ActMoveToNext},
		},
	}
}
