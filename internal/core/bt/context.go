package bt

import "github.com/zeusync/crowdsim/internal/core/capability"

// ActionContext is the per-tick bundle handed to action leaves. It is built fresh by the
// caller for every tick and must not be retained.
type ActionContext struct {
	Agent    capability.NavAgent
	Animator capability.Animator
	// Subject is the generic subject of interest (usually the player).
	Subject      capability.Transform
	Destinations []capability.Transform
}

// ConditionContext is the per-tick bundle handed to condition leaves.
type ConditionContext struct {
	Subject capability.Transform
	// NPC anchors proximity queries at the evaluating NPC.
	NPC capability.Transform
}
