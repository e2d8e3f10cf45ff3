package sim

import (
	"maps"

	"github.com/zeusync/crowdsim/internal/core/capability"
)

var (
	_ capability.NavAgent = (*Agent)(nil)
	_ capability.Animator = (*Animator)(nil)
)

// Agent is a kinematic navigation agent: it walks in a straight line toward its
// destination until it is within the stopping distance.
type Agent struct {
	pos      capability.Vec3
	dest     capability.Vec3
	hasDest  bool
	speed    float64
	stopping float64
	stopped  bool
}

func NewAgent(pos capability.Vec3, speed, stopping float64) *Agent {
	return &Agent{pos: pos, speed: speed, stopping: stopping}
}

func (a *Agent) SetDestination(p capability.Vec3) {
	a.dest = p
	a.hasDest = true
}

func (a *Agent) StoppingDistance() float64 { return a.stopping }
func (a *Agent) IsStopped() bool           { return a.stopped }
func (a *Agent) SetStopped(s bool)         { a.stopped = s }
func (a *Agent) Position() capability.Vec3 { return a.pos }

// Destination returns the current destination, if any.
func (a *Agent) Destination() (capability.Vec3, bool) { return a.dest, a.hasDest }

func (a *Agent) step(dt float64) {
	if a.stopped || !a.hasDest {
		return
	}
	if capability.Distance(a.pos, a.dest) <= a.stopping {
		return
	}
	a.pos = moveToward(a.pos, a.dest, a.speed*dt)
}

// Animator records animation flags.
type Animator struct {
	flags map[string]bool
}

func NewAnimator() *Animator {
	return &Animator{flags: make(map[string]bool)}
}

func (a *Animator) SetFlag(name string, value bool) { a.flags[name] = value }
func (a *Animator) Flag(name string) bool           { return a.flags[name] }
func (a *Animator) Flags() map[string]bool          { return maps.Clone(a.flags) }
