package sim

import (
	"github.com/zeusync/crowdsim/internal/core/capability"
	"github.com/zeusync/crowdsim/internal/core/controller"
)

var (
	_ capability.Instance            = (*NPC)(nil)
	_ capability.DestinationReceiver = (*NPC)(nil)
)

// NPC is a spawned instance in the reference world. Its position is its agent's.
type NPC struct {
	id       uint64
	prefab   string
	agent    *Agent
	animator *Animator
	ctrl     *controller.Controller
	active   bool
	visible  bool
	alive    bool
}

func (n *NPC) Position() capability.Vec3 { return n.agent.Position() }
func (n *NPC) Valid() bool               { return n.alive }

func (n *NPC) SetDestinations(destinations []capability.Transform) {
	n.ctrl.SetDestinations(destinations)
}

func (n *NPC) ID() uint64                         { return n.id }
func (n *NPC) Prefab() string                     { return n.prefab }
func (n *NPC) Agent() *Agent                      { return n.agent }
func (n *NPC) Animator() *Animator                { return n.animator }
func (n *NPC) Controller() *controller.Controller { return n.ctrl }
func (n *NPC) Active() bool                       { return n.active }
func (n *NPC) Visible() bool                      { return n.visible }
