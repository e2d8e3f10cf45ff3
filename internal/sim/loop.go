package sim

import (
	"context"
	"sync"
	"time"

	"github.com/zeusync/crowdsim/internal/core/capability"
	"github.com/zeusync/crowdsim/internal/core/controller"
	"github.com/zeusync/crowdsim/internal/core/observability/log"
	"github.com/zeusync/crowdsim/internal/core/population"
	"github.com/zeusync/crowdsim/pkg/sequence"
)

// Crowd is the part of the population manager the loop drives.
type Crowd interface {
	Start()
	Tick()
	Shutdown()
	ActiveInstances() []capability.Instance
	Snapshot() []population.Snapshot
}

// Loop is the single-threaded scheduler. Every step advances the world, ticks the
// controllers of active NPCs and then the crowd, in that order.
type Loop struct {
	world  *World
	crowd  Crowd
	tick   time.Duration
	logger log.Log

	mu      sync.Mutex
	started bool
	steps   uint64
	elapsed time.Duration
}

func NewLoop(world *World, crowd Crowd, tick time.Duration, logger log.Log) *Loop {
	return &Loop{world: world, crowd: crowd, tick: tick, logger: log.OrNop(logger).Named("loop")}
}

// Start performs the crowd's initial fill. It is idempotent.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startLocked()
}

func (l *Loop) startLocked() {
	if l.started {
		return
	}
	l.started = true
	l.crowd.Start()
}

// Step advances the simulation by dt.
func (l *Loop) Step(dt time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startLocked()

	l.world.advance(dt)
	for _, inst := range l.crowd.ActiveInstances() {
		if n, ok := inst.(*NPC); ok {
			n.ctrl.Tick()
		}
	}
	l.crowd.Tick()
	l.steps++
	l.elapsed += dt
}

// Run steps at the configured rate until ctx is done, then shuts the crowd down.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("simulation started", log.Duration("tick", l.tick))
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Step(l.tick)
		case <-ctx.Done():
			l.mu.Lock()
			l.crowd.Shutdown()
			steps := l.steps
			l.mu.Unlock()
			l.logger.Info("simulation stopped", log.Uint64("steps", steps))
			return nil
		}
	}
}

// NPCView joins a population record with the state of its NPC.
type NPCView struct {
	population.Snapshot
	Controller *controller.Status `json:"controller,omitempty"`
	Flags      map[string]bool    `json:"flags,omitempty"`
}

// View is a consistent picture of the simulation between two steps.
type View struct {
	Steps   uint64          `json:"steps"`
	Elapsed time.Duration   `json:"elapsed_ns"`
	Player  capability.Vec3 `json:"player"`
	NPCs    []NPCView       `json:"npcs"`
	Active  int             `json:"active"`
	Walking int             `json:"walking"`
}

// View may be called from any goroutine.
func (l *Loop) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := View{Steps: l.steps, Elapsed: l.elapsed, Player: l.world.player.Position()}
	for _, s := range l.crowd.Snapshot() {
		nv := NPCView{Snapshot: s}
		if n, ok := s.Instance.(*NPC); ok {
			st := n.ctrl.Status()
			nv.Controller = &st
			nv.Flags = n.animator.Flags()
		}
		v.NPCs = append(v.NPCs, nv)
	}
	npcs := sequence.From(v.NPCs)
	v.Active = npcs.Count(func(nv NPCView) bool { return nv.State == population.Active })
	v.Walking = npcs.Count(func(nv NPCView) bool { return nv.Flags[capability.FlagWalking] })
	return v
}
