// Package sim is an in-memory reference world for the crowd core. It implements every
// capability the core consumes and schedules ticks.
package sim

import (
	"errors"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/crowdsim/internal/core/capability"
	"github.com/zeusync/crowdsim/internal/core/controller"
	"github.com/zeusync/crowdsim/internal/core/observability/log"
)

var (
	_ capability.NavSurface      = (*World)(nil)
	_ capability.SpatialQuery    = (*World)(nil)
	_ capability.InstanceFactory = (*World)(nil)
	_ capability.Renderer        = (*World)(nil)
)

var ErrUnknownPrefab = errors.New("unknown prefab")

// World owns every object of the simulation. It is not safe for concurrent use; Loop
// serializes access.
type World struct {
	cfg      Config
	ctrlOpts controller.Options
	logger   log.Log
	rng      *rand.Rand

	player  *Player
	cars    []*Car
	animals []*Animal
	points  []capability.Transform
	camera  *Camera

	npcs   []*NPC
	nextID uint64
}

// NewWorld lays out the player, hazards, companions and interaction places. ctrlOpts
// configures the controller attached to every spawned NPC.
func NewWorld(cfg Config, ctrlOpts controller.Options, logger log.Log) *World {
	seed := uint64(time.Now().UnixNano())
	if cfg.Seed != "" {
		seed = xxhash.Sum64String(cfg.Seed)
	}
	w := &World{
		cfg:      cfg,
		ctrlOpts: ctrlOpts,
		logger:   log.OrNop(logger).Named("sim"),
		rng:      rand.New(rand.NewPCG(seed, ^seed)),
	}
	if w.ctrlOpts.Logger == nil {
		w.ctrlOpts.Logger = w.logger
	}

	w.player = &Player{speed: cfg.PlayerSpeed}
	w.camera = NewCamera(w.player, cfg.Camera)
	for i := 0; i < cfg.Hazards; i++ {
		a, b := cfg.Bounds.random(w.rng), cfg.Bounds.random(w.rng)
		w.cars = append(w.cars, &Car{pos: a, from: a, to: b, speed: cfg.CarSpeed})
	}
	for i := 0; i < cfg.Companions; i++ {
		w.animals = append(w.animals, &Animal{pos: cfg.Bounds.random(w.rng)})
	}
	for i := 0; i < cfg.InteractionPoints; i++ {
		w.points = append(w.points, Marker{Pos: cfg.Bounds.random(w.rng)})
	}
	return w
}

func (w *World) Player() *Player                           { return w.player }
func (w *World) Camera() *Camera                           { return w.camera }
func (w *World) InteractionPoints() []capability.Transform { return w.points }
func (w *World) NPCs() []*NPC                              { return slices.Clone(w.npcs) }

// AddCar places a hazard lane; AddAnimal places a companion.
func (w *World) AddCar(from, to capability.Vec3) *Car {
	c := &Car{pos: from, from: from, to: to, speed: w.cfg.CarSpeed}
	w.cars = append(w.cars, c)
	return c
}

func (w *World) AddAnimal(at capability.Vec3) *Animal {
	a := &Animal{pos: at}
	w.animals = append(w.animals, a)
	return a
}

// MovePlayer teleports the player and aims it at p.
func (w *World) MovePlayer(p capability.Vec3) {
	w.player.pos = p
	w.player.target = p
}

// NearestValidPoint clamps point into the walkable rectangle. It fails when the clamped
// point is farther than radius from the request.
func (w *World) NearestValidPoint(point capability.Vec3, radius float64) (capability.Vec3, bool) {
	p := w.cfg.Bounds.clamp(point)
	if capability.Distance(p, point) > radius {
		return capability.Vec3{}, false
	}
	return p, true
}

// QueryByCategory returns every body within radius of origin.
func (w *World) QueryByCategory(origin capability.Vec3, radius float64) []capability.Tagged {
	var out []capability.Tagged
	consider := func(b Body) {
		if capability.Distance(origin, b.Position()) <= radius {
			out = append(out, b)
		}
	}
	consider(w.player)
	for _, c := range w.cars {
		consider(c)
	}
	for _, a := range w.animals {
		consider(a)
	}
	return out
}

func (w *World) Instantiate(prefab string, position capability.Vec3) (capability.Instance, error) {
	if prefab == "" {
		return nil, ErrUnknownPrefab
	}
	w.nextID++
	n := &NPC{
		id:       w.nextID,
		prefab:   prefab,
		agent:    NewAgent(position, w.cfg.NPCSpeed, w.cfg.StoppingDistance),
		animator: NewAnimator(),
		active:   true,
		visible:  true,
		alive:    true,
	}
	n.ctrl = controller.New(controller.Deps{
		Self:     n,
		Agent:    n.agent,
		Animator: n.animator,
		Query:    w,
		Subject:  w.player,
	}, w.ctrlOpts)
	if err := n.ctrl.Init(); err != nil {
		w.logger.Warn("npc spawned without behavior", log.Uint64("npc", n.id), log.Error(err))
	}
	w.npcs = append(w.npcs, n)
	return n, nil
}

func (w *World) Destroy(instance capability.Instance) {
	n, ok := instance.(*NPC)
	if !ok {
		return
	}
	n.alive = false
	n.active = false
	w.npcs = slices.DeleteFunc(w.npcs, func(o *NPC) bool { return o == n })
}

func (w *World) SetActive(instance capability.Instance, active bool) {
	if n, ok := instance.(*NPC); ok {
		n.active = active
	}
}

func (w *World) SetVisible(instance capability.Instance, visible bool) {
	if n, ok := instance.(*NPC); ok {
		n.visible = visible
	}
}

// advance moves every object by dt. Dormant NPCs are frozen.
func (w *World) advance(dt time.Duration) {
	secs := dt.Seconds()
	w.player.step(secs, w.cfg.Bounds, w.rng)
	for _, c := range w.cars {
		c.step(secs)
	}
	for _, n := range w.npcs {
		if n.active {
			n.agent.step(secs)
		}
	}
}
