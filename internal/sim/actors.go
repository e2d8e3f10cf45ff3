package sim

import (
	"math"
	"math/rand/v2"

	"github.com/zeusync/crowdsim/internal/core/capability"
	"github.com/zeusync/crowdsim/internal/core/proximity"
)

// Body is a tagged object visible to spatial queries.
type Body interface {
	capability.Tagged
	capability.Transform
}

// Player wanders between random waypoints. It is the reference subject of the crowd.
type Player struct {
	pos     capability.Vec3
	target  capability.Vec3
	heading float64
	speed   float64
}

func (p *Player) Category() string          { return proximity.CategoryPlayer }
func (p *Player) Position() capability.Vec3 { return p.pos }
func (p *Player) Valid() bool               { return true }

// Heading is the yaw in radians, zero looking down +Z.
func (p *Player) Heading() float64 { return p.heading }

func (p *Player) step(dt float64, b Bounds, rng *rand.Rand) {
	dir := p.target.Sub(p.pos)
	if dir.Len() < 0.5 {
		p.target = b.random(rng)
		dir = p.target.Sub(p.pos)
	}
	if dir.Len() > 0 {
		p.heading = math.Atan2(dir.X, dir.Z)
	}
	p.pos = moveToward(p.pos, p.target, p.speed*dt)
}

// Car drives back and forth between two ends of a lane.
type Car struct {
	pos      capability.Vec3
	from, to capability.Vec3
	speed    float64
}

func (c *Car) Category() string          { return proximity.CategoryCar }
func (c *Car) Position() capability.Vec3 { return c.pos }
func (c *Car) Valid() bool               { return true }

func (c *Car) step(dt float64) {
	c.pos = moveToward(c.pos, c.to, c.speed*dt)
	if capability.Distance(c.pos, c.to) < 1e-6 {
		c.from, c.to = c.to, c.from
	}
}

// Animal idles where it was placed.
type Animal struct {
	pos capability.Vec3
}

func (a *Animal) Category() string          { return proximity.CategoryAnimal }
func (a *Animal) Position() capability.Vec3 { return a.pos }
func (a *Animal) Valid() bool               { return true }

// Marker is a fixed point, used for interaction places.
type Marker struct {
	Pos capability.Vec3
}

func (m Marker) Position() capability.Vec3 { return m.Pos }
func (m Marker) Valid() bool               { return true }

func moveToward(from, to capability.Vec3, maxStep float64) capability.Vec3 {
	d := to.Sub(from)
	dist := d.Len()
	if dist <= maxStep || dist == 0 {
		return to
	}
	return from.Add(d.Scale(maxStep / dist))
}

func (b Bounds) clamp(p capability.Vec3) capability.Vec3 {
	return capability.Vec3{
		X: math.Min(math.Max(p.X, b.MinX), b.MaxX),
		Z: math.Min(math.Max(p.Z, b.MinZ), b.MaxZ),
	}
}

func (b Bounds) random(rng *rand.Rand) capability.Vec3 {
	return capability.Vec3{
		X: b.MinX + rng.Float64()*(b.MaxX-b.MinX),
		Z: b.MinZ + rng.Float64()*(b.MaxZ-b.MinZ),
	}
}
