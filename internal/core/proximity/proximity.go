// Package proximity answers "is something of category X near me" for a single NPC.
package proximity

import (
	"github.com/zeusync/crowdsim/internal/core/capability"
	"github.com/zeusync/crowdsim/internal/core/observability/log"
	"github.com/zeusync/crowdsim/pkg/sequence"
)

const DefaultRadius = 2.0

const (
	CategoryPlayer = "Player"
	CategoryCar    = "Car"
	CategoryAnimal = "Animal"
)

// Check tests for objects of one category around its owner. A Check belongs to exactly one
// NPC and is never shared.
type Check struct {
	category string
	radius   float64
	query    capability.SpatialQuery
	self     capability.Transform
	logger   log.Log
	reaction string
}

type Option func(*Check)

func WithRadius(r float64) Option {
	return func(c *Check) {
		if r > 0 {
			c.radius = r
		}
	}
}

func WithLogger(l log.Log) Option {
	return func(c *Check) { c.logger = log.OrNop(l) }
}

// New creates a check for category anchored at self.
func New(category string, query capability.SpatialQuery, self capability.Transform, opts ...Option) *Check {
	c := &Check{
		category: category,
		radius:   DefaultRadius,
		query:    query,
		self:     self,
		logger:   log.Provide(),
		reaction: "object nearby",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("proximity").With(log.String("category", category))
	return c
}

func NewPlayerNearby(query capability.SpatialQuery, self capability.Transform, opts ...Option) *Check {
	c := New(CategoryPlayer, query, self, opts...)
	c.reaction = "player nearby, greeting"
	return c
}

func NewCarNearby(query capability.SpatialQuery, self capability.Transform, opts ...Option) *Check {
	c := New(CategoryCar, query, self, opts...)
	c.reaction = "car nearby, stepping aside"
	return c
}

func NewAnimalNearby(query capability.SpatialQuery, self capability.Transform, opts ...Option) *Check {
	c := New(CategoryAnimal, query, self, opts...)
	c.reaction = "animal nearby"
	return c
}

func (c *Check) Category() string { return c.category }
func (c *Check) Radius() float64  { return c.radius }

// Check reports whether an object of the category lies within the radius of the owner.
// An owner that is gone never has anything nearby.
func (c *Check) Check() bool {
	if c.self == nil || !c.self.Valid() {
		return false
	}
	return c.CheckAt(c.self.Position())
}

// CheckAt runs the query from an arbitrary origin. Tags must match exactly.
func (c *Check) CheckAt(origin capability.Vec3) bool {
	if c.query == nil {
		return false
	}
	return sequence.From(c.query.QueryByCategory(origin, c.radius)).Any(func(obj capability.Tagged) bool {
		return obj != nil && obj.Category() == c.category
	})
}

// React is invoked once the check is known to hold.
func (c *Check) React() {
	c.logger.Info(c.reaction, log.Float64("radius", c.radius))
}
