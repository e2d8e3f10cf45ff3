package population

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidConfig = errors.New("invalid population config")

// DestinationMode selects how interaction points become a destination sequence.
type DestinationMode string

const (
	// DestinationsSample draws DestinationCount points independently, duplicates allowed.
	DestinationsSample DestinationMode = "sample"
	// DestinationsShuffle hands out a permutation of every interaction point.
	DestinationsShuffle DestinationMode = "shuffle"
)

type Config struct {
	MaxNPC          int     `mapstructure:"max_npc" json:"max_npc"`
	SpawnRadius     float64 `mapstructure:"spawn_radius" json:"spawn_radius"`
	DestroyDistance float64 `mapstructure:"destroy_distance" json:"destroy_distance"`
	PoolDistance    float64 `mapstructure:"pool_distance" json:"pool_distance"`
	// Pooling makes new instances start Dormant.
	Pooling bool `mapstructure:"pooling" json:"pooling"`
	// Visibility enables the camera gate on renderables.
	Visibility       bool            `mapstructure:"visibility" json:"visibility"`
	Interaction      bool            `mapstructure:"interaction" json:"interaction"`
	DestinationCount int             `mapstructure:"destination_count" json:"destination_count"`
	DestinationMode  DestinationMode `mapstructure:"destination_mode" json:"destination_mode"`
	Prefabs          []string        `mapstructure:"prefabs" json:"prefabs"`
	// Seed makes spawning reproducible. Empty means seeded from the clock.
	Seed string `mapstructure:"seed" json:"seed"`
	// Events limits the lifecycle event types published on the bus. Empty publishes all.
	Events []string `mapstructure:"events" json:"events,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		MaxNPC:           10,
		SpawnRadius:      10,
		DestroyDistance:  70,
		PoolDistance:     30,
		Pooling:          true,
		DestinationCount: 3,
		DestinationMode:  DestinationsSample,
		Prefabs:          []string{"citizen"},
	}
}

// Validate reports every problem at once, each wrapped with ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}
	if c.MaxNPC < 0 {
		bad("max_npc must not be negative, got %d", c.MaxNPC)
	}
	if c.SpawnRadius <= 0 {
		bad("spawn_radius must be positive, got %g", c.SpawnRadius)
	}
	if c.PoolDistance < 0 {
		bad("pool_distance must not be negative, got %g", c.PoolDistance)
	}
	if c.DestroyDistance <= c.PoolDistance {
		bad("destroy_distance (%g) must exceed pool_distance (%g)", c.DestroyDistance, c.PoolDistance)
	}
	if len(c.Prefabs) == 0 {
		bad("at least one prefab is required")
	}
	switch c.DestinationMode {
	case "", DestinationsSample:
		if c.Interaction && c.DestinationCount < 1 {
			bad("destination_count must be at least 1, got %d", c.DestinationCount)
		}
	case DestinationsShuffle:
	default:
		bad("unknown destination_mode %q", c.DestinationMode)
	}
	for _, typ := range c.Events {
		if !slices.Contains(lifecycleEvents, typ) {
			bad("unknown lifecycle event %q", typ)
		}
	}
	return errors.Join(errs...)
}
