package sim

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid sim config")

// Bounds is the walkable rectangle of the reference world on the XZ plane.
type Bounds struct {
	MinX float64 `mapstructure:"min_x" json:"min_x"`
	MaxX float64 `mapstructure:"max_x" json:"max_x"`
	MinZ float64 `mapstructure:"min_z" json:"min_z"`
	MaxZ float64 `mapstructure:"max_z" json:"max_z"`
}

type CameraConfig struct {
	// FOV is the vertical field of view in degrees.
	FOV    float64 `mapstructure:"fov" json:"fov"`
	Aspect float64 `mapstructure:"aspect" json:"aspect"`
	Height float64 `mapstructure:"height" json:"height"`
}

type Config struct {
	TickMS int    `mapstructure:"tick_ms" json:"tick_ms"`
	Seed   string `mapstructure:"seed" json:"seed"`
	Bounds Bounds `mapstructure:"bounds" json:"bounds"`

	PlayerSpeed      float64 `mapstructure:"player_speed" json:"player_speed"`
	NPCSpeed         float64 `mapstructure:"npc_speed" json:"npc_speed"`
	CarSpeed         float64 `mapstructure:"car_speed" json:"car_speed"`
	StoppingDistance float64 `mapstructure:"stopping_distance" json:"stopping_distance"`

	Hazards           int `mapstructure:"hazards" json:"hazards"`
	Companions        int `mapstructure:"companions" json:"companions"`
	InteractionPoints int `mapstructure:"interaction_points" json:"interaction_points"`

	Camera CameraConfig `mapstructure:"camera" json:"camera"`
}

func DefaultConfig() Config {
	return Config{
		TickMS:            50,
		Bounds:            Bounds{MinX: -100, MaxX: 100, MinZ: -100, MaxZ: 100},
		PlayerSpeed:       3,
		NPCSpeed:          1.5,
		CarSpeed:          8,
		StoppingDistance:  0.5,
		Hazards:           2,
		Companions:        3,
		InteractionPoints: 6,
		Camera:            CameraConfig{FOV: 60, Aspect: 16.0 / 9.0, Height: 1.7},
	}
}

func (c Config) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}
	if c.TickMS <= 0 {
		bad("tick_ms must be positive, got %d", c.TickMS)
	}
	if c.Bounds.MinX >= c.Bounds.MaxX || c.Bounds.MinZ >= c.Bounds.MaxZ {
		bad("bounds are empty: %+v", c.Bounds)
	}
	if c.PlayerSpeed < 0 || c.NPCSpeed < 0 || c.CarSpeed < 0 {
		bad("speeds must not be negative")
	}
	if c.Hazards < 0 || c.Companions < 0 || c.InteractionPoints < 0 {
		bad("object counts must not be negative")
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 || c.Camera.Aspect <= 0 {
		bad("camera fov must be in (0, 180) and aspect positive")
	}
	return errors.Join(errs...)
}
