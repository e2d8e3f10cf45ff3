// Package config loads the application configuration from YAML and CROWDSIM_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/zeusync/crowdsim/internal/core/bt"
	"github.com/zeusync/crowdsim/internal/core/controller"
	"github.com/zeusync/crowdsim/internal/core/observability/log"
	"github.com/zeusync/crowdsim/internal/core/population"
	"github.com/zeusync/crowdsim/internal/sim"
)

const EnvPrefix = "CROWDSIM"

type Config struct {
	Log        LogConfig         `mapstructure:"log"`
	Sim        sim.Config        `mapstructure:"sim"`
	Population population.Config `mapstructure:"population"`
	Controller ControllerConfig  `mapstructure:"controller"`
	Inspector  InspectorConfig   `mapstructure:"inspector"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"` // json | console
	Development bool   `mapstructure:"development"`
}

type ControllerConfig struct {
	ProximityRadius float64 `mapstructure:"proximity_radius"`
	SelectorPolicy  string  `mapstructure:"selector_policy"` // continue | claim
	// TreeFile replaces the default tree with a YAML or JSON definition.
	TreeFile string `mapstructure:"tree_file"`
}

type InspectorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads path when it is not empty and applies defaults and environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)

	s := sim.DefaultConfig()
	v.SetDefault("sim.tick_ms", s.TickMS)
	v.SetDefault("sim.seed", s.Seed)
	v.SetDefault("sim.bounds.min_x", s.Bounds.MinX)
	v.SetDefault("sim.bounds.max_x", s.Bounds.MaxX)
	v.SetDefault("sim.bounds.min_z", s.Bounds.MinZ)
	v.SetDefault("sim.bounds.max_z", s.Bounds.MaxZ)
	v.SetDefault("sim.player_speed", s.PlayerSpeed)
	v.SetDefault("sim.npc_speed", s.NPCSpeed)
	v.SetDefault("sim.car_speed", s.CarSpeed)
	v.SetDefault("sim.stopping_distance", s.StoppingDistance)
	v.SetDefault("sim.hazards", s.Hazards)
	v.SetDefault("sim.companions", s.Companions)
	v.SetDefault("sim.interaction_points", s.InteractionPoints)
	v.SetDefault("sim.camera.fov", s.Camera.FOV)
	v.SetDefault("sim.camera.aspect", s.Camera.Aspect)
	v.SetDefault("sim.camera.height", s.Camera.Height)

	p := population.DefaultConfig()
	v.SetDefault("population.max_npc", p.MaxNPC)
	v.SetDefault("population.spawn_radius", p.SpawnRadius)
	v.SetDefault("population.destroy_distance", p.DestroyDistance)
	v.SetDefault("population.pool_distance", p.PoolDistance)
	v.SetDefault("population.pooling", p.Pooling)
	v.SetDefault("population.visibility", p.Visibility)
	v.SetDefault("population.interaction", p.Interaction)
	v.SetDefault("population.destination_count", p.DestinationCount)
	v.SetDefault("population.destination_mode", string(p.DestinationMode))
	v.SetDefault("population.prefabs", p.Prefabs)
	v.SetDefault("population.seed", p.Seed)
	v.SetDefault("population.events", p.Events)

	v.SetDefault("controller.proximity_radius", 2.0)
	v.SetDefault("controller.selector_policy", bt.ContinueOnRunning.String())
	v.SetDefault("controller.tree_file", "")

	v.SetDefault("inspector.enabled", false)
	v.SetDefault("inspector.addr", "127.0.0.1:8088")
}

// Validate checks every section and reports all problems together.
func (c *Config) Validate() error {
	errs := []error{c.Sim.Validate(), c.Population.Validate()}
	if _, err := bt.ParseSelectorPolicy(c.Controller.SelectorPolicy); err != nil {
		errs = append(errs, fmt.Errorf("controller: %w", err))
	}
	if c.Controller.ProximityRadius <= 0 {
		errs = append(errs, fmt.Errorf("controller: proximity_radius must be positive, got %g", c.Controller.ProximityRadius))
	}
	switch c.Log.Encoding {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log: unknown encoding %q", c.Log.Encoding))
	}
	if c.Inspector.Enabled && c.Inspector.Addr == "" {
		errs = append(errs, errors.New("inspector: addr is required when enabled"))
	}
	return errors.Join(errs...)
}

func (c *Config) LogOptions() log.Options {
	return log.Options{
		Level:       log.ParseLevel(c.Log.Level),
		Encoding:    c.Log.Encoding,
		Development: c.Log.Development,
	}
}

// ControllerOptions resolves the selector policy and loads the tree file, if any.
func (c *Config) ControllerOptions(logger log.Log) (controller.Options, error) {
	policy, err := bt.ParseSelectorPolicy(c.Controller.SelectorPolicy)
	if err != nil {
		return controller.Options{}, err
	}
	opts := controller.Options{
		ProximityRadius: c.Controller.ProximityRadius,
		Policy:          policy,
		Logger:          logger,
	}
	if c.Controller.TreeFile != "" {
		if opts.Tree, err = LoadTree(c.Controller.TreeFile); err != nil {
			return controller.Options{}, err
		}
	}
	return opts, nil
}

// LoadTree reads a tree definition, choosing the decoder by file extension.
func LoadTree(path string) (*bt.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tree file: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return bt.LoadJSON(f)
	}
	return bt.LoadYAML(f)
}
