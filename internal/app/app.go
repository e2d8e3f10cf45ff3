// Package app assembles the crowd simulation from configuration and runs it.
package app

import (
	"context"
	"fmt"

	"github.com/google/wire"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/crowdsim/internal/config"
	"github.com/zeusync/crowdsim/internal/core/events/bus"
	"github.com/zeusync/crowdsim/internal/core/observability/log"
	"github.com/zeusync/crowdsim/internal/core/population"
	"github.com/zeusync/crowdsim/internal/server"
	"github.com/zeusync/crowdsim/internal/sim"
)

// ProviderSet is the dependency graph used by the injector.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideWorld,
	ProvidePopulation,
	ProvideLoop,
	ProvideInspector,
	New,
)

type App struct {
	logger    log.Log
	loop      *sim.Loop
	inspector *server.Inspector
}

func New(logger log.Log, loop *sim.Loop, inspector *server.Inspector) *App {
	return &App{logger: logger, loop: loop, inspector: inspector}
}

func (a *App) Loop() *sim.Loop { return a.loop }

// Run drives the simulation and, when enabled, the inspector until ctx is done or either
// of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.loop.Run(gctx) })
	if a.inspector != nil {
		g.Go(func() error { return a.inspector.Run(gctx) })
	}
	err := g.Wait()
	if syncErr := a.logger.Sync(); syncErr != nil {
		a.logger.Debug("flush logger", log.Error(syncErr))
	}
	return err
}

func ProvideLogger(cfg *config.Config) (log.Log, error) {
	l, err := log.New(cfg.LogOptions())
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ProvideBus returns the lifecycle event bus with delivery logging attached.
func ProvideBus(logger log.Log) bus.EventBus {
	b := bus.New()
	b.AddObserver(bus.LogObserver{Logger: logger.Named("bus")})
	return b
}

func ProvideWorld(cfg *config.Config, logger log.Log) (*sim.World, error) {
	opts, err := cfg.ControllerOptions(logger.Named("controller"))
	if err != nil {
		return nil, fmt.Errorf("controller options: %w", err)
	}
	return sim.NewWorld(cfg.Sim, opts, logger), nil
}

func ProvidePopulation(cfg *config.Config, world *sim.World, events bus.EventBus, logger log.Log) (*population.Manager, error) {
	return population.New(cfg.Population, population.Deps{
		Subject:           world.Player(),
		Surface:           world,
		Factory:           world,
		Renderer:          world,
		Camera:            world.Camera(),
		InteractionPoints: world.InteractionPoints(),
		Bus:               events,
		Logger:            logger,
	})
}

func ProvideLoop(cfg *config.Config, world *sim.World, crowd *population.Manager, logger log.Log) *sim.Loop {
	return sim.NewLoop(world, crowd, cfg.Sim.Tick(), logger)
}

// ProvideInspector returns nil when the inspector is disabled.
func ProvideInspector(cfg *config.Config, loop *sim.Loop, events bus.EventBus, logger log.Log) (*server.Inspector, error) {
	if !cfg.Inspector.Enabled {
		return nil, nil
	}
	return server.NewInspector(cfg.Inspector.Addr, loop, events, logger)
}
