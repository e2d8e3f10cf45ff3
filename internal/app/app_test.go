package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/crowdsim/internal/config"
	"github.com/zeusync/crowdsim/internal/core/events/bus"
	"github.com/zeusync/crowdsim/internal/core/observability/log"
	"github.com/zeusync/crowdsim/internal/core/population"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Sim.Seed = "app"
	cfg.Sim.TickMS = 1
	cfg.Population.Seed = "app"
	cfg.Population.Interaction = true
	cfg.Population.Visibility = true
	return cfg
}

func build(t *testing.T, cfg *config.Config) (*App, bus.EventBus) {
	t.Helper()
	logger := log.Nop()
	events := ProvideBus(logger)
	world, err := ProvideWorld(cfg, logger)
	require.NoError(t, err)
	crowd, err := ProvidePopulation(cfg, world, events, logger)
	require.NoError(t, err)
	loop := ProvideLoop(cfg, world, crowd, logger)
	insp, err := ProvideInspector(cfg, loop, events, logger)
	require.NoError(t, err)
	return New(logger, loop, insp), events
}

func TestRunSimulatesUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	a, events := build(t, cfg)
	spawned := make(chan struct{}, 64)
	_, err := events.Subscribe(population.EventSpawned, func(bus.Event) error {
		select {
		case spawned <- struct{}{}:
		default:
		}
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, a.Run(ctx))

	assert.NotEmpty(t, spawned)
	v := a.Loop().View()
	assert.Greater(t, v.Steps, uint64(0))
	assert.Empty(t, v.NPCs, "crowd is torn down on shutdown")
}

func TestRunWithInspector(t *testing.T) {
	cfg := testConfig(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	cfg.Inspector.Enabled = true
	cfg.Inspector.Addr = addr

	a, _ := build(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/snapshot", addr))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestInspectorDisabledByDefault(t *testing.T) {
	cfg := testConfig(t)
	insp, err := ProvideInspector(cfg, nil, bus.New(), log.Nop())
	assert.NoError(t, err)
	assert.Nil(t, insp)
}

func TestProvideWorldRejectsBadTreeFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Controller.TreeFile = "does-not-exist.yaml"
	_, err := ProvideWorld(cfg, log.Nop())
	assert.Error(t, err)
}
