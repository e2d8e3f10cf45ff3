package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/crowdsim/internal/core/bt"
	"github.com/zeusync/crowdsim/internal/core/controller"
	"github.com/zeusync/crowdsim/internal/core/population"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Population.MaxNPC)
	assert.Equal(t, 10.0, cfg.Population.SpawnRadius)
	assert.Equal(t, 70.0, cfg.Population.DestroyDistance)
	assert.Equal(t, 30.0, cfg.Population.PoolDistance)
	assert.True(t, cfg.Population.Pooling)
	assert.False(t, cfg.Population.Visibility)
	assert.False(t, cfg.Population.Interaction)
	assert.Equal(t, population.DestinationsSample, cfg.Population.DestinationMode)
	assert.Equal(t, 3, cfg.Population.DestinationCount)
	assert.Equal(t, 2.0, cfg.Controller.ProximityRadius)
	assert.Equal(t, "continue", cfg.Controller.SelectorPolicy)
	assert.Equal(t, 50, cfg.Sim.TickMS)
	assert.Equal(t, -100.0, cfg.Sim.Bounds.MinX)
	assert.False(t, cfg.Inspector.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, "crowdsim.yaml", `
log:
  level: debug
  encoding: json
population:
  max_npc: 25
  interaction: true
  destination_mode: shuffle
  prefabs: [citizen, tourist]
controller:
  selector_policy: claim
inspector:
  enabled: true
  addr: ":9000"
sim:
  seed: demo
  camera:
    fov: 75
`)
	t.Setenv("CROWDSIM_POPULATION_POOL_DISTANCE", "40")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Population.MaxNPC)
	assert.Equal(t, 40.0, cfg.Population.PoolDistance)
	assert.True(t, cfg.Population.Interaction)
	assert.Equal(t, population.DestinationsShuffle, cfg.Population.DestinationMode)
	assert.Equal(t, []string{"citizen", "tourist"}, cfg.Population.Prefabs)
	assert.Equal(t, "demo", cfg.Sim.Seed)
	assert.Equal(t, 75.0, cfg.Sim.Camera.FOV)
	assert.Equal(t, 16.0/9.0, cfg.Sim.Camera.Aspect)
	assert.Equal(t, ":9000", cfg.Inspector.Addr)
	assert.Equal(t, "json", cfg.LogOptions().Encoding)

	opts, err := cfg.ControllerOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, bt.ClaimOnRunning, opts.Policy)
	assert.Nil(t, opts.Tree)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
population:
  destroy_distance: 20
  pool_distance: 30
controller:
  selector_policy: sometimes
log:
  encoding: xml
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, population.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "selector policy")
	assert.Contains(t, err.Error(), "encoding")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestControllerOptionsLoadsTreeFile(t *testing.T) {
	yamlTree := writeFile(t, "tree.yaml", `
root: main
nodes:
  main: {type: selector, children: [move]}
  move: {type: action, action: move-to-next-destination}
`)
	jsonTree := writeFile(t, "tree.json", `{"root":"m","nodes":{"m":{"type":"action","action":"greet-subject"}}}`)

	for _, path := range []string{yamlTree, jsonTree} {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Controller.TreeFile = path

		opts, err := cfg.ControllerOptions(nil)
		require.NoError(t, err, path)
		require.NotNil(t, opts.Tree)

		c := controller.New(controller.Deps{Agent: nopAgent{}, Animator: nopAnimator{}}, opts)
		assert.NoError(t, c.Init(), path)
	}

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Controller.TreeFile = filepath.Join(t.TempDir(), "nope.yaml")
	_, err = cfg.ControllerOptions(nil)
	assert.Error(t, err)
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load("../../configs/crowdsim.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"citizen", "tourist", "vendor"}, cfg.Population.Prefabs)

	cfg.Controller.TreeFile = "../../configs/trees/companion.yaml"
	opts, err := cfg.ControllerOptions(nil)
	require.NoError(t, err)
	require.NotNil(t, opts.Tree)
	assert.Equal(t, "main", opts.Tree.Root)
	assert.Len(t, opts.Tree.Nodes, 11)
}
