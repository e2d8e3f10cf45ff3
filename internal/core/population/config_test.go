package population

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.MaxNPC)
	assert.Equal(t, 70.0, cfg.DestroyDistance)
	assert.Equal(t, 30.0, cfg.PoolDistance)
	assert.True(t, cfg.Pooling)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Config{
		MaxNPC:          -1,
		SpawnRadius:     0,
		DestroyDistance: 30,
		PoolDistance:    30,
		Interaction:     true,
		DestinationMode: "teleport",
	}
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)

	msg := err.Error()
	for _, want := range []string{"max_npc", "spawn_radius", "destroy_distance", "prefab", "destination_mode"} {
		assert.Contains(t, msg, want)
	}
}

func TestValidateDestinationCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interaction = true
	cfg.DestinationCount = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.DestinationMode = DestinationsShuffle
	assert.NoError(t, cfg.Validate())
}

func TestValidateEventTypes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Events = []string{EventSpawned, EventDestroyed}
	require.NoError(t, cfg.Validate())

	cfg.Events = []string{"npc.teleported"}
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "npc.teleported")
}
