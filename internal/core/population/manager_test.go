package population

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/crowdsim/internal/core/capability"
	"github.com/zeusync/crowdsim/internal/core/events/bus"
)

type npc struct {
	prefab string
	pos    capability.Vec3
	gone   bool
	active bool
	dests  []capability.Transform
}

func (n *npc) Position() capability.Vec3                { return n.pos }
func (n *npc) Valid() bool                              { return !n.gone }
func (n *npc) SetDestinations(d []capability.Transform) { n.dests = d }

type factory struct {
	spawned   []*npc
	destroyed []*npc
	toggles   int
	err       error
}

func (f *factory) Instantiate(prefab string, pos capability.Vec3) (capability.Instance, error) {
	if f.err != nil {
		return nil, f.err
	}
	n := &npc{prefab: prefab, pos: pos, active: true}
	f.spawned = append(f.spawned, n)
	return n, nil
}

func (f *factory) Destroy(i capability.Instance) {
	n := i.(*npc)
	n.gone = true
	f.destroyed = append(f.destroyed, n)
}

func (f *factory) SetActive(i capability.Instance, active bool) {
	i.(*npc).active = active
	f.toggles++
}

// surface hands out queued points first, then echoes the candidate. With outward set it
// moves the candidate a full radius away from the world origin instead.
type surface struct {
	queue      []capability.Vec3
	fail       bool
	outward    bool
	candidates []capability.Vec3
	radii      []float64
}

func (s *surface) NearestValidPoint(p capability.Vec3, r float64) (capability.Vec3, bool) {
	s.candidates = append(s.candidates, p)
	s.radii = append(s.radii, r)
	if s.fail {
		return capability.Vec3{}, false
	}
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		return next, true
	}
	if s.outward {
		return p.Add(p.WithY(0).Normalize().Scale(r)), true
	}
	return p, true
}

type renderMock struct{ mock.Mock }

func (m *renderMock) SetVisible(i capability.Instance, v bool) { m.Called(i, v) }

type cameraMock struct{ mock.Mock }

func (m *cameraMock) WorldToViewport(p capability.Vec3) (float64, float64, float64) {
	args := m.Called(p)
	return args.Get(0).(float64), args.Get(1).(float64), args.Get(2).(float64)
}

type fixture struct {
	subject *npc
	surface *surface
	factory *factory
	events  []bus.Event
	deps    Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{subject: &npc{}, surface: &surface{}, factory: &factory{}}
	b := bus.New()
	_, err := b.Subscribe(bus.Wildcard, func(e bus.Event) error {
		f.events = append(f.events, e)
		return nil
	})
	require.NoError(t, err)
	f.deps = Deps{Subject: f.subject, Surface: f.surface, Factory: f.factory, Bus: b}
	return f
}

func (f *fixture) manager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.Seed == "" {
		cfg.Seed = t.Name()
	}
	m, err := New(cfg, f.deps)
	require.NoError(t, err)
	return m
}

func (f *fixture) eventTypes() []string {
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type()
	}
	return out
}

func at(x float64) capability.Vec3 { return capability.Vec3{X: x} }

func TestTickScenario(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.MaxNPC = 5
	m := f.manager(t, cfg)

	f.surface.queue = []capability.Vec3{at(10), at(50), at(20), at(5)}
	for i := 0; i < 3; i++ {
		rec, err := m.Spawn()
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, Dormant, rec.State())
	}
	require.Equal(t, 3, m.Len())

	m.Tick()

	require.Equal(t, 4, m.Len())
	states := map[float64]State{}
	for _, s := range m.Snapshot() {
		states[s.Position.X] = s.State
	}
	assert.Equal(t, map[float64]State{10: Active, 50: Dormant, 20: Active, 5: Active}, states)
	assert.False(t, f.factory.spawned[1].active)
	assert.True(t, f.factory.spawned[0].active)
}

func TestCullDestroysFarInstances(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.MaxNPC = 2
	m := f.manager(t, cfg)
	f.surface.queue = []capability.Vec3{at(1), at(2)}
	m.Start()
	require.Equal(t, 2, m.Len())

	f.surface.fail = true
	f.factory.spawned[0].pos = at(70.5)
	f.events = nil
	m.Tick()

	assert.Equal(t, 1, m.Len())
	require.Len(t, f.factory.destroyed, 1)
	assert.Same(t, f.factory.spawned[0], f.factory.destroyed[0])
	require.NotEmpty(t, f.events)
	assert.Equal(t, EventDestroyed, f.events[0].Type())
	payload := f.events[0].Data().(Lifecycle)
	assert.Equal(t, "distance", payload.Reason)
	assert.Equal(t, Destroyed, payload.State)
	assert.InDelta(t, 70.5, payload.Distance, 1e-9)
}

func TestCullDropsInvalidInstances(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.MaxNPC = 1
	m := f.manager(t, cfg)
	m.Start()
	require.Equal(t, 1, m.Len())

	f.factory.spawned[0].gone = true
	f.surface.fail = true
	f.events = nil
	m.Tick()

	assert.Zero(t, m.Len())
	require.Len(t, f.events, 1)
	assert.Equal(t, "invalid", f.events[0].Data().(Lifecycle).Reason)
}

func TestReplenishIsOneAttemptPerTick(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.MaxNPC = 4
	m := f.manager(t, cfg)

	for i := 1; i <= 6; i++ {
		m.Tick()
		assert.Equal(t, min(i, 4), m.Len())
	}
}

func TestSpawnSkipsWithoutWalkablePoint(t *testing.T) {
	f := newFixture(t)
	f.surface.fail = true
	m := f.manager(t, DefaultConfig())

	rec, err := m.Spawn()
	assert.NoError(t, err)
	assert.Nil(t, rec)
	m.Start()
	m.Tick()
	assert.Zero(t, m.Len())
	assert.Empty(t, f.factory.spawned)
	assert.Empty(t, f.events)
}

func TestSpawnSkipsPointBeyondDestroyDistance(t *testing.T) {
	f := newFixture(t)
	f.surface.queue = []capability.Vec3{at(71), at(70)}
	m := f.manager(t, DefaultConfig())

	rec, err := m.Spawn()
	assert.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, f.factory.spawned)

	rec, err = m.Spawn()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, at(70), rec.Instance.Position())
}

func TestWideSpawnRadiusKeepsEntriesInsideDestroyDistance(t *testing.T) {
	f := newFixture(t)
	f.surface.outward = true
	cfg := DefaultConfig()
	cfg.MaxNPC = 5
	cfg.SpawnRadius = 60
	require.NoError(t, cfg.Validate())
	m := f.manager(t, cfg)

	m.Start()
	for tick := 0; tick < 50; tick++ {
		m.Tick()
		for _, s := range m.Snapshot() {
			require.LessOrEqual(t, s.Distance, cfg.DestroyDistance, "tick %d", tick)
		}
	}
	assert.NotEmpty(t, f.surface.candidates)
	for _, n := range f.factory.spawned {
		assert.LessOrEqual(t, capability.Distance(f.subject.pos, n.pos), cfg.DestroyDistance)
	}
}

func TestSpawnCandidateIsFlattenedInsideRadius(t *testing.T) {
	f := newFixture(t)
	f.subject.pos = capability.Vec3{X: 100, Y: 7, Z: -40}
	cfg := DefaultConfig()
	cfg.MaxNPC = 50
	cfg.SpawnRadius = 12
	m := f.manager(t, cfg)

	m.Start()

	require.Len(t, f.surface.candidates, 50)
	for i, c := range f.surface.candidates {
		assert.Equal(t, 7.0, c.Y)
		assert.LessOrEqual(t, capability.Distance(c, f.subject.pos), 12.0)
		assert.Equal(t, 12.0, f.surface.radii[i])
	}
}

func TestInstantiateErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	f.factory.err = errors.New("out of memory")
	m := f.manager(t, DefaultConfig())

	rec, err := m.Spawn()
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, f.factory.err)
	assert.Zero(t, m.Len())
}

func TestWithoutPoolingInstancesStartActive(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.Pooling = false
	m := f.manager(t, cfg)

	rec, err := m.Spawn()
	require.NoError(t, err)
	assert.Equal(t, Active, rec.State())
	assert.Zero(t, f.factory.toggles)
	assert.Len(t, m.ActiveInstances(), 1)
}

func TestPrefabsAndSeedAreDeterministic(t *testing.T) {
	run := func() ([]string, []capability.Vec3) {
		f := newFixture(t)
		cfg := DefaultConfig()
		cfg.Prefabs = []string{"a", "b", "c"}
		cfg.MaxNPC = 20
		cfg.Seed = "fixed"
		m := f.manager(t, cfg)
		m.Start()
		var prefabs []string
		for _, n := range f.factory.spawned {
			prefabs = append(prefabs, n.prefab)
		}
		return prefabs, f.surface.candidates
	}
	p1, c1 := run()
	p2, c2 := run()
	assert.Equal(t, p1, p2)
	assert.Equal(t, c1, c2)
	assert.Subset(t, []string{"a", "b", "c"}, p1)
}

func TestInteractionSamplesWithReplacement(t *testing.T) {
	f := newFixture(t)
	places := []capability.Transform{&npc{pos: at(1)}, &npc{pos: at(2)}}
	f.deps.InteractionPoints = places
	cfg := DefaultConfig()
	cfg.Interaction = true
	m := f.manager(t, cfg)

	m.Start()
	for _, n := range f.factory.spawned {
		require.Len(t, n.dests, 3)
		for _, d := range n.dests {
			assert.Contains(t, places, d)
		}
	}
}

func TestInteractionShuffle(t *testing.T) {
	f := newFixture(t)
	places := []capability.Transform{&npc{pos: at(1)}, &npc{pos: at(2)}, &npc{pos: at(3)}, &npc{pos: at(4)}}
	f.deps.InteractionPoints = places
	cfg := DefaultConfig()
	cfg.Interaction = true
	cfg.DestinationMode = DestinationsShuffle
	m := f.manager(t, cfg)

	_, err := m.Spawn()
	require.NoError(t, err)
	assert.ElementsMatch(t, places, f.factory.spawned[0].dests)
}

func TestVisibilityGate(t *testing.T) {
	f := newFixture(t)
	rend, cam := &renderMock{}, &cameraMock{}
	f.deps.Renderer, f.deps.Camera = rend, cam
	cfg := DefaultConfig()
	cfg.MaxNPC = 3
	cfg.Visibility = true
	m := f.manager(t, cfg)

	f.surface.queue = []capability.Vec3{at(1), at(2), at(3)}
	m.Start()
	f.surface.fail = true

	cam.On("WorldToViewport", at(1)).Return(0.5, 0.5, 4.0)
	cam.On("WorldToViewport", at(2)).Return(0.5, 0.5, -1.0)
	cam.On("WorldToViewport", at(3)).Return(1.2, 0.5, 4.0)
	rend.On("SetVisible", f.factory.spawned[1], false).Once()
	rend.On("SetVisible", f.factory.spawned[2], false).Once()

	f.events = nil
	m.Tick()
	m.Tick()

	rend.AssertExpectations(t)
	visible := map[float64]bool{}
	for _, s := range m.Snapshot() {
		visible[s.Position.X] = s.Visible
	}
	assert.Equal(t, map[float64]bool{1: true, 2: false, 3: false}, visible)
	assert.Equal(t, 2, countType(f.events, EventVisibility))
}

func TestPopulationInvariantsHold(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.MaxNPC = 8
	cfg.SpawnRadius = 40
	m := f.manager(t, cfg)
	rng := rand.New(rand.NewPCG(1, 2))

	m.Start()
	for tick := 0; tick < 200; tick++ {
		f.subject.pos = f.subject.pos.Add(capability.Vec3{X: rng.Float64()*6 - 3, Z: rng.Float64()*6 - 3})
		for _, n := range f.factory.spawned {
			n.pos = n.pos.Add(capability.Vec3{X: rng.Float64()*10 - 5, Z: rng.Float64()*10 - 5})
		}
		m.Tick()

		snap := m.Snapshot()
		require.LessOrEqual(t, len(snap), cfg.MaxNPC)
		for _, s := range snap {
			require.LessOrEqual(t, s.Distance, cfg.DestroyDistance)
			if s.Distance <= cfg.PoolDistance {
				require.Equal(t, Active, s.State, "tick %d", tick)
			} else {
				require.Equal(t, Dormant, s.State, "tick %d", tick)
			}
		}
	}
	for _, n := range f.factory.destroyed {
		assert.True(t, n.gone)
	}
}

func TestLifecycleEvents(t *testing.T) {
	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.MaxNPC = 1
	m := f.manager(t, cfg)
	f.surface.queue = []capability.Vec3{at(5)}

	m.Start()
	f.surface.fail = true
	m.Tick()
	f.factory.spawned[0].pos = at(40)
	m.Tick()
	m.Shutdown()

	assert.Equal(t, []string{EventSpawned, EventActivated, EventDeactivated, EventDestroyed}, f.eventTypes())
	assert.Zero(t, m.Len())
	assert.Equal(t, "shutdown", f.events[3].Data().(Lifecycle).Reason)
}

func TestEventsConfigLimitsPublishedTypes(t *testing.T) {
	f := newFixture(t)
	f.deps.Bus.AddObserver(bus.LogObserver{})
	cfg := DefaultConfig()
	cfg.MaxNPC = 1
	cfg.Events = []string{EventSpawned, EventDestroyed}
	m := f.manager(t, cfg)
	f.surface.queue = []capability.Vec3{at(5)}

	m.Start()
	f.surface.fail = true
	m.Tick()
	m.Shutdown()

	assert.Equal(t, []string{EventSpawned, EventDestroyed}, f.eventTypes())
	assert.Equal(t, uint64(1), f.deps.Bus.GetMetrics().DroppedByFilters)
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Visibility = true
	cfg.Interaction = true
	_, err := New(cfg, Deps{})
	assert.ErrorIs(t, err, ErrMissingDependency)
	for _, want := range []string{"subject", "surface", "factory", "camera", "interaction"} {
		assert.Contains(t, err.Error(), want)
	}

	cfg = DefaultConfig()
	cfg.PoolDistance = 80
	_, err = New(cfg, newFixture(t).deps)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSubjectGoneFreezesMaintenance(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t, DefaultConfig())
	f.subject.gone = true

	m.Start()
	m.Tick()
	assert.Zero(t, m.Len())
	assert.Empty(t, f.surface.candidates)
}

func countType(events []bus.Event, typ string) int {
	n := 0
	for _, e := range events {
		if e.Type() == typ {
			n++
		}
	}
	return n
}
