// Package population keeps a bounded crowd of NPCs around a reference subject: it spawns
// near the subject, destroys what drifts too far away and pools what is merely far.
package population

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/zeusync/crowdsim/internal/core/capability"
	"github.com/zeusync/crowdsim/internal/core/events/bus"
	"github.com/zeusync/crowdsim/internal/core/observability/log"
	"github.com/zeusync/crowdsim/pkg/sequence"
)

var ErrMissingDependency = errors.New("missing population dependency")

// Deps are the collaborators of a Manager. Renderer and Camera are only needed with the
// visibility gate; InteractionPoints only with interaction; Bus and Logger are optional.
type Deps struct {
	Subject           capability.Transform
	Surface           capability.NavSurface
	Factory           capability.InstanceFactory
	Renderer          capability.Renderer
	Camera            capability.Camera
	InteractionPoints []capability.Transform
	Bus               bus.EventBus
	Logger            log.Log
}

// Manager owns the NPC registry. Start and Tick are called from the simulation goroutine;
// Snapshot and Len may be called from anywhere.
type Manager struct {
	cfg     Config
	deps    Deps
	logger  log.Log
	rng     *rand.Rand
	filters []bus.EventFilter

	mu      sync.RWMutex
	records []*Record
	pending []bus.Event
}

func New(cfg Config, deps Deps) (*Manager, error) {
	if cfg.DestinationMode == "" {
		cfg.DestinationMode = DestinationsSample
	}
	errs := []error{cfg.Validate()}
	missing := func(what string) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissingDependency, what))
	}
	if deps.Subject == nil {
		missing("reference subject")
	}
	if deps.Surface == nil {
		missing("navigation surface")
	}
	if deps.Factory == nil {
		missing("instance factory")
	}
	if cfg.Visibility && (deps.Renderer == nil || deps.Camera == nil) {
		missing("renderer and camera for the visibility gate")
	}
	if cfg.Interaction && len(deps.InteractionPoints) == 0 {
		missing("interaction points")
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &Manager{
		cfg:     cfg,
		deps:    deps,
		logger:  log.OrNop(deps.Logger).Named("population"),
		rng:     newRand(cfg.Seed),
		filters: eventFilters(cfg.Events),
	}, nil
}

func newRand(seed string) *rand.Rand {
	s := uint64(time.Now().UnixNano())
	if seed != "" {
		s = xxhash.Sum64String(seed)
	}
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// Start performs the initial fill: up to MaxNPC spawn attempts, some of which may be skipped.
func (m *Manager) Start() {
	m.mu.Lock()
	for i := 0; i < m.cfg.MaxNPC && len(m.records) < m.cfg.MaxNPC; i++ {
		if _, err := m.spawnLocked(); err != nil {
			m.logger.Warn("initial spawn failed", log.Error(err))
		}
	}
	events := m.drainLocked()
	m.mu.Unlock()

	m.publish(events)
	m.logger.Info("population started", log.Int("npcs", m.Len()), log.Int("target", m.cfg.MaxNPC))
}

// Spawn makes one spawn attempt. It returns a nil record and nil error when no walkable
// point was found near the sampled position, or the one found lies beyond DestroyDistance;
// that attempt is simply skipped.
func (m *Manager) Spawn() (*Record, error) {
	m.mu.Lock()
	rec, err := m.spawnLocked()
	events := m.drainLocked()
	m.mu.Unlock()

	m.publish(events)
	return rec, err
}

// Tick runs one maintenance step: cull, then replenish, then pool, then the optional
// visibility gate.
func (m *Manager) Tick() {
	m.mu.Lock()
	if origin, ok := m.subjectPosition(); ok {
		m.cullLocked(origin)
		if len(m.records) < m.cfg.MaxNPC {
			if _, err := m.spawnLocked(); err != nil {
				m.logger.Warn("spawn failed", log.Error(err))
			}
		}
		m.poolLocked(origin)
		if m.cfg.Visibility {
			m.visibilityLocked(origin)
		}
	}
	events := m.drainLocked()
	m.mu.Unlock()

	m.publish(events)
}

// Shutdown destroys every instance and empties the registry.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	origin, _ := m.subjectPosition()
	for _, r := range m.records {
		m.destroyLocked(r, origin, "shutdown")
	}
	m.records = nil
	events := m.drainLocked()
	m.mu.Unlock()

	m.publish(events)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// ActiveInstances returns the instances currently simulated.
func (m *Manager) ActiveInstances() []capability.Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	active := sequence.From(m.records).Filter(func(r *Record) bool { return r.state == Active })
	return sequence.Map(active, func(r *Record) capability.Instance { return r.Instance }).Collect()
}

// Snapshot copies the registry in spawn order.
func (m *Manager) Snapshot() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	origin, _ := m.subjectPosition()
	return sequence.Map(sequence.From(m.records), func(r *Record) Snapshot {
		s := Snapshot{ID: r.ID.String(), Prefab: r.Prefab, State: r.state, Visible: r.visible, Instance: r.Instance}
		if r.Instance.Valid() {
			s.Position = r.Instance.Position()
			s.Distance = capability.Distance(origin, s.Position)
		}
		return s
	}).Collect()
}

func (m *Manager) subjectPosition() (capability.Vec3, bool) {
	if !m.deps.Subject.Valid() {
		return capability.Vec3{}, false
	}
	return m.deps.Subject.Position(), true
}

func (m *Manager) spawnLocked() (*Record, error) {
	origin, ok := m.subjectPosition()
	if !ok {
		return nil, nil
	}

	candidate := origin.Add(m.insideUnitSphere().Scale(m.cfg.SpawnRadius)).WithY(origin.Y)
	point, ok := m.deps.Surface.NearestValidPoint(candidate, m.cfg.SpawnRadius)
	if !ok {
		m.logger.Debug("no walkable point near spawn candidate",
			log.Float64("x", candidate.X), log.Float64("z", candidate.Z))
		return nil, nil
	}
	// The surface may move the candidate up to SpawnRadius, so the result can land past the
	// destroy threshold; such an entry would outlive the cull that already ran this tick.
	if capability.Distance(origin, point) > m.cfg.DestroyDistance {
		m.logger.Debug("walkable point beyond destroy distance",
			log.Float64("x", point.X), log.Float64("z", point.Z))
		return nil, nil
	}

	prefab := m.cfg.Prefabs[m.rng.IntN(len(m.cfg.Prefabs))]
	inst, err := m.deps.Factory.Instantiate(prefab, point)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", prefab, err)
	}

	rec := &Record{ID: uuid.New(), Prefab: prefab, Instance: inst, state: Active, visible: true}
	if m.cfg.Pooling {
		m.deps.Factory.SetActive(inst, false)
		rec.state = Dormant
	}
	if m.cfg.Interaction {
		m.assignDestinations(rec)
	}
	m.records = append(m.records, rec)

	m.logger.Debug("npc spawned", log.String("npc", rec.ID.String()), log.String("prefab", prefab),
		log.String("state", rec.state.String()))
	m.emit(EventSpawned, rec, origin, "")
	return rec, nil
}

// insideUnitSphere samples uniformly inside the unit ball by rejection.
func (m *Manager) insideUnitSphere() capability.Vec3 {
	for {
		v := capability.Vec3{X: m.rng.Float64()*2 - 1, Y: m.rng.Float64()*2 - 1, Z: m.rng.Float64()*2 - 1}
		if v.Dot(v) <= 1 {
			return v
		}
	}
}

func (m *Manager) assignDestinations(rec *Record) {
	recv, ok := rec.Instance.(capability.DestinationReceiver)
	if !ok {
		m.logger.Debug("instance does not accept destinations", log.String("npc", rec.ID.String()))
		return
	}
	points := m.deps.InteractionPoints
	var dst []capability.Transform
	switch m.cfg.DestinationMode {
	case DestinationsShuffle:
		dst = make([]capability.Transform, len(points))
		for i, j := range m.rng.Perm(len(points)) {
			dst[i] = points[j]
		}
	default:
		dst = make([]capability.Transform, m.cfg.DestinationCount)
		for i := range dst {
			dst[i] = points[m.rng.IntN(len(points))]
		}
	}
	recv.SetDestinations(dst)
}

func (m *Manager) cullLocked(origin capability.Vec3) {
	gone, kept := sequence.From(m.records).Partition(func(r *Record) bool {
		return !r.Instance.Valid() || capability.Distance(origin, r.Instance.Position()) > m.cfg.DestroyDistance
	})
	for _, r := range gone {
		reason := "distance"
		if !r.Instance.Valid() {
			reason = "invalid"
		}
		m.destroyLocked(r, origin, reason)
	}
	m.records = kept
}

func (m *Manager) destroyLocked(r *Record, origin capability.Vec3, reason string) {
	// position must be read before the handle goes away
	m.emit(EventDestroyed, r, origin, reason)
	m.deps.Factory.Destroy(r.Instance)
	r.state = Destroyed
	m.logger.Debug("npc destroyed", log.String("npc", r.ID.String()), log.String("reason", reason))
}

func (m *Manager) poolLocked(origin capability.Vec3) {
	for _, r := range m.records {
		want := Dormant
		if capability.Distance(origin, r.Instance.Position()) <= m.cfg.PoolDistance {
			want = Active
		}
		if want == r.state {
			continue
		}
		r.state = want
		m.deps.Factory.SetActive(r.Instance, want == Active)
		if want == Active {
			m.emit(EventActivated, r, origin, "")
		} else {
			m.emit(EventDeactivated, r, origin, "")
		}
	}
}

func (m *Manager) visibilityLocked(origin capability.Vec3) {
	for _, r := range m.records {
		x, y, depth := m.deps.Camera.WorldToViewport(r.Instance.Position())
		visible := depth > 0 && x >= 0 && x <= 1 && y >= 0 && y <= 1
		if visible == r.visible {
			continue
		}
		r.visible = visible
		m.deps.Renderer.SetVisible(r.Instance, visible)
		m.emit(EventVisibility, r, origin, "")
	}
}

func (m *Manager) emit(typ string, r *Record, origin capability.Vec3, reason string) {
	if m.deps.Bus == nil {
		return
	}
	payload := Lifecycle{ID: r.ID.String(), Prefab: r.Prefab, State: r.state, Visible: r.visible, Reason: reason}
	if r.Instance.Valid() {
		payload.Position = r.Instance.Position()
		payload.Distance = capability.Distance(origin, payload.Position)
	}
	if typ == EventDestroyed {
		payload.State = Destroyed
	}
	m.pending = append(m.pending, newEvent(typ, payload))
}

func (m *Manager) drainLocked() []bus.Event {
	events := m.pending
	m.pending = nil
	return events
}

// publish runs outside the lock so handlers may call back into the manager. Types not listed
// in Config.Events are dropped by the bus.
func (m *Manager) publish(events []bus.Event) {
	for _, e := range events {
		if err := m.deps.Bus.PublishWithFilters(e, m.filters...); err != nil {
			m.logger.Warn("lifecycle event handler failed", log.String("type", e.Type()), log.Error(err))
		}
	}
}
