package population

import (
	"slices"

	"github.com/zeusync/crowdsim/internal/core/capability"
	"github.com/zeusync/crowdsim/internal/core/events/bus"
)

// Lifecycle event types published on the bus.
const (
	EventSpawned     = "npc.spawned"
	EventDestroyed   = "npc.destroyed"
	EventActivated   = "npc.activated"
	EventDeactivated = "npc.deactivated"
	EventVisibility  = "npc.visibility"
)

var lifecycleEvents = []string{EventSpawned, EventDestroyed, EventActivated, EventDeactivated, EventVisibility}

const eventSource = "population"

// Lifecycle is the payload of every lifecycle event.
type Lifecycle struct {
	ID       string          `json:"id"`
	Prefab   string          `json:"prefab"`
	Position capability.Vec3 `json:"position"`
	Distance float64         `json:"distance"`
	State    State           `json:"state"`
	Visible  bool            `json:"visible"`
	// Reason explains a destroy: "distance", "invalid" or "shutdown".
	Reason string `json:"reason,omitempty"`
}

func newEvent(typ string, payload Lifecycle) bus.Event {
	return bus.NewEvent(typ, eventSource, payload)
}

// eventFilters keeps only the listed event types. No types means no filtering.
func eventFilters(types []string) []bus.EventFilter {
	if len(types) == 0 {
		return nil
	}
	return []bus.EventFilter{func(e bus.Event) bool { return slices.Contains(types, e.Type()) }}
}
