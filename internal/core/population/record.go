package population

import (
	"github.com/google/uuid"

	"github.com/zeusync/crowdsim/internal/core/capability"
)

// State is the lifecycle state of a spawned NPC.
type State int

const (
	Active State = iota
	Dormant
	Destroyed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Dormant:
		return "dormant"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Record is the registry entry of one NPC. The position is always read through the
// instance, never cached.
type Record struct {
	ID       uuid.UUID
	Prefab   string
	Instance capability.Instance

	state   State
	visible bool
}

func (r *Record) State() State  { return r.state }
func (r *Record) Visible() bool { return r.visible }

// Snapshot is a point-in-time copy of a record.
type Snapshot struct {
	ID       string          `json:"id"`
	Prefab   string          `json:"prefab"`
	Position capability.Vec3 `json:"position"`
	Distance float64         `json:"distance"`
	State    State           `json:"state"`
	Visible  bool            `json:"visible"`

	Instance capability.Instance `json:"-"`
}
