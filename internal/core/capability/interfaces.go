// Package capability declares the collaborators the NPC core drives but does not implement:
// navigation, animation, spatial queries, navigation-surface sampling, instance lifecycle and
// camera projection. Engines plug in by implementing these interfaces.
package capability

// Transform is anything with a world position. Valid reports false once the underlying
// object is gone; callers must not trust Position after that.
type Transform interface {
	Position() Vec3
	Valid() bool
}

// NavAgent turns a destination into motion.
type NavAgent interface {
	SetDestination(point Vec3)
	// StoppingDistance is the tolerance within which a destination counts as reached.
	StoppingDistance() float64
	IsStopped() bool
	SetStopped(stopped bool)
	Position() Vec3
}

// Animator plays animation state. Flags used by the core: FlagWalking, FlagDancing, FlagAvoided.
type Animator interface {
	SetFlag(name string, value bool)
}

const (
	FlagWalking = "IsWalking"
	FlagDancing = "IsDancing"
	FlagAvoided = "isAvoided"
)

// Tagged is an object returned by a spatial query.
type Tagged interface {
	Category() string
}

// SpatialQuery returns every tagged object within radius of origin.
type SpatialQuery interface {
	QueryByCategory(origin Vec3, radius float64) []Tagged
}

// NavSurface samples the walkable surface.
type NavSurface interface {
	// NearestValidPoint returns the closest walkable point to point within radius.
	NearestValidPoint(point Vec3, radius float64) (Vec3, bool)
}

// Instance is a handle to a spawned NPC.
type Instance interface {
	Transform
}

// DestinationReceiver is implemented by instances that accept injected destinations.
type DestinationReceiver interface {
	SetDestinations(destinations []Transform)
}

// InstanceFactory owns instantiation and destruction of NPC instances.
type InstanceFactory interface {
	Instantiate(prefab string, position Vec3) (Instance, error)
	Destroy(instance Instance)
	SetActive(instance Instance, active bool)
}

// Renderer toggles the renderable of an instance independently of its simulation state.
type Renderer interface {
	SetVisible(instance Instance, visible bool)
}

// Camera projects world points into the unit viewport. Depth is positive in front of the camera.
type Camera interface {
	WorldToViewport(point Vec3) (x, y, depth float64)
}
