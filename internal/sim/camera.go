package sim

import (
	"math"

	"github.com/zeusync/crowdsim/internal/core/capability"
)

var _ capability.Camera = (*Camera)(nil)

// Camera looks along the player's heading from eye height.
type Camera struct {
	follow *Player
	cfg    CameraConfig
}

func NewCamera(follow *Player, cfg CameraConfig) *Camera {
	return &Camera{follow: follow, cfg: cfg}
}

// WorldToViewport projects p with a pinhole model. Points in view land in [0,1] on both
// axes; depth is the distance along the view direction and is negative behind the camera.
func (c *Camera) WorldToViewport(p capability.Vec3) (x, y, depth float64) {
	eye := c.follow.Position().Add(capability.Vec3{Y: c.cfg.Height})
	yaw := c.follow.Heading()
	forward := capability.Vec3{X: math.Sin(yaw), Z: math.Cos(yaw)}
	right := capability.Vec3{X: math.Cos(yaw), Z: -math.Sin(yaw)}

	rel := p.Sub(eye)
	depth = rel.Dot(forward)
	if depth == 0 {
		return 0.5, 0.5, 0
	}
	halfH := math.Tan(c.cfg.FOV * math.Pi / 360)
	halfW := halfH * c.cfg.Aspect
	x = 0.5 + rel.Dot(right)/(depth*halfW)/2
	y = 0.5 + rel.Y/(depth*halfH)/2
	return x, y, depth
}
