// Package camera tracks the host map's camera for the overlay.
//
// The host delivers a combined view-projection matrix once per repaint.
// The overlay never owns camera controls; everything — world position,
// frustum — is re-derived from that matrix every frame.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/verdantcity/sunshade/pkg/math"
)

// Overlay mirrors the host map camera in world space.
type Overlay struct {
	viewProj math.Mat4
	inverse  math.Mat4
	position math.Vec3
	frustum  math.Frustum
	valid    bool
}

// New creates a camera with an identity view-projection.
func New() *Overlay {
	c := &Overlay{}
	c.SetViewProjection([16]float32(math.Identity()))
	return c
}

// SetViewProjection ingests the host's 4x4 view-projection matrix
// (column-major) and re-derives the camera world position and frustum.
// Called once per host repaint; nothing is carried over between frames.
func (c *Overlay) SetViewProjection(m [16]float32) {
	c.viewProj = math.Mat4(m)
	c.inverse = c.viewProj.Inverse()
	c.frustum = math.FrustumFromMatrix(c.viewProj)
	c.position = c.derivePosition()
	c.valid = true
}

// derivePosition extracts the eye point from the inverted matrix.
//
// For a perspective projection the eye is the projective point that maps
// to clip-space (0,0,1,0): view-space (0,0,z,1) tends to that direction
// as z approaches the eye. For orthographic matrices that point is at
// infinity (w ~ 0), so fall back to the near-plane center.
func (c *Overlay) derivePosition() math.Vec3 {
	e := c.inverse.MulVec4(math.Vec4{0, 0, 1, 0})
	if math32.Abs(e[3]) > 1e-8 {
		return math.Vec3{X: e[0] / e[3], Y: e[1] / e[3], Z: e[2] / e[3]}
	}
	return c.inverse.TransformPoint(math.Vec3{X: 0, Y: 0, Z: -1})
}

// Ready reports whether a host matrix has been ingested.
func (c *Overlay) Ready() bool { return c.valid }

// ViewProjection returns the current view-projection matrix.
func (c *Overlay) ViewProjection() math.Mat4 { return c.viewProj }

// Position returns the camera world position derived from the current
// frame's matrix.
func (c *Overlay) Position() math.Vec3 { return c.position }

// Frustum returns the view frustum for the current frame.
func (c *Overlay) Frustum() math.Frustum { return c.frustum }
