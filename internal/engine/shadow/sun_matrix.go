package shadow

import (
	"github.com/chewxy/math32"

	"github.com/verdantcity/sunshade/pkg/math"
)

// SunViewProjection builds the view-projection matrix for the shadow
// depth pass of a directional sun.
//
// The shadow camera looks from the sun position toward the point on the
// ground plane (y=0) directly below it, so the shadow direction stays
// physically consistent as the sun moves across the sky. halfSize is the
// orthographic half-extent in world units — the same unit space object
// positions use — and depth is the far range along the light axis.
func SunViewProjection(sunPos math.Vec3, halfSize, depth float32) math.Mat4 {
	target := math.Vec3{X: sunPos.X, Y: 0, Z: sunPos.Z}

	// A sun directly overhead is parallel to the default up vector.
	up := math.Vec3{Y: 1}
	dir := target.Sub(sunPos).Normalize()
	if math32.Abs(dir.Y) > 0.99 {
		up = math.Vec3{Z: 1}
	}

	view := math.LookAt(sunPos, target, up)
	proj := math.Ortho(-halfSize, halfSize, -halfSize, halfSize, 0.1, depth)
	return proj.Mul(view)
}
