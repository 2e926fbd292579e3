package math

import "github.com/chewxy/math32"

// Plane is the plane a*x + b*y + c*z + d = 0 with (a,b,c) normalized.
type Plane struct {
	A, B, C, D float32
}

// DistanceTo returns the signed distance from the plane to a point.
// Positive means the point is on the side the normal faces.
func (p Plane) DistanceTo(v Vec3) float32 {
	return p.A*v.X + p.B*v.Y + p.C*v.Z + p.D
}

// Frustum is a view frustum as six inward-facing planes, in the order
// left, right, bottom, top, near, far.
type Frustum [6]Plane

// FrustumFromMatrix extracts frustum planes from a view-projection matrix
// (Gribb/Hartmann method). Works for both perspective and orthographic
// projections.
func FrustumFromMatrix(m Mat4) Frustum {
	row := func(i int) [4]float32 {
		return [4]float32{m[i], m[4+i], m[8+i], m[12+i]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes := [6][4]float32{
		{r3[0] + r0[0], r3[1] + r0[1], r3[2] + r0[2], r3[3] + r0[3]}, // left
		{r3[0] - r0[0], r3[1] - r0[1], r3[2] - r0[2], r3[3] - r0[3]}, // right
		{r3[0] + r1[0], r3[1] + r1[1], r3[2] + r1[2], r3[3] + r1[3]}, // bottom
		{r3[0] - r1[0], r3[1] - r1[1], r3[2] - r1[2], r3[3] - r1[3]}, // top
		{r3[0] + r2[0], r3[1] + r2[1], r3[2] + r2[2], r3[3] + r2[3]}, // near
		{r3[0] - r2[0], r3[1] - r2[1], r3[2] - r2[2], r3[3] - r2[3]}, // far
	}

	var f Frustum
	for i, p := range planes {
		l := math32.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		if l == 0 {
			f[i] = Plane{0, 0, 0, 1}
			continue
		}
		f[i] = Plane{p[0] / l, p[1] / l, p[2] / l, p[3] / l}
	}
	return f
}

// ContainsSphere reports whether a sphere intersects the frustum.
// A positive margin expands the sphere, making the test more permissive.
func (f Frustum) ContainsSphere(center Vec3, radius, margin float32) bool {
	for _, p := range f {
		if p.DistanceTo(center) < -(radius + margin) {
			return false
		}
	}
	return true
}

// IntersectsAABB reports whether an axis-aligned box intersects the
// frustum, expanded outward by margin. Uses the positive-vertex test
// per plane.
func (f Frustum) IntersectsAABB(min, max Vec3, margin float32) bool {
	for _, p := range f {
		v := min
		if p.A >= 0 {
			v.X = max.X
		}
		if p.B >= 0 {
			v.Y = max.Y
		}
		if p.C >= 0 {
			v.Z = max.Z
		}
		if p.DistanceTo(v) < -margin {
			return false
		}
	}
	return true
}
