package object

import (
	"github.com/chewxy/math32"

	"github.com/verdantcity/sunshade/pkg/math"
)

// Primitive geometry builders. All run CPU-side only, so they are safe
// to call from the geometry worker and from tests without a GL context.
// Shapes are built around the origin with +Y up; vertical extents start
// at y=0 so instances sit on the ground plane.

// NewCylinderGeometry builds a closed cylinder of the given radius and
// height with its base at y=0.
func NewCylinderGeometry(radius, height float32, segments int) *Geometry {
	if segments < 3 {
		segments = 3
	}

	var verts []float32
	var indices []uint32

	// Side ring vertices, bottom then top, smooth normals.
	for i := 0; i <= segments; i++ {
		a := float32(i) / float32(segments) * 2 * math32.Pi
		nx, nz := math32.Cos(a), math32.Sin(a)
		verts = append(verts,
			nx*radius, 0, nz*radius, nx, 0, nz,
			nx*radius, height, nz*radius, nx, 0, nz,
		)
	}
	for i := 0; i < segments; i++ {
		b := uint32(i * 2)
		indices = append(indices,
			b, b+1, b+2,
			b+2, b+1, b+3,
		)
	}

	// Caps: center vertex plus a fan.
	capStart := uint32(len(verts) / VertexStride)
	verts = append(verts, 0, height, 0, 0, 1, 0)
	for i := 0; i <= segments; i++ {
		a := float32(i) / float32(segments) * 2 * math32.Pi
		verts = append(verts, math32.Cos(a)*radius, height, math32.Sin(a)*radius, 0, 1, 0)
	}
	for i := 0; i < segments; i++ {
		indices = append(indices, capStart, capStart+1+uint32(i), capStart+2+uint32(i))
	}

	return NewGeometry(verts, indices)
}

// NewSphereGeometry builds a UV sphere centered at y=radius, so the
// sphere rests on the ground plane.
func NewSphereGeometry(radius float32, widthSegments, heightSegments int) *Geometry {
	if widthSegments < 3 {
		widthSegments = 3
	}
	if heightSegments < 2 {
		heightSegments = 2
	}

	var verts []float32
	var indices []uint32

	for iy := 0; iy <= heightSegments; iy++ {
		v := float32(iy) / float32(heightSegments)
		phi := v * math32.Pi
		for ix := 0; ix <= widthSegments; ix++ {
			u := float32(ix) / float32(widthSegments)
			theta := u * 2 * math32.Pi

			nx := math32.Sin(phi) * math32.Cos(theta)
			ny := math32.Cos(phi)
			nz := math32.Sin(phi) * math32.Sin(theta)

			verts = append(verts,
				nx*radius, ny*radius+radius, nz*radius,
				nx, ny, nz,
			)
		}
	}

	stride := uint32(widthSegments + 1)
	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := uint32(iy)*stride + uint32(ix)
			b := a + stride
			indices = append(indices,
				a, b, a+1,
				a+1, b, b+1,
			)
		}
	}

	return NewGeometry(verts, indices)
}

// NewConeGeometry builds a cone with its base at y=0 and apex at height.
// Used for the low-detail canopy silhouette.
func NewConeGeometry(radius, height float32, segments int) *Geometry {
	if segments < 3 {
		segments = 3
	}

	var verts []float32
	var indices []uint32

	// Slant normal: for a cone, the side normal tilts by atan(radius/height).
	slant := math32.Hypot(radius, height)
	ny := radius / slant
	nr := height / slant

	apex := uint32(0)
	verts = append(verts, 0, height, 0, 0, 1, 0)
	for i := 0; i <= segments; i++ {
		a := float32(i) / float32(segments) * 2 * math32.Pi
		cx, cz := math32.Cos(a), math32.Sin(a)
		verts = append(verts, cx*radius, 0, cz*radius, cx*nr, ny, cz*nr)
	}
	for i := 0; i < segments; i++ {
		indices = append(indices, apex, 1+uint32(i), 2+uint32(i))
	}

	return NewGeometry(verts, indices)
}

// NewPlaneGeometry builds a horizontal grid of the given size centered
// at the origin. heightAt, when non-nil, supplies a Y value per grid
// vertex; normals stay straight up (terrain relief here is gentle
// relative to tile size).
func NewPlaneGeometry(width, depth float32, segX, segZ int, heightAt func(ix, iz int) float32) *Geometry {
	if segX < 1 {
		segX = 1
	}
	if segZ < 1 {
		segZ = 1
	}

	var verts []float32
	var indices []uint32

	for iz := 0; iz <= segZ; iz++ {
		for ix := 0; ix <= segX; ix++ {
			x := (float32(ix)/float32(segX) - 0.5) * width
			z := (float32(iz)/float32(segZ) - 0.5) * depth
			var y float32
			if heightAt != nil {
				y = heightAt(ix, iz)
			}
			verts = append(verts, x, y, z, 0, 1, 0)
		}
	}

	stride := uint32(segX + 1)
	for iz := 0; iz < segZ; iz++ {
		for ix := 0; ix < segX; ix++ {
			a := uint32(iz)*stride + uint32(ix)
			b := a + stride
			indices = append(indices,
				a, b, a+1,
				a+1, b, b+1,
			)
		}
	}

	return NewGeometry(verts, indices)
}

// Bounds returns the axis-aligned bounds of the geometry's vertices.
func (g *Geometry) Bounds() (min, max math.Vec3) {
	if len(g.Vertices) == 0 {
		return math.Vec3{}, math.Vec3{}
	}
	min = math.Vec3{X: g.Vertices[0], Y: g.Vertices[1], Z: g.Vertices[2]}
	max = min
	for i := 0; i < len(g.Vertices); i += VertexStride {
		v := math.Vec3{X: g.Vertices[i], Y: g.Vertices[i+1], Z: g.Vertices[i+2]}
		if v.X < min.X {
			min.X = v.X
		}
		if v.Y < min.Y {
			min.Y = v.Y
		}
		if v.Z < min.Z {
			min.Z = v.Z
		}
		if v.X > max.X {
			max.X = v.X
		}
		if v.Y > max.Y {
			max.Y = v.Y
		}
		if v.Z > max.Z {
			max.Z = v.Z
		}
	}
	return min, max
}
