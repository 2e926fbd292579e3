package buildings

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/chewxy/math32"

	"github.com/verdantcity/sunshade/internal/engine/object"
	"github.com/verdantcity/sunshade/pkg/math"
)

// sanitizeRing drops consecutive near-duplicate vertices and an explicit
// closing vertex, then normalizes winding to counter-clockwise in the XZ
// plane. Returns nil when fewer than 3 usable vertices remain.
func sanitizeRing(ring []math.Vec2) []math.Vec2 {
	const eps = 1e-4

	out := make([]math.Vec2, 0, len(ring))
	for _, v := range ring {
		if len(out) > 0 && v.Distance(out[len(out)-1]) < eps {
			continue
		}
		out = append(out, v)
	}
	if len(out) > 1 && out[0].Distance(out[len(out)-1]) < eps {
		out = out[:len(out)-1]
	}
	if len(out) < 3 {
		return nil
	}
	if signedArea(out) < 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func signedArea(ring []math.Vec2) float32 {
	var sum float32
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum / 2
}

// centroid returns the vertex average; good enough as a mesh anchor.
func centroid(ring []math.Vec2) math.Vec2 {
	var c math.Vec2
	for _, v := range ring {
		c = c.Add(v)
	}
	return c.Scale(1 / float32(len(ring)))
}

// footprintKey hashes a centroid-local ring (rounded to centimeters) and
// height so identical footprints share one cached geometry, regardless
// of where in the world they stand.
func footprintKey(local []math.Vec2, height float32) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range local {
		binary.LittleEndian.PutUint32(buf[:4], uint32(roundCm(v.X)))
		binary.LittleEndian.PutUint32(buf[4:], uint32(roundCm(v.Y)))
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint32(buf[:4], uint32(roundCm(height)))
	h.Write(buf[:4])
	return h.Sum64()
}

// roundCm converts meters to whole centimeters, rounding half away from
// zero so negative coordinates key symmetrically with positive ones.
func roundCm(v float32) int32 {
	return int32(math32.Round(v * 100))
}

// extrudeFootprint builds a closed volume from a CCW centroid-local ring:
// one quad per edge plus an ear-clipped roof cap at y=height. The ring's
// X maps to world X and its Y to world Z.
func extrudeFootprint(local []math.Vec2, height float32) *object.Geometry {
	var verts []float32
	var indices []uint32

	for i := range local {
		p0 := local[i]
		p1 := local[(i+1)%len(local)]

		// Outward wall normal for a CCW ring.
		n := math.Vec2{X: p1.Y - p0.Y, Y: p0.X - p1.X}.Normalize()

		base := uint32(len(verts) / object.VertexStride)
		verts = append(verts,
			p0.X, 0, p0.Y, n.X, 0, n.Y,
			p1.X, 0, p1.Y, n.X, 0, n.Y,
			p1.X, height, p1.Y, n.X, 0, n.Y,
			p0.X, height, p0.Y, n.X, 0, n.Y,
		)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	capBase := uint32(len(verts) / object.VertexStride)
	for _, v := range local {
		verts = append(verts, v.X, height, v.Y, 0, 1, 0)
	}
	for _, tri := range earClip(local) {
		indices = append(indices, capBase+tri[0], capBase+tri[1], capBase+tri[2])
	}

	return object.NewGeometry(verts, indices)
}

// earClip triangulates a simple CCW polygon by repeatedly cutting ears.
// Falls back to a fan when no ear is found (degenerate input), which at
// worst mis-caps a self-intersecting footprint instead of looping.
func earClip(ring []math.Vec2) [][3]uint32 {
	idx := make([]uint32, len(ring))
	for i := range idx {
		idx[i] = uint32(i)
	}

	var tris [][3]uint32
	for len(idx) > 3 {
		cut := -1
		for i := range idx {
			prev := idx[(i+len(idx)-1)%len(idx)]
			cur := idx[i]
			next := idx[(i+1)%len(idx)]
			if isEar(ring, idx, prev, cur, next) {
				cut = i
				tris = append(tris, [3]uint32{prev, cur, next})
				break
			}
		}
		if cut < 0 {
			cut = 0
			tris = append(tris, [3]uint32{
				idx[len(idx)-1], idx[0], idx[1],
			})
		}
		idx = append(idx[:cut], idx[cut+1:]...)
	}
	tris = append(tris, [3]uint32{idx[0], idx[1], idx[2]})
	return tris
}

func isEar(ring []math.Vec2, idx []uint32, prev, cur, next uint32) bool {
	a, b, c := ring[prev], ring[cur], ring[next]
	if cross(a, b, c) <= 0 {
		return false
	}
	for _, i := range idx {
		if i == prev || i == cur || i == next {
			continue
		}
		if pointInTriangle(ring[i], a, b, c) {
			return false
		}
	}
	return true
}

func cross(a, b, c math.Vec2) float32 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func pointInTriangle(p, a, b, c math.Vec2) bool {
	d1 := cross(a, b, p)
	d2 := cross(b, c, p)
	d3 := cross(c, a, p)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

// boundingRadius returns a sphere radius covering the extruded volume
// from its ground-center anchor.
func boundingRadius(local []math.Vec2, height float32) float32 {
	var maxD float32
	for _, v := range local {
		if d := v.Length(); d > maxD {
			maxD = d
		}
	}
	return math.Vec2{X: maxD, Y: height}.Length()
}
