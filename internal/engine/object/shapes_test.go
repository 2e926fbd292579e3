package object

import (
	"testing"

	"github.com/verdantcity/sunshade/pkg/math"
)

func TestCylinderBounds(t *testing.T) {
	g := NewCylinderGeometry(2, 10, 8)

	min, max := g.Bounds()
	if min.Y != 0 {
		t.Errorf("cylinder base should sit at y=0, got %v", min.Y)
	}
	if max.Y != 10 {
		t.Errorf("cylinder top = %v, want 10", max.Y)
	}
	if max.X > 2.001 || min.X < -2.001 {
		t.Errorf("cylinder radius exceeded: x in [%v, %v]", min.X, max.X)
	}
	if g.TriangleCount() == 0 {
		t.Error("cylinder has no triangles")
	}
}

func TestSphereRestsOnGround(t *testing.T) {
	g := NewSphereGeometry(3, 8, 6)

	min, max := g.Bounds()
	if min.Y < -0.001 {
		t.Errorf("sphere should rest on y=0, min.Y = %v", min.Y)
	}
	if max.Y < 5.9 || max.Y > 6.1 {
		t.Errorf("sphere top = %v, want ~6 (diameter)", max.Y)
	}
}

func TestSegmentClamping(t *testing.T) {
	// Degenerate segment counts must still produce valid geometry.
	for _, g := range []*Geometry{
		NewCylinderGeometry(1, 1, 0),
		NewSphereGeometry(1, 1, 0),
		NewConeGeometry(1, 1, 1),
		NewPlaneGeometry(1, 1, 0, 0, nil),
	} {
		if g.TriangleCount() == 0 {
			t.Error("degenerate segment count produced empty geometry")
		}
		for i := range g.Indices {
			if int(g.Indices[i]) >= len(g.Vertices)/VertexStride {
				t.Fatalf("index %d out of range", g.Indices[i])
			}
		}
	}
}

func TestPlaneHeightSampling(t *testing.T) {
	g := NewPlaneGeometry(100, 100, 2, 2, func(ix, iz int) float32 {
		return float32(ix + iz)
	})

	min, max := g.Bounds()
	if min.Y != 0 || max.Y != 4 {
		t.Errorf("sampled plane heights in [%v, %v], want [0, 4]", min.Y, max.Y)
	}
}

func TestGeometryRefCounting(t *testing.T) {
	g := NewCylinderGeometry(1, 1, 6)
	if g.Refs() != 1 {
		t.Fatalf("new geometry refs = %d, want 1", g.Refs())
	}

	g.Retain()
	if g.Refs() != 2 {
		t.Fatalf("after Retain refs = %d, want 2", g.Refs())
	}

	g.Dispose()
	if g.Refs() != 1 {
		t.Fatalf("after Dispose refs = %d, want 1", g.Refs())
	}

	// Releasing the final reference and disposing again must be safe.
	g.Dispose()
	g.Dispose()
	if g.Refs() != 0 {
		t.Fatalf("refs went negative: %d", g.Refs())
	}
}

func TestMeshDisposeIdempotent(t *testing.T) {
	g := NewCylinderGeometry(1, 1, 6)
	mat := NewMaterial(0.5, 0.5, 0.5)
	m := NewMesh("m1", g, mat)

	m.Dispose()
	m.Dispose()

	if g.Refs() != 0 {
		t.Errorf("geometry refs after double dispose = %d, want 0", g.Refs())
	}
	if mat.Refs() != 0 {
		t.Errorf("material refs after double dispose = %d, want 0", mat.Refs())
	}
}

func TestInstancedMeshCapacity(t *testing.T) {
	g := NewConeGeometry(1, 2, 4)
	im := NewInstancedMesh("grp", g, NewMaterial(0, 1, 0), 2)

	if !im.Append(math.Identity()) || !im.Append(math.Identity()) {
		t.Fatal("appends within capacity must succeed")
	}
	if im.Append(math.Identity()) {
		t.Error("append beyond capacity must be refused")
	}
	if im.Count() != 2 {
		t.Errorf("count = %d, want 2", im.Count())
	}

	im.Reset()
	if im.Count() != 0 {
		t.Errorf("count after reset = %d, want 0", im.Count())
	}
	if !im.Append(math.Identity()) {
		t.Error("append after reset must succeed")
	}
}

func TestInstancedMeshInvisibleWhenEmpty(t *testing.T) {
	g := NewConeGeometry(1, 2, 4)
	im := NewInstancedMesh("grp", g, NewMaterial(0, 1, 0), 4)

	if im.IsVisible() {
		t.Error("empty instanced mesh should not be visible")
	}
	im.Append(math.Identity())
	if !im.IsVisible() {
		t.Error("non-empty instanced mesh should be visible")
	}
	im.SetVisible(false)
	if im.IsVisible() {
		t.Error("SetVisible(false) must hide the batch")
	}
}
