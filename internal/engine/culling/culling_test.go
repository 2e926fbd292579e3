package culling

import (
	"testing"

	"github.com/verdantcity/sunshade/internal/engine/object"
	"github.com/verdantcity/sunshade/pkg/math"
)

func meshAt(pos math.Vec3, radius float32) *object.Mesh {
	g := object.NewGeometry([]float32{0, 0, 0, 0, 1, 0}, []uint32{0, 0, 0})
	m := object.NewMesh("test", g, object.NewMaterial(1, 1, 1))
	m.SetPosition(pos)
	m.Radius = radius
	return m
}

// testFrustum looks from the origin down -Z.
func testFrustum() (math.Vec3, math.Frustum) {
	pos := math.Vec3{}
	proj := math.Perspective(1.0, 16.0/9.0, 0.1, 2000)
	view := math.LookAt(pos, math.Vec3{Z: -1}, math.Vec3{Y: 1})
	return pos, math.FrustumFromMatrix(proj.Mul(view))
}

func TestVisibleObjectPassesAllTests(t *testing.T) {
	p := NewPipeline(Config{Enabled: true, CellSize: 100, MaxDistance: 1000})

	m := meshAt(math.Vec3{Z: -100}, 5)
	p.Add(m)

	pos, fr := testFrustum()
	stats := p.Update(pos, fr)

	if !m.IsVisible() {
		t.Error("object inside frustum and within range must be visible")
	}
	if stats.Visible != 1 || stats.Total != 1 {
		t.Errorf("stats = %+v, want 1 visible of 1", stats)
	}
}

func TestObjectBehindCameraCulled(t *testing.T) {
	p := NewPipeline(Config{Enabled: true, CellSize: 100, MaxDistance: 1000})

	m := meshAt(math.Vec3{Z: 500}, 5)
	p.Add(m)

	pos, fr := testFrustum()
	stats := p.Update(pos, fr)

	if m.IsVisible() {
		t.Error("object strictly behind the camera must never be visible")
	}
	if stats.FrustumCulled != 1 {
		t.Errorf("frustum culled = %d, want 1", stats.FrustumCulled)
	}
}

func TestDistanceCutoffRunsBeforeFrustum(t *testing.T) {
	p := NewPipeline(Config{Enabled: true, CellSize: 100, MaxDistance: 300})

	// In the frustum but beyond max distance.
	m := meshAt(math.Vec3{Z: -800}, 5)
	p.Add(m)

	pos, fr := testFrustum()
	stats := p.Update(pos, fr)

	if m.IsVisible() {
		t.Error("object beyond max distance must be hidden")
	}
	if stats.DistanceCulled != 1 || stats.FrustumCulled != 0 {
		t.Errorf("stats = %+v, want distance-culled only", stats)
	}
}

func TestStatsRecomputedEachUpdate(t *testing.T) {
	p := NewPipeline(Config{Enabled: true, CellSize: 100, MaxDistance: 1000})
	p.Add(meshAt(math.Vec3{Z: -100}, 5))
	p.Add(meshAt(math.Vec3{Z: 100}, 5))

	pos, fr := testFrustum()
	first := p.Update(pos, fr)
	second := p.Update(pos, fr)

	if first.Visible != second.Visible || first.FrustumCulled != second.FrustumCulled {
		t.Errorf("stats must not accumulate: %+v vs %+v", first, second)
	}
	if second.Total != 2 {
		t.Errorf("total = %d, want 2", second.Total)
	}
}

func TestOneCellPerObject(t *testing.T) {
	p := NewPipeline(Config{Enabled: true, CellSize: 100})

	m := meshAt(math.Vec3{X: 50, Z: 50}, 1)
	p.Add(m)
	if p.CellCount() != 1 {
		t.Fatalf("cells = %d, want 1", p.CellCount())
	}

	// Re-adding after the object moved re-buckets it, never duplicates.
	m.SetPosition(math.Vec3{X: 250, Z: 50})
	p.Add(m)
	if p.CellCount() != 1 {
		t.Errorf("cells after move = %d, want 1 (old cell emptied)", p.CellCount())
	}

	pos, fr := testFrustum()
	if got := p.Update(pos, fr).Total; got != 1 {
		t.Errorf("total = %d, want 1", got)
	}
}

func TestCellsRecycledThroughPool(t *testing.T) {
	p := NewPipeline(Config{Enabled: true, CellSize: 100})

	m := meshAt(math.Vec3{X: 50, Z: 50}, 1)
	p.Add(m)
	first := p.cells[p.keyFor(m.WorldPosition())]
	if first == nil || !first.pooled {
		t.Fatal("cell must come from the pool")
	}

	// Moving back and forth empties one cell and fills another; the
	// emptied cell goes back to the pool and is handed out again.
	for i := 1; i <= 10; i++ {
		m.SetPosition(math.Vec3{X: float32(50 + 200*(i%2)), Z: 50})
		p.Add(m)
	}
	if p.CellCount() != 1 {
		t.Fatalf("cells = %d, want 1", p.CellCount())
	}

	ps := p.CellPoolStats()
	if ps.InUse != 1 {
		t.Errorf("pool in use = %d, want 1 (the occupied cell)", ps.InUse)
	}
	if ps.Acquires != 11 || ps.Releases != 10 {
		t.Errorf("acquires/releases = %d/%d, want 11/10", ps.Acquires, ps.Releases)
	}
	if ps.Expansions != 0 {
		t.Errorf("expansions = %d, recycled churn must not grow the pool", ps.Expansions)
	}

	p.Clear()
	if got := p.CellPoolStats().InUse; got != 0 {
		t.Errorf("pool in use after Clear = %d, want 0", got)
	}
}

func TestFrustumPaddingAdmitsEdgeObjects(t *testing.T) {
	pos, fr := testFrustum()

	// Just outside the left plane at depth 100.
	edge := meshAt(math.Vec3{X: -110, Z: -100}, 1)

	strict := NewPipeline(Config{Enabled: true, CellSize: 100})
	strict.Add(edge)
	strict.Update(pos, fr)
	if edge.IsVisible() {
		t.Fatal("edge object should be culled without padding")
	}

	padded := NewPipeline(Config{Enabled: true, CellSize: 100, FrustumPadding: 50})
	padded.Add(edge)
	padded.Update(pos, fr)
	if !edge.IsVisible() {
		t.Error("padding should admit the edge object")
	}
}

func TestOcclusionStubPassesByDefault(t *testing.T) {
	p := NewPipeline(Config{Enabled: true, CellSize: 100})
	m := meshAt(math.Vec3{Z: -100}, 5)
	p.Add(m)

	pos, fr := testFrustum()
	stats := p.Update(pos, fr)
	if stats.OcclusionCulled != 0 || !m.IsVisible() {
		t.Error("default occlusion stub must pass everything")
	}

	p.SetOcclusionTest(func(object.Renderable, math.Vec3) bool { return false })
	stats = p.Update(pos, fr)
	if stats.OcclusionCulled != 1 || m.IsVisible() {
		t.Error("installed occlusion test must be applied")
	}
}

func TestDisabledPipelineShowsEverything(t *testing.T) {
	p := NewPipeline(Config{Enabled: false, CellSize: 100, MaxDistance: 10})

	m := meshAt(math.Vec3{Z: 5000}, 1)
	m.SetVisible(false)
	p.Add(m)

	pos, fr := testFrustum()
	stats := p.Update(pos, fr)

	if !m.IsVisible() || stats.Visible != 1 {
		t.Error("disabled culling must mark everything visible")
	}
}

func TestRemoveAndClear(t *testing.T) {
	p := NewPipeline(Config{Enabled: true, CellSize: 100})
	m := meshAt(math.Vec3{Z: -100}, 5)
	p.Add(m)
	p.Remove(m)

	pos, fr := testFrustum()
	if got := p.Update(pos, fr).Total; got != 0 {
		t.Errorf("total after remove = %d, want 0", got)
	}

	p.Add(m)
	p.Clear()
	if p.CellCount() != 0 {
		t.Error("clear must drop all cells")
	}
}
