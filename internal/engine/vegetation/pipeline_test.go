package vegetation

import (
	"testing"

	"github.com/verdantcity/sunshade/internal/engine/events"
	"github.com/verdantcity/sunshade/internal/engine/scenegraph"
	"github.com/verdantcity/sunshade/internal/logger"
	"github.com/verdantcity/sunshade/pkg/math"
)

func testConfig() Config {
	return Config{
		HighDistance:   50,
		MediumDistance: 200,
		LowDistance:    1000,
		MaxTrees:       10000,
	}
}

func newTestPipeline() (*Pipeline, *scenegraph.Manager) {
	scene := scenegraph.NewManager()
	return NewPipeline(scene, events.NewBus(), logger.Named("vegetation"), testConfig()), scene
}

func oak(id string, x, z float32) Record {
	return Record{ID: id, Position: math.Vec3{X: x, Z: z}, Height: 12, Species: "oak"}
}

func TestAddTreesGroupsBySpecies(t *testing.T) {
	p, scene := newTestPipeline()
	defer p.Dispose()

	bus := p.bus
	var loaded int
	bus.Subscribe(events.TreesLoaded, func(ev events.Event) {
		loaded = ev.Payload.(int)
	})

	records := []Record{
		oak("o1", 0, 0), oak("o2", 10, 0), oak("o3", 0, 10),
		{ID: "p1", Position: math.Vec3{X: 5}, Height: 18, Species: "pine"},
		{ID: "p2", Position: math.Vec3{X: -5}, Height: 16, Species: "pine"},
	}
	if got := p.AddTrees(records); got != 5 {
		t.Fatalf("AddTrees accepted %d, want 5", got)
	}
	if loaded != 5 {
		t.Errorf("trees:loaded payload = %d, want 5", loaded)
	}
	if len(p.groups) != 2 {
		t.Fatalf("got %d species groups, want 2", len(p.groups))
	}

	p.Update(math.Vec3{})
	stats := p.GroupStats()
	if stats["oak"].Total != 3 {
		t.Errorf("oak total = %d, want 3", stats["oak"].Total)
	}
	if stats["pine"].Total != 2 {
		t.Errorf("pine total = %d, want 2", stats["pine"].Total)
	}

	// 2 species x 3 tiers x (trunk + canopy)
	if n := len(scene.GetGroupObjects(scenegraph.GroupVegetation)); n != 12 {
		t.Errorf("scene graph holds %d meshes, want 12", n)
	}
}

func TestUpdateBucketsByDistance(t *testing.T) {
	p, _ := newTestPipeline()
	defer p.Dispose()

	p.AddTrees([]Record{oak("near", 30, 0)})

	tests := []struct {
		name    string
		camera  math.Vec3
		tier    Tier
		visible bool
	}{
		{"within high band", math.Vec3{}, TierHigh, true},
		{"medium band", math.Vec3{X: -120}, TierMedium, true},
		{"low band", math.Vec3{X: -500}, TierLow, true},
		{"beyond cutoff", math.Vec3{X: -2500}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.Update(tt.camera)
			stats := p.GroupStats()["oak"]
			if !tt.visible {
				if stats.Total != 0 {
					t.Fatalf("total = %d, want 0 beyond cutoff", stats.Total)
				}
				return
			}
			if stats.PerTier[tt.tier] != 1 {
				t.Fatalf("tier %d count = %d, want 1 (per-tier %v)",
					tt.tier, stats.PerTier[tt.tier], stats.PerTier)
			}
			if stats.Total != 1 {
				t.Fatalf("record appeared in %d tiers, want exactly 1", stats.Total)
			}
		})
	}
}

func TestUpdateCameraHeightIgnored(t *testing.T) {
	p, _ := newTestPipeline()
	defer p.Dispose()

	p.AddTrees([]Record{oak("t", 30, 0)})
	p.Update(math.Vec3{Y: 800})

	if got := p.GroupStats()["oak"].PerTier[TierHigh]; got != 1 {
		t.Errorf("high-tier count = %d, want 1; altitude must not affect banding", got)
	}
}

func TestAddTreesSkipsInvalidHeight(t *testing.T) {
	p, _ := newTestPipeline()
	defer p.Dispose()

	n := p.AddTrees([]Record{
		oak("good", 0, 0),
		{ID: "bad", Position: math.Vec3{X: 1}, Height: 0, Species: "oak"},
		{ID: "worse", Position: math.Vec3{X: 2}, Height: -3, Species: "oak"},
	})
	if n != 1 {
		t.Errorf("accepted %d records, want 1", n)
	}
}

func TestAddTreesTruncatesAtMax(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTrees = 2
	p := NewPipeline(scenegraph.NewManager(), events.NewBus(), logger.Named("vegetation"), cfg)
	defer p.Dispose()

	n := p.AddTrees([]Record{oak("a", 0, 0), oak("b", 1, 0), oak("c", 2, 0)})
	if n != 2 {
		t.Errorf("accepted %d records, want 2 after truncation", n)
	}
}

func TestAddTreesReplacesWorkingSet(t *testing.T) {
	p, scene := newTestPipeline()
	defer p.Dispose()

	p.AddTrees([]Record{oak("a", 0, 0), oak("b", 1, 0)})
	p.AddTrees([]Record{{ID: "p", Position: math.Vec3{}, Height: 15, Species: "pine"}})

	if p.Count() != 1 {
		t.Errorf("Count = %d, want 1 after replacement", p.Count())
	}
	if n := len(scene.GetGroupObjects(scenegraph.GroupVegetation)); n != 6 {
		t.Errorf("scene graph holds %d meshes, want 6 for one species", n)
	}
}

func TestGeometryCacheSharedAcrossReloads(t *testing.T) {
	p, _ := newTestPipeline()
	defer p.Dispose()

	p.AddTrees([]Record{oak("a", 0, 0)})
	if len(p.geoCache) == 0 {
		t.Fatal("expected cached geometry after first load")
	}
	key := geomKey{kind: kindTrunk, tier: TierHigh, radiusCm: 35}
	first := p.geoCache[key]
	if first == nil {
		t.Fatal("oak trunk geometry missing from cache")
	}

	// Replacing the set disposes the scene group; the cache reference
	// keeps the geometry alive for reuse.
	p.AddTrees([]Record{oak("b", 5, 5)})
	if p.geoCache[key] != first {
		t.Error("trunk geometry rebuilt instead of reused from cache")
	}
	if first.Refs() < 1 {
		t.Errorf("cached geometry refs = %d, want >= 1", first.Refs())
	}
}

func TestCrossSpeciesSharedGeometryIndependentBatches(t *testing.T) {
	p, _ := newTestPipeline()
	defer p.Dispose()

	// maple and linden have the same trunk radius, so their trunk meshes
	// resolve to one cached geometry; the instanced batches drawing it
	// must stay separate, each sized and counted for its own species.
	p.AddTrees([]Record{
		{ID: "m1", Position: math.Vec3{X: 1}, Height: 12, Species: "maple"},
		{ID: "l1", Position: math.Vec3{X: 5}, Height: 14, Species: "linden"},
		{ID: "l2", Position: math.Vec3{X: 8}, Height: 10, Species: "linden"},
	})
	p.Update(math.Vec3{})

	maple := p.groups["maple"].tiers[TierHigh].trunk
	linden := p.groups["linden"].tiers[TierHigh].trunk
	if maple.Geometry != linden.Geometry {
		t.Fatal("equal trunk radii must share one cached geometry")
	}
	if maple == linden {
		t.Fatal("species must keep separate instanced meshes")
	}
	if maple.Count() != 1 || linden.Count() != 2 {
		t.Errorf("high-tier trunk counts = %d/%d, want 1/2", maple.Count(), linden.Count())
	}
	if maple.Capacity() != 1 || linden.Capacity() != 2 {
		t.Errorf("batch capacities = %d/%d, want per-species 1/2",
			maple.Capacity(), linden.Capacity())
	}
}

func TestUnknownSpeciesUsesDefaultVisual(t *testing.T) {
	if got := VisualFor("baobab"); got != defaultVisual {
		t.Errorf("unknown species visual = %+v, want default", got)
	}
	if got := VisualFor("pine"); got == defaultVisual {
		t.Error("known species must not fall back to default")
	}
}

func TestSetLODDistances(t *testing.T) {
	p, _ := newTestPipeline()
	defer p.Dispose()

	p.AddTrees([]Record{oak("t", 30, 0)})
	p.SetLODDistances(10, 40, 1000)
	p.Update(math.Vec3{})

	if got := p.GroupStats()["oak"].PerTier[TierMedium]; got != 1 {
		t.Errorf("medium-tier count = %d, want 1 after shrinking bands", got)
	}
}

func TestDisposeIdempotent(t *testing.T) {
	p, _ := newTestPipeline()
	p.AddTrees([]Record{oak("t", 0, 0)})
	p.Dispose()
	p.Dispose()

	if n := p.AddTrees([]Record{oak("u", 1, 1)}); n != 0 {
		t.Errorf("AddTrees after Dispose accepted %d records, want 0", n)
	}
}
