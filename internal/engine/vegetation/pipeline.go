// Package vegetation renders tree records as instanced meshes grouped by
// species, with three detail tiers re-bucketed by camera distance each
// frame.
package vegetation

import (
	"fmt"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/verdantcity/sunshade/internal/engine/events"
	"github.com/verdantcity/sunshade/internal/engine/object"
	"github.com/verdantcity/sunshade/internal/engine/scenegraph"
	"github.com/verdantcity/sunshade/pkg/math"
)

// Tier indexes detail levels from nearest to farthest.
type Tier int

const (
	TierHigh Tier = iota
	TierMedium
	TierLow
	tierCount
)

// Record is one tree in world coordinates. Height is in world units
// (meters at the projection origin); TrunkGirth and CanopyDiameter are
// optional refinements over the species constants.
type Record struct {
	ID             string
	Position       math.Vec3
	Height         float32
	TrunkGirth     float32
	CanopyDiameter float32
	Species        string
}

// Config carries LOD band distances and the working-set cap.
type Config struct {
	HighDistance   float32
	MediumDistance float32
	LowDistance    float32
	MaxTrees       int
}

// GroupStats reports instance counts per tier for one species group.
type GroupStats struct {
	Total   int
	PerTier [3]int
}

type tierMeshes struct {
	trunk  *object.InstancedMesh
	canopy *object.InstancedMesh
}

type group struct {
	species string
	records []Record
	tiers   [tierCount]tierMeshes
	stats   GroupStats
}

type geomKind int

const (
	kindTrunk geomKind = iota
	kindCanopy
)

// geomKey caches geometry by (kind, tier, radius); species with the same
// radii share the same base geometry.
type geomKey struct {
	kind     geomKind
	tier     Tier
	radiusCm int32
}

// Pipeline owns the vegetation scene group. AddTrees replaces the whole
// working set; Update re-buckets every record into exactly one tier.
type Pipeline struct {
	log   *zap.Logger
	bus   *events.Bus
	scene *scenegraph.Manager
	cfg   Config

	groups    map[string]*group
	geoCache  map[geomKey]*object.Geometry
	materials map[string][2]*object.Material

	disposed bool
}

// NewPipeline creates an empty vegetation pipeline writing into the
// scene graph's vegetation group.
func NewPipeline(scene *scenegraph.Manager, bus *events.Bus, log *zap.Logger, cfg Config) *Pipeline {
	return &Pipeline{
		log:       log,
		bus:       bus,
		scene:     scene,
		cfg:       cfg,
		groups:    make(map[string]*group),
		geoCache:  make(map[geomKey]*object.Geometry),
		materials: make(map[string][2]*object.Material),
	}
}

// AddTrees replaces the current working set. Records with non-positive
// height are skipped with a warning; the set is truncated at MaxTrees.
// Returns the number of accepted records.
func (p *Pipeline) AddTrees(records []Record) int {
	if p.disposed {
		return 0
	}
	p.clearGroups()

	if p.cfg.MaxTrees > 0 && len(records) > p.cfg.MaxTrees {
		p.log.Warn("tree set truncated",
			zap.Int("received", len(records)),
			zap.Int("max", p.cfg.MaxTrees))
		records = records[:p.cfg.MaxTrees]
	}

	accepted := 0
	for _, rec := range records {
		if rec.Height <= 0 {
			p.log.Warn("skipping tree with invalid height",
				zap.String("id", rec.ID),
				zap.Float32("height", rec.Height))
			continue
		}
		g := p.groups[rec.Species]
		if g == nil {
			g = &group{species: rec.Species}
			p.groups[rec.Species] = g
		}
		g.records = append(g.records, rec)
		accepted++
	}

	for _, g := range p.groups {
		p.buildGroup(g)
	}

	p.bus.Emit(events.TreesLoaded, accepted)
	return accepted
}

// buildGroup creates the six instanced meshes (three tiers, trunk and
// canopy each) for one species and registers them with the scene graph.
func (p *Pipeline) buildGroup(g *group) {
	vis := VisualFor(g.species)
	trunkMat, canopyMat := p.materialsFor(g.species, vis)
	capacity := len(g.records)

	center, radius := batchBounds(g.records, vis)

	meshes := make([]object.Renderable, 0, int(tierCount)*2)
	for tier := TierHigh; tier < tierCount; tier++ {
		trunkGeo := p.cachedGeometry(kindTrunk, tier, vis.TrunkRadius)
		canopyGeo := p.cachedGeometry(kindCanopy, tier, vis.CanopyRadius)
		trunkGeo.Retain()
		canopyGeo.Retain()
		canopyMat.Retain()
		trunkMat.Retain()

		trunk := object.NewInstancedMesh(
			fmt.Sprintf("trees:%s:t%d:trunk", g.species, tier), trunkGeo, trunkMat, capacity)
		canopy := object.NewInstancedMesh(
			fmt.Sprintf("trees:%s:t%d:canopy", g.species, tier), canopyGeo, canopyMat, capacity)
		trunk.CastShadow = true
		canopy.CastShadow = true
		trunk.SetBounds(center, radius)
		canopy.SetBounds(center, radius)

		g.tiers[tier] = tierMeshes{trunk: trunk, canopy: canopy}
		meshes = append(meshes, trunk, canopy)
	}

	if err := p.scene.AddMultipleToGroup(scenegraph.GroupVegetation, meshes); err != nil {
		p.log.Error("failed to register vegetation meshes",
			zap.String("species", g.species), zap.Error(err))
	}
}

func (p *Pipeline) materialsFor(species string, vis Visual) (trunk, canopy *object.Material) {
	if mats, ok := p.materials[species]; ok {
		return mats[0], mats[1]
	}
	trunk = object.NewMaterial(vis.TrunkColor[0], vis.TrunkColor[1], vis.TrunkColor[2])
	canopy = object.NewMaterial(vis.CanopyColor[0], vis.CanopyColor[1], vis.CanopyColor[2])
	p.materials[species] = [2]*object.Material{trunk, canopy}
	return trunk, canopy
}

// cachedGeometry returns the shared base geometry for a (kind, tier,
// radius) triple, building it on first use. The cache holds its own
// reference; callers Retain before handing the geometry to a mesh.
func (p *Pipeline) cachedGeometry(kind geomKind, tier Tier, radius float32) *object.Geometry {
	key := geomKey{kind: kind, tier: tier, radiusCm: int32(radius*100 + 0.5)}
	if g, ok := p.geoCache[key]; ok {
		return g
	}
	g := buildGeometry(kind, tier, radius)
	p.geoCache[key] = g
	return g
}

// buildGeometry creates unit-height base geometry. Trunks are cylinders
// one unit tall; canopies span two radii vertically so all tiers scale
// identically per instance.
func buildGeometry(kind geomKind, tier Tier, radius float32) *object.Geometry {
	if kind == kindTrunk {
		segments := [tierCount]int{10, 6, 4}[tier]
		return object.NewCylinderGeometry(radius, 1, segments)
	}
	switch tier {
	case TierHigh:
		return object.NewSphereGeometry(radius, 10, 7)
	case TierMedium:
		return object.NewSphereGeometry(radius, 6, 4)
	default:
		return object.NewConeGeometry(radius, 2*radius, 5)
	}
}

// batchBounds computes a conservative bounding sphere over a species'
// records for whole-batch culling.
func batchBounds(records []Record, vis Visual) (math.Vec3, float32) {
	if len(records) == 0 {
		return math.Vec3{}, 0
	}
	var center math.Vec3
	for _, r := range records {
		center = center.Add(r.Position)
	}
	center = center.Scale(1 / float32(len(records)))

	var radius, maxHeight float32
	for _, r := range records {
		if d := center.DistanceXZ(r.Position); d > radius {
			radius = d
		}
		if h := r.Height * vis.HeightMultiplier; h > maxHeight {
			maxHeight = h
		}
	}
	return center, radius + maxHeight + vis.CanopyRadius
}

// Update re-buckets every record into its distance tier and rebuilds the
// per-tier instance transforms. Records beyond LowDistance are not
// rendered at all.
func (p *Pipeline) Update(cameraPos math.Vec3) {
	if p.disposed {
		return
	}
	for _, g := range p.groups {
		vis := VisualFor(g.species)
		g.stats = GroupStats{}
		for t := TierHigh; t < tierCount; t++ {
			g.tiers[t].trunk.Reset()
			g.tiers[t].canopy.Reset()
		}
		for _, rec := range g.records {
			tier, ok := p.tierFor(cameraPos.DistanceXZ(rec.Position))
			if !ok {
				continue
			}
			trunkT, canopyT := instanceTransforms(rec, vis)
			g.tiers[tier].trunk.Append(trunkT)
			g.tiers[tier].canopy.Append(canopyT)
			g.stats.PerTier[tier]++
			g.stats.Total++
		}
	}
}

func (p *Pipeline) tierFor(distance float32) (Tier, bool) {
	switch {
	case distance < p.cfg.HighDistance:
		return TierHigh, true
	case distance < p.cfg.MediumDistance:
		return TierMedium, true
	case distance < p.cfg.LowDistance:
		return TierLow, true
	default:
		return 0, false
	}
}

// instanceTransforms derives the trunk and canopy transforms for one
// record. The trunk fills the lower 60% of the tree height; the canopy
// fills the rest, overlapping the trunk top slightly.
func instanceTransforms(rec Record, vis Visual) (trunk, canopy math.Mat4) {
	total := rec.Height * vis.HeightMultiplier
	trunkH := total * 0.6
	canopyH := total - trunkH

	trunkXZ := float32(1)
	if rec.TrunkGirth > 0 {
		trunkXZ = rec.TrunkGirth / (2 * math32.Pi) / vis.TrunkRadius
	}
	trunk = math.Compose(rec.Position, 0, math.Vec3{X: trunkXZ, Y: trunkH, Z: trunkXZ})

	canopyXZ := float32(1)
	if rec.CanopyDiameter > 0 {
		canopyXZ = rec.CanopyDiameter / (2 * vis.CanopyRadius)
	}
	canopyY := canopyH / (2 * vis.CanopyRadius)
	base := rec.Position.Add(math.Vec3{Y: trunkH * 0.85})
	canopy = math.Compose(base, 0, math.Vec3{X: canopyXZ, Y: canopyY, Z: canopyXZ})
	return trunk, canopy
}

// SetLODDistances replaces the tier band boundaries. Takes effect on the
// next Update.
func (p *Pipeline) SetLODDistances(high, medium, low float32) {
	p.cfg.HighDistance = high
	p.cfg.MediumDistance = medium
	p.cfg.LowDistance = low
}

// GroupStats returns per-species instance counts from the last Update.
func (p *Pipeline) GroupStats() map[string]GroupStats {
	out := make(map[string]GroupStats, len(p.groups))
	for species, g := range p.groups {
		out[species] = g.stats
	}
	return out
}

// Count returns the number of records in the working set.
func (p *Pipeline) Count() int {
	n := 0
	for _, g := range p.groups {
		n += len(g.records)
	}
	return n
}

// Renderables returns all instanced meshes for culling registration.
func (p *Pipeline) Renderables() []object.Renderable {
	return p.scene.GetGroupObjects(scenegraph.GroupVegetation)
}

// clearGroups drops the working set and disposes the scene graph's
// vegetation group. Cached geometry survives through its own reference.
func (p *Pipeline) clearGroups() {
	p.scene.ClearGroup(scenegraph.GroupVegetation)
	for _, mats := range p.materials {
		mats[0].Dispose()
		mats[1].Dispose()
	}
	p.groups = make(map[string]*group)
	p.materials = make(map[string][2]*object.Material)
}

// Clear empties the working set without disposing the shared caches.
func (p *Pipeline) Clear() {
	if p.disposed {
		return
	}
	p.clearGroups()
}

// Dispose releases the working set and the geometry cache. Safe to call
// more than once.
func (p *Pipeline) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.clearGroups()
	for _, g := range p.geoCache {
		g.Dispose()
	}
	p.geoCache = nil
}
