// Package buildings extrudes polygon footprints into shadow-casting
// volumes. Geometry is cached by footprint shape and height; materials
// are picked by a type/height classification heuristic.
package buildings

import (
	"go.uber.org/zap"

	"github.com/verdantcity/sunshade/internal/engine/events"
	"github.com/verdantcity/sunshade/internal/engine/object"
	"github.com/verdantcity/sunshade/internal/engine/scenegraph"
	"github.com/verdantcity/sunshade/pkg/math"
)

// Record is one building footprint in world coordinates. The ring is
// closed implicitly; an explicit closing vertex is tolerated.
type Record struct {
	ID        string
	Footprint []math.Vec2
	Height    float32
	Type      string
}

// Config carries the working-set cap and the binary visibility cutoff.
type Config struct {
	MaxBuildings int
	MaxDistance  float32
	ShadowOnly   bool
}

// shadowOnlyOpacity keeps buildings in the shadow pass while leaving the
// host map's own building rendering visible underneath.
const shadowOnlyOpacity = 0.05

// Pipeline owns the buildings scene group. AddBuildings replaces the
// whole working set; Update applies a single distance cutoff per mesh.
type Pipeline struct {
	log   *zap.Logger
	bus   *events.Bus
	scene *scenegraph.Manager
	cfg   Config

	meshes    []*object.Mesh
	geoCache  map[uint64]*object.Geometry
	materials map[Category]*object.Material

	disposed bool
}

// NewPipeline creates an empty building pipeline writing into the scene
// graph's buildings group.
func NewPipeline(scene *scenegraph.Manager, bus *events.Bus, log *zap.Logger, cfg Config) *Pipeline {
	return &Pipeline{
		log:       log,
		bus:       bus,
		scene:     scene,
		cfg:       cfg,
		geoCache:  make(map[uint64]*object.Geometry),
		materials: make(map[Category]*object.Material),
	}
}

// AddBuildings replaces the current working set. Rings with fewer than 3
// usable vertices are skipped with a warning, never fatal; the set is
// truncated at MaxBuildings. Returns the number of accepted records.
func (p *Pipeline) AddBuildings(records []Record) int {
	if p.disposed {
		return 0
	}
	p.clearMeshes()

	if p.cfg.MaxBuildings > 0 && len(records) > p.cfg.MaxBuildings {
		p.log.Warn("building set truncated",
			zap.Int("received", len(records)),
			zap.Int("max", p.cfg.MaxBuildings))
		records = records[:p.cfg.MaxBuildings]
	}

	accepted := 0
	for _, rec := range records {
		mesh := p.buildMesh(rec)
		if mesh == nil {
			continue
		}
		if err := p.scene.AddToGroup(scenegraph.GroupBuildings, mesh); err != nil {
			p.log.Error("failed to register building mesh",
				zap.String("id", rec.ID), zap.Error(err))
			mesh.Dispose()
			continue
		}
		p.meshes = append(p.meshes, mesh)
		accepted++
	}

	p.bus.Emit(events.BuildingsLoaded, accepted)
	return accepted
}

// buildMesh validates one record and produces its extruded mesh, or nil
// when the record is unusable.
func (p *Pipeline) buildMesh(rec Record) *object.Mesh {
	ring := sanitizeRing(rec.Footprint)
	if ring == nil {
		p.log.Warn("skipping building with degenerate footprint",
			zap.String("id", rec.ID),
			zap.Int("vertices", len(rec.Footprint)))
		return nil
	}
	height := rec.Height
	if height <= 0 {
		p.log.Warn("skipping building with invalid height",
			zap.String("id", rec.ID),
			zap.Float32("height", rec.Height))
		return nil
	}

	anchor := centroid(ring)
	local := make([]math.Vec2, len(ring))
	for i, v := range ring {
		local[i] = v.Sub(anchor)
	}

	geo := p.cachedGeometry(local, height)
	geo.Retain()
	mat := p.materialFor(classify(rec.Type, height))
	mat.Retain()

	mesh := object.NewMesh(rec.ID, geo, mat)
	mesh.CastShadow = true
	mesh.ReceiveShadow = true
	mesh.SetPosition(math.Vec3{X: anchor.X, Z: anchor.Y})
	mesh.Radius = boundingRadius(local, height)
	return mesh
}

// cachedGeometry returns the shared extrusion for a footprint shape,
// building it on first use. The cache holds its own reference.
func (p *Pipeline) cachedGeometry(local []math.Vec2, height float32) *object.Geometry {
	key := footprintKey(local, height)
	if g, ok := p.geoCache[key]; ok {
		return g
	}
	g := extrudeFootprint(local, height)
	p.geoCache[key] = g
	return g
}

func (p *Pipeline) materialFor(cat Category) *object.Material {
	if m, ok := p.materials[cat]; ok {
		return m
	}
	c := categoryColors[cat]
	m := object.NewMaterial(c[0], c[1], c[2])
	if p.cfg.ShadowOnly {
		m.Opacity = shadowOnlyOpacity
	}
	p.materials[cat] = m
	return m
}

// Update applies the binary distance cutoff: a building is either fully
// visible or hidden, never tiered.
func (p *Pipeline) Update(cameraPos math.Vec3) {
	if p.disposed {
		return
	}
	for _, m := range p.meshes {
		d := cameraPos.DistanceXZ(m.Position)
		m.SetVisible(p.cfg.MaxDistance <= 0 || d <= p.cfg.MaxDistance)
	}
}

// SetShadowOnly toggles near-zero opacity on every building material so
// only their shadows remain prominent.
func (p *Pipeline) SetShadowOnly(on bool) {
	p.cfg.ShadowOnly = on
	for _, m := range p.materials {
		if on {
			m.Opacity = shadowOnlyOpacity
		} else {
			m.Opacity = 1
		}
	}
}

// SetMaxDistance replaces the visibility cutoff. Takes effect on the
// next Update.
func (p *Pipeline) SetMaxDistance(d float32) { p.cfg.MaxDistance = d }

// Count returns the number of buildings in the working set.
func (p *Pipeline) Count() int { return len(p.meshes) }

// Renderables returns the building meshes for culling registration.
func (p *Pipeline) Renderables() []object.Renderable {
	return p.scene.GetGroupObjects(scenegraph.GroupBuildings)
}

func (p *Pipeline) clearMeshes() {
	p.scene.ClearGroup(scenegraph.GroupBuildings)
	for _, m := range p.materials {
		m.Dispose()
	}
	p.meshes = nil
	p.materials = make(map[Category]*object.Material)
}

// Clear empties the working set without dropping the geometry cache.
func (p *Pipeline) Clear() {
	if p.disposed {
		return
	}
	p.clearMeshes()
}

// Dispose releases the working set and the geometry cache. Safe to call
// more than once.
func (p *Pipeline) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.clearMeshes()
	for _, g := range p.geoCache {
		g.Dispose()
	}
	p.geoCache = nil
}
