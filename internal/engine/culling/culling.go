// Package culling decides per-object visibility each frame using a
// uniform spatial grid, view-frustum tests, and a distance cutoff.
package culling

import (
	"time"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/verdantcity/sunshade/internal/engine/object"
	"github.com/verdantcity/sunshade/internal/engine/pool"
	"github.com/verdantcity/sunshade/internal/logger"
	"github.com/verdantcity/sunshade/pkg/math"
)

// Vertical extent assumed for grid cells. Content sits between the
// ground plane and the tallest buildings.
const (
	cellMinY float32 = -100
	cellMaxY float32 = 1000
)

// Config controls the pipeline. CellSize and MaxDistance are in world
// units.
type Config struct {
	Enabled        bool
	CellSize       float32
	MaxDistance    float32
	FrustumPadding float32
}

// Stats is recomputed from scratch on every Update — never accumulated.
type Stats struct {
	Total           int
	Visible         int
	FrustumCulled   int
	DistanceCulled  int
	OcclusionCulled int
	Duration        time.Duration
}

type cellKey struct {
	X, Z int32
}

// Cell is one fixed-size spatial bucket. Every tracked object belongs to
// exactly one cell, chosen by its position. Cells churn as objects move
// between buckets, so they are recycled through a pool; unpooled cells
// come from direct allocation after pool exhaustion.
type Cell struct {
	Min, Max math.Vec3
	Members  []object.Renderable

	pooled bool
}

// cellPoolMax bounds the recycled cell population. A city-scale working
// set at the default 100m cell size stays far below this.
const cellPoolMax = 4096

// OcclusionTest reports whether an object survives occlusion. The
// default is nil: the test is stubbed off and everything passes.
type OcclusionTest func(r object.Renderable, cameraPos math.Vec3) bool

// Pipeline assigns objects to grid cells and runs the per-frame
// visibility pass.
type Pipeline struct {
	log       *zap.Logger
	cfg       Config
	cells     map[cellKey]*Cell
	cellPool  *pool.ObjectPool[*Cell]
	residency map[object.Renderable]cellKey
	occlusion OcclusionTest
	stats     Stats
}

// NewPipeline creates an empty culling pipeline.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.CellSize <= 0 {
		cfg.CellSize = 100
	}
	log := logger.Named("culling")
	return &Pipeline{
		log: log,
		cfg: cfg,
		cellPool: pool.New(log, pool.Options[*Cell]{
			New:        func() *Cell { return &Cell{pooled: true} },
			Reset:      func(c *Cell) { c.Members = c.Members[:0] },
			Initial:    64,
			Max:        cellPoolMax,
			AutoExpand: true,
		}),
		cells:     make(map[cellKey]*Cell),
		residency: make(map[object.Renderable]cellKey),
	}
}

// SetConfig replaces the pipeline configuration. Cell assignment is kept;
// only test parameters change.
func (p *Pipeline) SetConfig(cfg Config) {
	if cfg.CellSize <= 0 {
		cfg.CellSize = p.cfg.CellSize
	}
	p.cfg = cfg
}

// SetOcclusionTest installs an occlusion test. Passing nil restores the
// default pass-through stub.
func (p *Pipeline) SetOcclusionTest(t OcclusionTest) {
	p.occlusion = t
}

func (p *Pipeline) keyFor(pos math.Vec3) cellKey {
	return cellKey{
		X: int32(math32.Floor(pos.X / p.cfg.CellSize)),
		Z: int32(math32.Floor(pos.Z / p.cfg.CellSize)),
	}
}

// Add tracks an object, assigning it to the cell covering its position.
// Re-adding moves it if its position changed cells.
func (p *Pipeline) Add(r object.Renderable) {
	key := p.keyFor(r.WorldPosition())
	if prev, ok := p.residency[r]; ok {
		if prev == key {
			return
		}
		p.remove(r, prev)
	}

	c, ok := p.cells[key]
	if !ok {
		c, ok = p.cellPool.Acquire()
		if !ok {
			c = &Cell{}
		}
		s := p.cfg.CellSize
		c.Min = math.Vec3{X: float32(key.X) * s, Y: cellMinY, Z: float32(key.Z) * s}
		c.Max = math.Vec3{X: float32(key.X+1) * s, Y: cellMaxY, Z: float32(key.Z+1) * s}
		p.cells[key] = c
	}
	c.Members = append(c.Members, r)
	p.residency[r] = key
}

// AddAll tracks a batch of objects.
func (p *Pipeline) AddAll(rs []object.Renderable) {
	for _, r := range rs {
		p.Add(r)
	}
}

// Remove stops tracking an object.
func (p *Pipeline) Remove(r object.Renderable) {
	if key, ok := p.residency[r]; ok {
		p.remove(r, key)
	}
}

func (p *Pipeline) remove(r object.Renderable, key cellKey) {
	delete(p.residency, r)
	c := p.cells[key]
	if c == nil {
		return
	}
	for i, m := range c.Members {
		if m == r {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			break
		}
	}
	if len(c.Members) == 0 {
		delete(p.cells, key)
		if c.pooled {
			p.cellPool.Release(c)
		}
	}
}

// Clear drops all tracked objects and returns emptied cells to the pool.
func (p *Pipeline) Clear() {
	for key, c := range p.cells {
		delete(p.cells, key)
		if c.pooled {
			p.cellPool.Release(c)
		}
	}
	p.residency = make(map[object.Renderable]cellKey)
}

// Update runs the visibility pass for one frame. For each object in a
// frustum-intersecting cell it applies, in order: distance cutoff,
// frustum sphere test (with the configured padding margin), then the
// occlusion test. An object is visible only if every enabled test
// passes. Objects in cells outside the frustum are hidden wholesale.
func (p *Pipeline) Update(cameraPos math.Vec3, frustum math.Frustum) Stats {
	start := time.Now()
	stats := Stats{Total: len(p.residency)}

	if !p.cfg.Enabled {
		for r := range p.residency {
			r.SetVisible(true)
		}
		stats.Visible = stats.Total
		stats.Duration = time.Since(start)
		p.stats = stats
		return stats
	}

	for _, c := range p.cells {
		if !frustum.IntersectsAABB(c.Min, c.Max, p.cfg.FrustumPadding) {
			for _, r := range c.Members {
				r.SetVisible(false)
				stats.FrustumCulled++
			}
			continue
		}

		for _, r := range c.Members {
			pos := r.WorldPosition()

			if p.cfg.MaxDistance > 0 && pos.Distance(cameraPos) > p.cfg.MaxDistance {
				r.SetVisible(false)
				stats.DistanceCulled++
				continue
			}

			if !frustum.ContainsSphere(pos, r.BoundingRadius(), p.cfg.FrustumPadding) {
				r.SetVisible(false)
				stats.FrustumCulled++
				continue
			}

			if p.occlusion != nil && !p.occlusion(r, cameraPos) {
				r.SetVisible(false)
				stats.OcclusionCulled++
				continue
			}

			r.SetVisible(true)
			stats.Visible++
		}
	}

	stats.Duration = time.Since(start)
	p.stats = stats
	return stats
}

// CellPoolStats returns the cell recycling counters.
func (p *Pipeline) CellPoolStats() pool.Stats {
	return p.cellPool.Stats()
}

// Stats returns the result of the most recent Update.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// CellCount returns the number of occupied grid cells.
func (p *Pipeline) CellCount() int {
	return len(p.cells)
}
