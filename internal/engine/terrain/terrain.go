// Package terrain manages the shadow-receiving ground: one large
// camera-following plane, plus optional elevation tiles sampled from a
// height grid.
package terrain

import (
	"fmt"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/verdantcity/sunshade/internal/engine/events"
	"github.com/verdantcity/sunshade/internal/engine/object"
	"github.com/verdantcity/sunshade/internal/engine/scenegraph"
	"github.com/verdantcity/sunshade/pkg/math"
)

// Config sizes the ground plane and elevation tiles.
type Config struct {
	// PlaneSize is the ground plane edge length in world units.
	PlaneSize float32
	// SnapGrid is the coarse grid step the plane snaps to while
	// following the camera.
	SnapGrid float32
	// TileSize is the edge length of one elevation tile.
	TileSize float32
	// TileSegments is the vertex grid resolution per tile edge.
	TileSegments int
	// MaxTileDistance hides (not destroys) tiles farther from the camera.
	MaxTileDistance float32
}

// DefaultConfig returns the sizes used by the engine when the host does
// not override them.
func DefaultConfig() Config {
	return Config{
		PlaneSize:       4000,
		SnapGrid:        100,
		TileSize:        500,
		TileSegments:    32,
		MaxTileDistance: 1500,
	}
}

// ElevationGrid is a row-major height field anchored at a world XZ
// origin corner.
type ElevationGrid struct {
	Origin   math.Vec2
	CellSize float32
	Cols     int
	Rows     int
	Heights  []float32
}

// HeightAt samples the grid bilinearly at a world position, clamping to
// the grid edge.
func (g *ElevationGrid) HeightAt(x, z float32) float32 {
	fx := (x - g.Origin.X) / g.CellSize
	fz := (z - g.Origin.Y) / g.CellSize
	fx = math32.Max(0, math32.Min(fx, float32(g.Cols-1)))
	fz = math32.Max(0, math32.Min(fz, float32(g.Rows-1)))

	x0, z0 := int(fx), int(fz)
	x1, z1 := x0+1, z0+1
	if x1 > g.Cols-1 {
		x1 = g.Cols - 1
	}
	if z1 > g.Rows-1 {
		z1 = g.Rows - 1
	}
	tx, tz := fx-float32(x0), fz-float32(z0)

	h00 := g.Heights[z0*g.Cols+x0]
	h10 := g.Heights[z0*g.Cols+x1]
	h01 := g.Heights[z1*g.Cols+x0]
	h11 := g.Heights[z1*g.Cols+x1]

	top := h00 + (h10-h00)*tx
	bot := h01 + (h11-h01)*tx
	return top + (bot-top)*tz
}

type tile struct {
	mesh   *object.Mesh
	center math.Vec3
}

// Pipeline owns the terrain scene group: the camera-following ground
// plane and any loaded elevation tiles.
type Pipeline struct {
	log   *zap.Logger
	bus   *events.Bus
	scene *scenegraph.Manager
	cfg   Config

	ground *object.Mesh
	tiles  []*tile

	disposed bool
}

// NewPipeline creates the ground plane and registers it with the scene
// graph's terrain group.
func NewPipeline(scene *scenegraph.Manager, bus *events.Bus, log *zap.Logger, cfg Config) *Pipeline {
	p := &Pipeline{log: log, bus: bus, scene: scene, cfg: cfg}

	geo := object.NewPlaneGeometry(cfg.PlaneSize, cfg.PlaneSize, 1, 1, nil)
	mat := object.NewMaterial(0.42, 0.46, 0.4)
	p.ground = object.NewMesh("terrain:ground", geo, mat)
	p.ground.ReceiveShadow = true
	p.ground.Radius = cfg.PlaneSize * math32.Sqrt2 / 2

	if err := scene.AddToGroup(scenegraph.GroupTerrain, p.ground); err != nil {
		log.Error("failed to register ground plane", zap.Error(err))
	}
	return p
}

// UpdateGroundPosition snaps the ground plane to the coarse grid step
// nearest the camera. Snapping keeps the plane apparently infinite
// without moving it every frame, which would jitter shadow texels.
func (p *Pipeline) UpdateGroundPosition(cameraPos math.Vec3) {
	if p.disposed {
		return
	}
	snapped := math.Vec3{
		X: math32.Floor(cameraPos.X/p.cfg.SnapGrid+0.5) * p.cfg.SnapGrid,
		Z: math32.Floor(cameraPos.Z/p.cfg.SnapGrid+0.5) * p.cfg.SnapGrid,
	}
	if snapped != p.ground.Position {
		p.ground.SetPosition(snapped)
	}
}

// TileSpec is one planned elevation tile: a ground-center anchor and a
// CPU-side geometry builder safe to run off the render goroutine.
type TileSpec struct {
	Center math.Vec3
	Build  func() (*object.Geometry, error)
}

// PlanTiles splits the grid extent into tile builders. It does not
// touch the scene; callers run the builders (possibly on the geometry
// worker) and hand results back through InstallTile.
func (p *Pipeline) PlanTiles(grid *ElevationGrid) ([]TileSpec, error) {
	if grid.Cols < 2 || grid.Rows < 2 || len(grid.Heights) != grid.Cols*grid.Rows {
		return nil, fmt.Errorf("elevation grid %dx%d with %d samples is malformed",
			grid.Cols, grid.Rows, len(grid.Heights))
	}

	width := float32(grid.Cols-1) * grid.CellSize
	depth := float32(grid.Rows-1) * grid.CellSize
	tilesX := int(math32.Ceil(width / p.cfg.TileSize))
	tilesZ := int(math32.Ceil(depth / p.cfg.TileSize))
	segs := p.cfg.TileSegments

	var specs []TileSpec
	for tz := 0; tz < tilesZ; tz++ {
		for tx := 0; tx < tilesX; tx++ {
			center := math.Vec3{
				X: grid.Origin.X + (float32(tx)+0.5)*p.cfg.TileSize,
				Z: grid.Origin.Y + (float32(tz)+0.5)*p.cfg.TileSize,
			}
			specs = append(specs, TileSpec{
				Center: center,
				Build: func() (*object.Geometry, error) {
					return object.NewPlaneGeometry(p.cfg.TileSize, p.cfg.TileSize, segs, segs,
						func(ix, iz int) float32 {
							wx := center.X + (float32(ix)/float32(segs)-0.5)*p.cfg.TileSize
							wz := center.Z + (float32(iz)/float32(segs)-0.5)*p.cfg.TileSize
							return grid.HeightAt(wx, wz)
						}), nil
				},
			})
		}
	}
	return specs, nil
}

// InstallTile registers one built elevation tile. The pipeline takes
// ownership of the geometry reference.
func (p *Pipeline) InstallTile(center math.Vec3, geo *object.Geometry) error {
	if p.disposed {
		geo.Dispose()
		return nil
	}
	mesh := object.NewMesh(
		fmt.Sprintf("terrain:tile:%d:%d", int(center.X), int(center.Z)),
		geo, object.NewMaterial(0.45, 0.48, 0.42))
	mesh.ReceiveShadow = true
	mesh.SetPosition(center)
	mesh.Radius = p.cfg.TileSize * math32.Sqrt2 / 2

	if err := p.scene.AddToGroup(scenegraph.GroupTerrain, mesh); err != nil {
		mesh.Dispose()
		return err
	}
	p.tiles = append(p.tiles, &tile{mesh: mesh, center: center})
	return nil
}

// LoadElevationGrid replaces any existing elevation tiles synchronously,
// building every tile on the calling goroutine.
func (p *Pipeline) LoadElevationGrid(grid *ElevationGrid) error {
	if p.disposed {
		return nil
	}
	specs, err := p.PlanTiles(grid)
	if err != nil {
		return err
	}
	p.clearTiles()

	for _, spec := range specs {
		geo, err := spec.Build()
		if err != nil {
			return err
		}
		if err := p.InstallTile(spec.Center, geo); err != nil {
			return err
		}
	}

	p.log.Info("elevation tiles built", zap.Int("tiles", len(p.tiles)))
	p.bus.Emit(events.TerrainLoaded, len(p.tiles))
	return nil
}

// ClearTiles removes and disposes all elevation tiles, keeping the
// ground plane. Used before an asynchronous reload installs new tiles.
func (p *Pipeline) ClearTiles() {
	if p.disposed {
		return
	}
	p.clearTiles()
}

// Update hides tiles beyond the maximum tile distance. Hidden tiles keep
// their geometry and reappear when the camera returns.
func (p *Pipeline) Update(cameraPos math.Vec3) {
	if p.disposed {
		return
	}
	for _, t := range p.tiles {
		d := cameraPos.DistanceXZ(t.center)
		t.mesh.SetVisible(p.cfg.MaxTileDistance <= 0 || d <= p.cfg.MaxTileDistance)
	}
}

// Ground returns the camera-following plane mesh.
func (p *Pipeline) Ground() *object.Mesh { return p.ground }

// TileCount returns the number of loaded elevation tiles.
func (p *Pipeline) TileCount() int { return len(p.tiles) }

func (p *Pipeline) clearTiles() {
	for _, t := range p.tiles {
		p.scene.RemoveFromGroup(scenegraph.GroupTerrain, t.mesh)
		t.mesh.Dispose()
	}
	p.tiles = nil
}

// Dispose releases the ground plane and all tiles. Safe to call more
// than once.
func (p *Pipeline) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.clearTiles()
	p.scene.RemoveFromGroup(scenegraph.GroupTerrain, p.ground)
	p.ground.Dispose()
}
