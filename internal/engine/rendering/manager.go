// Package rendering is the overlay's root orchestrator. One Manager owns
// the renderer backend, scene graph, camera, lighting, pipelines and the
// optimization layer, and drives the initialize → per-frame render →
// dispose lifecycle from the host map's repaint callback.
package rendering

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/verdantcity/sunshade/internal/config"
	"github.com/verdantcity/sunshade/internal/engine/adaptive"
	"github.com/verdantcity/sunshade/internal/engine/buildings"
	"github.com/verdantcity/sunshade/internal/engine/camera"
	"github.com/verdantcity/sunshade/internal/engine/culling"
	"github.com/verdantcity/sunshade/internal/engine/events"
	"github.com/verdantcity/sunshade/internal/engine/geomworker"
	"github.com/verdantcity/sunshade/internal/engine/lighting"
	"github.com/verdantcity/sunshade/internal/engine/perf"
	"github.com/verdantcity/sunshade/internal/engine/renderer"
	"github.com/verdantcity/sunshade/internal/engine/scenegraph"
	"github.com/verdantcity/sunshade/internal/engine/terrain"
	"github.com/verdantcity/sunshade/internal/engine/vegetation"
	"github.com/verdantcity/sunshade/internal/geo"
	"github.com/verdantcity/sunshade/pkg/math"
)

// State is the manager lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrDisposed is returned when a disposed manager is asked to
// initialize; a new instance is required.
var ErrDisposed = errors.New("rendering manager disposed")

// Backend abstracts the GL renderer so the orchestration layer is
// testable without a GL context.
type Backend interface {
	Initialize(shadowResolution int32) error
	ShadowTarget() lighting.ShadowTarget
	Render(scene *scenegraph.Manager, in renderer.FrameInput) perf.FrameStats
	Dispose()
}

type glBackend struct {
	*renderer.Renderer
}

func (b glBackend) ShadowTarget() lighting.ShadowTarget { return b.ShadowMap() }

// NewGLBackend wraps the OpenGL renderer as a Backend.
func NewGLBackend(log *zap.Logger) Backend {
	return glBackend{renderer.New(log)}
}

// TreeRecord is one vegetation record as ingested from the host's data
// service, in geographic coordinates.
type TreeRecord struct {
	ID             string
	Lon, Lat       float64
	Height         float32
	TrunkGirth     float32
	CanopyDiameter float32
	Species        string
}

// BuildingRecord is one building as ingested from the host map's vector
// tiles: a lon/lat polygon ring, closed implicitly.
type BuildingRecord struct {
	ID     string
	Ring   []orb.Point
	Height float32
	Type   string
}

type pendingTile struct {
	center math.Vec3
	future *geomworker.Future
}

// Manager is the single owned orchestrator instance. Not safe for
// concurrent use; the host drives it from one goroutine.
type Manager struct {
	log       *zap.Logger
	bus       *events.Bus
	cfg       config.Config
	projector geo.Projector
	backend   Backend

	state State

	scene   *scenegraph.Manager
	cam     *camera.Overlay
	lights  *lighting.Manager
	monitor *perf.Monitor
	cull    *culling.Pipeline
	ground  *terrain.Pipeline
	builds  *buildings.Pipeline
	trees   *vegetation.Pipeline
	adapt   *adaptive.Manager
	worker  *geomworker.Worker

	pendingTiles []pendingTile

	queuedConfig []config.Partial
	queuedSun    []lighting.SunUpdate

	repaint func()
}

// NewManager creates an uninitialized manager anchored at the given
// geographic origin. The backend is not touched until Initialize.
func NewManager(log *zap.Logger, originLon, originLat float64, cfg config.Config, backend Backend) *Manager {
	return &Manager{
		log:       log,
		bus:       events.NewBus(),
		cfg:       cfg,
		projector: geo.NewProjector(originLon, originLat),
		backend:   backend,
		state:     StateUninitialized,
	}
}

// Events returns the manager's event bus for subscribers.
func (m *Manager) Events() *events.Bus { return m.bus }

// State returns the current lifecycle state.
func (m *Manager) State() State { return m.state }

// Config returns the current effective configuration value.
func (m *Manager) Config() config.Config { return m.cfg }

// SetRepaintFunc wires the host's repaint request; called at the end of
// every rendered frame so the host keeps redrawing continuously.
func (m *Manager) SetRepaintFunc(fn func()) { m.repaint = fn }

// Initialize builds the renderer, scene graph, sub-managers and
// pipelines in dependency order, then applies queued config and sun
// updates. A second call while Ready is a warn no-op; a failed call
// returns the manager to Uninitialized, retryable.
func (m *Manager) Initialize() error {
	switch m.state {
	case StateReady, StateInitializing:
		m.log.Warn("initialize called twice", zap.Stringer("state", m.state))
		return nil
	case StateDisposed:
		return ErrDisposed
	}
	m.state = StateInitializing

	quality, err := lighting.ParseQuality(m.cfg.Shadows.Quality)
	if err != nil {
		quality = lighting.QualityHigh
		m.log.Warn("invalid shadow quality, using high", zap.Error(err))
	}

	if err := m.backend.Initialize(quality.Resolution()); err != nil {
		m.state = StateUninitialized
		m.bus.Emit(events.Error, err)
		return fmt.Errorf("initialize backend: %w", err)
	}

	m.scene = scenegraph.NewManager()
	m.cam = camera.New()

	m.lights = lighting.NewManager(m.cfg.Lighting.AmbientIntensity, m.cfg.Lighting.SunIntensity)
	m.lights.ConfigureShadows(quality)
	m.lights.AttachShadowTarget(m.backend.ShadowTarget())
	m.lights.UpdateSun(lighting.SunUpdate{CastShadow: &m.cfg.Shadows.Enabled})

	m.monitor = perf.NewMonitor(m.bus, m.cfg.Perf.SampleInterval, perf.Thresholds{
		LowFPS:        m.cfg.Perf.LowFPSWarning,
		HighFrameTime: m.cfg.Perf.FrameTimeWarning,
		HighHeapMB:    m.cfg.Perf.HeapWarningMB,
	})

	m.cull = culling.NewPipeline(culling.Config{
		Enabled:        m.cfg.Culling.Enabled,
		CellSize:       m.cfg.Culling.CellSize,
		MaxDistance:    m.cfg.Culling.MaxDistance,
		FrustumPadding: m.cfg.Culling.FrustumPadding,
	})

	m.ground = terrain.NewPipeline(m.scene, m.bus, m.log.Named("terrain"), terrain.DefaultConfig())
	m.builds = buildings.NewPipeline(m.scene, m.bus, m.log.Named("buildings"), buildings.Config{
		MaxBuildings: m.cfg.Limits.MaxBuildings,
		MaxDistance:  m.cfg.Culling.MaxDistance,
	})
	m.trees = vegetation.NewPipeline(m.scene, m.bus, m.log.Named("vegetation"), vegetation.Config{
		HighDistance:   m.cfg.LOD.HighDistance,
		MediumDistance: m.cfg.LOD.MediumDistance,
		LowDistance:    m.cfg.LOD.LowDistance,
		MaxTrees:       m.cfg.Limits.MaxTrees,
	})

	strategy := adaptive.DefaultStrategy()
	strategy.TargetFPS = float32(m.cfg.LOD.TargetFPS)
	strategy.MinFPS = float32(m.cfg.LOD.MinFPS)
	m.adapt = adaptive.NewManager(m.log.Named("adaptive"), strategy, adaptive.Distances{
		High:   m.cfg.LOD.HighDistance,
		Medium: m.cfg.LOD.MediumDistance,
		Low:    m.cfg.LOD.LowDistance,
	}, quality)
	m.adapt.SetCallbacks(
		func(d adaptive.Distances) { m.trees.SetLODDistances(d.High, d.Medium, d.Low) },
		func(q lighting.Quality) { m.lights.UpdateShadowQuality(q) },
	)

	m.worker = geomworker.New(m.log.Named("geomworker"), 32)

	for _, p := range m.queuedConfig {
		m.applyConfig(p)
	}
	m.queuedConfig = nil
	for _, u := range m.queuedSun {
		m.lights.UpdateSun(u)
	}
	m.queuedSun = nil

	m.state = StateReady
	m.log.Info("overlay initialized",
		zap.String("shadowQuality", string(m.lights.Quality())))
	m.bus.Emit(events.Initialized, nil)
	return nil
}

// Render draws one frame from the host's camera matrix. No-op unless
// Ready. A panic during the frame is recovered, logged and emitted as an
// error event; only that frame is lost.
func (m *Manager) Render(cameraMatrix [16]float32) {
	if m.state != StateReady {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("frame aborted: %v", r)
			m.log.Error("panic during frame", zap.Any("panic", r))
			m.bus.Emit(events.Error, err)
		}
	}()

	// The camera position must be re-derived from the host matrix every
	// frame; it is never cached across frames.
	m.cam.SetViewProjection(cameraMatrix)
	camPos := m.cam.Position()

	m.drainTiles()

	m.ground.UpdateGroundPosition(camPos)
	m.ground.Update(camPos)
	m.builds.Update(camPos)
	m.trees.Update(camPos)
	m.cull.Update(camPos, m.cam.Frustum())

	sun := m.lights.Sun()
	stats := m.backend.Render(m.scene, renderer.FrameInput{
		ViewProjection:    m.cam.ViewProjection(),
		SunViewProjection: m.lights.SunViewProjection(),
		SunDirection:      m.lights.SunDirection(),
		SunColor:          sun.Color,
		SunIntensity:      sun.Intensity,
		Ambient:           m.lights.Ambient(),
		ShadowsEnabled:    m.lights.ShadowsEnabled(),
	})

	if m.monitor.Tick(stats) && m.cfg.LOD.Adaptive {
		if sample, ok := m.monitor.LastSample(); ok {
			m.adapt.Observe(float32(sample.FPS))
		}
	}

	if m.repaint != nil {
		m.repaint()
	}
}

// drainTiles installs elevation tiles whose background builds finished,
// without ever blocking the frame.
func (m *Manager) drainTiles() {
	if len(m.pendingTiles) == 0 {
		return
	}
	remaining := m.pendingTiles[:0]
	for _, pt := range m.pendingTiles {
		select {
		case r := <-pt.future.Done():
			if r.Err != nil {
				m.log.Warn("elevation tile build failed", zap.Error(r.Err))
				continue
			}
			if err := m.ground.InstallTile(pt.center, r.Geo); err != nil {
				m.log.Error("elevation tile install failed", zap.Error(err))
			}
		default:
			remaining = append(remaining, pt)
		}
	}
	m.pendingTiles = remaining
	if len(m.pendingTiles) == 0 {
		m.bus.Emit(events.TerrainLoaded, m.ground.TileCount())
	}
}

// UpdateConfig merges a sparse config change into the current
// configuration. Queued until Initialize when called early.
func (m *Manager) UpdateConfig(p config.Partial) {
	if m.state == StateDisposed {
		return
	}
	if m.state != StateReady {
		m.queuedConfig = append(m.queuedConfig, p)
		m.cfg = config.Merge(m.cfg, p)
		return
	}
	m.applyConfig(p)
	m.bus.Emit(events.ConfigChanged, m.cfg)
}

// applyConfig total-merges one partial and pushes the result into every
// affected subsystem.
func (m *Manager) applyConfig(p config.Partial) {
	m.cfg = config.Merge(m.cfg, p)

	if p.ShadowQuality != nil {
		if q, err := lighting.ParseQuality(*p.ShadowQuality); err != nil {
			m.log.Warn("ignoring invalid shadow quality", zap.Error(err))
		} else {
			m.lights.UpdateShadowQuality(q)
		}
	}
	if p.ShadowsEnabled != nil {
		m.lights.UpdateSun(lighting.SunUpdate{CastShadow: p.ShadowsEnabled})
	}
	if p.AmbientIntensity != nil {
		m.lights.SetAmbientIntensity(*p.AmbientIntensity)
	}
	if p.SunIntensity != nil {
		m.lights.UpdateSun(lighting.SunUpdate{Intensity: p.SunIntensity})
	}

	m.cull.SetConfig(culling.Config{
		Enabled:        m.cfg.Culling.Enabled,
		CellSize:       m.cfg.Culling.CellSize,
		MaxDistance:    m.cfg.Culling.MaxDistance,
		FrustumPadding: m.cfg.Culling.FrustumPadding,
	})
	m.builds.SetMaxDistance(m.cfg.Culling.MaxDistance)
	m.trees.SetLODDistances(
		m.cfg.LOD.HighDistance, m.cfg.LOD.MediumDistance, m.cfg.LOD.LowDistance)
}

// UpdateSun applies a sparse sun update. Queued until Initialize when
// called early.
func (m *Manager) UpdateSun(u lighting.SunUpdate) {
	if m.state == StateDisposed {
		return
	}
	if m.state != StateReady {
		m.queuedSun = append(m.queuedSun, u)
		return
	}
	m.lights.UpdateSun(u)
	m.bus.Emit(events.SunUpdated, m.lights.Sun())
}

// AddTrees validates geographic vegetation records at the ingestion
// boundary, projects them once, and replaces the vegetation working set.
// Returns the number of accepted records.
func (m *Manager) AddTrees(records []TreeRecord) int {
	if m.state != StateReady {
		m.log.Warn("addTrees before initialize ignored", zap.Int("records", len(records)))
		return 0
	}

	projected := make([]vegetation.Record, 0, len(records))
	for _, rec := range records {
		if !validLonLat(rec.Lon, rec.Lat) {
			m.log.Warn("skipping tree with invalid coordinates",
				zap.String("id", rec.ID),
				zap.Float64("lon", rec.Lon),
				zap.Float64("lat", rec.Lat))
			continue
		}
		projected = append(projected, vegetation.Record{
			ID:             rec.ID,
			Position:       m.projector.ToWorld(rec.Lon, rec.Lat, 0),
			Height:         rec.Height,
			TrunkGirth:     rec.TrunkGirth,
			CanopyDiameter: rec.CanopyDiameter,
			Species:        rec.Species,
		})
	}

	n := m.trees.AddTrees(projected)
	m.rebuildCulling()
	return n
}

// AddBuildings validates geographic building records, projects their
// rings once, and replaces the building working set. Returns the number
// of accepted records.
func (m *Manager) AddBuildings(records []BuildingRecord) int {
	if m.state != StateReady {
		m.log.Warn("addBuildings before initialize ignored", zap.Int("records", len(records)))
		return 0
	}

	projected := make([]buildings.Record, 0, len(records))
	for _, rec := range records {
		ring := make([]math.Vec2, 0, len(rec.Ring))
		valid := true
		for _, pt := range rec.Ring {
			if !validLonLat(pt.Lon(), pt.Lat()) {
				valid = false
				break
			}
			ring = append(ring, m.projector.ToWorldPoint(pt))
		}
		if !valid {
			m.log.Warn("skipping building with invalid coordinates",
				zap.String("id", rec.ID))
			continue
		}
		projected = append(projected, buildings.Record{
			ID:        rec.ID,
			Footprint: ring,
			Height:    rec.Height,
			Type:      rec.Type,
		})
	}

	n := m.builds.AddBuildings(projected)
	m.rebuildCulling()
	return n
}

// LoadElevation replaces the terrain elevation tiles, building their
// geometry on the background worker. Tiles appear over the following
// frames as builds complete.
func (m *Manager) LoadElevation(grid *terrain.ElevationGrid) error {
	if m.state != StateReady {
		return fmt.Errorf("load elevation in state %s", m.state)
	}
	specs, err := m.ground.PlanTiles(grid)
	if err != nil {
		return err
	}
	m.ground.ClearTiles()

	for _, pt := range m.pendingTiles {
		pt.future.Cancel()
	}
	m.pendingTiles = nil

	for _, spec := range specs {
		fut, err := m.worker.Submit(spec.Build)
		if err != nil {
			return fmt.Errorf("queue tile build: %w", err)
		}
		m.pendingTiles = append(m.pendingTiles, pendingTile{center: spec.Center, future: fut})
	}
	return nil
}

// rebuildCulling re-registers all content renderables with the spatial
// grid after a working-set replacement.
func (m *Manager) rebuildCulling() {
	m.cull.Clear()
	m.cull.AddAll(m.trees.Renderables())
	m.cull.AddAll(m.builds.Renderables())
}

// CullingStats returns the last frame's culling statistics.
func (m *Manager) CullingStats() culling.Stats { return m.cull.Stats() }

// Dispose tears the overlay down: pipelines and sub-managers first, the
// renderer last. Idempotent; the manager cannot be reused afterwards.
func (m *Manager) Dispose() {
	if m.state == StateDisposed {
		return
	}
	initialized := m.state == StateReady
	m.state = StateDisposed

	if initialized {
		m.worker.Close()
		m.pendingTiles = nil

		m.trees.Dispose()
		m.builds.Dispose()
		m.ground.Dispose()
		m.cull.Clear()
		m.scene.Dispose()
		m.lights.Dispose()
		m.backend.Dispose()
	}

	m.log.Info("overlay disposed")
	m.bus.Emit(events.Disposed, nil)
}

// validLonLat rejects NaN and out-of-range geographic coordinates.
func validLonLat(lon, lat float64) bool {
	return lon == lon && lat == lat &&
		lon >= -180 && lon <= 180 && lat >= -85.06 && lat <= 85.06
}
