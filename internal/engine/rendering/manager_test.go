package rendering

import (
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/verdantcity/sunshade/internal/config"
	"github.com/verdantcity/sunshade/internal/engine/events"
	"github.com/verdantcity/sunshade/internal/engine/lighting"
	"github.com/verdantcity/sunshade/internal/engine/perf"
	"github.com/verdantcity/sunshade/internal/engine/renderer"
	"github.com/verdantcity/sunshade/internal/engine/scenegraph"
	"github.com/verdantcity/sunshade/internal/engine/terrain"
	"github.com/verdantcity/sunshade/internal/logger"
	"github.com/verdantcity/sunshade/pkg/math"
)

type fakeTarget struct {
	resolution int32
	destroyed  int
}

func (f *fakeTarget) Resolution() int32 { return f.resolution }
func (f *fakeTarget) Resize(r int32)    { f.resolution = r }
func (f *fakeTarget) Destroy()          { f.destroyed++ }

type fakeBackend struct {
	initErr     error
	initCalls   int
	renderCalls int
	panicNext   bool
	lastInput   renderer.FrameInput
	target      fakeTarget
	disposed    int
}

func (f *fakeBackend) Initialize(resolution int32) error {
	f.initCalls++
	if f.initErr != nil {
		return f.initErr
	}
	f.target.resolution = resolution
	return nil
}

func (f *fakeBackend) ShadowTarget() lighting.ShadowTarget { return &f.target }

func (f *fakeBackend) Render(scene *scenegraph.Manager, in renderer.FrameInput) perf.FrameStats {
	if f.panicNext {
		f.panicNext = false
		panic("gl context lost")
	}
	f.renderCalls++
	f.lastInput = in
	return perf.FrameStats{DrawCalls: 3}
}

func (f *fakeBackend) Dispose() { f.disposed++ }

// Origin roughly central Berlin.
const (
	originLon = 13.40
	originLat = 52.52
)

func newTestManager(t *testing.T) (*Manager, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	m := NewManager(logger.Named("rendering"), originLon, originLat, config.Default(), backend)
	return m, backend
}

func hostCamera() [16]float32 {
	proj := math.Perspective(1.0, 16.0/9.0, 0.1, 5000)
	view := math.LookAt(
		math.Vec3{X: 0, Y: 300, Z: 400},
		math.Vec3{},
		math.Vec3{Y: 1},
	)
	return [16]float32(proj.Mul(view))
}

func TestInitializeLifecycle(t *testing.T) {
	m, backend := newTestManager(t)
	defer m.Dispose()

	var initEvents int
	m.Events().Subscribe(events.Initialized, func(events.Event) { initEvents++ })

	if m.State() != StateUninitialized {
		t.Fatalf("state = %s, want uninitialized", m.State())
	}
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}
	if m.State() != StateReady {
		t.Fatalf("state = %s, want ready", m.State())
	}
	if initEvents != 1 {
		t.Errorf("initialized events = %d, want 1", initEvents)
	}
	// Config default "high" maps to a 2048 texel shadow map.
	if backend.target.resolution != 2048 {
		t.Errorf("shadow resolution = %d, want 2048", backend.target.resolution)
	}

	// Double initialize is a warn no-op.
	if err := m.Initialize(); err != nil {
		t.Fatal(err)
	}
	if backend.initCalls != 1 {
		t.Errorf("backend initialized %d times, want 1", backend.initCalls)
	}
}

func TestInitializeFailureIsRetryable(t *testing.T) {
	m, backend := newTestManager(t)
	defer m.Dispose()

	var errorEvents int
	m.Events().Subscribe(events.Error, func(events.Event) { errorEvents++ })

	backend.initErr = errors.New("no gl context")
	if err := m.Initialize(); err == nil {
		t.Fatal("expected initialize error")
	}
	if m.State() != StateUninitialized {
		t.Fatalf("state = %s, want uninitialized after failure", m.State())
	}
	if errorEvents != 1 {
		t.Errorf("error events = %d, want 1", errorEvents)
	}

	backend.initErr = nil
	if err := m.Initialize(); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if m.State() != StateReady {
		t.Fatalf("state = %s, want ready after retry", m.State())
	}
}

func TestInitializeAfterDispose(t *testing.T) {
	m, _ := newTestManager(t)
	m.Dispose()
	if err := m.Initialize(); !errors.Is(err, ErrDisposed) {
		t.Errorf("err = %v, want ErrDisposed", err)
	}
}

func TestRenderOnlyWhenReady(t *testing.T) {
	m, backend := newTestManager(t)
	defer m.Dispose()

	m.Render(hostCamera())
	if backend.renderCalls != 0 {
		t.Fatal("render ran before initialize")
	}

	m.Initialize()
	var repaints int
	m.SetRepaintFunc(func() { repaints++ })

	m.Render(hostCamera())
	if backend.renderCalls != 1 {
		t.Fatalf("render calls = %d, want 1", backend.renderCalls)
	}
	if repaints != 1 {
		t.Errorf("repaint requests = %d, want 1", repaints)
	}
	if !backend.lastInput.ShadowsEnabled {
		t.Error("shadows should be enabled by default config")
	}
}

func TestRenderRecoversFromPanic(t *testing.T) {
	m, backend := newTestManager(t)
	defer m.Dispose()
	m.Initialize()

	var errorEvents int
	m.Events().Subscribe(events.Error, func(events.Event) { errorEvents++ })

	backend.panicNext = true
	m.Render(hostCamera())
	if errorEvents != 1 {
		t.Fatalf("error events = %d, want 1 after panicking frame", errorEvents)
	}

	// Only that frame is lost.
	m.Render(hostCamera())
	if backend.renderCalls != 1 {
		t.Errorf("render calls = %d, want 1 successful after recovery", backend.renderCalls)
	}
}

func TestUpdateConfigQueuedBeforeInitialize(t *testing.T) {
	m, backend := newTestManager(t)
	defer m.Dispose()

	m.UpdateConfig(config.Partial{
		ShadowQuality: config.Ptr("medium"),
	})
	m.Initialize()

	if backend.target.resolution != 1024 {
		t.Errorf("shadow resolution = %d, want 1024 from queued config", backend.target.resolution)
	}
	if m.Config().Shadows.Quality != "medium" {
		t.Errorf("config quality = %q, want medium", m.Config().Shadows.Quality)
	}
}

func TestUpdateSunQueuedBeforeInitialize(t *testing.T) {
	m, _ := newTestManager(t)
	defer m.Dispose()

	pos := math.Vec3{X: -200, Y: 900, Z: 100}
	m.UpdateSun(lighting.SunUpdate{Position: &pos})
	m.Initialize()

	if got := m.lights.Sun().Position; got != pos {
		t.Errorf("sun position = %v, want %v from queued update", got, pos)
	}
}

func TestUpdateSunEmitsEvent(t *testing.T) {
	m, _ := newTestManager(t)
	defer m.Dispose()
	m.Initialize()

	var updated int
	m.Events().Subscribe(events.SunUpdated, func(events.Event) { updated++ })

	intensity := float32(0.7)
	m.UpdateSun(lighting.SunUpdate{Intensity: &intensity})
	if updated != 1 {
		t.Errorf("sun:updated events = %d, want 1", updated)
	}
	if m.lights.Sun().Intensity != 0.7 {
		t.Errorf("intensity = %v, want 0.7", m.lights.Sun().Intensity)
	}
}

func TestAddTreesProjectsAndValidates(t *testing.T) {
	m, _ := newTestManager(t)
	defer m.Dispose()
	m.Initialize()

	n := m.AddTrees([]TreeRecord{
		{ID: "ok", Lon: originLon + 0.001, Lat: originLat, Height: 12, Species: "oak"},
		{ID: "bad-lat", Lon: originLon, Lat: 95, Height: 10, Species: "oak"},
	})
	if n != 1 {
		t.Fatalf("accepted %d trees, want 1", n)
	}

	// ~0.001 degrees of longitude at 52.5N is roughly 68 ground meters.
	m.Render(hostCamera())
	if m.trees.Count() != 1 {
		t.Errorf("tree count = %d, want 1", m.trees.Count())
	}
}

func TestAddTreesBeforeInitialize(t *testing.T) {
	m, _ := newTestManager(t)
	defer m.Dispose()

	if n := m.AddTrees([]TreeRecord{{ID: "t", Lon: originLon, Lat: originLat, Height: 10}}); n != 0 {
		t.Errorf("accepted %d trees before initialize, want 0", n)
	}
}

func TestAddBuildingsProjectsRing(t *testing.T) {
	m, _ := newTestManager(t)
	defer m.Dispose()
	m.Initialize()

	d := 0.0005
	ring := []orb.Point{
		{originLon, originLat},
		{originLon + d, originLat},
		{originLon + d, originLat + d},
		{originLon, originLat + d},
	}
	n := m.AddBuildings([]BuildingRecord{
		{ID: "b1", Ring: ring, Height: 25, Type: "office"},
		{ID: "bad", Ring: []orb.Point{{200, 0}, {0, 0}, {1, 1}}, Height: 10},
	})
	if n != 1 {
		t.Fatalf("accepted %d buildings, want 1", n)
	}
	if m.builds.Count() != 1 {
		t.Errorf("building count = %d, want 1", m.builds.Count())
	}
}

func TestLoadElevationInstallsTilesAcrossFrames(t *testing.T) {
	m, _ := newTestManager(t)
	defer m.Dispose()
	m.Initialize()

	heights := make([]float32, 25)
	grid := &terrain.ElevationGrid{CellSize: 100, Cols: 5, Rows: 5, Heights: heights}
	if err := m.LoadElevation(grid); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for m.ground.TileCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("no elevation tiles installed")
		case <-time.After(5 * time.Millisecond):
			m.Render(hostCamera())
		}
	}
}

func TestDisposeIdempotent(t *testing.T) {
	m, backend := newTestManager(t)
	m.Initialize()

	var disposedEvents int
	m.Events().Subscribe(events.Disposed, func(events.Event) { disposedEvents++ })

	m.Dispose()
	m.Dispose()

	if m.State() != StateDisposed {
		t.Fatalf("state = %s, want disposed", m.State())
	}
	if disposedEvents != 1 {
		t.Errorf("disposed events = %d, want 1", disposedEvents)
	}
	if backend.disposed != 1 {
		t.Errorf("backend disposed %d times, want 1", backend.disposed)
	}

	// Post-dispose calls are inert.
	m.Render(hostCamera())
	if backend.renderCalls != 0 {
		t.Error("render ran after dispose")
	}
}
