// Package main runs the overlay against a demo SDL2 window standing in
// for a host web map: a synthetic orbiting camera, generated tree and
// building records around the origin, and a sun that arcs across the sky.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/chewxy/math32"
	"github.com/paulmach/orb"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/verdantcity/sunshade/internal/config"
	"github.com/verdantcity/sunshade/internal/engine/input"
	"github.com/verdantcity/sunshade/internal/engine/lighting"
	"github.com/verdantcity/sunshade/internal/engine/rendering"
	"github.com/verdantcity/sunshade/internal/engine/window"
	"github.com/verdantcity/sunshade/internal/logger"
	"github.com/verdantcity/sunshade/pkg/math"
)

// Demo anchor: central Berlin.
const (
	originLon = 13.404954
	originLat = 52.520008
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("overlay error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	win, err := window.New(window.Config{
		Title:  "Sunshade",
		Width:  cfg.Display.Width,
		Height: cfg.Display.Height,
		VSync:  cfg.Display.VSync,
	})
	if err != nil {
		return err
	}
	defer win.Close()

	mgr := rendering.NewManager(
		logger.Named("rendering"),
		originLon, originLat, cfg,
		rendering.NewGLBackend(logger.Named("renderer")),
	)
	defer mgr.Dispose()

	if err := mgr.Initialize(); err != nil {
		return err
	}

	mgr.AddTrees(sampleTrees(600))
	mgr.AddBuildings(sampleBuildings(80))

	poller := input.New()
	shadows := cfg.Shadows.Enabled

	start := time.Now()
	var pausedAt time.Time
	for {
		frame := poller.Poll()
		if frame.Quit || frame.Pressed(sdl.SCANCODE_ESCAPE) {
			return nil
		}
		if frame.Pressed(sdl.SCANCODE_SPACE) {
			if pausedAt.IsZero() {
				pausedAt = time.Now()
			} else {
				start = start.Add(time.Since(pausedAt))
				pausedAt = time.Time{}
			}
		}
		if frame.Pressed(sdl.SCANCODE_S) {
			shadows = !shadows
			mgr.UpdateConfig(config.Partial{ShadowsEnabled: config.Ptr(shadows)})
		}
		for code, quality := range qualityKeys {
			if frame.Pressed(code) {
				mgr.UpdateConfig(config.Partial{ShadowQuality: config.Ptr(quality)})
			}
		}

		now := time.Now()
		if !pausedAt.IsZero() {
			now = pausedAt
		}
		t := float32(now.Sub(start).Seconds())
		updateSun(mgr, t)

		w, h := win.Size()
		mgr.Render(orbitCamera(t, float32(w)/float32(h)))
		win.SwapBuffers()
	}
}

var qualityKeys = map[sdl.Scancode]string{
	sdl.SCANCODE_1: "low",
	sdl.SCANCODE_2: "medium",
	sdl.SCANCODE_3: "high",
	sdl.SCANCODE_4: "ultra",
}

// orbitCamera slowly circles the origin the way a user panning a tilted
// web map would.
func orbitCamera(t, aspect float32) [16]float32 {
	angle := t * 0.1
	eye := math.Vec3{
		X: math32.Cos(angle) * 500,
		Y: 350,
		Z: math32.Sin(angle) * 500,
	}
	view := math.LookAt(eye, math.Vec3{}, math.Vec3{Y: 1})
	proj := math.Perspective(0.9, aspect, 0.5, 6000)
	return [16]float32(proj.Mul(view))
}

// updateSun arcs the sun from low east to low west over two minutes.
func updateSun(mgr *rendering.Manager, t float32) {
	elevation := 0.2 + 0.8*math32.Sin(t*math32.Pi/120)
	if elevation < 0.1 {
		elevation = 0.1
	}
	pos := lighting.PositionFromAngles(t*math32.Pi/120-math32.Pi/2, elevation, 1000)
	mgr.UpdateSun(lighting.SunUpdate{Position: &pos})
}

func sampleTrees(n int) []rendering.TreeRecord {
	rng := rand.New(rand.NewSource(7))
	species := []string{"oak", "pine", "birch", "maple", "linden"}

	records := make([]rendering.TreeRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, rendering.TreeRecord{
			ID:             fmt.Sprintf("tree-%d", i),
			Lon:            originLon + (rng.Float64()-0.5)*0.02,
			Lat:            originLat + (rng.Float64()-0.5)*0.012,
			Height:         6 + rng.Float32()*14,
			TrunkGirth:     0.8 + rng.Float32()*1.5,
			CanopyDiameter: 4 + rng.Float32()*6,
			Species:        species[rng.Intn(len(species))],
		})
	}
	return records
}

func sampleBuildings(n int) []rendering.BuildingRecord {
	rng := rand.New(rand.NewSource(11))
	types := []string{"residential", "office", "retail", "warehouse", ""}

	records := make([]rendering.BuildingRecord, 0, n)
	for i := 0; i < n; i++ {
		cx := originLon + (rng.Float64()-0.5)*0.015
		cy := originLat + (rng.Float64()-0.5)*0.009
		w := 0.0002 + rng.Float64()*0.0003
		d := 0.0002 + rng.Float64()*0.0003

		records = append(records, rendering.BuildingRecord{
			ID: fmt.Sprintf("bldg-%d", i),
			Ring: []orb.Point{
				{cx - w, cy - d},
				{cx + w, cy - d},
				{cx + w, cy + d},
				{cx - w, cy + d},
			},
			Height: 8 + rng.Float32()*40,
			Type:   types[rng.Intn(len(types))],
		})
	}
	return records
}
