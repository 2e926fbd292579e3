// Package lighting owns the overlay's sun and ambient lights and the
// shadow-quality lifecycle.
package lighting

import (
	"fmt"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/verdantcity/sunshade/internal/engine/shadow"
	"github.com/verdantcity/sunshade/internal/logger"
	"github.com/verdantcity/sunshade/pkg/math"
)

// Quality is a shadow-map quality tier.
type Quality string

// Shadow quality tiers and their fixed resolution table.
const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
	QualityUltra  Quality = "ultra"
)

var resolutionTable = map[Quality]int32{
	QualityLow:    512,
	QualityMedium: 1024,
	QualityHigh:   2048,
	QualityUltra:  4096,
}

// Resolution returns the shadow-map size in texels for this tier.
func (q Quality) Resolution() int32 {
	return resolutionTable[q]
}

// ParseQuality validates a config string into a Quality.
func ParseQuality(s string) (Quality, error) {
	q := Quality(s)
	if _, ok := resolutionTable[q]; !ok {
		return "", fmt.Errorf("unknown shadow quality %q", s)
	}
	return q, nil
}

// Shadow camera extent constants, in world units (ground meters at the
// overlay origin — the same unit space object positions use).
const (
	FrustumHalfSize float32 = 600
	FrustumDepth    float32 = 3000
)

// SunState is the full state of the directional sun light.
type SunState struct {
	Position   math.Vec3
	Intensity  float32
	Color      [3]float32
	CastShadow bool
}

// SunUpdate is a sparse sun change; nil fields keep current values.
type SunUpdate struct {
	Position   *math.Vec3
	Intensity  *float32
	Color      *[3]float32
	CastShadow *bool
}

// ShadowTarget is the GPU resource the manager resizes when the quality
// tier changes. *shadow.Map satisfies it; tests substitute a fake.
type ShadowTarget interface {
	Resolution() int32
	Resize(resolution int32)
	Destroy()
}

var _ ShadowTarget = (*shadow.Map)(nil)

// Manager owns the sun and ambient light state.
type Manager struct {
	log *zap.Logger

	sun              SunState
	ambientColor     [3]float32
	ambientIntensity float32

	quality Quality
	target  ShadowTarget

	disposed bool
}

// NewManager creates a lighting manager with a mid-morning default sun.
func NewManager(ambientIntensity, sunIntensity float32) *Manager {
	return &Manager{
		log: logger.Named("lighting"),
		sun: SunState{
			Position:   math.Vec3{X: 400, Y: 700, Z: 400},
			Intensity:  sunIntensity,
			Color:      [3]float32{1, 0.98, 0.9},
			CastShadow: true,
		},
		ambientColor:     [3]float32{1, 1, 1},
		ambientIntensity: ambientIntensity,
		quality:          QualityHigh,
	}
}

// ConfigureShadows sets the quality tier and, if a shadow target is
// attached, sizes it from the resolution table.
func (m *Manager) ConfigureShadows(q Quality) {
	m.quality = q
	if m.target != nil {
		m.target.Resize(q.Resolution())
	}
	m.log.Debug("shadows configured",
		zap.String("quality", string(q)),
		zap.Int32("resolution", q.Resolution()),
	)
}

// AttachShadowTarget hands the manager the GPU shadow map it manages.
// Called once at initialize time, after a GL context exists.
func (m *Manager) AttachShadowTarget(t ShadowTarget) {
	m.target = t
	m.ConfigureShadows(m.quality)
}

// UpdateShadowQuality switches tiers. Unchanged quality is a no-op; an
// actual switch releases the old shadow-map texture before the new size
// takes effect (see shadow.Map.Resize).
func (m *Manager) UpdateShadowQuality(q Quality) {
	if q == m.quality {
		return
	}
	m.log.Info("shadow quality changed",
		zap.String("from", string(m.quality)),
		zap.String("to", string(q)),
	)
	m.ConfigureShadows(q)
}

// Quality returns the current shadow quality tier.
func (m *Manager) Quality() Quality {
	return m.quality
}

// UpdateSun applies a sparse sun update. The shadow camera re-anchors to
// the ground point directly below the new sun position, so moving the
// sun across the sky keeps shadow directions physically consistent.
func (m *Manager) UpdateSun(u SunUpdate) {
	if u.Position != nil {
		m.sun.Position = *u.Position
	}
	if u.Intensity != nil {
		m.sun.Intensity = *u.Intensity
	}
	if u.Color != nil {
		m.sun.Color = *u.Color
	}
	if u.CastShadow != nil {
		m.sun.CastShadow = *u.CastShadow
	}
}

// Sun returns the current sun state.
func (m *Manager) Sun() SunState {
	return m.sun
}

// SunDirection returns the normalized direction from the scene toward
// the sun.
func (m *Manager) SunDirection() math.Vec3 {
	return m.sun.Position.Normalize()
}

// SunViewProjection returns the shadow-pass matrix for the current sun,
// anchored directly below it at ground level.
func (m *Manager) SunViewProjection() math.Mat4 {
	return shadow.SunViewProjection(m.sun.Position, FrustumHalfSize, FrustumDepth)
}

// Ambient returns the ambient color scaled by its intensity.
func (m *Manager) Ambient() [3]float32 {
	return [3]float32{
		m.ambientColor[0] * m.ambientIntensity,
		m.ambientColor[1] * m.ambientIntensity,
		m.ambientColor[2] * m.ambientIntensity,
	}
}

// SetAmbientIntensity updates the ambient light strength.
func (m *Manager) SetAmbientIntensity(v float32) {
	m.ambientIntensity = v
}

// ShadowsEnabled reports whether the depth pass should run this frame.
func (m *Manager) ShadowsEnabled() bool {
	return m.sun.CastShadow && m.target != nil
}

// Dispose releases the shadow target. Idempotent.
func (m *Manager) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	if m.target != nil {
		m.target.Destroy()
		m.target = nil
	}
}

// PositionFromAngles converts solar azimuth and elevation (radians) to a
// sun position at the given radius from the world origin. Azimuth 0
// points north (-Z), increasing clockwise when viewed from above.
func PositionFromAngles(azimuth, elevation, radius float32) math.Vec3 {
	horiz := math32.Cos(elevation) * radius
	return math.Vec3{
		X: math32.Sin(azimuth) * horiz,
		Y: math32.Sin(elevation) * radius,
		Z: -math32.Cos(azimuth) * horiz,
	}
}
