// Package adaptive tunes LOD distances and shadow quality from measured
// frame rate. One adjustment per interval, with a hysteresis band around
// the target so quality does not oscillate.
package adaptive

import (
	"time"

	"go.uber.org/zap"

	"github.com/verdantcity/sunshade/internal/engine/lighting"
)

// Adjustment is one decision of the controller.
type Adjustment string

const (
	AdjustNone            Adjustment = "none"
	AdjustReduceLOD       Adjustment = "reduce_lod"
	AdjustIncreaseLOD     Adjustment = "increase_lod"
	AdjustReduceShadows   Adjustment = "reduce_shadows"
	AdjustIncreaseShadows Adjustment = "increase_shadows"
)

// Bounds clamps one LOD distance.
type Bounds struct {
	Min float32
	Max float32
}

// Strategy is the controller's tuning policy.
type Strategy struct {
	TargetFPS float32
	MinFPS    float32
	// Buffer is the hysteresis half-width around TargetFPS.
	Buffer   float32
	Interval time.Duration
	// AllowShadowAdjust lets the controller change shadow quality tiers.
	AllowShadowAdjust bool

	High   Bounds
	Medium Bounds
	Low    Bounds

	// ShrinkFactor scales distances down when struggling; GrowFactor
	// scales them back up, deliberately slower than the shrink.
	ShrinkFactor float32
	GrowFactor   float32
}

// DefaultStrategy returns the tuning used when the host does not
// override it.
func DefaultStrategy() Strategy {
	return Strategy{
		TargetFPS:         55,
		MinFPS:            30,
		Buffer:            5,
		Interval:          2 * time.Second,
		AllowShadowAdjust: true,
		High:              Bounds{Min: 20, Max: 80},
		Medium:            Bounds{Min: 80, Max: 400},
		Low:               Bounds{Min: 400, Max: 2000},
		ShrinkFactor:      0.8,
		GrowFactor:        1.1,
	}
}

// Distances is one set of LOD band boundaries.
type Distances struct {
	High   float32
	Medium float32
	Low    float32
}

var qualityOrder = []lighting.Quality{
	lighting.QualityLow,
	lighting.QualityMedium,
	lighting.QualityHigh,
	lighting.QualityUltra,
}

func qualityIndex(q lighting.Quality) int {
	for i, c := range qualityOrder {
		if c == q {
			return i
		}
	}
	return 0
}

const historySize = 30

// Manager observes FPS samples and applies at most one quality
// adjustment per strategy interval, through callbacks into the LOD and
// lighting layers.
type Manager struct {
	log      *zap.Logger
	strategy Strategy

	distances Distances
	quality   lighting.Quality

	history []float32
	last    time.Time
	now     func() time.Time

	onLOD    func(Distances)
	onShadow func(lighting.Quality)
}

// NewManager creates a controller starting from the given LOD distances
// and shadow quality.
func NewManager(log *zap.Logger, s Strategy, initial Distances, q lighting.Quality) *Manager {
	return &Manager{
		log:       log,
		strategy:  s,
		distances: clampDistances(initial, s),
		quality:   q,
		history:   make([]float32, 0, historySize),
		now:       time.Now,
	}
}

// SetCallbacks wires the controller's outputs. Either may be nil.
func (m *Manager) SetCallbacks(onLOD func(Distances), onShadow func(lighting.Quality)) {
	m.onLOD = onLOD
	m.onShadow = onShadow
}

// Observe records one FPS sample and, when the interval has elapsed,
// decides and applies an adjustment. Returns the decision made.
func (m *Manager) Observe(fps float32) Adjustment {
	m.history = append(m.history, fps)
	if len(m.history) > historySize {
		m.history = m.history[1:]
	}

	now := m.now()
	if m.last.IsZero() {
		m.last = now
		return AdjustNone
	}
	if now.Sub(m.last) < m.strategy.Interval {
		return AdjustNone
	}
	m.last = now

	adj := m.DecideAdjustment(m.averageFPS())
	m.apply(adj)
	return adj
}

func (m *Manager) averageFPS() float32 {
	if len(m.history) == 0 {
		return m.strategy.TargetFPS
	}
	var sum float32
	for _, v := range m.history {
		sum += v
	}
	return sum / float32(len(m.history))
}

// DecideAdjustment maps an average FPS to one adjustment. Reductions
// trigger only below the MinFPS trip-wire, with shadow reduction
// preferred over LOD reduction; growth triggers above target+buffer.
// Everything in between holds steady so quality does not oscillate
// around the target.
func (m *Manager) DecideAdjustment(avg float32) Adjustment {
	s := m.strategy
	switch {
	case avg < s.MinFPS:
		if s.AllowShadowAdjust && m.quality != lighting.QualityLow {
			return AdjustReduceShadows
		}
		if m.canShrink() {
			return AdjustReduceLOD
		}
		return AdjustNone

	case avg > s.TargetFPS+s.Buffer:
		if m.canGrow() {
			return AdjustIncreaseLOD
		}
		if s.AllowShadowAdjust && m.quality != lighting.QualityUltra {
			return AdjustIncreaseShadows
		}
		return AdjustNone

	default:
		return AdjustNone
	}
}

func (m *Manager) canShrink() bool {
	d, s := m.distances, m.strategy
	return d.High > s.High.Min || d.Medium > s.Medium.Min || d.Low > s.Low.Min
}

func (m *Manager) canGrow() bool {
	d, s := m.distances, m.strategy
	return d.High < s.High.Max || d.Medium < s.Medium.Max || d.Low < s.Low.Max
}

func (m *Manager) apply(adj Adjustment) {
	switch adj {
	case AdjustReduceLOD:
		m.scaleDistances(m.strategy.ShrinkFactor)
	case AdjustIncreaseLOD:
		m.scaleDistances(m.strategy.GrowFactor)
	case AdjustReduceShadows:
		m.stepQuality(-1)
	case AdjustIncreaseShadows:
		m.stepQuality(+1)
	case AdjustNone:
		return
	}
	m.log.Info("quality adjusted",
		zap.String("adjustment", string(adj)),
		zap.Float32("lodHigh", m.distances.High),
		zap.Float32("lodMedium", m.distances.Medium),
		zap.Float32("lodLow", m.distances.Low),
		zap.String("shadowQuality", string(m.quality)),
	)
}

func (m *Manager) scaleDistances(factor float32) {
	m.distances = clampDistances(Distances{
		High:   m.distances.High * factor,
		Medium: m.distances.Medium * factor,
		Low:    m.distances.Low * factor,
	}, m.strategy)
	if m.onLOD != nil {
		m.onLOD(m.distances)
	}
}

func (m *Manager) stepQuality(delta int) {
	i := qualityIndex(m.quality) + delta
	if i < 0 || i >= len(qualityOrder) {
		return
	}
	m.quality = qualityOrder[i]
	if m.onShadow != nil {
		m.onShadow(m.quality)
	}
}

// clampDistances enforces min <= d <= max per tier and keeps the band
// ordering high < medium < low strict.
func clampDistances(d Distances, s Strategy) Distances {
	clamp := func(v float32, b Bounds) float32 {
		if v < b.Min {
			return b.Min
		}
		if v > b.Max {
			return b.Max
		}
		return v
	}
	d.High = clamp(d.High, s.High)
	d.Medium = clamp(d.Medium, s.Medium)
	d.Low = clamp(d.Low, s.Low)

	if d.Medium <= d.High {
		d.Medium = clamp(d.High+1, s.Medium)
	}
	if d.Low <= d.Medium {
		d.Low = clamp(d.Medium+1, s.Low)
	}
	return d
}

// Distances returns the current LOD band boundaries.
func (m *Manager) Distances() Distances { return m.distances }

// Quality returns the current shadow quality tier.
func (m *Manager) Quality() lighting.Quality { return m.quality }
