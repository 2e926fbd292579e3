// Package perf samples frame timing and emits periodic performance
// metrics and threshold warnings.
package perf

import (
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/verdantcity/sunshade/internal/engine/events"
	"github.com/verdantcity/sunshade/internal/logger"
)

// ringSize bounds the raw frame-time history. At 60fps this covers the
// last four seconds.
const ringSize = 240

// FrameStats carries per-frame renderer counters into the monitor.
type FrameStats struct {
	DrawCalls int
	Triangles int
	Objects   int
}

// Sample is one emitted performance measurement.
type Sample struct {
	FPS       float64
	FrameTime time.Duration
	DrawCalls int
	Triangles int
	Objects   int
	HeapMB    float64
}

// Thresholds configures warning emission. Zero values disable a check.
type Thresholds struct {
	LowFPS        float64
	HighFrameTime time.Duration
	HighHeapMB    float64
}

// Monitor keeps a bounded ring of raw frame times and, once per
// configured wall-clock interval, aggregates them into a Sample emitted
// on the event bus.
type Monitor struct {
	log  *zap.Logger
	bus  *events.Bus
	now  func() time.Time
	mem  func() float64
	intv time.Duration
	thr  Thresholds

	ring   [ringSize]time.Duration
	head   int
	filled int

	lastFrame time.Time
	lastEmit  time.Time
	last      Sample
	hasSample bool
}

// NewMonitor creates a monitor emitting on bus every interval.
func NewMonitor(bus *events.Bus, interval time.Duration, thr Thresholds) *Monitor {
	return &Monitor{
		log:  logger.Named("perf"),
		bus:  bus,
		now:  time.Now,
		mem:  heapMB,
		intv: interval,
		thr:  thr,
	}
}

func heapMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.Alloc) / 1024 / 1024
}

// Tick records one frame. Returns true when a sample was emitted.
func (m *Monitor) Tick(stats FrameStats) bool {
	t := m.now()

	if m.lastFrame.IsZero() {
		m.lastFrame = t
		m.lastEmit = t
		return false
	}

	dt := t.Sub(m.lastFrame)
	m.lastFrame = t

	m.ring[m.head] = dt
	m.head = (m.head + 1) % ringSize
	if m.filled < ringSize {
		m.filled++
	}

	if t.Sub(m.lastEmit) < m.intv {
		return false
	}
	m.lastEmit = t
	m.emit(stats)
	return true
}

func (m *Monitor) emit(stats FrameStats) {
	var total time.Duration
	for i := 0; i < m.filled; i++ {
		total += m.ring[i]
	}
	if m.filled == 0 || total == 0 {
		return
	}
	avg := total / time.Duration(m.filled)

	s := Sample{
		FPS:       float64(time.Second) / float64(avg),
		FrameTime: avg,
		DrawCalls: stats.DrawCalls,
		Triangles: stats.Triangles,
		Objects:   stats.Objects,
		HeapMB:    m.mem(),
	}
	m.last = s
	m.hasSample = true

	m.bus.Emit(events.PerformanceTick, s)

	if m.thr.LowFPS > 0 && s.FPS < m.thr.LowFPS {
		m.log.Warn("fps below threshold", zap.Float64("fps", s.FPS), zap.Float64("threshold", m.thr.LowFPS))
		m.bus.Emit(events.Warning, s)
	} else if m.thr.HighFrameTime > 0 && s.FrameTime > m.thr.HighFrameTime {
		m.log.Warn("frame time above threshold",
			zap.Duration("frame_time", s.FrameTime),
			zap.Duration("threshold", m.thr.HighFrameTime),
		)
		m.bus.Emit(events.Warning, s)
	}

	if m.thr.HighHeapMB > 0 && s.HeapMB > m.thr.HighHeapMB {
		m.log.Warn("heap above threshold", zap.Float64("heap_mb", s.HeapMB), zap.Float64("threshold", m.thr.HighHeapMB))
		m.bus.Emit(events.Warning, s)
	}
}

// LastSample returns the most recent emitted sample, if any.
func (m *Monitor) LastSample() (Sample, bool) {
	return m.last, m.hasSample
}
