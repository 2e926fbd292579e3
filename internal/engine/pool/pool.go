// Package pool provides a bounded, generic object pool for reusable
// render-loop allocations (matrices, scratch buffers, event payloads).
package pool

import (
	"sync"

	"go.uber.org/zap"
)

// Stats is a snapshot of pool counters.
type Stats struct {
	Available  int
	InUse      int
	Acquires   uint64
	Releases   uint64
	Expansions uint64
	PeakInUse  int
}

// Options configures an ObjectPool.
type Options[T comparable] struct {
	// New creates one pooled object. Required.
	New func() T
	// Reset returns an object to a clean state before reuse. Optional.
	Reset func(T)
	// Initial is the number of objects pre-allocated at build time.
	Initial int
	// Max caps the total live objects (available + in use). Must be > 0.
	Max int
	// AutoExpand allows growth past Initial up to Max.
	AutoExpand bool
}

// ObjectPool hands out reusable objects of one type. Acquire never
// panics: when the pool is exhausted it reports failure and the caller
// falls back to skipping the work or allocating directly.
type ObjectPool[T comparable] struct {
	mu   sync.Mutex
	log  *zap.Logger
	opts Options[T]

	free  []T
	inUse map[T]struct{}

	acquires   uint64
	releases   uint64
	expansions uint64
	peak       int
}

// New creates a pool and pre-allocates Initial objects.
func New[T comparable](log *zap.Logger, opts Options[T]) *ObjectPool[T] {
	if opts.Max <= 0 {
		opts.Max = 1
	}
	if opts.Initial > opts.Max {
		opts.Initial = opts.Max
	}
	p := &ObjectPool[T]{
		log:   log,
		opts:  opts,
		free:  make([]T, 0, opts.Initial),
		inUse: make(map[T]struct{}),
	}
	for i := 0; i < opts.Initial; i++ {
		p.free = append(p.free, opts.New())
	}
	return p
}

// Acquire checks out one object. Returns false when the pool is
// exhausted and cannot (or may not) expand.
func (p *ObjectPool[T]) Acquire() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		total := len(p.inUse)
		if !p.opts.AutoExpand || total >= p.opts.Max {
			var zero T
			return zero, false
		}
		p.free = append(p.free, p.opts.New())
		p.expansions++
	}

	obj := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.inUse[obj] = struct{}{}
	p.acquires++
	if len(p.inUse) > p.peak {
		p.peak = len(p.inUse)
	}
	return obj, true
}

// Release returns a checked-out object to the pool. Releasing an object
// the pool did not hand out is a warning no-op, never a corruption.
func (p *ObjectPool[T]) Release(obj T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.inUse[obj]; !ok {
		p.log.Warn("release of object not checked out of pool")
		return
	}
	delete(p.inUse, obj)
	if p.opts.Reset != nil {
		p.opts.Reset(obj)
	}
	p.free = append(p.free, obj)
	p.releases++
}

// ReleaseAll returns every checked-out object at once. Used on frame
// boundaries to reclaim scratch objects wholesale.
func (p *ObjectPool[T]) ReleaseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for obj := range p.inUse {
		if p.opts.Reset != nil {
			p.opts.Reset(obj)
		}
		p.free = append(p.free, obj)
		p.releases++
	}
	clear(p.inUse)
}

// Stats returns a snapshot of the pool counters.
func (p *ObjectPool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Available:  len(p.free),
		InUse:      len(p.inUse),
		Acquires:   p.acquires,
		Releases:   p.releases,
		Expansions: p.expansions,
		PeakInUse:  p.peak,
	}
}
