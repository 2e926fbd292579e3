// Package geomworker builds geometry off the render goroutine. Requests
// carry a correlation id; callers hold a Future and may cancel by
// discarding it, after which the late result is dropped, not delivered.
package geomworker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verdantcity/sunshade/internal/engine/object"
)

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("geometry worker closed")
	// ErrQueueFull is returned by Submit when the job queue is saturated.
	ErrQueueFull = errors.New("geometry worker queue full")
	// ErrWorkerFailed rejects every outstanding request when a build
	// panics; the worker itself recovers and keeps serving.
	ErrWorkerFailed = errors.New("geometry worker failed")
	// ErrCancelled resolves a future that was cancelled by its owner.
	ErrCancelled = errors.New("geometry request cancelled")
)

// BuildFunc constructs one geometry CPU-side. It must not touch GL.
type BuildFunc func() (*object.Geometry, error)

// Result is the response half of the request/response contract.
type Result struct {
	ID  uuid.UUID
	Geo *object.Geometry
	Err error
}

// Future is a pending geometry request.
type Future struct {
	ID uuid.UUID
	ch chan Result
	w  *Worker
}

// Done returns a channel that receives exactly one Result.
func (f *Future) Done() <-chan Result { return f.ch }

// Wait blocks for the result or the context.
func (f *Future) Wait(ctx context.Context) (*object.Geometry, error) {
	select {
	case r := <-f.ch:
		return r.Geo, r.Err
	case <-ctx.Done():
		f.Cancel()
		return nil, ctx.Err()
	}
}

// Cancel discards the pending request. A result that arrives later is
// dropped; the geometry it built is disposed, never leaked.
func (f *Future) Cancel() {
	f.w.cancel(f.ID)
}

type job struct {
	id    uuid.UUID
	build BuildFunc
}

// Worker runs geometry builds on one background goroutine.
type Worker struct {
	log  *zap.Logger
	jobs chan job

	mu      sync.Mutex
	pending map[uuid.UUID]*Future
	closed  bool

	done chan struct{}
}

// New starts the worker goroutine with the given queue depth.
func New(log *zap.Logger, queueSize int) *Worker {
	if queueSize < 1 {
		queueSize = 16
	}
	w := &Worker{
		log:     log,
		jobs:    make(chan job, queueSize),
		pending: make(map[uuid.UUID]*Future),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit queues one build and returns its future. Fails fast when the
// worker is closed or the queue is full; it never blocks the frame.
func (w *Worker) Submit(build BuildFunc) (*Future, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrClosed
	}
	f := &Future{ID: uuid.New(), ch: make(chan Result, 1), w: w}
	w.pending[f.ID] = f
	w.mu.Unlock()

	select {
	case w.jobs <- job{id: f.ID, build: build}:
		return f, nil
	default:
		w.cancel(f.ID)
		return nil, ErrQueueFull
	}
}

// Pending returns the number of outstanding requests.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Close stops the worker and rejects every outstanding request with
// ErrClosed. Safe to call more than once.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	w.rejectAll(ErrClosed)
}

func (w *Worker) run() {
	for {
		select {
		case <-w.done:
			return
		case j := <-w.jobs:
			w.serve(j)
		}
	}
}

// serve runs one build. A panic fails the whole batch: the current job
// and every outstanding one reject with ErrWorkerFailed.
func (w *Worker) serve(j job) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("geometry build panicked", zap.Any("panic", r))
			w.rejectAll(fmt.Errorf("%w: %v", ErrWorkerFailed, r))
		}
	}()

	geo, err := j.build()
	w.deliver(Result{ID: j.id, Geo: geo, Err: err})
}

// deliver hands a result to its future if the request is still pending.
// Stale results (cancelled or already rejected) are dropped and their
// geometry disposed.
func (w *Worker) deliver(r Result) {
	w.mu.Lock()
	f, ok := w.pending[r.ID]
	delete(w.pending, r.ID)
	w.mu.Unlock()

	if !ok {
		if r.Geo != nil {
			r.Geo.Dispose()
		}
		return
	}
	f.ch <- r
}

func (w *Worker) cancel(id uuid.UUID) {
	w.mu.Lock()
	f, ok := w.pending[id]
	delete(w.pending, id)
	w.mu.Unlock()

	if ok {
		f.ch <- Result{ID: id, Err: ErrCancelled}
	}
}

func (w *Worker) rejectAll(err error) {
	w.mu.Lock()
	rejected := make([]*Future, 0, len(w.pending))
	for _, f := range w.pending {
		rejected = append(rejected, f)
	}
	w.pending = make(map[uuid.UUID]*Future)
	w.mu.Unlock()

	for _, f := range rejected {
		f.ch <- Result{ID: f.ID, Err: err}
	}
}
