package pool

import (
	"sync"
	"testing"

	"github.com/verdantcity/sunshade/internal/logger"
)

type scratch struct {
	values []float32
}

func newScratchPool(initial, max int, expand bool) *ObjectPool[*scratch] {
	return New(logger.Named("pool"), Options[*scratch]{
		New:        func() *scratch { return &scratch{} },
		Reset:      func(s *scratch) { s.values = s.values[:0] },
		Initial:    initial,
		Max:        max,
		AutoExpand: expand,
	})
}

func TestAcquireReleaseInvariant(t *testing.T) {
	p := newScratchPool(4, 8, true)

	var held []*scratch
	for i := 0; i < 6; i++ {
		obj, ok := p.Acquire()
		if !ok {
			t.Fatalf("acquire %d failed with auto-expand enabled", i)
		}
		held = append(held, obj)
	}
	check := func() {
		s := p.Stats()
		if uint64(s.InUse) != s.Acquires-s.Releases {
			t.Fatalf("invariant broken: inUse=%d acquires=%d releases=%d",
				s.InUse, s.Acquires, s.Releases)
		}
	}
	check()

	for _, obj := range held[:3] {
		p.Release(obj)
		check()
	}

	s := p.Stats()
	if s.InUse != 3 || s.Acquires != 6 || s.Releases != 3 {
		t.Errorf("stats = %+v, want inUse=3 acquires=6 releases=3", s)
	}
	if s.Expansions != 2 {
		t.Errorf("expansions = %d, want 2 past initial size", s.Expansions)
	}
	if s.PeakInUse != 6 {
		t.Errorf("peak = %d, want 6", s.PeakInUse)
	}
}

func TestAcquireExhaustedWithoutExpand(t *testing.T) {
	p := newScratchPool(2, 2, false)

	a, _ := p.Acquire()
	b, _ := p.Acquire()
	if _, ok := p.Acquire(); ok {
		t.Fatal("acquire succeeded on an exhausted fixed-size pool")
	}

	p.Release(a)
	if _, ok := p.Acquire(); !ok {
		t.Fatal("acquire failed after a release freed capacity")
	}
	_ = b
}

func TestExpansionStopsAtMax(t *testing.T) {
	p := newScratchPool(1, 3, true)

	for i := 0; i < 3; i++ {
		if _, ok := p.Acquire(); !ok {
			t.Fatalf("acquire %d failed below max", i)
		}
	}
	if _, ok := p.Acquire(); ok {
		t.Fatal("pool expanded past its max")
	}
	if s := p.Stats(); s.InUse != 3 {
		t.Errorf("inUse = %d, want 3 (never above max)", s.InUse)
	}
}

func TestReleaseForeignObjectIsNoOp(t *testing.T) {
	p := newScratchPool(1, 2, false)

	p.Release(&scratch{})
	s := p.Stats()
	if s.Releases != 0 || s.Available != 1 {
		t.Errorf("stats = %+v, want foreign release ignored", s)
	}
}

func TestReleaseResetsObject(t *testing.T) {
	p := newScratchPool(1, 1, false)

	obj, _ := p.Acquire()
	obj.values = append(obj.values, 1, 2, 3)
	p.Release(obj)

	again, _ := p.Acquire()
	if again != obj {
		t.Fatal("expected the released object back")
	}
	if len(again.values) != 0 {
		t.Errorf("object not reset: %v", again.values)
	}
}

func TestReleaseAll(t *testing.T) {
	p := newScratchPool(3, 3, false)
	for i := 0; i < 3; i++ {
		p.Acquire()
	}
	p.ReleaseAll()

	s := p.Stats()
	if s.InUse != 0 || s.Available != 3 || s.Releases != 3 {
		t.Errorf("stats after ReleaseAll = %+v", s)
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	p := newScratchPool(8, 64, true)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if obj, ok := p.Acquire(); ok {
					p.Release(obj)
				}
			}
		}()
	}
	wg.Wait()

	s := p.Stats()
	if s.InUse != 0 {
		t.Errorf("inUse = %d after all goroutines released, want 0", s.InUse)
	}
	if uint64(s.InUse) != s.Acquires-s.Releases {
		t.Errorf("invariant broken: %+v", s)
	}
}
