package buffer

import (
	"sync"
	"testing"
)

func TestTripleSnapshotBeforePublishIsZero(t *testing.T) {
	tb := NewTriple(8)
	got := tb.Snapshot(nil)
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8", len(got))
	}
	for i, v := range got {
		if v != 0 {
			t.Fatalf("index %d: got %v, want 0", i, v)
		}
	}
}

func TestTriplePublishThenSnapshot(t *testing.T) {
	tb := NewTriple(4)
	back := tb.Back()
	for i := range back {
		back[i] = float64(i + 1)
	}
	tb.Publish()

	got := tb.Snapshot(nil)
	for i, v := range got {
		if v != float64(i+1) {
			t.Fatalf("index %d: got %v, want %v", i, v, float64(i+1))
		}
	}

	// A second snapshot without a new publish returns the same window.
	again := tb.Snapshot(nil)
	for i := range again {
		if again[i] != got[i] {
			t.Fatalf("index %d changed without publish: %v vs %v", i, again[i], got[i])
		}
	}
}

func TestTripleSlotsStayDistinct(t *testing.T) {
	tb := NewTriple(1)
	for round := 1; round <= 10; round++ {
		tb.Back()[0] = float64(round)
		tb.Publish()
		if round%3 == 0 {
			tb.Snapshot(nil)
		}
		idx := map[int]bool{tb.back: true, tb.front: true, int(tb.latest.Load() &^ freshBit): true}
		if len(idx) != 3 {
			t.Fatalf("round %d: slots aliased: back=%d front=%d latest=%d", round, tb.back, tb.front, tb.latest.Load())
		}
	}
}

func TestTripleWindowsNeverTorn(t *testing.T) {
	const size = 64
	tb := NewTriple(size)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for round := 1; round <= 2000; round++ {
			back := tb.Back()
			for i := range back {
				back[i] = float64(round)
			}
			tb.Publish()
		}
	}()
	go func() {
		defer wg.Done()
		var snap []float64
		for i := 0; i < 2000; i++ {
			snap = tb.Snapshot(snap)
			for j := 1; j < len(snap); j++ {
				if snap[j] != snap[0] {
					t.Errorf("torn window: snap[0]=%v snap[%d]=%v", snap[0], j, snap[j])
					return
				}
			}
		}
	}()
	wg.Wait()
}
