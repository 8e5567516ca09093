package meter

import (
	"math"
	"sync"
	"testing"
)

func TestTapSilentBeforeWrite(t *testing.T) {
	tap := NewTap(64)
	if got := tap.Levels(); got != (Levels{}) {
		t.Fatalf("Levels = %+v, want zero", got)
	}
}

func TestTapPeakAndRMS(t *testing.T) {
	tap := NewTap(4)

	tap.Write([]float64{0.5, -0.5, 0.5, -0.5}, []float64{0.5, 0.5, -0.5, 0.5})
	got := tap.Levels()

	if math.Abs(got.Peak-0.5) > 1e-12 || math.Abs(got.RMS-0.5) > 1e-12 {
		t.Fatalf("Levels = %+v, want {0.5 0.5}", got)
	}
}

func TestTapWindowSlides(t *testing.T) {
	tap := NewTap(4)

	tap.Write([]float64{0.9}, []float64{0})
	tap.Write(make([]float64, 4), make([]float64, 4))

	if got := tap.Levels(); got.Peak != 0 {
		t.Fatalf("old peak still visible after window slid: %+v", got)
	}
}

func TestTapClampsToUnit(t *testing.T) {
	tap := NewTap(2)
	tap.Write([]float64{3, -3}, []float64{3, 3})

	got := tap.Levels()
	if got.Peak != 1 || got.RMS != 1 {
		t.Fatalf("Levels = %+v, want clamped to 1", got)
	}
}

func TestTapSineRMS(t *testing.T) {
	const n = 4800
	tap := NewTap(n)

	l := make([]float64, n)
	for i := range l {
		l[i] = math.Sin(2 * math.Pi * 100 * float64(i) / 48000)
	}
	tap.Write(l, l)

	got := tap.Levels()
	if math.Abs(got.RMS-1/math.Sqrt2) > 1e-3 {
		t.Fatalf("sine RMS = %g, want %g", got.RMS, 1/math.Sqrt2)
	}
	if math.Abs(got.Peak-1) > 1e-3 {
		t.Fatalf("sine peak = %g, want ~1", got.Peak)
	}
}

func TestTapConcurrentReadsNotTorn(t *testing.T) {
	tap := NewTap(256)

	ones := make([]float64, 256)
	halves := make([]float64, 256)
	for i := range ones {
		ones[i] = 1
		halves[i] = 0.5
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 2000 {
			if i%2 == 0 {
				tap.Write(ones, ones)
			} else {
				tap.Write(halves, halves)
			}
		}
	}()

	for range 2000 {
		lv := tap.Levels()
		// A whole window is either all ones, all halves or the initial zeros.
		if lv.Peak != 0 && math.Abs(lv.Peak-lv.RMS) > 1e-12 {
			t.Fatalf("torn window: %+v", lv)
		}
	}

	wg.Wait()
}
