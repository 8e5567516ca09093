package testutil

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-console/dsp/core"
)

// RequireSliceNearlyEqual fails tb at the worst sample when got deviates
// from want by more than eps, or when the lengths differ. NaN never passes.
func RequireSliceNearlyEqual(tb testing.TB, got, want []float64, eps float64) {
	tb.Helper()

	if len(got) != len(want) {
		tb.Fatalf("got %d samples, want %d", len(got), len(want))
		return
	}

	worst, at := 0.0, -1
	for i := range got {
		d := math.Abs(got[i] - want[i])
		if math.IsNaN(d) {
			worst, at = d, i
			break
		}
		if d > worst {
			worst, at = d, i
		}
	}

	if at >= 0 && !(worst <= eps) {
		tb.Fatalf("sample %d: got %v, want %v (off by %v, tolerance %v)", at, got[at], want[at], worst, eps)
	}
}

// RequireFinite fails tb at the first NaN or Inf sample.
func RequireFinite(tb testing.TB, samples []float64) {
	tb.Helper()

	for i, v := range samples {
		if !core.IsFinite(v) {
			tb.Fatalf("sample %d: non-finite value %v", i, v)
			return
		}
	}
}
