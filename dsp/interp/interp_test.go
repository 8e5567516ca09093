package interp

import (
	"math"
	"testing"
)

func TestHermite4HitsEndpoints(t *testing.T) {
	if got := Hermite4(0, -1, 2, 5, 3); got != 2 {
		t.Fatalf("Hermite4(t=0) = %v, want 2", got)
	}
	if got := Hermite4(1, -1, 2, 5, 3); math.Abs(got-5) > 1e-12 {
		t.Fatalf("Hermite4(t=1) = %v, want 5", got)
	}
}

func TestHermite4ReproducesLine(t *testing.T) {
	for _, tt := range []float64{0.1, 0.25, 0.5, 0.9} {
		got := Hermite4(tt, 0, 1, 2, 3)
		if math.Abs(got-(1+tt)) > 1e-12 {
			t.Fatalf("Hermite4(%v) on a ramp = %v, want %v", tt, got, 1+tt)
		}
	}
}
