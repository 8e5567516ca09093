package biquad

import (
	"math"
	"testing"
)

func TestIdentityPassesThrough(t *testing.T) {
	s := NewSection(Identity())
	for _, x := range []float64{1, -0.5, 0.25, 0} {
		if got := s.ProcessSample(x); got != x {
			t.Fatalf("ProcessSample(%v) = %v, want %v", x, got, x)
		}
	}
}

func TestProcessBlockMatchesSample(t *testing.T) {
	c := Coefficients{B0: 0.2, B1: 0.4, B2: 0.2, A1: -0.6, A2: 0.2}
	a := NewSection(c)
	b := NewSection(c)

	buf := make([]float64, 64)
	for i := range buf {
		buf[i] = math.Sin(float64(i) * 0.3)
	}
	want := make([]float64, len(buf))
	for i, x := range buf {
		want[i] = a.ProcessSample(x)
	}
	b.ProcessBlock(buf)

	for i := range buf {
		if math.Abs(buf[i]-want[i]) > 1e-12 {
			t.Fatalf("index %d: got %v, want %v", i, buf[i], want[i])
		}
	}
}

func TestSetCoefficientsKeepsState(t *testing.T) {
	s := NewSection(Coefficients{B0: 1, B1: 1})
	s.ProcessSample(1)
	before := s.State()
	s.SetCoefficients(Identity())
	if s.State() != before {
		t.Fatalf("state changed: %v -> %v", before, s.State())
	}
	s.Reset()
	if s.State() != [2]float64{} {
		t.Fatalf("Reset() left state %v", s.State())
	}
}

func TestResponseOfIdentityIsUnity(t *testing.T) {
	c := Identity()
	if db := c.MagnitudeDB(1000, 48000); math.Abs(db) > 1e-12 {
		t.Fatalf("MagnitudeDB = %v, want 0", db)
	}
}
