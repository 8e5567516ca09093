package biquad

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-vecmath/cpu"
)

func TestSelectKernel(t *testing.T) {
	tests := []struct {
		name     string
		features cpu.Features
		want     string
	}{
		{"avx2", cpu.Features{HasSSE2: true, HasAVX: true, HasAVX2: true}, "unrolled4"},
		{"sse2 only", cpu.Features{HasSSE2: true}, "unrolled2"},
		{"neon", cpu.Features{HasNEON: true}, "unrolled4"},
		{"forced generic", cpu.Features{HasAVX2: true, ForceGeneric: true}, "unrolled2"},
		{"none", cpu.Features{}, "unrolled2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectKernel(tt.features).name; got != tt.want {
				t.Fatalf("selectKernel = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestKernelsMatchProcessSample(t *testing.T) {
	c := Coefficients{B0: 0.3, B1: -0.2, B2: 0.1, A1: -0.9, A2: 0.4}

	for _, k := range kernels {
		for _, n := range []int{0, 1, 3, 7, 64, 131} {
			ref := NewSection(c)
			want := make([]float64, n)
			buf := make([]float64, n)
			for i := range buf {
				buf[i] = math.Cos(float64(i) * 0.7)
				want[i] = ref.ProcessSample(buf[i])
			}

			d0, d1 := k.fn(c, 0, 0, buf)
			for i := range buf {
				if math.Abs(buf[i]-want[i]) > 1e-12 {
					t.Fatalf("%s n=%d index %d: got %v, want %v", k.name, n, i, buf[i], want[i])
				}
			}

			state := ref.State()
			if math.Abs(d0-state[0]) > 1e-12 || math.Abs(d1-state[1]) > 1e-12 {
				t.Fatalf("%s n=%d state = (%v, %v), want %v", k.name, n, d0, d1, state)
			}
		}
	}
}
