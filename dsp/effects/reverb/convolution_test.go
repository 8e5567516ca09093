package reverb

import (
	"math"
	"math/rand/v2"
	"testing"
)

func newTestImpulse(t *testing.T) *Impulse {
	t.Helper()
	ir, err := GenerateImpulse(8000, 0.2, 0.3, rand.New(rand.NewPCG(9, 10)))
	if err != nil {
		t.Fatalf("GenerateImpulse: %v", err)
	}
	return ir
}

func TestConvolutionImpulseResponse(t *testing.T) {
	ir := newTestImpulse(t)

	c, err := NewConvolution(8000, 64, ir)
	if err != nil {
		t.Fatalf("NewConvolution: %v", err)
	}

	l := make([]float64, 64)
	r := make([]float64, 64)
	l[0], r[0] = 1, 1

	var out []float64
	for range (ir.Len() + 63) / 64 {
		if err := c.Process(l, r); err != nil {
			t.Fatalf("Process: %v", err)
		}
		out = append(out, l...)
		clear(l)
		clear(r)
	}

	scale := normalization(ir.Samples[0], ir.Samples[1])
	for i := range ir.Len() {
		want := ir.Samples[0][i] * scale
		if math.Abs(out[i]-want) > 1e-9 {
			t.Fatalf("sample %d: got %g, want %g", i, out[i], want)
		}
	}
}

func TestConvolutionPredelayAndWet(t *testing.T) {
	ir := &Impulse{SampleRate: 8000, Samples: [][]float64{{1}, {1}}}

	c, err := NewConvolution(8000, 64, ir)
	if err != nil {
		t.Fatalf("NewConvolution: %v", err)
	}

	c.SetPredelay(0.001) // 8 samples
	c.SetWetLevel(0.5)
	if c.PredelaySamples() != 8 {
		t.Fatalf("PredelaySamples = %d, want 8", c.PredelaySamples())
	}

	l := make([]float64, 64)
	r := make([]float64, 64)
	l[0] = 1

	if err := c.Process(l, r); err != nil {
		t.Fatalf("Process: %v", err)
	}

	for i, v := range l {
		want := 0.0
		if i == 8 {
			want = 0.5
		}
		if math.Abs(v-want) > 1e-9 {
			t.Fatalf("l[%d] = %g, want %g", i, v, want)
		}
	}

	c.SetPredelay(10)
	if c.PredelaySamples() != int(MaxPredelay*8000) {
		t.Fatalf("predelay not clamped: %d", c.PredelaySamples())
	}
}

func TestConvolutionSetImpulseSwaps(t *testing.T) {
	c, err := NewConvolution(8000, 64, newTestImpulse(t))
	if err != nil {
		t.Fatalf("NewConvolution: %v", err)
	}

	next := &Impulse{SampleRate: 8000, Samples: [][]float64{{0, 1}, {0, 1}}}
	if err := c.SetImpulse(next); err != nil {
		t.Fatalf("SetImpulse: %v", err)
	}
	if c.Impulse() != next {
		t.Fatal("Impulse did not report the swapped buffer")
	}

	l := make([]float64, 64)
	r := make([]float64, 64)
	l[0] = 1
	if err := c.Process(l, r); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if math.Abs(l[1]-1) > 1e-9 || math.Abs(l[0]) > 1e-9 {
		t.Fatalf("swapped kernel not applied: l[0]=%g l[1]=%g", l[0], l[1])
	}

	if err := c.SetImpulse(&Impulse{}); err == nil {
		t.Fatal("expected error for empty impulse")
	}
}

func TestParamsClampedAndEffectiveDecay(t *testing.T) {
	p := Params{RoomSize: 2, Decay: 50, Damping: -1, Predelay: 3, WetLevel: 1.5}.Clamped()
	want := Params{RoomSize: 1, Decay: MaxDecay, Damping: 0, Predelay: MaxPredelay, WetLevel: 1}
	if p != want {
		t.Fatalf("Clamped = %+v, want %+v", p, want)
	}

	hall, _ := PresetByName("hall")
	d := DefaultParams(hall)
	if d.EffectiveDecay() != hall.Decay {
		t.Fatalf("EffectiveDecay at default size = %g, want %g", d.EffectiveDecay(), hall.Decay)
	}

	bigger := d
	bigger.RoomSize = 1
	if bigger.EffectiveDecay() <= d.EffectiveDecay() {
		t.Fatal("larger room did not lengthen decay")
	}
	if d.ShapeEquals(bigger) {
		t.Fatal("ShapeEquals ignored room size")
	}

	wetter := d
	wetter.WetLevel = 0.2
	if !d.ShapeEquals(wetter) {
		t.Fatal("ShapeEquals compared wet level")
	}
}

func TestConvolutionLongestTailKeepsBlockCostFlat(t *testing.T) {
	const (
		sampleRate = 48000
		blockSize  = 256
	)

	p := Params{RoomSize: 1, Decay: MaxDecay}.Clamped()
	ir, err := GenerateImpulse(sampleRate, p.EffectiveDecay(), p.Damping, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("GenerateImpulse: %v", err)
	}

	c, err := NewConvolution(sampleRate, blockSize, ir)
	if err != nil {
		t.Fatalf("NewConvolution: %v", err)
	}

	k := c.kernel.Load()
	if k.left.KernelLen() != ir.Len() {
		t.Fatalf("KernelLen = %d, want %d", k.left.KernelLen(), ir.Len())
	}
	if k.left.StageCount() < 2 {
		t.Fatalf("StageCount = %d, want a multi-stage layout", k.left.StageCount())
	}

	// A single-size partitioning touches every partition on every block.
	uniform := (ir.Len() + blockSize - 1) / blockSize * (blockSize + 1)
	if got := k.left.MaxBinsPerBlock(); got*10 > uniform {
		t.Fatalf("MaxBinsPerBlock = %d, want below a tenth of %d", got, uniform)
	}

	l := make([]float64, blockSize)
	r := make([]float64, blockSize)
	l[0], r[0] = 1, 1
	for range 64 {
		if err := c.Process(l, r); err != nil {
			t.Fatalf("Process: %v", err)
		}
		clear(l)
		clear(r)
	}
}
