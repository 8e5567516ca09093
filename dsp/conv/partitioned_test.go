package conv

import (
	"errors"
	"math"
	"testing"
)

func runPartitioned(t *testing.T, p *Partitioned, signal []float64) []float64 {
	t.Helper()

	b := p.BlockSize()
	got := make([]float64, len(signal))
	for i := 0; i < len(signal); i += b {
		if err := p.ProcessBlock(got[i:i+b], signal[i:i+b]); err != nil {
			t.Fatalf("ProcessBlock: %v", err)
		}
	}
	return got
}

func TestPartitionedMatchesDirect(t *testing.T) {
	tests := []struct {
		name         string
		kernelLen    int
		blockSize    int
		maxPartition int
		blocks       int
	}{
		{"head only", 20, 16, 128, 8},
		{"truncated middle stage", 100, 8, 1024, 40},
		{"ragged last stage", 1000, 16, 64, 100},
		{"long tail", 5000, 32, 256, 200},
		{"single size", 300, 64, 64, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kernel := makeTestSignal(tt.kernelLen, 11)
			signal := makeTestSignal(tt.blockSize*tt.blocks, 12)

			p, err := NewPartitioned(kernel, tt.blockSize, tt.maxPartition)
			if err != nil {
				t.Fatalf("NewPartitioned: %v", err)
			}

			got := runPartitioned(t, p, signal)
			want := Direct(signal, kernel)
			for i := range got {
				if math.Abs(got[i]-want[i]) > 1e-8 {
					t.Fatalf("sample %d: got %g, want %g", i, got[i], want[i])
				}
			}
		})
	}
}

func TestPartitionedImpulseReproducesKernel(t *testing.T) {
	kernel := makeTestSignal(3000, 5)

	p, err := NewPartitioned(kernel, 32, 256)
	if err != nil {
		t.Fatalf("NewPartitioned: %v", err)
	}

	signal := make([]float64, 3200)
	signal[0] = 1

	got := runPartitioned(t, p, signal)
	for i, h := range kernel {
		if math.Abs(got[i]-h) > 1e-9 {
			t.Fatalf("tap %d: got %g, want %g", i, got[i], h)
		}
	}
	for i := len(kernel); i < len(got); i++ {
		if math.Abs(got[i]) > 1e-9 {
			t.Fatalf("sample %d after kernel: got %g, want 0", i, got[i])
		}
	}
}

func TestPartitionedStageLayout(t *testing.T) {
	p, err := NewPartitioned(make([]float64, 10000), 16, 128)
	if err != nil {
		t.Fatalf("NewPartitioned: %v", err)
	}

	want := []struct{ size, count, offset int }{
		{16, 2, 0},
		{32, 2, 32},
		{64, 2, 96},
		{128, 77, 224},
	}
	if p.StageCount() != len(want) {
		t.Fatalf("StageCount = %d, want %d", p.StageCount(), len(want))
	}
	for i, w := range want {
		size, count, offset, err := p.StageInfo(i)
		if err != nil {
			t.Fatalf("StageInfo(%d): %v", i, err)
		}
		if size != w.size || count != w.count || offset != w.offset {
			t.Fatalf("stage %d = (%d, %d, %d), want (%d, %d, %d)",
				i, size, count, offset, w.size, w.count, w.offset)
		}
	}

	if _, _, _, err := p.StageInfo(len(want)); !errors.Is(err, ErrStageIndexOutOfRange) {
		t.Fatalf("StageInfo out of range: got %v", err)
	}
}

func TestPartitionedWorkPerBlockIsBounded(t *testing.T) {
	// 15 s at 48 kHz, rendered in 256-sample blocks.
	const (
		kernelLen = 720000
		blockSize = 256
	)

	p, err := NewPartitioned(make([]float64, kernelLen), blockSize, DefaultMaxPartition)
	if err != nil {
		t.Fatalf("NewPartitioned: %v", err)
	}

	uniform := (kernelLen + blockSize - 1) / blockSize * (blockSize + 1)
	if got := p.MaxBinsPerBlock(); got*10 > uniform {
		t.Fatalf("MaxBinsPerBlock = %d, want below a tenth of %d", got, uniform)
	}
}

func TestPartitionedReset(t *testing.T) {
	kernel := makeTestSignal(500, 2)
	signal := makeTestSignal(640, 3)

	p, err := NewPartitioned(kernel, 16, 64)
	if err != nil {
		t.Fatalf("NewPartitioned: %v", err)
	}

	first := runPartitioned(t, p, signal)
	p.Reset()
	second := runPartitioned(t, p, signal)

	for i := range first {
		if math.Abs(first[i]-second[i]) > 1e-12 {
			t.Fatalf("sample %d differs after reset: %g vs %g", i, first[i], second[i])
		}
	}
}

func TestPartitionedErrors(t *testing.T) {
	if _, err := NewPartitioned(nil, 64, 256); !errors.Is(err, ErrEmptyKernel) {
		t.Fatalf("empty kernel: got %v", err)
	}
	if _, err := NewPartitioned([]float64{1}, 48, 256); !errors.Is(err, ErrInvalidBlockSize) {
		t.Fatalf("block 48: got %v", err)
	}
	if _, err := NewPartitioned([]float64{1}, 64, 32); !errors.Is(err, ErrInvalidPartitionSize) {
		t.Fatalf("max partition below block: got %v", err)
	}
	if _, err := NewPartitioned([]float64{1}, 64, 100); !errors.Is(err, ErrInvalidPartitionSize) {
		t.Fatalf("max partition 100: got %v", err)
	}

	p, err := NewPartitioned([]float64{1}, 8, 8)
	if err != nil {
		t.Fatalf("NewPartitioned: %v", err)
	}
	if err := p.ProcessBlock(make([]float64, 8), make([]float64, 7)); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("short input: got %v", err)
	}
}
