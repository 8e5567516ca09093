package conv

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-vecmath"
)

// Errors specific to partitioned convolution.
var (
	ErrInvalidPartitionSize = errors.New("conv: invalid partition size")
	ErrStageIndexOutOfRange = errors.New("conv: stage index out of range")
)

// DefaultMaxPartition caps the partition size of the last stage.
const DefaultMaxPartition = 8192

// Partitioned implements non-uniformly partitioned convolution for long
// kernels with no added latency.
//
// The kernel is split into stages with exponentially increasing partition
// sizes P = blockSize << k. Every stage but the last covers two partitions;
// the last stage, at the maximum partition size, takes the remainder:
//
//	kernel: | B  B | 2B  2B | 4B  4B | ... | M  M  M  M ...|
//	stage:      0       1        2            last
//
// Stage k starts at kernel offset 2P - 2*blockSize, which leaves it P
// samples of slack: it completes an input block every P/blockSize calls
// and may spread its multiply-accumulate work across the following
// P/blockSize calls before the result is due. The cost of a single
// ProcessBlock is therefore bounded by the kernel length divided by the
// largest stage's period, not by the kernel length.
type Partitioned struct {
	blockSize int
	kernelLen int

	stages []*partStage

	// out[0:blockSize] is the block due now; later samples belong to
	// future calls.
	out []float64
}

// partStage is one Uniform convolver feeding the shared accumulator.
type partStage struct {
	conv   *Uniform
	offset int
	period int // ProcessBlock calls per stage block
	chunk  int // partitions accumulated per call

	in   []float64 // input gathered for the next stage block
	fill int
	res  []float64

	phase int
	done  int // partitions accumulated in the running cycle
	busy  bool
}

// NewPartitioned creates a zero-latency convolver for kernel processing
// blocks of blockSize samples. maxPartition is the partition size of the
// last stage. Both must be powers of two with maxPartition >= blockSize.
func NewPartitioned(kernel []float64, blockSize, maxPartition int) (*Partitioned, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}
	if !isPowerOf2(blockSize) {
		return nil, fmt.Errorf("%w: %d is not a power of two", ErrInvalidBlockSize, blockSize)
	}
	if !isPowerOf2(maxPartition) || maxPartition < blockSize {
		return nil, fmt.Errorf("%w: %d must be a power of two >= %d",
			ErrInvalidPartitionSize, maxPartition, blockSize)
	}

	p := &Partitioned{blockSize: blockSize, kernelLen: len(kernel)}

	size, offset := blockSize, 0
	for offset < len(kernel) {
		end := min(offset+2*size, len(kernel))
		if size == maxPartition {
			end = len(kernel)
		}

		s, err := newPartStage(kernel[offset:end], offset, size, blockSize)
		if err != nil {
			return nil, err
		}

		p.stages = append(p.stages, s)
		offset = end
		size *= 2
	}

	p.out = make([]float64, len(p.stages[len(p.stages)-1].res))

	return p, nil
}

func newPartStage(segment []float64, offset, size, blockSize int) (*partStage, error) {
	u, err := NewUniform(segment, size)
	if err != nil {
		return nil, fmt.Errorf("conv: partitioned stage (size=%d): %w", size, err)
	}

	period := size / blockSize

	return &partStage{
		conv:   u,
		offset: offset,
		period: period,
		chunk:  (u.Partitions() + period - 1) / period,
		in:     make([]float64, size),
		res:    make([]float64, size),
	}, nil
}

// process feeds one block to the stage and, on the last call of a cycle,
// adds the stage output to out.
func (s *partStage) process(input, out []float64) error {
	copy(s.in[s.fill:], input)
	s.fill += len(input)

	if s.fill == len(s.in) {
		if err := s.conv.begin(s.in); err != nil {
			return err
		}
		s.fill, s.phase, s.done, s.busy = 0, 0, 0, true
	}

	if !s.busy {
		return nil
	}

	last := s.phase == s.period-1

	to := min(s.done+s.chunk, s.conv.Partitions())
	if last {
		to = s.conv.Partitions()
	}
	s.conv.accumulate(s.done, to)
	s.done = to
	s.phase++

	if !last {
		return nil
	}

	if err := s.conv.finish(s.res); err != nil {
		return err
	}
	vecmath.AddBlockInPlace(out[:len(s.res)], s.res)
	s.busy = false

	return nil
}

func (s *partStage) reset() {
	s.conv.Reset()
	clear(s.in)
	s.fill, s.phase, s.done, s.busy = 0, 0, 0, false
}

// ProcessBlock convolves one block of input into output with no latency.
// Both slices must have length BlockSize. input and output may alias.
func (p *Partitioned) ProcessBlock(output, input []float64) error {
	if len(input) != p.blockSize {
		return fmt.Errorf("%w: expected %d input samples, got %d", ErrLengthMismatch, p.blockSize, len(input))
	}
	if len(output) != p.blockSize {
		return fmt.Errorf("%w: expected %d output samples, got %d", ErrLengthMismatch, p.blockSize, len(output))
	}

	for _, s := range p.stages {
		if err := s.process(input, p.out); err != nil {
			return err
		}
	}

	b := p.blockSize
	copy(output, p.out[:b])
	copy(p.out, p.out[b:])
	clear(p.out[len(p.out)-b:])

	return nil
}

// Reset clears all internal state, ready for a fresh signal stream.
func (p *Partitioned) Reset() {
	for _, s := range p.stages {
		s.reset()
	}
	clear(p.out)
}

// BlockSize returns the fixed block size.
func (p *Partitioned) BlockSize() int { return p.blockSize }

// KernelLen returns the original kernel length.
func (p *Partitioned) KernelLen() int { return p.kernelLen }

// StageCount returns the number of partition stages.
func (p *Partitioned) StageCount() int { return len(p.stages) }

// StageInfo returns the partition size, the number of partitions and the
// kernel offset of the stage at index.
func (p *Partitioned) StageInfo(index int) (partSize, blockCount, offset int, err error) {
	if index < 0 || index >= len(p.stages) {
		return 0, 0, 0, fmt.Errorf("%w: index %d, have %d stages",
			ErrStageIndexOutOfRange, index, len(p.stages))
	}

	s := p.stages[index]

	return s.conv.BlockSize(), s.conv.Partitions(), s.offset, nil
}

// MaxBinsPerBlock returns the largest number of complex multiply-adds a
// single ProcessBlock call performs.
func (p *Partitioned) MaxBinsPerBlock() int {
	n := 0
	for _, s := range p.stages {
		n += s.chunk * s.conv.bins
	}
	return n
}
