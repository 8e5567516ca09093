package conv

import (
	"fmt"
	"slices"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Uniform implements uniformly partitioned overlap-save convolution.
//
// Every call to ProcessBlock consumes exactly BlockSize input samples and
// produces BlockSize output samples. The kernel is fixed at construction;
// swap kernels by building a new Uniform off the realtime path.
type Uniform struct {
	blockSize int
	fftSize   int // 2 * blockSize
	bins      int // blockSize + 1 unique bins of a real spectrum
	kernelLen int

	plan *algofft.Plan[complex128]

	// Kernel partition spectra, one per block of kernel. Only the
	// non-redundant bins are stored.
	parts [][]complex128

	// Frequency-domain delay line of past input spectra (ring).
	fdl    [][]complex128
	fdlPos int

	window []float64 // last fftSize input samples
	work   []complex128
	spec   []complex128
	acc    []complex128
}

// NewUniform creates a partitioned convolver for kernel with the given
// block size. blockSize must be a positive power of two.
func NewUniform(kernel []float64, blockSize int) (*Uniform, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}
	if !isPowerOf2(blockSize) {
		return nil, fmt.Errorf("%w: %d is not a power of two", ErrInvalidBlockSize, blockSize)
	}

	fftSize := 2 * blockSize

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	numParts := (len(kernel) + blockSize - 1) / blockSize

	u := &Uniform{
		blockSize: blockSize,
		fftSize:   fftSize,
		bins:      blockSize + 1,
		kernelLen: len(kernel),
		plan:      plan,
		parts:     make([][]complex128, numParts),
		fdl:       make([][]complex128, numParts),
		window:    make([]float64, fftSize),
		work:      make([]complex128, fftSize),
		spec:      make([]complex128, fftSize),
		acc:       make([]complex128, fftSize),
	}

	for p := range numParts {
		clear(u.work)

		start := p * blockSize
		end := min(start+blockSize, len(kernel))
		for i, v := range kernel[start:end] {
			u.work[i] = complex(v, 0)
		}

		if err := plan.Forward(u.spec, u.work); err != nil {
			return nil, fmt.Errorf("conv: failed to compute kernel FFT: %w", err)
		}

		u.parts[p] = slices.Clone(u.spec[:u.bins])
		u.fdl[p] = make([]complex128, u.bins)
	}

	return u, nil
}

// BlockSize returns the fixed block size.
func (u *Uniform) BlockSize() int { return u.blockSize }

// KernelLen returns the kernel length in samples.
func (u *Uniform) KernelLen() int { return u.kernelLen }

// Partitions returns the number of kernel partitions.
func (u *Uniform) Partitions() int { return len(u.parts) }

// ProcessBlock convolves one block of input into output.
// Both slices must have length BlockSize. input and output may alias.
func (u *Uniform) ProcessBlock(output, input []float64) error {
	if len(input) != u.blockSize {
		return fmt.Errorf("%w: expected %d input samples, got %d", ErrLengthMismatch, u.blockSize, len(input))
	}
	if len(output) != u.blockSize {
		return fmt.Errorf("%w: expected %d output samples, got %d", ErrLengthMismatch, u.blockSize, len(output))
	}

	if err := u.begin(input); err != nil {
		return err
	}
	u.accumulate(0, len(u.parts))

	return u.finish(output)
}

// begin pushes one input block into the delay line and clears the
// accumulator. len(input) must be blockSize.
func (u *Uniform) begin(input []float64) error {
	b := u.blockSize

	// Slide the input window: [previous block | current block].
	copy(u.window, u.window[b:])
	copy(u.window[b:], input)

	for i, v := range u.window {
		u.work[i] = complex(v, 0)
	}

	u.fdlPos--
	if u.fdlPos < 0 {
		u.fdlPos = len(u.fdl) - 1
	}

	if err := u.plan.Forward(u.spec, u.work); err != nil {
		return fmt.Errorf("conv: forward FFT failed: %w", err)
	}
	copy(u.fdl[u.fdlPos], u.spec[:u.bins])

	clear(u.acc)

	return nil
}

// accumulate adds partitions [from, to) into the accumulator.
func (u *Uniform) accumulate(from, to int) {
	n := len(u.fdl)
	for p := from; p < to; p++ {
		x := u.fdl[(u.fdlPos+p)%n]
		h := u.parts[p]
		acc := u.acc[:len(h)]
		for k := range h {
			acc[k] += x[k] * h[k]
		}
	}
}

// finish writes the accumulated block to output. len(output) must be
// blockSize.
func (u *Uniform) finish(output []float64) error {
	b := u.blockSize

	// Spectra of real signals are conjugate-symmetric; rebuild the upper
	// half from the accumulated bins.
	for k := 1; k < b; k++ {
		v := u.acc[k]
		u.acc[u.fftSize-k] = complex(real(v), -imag(v))
	}

	if err := u.plan.Inverse(u.work, u.acc); err != nil {
		return fmt.Errorf("conv: inverse FFT failed: %w", err)
	}

	// Discard the circular wrap in the first half.
	for i := range b {
		output[i] = real(u.work[b+i])
	}

	return nil
}

// Reset clears the input history.
func (u *Uniform) Reset() {
	clear(u.window)
	for _, x := range u.fdl {
		clear(x)
	}
	clear(u.acc)
	u.fdlPos = 0
}
