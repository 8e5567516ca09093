package reverb

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-console/dsp/conv"
	"github.com/cwbudde/algo-console/dsp/core"
	"github.com/cwbudde/algo-console/dsp/delay"
)

// Parameter ranges.
const (
	MaxPredelay = 0.5

	defaultRoomSize = 0.5
)

// Params configures a convolution reverb.
type Params struct {
	RoomSize float64 // 0..1, scales the synthesized decay
	Decay    float64 // seconds
	Damping  float64 // 0..1
	Predelay float64 // seconds
	WetLevel float64 // 0..1
}

// DefaultParams returns the parameters of the given preset with neutral
// size, no predelay and full wet level.
func DefaultParams(p Preset) Params {
	return Params{
		RoomSize: defaultRoomSize,
		Decay:    p.Decay,
		Damping:  p.Damping,
		Predelay: 0,
		WetLevel: 1,
	}
}

// Clamped returns p with every field limited to its valid range.
func (p Params) Clamped() Params {
	return Params{
		RoomSize: core.Clamp(p.RoomSize, 0, 1),
		Decay:    core.Clamp(p.Decay, MinDecay, MaxDecay),
		Damping:  core.Clamp(p.Damping, 0, 1),
		Predelay: core.Clamp(p.Predelay, 0, MaxPredelay),
		WetLevel: core.Clamp(p.WetLevel, 0, 1),
	}
}

// EffectiveDecay returns the synthesized tail length for p.
// RoomSize 0.5 leaves Decay unchanged; 0 halves it and 1 makes it 1.5x.
func (p Params) EffectiveDecay() float64 {
	return core.Clamp(p.Decay*(0.5+p.RoomSize), MinDecay, MaxDecay*1.5)
}

// ShapeEquals reports whether p and q synthesize the same impulse.
func (p Params) ShapeEquals(q Params) bool {
	return p.RoomSize == q.RoomSize && p.Decay == q.Decay && p.Damping == q.Damping
}

type kernel struct {
	ir    *Impulse
	left  *conv.Partitioned
	right *conv.Partitioned
}

// Convolution is a stereo convolution reverb. The wet output is the input
// delayed by the predelay, convolved per channel with a unit-energy
// normalized copy of the impulse, and scaled by the wet level.
//
// Process, SetPredelay and SetWetLevel belong to the audio goroutine.
// SetImpulse may be called from any goroutine; the swap takes effect at the
// next block and restarts the tail.
type Convolution struct {
	sampleRate float64
	blockSize  int

	kernel atomic.Pointer[kernel]

	preL, preR *delay.Line
	predelay   int
	wet        float64
	scratchL   []float64
	scratchR   []float64
}

// NewConvolution creates a reverb for ir processing blocks of blockSize.
func NewConvolution(sampleRate float64, blockSize int, ir *Impulse) (*Convolution, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("reverb: sample rate must be positive and finite: %f", sampleRate)
	}

	preL, err := delay.NewSeconds(sampleRate, MaxPredelay)
	if err != nil {
		return nil, fmt.Errorf("reverb: predelay line: %w", err)
	}

	preR, err := delay.NewSeconds(sampleRate, MaxPredelay)
	if err != nil {
		return nil, fmt.Errorf("reverb: predelay line: %w", err)
	}

	c := &Convolution{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		preL:       preL,
		preR:       preR,
		wet:        1,
		scratchL:   make([]float64, blockSize),
		scratchR:   make([]float64, blockSize),
	}

	if err := c.SetImpulse(ir); err != nil {
		return nil, err
	}

	return c, nil
}

// SetImpulse prepares ir for convolution and swaps it in atomically.
// The FFT partitioning happens on the calling goroutine. Long impulses are
// split into growing partitions, so the per-block cost of Process stays
// flat up to the longest synthesized tail.
func (c *Convolution) SetImpulse(ir *Impulse) error {
	if ir.NumChannels() == 0 || ir.Len() == 0 {
		return errors.New("reverb: empty impulse response")
	}

	left := ir.Samples[0]
	right := left
	if ir.NumChannels() > 1 {
		right = ir.Samples[1]
	}

	scale := normalization(left, right)

	maxPart := max(conv.DefaultMaxPartition, c.blockSize)

	lc, err := conv.NewPartitioned(scaled(left, scale), c.blockSize, maxPart)
	if err != nil {
		return fmt.Errorf("reverb: left convolver: %w", err)
	}

	rc, err := conv.NewPartitioned(scaled(right, scale), c.blockSize, maxPart)
	if err != nil {
		return fmt.Errorf("reverb: right convolver: %w", err)
	}

	c.kernel.Store(&kernel{ir: ir, left: lc, right: rc})

	return nil
}

// Impulse returns the impulse currently in use.
func (c *Convolution) Impulse() *Impulse {
	return c.kernel.Load().ir
}

// BlockSize returns the fixed processing block size.
func (c *Convolution) BlockSize() int { return c.blockSize }

// SetPredelay sets the predelay in seconds, clamped to [0, MaxPredelay].
func (c *Convolution) SetPredelay(seconds float64) {
	c.predelay = int(math.Round(core.Clamp(seconds, 0, MaxPredelay) * c.sampleRate))
}

// PredelaySamples returns the current predelay in samples.
func (c *Convolution) PredelaySamples() int { return c.predelay }

// SetWetLevel sets the output level, clamped to [0, 1].
func (c *Convolution) SetWetLevel(level float64) {
	c.wet = core.Clamp(level, 0, 1)
}

// Process replaces one stereo block with the wet reverb signal.
// Both slices must have length BlockSize.
func (c *Convolution) Process(l, r []float64) error {
	k := c.kernel.Load()

	for i := range l {
		c.preL.Write(l[i])
		c.preR.Write(r[i])

		// Read(1) is the sample just written.
		c.scratchL[i] = c.preL.Read(c.predelay + 1)
		c.scratchR[i] = c.preR.Read(c.predelay + 1)
	}

	if err := k.left.ProcessBlock(l, c.scratchL); err != nil {
		return fmt.Errorf("reverb: %w", err)
	}
	if err := k.right.ProcessBlock(r, c.scratchR); err != nil {
		return fmt.Errorf("reverb: %w", err)
	}

	for i := range l {
		l[i] = core.FlushDenormals(l[i] * c.wet)
		r[i] = core.FlushDenormals(r[i] * c.wet)
	}

	return nil
}

// Reset clears the predelay lines and the convolution tail.
func (c *Convolution) Reset() {
	c.preL.Reset()
	c.preR.Reset()
	k := c.kernel.Load()
	k.left.Reset()
	k.right.Reset()
}

// normalization returns the gain that gives the louder channel unit energy.
func normalization(left, right []float64) float64 {
	var el, er float64
	for _, v := range left {
		el += v * v
	}
	for _, v := range right {
		er += v * v
	}

	e := math.Max(el, er)
	if e <= 0 {
		return 1
	}

	return 1 / math.Sqrt(e)
}

func scaled(src []float64, gain float64) []float64 {
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = v * gain
	}
	return out
}
