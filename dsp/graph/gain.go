package graph

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-console/dsp/buffer"
	"github.com/cwbudde/algo-vecmath"
)

// Gain scales a block by a linear factor that may be changed from any
// goroutine. Changes apply at the next quantum without ramping.
type Gain struct {
	bits atomic.Uint64
}

// NewGain returns a gain stage set to g.
func NewGain(g float64) *Gain {
	x := &Gain{}
	x.Set(g)
	return x
}

// Set stores the gain. Negative and NaN values become 0.
func (g *Gain) Set(v float64) {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	g.bits.Store(math.Float64bits(v))
}

// Value returns the current gain.
func (g *Gain) Value() float64 {
	return math.Float64frombits(g.bits.Load())
}

// Process implements Processor.
func (g *Gain) Process(b buffer.Stereo) {
	v := g.Value()

	switch v {
	case 1:
		return
	case 0:
		b.Zero()
		return
	}

	vecmath.ScaleBlock(b.L, b.L, v)
	vecmath.ScaleBlock(b.R, b.R, v)
}

// Chain runs processors in order.
type Chain []Processor

// Process implements Processor.
func (c Chain) Process(b buffer.Stereo) {
	for _, p := range c {
		p.Process(b)
	}
}
