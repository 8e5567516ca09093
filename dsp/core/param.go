package core

import (
	"math"
	"sync/atomic"
)

// Param is a clamped float64 cell shared between the control goroutine and
// the render goroutine. Loads and stores never tear and never block.
type Param struct {
	bits     atomic.Uint64
	min, max float64
}

// NewParam returns a Param holding def clamped to [min, max].
func NewParam(def, min, max float64) *Param {
	p := &Param{min: min, max: max}
	p.Store(def)
	return p
}

// Store clamps v into range and publishes it. The stored value is returned.
func (p *Param) Store(v float64) float64 {
	v = Clamp(v, p.min, p.max)
	p.bits.Store(math.Float64bits(v))
	return v
}

// Load returns the latest published value.
func (p *Param) Load() float64 {
	return math.Float64frombits(p.bits.Load())
}

// Range returns the inclusive bounds.
func (p *Param) Range() (min, max float64) {
	return p.min, p.max
}

// Flag is a boolean counterpart to Param.
type Flag struct {
	v atomic.Bool
}

// Store publishes b.
func (f *Flag) Store(b bool) { f.v.Store(b) }

// Load returns the latest published value.
func (f *Flag) Load() bool { return f.v.Load() }
