package spatial

import (
	"math"

	"github.com/cwbudde/algo-console/dsp/core"
)

// Panner is an equal-power stereo panner for stereo input.
//
// At pan 0 both channels pass unchanged. Panning left folds the right
// channel into the left with cos/sin gains and attenuates the right; panning
// right mirrors this, so a hard pan keeps the full signal on one side.
type Panner struct {
	pan float64

	// Gains applied to the channel that is being folded.
	gainL float64
	gainR float64
}

// NewPanner returns a centered panner.
func NewPanner() *Panner {
	p := &Panner{}
	p.SetPan(0)
	return p
}

// SetPan sets the position in [-1, 1]; out-of-range values are clamped.
func (p *Panner) SetPan(pan float64) {
	pan = core.Clamp(pan, -1, 1)
	p.pan = pan

	x := pan
	if pan <= 0 {
		x = pan + 1
	}

	p.gainL = math.Cos(x * math.Pi / 2)
	p.gainR = math.Sin(x * math.Pi / 2)
}

// Pan returns the current position.
func (p *Panner) Pan() float64 { return p.pan }

// ProcessStereo pans one frame.
func (p *Panner) ProcessStereo(l, r float64) (float64, float64) {
	if p.pan <= 0 {
		return l + r*p.gainL, r * p.gainR
	}
	return l * p.gainL, r + l*p.gainR
}

// ProcessBlock pans a stereo block in place.
func (p *Panner) ProcessBlock(l, r []float64) {
	for i := range l {
		l[i], r[i] = p.ProcessStereo(l[i], r[i])
	}
}
