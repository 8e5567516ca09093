package modulation

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-console/dsp/core"
	"github.com/cwbudde/algo-console/dsp/delay"
)

// Chorus parameter ranges.
const (
	MinChorusRateHz   = 0.1
	MaxChorusRateHz   = 10.0
	MaxChorusDepthMs  = 10.0
	MaxChorusFeedback = 0.9

	chorusBaseDelaySeconds = 0.020
)

// ChorusParams configures a Chorus. DepthMs is the LFO excursion around
// the 20 ms base delay.
type ChorusParams struct {
	RateHz   float64
	DepthMs  float64
	Feedback float64
	Mix      float64
}

// DefaultChorusParams returns a slow, moderately deep chorus.
func DefaultChorusParams() ChorusParams {
	return ChorusParams{RateHz: 1.5, DepthMs: 5, Feedback: 0.2, Mix: 0.5}
}

// Clamped limits every field to its range.
func (p ChorusParams) Clamped() ChorusParams {
	return ChorusParams{
		RateHz:   core.Clamp(p.RateHz, MinChorusRateHz, MaxChorusRateHz),
		DepthMs:  core.Clamp(p.DepthMs, 0, MaxChorusDepthMs),
		Feedback: core.Clamp(p.Feedback, 0, MaxChorusFeedback),
		Mix:      core.Clamp(p.Mix, 0, 1),
	}
}

// Chorus is a single modulated delay driven by a sine LFO.
//
// Delay time follows:
//
//	d(t) = baseDelay + depth * sin(phase)
//
// Both channels share the LFO, so the effect stays mono-compatible.
type Chorus struct {
	sampleRate float64
	params     ChorusParams

	lfoPhase float64
	lfoStep  float64

	left, right *delay.Line
	fbL, fbR    float64
}

// NewChorus creates a chorus with clamped parameters.
func NewChorus(sampleRate float64, p ChorusParams) (*Chorus, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("chorus sample rate must be > 0: %f", sampleRate)
	}
	maxSeconds := chorusBaseDelaySeconds + MaxChorusDepthMs*0.001
	left, err := delay.NewSeconds(sampleRate, maxSeconds)
	if err != nil {
		return nil, err
	}
	right, err := delay.NewSeconds(sampleRate, maxSeconds)
	if err != nil {
		return nil, err
	}

	c := &Chorus{sampleRate: sampleRate, left: left, right: right}
	c.SetParams(p)
	return c, nil
}

// Params returns the applied parameters.
func (c *Chorus) Params() ChorusParams { return c.params }

// SetParams clamps and applies p. The LFO phase is kept.
func (c *Chorus) SetParams(p ChorusParams) {
	c.params = p.Clamped()
	c.lfoStep = 2 * math.Pi * c.params.RateHz / c.sampleRate
}

// CurrentDelaySeconds returns the modulated delay for the current LFO phase.
func (c *Chorus) CurrentDelaySeconds() float64 {
	return chorusBaseDelaySeconds + c.params.DepthMs*0.001*math.Sin(c.lfoPhase)
}

// Process applies the chorus to l and r in place.
func (c *Chorus) Process(l, r []float64) {
	mix := c.params.Mix
	fb := c.params.Feedback

	n := min(len(l), len(r))
	for i := 0; i < n; i++ {
		d := c.CurrentDelaySeconds() * c.sampleRate

		c.left.Write(core.FlushDenormals(l[i] + c.fbL*fb))
		c.right.Write(core.FlushDenormals(r[i] + c.fbR*fb))

		wetL := c.left.ReadFractional(d)
		wetR := c.right.ReadFractional(d)
		c.fbL, c.fbR = wetL, wetR

		l[i] = l[i]*(1-mix) + wetL*mix
		r[i] = r[i]*(1-mix) + wetR*mix

		c.lfoPhase += c.lfoStep
		if c.lfoPhase >= 2*math.Pi {
			c.lfoPhase -= 2 * math.Pi
		}
	}
}

// Reset clears delay state and modulation phase.
func (c *Chorus) Reset() {
	c.left.Reset()
	c.right.Reset()
	c.fbL, c.fbR = 0, 0
	c.lfoPhase = 0
}
