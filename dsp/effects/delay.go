package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-console/dsp/core"
	"github.com/cwbudde/algo-console/dsp/delay"
	"github.com/cwbudde/algo-console/dsp/filter/biquad"
	"github.com/cwbudde/algo-console/dsp/filter/design"
)

// Delay parameter ranges.
const (
	MinDelayTime     = 0.001
	MaxDelayTime     = 2.0
	MaxDelayFeedback = 0.95
	MinDelayHighCut  = 200.0
	MaxDelayHighCut  = 20000.0
	MinDelayLowCut   = 20.0
	MaxDelayLowCut   = 2000.0

	// rightTimeRatio spreads the right line against the left for width.
	rightTimeRatio = 1.5
)

// DelayParams configures a StereoDelay. Time is the left-line delay in
// seconds; the right line runs 1.5x longer.
type DelayParams struct {
	Time      float64
	Feedback  float64
	HighCutHz float64
	LowCutHz  float64
	WetLevel  float64
}

// DefaultDelayParams returns a dotted-eighth style echo at 120 BPM.
func DefaultDelayParams() DelayParams {
	return DelayParams{Time: 0.375, Feedback: 0.4, HighCutHz: 6000, LowCutHz: 120, WetLevel: 1}
}

// Clamped limits every field to its range. Feedback never exceeds 0.95, so
// the loop gain stays below unity at any filter setting.
func (p DelayParams) Clamped() DelayParams {
	return DelayParams{
		Time:      core.Clamp(p.Time, MinDelayTime, MaxDelayTime),
		Feedback:  core.Clamp(p.Feedback, 0, MaxDelayFeedback),
		HighCutHz: core.Clamp(p.HighCutHz, MinDelayHighCut, MaxDelayHighCut),
		LowCutHz:  core.Clamp(p.LowCutHz, MinDelayLowCut, MaxDelayLowCut),
		WetLevel:  core.Clamp(p.WetLevel, 0, 1),
	}
}

// StereoDelay is a two-line feedback delay. Each line has its own time and
// feedback gain; a high-cut/low-cut pair sits inside each feedback loop, so
// every repeat passes the filters once more and darkens.
//
// Output is wet only: the delay runs on a send bus.
type StereoDelay struct {
	sampleRate float64
	params     DelayParams

	left, right *delay.Line
	lSamples    int
	rSamples    int
	lpL, lpR    biquad.Section
	hpL, hpR    biquad.Section
}

// NewStereoDelay creates a delay with clamped parameters.
func NewStereoDelay(sampleRate float64, p DelayParams) (*StereoDelay, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("delay sample rate must be > 0: %f", sampleRate)
	}
	left, err := delay.NewSeconds(sampleRate, MaxDelayTime)
	if err != nil {
		return nil, err
	}
	right, err := delay.NewSeconds(sampleRate, MaxDelayTime)
	if err != nil {
		return nil, err
	}

	d := &StereoDelay{sampleRate: sampleRate, left: left, right: right}
	d.SetParams(p)
	return d, nil
}

// Params returns the applied parameters.
func (d *StereoDelay) Params() DelayParams { return d.params }

// SetParams clamps and applies p. Line contents are kept.
func (d *StereoDelay) SetParams(p DelayParams) {
	d.params = p.Clamped()

	d.lSamples = d.samples(d.params.Time)
	d.rSamples = d.samples(math.Min(d.params.Time*rightTimeRatio, MaxDelayTime))

	lp := design.Lowpass(d.params.HighCutHz, design.DefaultQ, d.sampleRate)
	hp := design.Highpass(d.params.LowCutHz, design.DefaultQ, d.sampleRate)
	d.lpL.SetCoefficients(lp)
	d.lpR.SetCoefficients(lp)
	d.hpL.SetCoefficients(hp)
	d.hpR.SetCoefficients(hp)
}

// TimesSamples returns the left and right delay lengths.
func (d *StereoDelay) TimesSamples() (left, right int) {
	return d.lSamples, d.rSamples
}

// Process replaces l and r with the wet delay output.
func (d *StereoDelay) Process(l, r []float64) {
	fb := d.params.Feedback
	wet := d.params.WetLevel

	n := min(len(l), len(r))
	for i := 0; i < n; i++ {
		tapL := d.hpL.ProcessSample(d.lpL.ProcessSample(d.left.Read(d.lSamples)))
		tapR := d.hpR.ProcessSample(d.lpR.ProcessSample(d.right.Read(d.rSamples)))

		d.left.Write(core.FlushDenormals(l[i] + tapL*fb))
		d.right.Write(core.FlushDenormals(r[i] + tapR*fb))

		l[i] = tapL * wet
		r[i] = tapR * wet
	}
}

// Reset clears both lines and filter state.
func (d *StereoDelay) Reset() {
	d.left.Reset()
	d.right.Reset()
	d.lpL.Reset()
	d.lpR.Reset()
	d.hpL.Reset()
	d.hpR.Reset()
}

func (d *StereoDelay) samples(seconds float64) int {
	n := int(math.Round(seconds * d.sampleRate))
	if n < 1 {
		n = 1
	}
	if limit := d.left.Len() - 1; n > limit {
		n = limit
	}
	return n
}
