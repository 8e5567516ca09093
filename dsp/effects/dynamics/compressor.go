package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-console/dsp/core"
)

// log2Of10Div20 converts decibels to the log2 domain: log2(10) / 20.
const log2Of10Div20 = 0.166096404744

// Compressor is a stereo-linked soft-knee compressor.
//
// It is single-threaded: Process and SetParams must be called from the
// render goroutine. Cross-goroutine parameter changes go through the
// owning node, which calls SetParams between quanta.
type Compressor struct {
	params     Params
	sampleRate float64

	envelope float64

	attackCoeff      float64
	releaseCoeff     float64
	thresholdLog2    float64
	kneeWidthLog2    float64
	invKneeWidthLog2 float64

	minGain float64
}

// NewCompressor creates a compressor with the given parameters (clamped).
func NewCompressor(sampleRate float64, p Params) (*Compressor, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("compressor sample rate must be positive and finite: %f", sampleRate)
	}

	c := &Compressor{sampleRate: sampleRate, minGain: 1}
	c.SetParams(p)
	return c, nil
}

// Params returns the current (clamped) parameters.
func (c *Compressor) Params() Params { return c.params }

// SampleRate returns the current sample rate in Hz.
func (c *Compressor) SampleRate() float64 { return c.sampleRate }

// SetParams clamps and applies p, recalculating cached coefficients.
// Envelope state is preserved.
func (c *Compressor) SetParams(p Params) {
	c.params = p.Clamped()

	c.thresholdLog2 = c.params.ThresholdDB * log2Of10Div20
	c.kneeWidthLog2 = c.params.KneeDB * log2Of10Div20
	if c.params.KneeDB > 0 {
		c.invKneeWidthLog2 = 1.0 / c.kneeWidthLog2
	} else {
		c.invKneeWidthLog2 = 0
	}

	c.attackCoeff = attackCoefficient(c.params.Attack, c.sampleRate)
	c.releaseCoeff = releaseCoefficient(c.params.Release, c.sampleRate)
}

// ProcessSample processes one mono sample.
func (c *Compressor) ProcessSample(x float64) float64 {
	return x * c.detect(math.Abs(x))
}

// ProcessStereo compresses l and r in place with a linked detector.
func (c *Compressor) ProcessStereo(l, r []float64) {
	n := min(len(l), len(r))
	for i := 0; i < n; i++ {
		level := math.Max(math.Abs(l[i]), math.Abs(r[i]))
		g := c.detect(level)
		l[i] *= g
		r[i] *= g
	}
}

// CalculateOutputLevel computes the steady-state output level for a given
// input magnitude. This allows visualizing the compression curve.
func (c *Compressor) CalculateOutputLevel(inputMagnitude float64) float64 {
	inputMagnitude = math.Abs(inputMagnitude)
	return inputMagnitude * c.calculateGain(inputMagnitude)
}

// GainReductionDB returns the deepest gain reduction since the last
// ResetMetrics as a non-negative dB value.
func (c *Compressor) GainReductionDB() float64 {
	return -20 * math.Log10(c.minGain)
}

// ResetMetrics clears the gain reduction meter.
func (c *Compressor) ResetMetrics() {
	c.minGain = 1
}

// Reset clears the envelope follower and metrics.
func (c *Compressor) Reset() {
	c.envelope = 0
	c.minGain = 1
}

func (c *Compressor) detect(level float64) float64 {
	if level > c.envelope {
		c.envelope += (level - c.envelope) * c.attackCoeff
	} else {
		c.envelope = level + (c.envelope-level)*c.releaseCoeff
	}

	g := c.calculateGain(c.envelope)
	if g < c.minGain {
		c.minGain = g
	}
	return g
}

// calculateGain computes the gain multiplier using the log2-domain soft-knee
// formula: a quadratic blend over the knee width around the threshold.
func (c *Compressor) calculateGain(level float64) float64 {
	if level <= 0 {
		return 1.0
	}

	overshoot := math.Log2(level) - c.thresholdLog2

	if c.params.KneeDB <= 0 {
		if overshoot <= 0 {
			return 1.0
		}
		return math.Exp2(-overshoot * (1.0 - 1.0/c.params.Ratio))
	}

	halfWidth := c.kneeWidthLog2 * 0.5
	var effective float64

	switch {
	case overshoot < -halfWidth:
		return 1.0
	case overshoot > halfWidth:
		effective = overshoot
	default:
		scratch := overshoot + halfWidth
		effective = scratch * scratch * 0.5 * c.invKneeWidthLog2
	}

	return math.Exp2(-effective * (1.0 - 1.0/c.params.Ratio))
}

func attackCoefficient(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 1
	}
	return 1.0 - math.Exp(-math.Ln2/(seconds*sampleRate))
}

func releaseCoefficient(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(-math.Ln2 / (seconds * sampleRate))
}
