package reverb

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-console/dsp/core"
)

// Impulse synthesis constants.
const (
	// envelopeRate gives exp(-5) (about -43 dB) at t = decay.
	envelopeRate = 5.0

	reflectionAFreqHz  = 550.0
	reflectionASpacing = 1103
	reflectionAGain    = 0.3
	reflectionBFreqHz  = 1250.0
	reflectionBSpacing = 1777
	reflectionBGain    = 0.2

	MinDecay = 0.1
	MaxDecay = 10.0
)

// ErrInvalidDecay is returned for non-positive or non-finite decay times.
var ErrInvalidDecay = errors.New("reverb: invalid decay time")

// Impulse is an immutable stereo impulse response.
// Samples[0] is the left channel, Samples[1] the right.
type Impulse struct {
	SampleRate float64
	Decay      float64
	Damping    float64
	Samples    [][]float64
}

// Len returns the impulse length in samples per channel.
func (ir *Impulse) Len() int {
	if ir == nil || len(ir.Samples) == 0 {
		return 0
	}
	return len(ir.Samples[0])
}

// NumChannels returns the channel count.
func (ir *Impulse) NumChannels() int {
	if ir == nil {
		return 0
	}
	return len(ir.Samples)
}

// GenerateImpulse synthesizes a stereo impulse response of
// round(sampleRate*decay) samples per channel.
//
// Each sample is noise shaped by exp(-t*5/decay) and a linear damping ramp
// 1-(t/decay)*damping, plus two sparse sinusoidal reflection taps scaled by
// the envelope. Channels draw independent noise. A nil rng uses a randomly
// seeded generator, so two calls yield different tails of equal length.
func GenerateImpulse(sampleRate, decay, damping float64, rng *rand.Rand) (*Impulse, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("reverb: sample rate must be positive and finite: %f", sampleRate)
	}
	if decay <= 0 || !core.IsFinite(decay) {
		return nil, fmt.Errorf("%w: %f", ErrInvalidDecay, decay)
	}
	if math.IsNaN(damping) {
		damping = 0
	}
	damping = math.Max(0, math.Min(1, damping))

	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	n := max(int(math.Round(sampleRate*decay)), 1)

	ir := &Impulse{
		SampleRate: sampleRate,
		Decay:      decay,
		Damping:    damping,
		Samples:    [][]float64{make([]float64, n), make([]float64, n)},
	}

	for _, ch := range ir.Samples {
		for i := range ch {
			t := float64(i) / sampleRate
			env := math.Exp(-t * envelopeRate / decay)
			dampingFactor := 1 - (t/decay)*damping

			s := (rng.Float64()*2 - 1) * env * dampingFactor

			if i%reflectionASpacing == 0 {
				s += reflectionAGain * env * math.Sin(2*math.Pi*reflectionAFreqHz*t)
			}
			if i%reflectionBSpacing == 0 {
				s += reflectionBGain * env * math.Sin(2*math.Pi*reflectionBFreqHz*t)
			}

			ch[i] = s
		}
	}

	return ir, nil
}
