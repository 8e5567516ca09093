package testutil

import (
	"math"
	"math/rand/v2"

	"github.com/gopxl/beep"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed.
func DeterministicNoise(seed uint64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Streamer plays l on the left and r on the right channel, then drains.
// A nil r duplicates l.
func Streamer(l, r []float64) beep.Streamer {
	if r == nil {
		r = l
	}
	n := min(len(l), len(r))
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= n {
			return 0, false
		}
		k := min(len(samples), n-pos)
		for i := range k {
			samples[i] = [2]float64{l[pos+i], r[pos+i]}
		}
		pos += k
		return k, true
	})
}

// Constant streams v on both channels forever.
func Constant(v float64) beep.Streamer {
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			samples[i] = [2]float64{v, v}
		}
		return len(samples), true
	})
}

// Frames splits interleaved stereo frames into left and right slices.
func Frames(frames [][2]float64) (l, r []float64) {
	l = make([]float64, len(frames))
	r = make([]float64, len(frames))
	for i, f := range frames {
		l[i], r[i] = f[0], f[1]
	}
	return l, r
}

// PeakAbs returns the largest absolute sample value.
func PeakAbs(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}
