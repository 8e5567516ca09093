// Package meter provides peak and RMS level meters whose window is written
// on the audio goroutine and read lock-free from any other goroutine.
package meter

import (
	"math"
	"sync"

	"github.com/cwbudde/algo-console/dsp/buffer"
	"github.com/cwbudde/algo-vecmath"
)

// DefaultWindow is the analysis window length in frames.
const DefaultWindow = 2048

// Levels is a pair of normalized meter readings in [0, 1].
type Levels struct {
	Peak float64
	RMS  float64
}

// Tap records the most recent window of stereo frames.
//
// Write belongs to one writer goroutine. Levels may be called concurrently
// from any goroutine; it may observe a stale window but never a torn one.
type Tap struct {
	frames int

	// writer side, interleaved L/R
	ring  []float64
	pos   int
	frame *buffer.Triple

	mu      sync.Mutex
	samples []float64
	squares []float64
}

// NewTap creates a tap over the given number of frames.
func NewTap(frames int) *Tap {
	if frames <= 0 {
		frames = DefaultWindow
	}
	return &Tap{
		frames:  frames,
		ring:    make([]float64, 2*frames),
		frame:   buffer.NewTriple(2 * frames),
		squares: make([]float64, 2*frames),
	}
}

// Frames returns the window length in frames.
func (t *Tap) Frames() int { return t.frames }

// Write appends one stereo block and publishes the updated window.
func (t *Tap) Write(l, r []float64) {
	if len(l) == 0 {
		return
	}

	n := len(t.ring)
	for i := range l {
		t.ring[t.pos] = l[i]
		t.ring[t.pos+1] = r[i]
		t.pos += 2
		if t.pos == n {
			t.pos = 0
		}
	}

	back := t.frame.Back()
	c := copy(back, t.ring[t.pos:])
	copy(back[c:], t.ring[:t.pos])
	t.frame.Publish()
}

// Levels returns peak = max |x| and rms = sqrt(mean x^2) over the latest
// published window, both clamped to [0, 1].
func (t *Tap) Levels() Levels {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples = t.frame.Snapshot(t.samples)
	return compute(t.samples, t.squares)
}

// Reset clears the window. It must not run concurrently with Write.
func (t *Tap) Reset() {
	clear(t.ring)
	t.pos = 0
	clear(t.frame.Back())
	t.frame.Publish()
}

func compute(samples, squares []float64) Levels {
	if len(samples) == 0 {
		return Levels{}
	}

	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}

	sq := squares[:len(samples)]
	vecmath.MulBlock(sq, samples, samples)

	sum := 0.0
	for _, v := range sq {
		sum += v
	}

	rms := math.Sqrt(sum / float64(len(samples)))

	return Levels{
		Peak: clamp01(peak),
		RMS:  clamp01(rms),
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
