package spectrum

import (
	"fmt"
	"math"
	"sync"

	"github.com/cwbudde/algo-console/dsp/buffer"
	"github.com/cwbudde/algo-console/dsp/window"
	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// DefaultFFTSize is the analysis frame length.
const DefaultFFTSize = 2048

const maxSmoothing = 0.95

// Option configures an Analyzer.
type Option func(*config)

type config struct {
	window    window.Type
	smoothing float64
}

// WithWindow selects the analysis window. The default is Blackman.
func WithWindow(t window.Type) Option {
	return func(c *config) {
		c.window = t
	}
}

// WithSmoothing sets the exponential smoothing between successive reads,
// clamped to [0, 0.95]. The default is 0.8.
func WithSmoothing(s float64) Option {
	return func(c *config) {
		switch {
		case math.IsNaN(s) || s < 0:
			s = 0
		case s > maxSmoothing:
			s = maxSmoothing
		}
		c.smoothing = s
	}
}

// Analyzer computes magnitude spectra of the most recent fftSize samples.
//
// Write belongs to a single writer goroutine. Magnitudes may be called from
// any goroutine.
type Analyzer struct {
	fftSize int

	// writer side
	ring  []float64
	pos   int
	frame *buffer.Triple

	// reader side
	mu        sync.Mutex
	plan      *algofft.Plan[complex128]
	win       []float64
	norm      float64
	smoothing float64
	samples   []float64
	in        []complex128
	out       []complex128
	re, im    []float64
	mag       []float64
	smoothed  []float64
	primed    bool
}

// NewAnalyzer creates an analyzer with the given power-of-two frame size.
func NewAnalyzer(fftSize int, opts ...Option) (*Analyzer, error) {
	if fftSize < 2 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("spectrum: fft size must be a power of two >= 2: %d", fftSize)
	}

	cfg := config{window: window.TypeBlackman, smoothing: 0.8}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("spectrum init fft plan: %w", err)
	}

	win := window.Generate(cfg.window, fftSize, window.WithPeriodic())
	gain := math.Max(window.CoherentGain(win), 1e-12)
	bins := fftSize / 2

	return &Analyzer{
		fftSize:   fftSize,
		ring:      make([]float64, fftSize),
		frame:     buffer.NewTriple(fftSize),
		plan:      plan,
		win:       win,
		norm:      2 / (float64(fftSize) * gain),
		smoothing: cfg.smoothing,
		in:        make([]complex128, fftSize),
		out:       make([]complex128, fftSize),
		re:        make([]float64, bins),
		im:        make([]float64, bins),
		mag:       make([]float64, bins),
		smoothed:  make([]float64, bins),
	}, nil
}

// FFTSize returns the analysis frame length.
func (a *Analyzer) FFTSize() int { return a.fftSize }

// Bins returns the number of magnitude bins, FFTSize/2.
func (a *Analyzer) Bins() int { return a.fftSize / 2 }

// Write appends samples to the analysis window and publishes it.
func (a *Analyzer) Write(samples []float64) {
	if len(samples) == 0 {
		return
	}

	for _, s := range samples {
		a.ring[a.pos] = s
		a.pos++
		if a.pos == a.fftSize {
			a.pos = 0
		}
	}

	// Oldest sample first.
	back := a.frame.Back()
	n := copy(back, a.ring[a.pos:])
	copy(back[n:], a.ring[:a.pos])
	a.frame.Publish()
}

// WriteStereo writes the mid signal (l+r)/2 of a stereo block.
// scratch must hold at least len(l) samples.
func (a *Analyzer) WriteStereo(l, r, scratch []float64) {
	mid := scratch[:len(l)]
	copy(mid, l)
	vecmath.AddBlockInPlace(mid, r)
	vecmath.ScaleBlock(mid, mid, 0.5)
	a.Write(mid)
}

// Magnitudes writes the linear magnitude of bins [0, FFTSize/2) to dst and
// returns it. A full-scale sinusoid centered on a bin reads close to 1.
func (a *Analyzer) Magnitudes(dst []float32) []float32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.samples = a.frame.Snapshot(a.samples)
	for i, s := range a.samples {
		a.in[i] = complex(s*a.win[i], 0)
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		clear(a.mag)
	} else {
		for k := range a.re {
			a.re[k] = real(a.out[k])
			a.im[k] = imag(a.out[k])
		}
		vecmath.Magnitude(a.mag, a.re, a.im)
		vecmath.ScaleBlock(a.mag, a.mag, a.norm)
		a.mag[0] *= 0.5
	}

	if !a.primed {
		copy(a.smoothed, a.mag)
		a.primed = true
	} else {
		s := a.smoothing
		for k, m := range a.mag {
			a.smoothed[k] = s*a.smoothed[k] + (1-s)*m
		}
	}

	if cap(dst) < len(a.smoothed) {
		dst = make([]float32, len(a.smoothed))
	}
	dst = dst[:len(a.smoothed)]
	for k, v := range a.smoothed {
		dst[k] = float32(v)
	}

	return dst
}

// Reset clears the writer ring and the smoothing state. It must not run
// concurrently with Write.
func (a *Analyzer) Reset() {
	clear(a.ring)
	a.pos = 0
	clear(a.frame.Back())
	a.frame.Publish()

	a.mu.Lock()
	clear(a.smoothed)
	a.primed = false
	a.mu.Unlock()
}
