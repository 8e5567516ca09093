package buffer

// Stereo is a planar two-channel block.
type Stereo struct {
	L, R []float64
}

// NewStereo returns a zero-filled block of n frames.
func NewStereo(n int) Stereo {
	if n < 0 {
		n = 0
	}
	return Stereo{L: make([]float64, n), R: make([]float64, n)}
}

// Len returns the frame count.
func (s Stereo) Len() int {
	return len(s.L)
}

// Resize sets the frame count to n, reusing existing capacity when possible.
// Newly exposed frames are zeroed.
func (s *Stereo) Resize(n int) {
	s.L = resize(s.L, n)
	s.R = resize(s.R, n)
}

// Zero clears both channels.
func (s Stereo) Zero() {
	clear(s.L)
	clear(s.R)
}

// CopyFrom copies min(len) frames from src.
func (s Stereo) CopyFrom(src Stereo) {
	copy(s.L, src.L)
	copy(s.R, src.R)
}

func resize(buf []float64, n int) []float64 {
	if n < 0 {
		n = 0
	}
	old := len(buf)
	if n <= cap(buf) {
		buf = buf[:n]
	} else {
		grown := make([]float64, n)
		copy(grown, buf)
		buf = grown
	}
	if n > old {
		clear(buf[old:])
	}
	return buf
}
