package graph

import (
	"sync/atomic"

	"github.com/cwbudde/algo-console/dsp/buffer"
	"github.com/gopxl/beep"
)

// StreamerSource adapts a beep.Streamer to Generator. Once the streamer is
// drained it produces silence; its error, if any, is kept for Err.
type StreamerSource struct {
	s       beep.Streamer
	scratch [][2]float64
	done    atomic.Bool
	err     atomic.Pointer[error]
}

// NewStreamerSource wraps s.
func NewStreamerSource(s beep.Streamer) *StreamerSource {
	return &StreamerSource{s: s}
}

// Generate implements Generator.
func (src *StreamerSource) Generate(b buffer.Stereo) {
	if src.done.Load() {
		return
	}

	frames := b.Len()
	if cap(src.scratch) < frames {
		src.scratch = make([][2]float64, frames)
	}
	buf := src.scratch[:frames]

	filled := 0
	for filled < frames {
		n, ok := src.s.Stream(buf[filled:])
		filled += n
		if !ok {
			src.finish()
			break
		}
		if n == 0 {
			break
		}
	}

	for i := range filled {
		b.L[i] += buf[i][0]
		b.R[i] += buf[i][1]
	}
}

func (src *StreamerSource) finish() {
	src.done.Store(true)
	if err := src.s.Err(); err != nil {
		src.err.Store(&err)
	}
}

// Done reports whether the streamer has been drained.
func (src *StreamerSource) Done() bool { return src.done.Load() }

// Err returns the streamer's error after it finished, or nil.
func (src *StreamerSource) Err() error {
	if p := src.err.Load(); p != nil {
		return *p
	}
	return nil
}
