package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// OutputContext is the realtime sink the engine renders into. Open starts
// pulling src on the context's own goroutine, unless the platform keeps the
// context suspended until a user gesture; Resume then starts playback.
type OutputContext interface {
	Open(ctx context.Context, sampleRate, bufferFrames int, src beep.Streamer) error
	Suspended() bool
	Resume() error
	Close() error
}

// GestureSource notifies listeners of user gestures that allow a suspended
// output to resume. The returned func removes the listener.
type GestureSource interface {
	OnGesture(fn func()) (remove func())
}

// ErrOutputClosed is returned by Resume on a closed output.
var ErrOutputClosed = errors.New("console: output context closed")

// SpeakerContext plays through the system audio device with beep/speaker.
// The speaker is process global; open at most one SpeakerContext at a time.
type SpeakerContext struct {
	// StartSuspended defers playback until Resume, the way browser audio
	// waits for a user gesture.
	StartSuspended bool

	mu        sync.Mutex
	src       beep.Streamer
	open      bool
	suspended bool
}

// Open implements OutputContext.
func (s *SpeakerContext) Open(ctx context.Context, sampleRate, bufferFrames int, src beep.Streamer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := speaker.Init(beep.SampleRate(sampleRate), bufferFrames); err != nil {
		return err
	}

	s.src = src
	s.open = true
	s.suspended = s.StartSuspended
	if !s.suspended {
		speaker.Play(src)
	}

	return nil
}

// Suspended implements OutputContext.
func (s *SpeakerContext) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// Resume implements OutputContext.
func (s *SpeakerContext) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return ErrOutputClosed
	}
	if s.suspended {
		s.suspended = false
		speaker.Play(s.src)
	}
	return nil
}

// Close implements OutputContext.
func (s *SpeakerContext) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	speaker.Clear()
	speaker.Close()
	s.open = false
	s.src = nil
	return nil
}

// OfflineContext renders on demand instead of on a device clock. It backs
// tests and offline bounces.
type OfflineContext struct {
	// StartSuspended makes Open leave the context suspended until Resume.
	StartSuspended bool

	// OpenDelay stalls Open, which lets callers exercise cancellation.
	OpenDelay time.Duration

	mu         sync.Mutex
	fail       error
	src        beep.Streamer
	open       bool
	suspended  bool
	sampleRate int
	opens      int
}

// SetFailure makes subsequent Open calls fail with err; nil clears it.
func (o *OfflineContext) SetFailure(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fail = err
}

// Open implements OutputContext.
func (o *OfflineContext) Open(ctx context.Context, sampleRate, bufferFrames int, src beep.Streamer) error {
	if o.OpenDelay > 0 {
		select {
		case <-time.After(o.OpenDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.opens++
	if o.fail != nil {
		return o.fail
	}

	o.src = src
	o.open = true
	o.suspended = o.StartSuspended
	o.sampleRate = sampleRate
	return nil
}

// Suspended implements OutputContext.
func (o *OfflineContext) Suspended() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.suspended
}

// Resume implements OutputContext.
func (o *OfflineContext) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.open {
		return ErrOutputClosed
	}
	o.suspended = false
	return nil
}

// Close implements OutputContext.
func (o *OfflineContext) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = false
	o.src = nil
	return nil
}

// Opens returns the number of Open attempts, failed ones included.
func (o *OfflineContext) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

// SampleRate returns the rate passed to the last successful Open.
func (o *OfflineContext) SampleRate() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sampleRate
}

// Render pulls frames from the source. A closed or suspended context
// renders nothing and returns nil.
func (o *OfflineContext) Render(frames int) [][2]float64 {
	o.mu.Lock()
	src, live := o.src, o.open && !o.suspended
	o.mu.Unlock()

	if !live || src == nil {
		return nil
	}

	out := make([][2]float64, frames)
	filled := 0
	for filled < frames {
		n, ok := src.Stream(out[filled:])
		filled += n
		if !ok || n == 0 {
			break
		}
	}
	return out[:filled]
}

// Gestures is a GestureSource fed by Trigger.
type Gestures struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func()
}

// OnGesture implements GestureSource.
func (g *Gestures) OnGesture(fn func()) (remove func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.fns == nil {
		g.fns = make(map[int]func())
	}
	id := g.nextID
	g.nextID++
	g.fns[id] = fn

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.fns, id)
	}
}

// Listeners returns the number of registered listeners.
func (g *Gestures) Listeners() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.fns)
}

// Trigger reports a gesture to every listener. Listeners run on the caller's
// goroutine and may remove themselves.
func (g *Gestures) Trigger() {
	g.mu.Lock()
	fns := make([]func(), 0, len(g.fns))
	for _, fn := range g.fns {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
