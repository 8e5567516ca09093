package console

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-console/dsp/buffer"
	"github.com/cwbudde/algo-console/dsp/effects/reverb"
	"github.com/cwbudde/algo-console/dsp/graph"
	"github.com/gopxl/beep"
	"github.com/sirupsen/logrus"
)

// Engine owns the audio graph: mixer channels, send/return buses and the
// master bus, rendered into an OutputContext.
//
// Setters may be called from any goroutine. They never block the render
// goroutine: scalars are published atomically and picked up at the next
// quantum.
type Engine struct {
	cfg  Config
	opts options
	log  *logrus.Entry
	met  *metrics

	state atomic.Int32

	initMu sync.Mutex // Initialize and Disconnect
	mu     sync.Mutex // channels and their gain staging
	fxMu   sync.Mutex // effect parameter changes

	output  OutputContext
	opened  bool
	resume  *resumeListener
	library *reverb.Library
	master  *masterBus
	buses   []*SendReturnBus
	busByID map[string]*SendReturnBus
	busList atomic.Pointer[[]*SendReturnBus] // published once Ready

	channels map[string]*MixerChannel

	root   atomic.Pointer[graph.Node]
	fault  atomic.Pointer[error]
	render renderState
}

// resampleQuality is the beep.Resample interpolation order for sources
// recorded at another rate.
const resampleQuality = 4

// renderState is touched only by the goroutine calling Stream.
type renderState struct {
	quantum uint64
	block   buffer.Stereo
	pos     int
}

// New returns an uninitialized engine. The configuration is validated here;
// nothing touches the audio device until Initialize.
func New(cfg Config, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cfg = o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("console: invalid config: %w", err)
	}
	if o.output == nil {
		o.output = &SpeakerContext{}
	}

	e := &Engine{
		cfg:      cfg,
		opts:     o,
		log:      o.logger.WithFields(logrus.Fields{"component": "console"}),
		met:      newMetrics(o.registry),
		output:   o.output,
		channels: make(map[string]*MixerChannel),
	}
	e.render.block = buffer.NewStereo(cfg.BlockSize)
	e.render.pos = cfg.BlockSize

	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// State returns the lifecycle state.
func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) setState(s State) { e.state.Store(int32(s)) }

// Initialize builds the master bus, the send buses and their impulse
// responses, then opens the output. It is idempotent once Ready. On failure
// the engine returns to Uninitialized and Initialize may be retried.
//
// If the output opens suspended, Initialize still returns Ready and playback
// starts at the first user gesture.
func (e *Engine) Initialize(ctx context.Context) error {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	switch s := e.State(); s {
	case StateReady:
		return nil
	case StateDisconnected:
		return &NotReadyError{Op: "Initialize", State: s}
	}

	e.setState(StateInitializing)
	e.log.WithFields(logrus.Fields{
		"sample_rate": e.cfg.SampleRate,
		"block_size":  e.cfg.BlockSize,
		"buses":       len(e.cfg.Buses),
	}).Info("initializing engine")

	if err := e.initialize(ctx); err != nil {
		e.teardownGraph()
		e.setState(StateUninitialized)
		e.met.initAttempts.WithLabelValues("failure").Inc()
		e.log.WithError(err).Warn("engine initialization failed")
		return &EngineInitError{Cause: err}
	}

	list := slices.Clone(e.buses)
	e.busList.Store(&list)
	e.setState(StateReady)
	e.met.initAttempts.WithLabelValues("success").Inc()
	e.log.WithField("suspended", e.output.Suspended()).Info("engine ready")

	return nil
}

func (e *Engine) initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.library = reverb.NewLibrary(e.cfg.SampleRate, e.opts.rng)
	if err := e.library.Warm(); err != nil {
		return fmt.Errorf("impulse responses: %w", err)
	}

	master, err := newMasterBus(e.cfg)
	if err != nil {
		return fmt.Errorf("master bus: %w", err)
	}
	e.master = master

	env := effectEnv{
		sampleRate: e.cfg.SampleRate,
		blockSize:  e.cfg.BlockSize,
		library:    e.library,
		onIRSwap:   e.met.irSwaps.Inc,
	}
	e.busByID = make(map[string]*SendReturnBus, len(e.cfg.Buses))
	for _, bc := range e.cfg.Buses {
		bus, err := newSendReturnBus(bc, env)
		if err != nil {
			return err
		}
		if err := bus.output.Connect(master.sum); err != nil {
			return fmt.Errorf("bus %s: %w", bc.ID, err)
		}
		e.buses = append(e.buses, bus)
		e.busByID[bus.id] = bus
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	e.render = renderState{block: buffer.NewStereo(e.cfg.BlockSize), pos: e.cfg.BlockSize}
	e.root.Store(master.node)

	if err := e.openOutput(ctx); err != nil {
		return err
	}

	if e.output.Suspended() {
		e.armResume()
	}

	return nil
}

// openOutput opens the output on its own goroutine so a stalled platform
// call cannot outlive ctx.
func (e *Engine) openOutput(ctx context.Context) error {
	frames := int(math.Round(e.cfg.OutputBuffer.Seconds() * e.cfg.SampleRate))
	frames = max(frames, e.cfg.BlockSize)

	done := make(chan error, 1)
	go func() {
		done <- e.output.Open(ctx, int(e.cfg.SampleRate), frames, e)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		e.opened = true
		return nil
	case <-ctx.Done():
		out := e.output
		go func() {
			if err := <-done; err == nil {
				_ = out.Close()
			}
		}()
		return ctx.Err()
	}
}

// resumeListener resumes a suspended output on the first gesture and then
// removes itself. Failed resumes keep it armed.
type resumeListener struct {
	mu     sync.Mutex
	remove func()
}

func (l *resumeListener) cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remove != nil {
		l.remove()
		l.remove = nil
	}
}

func (e *Engine) armResume() {
	if e.opts.gestures == nil {
		if err := e.output.Resume(); err != nil {
			e.log.WithError(err).Warn("output suspended and no gesture source configured")
		}
		return
	}

	l := &resumeListener{}
	out := e.output
	log := e.log

	l.mu.Lock()
	defer l.mu.Unlock()

	l.remove = e.opts.gestures.OnGesture(func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		if l.remove == nil {
			return
		}
		if err := out.Resume(); err != nil {
			log.WithError(err).Warn("output resume after gesture failed")
			return
		}
		l.remove()
		l.remove = nil
		log.Info("output resumed")
	})
	e.resume = l

	log.Info("output suspended, waiting for a user gesture")
}

// Disconnect closes the output and tears down every channel, bus and the
// master bus. It is idempotent and safe after a failed or partial
// Initialize. The engine cannot be initialized again.
func (e *Engine) Disconnect() error {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if e.State() == StateDisconnected {
		return nil
	}
	e.setState(StateDisconnected)

	var err error
	if e.resume != nil {
		e.resume.cancel()
		e.resume = nil
	}
	if e.opened {
		if cerr := e.output.Close(); cerr != nil {
			err = fmt.Errorf("console: close output: %w", cerr)
		}
		e.opened = false
	}

	e.teardownGraph()
	e.log.Info("engine disconnected")

	return err
}

func (e *Engine) teardownGraph() {
	e.root.Store(nil)
	e.busList.Store(nil)

	e.mu.Lock()
	for _, ch := range e.channels {
		ch.teardown()
	}
	clear(e.channels)
	e.mu.Unlock()

	for _, b := range e.buses {
		b.teardown()
	}
	e.buses = nil
	e.busByID = nil

	if e.master != nil {
		e.master.sum.Detach()
		e.master.node.Detach()
		e.master = nil
	}

	e.met.channels.Set(0)
	e.met.sources.Set(0)
}

// Stream implements beep.Streamer. The output context calls it on its own
// goroutine. Frames are rendered in quanta of Config.BlockSize; a panic
// inside a quantum is recovered and the quantum is silenced.
func (e *Engine) Stream(samples [][2]float64) (int, bool) {
	root := e.root.Load()
	if root == nil {
		if e.State() == StateDisconnected {
			return 0, false
		}
		clear(samples)
		return len(samples), true
	}

	r := &e.render
	for i := range samples {
		if r.pos >= r.block.Len() {
			e.renderQuantum(root)
		}
		samples[i] = [2]float64{r.block.L[r.pos], r.block.R[r.pos]}
		r.pos++
	}

	return len(samples), true
}

// Err implements beep.Streamer. It returns the latest recovered render
// fault, if any.
func (e *Engine) Err() error {
	if p := e.fault.Load(); p != nil {
		return *p
	}
	return nil
}

var _ beep.Streamer = (*Engine)(nil)

func (e *Engine) renderQuantum(root *graph.Node) {
	r := &e.render
	r.quantum++
	r.pos = 0

	defer func() {
		if p := recover(); p != nil {
			r.block.Zero()
			err := fmt.Errorf("console: render panic: %v", p)
			e.fault.Store(&err)
			e.met.faults.Inc()
			e.log.WithField("quantum", r.quantum).WithError(err).Error("render quantum failed, output silenced")
		}
	}()

	r.block.CopyFrom(root.Pull(r.quantum, e.cfg.BlockSize))
	e.met.quanta.Inc()
}

func (e *Engine) ready(op string) error {
	if s := e.State(); s != StateReady {
		return &NotReadyError{Op: op, State: s}
	}
	return nil
}

func (e *Engine) logClamp(op, id string, requested, applied float64) {
	if requested == applied {
		return
	}
	e.log.WithFields(logrus.Fields{
		"op":        op,
		"id":        id,
		"requested": requested,
		"applied":   applied,
	}).Debug("value clamped")
}

// anySoloLocked reports whether a channel is soloed. e.mu must be held.
func (e *Engine) anySoloLocked() bool {
	for _, ch := range e.channels {
		if ch.solo.Load() {
			return true
		}
	}
	return false
}

// withChannel runs fn on the channel with the engine lock held.
func (e *Engine) withChannel(op, id string, fn func(ch *MixerChannel)) error {
	if err := e.ready(op); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ch, ok := e.channels[id]
	if !ok {
		return &NotFoundError{Kind: KindChannel, ID: id}
	}
	fn(ch)
	return nil
}

// CreateMixerChannel adds a channel wired to the master bus and, at zero
// send level, to every send bus.
func (e *Engine) CreateMixerChannel(id, name string) (*MixerChannel, error) {
	if err := e.ready("CreateMixerChannel"); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.channels[id]; ok {
		return nil, &DuplicateChannelError{ID: id}
	}

	ch, err := newMixerChannel(id, name, e.cfg.SampleRate, e.cfg.MeterWindow, e.buses)
	if err != nil {
		return nil, fmt.Errorf("console: channel %s: %w", id, err)
	}
	if err := ch.node.Connect(e.master.sum); err != nil {
		ch.teardown()
		return nil, fmt.Errorf("console: channel %s: %w", id, err)
	}
	ch.updateGain(e.anySoloLocked())

	e.channels[id] = ch
	e.met.channels.Set(float64(len(e.channels)))
	e.log.WithFields(logrus.Fields{"channel": id, "name": name}).Info("mixer channel created")

	return ch, nil
}

// RemoveMixerChannel tears down a channel and its sources.
func (e *Engine) RemoveMixerChannel(id string) error {
	if err := e.ready("RemoveMixerChannel"); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ch, ok := e.channels[id]
	if !ok {
		return &NotFoundError{Kind: KindChannel, ID: id}
	}
	ch.teardown()
	delete(e.channels, id)

	anySolo := e.anySoloLocked()
	for _, other := range e.channels {
		other.updateGain(anySolo)
	}

	e.met.channels.Set(float64(len(e.channels)))
	e.met.sources.Set(float64(e.sourceCountLocked()))
	e.log.WithField("channel", id).Info("mixer channel removed")

	return nil
}

// Channel returns the channel with id.
func (e *Engine) Channel(id string) (*MixerChannel, error) {
	var out *MixerChannel
	err := e.withChannel("Channel", id, func(ch *MixerChannel) { out = ch })
	return out, err
}

// Channels returns the channel ids in sorted order.
func (e *Engine) Channels() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Sorted(maps.Keys(e.channels))
}

// Buses returns the send buses in configuration order, or nil unless the
// engine is Ready. It never waits on Initialize.
func (e *Engine) Buses() []*SendReturnBus {
	list := e.busList.Load()
	if list == nil || e.State() != StateReady {
		return nil
	}
	return slices.Clone(*list)
}

// SetChannelVolume sets the fader level, clamped to [0, 1].
func (e *Engine) SetChannelVolume(id string, volume float64) error {
	return e.withChannel("SetChannelVolume", id, func(ch *MixerChannel) {
		e.logClamp("SetChannelVolume", id, volume, ch.volume.Store(volume))
		ch.updateGain(e.anySoloLocked())
	})
}

// SetChannelGain sets the input trim, clamped to [0, 2].
func (e *Engine) SetChannelGain(id string, gain float64) error {
	return e.withChannel("SetChannelGain", id, func(ch *MixerChannel) {
		v := ch.inputGain.Store(gain)
		ch.inGain.Set(v)
		e.logClamp("SetChannelGain", id, gain, v)
	})
}

// SetChannelPan sets the stereo position, clamped to [-1, 1].
func (e *Engine) SetChannelPan(id string, pan float64) error {
	return e.withChannel("SetChannelPan", id, func(ch *MixerChannel) {
		e.logClamp("SetChannelPan", id, pan, ch.pan.Store(pan))
	})
}

// SetChannelEQ sets all four band gains, each clamped to ±15 dB.
func (e *Engine) SetChannelEQ(id string, eq EQ) error {
	return e.withChannel("SetChannelEQ", id, func(ch *MixerChannel) {
		ch.eq.Store(eq.Clamped())
	})
}

// SetChannelEQBand sets one band gain, clamped to ±15 dB.
func (e *Engine) SetChannelEQBand(id string, band EQBand, gainDB float64) error {
	const op = "SetChannelEQBand"
	if err := e.ready(op); err != nil {
		return err
	}
	if band < EQLow || band > EQHigh {
		return &InvalidArgumentError{Op: op, Arg: "band", Value: band}
	}
	return e.withChannel(op, id, func(ch *MixerChannel) {
		ch.eq.Store(ch.eq.Load().with(band, gainDB).Clamped())
	})
}

// SetChannelCompressor sets the channel compressor, clamped field by field.
func (e *Engine) SetChannelCompressor(id string, p CompressorParams) error {
	return e.withChannel("SetChannelCompressor", id, func(ch *MixerChannel) {
		ch.comp.Store(p.Clamped())
	})
}

// SetSendLevel sets the level of a channel's send to busID, clamped to
// [0, 1]. At 0 the send contributes exact silence.
func (e *Engine) SetSendLevel(channelID, busID string, level float64) error {
	var missing bool
	err := e.withChannel("SetSendLevel", channelID, func(ch *MixerChannel) {
		v, ok := ch.setSendLevel(busID, level)
		if !ok {
			missing = true
			return
		}
		e.logClamp("SetSendLevel", channelID+"->"+busID, level, v)
	})
	if err != nil {
		return err
	}
	if missing {
		return &NotFoundError{Kind: KindSend, ID: busID}
	}
	return nil
}

// MuteChannel silences or restores a channel. The stored volume is kept.
func (e *Engine) MuteChannel(id string, muted bool) error {
	return e.withChannel("MuteChannel", id, func(ch *MixerChannel) {
		ch.muted.Store(muted)
		ch.updateGain(e.anySoloLocked())
	})
}

// SoloChannel sets the solo switch and recomputes every channel: while any
// channel is soloed only soloed channels are audible. Mute wins over solo.
func (e *Engine) SoloChannel(id string, solo bool) error {
	return e.withChannel("SoloChannel", id, func(ch *MixerChannel) {
		ch.solo.Store(solo)
		anySolo := e.anySoloLocked()
		for _, c := range e.channels {
			c.updateGain(anySolo)
		}
	})
}

// GetChannelMeters returns the channel's post-fader peak and RMS over the
// latest meter window.
func (e *Engine) GetChannelMeters(id string) (Meters, error) {
	var m Meters
	err := e.withChannel("GetChannelMeters", id, func(ch *MixerChannel) {
		m = ch.Meters()
	})
	return m, err
}

// GetMasterMeters returns the master output peak and RMS.
func (e *Engine) GetMasterMeters() (Meters, error) {
	master, err := e.masterBus("GetMasterMeters")
	if err != nil {
		return Meters{}, err
	}
	return metersFrom(master.tap.Levels()), nil
}

// GetMasterSpectrum returns FFTSize/2 linear magnitudes of the master mid
// signal, smoothed across calls.
func (e *Engine) GetMasterSpectrum() ([]float32, error) {
	master, err := e.masterBus("GetMasterSpectrum")
	if err != nil {
		return nil, err
	}
	return master.analyzer.Magnitudes(nil), nil
}

// SetMasterVolume sets the master level, clamped to [0, 1].
func (e *Engine) SetMasterVolume(volume float64) error {
	master, err := e.masterBus("SetMasterVolume")
	if err != nil {
		return err
	}
	e.logClamp("SetMasterVolume", "master", volume, master.setVolume(volume))
	return nil
}

// MasterVolume returns the master level.
func (e *Engine) MasterVolume() (float64, error) {
	master, err := e.masterBus("MasterVolume")
	if err != nil {
		return 0, err
	}
	return master.volume.Load(), nil
}

// SetMasterCompressor sets the program compressor.
func (e *Engine) SetMasterCompressor(p CompressorParams) error {
	master, err := e.masterBus("SetMasterCompressor")
	if err != nil {
		return err
	}
	master.comp.Store(p.Clamped())
	return nil
}

// SetMasterLimiter sets the output limiter.
func (e *Engine) SetMasterLimiter(p CompressorParams) error {
	master, err := e.masterBus("SetMasterLimiter")
	if err != nil {
		return err
	}
	master.limiter.Store(p.Clamped())
	return nil
}

func (e *Engine) masterBus(op string) (*masterBus, error) {
	if err := e.ready(op); err != nil {
		return nil, err
	}
	e.initMu.Lock()
	defer e.initMu.Unlock()
	if e.master == nil {
		return nil, &NotReadyError{Op: op, State: e.State()}
	}
	return e.master, nil
}

// ConnectToChannel attaches src to a channel. Repeated calls add sources;
// sources that have finished are detached. src must run at the engine
// sample rate.
func (e *Engine) ConnectToChannel(id string, src beep.Streamer) error {
	const op = "ConnectToChannel"
	if err := e.ready(op); err != nil {
		return err
	}
	if src == nil {
		return &InvalidArgumentError{Op: op, Arg: "source", Value: src}
	}

	var cerr error
	err := e.withChannel(op, id, func(ch *MixerChannel) {
		live := ch.sources[:0]
		for _, l := range ch.sources {
			if l.src.Done() {
				if serr := l.src.Err(); serr != nil {
					e.log.WithField("channel", id).WithError(serr).Warn("source finished with error")
				}
				l.node.Detach()
				continue
			}
			live = append(live, l)
		}
		clear(ch.sources[len(live):])
		ch.sources = live

		s := graph.NewStreamerSource(src)
		n := graph.NewSource(fmt.Sprintf("source:%s:%d", id, len(ch.sources)), s, nil)
		if cerr = n.Connect(ch.node); cerr != nil {
			return
		}
		ch.sources = append(ch.sources, &sourceLink{src: s, node: n})
		e.met.sources.Set(float64(e.sourceCountLocked()))
	})
	if err != nil {
		return err
	}
	if cerr != nil {
		return fmt.Errorf("console: connect source to %s: %w", id, cerr)
	}
	return nil
}

// ConnectToChannelAt attaches src recorded at rate, resampling it to the
// engine sample rate.
func (e *Engine) ConnectToChannelAt(id string, src beep.Streamer, rate beep.SampleRate) error {
	const op = "ConnectToChannelAt"
	if err := e.ready(op); err != nil {
		return err
	}
	if src == nil {
		return &InvalidArgumentError{Op: op, Arg: "source", Value: src}
	}
	if rate <= 0 {
		return &InvalidArgumentError{Op: op, Arg: "rate", Value: rate}
	}
	engineRate := beep.SampleRate(int(e.cfg.SampleRate))
	if rate != engineRate {
		src = beep.Resample(resampleQuality, rate, engineRate, src)
	}
	return e.ConnectToChannel(id, src)
}

func (e *Engine) sourceCountLocked() int {
	n := 0
	for _, ch := range e.channels {
		n += len(ch.sources)
	}
	return n
}

func (e *Engine) bus(op, id string) (*SendReturnBus, error) {
	if err := e.ready(op); err != nil {
		return nil, err
	}
	e.initMu.Lock()
	defer e.initMu.Unlock()
	b, ok := e.busByID[id]
	if !ok {
		return nil, &NotFoundError{Kind: KindBus, ID: id}
	}
	return b, nil
}

// Bus returns the send bus with id.
func (e *Engine) Bus(id string) (*SendReturnBus, error) {
	return e.bus("Bus", id)
}

// SetBusLevels sets a bus's wet (input) and return (output) levels, each
// clamped to [0, 1].
func (e *Engine) SetBusLevels(id string, wet, ret float64) error {
	b, err := e.bus("SetBusLevels", id)
	if err != nil {
		return err
	}
	b.setLevels(wet, ret)
	e.logClamp("SetBusLevels", id+":wet", wet, b.WetLevel())
	e.logClamp("SetBusLevels", id+":return", ret, b.ReturnLevel())
	return nil
}

// SetEffectBypass bypasses a bus effect. A bypassed bus returns silence.
func (e *Engine) SetEffectBypass(id string, bypass bool) error {
	b, err := e.bus("SetEffectBypass", id)
	if err != nil {
		return err
	}
	b.bypass.Store(bypass)
	return nil
}

// SetReverbParams reconfigures a reverb bus. Shape changes resynthesize the
// impulse response before returning.
func (e *Engine) SetReverbParams(id string, p ReverbParams) error {
	return e.applyEffect("SetReverbParams", id, p)
}

// SetDelayParams reconfigures a delay bus.
func (e *Engine) SetDelayParams(id string, p DelayParams) error {
	return e.applyEffect("SetDelayParams", id, p)
}

// SetChorusParams reconfigures a chorus bus.
func (e *Engine) SetChorusParams(id string, p ChorusParams) error {
	return e.applyEffect("SetChorusParams", id, p)
}

func (e *Engine) applyEffect(op, id string, p EffectParams) error {
	b, err := e.bus(op, id)
	if err != nil {
		return err
	}

	e.fxMu.Lock()
	defer e.fxMu.Unlock()

	if err := b.effect.apply(p); err != nil {
		if errors.Is(err, ErrEffectMismatch) {
			return &NotFoundError{Kind: KindBus, ID: id, Err: fmt.Errorf("%w: bus is %s, got %s", ErrEffectMismatch, b.Kind(), p.Kind())}
		}
		return fmt.Errorf("console: %s %s: %w", op, id, err)
	}
	return nil
}
