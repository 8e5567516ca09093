package console

import (
	"github.com/cwbudde/algo-console/dsp/buffer"
	"github.com/cwbudde/algo-console/dsp/core"
	"github.com/cwbudde/algo-console/dsp/effects/dynamics"
	"github.com/cwbudde/algo-console/dsp/effects/spatial"
	"github.com/cwbudde/algo-console/dsp/filter/biquad"
	"github.com/cwbudde/algo-console/dsp/filter/design"
	"github.com/cwbudde/algo-console/dsp/graph"
	"github.com/cwbudde/algo-console/dsp/meter"
)

// Channel parameter ranges.
const (
	MaxEQGainDB   = 15.0
	MaxInputGain  = 2.0
	lowShelfHz    = 100.0
	lowMidHz      = 500.0
	highMidHz     = 2500.0
	highShelfHz   = 8000.0
	peakQ         = 1.0
	defaultVolume = 0.8
)

// EQBand selects one of the four channel EQ bands.
type EQBand int

const (
	EQLow EQBand = iota
	EQLowMid
	EQHighMid
	EQHigh
)

// EQ holds the four band gains in dB: a low shelf, two peaks and a high
// shelf.
type EQ struct {
	Low     float64
	LowMid  float64
	HighMid float64
	High    float64
}

// Clamped limits every band to ±15 dB.
func (q EQ) Clamped() EQ {
	return EQ{
		Low:     core.Clamp(q.Low, -MaxEQGainDB, MaxEQGainDB),
		LowMid:  core.Clamp(q.LowMid, -MaxEQGainDB, MaxEQGainDB),
		HighMid: core.Clamp(q.HighMid, -MaxEQGainDB, MaxEQGainDB),
		High:    core.Clamp(q.High, -MaxEQGainDB, MaxEQGainDB),
	}
}

func (q EQ) with(band EQBand, gainDB float64) EQ {
	switch band {
	case EQLow:
		q.Low = gainDB
	case EQLowMid:
		q.LowMid = gainDB
	case EQHighMid:
		q.HighMid = gainDB
	case EQHigh:
		q.High = gainDB
	}
	return q
}

func (q EQ) flat() bool {
	return q == EQ{}
}

// CompressorParams are the channel and master compressor settings.
type CompressorParams = dynamics.Params

// Meters are normalized peak and RMS readings in [0, 1].
type Meters struct {
	Peak float32
	RMS  float32
}

func metersFrom(l meter.Levels) Meters {
	return Meters{Peak: float32(l.Peak), RMS: float32(l.RMS)}
}

// MixerChannel is one source strip:
// input gain → EQ → compressor → pan → output gain → meter, fanned out to
// the master bus and to every send bus.
type MixerChannel struct {
	id   string
	name string

	inputGain *core.Param
	volume    *core.Param
	pan       *core.Param
	muted     core.Flag
	solo      core.Flag
	audible   core.Flag
	eq        *core.Cell[EQ]
	comp      *core.Cell[CompressorParams]

	inGain  *graph.Gain
	outGain *graph.Gain // volume, or 0 while muted or soloed out
	tap     *meter.Tap

	node  *graph.Node
	sends map[string]*send // fixed at creation

	// sources is guarded by the engine lock.
	sources []*sourceLink
}

type send struct {
	level *core.Param
	gain  *graph.Gain
	node  *graph.Node
}

type sourceLink struct {
	src  *graph.StreamerSource
	node *graph.Node
}

func newMixerChannel(id, name string, sampleRate float64, meterWindow int, buses []*SendReturnBus) (*MixerChannel, error) {
	comp, err := dynamics.NewCompressor(sampleRate, dynamics.ChannelDefaults())
	if err != nil {
		return nil, err
	}

	ch := &MixerChannel{
		id:        id,
		name:      name,
		inputGain: core.NewParam(1, 0, MaxInputGain),
		volume:    core.NewParam(defaultVolume, 0, 1),
		pan:       core.NewParam(0, -1, 1),
		eq:        core.NewCell(EQ{}),
		comp:      core.NewCell(dynamics.ChannelDefaults()),
		inGain:    graph.NewGain(1),
		outGain:   graph.NewGain(defaultVolume),
		tap:       meter.NewTap(meterWindow),
		sends:     make(map[string]*send, len(buses)),
	}
	ch.audible.Store(true)

	strip := &channelStrip{
		sampleRate: sampleRate,
		ch:         ch,
		comp:       comp,
		panner:     spatial.NewPanner(),
	}
	strip.initEQ()

	ch.node = graph.New("channel:"+id, graph.Chain{
		ch.inGain,
		graph.ProcessorFunc(strip.processEQ),
		graph.ProcessorFunc(strip.processDynamics),
		graph.ProcessorFunc(strip.processPan),
		ch.outGain,
		graph.ProcessorFunc(strip.processMeter),
	})

	for _, bus := range buses {
		s := &send{
			level: core.NewParam(0, 0, 1),
			gain:  graph.NewGain(0),
		}
		s.node = graph.New("send:"+id+"->"+bus.id, s.gain)
		if err := ch.node.Connect(s.node); err != nil {
			return nil, err
		}
		if err := s.node.Connect(bus.input); err != nil {
			return nil, err
		}
		ch.sends[bus.id] = s
	}

	return ch, nil
}

// ID returns the channel id.
func (c *MixerChannel) ID() string { return c.id }

// Name returns the display name.
func (c *MixerChannel) Name() string { return c.name }

// Volume returns the stored fader level. Mute and solo do not change it.
func (c *MixerChannel) Volume() float64 { return c.volume.Load() }

// InputGain returns the input trim.
func (c *MixerChannel) InputGain() float64 { return c.inputGain.Load() }

// Pan returns the stereo position in [-1, 1].
func (c *MixerChannel) Pan() float64 { return c.pan.Load() }

// Muted reports the mute switch.
func (c *MixerChannel) Muted() bool { return c.muted.Load() }

// Soloed reports the solo switch.
func (c *MixerChannel) Soloed() bool { return c.solo.Load() }

// EQ returns the band gains.
func (c *MixerChannel) EQ() EQ { return c.eq.Load() }

// Compressor returns the compressor settings.
func (c *MixerChannel) Compressor() CompressorParams { return c.comp.Load() }

// SendLevel returns the level of the send to busID.
func (c *MixerChannel) SendLevel(busID string) (float64, bool) {
	s, ok := c.sends[busID]
	if !ok {
		return 0, false
	}
	return s.level.Load(), true
}

// Sends returns every send level keyed by bus id.
func (c *MixerChannel) Sends() map[string]float64 {
	out := make(map[string]float64, len(c.sends))
	for id, s := range c.sends {
		out[id] = s.level.Load()
	}
	return out
}

// Meters returns the post-fader levels of the latest analysis window.
func (c *MixerChannel) Meters() Meters { return metersFrom(c.tap.Levels()) }

// EffectiveGain returns the output gain currently applied.
func (c *MixerChannel) EffectiveGain() float64 { return c.outGain.Value() }

// Audible reports whether mute and solo currently let the channel through.
func (c *MixerChannel) Audible() bool { return c.audible.Load() }

// updateGain recomputes the output gain from volume, mute and the engine's
// solo state. The engine lock must be held.
func (c *MixerChannel) updateGain(anySolo bool) {
	audible := !c.muted.Load() && (!anySolo || c.solo.Load())
	c.audible.Store(audible)
	if audible {
		c.outGain.Set(c.volume.Load())
		return
	}
	c.outGain.Set(0)
}

func (c *MixerChannel) setSendLevel(busID string, level float64) (float64, bool) {
	s, ok := c.sends[busID]
	if !ok {
		return 0, false
	}
	v := s.level.Store(level)
	s.gain.Set(v)
	return v, true
}

func (c *MixerChannel) teardown() {
	for _, l := range c.sources {
		l.node.Detach()
	}
	c.sources = nil
	for _, s := range c.sends {
		s.node.Detach()
	}
	c.node.Detach()
}

// channelStrip holds the render-side processors of a channel. Only the
// render goroutine touches it.
type channelStrip struct {
	sampleRate float64
	ch         *MixerChannel

	eqL, eqR  [4]biquad.Section
	eqApplied *EQ
	eqFlat    bool

	comp        *dynamics.Compressor
	compApplied *CompressorParams

	panner  *spatial.Panner
	lastPan float64
}

func (s *channelStrip) initEQ() {
	cur := s.ch.eq.Current()
	s.applyEQ(*cur)
	s.eqApplied = cur
}

func (s *channelStrip) applyEQ(q EQ) {
	coeffs := [4]biquad.Coefficients{
		design.LowShelf(lowShelfHz, q.Low, design.DefaultQ, s.sampleRate),
		design.Peak(lowMidHz, q.LowMid, peakQ, s.sampleRate),
		design.Peak(highMidHz, q.HighMid, peakQ, s.sampleRate),
		design.HighShelf(highShelfHz, q.High, design.DefaultQ, s.sampleRate),
	}
	for i, c := range coeffs {
		s.eqL[i].SetCoefficients(c)
		s.eqR[i].SetCoefficients(c)
	}
	s.eqFlat = q.flat()
}

func (s *channelStrip) processEQ(b buffer.Stereo) {
	if cur := s.ch.eq.Current(); cur != s.eqApplied {
		s.applyEQ(*cur)
		s.eqApplied = cur
	}

	if s.eqFlat {
		return
	}

	for i := range s.eqL {
		s.eqL[i].ProcessBlock(b.L)
		s.eqR[i].ProcessBlock(b.R)
	}
}

func (s *channelStrip) processDynamics(b buffer.Stereo) {
	if cur := s.ch.comp.Current(); cur != s.compApplied {
		s.comp.SetParams(*cur)
		s.compApplied = cur
	}

	s.comp.ProcessStereo(b.L, b.R)
}

func (s *channelStrip) processPan(b buffer.Stereo) {
	if p := s.ch.pan.Load(); p != s.lastPan {
		s.panner.SetPan(p)
		s.lastPan = p
	}

	if s.lastPan == 0 {
		return
	}

	s.panner.ProcessBlock(b.L, b.R)
}

func (s *channelStrip) processMeter(b buffer.Stereo) {
	s.ch.tap.Write(b.L, b.R)
}
