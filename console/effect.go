package console

import (
	"fmt"

	"github.com/cwbudde/algo-console/dsp/buffer"
	"github.com/cwbudde/algo-console/dsp/core"
	"github.com/cwbudde/algo-console/dsp/effects"
	"github.com/cwbudde/algo-console/dsp/effects/modulation"
	"github.com/cwbudde/algo-console/dsp/effects/reverb"
	"github.com/cwbudde/algo-console/dsp/graph"
)

// EffectKind tags the effect carried by a send bus.
type EffectKind int

const (
	KindReverb EffectKind = iota + 1
	KindDelay
	KindChorus
)

func (k EffectKind) String() string {
	switch k {
	case KindReverb:
		return EffectReverb
	case KindDelay:
		return EffectDelay
	case KindChorus:
		return EffectChorus
	default:
		return "unknown"
	}
}

// EffectParams is implemented by ReverbParams, DelayParams and ChorusParams.
type EffectParams interface {
	Kind() EffectKind
	sealed()
}

// ReverbParams configures a convolution reverb bus. RoomSize scales the
// preset decay (0.5 keeps it); changing RoomSize, Decay or Damping
// resynthesizes the impulse response off the render goroutine.
type ReverbParams reverb.Params

// DelayParams configures a stereo delay bus.
type DelayParams effects.DelayParams

// ChorusParams configures a chorus bus.
type ChorusParams modulation.ChorusParams

// Kind implements EffectParams.
func (ReverbParams) Kind() EffectKind { return KindReverb }

// Kind implements EffectParams.
func (DelayParams) Kind() EffectKind { return KindDelay }

// Kind implements EffectParams.
func (ChorusParams) Kind() EffectKind { return KindChorus }

func (ReverbParams) sealed() {}
func (DelayParams) sealed() {}
func (ChorusParams) sealed() {}

// effectUnit is the processing subgraph of one bus effect. Its node is both
// the input and the output of the effect.
type effectUnit interface {
	kind() EffectKind
	node() *graph.Node
	params() EffectParams
	// apply runs on the control goroutine.
	apply(p EffectParams) error
}

type effectEnv struct {
	sampleRate float64
	blockSize  int
	library    *reverb.Library
	room       string
	bypass     *core.Flag
	onIRSwap   func()
}

// newEffectUnit builds the unit for p. This is the one place that branches
// on the effect variant.
func newEffectUnit(name string, p EffectParams, env effectEnv) (effectUnit, error) {
	switch p := p.(type) {
	case ReverbParams:
		return newReverbUnit(name, p, env)
	case DelayParams:
		return newDelayUnit(name, p, env)
	case ChorusParams:
		return newChorusUnit(name, p, env)
	default:
		return nil, fmt.Errorf("console: unsupported effect params %T", p)
	}
}

// defaultEffectParams returns the construction parameters for a bus.
func defaultEffectParams(b BusConfig) (EffectParams, error) {
	switch b.Effect {
	case EffectReverb:
		preset, ok := reverb.PresetByName(b.Room)
		if !ok {
			return nil, fmt.Errorf("console: unknown reverb room %q", b.Room)
		}
		return ReverbParams(reverb.DefaultParams(preset)), nil
	case EffectDelay:
		return DelayParams(effects.DefaultDelayParams()), nil
	case EffectChorus:
		return ChorusParams(modulation.DefaultChorusParams()), nil
	default:
		return nil, fmt.Errorf("console: unknown effect %q", b.Effect)
	}
}

// bypassGate zeroes the block while bypassed and reports whether the effect
// should run. Entering bypass resets the effect so no stale tail resumes.
type bypassGate struct {
	flag   *core.Flag
	active bool
}

func (g *bypassGate) pass(b buffer.Stereo, reset func()) bool {
	if g.flag.Load() {
		if !g.active {
			g.active = true
			reset()
		}
		b.Zero()
		return false
	}
	g.active = false
	return true
}

type reverbUnit struct {
	n       *graph.Node
	conv    *reverb.Convolution
	lib     *reverb.Library
	room    string
	preset  reverb.Preset
	cell    *core.Cell[reverb.Params]
	applied *reverb.Params
	gate    bypassGate
	onSwap  func()
}

func newReverbUnit(name string, p ReverbParams, env effectEnv) (*reverbUnit, error) {
	preset, ok := reverb.PresetByName(env.room)
	if !ok {
		return nil, fmt.Errorf("console: unknown reverb room %q", env.room)
	}

	u := &reverbUnit{
		lib:    env.library,
		room:   env.room,
		preset: preset,
		cell:   core.NewCell(reverb.Params(p).Clamped()),
		gate:   bypassGate{flag: env.bypass},
		onSwap: env.onIRSwap,
	}

	ir, err := u.impulseFor(u.cell.Load())
	if err != nil {
		return nil, err
	}

	u.conv, err = reverb.NewConvolution(env.sampleRate, env.blockSize, ir)
	if err != nil {
		return nil, fmt.Errorf("console: reverb %s: %w", name, err)
	}

	u.n = graph.New(name, graph.ProcessorFunc(u.process))

	return u, nil
}

// impulseFor returns the shared preset impulse when p keeps the preset
// shape, or an uncached custom one.
func (u *reverbUnit) impulseFor(p reverb.Params) (*reverb.Impulse, error) {
	if p.ShapeEquals(reverb.DefaultParams(u.preset)) {
		return u.lib.Get(u.room)
	}
	return u.lib.Custom(p.EffectiveDecay(), p.Damping)
}

func (u *reverbUnit) kind() EffectKind { return KindReverb }
func (u *reverbUnit) node() *graph.Node { return u.n }
func (u *reverbUnit) params() EffectParams { return ReverbParams(u.cell.Load()) }

func (u *reverbUnit) apply(p EffectParams) error {
	rp, ok := p.(ReverbParams)
	if !ok {
		return ErrEffectMismatch
	}

	next := reverb.Params(rp).Clamped()
	prev := u.cell.Load()

	if !next.ShapeEquals(prev) {
		ir, err := u.impulseFor(next)
		if err != nil {
			return err
		}
		if err := u.conv.SetImpulse(ir); err != nil {
			return err
		}
		if u.onSwap != nil {
			u.onSwap()
		}
	}

	u.cell.Store(next)

	return nil
}

func (u *reverbUnit) process(b buffer.Stereo) {
	if !u.gate.pass(b, u.conv.Reset) {
		return
	}

	if cur := u.cell.Current(); cur != u.applied {
		u.conv.SetPredelay(cur.Predelay)
		u.conv.SetWetLevel(cur.WetLevel)
		u.applied = cur
	}

	if err := u.conv.Process(b.L, b.R); err != nil {
		b.Zero()
	}
}

type delayUnit struct {
	n       *graph.Node
	fx      *effects.StereoDelay
	cell    *core.Cell[effects.DelayParams]
	applied *effects.DelayParams
	gate    bypassGate
}

func newDelayUnit(name string, p DelayParams, env effectEnv) (*delayUnit, error) {
	params := effects.DelayParams(p).Clamped()

	fx, err := effects.NewStereoDelay(env.sampleRate, params)
	if err != nil {
		return nil, fmt.Errorf("console: delay %s: %w", name, err)
	}

	u := &delayUnit{
		fx:   fx,
		cell: core.NewCell(params),
		gate: bypassGate{flag: env.bypass},
	}
	u.n = graph.New(name, graph.ProcessorFunc(u.process))

	return u, nil
}

func (u *delayUnit) kind() EffectKind { return KindDelay }
func (u *delayUnit) node() *graph.Node { return u.n }
func (u *delayUnit) params() EffectParams { return DelayParams(u.cell.Load()) }

func (u *delayUnit) apply(p EffectParams) error {
	dp, ok := p.(DelayParams)
	if !ok {
		return ErrEffectMismatch
	}
	u.cell.Store(effects.DelayParams(dp).Clamped())
	return nil
}

func (u *delayUnit) process(b buffer.Stereo) {
	if !u.gate.pass(b, u.fx.Reset) {
		return
	}

	if cur := u.cell.Current(); cur != u.applied {
		u.fx.SetParams(*cur)
		u.applied = cur
	}

	u.fx.Process(b.L, b.R)
}

type chorusUnit struct {
	n       *graph.Node
	fx      *modulation.Chorus
	cell    *core.Cell[modulation.ChorusParams]
	applied *modulation.ChorusParams
	gate    bypassGate
}

func newChorusUnit(name string, p ChorusParams, env effectEnv) (*chorusUnit, error) {
	params := modulation.ChorusParams(p).Clamped()

	fx, err := modulation.NewChorus(env.sampleRate, params)
	if err != nil {
		return nil, fmt.Errorf("console: chorus %s: %w", name, err)
	}

	u := &chorusUnit{
		fx:   fx,
		cell: core.NewCell(params),
		gate: bypassGate{flag: env.bypass},
	}
	u.n = graph.New(name, graph.ProcessorFunc(u.process))

	return u, nil
}

func (u *chorusUnit) kind() EffectKind { return KindChorus }
func (u *chorusUnit) node() *graph.Node { return u.n }
func (u *chorusUnit) params() EffectParams { return ChorusParams(u.cell.Load()) }

func (u *chorusUnit) apply(p EffectParams) error {
	cp, ok := p.(ChorusParams)
	if !ok {
		return ErrEffectMismatch
	}
	u.cell.Store(modulation.ChorusParams(cp).Clamped())
	return nil
}

func (u *chorusUnit) process(b buffer.Stereo) {
	if !u.gate.pass(b, u.fx.Reset) {
		return
	}

	if cur := u.cell.Current(); cur != u.applied {
		u.fx.SetParams(*cur)
		u.applied = cur
	}

	u.fx.Process(b.L, b.R)
}
