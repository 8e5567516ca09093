package console

import (
	"fmt"

	"github.com/cwbudde/algo-console/dsp/core"
	"github.com/cwbudde/algo-console/dsp/graph"
)

// SendReturnBus wraps one effect with an input (wet) gain and an output
// (return) gain. Channels feed it through per-channel send gains; its
// return feeds the master bus.
type SendReturnBus struct {
	id   string
	name string

	effect effectUnit
	bypass core.Flag

	wetLevel    *core.Param
	returnLevel *core.Param
	wetGain     *graph.Gain
	returnGain  *graph.Gain

	input  *graph.Node // sum of channel sends, wet gain
	output *graph.Node // return gain
}

func newSendReturnBus(cfg BusConfig, env effectEnv) (*SendReturnBus, error) {
	params, err := defaultEffectParams(cfg)
	if err != nil {
		return nil, err
	}

	wet, ret := cfg.levels()
	name := cfg.Name
	if name == "" {
		name = cfg.ID
	}

	b := &SendReturnBus{
		id:          cfg.ID,
		name:        name,
		wetLevel:    core.NewParam(wet, 0, 1),
		returnLevel: core.NewParam(ret, 0, 1),
	}
	b.wetGain = graph.NewGain(b.wetLevel.Load())
	b.returnGain = graph.NewGain(b.returnLevel.Load())

	env.room = cfg.Room
	env.bypass = &b.bypass

	b.effect, err = newEffectUnit("bus:"+cfg.ID+":fx", params, env)
	if err != nil {
		return nil, err
	}

	b.input = graph.New("bus:"+cfg.ID+":in", b.wetGain)
	b.output = graph.New("bus:"+cfg.ID+":out", b.returnGain)

	if err := b.input.Connect(b.effect.node()); err != nil {
		return nil, fmt.Errorf("console: bus %s: %w", cfg.ID, err)
	}
	if err := b.effect.node().Connect(b.output); err != nil {
		return nil, fmt.Errorf("console: bus %s: %w", cfg.ID, err)
	}

	return b, nil
}

// ID returns the bus id used by SetSendLevel.
func (b *SendReturnBus) ID() string { return b.id }

// Name returns the display name.
func (b *SendReturnBus) Name() string { return b.name }

// Kind returns the effect variant.
func (b *SendReturnBus) Kind() EffectKind { return b.effect.kind() }

// WetLevel returns the bus input gain.
func (b *SendReturnBus) WetLevel() float64 { return b.wetLevel.Load() }

// ReturnLevel returns the bus output gain.
func (b *SendReturnBus) ReturnLevel() float64 { return b.returnLevel.Load() }

// Bypassed reports whether the effect is bypassed.
func (b *SendReturnBus) Bypassed() bool { return b.bypass.Load() }

// Params returns the effect parameters.
func (b *SendReturnBus) Params() EffectParams { return b.effect.params() }

func (b *SendReturnBus) setLevels(wet, ret float64) {
	b.wetGain.Set(b.wetLevel.Store(wet))
	b.returnGain.Set(b.returnLevel.Store(ret))
}

func (b *SendReturnBus) teardown() {
	b.input.Detach()
	b.effect.node().Detach()
	b.output.Detach()
}
