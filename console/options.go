package console

import (
	"math/rand/v2"

	"github.com/cwbudde/algo-console/dsp/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	output   OutputContext
	gestures GestureSource
	logger   *logrus.Logger
	registry prometheus.Registerer
	rng      *rand.Rand

	processing []core.ProcessorOption
}

func defaultOptions() options {
	return options{
		logger:   logrus.StandardLogger(),
		registry: prometheus.NewRegistry(),
	}
}

// WithOutput sets the realtime output. The default is a SpeakerContext.
func WithOutput(o OutputContext) Option {
	return func(opts *options) {
		if o != nil {
			opts.output = o
		}
	}
}

// WithGestures sets the source of user gestures used to resume a suspended
// output.
func WithGestures(g GestureSource) Option {
	return func(opts *options) {
		opts.gestures = g
	}
}

// WithLogger sets the logger. The default is logrus.StandardLogger.
func WithLogger(l *logrus.Logger) Option {
	return func(opts *options) {
		if l != nil {
			opts.logger = l
		}
	}
}

// WithRegisterer registers engine metrics on r. The default is a private
// registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(opts *options) {
		if r != nil {
			opts.registry = r
		}
	}
}

// WithRand seeds impulse response noise. Tests use it for reproducible
// renders.
func WithRand(r *rand.Rand) Option {
	return func(opts *options) {
		opts.rng = r
	}
}

// WithProcessing overrides Config.SampleRate and Config.BlockSize with the
// shared DSP processor options. Invalid values are ignored.
func WithProcessing(opts ...core.ProcessorOption) Option {
	return func(o *options) {
		o.processing = append(o.processing, opts...)
	}
}

func (o options) apply(cfg Config) Config {
	if len(o.processing) == 0 {
		return cfg
	}
	pc := core.ProcessorConfig{SampleRate: cfg.SampleRate, BlockSize: cfg.BlockSize}
	for _, opt := range o.processing {
		if opt != nil {
			opt(&pc)
		}
	}
	cfg.SampleRate, cfg.BlockSize = pc.SampleRate, pc.BlockSize
	return cfg
}
