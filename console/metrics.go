package console

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are registered once per engine. Use a dedicated Registerer per
// engine when running several in one process.
type metrics struct {
	quanta       prometheus.Counter
	faults       prometheus.Counter
	channels     prometheus.Gauge
	sources      prometheus.Gauge
	initAttempts *prometheus.CounterVec
	irSwaps      prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)

	return &metrics{
		quanta: f.NewCounter(prometheus.CounterOpts{
			Name: "console_render_quanta_total",
			Help: "Total number of render quanta produced by the engine",
		}),
		faults: f.NewCounter(prometheus.CounterOpts{
			Name: "console_render_faults_total",
			Help: "Total number of render quanta replaced by silence after a recovered fault",
		}),
		channels: f.NewGauge(prometheus.GaugeOpts{
			Name: "console_channels",
			Help: "Current number of mixer channels",
		}),
		sources: f.NewGauge(prometheus.GaugeOpts{
			Name: "console_sources",
			Help: "Current number of sources connected to mixer channels",
		}),
		initAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_init_attempts_total",
			Help: "Engine initialization attempts by result",
		}, []string{"result"}),
		irSwaps: f.NewCounter(prometheus.CounterOpts{
			Name: "console_reverb_ir_swaps_total",
			Help: "Total number of reverb impulse responses resynthesized and swapped in",
		}),
	}
}
