package console

import (
	"github.com/cwbudde/algo-console/dsp/buffer"
	"github.com/cwbudde/algo-console/dsp/core"
	"github.com/cwbudde/algo-console/dsp/effects/dynamics"
	"github.com/cwbudde/algo-console/dsp/graph"
	"github.com/cwbudde/algo-console/dsp/meter"
	"github.com/cwbudde/algo-console/dsp/spectrum"
)

// masterBus sums every channel and bus return, then runs
// program compressor → limiter → volume → analyser → meter.
type masterBus struct {
	volume *core.Param
	gain   *graph.Gain

	comp    *core.Cell[CompressorParams]
	limiter *core.Cell[CompressorParams]

	analyzer *spectrum.Analyzer
	tap      *meter.Tap

	sum  *graph.Node // channels and returns connect here
	node *graph.Node // processing chain, pulled by the engine

	// render-side state
	compFX      *dynamics.Compressor
	limFX       *dynamics.Compressor
	compApplied *CompressorParams
	limApplied  *CompressorParams
	mid         []float64
}

func newMasterBus(cfg Config) (*masterBus, error) {
	analyzer, err := spectrum.NewAnalyzer(cfg.FFTSize)
	if err != nil {
		return nil, err
	}

	compFX, err := dynamics.NewCompressor(cfg.SampleRate, dynamics.ProgramDefaults())
	if err != nil {
		return nil, err
	}
	limFX, err := dynamics.NewCompressor(cfg.SampleRate, dynamics.LimiterDefaults())
	if err != nil {
		return nil, err
	}

	m := &masterBus{
		volume:   core.NewParam(cfg.MasterVolume, 0, 1),
		comp:     core.NewCell(dynamics.ProgramDefaults()),
		limiter:  core.NewCell(dynamics.LimiterDefaults()),
		analyzer: analyzer,
		tap:      meter.NewTap(cfg.MeterWindow),
		compFX:   compFX,
		limFX:    limFX,
		mid:      make([]float64, cfg.BlockSize),
	}
	m.gain = graph.NewGain(m.volume.Load())

	m.sum = graph.New("master:sum", nil)
	m.node = graph.New("master", graph.Chain{
		graph.ProcessorFunc(m.processDynamics),
		m.gain,
		graph.ProcessorFunc(m.processAnalysis),
	})
	if err := m.sum.Connect(m.node); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *masterBus) setVolume(v float64) float64 {
	v = m.volume.Store(v)
	m.gain.Set(v)
	return v
}

func (m *masterBus) processDynamics(b buffer.Stereo) {
	if cur := m.comp.Current(); cur != m.compApplied {
		m.compFX.SetParams(*cur)
		m.compApplied = cur
	}
	if cur := m.limiter.Current(); cur != m.limApplied {
		m.limFX.SetParams(*cur)
		m.limApplied = cur
	}

	m.compFX.ProcessStereo(b.L, b.R)
	m.limFX.ProcessStereo(b.L, b.R)
}

func (m *masterBus) processAnalysis(b buffer.Stereo) {
	if cap(m.mid) < b.Len() {
		m.mid = make([]float64, b.Len())
	}
	m.analyzer.WriteStereo(b.L, b.R, m.mid[:b.Len()])
	m.tap.Write(b.L, b.R)
}
