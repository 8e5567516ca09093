package dynamics

import "github.com/cwbudde/algo-console/dsp/core"

// Parameter ranges. Values outside are clamped, never rejected.
const (
	MinThresholdDB = -100.0
	MaxThresholdDB = 0.0
	MinKneeDB      = 0.0
	MaxKneeDB      = 40.0
	MinRatio       = 1.0
	MaxRatio       = 20.0
	MinTimeSeconds = 0.0
	MaxTimeSeconds = 1.0
)

// Params describes a compressor's static curve and time constants.
// Attack and Release are in seconds.
type Params struct {
	ThresholdDB float64
	KneeDB      float64
	Ratio       float64
	Attack      float64
	Release     float64
}

// Clamped returns p with every field limited to its contractual range.
func (p Params) Clamped() Params {
	return Params{
		ThresholdDB: core.Clamp(p.ThresholdDB, MinThresholdDB, MaxThresholdDB),
		KneeDB:      core.Clamp(p.KneeDB, MinKneeDB, MaxKneeDB),
		Ratio:       core.Clamp(p.Ratio, MinRatio, MaxRatio),
		Attack:      core.Clamp(p.Attack, MinTimeSeconds, MaxTimeSeconds),
		Release:     core.Clamp(p.Release, MinTimeSeconds, MaxTimeSeconds),
	}
}

// ChannelDefaults returns the per-channel compressor settings.
func ChannelDefaults() Params {
	return Params{ThresholdDB: -24, KneeDB: 30, Ratio: 4, Attack: 0.003, Release: 0.25}
}

// ProgramDefaults returns the master-bus program compressor settings.
func ProgramDefaults() Params {
	return Params{ThresholdDB: -18, KneeDB: 12, Ratio: 3, Attack: 0.008, Release: 0.2}
}

// LimiterDefaults returns the master-bus brick-wall limiter settings.
func LimiterDefaults() Params {
	return Params{ThresholdDB: -1, KneeDB: 0, Ratio: 20, Attack: 0.001, Release: 0.05}
}
