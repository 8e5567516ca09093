package console

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cwbudde/algo-console/dsp/core"
	"github.com/cwbudde/algo-console/dsp/effects/reverb"
	"gopkg.in/yaml.v3"
)

// Effect kinds accepted in BusConfig.Effect.
const (
	EffectReverb = "reverb"
	EffectDelay  = "delay"
	EffectChorus = "chorus"
)

// Config holds engine settings. Zero fields are not defaulted; start from
// DefaultConfig and override.
type Config struct {
	SampleRate   float64       `yaml:"sample_rate"`
	BlockSize    int           `yaml:"block_size"`    // frames per render quantum, power of two
	FFTSize      int           `yaml:"fft_size"`      // master spectrum frame, power of two
	MeterWindow  int           `yaml:"meter_window"`  // frames
	OutputBuffer time.Duration `yaml:"output_buffer"` // speaker buffer length
	MasterVolume float64       `yaml:"master_volume"`
	Buses        []BusConfig   `yaml:"buses"`
}

// BusConfig describes one send/return bus.
type BusConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Effect string `yaml:"effect"`
	// Room names the reverb preset; ignored for other effects.
	Room        string   `yaml:"room,omitempty"`
	WetLevel    *float64 `yaml:"wet_level,omitempty"`
	ReturnLevel *float64 `yaml:"return_level,omitempty"`
}

// Bus level defaults.
const (
	DefaultWetLevel    = 1.0
	DefaultReturnLevel = 0.7
)

// DefaultConfig returns 48 kHz, 256-frame quanta and the standard bus set:
// hall and plate reverbs, a stereo delay and a chorus.
func DefaultConfig() Config {
	pc := core.DefaultProcessorConfig()
	return Config{
		SampleRate:   pc.SampleRate,
		BlockSize:    pc.BlockSize,
		FFTSize:      2048,
		MeterWindow:  2048,
		OutputBuffer: 100 * time.Millisecond,
		MasterVolume: 1,
		Buses:        DefaultBuses(),
	}
}

// DefaultBuses returns the standard send bus set.
func DefaultBuses() []BusConfig {
	return []BusConfig{
		{ID: "hall", Name: "Hall", Effect: EffectReverb, Room: "hall"},
		{ID: "plate", Name: "Plate", Effect: EffectReverb, Room: "plate"},
		{ID: "delay", Name: "Delay", Effect: EffectDelay},
		{ID: "chorus", Name: "Chorus", Effect: EffectChorus},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}

	return cfg, nil
}

// ParseConfig decodes YAML on top of DefaultConfig and validates it.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks structural settings. Levels are clamped later, never
// rejected.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %g", c.SampleRate)
	}
	if !isPowerOfTwo(c.BlockSize) {
		return fmt.Errorf("block_size must be a power of two, got %d", c.BlockSize)
	}
	if !isPowerOfTwo(c.FFTSize) || c.FFTSize < 2 {
		return fmt.Errorf("fft_size must be a power of two >= 2, got %d", c.FFTSize)
	}
	if c.MeterWindow < 1 {
		return fmt.Errorf("meter_window must be at least 1, got %d", c.MeterWindow)
	}
	if c.OutputBuffer < 0 {
		return fmt.Errorf("output_buffer cannot be negative, got %s", c.OutputBuffer)
	}

	seen := make(map[string]bool, len(c.Buses))
	for i := range c.Buses {
		b := &c.Buses[i]
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bus %d: %w", i, err)
		}
		if seen[b.ID] {
			return fmt.Errorf("bus %d: duplicate id %q", i, b.ID)
		}
		seen[b.ID] = true
	}

	return nil
}

// Validate checks one bus definition.
func (b *BusConfig) Validate() error {
	if b.ID == "" {
		return errors.New("id cannot be empty")
	}

	switch b.Effect {
	case EffectReverb:
		if _, ok := reverb.PresetByName(b.Room); !ok {
			return fmt.Errorf("unknown reverb room %q", b.Room)
		}
	case EffectDelay, EffectChorus:
	default:
		return fmt.Errorf("unknown effect %q", b.Effect)
	}

	return nil
}

func (b BusConfig) levels() (wet, ret float64) {
	wet, ret = DefaultWetLevel, DefaultReturnLevel
	if b.WetLevel != nil {
		wet = *b.WetLevel
	}
	if b.ReturnLevel != nil {
		ret = *b.ReturnLevel
	}
	return wet, ret
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
