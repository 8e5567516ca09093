package reverb

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

// ErrUnknownPreset is returned when a room preset name is not registered.
var ErrUnknownPreset = errors.New("reverb: unknown room preset")

// Preset names a fixed room model.
type Preset struct {
	Name    string
	Decay   float64 // seconds
	Damping float64 // 0..1
}

var presets = []Preset{
	{Name: "hall", Decay: 3.5, Damping: 0.3},
	{Name: "room", Decay: 1.2, Damping: 0.5},
	{Name: "plate", Decay: 2.8, Damping: 0.1},
	{Name: "spring", Decay: 0.8, Damping: 0.7},
}

// Presets returns the built-in room models.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// PresetByName looks up a built-in room model.
func PresetByName(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Library caches one synthesized impulse per preset name.
// It is safe for concurrent use. Cached impulses must not be modified.
type Library struct {
	sampleRate float64

	mu    sync.Mutex
	rng   *rand.Rand
	cache map[string]*Impulse
}

// NewLibrary creates an empty library rendering at sampleRate.
// A nil rng uses a randomly seeded generator.
func NewLibrary(sampleRate float64, rng *rand.Rand) *Library {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Library{
		sampleRate: sampleRate,
		rng:        rng,
		cache:      make(map[string]*Impulse, len(presets)),
	}
}

// SampleRate returns the rendering sample rate.
func (l *Library) SampleRate() float64 { return l.sampleRate }

// Get returns the cached impulse for name, generating it on first use.
func (l *Library) Get(name string) (*Impulse, error) {
	p, ok := PresetByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if ir, ok := l.cache[name]; ok {
		return ir, nil
	}

	ir, err := GenerateImpulse(l.sampleRate, p.Decay, p.Damping, l.rng)
	if err != nil {
		return nil, fmt.Errorf("reverb: preset %q: %w", name, err)
	}

	l.cache[name] = ir

	return ir, nil
}

// Custom synthesizes an uncached impulse with the library's generator.
func (l *Library) Custom(decay, damping float64) (*Impulse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return GenerateImpulse(l.sampleRate, decay, damping, l.rng)
}

// Warm generates every preset.
func (l *Library) Warm() error {
	for _, p := range presets {
		if _, err := l.Get(p.Name); err != nil {
			return err
		}
	}
	return nil
}

// Cached reports how many impulses have been generated and cached.
func (l *Library) Cached() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.cache)
}
