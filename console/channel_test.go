package console

import (
	"testing"

	"github.com/cwbudde/algo-console/dsp/buffer"
	"github.com/cwbudde/algo-console/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEQClamped(t *testing.T) {
	got := EQ{Low: 99, LowMid: -99, HighMid: 2, High: -2}.Clamped()
	assert.Equal(t, EQ{Low: 15, LowMid: -15, HighMid: 2, High: -2}, got)

	assert.True(t, EQ{}.flat())
	assert.Equal(t, EQ{LowMid: 4}, EQ{}.with(EQLowMid, 4))
	assert.Equal(t, EQ{}, EQ{}.with(EQBand(42), 4))
}

func TestChannelStripEQBoostsBand(t *testing.T) {
	const sr = 48000.0

	ch, err := newMixerChannel("eq", "EQ", sr, 512, nil)
	require.NoError(t, err)
	ch.eq.Store(EQ{LowMid: 12})

	strip := &channelStrip{sampleRate: sr, ch: ch}
	strip.initEQ()
	require.False(t, strip.eqFlat)

	sine := testutil.DeterministicSine(lowMidHz, sr, 0.1, 4096)
	b := buffer.NewStereo(len(sine))
	copy(b.L, sine)
	copy(b.R, sine)
	strip.processEQ(b)

	// +12 dB at the peak centre, measured after the transient.
	gain := testutil.PeakAbs(b.L[2048:]) / 0.1
	assert.InDelta(t, 3.98, gain, 0.15)
	assert.Equal(t, b.L, b.R)
}

func TestChannelStripFlatEQIsTransparent(t *testing.T) {
	ch, err := newMixerChannel("flat", "Flat", 48000, 512, nil)
	require.NoError(t, err)

	strip := &channelStrip{sampleRate: 48000, ch: ch}
	strip.initEQ()

	in := testutil.DeterministicNoise(7, 0.5, 256)
	b := buffer.NewStereo(len(in))
	copy(b.L, in)
	copy(b.R, in)
	strip.processEQ(b)

	testutil.RequireSliceNearlyEqual(t, b.L, in, 0)
}

func TestChannelSendsFollowBuses(t *testing.T) {
	e, _ := readyEngine(t)
	ch, err := e.CreateMixerChannel("keys", "Keys")
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"hall": 0, "plate": 0, "delay": 0, "chorus": 0}, ch.Sends())

	v, ok := ch.setSendLevel("plate", 0.3)
	require.True(t, ok)
	assert.Equal(t, 0.3, v)
	assert.Equal(t, 0.3, ch.sends["plate"].gain.Value())

	_, ok = ch.setSendLevel("nope", 1)
	assert.False(t, ok)
}
