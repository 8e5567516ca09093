// Package console is a realtime mixing and effects engine.
//
// An Engine owns a pull-based audio graph: one MixerChannel per source
// (gain, 4-band EQ, compressor, pan, output gain, meter), a fixed set of
// send/return buses carrying convolution reverb, stereo delay or chorus,
// and a master bus (program compressor, brick-wall limiter, master volume,
// spectrum and meter taps) feeding an output context.
//
// The output context pulls the engine as a beep.Streamer on its own
// goroutine. Setters only publish atomic values that the render goroutine
// picks up at the next quantum, so they never block audio. Meter and
// spectrum reads are lock-free snapshots that may be stale but never torn.
//
// Typical use:
//
//	eng, err := console.New(console.DefaultConfig())
//	if err != nil { ... }
//	if err := eng.Initialize(ctx); err != nil { ... }
//	ch, err := eng.CreateMixerChannel("kick", "Kick")
//	err = eng.ConnectToChannel("kick", streamer)
//	err = eng.SetSendLevel("kick", "hall", 0.3)
//	m, err := eng.GetChannelMeters("kick")
package console
