// Package reverb provides procedural impulse responses and a stereo
// convolution reverb built on them.
//
// GenerateImpulse synthesizes a decaying noise tail with a few early
// reflection taps. Library caches one impulse per named room preset so the
// buffers are generated once and shared read-only by every reverb that uses
// them. Convolution runs the impulse through a partitioned FFT convolver
// with a predelay line and a wet output level.
package reverb
