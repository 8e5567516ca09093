// Package effects provides the stereo delay used on send buses.
//
// Subpackages:
//   - github.com/cwbudde/algo-console/dsp/effects/dynamics: compressor and limiter curves
//   - github.com/cwbudde/algo-console/dsp/effects/modulation: chorus
//   - github.com/cwbudde/algo-console/dsp/effects/reverb: impulse synthesis and convolution reverb
//   - github.com/cwbudde/algo-console/dsp/effects/spatial: equal-power panner
//
// Kernels run on the render goroutine with allocation-free Process methods;
// parameter changes go through SetParams between quanta.
package effects
