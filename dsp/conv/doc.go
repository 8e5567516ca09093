// Package conv provides FFT convolution for long impulse responses.
//
// Direct is the O(N*M) reference. Uniform is a uniformly partitioned
// overlap-save convolver for fixed-size realtime blocks: the kernel is split
// into partitions of one block each, and input spectra are kept in a
// frequency-domain delay line.
//
// Partitioned stacks Uniform stages of growing partition size so that
// per-block cost stays flat for kernels of several seconds. Neither adds
// latency.
package conv
