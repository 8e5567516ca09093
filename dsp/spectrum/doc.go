// Package spectrum provides a realtime-safe FFT magnitude analyzer.
//
// The audio goroutine writes samples into the Analyzer, which publishes the
// latest time-domain window through a lock-free triple buffer. Readers run
// the window, FFT and magnitude steps on their own goroutine, so the render
// path never performs an FFT.
package spectrum
