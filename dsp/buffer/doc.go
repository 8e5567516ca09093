// Package buffer provides the block and snapshot types shared between the
// render goroutine and control readers.
//
// Stereo is the planar two-channel block every graph node renders into.
// Triple is a single-writer triple buffer: the render goroutine fills and
// publishes windows without ever blocking, and readers copy out the newest
// complete window. A read may be stale but is never torn.
package buffer
