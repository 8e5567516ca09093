// Package graph provides a pull-based stereo audio graph.
//
// A Node sums its inputs, optionally adds a generator's output and runs an
// optional in-place Processor. The output sink pulls the root node once per
// render quantum; a node feeding several destinations renders once per
// quantum and every consumer reads the same block. Topology edits happen on
// a control goroutine and are published to the render goroutine with
// atomic pointer swaps of copy-on-write input lists.
package graph
