package core

import "sync/atomic"

// Cell publishes immutable snapshots of a compound value. Every Store
// installs a fresh pointer, so a reader can detect changes by comparing the
// pointer it last applied with Current.
type Cell[T any] struct {
	p atomic.Pointer[T]
}

// NewCell returns a Cell holding v.
func NewCell[T any](v T) *Cell[T] {
	c := &Cell[T]{}
	c.Store(v)
	return c
}

// Store publishes a copy of v.
func (c *Cell[T]) Store(v T) {
	c.p.Store(&v)
}

// Load returns a copy of the latest value.
func (c *Cell[T]) Load() T {
	return *c.p.Load()
}

// Current returns the latest snapshot. The pointee must not be modified.
func (c *Cell[T]) Current() *T {
	return c.p.Load()
}
