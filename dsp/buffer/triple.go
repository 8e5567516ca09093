package buffer

import (
	"sync"
	"sync/atomic"
)

const freshBit = 1 << 2

// Triple is a lock-free single-writer triple buffer of fixed-size windows.
//
// The writer owns one slot, the reader owns one slot, and the third is the
// most recently published window. Publish and Snapshot exchange slots with a
// single atomic swap, so the writer never waits on a reader.
type Triple struct {
	slots  [3][]float64
	latest atomic.Uint32

	back  int // writer-owned
	front int // reader-owned

	readMu sync.Mutex
}

// NewTriple returns a triple buffer whose windows hold size samples.
func NewTriple(size int) *Triple {
	if size < 0 {
		size = 0
	}
	t := &Triple{back: 0, front: 2}
	for i := range t.slots {
		t.slots[i] = make([]float64, size)
	}
	t.latest.Store(1)
	return t
}

// Size returns the window length.
func (t *Triple) Size() int {
	return len(t.slots[0])
}

// Back returns the writer-owned slot. Only the writer may call it.
func (t *Triple) Back() []float64 {
	return t.slots[t.back]
}

// Publish makes the writer slot the newest window and hands the writer the
// previously published slot. Only the writer may call it.
func (t *Triple) Publish() {
	prev := t.latest.Swap(uint32(t.back) | freshBit)
	t.back = int(prev &^ freshBit)
}

// Snapshot appends the newest published window to dst[:0] and returns it.
// Safe for concurrent readers.
func (t *Triple) Snapshot(dst []float64) []float64 {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	if t.latest.Load()&freshBit != 0 {
		prev := t.latest.Swap(uint32(t.front))
		t.front = int(prev &^ freshBit)
	}
	return append(dst[:0], t.slots[t.front]...)
}
