package graph

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-console/dsp/buffer"
	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by topology edits.
var (
	ErrSelfLoop = errors.New("graph: node cannot feed itself")
	ErrCycle    = errors.New("graph: connection would create a cycle")
	ErrNilNode  = errors.New("graph: nil node")
)

// Processor transforms a rendered block in place.
type Processor interface {
	Process(b buffer.Stereo)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(b buffer.Stereo)

// Process calls f(b).
func (f ProcessorFunc) Process(b buffer.Stereo) { f(b) }

// Generator writes fresh signal into a zeroed block.
type Generator interface {
	Generate(b buffer.Stereo)
}

// Node is one unit of the audio graph.
type Node struct {
	name string
	proc Processor
	gen  Generator

	inputs atomic.Pointer[[]*Node]

	// control side
	mu      sync.Mutex
	outputs []*Node

	// render side
	out     buffer.Stereo
	quantum uint64
	fresh   bool
}

// New returns a node that sums its inputs and applies proc (which may be nil).
func New(name string, proc Processor) *Node {
	n := &Node{name: name, proc: proc}
	n.inputs.Store(&[]*Node{})
	return n
}

// NewSource returns a node whose block starts with gen's output.
func NewSource(name string, gen Generator, proc Processor) *Node {
	n := New(name, proc)
	n.gen = gen
	return n
}

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// Inputs returns a snapshot of the nodes feeding n.
func (n *Node) Inputs() []*Node {
	return slices.Clone(*n.inputs.Load())
}

// Outputs returns a snapshot of the nodes n feeds.
func (n *Node) Outputs() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	return slices.Clone(n.outputs)
}

// Connect routes n's output into dst. Connecting an existing edge is a no-op.
func (n *Node) Connect(dst *Node) error {
	if n == nil || dst == nil {
		return ErrNilNode
	}
	if n == dst {
		return ErrSelfLoop
	}
	if n.reachableFrom(dst) {
		return ErrCycle
	}

	dst.mu.Lock()
	cur := *dst.inputs.Load()
	if slices.Contains(cur, n) {
		dst.mu.Unlock()
		return nil
	}
	next := append(slices.Clone(cur), n)
	dst.inputs.Store(&next)
	dst.mu.Unlock()

	n.mu.Lock()
	n.outputs = append(n.outputs, dst)
	n.mu.Unlock()

	return nil
}

// DisconnectFrom removes the edge n -> dst if present.
func (n *Node) DisconnectFrom(dst *Node) {
	if n == nil || dst == nil {
		return
	}

	dst.removeInput(n)

	n.mu.Lock()
	n.outputs = slices.DeleteFunc(n.outputs, func(o *Node) bool { return o == dst })
	n.mu.Unlock()
}

// Disconnect removes every outgoing edge of n.
func (n *Node) Disconnect() {
	if n == nil {
		return
	}

	n.mu.Lock()
	outs := n.outputs
	n.outputs = nil
	n.mu.Unlock()

	for _, dst := range outs {
		dst.removeInput(n)
	}
}

// Detach removes every incoming and outgoing edge of n.
func (n *Node) Detach() {
	if n == nil {
		return
	}

	n.Disconnect()
	for _, src := range n.Inputs() {
		src.DisconnectFrom(n)
	}
}

func (n *Node) removeInput(src *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()

	cur := *n.inputs.Load()
	if !slices.Contains(cur, src) {
		return
	}
	next := slices.DeleteFunc(slices.Clone(cur), func(i *Node) bool { return i == src })
	n.inputs.Store(&next)
}

// reachableFrom reports whether n is upstream of start (or start itself),
// i.e. whether adding n -> start would close a loop.
func (n *Node) reachableFrom(start *Node) bool {
	seen := map[*Node]bool{}
	stack := []*Node{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// Walk downstream from start; reaching n means n is fed by start.
		if cur == n {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, cur.Outputs()...)
	}
	return false
}

// Pull renders n for the given quantum and returns its block. Repeated pulls
// within a quantum return the same block. Quanta must increase
// monotonically and Pull must only be called from the render goroutine.
// The returned block is owned by n and valid until the next quantum.
func (n *Node) Pull(quantum uint64, frames int) buffer.Stereo {
	if n.fresh && n.quantum == quantum && n.out.Len() == frames {
		return n.out
	}

	n.out.Resize(frames)
	n.out.Zero()

	if n.gen != nil {
		n.gen.Generate(n.out)
	}

	for _, in := range *n.inputs.Load() {
		b := in.Pull(quantum, frames)
		vecmath.AddBlockInPlace(n.out.L, b.L)
		vecmath.AddBlockInPlace(n.out.R, b.R)
	}

	if n.proc != nil {
		n.proc.Process(n.out)
	}

	n.quantum = quantum
	n.fresh = true

	return n.out
}
