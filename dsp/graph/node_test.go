package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-console/dsp/buffer"
)

type constGen struct{ v float64 }

func (g constGen) Generate(b buffer.Stereo) {
	for i := range b.L {
		b.L[i] += g.v
		b.R[i] += -g.v
	}
}

type countingProc struct{ calls int }

func (p *countingProc) Process(buffer.Stereo) { p.calls++ }

func TestPullSumsInputs(t *testing.T) {
	a := NewSource("a", constGen{0.25}, nil)
	b := NewSource("b", constGen{0.5}, nil)
	sum := New("sum", nil)

	if err := a.Connect(sum); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := b.Connect(sum); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	out := sum.Pull(1, 8)
	if out.Len() != 8 {
		t.Fatalf("Len = %d, want 8", out.Len())
	}
	for i := range 8 {
		if math.Abs(out.L[i]-0.75) > 1e-12 || math.Abs(out.R[i]+0.75) > 1e-12 {
			t.Fatalf("frame %d = %g/%g, want 0.75/-0.75", i, out.L[i], out.R[i])
		}
	}
}

func TestPullRendersSharedNodeOncePerQuantum(t *testing.T) {
	proc := &countingProc{}
	shared := NewSource("shared", constGen{1}, proc)
	x := New("x", nil)
	y := New("y", nil)
	root := New("root", nil)

	for _, edge := range [][2]*Node{{shared, x}, {shared, y}, {x, root}, {y, root}} {
		if err := edge[0].Connect(edge[1]); err != nil {
			t.Fatalf("Connect %s->%s: %v", edge[0].Name(), edge[1].Name(), err)
		}
	}

	out := root.Pull(1, 4)
	if proc.calls != 1 {
		t.Fatalf("shared node processed %d times, want 1", proc.calls)
	}
	if out.L[0] != 2 {
		t.Fatalf("root = %g, want 2 (two paths)", out.L[0])
	}

	root.Pull(1, 4)
	if proc.calls != 1 {
		t.Fatalf("re-pull of same quantum re-rendered: %d", proc.calls)
	}

	root.Pull(2, 4)
	if proc.calls != 2 {
		t.Fatalf("next quantum calls = %d, want 2", proc.calls)
	}
}

func TestConnectRejectsCycles(t *testing.T) {
	a := New("a", nil)
	b := New("b", nil)
	c := New("c", nil)

	if err := a.Connect(a); !errors.Is(err, ErrSelfLoop) {
		t.Fatalf("self loop: got %v", err)
	}
	if err := a.Connect(b); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := b.Connect(c); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Connect(a); !errors.Is(err, ErrCycle) {
		t.Fatalf("cycle: got %v", err)
	}
	if err := a.Connect(nil); !errors.Is(err, ErrNilNode) {
		t.Fatalf("nil: got %v", err)
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	a := NewSource("a", constGen{1}, nil)
	sum := New("sum", nil)

	_ = a.Connect(sum)
	_ = a.Connect(sum)

	if n := len(sum.Inputs()); n != 1 {
		t.Fatalf("inputs = %d, want 1", n)
	}
	if got := sum.Pull(1, 1).L[0]; got != 1 {
		t.Fatalf("sum = %g, want 1", got)
	}
}

func TestDisconnect(t *testing.T) {
	a := NewSource("a", constGen{1}, nil)
	x := New("x", nil)
	y := New("y", nil)

	_ = a.Connect(x)
	_ = a.Connect(y)

	a.DisconnectFrom(x)
	if len(x.Inputs()) != 0 || len(a.Outputs()) != 1 {
		t.Fatalf("DisconnectFrom left edges: x.in=%d a.out=%d", len(x.Inputs()), len(a.Outputs()))
	}
	if got := x.Pull(1, 1).L[0]; got != 0 {
		t.Fatalf("disconnected node still receives %g", got)
	}

	a.Disconnect()
	if len(y.Inputs()) != 0 || len(a.Outputs()) != 0 {
		t.Fatal("Disconnect left edges")
	}
	a.Disconnect() // idempotent
}

func TestDetach(t *testing.T) {
	src := NewSource("src", constGen{1}, nil)
	mid := New("mid", nil)
	dst := New("dst", nil)

	_ = src.Connect(mid)
	_ = mid.Connect(dst)

	mid.Detach()
	if len(mid.Inputs()) != 0 || len(mid.Outputs()) != 0 || len(src.Outputs()) != 0 || len(dst.Inputs()) != 0 {
		t.Fatal("Detach left edges")
	}
}

func TestGainProcessor(t *testing.T) {
	g := NewGain(0.5)
	n := NewSource("n", constGen{1}, g)

	if got := n.Pull(1, 2).L[1]; got != 0.5 {
		t.Fatalf("gain 0.5 = %g", got)
	}

	g.Set(0)
	if got := n.Pull(2, 2).L[1]; got != 0 {
		t.Fatalf("gain 0 = %g", got)
	}

	g.Set(-1)
	if g.Value() != 0 {
		t.Fatalf("negative gain stored as %g", g.Value())
	}
	g.Set(math.NaN())
	if g.Value() != 0 {
		t.Fatalf("NaN gain stored as %g", g.Value())
	}
}

func TestChain(t *testing.T) {
	var order []int
	c := Chain{
		ProcessorFunc(func(buffer.Stereo) { order = append(order, 1) }),
		ProcessorFunc(func(buffer.Stereo) { order = append(order, 2) }),
	}
	c.Process(buffer.NewStereo(1))

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v", order)
	}
}
