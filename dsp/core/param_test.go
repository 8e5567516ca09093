package core

import (
	"sync"
	"testing"
)

func TestParamClampsOnStore(t *testing.T) {
	p := NewParam(0.75, 0, 1)
	if got := p.Load(); got != 0.75 {
		t.Fatalf("Load() = %v, want 0.75", got)
	}
	if got := p.Store(1.4); got != 1 {
		t.Fatalf("Store(1.4) = %v, want 1", got)
	}
	if got := p.Load(); got != 1 {
		t.Fatalf("Load() = %v, want 1", got)
	}
	p.Store(-3)
	if got := p.Load(); got != 0 {
		t.Fatalf("Load() = %v, want 0", got)
	}
}

func TestParamConcurrentAccess(t *testing.T) {
	p := NewParam(0, -1, 1)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			p.Store(float64(i%3) - 1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			v := p.Load()
			if v != -1 && v != 0 && v != 1 {
				t.Errorf("torn read: %v", v)
				return
			}
		}
	}()
	wg.Wait()
}

func TestFlag(t *testing.T) {
	var f Flag
	if f.Load() {
		t.Fatal("zero Flag should be false")
	}
	f.Store(true)
	if !f.Load() {
		t.Fatal("Flag should be true after Store(true)")
	}
}
