package wake

import (
	"testing"
	"time"
)

// TestBlock mirrors the teacher's sleep package test: a sleeper blocks until
// its waker is asserted, an already-asserted waker resolves immediately, and
// clearing a pending assertion before Fetch makes it block again
func TestBlock(t *testing.T) {
	var w Waker
	var s Sleeper

	s.AddWaker(&w, 7)

	before := time.Now()
	go func() {
		time.Sleep(200 * time.Millisecond)
		w.Assert()
	}()

	if id, ok := s.Fetch(true); !ok || id != 7 {
		t.Fatalf("Fetch failed unexpectedly: id=%d ok=%v", id, ok)
	}
	if d := time.Since(before); d < 100*time.Millisecond {
		t.Fatalf("duration too short: %v", d)
	}

	w.Assert()
	if _, ok := s.Fetch(true); !ok {
		t.Fatalf("Fetch failed on already-asserted waker")
	}

	w.Assert()
	w.Clear()
	before = time.Now()
	go func() {
		time.Sleep(200 * time.Millisecond)
		w.Assert()
	}()
	if _, ok := s.Fetch(true); !ok {
		t.Fatalf("Fetch failed unexpectedly")
	}
	if d := time.Since(before); d < 100*time.Millisecond {
		t.Fatalf("duration too short after clear: %v", d)
	}
}

func TestNonBlock(t *testing.T) {
	var w Waker
	var s Sleeper

	if _, ok := s.Fetch(false); ok {
		t.Fatalf("Fetch succeeded with no waker registered")
	}

	s.AddWaker(&w, 0)
	if _, ok := s.Fetch(false); ok {
		t.Fatalf("Fetch succeeded when waker was not asserted")
	}

	w.Assert()
	w.Clear()
	if _, ok := s.Fetch(false); ok {
		t.Fatalf("Fetch succeeded when waker was cleared before Fetch")
	}

	w.Assert()
	if _, ok := s.Fetch(false); !ok {
		t.Fatalf("Fetch failed when waker was asserted")
	}
	if _, ok := s.Fetch(false); ok {
		t.Fatalf("Fetch succeeded when waker was already consumed")
	}
}

func TestMultipleWakers(t *testing.T) {
	var w1, w2 Waker
	var s Sleeper

	s.AddWaker(&w1, 1)
	s.AddWaker(&w2, 2)

	w2.Assert()
	id, ok := s.Fetch(false)
	if !ok || id != 2 {
		t.Fatalf("expected waker 2, got id=%d ok=%v", id, ok)
	}

	if _, ok := s.Fetch(false); ok {
		t.Fatalf("Fetch succeeded with nothing asserted")
	}
}
