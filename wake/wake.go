// Package wake provides a waker/sleeper pair used to multiplex the sender's
// wake sources (ACK arrival, resend deadline, shutdown) into a single
// control goroutine without a poll-sleep loop.
//
// The contract mirrors the teacher's sleep package: a Waker is asserted by
// whichever goroutine produced an event, a Sleeper blocks in Fetch until one
// of its registered wakers is asserted, and an already-asserted waker
// resolves a blocking Fetch immediately.
package wake

import "sync"

// Waker is a single-slot, level-triggered notification. Assert may be called
// any number of times before the corresponding Sleeper ever calls Fetch; the
// waker remains asserted until Clear (implicit, via Sleeper.Fetch, or
// explicit) resets it
type Waker struct {
	mu       sync.Mutex
	asserted bool
	inQueue  bool
	s        *Sleeper
	id       int
}

// Assert marks the waker as asserted and, if it is registered with a
// Sleeper, wakes it
func (w *Waker) Assert() {
	w.mu.Lock()
	w.asserted = true
	s := w.s
	queue := !w.inQueue
	if s != nil && queue {
		w.inQueue = true
	}
	w.mu.Unlock()

	if s != nil && queue {
		s.enqueue(w)
	}
}

// Clear resets the waker to the unasserted state
func (w *Waker) Clear() {
	w.mu.Lock()
	w.asserted = false
	w.mu.Unlock()
}

// Sleeper waits on a fixed set of wakers and reports which one fired. The
// zero value is ready to use
type Sleeper struct {
	mu      sync.Mutex
	pending []*Waker
	notify  chan struct{}
}

func (s *Sleeper) lazyInit() {
	if s.notify == nil {
		s.notify = make(chan struct{}, 1)
	}
}

// AddWaker registers w with the sleeper under the given id. If w is already
// asserted, the sleeper is notified immediately
func (s *Sleeper) AddWaker(w *Waker, id int) {
	s.mu.Lock()
	s.lazyInit()

	w.mu.Lock()
	w.s = s
	w.id = id
	asserted := w.asserted
	queue := asserted && !w.inQueue
	if queue {
		w.inQueue = true
	}
	w.mu.Unlock()

	if queue {
		s.pending = append(s.pending, w)
	}
	s.mu.Unlock()

	if queue {
		s.kick()
	}
}

func (s *Sleeper) enqueue(w *Waker) {
	s.mu.Lock()
	s.lazyInit()
	s.pending = append(s.pending, w)
	s.mu.Unlock()
	s.kick()
}

func (s *Sleeper) kick() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Fetch returns the id of an asserted waker, clearing its pending marker. If
// block is false and no waker is currently asserted, it returns (0, false)
// immediately; otherwise it blocks until one becomes asserted
func (s *Sleeper) Fetch(block bool) (int, bool) {
	for {
		s.mu.Lock()
		s.lazyInit()
		for len(s.pending) > 0 {
			w := s.pending[0]
			s.pending = s.pending[1:]

			w.mu.Lock()
			w.inQueue = false
			asserted := w.asserted
			w.asserted = false
			id := w.id
			w.mu.Unlock()

			if asserted {
				s.mu.Unlock()
				return id, true
			}
		}
		s.mu.Unlock()

		if !block {
			return 0, false
		}
		<-s.notify
	}
}
