package slideshow

import "sync"

// signal is a resettable broadcast flag. Waiters block on the channel
// returned by C, which is closed while the flag is set.
type signal struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

// Set raises the flag and wakes every waiter.
func (s *signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		close(s.ch)
		s.set = true
	}
}

// Clear lowers the flag. Later calls to C return a fresh, open channel.
func (s *signal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		s.ch = make(chan struct{})
		s.set = false
	}
}

// IsSet reports whether the flag is raised.
func (s *signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// C returns a channel that is closed once the flag is raised.
func (s *signal) C() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}
