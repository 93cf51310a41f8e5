package player

import (
	"sync"
	"sync/atomic"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
)

// MockPlayer is a mock implementation of domain.Player for testing.
// Without a StartFunc, Start blocks until Stop is called.
type MockPlayer struct {
	StartFunc func() error
	StopFunc  func() error

	Starts atomic.Int32
	Stops  atomic.Int32

	once    sync.Once
	stopped chan struct{}
}

func (m *MockPlayer) init() {
	m.once.Do(func() { m.stopped = make(chan struct{}) })
}

// Start calls StartFunc or blocks until Stop.
func (m *MockPlayer) Start() error {
	m.init()
	m.Starts.Add(1)
	if m.StartFunc != nil {
		return m.StartFunc()
	}
	<-m.stopped
	return nil
}

// Stop calls StopFunc and releases a blocked Start.
func (m *MockPlayer) Stop() error {
	m.init()
	if m.Stops.Add(1) == 1 {
		close(m.stopped)
	}
	if m.StopFunc != nil {
		return m.StopFunc()
	}
	return nil
}

// MockFactory returns players from NewFunc, or a fresh MockPlayer.
type MockFactory struct {
	NewFunc func() (domain.Player, error)

	Calls atomic.Int32
}

// New implements domain.PlayerFactory.
func (f *MockFactory) New() (domain.Player, error) {
	f.Calls.Add(1)
	if f.NewFunc != nil {
		return f.NewFunc()
	}
	return &MockPlayer{}, nil
}

// Ensure MockPlayer implements domain.Player.
var _ domain.Player = (*MockPlayer)(nil)
