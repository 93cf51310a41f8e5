package metrics

import (
	"context"
	"sync"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
)

// MockPusher is a mock implementation of domain.MetricsPusher for testing.
// It is safe for concurrent use.
type MockPusher struct {
	PushFunc     func(ctx context.Context, metrics *domain.Metrics) error
	ValidateFunc func(ctx context.Context) error

	mu     sync.Mutex
	pushed []*domain.Metrics
}

// Push records the snapshot and calls PushFunc.
func (m *MockPusher) Push(ctx context.Context, metrics *domain.Metrics) error {
	m.mu.Lock()
	m.pushed = append(m.pushed, metrics)
	m.mu.Unlock()

	if m.PushFunc != nil {
		return m.PushFunc(ctx, metrics)
	}
	return nil
}

// Validate calls the mock ValidateFunc.
func (m *MockPusher) Validate(ctx context.Context) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	return nil
}

// Pushed returns a copy of every snapshot pushed so far.
func (m *MockPusher) Pushed() []*domain.Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Metrics(nil), m.pushed...)
}

// Last returns the most recent snapshot, or nil.
func (m *MockPusher) Last() *domain.Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pushed) == 0 {
		return nil
	}
	return m.pushed[len(m.pushed)-1]
}

// Ensure MockPusher implements domain.MetricsPusher.
var _ domain.MetricsPusher = (*MockPusher)(nil)
