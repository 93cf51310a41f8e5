package notify

import (
	"context"
	"sync"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
)

// MockNotifier is a mock implementation of domain.Notifier for testing.
// It is safe for concurrent use.
type MockNotifier struct {
	NotifyFunc   func(ctx context.Context, notification *domain.Notification) error
	ValidateFunc func(ctx context.Context) error

	mu   sync.Mutex
	sent []*domain.Notification
}

// Notify records the notification and calls NotifyFunc.
func (m *MockNotifier) Notify(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()

	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, n)
	}
	return nil
}

// Validate calls the mock ValidateFunc.
func (m *MockNotifier) Validate(ctx context.Context) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	return nil
}

// Notifications returns a copy of every notification received.
func (m *MockNotifier) Notifications() []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Notification(nil), m.sent...)
}

// Titles returns the titles of every notification received.
func (m *MockNotifier) Titles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	titles := make([]string, len(m.sent))
	for i, n := range m.sent {
		titles[i] = n.Title
	}
	return titles
}

// Ensure MockNotifier implements domain.Notifier.
var _ domain.Notifier = (*MockNotifier)(nil)
