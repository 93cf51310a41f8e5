package notify

import (
	"context"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
)

// LevelFilter forwards notifications at or above a minimum level.
type LevelFilter struct {
	next domain.Notifier
	min  domain.NotificationLevel
}

// NewLevelFilter wraps next so that only notifications of at least min
// severity are delivered.
func NewLevelFilter(next domain.Notifier, min domain.NotificationLevel) *LevelFilter {
	return &LevelFilter{next: next, min: min}
}

// Notify forwards n if its level is high enough.
func (f *LevelFilter) Notify(ctx context.Context, n *domain.Notification) error {
	if severity(n.Level) < severity(f.min) {
		return nil
	}
	return f.next.Notify(ctx, n)
}

// Validate validates the wrapped notifier.
func (f *LevelFilter) Validate(ctx context.Context) error {
	return f.next.Validate(ctx)
}

func severity(level domain.NotificationLevel) int {
	switch level {
	case domain.NotificationLevelError:
		return 2
	case domain.NotificationLevelWarning:
		return 1
	default:
		return 0
	}
}

var _ domain.Notifier = (*LevelFilter)(nil)
