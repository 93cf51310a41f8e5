package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
)

// MultiNotifier fans a notification out to several notifiers.
type MultiNotifier struct {
	notifiers []domain.Notifier
	logger    *slog.Logger
}

// NewMultiNotifier creates a new MultiNotifier.
func NewMultiNotifier(logger *slog.Logger, notifiers ...domain.Notifier) *MultiNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiNotifier{
		notifiers: notifiers,
		logger:    logger,
	}
}

// Notify delivers to every notifier and joins their errors.
func (m *MultiNotifier) Notify(ctx context.Context, n *domain.Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			m.logger.Warn("notifier failed", "title", n.Title, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate validates every notifier and joins their errors.
func (m *MultiNotifier) Validate(ctx context.Context) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Validate(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of wrapped notifiers.
func (m *MultiNotifier) Len() int {
	return len(m.notifiers)
}

// Ensure MultiNotifier implements domain.Notifier.
var _ domain.Notifier = (*MultiNotifier)(nil)
