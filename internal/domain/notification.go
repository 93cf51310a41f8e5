package domain

import (
	"context"
	"fmt"
)

// NotificationLevel represents the severity of a notification.
type NotificationLevel string

const (
	// NotificationLevelInfo is for informational messages.
	NotificationLevelInfo NotificationLevel = "info"
	// NotificationLevelWarning is for warning messages.
	NotificationLevelWarning NotificationLevel = "warning"
	// NotificationLevelError is for error messages.
	NotificationLevelError NotificationLevel = "error"
)

// Notification is a message about a player lifecycle event.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Level NotificationLevel `json:"level"`
}

// NewNotification creates a new notification.
func NewNotification(title, body string, level NotificationLevel) *Notification {
	return &Notification{
		Title: title,
		Body:  body,
		Level: level,
	}
}

// InfoNotification creates an info-level notification.
func InfoNotification(title, format string, args ...any) *Notification {
	return NewNotification(title, fmt.Sprintf(format, args...), NotificationLevelInfo)
}

// WarningNotification creates a warning-level notification.
func WarningNotification(title, format string, args ...any) *Notification {
	return NewNotification(title, fmt.Sprintf(format, args...), NotificationLevelWarning)
}

// ErrorNotification creates an error-level notification.
func ErrorNotification(title, format string, args ...any) *Notification {
	return NewNotification(title, fmt.Sprintf(format, args...), NotificationLevelError)
}

// Notifier defines the interface for sending notifications.
type Notifier interface {
	// Notify sends a notification.
	Notify(ctx context.Context, notification *Notification) error

	// Validate checks if the notifier is properly configured.
	Validate(ctx context.Context) error
}

// NopNotifier discards every notification.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(_ context.Context, _ *Notification) error {
	return nil
}

// Validate always returns nil.
func (NopNotifier) Validate(_ context.Context) error {
	return nil
}
