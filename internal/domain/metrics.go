package domain

import (
	"context"
	"time"
)

// Metrics is a point-in-time snapshot of the slideshow supervisor.
type Metrics struct {
	// Timestamp when metrics were collected.
	Timestamp time.Time

	// Hostname of the machine.
	Hostname string

	// ServiceUp indicates if the service is running.
	ServiceUp bool

	// PlayerReady indicates a player is currently handed off and playing.
	PlayerReady bool

	// ActiveMonitors is the number of monitors seen by the last probe.
	ActiveMonitors int

	// Counters since process start.
	StartAttempts  uint64
	PlayerStarts   uint64
	StartFailures  uint64
	NotReady       uint64
	ProbeFailures  uint64
	LastReadyStart time.Time
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(hostname string) *Metrics {
	return &Metrics{
		Timestamp: time.Now(),
		Hostname:  hostname,
		ServiceUp: true,
	}
}

// MetricsPusher defines the interface for pushing metrics to a remote endpoint.
type MetricsPusher interface {
	// Push sends metrics to the remote endpoint.
	Push(ctx context.Context, metrics *Metrics) error

	// Validate checks if the pusher is properly configured.
	Validate(ctx context.Context) error
}
