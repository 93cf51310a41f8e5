// Package domain defines core types and interfaces shared across packages.
package domain

import (
	"context"
	"errors"
)

// ErrMonitorNotReady is returned by a player or its factory when no display
// is available yet. It is an expected, recoverable condition.
var ErrMonitorNotReady = errors.New("monitor not ready")

// Player is a handle to an external playback session bound to a display.
type Player interface {
	// Start begins playback and blocks until playback ends or fails.
	// A nil return means playback ended voluntarily.
	Start() error

	// Stop ends playback and releases resources. It must be safe to call
	// more than once and concurrently with Start.
	Stop() error
}

// PlayerFactory builds a new, not yet started player.
type PlayerFactory func() (Player, error)

// MonitorProbe reports the currently active displays.
//
// The result is intentionally loosely typed: a probe may return a list of
// connector names, a single name, or a boolean-ish presence flag.
type MonitorProbe interface {
	Probe(ctx context.Context) (any, error)
}

// ProbeFunc adapts an ordinary function to the MonitorProbe interface.
type ProbeFunc func(ctx context.Context) (any, error)

// Probe calls f(ctx).
func (f ProbeFunc) Probe(ctx context.Context) (any, error) {
	return f(ctx)
}
