// Package config handles application configuration loading and validation.
package config

import "time"

// Default configuration values.
const (
	DefaultPollInterval    = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBlockUntilReady = false
	DefaultReadyTimeout    = 0 * time.Second
	DefaultRestartOnExit   = false

	DefaultPlayerImageDuration     = 10 * time.Second
	DefaultPlayerFullscreen        = true
	DefaultPlayerScreen            = -1
	DefaultPlayerRequireDisplayEnv = true
	DefaultPlayerStopGracePeriod   = 5 * time.Second

	DefaultProbeMethod    = "xrandr"
	DefaultProbeSysfsRoot = "/sys"

	DefaultMetricsEnabled        = false
	DefaultMetricsPushgatewayURL = ""
	DefaultMetricsInterval       = time.Minute

	DefaultRetryMaxAttempts  = 3
	DefaultRetryInitialDelay = 5 * time.Second
	DefaultRetryMaxDelay     = 30 * time.Second

	DefaultAppriseEnabled = false
	DefaultAppriseURL     = ""
	DefaultAppriseKey     = ""
	DefaultAppriseNotify  = NotifyError

	DefaultLogLevel     = "info"
	DefaultLogMaxSizeMB = 10
)

// MinPollInterval is the smallest accepted poll_interval.
const MinPollInterval = 10 * time.Millisecond

// NotifyLevel represents when to send notifications.
type NotifyLevel string

const (
	// NotifyError sends notifications only when the player fails.
	NotifyError NotifyLevel = "error"
	// NotifyWarning also notifies when the display disappears.
	NotifyWarning NotifyLevel = "warning"
	// NotifyAlways also notifies when the player becomes ready.
	NotifyAlways NotifyLevel = "always"
)

// IsValid returns true if the notify level is valid.
func (n NotifyLevel) IsValid() bool {
	switch n {
	case NotifyError, NotifyWarning, NotifyAlways:
		return true
	default:
		return false
	}
}

// String returns the string representation of the notify level.
func (n NotifyLevel) String() string {
	return string(n)
}
