package domain

import "context"

// ServiceState represents the state of a system service.
type ServiceState string

const (
	// ServiceStateUnknown indicates the state cannot be determined.
	ServiceStateUnknown ServiceState = "unknown"
	// ServiceStateStopped indicates the service is stopped.
	ServiceStateStopped ServiceState = "stopped"
	// ServiceStateStarting indicates the service is starting.
	ServiceStateStarting ServiceState = "starting"
	// ServiceStateRunning indicates the service is running.
	ServiceStateRunning ServiceState = "running"
	// ServiceStateStopping indicates the service is stopping.
	ServiceStateStopping ServiceState = "stopping"
	// ServiceStateFailed indicates the service manager reports a failure.
	ServiceStateFailed ServiceState = "failed"
	// ServiceStateNotInstalled indicates the service is not installed.
	ServiceStateNotInstalled ServiceState = "not_installed"
)

// String returns the string representation of the service state.
func (s ServiceState) String() string {
	return string(s)
}

// ServiceStatus contains information about the installed service.
type ServiceStatus struct {
	State     ServiceState `json:"state"`
	PID       int          `json:"pid,omitempty"`
	StartTime string       `json:"start_time,omitempty"`
	Message   string       `json:"message,omitempty"`
}

// InstallOptions contains options for service installation.
type InstallOptions struct {
	// Username is the account to run the service as (Windows only).
	Username string

	// Password is the password for the account (Windows only).
	Password string

	// ConfigPath is passed to "serve --config" in the installed unit.
	ConfigPath string

	// AutoStart enables the service at boot or login.
	AutoStart bool

	// BlockUntilReady makes the service report ready only once the player
	// is running instead of as soon as the supervisor is up.
	BlockUntilReady bool
}

// ServiceManager installs and controls the supervisor as a system service.
// Implementations are platform-specific (systemd, Windows SCM).
type ServiceManager interface {
	Install(ctx context.Context, opts InstallOptions) error
	Uninstall(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (*ServiceStatus, error)
	IsSupported() bool
}
