// Package platform installs and controls the supervisor as a user service.
package platform

import (
	"path/filepath"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
)

// InstallOptions contains options for service installation.
type InstallOptions = domain.InstallOptions

// ServiceStatus contains service status information.
type ServiceStatus = domain.ServiceStatus

// ServiceState represents service state.
type ServiceState = domain.ServiceState

// ServiceManager installs and controls the service.
type ServiceManager = domain.ServiceManager

// Service state constants.
const (
	ServiceStateUnknown      = domain.ServiceStateUnknown
	ServiceStateStopped      = domain.ServiceStateStopped
	ServiceStateStarting     = domain.ServiceStateStarting
	ServiceStateRunning      = domain.ServiceStateRunning
	ServiceStateStopping     = domain.ServiceStateStopping
	ServiceStateFailed       = domain.ServiceStateFailed
	ServiceStateNotInstalled = domain.ServiceStateNotInstalled
)

// serveArgs returns the arguments the installed service runs with.
func serveArgs(opts InstallOptions) []string {
	args := []string{"serve"}
	if opts.ConfigPath != "" {
		if abs, err := filepath.Abs(opts.ConfigPath); err == nil {
			args = append(args, "--config", abs)
		} else {
			args = append(args, "--config", opts.ConfigPath)
		}
	}
	if opts.BlockUntilReady {
		args = append(args, "--block-until-ready")
	}
	return args
}
