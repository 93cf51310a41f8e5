//go:build windows

package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const (
	serviceName        = "SlideshowRunner"
	serviceDisplayName = "Slideshow Runner"
	serviceDescription = "Keeps a fullscreen slideshow running on the attached monitor"
)

// WindowsServiceManager manages the Windows service.
type WindowsServiceManager struct{}

// NewServiceManager creates a new service manager for the current platform.
func NewServiceManager() ServiceManager {
	return &WindowsServiceManager{}
}

// IsSupported returns true on Windows.
func (w *WindowsServiceManager) IsSupported() bool {
	return true
}

// withService connects to the SCM, opens the service and calls fn.
func withService(fn func(s *mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to service manager: %w", err)
	}
	defer func() { _ = m.Disconnect() }()

	s, err := m.OpenService(serviceName)
	if err != nil {
		return fmt.Errorf("service %s not found: %w", serviceName, err)
	}
	defer s.Close()

	return fn(s)
}

// Install registers the service with restart-on-failure recovery.
func (w *WindowsServiceManager) Install(ctx context.Context, opts InstallOptions) error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	if exePath, err = filepath.Abs(exePath); err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to service manager: %w", err)
	}
	defer func() { _ = m.Disconnect() }()

	if s, err := m.OpenService(serviceName); err == nil {
		s.Close()
		return fmt.Errorf("service %s already exists", serviceName)
	}

	startType := uint32(mgr.StartManual)
	if opts.AutoStart {
		startType = uint32(mgr.StartAutomatic)
	}

	s, err := m.CreateService(serviceName, exePath, mgr.Config{
		DisplayName:      serviceDisplayName,
		Description:      serviceDescription,
		StartType:        startType,
		ServiceStartName: opts.Username,
		Password:         opts.Password,
	}, serveArgs(opts)...)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer s.Close()

	restart := mgr.RecoveryAction{Type: mgr.ServiceRestart, Delay: 30 * time.Second}
	if err := s.SetRecoveryActions([]mgr.RecoveryAction{restart, restart, restart}, 86400); err != nil {
		return fmt.Errorf("service created but recovery actions could not be set: %w", err)
	}

	return nil
}

// Uninstall stops and removes the service.
func (w *WindowsServiceManager) Uninstall(ctx context.Context) error {
	return withService(func(s *mgr.Service) error {
		if status, err := s.Query(); err == nil && status.State != svc.Stopped {
			if _, err := s.Control(svc.Stop); err == nil {
				_ = waitForState(ctx, s, svc.Stopped, 30*time.Second)
			}
		}

		if err := s.Delete(); err != nil {
			return fmt.Errorf("failed to delete service: %w", err)
		}
		return nil
	})
}

// Start starts the service.
func (w *WindowsServiceManager) Start(ctx context.Context) error {
	return withService(func(s *mgr.Service) error {
		if err := s.Start(); err != nil {
			return fmt.Errorf("failed to start service: %w", err)
		}
		return nil
	})
}

// Stop stops the service and waits for it to exit.
func (w *WindowsServiceManager) Stop(ctx context.Context) error {
	return withService(func(s *mgr.Service) error {
		if _, err := s.Control(svc.Stop); err != nil {
			return fmt.Errorf("failed to stop service: %w", err)
		}
		return waitForState(ctx, s, svc.Stopped, 30*time.Second)
	})
}

// Status returns the current service status.
func (w *WindowsServiceManager) Status(ctx context.Context) (*ServiceStatus, error) {
	var status *ServiceStatus
	err := withService(func(s *mgr.Service) error {
		q, err := s.Query()
		if err != nil {
			return fmt.Errorf("failed to query service status: %w", err)
		}
		status = &ServiceStatus{State: windowsState(q.State), PID: int(q.ProcessId)}
		return nil
	})
	if err != nil && status == nil {
		return &ServiceStatus{State: ServiceStateNotInstalled, Message: "Service is not installed"}, nil
	}
	return status, err
}

func waitForState(ctx context.Context, s *mgr.Service, want svc.State, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		q, err := s.Query()
		if err != nil {
			return fmt.Errorf("failed to query service status: %w", err)
		}
		if q.State == want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for service state %d", want)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(300 * time.Millisecond):
		}
	}
}

func windowsState(s svc.State) ServiceState {
	switch s {
	case svc.Stopped:
		return ServiceStateStopped
	case svc.StartPending:
		return ServiceStateStarting
	case svc.Running:
		return ServiceStateRunning
	case svc.StopPending:
		return ServiceStateStopping
	default:
		return ServiceStateUnknown
	}
}

// RunAsService runs handler under the Windows service control manager.
func RunAsService(handler func(ctx context.Context) error) error {
	return svc.Run(serviceName, &windowsService{handler: handler})
}

// IsRunningAsService returns true if running as a Windows service.
func IsRunningAsService() bool {
	isService, err := svc.IsWindowsService()
	return err == nil && isService
}

type windowsService struct {
	handler func(ctx context.Context) error
}

func (ws *windowsService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown

	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- ws.handler(ctx) }()

	changes <- svc.Status{State: svc.Running, Accepts: accepted}

	for {
		select {
		case err := <-errCh:
			if err != nil {
				return true, 1
			}
			return false, 0

		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				changes <- svc.Status{State: svc.StopPending}
				cancel()
				<-errCh
				return false, 0
			}
		}
	}
}
