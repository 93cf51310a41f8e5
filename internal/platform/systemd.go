//go:build !windows

package platform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/sharkusmanch/slideshow-runner/internal/config"
)

const unitName = "slideshow-runner.service"

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=Monitor-aware slideshow player
After=graphical-session.target
PartOf=graphical-session.target

[Service]
Type=notify
NotifyAccess=main
ExecStart={{.ExecStart}}
Restart=on-failure
RestartSec=10
TimeoutStopSec=30

[Install]
WantedBy=graphical-session.target
`))

// SystemctlFunc runs "systemctl --user" with args and returns its output.
type SystemctlFunc func(ctx context.Context, args ...string) ([]byte, error)

// SystemdServiceManager manages a systemd user unit.
type SystemdServiceManager struct {
	unitDir    string
	executable func() (string, error)
	systemctl  SystemctlFunc
}

// SystemdOption configures a SystemdServiceManager.
type SystemdOption func(*SystemdServiceManager)

// WithUnitDir overrides the directory the unit file is written to.
func WithUnitDir(dir string) SystemdOption {
	return func(m *SystemdServiceManager) {
		m.unitDir = dir
	}
}

// WithSystemctl replaces the systemctl runner.
func WithSystemctl(fn SystemctlFunc) SystemdOption {
	return func(m *SystemdServiceManager) {
		m.systemctl = fn
	}
}

// WithExecutable replaces os.Executable for the ExecStart line.
func WithExecutable(fn func() (string, error)) SystemdOption {
	return func(m *SystemdServiceManager) {
		m.executable = fn
	}
}

// NewSystemdServiceManager creates a new SystemdServiceManager.
func NewSystemdServiceManager(opts ...SystemdOption) *SystemdServiceManager {
	m := &SystemdServiceManager{
		executable: os.Executable,
		systemctl:  runSystemctl,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewServiceManager creates a new service manager for the current platform.
func NewServiceManager() ServiceManager {
	return NewSystemdServiceManager()
}

// IsSupported reports whether systemctl is available.
func (m *SystemdServiceManager) IsSupported() bool {
	_, err := exec.LookPath("systemctl")
	return err == nil
}

// UnitPath returns the path of the unit file.
func (m *SystemdServiceManager) UnitPath() (string, error) {
	dir := m.unitDir
	if dir == "" {
		var err error
		if dir, err = config.SystemdUserUnitDir(); err != nil {
			return "", fmt.Errorf("failed to determine unit directory: %w", err)
		}
	}
	return filepath.Join(dir, unitName), nil
}

// Install writes the unit file, reloads systemd and optionally enables
// the unit for the graphical session.
func (m *SystemdServiceManager) Install(ctx context.Context, opts InstallOptions) error {
	path, err := m.UnitPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("service already installed at %s", path)
	}

	exe, err := m.executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	if exe, err = filepath.Abs(exe); err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	unit, err := renderUnit(exe, serveArgs(opts))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create unit directory: %w", err)
	}
	if err := os.WriteFile(path, unit, 0o644); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}

	if _, err := m.systemctl(ctx, "daemon-reload"); err != nil {
		return err
	}
	if opts.AutoStart {
		if _, err := m.systemctl(ctx, "enable", unitName); err != nil {
			return err
		}
	}

	return nil
}

// Uninstall stops and disables the unit and removes the unit file.
func (m *SystemdServiceManager) Uninstall(ctx context.Context) error {
	path, err := m.UnitPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("service %s not installed", unitName)
	}

	// Either may fail if the unit was never started or enabled.
	_, _ = m.systemctl(ctx, "stop", unitName)
	_, _ = m.systemctl(ctx, "disable", unitName)

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}

	_, err = m.systemctl(ctx, "daemon-reload")
	return err
}

// Start starts the unit.
func (m *SystemdServiceManager) Start(ctx context.Context) error {
	_, err := m.systemctl(ctx, "start", unitName)
	return err
}

// Stop stops the unit.
func (m *SystemdServiceManager) Stop(ctx context.Context) error {
	_, err := m.systemctl(ctx, "stop", unitName)
	return err
}

// Status queries the unit state.
func (m *SystemdServiceManager) Status(ctx context.Context) (*ServiceStatus, error) {
	out, err := m.systemctl(ctx, "show", unitName,
		"--property=LoadState,ActiveState,SubState,MainPID,ActiveEnterTimestamp")
	if err != nil {
		return nil, err
	}
	return parseShow(out), nil
}

func parseShow(out []byte) *ServiceStatus {
	props := map[string]string{}
	for _, line := range strings.Split(string(out), "\n") {
		if k, v, ok := strings.Cut(strings.TrimSpace(line), "="); ok {
			props[k] = v
		}
	}

	if props["LoadState"] == "not-found" {
		return &ServiceStatus{State: ServiceStateNotInstalled, Message: "Service is not installed"}
	}

	status := &ServiceStatus{
		State:     unitState(props["ActiveState"]),
		StartTime: props["ActiveEnterTimestamp"],
		Message:   props["SubState"],
	}
	if pid, err := strconv.Atoi(props["MainPID"]); err == nil && pid > 0 {
		status.PID = pid
	}
	return status
}

func unitState(active string) ServiceState {
	switch active {
	case "active", "reloading":
		return ServiceStateRunning
	case "activating":
		return ServiceStateStarting
	case "deactivating":
		return ServiceStateStopping
	case "inactive":
		return ServiceStateStopped
	case "failed":
		return ServiceStateFailed
	default:
		return ServiceStateUnknown
	}
}

func renderUnit(exe string, args []string) ([]byte, error) {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, systemdQuote(exe))
	for _, a := range args {
		parts = append(parts, systemdQuote(a))
	}

	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, struct{ ExecStart string }{strings.Join(parts, " ")}); err != nil {
		return nil, fmt.Errorf("failed to render unit file: %w", err)
	}
	return buf.Bytes(), nil
}

// systemdQuote quotes s for an ExecStart line when it contains spaces or
// quoting characters.
func systemdQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"'\\") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func runSystemctl(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "systemctl", append([]string{"--user"}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("systemctl --user %s failed: %s: %w",
			strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return out, nil
}

// RunAsService is only meaningful on Windows. Under systemd the process
// runs in the foreground and reports readiness with Notify.
func RunAsService(handler func(ctx context.Context) error) error {
	return fmt.Errorf("running as a Windows service is not supported on this platform")
}

// IsRunningAsService returns false outside Windows.
func IsRunningAsService() bool {
	return false
}
