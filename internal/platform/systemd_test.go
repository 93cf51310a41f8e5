//go:build !windows

package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type systemctlRecorder struct {
	calls  []string
	output map[string]string
	fail   map[string]error
}

func (r *systemctlRecorder) run(_ context.Context, args ...string) ([]byte, error) {
	call := strings.Join(args, " ")
	r.calls = append(r.calls, call)
	if err := r.fail[args[0]]; err != nil {
		return nil, err
	}
	return []byte(r.output[args[0]]), nil
}

func newTestManager(t *testing.T, rec *systemctlRecorder) (*SystemdServiceManager, string) {
	t.Helper()
	dir := t.TempDir()
	m := NewSystemdServiceManager(
		WithUnitDir(dir),
		WithSystemctl(rec.run),
		WithExecutable(func() (string, error) { return "/opt/slideshow runner/slideshow-runner", nil }),
	)
	return m, filepath.Join(dir, unitName)
}

func TestSystemd_Install(t *testing.T) {
	rec := &systemctlRecorder{}
	m, path := newTestManager(t, rec)

	err := m.Install(context.Background(), InstallOptions{
		ConfigPath:      "/etc/slideshow/config.toml",
		AutoStart:       true,
		BlockUntilReady: true,
	})
	require.NoError(t, err)

	unit, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(unit), "Type=notify")
	assert.Contains(t, string(unit),
		`ExecStart="/opt/slideshow runner/slideshow-runner" serve --config /etc/slideshow/config.toml --block-until-ready`)
	assert.Contains(t, string(unit), "WantedBy=graphical-session.target")

	assert.Equal(t, []string{"daemon-reload", "enable " + unitName}, rec.calls)
}

func TestSystemd_Install_AlreadyInstalled(t *testing.T) {
	rec := &systemctlRecorder{}
	m, path := newTestManager(t, rec)
	require.NoError(t, os.WriteFile(path, []byte("[Unit]\n"), 0o644))

	err := m.Install(context.Background(), InstallOptions{})
	assert.ErrorContains(t, err, "already installed")
	assert.Empty(t, rec.calls)
}

func TestSystemd_Install_NoAutoStart(t *testing.T) {
	rec := &systemctlRecorder{}
	m, _ := newTestManager(t, rec)

	require.NoError(t, m.Install(context.Background(), InstallOptions{}))
	assert.Equal(t, []string{"daemon-reload"}, rec.calls)
}

func TestSystemd_Uninstall(t *testing.T) {
	rec := &systemctlRecorder{fail: map[string]error{"disable": errors.New("not enabled")}}
	m, path := newTestManager(t, rec)
	require.NoError(t, os.WriteFile(path, []byte("[Unit]\n"), 0o644))

	require.NoError(t, m.Uninstall(context.Background()))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, []string{"stop " + unitName, "disable " + unitName, "daemon-reload"}, rec.calls)
}

func TestSystemd_Uninstall_NotInstalled(t *testing.T) {
	m, _ := newTestManager(t, &systemctlRecorder{})
	assert.ErrorContains(t, m.Uninstall(context.Background()), "not installed")
}

func TestSystemd_StartStop(t *testing.T) {
	rec := &systemctlRecorder{}
	m, _ := newTestManager(t, rec)

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))
	assert.Equal(t, []string{"start " + unitName, "stop " + unitName}, rec.calls)
}

func TestSystemd_Status(t *testing.T) {
	rec := &systemctlRecorder{output: map[string]string{
		"show": "LoadState=loaded\nActiveState=active\nSubState=running\nMainPID=4242\nActiveEnterTimestamp=Sat 2026-10-17 09:00:00 UTC\n",
	}}
	m, _ := newTestManager(t, rec)

	status, err := m.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ServiceStateRunning, status.State)
	assert.Equal(t, 4242, status.PID)
	assert.Equal(t, "running", status.Message)
	assert.Equal(t, "Sat 2026-10-17 09:00:00 UTC", status.StartTime)
}

func TestParseShow(t *testing.T) {
	assert.Equal(t, ServiceStateNotInstalled, parseShow([]byte("LoadState=not-found\nActiveState=inactive\n")).State)

	failed := parseShow([]byte("LoadState=loaded\nActiveState=failed\nMainPID=0\n"))
	assert.Equal(t, ServiceStateFailed, failed.State)
	assert.Zero(t, failed.PID)
}

func TestUnitState(t *testing.T) {
	tests := map[string]ServiceState{
		"active":       ServiceStateRunning,
		"activating":   ServiceStateStarting,
		"deactivating": ServiceStateStopping,
		"inactive":     ServiceStateStopped,
		"failed":       ServiceStateFailed,
		"weird":        ServiceStateUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, unitState(in), in)
	}
}

func TestSystemdQuote(t *testing.T) {
	assert.Equal(t, "serve", systemdQuote("serve"))
	assert.Equal(t, `"a b"`, systemdQuote("a b"))
	assert.Equal(t, `"say \"hi\""`, systemdQuote(`say "hi"`))
	assert.Equal(t, `""`, systemdQuote(""))
}
