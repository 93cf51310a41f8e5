package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/slideshow-runner/internal/platform"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, logLevel = "", ""
	probeJSON, versionJSON, initForce = false, false, false
	installUsername, installNoAutostart, installBlockUntilReady = "", false, false

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body += "\n[log]\noutput = \"" + filepath.ToSlash(filepath.Join(dir, "runner.log")) + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestVersionCmd_JSON(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")
}

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := execute(t, "--config", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = execute(t, "--config", path, "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "--config", path, "init", "--force")
	assert.NoError(t, err)
}

func TestProbeCmd_JSON(t *testing.T) {
	path := writeConfig(t, "[probe]\nmethod = \"always\"\n")

	out, err := execute(t, "--config", path, "probe", "--json")
	require.NoError(t, err)

	var res probeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "always", res.Method)
	assert.Equal(t, []string{"primary"}, res.Monitors)
	assert.True(t, res.Ready)
}

func TestProbeCmd_Text(t *testing.T) {
	path := writeConfig(t, "[probe]\nmethod = \"always\"\n")

	out, err := execute(t, "--config", path, "probe")
	require.NoError(t, err)
	assert.Contains(t, out, "Active monitors:")
	assert.Contains(t, out, "primary")
}

func TestServeCmd_RequiresSource(t *testing.T) {
	path := writeConfig(t, "[probe]\nmethod = \"always\"\n")

	_, err := execute(t, "--config", path, "serve")
	assert.ErrorContains(t, err, "player.source is required")
}

func TestServeCmd_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "poll_interval = \"1ms\"\n")

	_, err := execute(t, "--config", path, "serve")
	assert.ErrorContains(t, err, "poll_interval")
}

type fakeServiceManager struct {
	supported bool
	installed *platform.InstallOptions
	calls     []string
}

func (f *fakeServiceManager) Install(_ context.Context, opts platform.InstallOptions) error {
	f.installed = &opts
	f.calls = append(f.calls, "install")
	return nil
}

func (f *fakeServiceManager) Uninstall(context.Context) error {
	f.calls = append(f.calls, "uninstall")
	return nil
}

func (f *fakeServiceManager) Start(context.Context) error {
	f.calls = append(f.calls, "start")
	return nil
}

func (f *fakeServiceManager) Stop(context.Context) error {
	f.calls = append(f.calls, "stop")
	return nil
}

func (f *fakeServiceManager) Status(context.Context) (*platform.ServiceStatus, error) {
	f.calls = append(f.calls, "status")
	return &platform.ServiceStatus{State: platform.ServiceStateRunning, PID: 42}, nil
}

func (f *fakeServiceManager) IsSupported() bool { return f.supported }

func useServiceManager(t *testing.T, m platform.ServiceManager) {
	t.Helper()
	orig := newServiceManager
	newServiceManager = func() platform.ServiceManager { return m }
	t.Cleanup(func() { newServiceManager = orig })
}

func TestServiceCmds(t *testing.T) {
	fake := &fakeServiceManager{supported: true}
	useServiceManager(t, fake)

	_, err := execute(t, "--config", "/etc/slides.toml", "install", "--no-autostart", "--block-until-ready")
	require.NoError(t, err)
	require.NotNil(t, fake.installed)
	assert.Equal(t, "/etc/slides.toml", fake.installed.ConfigPath)
	assert.False(t, fake.installed.AutoStart)
	assert.True(t, fake.installed.BlockUntilReady)

	for _, name := range []string{"start", "stop", "uninstall"} {
		_, err := execute(t, name)
		require.NoError(t, err)
	}

	out, err := execute(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Service Status: running")
	assert.Contains(t, out, "PID: 42")

	assert.Equal(t, []string{"install", "start", "stop", "uninstall", "status"}, fake.calls)
}

func TestServiceCmds_Unsupported(t *testing.T) {
	useServiceManager(t, &fakeServiceManager{})

	_, err := execute(t, "status")
	assert.ErrorContains(t, err, "not supported")
}
