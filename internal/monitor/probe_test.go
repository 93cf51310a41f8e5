package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedRun(out string, err error) RunFunc {
	return func(context.Context, string, ...string) ([]byte, error) {
		return []byte(out), err
	}
}

func TestXrandrProbe_ParsesActiveMonitors(t *testing.T) {
	out := "Monitors: 2\n" +
		" 0: +*HDMI-1 1920/531x1080/299+0+0  HDMI-1\n" +
		" 1: +DP-1 1920/527x1080/296+1920+0  DP-1\n"

	var gotName string
	var gotArgs []string
	p := NewXrandrProbe(WithRunFunc(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte(out), nil
	}))

	monitors, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"HDMI-1", "DP-1"}, monitors)
	assert.Equal(t, "xrandr", gotName)
	assert.Equal(t, []string{"--listactivemonitors"}, gotArgs)
}

func TestXrandrProbe_NoMonitors(t *testing.T) {
	p := NewXrandrProbe(WithRunFunc(fixedRun("Monitors: 0\n", nil)))

	monitors, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Empty(t, monitors)
}

func TestXrandrProbe_DisplayUnavailable(t *testing.T) {
	p := NewXrandrProbe(
		WithRunFunc(fixedRun("", errors.New("xrandr failed: Can't open display :0"))),
		WithProbeLogger(quietLogger()),
	)

	monitors, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{}, monitors)
}

func TestXrandrProbe_OtherError(t *testing.T) {
	p := NewXrandrProbe(WithRunFunc(fixedRun("", errors.New("xrandr: not found"))))

	_, err := p.Probe(context.Background())
	assert.ErrorContains(t, err, "not found")
}

func TestDRMProbe_ConnectedConnectors(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/sys/class/drm/card0-HDMI-A-1/status": "connected\n",
		"/sys/class/drm/card0-DP-1/status":     "disconnected\n",
		"/sys/class/drm/card1-eDP-1/status":    "connected\n",
		"/sys/class/drm/card0/dev":             "226:0\n",
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	monitors, err := NewDRMProbe(fs, "").Probe(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"HDMI-A-1", "eDP-1"}, monitors)
}

func TestDRMProbe_CustomRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/fake/class/drm/card0-DP-2/status", []byte("connected"), 0o644))

	monitors, err := NewDRMProbe(fs, "/fake").Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"DP-2"}, monitors)
}

func TestDRMProbe_NothingConnected(t *testing.T) {
	monitors, err := NewDRMProbe(afero.NewMemMapFs(), "/sys").Probe(context.Background())
	require.NoError(t, err)
	assert.Empty(t, monitors)
}

func TestConnectorName(t *testing.T) {
	assert.Equal(t, "HDMI-A-1", connectorName("card0-HDMI-A-1"))
	assert.Equal(t, "card0", connectorName("card0"))
}

func TestCommandProbe_SingleLine(t *testing.T) {
	p := NewCommandProbe("check-screen --quiet", WithRunFunc(fixedRun("HDMI-1\n", nil)))

	got, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HDMI-1", got)
	assert.Equal(t, "check-screen", p.name)
	assert.Equal(t, []string{"--quiet"}, p.args)
}

func TestCommandProbe_MultipleLines(t *testing.T) {
	p := NewCommandProbe("list", WithRunFunc(fixedRun("a\n\n b \n", nil)))

	got, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestCommandProbe_NoOutput(t *testing.T) {
	p := NewCommandProbe("list", WithRunFunc(fixedRun("", nil)))

	got, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCommandProbe_Error(t *testing.T) {
	p := NewCommandProbe("list", WithRunFunc(fixedRun("", errors.New("boom"))))

	_, err := p.Probe(context.Background())
	assert.EqualError(t, err, "boom")
}

func TestStaticProbe(t *testing.T) {
	got, err := StaticProbe(true).Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    any
		wantErr string
	}{
		{name: "default is xrandr", cfg: Config{}, want: &XrandrProbe{}},
		{name: "xrandr", cfg: Config{Method: MethodXrandr}, want: &XrandrProbe{}},
		{name: "drm", cfg: Config{Method: MethodDRM}, want: &DRMProbe{}},
		{name: "command", cfg: Config{Method: MethodCommand, Command: "true"}, want: &CommandProbe{}},
		{name: "always", cfg: Config{Method: MethodAlways}, want: StaticProbe(true)},
		{name: "command without command", cfg: Config{Method: MethodCommand}, wantErr: "probe.command is required"},
		{name: "unknown", cfg: Config{Method: "magic"}, wantErr: "unknown probe method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg, quietLogger())
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

func TestMethod_IsValid(t *testing.T) {
	assert.True(t, MethodDRM.IsValid())
	assert.False(t, Method("").IsValid())
	assert.False(t, Method("magic").IsValid())
}
