package player

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
)

// fakeMPV writes a shell script standing in for mpv and returns a factory
// that launches it.
func fakeMPV(t *testing.T, script string) *Factory {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script players are not supported on windows")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "mpv")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+script+"\n"), 0o755))

	return NewFactory(MPVConfig{
		BinaryPath:      bin,
		Source:          dir,
		Screen:          -1,
		StopGracePeriod: time.Second,
	})
}

func TestMPVPlayer_Start_CleanExit(t *testing.T) {
	f := fakeMPV(t, "exit 0")

	p, err := f.New()
	require.NoError(t, err)

	assert.NoError(t, p.Start())
}

func TestMPVPlayer_Start_DisplayErrorIsNotReady(t *testing.T) {
	f := fakeMPV(t, `echo "[vo/gpu/x11] X11 error: cannot open display" >&2; exit 1`)

	p, err := f.New()
	require.NoError(t, err)

	err = p.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMonitorNotReady)
}

func TestMPVPlayer_Start_OtherFailure(t *testing.T) {
	f := fakeMPV(t, `echo "Errors when loading file" >&2; exit 2`)

	p, err := f.New()
	require.NoError(t, err)

	err = p.Start()
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrMonitorNotReady))
	assert.Contains(t, err.Error(), "Errors when loading file")

	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr)
}

func TestMPVPlayer_Stop_EndsBlockingStart(t *testing.T) {
	f := fakeMPV(t, "exec sleep 30")

	p, err := f.New()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- p.Start() }()

	mpv := p.(*MPVPlayer)
	require.Eventually(t, func() bool {
		mpv.mu.Lock()
		defer mpv.mu.Unlock()
		return mpv.cmd != nil
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, p.Stop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	assert.NoError(t, p.Stop(), "second stop is a no-op")
}

func TestMPVPlayer_StopBeforeStart(t *testing.T) {
	f := fakeMPV(t, "exec sleep 30")

	p, err := f.New()
	require.NoError(t, err)

	require.NoError(t, p.Stop())

	begin := time.Now()
	assert.NoError(t, p.Start())
	assert.Less(t, time.Since(begin), time.Second)
}

func TestMPVPlayer_LaunchFailure(t *testing.T) {
	p := &MPVPlayer{
		path:   filepath.Join(t.TempDir(), "missing-mpv"),
		grace:  time.Second,
		logger: NewFactory(MPVConfig{}).logger,
	}

	err := p.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to launch")
}

func TestClassifyExit(t *testing.T) {
	base := errors.New("exit status 1")

	tests := []struct {
		name     string
		stderr   string
		notReady bool
	}{
		{"x11", "cannot open display", true},
		{"wayland", "Failed to connect to a Wayland server", true},
		{"gpu", "[vo/gpu] Failed initializing any suitable GPU context!", true},
		{"vo", "Error opening/initializing the selected video_out (--vo) device.", true},
		{"drm", "[vo/drm] No DRM device found", true},
		{"file", "Failed to recognize file format.", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyExit(base, tt.stderr)
			assert.Equal(t, tt.notReady, errors.Is(err, domain.ErrMonitorNotReady))
		})
	}
}

func TestTailBuffer_KeepsTail(t *testing.T) {
	b := newTailBuffer(8)
	_, _ = b.Write([]byte("0123456789"))
	_, _ = b.Write([]byte("ab"))
	assert.Equal(t, "456789ab", b.String())
}
