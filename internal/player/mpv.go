// Package player provides Player implementations backed by external media
// players.
package player

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
)

// DefaultStopGracePeriod is how long Stop waits after SIGTERM before killing
// the process.
const DefaultStopGracePeriod = 5 * time.Second

// displayErrorMarkers are stderr fragments that mean mpv found no usable
// display. They are matched case-insensitively.
var displayErrorMarkers = []string{
	"cannot open display",
	"can't open display",
	"could not connect to display",
	"no x11 display",
	"failed to connect to a wayland server",
	"failed initializing any suitable gpu context",
	"error opening/initializing the selected video_out",
	"failed to open vt",
	"no drm device",
}

// MPVPlayer runs one mpv process. Start blocks until the process exits.
type MPVPlayer struct {
	path   string
	args   []string
	env    []string
	grace  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	exited  chan struct{}
	stopped bool
}

// Start launches mpv and waits for it to exit. It returns nil when mpv
// ends on its own or because Stop was called, an error wrapping
// domain.ErrMonitorNotReady when mpv could not reach a display, and any
// other launch or exit error otherwise.
func (p *MPVPlayer) Start() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	if p.cmd != nil {
		p.mu.Unlock()
		return errors.New("mpv: player already started")
	}

	// #nosec G204 -- binary and arguments come from the local config file
	cmd := exec.Command(p.path, p.args...)
	if p.env != nil {
		cmd.Env = p.env
	}
	stderr := newTailBuffer(4096)
	cmd.Stderr = stderr

	p.logger.Debug("launching mpv", "path", p.path, "args", p.args)

	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("mpv: failed to launch %s: %w", p.path, err)
	}
	p.cmd = cmd
	p.exited = make(chan struct{})
	exited := p.exited
	p.mu.Unlock()

	p.logger.Info("mpv started", "pid", cmd.Process.Pid)

	err := cmd.Wait()
	close(exited)

	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()

	if stopped {
		p.logger.Debug("mpv stopped on request")
		return nil
	}
	if err != nil {
		return classifyExit(err, stderr.String())
	}

	p.logger.Info("mpv exited")
	return nil
}

// Stop terminates mpv, killing it if it outlives the grace period. It may
// be called before Start, in which case Start returns immediately.
func (p *MPVPlayer) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	cmd, exited := p.cmd, p.exited
	p.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := terminate(cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("mpv: failed to signal process: %w", err)
	}

	timer := time.NewTimer(p.grace)
	defer timer.Stop()

	select {
	case <-exited:
		return nil
	case <-timer.C:
	}

	p.logger.Warn("mpv did not exit after SIGTERM, killing", "grace_period", p.grace)
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("mpv: failed to kill process: %w", err)
	}
	return nil
}

// Args returns the command line arguments passed to mpv.
func (p *MPVPlayer) Args() []string {
	return append([]string(nil), p.args...)
}

func terminate(proc *os.Process) error {
	if runtime.GOOS == "windows" {
		return proc.Kill()
	}
	return proc.Signal(syscall.SIGTERM)
}

// classifyExit turns a failed mpv exit into an error, mapping display
// failures to domain.ErrMonitorNotReady.
func classifyExit(err error, stderr string) error {
	lower := strings.ToLower(stderr)
	for _, marker := range displayErrorMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("mpv: %s: %w", marker, domain.ErrMonitorNotReady)
		}
	}

	if line := lastLine(stderr); line != "" {
		return fmt.Errorf("mpv failed: %s: %w", line, err)
	}
	return fmt.Errorf("mpv failed: %w", err)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// Ensure MPVPlayer implements domain.Player.
var _ domain.Player = (*MPVPlayer)(nil)
