package player

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
)

// MPVConfig describes how to launch mpv for the slideshow.
type MPVConfig struct {
	// BinaryPath is the mpv executable. Auto-detected when empty.
	BinaryPath string

	// Source is an image directory or playlist file.
	Source string

	// ImageDuration is how long each still image is shown.
	ImageDuration time.Duration

	// Fullscreen starts mpv in fullscreen mode.
	Fullscreen bool

	// Screen selects the output by index; negative means mpv's default.
	Screen int

	// ExtraArgs are appended before the source.
	ExtraArgs []string

	// Env holds additional "KEY=VALUE" environment entries for mpv.
	Env []string

	// RequireDisplayEnv reports monitor-not-ready while neither DISPLAY nor
	// WAYLAND_DISPLAY is set.
	RequireDisplayEnv bool

	// StopGracePeriod bounds the wait between SIGTERM and SIGKILL.
	StopGracePeriod time.Duration
}

// Factory builds MPVPlayer instances from an MPVConfig.
type Factory struct {
	cfg      MPVConfig
	logger   *slog.Logger
	lookPath func(string) (string, error)
	getenv   func(string) string
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithGetenv replaces os.Getenv for display detection.
func WithGetenv(getenv func(string) string) FactoryOption {
	return func(f *Factory) {
		f.getenv = getenv
	}
}

// WithLookPath replaces exec.LookPath for binary detection.
func WithLookPath(lookPath func(string) (string, error)) FactoryOption {
	return func(f *Factory) {
		f.lookPath = lookPath
	}
}

// NewFactory creates a new Factory.
func NewFactory(cfg MPVConfig, opts ...FactoryOption) *Factory {
	if cfg.StopGracePeriod <= 0 {
		cfg.StopGracePeriod = DefaultStopGracePeriod
	}

	f := &Factory{
		cfg:      cfg,
		logger:   slog.Default(),
		lookPath: exec.LookPath,
		getenv:   os.Getenv,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// New builds a player that has not been started yet.
func (f *Factory) New() (domain.Player, error) {
	if f.cfg.RequireDisplayEnv && f.getenv("DISPLAY") == "" && f.getenv("WAYLAND_DISPLAY") == "" {
		return nil, fmt.Errorf("neither DISPLAY nor WAYLAND_DISPLAY is set: %w", domain.ErrMonitorNotReady)
	}

	path, err := f.binaryPath()
	if err != nil {
		return nil, err
	}

	if f.cfg.Source == "" {
		return nil, fmt.Errorf("no slideshow source configured")
	}
	if _, err := os.Stat(f.cfg.Source); err != nil {
		return nil, fmt.Errorf("slideshow source unavailable: %w", err)
	}

	return &MPVPlayer{
		path:   path,
		args:   f.Args(),
		env:    f.environ(),
		grace:  f.cfg.StopGracePeriod,
		logger: f.logger.With("player", "mpv"),
	}, nil
}

// PlayerFactory returns New as a domain.PlayerFactory.
func (f *Factory) PlayerFactory() domain.PlayerFactory {
	return f.New
}

// Args returns the mpv command line for the configured slideshow.
func (f *Factory) Args() []string {
	args := []string{
		"--no-terminal",
		"--loop-playlist=inf",
		"--force-window=immediate",
		"--idle=no",
	}

	if f.cfg.ImageDuration > 0 {
		args = append(args, "--image-display-duration="+formatSeconds(f.cfg.ImageDuration))
	}
	if f.cfg.Fullscreen {
		args = append(args, "--fs")
	}
	if f.cfg.Screen >= 0 {
		screen := strconv.Itoa(f.cfg.Screen)
		args = append(args, "--screen="+screen, "--fs-screen="+screen)
	}

	args = append(args, f.cfg.ExtraArgs...)
	return append(args, f.cfg.Source)
}

// Version returns the first line of "mpv --version".
func (f *Factory) Version(ctx context.Context) (string, error) {
	path, err := f.binaryPath()
	if err != nil {
		return "", err
	}

	// #nosec G204 -- path is from config or auto-detected
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("mpv --version failed: %w", err)
	}

	line, _, _ := bytes.Cut(bytes.TrimSpace(out), []byte("\n"))
	return string(line), nil
}

// Validate checks that mpv and the slideshow source are available.
func (f *Factory) Validate(ctx context.Context) error {
	if _, err := f.Version(ctx); err != nil {
		return err
	}
	if _, err := os.Stat(f.cfg.Source); err != nil {
		return fmt.Errorf("slideshow source unavailable: %w", err)
	}
	return nil
}

// binaryPath returns the path to the mpv binary.
func (f *Factory) binaryPath() (string, error) {
	if f.cfg.BinaryPath != "" {
		return f.cfg.BinaryPath, nil
	}

	if path, err := f.lookPath("mpv"); err == nil {
		return path, nil
	}

	for _, candidate := range commonPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("mpv not found in PATH or common locations")
}

func (f *Factory) environ() []string {
	if len(f.cfg.Env) == 0 {
		return nil
	}
	return append(os.Environ(), f.cfg.Env...)
}

// commonPaths returns common installation paths for mpv.
func commonPaths() []string {
	switch runtime.GOOS {
	case "windows":
		home := os.Getenv("USERPROFILE")
		return []string{
			filepath.Join(home, "scoop", "shims", "mpv.exe"),
			filepath.Join(os.Getenv("ProgramFiles"), "mpv", "mpv.exe"),
		}
	case "darwin":
		return []string{
			"/opt/homebrew/bin/mpv",
			"/usr/local/bin/mpv",
			"/Applications/mpv.app/Contents/MacOS/mpv",
		}
	default:
		return []string{
			"/usr/bin/mpv",
			"/usr/local/bin/mpv",
			"/snap/bin/mpv",
		}
	}
}

func formatSeconds(d time.Duration) string {
	s := strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
