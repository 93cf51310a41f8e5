// Package monitor provides probes that report active display outputs.
package monitor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/spf13/afero"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
)

// Method selects a probe implementation.
type Method string

const (
	// MethodXrandr asks the X server via "xrandr --listactivemonitors".
	MethodXrandr Method = "xrandr"
	// MethodDRM reads connector status from sysfs.
	MethodDRM Method = "drm"
	// MethodCommand runs a user supplied command.
	MethodCommand Method = "command"
	// MethodAlways reports a monitor unconditionally.
	MethodAlways Method = "always"
)

// IsValid returns true if the method is known.
func (m Method) IsValid() bool {
	switch m {
	case MethodXrandr, MethodDRM, MethodCommand, MethodAlways:
		return true
	default:
		return false
	}
}

// Config selects and configures a probe.
type Config struct {
	Method    Method
	Command   string
	SysfsRoot string
}

// RunFunc runs a command and returns its standard output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

type probeOptions struct {
	run    RunFunc
	logger *slog.Logger
}

// ProbeOption configures a command based probe.
type ProbeOption func(*probeOptions)

// WithRunFunc replaces the command runner.
func WithRunFunc(run RunFunc) ProbeOption {
	return func(o *probeOptions) {
		o.run = run
	}
}

// WithProbeLogger sets the logger.
func WithProbeLogger(logger *slog.Logger) ProbeOption {
	return func(o *probeOptions) {
		o.logger = logger
	}
}

func newProbeOptions(opts []ProbeOption) probeOptions {
	o := probeOptions{run: runCommand, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates the probe selected by cfg.Method.
func New(cfg Config, logger *slog.Logger) (domain.MonitorProbe, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Method {
	case MethodXrandr, "":
		return NewXrandrProbe(WithProbeLogger(logger)), nil
	case MethodDRM:
		return NewDRMProbe(afero.NewOsFs(), cfg.SysfsRoot), nil
	case MethodCommand:
		if strings.TrimSpace(cfg.Command) == "" {
			return nil, fmt.Errorf("probe.command is required for the command probe")
		}
		return NewCommandProbe(cfg.Command), nil
	case MethodAlways:
		return StaticProbe(true), nil
	default:
		return nil, fmt.Errorf("unknown probe method %q", cfg.Method)
	}
}

// StaticProbe always reports the same presence value.
type StaticProbe bool

// Probe returns the static value.
func (p StaticProbe) Probe(context.Context) (any, error) {
	return bool(p), nil
}

// CommandProbe runs a command and reports its output. A single output
// line is returned as a bare string, several lines as a list.
type CommandProbe struct {
	name string
	args []string
	run  RunFunc
}

// NewCommandProbe creates a probe for a whitespace separated command line.
func NewCommandProbe(command string, opts ...ProbeOption) *CommandProbe {
	o := newProbeOptions(opts)
	p := &CommandProbe{run: o.run}
	if fields := strings.Fields(command); len(fields) > 0 {
		p.name, p.args = fields[0], fields[1:]
	}
	return p
}

// Probe runs the command.
func (p *CommandProbe) Probe(ctx context.Context) (any, error) {
	out, err := p.run(ctx, p.name, p.args...)
	if err != nil {
		return nil, err
	}

	lines := nonEmptyLines(out)
	if len(lines) == 1 {
		return lines[0], nil
	}
	return lines, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- command comes from the local config file
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s failed: %s: %w", name, msg, err)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}

	return stdout.Bytes(), nil
}

func nonEmptyLines(out []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
