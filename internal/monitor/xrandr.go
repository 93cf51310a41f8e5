package monitor

import (
	"context"
	"log/slog"
	"strings"
)

// XrandrProbe lists active monitors through "xrandr --listactivemonitors".
type XrandrProbe struct {
	run    RunFunc
	logger *slog.Logger
}

// NewXrandrProbe creates a new XrandrProbe.
func NewXrandrProbe(opts ...ProbeOption) *XrandrProbe {
	o := newProbeOptions(opts)
	return &XrandrProbe{run: o.run, logger: o.logger}
}

// Probe returns the connector names of the active monitors. An X server
// that cannot be reached means no monitors rather than a probe failure.
func (p *XrandrProbe) Probe(ctx context.Context) (any, error) {
	out, err := p.run(ctx, "xrandr", "--listactivemonitors")
	if err != nil {
		if isDisplayUnavailable(err.Error()) {
			p.logger.Debug("X display not reachable yet", "error", err)
			return []string{}, nil
		}
		return nil, err
	}
	return parseActiveMonitors(string(out)), nil
}

// parseActiveMonitors extracts connector names from xrandr output:
//
//	Monitors: 2
//	 0: +*HDMI-1 1920/531x1080/299+0+0  HDMI-1
//	 1: +DP-1 1920/527x1080/296+1920+0  DP-1
func parseActiveMonitors(out string) []string {
	monitors := []string{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Monitors:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasSuffix(fields[0], ":") {
			continue
		}
		monitors = append(monitors, fields[len(fields)-1])
	}
	return monitors
}

func isDisplayUnavailable(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "can't open display") ||
		strings.Contains(msg, "cannot open display")
}
