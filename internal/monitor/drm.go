package monitor

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// DefaultSysfsRoot is where the kernel exposes DRM connectors.
const DefaultSysfsRoot = "/sys"

// DRMProbe reports connectors whose sysfs status is "connected". It works
// without a display server, which makes it usable before X or Wayland is up.
type DRMProbe struct {
	fs   afero.Fs
	root string
}

// NewDRMProbe creates a probe reading from fs below root.
func NewDRMProbe(fs afero.Fs, root string) *DRMProbe {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &DRMProbe{fs: fs, root: root}
}

// Probe returns connector names such as "HDMI-A-1".
func (p *DRMProbe) Probe(ctx context.Context) (any, error) {
	pattern := path.Join(p.root, "class", "drm", "card*-*", "status")
	matches, err := afero.Glob(p.fs, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list DRM connectors: %w", err)
	}

	connected := []string{}
	for _, statusPath := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := afero.ReadFile(p.fs, statusPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", statusPath, err)
		}
		if strings.TrimSpace(string(data)) != "connected" {
			continue
		}
		connected = append(connected, connectorName(path.Base(path.Dir(statusPath))))
	}

	return connected, nil
}

// connectorName strips the card prefix: "card0-HDMI-A-1" -> "HDMI-A-1".
func connectorName(dir string) string {
	if _, name, ok := strings.Cut(dir, "-"); ok {
		return name
	}
	return dir
}
