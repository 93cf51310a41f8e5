// Package metrics pushes supervisor snapshots to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"runtime"
	"strconv"
	"strings"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
	"github.com/sharkusmanch/slideshow-runner/internal/http"
	"github.com/sharkusmanch/slideshow-runner/pkg/version"
)

const (
	metricsJobName = "slideshow"
	contentType    = "text/plain; version=0.0.4; charset=utf-8"
)

// PushgatewayClient pushes metrics to a Prometheus Pushgateway.
type PushgatewayClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// PushgatewayOption configures a PushgatewayClient.
type PushgatewayOption func(*PushgatewayClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.logger = logger
	}
}

// NewPushgatewayClient creates a new PushgatewayClient.
func NewPushgatewayClient(url string, opts ...PushgatewayOption) *PushgatewayClient {
	p := &PushgatewayClient{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: http.NewClient(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Push replaces this host's metric group with the given snapshot.
func (p *PushgatewayClient) Push(ctx context.Context, m *domain.Metrics) error {
	pushURL := p.groupURL(m.Hostname)

	p.logger.Debug("pushing metrics to pushgateway",
		"url", pushURL,
		"up", m.ServiceUp,
		"ready", m.PlayerReady,
	)

	resp, err := p.httpClient.Put(ctx, pushURL, contentType, []byte(Render(m)))
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("pushgateway returned status %d: %s", resp.StatusCode, string(resp.Body))
	}

	return nil
}

// Validate checks if the Pushgateway is reachable.
func (p *PushgatewayClient) Validate(ctx context.Context) error {
	if err := p.httpClient.CheckConnectivity(ctx, p.url+"/-/ready"); err != nil {
		if err2 := p.httpClient.CheckConnectivity(ctx, p.url); err2 != nil {
			return fmt.Errorf("pushgateway not reachable at %s: %w", p.url, err)
		}
	}
	return nil
}

func (p *PushgatewayClient) groupURL(hostname string) string {
	return fmt.Sprintf("%s/metrics/job/%s/instance/%s", p.url, metricsJobName, url.PathEscape(hostname))
}

// Render formats a snapshot in the Prometheus text exposition format.
func Render(m *domain.Metrics) string {
	w := &writer{}

	w.gauge("slideshow_runner_up", "Supervisor process is running", boolValue(m.ServiceUp))
	w.gauge("slideshow_player_ready", "A slideshow player is currently playing", boolValue(m.PlayerReady))
	w.gauge("slideshow_monitors_active", "Monitors reported by the last probe", float64(m.ActiveMonitors))
	w.counter("slideshow_start_attempts_total", "Player start attempts", m.StartAttempts)
	w.counter("slideshow_player_starts_total", "Players handed off for playback", m.PlayerStarts)
	w.counter("slideshow_start_failures_total", "Start attempts that failed unexpectedly", m.StartFailures)
	w.counter("slideshow_monitor_not_ready_total", "Start attempts rejected because no monitor was usable", m.NotReady)
	w.counter("slideshow_probe_failures_total", "Monitor probes that returned an error", m.ProbeFailures)

	if !m.LastReadyStart.IsZero() {
		w.gauge("slideshow_player_ready_since_seconds", "Unix time the current player became ready",
			float64(m.LastReadyStart.Unix()))
	}

	info := version.Get()
	w.header("slideshow_runner_info", "Build information", "gauge")
	fmt.Fprintf(&w.b, "slideshow_runner_info{version=%q,go_version=%q} 1\n\n", info.Version, runtime.Version())

	return w.b.String()
}

type writer struct {
	b strings.Builder
}

func (w *writer) header(name, help, typ string) {
	fmt.Fprintf(&w.b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, typ)
}

func (w *writer) gauge(name, help string, v float64) {
	w.header(name, help, "gauge")
	fmt.Fprintf(&w.b, "%s %s\n\n", name, strconv.FormatFloat(v, 'f', -1, 64))
}

func (w *writer) counter(name, help string, v uint64) {
	w.header(name, help, "counter")
	fmt.Fprintf(&w.b, "%s %d\n\n", name, v)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Ensure PushgatewayClient implements domain.MetricsPusher.
var _ domain.MetricsPusher = (*PushgatewayClient)(nil)
