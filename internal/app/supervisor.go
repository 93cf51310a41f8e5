// Package app wires the slideshow supervisor to metrics and notifications.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sharkusmanch/slideshow-runner/internal/config"
	"github.com/sharkusmanch/slideshow-runner/internal/domain"
	"github.com/sharkusmanch/slideshow-runner/internal/slideshow"
)

const notifyTimeout = 30 * time.Second

// Supervisor runs the slideshow service and reports its lifecycle.
type Supervisor struct {
	factory       domain.PlayerFactory
	probe         domain.MonitorProbe
	metricsPusher domain.MetricsPusher
	notifier      domain.Notifier
	config        *config.Config
	logger        *slog.Logger
	hostname      string

	service *slideshow.Service

	// degraded is set by the first failure after a ready player and
	// cleared when a player becomes ready again.
	degraded atomic.Bool

	// mu orders pending.Add against the Wait in Stop.
	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithPlayerFactory sets the player factory.
func WithPlayerFactory(f domain.PlayerFactory) SupervisorOption {
	return func(s *Supervisor) {
		s.factory = f
	}
}

// WithProbe sets the monitor probe.
func WithProbe(p domain.MonitorProbe) SupervisorOption {
	return func(s *Supervisor) {
		s.probe = p
	}
}

// WithMetricsPusher sets the metrics pusher.
func WithMetricsPusher(m domain.MetricsPusher) SupervisorOption {
	return func(s *Supervisor) {
		s.metricsPusher = m
	}
}

// WithNotifier sets the notifier.
func WithNotifier(n domain.Notifier) SupervisorOption {
	return func(s *Supervisor) {
		s.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// WithHostname overrides the hostname used in metrics and notifications.
func WithHostname(h string) SupervisorOption {
	return func(s *Supervisor) {
		s.hostname = h
	}
}

// NewSupervisor creates a Supervisor. A player factory and a probe are
// required.
func NewSupervisor(cfg *config.Config, opts ...SupervisorOption) (*Supervisor, error) {
	hostname, _ := os.Hostname()

	s := &Supervisor{
		config:   cfg,
		logger:   slog.Default(),
		hostname: hostname,
		notifier: domain.NopNotifier{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.factory == nil {
		return nil, errors.New("player factory is required")
	}
	if s.probe == nil {
		return nil, errors.New("monitor probe is required")
	}

	s.service = slideshow.New(s.factory, s.probe,
		slideshow.WithConfig(slideshow.Config{
			PollInterval:    cfg.PollInterval,
			ShutdownTimeout: cfg.ShutdownTimeout,
			RestartOnExit:   cfg.RestartOnExit,
		}),
		slideshow.WithLogger(s.logger),
		slideshow.WithHooks(slideshow.Hooks{
			OnReady:         s.onReady,
			OnPlayerExit:    s.onPlayerExit,
			OnAttemptFailed: s.onAttemptFailed,
		}),
	)

	return s, nil
}

// Service returns the underlying slideshow service.
func (s *Supervisor) Service() *slideshow.Service {
	return s.service
}

// Start starts the slideshow service. With block_until_ready it waits
// until the player is ready, ctx is done or ready_timeout elapses; a zero
// ready_timeout waits without a deadline.
func (s *Supervisor) Start(ctx context.Context) bool {
	s.logger.Info("starting slideshow supervisor",
		"block_until_ready", s.config.BlockUntilReady,
		"ready_timeout", s.config.ReadyTimeout,
	)

	s.service.Start(false, 0)
	if !s.config.BlockUntilReady {
		return true
	}

	if s.config.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ReadyTimeout)
		defer cancel()
	}
	return s.service.WaitUntilRunningContext(ctx)
}

// Stop stops the service and waits for in-flight notifications for at
// most the shutdown timeout. Notifications raised after Stop are dropped.
func (s *Supervisor) Stop() {
	s.service.Stop()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.config.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.logger.Warn("notifications still pending at shutdown")
	}
}

// Snapshot builds a metrics snapshot from the service counters.
func (s *Supervisor) Snapshot(up bool) *domain.Metrics {
	stats := s.service.Stats()

	m := domain.NewMetrics(s.hostname)
	m.ServiceUp = up
	m.PlayerReady = up && s.service.IsRunning()
	m.ActiveMonitors = len(stats.Monitors)
	m.StartAttempts = stats.Attempts
	m.PlayerStarts = stats.Starts
	m.StartFailures = stats.Failures
	m.NotReady = stats.NotReady
	m.ProbeFailures = stats.ProbeFailures
	m.LastReadyStart = stats.ReadySince
	return m
}

// PushMetrics pushes a snapshot if a metrics pusher is configured.
func (s *Supervisor) PushMetrics(ctx context.Context, up bool) error {
	if s.metricsPusher == nil {
		return nil
	}
	if err := s.metricsPusher.Push(ctx, s.Snapshot(up)); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}

func (s *Supervisor) onReady() {
	if s.degraded.CompareAndSwap(true, false) {
		s.notify(domain.InfoNotification("Slideshow recovered",
			"The slideshow is playing again on %s.", s.hostname))
		return
	}
	s.notify(domain.InfoNotification("Slideshow started",
		"The slideshow is playing on %s.", s.hostname))
}

func (s *Supervisor) onPlayerExit(err error) {
	if err != nil {
		return
	}
	if s.config.RestartOnExit {
		s.logger.Debug("player exited cleanly, restart pending")
		return
	}
	s.notify(domain.InfoNotification("Slideshow finished",
		"The slideshow player on %s exited and will not be restarted.", s.hostname))
}

func (s *Supervisor) onAttemptFailed(err error, notReady bool) {
	if !s.degraded.CompareAndSwap(false, true) {
		return
	}
	if notReady {
		s.notify(domain.WarningNotification("Slideshow waiting for display",
			"No usable monitor on %s: %v", s.hostname, err))
		return
	}
	s.notify(domain.ErrorNotification("Slideshow player failed",
		"The slideshow player on %s failed and will be retried every %s: %v",
		s.hostname, s.config.PollInterval, err))
}

// notify delivers n in the background so hooks never block supervision.
func (s *Supervisor) notify(n *domain.Notification) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("supervisor stopped, dropping notification", "title", n.Title)
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Error("failed to send notification", "title", n.Title, "error", err)
		}
	}()
}

// MinNotificationLevel maps the apprise.notify setting to the lowest
// notification level that is delivered.
func MinNotificationLevel(level config.NotifyLevel) domain.NotificationLevel {
	switch level {
	case config.NotifyAlways:
		return domain.NotificationLevelInfo
	case config.NotifyWarning:
		return domain.NotificationLevelWarning
	default:
		return domain.NotificationLevelError
	}
}
