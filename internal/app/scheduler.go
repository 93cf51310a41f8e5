package app

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const finalPushTimeout = 30 * time.Second

// Scheduler periodically pushes supervisor metrics.
type Scheduler struct {
	supervisor    *Supervisor
	interval      time.Duration
	pushOnStartup bool
	logger        *slog.Logger

	mu          sync.Mutex
	running     bool
	stopPending bool
	stopCh      chan struct{}
	stoppedCh chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the push interval.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.interval = d
	}
}

// WithPushOnStartup sets whether a snapshot is pushed as soon as the
// scheduler starts.
func WithPushOnStartup(b bool) SchedulerOption {
	return func(s *Scheduler) {
		s.pushOnStartup = b
	}
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(supervisor *Supervisor, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		supervisor:    supervisor,
		interval:      time.Minute,
		pushOnStartup: true,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start runs the push loop until Stop is called or ctx is cancelled. On
// the way out it pushes a final snapshot marking the service down. A Stop
// issued before Start makes Start return immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.stopPending {
		s.stopPending = false
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.stoppedCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		close(s.stoppedCh)
		s.mu.Unlock()
	}()

	s.logger.Info("metrics scheduler started", "interval", s.interval)

	if s.pushOnStartup {
		s.push(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("metrics scheduler stopping due to context cancellation")
			s.pushFinal()
			return ctx.Err()

		case <-stopCh:
			s.logger.Debug("metrics scheduler stopping due to stop signal")
			s.pushFinal()
			return nil

		case <-ticker.C:
			s.push(ctx)
		}
	}
}

// Stop signals the scheduler to stop and waits for the final push. When
// the scheduler is not running yet, the next Start is cancelled instead.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.stopPending = true
		s.mu.Unlock()
		return
	}
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	stoppedCh := s.stoppedCh
	s.mu.Unlock()

	<-stoppedCh
}

// IsRunning returns true if the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) push(ctx context.Context) {
	if err := s.supervisor.PushMetrics(ctx, true); err != nil {
		s.logger.Warn("failed to push metrics", "error", err)
	}
}

func (s *Scheduler) pushFinal() {
	ctx, cancel := context.WithTimeout(context.Background(), finalPushTimeout)
	defer cancel()

	if err := s.supervisor.PushMetrics(ctx, false); err != nil {
		s.logger.Warn("failed to push final metrics", "error", err)
	}
}
