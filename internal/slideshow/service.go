// Package slideshow supervises an external slideshow player that needs an
// attached monitor. The supervisor waits for a display, starts the player,
// retries on failure and shuts the player down on request, without ever
// blocking the caller unless asked to.
package slideshow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sharkusmanch/slideshow-runner/internal/domain"
)

// NoTimeout makes a blocking wait last until the player is ready or the
// service is stopped.
const NoTimeout time.Duration = -1

// Default timing values.
const (
	DefaultPollInterval    = 5 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds timing behaviour. It is copied at construction and never
// mutated afterwards.
type Config struct {
	// PollInterval is the wait between monitor probes and between retries
	// after a failed start.
	PollInterval time.Duration

	// ShutdownTimeout bounds how long Stop waits for the supervision
	// goroutine to exit.
	ShutdownTimeout time.Duration

	// RestartOnExit restarts the player after it ends playback without an
	// error. When false a clean exit ends the run and Start must be called
	// again.
	RestartOnExit bool
}

// DefaultConfig returns the default timing configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval:    DefaultPollInterval,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Hooks receive lifecycle events from the supervision goroutine. Every
// field is optional. Hooks run on the supervision goroutine and must not
// block for long.
type Hooks struct {
	// OnReady is called once a player has been handed its Start call.
	OnReady func()

	// OnPlayerExit is called when a running player's Start returns.
	OnPlayerExit func(err error)

	// OnAttemptFailed is called for every failed start attempt.
	// notReady is true for monitor-not-ready failures.
	OnAttemptFailed func(err error, notReady bool)
}

// Stats is a snapshot of supervisor counters.
type Stats struct {
	Attempts      uint64
	NotReady      uint64
	Failures      uint64
	ProbeFailures uint64
	Starts        uint64
	LastError     string
	ReadySince    time.Time
	Monitors      []string
}

// attemptOutcome is the result of one construct-and-start attempt.
type attemptOutcome int

const (
	// attemptFinished: the player ran and ended playback without error.
	attemptFinished attemptOutcome = iota
	// attemptNotReady: no monitor was usable, retry after a poll interval.
	attemptNotReady
	// attemptFailed: unexpected error, retry after a poll interval.
	attemptFailed
	// attemptAborted: stop was requested during the attempt.
	attemptAborted
)

// run is the per-Start state of one supervision goroutine.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newRun() *run {
	ctx, cancel := context.WithCancel(context.Background())
	return &run{ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

func (r *run) stopped() bool {
	return r.ctx.Err() != nil
}

func (r *run) alive() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Service supervises the slideshow player lifecycle.
type Service struct {
	factory domain.PlayerFactory
	probe   domain.MonitorProbe
	cfg     Config
	hooks   Hooks
	logger  *slog.Logger

	// mu guards current, player, monitors, lastErr and readySince. The
	// player field is written only by the supervision goroutine.
	mu         sync.Mutex
	current    *run
	player     domain.Player
	monitors   []string
	lastErr    string
	readySince time.Time

	ready *signal
	state atomic.Int32

	attempts      atomic.Uint64
	notReady      atomic.Uint64
	failures      atomic.Uint64
	probeFailures atomic.Uint64
	starts        atomic.Uint64
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the timing configuration.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithHooks sets lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(s *Service) {
		s.hooks = h
	}
}

// New creates a Service that builds players with factory and checks for
// monitors with probe.
func New(factory domain.PlayerFactory, probe domain.MonitorProbe, opts ...Option) *Service {
	s := &Service{
		factory: factory,
		probe:   probe,
		cfg:     DefaultConfig(),
		logger:  slog.Default(),
		ready:   newSignal(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cfg.PollInterval <= 0 {
		s.cfg.PollInterval = DefaultPollInterval
	}
	if s.cfg.ShutdownTimeout < 0 {
		s.cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	s.logger = s.logger.With("component", "slideshow")

	return s
}

// Config returns the timing configuration in use.
func (s *Service) Config() Config {
	return s.cfg
}

// Start launches the supervision goroutine if it is not running yet.
//
// Without blockUntilReady it returns true immediately, whatever the state
// of monitors or player. With blockUntilReady it waits like
// WaitUntilRunning and reports whether the player became ready in time.
func (s *Service) Start(blockUntilReady bool, timeout time.Duration) bool {
	s.mu.Lock()
	if s.current != nil && s.current.alive() {
		s.mu.Unlock()
		s.logger.Debug("slideshow player already running")
		if !blockUntilReady {
			return true
		}
		return s.WaitUntilRunning(timeout)
	}

	r := newRun()
	s.current = r
	s.ready.Clear()
	s.setState(StateWaitingForMonitor)
	s.mu.Unlock()

	go s.supervise(r)

	if !blockUntilReady {
		return true
	}
	return s.WaitUntilRunning(timeout)
}

// Stop requests shutdown, stops the current player and waits up to the
// shutdown timeout for the supervision goroutine. It is safe to call at
// any time and more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	r := s.current
	if r == nil {
		s.mu.Unlock()
		return
	}
	r.cancel()
	s.ready.Clear()
	player := s.player
	s.mu.Unlock()

	if player != nil {
		if err := safeCall(player.Stop); err != nil {
			s.logger.Error("failed to stop slideshow player cleanly", "error", err)
		}
	}

	if !r.alive() {
		return
	}

	timer := time.NewTimer(s.cfg.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-r.done:
	case <-timer.C:
		s.logger.Warn("slideshow supervisor did not exit before shutdown timeout",
			"timeout", s.cfg.ShutdownTimeout,
		)
	}
}

// Run starts the service, blocks until ctx is done and then stops it. The
// result is that of Start.
func (s *Service) Run(ctx context.Context, blockUntilReady bool, timeout time.Duration) bool {
	ok := s.Start(blockUntilReady, timeout)
	<-ctx.Done()
	s.Stop()
	return ok
}

// WaitUntilRunning blocks until the player is ready, the service is
// stopped or timeout elapses. A zero timeout only checks the current
// state; NoTimeout waits without a deadline.
func (s *Service) WaitUntilRunning(timeout time.Duration) bool {
	return s.wait(context.Background(), timeout)
}

// WaitUntilRunningContext is WaitUntilRunning bounded by ctx instead of a
// timeout.
func (s *Service) WaitUntilRunningContext(ctx context.Context) bool {
	return s.wait(ctx, NoTimeout)
}

// IsRunning reports whether the ready signal is set.
func (s *Service) IsRunning() bool {
	return s.ready.IsSet()
}

// Monitors returns the identifiers seen by the most recent probe.
func (s *Service) Monitors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.monitors...)
}

// Stats returns a snapshot of the supervisor counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Attempts:      s.attempts.Load(),
		NotReady:      s.notReady.Load(),
		Failures:      s.failures.Load(),
		ProbeFailures: s.probeFailures.Load(),
		Starts:        s.starts.Load(),
		LastError:     s.lastErr,
		ReadySince:    s.readySince,
		Monitors:      append([]string(nil), s.monitors...),
	}
}

func (s *Service) wait(ctx context.Context, timeout time.Duration) bool {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	if r == nil || r.stopped() {
		return false
	}

	readyCh := s.ready.C()

	var deadline <-chan time.Time
	switch {
	case timeout == 0:
		select {
		case <-readyCh:
			return !r.stopped()
		default:
			return false
		}
	case timeout > 0:
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-readyCh:
		return !r.stopped()
	case <-r.ctx.Done():
		return false
	case <-r.done:
		return s.ready.IsSet()
	case <-deadline:
		return false
	case <-ctx.Done():
		return false
	}
}

// supervise is the body of the supervision goroutine.
func (s *Service) supervise(r *run) {
	defer func() {
		s.ready.Clear()
		s.setState(StateStopped)
		close(r.done)
	}()

	s.logger.Info("player supervisor started",
		"poll_interval", s.cfg.PollInterval,
		"restart_on_exit", s.cfg.RestartOnExit,
	)

	for !r.stopped() {
		if !s.waitForMonitor(r) {
			break
		}

		switch s.attemptStart(r) {
		case attemptFinished:
			if !s.cfg.RestartOnExit {
				s.logger.Info("slideshow player exited, not restarting")
				return
			}
			s.logger.Info("slideshow player exited, restarting after poll interval")
			s.sleep(r)
		case attemptAborted:
			s.logger.Debug("start attempt aborted by stop request")
			return
		case attemptNotReady, attemptFailed:
			s.sleep(r)
		}
	}

	s.logger.Debug("player supervisor exiting")
}

// waitForMonitor polls the probe until a monitor appears. It returns false
// if stop was requested first.
func (s *Service) waitForMonitor(r *run) bool {
	s.logger.Debug("checking for active monitors")

	for !r.stopped() {
		s.setState(StateWaitingForMonitor)

		monitors := s.probeMonitors(r.ctx)
		s.mu.Lock()
		s.monitors = monitors
		s.mu.Unlock()

		if len(monitors) > 0 {
			s.logger.Info("detected active monitors", "monitors", monitors)
			return true
		}

		s.logger.Warn("no active monitors detected, waiting", "retry_in", s.cfg.PollInterval)
		s.sleep(r)
	}
	return false
}

// probeMonitors calls the probe once and normalizes the result. Probe
// errors count as zero monitors.
func (s *Service) probeMonitors(ctx context.Context) []string {
	var raw any
	err := safeCall(func() error {
		var perr error
		raw, perr = s.probe.Probe(ctx)
		return perr
	})
	if err != nil {
		if ctx.Err() == nil {
			s.probeFailures.Add(1)
			s.logger.Error("failed to probe connected monitors", "error", err)
		}
		return nil
	}
	return NormalizeMonitors(raw)
}

// attemptStart builds a player and runs it until it returns.
func (s *Service) attemptStart(r *run) attemptOutcome {
	s.setState(StateStartingPlayer)
	s.attempts.Add(1)

	var player domain.Player
	err := safeCall(func() error {
		var ferr error
		player, ferr = s.factory()
		return ferr
	})
	if err == nil && player == nil {
		err = errors.New("player factory returned no player")
	}
	if err != nil {
		return s.failed(err, "create")
	}

	s.mu.Lock()
	if r.stopped() {
		s.mu.Unlock()
		if err := safeCall(player.Stop); err != nil {
			s.logger.Debug("failed to stop unstarted slideshow player", "error", err)
		}
		return attemptAborted
	}
	s.player = player
	s.readySince = time.Now()
	s.ready.Set()
	s.mu.Unlock()

	s.setState(StateRunning)
	s.starts.Add(1)
	s.logger.Info("slideshow player started")
	if s.hooks.OnReady != nil {
		s.hooks.OnReady()
	}

	err = safeCall(player.Start)

	s.mu.Lock()
	s.player = nil
	s.readySince = time.Time{}
	s.ready.Clear()
	s.mu.Unlock()

	if s.hooks.OnPlayerExit != nil {
		s.hooks.OnPlayerExit(err)
	}

	if r.stopped() {
		return attemptAborted
	}
	if err == nil {
		return attemptFinished
	}
	return s.failed(err, "start")
}

// failed classifies a start failure and records it.
func (s *Service) failed(err error, stage string) attemptOutcome {
	notReady := errors.Is(err, domain.ErrMonitorNotReady)

	if notReady {
		s.notReady.Add(1)
		s.logger.Info("monitor not ready, waiting for retry",
			"stage", stage,
			"error", err,
			"retry_in", s.cfg.PollInterval,
		)
	} else {
		s.failures.Add(1)
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.logger.Error("slideshow player failed",
			"stage", stage,
			"error", err,
			"retry_in", s.cfg.PollInterval,
		)
	}

	if s.hooks.OnAttemptFailed != nil {
		s.hooks.OnAttemptFailed(err, notReady)
	}

	if notReady {
		return attemptNotReady
	}
	return attemptFailed
}

// sleep waits one poll interval or until stop is requested.
func (s *Service) sleep(r *run) {
	timer := time.NewTimer(s.cfg.PollInterval)
	defer timer.Stop()

	select {
	case <-r.ctx.Done():
	case <-timer.C:
	}
}

// safeCall runs fn and converts a panic into an error so a faulty player
// or probe cannot take the process down.
func safeCall(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v\n%s", rec, debug.Stack())
		}
	}()
	return fn()
}
