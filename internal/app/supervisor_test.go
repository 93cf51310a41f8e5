package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/slideshow-runner/internal/config"
	"github.com/sharkusmanch/slideshow-runner/internal/domain"
	"github.com/sharkusmanch/slideshow-runner/internal/metrics"
	"github.com/sharkusmanch/slideshow-runner/internal/monitor"
	"github.com/sharkusmanch/slideshow-runner/internal/notify"
	"github.com/sharkusmanch/slideshow-runner/internal/player"
)

func testConfig() *config.Config {
	return &config.Config{
		PollInterval:    10 * time.Millisecond,
		ShutdownTimeout: time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 5 * time.Second,
			MaxDelay:     30 * time.Second,
		},
		Apprise: config.AppriseConfig{
			Enabled: true,
			URL:     "http://localhost:8000",
			Key:     "test",
			Notify:  config.NotifyAlways,
		},
		Log: config.LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSupervisor(t *testing.T, cfg *config.Config, factory domain.PlayerFactory, opts ...SupervisorOption) *Supervisor {
	t.Helper()
	base := []SupervisorOption{
		WithPlayerFactory(factory),
		WithProbe(monitor.StaticProbe(true)),
		WithLogger(quietLogger()),
		WithHostname("kiosk-1"),
	}
	s, err := NewSupervisor(cfg, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestNewSupervisor_RequiresFactoryAndProbe(t *testing.T) {
	_, err := NewSupervisor(testConfig(), WithProbe(monitor.StaticProbe(true)))
	assert.ErrorContains(t, err, "player factory is required")

	_, err = NewSupervisor(testConfig(), WithPlayerFactory((&player.MockFactory{}).New))
	assert.ErrorContains(t, err, "monitor probe is required")
}

func TestSupervisor_Start_BlockUntilReady(t *testing.T) {
	cfg := testConfig()
	cfg.BlockUntilReady = true
	cfg.ReadyTimeout = 2 * time.Second

	factory := &player.MockFactory{}
	notifier := &notify.MockNotifier{}
	s := newTestSupervisor(t, cfg, factory.New, WithNotifier(notifier))

	require.True(t, s.Start(context.Background()))
	assert.True(t, s.Service().IsRunning())
	assert.Equal(t, int32(1), factory.Calls.Load())

	require.Eventually(t, func() bool {
		return len(notifier.Titles()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Slideshow started", notifier.Titles()[0])
}

func TestSupervisor_Start_ReadyTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.BlockUntilReady = true
	cfg.ReadyTimeout = 50 * time.Millisecond

	s := newTestSupervisor(t, cfg, (&player.MockFactory{}).New,
		WithProbe(monitor.StaticProbe(false)))

	begin := time.Now()
	assert.False(t, s.Start(context.Background()))
	assert.Less(t, time.Since(begin), time.Second)
}

func TestSupervisor_Start_BlockUntilReady_ContextCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.BlockUntilReady = true

	s := newTestSupervisor(t, cfg, (&player.MockFactory{}).New,
		WithProbe(monitor.StaticProbe(false)))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan bool, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Start ignored context cancellation")
	}
}

func TestSupervisor_Start_NonBlocking(t *testing.T) {
	s := newTestSupervisor(t, testConfig(), (&player.MockFactory{}).New,
		WithProbe(monitor.StaticProbe(false)))

	assert.True(t, s.Start(context.Background()))
	assert.False(t, s.Service().IsRunning())
}

func TestSupervisor_FailureThenRecoveryNotifications(t *testing.T) {
	var calls atomic.Int32
	factory := func() (domain.Player, error) {
		if calls.Add(1) <= 3 {
			return nil, errors.New("mpv crashed")
		}
		return &player.MockPlayer{}, nil
	}

	notifier := &notify.MockNotifier{}
	s := newTestSupervisor(t, testConfig(), factory, WithNotifier(notifier))

	s.Start(context.Background())

	require.Eventually(t, func() bool {
		return len(notifier.Titles()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.ElementsMatch(t, []string{"Slideshow player failed", "Slideshow recovered"}, notifier.Titles())
	for _, n := range notifier.Notifications() {
		if n.Title == "Slideshow player failed" {
			assert.Equal(t, domain.NotificationLevelError, n.Level)
			assert.Contains(t, n.Body, "mpv crashed")
		}
	}
}

func TestSupervisor_NotReadyNotifiesWarningOnce(t *testing.T) {
	var calls atomic.Int32
	factory := func() (domain.Player, error) {
		calls.Add(1)
		return nil, fmt.Errorf("no DISPLAY: %w", domain.ErrMonitorNotReady)
	}

	notifier := &notify.MockNotifier{}
	s := newTestSupervisor(t, testConfig(), factory, WithNotifier(notifier))

	s.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() >= 5 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	require.Len(t, notifier.Notifications(), 1)
	assert.Equal(t, "Slideshow waiting for display", notifier.Titles()[0])
	assert.Equal(t, domain.NotificationLevelWarning, notifier.Notifications()[0].Level)
}

func TestSupervisor_CleanExitNotifies(t *testing.T) {
	factory := func() (domain.Player, error) {
		return &player.MockPlayer{StartFunc: func() error { return nil }}, nil
	}

	notifier := &notify.MockNotifier{}
	s := newTestSupervisor(t, testConfig(), factory, WithNotifier(notifier))

	s.Start(context.Background())

	require.Eventually(t, func() bool {
		return len(notifier.Titles()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"Slideshow started", "Slideshow finished"}, notifier.Titles())
}

func TestSupervisor_NotifierErrorIsLogged(t *testing.T) {
	notifier := &notify.MockNotifier{
		NotifyFunc: func(context.Context, *domain.Notification) error { return errors.New("apprise down") },
	}
	s := newTestSupervisor(t, testConfig(), (&player.MockFactory{}).New, WithNotifier(notifier))

	s.Start(context.Background())
	require.Eventually(t, func() bool { return len(notifier.Titles()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Service().WaitUntilRunning(time.Second))
}

func TestSupervisor_Snapshot(t *testing.T) {
	s := newTestSupervisor(t, testConfig(), (&player.MockFactory{}).New)

	s.Start(context.Background())
	require.True(t, s.Service().WaitUntilRunning(time.Second))

	m := s.Snapshot(true)
	assert.Equal(t, "kiosk-1", m.Hostname)
	assert.True(t, m.ServiceUp)
	assert.True(t, m.PlayerReady)
	assert.Equal(t, 1, m.ActiveMonitors)
	assert.Equal(t, uint64(1), m.PlayerStarts)
	assert.Equal(t, uint64(1), m.StartAttempts)
	assert.False(t, m.LastReadyStart.IsZero())

	down := s.Snapshot(false)
	assert.False(t, down.ServiceUp)
	assert.False(t, down.PlayerReady)
}

func TestSupervisor_PushMetrics(t *testing.T) {
	pusher := &metrics.MockPusher{}
	s := newTestSupervisor(t, testConfig(), (&player.MockFactory{}).New, WithMetricsPusher(pusher))

	require.NoError(t, s.PushMetrics(context.Background(), true))
	require.NotNil(t, pusher.Last())
	assert.True(t, pusher.Last().ServiceUp)

	pusher.PushFunc = func(context.Context, *domain.Metrics) error { return errors.New("boom") }
	assert.ErrorContains(t, s.PushMetrics(context.Background(), true), "failed to push metrics")
}

func TestSupervisor_PushMetrics_NoPusher(t *testing.T) {
	s := newTestSupervisor(t, testConfig(), (&player.MockFactory{}).New)
	assert.NoError(t, s.PushMetrics(context.Background(), true))
}

func TestSupervisor_StopStopsPlayer(t *testing.T) {
	mock := &player.MockPlayer{}
	s := newTestSupervisor(t, testConfig(), func() (domain.Player, error) { return mock, nil })

	s.Start(context.Background())
	require.True(t, s.Service().WaitUntilRunning(time.Second))

	s.Stop()
	assert.Equal(t, int32(1), mock.Stops.Load())
	assert.False(t, s.Service().IsRunning())
}

func TestSupervisor_NotifyAfterStopIsDropped(t *testing.T) {
	notifier := &notify.MockNotifier{}
	s := newTestSupervisor(t, testConfig(), (&player.MockFactory{}).New,
		WithProbe(monitor.StaticProbe(false)), WithNotifier(notifier))

	s.Stop()
	s.onAttemptFailed(errors.New("late failure"), false)
	s.onReady()
	s.Stop()

	assert.Empty(t, notifier.Notifications())
}

func TestMinNotificationLevel(t *testing.T) {
	assert.Equal(t, domain.NotificationLevelInfo, MinNotificationLevel(config.NotifyAlways))
	assert.Equal(t, domain.NotificationLevelWarning, MinNotificationLevel(config.NotifyWarning))
	assert.Equal(t, domain.NotificationLevelError, MinNotificationLevel(config.NotifyError))
}
