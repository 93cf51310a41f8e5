package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/slideshow-runner/internal/metrics"
	"github.com/sharkusmanch/slideshow-runner/internal/player"
)

func TestScheduler_PushesAndMarksDownOnStop(t *testing.T) {
	pusher := &metrics.MockPusher{}
	s := newTestSupervisor(t, testConfig(), (&player.MockFactory{}).New, WithMetricsPusher(pusher))

	sched := NewScheduler(s,
		WithInterval(10*time.Millisecond),
		WithSchedulerLogger(quietLogger()),
	)

	done := make(chan error, 1)
	go func() { done <- sched.Start(context.Background()) }()

	require.Eventually(t, func() bool { return len(pusher.Pushed()) >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, sched.IsRunning())

	sched.Stop()
	require.NoError(t, <-done)
	assert.False(t, sched.IsRunning())

	pushed := pusher.Pushed()
	assert.True(t, pushed[0].ServiceUp)
	assert.False(t, pusher.Last().ServiceUp)
}

func TestScheduler_ContextCancel(t *testing.T) {
	pusher := &metrics.MockPusher{}
	s := newTestSupervisor(t, testConfig(), (&player.MockFactory{}).New, WithMetricsPusher(pusher))

	sched := NewScheduler(s,
		WithInterval(time.Hour),
		WithPushOnStartup(false),
		WithSchedulerLogger(quietLogger()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Start(ctx) }()

	require.Eventually(t, sched.IsRunning, time.Second, 5*time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	require.Len(t, pusher.Pushed(), 1)
	assert.False(t, pusher.Last().ServiceUp)
}

func TestScheduler_StopWhenNotRunning(t *testing.T) {
	s := newTestSupervisor(t, testConfig(), (&player.MockFactory{}).New)
	sched := NewScheduler(s)

	sched.Stop()
	assert.False(t, sched.IsRunning())
}

func TestScheduler_StopBeforeStartCancelsStart(t *testing.T) {
	pusher := &metrics.MockPusher{}
	s := newTestSupervisor(t, testConfig(), (&player.MockFactory{}).New, WithMetricsPusher(pusher))
	sched := NewScheduler(s, WithInterval(time.Hour), WithSchedulerLogger(quietLogger()))

	done := make(chan error, 1)
	go func() { done <- sched.Start(context.Background()) }()
	sched.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler kept running after Stop")
	}
	assert.False(t, sched.IsRunning())
}
