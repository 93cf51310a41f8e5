package cli

import (
	"log/slog"
	"os"

	"github.com/sharkusmanch/slideshow-runner/internal/app"
	"github.com/sharkusmanch/slideshow-runner/internal/config"
	"github.com/sharkusmanch/slideshow-runner/internal/domain"
	"github.com/sharkusmanch/slideshow-runner/internal/http"
	"github.com/sharkusmanch/slideshow-runner/internal/metrics"
	"github.com/sharkusmanch/slideshow-runner/internal/monitor"
	"github.com/sharkusmanch/slideshow-runner/internal/notify"
	"github.com/sharkusmanch/slideshow-runner/internal/player"
)

func newHTTPClient(cfg *config.Config, logger *slog.Logger) *http.Client {
	return http.NewClient(
		http.WithRetryConfig(http.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		}),
		http.WithLogger(logger),
	)
}

func newPlayerFactory(cfg *config.Config, logger *slog.Logger) *player.Factory {
	return player.NewFactory(player.MPVConfig{
		BinaryPath:        cfg.Player.Binary,
		Source:            config.ExpandPath(cfg.Player.Source),
		ImageDuration:     cfg.Player.ImageDuration,
		Fullscreen:        cfg.Player.Fullscreen,
		Screen:            cfg.Player.Screen,
		ExtraArgs:         cfg.Player.ExtraArgs,
		Env:               cfg.Player.Env,
		RequireDisplayEnv: cfg.Player.RequireDisplayEnv,
		StopGracePeriod:   cfg.Player.StopGracePeriod,
	}, player.WithLogger(logger))
}

func newProbe(cfg *config.Config, logger *slog.Logger) (domain.MonitorProbe, error) {
	return monitor.New(monitor.Config{
		Method:    monitor.Method(cfg.Probe.Method),
		Command:   cfg.Probe.Command,
		SysfsRoot: cfg.Probe.SysfsRoot,
	}, logger)
}

func newMetricsPusher(cfg *config.Config, client *http.Client, logger *slog.Logger) *metrics.PushgatewayClient {
	return metrics.NewPushgatewayClient(
		cfg.Metrics.PushgatewayURL,
		metrics.WithHTTPClient(client),
		metrics.WithLogger(logger),
	)
}

func newAppriseClient(cfg *config.Config, client *http.Client, logger *slog.Logger) *notify.AppriseClient {
	hostname, _ := os.Hostname()
	return notify.NewAppriseClient(
		cfg.Apprise.URL,
		cfg.Apprise.Key,
		notify.WithHTTPClient(client),
		notify.WithLogger(logger),
		notify.WithTitlePrefix(hostname),
	)
}

// newSupervisor wires the player, probe and optional reporting into an
// app.Supervisor.
func newSupervisor(cfg *config.Config, logger *slog.Logger) (*app.Supervisor, error) {
	probe, err := newProbe(cfg, logger)
	if err != nil {
		return nil, err
	}

	client := newHTTPClient(cfg, logger)

	opts := []app.SupervisorOption{
		app.WithPlayerFactory(newPlayerFactory(cfg, logger).PlayerFactory()),
		app.WithProbe(probe),
		app.WithLogger(logger),
	}

	if cfg.Metrics.Enabled {
		opts = append(opts, app.WithMetricsPusher(newMetricsPusher(cfg, client, logger)))
	}

	if cfg.Apprise.Enabled {
		notifier := notify.NewLevelFilter(
			notify.NewMultiNotifier(logger, newAppriseClient(cfg, client, logger)),
			app.MinNotificationLevel(cfg.Apprise.Notify),
		)
		opts = append(opts, app.WithNotifier(notifier))
	}

	return app.NewSupervisor(cfg, opts...)
}
