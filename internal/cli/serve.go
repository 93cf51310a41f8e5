package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/slideshow-runner/internal/app"
	"github.com/sharkusmanch/slideshow-runner/internal/config"
	"github.com/sharkusmanch/slideshow-runner/internal/platform"
	"github.com/sharkusmanch/slideshow-runner/pkg/version"
)

var (
	serveBlockUntilReady bool
	serveReadyTimeout    time.Duration
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Supervise the slideshow until stopped",
		Long: `Run the slideshow supervisor in the foreground.

The supervisor polls for an attached monitor, starts mpv once one is
present and restarts it after failures. SIGINT or SIGTERM stops the
player and exits.

Under a systemd Type=notify unit, readiness is reported once the
supervisor is up, or once the player is running with --block-until-ready.`,
		RunE: runServe,
	}

	cmd.Flags().BoolVar(&serveBlockUntilReady, "block-until-ready", false, "wait for the player to start before reporting ready")
	cmd.Flags().DurationVar(&serveReadyTimeout, "ready-timeout", 0, "maximum wait with --block-until-ready (0 waits forever)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(l *config.Loader) {
		if cmd.Flags().Changed("block-until-ready") {
			l.Set("block_until_ready", serveBlockUntilReady)
		}
		if cmd.Flags().Changed("ready-timeout") {
			l.Set("ready_timeout", serveReadyTimeout)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.RequireSource(); err != nil {
		return err
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	if platform.IsRunningAsService() {
		return platform.RunAsService(func(ctx context.Context) error {
			return serve(ctx, cfg, logger)
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// serve runs the supervisor until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	sup, err := newSupervisor(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}

	logger.Info("slideshow-runner starting",
		"version", version.Version,
		"source", cfg.Player.Source,
		"probe", cfg.Probe.Method,
		"poll_interval", cfg.PollInterval,
	)

	if !sup.Start(ctx) && ctx.Err() == nil {
		logger.Warn("player did not become ready before the timeout", "ready_timeout", cfg.ReadyTimeout)
	}

	if ctx.Err() == nil {
		if err := platform.Notify(platform.NotifyReady, platform.NotifyStatus("supervising %s", cfg.Player.Source)); err != nil {
			logger.Warn("failed to notify service manager", "error", err)
		}
	}

	// The scheduler is cancelled only after the player is stopped so its
	// final push reports the service down.
	schedCtx, cancelSched := context.WithCancel(context.Background())
	defer cancelSched()

	schedDone := make(chan struct{})
	if cfg.Metrics.Enabled {
		sched := app.NewScheduler(sup,
			app.WithInterval(cfg.Metrics.Interval),
			app.WithSchedulerLogger(logger),
		)
		go func() {
			defer close(schedDone)
			if err := sched.Start(schedCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("metrics scheduler stopped", "error", err)
			}
		}()
	} else {
		close(schedDone)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if err := platform.Notify(platform.NotifyStopping); err != nil {
		logger.Debug("failed to notify service manager", "error", err)
	}

	sup.Stop()
	cancelSched()
	<-schedDone

	logger.Info("slideshow-runner stopped")
	return nil
}
