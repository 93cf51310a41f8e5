package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/slideshow-runner/internal/config"
	"github.com/sharkusmanch/slideshow-runner/internal/http"
	"github.com/sharkusmanch/slideshow-runner/internal/slideshow"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and test connectivity",
		Long: `Validate the configuration file and test the environment.

This checks:
- Config file syntax
- mpv binary and slideshow source
- Monitor probe
- Pushgateway connectivity (if enabled)
- Apprise server connectivity (if enabled)`,
		RunE: runValidate,
	}

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Configuration:")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "  ✗ Config file: %v\n", err)
		return err
	}
	fmt.Fprintf(out, "  ✓ Config file syntax valid\n")

	configPath, _ := config.DefaultConfigPath()
	if cfgFile != "" {
		configPath = cfgFile
	}
	fmt.Fprintf(out, "  Config file: %s\n", configPath)
	fmt.Fprintf(out, "  Source: %s\n", cfg.Player.Source)
	fmt.Fprintf(out, "  Probe: %s\n", cfg.Probe.Method)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval)
	fmt.Fprintf(out, "  Block until ready: %t\n", cfg.BlockUntilReady)
	fmt.Fprintf(out, "  Restart on exit: %t\n", cfg.RestartOnExit)
	if cfg.Metrics.Enabled {
		fmt.Fprintf(out, "  Metrics: enabled\n")
		fmt.Fprintf(out, "  Pushgateway URL: %s\n", cfg.Metrics.PushgatewayURL)
	} else {
		fmt.Fprintf(out, "  Metrics: disabled\n")
	}
	if cfg.Apprise.Enabled {
		fmt.Fprintf(out, "  Notifications: enabled\n")
		fmt.Fprintf(out, "  Apprise URL: %s\n", cfg.Apprise.URL)
		fmt.Fprintf(out, "  Notification level: %s\n", cfg.Apprise.Notify)
	} else {
		fmt.Fprintf(out, "  Notifications: disabled\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Checks:")
	logger, _ := setupLogging(cfg)

	if err := cfg.RequireSource(); err != nil {
		fmt.Fprintf(out, "  ✗ Slideshow source: %v\n", err)
	}

	factory := newPlayerFactory(cfg, logger)
	if version, err := factory.Version(ctx); err != nil {
		fmt.Fprintf(out, "  ✗ mpv binary: %v\n", err)
	} else {
		fmt.Fprintf(out, "  ✓ mpv binary found: %s\n", version)
	}
	if cfg.Player.Source != "" {
		if err := factory.Validate(ctx); err != nil {
			fmt.Fprintf(out, "  ✗ Slideshow source: %v\n", err)
		} else {
			fmt.Fprintf(out, "  ✓ Slideshow source readable\n")
		}
	}

	if probe, err := newProbe(cfg, logger); err != nil {
		fmt.Fprintf(out, "  ✗ Monitor probe: %v\n", err)
	} else if raw, err := probe.Probe(ctx); err != nil {
		fmt.Fprintf(out, "  ✗ Monitor probe: %v\n", err)
	} else if monitors := slideshow.NormalizeMonitors(raw); len(monitors) == 0 {
		fmt.Fprintf(out, "  ! Monitor probe: no active monitors\n")
	} else {
		fmt.Fprintf(out, "  ✓ Monitor probe: %v\n", monitors)
	}

	// Single attempt per endpoint.
	httpClient := http.NewClient(
		http.WithRetryConfig(http.RetryConfig{
			MaxAttempts:  1,
			InitialDelay: time.Second,
			MaxDelay:     time.Second,
		}),
		http.WithLogger(logger),
	)

	if cfg.Metrics.Enabled {
		if err := newMetricsPusher(cfg, httpClient, logger).Validate(ctx); err != nil {
			fmt.Fprintf(out, "  ✗ Pushgateway: %v\n", err)
		} else {
			fmt.Fprintf(out, "  ✓ Pushgateway reachable\n")
		}
	}

	if cfg.Apprise.Enabled {
		if err := newAppriseClient(cfg, httpClient, logger).Validate(ctx); err != nil {
			fmt.Fprintf(out, "  ✗ Apprise server: %v\n", err)
		} else {
			fmt.Fprintf(out, "  ✓ Apprise server reachable\n")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Validation complete.")
	return nil
}
