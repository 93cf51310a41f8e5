// Package cli provides the command-line interface.
package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sharkusmanch/slideshow-runner/internal/config"
	"github.com/sharkusmanch/slideshow-runner/pkg/version"
)

var (
	cfgFile  string
	logLevel string
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "slideshow-runner",
		Short: "Monitor-aware slideshow player supervisor",
		Long: `slideshow-runner keeps a fullscreen mpv slideshow running on an attached
monitor. It waits for a display to appear, starts the player, restarts it
after failures and shuts it down cleanly.

It can run in the foreground, as a systemd user unit or as a Windows service.`,
		Version: version.Get().String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initLogging()
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewProbeCmd())
	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewInstallCmd())
	rootCmd.AddCommand(NewUninstallCmd())
	rootCmd.AddCommand(NewStartCmd())
	rootCmd.AddCommand(NewStopCmd())
	rootCmd.AddCommand(NewStatusCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// initLogging installs a stderr logger until the config is loaded.
func initLogging() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	})
	slog.SetDefault(slog.New(handler))
}

// setupLogging configures logging based on the loaded config. The
// --log-level flag wins over log.level.
func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	level := parseLevel(cfg.Log.Level)
	if logLevel != "" {
		level = parseLevel(logLevel)
	}

	var output io.Writer = os.Stderr
	if cfg.Log.Output != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.Output), 0750); err != nil {
			return nil, err
		}
		output = &lumberjack.Logger{
			Filename:   cfg.Log.Output,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return logger, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig loads the configuration. Each override may set values on the
// loader before it reads its sources.
func loadConfig(overrides ...func(*config.Loader)) (*config.Config, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader = loader.WithConfigPath(cfgFile)
	}
	if logLevel != "" {
		loader.Set("log.level", logLevel)
	}
	for _, o := range overrides {
		o(loader)
	}
	return loader.Load()
}
