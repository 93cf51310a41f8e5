package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BlockUntilReady bool          `mapstructure:"block_until_ready"`
	ReadyTimeout    time.Duration `mapstructure:"ready_timeout"`
	RestartOnExit   bool          `mapstructure:"restart_on_exit"`
	Player          PlayerConfig  `mapstructure:"player"`
	Probe           ProbeConfig   `mapstructure:"probe"`
	Retry           RetryConfig   `mapstructure:"retry"`
	Metrics         MetricsConfig `mapstructure:"metrics"`
	Apprise         AppriseConfig `mapstructure:"apprise"`
	Log             LogConfig     `mapstructure:"log"`
}

// PlayerConfig describes the mpv slideshow.
type PlayerConfig struct {
	Binary            string        `mapstructure:"binary"`
	Source            string        `mapstructure:"source"`
	ImageDuration     time.Duration `mapstructure:"image_duration"`
	Fullscreen        bool          `mapstructure:"fullscreen"`
	Screen            int           `mapstructure:"screen"`
	ExtraArgs         []string      `mapstructure:"extra_args"`
	Env               []string      `mapstructure:"env"`
	RequireDisplayEnv bool          `mapstructure:"require_display_env"`
	StopGracePeriod   time.Duration `mapstructure:"stop_grace_period"`
}

// ProbeConfig selects how attached monitors are detected.
type ProbeConfig struct {
	Method    string `mapstructure:"method"`
	Command   string `mapstructure:"command"`
	SysfsRoot string `mapstructure:"sysfs_root"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	PushgatewayURL string        `mapstructure:"pushgateway_url"`
	Interval       time.Duration `mapstructure:"interval"`
}

// RetryConfig holds HTTP retry configuration.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// AppriseConfig holds Apprise notification configuration.
type AppriseConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	URL     string      `mapstructure:"url"`
	Key     string      `mapstructure:"key"`
	Notify  NotifyLevel `mapstructure:"notify"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

var validProbeMethods = map[string]bool{
	"xrandr":  true,
	"drm":     true,
	"command": true,
	"always":  true,
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configPath string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// WithConfigPath sets a specific config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// Load reads configuration from all sources and returns the merged config.
// Precedence (highest to lowest): CLI flags > environment > config file > defaults.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()
	l.setupEnvBindings()

	if err := l.loadConfigFile(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The default log path lives under the OS state directory; an empty
	// output means stderr.
	if cfg.Log.Output == "" {
		if logPath, err := DefaultLogPath(); err == nil {
			cfg.Log.Output = logPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("poll_interval", DefaultPollInterval)
	l.v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)
	l.v.SetDefault("block_until_ready", DefaultBlockUntilReady)
	l.v.SetDefault("ready_timeout", DefaultReadyTimeout)
	l.v.SetDefault("restart_on_exit", DefaultRestartOnExit)

	l.v.SetDefault("player.binary", "")
	l.v.SetDefault("player.source", "")
	l.v.SetDefault("player.image_duration", DefaultPlayerImageDuration)
	l.v.SetDefault("player.fullscreen", DefaultPlayerFullscreen)
	l.v.SetDefault("player.screen", DefaultPlayerScreen)
	l.v.SetDefault("player.extra_args", []string{})
	l.v.SetDefault("player.env", []string{})
	l.v.SetDefault("player.require_display_env", DefaultPlayerRequireDisplayEnv)
	l.v.SetDefault("player.stop_grace_period", DefaultPlayerStopGracePeriod)

	l.v.SetDefault("probe.method", DefaultProbeMethod)
	l.v.SetDefault("probe.command", "")
	l.v.SetDefault("probe.sysfs_root", DefaultProbeSysfsRoot)

	l.v.SetDefault("retry.max_attempts", DefaultRetryMaxAttempts)
	l.v.SetDefault("retry.initial_delay", DefaultRetryInitialDelay)
	l.v.SetDefault("retry.max_delay", DefaultRetryMaxDelay)

	l.v.SetDefault("metrics.enabled", DefaultMetricsEnabled)
	l.v.SetDefault("metrics.pushgateway_url", DefaultMetricsPushgatewayURL)
	l.v.SetDefault("metrics.interval", DefaultMetricsInterval)

	l.v.SetDefault("apprise.enabled", DefaultAppriseEnabled)
	l.v.SetDefault("apprise.url", DefaultAppriseURL)
	l.v.SetDefault("apprise.key", DefaultAppriseKey)
	l.v.SetDefault("apprise.notify", string(DefaultAppriseNotify))

	l.v.SetDefault("log.level", DefaultLogLevel)
	l.v.SetDefault("log.output", "")
	l.v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
}

func (l *Loader) setupEnvBindings() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
	} else {
		configDir, err := DefaultConfigDir()
		if err != nil {
			return nil
		}

		l.v.SetConfigName("config")
		l.v.SetConfigType("toml")
		l.v.AddConfigPath(configDir)
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// Set sets a configuration value (for CLI flag overrides).
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.PollInterval < MinPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", MinPollInterval, c.PollInterval)
	}

	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout cannot be negative")
	}

	if c.ReadyTimeout < 0 {
		return fmt.Errorf("ready_timeout cannot be negative")
	}

	if c.Player.Binary != "" {
		if _, err := os.Stat(c.Player.Binary); err != nil {
			return fmt.Errorf("player.binary does not exist: %s", c.Player.Binary)
		}
	}

	if c.Player.ImageDuration < 0 {
		return fmt.Errorf("player.image_duration cannot be negative")
	}

	if !validProbeMethods[c.Probe.Method] {
		return fmt.Errorf("probe.method must be one of: xrandr, drm, command, always")
	}

	if c.Probe.Method == "command" && strings.TrimSpace(c.Probe.Command) == "" {
		return fmt.Errorf("probe.command is required when probe.method is command")
	}

	if c.Metrics.Enabled {
		if c.Metrics.PushgatewayURL == "" {
			return fmt.Errorf("metrics.pushgateway_url is required when metrics is enabled")
		}
		if c.Metrics.Interval < time.Second {
			return fmt.Errorf("metrics.interval must be at least 1s")
		}
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}

	if c.Retry.InitialDelay < 0 {
		return fmt.Errorf("retry.initial_delay cannot be negative")
	}

	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay must be >= retry.initial_delay")
	}

	if c.Apprise.Enabled {
		if c.Apprise.URL == "" {
			return fmt.Errorf("apprise.url is required when apprise is enabled")
		}
		if c.Apprise.Key == "" {
			return fmt.Errorf("apprise.key is required when apprise is enabled")
		}
		if !c.Apprise.Notify.IsValid() {
			return fmt.Errorf("apprise.notify must be one of: error, warning, always")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	if c.Log.MaxSizeMB < 1 {
		return fmt.Errorf("log.max_size_mb must be at least 1")
	}

	return nil
}

// RequireSource reports an error when no slideshow source is configured.
// Commands that launch the player call it; others work without a source.
func (c *Config) RequireSource() error {
	if strings.TrimSpace(c.Player.Source) == "" {
		return fmt.Errorf("player.source is required")
	}
	return nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

const exampleConfig = `# Slideshow Runner Configuration

# Wait between monitor probes and between failed start attempts
poll_interval = "5s"

# How long shutdown waits for the supervisor to exit
shutdown_timeout = "10s"

# Block startup until the player is running ("0s" waits indefinitely)
block_until_ready = false
ready_timeout = "0s"

# Restart the player after it exits on its own
restart_on_exit = false

[player]
# Path to mpv (auto-detected if empty)
binary = ""
# Image directory or playlist
source = "~/Pictures/slideshow"
image_duration = "10s"
fullscreen = true
# Output index, -1 leaves the choice to mpv
screen = -1
extra_args = []
# Extra environment for mpv as "KEY=VALUE" entries
env = []
# Treat a missing DISPLAY/WAYLAND_DISPLAY as "monitor not ready"
require_display_env = true
stop_grace_period = "5s"

[probe]
# Method: xrandr, drm, command, always
method = "xrandr"
# Used by the command method; one monitor per output line
command = ""
sysfs_root = "/sys"

# HTTP retry configuration
[retry]
max_attempts = 3
initial_delay = "5s"
max_delay = "30s"

# Prometheus metrics (optional, disabled by default)
[metrics]
enabled = false
pushgateway_url = "http://pushgateway:9091"
interval = "1m"

# Apprise notifications (optional, disabled by default)
[apprise]
enabled = false
url = "http://localhost:8000"
key = "slideshow"
# Notification level: "error", "warning", "always"
notify = "error"

[log]
# Level: debug, info, warn, error
level = "info"
# Output file path (defaults to slideshow-runner.log in the state directory)
# output = ""
max_size_mb = 10
`

// WriteExampleConfig writes an example config file to the given path.
func WriteExampleConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(exampleConfig), 0600)
}
