package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// AppName is the application name used for config directories.
	AppName = "slideshow-runner"
	// ConfigFileName is the default config file name.
	ConfigFileName = "config.toml"
	// LogFileName is the default log file name.
	LogFileName = "slideshow-runner.log"
	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "SLIDESHOW_RUNNER"
)

// DefaultConfigDir returns the default configuration directory for the current OS.
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		// %APPDATA%\slideshow-runner
		return windowsDir("APPDATA", "Roaming", AppName)
	case "darwin":
		return homeDir("Library", "Application Support", AppName)
	default:
		// $XDG_CONFIG_HOME/slideshow-runner or ~/.config/slideshow-runner
		return xdgDir("XDG_CONFIG_HOME", ".config", AppName)
	}
}

// DefaultConfigPath returns the full path to the default config file.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// DefaultLogDir returns the default log directory for the current OS.
func DefaultLogDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		// %LOCALAPPDATA%\slideshow-runner\logs
		return windowsDir("LOCALAPPDATA", "Local", AppName, "logs")
	case "darwin":
		return homeDir("Library", "Logs", AppName)
	default:
		// $XDG_STATE_HOME/slideshow-runner or ~/.local/state/slideshow-runner
		return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"), AppName)
	}
}

// DefaultLogPath returns the full path to the default log file.
func DefaultLogPath() (string, error) {
	dir, err := DefaultLogDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LogFileName), nil
}

// SystemdUserUnitDir returns the directory for systemd user units.
func SystemdUserUnitDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config", "systemd", "user")
}

// xdgDir resolves an XDG base directory, falling back to a path below $HOME.
func xdgDir(env, fallback string, elem ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(append([]string{base}, elem...)...), nil
}

func windowsDir(env, appDataSub string, elem ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, "AppData", appDataSub)
	}
	return filepath.Join(append([]string{base}, elem...)...), nil
}

func homeDir(elem ...string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{home}, elem...)...), nil
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
