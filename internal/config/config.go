package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// RSSI to distance estimation
	MeasuredPower = -59.0 // RSSI at 1 meter (dBm)
	PathLossExp   = 2.5   // Path loss exponent (N)

	// Peripheral list
	SmoothingAlpha = 0.3              // EMA smoothing factor (30% new, 70% old)
	EvictInterval  = 5 * time.Second  // How often to run eviction
	RSSIHistoryLen = 8                // Samples kept per peripheral for the trend column

	// Face view
	AspectRatio = 0.5 // Terminal char aspect correction (chars are ~2:1 tall)
	TargetFPS   = 20  // Face view redraw rate

	// Start-game transition
	StartAnimation = 300 * time.Millisecond

	// App
	AppName    = "FACEPLAY"
	AppVersion = "1.0"
)

// Config holds the user-tunable settings loaded from YAML and overridden by flags.
type Config struct {
	Adapter        string        `yaml:"adapter"`
	Demo           bool          `yaml:"demo"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	DeviceTimeout  time.Duration `yaml:"device_timeout"`
	ToastDuration  time.Duration `yaml:"toast_duration"`
	Log            LogConfig     `yaml:"log"`
}

// LogConfig controls where and how verbosely the app logs.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "faceplay")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultLogPath returns the log file used while the TUI owns the terminal.
func DefaultLogPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "faceplay", "faceplay.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "faceplay.log")
	}
	return filepath.Join(home, ".local", "state", "faceplay", "faceplay.log")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Adapter:        "hci0",
		ConnectTimeout: 10 * time.Second,
		DeviceTimeout:  30 * time.Second,
		ToastDuration:  2500 * time.Millisecond,
		Log: LogConfig{
			Level: "info",
			File:  DefaultLogPath(),
		},
	}
}

// Load reads and parses a YAML config file. Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Log.File = expandTilde(cfg.Log.File)

	return cfg, nil
}

// LoadOrDefault loads path if it exists and falls back to defaults otherwise.
// An explicitly given path that does not exist is an error.
func LoadOrDefault(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Load(path)
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Adapter == "" {
		return fmt.Errorf("adapter must not be empty")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be > 0, got %s", c.ConnectTimeout)
	}
	if c.DeviceTimeout <= 0 {
		return fmt.Errorf("device_timeout must be > 0, got %s", c.DeviceTimeout)
	}
	if c.ToastDuration <= 0 {
		return fmt.Errorf("toast_duration must be > 0, got %s", c.ToastDuration)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// NewLogger creates a logger writing to the configured file. The returned
// closer releases the file handle.
func (c *Config) NewLogger() (*logrus.Logger, func() error, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log.level: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	if c.Log.File == "" || c.Log.File == "stderr" {
		logger.SetOutput(os.Stderr)
		return logger, func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(c.Log.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(c.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger.SetOutput(f)
	return logger, f.Close, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
