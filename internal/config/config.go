package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/vtree/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vtree.json"

	// DefaultCacheSize is the default selector cache capacity.
	DefaultCacheSize = 1000

	// DefaultFrameInterval is the default coalescing window for async renders.
	DefaultFrameInterval = 16 * time.Millisecond

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "vtree"

	// DefaultAddress is the default listen address for `vtree serve`.
	DefaultAddress = ":8080"

	// DefaultPath is the default websocket path for `vtree serve`.
	DefaultPath = "/ws"

	// DefaultHeartbeatInterval is how often `vtree serve` pings a peer.
	DefaultHeartbeatInterval = 30 * time.Second
)

// Config represents the complete vtree.json configuration.
type Config struct {
	Selector SelectorConfig `json:"selector"`
	Render   RenderConfig   `json:"render"`
	Log      LogConfig      `json:"log"`
	Metrics  MetricsConfig  `json:"metrics"`
	Serve    ServeConfig    `json:"serve"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// SelectorConfig configures the selector engine.
type SelectorConfig struct {
	// CacheSize bounds the parsed-selector cache. Zero disables caching.
	CacheSize int `json:"cacheSize"`
}

// RenderConfig configures render scheduling.
type RenderConfig struct {
	// FrameInterval is the coalescing window for RenderAsync (e.g., "16ms").
	FrameInterval string `json:"frameInterval,omitempty"`

	// MountDelay defers a component's Mounted hook after attachment.
	MountDelay string `json:"mountDelay,omitempty"`
}

// LogConfig configures the slog handler built by the CLI.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// MetricsConfig configures Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace,omitempty"`
}

// ServeConfig configures `vtree serve`.
type ServeConfig struct {
	Address string `json:"address,omitempty"`
	Path    string `json:"path,omitempty"`

	// HeartbeatInterval is the websocket ping period (e.g., "30s"). "0s"
	// disables pings.
	HeartbeatInterval string `json:"heartbeatInterval,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Selector: SelectorConfig{CacheSize: DefaultCacheSize},
		Render: RenderConfig{
			FrameInterval: DefaultFrameInterval.String(),
			MountDelay:    "0s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Serve: ServeConfig{
			Address:           DefaultAddress,
			Path:              DefaultPath,
			HeartbeatInterval: DefaultHeartbeatInterval.String(),
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for vtree.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E103").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path))
		}
		return nil, errors.New("E100").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E101").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads vtree.json from dir, falling back to defaults when
// the file does not exist.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		return New(), nil
	}
	return Load(dir)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E100").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E100").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in empty fields after unmarshalling.
func (c *Config) applyDefaults() {
	if c.Render.FrameInterval == "" {
		c.Render.FrameInterval = DefaultFrameInterval.String()
	}
	if c.Render.MountDelay == "" {
		c.Render.MountDelay = "0s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Serve.Address == "" {
		c.Serve.Address = DefaultAddress
	}
	if c.Serve.Path == "" {
		c.Serve.Path = DefaultPath
	}
	if c.Serve.HeartbeatInterval == "" {
		c.Serve.HeartbeatInterval = DefaultHeartbeatInterval.String()
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Selector.CacheSize < 0 {
		return c.invalid("selector.cacheSize must not be negative")
	}
	if d, err := time.ParseDuration(c.Render.FrameInterval); err != nil || d < 0 {
		return c.invalid("render.frameInterval must be a non-negative duration, got " + quote(c.Render.FrameInterval)).
			WithSuggestion(`use a Go duration such as "16ms"`)
	}
	if d, err := time.ParseDuration(c.Render.MountDelay); err != nil || d < 0 {
		return c.invalid("render.mountDelay must be a non-negative duration, got " + quote(c.Render.MountDelay)).
			WithSuggestion(`use a Go duration such as "0s"`)
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return c.invalid("log.level must be one of debug, info, warn, error, got " + quote(c.Log.Level))
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return c.invalid("log.format must be text or json, got " + quote(c.Log.Format))
	}
	if !strings.HasPrefix(c.Serve.Path, "/") {
		return c.invalid("serve.path must start with /, got " + quote(c.Serve.Path))
	}
	if d, err := time.ParseDuration(c.Serve.HeartbeatInterval); err != nil || d < 0 {
		return c.invalid("serve.heartbeatInterval must be a non-negative duration, got " + quote(c.Serve.HeartbeatInterval)).
			WithSuggestion(`use a Go duration such as "30s"`)
	}
	return nil
}

func (c *Config) invalid(detail string) *errors.Error {
	err := errors.New("E102").WithDetail(detail)
	if c.configPath != "" {
		err.Location = &errors.Location{File: c.configPath}
	}
	return err
}

// FrameInterval returns the parsed render.frameInterval.
func (c *Config) FrameInterval() time.Duration {
	d, err := time.ParseDuration(c.Render.FrameInterval)
	if err != nil {
		return DefaultFrameInterval
	}
	return d
}

// MountDelay returns the parsed render.mountDelay.
func (c *Config) MountDelay() time.Duration {
	d, err := time.ParseDuration(c.Render.MountDelay)
	if err != nil {
		return 0
	}
	return d
}

// HeartbeatInterval returns the parsed serve.heartbeatInterval.
func (c *Config) HeartbeatInterval() time.Duration {
	d, err := time.ParseDuration(c.Serve.HeartbeatInterval)
	if err != nil {
		return DefaultHeartbeatInterval
	}
	return d
}

// LogLevel returns the slog level named by log.level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

func quote(s string) string {
	return `"` + s + `"`
}

// Exists checks if a vtree.json exists in the specified directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
