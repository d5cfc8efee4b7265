package config

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/vtree/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Selector.CacheSize != DefaultCacheSize {
		t.Errorf("Selector.CacheSize = %d, want %d", cfg.Selector.CacheSize, DefaultCacheSize)
	}
	if cfg.FrameInterval() != DefaultFrameInterval {
		t.Errorf("FrameInterval() = %v, want %v", cfg.FrameInterval(), DefaultFrameInterval)
	}
	if cfg.MountDelay() != 0 {
		t.Errorf("MountDelay() = %v, want 0", cfg.MountDelay())
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q, want %q", cfg.Metrics.Namespace, DefaultNamespace)
	}
	if cfg.Serve.Address != DefaultAddress || cfg.Serve.Path != DefaultPath {
		t.Errorf("Serve = %+v", cfg.Serve)
	}
	if cfg.HeartbeatInterval() != DefaultHeartbeatInterval {
		t.Errorf("HeartbeatInterval() = %v, want %v", cfg.HeartbeatInterval(), DefaultHeartbeatInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if errors.Code(err) != "E103" {
		t.Fatalf("missing config error code = %q, want E103", errors.Code(err))
	}

	configJSON := `{
  "selector": {"cacheSize": 64},
  "render": {"frameInterval": "5ms"},
  "log": {"level": "debug"},
  "serve": {"address": "127.0.0.1:9000", "heartbeatInterval": "0s"}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Selector.CacheSize != 64 {
		t.Errorf("Selector.CacheSize = %d, want 64", cfg.Selector.CacheSize)
	}
	if cfg.FrameInterval() != 5*time.Millisecond {
		t.Errorf("FrameInterval() = %v, want 5ms", cfg.FrameInterval())
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, want debug", cfg.LogLevel())
	}
	// Defaults survive partial files.
	if cfg.Render.MountDelay != "0s" {
		t.Errorf("Render.MountDelay = %q, want 0s", cfg.Render.MountDelay)
	}
	if cfg.Serve.Path != DefaultPath {
		t.Errorf("Serve.Path = %q, want %q", cfg.Serve.Path, DefaultPath)
	}
	if cfg.HeartbeatInterval() != 0 {
		t.Errorf("HeartbeatInterval() = %v, want 0", cfg.HeartbeatInterval())
	}
	if cfg.Path() != filepath.Join(tmpDir, ConfigFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(tmpDir)
	if errors.Code(err) != "E101" {
		t.Errorf("error code = %q, want E101 (%v)", errors.Code(err), err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative cache", func(c *Config) { c.Selector.CacheSize = -1 }, "selector.cacheSize"},
		{"bad frame interval", func(c *Config) { c.Render.FrameInterval = "soon" }, "render.frameInterval"},
		{"negative mount delay", func(c *Config) { c.Render.MountDelay = "-1s" }, "render.mountDelay"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"relative path", func(c *Config) { c.Serve.Path = "ws" }, "serve.path"},
		{"bad heartbeat", func(c *Config) { c.Serve.HeartbeatInterval = "often" }, "serve.heartbeatInterval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			var ve *errors.Error
			if !stderrors.As(err, &ve) || ve.Code != "E102" {
				t.Fatalf("Validate() = %v, want E102", err)
			}
			if !strings.Contains(ve.Detail, tt.want) {
				t.Errorf("Detail = %q, want mention of %q", ve.Detail, tt.want)
			}
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	cfg.Selector.CacheSize = 12
	cfg.Metrics.Enabled = false

	path := filepath.Join(tmpDir, ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.Selector.CacheSize != 12 || loaded.Metrics.Enabled {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Selector.CacheSize != DefaultCacheSize {
		t.Errorf("Selector.CacheSize = %d, want default", cfg.Selector.CacheSize)
	}
}
