package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/vtree/internal/config"
	"github.com/vango-dev/vtree/pkg/metrics"
	"github.com/vango-dev/vtree/pkg/sched"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// env is what every command builds from vtree.json.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector
}

func loadEnv(dir string, logOut io.Writer) (*env, error) {
	cfg, err := config.LoadOrDefault(dir)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: newLogger(cfg, logOut)}
	if cfg.Metrics.Enabled {
		e.registry = prometheus.NewRegistry()
		e.metrics = metrics.New(
			metrics.WithNamespace(cfg.Metrics.Namespace),
			metrics.WithRegistry(e.registry),
		)
	}
	return e, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// runtimeOptions maps the configuration onto a Runtime driven by s.
func (e *env) runtimeOptions(s sched.Scheduler) []vdom.Option {
	return []vdom.Option{
		vdom.WithLogger(e.logger),
		vdom.WithScheduler(s),
		vdom.WithMetrics(e.metrics),
		vdom.WithCacheSize(e.cfg.Selector.CacheSize),
		vdom.WithFrameInterval(e.cfg.FrameInterval()),
		vdom.WithMountDelay(e.cfg.MountDelay()),
	}
}
