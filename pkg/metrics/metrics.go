// Package metrics exposes vtree runtime activity as Prometheus collectors.
//
// Every method is safe to call on a nil *Collector, so instrumented code
// never needs to check whether metrics are enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "vtree").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "vtree",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector holds the vtree collectors.
type Collector struct {
	hostOps          *prometheus.CounterVec
	renders          *prometheus.CounterVec
	renderDuration   *prometheus.HistogramVec
	reconcileOps     *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	cacheEvictions   prometheus.Counter
	callbackFailures *prometheus.CounterVec
	delegateRefusals prometheus.Counter
	mounted          prometheus.Gauge
	wireFrames       *prometheus.CounterVec
	wireBytes        *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	wsErrors         *prometheus.CounterVec
}

// New registers the collectors and returns them.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Collector{
		hostOps: counterVec("host_ops_total",
			"Host adapter primitives issued, by operation", "op"),
		renders: counterVec("renders_total",
			"Renders committed, by mode (sync, async, update)", "mode"),
		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Time spent reconciling and committing a render",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"mode"}),
		reconcileOps: counterVec("reconcile_ops_total",
			"Keyed diff decisions, by kind (create, update, move, remove)", "kind"),
		cacheLookups: counterVec("selector_cache_lookups_total",
			"Selector cache lookups, by result (hit, miss)", "result"),
		cacheEvictions: counter("selector_cache_evictions_total",
			"Selectors evicted from the parse cache"),
		callbackFailures: counterVec("callback_failures_total",
			"User callbacks that failed and were recovered, by kind", "kind"),
		delegateRefusals: counter("delegate_refusals_total",
			"Delegate calls refused because their budget was exhausted"),
		mounted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "components_mounted",
			Help:        "Components currently mounted",
			ConstLabels: config.ConstLabels,
		}),
		wireFrames: counterVec("wire_frames_total",
			"Wire frames, by direction (in, out)", "direction"),
		wireBytes: counterVec("wire_bytes_total",
			"Wire frame bytes, by direction (in, out)", "direction"),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of active websocket sessions",
			ConstLabels: config.ConstLabels,
		}),
		wsErrors: counterVec("websocket_errors_total",
			"Websocket errors, by type (upgrade, session)", "type"),
	}
}

// HostOp counts one host primitive.
func (c *Collector) HostOp(op string) {
	if c == nil {
		return
	}
	c.hostOps.WithLabelValues(op).Inc()
}

// Render records a committed render.
func (c *Collector) Render(mode string, d time.Duration) {
	if c == nil {
		return
	}
	c.renders.WithLabelValues(mode).Inc()
	c.renderDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// Reconcile adds n keyed diff decisions of kind.
func (c *Collector) Reconcile(kind string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.reconcileOps.WithLabelValues(kind).Add(float64(n))
}

// CacheLookup implements selector.Observer.
func (c *Collector) CacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// CacheEviction implements selector.Observer.
func (c *Collector) CacheEviction() {
	if c == nil {
		return
	}
	c.cacheEvictions.Inc()
}

// CallbackFailure counts a recovered callback failure.
func (c *Collector) CallbackFailure(kind string) {
	if c == nil {
		return
	}
	c.callbackFailures.WithLabelValues(kind).Inc()
}

// DelegateRefused counts a refused delegate call.
func (c *Collector) DelegateRefused() {
	if c == nil {
		return
	}
	c.delegateRefusals.Inc()
}

// ComponentMounted increments the mounted gauge.
func (c *Collector) ComponentMounted() {
	if c == nil {
		return
	}
	c.mounted.Inc()
}

// ComponentUnmounted decrements the mounted gauge.
func (c *Collector) ComponentUnmounted() {
	if c == nil {
		return
	}
	c.mounted.Dec()
}

// WireFrame records a frame of n bytes sent ("out") or received ("in").
func (c *Collector) WireFrame(direction string, n int) {
	if c == nil {
		return
	}
	c.wireFrames.WithLabelValues(direction).Inc()
	c.wireBytes.WithLabelValues(direction).Add(float64(n))
}

// SessionStarted increments the active sessions gauge.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.activeSessions.Inc()
}

// SessionEnded decrements the active sessions gauge.
func (c *Collector) SessionEnded() {
	if c == nil {
		return
	}
	c.activeSessions.Dec()
}

// WebsocketError counts a websocket failure of kind.
func (c *Collector) WebsocketError(kind string) {
	if c == nil {
		return
	}
	c.wsErrors.WithLabelValues(kind).Inc()
}
