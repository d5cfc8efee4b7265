package vdom

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/host"
	"github.com/vango-dev/vtree/pkg/metrics"
	"github.com/vango-dev/vtree/pkg/sched"
	"github.com/vango-dev/vtree/pkg/selector"
)

const (
	// DefaultCacheSize is the selector cache capacity.
	DefaultCacheSize = 1000

	// DefaultFrameInterval is the coalescing window of Root.RenderAsync.
	DefaultFrameInterval = 16 * time.Millisecond

	tracerName = "github.com/vango-dev/vtree/pkg/vdom"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		if l != nil {
			rt.logger = l
		}
	}
}

// WithScheduler sets the scheduler used for RenderAsync and mount
// deferral. The default is a sched.Manual, which runs nothing until it is
// flushed or advanced.
func WithScheduler(s sched.Scheduler) Option {
	return func(rt *Runtime) { rt.sched = s }
}

// WithMetrics reports renders, reconcile work, selector cache lookups and
// callback failures to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(rt *Runtime) { rt.metrics = c }
}

// WithTracer overrides the tracer obtained from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(rt *Runtime) { rt.tracer = t }
}

// WithErrorHandler registers fn to observe every failure the runtime
// captures and logs instead of returning.
func WithErrorHandler(fn func(error)) Option {
	return func(rt *Runtime) { rt.onError = fn }
}

// WithCacheSize sets the selector cache capacity. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(rt *Runtime) { rt.cacheSize = n }
}

// WithFrameInterval sets the RenderAsync coalescing window.
func WithFrameInterval(d time.Duration) Option {
	return func(rt *Runtime) { rt.frameInterval = d }
}

// WithMountDelay sets how long MountComponent waits before calling Mount.
func WithMountDelay(d time.Duration) Option {
	return func(rt *Runtime) { rt.mountDelay = d }
}

// Runtime owns the state shared by a set of roots.
type Runtime struct {
	logger        *slog.Logger
	sched         sched.Scheduler
	metrics       *metrics.Collector
	tracer        trace.Tracer
	onError       func(error)
	cacheSize     int
	frameInterval time.Duration
	mountDelay    time.Duration

	selectors *selector.Cache
	keys      keyGen
	roots     []*Root
	nextRoot  int
}

// NewRuntime creates a Runtime.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		logger:        slog.Default().With("component", "vdom"),
		cacheSize:     DefaultCacheSize,
		frameInterval: DefaultFrameInterval,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.sched == nil {
		rt.sched = sched.NewManual()
	}
	if rt.tracer == nil {
		rt.tracer = otel.Tracer(tracerName)
	}

	cacheOpts := []selector.CacheOption{selector.WithLogger(rt.logger)}
	if rt.metrics != nil {
		cacheOpts = append(cacheOpts, selector.WithObserver(rt.metrics))
	}
	rt.selectors = selector.NewCache(rt.cacheSize, cacheOpts...)
	return rt
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// Scheduler returns the runtime's scheduler.
func (rt *Runtime) Scheduler() sched.Scheduler { return rt.sched }

// Metrics returns the metrics collector, which may be nil. Collector
// methods are nil-safe.
func (rt *Runtime) Metrics() *metrics.Collector { return rt.metrics }

// Tracer returns the runtime's tracer.
func (rt *Runtime) Tracer() trace.Tracer { return rt.tracer }

// Selectors returns the runtime's selector cache.
func (rt *Runtime) Selectors() *selector.Cache { return rt.selectors }

// MountDelay returns the delay applied by MountComponent.
func (rt *Runtime) MountDelay() time.Duration { return rt.mountDelay }

// Report logs a captured failure at level and hands it to the error
// handler, if any.
func (rt *Runtime) Report(level slog.Level, err *errors.Error, attrs ...any) {
	if err == nil {
		return
	}
	args := append([]any{"code", err.Code, "error", err.Error()}, attrs...)
	rt.logger.Log(context.Background(), level, err.Message, args...)
	if rt.onError != nil {
		rt.onError(err)
	}
}

// NewKey returns a fresh key.
func (rt *Runtime) NewKey() string { return rt.keys.Next() }

// El creates a node. An empty tag means "div". Props.Key, when set, is used
// as the key; otherwise a fresh key is generated.
func (rt *Runtime) El(tag string, props Props, children ...*Node) *Node {
	if tag == "" {
		tag = "div"
	}
	n := &Node{Tag: tag, Props: props, rt: rt}
	if props.Key != "" {
		n.key = props.Key
	} else {
		n.key = rt.keys.Next()
	}
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		c.detach()
		c.parent = n
		c.prepended = false
		n.children = append(n.children, c)
	}
	return n
}

// Bind creates a root rendering into el of adapter.
func (rt *Runtime) Bind(adapter host.Adapter, el host.Handle) *Root {
	rt.nextRoot++
	r := &Root{
		rt:        rt,
		id:        rt.nextRoot,
		adapter:   adapter,
		el:        el,
		handlers:  map[string]map[string]func(*host.Event){},
		listening: map[string]bool{},
		logger:    rt.logger.With("root", rt.nextRoot),
	}
	if el == 0 {
		rt.Report(slog.LevelWarn, errors.New("E011"), "root", r.id)
	}
	rt.roots = append(rt.roots, r)
	return r
}

// Roots returns the live roots in creation order.
func (rt *Runtime) Roots() []*Root {
	out := make([]*Root, len(rt.roots))
	copy(out, rt.roots)
	return out
}

// Find searches the virtual trees of every root.
func (rt *Runtime) Find(sel string) *Collection {
	compounds := rt.selectors.Parse(sel)
	var nodes []*Node
	for _, r := range rt.roots {
		nodes = append(nodes, selector.Find(r.children, compounds, (*Node).Children)...)
	}
	return &Collection{nodes: nodes}
}

// SelectorStats reports the selector cache statistics.
func (rt *Runtime) SelectorStats() selector.Stats { return rt.selectors.Stats() }

// ClearSelectorCache empties the selector cache.
func (rt *Runtime) ClearSelectorCache() { rt.selectors.Clear() }

// Free destroys every root and empties the selector cache.
func (rt *Runtime) Free() {
	for _, r := range rt.Roots() {
		r.Destroy()
	}
	rt.roots = nil
	rt.selectors.Clear()
}

func (rt *Runtime) forget(r *Root) {
	for i, x := range rt.roots {
		if x == r {
			rt.roots = append(rt.roots[:i], rt.roots[i+1:]...)
			return
		}
	}
}
