package component

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/expr"
	"github.com/vango-dev/vtree/pkg/host"
	"github.com/vango-dev/vtree/pkg/template"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// State is a lifecycle stage.
type State int

const (
	StateCreated State = iota
	StateMounted
	StateUnmounted
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateMounted:
		return "mounted"
	case StateUnmounted:
		return "unmounted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Component is a stateful wrapper around one vdom.Node. Create components
// with Registry.New.
type Component struct {
	name   string
	reg    *Registry
	rt     *vdom.Runtime
	def    *definition
	node   *vdom.Node
	logger *slog.Logger
	state  State

	props    map[string]any
	computed map[string]*computedEntry
	tracking []*computedEntry
	watchers map[string][]*watcher

	listeners map[string][]*listener

	delegates map[string]*budget

	refs     map[string]*vdom.Node
	slots    map[string]string
	provided map[string]any
	injected map[string]any
}

var _ vdom.Mountable = (*Component)(nil)

func newComponent(reg *Registry, name string, def *definition, initial map[string]any) *Component {
	cfg := def.cfg
	c := &Component{
		name:      name,
		reg:       reg,
		rt:        reg.rt,
		def:       def,
		logger:    reg.logger.With("name", name),
		props:     make(map[string]any, len(cfg.Props)),
		computed:  make(map[string]*computedEntry, len(cfg.Computed)),
		watchers:  make(map[string][]*watcher, len(cfg.Watch)),
		listeners: map[string][]*listener{},
		delegates: map[string]*budget{},
		refs:      map[string]*vdom.Node{},
		slots:     map[string]string{},
		injected:  map[string]any{},
	}
	for key, value := range cfg.Props {
		if v, ok := initial[key]; ok && v != nil {
			value = v
		}
		c.props[key] = value
	}
	if h := cfg.Hooks.Validating; h != nil {
		c.safely("hook", "validating", func() { h(c, c.props) })
	}

	for name, g := range cfg.Computed {
		c.computed[name] = &computedEntry{name: name, getter: g}
	}
	for key, fn := range cfg.Watch {
		c.Watch(key, fn)
	}

	values := cfg.Provide
	if fn := cfg.ProvideFunc; fn != nil {
		c.safely("hook", "provide", func() { values = fn(c) })
	}
	if len(values) > 0 {
		c.provided = make(map[string]any, len(values))
		for k, v := range values {
			c.provided[k] = v
		}
		reg.provide(c)
	}
	for local, from := range cfg.Inject {
		if v, ok := reg.lookupProvided(from); ok {
			c.injected[local] = v
		}
	}

	c.node = c.rt.El(cfg.Tag, vdom.Props{Class: cfg.Class})
	if h := cfg.Hooks.Created; h != nil {
		c.safely("hook", "created", func() { h(c) })
	}
	c.render()
	return c
}

// Name returns the definition name c was created from.
func (c *Component) Name() string { return c.name }

// Node implements vdom.Mountable.
func (c *Component) Node() *vdom.Node { return c.node }

// Key returns the key of c's node.
func (c *Component) Key() string { return c.node.Key() }

// Registry returns the registry that created c.
func (c *Component) Registry() *Registry { return c.reg }

// State returns the lifecycle stage.
func (c *Component) State() State { return c.state }

// Prop returns the current value of a prop. Inside a computed getter the
// read is recorded as a dependency.
func (c *Component) Prop(name string) any {
	if n := len(c.tracking); n > 0 {
		c.tracking[n-1].deps[name] = struct{}{}
	}
	return c.props[name]
}

// Props returns a copy of the current props.
func (c *Component) Props() map[string]any {
	out := make(map[string]any, len(c.props))
	for k, v := range c.props {
		out[k] = v
	}
	return out
}

// Injected returns a value resolved from a provider at construction.
func (c *Component) Injected(name string) (any, bool) {
	v, ok := c.injected[name]
	return v, ok
}

// Provided returns a value c publishes.
func (c *Component) Provided(name string) (any, bool) {
	v, ok := c.provided[name]
	return v, ok
}

// Ref returns the element rendered with ref="name", or nil.
func (c *Component) Ref(name string) *vdom.Node { return c.refs[name] }

// SetSlot sets the markup of a named slot ("" is the default slot) and
// re-renders. Slot markup is not interpolated.
func (c *Component) SetSlot(name, markup string) *Component {
	if c.ignored("SetSlot") {
		return c
	}
	c.slots[name] = markup
	c.render()
	return c
}

// SetProps applies changes. See the package documentation for the order
// of effects.
func (c *Component) SetProps(partial map[string]any) *Component {
	if c.ignored("SetProps") {
		return c
	}
	_, span := c.rt.Tracer().Start(context.Background(), "component.SetProps",
		trace.WithAttributes(
			attribute.String("vtree.component", c.name),
			attribute.Int("vtree.props", len(partial)),
		),
	)
	defer span.End()

	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changes := map[string]Change{}
	for _, key := range keys {
		value := partial[key]
		old, had := c.props[key]
		if had && sameValue(old, value) {
			continue
		}
		c.props[key] = value
		changes[key] = Change{Old: old, New: value}

		if h := c.def.cfg.Hooks.BeforeChange; h != nil {
			c.safely("hook", "beforeChange", func() { h(c, key, value, old) })
		}
		c.invalidateDependents(key)
		c.notify(key, value, old)
		if c.state == StateUnmounted {
			return c
		}
	}
	span.SetAttributes(attribute.Int("vtree.changed", len(changes)))
	if len(changes) == 0 {
		return c
	}
	c.InvalidateAll()
	c.update(UpdateInfo{Changes: changes})
	return c
}

// ForceUpdate re-renders without any prop change.
func (c *Component) ForceUpdate() *Component {
	if c.ignored("ForceUpdate") {
		return c
	}
	c.InvalidateAll()
	c.update(UpdateInfo{Changes: map[string]Change{}, Forced: true})
	return c
}

func (c *Component) update(u UpdateInfo) {
	hooks := c.def.cfg.Hooks
	if h := hooks.BeforeUpdate; h != nil {
		c.safely("hook", "beforeUpdate", func() { h(c, u) })
	}
	c.render()
	if h := hooks.Updated; h != nil {
		c.safely("hook", "updated", func() { h(c, u) })
	}
}

// render derives c's children from the template. A rendered node commits
// the result to the host right away.
func (c *Component) render() {
	c.refs = map[string]*vdom.Node{}
	if c.def.tmpl == nil {
		c.node.SetChildren()
		return
	}
	nodes := c.def.tmpl.Render(c.rt, template.Context{
		Scope:   scope{c},
		Handler: c.handler,
		Slots:   c.slots,
		Ref:     func(name string, n *vdom.Node) { c.refs[name] = n },
	})
	c.node.SetChildren(nodes...)
}

// handler binds a template event to an event handler or method.
func (c *Component) handler(method string, args []any) vdom.Handler {
	fn, ok := c.def.cfg.Events[method]
	if !ok {
		fn, ok = c.def.cfg.Methods[method]
	}
	if !ok {
		c.rt.Report(slog.LevelWarn, errors.New("E006").WithDetailf("event handler %q", method), "component", c.name)
		return nil
	}
	return vdom.BindTo(c, func(c *Component, ev *host.Event) {
		if c.state == StateUnmounted {
			return
		}
		callArgs := args
		if len(callArgs) == 0 {
			callArgs = []any{ev}
		}
		c.invoke("event", method, fn, callArgs)
	})
}

// Call runs a method without any budget check. It does nothing once c is
// unmounted.
func (c *Component) Call(method string, args ...any) any {
	if c.ignored("Call") {
		return nil
	}
	fn, ok := c.def.cfg.Methods[method]
	if !ok {
		c.rt.Report(slog.LevelWarn, errors.New("E006").WithDetailf("method %q", method), "component", c.name)
		return nil
	}
	return c.invoke("method", method, fn, args)
}

// Mount runs the mount hooks. It is called by vdom.Node.MountComponent
// once the node is in the host tree and is a no-op outside the created
// state.
func (c *Component) Mount() {
	if c.state != StateCreated {
		return
	}
	hooks := c.def.cfg.Hooks
	if h := hooks.BeforeMount; h != nil {
		c.safely("hook", "beforeMount", func() { h(c) })
	}
	c.state = StateMounted
	c.rt.Metrics().ComponentMounted()
	c.logger.Debug("component mounted", "key", c.Key())
	if h := hooks.Mounted; h != nil {
		c.safely("hook", "mounted", func() { h(c) })
	}
}

// Unmount tears c down: listeners, delegate budgets and the provide
// registration are dropped, the host element is removed and the node is
// detached. Only a mounted component can be unmounted.
func (c *Component) Unmount() {
	if c.state != StateMounted {
		return
	}
	hooks := c.def.cfg.Hooks
	if h := hooks.BeforeUnmount; h != nil {
		c.safely("hook", "beforeUnmount", func() { h(c) })
	}
	c.state = StateUnmounted
	c.listeners = map[string][]*listener{}
	c.delegates = map[string]*budget{}
	c.watchers = map[string][]*watcher{}
	c.reg.unprovide(c)
	c.node.Destroy()
	c.rt.Metrics().ComponentUnmounted()
	c.logger.Debug("component unmounted", "key", c.Key())
	if h := hooks.Unmounted; h != nil {
		c.safely("hook", "unmounted", func() { h(c) })
	}
}

// ignored reports, at debug level, an operation on an unmounted component.
func (c *Component) ignored(op string) bool {
	if c.state != StateUnmounted {
		return false
	}
	c.rt.Report(slog.LevelDebug, errors.New("E007").WithDetailf("%s on %q", op, c.name))
	return true
}

// invoke calls a method, recovering panics.
func (c *Component) invoke(kind, name string, fn Method, args []any) (result any) {
	c.safely(kind, name, func() { result = fn(c, args...) })
	return result
}

// safely runs fn and reports a panic as E004. It returns false if fn
// panicked.
func (c *Component) safely(kind, name string, fn func()) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			c.rt.Metrics().CallbackFailure(kind)
			c.rt.Report(slog.LevelError, errors.FromPanic("E004", rec),
				"component", c.name,
				"callback", name,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
	return true
}

// sameValue reports whether a prop assignment changes nothing.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// scope resolves template names against props, then computed values, then
// injected values. Calls go to methods.
type scope struct{ c *Component }

func (s scope) Lookup(name string) (any, bool) {
	c := s.c
	if _, ok := c.props[name]; ok {
		return c.Prop(name), true
	}
	if _, ok := c.computed[name]; ok {
		return c.Computed(name), true
	}
	v, ok := c.injected[name]
	return v, ok
}

func (s scope) Call(name string, args []any) (any, error) {
	fn, ok := s.c.def.cfg.Methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: method %q", expr.ErrUndefined, name)
	}
	return s.c.invoke("method", name, fn, args), nil
}
