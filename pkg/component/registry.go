package component

import (
	"log/slog"
	"sort"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/template"
	"github.com/vango-dev/vtree/pkg/vdom"
)

type definition struct {
	cfg  Config
	tmpl *template.Template
}

// Registry holds component definitions and the values components provide
// to each other. Like the rest of vtree it is used from one goroutine.
type Registry struct {
	rt        *vdom.Runtime
	logger    *slog.Logger
	defs      map[string]*definition
	providers []*Component
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger. Components log through it too.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry creating components in rt.
func NewRegistry(rt *vdom.Runtime, opts ...RegistryOption) *Registry {
	r := &Registry{
		rt:     rt,
		logger: rt.Logger().With("component", "registry"),
		defs:   map[string]*definition{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Runtime returns the runtime components are created in.
func (r *Registry) Runtime() *vdom.Runtime { return r.rt }

// Define registers cfg under name, replacing any previous definition. The
// template is compiled once here.
func (r *Registry) Define(name string, cfg Config) error {
	def := &definition{cfg: cfg}
	if cfg.Template != "" {
		t, err := template.Compile(cfg.Template)
		if err != nil {
			return errors.FromError(err, "E008").WithDetailf("component %q", name)
		}
		def.tmpl = t
	}
	r.defs[name] = def
	r.logger.Debug("component defined", "name", name)
	return nil
}

// Remove deletes a definition. Existing components are unaffected.
func (r *Registry) Remove(name string) bool {
	_, ok := r.defs[name]
	delete(r.defs, name)
	return ok
}

// Has reports whether name is defined.
func (r *Registry) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Names returns the defined names in order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for name := range r.defs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New creates a component from the named definition. An unknown name is
// reported with code E002 and yields nil.
func (r *Registry) New(name string, props map[string]any) *Component {
	def, ok := r.defs[name]
	if !ok {
		r.rt.Report(slog.LevelWarn, errors.New("E002").WithDetailf("%q", name))
		return nil
	}
	return newComponent(r, name, def, props)
}

// Providers returns the number of components currently providing values.
func (r *Registry) Providers() int { return len(r.providers) }

func (r *Registry) provide(c *Component) {
	r.providers = append(r.providers, c)
}

func (r *Registry) unprovide(c *Component) {
	for i, p := range r.providers {
		if p == c {
			r.providers = append(r.providers[:i:i], r.providers[i+1:]...)
			return
		}
	}
}

// lookupProvided returns the value of the earliest registered provider
// publishing name.
func (r *Registry) lookupProvided(name string) (any, bool) {
	for _, p := range r.providers {
		if v, ok := p.provided[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Close drops every definition and provider registration.
func (r *Registry) Close() {
	r.defs = map[string]*definition{}
	r.providers = nil
}
