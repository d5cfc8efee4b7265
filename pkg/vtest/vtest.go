package vtest

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/internal/treedoc"
	"github.com/vango-dev/vtree/pkg/component"
	"github.com/vango-dev/vtree/pkg/host/memhost"
	"github.com/vango-dev/vtree/pkg/sched"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Harness is a Runtime bound to an in-memory document.
type Harness struct {
	t testing.TB

	Runtime  *vdom.Runtime
	Registry *component.Registry
	Sched    *sched.Manual
	Doc      *memhost.Document
	Root     *vdom.Root

	errs []error
}

type config struct {
	container string
	logger    *slog.Logger
	opts      []vdom.Option
}

// Option configures a Harness.
type Option func(*config)

// WithContainer sets the id of the element the root is bound to.
func WithContainer(id string) Option {
	return func(c *config) { c.container = id }
}

// WithLogger replaces the default logger, which discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRuntimeOptions passes extra options to vdom.NewRuntime. Scheduler,
// logger and error handler options are overridden.
func WithRuntimeOptions(opts ...vdom.Option) Option {
	return func(c *config) { c.opts = append(c.opts, opts...) }
}

// New creates a harness. The runtime is freed when the test ends.
func New(t testing.TB, opts ...Option) *Harness {
	t.Helper()
	cfg := config{
		container: "app",
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Harness{t: t, Sched: sched.NewManual()}
	rtOpts := append(cfg.opts,
		vdom.WithLogger(cfg.logger),
		vdom.WithScheduler(h.Sched),
		vdom.WithErrorHandler(func(err error) { h.errs = append(h.errs, err) }),
	)
	h.Runtime = vdom.NewRuntime(rtOpts...)
	h.Registry = component.NewRegistry(h.Runtime)
	h.Doc = memhost.New(memhost.WithLogger(cfg.logger), memhost.WithSelectorCache(h.Runtime.Selectors()))
	h.Root = h.Runtime.Bind(h.Doc, h.Doc.NewContainer(cfg.container))

	t.Cleanup(func() {
		h.Registry.Close()
		h.Runtime.Free()
	})
	return h
}

// Define registers a component definition, failing the test on error.
func (h *Harness) Define(name string, cfg component.Config) {
	h.t.Helper()
	if err := h.Registry.Define(name, cfg); err != nil {
		h.t.Fatalf("Define(%q): %v", name, err)
	}
}

// New instantiates a defined component, failing the test when the
// definition is missing.
func (h *Harness) New(name string, props map[string]any) *component.Component {
	h.t.Helper()
	c := h.Registry.New(name, props)
	if c == nil {
		h.t.Fatalf("New(%q): no such component", name)
	}
	return c
}

// Mount attaches c to the root, renders and runs its Mount.
func (h *Harness) Mount(c *component.Component) *component.Component {
	h.Root.MountComponent(c)
	h.Settle()
	return c
}

// Load builds the tree document at path into the root and settles.
func (h *Harness) Load(path string) *treedoc.Tree {
	h.t.Helper()
	doc, err := treedoc.Load(path)
	if err != nil {
		h.t.Fatalf("Load(%q): %v", path, err)
	}
	tree, err := doc.Build(h.Registry)
	if err != nil {
		h.t.Fatalf("Build(%q): %v", path, err)
	}
	tree.Mount(h.Root)
	h.Settle()
	return tree
}

// Append adds nodes to the root and renders.
func (h *Harness) Append(nodes ...*vdom.Node) vdom.RenderStats {
	h.Root.Append(nodes...)
	return h.Render()
}

// Render renders the root synchronously.
func (h *Harness) Render() vdom.RenderStats {
	return h.Root.Render()
}

// Settle runs every scheduled task and timer.
func (h *Harness) Settle() {
	h.Sched.Settle()
}

// Advance moves virtual time forward by d, firing due timers.
func (h *Harness) Advance(d time.Duration) {
	h.Sched.Advance(d)
}

// Click dispatches a click on the element keyed key and settles. It
// returns the number of listeners reached.
func (h *Harness) Click(key string) int {
	return h.Dispatch(key, "click", nil)
}

// Dispatch raises eventType with detail on the element keyed key and
// settles.
func (h *Harness) Dispatch(key, eventType string, detail map[string]any) int {
	h.t.Helper()
	el := h.Doc.ByKey(key)
	if el == nil {
		h.t.Errorf("dispatch %s: no element keyed %q", eventType, key)
		return 0
	}
	n := h.Doc.Dispatch(el.Handle, eventType, detail)
	h.Settle()
	return n
}

// HTML returns the root's rendered content.
func (h *Harness) HTML() string {
	return h.Doc.InnerHTML(h.Root.Element())
}

// Text returns the text content of the element keyed key, or "".
func (h *Harness) Text(key string) string {
	if el := h.Doc.ByKey(key); el != nil {
		return el.TextContent()
	}
	return ""
}

// Keys returns the keys of the elements under the root matching sel.
func (h *Harness) Keys(sel string) []string {
	var keys []string
	for _, handle := range h.Doc.Query(h.Root.Element(), sel) {
		keys = append(keys, h.Doc.Key(handle))
	}
	return keys
}

// Errors returns every error reported to the runtime.
func (h *Harness) Errors() []error { return h.errs }

// Codes returns the codes of the reported errors, in order.
func (h *Harness) Codes() []string {
	codes := make([]string, 0, len(h.errs))
	for _, err := range h.errs {
		codes = append(codes, errors.Code(err))
	}
	return codes
}

// ResetErrors forgets the reported errors.
func (h *Harness) ResetErrors() { h.errs = nil }

// ExpectNoErrors asserts that nothing was reported.
func (h *Harness) ExpectNoErrors() {
	h.t.Helper()
	for _, err := range h.errs {
		h.t.Errorf("unexpected error: %v", err)
	}
}

// ExpectCodes asserts the codes of the reported errors, in order.
func (h *Harness) ExpectCodes(want ...string) {
	h.t.Helper()
	got := h.Codes()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		h.t.Errorf("error codes = %v, want %v", got, want)
	}
}

// ExpectText asserts the text content of the element keyed key.
func (h *Harness) ExpectText(key, want string) {
	h.t.Helper()
	if h.Doc.ByKey(key) == nil {
		h.t.Errorf("no element keyed %q", key)
		return
	}
	if got := h.Text(key); got != want {
		h.t.Errorf("text of %q = %q, want %q", key, got, want)
	}
}

// ExpectAttribute asserts an attribute of the element keyed key.
func (h *Harness) ExpectAttribute(key, attr, want string) {
	h.t.Helper()
	el := h.Doc.ByKey(key)
	if el == nil {
		h.t.Errorf("no element keyed %q", key)
		return
	}
	got, ok := el.Attribute(attr)
	if !ok {
		h.t.Errorf("%q has no attribute %s", key, attr)
	} else if got != want {
		h.t.Errorf("%q %s = %q, want %q", key, attr, got, want)
	}
}

// ExpectContains asserts that the rendered HTML contains expected.
func (h *Harness) ExpectContains(expected string) {
	h.t.Helper()
	if html := h.HTML(); !strings.Contains(html, expected) {
		h.t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that the rendered HTML does not contain
// unexpected.
func (h *Harness) ExpectNotContains(unexpected string) {
	h.t.Helper()
	if html := h.HTML(); strings.Contains(html, unexpected) {
		h.t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
