package vdom

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/host"
)

// RenderStats counts the host work of one render.
type RenderStats struct {
	Created int // elements created (subtrees count every element)
	Patched int // elements updated in place
	Moved   int // patched elements found out of position
	Removed int // elements removed (subtree roots only)
}

// renderState carries per-render bookkeeping.
type renderState struct {
	stats RenderStats

	// registered holds the keys whose handlers were (re)registered during
	// this render. Removal of a stale host element must not drop them: the
	// node may have moved to a parent processed earlier.
	registered map[string]bool
}

func newRenderState() *renderState {
	return &renderState{registered: map[string]bool{}}
}

// Render synchronizes the host children of r's element with r's top-level
// nodes.
func (r *Root) Render() RenderStats {
	return r.render("sync")
}

func (r *Root) render(mode string) RenderStats {
	if r.destroyed {
		return RenderStats{}
	}
	if r.el == 0 {
		r.rt.Report(slog.LevelDebug, errors.New("E011"), "root", r.id)
		return RenderStats{}
	}
	start := time.Now()
	_, span := r.rt.tracer.Start(context.Background(), "vdom.Root.Render",
		trace.WithAttributes(
			attribute.Int("vtree.root", r.id),
			attribute.String("vtree.mode", mode),
		),
	)
	defer span.End()

	st := newRenderState()
	r.reconcile(r.el, r.children, st)
	r.rendered = true
	r.flush()

	m := r.rt.metrics
	m.Render(mode, time.Since(start))
	m.Reconcile("create", st.stats.Created)
	m.Reconcile("patch", st.stats.Patched)
	m.Reconcile("move", st.stats.Moved)
	m.Reconcile("remove", st.stats.Removed)
	span.SetAttributes(
		attribute.Int("vtree.created", st.stats.Created),
		attribute.Int("vtree.removed", st.stats.Removed),
	)
	return st.stats
}

// reconcile makes parent's host children match nodes using a two-pointer
// keyed diff. Matched elements are patched recursively; the new child list
// is committed with one SetChildren call. Patches reach the adapter while
// the element is still attached, so a render is one unit only at the
// Flusher boundary.
func (r *Root) reconcile(parent host.Handle, nodes []*Node, st *renderState) {
	current := r.adapter.Children(parent)
	old := make([]host.Handle, len(current))
	copy(old, current)

	out := make([]host.Handle, 0, len(nodes))
	i, j := 0, 0
	for i < len(old) && j < len(nodes) {
		n := nodes[j]
		if r.adapter.Key(old[i]) == n.key {
			r.patch(old[i], n, st)
			out = append(out, old[i])
			i++
			j++
			continue
		}
		if m := r.indexOfKey(old, i+1, n.key); m >= 0 {
			h := old[m]
			old = append(old[:m], old[m+1:]...)
			if m < i {
				i--
			}
			r.patch(h, n, st)
			st.stats.Moved++
			out = append(out, h)
			j++
			continue
		}
		out = append(out, r.create(n, st))
		j++
	}
	for ; j < len(nodes); j++ {
		out = append(out, r.create(nodes[j], st))
	}

	if !sameHandles(current, out) {
		r.adapter.SetChildren(parent, out)
	}
	for ; i < len(old); i++ {
		r.releaseHost(old[i], st)
		r.adapter.Remove(old[i])
		st.stats.Removed++
	}
}

func (r *Root) indexOfKey(list []host.Handle, from int, key string) int {
	for m := from; m < len(list); m++ {
		if r.adapter.Key(list[m]) == key {
			return m
		}
	}
	return -1
}

func sameHandles(a, b []host.Handle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// patch re-applies n's presentational state to h and reconciles its
// children.
func (r *Root) patch(h host.Handle, n *Node, st *renderState) {
	r.applyProps(h, n, false, st)
	r.reconcile(h, n.children, st)
	r.adapter.SetText(h, n.Props.Content, n.textIndex())
	st.stats.Patched++
}

// create builds a fresh host subtree for n.
func (r *Root) create(n *Node, st *renderState) host.Handle {
	h := r.adapter.Create(n.Tag)
	r.applyProps(h, n, true, st)
	if len(n.children) > 0 {
		kids := make([]host.Handle, len(n.children))
		for i, c := range n.children {
			kids[i] = r.create(c, st)
		}
		r.adapter.SetChildren(h, kids)
	}
	if n.Props.Content != "" {
		r.adapter.SetText(h, n.Props.Content, n.textIndex())
	}
	st.stats.Created++
	return h
}

// applyProps writes id, class, style, key marker, attributes and handler
// registrations. On a fresh element absent values need no removal.
func (r *Root) applyProps(h host.Handle, n *Node, fresh bool, st *renderState) {
	a := r.adapter
	p := &n.Props

	setOrRemove := func(name, value string) {
		switch {
		case value != "":
			a.SetAttribute(h, name, value)
		case !fresh:
			a.RemoveAttribute(h, name)
		}
	}
	setOrRemove("id", p.ID)
	setOrRemove("class", p.Class)
	if css := p.Style.CSS(); css != "" || !fresh {
		a.SetStyle(h, css)
	}
	a.SetAttribute(h, host.KeyAttr, n.key)
	setOrRemove("key", p.Key)

	names := make([]string, 0, len(p.Attrs))
	for name := range p.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value, present := attrValue(p.Attrs[name])
		switch {
		case present:
			a.SetAttribute(h, name, value)
		case !fresh:
			a.RemoveAttribute(h, name)
		}
	}

	r.register(n)
	st.registered[n.key] = true
}

// releaseHost drops handler registrations for h and its keyed descendants,
// except keys registered earlier in the same render and keys of nodes that
// are still attached to r (a stale copy of a moved node).
func (r *Root) releaseHost(h host.Handle, st *renderState) {
	if key := r.adapter.Key(h); key != "" && !st.registered[key] && r.nodeByKey(key) == nil {
		r.unregister(key)
	}
	for _, c := range r.adapter.Children(h) {
		r.releaseHost(c, st)
	}
}
