package vdom

import (
	"log/slog"
	"runtime/debug"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/host"
)

// Root binds a list of top-level nodes to one host element.
type Root struct {
	rt      *Runtime
	id      int
	adapter host.Adapter
	el      host.Handle
	logger  *slog.Logger

	children  []*Node
	handlers  map[string]map[string]func(*host.Event)
	listening map[string]bool

	rendered  bool
	pending   bool
	cancel    func()
	destroyed bool
}

// ID returns the root's runtime-unique id.
func (r *Root) ID() int { return r.id }

// Runtime returns the runtime that created r.
func (r *Root) Runtime() *Runtime { return r.rt }

// Adapter returns the host adapter r renders into.
func (r *Root) Adapter() host.Adapter { return r.adapter }

// Element returns the host element r renders into.
func (r *Root) Element() host.Handle { return r.el }

// Children returns the top-level nodes. The slice must not be modified.
func (r *Root) Children() []*Node { return r.children }

// Destroyed reports whether Destroy has been called.
func (r *Root) Destroyed() bool { return r.destroyed }

// Append adds nodes at the end of the top-level list. It does not render.
func (r *Root) Append(nodes ...*Node) *Root {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		n.detach()
		n.prepended = false
		n.adopt(r)
		r.children = append(r.children, n)
	}
	return r
}

// Prepend inserts nodes, in order, before the top-level list. It does not
// render.
func (r *Root) Prepend(nodes ...*Node) *Root {
	head := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		n.detach()
		n.prepended = true
		n.adopt(r)
		head = append(head, n)
	}
	r.children = append(head, r.children...)
	return r
}

// Off removes handlers for eventTypes (all handlers when none are given)
// from every top-level node and renders.
func (r *Root) Off(eventTypes ...string) *Root {
	for _, n := range r.children {
		n.Off(eventTypes...)
	}
	r.Render()
	return r
}

// Find queries the host tree under r and returns the virtual nodes of the
// matching elements.
func (r *Root) Find(sel string) *Collection {
	if r.el == 0 {
		return &Collection{}
	}
	var nodes []*Node
	seen := map[*Node]bool{}
	for _, h := range r.adapter.Query(r.el, sel) {
		n := r.nodeByKey(r.adapter.Key(h))
		if n == nil || seen[n] {
			continue
		}
		seen[n] = true
		nodes = append(nodes, n)
	}
	return &Collection{nodes: nodes}
}

// NodeByKey returns the attached node keyed key, or nil.
func (r *Root) NodeByKey(key string) *Node { return r.nodeByKey(key) }

func (r *Root) nodeByKey(key string) *Node {
	if key == "" {
		return nil
	}
	var found *Node
	for _, n := range r.children {
		n.walk(func(x *Node) bool {
			if x.key == key {
				found = x
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// RenderAsync requests a render. Requests made before the frame interval
// elapses collapse into one.
func (r *Root) RenderAsync() {
	if r.pending || r.destroyed {
		return
	}
	r.pending = true
	r.cancel = r.rt.sched.After(r.rt.frameInterval, func() {
		r.pending = false
		r.cancel = nil
		if r.destroyed {
			return
		}
		r.render("async")
	})
}

// Pending reports whether an async render is scheduled.
func (r *Root) Pending() bool { return r.pending }

// MountComponent appends m's node, renders, and schedules m.Mount after the
// runtime's mount delay.
func (r *Root) MountComponent(m Mountable) *Root {
	r.Append(m.Node())
	r.Render()
	r.rt.sched.After(r.rt.mountDelay, m.Mount)
	return r
}

// Destroy drops every handler registration, cancels a pending render and
// detaches r from its runtime. Host elements are left as they are.
func (r *Root) Destroy() {
	if r.destroyed {
		return
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.pending = false
	r.handlers = map[string]map[string]func(*host.Event){}
	r.destroyed = true
	r.rt.forget(r)
}

// Remove removes every top-level node (cascading to their subtrees), every
// host child of r's element and every handler registration.
func (r *Root) Remove() {
	for _, n := range r.children {
		n.parent = nil
		n.release()
	}
	r.children = nil
	r.clearHost()
	r.handlers = map[string]map[string]func(*host.Event){}
}

// Clear empties the host element and forgets the top-level list without
// touching the removed nodes.
func (r *Root) Clear() {
	for _, n := range r.children {
		n.adopt(nil)
	}
	r.children = nil
	r.clearHost()
	r.handlers = map[string]map[string]func(*host.Event){}
}

func (r *Root) clearHost() {
	if r.el == 0 {
		return
	}
	for _, h := range r.adapter.Children(r.el) {
		r.adapter.Remove(h)
	}
	r.flush()
}

// register replaces n's handler set with its current Props.On.
func (r *Root) register(n *Node) {
	if len(n.Props.On) == 0 {
		delete(r.handlers, n.key)
		return
	}
	set := make(map[string]func(*host.Event), len(n.Props.On))
	for eventType, h := range n.Props.On {
		if h == nil {
			continue
		}
		set[eventType] = h.resolve(n)
		r.listen(eventType)
	}
	r.handlers[n.key] = set
}

func (r *Root) unregister(key string) {
	delete(r.handlers, key)
}

// Handlers reports the event types registered for key.
func (r *Root) Handlers(key string) []string {
	set := r.handlers[key]
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}

func (r *Root) listen(eventType string) {
	if r.listening[eventType] || r.el == 0 {
		return
	}
	r.listening[eventType] = true
	r.adapter.AddEventListener(r.el, eventType, r.dispatch)
}

// dispatch routes a host event to the handler registered for its key.
func (r *Root) dispatch(ev *host.Event) {
	if r.destroyed || ev == nil || ev.Key == "" {
		return
	}
	fn := r.handlers[ev.Key][ev.Type]
	if fn == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.rt.metrics.CallbackFailure("listener")
			r.rt.Report(slog.LevelError, errors.FromPanic("E004", rec),
				"event", ev.Type,
				"key", ev.Key,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn(ev)
}

func (r *Root) flush() {
	f, ok := r.adapter.(host.Flusher)
	if !ok {
		return
	}
	if err := f.Flush(); err != nil {
		r.logger.Error("flush failed", "error", err)
	}
}
