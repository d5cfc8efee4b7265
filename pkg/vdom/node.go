package vdom

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/host"
	"github.com/vango-dev/vtree/pkg/selector"
)

// Node is an element of the virtual tree.
//
// Nodes are created by Runtime.El, Runtime.Clone and the template
// compiler. Mutation methods return the node so calls can be chained.
type Node struct {
	Tag   string
	Props Props

	key       string
	rt        *Runtime
	root      *Root
	parent    *Node
	children  []*Node
	prepended bool
	removed   bool
}

var _ selector.Element = (*Node)(nil)

// Key returns the node's diff identity.
func (n *Node) Key() string { return n.key }

// Runtime returns the runtime that created n.
func (n *Node) Runtime() *Runtime { return n.rt }

// Root returns the root n is attached under, or nil.
func (n *Node) Root() *Root { return n.root }

// Parent returns the parent node, or nil for detached nodes and direct
// children of a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the ordered child list. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Removed reports whether Remove has been called on n or an ancestor.
func (n *Node) Removed() bool { return n.removed }

// TagName implements selector.Element.
func (n *Node) TagName() string { return n.Tag }

// ElementID implements selector.Element.
func (n *Node) ElementID() string { return n.Props.ID }

// HasClass implements selector.Element.
func (n *Node) HasClass(name string) bool {
	for _, c := range strings.Fields(n.Props.Class) {
		if c == name {
			return true
		}
	}
	return false
}

// Attribute implements selector.Element. It reports the attributes n
// renders to the host, including the key marker.
func (n *Node) Attribute(name string) (string, bool) {
	switch name {
	case "id":
		return n.Props.ID, n.Props.ID != ""
	case "class":
		return n.Props.Class, n.Props.Class != ""
	case "style":
		css := n.Props.Style.CSS()
		return css, css != ""
	case "key":
		return n.Props.Key, n.Props.Key != ""
	case host.KeyAttr:
		return n.key, true
	}
	v, ok := n.Props.Attrs[name]
	if !ok {
		return "", false
	}
	return attrValue(v)
}

// adopt points n and its subtree at root. A node entering root whose key
// is already taken there, or earlier in the same subtree, gets a generated
// key; its Props.Key is still rendered as the plain key attribute.
func (n *Node) adopt(root *Root) {
	n.adoptInto(root, map[string]bool{})
}

func (n *Node) adoptInto(root *Root, seen map[string]bool) {
	if root != nil && n.root != root && (seen[n.key] || root.nodeByKey(n.key) != nil) {
		n.key = n.rt.keys.Next()
	}
	seen[n.key] = true
	n.root = root
	n.removed = false
	for _, c := range n.children {
		c.adoptInto(root, seen)
	}
}

// detach unlinks n from its parent or root without releasing anything.
func (n *Node) detach() {
	switch {
	case n.parent != nil:
		n.parent.children = without(n.parent.children, n)
	case n.root != nil:
		n.root.children = without(n.root.children, n)
	}
	n.parent = nil
}

func without(list []*Node, n *Node) []*Node {
	for i, c := range list {
		if c == n {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// rendered reports whether n's root has a host tree to update.
func (n *Node) rendered() bool {
	return n.root != nil && n.root.rendered && !n.removed
}

// Append adds children at the end of n's child list, moving them from
// wherever they were. A node that is already rendered is updated.
func (n *Node) Append(children ...*Node) *Node {
	var moved []staleHost
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		moved = n.noteMove(moved, c)
		c.detach()
		c.parent = n
		c.prepended = false
		c.adopt(n.root)
		n.children = append(n.children, c)
	}
	dropStale(moved)
	if n.rendered() {
		n.Update()
	}
	return n
}

// staleHost is the host element a moved node leaves behind in its former
// parent.
type staleHost struct {
	root *Root
	h    host.Handle
}

// noteMove records c's current host element when moving c under n would
// leave it rendered under another parent.
func (n *Node) noteMove(list []staleHost, c *Node) []staleHost {
	if c.parent == n || !c.rendered() {
		return list
	}
	if h, ok := c.HostElement(); ok {
		list = append(list, staleHost{root: c.root, h: h})
	}
	return list
}

// dropStale removes the recorded host elements. Handlers of nodes that are
// still attached survive the removal.
func dropStale(list []staleHost) {
	for _, s := range list {
		if s.root.adapter.Key(s.h) == "" {
			continue
		}
		s.root.releaseHost(s.h, newRenderState())
		s.root.adapter.Remove(s.h)
		s.root.flush()
	}
}

// Prepend inserts children, in order, before n's existing children. Text
// content is rendered after prepended children.
func (n *Node) Prepend(children ...*Node) *Node {
	head := make([]*Node, 0, len(children))
	var moved []staleHost
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		moved = n.noteMove(moved, c)
		c.detach()
		c.parent = n
		c.prepended = true
		c.adopt(n.root)
		head = append(head, c)
	}
	n.children = append(head, n.children...)
	dropStale(moved)
	if n.rendered() {
		n.Update()
	}
	return n
}

// SetChildren replaces n's child list. Previous children that are not in
// the new list are removed (releasing their handlers). A rendered node is
// updated.
func (n *Node) SetChildren(children ...*Node) *Node {
	keep := make(map[*Node]bool, len(children))
	for _, c := range children {
		if c != nil {
			keep[c] = true
		}
	}
	for _, old := range n.children {
		if !keep[old] {
			old.parent = nil
			old.release()
		}
	}
	n.children = nil
	var moved []staleHost
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		if c.parent != n {
			moved = n.noteMove(moved, c)
			c.detach()
		}
		c.parent = n
		c.prepended = false
		c.adopt(n.root)
		n.children = append(n.children, c)
	}
	dropStale(moved)
	if n.rendered() {
		n.Update()
	}
	return n
}

// Css merges style declarations into n's style. It accepts a Style, a
// map[string]string, a map[string]any or a "a: b; c: d" string; kebab-case
// property names are stored in camelCase.
func (n *Node) Css(style any) *Node {
	n.Props.Style = n.Props.Style.Merge(toStyle(style))
	return n
}

// Attr sets one attribute. A nil or false value removes it on the next
// render.
func (n *Node) Attr(name string, value any) *Node {
	switch name {
	case "id":
		n.Props.ID = propToString(value)
	case "class":
		n.Props.Class = propToString(value)
	case "style":
		n.Props.Style = toStyle(value)
	default:
		if n.Props.Attrs == nil {
			n.Props.Attrs = map[string]any{}
		}
		n.Props.Attrs[name] = value
	}
	return n
}

// Attrs sets several attributes.
func (n *Node) Attrs(attrs map[string]any) *Node {
	for k, v := range attrs {
		n.Attr(k, v)
	}
	return n
}

// RemoveAttr removes an attribute on the next render.
func (n *Node) RemoveAttr(name string) *Node {
	return n.Attr(name, nil)
}

// AddClass adds a class if it is not present yet.
func (n *Node) AddClass(name string) *Node {
	if name == "" || n.HasClass(name) {
		return n
	}
	n.Props.Class = strings.TrimSpace(n.Props.Class + " " + name)
	return n
}

// RemoveClass removes every occurrence of a class.
func (n *Node) RemoveClass(name string) *Node {
	fields := strings.Fields(n.Props.Class)
	kept := fields[:0]
	for _, c := range fields {
		if c != name {
			kept = append(kept, c)
		}
	}
	n.Props.Class = strings.Join(kept, " ")
	return n
}

// Text sets the node's own text content.
func (n *Node) Text(s string) *Node {
	n.Props.Content = s
	return n
}

// HTML sets the node's content. Markup is not interpreted; use
// Runtime.ParseMarkup to build nodes from markup.
func (n *Node) HTML(s string) *Node {
	return n.Text(s)
}

// On sets the handler for an event type. On a rendered node the handler is
// live immediately.
func (n *Node) On(eventType string, h Handler) *Node {
	if h == nil {
		return n.Off(eventType)
	}
	if n.Props.On == nil {
		n.Props.On = map[string]Handler{}
	}
	n.Props.On[eventType] = h
	if n.root != nil && !n.removed {
		n.root.register(n)
	}
	return n
}

// Off removes handlers. With no arguments every handler is removed.
func (n *Node) Off(eventTypes ...string) *Node {
	if len(eventTypes) == 0 {
		n.Props.On = nil
	}
	for _, t := range eventTypes {
		delete(n.Props.On, t)
	}
	if n.root != nil && !n.removed {
		n.root.register(n)
	}
	return n
}

// Find returns n's descendants matching sel, in document order.
func (n *Node) Find(sel string) *Collection {
	compounds := n.rt.selectors.Parse(sel)
	return &Collection{nodes: selector.Find(n.children, compounds, (*Node).Children)}
}

// HostElement returns the host element currently rendered for n.
func (n *Node) HostElement() (host.Handle, bool) {
	if n.root == nil || n.root.el == 0 || n.removed {
		return 0, false
	}
	found := n.root.adapter.Query(n.root.el, keySelector(n.key))
	if len(found) == 0 {
		return 0, false
	}
	return found[0], true
}

// Update rebuilds n's host subtree from the virtual subtree and swaps it
// in place of the current one. Nodes that were never rendered are skipped.
func (n *Node) Update() *Node {
	r := n.root
	if r == nil || n.removed {
		return n
	}
	start := time.Now()
	_, span := n.rt.tracer.Start(context.Background(), "vdom.Node.Update",
		trace.WithAttributes(
			attribute.String("vtree.key", n.key),
			attribute.String("vtree.tag", n.Tag),
		),
	)
	defer span.End()

	old, ok := n.HostElement()
	if !ok {
		n.rt.Report(slog.LevelDebug, errors.New("E010").WithDetailf("no host element keyed %q", n.key))
		return n
	}

	st := newRenderState()
	r.releaseHost(old, st)
	next := r.create(n, st)
	r.adapter.Replace(old, next)
	r.flush()

	n.rt.metrics.Render("update", time.Since(start))
	n.rt.metrics.Reconcile("create", st.stats.Created)
	return n
}

// Remove detaches n and releases the handler registrations of its whole
// subtree. The host element disappears on the next render of the root or
// update of the former parent.
func (n *Node) Remove() *Node {
	if n.removed {
		return n
	}
	n.detach()
	n.release()
	return n
}

// Destroy removes n's host element right away and then behaves like
// Remove.
func (n *Node) Destroy() *Node {
	if h, ok := n.HostElement(); ok {
		r := n.root
		r.releaseHost(h, newRenderState())
		r.adapter.Remove(h)
		r.flush()
	}
	return n.Remove()
}

// release cascades removal through the subtree.
func (n *Node) release() {
	for _, c := range n.children {
		c.parent = nil
		c.release()
	}
	n.children = nil
	if n.root != nil {
		n.root.unregister(n.key)
	}
	n.root = nil
	n.removed = true
}

// Clear removes every child of n and its text, in the virtual tree and, if
// rendered, in the host tree.
func (n *Node) Clear() *Node {
	for _, c := range n.children {
		c.parent = nil
		c.release()
	}
	n.children = nil
	n.Props.Content = ""
	if h, ok := n.HostElement(); ok {
		for _, c := range n.root.adapter.Children(h) {
			n.root.adapter.Remove(c)
		}
		n.root.adapter.SetText(h, "", 0)
		n.root.flush()
	}
	return n
}

// MountComponent appends m's node to n and schedules m.Mount after the
// runtime's mount delay, so the host element exists by the time it runs.
func (n *Node) MountComponent(m Mountable) *Node {
	n.Append(m.Node())
	n.rt.sched.After(n.rt.mountDelay, m.Mount)
	return n
}

// Mountable is implemented by components that need to learn when their
// node has reached the host tree.
type Mountable interface {
	Node() *Node
	Mount()
}

// textIndex is the child position n's content is rendered before.
func (n *Node) textIndex() int {
	i := 0
	for i < len(n.children) && n.children[i].prepended {
		i++
	}
	return i
}

// walk calls fn for n and every descendant in pre-order until fn returns
// false.
func (n *Node) walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}
