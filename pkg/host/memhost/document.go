package memhost

import (
	"log/slog"

	"github.com/vango-dev/vtree/pkg/host"
	"github.com/vango-dev/vtree/pkg/selector"
)

// Op names reported to an OpObserver.
const (
	OpCreate          = "create"
	OpSetAttribute    = "set_attribute"
	OpRemoveAttribute = "remove_attribute"
	OpSetStyle        = "set_style"
	OpSetText         = "set_text"
	OpSetChildren     = "set_children"
	OpReplace         = "replace"
	OpRemove          = "remove"
	OpListen          = "listen"
)

// Stats counts the primitives a Document has received.
type Stats struct {
	Creates          int
	SetAttributes    int
	RemoveAttributes int
	SetStyles        int
	SetTexts         int
	SetChildren      int
	Replaces         int
	Removes          int
	Listens          int
}

// OpObserver is notified of every primitive, typically to feed metrics.
type OpObserver func(op string)

// Option configures a Document.
type Option func(*Document)

// WithOpObserver sets a hook called once per primitive.
func WithOpObserver(fn OpObserver) Option {
	return func(d *Document) { d.observer = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// WithSelectorCache sets the cache used by Query.
func WithSelectorCache(c *selector.Cache) Option {
	return func(d *Document) { d.selectors = c }
}

type listener struct {
	eventType string
	dispatch  host.DispatchFunc
}

// Document is an in-memory host tree rooted at a <body> element.
type Document struct {
	next      host.Handle
	elements  map[host.Handle]*Element
	body      *Element
	listeners map[host.Handle][]listener
	stats     Stats

	selectors *selector.Cache
	observer  OpObserver
	logger    *slog.Logger
}

var _ host.Adapter = (*Document)(nil)

// New creates an empty document.
func New(opts ...Option) *Document {
	d := &Document{
		elements:  make(map[host.Handle]*Element),
		listeners: make(map[host.Handle][]listener),
		logger:    slog.Default().With("component", "memhost"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.selectors == nil {
		d.selectors = selector.NewCache(256)
	}
	d.body = d.newElement("body")
	return d
}

func (d *Document) newElement(tag string) *Element {
	d.next++
	el := &Element{Handle: d.next, Tag: tag, Attrs: make(map[string]string)}
	d.elements[el.Handle] = el
	return el
}

func (d *Document) record(op string, counter *int) {
	*counter++
	if d.observer != nil {
		d.observer(op)
	}
}

// Body returns the handle of the document's <body>.
func (d *Document) Body() host.Handle { return d.body.Handle }

// Element returns the live element for h, or nil.
func (d *Document) Element(h host.Handle) *Element { return d.elements[h] }

// Len returns the number of live elements, body included.
func (d *Document) Len() int { return len(d.elements) }

// Stats returns the primitive counters.
func (d *Document) Stats() Stats { return d.stats }

// ResetStats zeroes the primitive counters.
func (d *Document) ResetStats() { d.stats = Stats{} }

// NewContainer creates a <div id=id> appended to body, ready to bind a
// root to. It is not counted in Stats.
func (d *Document) NewContainer(id string) host.Handle {
	el := d.newElement("div")
	if id != "" {
		el.Attrs["id"] = id
	}
	el.parent = d.body
	d.body.children = append(d.body.children, el)
	return el.Handle
}

// Create implements host.Adapter.
func (d *Document) Create(tag string) host.Handle {
	d.record(OpCreate, &d.stats.Creates)
	return d.newElement(tag).Handle
}

// SetAttribute implements host.Adapter.
func (d *Document) SetAttribute(h host.Handle, name, value string) {
	el := d.elements[h]
	if el == nil {
		return
	}
	d.record(OpSetAttribute, &d.stats.SetAttributes)
	if name == "style" {
		el.Style = value
		return
	}
	el.Attrs[name] = value
}

// RemoveAttribute implements host.Adapter.
func (d *Document) RemoveAttribute(h host.Handle, name string) {
	el := d.elements[h]
	if el == nil {
		return
	}
	d.record(OpRemoveAttribute, &d.stats.RemoveAttributes)
	if name == "style" {
		el.Style = ""
		return
	}
	delete(el.Attrs, name)
}

// SetStyle implements host.Adapter.
func (d *Document) SetStyle(h host.Handle, css string) {
	el := d.elements[h]
	if el == nil {
		return
	}
	d.record(OpSetStyle, &d.stats.SetStyles)
	el.Style = css
}

// SetText implements host.Adapter.
func (d *Document) SetText(h host.Handle, text string, at int) {
	el := d.elements[h]
	if el == nil {
		return
	}
	d.record(OpSetText, &d.stats.SetTexts)
	if at < 0 {
		at = 0
	}
	el.Text, el.TextAt = text, at
}

// SetChildren implements host.Adapter.
func (d *Document) SetChildren(h host.Handle, children []host.Handle) {
	el := d.elements[h]
	if el == nil {
		return
	}
	d.record(OpSetChildren, &d.stats.SetChildren)

	next := make([]*Element, 0, len(children))
	for _, ch := range children {
		c := d.elements[ch]
		if c == nil || c == el {
			d.logger.Debug("set children: skipping unknown handle", "parent", h, "child", ch)
			continue
		}
		if c.parent != el {
			c.detach()
		}
		next = append(next, c)
	}
	for _, old := range el.children {
		old.parent = nil
	}
	for _, c := range next {
		c.parent = el
	}
	el.children = next
}

// Children implements host.Adapter.
func (d *Document) Children(h host.Handle) []host.Handle {
	el := d.elements[h]
	if el == nil {
		return nil
	}
	out := make([]host.Handle, len(el.children))
	for i, c := range el.children {
		out[i] = c.Handle
	}
	return out
}

// Key implements host.Adapter.
func (d *Document) Key(h host.Handle) string {
	if el := d.elements[h]; el != nil {
		return el.Key()
	}
	return ""
}

// Replace implements host.Adapter.
func (d *Document) Replace(old, next host.Handle) {
	o, n := d.elements[old], d.elements[next]
	if o == nil || n == nil || o == n {
		return
	}
	d.record(OpReplace, &d.stats.Replaces)
	n.detach()
	if p := o.parent; p != nil {
		if i := p.indexOf(o); i >= 0 {
			p.children[i] = n
			n.parent = p
			o.parent = nil
		}
	}
	d.destroy(o)
}

// Remove implements host.Adapter.
func (d *Document) Remove(h host.Handle) {
	el := d.elements[h]
	if el == nil || el == d.body {
		return
	}
	d.record(OpRemove, &d.stats.Removes)
	el.detach()
	d.destroy(el)
}

func (d *Document) destroy(el *Element) {
	for _, c := range el.children {
		c.parent = nil
		d.destroy(c)
	}
	el.children = nil
	delete(d.elements, el.Handle)
	delete(d.listeners, el.Handle)
}

// Query implements host.Adapter.
func (d *Document) Query(root host.Handle, sel string) []host.Handle {
	el := d.elements[root]
	if el == nil {
		return nil
	}
	found := selector.Find(el.children, d.selectors.Parse(sel), (*Element).Children)
	out := make([]host.Handle, len(found))
	for i, f := range found {
		out[i] = f.Handle
	}
	return out
}

// Find returns the elements anywhere in the document matching sel.
func (d *Document) Find(sel string) []*Element {
	return selector.Find(d.body.children, d.selectors.Parse(sel), (*Element).Children)
}

// ByKey returns the attached element whose key marker is key, or nil.
func (d *Document) ByKey(key string) *Element {
	found := d.Find("[" + host.KeyAttr + `="` + escapeSelectorValue(key) + `"]`)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

// AddEventListener implements host.Adapter.
func (d *Document) AddEventListener(root host.Handle, eventType string, dispatch host.DispatchFunc) {
	if d.elements[root] == nil {
		return
	}
	d.record(OpListen, &d.stats.Listens)
	d.listeners[root] = append(d.listeners[root], listener{eventType: eventType, dispatch: dispatch})
}

// Dispatch simulates an event raised on target. The event bubbles from
// target to body; every listener registered on an element along the way
// for eventType is called. It returns the number of listeners called.
func (d *Document) Dispatch(target host.Handle, eventType string, detail map[string]any) int {
	el := d.elements[target]
	if el == nil {
		return 0
	}
	ev := &host.Event{Type: eventType, Target: target, Detail: detail}
	if keyed := el.closest(); keyed != nil {
		ev.Key = keyed.Key()
	}

	called := 0
	for cur := el; cur != nil; cur = cur.parent {
		for _, l := range d.listeners[cur.Handle] {
			if l.eventType == eventType {
				l.dispatch(ev)
				called++
			}
		}
	}
	return called
}

// DispatchKey raises eventType on the element whose key marker is key.
func (d *Document) DispatchKey(key, eventType string) int {
	el := d.ByKey(key)
	if el == nil {
		return 0
	}
	return d.Dispatch(el.Handle, eventType, nil)
}
