package memhost

import (
	"strings"

	"github.com/vango-dev/vtree/pkg/host"
)

// Element is one node of a Document.
type Element struct {
	Handle host.Handle
	Tag    string
	Attrs  map[string]string
	Style  string

	// Text is the element's own text, placed before child TextAt.
	Text   string
	TextAt int

	children []*Element
	parent   *Element
}

// Children returns the element's children.
func (e *Element) Children() []*Element { return e.children }

// Parent returns the parent element, or nil when detached.
func (e *Element) Parent() *Element { return e.parent }

// TagName implements selector.Element.
func (e *Element) TagName() string { return e.Tag }

// ElementID implements selector.Element.
func (e *Element) ElementID() string { return e.Attrs["id"] }

// HasClass implements selector.Element.
func (e *Element) HasClass(name string) bool {
	for _, c := range strings.Fields(e.Attrs["class"]) {
		if c == name {
			return true
		}
	}
	return false
}

// Attribute implements selector.Element. The inline style is exposed as
// the "style" attribute.
func (e *Element) Attribute(name string) (string, bool) {
	if name == "style" {
		return e.Style, e.Style != ""
	}
	v, ok := e.Attrs[name]
	return v, ok
}

// Key returns the element's key marker.
func (e *Element) Key() string { return e.Attrs[host.KeyAttr] }

// TextContent returns the concatenated text of e and its descendants in
// document order.
func (e *Element) TextContent() string {
	var b strings.Builder
	e.writeText(&b)
	return b.String()
}

func (e *Element) writeText(b *strings.Builder) {
	for i, c := range e.children {
		if i == e.TextAt {
			b.WriteString(e.Text)
		}
		c.writeText(b)
	}
	if e.TextAt >= len(e.children) {
		b.WriteString(e.Text)
	}
}

// closest returns the nearest ancestor-or-self carrying a key marker.
func (e *Element) closest() *Element {
	for el := e; el != nil; el = el.parent {
		if _, ok := el.Attrs[host.KeyAttr]; ok {
			return el
		}
	}
	return nil
}

func (e *Element) indexOf(child *Element) int {
	for i, c := range e.children {
		if c == child {
			return i
		}
	}
	return -1
}

func (e *Element) detach() {
	p := e.parent
	if p == nil {
		return
	}
	if i := p.indexOf(e); i >= 0 {
		p.children = append(p.children[:i:i], p.children[i+1:]...)
	}
	e.parent = nil
}
