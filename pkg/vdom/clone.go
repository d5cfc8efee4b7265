package vdom

import (
	stderrors "errors"
	"log/slog"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/expr"
)

// CloneFunc computes a placeholder value for the clone at index.
type CloneFunc func(n *Node, index int) any

// CloneOptions describes the nodes built by Runtime.Clone.
type CloneOptions struct {
	// Tag of every clone; "div" when empty.
	Tag string

	// Props copied into every clone. String fields, style values and
	// string attribute values may contain placeholders. Props.Key is
	// ignored: every clone gets a fresh key.
	Props Props

	// Children are deep-copied into every clone, placeholders resolved.
	Children []*Node

	// Content is added after Children. A string containing markup is
	// parsed into child nodes; other strings become text. A *Node or
	// []*Node is deep-copied.
	Content any

	// Templates resolves placeholders. {{name}} and {{a.b}} read values
	// (nested maps and struct fields), {{name()}} calls a CloneFunc with
	// the clone being built and its index.
	Templates map[string]any
}

// Clones is the result of Runtime.Clone.
type Clones struct {
	nodes []*Node
}

// Clone builds count nodes from opts.
func (rt *Runtime) Clone(opts CloneOptions, count int) *Clones {
	out := &Clones{nodes: make([]*Node, 0, max(count, 0))}
	for i := 0; i < count; i++ {
		n := rt.El(opts.Tag, Props{})
		c := cloner{rt: rt, templates: opts.Templates, node: n, index: i}
		n.Props = c.props(opts.Props)
		for _, child := range opts.Children {
			n.Append(c.copy(child))
		}
		c.content(opts.Content)
		out.nodes = append(out.nodes, n)
	}
	return out
}

// Nodes returns the clones.
func (c *Clones) Nodes() []*Node { return c.nodes }

// Len returns the number of clones.
func (c *Clones) Len() int { return len(c.nodes) }

// AppendTo appends every clone to r.
func (c *Clones) AppendTo(r *Root) *Clones {
	r.Append(c.nodes...)
	return c
}

// Update updates every clone.
func (c *Clones) Update() *Clones {
	for _, n := range c.nodes {
		n.Update()
	}
	return c
}

// Find searches the subtrees of every clone.
func (c *Clones) Find(sel string) *Collection {
	var nodes []*Node
	for _, n := range c.nodes {
		nodes = append(nodes, n.Find(sel).nodes...)
	}
	return &Collection{nodes: nodes}
}

// Remove removes every clone.
func (c *Clones) Remove() *Clones {
	for _, n := range c.nodes {
		n.Remove()
	}
	c.nodes = nil
	return c
}

// cloner builds one clone.
type cloner struct {
	rt        *Runtime
	templates map[string]any
	node      *Node
	index     int
}

func (c *cloner) props(p Props) Props {
	out := p.clone()
	out.Key = ""
	out.ID = c.text(out.ID)
	out.Class = c.text(out.Class)
	out.Content = c.text(out.Content)
	for k, v := range out.Style {
		out.Style[k] = c.text(v)
	}
	for k, v := range out.Attrs {
		if s, ok := v.(string); ok {
			out.Attrs[k] = c.text(s)
		}
	}
	return out
}

func (c *cloner) copy(src *Node) *Node {
	n := c.rt.El(src.Tag, c.props(src.Props))
	n.prepended = src.prepended
	for _, child := range src.children {
		cc := c.copy(child)
		cc.parent = n
		n.children = append(n.children, cc)
	}
	return n
}

func (c *cloner) content(v any) {
	switch content := v.(type) {
	case nil:
	case string:
		if !looksLikeMarkup(content) {
			c.node.Props.Content = c.text(content)
			return
		}
		nodes, err := c.rt.ParseMarkup(c.text(content))
		if err != nil {
			c.rt.Report(slog.LevelWarn, errors.FromError(err, "E008"))
			c.node.Props.Content = content
			return
		}
		for _, n := range nodes {
			plainKeys(n)
		}
		c.node.Append(nodes...)
	case *Node:
		c.node.Append(c.copy(content))
	case []*Node:
		for _, n := range content {
			c.node.Append(c.copy(n))
		}
	default:
		c.node.Props.Content = propToString(content)
	}
}

// plainKeys turns key attributes of parsed markup into ordinary attributes
// and gives the nodes generated keys, so every clone stays distinct.
func plainKeys(n *Node) {
	if n.Props.Key != "" {
		if n.Props.Attrs == nil {
			n.Props.Attrs = map[string]any{}
		}
		n.Props.Attrs["key"] = n.Props.Key
		n.Props.Key = ""
		n.key = n.rt.keys.Next()
	}
	for _, c := range n.children {
		plainKeys(c)
	}
}

// text resolves the placeholders of s. Undefined values become "";
// expressions that fail otherwise are left as written.
func (c *cloner) text(s string) string {
	if c.templates == nil || !expr.HasPlaceholders(s) {
		return s
	}
	return expr.Interpolate(s, func(src string) string {
		v, err := expr.Eval(src, c)
		switch {
		case err == nil:
			return expr.ToString(v)
		case stderrors.Is(err, expr.ErrUndefined):
			return ""
		default:
			c.rt.Report(slog.LevelWarn, errors.New("E003").Wrap(err), "expression", src)
			return "{{" + src + "}}"
		}
	})
}

// Lookup implements expr.Scope.
func (c *cloner) Lookup(name string) (any, bool) {
	v, ok := c.templates[name]
	return v, ok
}

// Call implements expr.Scope.
func (c *cloner) Call(name string, _ []any) (any, error) {
	switch fn := c.templates[name].(type) {
	case CloneFunc:
		return fn(c.node, c.index), nil
	case func(*Node, int) any:
		return fn(c.node, c.index), nil
	}
	return nil, expr.ErrUndefined
}

// looksLikeMarkup reports whether s contains a '<' directly followed by a
// letter and a later '>'.
func looksLikeMarkup(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] != '<' {
			continue
		}
		ch := s[i+1] | 0x20
		if ch >= 'a' && ch <= 'z' {
			for j := i + 2; j < len(s); j++ {
				if s[j] == '>' {
					return true
				}
			}
		}
	}
	return false
}
