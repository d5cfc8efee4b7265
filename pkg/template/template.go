// Package template compiles markup with interpolation and directives into
// vdom nodes.
//
// Supported syntax:
//
//	{{expr}}                    interpolation in text and attribute values
//	v-if="expr"                 element omitted when expr is falsy
//	v-show="expr"               display: none when expr is falsy
//	:attr="expr"                bound attribute, omitted when falsy
//	@click="method"             event bound to a method
//	@click="method('a', 1)"     event bound with literal arguments
//	:onclick="method"           same as @click
//	ref="name"                  element reported to Context.Ref
//	<slot name="x">default</slot>
//
// Expressions are evaluated with package expr. A failing expression is
// reported with code E003 and treated as empty (interpolation) or false
// (conditions and bound attributes).
package template

import (
	stderrors "errors"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/expr"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// maxDepth bounds element nesting.
const maxDepth = 256

// Context supplies everything a render needs besides the markup.
type Context struct {
	// Scope resolves names in expressions. A nil Scope resolves nothing.
	Scope expr.Scope

	// Handler turns an event directive into a handler. A nil Handler, or a
	// nil result, leaves the event unbound.
	Handler func(method string, args []any) vdom.Handler

	// Slots maps slot names to markup. The unnamed slot is "".
	Slots map[string]string

	// Ref is called for every element carrying ref="name".
	Ref func(name string, n *vdom.Node)
}

// Template is compiled markup. It may be rendered any number of times but,
// like the rest of vtree, from one goroutine.
type Template struct {
	src   string
	nodes []*html.Node
	progs map[string]*expr.Program
}

// Compile parses src.
func Compile(src string) (*Template, error) {
	nodes, err := vdom.ParseFragment(src)
	if err != nil {
		return nil, err
	}
	return &Template{src: src, nodes: nodes, progs: map[string]*expr.Program{}}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Template {
	t, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return t
}

// Source returns the markup t was compiled from.
func (t *Template) Source() string { return t.src }

// Render builds the nodes described by t. Top-level text becomes a span.
func (t *Template) Render(rt *vdom.Runtime, ctx Context) []*vdom.Node {
	r := &renderer{t: t, rt: rt, ctx: ctx}
	return r.fragment(t.nodes, 0)
}

type renderer struct {
	t   *Template
	rt  *vdom.Runtime
	ctx Context
}

// fragment renders sibling nodes, wrapping loose text in spans.
func (r *renderer) fragment(list []*html.Node, depth int) []*vdom.Node {
	var out []*vdom.Node
	for _, h := range list {
		switch h.Type {
		case html.ElementNode:
			out = append(out, r.element(h, depth)...)
		case html.TextNode:
			if text := vdom.TrimText(r.text(h.Data)); text != "" {
				out = append(out, r.rt.El("span", vdom.Props{Content: strings.TrimSpace(text)}))
			}
		}
	}
	return out
}

func siblings(h *html.Node) []*html.Node {
	var out []*html.Node
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func (r *renderer) element(h *html.Node, depth int) []*vdom.Node {
	if depth > maxDepth {
		r.rt.Report(slog.LevelWarn, errors.New("E008").WithDetailf("elements nested deeper than %d", maxDepth))
		return nil
	}
	if h.Data == "slot" {
		return r.slot(h, depth)
	}
	if cond, ok := getAttr(h, "v-if"); ok && !r.truthy(cond) {
		return nil
	}

	var props vdom.Props
	var ref string
	hidden := false
	for _, a := range h.Attr {
		switch {
		case a.Key == "v-if":
		case a.Key == "v-show":
			hidden = !r.truthy(a.Val)
		case a.Key == "ref":
			ref = a.Val
		case strings.HasPrefix(a.Key, "@"):
			r.bindEvent(&props, a.Key[1:], a.Val)
		case strings.HasPrefix(a.Key, ":on") && len(a.Key) > 3:
			r.bindEvent(&props, a.Key[3:], a.Val)
		case strings.HasPrefix(a.Key, ":"):
			setAttr(&props, a.Key[1:], r.value(a.Val), true)
		default:
			setAttr(&props, a.Key, r.text(a.Val), false)
		}
	}
	if hidden {
		props.Style = props.Style.Merge(vdom.Style{"display": "none"})
	}

	var text strings.Builder
	var children []*vdom.Node
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			text.WriteString(r.text(c.Data))
		case html.ElementNode:
			children = append(children, r.element(c, depth+1)...)
		}
	}
	props.Content = vdom.TrimText(text.String())

	n := r.rt.El(h.Data, props, children...)
	if ref != "" && r.ctx.Ref != nil {
		r.ctx.Ref(ref, n)
	}
	return []*vdom.Node{n}
}

// slot renders the provided slot markup, or the slot's own children.
func (r *renderer) slot(h *html.Node, depth int) []*vdom.Node {
	name, _ := getAttr(h, "name")
	markup, ok := r.ctx.Slots[name]
	if !ok {
		return r.fragment(siblings(h), depth+1)
	}
	parsed, err := vdom.ParseFragment(markup)
	if err != nil {
		r.rt.Report(slog.LevelWarn, errors.FromError(err, "E008"), "slot", name)
		return nil
	}
	// Slot content belongs to the caller: it is not interpolated.
	plain := &renderer{t: r.t, rt: r.rt}
	return plain.fragment(parsed, depth+1)
}

func (r *renderer) bindEvent(props *vdom.Props, eventType, src string) {
	if r.ctx.Handler == nil {
		return
	}
	p := r.compile(src)
	if p == nil {
		return
	}
	var method string
	var args []any
	if name, a, ok := p.IsCall(); ok {
		method, args = name, a
	} else if parts, ok := p.IsPath(); ok && len(parts) == 1 {
		method = parts[0]
	} else {
		r.rt.Report(slog.LevelWarn, errors.New("E003").WithDetailf("event %q: %q is not a method reference", eventType, src))
		return
	}
	h := r.ctx.Handler(method, args)
	if h == nil {
		return
	}
	if props.On == nil {
		props.On = map[string]vdom.Handler{}
	}
	props.On[strings.ToLower(eventType)] = h
}

// setAttr stores an attribute. Bound values that are falsy are omitted.
func setAttr(props *vdom.Props, name string, v any, bound bool) {
	if bound && !expr.Truthy(v) {
		return
	}
	s := expr.ToString(v)
	switch name {
	case "id":
		props.ID = s
	case "class":
		props.Class = strings.TrimSpace(props.Class + " " + s)
	case "style":
		props.Style = props.Style.Merge(vdom.ParseStyle(s))
	case "key":
		props.Key = s
	default:
		if props.Attrs == nil {
			props.Attrs = map[string]any{}
		}
		if b, ok := v.(bool); ok && b {
			props.Attrs[name] = true
			return
		}
		props.Attrs[name] = s
	}
}

// text interpolates s.
func (r *renderer) text(s string) string {
	if r.ctx.Scope == nil || !expr.HasPlaceholders(s) {
		return s
	}
	return expr.Interpolate(s, func(src string) string {
		return expr.ToString(r.value(src))
	})
}

func (r *renderer) truthy(src string) bool {
	return expr.Truthy(r.value(src))
}

// value evaluates src. Failures are reported and yield nil.
func (r *renderer) value(src string) any {
	p := r.compile(src)
	if p == nil {
		return nil
	}
	scope := r.ctx.Scope
	if scope == nil {
		scope = expr.Map{}
	}
	v, err := p.Eval(scope)
	if err != nil {
		level := slog.LevelWarn
		if stderrors.Is(err, expr.ErrUndefined) {
			level = slog.LevelDebug
		}
		r.rt.Report(level, errors.New("E003").Wrap(err), "expression", src)
		return nil
	}
	return v
}

func (r *renderer) compile(src string) *expr.Program {
	if p, ok := r.t.progs[src]; ok {
		return p
	}
	p, err := expr.Compile(src)
	if err != nil {
		r.rt.Report(slog.LevelWarn, errors.New("E003").Wrap(err), "expression", src)
		return nil
	}
	r.t.progs[src] = p
	return p
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
