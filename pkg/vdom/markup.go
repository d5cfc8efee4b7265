package vdom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/vtree/internal/errors"
)

// ParseFragment parses markup in a <body> context and returns its
// top-level nodes.
func ParseFragment(markup string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, errors.New("E008").Wrap(err)
	}
	return nodes, nil
}

// ParseMarkup builds nodes from markup. Elements become nodes with their
// attributes copied (id, class and style land in the matching Props
// fields); the direct text of an element becomes its content. Top-level
// text is dropped. No directive or placeholder is interpreted.
func (rt *Runtime) ParseMarkup(markup string) ([]*Node, error) {
	parsed, err := ParseFragment(markup)
	if err != nil {
		return nil, err
	}
	var out []*Node
	for _, h := range parsed {
		if h.Type == html.ElementNode {
			out = append(out, rt.fromHTML(h))
		}
	}
	return out, nil
}

func (rt *Runtime) fromHTML(h *html.Node) *Node {
	var props Props
	for _, a := range h.Attr {
		switch a.Key {
		case "id":
			props.ID = a.Val
		case "class":
			props.Class = a.Val
		case "style":
			props.Style = ParseStyle(a.Val)
		case "key":
			props.Key = a.Val
		default:
			if props.Attrs == nil {
				props.Attrs = map[string]any{}
			}
			props.Attrs[a.Key] = a.Val
		}
	}

	var text strings.Builder
	var children []*Node
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			text.WriteString(c.Data)
		case html.ElementNode:
			children = append(children, rt.fromHTML(c))
		}
	}
	props.Content = TrimText(text.String())
	return rt.El(h.Data, props, children...)
}

// TrimText collapses text that is only whitespace to "" and leaves other
// text as it is.
func TrimText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
