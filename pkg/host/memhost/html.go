package memhost

import (
	"io"
	"sort"
	"strings"

	"github.com/vango-dev/vtree/pkg/host"
)

// voidElements are elements that cannot have children and have no closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;",
	)
	attrEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;",
		"\n", "&#10;", "\r", "&#13;", "\t", "&#9;",
	)
	selectorValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
)

func escapeSelectorValue(s string) string {
	return selectorValueEscaper.Replace(s)
}

// HTML serializes the subtree at h. Attributes are sorted by name so the
// output is deterministic.
func (d *Document) HTML(h host.Handle) string {
	el := d.elements[h]
	if el == nil {
		return ""
	}
	var b strings.Builder
	writeElement(&b, el)
	return b.String()
}

// InnerHTML serializes the children and text of h without h itself.
func (d *Document) InnerHTML(h host.Handle) string {
	el := d.elements[h]
	if el == nil {
		return ""
	}
	var b strings.Builder
	writeContent(&b, el)
	return b.String()
}

// WriteHTML writes the serialized body to w.
func (d *Document) WriteHTML(w io.Writer) error {
	_, err := io.WriteString(w, d.HTML(d.body.Handle))
	return err
}

func writeElement(b *strings.Builder, el *Element) {
	b.WriteByte('<')
	b.WriteString(el.Tag)

	names := make([]string, 0, len(el.Attrs)+1)
	for name := range el.Attrs {
		names = append(names, name)
	}
	if el.Style != "" {
		names = append(names, "style")
	}
	sort.Strings(names)
	for _, name := range names {
		value := el.Attrs[name]
		if name == "style" {
			value = el.Style
		}
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(value))
		b.WriteByte('"')
	}
	b.WriteByte('>')

	if voidElements[el.Tag] {
		return
	}
	writeContent(b, el)
	b.WriteString("</")
	b.WriteString(el.Tag)
	b.WriteByte('>')
}

func writeContent(b *strings.Builder, el *Element) {
	for i, c := range el.children {
		if i == el.TextAt && el.Text != "" {
			b.WriteString(textEscaper.Replace(el.Text))
		}
		writeElement(b, c)
	}
	if el.TextAt >= len(el.children) && el.Text != "" {
		b.WriteString(textEscaper.Replace(el.Text))
	}
}
