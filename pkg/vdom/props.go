package vdom

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Props is the property bag of a Node.
type Props struct {
	// ID and Class map to the id and class attributes. Empty removes them.
	ID    string
	Class string

	// Content is the element's own text. It is placed after prepended
	// children and before appended ones.
	Content string

	// Style holds inline style declarations keyed by camelCase property.
	Style Style

	// Attrs are extra attributes. A nil or false value removes the
	// attribute from the host element.
	Attrs map[string]any

	// Key, when set, is used as the node's key and is also rendered as a
	// key attribute.
	Key string

	// On maps event types ("click") to handlers.
	On map[string]Handler
}

// clone returns a copy of p whose maps are not shared with p.
func (p Props) clone() Props {
	out := p
	if p.Style != nil {
		out.Style = make(Style, len(p.Style))
		for k, v := range p.Style {
			out.Style[k] = v
		}
	}
	if p.Attrs != nil {
		out.Attrs = make(map[string]any, len(p.Attrs))
		for k, v := range p.Attrs {
			out.Attrs[k] = v
		}
	}
	if p.On != nil {
		out.On = make(map[string]Handler, len(p.On))
		for k, v := range p.On {
			out.On[k] = v
		}
	}
	return out
}

// Style maps camelCase CSS properties ("backgroundColor") to values.
type Style map[string]string

// ParseStyle reads "a: b; c-d: e" declarations into a Style. Malformed
// declarations are skipped.
func ParseStyle(css string) Style {
	s := Style{}
	for _, decl := range strings.Split(css, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if name == "" {
			continue
		}
		s[camelCase(name)] = value
	}
	return s
}

// Merge copies every declaration of other into s. An empty value deletes
// the property.
func (s Style) Merge(other Style) Style {
	if s == nil {
		s = Style{}
	}
	for k, v := range other {
		k = camelCase(k)
		if v == "" {
			delete(s, k)
			continue
		}
		s[k] = v
	}
	return s
}

// CSS renders s as inline style text with kebab-case properties in sorted
// order.
func (s Style) CSS() string {
	if len(s) == 0 {
		return ""
	}
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(kebabCase(k))
		b.WriteString(": ")
		b.WriteString(s[k])
	}
	return b.String()
}

// toStyle converts the values accepted by Node.Css.
func toStyle(v any) Style {
	switch s := v.(type) {
	case Style:
		return s
	case map[string]string:
		return Style(s)
	case map[string]any:
		out := make(Style, len(s))
		for k, val := range s {
			if val == nil {
				out[k] = ""
				continue
			}
			out[k] = propToString(val)
		}
		return out
	case string:
		return ParseStyle(s)
	default:
		return nil
	}
}

func camelCase(s string) string {
	if !strings.Contains(s, "-") {
		return s
	}
	parts := strings.Split(s, "-")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

func kebabCase(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// attrValue reports the host attribute value for v and whether the
// attribute should be present at all.
func attrValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case bool:
		if !val {
			return "", false
		}
		return "", true
	default:
		return propToString(v), true
	}
}

// propToString converts an attribute value to its host representation.
func propToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
