package selector

import "strings"

// Element is anything a selector can be matched against. Both virtual
// nodes and host elements implement it.
type Element interface {
	// TagName returns the element tag.
	TagName() string
	// ElementID returns the id, or "" when the element has none.
	ElementID() string
	// HasClass reports whether the class list contains name.
	HasClass(name string) bool
	// Attribute returns the attribute value and whether it is present.
	Attribute(name string) (string, bool)
}

// Match reports whether el satisfies every constraint in c.
func Match(el Element, c Compound) bool {
	if c.Tag != "" && !strings.EqualFold(el.TagName(), c.Tag) {
		return false
	}
	if c.ID != "" && el.ElementID() != c.ID {
		return false
	}
	for _, class := range c.Classes {
		if !el.HasClass(class) {
			return false
		}
	}
	for _, a := range c.Attributes {
		v, ok := el.Attribute(a.Name)
		if !ok || !matchAttribute(v, a.Operator, a.Value) {
			return false
		}
	}
	return true
}

// MatchAny reports whether el matches at least one compound.
func MatchAny(el Element, compounds []Compound) bool {
	for _, c := range compounds {
		if Match(el, c) {
			return true
		}
	}
	return false
}

func matchAttribute(actual, op, want string) bool {
	switch op {
	case "":
		return true
	case "=":
		return actual == want
	case "~=":
		if want == "" {
			return false
		}
		for _, f := range strings.Fields(actual) {
			if f == want {
				return true
			}
		}
		return false
	case "|=":
		return actual == want || strings.HasPrefix(actual, want+"-")
	case "^=":
		return want != "" && strings.HasPrefix(actual, want)
	case "$=":
		return want != "" && strings.HasSuffix(actual, want)
	case "*=":
		return want != "" && strings.Contains(actual, want)
	}
	return false
}

// Find walks roots depth-first in pre-order and returns every element that
// matches any compound, in document order.
func Find[E Element](roots []E, compounds []Compound, children func(E) []E) []E {
	if len(compounds) == 0 {
		return nil
	}
	var out []E
	var walk func(E)
	walk = func(el E) {
		if MatchAny(el, compounds) {
			out = append(out, el)
		}
		for _, child := range children(el) {
			walk(child)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return out
}
