package expr

import "strings"

// HasPlaceholders reports whether s contains at least one {{...}}
// placeholder.
func HasPlaceholders(s string) bool {
	found := false
	Interpolate(s, func(string) string {
		found = true
		return ""
	})
	return found
}

// Interpolate replaces every {{ src }} placeholder in s with fn(src), src
// trimmed of surrounding space. A placeholder body may not be empty or
// contain '}'; anything that is not a placeholder, including an
// unterminated "{{", is copied unchanged.
func Interpolate(s string, fn func(src string) string) string {
	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+2:], "}}")
		if end < 0 {
			b.WriteString(rest)
			break
		}
		body := rest[start+2 : start+2+end]
		if body == "" || strings.Contains(body, "}") {
			b.WriteString(rest[:start+2])
			rest = rest[start+2:]
			continue
		}
		b.WriteString(rest[:start])
		b.WriteString(fn(strings.TrimSpace(body)))
		rest = rest[start+2+end+2:]
	}
	return b.String()
}
