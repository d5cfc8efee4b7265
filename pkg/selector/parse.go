package selector

import (
	"fmt"
	"strings"

	"github.com/vango-dev/vtree/internal/errors"
)

// Attribute is one [name op value] constraint. An empty Operator means
// presence only.
type Attribute struct {
	Name     string `json:"name"`
	Operator string `json:"operator,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Compound is a run of simple selectors with no combinator between them.
// Empty fields are wildcards.
type Compound struct {
	Tag        string      `json:"tag,omitempty"`
	ID         string      `json:"id,omitempty"`
	Classes    []string    `json:"classes,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Pseudo     string      `json:"pseudo,omitempty"`
}

// IsWildcard reports whether c constrains nothing.
func (c Compound) IsWildcard() bool {
	return c.Tag == "" && c.ID == "" && len(c.Classes) == 0 && len(c.Attributes) == 0
}

// Parse parses selector into its compound selectors. It never fails:
// unreadable fragments are dropped and the rest is kept. The empty
// selector yields no compounds and so matches nothing.
func Parse(selector string) []Compound {
	compounds, _ := parse(selector)
	return compounds
}

// Check parses selector and returns an E001 error describing everything
// that had to be skipped or repaired, or nil for well-formed input.
func Check(selector string) error {
	_, problems := parse(selector)
	if len(problems) == 0 {
		return nil
	}
	return errors.New("E001").WithDetail(fmt.Sprintf("%q: %s", selector, strings.Join(problems, "; ")))
}

func parse(selector string) ([]Compound, []string) {
	tokens, problems := tokenize(selector)

	var out []Compound
	var cur Compound
	open := false
	for _, t := range tokens {
		switch t.kind {
		case tokenCombinator:
			if open {
				out = append(out, cur)
			}
			cur, open = Compound{}, false
			continue
		case tokenTag:
			if t.value != "*" {
				cur.Tag = t.value
			}
		case tokenID:
			cur.ID = t.value
		case tokenClass:
			cur.Classes = append(cur.Classes, t.value)
		case tokenAttribute:
			cur.Attributes = append(cur.Attributes, t.attr)
		case tokenPseudo:
			cur.Pseudo += t.value
		}
		open = true
	}
	if open {
		out = append(out, cur)
	}
	return out, problems
}

// String renders c back into selector syntax. Parse(c.String()) yields c.
func (c Compound) String() string {
	var b strings.Builder
	if c.Tag != "" {
		b.WriteString(escapeIdent(c.Tag))
	}
	if c.ID != "" {
		b.WriteByte('#')
		b.WriteString(escapeIdent(c.ID))
	}
	for _, class := range c.Classes {
		b.WriteByte('.')
		b.WriteString(escapeIdent(class))
	}
	for _, a := range c.Attributes {
		b.WriteByte('[')
		b.WriteString(escapeIdent(a.Name))
		if a.Operator != "" {
			b.WriteString(a.Operator)
			b.WriteByte('"')
			b.WriteString(strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(a.Value))
			b.WriteByte('"')
		}
		b.WriteByte(']')
	}
	b.WriteString(c.Pseudo)
	if b.Len() == 0 {
		return "*"
	}
	return b.String()
}

// Join renders compounds as a comma-separated selector list.
func Join(compounds []Compound) string {
	parts := make([]string, len(compounds))
	for i, c := range compounds {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func escapeIdent(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case i == 0 && r >= '0' && r <= '9':
			fmt.Fprintf(&b, "\\%x ", r)
		case isIdentChar(r):
			b.WriteRune(r)
		case isHex(byte(r)) || isSpace(r):
			fmt.Fprintf(&b, "\\%x ", r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
