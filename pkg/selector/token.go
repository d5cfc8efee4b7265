package selector

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenTag tokenKind = iota
	tokenID
	tokenClass
	tokenAttribute
	tokenPseudo
	tokenCombinator
)

type token struct {
	kind  tokenKind
	value string
	attr  Attribute
}

// scanner walks a selector once, left to right. Nesting state is explicit:
// inside brackets, parentheses or quotes, combinator characters are data.
type scanner struct {
	src      string
	pos      int
	tokens   []token
	problems []string
}

func tokenize(src string) ([]token, []string) {
	s := &scanner{src: src}
	s.run()
	return s.tokens, s.problems
}

func (s *scanner) problem(format string, args ...any) {
	s.problems = append(s.problems, fmt.Sprintf(format, args...))
}

func (s *scanner) peek() (rune, int) {
	if s.pos >= len(s.src) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(s.src[s.pos:])
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		r, size := s.peek()
		switch {
		case isSpace(r):
			s.pos += size
			s.combinator(' ')
		case r == '>' || r == '+' || r == '~' || r == ',':
			s.pos += size
			s.combinator(r)
		case r == '#':
			s.pos += size
			if id := s.ident(); id != "" {
				s.emit(token{kind: tokenID, value: id})
			} else {
				s.problem("empty id at offset %d", s.pos)
			}
		case r == '.':
			s.pos += size
			if class := s.ident(); class != "" {
				s.emit(token{kind: tokenClass, value: class})
			} else {
				s.problem("empty class at offset %d", s.pos)
			}
		case r == '[':
			s.pos += size
			s.attribute()
		case r == ':':
			s.pseudo()
		case r == '*':
			s.pos += size
			s.emit(token{kind: tokenTag, value: "*"})
		case isIdentStart(r) || r == '\\':
			s.emit(token{kind: tokenTag, value: s.ident()})
		default:
			s.problem("unexpected %q at offset %d", r, s.pos)
			s.pos += size
		}
	}
}

func (s *scanner) emit(t token) {
	s.tokens = append(s.tokens, t)
}

// combinator records a separator. Whitespace around an explicit
// combinator collapses into it.
func (s *scanner) combinator(r rune) {
	n := len(s.tokens)
	if n == 0 {
		if r != ' ' {
			s.problem("leading combinator %q", r)
		}
		return
	}
	last := &s.tokens[n-1]
	if last.kind == tokenCombinator {
		if r == ' ' {
			return
		}
		if last.value != " " {
			s.problem("consecutive combinators %q and %q", last.value, r)
		}
		last.value = string(r)
		return
	}
	s.emit(token{kind: tokenCombinator, value: string(r)})
}

// ident reads identifier characters, decoding backslash escapes.
func (s *scanner) ident() string {
	var b strings.Builder
	for s.pos < len(s.src) {
		r, size := s.peek()
		if r == '\\' {
			s.pos += size
			if s.pos >= len(s.src) {
				s.problem("dangling escape at end of input")
				break
			}
			b.WriteRune(s.escape())
			continue
		}
		if !isIdentChar(r) {
			break
		}
		b.WriteRune(r)
		s.pos += size
	}
	return b.String()
}

// escape decodes the character(s) after a backslash: up to six hex digits
// (plus one optional trailing space) or a single literal character.
// The caller guarantees input remains.
func (s *scanner) escape() rune {
	start := s.pos
	for s.pos < len(s.src) && s.pos-start < 6 && isHex(s.src[s.pos]) {
		s.pos++
	}
	if s.pos > start {
		n, _ := strconv.ParseUint(s.src[start:s.pos], 16, 32)
		if s.pos < len(s.src) && isSpace(rune(s.src[s.pos])) {
			s.pos++
		}
		if n == 0 || n > utf8.MaxRune || (n >= 0xD800 && n <= 0xDFFF) {
			return utf8.RuneError
		}
		return rune(n)
	}
	r, size := s.peek()
	s.pos += size
	return r
}

// bracketed returns the raw text up to the matching close rune, honouring
// quotes and escapes. Unterminated input is closed at end of input.
func (s *scanner) bracketed(open, close rune) string {
	var b strings.Builder
	depth := 1
	var quote rune
	for s.pos < len(s.src) {
		r, size := s.peek()
		s.pos += size
		switch {
		case r == '\\':
			b.WriteRune(r)
			if s.pos < len(s.src) {
				next, n := s.peek()
				b.WriteRune(next)
				s.pos += n
			}
			continue
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == open:
			depth++
		case r == close:
			depth--
			if depth == 0 {
				return b.String()
			}
		}
		b.WriteRune(r)
	}
	if quote != 0 {
		s.problem("unterminated quote")
	}
	s.problem("unterminated %q", open)
	return b.String()
}

func (s *scanner) attribute() {
	raw := s.bracketed('[', ']')
	attr, ok := parseAttribute(raw)
	if !ok {
		s.problem("malformed attribute selector [%s]", raw)
		return
	}
	s.emit(token{kind: tokenAttribute, attr: attr})
}

func (s *scanner) pseudo() {
	var b strings.Builder
	for s.pos < len(s.src) && s.src[s.pos] == ':' {
		b.WriteByte(':')
		s.pos++
	}
	name := s.ident()
	if name == "" {
		s.problem("empty pseudo marker at offset %d", s.pos)
		return
	}
	b.WriteString(name)
	if r, size := s.peek(); r == '(' {
		s.pos += size
		b.WriteByte('(')
		b.WriteString(s.bracketed('(', ')'))
		b.WriteByte(')')
	}
	s.emit(token{kind: tokenPseudo, value: b.String()})
}

// parseAttribute splits the inside of [...] into name, operator and value.
func parseAttribute(raw string) (Attribute, bool) {
	sub := &scanner{src: strings.TrimSpace(raw)}
	name := sub.ident()
	if name == "" {
		return Attribute{}, false
	}
	rest := strings.TrimLeft(sub.src[sub.pos:], " \t\n\r\f")
	if rest == "" {
		return Attribute{Name: name}, true
	}

	var op string
	switch {
	case rest[0] == '=':
		op = "="
	case len(rest) >= 2 && rest[1] == '=' && strings.ContainsRune("~|^$*", rune(rest[0])):
		op = rest[:2]
	default:
		return Attribute{}, false
	}

	value := strings.TrimSpace(rest[len(op):])
	if len(value) > 0 && (value[0] == '"' || value[0] == '\'') {
		q := value[0]
		end := closingQuote(value, q)
		if end < 0 {
			value = unescape(value[1:])
		} else {
			value = unescape(value[1:end])
		}
	} else {
		// Trailing flags such as " i" are ignored.
		if i := strings.IndexAny(value, " \t\n\r\f"); i >= 0 {
			value = value[:i]
		}
		value = unescape(value)
	}
	return Attribute{Name: name, Operator: op, Value: value}, true
}

func closingQuote(s string, q byte) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case q:
			return i
		}
	}
	return -1
}

func unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	sub := &scanner{src: s}
	var b strings.Builder
	for sub.pos < len(sub.src) {
		r, size := sub.peek()
		sub.pos += size
		if r == '\\' {
			if sub.pos < len(sub.src) {
				b.WriteRune(sub.escape())
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}

func isIdentStart(r rune) bool {
	return r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r >= utf8.RuneSelf
}

func isIdentChar(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
