package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// maxDepth bounds nesting so hostile input cannot exhaust the stack.
const maxDepth = 64

// SyntaxError reports a compile failure.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("expr: %s at offset %d", e.Msg, e.Pos)
}

type node interface {
	String() string
}

type literal struct{ value any }

type path struct{ parts []string }

type call struct {
	name string
	args []any
}

type unary struct {
	op string
	x  node
}

type binary struct {
	op   string
	l, r node
}

func (n literal) String() string {
	switch v := n.value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprint(n.value)
}

func (n path) String() string { return strings.Join(n.parts, ".") }

func (n call) String() string {
	args := make([]string, len(n.args))
	for i, a := range n.args {
		args[i] = literal{a}.String()
	}
	return n.name + "(" + strings.Join(args, ", ") + ")"
}

func (n unary) String() string  { return n.op + n.x.String() }
func (n binary) String() string { return "(" + n.l.String() + " " + n.op + " " + n.r.String() + ")" }

type parser struct {
	toks  []token
	pos   int
	depth int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			return op, true
		}
	}
	return "", false
}

func (p *parser) expect(op string) error {
	t := p.next()
	if t.kind != tokOp || t.text != op {
		return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("expected %q, found %s", op, t)}
	}
	return nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return &SyntaxError{Pos: p.peek().pos, Msg: "expression nested too deeply"}
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) parseBinary(level int) (node, error) {
	levels := [][]string{
		{"||"},
		{"&&"},
		{"==", "!=", "===", "!=="},
		{"<", "<=", ">", ">="},
	}
	if level == len(levels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.isOp(levels[level]...)
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = binary{op: op, l: left, r: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if op, ok := p.isOp("!", "-"); ok {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := x.(literal); ok && op == "-" {
			if f, ok := lit.value.(float64); ok {
				return literal{-f}, nil
			}
		}
		return unary{op: op, x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return literal{t.num}, nil
	case tokString:
		return literal{t.text}, nil
	case tokIdent:
		switch t.text {
		case "true":
			return literal{true}, nil
		case "false":
			return literal{false}, nil
		case "null", "undefined":
			return literal{nil}, nil
		}
		if _, ok := p.isOp("("); ok {
			return p.parseCall(t.text)
		}
		parts := []string{t.text}
		for {
			if _, ok := p.isOp("."); !ok {
				break
			}
			p.next()
			id := p.next()
			if id.kind != tokIdent {
				return nil, &SyntaxError{Pos: id.pos, Msg: fmt.Sprintf("expected property name, found %s", id)}
			}
			parts = append(parts, id.text)
		}
		if _, ok := p.isOp("("); ok {
			return nil, &SyntaxError{Pos: p.peek().pos, Msg: "only plain names can be called"}
		}
		return path{parts: parts}, nil
	case tokOp:
		if t.text == "(" {
			if err := p.enter(); err != nil {
				return nil, err
			}
			defer p.leave()
			x, err := p.parseBinary(0)
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
	}
	return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", t)}
}

func (p *parser) parseCall(name string) (node, error) {
	p.next() // (
	c := call{name: name}
	if _, ok := p.isOp(")"); ok {
		p.next()
		return c, nil
	}
	for {
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lit, ok := arg.(literal)
		if !ok {
			return nil, &SyntaxError{Pos: p.peek().pos, Msg: fmt.Sprintf("argument %d of %s must be a literal", len(c.args)+1, name)}
		}
		c.args = append(c.args, lit.value)
		if _, ok := p.isOp(","); ok {
			p.next()
			continue
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return c, nil
	}
}
