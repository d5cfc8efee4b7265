package expr

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUndefined is returned when an expression reads a name the scope does
// not define, or reads a property of a nil value.
var ErrUndefined = errors.New("expr: undefined")

// Scope resolves names and calls for an evaluation.
type Scope interface {
	// Lookup returns the value bound to name.
	Lookup(name string) (any, bool)

	// Call invokes the named function with literal arguments.
	Call(name string, args []any) (any, error)
}

// Map is a Scope backed by a map. Values of type func(...any) any or
// func(...any) (any, error) are callable.
type Map map[string]any

// Lookup implements Scope.
func (m Map) Lookup(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Call implements Scope.
func (m Map) Call(name string, args []any) (any, error) {
	switch fn := m[name].(type) {
	case func(...any) any:
		return fn(args...), nil
	case func(...any) (any, error):
		return fn(args...)
	case nil:
		return nil, fmt.Errorf("%w: function %q", ErrUndefined, name)
	default:
		return nil, fmt.Errorf("expr: %q is not callable", name)
	}
}

// Program is a compiled expression. It is immutable and may be evaluated
// any number of times.
type Program struct {
	src  string
	root node
}

// Compile parses src.
func Compile(src string) (*Program, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", t)}
	}
	return &Program{src: src, root: root}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Program {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the text the program was compiled from.
func (p *Program) Source() string { return p.src }

// String returns a fully parenthesized rendering of the program.
func (p *Program) String() string { return p.root.String() }

// Eval evaluates the program against scope.
func (p *Program) Eval(scope Scope) (any, error) {
	return eval(p.root, scope)
}

// Eval compiles and evaluates src in one step.
func Eval(src string, scope Scope) (any, error) {
	p, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return p.Eval(scope)
}

// IsCall reports whether the program is a single call and returns its
// name and arguments.
func (p *Program) IsCall() (name string, args []any, ok bool) {
	c, ok := p.root.(call)
	if !ok {
		return "", nil, false
	}
	return c.name, c.args, true
}

// IsPath reports whether the program is a single property path.
func (p *Program) IsPath() ([]string, bool) {
	n, ok := p.root.(path)
	if !ok {
		return nil, false
	}
	return n.parts, true
}

func eval(n node, scope Scope) (any, error) {
	switch n := n.(type) {
	case literal:
		return n.value, nil
	case path:
		return evalPath(n.parts, scope)
	case call:
		return scope.Call(n.name, n.args)
	case unary:
		x, err := eval(n.x, scope)
		if err != nil {
			return nil, err
		}
		if n.op == "!" {
			return !Truthy(x), nil
		}
		f, ok := toNumber(x)
		if !ok {
			return math.NaN(), nil
		}
		return -f, nil
	case binary:
		l, err := eval(n.l, scope)
		if err != nil {
			return nil, err
		}
		switch n.op {
		case "&&":
			if !Truthy(l) {
				return l, nil
			}
			return eval(n.r, scope)
		case "||":
			if Truthy(l) {
				return l, nil
			}
			return eval(n.r, scope)
		}
		r, err := eval(n.r, scope)
		if err != nil {
			return nil, err
		}
		return compare(n.op, l, r), nil
	}
	return nil, fmt.Errorf("expr: unknown node %T", n)
}

func evalPath(parts []string, scope Scope) (any, error) {
	v, ok := scope.Lookup(parts[0])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUndefined, parts[0])
	}
	for i, name := range parts[1:] {
		if v == nil {
			return nil, fmt.Errorf("%w: cannot read %q of %s", ErrUndefined, name, strings.Join(parts[:i+1], "."))
		}
		v = property(v, name)
	}
	return v, nil
}

// property reads name from v. Missing properties read as nil.
func property(v any, name string) any {
	if m, ok := v.(map[string]any); ok {
		return m[name]
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		if name == "length" {
			return float64(rv.Len())
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil
		}
		return mv.Interface()
	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() {
			f = rv.FieldByName(exported(name))
		}
		if !f.IsValid() || !f.CanInterface() {
			return nil
		}
		return f.Interface()
	case reflect.Slice, reflect.Array:
		if name == "length" {
			return float64(rv.Len())
		}
	case reflect.String:
		if name == "length" {
			return float64(utf8.RuneCountInString(rv.String()))
		}
	}
	return nil
}

func exported(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

// Truthy reports whether v counts as true in a condition: nil, false, zero,
// NaN and "" are false; everything else is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if f, ok := numeric(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

// numeric converts Go numeric types to float64.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

// toNumber applies loose numeric coercion: numbers, numeric strings and
// booleans convert.
func toNumber(v any) (float64, bool) {
	if f, ok := numeric(v); ok {
		return f, true
	}
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// StrictEqual compares without coercion; all Go numeric types compare as
// numbers.
func StrictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, aNum := numeric(a)
	fb, bNum := numeric(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	// Maps, slices and funcs compare by identity.
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return va.Pointer() == vb.Pointer()
	}
	return false
}

// LooseEqual compares with number/string/bool coercion.
func LooseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if StrictEqual(a, b) {
		return true
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aStr && bStr {
		return false
	}
	fa, okA := toNumber(a)
	fb, okB := toNumber(b)
	return okA && okB && fa == fb
}

func compare(op string, l, r any) bool {
	switch op {
	case "==":
		return LooseEqual(l, r)
	case "!=":
		return !LooseEqual(l, r)
	case "===":
		return StrictEqual(l, r)
	case "!==":
		return !StrictEqual(l, r)
	}

	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			switch op {
			case "<":
				return ls < rs
			case "<=":
				return ls <= rs
			case ">":
				return ls > rs
			case ">=":
				return ls >= rs
			}
		}
	}
	lf, okL := toNumber(l)
	rf, okR := toNumber(r)
	if !okL || !okR {
		return false
	}
	switch op {
	case "<":
		return lf < rf
	case "<=":
		return lf <= rf
	case ">":
		return lf > rf
	case ">=":
		return lf >= rf
	}
	return false
}

// ToString renders a value the way interpolation shows it: nil as "",
// whole floats without a fraction.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
