package selector

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/vtree/internal/errors"
)

type testElement struct {
	tag      string
	id       string
	classes  []string
	attrs    map[string]string
	children []*testElement
}

func (e *testElement) TagName() string   { return e.tag }
func (e *testElement) ElementID() string { return e.id }
func (e *testElement) HasClass(name string) bool {
	for _, c := range e.classes {
		if c == name {
			return true
		}
	}
	return false
}
func (e *testElement) Attribute(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		want     []Compound
	}{
		{"tag", "div", []Compound{{Tag: "div"}}},
		{"id and classes", "li#first.a.b", []Compound{{Tag: "li", ID: "first", Classes: []string{"a", "b"}}}},
		{"wildcard", "*", []Compound{{}}},
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{
			"attribute operators",
			`[data-x][data-y="a b"][data-z^='pre']`,
			[]Compound{{Attributes: []Attribute{
				{Name: "data-x"},
				{Name: "data-y", Operator: "=", Value: "a b"},
				{Name: "data-z", Operator: "^=", Value: "pre"},
			}}},
		},
		{
			"all operators",
			"[a~=1][b|=2][c$=3][d*=4]",
			[]Compound{{Attributes: []Attribute{
				{Name: "a", Operator: "~=", Value: "1"},
				{Name: "b", Operator: "|=", Value: "2"},
				{Name: "c", Operator: "$=", Value: "3"},
				{Name: "d", Operator: "*=", Value: "4"},
			}}},
		},
		{
			"combinators split compounds",
			"ul > li.item + span ~ em, b",
			[]Compound{{Tag: "ul"}, {Tag: "li", Classes: []string{"item"}}, {Tag: "span"}, {Tag: "em"}, {Tag: "b"}},
		},
		{
			"combinator characters inside brackets are data",
			`a[title="x > y, z"]`,
			[]Compound{{Tag: "a", Attributes: []Attribute{{Name: "title", Operator: "=", Value: "x > y, z"}}}},
		},
		{
			"pseudo with arguments",
			"li:nth-child(2 + 1)",
			[]Compound{{Tag: "li", Pseudo: ":nth-child(2 + 1)"}},
		},
		{
			"double colon pseudo",
			"p::before",
			[]Compound{{Tag: "p", Pseudo: "::before"}},
		},
		{
			"escaped class",
			`.a\:b.c\31 0`,
			[]Compound{{Classes: []string{"a:b", "c10"}}},
		},
		{
			"escaped quote in value",
			`[title="say \"hi\""]`,
			[]Compound{{Attributes: []Attribute{{Name: "title", Operator: "=", Value: `say "hi"`}}}},
		},
		{
			"unterminated attribute closed at end",
			`div[data-key="k1`,
			[]Compound{{Tag: "div", Attributes: []Attribute{{Name: "data-key", Operator: "=", Value: "k1"}}}},
		},
		{
			"unknown characters skipped",
			"div!.a",
			[]Compound{{Tag: "div", Classes: []string{"a"}}},
		},
		{
			"malformed attribute dropped",
			"div[=x].a",
			[]Compound{{Tag: "div", Classes: []string{"a"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.selector)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.selector, diff)
			}
		})
	}
}

func TestParse_Deterministic(t *testing.T) {
	selectors := []string{
		`ul.list > li[data-key="k1"]:hover`,
		`#app .item, [role|=button]`,
		`div[unterminated`,
	}
	for _, sel := range selectors {
		if diff := cmp.Diff(Parse(sel), Parse(sel)); diff != "" {
			t.Errorf("Parse(%q) not deterministic:\n%s", sel, diff)
		}
	}
}

func TestCompoundString_RoundTrip(t *testing.T) {
	compounds := []Compound{
		{Tag: "div"},
		{},
		{Tag: "li", ID: "x y", Classes: []string{"a:b", "1st"}},
		{Attributes: []Attribute{{Name: "data-key"}, {Name: "title", Operator: "*=", Value: `q"uo\te`}}},
		{Tag: "a", Pseudo: ":hover"},
	}
	for _, c := range compounds {
		s := c.String()
		got := Parse(s)
		if diff := cmp.Diff([]Compound{c}, got); diff != "" {
			t.Errorf("Parse(%q) mismatch (-want +got):\n%s", s, diff)
		}
	}
}

func TestCheck(t *testing.T) {
	if err := Check("div.a > [data-x=\"1\"]"); err != nil {
		t.Errorf("Check(valid) = %v, want nil", err)
	}
	for _, sel := range []string{"div[", "!", "> a", "a > > b", "#", `.a\`} {
		err := Check(sel)
		if errors.Code(err) != "E001" {
			t.Errorf("Check(%q) = %v, want E001", sel, err)
		}
	}
}

func TestMatch_Table(t *testing.T) {
	el := &testElement{
		tag:     "DIV",
		classes: []string{"a", "b"},
		attrs:   map[string]string{"data-x": "foo-bar", "rel": "nofollow noopener"},
	}

	tests := []struct {
		selector string
		want     bool
	}{
		{".a.b", true},
		{".a.c", false},
		{"div", true},
		{"span", false},
		{"[data-x^=foo]", true},
		{"[data-x$=zzz]", false},
		{"[data-x$=bar]", true},
		{"[data-x|=foo]", true},
		{"[data-x|=fo]", false},
		{"[data-x*=o-b]", true},
		{"[data-x=foo-bar]", true},
		{"[data-x=foo]", false},
		{"[rel~=noopener]", true},
		{"[rel~=noop]", false},
		{"[data-x]", true},
		{"[data-y]", false},
		{"[data-x^='']", false},
		{"#missing", false},
		{"*", true},
		{"div:hover", true},
		{"span, .b", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			if got := MatchAny(el, Parse(tt.selector)); got != tt.want {
				t.Errorf("MatchAny(%q) = %v, want %v", tt.selector, got, tt.want)
			}
		})
	}
}

func TestFind_DocumentOrder(t *testing.T) {
	leaf := func(tag, id string, classes ...string) *testElement {
		return &testElement{tag: tag, id: id, classes: classes}
	}
	tree := []*testElement{
		{tag: "ul", id: "r1", classes: []string{"x"}, children: []*testElement{
			leaf("li", "a", "x"),
			{tag: "li", id: "b", children: []*testElement{leaf("span", "c", "x")}},
		}},
		leaf("p", "d", "x"),
	}

	got := Find(tree, Parse(".x"), func(e *testElement) []*testElement { return e.children })
	var ids []string
	for _, e := range got {
		ids = append(ids, e.id)
	}
	if diff := cmp.Diff([]string{"r1", "a", "c", "d"}, ids); diff != "" {
		t.Errorf("Find order mismatch (-want +got):\n%s", diff)
	}
}

type countingObserver struct {
	hits, misses, evictions int
}

func (o *countingObserver) CacheLookup(hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}
func (o *countingObserver) CacheEviction() { o.evictions++ }

func TestCache_HitEqualsFreshParse(t *testing.T) {
	c := NewCache(10)
	sel := `li.item[data-key="k2"]`
	first := c.Parse(sel)
	second := c.Parse(sel)
	if diff := cmp.Diff(Parse(sel), second); diff != "" {
		t.Errorf("cache hit differs from fresh parse:\n%s", diff)
	}
	if &first[0] != &second[0] {
		t.Error("cache hit should return the memoized slice")
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Size != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestCache_FIFOEviction(t *testing.T) {
	obs := &countingObserver{}
	c := NewCache(2, WithObserver(obs))
	c.Parse("a")
	c.Parse("b")
	c.Parse("a") // hit: does not promote "a"
	c.Parse("c") // evicts "a", the oldest insertion

	st := c.Stats()
	if diff := cmp.Diff([]string{"b", "c"}, st.Keys); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	if st.Evictions != 1 || obs.evictions != 1 {
		t.Errorf("Evictions = %d (observer %d), want 1", st.Evictions, obs.evictions)
	}
	if obs.hits != 1 || obs.misses != 3 {
		t.Errorf("observer hits=%d misses=%d, want 1 and 3", obs.hits, obs.misses)
	}
}

func TestCache_ClearAndZeroCapacity(t *testing.T) {
	c := NewCache(4)
	c.Parse("a")
	c.Parse("b")
	c.Clear()
	if st := c.Stats(); st.Size != 0 || len(st.Keys) != 0 {
		t.Errorf("after Clear Stats = %+v", st)
	}

	z := NewCache(0)
	z.Parse("a")
	z.Parse("a")
	if st := z.Stats(); st.Size != 0 || st.Misses != 2 {
		t.Errorf("zero-capacity Stats = %+v", st)
	}
}

func TestCache_LogsMalformed(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := NewCache(4, WithLogger(logger))
	c.Parse("div[oops")
	if !strings.Contains(buf.String(), "code=E001") {
		t.Errorf("expected E001 debug log, got %q", buf.String())
	}
}
