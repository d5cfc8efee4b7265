package memhost

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"

	"github.com/vango-dev/vtree/pkg/host"
)

func buildList(t *testing.T, d *Document) (app, ul, a, b host.Handle) {
	t.Helper()
	app = d.NewContainer("app")
	ul = d.Create("ul")
	d.SetAttribute(ul, "class", "list")
	a = d.Create("li")
	d.SetAttribute(a, host.KeyAttr, "a")
	d.SetText(a, "One & <two>", 0)
	b = d.Create("li")
	d.SetAttribute(b, host.KeyAttr, "b")
	d.SetStyle(b, "color: red")
	d.SetText(b, "Two", 0)
	img := d.Create("img")
	d.SetAttribute(img, "alt", `x"y`)
	d.SetChildren(ul, []host.Handle{a, b, img})
	d.SetChildren(app, []host.Handle{ul})
	return app, ul, a, b
}

func TestDocument_HTMLGolden(t *testing.T) {
	d := New()
	app, _, _, _ := buildList(t, d)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "list", []byte(d.HTML(app)))
}

func TestDocument_Stats(t *testing.T) {
	var ops []string
	d := New(WithOpObserver(func(op string) { ops = append(ops, op) }))
	buildList(t, d)

	want := Stats{Creates: 4, SetAttributes: 4, SetStyles: 1, SetTexts: 2, SetChildren: 2}
	if diff := cmp.Diff(want, d.Stats()); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
	if len(ops) != 13 {
		t.Errorf("observer saw %d ops, want 13", len(ops))
	}
	d.ResetStats()
	if d.Stats() != (Stats{}) {
		t.Error("ResetStats did not zero counters")
	}
}

func TestDocument_SetChildrenMoves(t *testing.T) {
	d := New()
	_, ul, a, b := buildList(t, d)
	other := d.NewContainer("other")

	d.SetChildren(other, []host.Handle{a})
	if got := d.Children(ul); len(got) != 2 || got[0] != b {
		t.Errorf("ul children = %v, want [b img]", got)
	}
	if d.Element(a).Parent() != d.Element(other) {
		t.Error("a should be re-parented under other")
	}

	// Reorder in place.
	kids := d.Children(ul)
	d.SetChildren(ul, []host.Handle{kids[1], kids[0]})
	if got := d.Children(ul); got[1] != b {
		t.Errorf("after reorder children = %v", got)
	}
}

func TestDocument_ReplaceAndRemove(t *testing.T) {
	d := New()
	_, ul, a, b := buildList(t, d)
	before := d.Len()

	fresh := d.Create("li")
	d.SetAttribute(fresh, host.KeyAttr, "a")
	d.Replace(a, fresh)
	if d.Element(a) != nil {
		t.Error("replaced element should be destroyed")
	}
	if got := d.Children(ul)[0]; got != fresh {
		t.Errorf("first child = %v, want %v", got, fresh)
	}
	if d.Len() != before {
		t.Errorf("Len = %d, want %d", d.Len(), before)
	}

	d.Remove(ul)
	for _, h := range []host.Handle{ul, fresh, b} {
		if d.Element(h) != nil {
			t.Errorf("element %d survived removal of its ancestor", h)
		}
	}
}

func TestDocument_Query(t *testing.T) {
	d := New()
	app, ul, a, b := buildList(t, d)

	tests := []struct {
		selector string
		want     []host.Handle
	}{
		{`[data-key="b"]`, []host.Handle{b}},
		{"li", []host.Handle{a, b}},
		{".list", []host.Handle{ul}},
		{"[style*=red]", []host.Handle{b}},
		{"section", []host.Handle{}},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got := d.Query(app, tt.selector)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Query mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if el := d.ByKey("a"); el == nil || el.Handle != a {
		t.Errorf("ByKey(a) = %v", el)
	}
}

func TestDocument_DispatchResolvesNearestKey(t *testing.T) {
	d := New()
	app, _, _, b := buildList(t, d)
	icon := d.Create("i")
	d.SetChildren(b, []host.Handle{icon})

	var got []*host.Event
	d.AddEventListener(app, "click", func(ev *host.Event) { got = append(got, ev) })
	d.AddEventListener(app, "input", func(ev *host.Event) { t.Error("input listener called for click") })

	if n := d.Dispatch(icon, "click", map[string]any{"x": 1}); n != 1 {
		t.Fatalf("Dispatch called %d listeners, want 1", n)
	}
	if got[0].Key != "b" || got[0].Target != icon || got[0].Detail["x"] != 1 {
		t.Errorf("event = %+v", got[0])
	}

	if n := d.DispatchKey("a", "click"); n != 1 || got[1].Key != "a" {
		t.Errorf("DispatchKey = %d, event %+v", n, got[len(got)-1])
	}
	if n := d.DispatchKey("zzz", "click"); n != 0 {
		t.Errorf("DispatchKey(missing) = %d, want 0", n)
	}
}

func TestElement_TextPlacement(t *testing.T) {
	d := New()
	p := d.Create("p")
	first := d.Create("b")
	d.SetText(first, "1", 0)
	last := d.Create("i")
	d.SetText(last, "3", 0)
	d.SetChildren(p, []host.Handle{first, last})
	d.SetText(p, "2", 1)

	if got := d.Element(p).TextContent(); got != "123" {
		t.Errorf("TextContent = %q, want %q", got, "123")
	}
	if got := d.InnerHTML(p); got != "<b>1</b>2<i>3</i>" {
		t.Errorf("InnerHTML = %q", got)
	}
}
