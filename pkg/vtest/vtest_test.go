package vtest_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/vtree/pkg/component"
	"github.com/vango-dev/vtree/pkg/vdom"
	"github.com/vango-dev/vtree/pkg/vtest"
)

func defineCounter(h *vtest.Harness) {
	h.Define("counter", component.Config{
		Template: `<button key="inc" @click="inc">{{n}}</button>`,
		Props:    map[string]any{"n": 0},
		Methods: map[string]component.Method{
			"inc": func(c *component.Component, _ ...any) any {
				return c.SetProps(map[string]any{"n": c.Prop("n").(int) + 1})
			},
		},
	})
}

func TestHarness_Component(t *testing.T) {
	h := vtest.New(t)
	defineCounter(h)
	c := h.Mount(h.New("counter", nil))

	if c.State() != component.StateMounted {
		t.Errorf("State = %v, want mounted", c.State())
	}
	h.ExpectText("inc", "0")
	if n := h.Click("inc"); n != 1 {
		t.Errorf("Click reached %d listeners, want 1", n)
	}
	h.Click("inc")
	h.ExpectText("inc", "2")
	h.ExpectContains(">2</button>")
	h.ExpectNoErrors()
}

func TestHarness_Nodes(t *testing.T) {
	h := vtest.New(t, vtest.WithContainer("main"))
	stats := h.Append(
		h.Runtime.El("p", vdom.Props{Key: "a", Class: "x", Content: "one"}),
		h.Runtime.El("p", vdom.Props{Key: "b", Content: "two"}),
	)
	if stats.Created != 2 {
		t.Errorf("Created = %d, want 2", stats.Created)
	}
	if diff := cmp.Diff([]string{"a"}, h.Keys("p.x")); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	h.ExpectAttribute("a", "class", "x")
	h.ExpectNotContains("three")
	if h.Root.Element() != h.Doc.Find("#main")[0].Handle {
		t.Error("root is not bound to #main")
	}
}

func TestHarness_Codes(t *testing.T) {
	h := vtest.New(t)
	defineCounter(h)
	c := h.Mount(h.New("counter", nil))
	c.Delegate("missing")
	c.Unmount()
	c.SetProps(map[string]any{"n": 5})

	h.ExpectCodes("E006", "E007")
	if len(h.Errors()) != 2 {
		t.Errorf("Errors = %v", h.Errors())
	}
	h.ResetErrors()
	h.ExpectNoErrors()
}

func TestHarness_MountDelay(t *testing.T) {
	h := vtest.New(t, vtest.WithRuntimeOptions(vdom.WithMountDelay(time.Second)))
	defineCounter(h)
	c := h.New("counter", nil)
	h.Root.MountComponent(c)

	h.Advance(500 * time.Millisecond)
	if c.State() != component.StateCreated {
		t.Errorf("State after 500ms = %v, want created", c.State())
	}
	h.Advance(500 * time.Millisecond)
	if c.State() != component.StateMounted {
		t.Errorf("State after 1s = %v, want mounted", c.State())
	}
}

func TestHarness_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	doc := `
components:
  badge:
    template: '<b key="label">{{text}}</b>'
    props: {text: ""}
nodes:
  - tag: ul
    key: list
    children:
      - {tag: li, key: a, content: Alpha}
  - component: badge
    props: {text: New}
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	h := vtest.New(t)
	tree := h.Load(path)

	h.ExpectText("a", "Alpha")
	h.ExpectText("label", "New")
	if tree.Components[0].State() != component.StateMounted {
		t.Errorf("badge State = %v, want mounted", tree.Components[0].State())
	}
	h.ExpectNoErrors()
}
