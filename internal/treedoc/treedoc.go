// Package treedoc loads tree documents: YAML (or JSON) descriptions of a
// virtual tree and the components it instantiates.
//
//	root: app
//	components:
//	  greeting:
//	    tag: section
//	    template: '<h1 key="title">Hello {{name}}</h1>'
//	    props: {name: World}
//	nodes:
//	  - tag: ul
//	    key: list
//	    children:
//	      - {tag: li, key: a, content: Alpha}
//	  - component: greeting
//	    props: {name: Ada}
//
// Unknown fields are rejected. Keys must be unique across the document.
package treedoc

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/component"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// DefaultRoot is the container id used when a document names none.
const DefaultRoot = "app"

// Document is a parsed tree document.
type Document struct {
	Root       string                   `yaml:"root"`
	Components map[string]ComponentSpec `yaml:"components"`
	Nodes      []Node                   `yaml:"nodes"`

	path string
}

// ComponentSpec declares a component definition.
type ComponentSpec struct {
	Tag      string         `yaml:"tag"`
	Class    string         `yaml:"class"`
	Template string         `yaml:"template"`
	Props    map[string]any `yaml:"props"`
}

// Node describes one element, or one component instance when Component
// is set.
type Node struct {
	Tag      string            `yaml:"tag"`
	Key      string            `yaml:"key"`
	ID       string            `yaml:"id"`
	Class    string            `yaml:"class"`
	Content  string            `yaml:"content"`
	Style    map[string]string `yaml:"style"`
	Attrs    map[string]any    `yaml:"attrs"`
	Children []Node            `yaml:"children"`

	Component string         `yaml:"component"`
	Props     map[string]any `yaml:"props"`
}

// Path returns the file the document was loaded from, or "".
func (d *Document) Path() string { return d.path }

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E120").Wrap(err).WithDetailf("reading %s", path)
	}
	doc, err := Parse(data)
	if err != nil {
		var ve *errors.Error
		if stderrors.As(err, &ve) && ve.Location == nil {
			ve.Location = &errors.Location{File: path}
		}
		return nil, err
	}
	doc.path = path
	return doc, nil
}

// Parse parses and validates a document.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, errors.FromError(err, "E121")
	}
	if doc.Root == "" {
		doc.Root = DefaultRoot
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks that every node names a tag or a component, that
// referenced components are declared and that keys are unique.
func (d *Document) Validate() error {
	seen := make(map[string]string)
	var check func(nodes []Node, path string) error
	check = func(nodes []Node, path string) error {
		for i := range nodes {
			n := &nodes[i]
			at := fmt.Sprintf("%s[%d]", path, i)
			switch {
			case n.Component != "":
				if _, ok := d.Components[n.Component]; !ok {
					return errors.New("E121").WithDetailf("%s: undeclared component %q", at, n.Component)
				}
				if n.Tag != "" || len(n.Children) > 0 {
					return errors.New("E121").WithDetailf("%s: a component node takes only props", at)
				}
			case n.Tag == "":
				return errors.New("E123").WithDetail(at)
			}
			if n.Key != "" {
				if prev, ok := seen[n.Key]; ok {
					return errors.New("E122").WithDetailf("key %q at %s and %s", n.Key, prev, at)
				}
				seen[n.Key] = at
			}
			if err := check(n.Children, at+".children"); err != nil {
				return err
			}
		}
		return nil
	}
	return check(d.Nodes, "nodes")
}

// Tree is a built document.
type Tree struct {
	Nodes      []*vdom.Node
	Components []*component.Component
}

// Build defines the document's components on reg and constructs its
// nodes. Nothing is attached to a root.
func (d *Document) Build(reg *component.Registry) (*Tree, error) {
	names := make([]string, 0, len(d.Components))
	for name := range d.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := d.Components[name]
		err := reg.Define(name, component.Config{
			Tag:      spec.Tag,
			Class:    spec.Class,
			Template: spec.Template,
			Props:    spec.Props,
		})
		if err != nil {
			return nil, err
		}
	}

	t := &Tree{}
	rt := reg.Runtime()
	var build func(n *Node) *vdom.Node
	build = func(n *Node) *vdom.Node {
		if n.Component != "" {
			c := reg.New(n.Component, n.Props)
			t.Components = append(t.Components, c)
			return c.Node()
		}
		props := vdom.Props{
			Key:     n.Key,
			ID:      n.ID,
			Class:   n.Class,
			Content: n.Content,
			Attrs:   n.Attrs,
		}
		if len(n.Style) > 0 {
			props.Style = vdom.Style(n.Style)
		}
		kids := make([]*vdom.Node, 0, len(n.Children))
		for i := range n.Children {
			kids = append(kids, build(&n.Children[i]))
		}
		return rt.El(n.Tag, props, kids...)
	}
	for i := range d.Nodes {
		t.Nodes = append(t.Nodes, build(&d.Nodes[i]))
	}
	return t, nil
}

// Mount appends the tree to root, renders it and schedules every
// component's Mount after the runtime's mount delay.
func (t *Tree) Mount(root *vdom.Root) {
	root.Append(t.Nodes...)
	root.Render()
	rt := root.Runtime()
	for _, c := range t.Components {
		rt.Scheduler().After(rt.MountDelay(), c.Mount)
	}
}
