package template

import (
	"github.com/vango-dev/vtree/pkg/expr"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// Binding keeps a node's children rendered from a template and a data map.
// Changing the data re-renders the children and updates the node.
type Binding struct {
	node *vdom.Node
	tmpl *Template
	data expr.Map
}

// Bind compiles src and renders it into n with data. Values in data may be
// plain values, nested maps, structs or functions callable from the
// template (see expr.Map).
func Bind(n *vdom.Node, src string, data map[string]any) (*Binding, error) {
	t, err := Compile(src)
	if err != nil {
		return nil, err
	}
	b := &Binding{node: n, tmpl: t, data: expr.Map{}}
	for k, v := range data {
		b.data[k] = v
	}
	b.apply()
	return b, nil
}

// Node returns the bound node.
func (b *Binding) Node() *vdom.Node { return b.node }

// Data returns a copy of the current data.
func (b *Binding) Data() map[string]any {
	out := make(map[string]any, len(b.data))
	for k, v := range b.data {
		out[k] = v
	}
	return out
}

// Set changes one value and re-renders.
func (b *Binding) Set(key string, value any) *Binding {
	b.data[key] = value
	b.apply()
	return b
}

// Merge changes several values and re-renders once.
func (b *Binding) Merge(values map[string]any) *Binding {
	for k, v := range values {
		b.data[k] = v
	}
	b.apply()
	return b
}

// Update replaces the value of key with fn(old) and re-renders.
func (b *Binding) Update(key string, fn func(old any) any) *Binding {
	b.data[key] = fn(b.data[key])
	b.apply()
	return b
}

func (b *Binding) apply() {
	nodes := b.tmpl.Render(b.node.Runtime(), Context{Scope: b.data})
	b.node.SetChildren(nodes...)
}
