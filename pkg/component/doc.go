// Package component layers reactive state on top of vdom nodes.
//
// A Component owns one vdom.Node. Its children are derived from a
// template evaluated against the component's props and computed values;
// changing props re-derives them and commits the result to the host tree.
//
// # Definitions
//
// Components are created from named definitions held by a Registry:
//
//	reg := component.NewRegistry(rt)
//	reg.Define("greeting", component.Config{
//		Template: `<p>Hello, {{name}}!</p><button @click="wave">wave</button>`,
//		Props:    map[string]any{"name": "world"},
//		Methods: map[string]component.Method{
//			"wave": func(c *component.Component, args ...any) any {
//				c.Emit("waved", c.Prop("name"))
//				return nil
//			},
//		},
//	})
//	c := reg.New("greeting", map[string]any{"name": "Ada"})
//	root.MountComponent(c)
//
// # Reactivity
//
// SetProps applies changes in key order. For each changed key it fires
// BeforeChange, invalidates the computed values that read the key, and runs
// the key's watchers with the new and old value. If anything changed the
// whole computed cache is dropped and the template re-rendered between the
// BeforeUpdate and Updated hooks.
//
// Computed values are evaluated lazily. The props a getter reads through
// Prop are recorded as its dependencies.
//
// # Lifecycle
//
// A component moves from created to mounted to unmounted and never back.
// Once unmounted every mutation is ignored.
package component
