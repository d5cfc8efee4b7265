// Package vdom implements the virtual tree and the reconciler that keeps a
// host tree in sync with it.
//
// A Runtime owns everything shared: the key generator, the selector cache,
// the scheduler used for coalesced rendering and mount deferral, the logger,
// metrics and tracer. Trees are built with Runtime.El and attached to a Root,
// which is bound to one element of a host.Adapter:
//
//	rt := vdom.NewRuntime()
//	doc := memhost.New()
//	root := rt.Bind(doc, doc.NewContainer("app"))
//	list := rt.El("ul", vdom.Props{Class: "list"},
//		rt.El("li", vdom.Props{Content: "One"}),
//		rt.El("li", vdom.Props{Content: "Two"}),
//	)
//	root.Append(list)
//	root.Render()
//
// # Keys
//
// Every node carries a key, unique within its root and stable for the
// node's lifetime. Keys are written to host elements as the data-key
// attribute and are the identity used by the keyed diff and by event
// delegation. Generated keys are short base-36 strings; Props.Key sets an
// explicit one.
//
// # Reconciliation
//
// Root.Render walks the virtual children of the root and the host children
// of its element with two cursors. Elements whose key matches are patched in
// place, elements found further along are moved, unknown keys are created
// and leftovers are removed. The diff recurses into every matched element.
// Node.Update is the cheaper, blunter alternative: it rebuilds one subtree
// and swaps it in wholesale.
//
// # Events
//
// A root installs one host listener per event type. The host reports the
// key of the nearest keyed ancestor of the event target; the root calls the
// handler that node registered for the event type. Handler panics are
// recovered and reported with code E004.
//
// # Threading
//
// Nothing in this package locks. A Runtime and all its roots must be used
// from the goroutine driving its scheduler (see package sched).
package vdom
