package vdom

import "github.com/vango-dev/vtree/pkg/host"

// Handler is an event handler attached through Props.On or Node.On.
//
// There are two kinds. Unbound handlers receive the node they were
// registered on. Bound handlers carry their own receiver and ignore the
// node. Either is resolved once, when the node is rendered, to a plain
// func(*host.Event).
type Handler interface {
	resolve(n *Node) func(*host.Event)
}

// Unbound is a handler called with the node it is registered on.
type Unbound func(n *Node, ev *host.Event)

func (f Unbound) resolve(n *Node) func(*host.Event) {
	return func(ev *host.Event) { f(n, ev) }
}

// Bound is a handler with a fixed receiver.
type Bound struct {
	Receiver any
	Fn       func(receiver any, ev *host.Event)
}

func (b Bound) resolve(*Node) func(*host.Event) {
	return func(ev *host.Event) { b.Fn(b.Receiver, ev) }
}

// BindTo returns a Bound handler calling fn with recv.
func BindTo[T any](recv T, fn func(recv T, ev *host.Event)) Bound {
	return Bound{
		Receiver: recv,
		Fn: func(r any, ev *host.Event) {
			fn(r.(T), ev)
		},
	}
}

// Func adapts a plain event callback.
func Func(fn func(ev *host.Event)) Bound {
	return Bound{Fn: func(_ any, ev *host.Event) { fn(ev) }}
}
