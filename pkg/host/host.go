// Package host defines the contract between the vtree core and the live
// tree it keeps synchronized.
//
// The core never touches a host tree directly. It creates elements, sets
// their attributes, style and text, replaces child lists, and asks the host
// to find elements by selector, all through an Adapter. Implementations
// live in the memhost (in-memory) and wirehost (binary frames over a
// websocket) subpackages.
package host

// KeyAttr is the attribute carrying a node's diff identity on host
// elements. Event delegation resolves targets to the nearest ancestor
// that has it.
const KeyAttr = "data-key"

// Handle identifies a host element. The zero Handle is never valid.
type Handle uint64

// Event is an event delivered by the host to a root listener.
type Event struct {
	// Type is the event type (e.g., "click").
	Type string

	// Target is the element the event originated on.
	Target Handle

	// Key is the KeyAttr value of the nearest keyed ancestor of Target
	// (Target included), or "" when there is none.
	Key string

	// Detail carries host-specific payload such as input values.
	Detail map[string]any
}

// DispatchFunc receives events for one root and type.
type DispatchFunc func(ev *Event)

// Adapter is the set of host primitives the core needs.
//
// Adapters are driven from a single goroutine and need not be safe for
// concurrent use.
type Adapter interface {
	// Create makes a new detached element.
	Create(tag string) Handle

	// SetAttribute sets (or overwrites) an attribute.
	SetAttribute(h Handle, name, value string)

	// RemoveAttribute removes an attribute if present.
	RemoveAttribute(h Handle, name string)

	// SetStyle replaces the inline style with css ("a: b; c: d").
	SetStyle(h Handle, css string)

	// SetText sets the element's own text content, placed before the child
	// at index at (at >= len(children) places it after every child).
	// An empty text removes it.
	SetText(h Handle, text string, at int)

	// SetChildren replaces h's child list in one step. Children listed that
	// are attached elsewhere are moved. Previous children not listed are
	// detached but not destroyed.
	SetChildren(h Handle, children []Handle)

	// Children returns h's current child list.
	Children(h Handle) []Handle

	// Key returns the KeyAttr value of h, or "".
	Key(h Handle) string

	// Replace puts next where old is in old's parent and destroys old.
	Replace(old, next Handle)

	// Remove detaches h from its parent and destroys its subtree.
	Remove(h Handle)

	// Query returns the elements under root (root excluded) that match
	// selector, in document order.
	Query(root Handle, selector string) []Handle

	// AddEventListener registers dispatch for every event of eventType
	// raised inside root.
	AddEventListener(root Handle, eventType string, dispatch DispatchFunc)
}

// Flusher is implemented by adapters that buffer mutations and need an
// explicit commit after each render.
type Flusher interface {
	Flush() error
}
