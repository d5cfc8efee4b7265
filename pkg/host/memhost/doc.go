// Package memhost is an in-memory host tree.
//
// A Document stands in for a browser DOM: it implements host.Adapter,
// counts every primitive it receives, serializes to deterministic HTML,
// and can simulate events bubbling to root listeners. It backs the vtree
// command, the wirehost mirror and most tests.
package memhost
