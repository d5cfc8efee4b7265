package vdom

// Collection is an ordered set of nodes returned by a query. Batch
// operations apply to every node in order.
type Collection struct {
	nodes []*Node
}

// NewCollection wraps nodes.
func NewCollection(nodes ...*Node) *Collection {
	return &Collection{nodes: nodes}
}

// Nodes returns the nodes in document order.
func (c *Collection) Nodes() []*Node { return c.nodes }

// Len returns the number of nodes.
func (c *Collection) Len() int { return len(c.nodes) }

// First returns the first node, or nil.
func (c *Collection) First() *Node {
	if len(c.nodes) == 0 {
		return nil
	}
	return c.nodes[0]
}

// Keys returns the node keys in order.
func (c *Collection) Keys() []string {
	out := make([]string, len(c.nodes))
	for i, n := range c.nodes {
		out[i] = n.key
	}
	return out
}

// Each calls fn for every node.
func (c *Collection) Each(fn func(i int, n *Node)) *Collection {
	for i, n := range c.nodes {
		fn(i, n)
	}
	return c
}

// Css merges style into every node and updates it.
func (c *Collection) Css(style any) *Collection {
	for _, n := range c.nodes {
		n.Css(style).Update()
	}
	return c
}

// On sets h for eventType on every node.
func (c *Collection) On(eventType string, h Handler) *Collection {
	for _, n := range c.nodes {
		n.On(eventType, h)
	}
	return c
}

// Off removes handlers from every node.
func (c *Collection) Off(eventTypes ...string) *Collection {
	for _, n := range c.nodes {
		n.Off(eventTypes...)
	}
	return c
}

// Update updates every node.
func (c *Collection) Update() *Collection {
	for _, n := range c.nodes {
		n.Update()
	}
	return c
}

// Remove removes every node and empties the collection.
func (c *Collection) Remove() *Collection {
	for _, n := range c.nodes {
		n.Remove()
	}
	c.nodes = nil
	return c
}
