package component

import "sort"

type computedEntry struct {
	name      string
	getter    Getter
	value     any
	valid     bool
	computing bool
	deps      map[string]struct{}
}

// Computed returns a computed value, evaluating its getter if the cached
// value is invalid. Unknown names yield nil. A getter that reads itself,
// directly or through other computed values, sees its previous value.
func (c *Component) Computed(name string) any {
	e, ok := c.computed[name]
	if !ok {
		return nil
	}
	if !e.valid && !e.computing {
		e.computing = true
		e.deps = map[string]struct{}{}
		c.tracking = append(c.tracking, e)
		var v any
		if c.safely("computed", name, func() { v = e.getter(c) }) {
			e.value = v
		} else {
			e.value = nil
		}
		c.tracking = c.tracking[:len(c.tracking)-1]
		e.computing = false
		e.valid = true
	}
	// A computed value read inside another getter passes its
	// dependencies on.
	if n := len(c.tracking); n > 0 {
		outer := c.tracking[n-1]
		for d := range e.deps {
			outer.deps[d] = struct{}{}
		}
	}
	return e.value
}

// Dependencies returns the props a computed value read the last time it
// was evaluated.
func (c *Component) Dependencies(name string) []string {
	e, ok := c.computed[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.deps))
	for d := range e.deps {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Invalidate drops the cached value of one computed entry.
func (c *Component) Invalidate(name string) {
	if e, ok := c.computed[name]; ok {
		e.valid = false
	}
}

// InvalidateAll drops every cached computed value.
func (c *Component) InvalidateAll() {
	for _, e := range c.computed {
		e.valid = false
	}
}

// invalidateDependents drops the computed values that read key.
func (c *Component) invalidateDependents(key string) {
	for _, e := range c.computed {
		if _, ok := e.deps[key]; ok {
			e.valid = false
		}
	}
}
