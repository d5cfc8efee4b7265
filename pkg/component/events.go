package component

type watcher struct {
	fn Watcher
}

type listener struct {
	fn func(args ...any)
}

// Watch adds a watcher for a prop and returns a function removing it.
func (c *Component) Watch(key string, fn Watcher) (unwatch func()) {
	if fn == nil || c.ignored("Watch") {
		return func() {}
	}
	w := &watcher{fn: fn}
	c.watchers[key] = append(c.watchers[key], w)
	return func() {
		list := c.watchers[key]
		for i, x := range list {
			if x == w {
				c.watchers[key] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// notify runs the watchers of key in registration order.
func (c *Component) notify(key string, newValue, oldValue any) {
	list := append([]*watcher(nil), c.watchers[key]...)
	for _, w := range list {
		c.safely("watcher", key, func() { w.fn(c, newValue, oldValue) })
	}
}

// On subscribes fn to a component event and returns a function removing
// the subscription.
func (c *Component) On(name string, fn func(args ...any)) (unsubscribe func()) {
	if fn == nil || c.ignored("On") {
		return func() {}
	}
	l := &listener{fn: fn}
	c.listeners[name] = append(c.listeners[name], l)
	return func() {
		list := c.listeners[name]
		for i, x := range list {
			if x == l {
				c.listeners[name] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Off removes every subscriber of an event.
func (c *Component) Off(name string) *Component {
	delete(c.listeners, name)
	return c
}

// Listeners returns the number of subscribers of an event.
func (c *Component) Listeners(name string) int { return len(c.listeners[name]) }

// Emit calls the subscribers of an event synchronously in subscription
// order, then the EventEmitted hook. A panicking subscriber is logged and
// does not stop the others.
func (c *Component) Emit(name string, args ...any) *Component {
	if c.ignored("Emit") {
		return c
	}
	list := append([]*listener(nil), c.listeners[name]...)
	for _, l := range list {
		c.safely("listener", name, func() { l.fn(args...) })
	}
	if h := c.def.cfg.Hooks.EventEmitted; h != nil {
		c.safely("hook", "eventEmitted", func() { h(c, name, args) })
	}
	return c
}
