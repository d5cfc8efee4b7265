package component

import (
	"log/slog"

	"github.com/vango-dev/vtree/internal/errors"
)

// budget bounds how often Delegate may run a method.
type budget struct {
	max       int
	remaining int
}

// DelegateInfo describes the budget of one method.
type DelegateInfo struct {
	// Limited is false for methods without a budget; Max and Remaining
	// are -1 then.
	Limited   bool
	Max       int
	Remaining int
	// Active reports whether the next Delegate call would run.
	Active bool
}

// Delegate runs a method on behalf of another party, subject to the
// method's budget. Methods are looked up in Methods, then Events. A
// refused or missing method returns nil.
func (c *Component) Delegate(method string, args ...any) any {
	if c.ignored("Delegate") {
		return nil
	}
	if b, ok := c.delegates[method]; ok {
		if b.remaining <= 0 {
			c.rt.Metrics().DelegateRefused()
			c.rt.Report(slog.LevelInfo, errors.New("E005").WithDetailf("%q allows %d calls", method, b.max),
				"component", c.name)
			return nil
		}
		b.remaining--
	}
	fn, ok := c.def.cfg.Methods[method]
	if !ok {
		fn, ok = c.def.cfg.Events[method]
	}
	if !ok {
		c.rt.Report(slog.LevelWarn, errors.New("E006").WithDetailf("delegate %q", method), "component", c.name)
		return nil
	}
	return c.invoke("delegate", method, fn, args)
}

// SetDelegateLimit allows max further Delegate calls of method. A limit
// below zero is treated as zero.
func (c *Component) SetDelegateLimit(method string, max int) *Component {
	if c.ignored("SetDelegateLimit") {
		return c
	}
	if max < 0 {
		max = 0
	}
	c.delegates[method] = &budget{max: max, remaining: max}
	return c
}

// RemoveDelegate lifts the budget of method.
func (c *Component) RemoveDelegate(method string) *Component {
	delete(c.delegates, method)
	return c
}

// ResetDelegate refills the budget of method.
func (c *Component) ResetDelegate(method string) *Component {
	if b, ok := c.delegates[method]; ok {
		b.remaining = b.max
	}
	return c
}

// ResetAllDelegates refills every budget.
func (c *Component) ResetAllDelegates() *Component {
	for _, b := range c.delegates {
		b.remaining = b.max
	}
	return c
}

// DelegateInfo reports the budget of method.
func (c *Component) DelegateInfo(method string) DelegateInfo {
	b, ok := c.delegates[method]
	if !ok {
		return DelegateInfo{Max: -1, Remaining: -1, Active: c.state != StateUnmounted}
	}
	return DelegateInfo{
		Limited:   true,
		Max:       b.max,
		Remaining: b.remaining,
		Active:    b.remaining > 0 && c.state != StateUnmounted,
	}
}
