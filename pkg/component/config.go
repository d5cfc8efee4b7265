package component

// Method is a component method or event handler. Template events call it
// with their literal arguments, or with the *host.Event when there are
// none.
type Method func(c *Component, args ...any) any

// Getter computes a derived value. Props it reads through c.Prop become
// its dependencies.
type Getter func(c *Component) any

// Watcher observes one prop.
type Watcher func(c *Component, newValue, oldValue any)

// Change is the old and new value of one prop.
type Change struct {
	Old any
	New any
}

// UpdateInfo describes a re-render.
type UpdateInfo struct {
	// Changes holds the props that changed. It is empty for forced
	// updates.
	Changes map[string]Change
	// Forced is set by ForceUpdate.
	Forced bool
}

// Hooks are lifecycle callbacks. Every field is optional. A panicking hook
// is logged with code E004 and does not stop the transition.
type Hooks struct {
	// Validating sees the initial props before anything else runs and may
	// modify them.
	Validating func(c *Component, props map[string]any)
	Created    func(c *Component)

	BeforeMount func(c *Component)
	Mounted     func(c *Component)

	BeforeChange func(c *Component, key string, newValue, oldValue any)
	BeforeUpdate func(c *Component, u UpdateInfo)
	Updated      func(c *Component, u UpdateInfo)

	BeforeUnmount func(c *Component)
	Unmounted     func(c *Component)

	// EventEmitted runs after the subscribers of every Emit.
	EventEmitted func(c *Component, name string, args []any)
}

// Config defines a component.
type Config struct {
	// Tag is the element wrapping the template. Defaults to "div".
	Tag string
	// Class is set on the wrapping element.
	Class string

	// Template is markup in the syntax of package template.
	Template string

	// Props declares the accepted props and their defaults. Initial props
	// not declared here are dropped.
	Props map[string]any

	Methods  map[string]Method
	Events   map[string]Method
	Computed map[string]Getter
	Watch    map[string]Watcher
	Hooks    Hooks

	// Provide publishes values to components created later. ProvideFunc,
	// when set, is called once at construction instead.
	Provide     map[string]any
	ProvideFunc func(c *Component) map[string]any

	// Inject maps local names to provided names.
	Inject map[string]string
}
