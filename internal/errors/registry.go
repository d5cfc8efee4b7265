package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime (recovered) errors (E001-E099)
	// ============================================

	"E001": {Category: CategorySelector, Message: "Malformed selector"},
	"E002": {Category: CategoryComponent, Message: "Component definition not found"},
	"E003": {Category: CategoryExpression, Message: "Expression evaluation failed"},
	"E004": {Category: CategoryCallback, Message: "Callback failed"},
	"E005": {Category: CategoryComponent, Message: "Delegate call budget exhausted"},
	"E006": {Category: CategoryComponent, Message: "Delegate method not found"},
	"E007": {Category: CategoryComponent, Message: "Mutation after unmount ignored"},
	"E008": {Category: CategoryExpression, Message: "Template compilation failed"},
	"E010": {Category: CategoryHost, Message: "Host element not found"},
	"E011": {Category: CategoryHost, Message: "Root is not bound to a host element"},

	// ============================================
	// Configuration errors (E100-E119)
	// ============================================

	"E100": {Category: CategoryConfig, Message: "Config file could not be read"},
	"E101": {Category: CategoryConfig, Message: "Config file is not valid JSON"},
	"E102": {Category: CategoryConfig, Message: "Invalid config value"},
	"E103": {Category: CategoryConfig, Message: "Config file not found"},

	// ============================================
	// Tree document errors (E120-E139)
	// ============================================

	"E120": {Category: CategoryDocument, Message: "Tree document could not be read"},
	"E121": {Category: CategoryDocument, Message: "Tree document is malformed"},
	"E122": {Category: CategoryDocument, Message: "Duplicate key in tree document"},
	"E123": {Category: CategoryDocument, Message: "Tree node has no tag"},

	// ============================================
	// Wire errors (E140-E159)
	// ============================================

	"E140": {Category: CategoryHost, Message: "Wire frame could not be decoded"},
	"E141": {Category: CategoryHost, Message: "Wire frame could not be written"},
	"E142": {Category: CategoryHost, Message: "Unknown wire operation"},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
