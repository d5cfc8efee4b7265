// Package errors provides coded, structured errors for vtree.
//
// Most failures inside the tree runtime are never returned to callers: a
// malformed selector degrades to a wildcard, a failing watcher is logged
// and its siblings still run. Those failures are still materialised as
// *Error values so they carry a stable code into logs, metrics and any
// installed error handler. Loaders (configuration, tree documents, the
// wire codec) return the same values to their callers.
//
// # Error Categories
//
//   - selector: query parsing problems (always recovered)
//   - component: definition lookup, delegate budgets, lifecycle misuse
//   - expression: template and directive evaluation
//   - callback: user callbacks that panicked
//   - host: host adapter and wire transport failures
//   - config: vtree.json problems
//   - document: tree document (YAML/JSON) problems
//
// # Usage
//
//	err := errors.New("E002").WithDetail(`component "card" is not defined`)
//	logger.Warn(err.Message, "code", err.Code, "detail", err.Detail)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E002: Component definition not found
//	//
//	//   component "card" is not defined
package errors
