// Package selector implements the query language used to find nodes in a
// vtree: a practical subset of CSS selectors.
//
// Supported syntax:
//
//	div              tag (case-insensitive)
//	#main            id
//	.a.b             classes (all must be present)
//	[data-x]         attribute presence
//	[data-x="v"]     exact
//	[data-x~=v]      whitespace-separated token
//	[data-x|=v]      exact or prefix followed by "-"
//	[data-x^=v]      prefix
//	[data-x$=v]      suffix
//	[data-x*=v]      substring
//	:hover           pseudo marker (recorded, never enforced)
//	*                wildcard
//
// Combinators (descendant space, >, +, ~) and the comma separate compound
// selectors but are not enforced structurally: an element matches a
// selector when it matches ANY of its compounds. Parsing never fails;
// malformed input degrades to the constraints that could be read.
//
// Parse results are memoized in a Cache with FIFO eviction.
package selector
