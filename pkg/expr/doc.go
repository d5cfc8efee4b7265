// Package expr evaluates the small expression language used in templates
// and directives.
//
// The grammar is deliberately closed:
//
//	expr     = or
//	or       = and { "||" and }
//	and      = equality { "&&" equality }
//	equality = relation { ("==" | "!=" | "===" | "!==") relation }
//	relation = unary { ("<" | "<=" | ">" | ">=") unary }
//	unary    = ("!" | "-") unary | primary
//	primary  = literal | path | call | "(" expr ")"
//	path     = ident { "." ident }
//	call     = ident "(" [ literal { "," literal } ] ")"
//	literal  = number | string | "true" | "false" | "null" | "undefined"
//
// Paths read from a Scope and walk maps, exported struct fields and the
// length of strings, slices and maps. Calls are routed to Scope.Call with
// literal arguments only. Nothing else can be executed.
package expr
