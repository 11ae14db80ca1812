// Package routing resolves a route to a view by first-match dispatch over an
// ordered list of options.
//
// Every option has the same shape, a function from a route to an optional
// render result. The builders differ only in how that function is written:
//
//	routing.Component(cond, ctor)        // cond yields props, ctor builds the component
//	routing.ComponentFromRoute[T](ctor)  // props derive themselves via FromRoute
//	routing.Render(fn)                   // fn renders directly
//	routing.When(pred, fn)               // pred gates a render
//	routing.Children(fn)                 // always matches
//
// OneOf evaluates options in order and stops at the first match. Options
// after a Children option can never be reached; Reachable reports where
// that happens so hosts can warn about it.
//
// Predicates are opaque functions. Expr compiles a boolean CEL expression
// into one, and Table builds a whole option list from configured rules.
package routing
