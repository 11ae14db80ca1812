package routing

import (
	"github.com/vango-dev/routeagent/pkg/route"
	"github.com/vango-dev/routeagent/pkg/view"
)

// Predicate reports whether a route matches.
type Predicate[T any] func(route.Route[T]) bool

// matcher is the single shape behind every option. Options compare by the
// identity of their matcher.
type matcher[T any] struct {
	match  func(route.Route[T]) (*view.Node, bool)
	always bool
}

// Option is one entry in an ordered routing table.
type Option[T any] struct {
	m *matcher[T]
}

func newOption[T any](match func(route.Route[T]) (*view.Node, bool), always bool) Option[T] {
	return Option[T]{m: &matcher[T]{match: match, always: always}}
}

// Match evaluates the option against r. The zero Option never matches.
func (o Option[T]) Match(r route.Route[T]) (*view.Node, bool) {
	if o.m == nil {
		return nil, false
	}
	return o.m.match(r)
}

// Equal reports whether o and other were produced by the same builder call.
// Two options built separately from the same function are not equal.
func (o Option[T]) Equal(other Option[T]) bool {
	return o.m == other.m
}

// OptionsEqual compares two option lists element by element.
func OptionsEqual[T any](a, b []Option[T]) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Component matches when cond yields properties and renders the component
// ctor builds from them.
func Component[T, P any](cond func(route.Route[T]) (P, bool), ctor func(P) view.Component) Option[T] {
	return newOption(func(r route.Route[T]) (*view.Node, bool) {
		props, ok := cond(r)
		if !ok {
			return nil, false
		}
		return view.Comp(ctor(props)), true
	}, false)
}

// ComponentFromRoute is Component for property types that know how to
// derive themselves from a route. FromRoute fills in the receiver and
// reports whether the route matched.
//
//	type userProps struct{ ID string }
//
//	func (p *userProps) FromRoute(r route.Route[State]) bool { ... }
//
//	routing.ComponentFromRoute[State](newUserPage)
func ComponentFromRoute[T, P any, PP interface {
	*P
	FromRoute(route.Route[T]) bool
}](ctor func(P) view.Component) Option[T] {
	return newOption(func(r route.Route[T]) (*view.Node, bool) {
		var props P
		if !PP(&props).FromRoute(r) {
			return nil, false
		}
		return view.Comp(ctor(props)), true
	}, false)
}

// Render matches whenever fn reports a result.
func Render[T any](fn func(route.Route[T]) (*view.Node, bool)) Option[T] {
	return newOption(fn, false)
}

// When matches routes accepted by pred and renders them with fn.
func When[T any](pred Predicate[T], fn func(route.Route[T]) *view.Node) Option[T] {
	return newOption(func(r route.Route[T]) (*view.Node, bool) {
		if !pred(r) {
			return nil, false
		}
		return fn(r), true
	}, false)
}

// Children always matches. Every option listed after it is unreachable.
func Children[T any](fn func(route.Route[T]) *view.Node) Option[T] {
	return newOption(func(r route.Route[T]) (*view.Node, bool) {
		return fn(r), true
	}, true)
}

// Reachable returns how many leading options can ever be evaluated: the
// position just past the first Children option, or len(options).
func Reachable[T any](options []Option[T]) int {
	for i, o := range options {
		if o.m != nil && o.m.always {
			return i + 1
		}
	}
	return len(options)
}
