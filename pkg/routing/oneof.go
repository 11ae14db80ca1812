package routing

import (
	"log/slog"

	"github.com/vango-dev/routeagent/pkg/route"
	"github.com/vango-dev/routeagent/pkg/view"
)

// NoMatchMessage is logged when no option matches a route.
const NoMatchMessage = "routing failed, no default case was provided"

// Resolve returns the result of the first option that matches r and its
// index. Options after the match are not evaluated. ok is false when
// nothing matched.
func Resolve[T any](options []Option[T], r route.Route[T]) (node *view.Node, index int, ok bool) {
	for i, o := range options {
		if n, matched := o.Match(r); matched {
			if n == nil {
				n = view.Empty()
			}
			return n, i, true
		}
	}
	return nil, -1, false
}

// OneOf resolves r against options. When nothing matches it logs one error
// and returns view.Empty().
func OneOf[T any](options []Option[T], r route.Route[T], logger *slog.Logger) *view.Node {
	if n, _, ok := Resolve(options, r); ok {
		return n
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(NoMatchMessage, "path", r.Path, "options", len(options))
	return view.Empty()
}
