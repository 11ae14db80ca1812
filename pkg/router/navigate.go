package router

import (
	"context"
	"fmt"
	"net/url"

	"github.com/vango-dev/routeagent/pkg/agent"
	"github.com/vango-dev/routeagent/pkg/route"
)

// NavigateOptions configures navigation behavior.
type NavigateOptions struct {
	// Replace replaces the current history entry instead of pushing.
	Replace bool

	// Broadcast notifies every subscriber. Defaults to true.
	Broadcast bool

	// Params are query parameters to add to the URL.
	Params map[string]any
}

// NavigateOption is a functional option for Navigate.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		o.Replace = true
	}
}

// WithoutBroadcast changes the history without notifying subscribers.
// The caller is expected to reconcile its own view.
func WithoutBroadcast() NavigateOption {
	return func(o *NavigateOptions) {
		o.Broadcast = false
	}
}

// WithParams adds query parameters to the navigation URL.
func WithParams(params map[string]any) NavigateOption {
	return func(o *NavigateOptions) {
		o.Params = params
	}
}

// Sender is satisfied by agent bridges, dispatchers and routers.
type Sender[T any] interface {
	Send(ctx context.Context, req agent.Request[T]) error
}

// Navigate sends the request matching opts for path and state.
func Navigate[T any](ctx context.Context, s Sender[T], path string, state T, opts ...NavigateOption) error {
	options := NavigateOptions{Broadcast: true}
	for _, opt := range opts {
		opt(&options)
	}

	target, err := BuildURL(path, options.Params)
	if err != nil {
		return err
	}
	r := route.WithState(target, state)

	var req agent.Request[T]
	switch {
	case options.Replace && options.Broadcast:
		req = agent.ReplaceRoute(r)
	case options.Replace:
		req = agent.ReplaceRouteNoBroadcast(r)
	case options.Broadcast:
		req = agent.ChangeRoute(r)
	default:
		req = agent.ChangeRouteNoBroadcast(r)
	}
	return s.Send(ctx, req)
}

// Navigate is Navigate through the router's own bridge.
func (r *Router[T]) Navigate(ctx context.Context, path string, state T, opts ...NavigateOption) error {
	return Navigate[T](ctx, r, path, state, opts...)
}

// BuildURL merges params into the query of path. The fragment is kept.
func BuildURL(path string, params map[string]any) (string, error) {
	if len(params) == 0 {
		return path, nil
	}
	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("router: invalid path %q: %w", path, err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, fmt.Sprintf("%v", v))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
