package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vango-dev/routeagent/pkg/agent"
	"github.com/vango-dev/routeagent/pkg/route"
	"github.com/vango-dev/routeagent/pkg/routing"
	"github.com/vango-dev/routeagent/pkg/view"
)

type config struct {
	logger   *slog.Logger
	metrics  *agent.Metrics
	onRender func(*view.Node)
	dispatch func(func())
}

// Option configures a Router.
type Option func(*config)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics counts unmatched routes on m.
func WithMetrics(m *agent.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithOnRender registers fn to receive every newly rendered view. fn must
// not call SetOptions.
func WithOnRender(fn func(*view.Node)) Option {
	return func(c *config) {
		c.onRender = fn
	}
}

// WithDispatch runs route updates through dispatch, for hosts that render on
// their own event loop.
func WithDispatch(dispatch func(func())) Option {
	return func(c *config) {
		c.dispatch = dispatch
	}
}

// Router mirrors the agent's route and renders it through an option list.
type Router[T any] struct {
	logger   *slog.Logger
	metrics  *agent.Metrics
	onRender func(*view.Node)
	dispatch func(func())
	bridge   *agent.Bridge[T]

	// updateMu serializes updates so renders reach onRender in order.
	updateMu sync.Mutex

	mu       sync.RWMutex
	route    route.Route[T]
	hasRoute bool
	options  []routing.Option[T]
	view     *view.Node
	renders  uint64
}

// New connects a router to conn and requests the current route. The view
// is empty until that first route arrives.
func New[T any](ctx context.Context, conn agent.Connector[T], options []routing.Option[T], opts ...Option) (*Router[T], error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	r := &Router[T]{
		logger:   cfg.logger.With("component", "router"),
		metrics:  cfg.metrics,
		onRender: cfg.onRender,
		dispatch: cfg.dispatch,
		options:  options,
		view:     view.Empty(),
	}
	r.warnUnreachable(options)

	b, err := conn.Bridge(ctx, r.receive)
	if err != nil {
		return nil, fmt.Errorf("router: connect: %w", err)
	}
	r.bridge = b

	if err := b.Send(ctx, agent.GetCurrentRoute[T]()); err != nil {
		b.Close()
		return nil, fmt.Errorf("router: request current route: %w", err)
	}
	return r, nil
}

func (r *Router[T]) receive(rt route.Route[T]) {
	if r.dispatch != nil {
		r.dispatch(func() { r.setRoute(rt) })
		return
	}
	r.setRoute(rt)
}

func (r *Router[T]) setRoute(rt route.Route[T]) {
	r.updateMu.Lock()
	defer r.updateMu.Unlock()

	r.mu.Lock()
	if r.hasRoute && route.Equal(r.route, rt) {
		r.mu.Unlock()
		r.logger.Debug("route unchanged, skipping render", "path", rt.Path)
		return
	}
	r.route = rt
	r.hasRoute = true
	node := r.renderLocked()
	r.mu.Unlock()

	r.emit(node)
}

// SetOptions replaces the option list and re-renders unless the new list is
// identical to the current one.
func (r *Router[T]) SetOptions(options []routing.Option[T]) {
	r.updateMu.Lock()
	defer r.updateMu.Unlock()

	r.mu.Lock()
	if routing.OptionsEqual(r.options, options) {
		r.mu.Unlock()
		return
	}
	r.options = options
	r.warnUnreachable(options)
	if !r.hasRoute {
		r.mu.Unlock()
		return
	}
	node := r.renderLocked()
	r.mu.Unlock()

	r.emit(node)
}

// renderLocked resolves the held route. r.mu must be held.
func (r *Router[T]) renderLocked() *view.Node {
	node, _, ok := routing.Resolve(r.options, r.route)
	if !ok {
		r.logger.Error(routing.NoMatchMessage, "path", r.route.Path, "options", len(r.options))
		r.metrics.RecordRoutingMiss()
		node = view.Empty()
	}
	r.view = node
	r.renders++
	return node
}

func (r *Router[T]) emit(node *view.Node) {
	if r.onRender != nil {
		r.onRender(node)
	}
}

func (r *Router[T]) warnUnreachable(options []routing.Option[T]) {
	if n := routing.Reachable(options); n < len(options) {
		r.logger.Warn("routing options after an unconditional option are unreachable",
			"reachable", n, "options", len(options))
	}
}

// View returns the current render result.
func (r *Router[T]) View() *view.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view
}

// Route returns the route last rendered and whether one has arrived yet.
func (r *Router[T]) Route() (route.Route[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.route, r.hasRoute
}

// Renders returns how many times the router has rendered.
func (r *Router[T]) Renders() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.renders
}

// Send forwards req through the router's own bridge.
func (r *Router[T]) Send(ctx context.Context, req agent.Request[T]) error {
	return r.bridge.Send(ctx, req)
}

// Close disconnects the router from its agent.
func (r *Router[T]) Close() error {
	return r.bridge.Close()
}
