package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/routeagent/internal/mailbox"
	"github.com/vango-dev/routeagent/pkg/history"
	"github.com/vango-dev/routeagent/pkg/route"
)

// Default tracer name for agent spans.
const tracerName = "routeagent"

// HandlerID identifies a connected Bridge. Zero is never assigned; it marks
// requests sent through a Dispatcher.
type HandlerID uint64

type envelopeKind uint8

const (
	envConnect envelopeKind = iota
	envDisconnect
	envRequest
	envPopState
)

// envelope is the single message type on the agent's inbox.
type envelope[T any] struct {
	kind envelopeKind
	id   HandlerID
	ctx  context.Context

	// envConnect
	mailbox *mailbox.Mailbox[route.Route[T]]

	// envRequest
	req Request[T]

	// envPopState
	state    string
	hasState bool
}

// Agent owns the canonical route for state type T.
//
// All history access, the subscriber set and the canonical route belong to
// one event-loop goroutine started by New. Other goroutines talk to it only
// through the inbox.
type Agent[T any] struct {
	history history.History
	codec   route.Codec[T]
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	inbox   chan envelope[T]
	done    chan struct{}
	stopped chan struct{}

	closeOnce sync.Once
	nextID    atomic.Uint64
	canonical atomic.Pointer[route.Route[T]]

	// Owned by the loop goroutine.
	subscribers map[HandlerID]*mailbox.Mailbox[route.Route[T]]
}

// New creates an agent over h and starts its event loop.
//
// It fails with ErrAdapterUnavailable when h is nil or refuses the pop-state
// callback. The agent is unusable without a working history.
func New[T any](h history.History, opts ...Option) (*Agent[T], error) {
	cfg := config{inboxSize: defaultInboxSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: no history", ErrAdapterUnavailable)
	}

	var codec route.Codec[T] = route.JSONCodec[T]{}
	if cfg.codec != nil {
		c, ok := cfg.codec.(route.Codec[T])
		if !ok {
			return nil, fmt.Errorf("agent: codec %T does not handle %T state", cfg.codec, *new(T))
		}
		codec = c
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(tracerName)
	}

	a := &Agent[T]{
		history:     h,
		codec:       codec,
		logger:      cfg.logger.With("component", "routeagent", "state_type", fmt.Sprintf("%T", *new(T))),
		metrics:     cfg.metrics,
		tracer:      cfg.tracer,
		inbox:       make(chan envelope[T], cfg.inboxSize),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		subscribers: make(map[HandlerID]*mailbox.Mailbox[route.Route[T]]),
	}
	current := a.readCurrent()
	a.canonical.Store(&current)

	if err := h.OnPopState(a.onPopState); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
	}

	go a.run()
	return a, nil
}

// Canonical returns the route the agent last read from the history.
// It is meant for diagnostics; consumers should subscribe instead.
func (a *Agent[T]) Canonical() route.Route[T] {
	return *a.canonical.Load()
}

// Close stops the event loop and every subscriber's delivery. It does not
// close the history. Close is idempotent.
func (a *Agent[T]) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
	})
	<-a.stopped
	return nil
}

// Done is closed once the agent has been asked to stop.
func (a *Agent[T]) Done() <-chan struct{} {
	return a.done
}

func (a *Agent[T]) onPopState(state string, ok bool) {
	// Pop-state events are never dropped for lack of inbox space.
	_ = a.enqueue(context.Background(), envelope[T]{kind: envPopState, state: state, hasState: ok})
}

// enqueue hands env to the loop, waiting for inbox space until ctx ends or
// the agent closes. A nil ctx never ends.
func (a *Agent[T]) enqueue(ctx context.Context, env envelope[T]) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-a.done:
		return ErrClosed
	default:
	}

	select {
	case a.inbox <- env:
		return nil
	case <-a.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the event loop.
func (a *Agent[T]) run() {
	defer close(a.stopped)
	defer func() {
		a.metrics.addSubscribers(-len(a.subscribers))
		for id, mb := range a.subscribers {
			mb.Close()
			delete(a.subscribers, id)
		}
	}()

	for {
		select {
		case env := <-a.inbox:
			a.dispatch(env)
		case <-a.done:
			return
		}
	}
}

func (a *Agent[T]) dispatch(env envelope[T]) {
	switch env.kind {
	case envConnect:
		a.connect(env.id, env.mailbox)
	case envDisconnect:
		a.disconnect(env.id)
	case envRequest:
		a.handle(env)
	case envPopState:
		a.popState(env.state, env.hasState)
	}
}

func (a *Agent[T]) connect(id HandlerID, mb *mailbox.Mailbox[route.Route[T]]) {
	if _, ok := a.subscribers[id]; ok {
		return
	}
	a.subscribers[id] = mb
	a.metrics.addSubscribers(1)
	a.logger.Debug("subscriber connected", "handler_id", id, "subscribers", len(a.subscribers))
}

func (a *Agent[T]) disconnect(id HandlerID) {
	if _, ok := a.subscribers[id]; !ok {
		return
	}
	delete(a.subscribers, id)
	a.metrics.addSubscribers(-1)
	a.logger.Debug("subscriber disconnected", "handler_id", id, "subscribers", len(a.subscribers))
}

func (a *Agent[T]) handle(env envelope[T]) {
	req := env.req
	ctx := env.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := a.tracer.Start(ctx, "routeagent.handle",
		trace.WithAttributes(
			attribute.String("route.kind", req.Kind.String()),
			attribute.String("route.path", req.Route.Path),
			attribute.Int("route.subscribers", len(a.subscribers)),
		),
	)
	defer span.End()

	a.metrics.recordRequest(req.Kind)

	switch req.Kind {
	case KindReplaceRoute, KindReplaceRouteNoBroadcast:
		a.write(span, "replace", a.history.Replace, req.Route)
	case KindChangeRoute, KindChangeRouteNoBroadcast:
		a.write(span, "push", a.history.Push, req.Route)
	case KindGetCurrentRoute:
		a.respond(env.id, a.reRead())
		return
	default:
		a.logger.Error("unknown request kind", "kind", req.Kind)
		return
	}

	if req.Kind.Broadcasts() {
		a.broadcast(a.reRead(), "request")
	}
}

// write stores r in the history. Failures are logged and counted but never
// abort the request.
func (a *Agent[T]) write(span trace.Span, op string, fn func(url, state string) error, r route.Route[T]) {
	encoded, err := a.codec.Encode(r.StateOrDefault())
	if err != nil {
		a.logger.Error("failed to encode route state", "path", r.Path, "error", err)
		a.metrics.recordCodecError("encode")
		encoded = ""
	}

	if err := fn(r.Path, encoded); err != nil {
		a.logger.Error("history write failed", "op", op, "path", r.Path, "error", err)
		a.metrics.recordAdapterError(op)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// respond delivers r to the requester alone.
func (a *Agent[T]) respond(id HandlerID, r route.Route[T]) {
	mb, ok := a.subscribers[id]
	if !ok {
		a.logger.Debug("dropping current route response, requester cannot receive", "handler_id", id)
		return
	}
	if mb.Push(r) {
		a.metrics.recordResponse()
	}
}

// broadcast queues r once for every subscriber connected right now.
func (a *Agent[T]) broadcast(r route.Route[T], source string) {
	ids := make([]HandlerID, 0, len(a.subscribers))
	for id := range a.subscribers {
		ids = append(ids, id)
	}

	delivered := 0
	for _, id := range ids {
		mb, ok := a.subscribers[id]
		if !ok {
			continue
		}
		// A bridge closed after connecting rejects the push; its
		// disconnect is already on the way.
		if mb.Push(r) {
			delivered++
		}
	}
	a.metrics.recordBroadcast(source, delivered)
	a.logger.Debug("route broadcast", "path", r.Path, "source", source, "delivered", delivered)
}

// reRead refreshes the canonical route from the history.
func (a *Agent[T]) reRead() route.Route[T] {
	r := a.readCurrent()
	a.canonical.Store(&r)
	return r
}

func (a *Agent[T]) readCurrent() route.Route[T] {
	path, query, fragment := a.history.Location()
	raw, ok := a.history.State()
	return route.WithState(route.FormatRouteString(path, query, fragment), a.decode(raw, ok))
}

// decode turns a stored state string into T, substituting the zero value
// when it is absent or malformed.
func (a *Agent[T]) decode(raw string, ok bool) T {
	if !ok {
		a.logger.Debug("history entry has no state, using default")
		var zero T
		return zero
	}
	state, err := a.codec.Decode(raw)
	if err != nil {
		a.logger.Error("failed to decode route state, using default", "error", err)
		a.metrics.recordCodecError("decode")
		var zero T
		return zero
	}
	return state
}

// popState handles back/forward navigation. The event's state is trusted;
// the location is read fresh because the event does not carry it.
func (a *Agent[T]) popState(raw string, ok bool) {
	_, span := a.tracer.Start(context.Background(), "routeagent.popstate",
		trace.WithAttributes(attribute.Int("route.subscribers", len(a.subscribers))),
	)
	defer span.End()

	state := a.decode(raw, ok)
	path, query, fragment := a.history.Location()
	r := route.WithState(route.FormatRouteString(path, query, fragment), state)
	a.canonical.Store(&r)
	span.SetAttributes(attribute.String("route.path", r.Path))

	a.broadcast(r, "popstate")
}
