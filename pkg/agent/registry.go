package agent

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/vango-dev/routeagent/pkg/history"
	"github.com/vango-dev/routeagent/pkg/route"
)

// Registry holds at most one live agent and shares it between every caller.
//
// The agent is created on the first Connect or Dispatch, reference-counted
// by the handles it gives out, and closed together with its history when
// the last handle closes. A registry serves a single state type at a time.
type Registry struct {
	factory func() (history.History, error)
	opts    []Option

	mu       sync.Mutex
	stateTyp reflect.Type
	agent    any
	refs     int
	teardown func()
}

// NewRegistry returns a registry that builds histories with factory.
func NewRegistry(factory func() (history.History, error), opts ...Option) *Registry {
	return &Registry{factory: factory, opts: opts}
}

// Active reports whether an agent is currently live.
func (reg *Registry) Active() bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.agent != nil
}

func acquire[T any](reg *Registry) (*Agent[T], error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	typ := reflect.TypeFor[T]()
	if reg.agent != nil {
		if reg.stateTyp != typ {
			return nil, fmt.Errorf("%w: registry serves %s, requested %s", ErrStateTypeMismatch, reg.stateTyp, typ)
		}
		reg.refs++
		return reg.agent.(*Agent[T]), nil
	}

	if reg.factory == nil {
		return nil, fmt.Errorf("%w: registry has no history factory", ErrAdapterUnavailable)
	}
	h, err := reg.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
	}
	a, err := New[T](h, reg.opts...)
	if err != nil {
		closeHistory(h)
		return nil, err
	}

	reg.stateTyp = typ
	reg.agent = a
	reg.refs = 1
	reg.teardown = func() {
		a.Close()
		closeHistory(h)
	}
	return a, nil
}

func (reg *Registry) release() {
	reg.mu.Lock()
	reg.refs--
	if reg.refs > 0 {
		reg.mu.Unlock()
		return
	}
	teardown := reg.teardown
	reg.agent, reg.stateTyp, reg.teardown, reg.refs = nil, nil, nil, 0
	reg.mu.Unlock()

	if teardown != nil {
		teardown()
	}
}

func closeHistory(h history.History) {
	if c, ok := h.(io.Closer); ok {
		_ = c.Close()
	}
}

// Connect returns a Bridge to the registry's agent for T, creating the agent
// if none is live.
func Connect[T any](ctx context.Context, reg *Registry, fn func(route.Route[T])) (*Bridge[T], error) {
	a, err := acquire[T](reg)
	if err != nil {
		return nil, err
	}
	b, err := a.bridge(ctx, fn, reg.release)
	if err != nil {
		reg.release()
		return nil, err
	}
	return b, nil
}

// Dispatch returns a Dispatcher to the registry's agent for T, creating the
// agent if none is live. The dispatcher holds the agent open until closed.
func Dispatch[T any](reg *Registry) (*Dispatcher[T], error) {
	a, err := acquire[T](reg)
	if err != nil {
		return nil, err
	}
	d, err := a.dispatcher(reg.release)
	if err != nil {
		reg.release()
		return nil, err
	}
	return d, nil
}

type shared[T any] struct {
	reg *Registry
}

// Shared adapts reg to a Connector for T.
func Shared[T any](reg *Registry) Connector[T] {
	return shared[T]{reg: reg}
}

func (s shared[T]) Bridge(ctx context.Context, fn func(route.Route[T])) (*Bridge[T], error) {
	return Connect[T](ctx, s.reg, fn)
}

func (s shared[T]) Dispatcher() (*Dispatcher[T], error) {
	return Dispatch[T](s.reg)
}
