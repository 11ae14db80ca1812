package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/vango-dev/routeagent/internal/mailbox"
	"github.com/vango-dev/routeagent/pkg/route"
)

// Connector is anything that hands out bridges and dispatchers for state
// type T: an *Agent directly, or a shared agent from a Registry.
type Connector[T any] interface {
	Bridge(ctx context.Context, fn func(route.Route[T])) (*Bridge[T], error)
	Dispatcher() (*Dispatcher[T], error)
}

var _ Connector[struct{}] = (*Agent[struct{}])(nil)

// Bridge is one consumer's connection to an agent. It sends requests and
// receives broadcasts and responses on its callback.
type Bridge[T any] struct {
	agent   *Agent[T]
	id      HandlerID
	mailbox *mailbox.Mailbox[route.Route[T]]

	closeOnce sync.Once
	closed    chan struct{}
	release   func()
}

// Bridge connects a new subscriber. fn is called on a goroutine owned by the
// bridge, once per route, in the order the agent produced them.
//
// The bridge closes itself when ctx is cancelled. A nil ctx is treated as
// context.Background.
func (a *Agent[T]) Bridge(ctx context.Context, fn func(route.Route[T])) (*Bridge[T], error) {
	return a.bridge(ctx, fn, nil)
}

func (a *Agent[T]) bridge(ctx context.Context, fn func(route.Route[T]), release func()) (*Bridge[T], error) {
	if fn == nil {
		return nil, errors.New("agent: nil bridge callback")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	b := &Bridge[T]{
		agent:   a,
		id:      HandlerID(a.nextID.Add(1)),
		mailbox: mailbox.New[route.Route[T]](),
		closed:  make(chan struct{}),
		release: release,
	}
	if err := a.enqueue(ctx, envelope[T]{kind: envConnect, id: b.id, mailbox: b.mailbox}); err != nil {
		return nil, err
	}

	go b.mailbox.Run(fn)
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				b.Close()
			case <-b.closed:
			}
		}()
	}
	return b, nil
}

// ID returns the bridge's handler id.
func (b *Bridge[T]) ID() HandlerID {
	return b.id
}

// Send queues req. ctx bounds only the wait for inbox space.
func (b *Bridge[T]) Send(ctx context.Context, req Request[T]) error {
	select {
	case <-b.closed:
		return ErrClosed
	default:
	}
	return b.agent.enqueue(ctx, envelope[T]{kind: envRequest, id: b.id, ctx: ctx, req: req})
}

// Close disconnects the bridge. Routes not yet delivered are dropped and the
// callback is not started again once Close returns. Close is idempotent and
// safe to call from the callback.
func (b *Bridge[T]) Close() error {
	b.closeOnce.Do(func() {
		close(b.closed)
		b.mailbox.Close()
		_ = b.agent.enqueue(context.Background(), envelope[T]{kind: envDisconnect, id: b.id})
		if b.release != nil {
			b.release()
		}
	})
	return nil
}

// Dispatcher sends requests without subscribing. It never receives
// broadcasts, and GetCurrentRoute requests sent through it go unanswered.
type Dispatcher[T any] struct {
	agent *Agent[T]

	closeOnce sync.Once
	closed    chan struct{}
	release   func()
}

// Dispatcher returns a send-only handle.
func (a *Agent[T]) Dispatcher() (*Dispatcher[T], error) {
	return a.dispatcher(nil)
}

func (a *Agent[T]) dispatcher(release func()) (*Dispatcher[T], error) {
	select {
	case <-a.done:
		return nil, ErrClosed
	default:
	}
	return &Dispatcher[T]{agent: a, closed: make(chan struct{}), release: release}, nil
}

// Send queues req. ctx bounds only the wait for inbox space.
func (d *Dispatcher[T]) Send(ctx context.Context, req Request[T]) error {
	select {
	case <-d.closed:
		return ErrClosed
	default:
	}
	return d.agent.enqueue(ctx, envelope[T]{kind: envRequest, ctx: ctx, req: req})
}

// Close releases the dispatcher. It is idempotent.
func (d *Dispatcher[T]) Close() error {
	d.closeOnce.Do(func() {
		close(d.closed)
		if d.release != nil {
			d.release()
		}
	})
	return nil
}
