package history

import (
	"fmt"
	"sync"

	"github.com/vango-dev/routeagent/internal/mailbox"
	"github.com/vango-dev/routeagent/pkg/protocol"
	"github.com/vango-dev/routeagent/pkg/route"
)

// Sender delivers frames to the remote browser. A *websocket.Conn wrapped by
// the server session satisfies it.
type Sender interface {
	Send(f protocol.Frame) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(f protocol.Frame) error

// Send implements Sender.
func (fn SenderFunc) Send(f protocol.Frame) error {
	return fn(f)
}

// Remote is a History whose real entries live in a browser on the other end
// of a connection. It keeps a mirror of the browser's current entry so reads
// never wait on the network.
type Remote struct {
	mu       sync.Mutex
	sender   Sender
	path     string
	query    string
	fragment string
	state    string
	hasState bool
	onPop    func(state string, ok bool)
	pops     *mailbox.Mailbox[popEvent]
	closed   bool
}

// NewRemote returns a Remote seeded from the client's hello location.
func NewRemote(sender Sender, initial protocol.Location) (*Remote, error) {
	if sender == nil {
		return nil, fmt.Errorf("%w: no sender", ErrUnsupported)
	}
	r := &Remote{
		sender: sender,
		pops:   mailbox.New[popEvent](),
	}
	r.setLocation(initial)
	return r, nil
}

func (r *Remote) setLocation(loc protocol.Location) {
	r.path = loc.Path
	if r.path == "" {
		r.path = "/"
	}
	r.query = loc.Query
	r.fragment = loc.Fragment
	r.state, r.hasState = "", false
	if loc.State != nil {
		r.state, r.hasState = *loc.State, true
	}
}

// Location implements History.
func (r *Remote) Location() (path, query, fragment string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path, r.query, r.fragment
}

// Push implements History.
func (r *Remote) Push(url, state string) error {
	return r.write(protocol.NewNavPush(url, state), url, state)
}

// Replace implements History.
func (r *Remote) Replace(url, state string) error {
	return r.write(protocol.NewNavReplace(url, state), url, state)
}

func (r *Remote) write(f protocol.Frame, url, state string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.path, r.query, r.fragment = route.SplitRouteString(url)
	r.state, r.hasState = state, true
	r.mu.Unlock()

	if err := r.sender.Send(f); err != nil {
		return fmt.Errorf("history: send %s: %w", f.Type, err)
	}
	return nil
}

// State implements History.
func (r *Remote) State() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.hasState
}

// OnPopState implements History.
func (r *Remote) OnPopState(fn func(state string, ok bool)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onPop != nil {
		return ErrCallbackRegistered
	}
	if r.closed {
		return ErrClosed
	}
	r.onPop = fn
	go r.pops.Run(func(ev popEvent) { fn(ev.state, ev.ok) })
	return nil
}

// HandlePopState applies a popstate frame from the client: the mirror moves
// to the reported location and the pop-state callback fires.
func (r *Remote) HandlePopState(loc protocol.Location) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.setLocation(loc)
	if r.onPop != nil {
		r.pops.Push(popEvent{state: r.state, ok: r.hasState})
	}
	r.mu.Unlock()
}

// Close stops pop-state delivery and rejects further writes.
func (r *Remote) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.pops.Close()
	return nil
}
