//go:build js && wasm

package history

import (
	"fmt"
	"sync"
	"syscall/js"

	"github.com/vango-dev/routeagent/internal/mailbox"
)

// Browser binds window.history and window.location.
type Browser struct {
	mu       sync.Mutex
	history  js.Value
	location js.Value
	window   js.Value
	listener js.Func
	onPop    bool
	pops     *mailbox.Mailbox[popEvent]
}

// NewBrowser acquires the page's history and location objects. It fails with
// ErrUnsupported when either is missing.
func NewBrowser() (*Browser, error) {
	window := js.Global().Get("window")
	if window.IsUndefined() || window.IsNull() {
		return nil, fmt.Errorf("%w: no window", ErrUnsupported)
	}
	h := window.Get("history")
	if h.IsUndefined() || h.IsNull() {
		return nil, fmt.Errorf("%w: window.history missing", ErrUnsupported)
	}
	loc := window.Get("location")
	if loc.IsUndefined() || loc.IsNull() {
		return nil, fmt.Errorf("%w: window.location missing", ErrUnsupported)
	}
	return &Browser{history: h, location: loc, window: window, pops: mailbox.New[popEvent]()}, nil
}

// Location implements History.
func (b *Browser) Location() (path, query, fragment string) {
	return b.location.Get("pathname").String(),
		b.location.Get("search").String(),
		b.location.Get("hash").String()
}

// Push implements History.
func (b *Browser) Push(url, state string) (err error) {
	defer recoverJS(&err)
	b.history.Call("pushState", state, "", url)
	return nil
}

// Replace implements History.
func (b *Browser) Replace(url, state string) (err error) {
	defer recoverJS(&err)
	b.history.Call("replaceState", state, "", url)
	return nil
}

// State implements History.
func (b *Browser) State() (string, bool) {
	return stateString(b.history.Get("state"))
}

// OnPopState implements History.
func (b *Browser) OnPopState(fn func(state string, ok bool)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.onPop {
		return ErrCallbackRegistered
	}
	b.onPop = true
	b.listener = js.FuncOf(func(this js.Value, args []js.Value) any {
		var state js.Value
		if len(args) > 0 {
			state = args[0].Get("state")
		}
		s, ok := stateString(state)
		b.pops.Push(popEvent{state: s, ok: ok})
		return nil
	})
	go b.pops.Run(func(ev popEvent) { fn(ev.state, ev.ok) })
	b.window.Call("addEventListener", "popstate", b.listener)
	return nil
}

// Close removes the popstate listener.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.onPop {
		b.window.Call("removeEventListener", "popstate", b.listener)
		b.listener.Release()
		b.onPop = false
	}
	b.pops.Close()
	return nil
}

func stateString(v js.Value) (string, bool) {
	if v.Type() != js.TypeString {
		return "", false
	}
	return v.String(), true
}

// recoverJS converts a panic raised by a failing JS call into an error.
func recoverJS(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("history: browser call failed: %v", r)
	}
}
