package history

import "errors"

var (
	// ErrUnsupported is returned when the host offers no history or
	// location support. It is fatal for anything built on a History.
	ErrUnsupported = errors.New("history: navigation history not supported")

	// ErrCallbackRegistered is returned by OnPopState when a callback has
	// already been registered on the adapter.
	ErrCallbackRegistered = errors.New("history: pop-state callback already registered")

	// ErrClosed is returned by writes on a closed adapter.
	ErrClosed = errors.New("history: adapter closed")
)

// History is the navigation adapter the routing agent drives.
//
// Implementations wrap a real browser history, a remote browser reached over
// a connection, or an in-memory stack. Every method except OnPopState may be
// called many times; OnPopState accepts exactly one callback per adapter.
type History interface {
	// Location returns the current path, query and fragment. The query keeps
	// its "?" and the fragment its "#".
	Location() (path, query, fragment string)

	// Push creates a new history entry for url carrying state.
	Push(url, state string) error

	// Replace rewrites the current history entry.
	Replace(url, state string) error

	// State returns the state string stored on the current entry, if any.
	State() (string, bool)

	// OnPopState registers fn to be called whenever the user navigates
	// back or forward. fn receives the state string of the entry navigated
	// to; ok is false when that entry carries none. Calls are delivered
	// asynchronously and in order.
	OnPopState(fn func(state string, ok bool)) error
}
