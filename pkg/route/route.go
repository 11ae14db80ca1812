package route

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// Route is a location: a path string plus an optional typed state payload.
//
// Path is the concatenation of the URL path, query and fragment, each already
// carrying its own separator ("/users?tab=2#top"). It is the sole identity key
// of a location.
//
// A Route is a value. It is built fresh on every read of the current location
// and on every write request and is never mutated in place.
type Route[T any] struct {
	Path string

	state    T
	hasState bool
}

// New returns a route for path with no state.
func New[T any](path string) Route[T] {
	return Route[T]{Path: path}
}

// WithState returns a route for path carrying state.
func WithState[T any](path string, state T) Route[T] {
	return Route[T]{Path: path, state: state, hasState: true}
}

// State returns the state payload and whether one is present.
func (r Route[T]) State() (T, bool) {
	return r.state, r.hasState
}

// HasState reports whether the route carries a state payload.
func (r Route[T]) HasState() bool {
	return r.hasState
}

// StateOrDefault returns the state payload, or the zero value of T when absent.
func (r Route[T]) StateOrDefault() T {
	if !r.hasState {
		var zero T
		return zero
	}
	return r.state
}

// String returns the route path.
func (r Route[T]) String() string {
	return r.Path
}

// Split separates Path back into its path, query and fragment parts.
// The query keeps its leading "?" and the fragment its leading "#".
func (r Route[T]) Split() (path, query, fragment string) {
	return SplitRouteString(r.Path)
}

// Equal reports whether a and b name the same location with equal state.
// States are compared structurally, not by identity.
func Equal[T any](a, b Route[T]) bool {
	if a.Path != b.Path || a.hasState != b.hasState {
		return false
	}
	if !a.hasState {
		return true
	}
	return reflect.DeepEqual(a.state, b.state)
}

// Equal reports whether r and other are equal. See the package-level Equal.
func (r Route[T]) Equal(other Route[T]) bool {
	return Equal(r, other)
}

// FormatRouteString joins a path, query and fragment into a route string.
// Each part must already carry its separator ("?" for the query, "#" for the
// fragment); no separators are added.
func FormatRouteString(path, query, fragment string) string {
	return path + query + fragment
}

// SplitRouteString is the inverse of FormatRouteString.
func SplitRouteString(s string) (path, query, fragment string) {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s, fragment = s[:i], s[i:]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s, query = s[:i], s[i:]
	}
	return s, query, fragment
}

type wireRoute[T any] struct {
	Path  string `json:"path"`
	State *T     `json:"state,omitempty"`
}

// MarshalJSON encodes the route as {"path": ..., "state": ...}.
// The state key is omitted when the route carries no state.
func (r Route[T]) MarshalJSON() ([]byte, error) {
	w := wireRoute[T]{Path: r.Path}
	if r.hasState {
		s := r.state
		w.State = &s
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
// An explicit "state": null is treated as absent.
func (r *Route[T]) UnmarshalJSON(data []byte) error {
	var raw struct {
		Path  string          `json:"path"`
		State json.RawMessage `json:"state"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Route[T]{Path: raw.Path}
	if len(raw.State) == 0 || bytes.Equal(raw.State, []byte("null")) {
		return nil
	}
	var s T
	if err := json.Unmarshal(raw.State, &s); err != nil {
		return err
	}
	r.state = s
	r.hasState = true
	return nil
}
