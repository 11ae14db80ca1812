package agent

import (
	"fmt"

	"github.com/vango-dev/routeagent/pkg/route"
)

// RequestKind enumerates the operations a consumer may ask of the agent.
type RequestKind uint8

const (
	// KindReplaceRoute rewrites the current entry and broadcasts.
	KindReplaceRoute RequestKind = iota
	// KindReplaceRouteNoBroadcast rewrites the current entry silently.
	KindReplaceRouteNoBroadcast
	// KindChangeRoute pushes a new entry and broadcasts.
	KindChangeRoute
	// KindChangeRouteNoBroadcast pushes a new entry silently.
	KindChangeRouteNoBroadcast
	// KindGetCurrentRoute answers the requester with the current route.
	KindGetCurrentRoute
)

var kindNames = [...]string{
	KindReplaceRoute:            "ReplaceRoute",
	KindReplaceRouteNoBroadcast: "ReplaceRouteNoBroadcast",
	KindChangeRoute:             "ChangeRoute",
	KindChangeRouteNoBroadcast:  "ChangeRouteNoBroadcast",
	KindGetCurrentRoute:         "GetCurrentRoute",
}

// String returns the kind name.
func (k RequestKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("RequestKind(%d)", k)
}

// MarshalText implements encoding.TextMarshaler.
func (k RequestKind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("agent: unknown request kind %d", k)
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RequestKind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = RequestKind(i)
			return nil
		}
	}
	return fmt.Errorf("agent: unknown request kind %q", text)
}

// Broadcasts reports whether requests of this kind notify every subscriber.
func (k RequestKind) Broadcasts() bool {
	return k == KindReplaceRoute || k == KindChangeRoute
}

// Request is a message from a consumer to the agent.
type Request[T any] struct {
	Kind  RequestKind    `json:"kind"`
	Route route.Route[T] `json:"route"`
}

// ReplaceRoute rewrites the current history entry with r and broadcasts the
// re-read result.
func ReplaceRoute[T any](r route.Route[T]) Request[T] {
	return Request[T]{Kind: KindReplaceRoute, Route: r}
}

// ReplaceRouteNoBroadcast rewrites the current history entry with r without
// notifying anyone.
func ReplaceRouteNoBroadcast[T any](r route.Route[T]) Request[T] {
	return Request[T]{Kind: KindReplaceRouteNoBroadcast, Route: r}
}

// ChangeRoute pushes a history entry for r and broadcasts the re-read result.
func ChangeRoute[T any](r route.Route[T]) Request[T] {
	return Request[T]{Kind: KindChangeRoute, Route: r}
}

// ChangeRouteNoBroadcast pushes a history entry for r without notifying
// anyone.
func ChangeRouteNoBroadcast[T any](r route.Route[T]) Request[T] {
	return Request[T]{Kind: KindChangeRouteNoBroadcast, Route: r}
}

// GetCurrentRoute asks for the current route. Only the requesting Bridge
// receives the answer.
func GetCurrentRoute[T any]() Request[T] {
	return Request[T]{Kind: KindGetCurrentRoute}
}
