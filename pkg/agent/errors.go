package agent

import "errors"

var (
	// ErrAdapterUnavailable is returned when the agent cannot obtain a
	// working navigation history.
	ErrAdapterUnavailable = errors.New("agent: navigation adapter unavailable")

	// ErrClosed is returned by operations on a closed agent, bridge or
	// dispatcher.
	ErrClosed = errors.New("agent: closed")

	// ErrStateTypeMismatch is returned when a registry already serving one
	// state type is asked for another.
	ErrStateTypeMismatch = errors.New("agent: state type mismatch")
)
