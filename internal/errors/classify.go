package errors

import (
	stderrors "errors"

	"github.com/vango-dev/routeagent/pkg/agent"
	"github.com/vango-dev/routeagent/pkg/history"
	"github.com/vango-dev/routeagent/pkg/protocol"
	"github.com/vango-dev/routeagent/pkg/snapshot"
)

var sentinels = []struct {
	err  error
	code string
}{
	{agent.ErrAdapterUnavailable, "E100"},
	{history.ErrUnsupported, "E100"},
	{agent.ErrStateTypeMismatch, "E101"},
	{agent.ErrClosed, "E102"},
	{history.ErrClosed, "E102"},
	{snapshot.ErrStoreClosed, "E121"},
	{protocol.ErrInvalidFrameData, "E131"},
}

// Classify maps err onto a registered code by matching the package sentinels
// it wraps. Errors that are already *Error pass through. Anything unknown is
// returned with fallback as its code, or uncoded when fallback is empty.
func Classify(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	for _, s := range sentinels {
		if stderrors.Is(err, s.err) {
			return New(s.code).Wrap(err)
		}
	}
	if fallback == "" {
		return &Error{Message: err.Error()}
	}
	return New(fallback).Wrap(err)
}
