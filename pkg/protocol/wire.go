package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxMessageSize bounds a single frame read from a client.
const MaxMessageSize = 64 << 10

// FrameType names the kind of a frame.
type FrameType string

const (
	// Client to server.
	FrameHello    FrameType = "hello"    // first frame, carries the browser location
	FramePopState FrameType = "popstate" // user pressed back/forward
	FrameNavigate FrameType = "navigate" // user followed a data-link anchor

	// Server to client.
	FrameNavPush    FrameType = "nav_push"    // history.pushState
	FrameNavReplace FrameType = "nav_replace" // history.replaceState
	FrameRender     FrameType = "render"      // replace the app root's HTML
	FrameError      FrameType = "error"
)

// ErrorCode identifies the type of error.
type ErrorCode uint16

const (
	ErrUnknown      ErrorCode = 0x0000 // Unknown error
	ErrInvalidFrame ErrorCode = 0x0001 // Malformed frame
	ErrHandshake    ErrorCode = 0x0002 // Missing or bad hello
	ErrServerError  ErrorCode = 0x0100 // Internal server error
)

// String returns the string representation of the error code.
func (ec ErrorCode) String() string {
	switch ec {
	case ErrInvalidFrame:
		return "InvalidFrame"
	case ErrHandshake:
		return "Handshake"
	case ErrServerError:
		return "ServerError"
	default:
		return "Unknown"
	}
}

// Location is a browser location as reported by the thin client.
// State is the raw history.state string, nil when the entry has none.
type Location struct {
	Path     string  `json:"path"`
	Query    string  `json:"query,omitempty"`
	Fragment string  `json:"fragment,omitempty"`
	State    *string `json:"state,omitempty"`
}

// Frame is a single JSON message on the websocket.
type Frame struct {
	Type FrameType `json:"type"`

	// hello, popstate
	Location *Location `json:"location,omitempty"`

	// navigate, nav_push, nav_replace
	URL     string  `json:"url,omitempty"`
	State   *string `json:"state,omitempty"`
	Replace bool    `json:"replace,omitempty"`

	// render
	HTML string `json:"html,omitempty"`

	// error
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
}

// ErrInvalidFrameData is returned by Decode for frames that fail validation.
var ErrInvalidFrameData = errors.New("protocol: invalid frame")

// NewNavPush returns a frame asking the client to push a history entry.
func NewNavPush(url, state string) Frame {
	return Frame{Type: FrameNavPush, URL: url, State: &state}
}

// NewNavReplace returns a frame asking the client to replace the current entry.
func NewNavReplace(url, state string) Frame {
	return Frame{Type: FrameNavReplace, URL: url, State: &state}
}

// NewRender returns a frame carrying rendered HTML for the app root.
func NewRender(html string) Frame {
	return Frame{Type: FrameRender, HTML: html}
}

// NewError returns an error frame.
func NewError(code ErrorCode, message string) Frame {
	return Frame{Type: FrameError, Code: code, Message: message}
}

// Validate checks that the fields required by the frame type are present.
func (f Frame) Validate() error {
	switch f.Type {
	case FrameHello, FramePopState:
		if f.Location == nil {
			return fmt.Errorf("%w: %s without location", ErrInvalidFrameData, f.Type)
		}
	case FrameNavigate, FrameNavPush, FrameNavReplace:
		if f.URL == "" {
			return fmt.Errorf("%w: %s without url", ErrInvalidFrameData, f.Type)
		}
	case FrameRender, FrameError:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidFrameData, f.Type)
	}
	return nil
}

// Decode parses and validates a frame.
func Decode(data []byte) (Frame, error) {
	if len(data) > MaxMessageSize {
		return Frame{}, fmt.Errorf("%w: %d bytes exceeds limit", ErrInvalidFrameData, len(data))
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidFrameData, err)
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Encode serializes a frame.
func Encode(f Frame) ([]byte, error) {
	return json.Marshal(f)
}
