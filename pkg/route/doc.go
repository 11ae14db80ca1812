// Package route defines the location value shared by every routing component.
//
// A Route pairs a path string (path, query and fragment concatenated) with an
// optional state payload of a type chosen once per application:
//
//	type AppState struct {
//	    Tab int `json:"tab"`
//	}
//
//	r := route.WithState("/settings?view=full#profile", AppState{Tab: 2})
//	path, query, fragment := r.Split() // "/settings", "?view=full", "#profile"
//
// State payloads travel through navigation history as strings. A Codec does
// the conversion; JSONCodec is the default. Callers that fail to decode a
// payload substitute the zero value of the state type and carry on.
package route
