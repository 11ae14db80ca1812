// Package protocol defines the frames exchanged between a routeagent server
// and the thin browser client.
//
// Frames are JSON objects sent as websocket text messages, one frame per
// message. The client opens with a hello frame carrying its location and
// history state. After that the server sends render, nav_push, nav_replace
// and error frames, and the client sends navigate and popstate frames.
//
//	{"type":"hello","location":{"path":"/about","state":"{\"tab\":1}"}}
//	{"type":"render","html":"<h1>about</h1>"}
//
// Frames larger than MaxMessageSize are rejected.
package protocol
