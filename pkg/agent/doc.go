// Package agent implements the routing agent: the single owner of the
// current route for one state type.
//
// An Agent sits between a navigation history and any number of consumers.
// Consumers connect through a Bridge, which receives every broadcast, or a
// Dispatcher, which can only send. All reads and writes of the history go
// through the agent's event loop, so the canonical route and the subscriber
// set are never shared between goroutines.
//
// # Requests
//
//	ChangeRoute(r)              push an entry, re-read, broadcast
//	ChangeRouteNoBroadcast(r)   push an entry
//	ReplaceRoute(r)             rewrite the entry, re-read, broadcast
//	ReplaceRouteNoBroadcast(r)  rewrite the entry
//	GetCurrentRoute()           re-read, answer the requester only
//
// Back and forward navigation reported by the history always broadcasts.
//
// # Delivery
//
// Each Bridge owns an unbounded mailbox drained by its own goroutine. A
// broadcast pushes exactly one copy into the mailbox of every subscriber
// connected when the broadcast runs, so the loop never waits on a slow
// consumer and every subscriber sees events in the order the agent produced
// them. Closing a Bridge drops whatever it has not yet received.
//
// # Sharing
//
// A Registry creates one agent lazily on first use, hands it to every
// caller, and tears it down when the last handle closes.
package agent
