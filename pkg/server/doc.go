// Package server hosts a route agent per browser tab over a websocket.
//
// A page request gets an HTML shell holding the server-rendered view for its
// URL and the thin client script. The script opens /_routeagent/ws and sends
// a hello frame with the browser's location. The session then builds:
//
//   - a history.Remote mirroring the tab's history,
//   - an agent.Agent over that history,
//   - a router.Router resolving the application's route options.
//
// Every render the Router produces is pushed to the tab as a render frame.
// Link clicks arrive as navigate frames and go to the agent through a
// Dispatcher; back and forward arrive as popstate frames. Pushes and
// replaces made by the agent travel back as nav_push and nav_replace.
//
// Every HTTP request runs through the tracing and request metrics middleware
// of package middleware. Health checks and metric scrapes are not traced.
//
// # Usage
//
//	srv := server.New(server.DefaultConfig(), server.App[State]{
//	    Title:   "Docs",
//	    Options: routes,
//	})
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
