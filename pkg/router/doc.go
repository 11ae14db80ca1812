// Package router hosts a routed view.
//
// A Router subscribes to a routing agent, asks for the current route once
// connected, and re-renders through routing.OneOf whenever a different
// route arrives or its option list changes. A route equal to the one already
// held does not re-render.
//
// # Usage
//
//	r, err := router.New(ctx, agent.Shared[State](reg), []routing.Option[State]{
//	    routing.When(isHome, homePage),
//	    routing.ComponentFromRoute[State](newUserPage),
//	    routing.Children(notFound),
//	}, router.WithOnRender(push))
//
//	r.Navigate(ctx, "/users/42", State{}, router.WithReplace())
//
// Updates arrive on the bridge's goroutine. Hosts that render on their own
// event loop pass WithDispatch to hop onto it.
package router
