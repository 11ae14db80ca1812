// Package view provides the render result produced by route resolution.
//
// A Node tree is what a routing option yields for a matched route and what a
// Router holds as its current view. The tree is deliberately small: elements,
// text, fragments, components and raw HTML, plus an HTML printer used for
// server-side rendering and for the render frames pushed to thin clients.
//
//	view.Element("main", view.Class("page"),
//	    view.Element("h1", view.Text("Users")),
//	    view.Link("/users/42", view.Text("Alice")),
//	)
package view
