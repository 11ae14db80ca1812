package main

import (
	"encoding/json"
	"log/slog"
	"strings"

	rerrors "github.com/vango-dev/routeagent/internal/errors"
	"github.com/vango-dev/routeagent/pkg/route"
	"github.com/vango-dev/routeagent/pkg/routing"
	"github.com/vango-dev/routeagent/pkg/view"
)

// State is the route state routectl handles: any JSON object.
type State map[string]any

// defaultRoutes is used when the configuration has no route table.
var defaultRoutes = []routing.Rule{
	{When: `path == "/"`, View: "home"},
	{When: `path == "/state" && has_state`, View: "state"},
	{View: "page"},
}

// views are the renderers a route table can name.
var views = map[string]func(route.Route[State]) *view.Node{
	"home":      homeView,
	"page":      pageView,
	"state":     stateView,
	"not_found": notFoundView,
}

func homeView(route.Route[State]) *view.Node {
	return view.Fragment(
		view.Element("h1", "Home"),
		view.Element("ul",
			view.Element("li", view.Link("/docs/getting-started", "Getting started")),
			view.Element("li", view.Link("/docs/routing?tab=1#table", "Route tables")),
			view.Element("li", view.Link("/state", "Current state")),
		),
	)
}

func pageView(r route.Route[State]) *view.Node {
	path, query, fragment := r.Split()

	items := []*view.Node{}
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg != "" {
			items = append(items, view.Element("li", seg))
		}
	}

	return view.Fragment(
		view.Element("h1", path),
		view.Element("ul", view.Class("segments"), items),
		optional("p", "query", query),
		optional("p", "fragment", fragment),
		view.Element("p", view.Link("/", "Home")),
	)
}

func stateView(r route.Route[State]) *view.Node {
	state, _ := r.State()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		data = []byte(err.Error())
	}
	return view.Fragment(
		view.Element("h1", "State"),
		view.Element("pre", string(data)),
	)
}

func notFoundView(r route.Route[State]) *view.Node {
	return view.Fragment(
		view.Element("h1", "Not found"),
		view.Element("p", r.Path),
	)
}

func optional(tag, class, text string) *view.Node {
	if text == "" {
		return nil
	}
	return view.Element(tag, view.Class(class), text)
}

// routeTable compiles the configured rules, or the defaults, into options.
func routeTable(rules []routing.Rule, logger *slog.Logger) ([]routing.Rule, []routing.Option[State], error) {
	if len(rules) == 0 {
		rules = defaultRoutes
	}

	ev, err := routing.NewEvaluator(logger)
	if err != nil {
		return nil, nil, err
	}
	options, err := routing.Table(ev, rules, views)
	if err != nil {
		return nil, nil, rerrors.New("E112").
			WithSuggestion("Known views: home, page, state, not_found").
			Wrap(err)
	}
	if n := routing.Reachable(options); n < len(options) {
		logger.Warn("route rules after an unconditional rule are unreachable",
			"reachable", n, "total", len(options))
	}
	return rules, options, nil
}
