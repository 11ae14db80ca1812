package routing

import (
	"fmt"

	"github.com/vango-dev/routeagent/pkg/route"
	"github.com/vango-dev/routeagent/pkg/view"
)

// Rule is one configured routing entry. An empty When always matches.
type Rule struct {
	When string `json:"when,omitempty"`
	View string `json:"view"`
}

// Table builds an option list from rules, looking each rule's view up in
// views. Unknown view names and invalid expressions fail here rather than
// at resolution time. A nil ev means the shared evaluator.
func Table[T any](ev *Evaluator, rules []Rule, views map[string]func(route.Route[T]) *view.Node) ([]Option[T], error) {
	if ev == nil {
		var err error
		if ev, err = defaultEvaluator(); err != nil {
			return nil, err
		}
	}

	options := make([]Option[T], 0, len(rules))
	for i, rule := range rules {
		render, ok := views[rule.View]
		if !ok {
			return nil, fmt.Errorf("routing: rule %d: unknown view %q", i, rule.View)
		}
		if rule.When == "" {
			options = append(options, Children(render))
			continue
		}
		pred, err := ExprWith[T](ev, rule.When)
		if err != nil {
			return nil, fmt.Errorf("routing: rule %d: %w", i, err)
		}
		options = append(options, When(pred, render))
	}
	return options, nil
}
