package main

import (
	"fmt"

	"github.com/spf13/cobra"

	rerrors "github.com/vango-dev/routeagent/internal/errors"
	"github.com/vango-dev/routeagent/pkg/routing"
	"github.com/vango-dev/routeagent/pkg/view"
)

func resolveCmd(g *globals) *cobra.Command {
	var (
		state    string
		showHTML bool
	)

	cmd := &cobra.Command{
		Use:   "resolve URL",
		Short: "Show which route rule a URL matches",
		Long: `Resolve a URL against the configured route table. The first rule
whose expression holds wins, exactly as in a served session.

Examples:
  routectl resolve /
  routectl resolve '/users/42?tab=2' --html
  routectl resolve /state --state='{"theme":"dark"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Log)

			rules, options, err := routeTable(cfg.Routes, logger)
			if err != nil {
				return err
			}
			r, err := parseRoute(args[0], state)
			if err != nil {
				return err
			}

			node, index, ok := routing.Resolve(options, r)
			if !ok {
				return rerrors.New("E113").WithDetail(fmt.Sprintf("No rule matched %s", r.Path))
			}

			w := cmd.OutOrStdout()
			rule := rules[index]
			when := rule.When
			if when == "" {
				when = "(always)"
			}
			fmt.Fprintf(w, "rule %d: %s -> %s\n", index, when, rule.View)

			if showHTML {
				html, err := view.HTML(node)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, html)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Route state as a JSON object")
	cmd.Flags().BoolVar(&showHTML, "html", false, "Print the rendered view")

	return cmd
}
