package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routeagent/internal/config"
	rerrors "github.com/vango-dev/routeagent/internal/errors"
	"github.com/vango-dev/routeagent/pkg/agent"
	"github.com/vango-dev/routeagent/pkg/history"
	"github.com/vango-dev/routeagent/pkg/route"
	"github.com/vango-dev/routeagent/pkg/routepath"
	"github.com/vango-dev/routeagent/pkg/snapshot"
)

// navTimeout bounds the wait for the agent's answer.
const navTimeout = 5 * time.Second

// navigator is a route agent over a persisted in-memory history, with one
// bridge collecting what the agent sends back.
type navigator struct {
	cfg    *config.Config
	store  snapshot.Store
	hist   *history.Memory
	agent  *agent.Agent[State]
	bridge *agent.Bridge[State]
	routes chan route.Route[State]
}

func openNavigator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*navigator, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	n := &navigator{cfg: cfg, store: store, routes: make(chan route.Route[State], 4)}

	data, err := store.Load(ctx, cfg.Snapshot.ID)
	if err != nil {
		n.Close()
		return nil, rerrors.Classify(err, "E120")
	}
	if data == nil {
		n.hist = history.NewMemory("/")
	} else if n.hist, err = history.RestoreMemory(data); err != nil {
		n.Close()
		return nil, rerrors.New("E120").
			WithDetail("Saved history " + strconv.Quote(cfg.Snapshot.ID) + " is unreadable").
			WithSuggestion("Run 'routectl nav reset' to start over").
			Wrap(err)
	}

	if n.agent, err = agent.New[State](n.hist, agent.WithLogger(logger)); err != nil {
		n.Close()
		return nil, err
	}
	n.bridge, err = n.agent.Bridge(ctx, func(r route.Route[State]) {
		select {
		case n.routes <- r:
		default:
			logger.Warn("route dropped", "path", r.Path)
		}
	})
	if err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

// request sends req and waits for the route it produces.
func (n *navigator) request(ctx context.Context, req agent.Request[State]) (route.Route[State], error) {
	if err := n.bridge.Send(ctx, req); err != nil {
		return route.Route[State]{}, err
	}
	return n.await(ctx)
}

func (n *navigator) await(ctx context.Context) (route.Route[State], error) {
	ctx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	select {
	case r := <-n.routes:
		return r, nil
	case <-ctx.Done():
		return route.Route[State]{}, rerrors.New("E102").
			WithDetail("The route agent did not answer").
			Wrap(ctx.Err())
	}
}

// save persists the history under the configured id.
func (n *navigator) save(ctx context.Context) error {
	data, err := n.hist.Snapshot()
	if err != nil {
		return rerrors.New("E120").Wrap(err)
	}
	var expiresAt time.Time
	if ttl := n.cfg.Snapshot.TTL.D(); ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	if err := n.store.Save(ctx, n.cfg.Snapshot.ID, data, expiresAt); err != nil {
		return rerrors.Classify(err, "E120")
	}
	return nil
}

func (n *navigator) Close() error {
	if n.bridge != nil {
		n.bridge.Close()
	}
	if n.agent != nil {
		n.agent.Close()
	}
	if n.hist != nil {
		n.hist.Close()
	}
	return n.store.Close()
}

func navCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nav",
		Short: "Drive a persisted navigation history",
		Long: `Drive a navigation history through a route agent.

The history is kept in the configured snapshot backend between runs, so
successive commands behave like one browser tab.

Examples:
  routectl nav push /users/42 --state='{"tab":2}'
  routectl nav back
  routectl nav current
  routectl nav list`,
	}

	cmd.AddCommand(
		navWriteCmd(g, "push", "Push a new history entry", agent.ChangeRoute[State], agent.ChangeRouteNoBroadcast[State]),
		navWriteCmd(g, "replace", "Replace the current history entry", agent.ReplaceRoute[State], agent.ReplaceRouteNoBroadcast[State]),
		navMoveCmd(g, "back", "Go back one entry", -1),
		navMoveCmd(g, "forward", "Go forward one entry", 1),
		navGoCmd(g),
		navCurrentCmd(g),
		navListCmd(g),
		navResetCmd(g),
	)
	return cmd
}

// withNavigator loads the configuration, opens a navigator, runs fn and
// closes it again.
func withNavigator(cmd *cobra.Command, g *globals, fn func(ctx context.Context, n *navigator) error) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	n, err := openNavigator(ctx, cfg, newLogger(cmd.ErrOrStderr(), cfg.Log))
	if err != nil {
		return err
	}
	defer n.Close()
	return fn(ctx, n)
}

func navWriteCmd(g *globals, use, short string, broadcast, silent func(route.Route[State]) agent.Request[State]) *cobra.Command {
	var (
		state string
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   use + " URL",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRoute(args[0], state)
			if err != nil {
				return err
			}
			return withNavigator(cmd, g, func(ctx context.Context, n *navigator) error {
				var (
					got route.Route[State]
					err error
				)
				if quiet {
					// Nothing is broadcast, so ask for the result.
					if err := n.bridge.Send(ctx, silent(r)); err != nil {
						return err
					}
					got, err = n.request(ctx, agent.GetCurrentRoute[State]())
				} else {
					got, err = n.request(ctx, broadcast(r))
				}
				if err != nil {
					return err
				}
				if err := n.save(ctx); err != nil {
					return err
				}
				printRoute(cmd.OutOrStdout(), got)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Route state as a JSON object")
	cmd.Flags().BoolVar(&quiet, "no-broadcast", false, "Update the history without notifying subscribers")

	return cmd
}

func navMoveCmd(g *globals, use, short string, delta int) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNavigator(cmd, g, func(ctx context.Context, n *navigator) error {
				return move(ctx, cmd.OutOrStdout(), n, delta)
			})
		},
	}
}

func navGoCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "go DELTA",
		Short: "Move by DELTA entries (use -- before negative values)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.Atoi(args[0])
			if err != nil {
				return rerrors.Newf(rerrors.CategoryCLI, "invalid delta %q", args[0]).Wrap(err)
			}
			return withNavigator(cmd, g, func(ctx context.Context, n *navigator) error {
				return move(ctx, cmd.OutOrStdout(), n, delta)
			})
		},
	}
}

// move walks the history and prints the route the resulting pop-state
// broadcast carries.
func move(ctx context.Context, w io.Writer, n *navigator, delta int) error {
	if !n.hist.Go(delta) {
		return rerrors.New("E140").WithDetail(fmt.Sprintf(
			"At entry %d of %d, moving %+d leaves the history", n.hist.Index()+1, n.hist.Len(), delta))
	}
	r, err := n.await(ctx)
	if err != nil {
		return err
	}
	if err := n.save(ctx); err != nil {
		return err
	}
	printRoute(w, r)
	return nil
}

func navCurrentCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the current route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNavigator(cmd, g, func(ctx context.Context, n *navigator) error {
				r, err := n.request(ctx, agent.GetCurrentRoute[State]())
				if err != nil {
					return err
				}
				printRoute(cmd.OutOrStdout(), r)
				return nil
			})
		},
	}
}

func navListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the history entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withNavigator(cmd, g, func(ctx context.Context, n *navigator) error {
				w := cmd.OutOrStdout()
				index := n.hist.Index()
				for i, e := range n.hist.Entries() {
					marker := " "
					if i == index {
						marker = ">"
					}
					line := fmt.Sprintf("%s %d  %s", marker, i, e.URL)
					if e.HasState && e.State != "null" {
						line += "  " + e.State
					}
					fmt.Fprintln(w, line)
				}
				return nil
			})
		},
	}
}

func navResetCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the saved history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), cfg.Snapshot.ID); err != nil {
				return rerrors.Classify(err, "E120")
			}
			success(cmd.OutOrStdout(), "Deleted history %q", cfg.Snapshot.ID)
			return nil
		},
	}
}

// parseRoute builds a route from a URL argument and an optional JSON state.
// The URL is canonicalized first.
func parseRoute(raw, state string) (route.Route[State], error) {
	url, err := routepath.URL(raw)
	if err != nil {
		return route.Route[State]{}, rerrors.Newf(rerrors.CategoryCLI, "invalid route URL %q", raw).
			WithSuggestion("Routes are paths such as /users/42?tab=2#top").
			Wrap(err)
	}
	if state == "" {
		return route.New[State](url), nil
	}
	s, err := route.JSONCodec[State]{}.Decode(state)
	if err != nil {
		return route.Route[State]{}, rerrors.Newf(rerrors.CategoryCLI, "invalid route state").
			WithField("--state").
			WithSuggestion(`Pass a JSON object, e.g. --state='{"tab":2}'`).
			Wrap(err)
	}
	return route.WithState(url, s), nil
}

func printRoute(w io.Writer, r route.Route[State]) {
	fmt.Fprintln(w, r.Path)
	if s, ok := r.State(); ok && len(s) > 0 {
		data, err := json.Marshal(s)
		if err == nil {
			fmt.Fprintf(w, "  state: %s\n", data)
		}
	}
}
