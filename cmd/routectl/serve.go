package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/routeagent/internal/config"
	"github.com/vango-dev/routeagent/pkg/routing"
	"github.com/vango-dev/routeagent/pkg/server"
)

func serveCmd(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the route table to browsers",
		Long: `Serve the configured route table.

Every browser tab opens a websocket session with its own route agent.
Links marked data-link navigate through the agent instead of loading a
new page, and back/forward are reported to it as pop-state events.

Examples:
  routectl serve
  routectl serve --addr=:3000
  ROUTEAGENT_LOG_LEVEL=debug routectl serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServe(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from "+config.ConfigFileName+")")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log)

	rules, options, err := routeTable(cfg.Routes, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	scfg := &server.Config{
		Addr:             cfg.Server.Addr,
		HandshakeTimeout: cfg.Server.HandshakeTimeout.D(),
		ReadTimeout:      cfg.Server.ReadTimeout.D(),
		WriteTimeout:     cfg.Server.WriteTimeout.D(),
		PingInterval:     cfg.Server.PingInterval.D(),
		MaxMessageSize:   cfg.Server.MaxMessageSize,
		MaxSessions:      cfg.Server.MaxSessions,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		InboxSize:        cfg.Server.InboxSize,
		Namespace:        cfg.Metrics.Namespace,
		Registry:         reg,
		Logger:           logger,
	}
	if cfg.Metrics.Enabled {
		scfg.MetricsPath = cfg.Metrics.Path
	}

	srv := server.New(scfg, server.App[State]{
		Title:   cfg.Server.Title,
		Options: func() []routing.Option[State] { return options },
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	printBanner(out)
	success(out, "Serving %d routes on %s", len(rules), cfg.Server.Addr)
	if scfg.MetricsPath != "" {
		info(out, "Metrics at %s", scfg.MetricsPath)
	}
	if cfg.Path() == "" {
		warn(out, "No %s found, using defaults", config.ConfigFileName)
	}

	return srv.Run(ctx)
}
