package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routeagent/internal/config"
	rerrors "github.com/vango-dev/routeagent/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬─┐┌─┐┬ ┬┌┬┐┌─┐┌─┐┌─┐┌─┐┌┐┌┌┬┐
  ├┬┘│ ││ │ │ ├┤ ├─┤│ ┬├┤ │││ │
  ┴└─└─┘└─┘ ┴ └─┘┴ ┴└─┘└─┘┘└┘ ┴
`

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		rerrors.PrintError(os.Stderr, rerrors.Classify(err, ""))
		os.Exit(1)
	}
}

// globals holds the persistent flags shared by every command.
type globals struct {
	dir       string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "routectl",
		Short: "Serve and drive route agents",
		Long: `routectl hosts and exercises routeagent applications.

A route agent owns the navigation history and broadcasts every route
change to its subscribers. routectl can:

  • Serve a route table to browsers over a websocket session
  • Push, replace and walk a persisted navigation history
  • Resolve a URL against the configured route table`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.dir, "dir", "C", "", "Directory holding "+config.ConfigFileName+" (default: nearest parent of the working directory)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format override (text, json)")

	rootCmd.AddCommand(
		initCmd(g),
		serveCmd(g),
		navCmd(g),
		resolveCmd(g),
		versionCmd(),
	)
	return rootCmd
}

// load reads and validates the configuration the flags point at.
func (g *globals) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.dir != "" {
		cfg, err = config.Load(g.dir)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}

	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// printBanner prints the routectl ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
