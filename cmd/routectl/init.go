package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routeagent/internal/config"
	rerrors "github.com/vango-dev/routeagent/internal/errors"
)

func initCmd(g *globals) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.ConfigFileName,
		Long: `Write a configuration file holding the defaults and the built-in
route table, ready to edit.

Examples:
  routectl init
  routectl init -C ./site --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := g.dir
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = wd
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	if config.Exists(dir) && !force {
		return rerrors.Newf(rerrors.CategoryConfig, "%s already exists in %s", config.ConfigFileName, dir).
			WithSuggestion("Use --force to overwrite it")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rerrors.New("E111").Wrap(err)
	}

	cfg := config.New()
	cfg.Routes = append(cfg.Routes, defaultRoutes...)

	path := filepath.Join(dir, config.ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	success(cmd.OutOrStdout(), "Wrote %s", path)
	return nil
}
