package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/manifest"
)

func newApplyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <manifest.lua>",
		Short: "Run every install declared in a Lua manifest",
		Long: `Run the installs declared in a Lua manifest, in order. The first
failing install stops the run.

  relfetch = {
    installs = {
      { repo = "owner/tool", dir = "./vendor/tool",
        asset = function(tag) return "tool-" .. tag .. "-" .. platform.os .. ".tar.gz" end },
      { repo = "owner/other", dir = "./vendor/other", version = "v1.2.3",
        asset = "other-{version}.zip" },
    },
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runApply(cmd, args[0])
		},
	}
}

func (a *app) runApply(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()

	m, err := manifest.NewParser(a.detector).ParseFile(ctx, path)
	if err != nil {
		var perr *manifest.ParseError
		if errors.As(err, &perr) {
			return errors.New(manifest.FormatError(perr, a.logger.GetLevel() == log.DebugLevel))
		}
		return err
	}
	defer m.Close()

	if len(m.Findings) > 0 {
		a.logger.Warn(manifest.FormatSensitiveDataWarning(m.Findings))
	}

	client, err := a.client()
	if err != nil {
		return err
	}

	runner := &manifest.Runner{
		Client:      client,
		Fetcher:     a.fetcher(client, cmd.ErrOrStderr()),
		Logger:      a.logger,
		Lock:        a.settings.Lock,
		LockTimeout: a.settings.LockTimeoutDuration(),
	}

	results, err := runner.Apply(ctx, m)
	for _, res := range results {
		printResult(cmd.OutOrStdout(), res)
	}
	if err != nil {
		return fmt.Errorf("apply %s: %w", path, err)
	}
	return nil
}
