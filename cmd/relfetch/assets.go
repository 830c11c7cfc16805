package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAssetsCmd(a *app) *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "assets <owner/name>",
		Short: "List the assets of a release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAssets(cmd, args[0], version)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "release tag (default: latest)")
	return cmd
}

func (a *app) runAssets(cmd *cobra.Command, repo, tag string) error {
	ctx := cmd.Context()

	client, err := a.client()
	if err != nil {
		return err
	}

	if tag == "" {
		if tag, err = client.LatestTag(ctx, repo); err != nil {
			return err
		}
	}

	names, err := client.ReleaseAssets(ctx, repo, tag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	s := newStyles(out)
	_, _ = fmt.Fprintf(out, "%s %s\n", s.label.Render(repo), s.value.Render(tag))
	for _, name := range names {
		_, _ = fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}
