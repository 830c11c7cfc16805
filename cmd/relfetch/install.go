package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/release"
)

type installOptions struct {
	dir     string
	version string
	asset   string
	pattern string
	upgrade bool
}

func newInstallCmd(a *app) *cobra.Command {
	var opts installOptions

	cmd := &cobra.Command{
		Use:   "install <owner/name>",
		Short: "Install or upgrade a release asset",
		Long: `Install a release asset of a GitHub repository into a directory.

The asset is named by a template (--asset) or picked by a regular
expression over the release's assets (--pattern). Templates support
{tag}, {version}, {os}, {arch}, {uname_arch} and {exe}.

Without --version the latest release is installed and existing installs
are upgraded. With --version a fresh install fetches that tag and an
existing install is left alone unless --upgrade is given, which moves it
to the latest release.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("upgrade") {
				opts.upgrade = opts.version == ""
			}
			return a.runInstall(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "install directory (default: install_dir setting)")
	cmd.Flags().StringVar(&opts.version, "version", "", "release tag to install (default: latest)")
	cmd.Flags().StringVarP(&opts.asset, "asset", "a", "", "asset file name template")
	cmd.Flags().StringVarP(&opts.pattern, "pattern", "p", "", "regular expression selecting the asset")
	cmd.Flags().BoolVar(&opts.upgrade, "upgrade", false, "upgrade an existing install (default: true without --version)")
	cmd.MarkFlagsMutuallyExclusive("asset", "pattern")
	cmd.MarkFlagsOneRequired("asset", "pattern")

	return cmd
}

func (a *app) runInstall(cmd *cobra.Command, repo string, opts installOptions) error {
	ctx := cmd.Context()

	client, err := a.client()
	if err != nil {
		return err
	}

	resolver, err := a.resolver(cmd, client, repo, opts)
	if err != nil {
		return err
	}

	mgr, err := a.manager(repo, a.installDir(opts.dir), client, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	version := release.Latest()
	if opts.version != "" {
		version = release.Explicit(opts.version)
	}

	res, err := mgr.Install(ctx, release.InstallRequest{
		Asset:        resolver,
		Version:      version,
		AllowUpgrade: opts.upgrade,
	})
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), res)
	return nil
}

func (a *app) resolver(cmd *cobra.Command, client *release.Client, repo string, opts installOptions) (release.AssetResolver, error) {
	switch {
	case opts.pattern != "":
		return release.NewAssetPattern(client, repo, opts.pattern)
	case opts.asset != "":
		info, err := a.detector.Detect(cmd.Context())
		if err != nil {
			return nil, err
		}
		return release.AssetTemplate{Template: opts.asset, Platform: info}, nil
	default:
		return nil, errors.New("one of --asset or --pattern is required")
	}
}
