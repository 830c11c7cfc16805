package relfetch

import (
	"context"
	"errors"
	"io/fs"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/release"
)

// RepoInstall describes which release of one repository to install.
type RepoInstall struct {
	fetch        *Fetch
	repo         string
	version      release.VersionSpec
	allowUpgrade bool
}

// Latest installs the newest release and upgrades existing installs.
func (r *RepoInstall) Latest() *RepoInstall {
	r.version = release.Latest()
	r.allowUpgrade = true
	return r
}

// Version installs tag when nothing is installed yet. An existing install
// is left alone unless AllowUpgrade is chained after it.
func (r *RepoInstall) Version(tag string) *RepoInstall {
	r.version = release.Explicit(tag)
	r.allowUpgrade = false
	return r
}

// AllowUpgrade lets an existing install move to the latest release. The
// tag given to Version only applies to a fresh install.
func (r *RepoInstall) AllowUpgrade() *RepoInstall {
	r.allowUpgrade = true
	return r
}

// InstalledVersion returns the tag recorded in the install directory, or ""
// when nothing is installed there.
func (r *RepoInstall) InstalledVersion() (string, error) {
	st, err := release.ReadState(r.fetch.installDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return st.Tag, nil
}

// Install fetches the asset named by assetName for the resolved tag.
// assetName is called again with the new tag on every upgrade.
func (r *RepoInstall) Install(ctx context.Context, assetName func(tag string) string) (*Result, error) {
	if assetName == nil {
		return nil, errors.New("asset name function is required")
	}
	return r.install(ctx, func(*release.Client) (release.AssetResolver, error) {
		return release.AssetNameFunc(assetName), nil
	})
}

// InstallTemplate fetches the asset named by a template such as
// "tool-{version}-{os}-{arch}.tar.gz". See release.AssetTemplate for the
// placeholders.
func (r *RepoInstall) InstallTemplate(ctx context.Context, template string) (*Result, error) {
	return r.install(ctx, func(*release.Client) (release.AssetResolver, error) {
		info, err := r.fetch.detector.Detect(ctx)
		if err != nil {
			return nil, err
		}
		return release.AssetTemplate{Template: template, Platform: info}, nil
	})
}

// InstallPattern fetches the first asset of the release whose name matches
// the regular expression expr.
func (r *RepoInstall) InstallPattern(ctx context.Context, expr string) (*Result, error) {
	return r.install(ctx, func(c *release.Client) (release.AssetResolver, error) {
		return release.NewAssetPattern(c, r.repo, expr)
	})
}

func (r *RepoInstall) install(ctx context.Context, resolver func(*release.Client) (release.AssetResolver, error)) (*Result, error) {
	client, err := r.fetch.client()
	if err != nil {
		return nil, err
	}

	asset, err := resolver(client)
	if err != nil {
		return nil, err
	}

	mgr, err := r.fetch.manager(r.repo, client)
	if err != nil {
		return nil, err
	}

	return mgr.Install(ctx, release.InstallRequest{
		Asset:        asset,
		Version:      r.version,
		AllowUpgrade: r.allowUpgrade,
	})
}
