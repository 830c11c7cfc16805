package manifest

import (
	"context"
	"fmt"
	"time"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/release"
)

// Runner applies manifests. All installs share its client and fetcher.
type Runner struct {
	Client      *release.Client
	Fetcher     *release.Fetcher
	Logger      release.Logger
	Lock        bool
	LockTimeout time.Duration
}

// Apply runs the manifest's installs in declaration order and stops at the
// first failure. Results of the installs that completed are returned along
// with the error.
func (r *Runner) Apply(ctx context.Context, m *Manifest) ([]*release.Result, error) {
	results := make([]*release.Result, 0, len(m.Installs))

	for i, install := range m.Installs {
		res, err := r.run(ctx, m, install)
		if err != nil {
			return results, fmt.Errorf("install #%d (%s): %w", i+1, install.Repo, err)
		}
		results = append(results, res)
	}

	return results, nil
}

func (r *Runner) run(ctx context.Context, m *Manifest, install Install) (*release.Result, error) {
	resolver, err := m.Resolver(install, r.Client)
	if err != nil {
		return nil, err
	}

	mgr, err := release.NewManager(release.Config{
		Repo:        install.Repo,
		InstallDir:  install.Dir,
		Client:      r.Client,
		Fetcher:     r.Fetcher,
		Logger:      r.Logger,
		Lock:        r.Lock,
		LockTimeout: r.LockTimeout,
	})
	if err != nil {
		return nil, err
	}

	return mgr.Install(ctx, release.InstallRequest{
		Asset:        resolver,
		Version:      install.Version,
		AllowUpgrade: install.Upgrade,
	})
}
