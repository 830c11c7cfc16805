package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/lock"
)

// Manager orchestrates version resolution, download, extraction and version
// state for one repository installed into one directory.
type Manager struct {
	repo        Repo
	installDir  string
	client      *Client
	fetcher     *Fetcher
	logger      Logger
	lock        bool
	lockTimeout time.Duration
}

// Config holds configuration for the install manager
type Config struct {
	// Repo is the owner/name repository identifier
	Repo string
	// InstallDir receives the extracted asset and the version state file
	InstallDir string
	// Client resolves tags and builds download URLs (default: NewClient())
	Client *Client
	// Fetcher downloads and unpacks assets (default: NewFetcher sharing Client's HTTP client)
	Fetcher *Fetcher
	// Logger receives state transitions (default: no-op)
	Logger Logger
	// Lock guards the install with a sibling lock file
	Lock bool
	// LockTimeout is how long to wait for a busy lock
	LockTimeout time.Duration
}

// InstallRequest describes one install call.
type InstallRequest struct {
	// Asset maps the tag being installed to an asset file name. It is
	// consulted on fresh installs and again on upgrades.
	Asset AssetResolver
	// Version is the tag for a fresh install; the zero value means latest.
	Version VersionSpec
	// AllowUpgrade re-checks an existing install against the remote latest
	// release, whatever Version says.
	AllowUpgrade bool
}

// NewManager creates a new install manager
func NewManager(config Config) (*Manager, error) {
	repo, err := ParseRepo(config.Repo)
	if err != nil {
		return nil, err
	}

	if config.InstallDir == "" {
		return nil, fmt.Errorf("InstallDir is required")
	}

	// Upgrades remove the directory, which fails for "." and friends.
	installDir, err := filepath.Abs(config.InstallDir)
	if err != nil {
		return nil, &FilesystemError{Op: "resolve install directory", Path: config.InstallDir, Err: err}
	}

	client := config.Client
	if client == nil {
		client = NewClient()
	}

	fetcher := config.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher(WithFetchHTTPClient(client.HTTPClient()))
	}

	logger := config.Logger
	if logger == nil {
		logger = defaultLogger()
	}

	return &Manager{
		repo:        repo,
		installDir:  installDir,
		client:      client,
		fetcher:     fetcher,
		logger:      logger,
		lock:        config.Lock,
		lockTimeout: config.LockTimeout,
	}, nil
}

// Repo returns the configured repository.
func (m *Manager) Repo() Repo {
	return m.repo
}

// InstallDir returns the install directory as an absolute path.
func (m *Manager) InstallDir() string {
	return m.installDir
}

// InstalledVersion reads the version state of the install directory.
func (m *Manager) InstalledVersion() (*VersionState, error) {
	return ReadState(m.installDir)
}

// Install runs the install state machine:
//
//	no version state             -> fresh install
//	state, upgrades not allowed  -> skipped, no network call
//	state for another repository -> ForeignInstallationError
//	state already at latest tag  -> up-to-date
//	otherwise                    -> remove the directory, re-fetch latest, write state
//
// A failure after the directory was removed leaves it without version
// state, so the next call takes the fresh install path.
func (m *Manager) Install(ctx context.Context, req InstallRequest) (*Result, error) {
	if req.Asset == nil {
		return nil, errors.New("asset resolver is required")
	}

	start := time.Now()

	if m.lock {
		l, err := lock.Acquire(ctx, lock.PathFor(m.installDir), lock.Options{Wait: m.lockTimeout})
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", m.installDir, err)
		}
		defer func() {
			if err := l.Release(); err != nil {
				m.logger.Warn("failed to release install lock", "path", l.Path(), "err", err)
			}
		}()
	}

	var (
		res *Result
		err error
	)
	if !StateExists(m.installDir) {
		res, err = m.freshInstall(ctx, req)
	} else if !req.AllowUpgrade {
		res = m.skip()
	} else {
		res, err = m.upgrade(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	m.logger.Info("install finished",
		"repo", res.Repo,
		"dir", res.Dir,
		"action", string(res.Action),
		"tag", res.Tag,
		"previous", res.PreviousTag,
		"direction", string(res.Direction),
		"elapsed", res.Elapsed)
	return res, nil
}

func (m *Manager) freshInstall(ctx context.Context, req InstallRequest) (*Result, error) {
	tag, err := m.targetTag(ctx, req.Version)
	if err != nil {
		return nil, err
	}

	asset, err := m.fetchRelease(ctx, req.Asset, tag)
	if err != nil {
		return nil, err
	}

	return &Result{
		Action: ActionInstalled,
		Repo:   m.repo.String(),
		Dir:    m.installDir,
		Tag:    tag,
		Asset:  asset,
	}, nil
}

// skip reports an existing install without touching the network. The
// state is read only to fill in the result.
func (m *Manager) skip() *Result {
	res := &Result{
		Action: ActionSkipped,
		Repo:   m.repo.String(),
		Dir:    m.installDir,
	}
	if st, err := ReadState(m.installDir); err == nil {
		res.Tag = st.Tag
		res.PreviousTag = st.Tag
	} else {
		m.logger.Debug("could not read version state", "dir", m.installDir, "err", err)
	}
	return res
}

func (m *Manager) upgrade(ctx context.Context, req InstallRequest) (*Result, error) {
	st, err := ReadState(m.installDir)
	if err != nil {
		return nil, err
	}

	if st.Repo != m.repo.String() {
		return nil, &ForeignInstallationError{
			Dir:            m.installDir,
			InstalledRepo:  st.Repo,
			ConfiguredRepo: m.repo.String(),
		}
	}

	// The requested version only picks the first install; upgrades always
	// compare against the remote latest release.
	tag, err := m.client.LatestTag(ctx, m.repo.String())
	if err != nil {
		return nil, err
	}

	if tag == st.Tag {
		m.logger.Debug("already at target version", "repo", st.Repo, "tag", tag)
		return &Result{
			Action:      ActionUpToDate,
			Repo:        st.Repo,
			Dir:         m.installDir,
			Tag:         tag,
			PreviousTag: st.Tag,
		}, nil
	}

	// Resolve before removing anything so a resolver failure is harmless.
	asset, err := req.Asset.ResolveAsset(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("resolve asset for %s %s: %w", m.repo, tag, err)
	}

	direction := CompareTags(st.Tag, tag)
	m.logger.Info("upgrading", "repo", st.Repo, "previous", st.Tag, "tag", tag, "direction", string(direction))

	if err := os.RemoveAll(m.installDir); err != nil {
		return nil, &FilesystemError{Op: "remove directory", Path: m.installDir, Err: err}
	}

	if err := m.fetchAsset(ctx, asset, tag); err != nil {
		return nil, err
	}

	return &Result{
		Action:      ActionUpgraded,
		Repo:        m.repo.String(),
		Dir:         m.installDir,
		Tag:         tag,
		PreviousTag: st.Tag,
		Asset:       asset,
		Direction:   direction,
	}, nil
}

// targetTag resolves latest remotely; explicit tags are used as given.
func (m *Manager) targetTag(ctx context.Context, v VersionSpec) (string, error) {
	if !v.IsLatest() {
		return v.Tag, nil
	}
	return m.client.LatestTag(ctx, m.repo.String())
}

// fetchRelease resolves the asset name for tag and installs it.
func (m *Manager) fetchRelease(ctx context.Context, resolver AssetResolver, tag string) (string, error) {
	asset, err := resolver.ResolveAsset(ctx, tag)
	if err != nil {
		return "", fmt.Errorf("resolve asset for %s %s: %w", m.repo, tag, err)
	}
	if err := m.fetchAsset(ctx, asset, tag); err != nil {
		return "", err
	}
	return asset, nil
}

// fetchAsset downloads asset into the install directory and records tag as
// installed. State is written only after the payload is fully in place.
func (m *Manager) fetchAsset(ctx context.Context, asset, tag string) error {
	if err := os.MkdirAll(m.installDir, 0755); err != nil {
		return &FilesystemError{Op: "create directory", Path: m.installDir, Err: err}
	}

	url := m.client.AssetURL(m.repo, tag, asset)
	m.logger.Debug("fetching asset", "url", url, "dir", m.installDir)

	if err := m.fetcher.Fetch(ctx, url, m.installDir); err != nil {
		return fmt.Errorf("fetch %s: %w", asset, err)
	}

	return WriteState(m.installDir, VersionState{Tag: tag, Repo: m.repo.String()})
}
