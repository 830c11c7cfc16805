// Package relfetch installs GitHub release assets into local directories.
//
// Settings are chained on a Fetch and an install is described per
// repository:
//
//	res, err := relfetch.New().
//		SetInstallDir("./vendor/tool").
//		Repo("owner/tool").
//		Latest().
//		Install(ctx, func(tag string) string { return "tool-" + tag + "-linux-amd64.tar.gz" })
//
// The install directory holds a version.json recording the installed tag.
// Subsequent calls skip, upgrade or reinstall based on it.
package relfetch

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/platform"
	"github.com/ZebulonRouseFrantzich/relfetch/internal/progress"
	"github.com/ZebulonRouseFrantzich/relfetch/internal/release"
)

// Re-exported so callers can name the values Install returns and the
// hooks it accepts.
type (
	Result        = release.Result
	Action        = release.Action
	Direction     = release.Direction
	Logger        = release.Logger
	ProgressEvent = release.ProgressEvent
	ProgressFunc  = release.ProgressFunc
)

const (
	ActionInstalled = release.ActionInstalled
	ActionUpgraded  = release.ActionUpgraded
	ActionUpToDate  = release.ActionUpToDate
	ActionSkipped   = release.ActionSkipped
)

// DefaultLockTimeout bounds the wait for another process installing into
// the same directory.
const DefaultLockTimeout = time.Minute

// Fetch holds settings shared by every install started from it. Setters
// return the receiver for chaining; invalid values are reported by Install.
type Fetch struct {
	installDir  string
	retryCount  int
	retryDelay  time.Duration
	proxy       string
	token       string
	apiURL      string
	downloadURL string
	progress    release.ProgressFunc
	logger      release.Logger
	lock        bool
	lockTimeout time.Duration
	detector    platform.Detector
	errs        []error
}

// New returns a Fetch with defaults: current directory, 3 attempts 3 seconds
// apart, the proxy from HTTPS_PROXY or HTTP_PROXY, console progress on
// stderr and no logging.
func New() *Fetch {
	return &Fetch{
		installDir:  ".",
		retryCount:  release.DefaultRetries,
		retryDelay:  release.DefaultRetryDelay,
		proxy:       proxyFromEnv(),
		apiURL:      release.DefaultAPIBaseURL,
		downloadURL: release.DefaultDownloadBaseURL,
		progress:    progress.Console(os.Stderr),
		lock:        true,
		lockTimeout: DefaultLockTimeout,
		detector:    platform.NewDetector(),
	}
}

func proxyFromEnv() string {
	for _, name := range []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// SetInstallDir sets the directory assets are installed into.
func (f *Fetch) SetInstallDir(dir string) *Fetch {
	if dir == "" {
		f.errs = append(f.errs, errors.New("install dir must not be empty"))
		return f
	}
	f.installDir = dir
	return f
}

// SetRetryCount sets how many times the latest tag lookup is attempted.
func (f *Fetch) SetRetryCount(n int) *Fetch {
	if n < 0 {
		f.errs = append(f.errs, fmt.Errorf("retry count must not be negative, got %d", n))
		return f
	}
	f.retryCount = n
	return f
}

// SetRetryTimeDelay sets the pause between lookup attempts in seconds.
func (f *Fetch) SetRetryTimeDelay(seconds int) *Fetch {
	if seconds < 0 {
		f.errs = append(f.errs, fmt.Errorf("retry delay must not be negative, got %d", seconds))
		return f
	}
	f.retryDelay = time.Duration(seconds) * time.Second
	return f
}

// SetProxy routes every request through proxy. An empty value restores the
// environment proxy settings.
func (f *Fetch) SetProxy(proxy string) *Fetch {
	f.proxy = proxy
	return f
}

// SetToken sets a GitHub token sent to the API host.
func (f *Fetch) SetToken(token string) *Fetch {
	f.token = token
	return f
}

// SetProgress replaces the progress sink.
func (f *Fetch) SetProgress(fn ProgressFunc) *Fetch {
	f.progress = fn
	return f
}

// DisableProgress drops progress events.
func (f *Fetch) DisableProgress() *Fetch {
	f.progress = nil
	return f
}

// SetLogger sets the logger for install decisions and retries. A
// *log.Logger from github.com/charmbracelet/log satisfies Logger.
func (f *Fetch) SetLogger(l Logger) *Fetch {
	f.logger = l
	return f
}

// SetLock toggles the sibling lock file and sets how long to wait for it.
func (f *Fetch) SetLock(enabled bool, timeout time.Duration) *Fetch {
	f.lock = enabled
	f.lockTimeout = timeout
	return f
}

// SetBaseURLs points API and download requests at other hosts, such as a
// GitHub Enterprise instance or a test server.
func (f *Fetch) SetBaseURLs(apiURL, downloadURL string) *Fetch {
	f.apiURL = apiURL
	f.downloadURL = downloadURL
	return f
}

// SetPlatform overrides host detection for asset templates.
func (f *Fetch) SetPlatform(info platform.Info) *Fetch {
	f.detector = platform.StaticDetector{Info: &info}
	return f
}

// Repo starts an install description for an owner/name repository. It
// defaults to the latest release with upgrades allowed.
func (f *Fetch) Repo(repo string) *RepoInstall {
	return &RepoInstall{fetch: f, repo: repo, allowUpgrade: true}
}

func (f *Fetch) client() (*release.Client, error) {
	if err := errors.Join(f.errs...); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	hc, err := release.NewHTTPClient(f.proxy)
	if err != nil {
		return nil, err
	}

	return release.NewClient(
		release.WithHTTPClient(hc),
		release.WithBaseURL(f.apiURL),
		release.WithDownloadBaseURL(f.downloadURL),
		release.WithToken(f.token),
		release.WithRetry(f.retryCount, f.retryDelay),
		release.WithClientLogger(f.logger),
	), nil
}

func (f *Fetch) manager(repo string, client *release.Client) (*release.Manager, error) {
	return release.NewManager(release.Config{
		Repo:       repo,
		InstallDir: f.installDir,
		Client:     client,
		Fetcher: release.NewFetcher(
			release.WithFetchHTTPClient(client.HTTPClient()),
			release.WithProgress(f.progress),
		),
		Logger:      f.logger,
		Lock:        f.lock,
		LockTimeout: f.lockTimeout,
	})
}
