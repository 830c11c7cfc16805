package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/config"
	"github.com/ZebulonRouseFrantzich/relfetch/internal/platform"
	"github.com/ZebulonRouseFrantzich/relfetch/internal/progress"
	"github.com/ZebulonRouseFrantzich/relfetch/internal/release"
)

// app carries state resolved once per invocation by the root command.
type app struct {
	configFile string
	settings   *config.Settings
	loadedFrom string
	logger     *log.Logger
	detector   platform.Detector
}

func newRootCmd() *cobra.Command {
	a := &app{detector: platform.NewDetector()}

	cmd := &cobra.Command{
		Use:   "relfetch",
		Short: "Install and upgrade GitHub release assets",
		Long: titleStyle.Render("relfetch") + subtitleStyle.Render(" - install GitHub release assets into local directories") + `

Each install directory records the installed tag in version.json. Running
the same install again is a no-op; upgrades replace the directory contents.

` + subtitleStyle.Render("Examples:") + `
  relfetch install owner/tool --asset 'tool-{version}-{os}-{arch}.tar.gz' --dir ./vendor/tool
  relfetch install owner/tool --pattern 'linux.*amd64' --version v1.2.3
  relfetch status ./vendor/tool
  relfetch apply fetch.lua`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	defaults := config.DefaultSettings()
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/relfetch/config.yaml)")
	flags.String("install-dir", defaults.InstallDir, "directory assets are installed into")
	flags.Int("retry-count", defaults.RetryCount, "attempts for the latest version lookup")
	flags.Int("retry-delay", defaults.RetryDelay, "seconds between lookup attempts")
	flags.String("proxy", defaults.Proxy, "proxy URL (default: HTTP_PROXY/HTTPS_PROXY)")
	flags.String("token", defaults.Token, "GitHub token (default: RELFETCH_TOKEN or GITHUB_TOKEN)")
	flags.Bool("progress", defaults.Progress, "show download progress")
	flags.String("log-level", defaults.LogLevel, "log level: debug, info, warn, error")
	flags.Bool("lock", defaults.Lock, "guard install directories with a lock file")
	flags.Int("lock-timeout", defaults.LockTimeout, "seconds to wait for a busy lock")
	flags.String("api-url", defaults.APIURL, "GitHub API base URL")
	flags.String("download-url", defaults.DownloadURL, "release download base URL")

	cmd.AddCommand(newInstallCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newApplyCmd(a))
	cmd.AddCommand(newAssetsCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (a *app) load(cmd *cobra.Command) error {
	settings, path, err := config.Load(cmd.Context(), config.LoadOptions{
		ConfigFile: a.configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return err
	}

	level, err := log.ParseLevel(strings.ToLower(settings.LogLevel))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	a.settings = settings
	a.loadedFrom = path
	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix:          "relfetch",
		Level:           level,
		ReportTimestamp: level == log.DebugLevel,
		TimeFormat:      time.Kitchen,
	})

	if path != "" {
		a.logger.Debug("loaded config", "path", path)
	}
	return nil
}

func (a *app) client() (*release.Client, error) {
	if a.settings == nil {
		return nil, errors.New("configuration not loaded")
	}

	hc, err := release.NewHTTPClient(a.settings.Proxy)
	if err != nil {
		return nil, err
	}

	return release.NewClient(
		release.WithHTTPClient(hc),
		release.WithBaseURL(a.settings.APIURL),
		release.WithDownloadBaseURL(a.settings.DownloadURL),
		release.WithToken(a.settings.Token),
		release.WithUserAgent("relfetch/"+Version),
		release.WithRetry(a.settings.RetryCount, a.settings.RetryDelayDuration()),
		release.WithClientLogger(a.logger),
	), nil
}

func (a *app) fetcher(client *release.Client, progressOut io.Writer) *release.Fetcher {
	opts := []release.FetcherOption{
		release.WithFetchHTTPClient(client.HTTPClient()),
		release.WithFetchUserAgent("relfetch/" + Version),
	}
	if a.settings.Progress {
		opts = append(opts, release.WithProgress(progress.Console(progressOut)))
	}
	return release.NewFetcher(opts...)
}

func (a *app) manager(repo, dir string, client *release.Client, progressOut io.Writer) (*release.Manager, error) {
	return release.NewManager(release.Config{
		Repo:        repo,
		InstallDir:  dir,
		Client:      client,
		Fetcher:     a.fetcher(client, progressOut),
		Logger:      a.logger,
		Lock:        a.settings.Lock,
		LockTimeout: a.settings.LockTimeoutDuration(),
	})
}

// installDir is the flag value when given, otherwise the configured default.
func (a *app) installDir(dir string) string {
	if dir != "" {
		return dir
	}
	return a.settings.InstallDir
}
