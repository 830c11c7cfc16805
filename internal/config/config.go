// Package config loads relfetch CLI settings from, in increasing priority,
// built-in defaults, an optional YAML config file, RELFETCH_* environment
// variables and command-line flags.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/release"
)

const (
	// AppName is the application name.
	AppName = "relfetch"
	// EnvPrefix prefixes every environment variable, e.g. RELFETCH_INSTALL_DIR.
	EnvPrefix = "RELFETCH"
	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Setting keys. Flags use the same names with dashes.
const (
	KeyInstallDir  = "install_dir"
	KeyRetryCount  = "retry_count"
	KeyRetryDelay  = "retry_delay"
	KeyProxy       = "proxy"
	KeyToken       = "token"
	KeyProgress    = "progress"
	KeyLogLevel    = "log_level"
	KeyLock        = "lock"
	KeyLockTimeout = "lock_timeout"
	KeyAPIURL      = "api_url"
	KeyDownloadURL = "download_url"
)

var keys = []string{
	KeyInstallDir, KeyRetryCount, KeyRetryDelay, KeyProxy, KeyToken, KeyProgress,
	KeyLogLevel, KeyLock, KeyLockTimeout, KeyAPIURL, KeyDownloadURL,
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Settings is the resolved CLI configuration.
type Settings struct {
	InstallDir  string `mapstructure:"install_dir"`
	RetryCount  int    `mapstructure:"retry_count"`
	RetryDelay  int    `mapstructure:"retry_delay"` // seconds
	Proxy       string `mapstructure:"proxy"`
	Token       string `mapstructure:"token"`
	Progress    bool   `mapstructure:"progress"`
	LogLevel    string `mapstructure:"log_level"`
	Lock        bool   `mapstructure:"lock"`
	LockTimeout int    `mapstructure:"lock_timeout"` // seconds
	APIURL      string `mapstructure:"api_url"`
	DownloadURL string `mapstructure:"download_url"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		InstallDir:  ".",
		RetryCount:  release.DefaultRetries,
		RetryDelay:  int(release.DefaultRetryDelay / time.Second),
		Progress:    true,
		LogLevel:    "info",
		Lock:        true,
		LockTimeout: 60,
		APIURL:      release.DefaultAPIBaseURL,
		DownloadURL: release.DefaultDownloadBaseURL,
	}
}

// RetryDelayDuration returns RetryDelay as a duration.
func (s *Settings) RetryDelayDuration() time.Duration {
	return time.Duration(s.RetryDelay) * time.Second
}

// LockTimeoutDuration returns LockTimeout as a duration.
func (s *Settings) LockTimeoutDuration() time.Duration {
	return time.Duration(s.LockTimeout) * time.Second
}

// Validate rejects settings no install could run with.
func (s *Settings) Validate() error {
	var errs []error

	if strings.TrimSpace(s.InstallDir) == "" {
		errs = append(errs, errors.New("install_dir must not be empty"))
	}
	if s.RetryCount < 0 {
		errs = append(errs, fmt.Errorf("retry_count must not be negative, got %d", s.RetryCount))
	}
	if s.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry_delay must not be negative, got %d", s.RetryDelay))
	}
	if s.LockTimeout < 0 {
		errs = append(errs, fmt.Errorf("lock_timeout must not be negative, got %d", s.LockTimeout))
	}
	if !validLogLevels[strings.ToLower(s.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", s.LogLevel))
	}
	if s.Proxy != "" {
		if err := checkURL(KeyProxy, s.Proxy); err != nil {
			errs = append(errs, err)
		}
	}
	for key, value := range map[string]string{KeyAPIURL: s.APIURL, KeyDownloadURL: s.DownloadURL} {
		if err := checkURL(key, value); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func checkURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}

// Dir returns the relfetch configuration directory: $XDG_CONFIG_HOME/relfetch
// (default ~/.config/relfetch), or %APPDATA%\relfetch on Windows.
func Dir() (string, error) {
	var base string

	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
	}

	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}

	return filepath.Join(base, AppName), nil
}

// LoadOptions controls Load.
type LoadOptions struct {
	// ConfigFile is an explicit config file; it must exist when set.
	ConfigFile string
	// Flags are bound on top of every other source. Flag names are the
	// setting keys with dashes, e.g. --install-dir.
	Flags *pflag.FlagSet
}

// Load resolves Settings. It returns the config file that was read, or ""
// when none was.
func Load(ctx context.Context, opts LoadOptions) (*Settings, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultSettings()
	v.SetDefault(KeyInstallDir, defaults.InstallDir)
	v.SetDefault(KeyRetryCount, defaults.RetryCount)
	v.SetDefault(KeyRetryDelay, defaults.RetryDelay)
	v.SetDefault(KeyProxy, defaults.Proxy)
	v.SetDefault(KeyToken, defaults.Token)
	v.SetDefault(KeyProgress, defaults.Progress)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyLock, defaults.Lock)
	v.SetDefault(KeyLockTimeout, defaults.LockTimeout)
	v.SetDefault(KeyAPIURL, defaults.APIURL)
	v.SetDefault(KeyDownloadURL, defaults.DownloadURL)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// The conventional GitHub variable works too; RELFETCH_TOKEN wins.
	if err := v.BindEnv(KeyToken, EnvPrefix+"_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, "", fmt.Errorf("bind token env: %w", err)
	}

	path, err := configFile(opts.ConfigFile)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if opts.Flags != nil {
		for _, key := range keys {
			if f := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, "", fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}

	return &s, path, nil
}

// configFile picks the file to read: the explicit one, which must exist, or
// the default location when present.
func configFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	dir, err := Dir()
	if err != nil {
		// No home directory: run on defaults and environment only.
		return "", nil
	}

	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}
