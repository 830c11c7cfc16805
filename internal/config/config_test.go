package config_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/config"
	"github.com/ZebulonRouseFrantzich/relfetch/internal/testutil"
)

func TestLoadDefaults(t *testing.T) {
	testutil.SetupTestEnv(t)

	s, path, err := config.Load(context.Background(), config.LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("no config file expected, got %q", path)
	}

	want := config.DefaultSettings()
	if *s != want {
		t.Errorf("Load() = %+v, want %+v", *s, want)
	}
	if s.RetryDelayDuration() != 3*time.Second {
		t.Errorf("RetryDelayDuration() = %v", s.RetryDelayDuration())
	}
	if s.LockTimeoutDuration() != time.Minute {
		t.Errorf("LockTimeoutDuration() = %v", s.LockTimeoutDuration())
	}
}

func TestLoadPrecedence(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	testutil.WriteConfig(t, env, strings.Join([]string{
		"install_dir: from-file",
		"retry_count: 7",
		"retry_delay: 1",
		"progress: false",
		"log_level: debug",
	}, "\n"))

	t.Setenv("RELFETCH_RETRY_COUNT", "9")
	t.Setenv("GITHUB_TOKEN", "gh-token")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("install-dir", ".", "")
	flags.Int("retry-count", 3, "")
	if err := flags.Parse([]string{"--install-dir", "from-flag"}); err != nil {
		t.Fatal(err)
	}

	s, path, err := config.Load(context.Background(), config.LoadOptions{Flags: flags})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if path != filepath.Join(env.ConfigDir, config.ConfigFileName) {
		t.Errorf("config path = %q", path)
	}
	if s.InstallDir != "from-flag" {
		t.Errorf("InstallDir = %q, flag should win", s.InstallDir)
	}
	if s.RetryCount != 9 {
		t.Errorf("RetryCount = %d, env should beat file and unset flag", s.RetryCount)
	}
	if s.RetryDelay != 1 || s.Progress || s.LogLevel != "debug" {
		t.Errorf("file values not applied: %+v", s)
	}
	if s.Token != "gh-token" {
		t.Errorf("Token = %q, want GITHUB_TOKEN fallback", s.Token)
	}
}

func TestLoadTokenPrefersRelfetchVar(t *testing.T) {
	testutil.SetupTestEnv(t)
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("RELFETCH_TOKEN", "rf-token")

	s, _, err := config.Load(context.Background(), config.LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Token != "rf-token" {
		t.Errorf("Token = %q, want rf-token", s.Token)
	}
}

func TestLoadExplicitConfigFile(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	path := filepath.Join(env.Root, "custom.yaml")
	testutil.WriteConfig(t, env, "retry_count: 1\n")
	if _, _, err := config.Load(context.Background(), config.LoadOptions{ConfigFile: path}); err == nil {
		t.Error("expected error for missing explicit config file")
	}

	s, got, err := config.Load(context.Background(), config.LoadOptions{
		ConfigFile: filepath.Join(env.ConfigDir, config.ConfigFileName),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.RetryCount != 1 || got == "" {
		t.Errorf("explicit file not read: %+v from %q", s, got)
	}
}

func TestLoadCanceled(t *testing.T) {
	testutil.SetupTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := config.Load(ctx, config.LoadOptions{}); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Settings)
		wantErr string
	}{
		{name: "defaults", mutate: func(*config.Settings) {}},
		{name: "zero_retries", mutate: func(s *config.Settings) { s.RetryCount = 0 }},
		{name: "negative_retries", mutate: func(s *config.Settings) { s.RetryCount = -1 }, wantErr: "retry_count"},
		{name: "negative_delay", mutate: func(s *config.Settings) { s.RetryDelay = -2 }, wantErr: "retry_delay"},
		{name: "negative_lock_timeout", mutate: func(s *config.Settings) { s.LockTimeout = -1 }, wantErr: "lock_timeout"},
		{name: "empty_install_dir", mutate: func(s *config.Settings) { s.InstallDir = " " }, wantErr: "install_dir"},
		{name: "bad_log_level", mutate: func(s *config.Settings) { s.LogLevel = "verbose" }, wantErr: "log_level"},
		{name: "proxy_ok", mutate: func(s *config.Settings) { s.Proxy = "http://proxy:3128" }},
		{name: "proxy_relative", mutate: func(s *config.Settings) { s.Proxy = "proxy:3128" }, wantErr: "proxy"},
		{name: "api_url_relative", mutate: func(s *config.Settings) { s.APIURL = "/api" }, wantErr: "api_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestDir(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	dir, err := config.Dir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != env.ConfigDir {
		t.Errorf("Dir() = %q, want %q", dir, env.ConfigDir)
	}
}
