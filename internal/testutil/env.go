// Package testutil provides utilities for testing relfetch in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// inheritedVars would otherwise leak the developer's settings into tests.
var inheritedVars = []string{
	"RELFETCH_INSTALL_DIR",
	"RELFETCH_RETRY_COUNT",
	"RELFETCH_RETRY_DELAY",
	"RELFETCH_PROXY",
	"RELFETCH_TOKEN",
	"RELFETCH_PROGRESS",
	"RELFETCH_LOG_LEVEL",
	"RELFETCH_LOCK",
	"RELFETCH_LOCK_TIMEOUT",
	"RELFETCH_API_URL",
	"RELFETCH_DOWNLOAD_URL",
	"GITHUB_TOKEN",
	"HTTP_PROXY",
	"HTTPS_PROXY",
	"http_proxy",
	"https_proxy",
}

// Env describes the isolated directories created by SetupTestEnv.
type Env struct {
	Root       string // temp root, auto-cleaned
	ConfigDir  string // $XDG_CONFIG_HOME/relfetch
	InstallDir string // scratch install location
}

// SetupTestEnv points the config directory at a temp location and clears
// every RELFETCH_* and proxy variable for the duration of the test.
// Cleanup is handled by t.TempDir and t.Setenv.
func SetupTestEnv(t *testing.T) Env {
	t.Helper()

	tmpDir := t.TempDir()

	env := Env{
		Root:       tmpDir,
		ConfigDir:  filepath.Join(tmpDir, "config", "relfetch"),
		InstallDir: filepath.Join(tmpDir, "install"),
	}

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "config"))
	t.Setenv("APPDATA", filepath.Join(tmpDir, "config"))
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))

	for _, name := range inheritedVars {
		t.Setenv(name, "")
		if err := os.Unsetenv(name); err != nil {
			t.Fatalf("unset %s: %v", name, err)
		}
	}

	for _, dir := range []string{env.ConfigDir, filepath.Join(tmpDir, "home")} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}

// WriteConfig writes a YAML config file into env's config directory and
// returns its path.
func WriteConfig(t *testing.T, env Env, yaml string) string {
	t.Helper()

	path := filepath.Join(env.ConfigDir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
