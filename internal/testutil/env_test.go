package testutil_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	t.Setenv("RELFETCH_TOKEN", "leaked")
	t.Setenv("GITHUB_TOKEN", "leaked")

	env := testutil.SetupTestEnv(t)

	for _, name := range []string{"RELFETCH_TOKEN", "GITHUB_TOKEN", "HTTPS_PROXY"} {
		if _, ok := os.LookupEnv(name); ok {
			t.Errorf("%s should be unset", name)
		}
	}

	if got := os.Getenv("XDG_CONFIG_HOME"); filepath.Join(got, "relfetch") != env.ConfigDir {
		t.Errorf("XDG_CONFIG_HOME = %q, config dir %q", got, env.ConfigDir)
	}

	if _, err := os.Stat(env.ConfigDir); err != nil {
		t.Errorf("config dir missing: %v", err)
	}

	for _, dir := range []string{env.ConfigDir, env.InstallDir} {
		if !strings.HasPrefix(dir, env.Root) {
			t.Errorf("path %s is outside the temp root %s", dir, env.Root)
		}
	}
}

func TestWriteConfig(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	path := testutil.WriteConfig(t, env, "retry_count: 5\n")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "retry_count: 5\n" {
		t.Errorf("config = %q", data)
	}
}

func TestSetupTestEnv_Isolation(t *testing.T) {
	env1 := testutil.SetupTestEnv(t)

	t.Run("subtest", func(t *testing.T) {
		env2 := testutil.SetupTestEnv(t)
		if env1.Root == env2.Root {
			t.Error("expected different temp directories for different test contexts")
		}
	})
}
