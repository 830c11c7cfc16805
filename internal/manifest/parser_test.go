package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/platform"
)

var linuxAMD64 = &platform.Info{OS: "linux", Arch: "amd64", UnameArch: "x86_64", ArchRaw: "amd64"}

func newTestParser() *Parser {
	return NewParser(platform.StaticDetector{Info: linuxAMD64})
}

func TestParseString(t *testing.T) {
	m, err := newTestParser().ParseString(context.Background(), `
		relfetch = {
		  installs = {
		    { repo = "owner/a", dir = "vendor/a", asset = "a-{version}-{os}.tar.gz" },
		    { repo = "owner/b", dir = "vendor/b", version = "v1.2.3", asset_pattern = "linux" },
		    { repo = "owner/c", dir = "vendor/c", version = "v2.0.0", upgrade = true,
		      asset = function(tag) return "c-" .. tag .. "-" .. platform.arch .. ".zip" end },
		  },
		}
	`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	defer m.Close()

	if len(m.Installs) != 3 {
		t.Fatalf("installs = %d, want 3", len(m.Installs))
	}

	a, b, c := m.Installs[0], m.Installs[1], m.Installs[2]

	if a.Repo != "owner/a" || !a.Version.IsLatest() || !a.Upgrade || a.AssetTemplate != "a-{version}-{os}.tar.gz" {
		t.Errorf("install a = %+v", a)
	}
	if b.Version.Tag != "v1.2.3" || b.Upgrade || b.AssetPattern != "linux" {
		t.Errorf("install b = %+v", b)
	}
	if c.Version.Tag != "v2.0.0" || !c.Upgrade || !c.HasAssetFunc() {
		t.Errorf("install c = %+v", c)
	}

	if m.Platform == nil || m.Platform.OS != "linux" {
		t.Errorf("Platform = %+v", m.Platform)
	}
}

func TestParseStringPlatformConditionals(t *testing.T) {
	m, err := newTestParser().ParseString(context.Background(), `
		relfetch = {
		  installs = {
		    platform.when(platform.is_windows, { repo = "o/win", dir = "w", asset = "w.zip" }),
		    { repo = "o/all", dir = "a", asset = "a.zip" },
		    platform.when(platform.is_linux, { repo = "o/linux", dir = "l", asset = "l.tar.gz" }),
		  },
		}
	`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	defer m.Close()

	var repos []string
	for _, i := range m.Installs {
		repos = append(repos, i.Repo)
	}
	if got := strings.Join(repos, ","); got != "o/all,o/linux" {
		t.Errorf("repos = %s, want o/all,o/linux", got)
	}
}

func TestParseStringErrors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
	}{
		{name: "syntax", code: `relfetch = {`, wantMsg: "Lua syntax error"},
		{name: "missing_table", code: `x = 1`, wantMsg: "missing or invalid 'relfetch' table"},
		{name: "missing_installs", code: `relfetch = {}`, wantMsg: "missing or invalid 'installs' list"},
		{name: "empty_installs", code: `relfetch = { installs = {} }`, wantMsg: "no installs"},
		{name: "bad_repo", code: `relfetch = { installs = { { repo = "nope", dir = "d", asset = "a" } } }`, wantMsg: "install #1 is invalid"},
		{name: "missing_dir", code: `relfetch = { installs = { { repo = "o/n", asset = "a" } } }`, wantMsg: "dir must be a string"},
		{name: "no_asset", code: `relfetch = { installs = { { repo = "o/n", dir = "d" } } }`, wantMsg: "exactly one of asset or asset_pattern"},
		{name: "both_assets", code: `relfetch = { installs = { { repo = "o/n", dir = "d", asset = "a", asset_pattern = "b" } } }`, wantMsg: "exactly one of asset or asset_pattern"},
		{name: "bad_upgrade", code: `relfetch = { installs = { { repo = "o/n", dir = "d", asset = "a", upgrade = "yes" } } }`, wantMsg: "upgrade must be a boolean"},
		{name: "bad_version", code: `relfetch = { installs = { { repo = "o/n", dir = "d", asset = "a", version = 3 } } }`, wantMsg: "version must be a string"},
		{name: "entry_not_table", code: `relfetch = { installs = { "o/n" } }`, wantMsg: "expected table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestParser().ParseString(context.Background(), tt.code)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestSandbox(t *testing.T) {
	tests := []string{
		`os.execute("true")`,
		`io.open("/etc/passwd")`,
		`require("os")`,
		`dofile("/tmp/x.lua")`,
		`loadstring("return 1")()`,
		`load("return 1")()`,
		`debug.getinfo(1)`,
	}

	for _, code := range tests {
		t.Run(code, func(t *testing.T) {
			_, err := newTestParser().ParseString(context.Background(), code+"\nrelfetch = { installs = { { repo = \"o/n\", dir = \"d\", asset = \"a\" } } }")
			if err == nil {
				t.Errorf("sandbox should block %s", code)
			}
		})
	}
}

func TestParseStringCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestParser().ParseString(ctx, `while true do end`)
	if err == nil {
		t.Fatal("expected runaway manifest to be stopped")
	}
}

func TestParseFileResolvesRelativeDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fetch.lua")
	code := `relfetch = { installs = {
		{ repo = "o/rel", dir = "vendor/rel", asset = "a" },
		{ repo = "o/abs", dir = "` + filepath.ToSlash(filepath.Join(dir, "abs")) + `", asset = "a" },
	} }`
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := newTestParser().ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	defer m.Close()

	if got, want := m.Installs[0].Dir, filepath.Join(dir, "vendor", "rel"); got != want {
		t.Errorf("relative dir = %q, want %q", got, want)
	}
	if got, want := m.Installs[1].Dir, filepath.Join(dir, "abs"); got != want {
		t.Errorf("absolute dir = %q, want %q", got, want)
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := newTestParser().ParseFile(context.Background(), filepath.Join(t.TempDir(), "none.lua")); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestFormatError(t *testing.T) {
	err := &ParseError{Message: "Lua syntax error", Detail: "line 1: boom\nstack traceback:\n\t[G]: ?"}

	if got := FormatError(err, false); got != "Lua syntax error: line 1: boom" {
		t.Errorf("FormatError(short) = %q", got)
	}
	if got := FormatError(err, true); !strings.Contains(got, "stack traceback") {
		t.Errorf("FormatError(verbose) should keep details, got %q", got)
	}
}
