package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/platform"
	"github.com/ZebulonRouseFrantzich/relfetch/internal/release"
	lua "github.com/yuin/gopher-lua"
)

// maxManifestBytes bounds the size of a manifest file.
const maxManifestBytes = 1 << 20

// Parser parses Lua install manifests with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new manifest parser with the given platform detector.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseError represents a manifest error with a friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// ParseFile parses the manifest at path. Relative install directories are
// resolved against the manifest's own directory.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if info.Size() > maxManifestBytes {
		return nil, fmt.Errorf("manifest %s is larger than %d bytes", path, maxManifestBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	m, err := p.ParseString(ctx, string(data))
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i := range m.Installs {
		if !filepath.IsAbs(m.Installs[i].Dir) {
			m.Installs[i].Dir = filepath.Join(base, m.Installs[i].Dir)
		}
	}
	return m, nil
}

// ParseString parses a manifest from a string. On success the returned
// Manifest owns the Lua VM.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Manifest, error) {
	L := newSandboxedVM()

	m, err := p.parse(ctx, L, luaCode)
	if err != nil {
		L.Close()
		return nil, err
	}
	m.L = L
	m.Findings = DetectSensitiveData(luaCode)
	return m, nil
}

func (p *Parser) parse(ctx context.Context, L *lua.LState, luaCode string) (*Manifest, error) {
	m := &Manifest{}

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
		m.Platform = info
	}

	// Bound evaluation by ctx so a runaway loop can be cancelled.
	L.SetContext(ctx)
	defer L.RemoveContext()

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	installs, err := extractInstalls(L)
	if err != nil {
		return nil, err
	}
	m.Installs = installs
	return m, nil
}

// extractInstalls reads the global relfetch.installs list.
func extractInstalls(L *lua.LState) ([]Install, error) {
	root, ok := L.GetGlobal(luaGlobalRelfetch).(*lua.LTable)
	if !ok {
		return nil, &ParseError{
			Message: "missing or invalid 'relfetch' table",
			Detail:  fmt.Sprintf("expected table, got %s", L.GetGlobal(luaGlobalRelfetch).Type()),
		}
	}

	list, ok := root.RawGetString(luaFieldInstalls).(*lua.LTable)
	if !ok {
		return nil, &ParseError{
			Message: "missing or invalid 'installs' list",
			Detail:  fmt.Sprintf("expected table, got %s", root.RawGetString(luaFieldInstalls).Type()),
		}
	}

	// Platform conditionals (platform.when(false, {...})) leave holes, so
	// walk every numeric key in order instead of stopping at the first nil.
	var indexes []int
	list.ForEach(func(key, _ lua.LValue) {
		if n, ok := key.(lua.LNumber); ok && float64(n) == float64(int(n)) && n >= 1 {
			indexes = append(indexes, int(n))
		}
	})
	sort.Ints(indexes)

	var installs []Install
	for _, i := range indexes {
		value := list.RawGetInt(i)
		if value == lua.LNil {
			continue
		}

		entry, ok := value.(*lua.LTable)
		if !ok {
			return nil, &ParseError{
				Message: fmt.Sprintf("install #%d is invalid", i),
				Detail:  fmt.Sprintf("expected table, got %s", value.Type()),
			}
		}

		install, err := extractInstall(entry)
		if err != nil {
			return nil, &ParseError{
				Message: fmt.Sprintf("install #%d is invalid", i),
				Detail:  err.Error(),
			}
		}
		installs = append(installs, install)
	}

	if len(installs) == 0 {
		return nil, &ParseError{Message: "manifest declares no installs", Detail: "installs list is empty"}
	}
	return installs, nil
}

func extractInstall(t *lua.LTable) (Install, error) {
	var install Install

	repo, err := stringField(t, luaFieldRepo)
	if err != nil {
		return install, err
	}
	if _, err := release.ParseRepo(repo); err != nil {
		return install, err
	}
	install.Repo = repo

	dir, err := stringField(t, luaFieldDir)
	if err != nil {
		return install, err
	}
	if strings.TrimSpace(dir) == "" {
		return install, fmt.Errorf("%s is required", luaFieldDir)
	}
	install.Dir = filepath.Clean(dir)

	switch v := t.RawGetString(luaFieldVersion).(type) {
	case *lua.LNilType:
		install.Version = release.Latest()
	case lua.LString:
		if v == "" || v == versionLatest {
			install.Version = release.Latest()
		} else {
			install.Version = release.Explicit(string(v))
		}
	default:
		return install, fmt.Errorf("%s must be a string, got %s", luaFieldVersion, v.Type())
	}

	switch v := t.RawGetString(luaFieldUpgrade).(type) {
	case *lua.LNilType:
		install.Upgrade = install.Version.IsLatest()
	case lua.LBool:
		install.Upgrade = bool(v)
	default:
		return install, fmt.Errorf("%s must be a boolean, got %s", luaFieldUpgrade, v.Type())
	}

	asset := t.RawGetString(luaFieldAsset)
	pattern := t.RawGetString(luaFieldAssetRegexp)
	if (asset == lua.LNil) == (pattern == lua.LNil) {
		return install, fmt.Errorf("exactly one of %s or %s is required", luaFieldAsset, luaFieldAssetRegexp)
	}

	switch v := asset.(type) {
	case *lua.LNilType:
	case lua.LString:
		install.AssetTemplate = string(v)
	case *lua.LFunction:
		install.assetFunc = v
	default:
		return install, fmt.Errorf("%s must be a string or function, got %s", luaFieldAsset, v.Type())
	}

	if pattern != lua.LNil {
		s, ok := pattern.(lua.LString)
		if !ok || s == "" {
			return install, fmt.Errorf("%s must be a non-empty string", luaFieldAssetRegexp)
		}
		install.AssetPattern = string(s)
	}

	return install, nil
}

func stringField(t *lua.LTable, name string) (string, error) {
	v := t.RawGetString(name)
	s, ok := v.(lua.LString)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %s", name, v.Type())
	}
	return string(s), nil
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	parseErr, ok := err.(*ParseError)
	if !ok {
		return err.Error()
	}
	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
	}
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", parseErr.Message, detail)
}
