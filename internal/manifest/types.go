package manifest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ZebulonRouseFrantzich/relfetch/internal/platform"
	"github.com/ZebulonRouseFrantzich/relfetch/internal/release"
	lua "github.com/yuin/gopher-lua"
)

// Manifest is a parsed install manifest. Lua asset functions keep running
// in the manifest's VM, so a Manifest must be closed when done.
type Manifest struct {
	Installs []Install
	Platform *platform.Info
	// Findings lists lines that look like hardcoded credentials.
	Findings []SensitiveDataFinding

	mu sync.Mutex
	L  *lua.LState
}

// Install is one entry of the installs list.
type Install struct {
	Repo    string
	Dir     string
	Version release.VersionSpec
	Upgrade bool

	// Exactly one asset source is set.
	AssetTemplate string
	AssetPattern  string
	assetFunc     *lua.LFunction
}

// HasAssetFunc reports whether the asset name comes from a Lua function.
func (i Install) HasAssetFunc() bool {
	return i.assetFunc != nil
}

// Close releases the Lua VM.
func (m *Manifest) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}
}

// Resolver returns the AssetResolver for install. Pattern resolvers list
// release assets through client.
func (m *Manifest) Resolver(install Install, client *release.Client) (release.AssetResolver, error) {
	switch {
	case install.assetFunc != nil:
		return &LuaAssetFunc{manifest: m, fn: install.assetFunc}, nil
	case install.AssetPattern != "":
		return release.NewAssetPattern(client, install.Repo, install.AssetPattern)
	case install.AssetTemplate != "":
		return release.AssetTemplate{Template: install.AssetTemplate, Platform: m.Platform}, nil
	default:
		return nil, fmt.Errorf("install %s has no asset source", install.Repo)
	}
}

// LuaAssetFunc calls a manifest function with the tag and uses the string
// it returns as the asset name.
type LuaAssetFunc struct {
	manifest *Manifest
	fn       *lua.LFunction
}

// ResolveAsset implements release.AssetResolver.
func (f *LuaAssetFunc) ResolveAsset(ctx context.Context, tag string) (string, error) {
	m := f.manifest
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.L == nil {
		return "", errors.New("manifest is closed")
	}

	m.L.SetContext(ctx)
	defer m.L.RemoveContext()

	if err := m.L.CallByParam(lua.P{Fn: f.fn, NRet: 1, Protect: true}, lua.LString(tag)); err != nil {
		return "", &ParseError{Message: "asset function failed", Detail: err.Error()}
	}

	ret := m.L.Get(-1)
	m.L.Pop(1)

	name, ok := ret.(lua.LString)
	if !ok || name == "" {
		return "", &ParseError{
			Message: "asset function must return a non-empty string",
			Detail:  fmt.Sprintf("got %s for tag %s", ret.Type(), tag),
		}
	}
	return string(name), nil
}
