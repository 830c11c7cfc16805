package manifest

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxedGlobals are removed from every manifest VM. Without them a
// manifest cannot run commands, touch files or load other code; string,
// table and math stay available.
var sandboxedGlobals = []string{
	"os",
	"io",
	"require",
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"debug",
	"module",
	"package",
}

// newSandboxedVM creates a Lua VM with the sandbox applied.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	for _, name := range sandboxedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
