package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// luaFamilies are exposed as platform.is_<name> booleans.
var luaFamilies = map[string]string{
	"is_debian_family": FamilyDebian,
	"is_rhel_family":   FamilyRHEL,
	"is_fedora_family": FamilyFedora,
	"is_suse_family":   FamilySUSE,
	"is_arch_family":   FamilyArch,
	"is_alpine":        FamilyAlpine,
	"is_gentoo":        FamilyGentoo,
}

// InjectPlatformTable sets a read-only global "platform" table describing
// info. Call it before running any manifest code.
func InjectPlatformTable(L *lua.LState, info *Info) error {
	t := L.NewTable()

	L.SetField(t, "os", lua.LString(info.OS))
	L.SetField(t, "arch", lua.LString(info.Arch))
	L.SetField(t, "uname_arch", lua.LString(info.UnameArch))
	L.SetField(t, "arch_raw", lua.LString(info.ArchRaw))
	L.SetField(t, "exe", lua.LString(info.ExeSuffix()))

	L.SetField(t, "is_linux", lua.LBool(info.IsLinux()))
	L.SetField(t, "is_macos", lua.LBool(info.IsMacOS()))
	L.SetField(t, "is_windows", lua.LBool(info.IsWindows()))
	L.SetField(t, "is_amd64", lua.LBool(info.Arch == "amd64"))
	L.SetField(t, "is_arm64", lua.LBool(info.Arch == "arm64"))

	if distro := info.GetDistro(); distro != nil {
		d := L.NewTable()
		L.SetField(d, "id", lua.LString(distro.ID))
		L.SetField(d, "family", lua.LString(distro.Family))
		L.SetField(d, "version", lua.LString(distro.Version))
		L.SetField(t, "distro", d)
		L.SetField(t, "linux_family", lua.LString(distro.Family))
	}

	for field, family := range luaFamilies {
		L.SetField(t, field, lua.LBool(info.InFamily(family)))
	}

	// when(cond, value) returns value if cond is true, nil otherwise
	L.SetField(t, "when", L.NewFunction(func(L *lua.LState) int {
		if L.CheckBool(1) {
			L.Push(L.Get(2))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	}))

	L.SetGlobal("platform", makeReadOnly(L, t))
	return nil
}

// makeReadOnly returns an empty proxy whose metatable redirects reads to
// table and rejects writes.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()
	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)
	return proxy
}
