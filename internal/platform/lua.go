package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectHostTable exposes host facts to a manifest as a read-only global
// named "host". Call before loading any user manifest code.
func InjectHostTable(L *lua.LState, info *Info) {
	hostTable := L.NewTable()

	L.SetField(hostTable, "os", lua.LString(info.OS))
	L.SetField(hostTable, "arch", lua.LString(info.Arch))
	L.SetField(hostTable, "arch_raw", lua.LString(info.ArchRaw))

	L.SetField(hostTable, "is_linux", lua.LBool(info.IsLinux()))
	L.SetField(hostTable, "is_macos", lua.LBool(info.IsMacOS()))
	L.SetField(hostTable, "is_windows", lua.LBool(info.IsWindows()))
	L.SetField(hostTable, "is_amd64", lua.LBool(info.Arch == "amd64"))
	L.SetField(hostTable, "is_arm64", lua.LBool(info.Arch == "arm64"))

	// Linux distribution details, empty strings elsewhere.
	L.SetField(hostTable, "platform", lua.LString(info.Platform))
	L.SetField(hostTable, "platform_version", lua.LString(info.Version))

	L.SetGlobal("host", makeReadOnly(L, hostTable))
}

// makeReadOnly wraps a table in a proxy whose metatable redirects reads to
// the original and rejects every write.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()
	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("host table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)
	return proxy
}
