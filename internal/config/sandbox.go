package config

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxLuaVM strips a Lua VM down to what a declarative manifest needs.
// Manifests must not execute commands, touch the filesystem, or load
// external code; string, table, and math stay available.
func sandboxLuaVM(L *lua.LState) {
	// os.execute, os.exit, os.getenv, ...
	L.SetGlobal("os", lua.LNil)

	// io.open, io.popen, io.read, ...
	L.SetGlobal("io", lua.LNil)

	// External code loading.
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)

	// debug can reach around the sandbox.
	L.SetGlobal("debug", lua.LNil)
}

// newSandboxedVM creates a Lua VM with the sandbox applied.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	sandboxLuaVM(L)
	return L
}
