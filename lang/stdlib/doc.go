// Package stdlib adapts the small set of builtins the original interpreter
// wired up directly in its VM (stdlib_base.cpp, stdlib_string.cpp,
// stdlib_table.cpp, stdlib_math.cpp, stdlib_coroutine.cpp,
// stdlib_debug.cpp) into Lua functions registered through the native
// function protocol documented in lang/machine/native.go, rather than as
// VM-internal opcodes. File/socket/OS bindings are deliberately absent:
// they are named as external collaborators, not part of the embedded core.
package stdlib

import "github.com/thara/vela/lang/machine"

// OpenAll installs every library this package provides into vm.Globals: the
// base library's functions directly, and the rest under their usual module
// tables ("string", "table", "math", "coroutine", "debug").
func OpenAll(vm *machine.VM) {
	openBase(vm)
	openString(vm)
	openTable(vm)
	openMath(vm)
	openCoroutine(vm)
	openDebug(vm)
}
