package machine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thara/vela/lang/compiler"
	"github.com/thara/vela/lang/machine"
	"github.com/thara/vela/lang/parser"
	"github.com/thara/vela/lang/token"
)

// run compiles and executes src on a fresh VM, returning it for assertions
// against its globals. Mirrors lang/stdlib's own run helper, minus
// stdlib.OpenAll: these tests exercise VM/GC/call mechanics directly, not
// the standard library built on top of them.
func run(t *testing.T, src string) *machine.VM {
	t.Helper()

	fset := token.NewFileSet()
	chunk, err := parser.ParseChunk(fset, "test.vela", []byte(src))
	require.NoError(t, err)

	proto, err := compiler.Compile(fset, chunk)
	require.NoError(t, err)

	vm := machine.NewVM()
	cl := vm.Load(proto)
	_, err = vm.Run(context.Background(), cl)
	require.NoError(t, err)
	return vm
}

func global(vm *machine.VM, name string) machine.Value {
	return vm.Globals.Get(machine.String(name))
}

// TestClosuresShareUpvalue exercises upvalue capture: two closures created
// by the same call to makeCounter must share one mutable cell, not a copy
// each, so calls to one are visible through the other.
func TestClosuresShareUpvalue(t *testing.T) {
	vm := run(t, `
		function makeCounter()
			local n = 0
			local function inc()
				n = n + 1
				return n
			end
			local function get()
				return n
			end
			return inc, get
		end

		inc, get = makeCounter()
		inc()
		inc()
		g_before = get()
		inc()
		g_after = get()
	`)
	assert.Equal(t, machine.Int(2), global(vm, "g_before"))
	assert.Equal(t, machine.Int(3), global(vm, "g_after"))
}

// TestMultiReturnAbsorption checks that only the last expression in a table
// constructor expands all of its results; every earlier one is truncated to
// exactly one value, per spec.md's multi-value rules.
func TestMultiReturnAbsorption(t *testing.T) {
	vm := run(t, `
		function f()
			return 1, 2, 3
		end

		t = {f(), f()}
		g_len = #t
		g_1 = t[1]
		g_2 = t[2]
		g_3 = t[3]
		g_4 = t[4]
	`)
	assert.Equal(t, machine.Int(4), global(vm, "g_len"))
	assert.Equal(t, machine.Int(1), global(vm, "g_1"))
	assert.Equal(t, machine.Int(1), global(vm, "g_2"))
	assert.Equal(t, machine.Int(2), global(vm, "g_3"))
	assert.Equal(t, machine.Int(3), global(vm, "g_4"))
}

// TestTailCallDoesNotGrowCallDepth runs a deeply tail-recursive countdown
// with a MaxCallDepth far smaller than the recursion depth. A non-tail
// implementation of the call would blow that budget long before reaching
// zero; tailCallAt replacing the caller's frame instead of nesting under it
// (lang/machine/call.go) is what lets this finish at all.
func TestTailCallDoesNotGrowCallDepth(t *testing.T) {
	fset := token.NewFileSet()
	chunk, err := parser.ParseChunk(fset, "test.vela", []byte(`
		function countdown(n)
			if n <= 0 then
				return n
			end
			return countdown(n - 1)
		end

		g_result = countdown(100000)
	`))
	require.NoError(t, err)

	proto, err := compiler.Compile(fset, chunk)
	require.NoError(t, err)

	vm := machine.NewVM()
	vm.MaxCallDepth = 8
	cl := vm.Load(proto)
	_, err = vm.Run(context.Background(), cl)
	require.NoError(t, err)
	assert.Equal(t, machine.Int(0), global(vm, "g_result"))
}

// TestBreakClosesUpvalues checks that breaking out of a loop still closes
// each iteration's open upvalues (CLOSEUPVAL) so every closure created
// before the break keeps its own snapshot of the loop variable, rather than
// all of them ending up sharing whatever value the loop variable held when
// the stack slot was last reused.
func TestBreakClosesUpvalues(t *testing.T) {
	vm := run(t, `
		fns = {}
		for i = 1, 5 do
			if i > 3 then
				break
			end
			local x = i
			fns[i] = function() return x end
		end

		g_1 = fns[1]()
		g_2 = fns[2]()
		g_3 = fns[3]()
		g_count = #fns
	`)
	assert.Equal(t, machine.Int(1), global(vm, "g_1"))
	assert.Equal(t, machine.Int(2), global(vm, "g_2"))
	assert.Equal(t, machine.Int(3), global(vm, "g_3"))
	assert.Equal(t, machine.Int(3), global(vm, "g_count"))
}

// TestGCStressSurvivesMultipleCycles allocates enough short-lived closures
// and tables to cross the collector's initial 1 MiB threshold several times
// over (lang/machine/gc.go's gcInitialThreshold), while one closure stays
// reachable only through a global. If the write-barrier/tracking fix didn't
// hold, a later cycle could sweep it out from under a live reference.
func TestGCStressSurvivesMultipleCycles(t *testing.T) {
	vm := run(t, `
		function makeHolder(v)
			local function get()
				return v
			end
			return get
		end

		holder = makeHolder(42)

		for i = 1, 100000 do
			local garbage = {i, i + 1, i + 2}
			local function f()
				return garbage[1]
			end
			trash = f()
		end

		g_held = holder()
	`)
	assert.Equal(t, machine.Int(42), global(vm, "g_held"))
}
