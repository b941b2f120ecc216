package stdlib_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thara/vela/lang/compiler"
	"github.com/thara/vela/lang/machine"
	"github.com/thara/vela/lang/parser"
	"github.com/thara/vela/lang/stdlib"
	"github.com/thara/vela/lang/token"
)

// run compiles and executes src on a fresh VM with the standard library
// installed, returning the resulting global table for assertions.
func run(t *testing.T, src string) *machine.VM {
	t.Helper()

	fset := token.NewFileSet()
	chunk, err := parser.ParseChunk(fset, "test.vela", []byte(src))
	require.NoError(t, err)

	proto, err := compiler.Compile(fset, chunk)
	require.NoError(t, err)

	vm := machine.NewVM()
	stdlib.OpenAll(vm)

	cl := vm.Load(proto)
	_, err = vm.Run(context.Background(), cl)
	require.NoError(t, err)
	return vm
}

func global(vm *machine.VM, name string) machine.Value {
	return vm.Globals.Get(machine.String(name))
}

func TestBaseTypeAndToString(t *testing.T) {
	vm := run(t, `
		g_type_nil = type(nil)
		g_type_num = type(1)
		g_type_str = type("x")
		g_str = tostring(42)
	`)
	assert.Equal(t, machine.String("nil"), global(vm, "g_type_nil"))
	assert.Equal(t, machine.String("number"), global(vm, "g_type_num"))
	assert.Equal(t, machine.String("string"), global(vm, "g_type_str"))
	assert.Equal(t, machine.String("42"), global(vm, "g_str"))
}

func TestBaseToNumber(t *testing.T) {
	vm := run(t, `
		g_dec = tonumber("42")
		g_hex = tonumber("ff", 16)
		g_bad = tonumber("not a number")
	`)
	assert.Equal(t, machine.Int(42), global(vm, "g_dec"))
	assert.Equal(t, machine.Int(255), global(vm, "g_hex"))
	assert.Equal(t, machine.Null, global(vm, "g_bad"))
}

func TestBaseAssertAndPcall(t *testing.T) {
	vm := run(t, `
		g_ok, g_err = pcall(function() error("boom") end)
		g_ok2, g_val = pcall(function() return 1, 2 end)
	`)
	assert.Equal(t, machine.Bool(false), global(vm, "g_ok"))
	assert.Equal(t, machine.Bool(true), global(vm, "g_ok2"))
	assert.Equal(t, machine.Int(1), global(vm, "g_val"))
}

func TestBaseRawEqualAndMetatables(t *testing.T) {
	vm := run(t, `
		t = {}
		mt = {}
		setmetatable(t, mt)
		g_mt = getmetatable(t) == mt
		g_raw = rawequal(1, 1.0)
	`)
	assert.Equal(t, machine.Bool(true), global(vm, "g_mt"))
	assert.Equal(t, machine.Bool(true), global(vm, "g_raw"))
}

func TestBasePairsIpairs(t *testing.T) {
	vm := run(t, `
		sum = 0
		t = {10, 20, 30}
		for i, v in ipairs(t) do
			sum = sum + v
		end
	`)
	assert.Equal(t, machine.Int(60), global(vm, "sum"))
}

func TestStringLibrary(t *testing.T) {
	vm := run(t, `
		g_upper = string.upper("abc")
		g_sub = string.sub("hello world", 1, 5)
		g_sub_neg = string.sub("hello world", -5)
		g_len = string.len("hello")
		g_rep = string.rep("ab", 3, "-")
		g_find_from, g_find_to = string.find("hello world", "world")
	`)
	assert.Equal(t, machine.String("ABC"), global(vm, "g_upper"))
	assert.Equal(t, machine.String("hello"), global(vm, "g_sub"))
	assert.Equal(t, machine.String("world"), global(vm, "g_sub_neg"))
	assert.Equal(t, machine.Int(5), global(vm, "g_len"))
	assert.Equal(t, machine.String("ab-ab-ab"), global(vm, "g_rep"))
	assert.Equal(t, machine.Int(7), global(vm, "g_find_from"))
	assert.Equal(t, machine.Int(11), global(vm, "g_find_to"))
}

func TestTableLibrary(t *testing.T) {
	vm := run(t, `
		t = {1, 2, 3}
		table.insert(t, 4)
		table.insert(t, 1, 0)
		g_concat = table.concat(t, ",")
		g_removed = table.remove(t, 1)
		g_concat2 = table.concat(t, ",")
	`)
	assert.Equal(t, machine.String("0,1,2,3,4"), global(vm, "g_concat"))
	assert.Equal(t, machine.Int(0), global(vm, "g_removed"))
	assert.Equal(t, machine.String("1,2,3,4"), global(vm, "g_concat2"))
}

func TestMathLibrary(t *testing.T) {
	vm := run(t, `
		g_floor = math.floor(3.7)
		g_ceil = math.ceil(3.2)
		g_abs = math.abs(-5)
		g_max = math.max(1, 9, 3)
		g_min = math.min(1, 9, 3)
	`)
	assert.Equal(t, machine.Int(3), global(vm, "g_floor"))
	assert.Equal(t, machine.Int(4), global(vm, "g_ceil"))
	assert.Equal(t, machine.Int(5), global(vm, "g_abs"))
	assert.Equal(t, machine.Int(9), global(vm, "g_max"))
	assert.Equal(t, machine.Int(1), global(vm, "g_min"))
}

func TestCoroutineLibrary(t *testing.T) {
	vm := run(t, `
		co = coroutine.create(function(a)
			local b = coroutine.yield(a + 1)
			return b + 1
		end)
		g_ok1, g_v1 = coroutine.resume(co, 1)
		g_status1 = coroutine.status(co)
		g_ok2, g_v2 = coroutine.resume(co, 10)
		g_status2 = coroutine.status(co)
	`)
	assert.Equal(t, machine.Bool(true), global(vm, "g_ok1"))
	assert.Equal(t, machine.Int(2), global(vm, "g_v1"))
	assert.Equal(t, machine.String("suspended"), global(vm, "g_status1"))
	assert.Equal(t, machine.Bool(true), global(vm, "g_ok2"))
	assert.Equal(t, machine.Int(11), global(vm, "g_v2"))
	assert.Equal(t, machine.String("dead"), global(vm, "g_status2"))
}

func TestDebugTraceback(t *testing.T) {
	vm := run(t, `
		g_tb = debug.traceback("oops")
	`)
	s, ok := global(vm, "g_tb").(machine.String)
	require.True(t, ok)
	assert.Contains(t, string(s), "oops")
	assert.Contains(t, string(s), "stack traceback:")
}
