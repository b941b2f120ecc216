package stdlib

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/thara/vela/lang/machine"
)

// argError formats the "bad argument #n to 'fn' (... expected, got ...)"
// wording the original interpreter's natives use throughout
// stdlib_base.cpp/stdlib_string.cpp/stdlib_table.cpp, adapted to a single
// helper rather than repeating the fmt.Sprintf at every call site.
func argError(fn string, n int, expected string, got machine.Value) error {
	return fmt.Errorf("bad argument #%d to '%s' (%s expected, got %s)", n, fn, expected, typeOrNoValue(got))
}

func typeOrNoValue(v machine.Value) string {
	if v == nil {
		return "no value"
	}
	return v.Type()
}

func wantTable(fn string, n int, co *machine.Coroutine, argCount, i int) (*machine.Table, error) {
	v := co.Arg(argCount, i)
	t, ok := v.(*machine.Table)
	if !ok {
		return nil, argError(fn, n, "table", v)
	}
	return t, nil
}

func openBase(vm *machine.VM) {
	g := vm.Globals
	machine.Register(g, "print", nativePrint)
	machine.Register(g, "type", nativeType)
	machine.Register(g, "tostring", nativeToString)
	machine.Register(g, "tonumber", nativeToNumber)
	machine.Register(g, "next", nativeNext)
	machine.Register(g, "pairs", nativePairs)
	machine.Register(g, "ipairs", nativeIPairs)
	machine.Register(g, "setmetatable", nativeSetMetatable)
	machine.Register(g, "getmetatable", nativeGetMetatable)
	machine.Register(g, "rawget", nativeRawGet)
	machine.Register(g, "rawset", nativeRawSet)
	machine.Register(g, "rawequal", nativeRawEqual)
	machine.Register(g, "assert", nativeAssert)
	machine.Register(g, "error", nativeError)
	machine.Register(g, "pcall", nativePCall)
	machine.Register(g, "xpcall", nativeXPCall)
}

func nativePrint(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	parts := make([]string, argCount)
	for i := 0; i < argCount; i++ {
		s, err := vm.ToString(co, co.Arg(argCount, i))
		if err != nil {
			return 0, err
		}
		parts[i] = s
	}
	w := vm.Stdout
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, strings.Join(parts, "\t"))
	return 0, nil
}

func nativeType(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	if argCount < 1 {
		return 0, fmt.Errorf("bad argument #1 to 'type' (value expected)")
	}
	co.Push(machine.String(co.Arg(argCount, 0).Type()))
	return 1, nil
}

func nativeToString(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	s, err := vm.ToString(co, co.Arg(argCount, 0))
	if err != nil {
		return 0, err
	}
	co.Push(machine.String(s))
	return 1, nil
}

func nativeToNumber(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	v := co.Arg(argCount, 0)
	if argCount >= 2 {
		if _, isNil := co.Arg(argCount, 1).(machine.Nil); !isNil {
			base, ok := machine.ToInt(co.Arg(argCount, 1))
			if !ok {
				return 0, argError("tonumber", 2, "number", co.Arg(argCount, 1))
			}
			s, ok := v.(machine.String)
			if !ok {
				return 0, argError("tonumber", 1, "string", v)
			}
			i, err := strconv.ParseInt(strings.TrimSpace(string(s)), int(base), 64)
			if err != nil {
				co.Push(machine.Null)
				return 1, nil
			}
			co.Push(machine.Int(i))
			return 1, nil
		}
	}
	n, ok := machine.ToNumber(v)
	if !ok {
		co.Push(machine.Null)
		return 1, nil
	}
	co.Push(n)
	return 1, nil
}

func nativeNext(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	t, err := wantTable("next", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	key := co.Arg(argCount, 1)
	k, v, ok, err := t.Next(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		co.Push(machine.Null)
		return 1, nil
	}
	co.Push(k)
	co.Push(v)
	return 2, nil
}

func nativePairs(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	t, err := wantTable("pairs", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	co.Push(vm.Globals.Get(machine.String("next")))
	co.Push(t)
	co.Push(machine.Null)
	return 3, nil
}

// nativeIPairs returns a stateless iterator over the array part: on each
// call it is handed (t, i) and returns (i+1, t[i+1]) until t[i+1] is nil.
func nativeIPairs(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	t, err := wantTable("ipairs", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	co.Push(&machine.NativeFn{FnName: "ipairs.iterator", Fn: ipairsIterator})
	co.Push(t)
	co.Push(machine.Int(0))
	return 3, nil
}

func ipairsIterator(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	t, ok := co.Arg(argCount, 0).(*machine.Table)
	if !ok {
		return 0, argError("ipairs.iterator", 1, "table", co.Arg(argCount, 0))
	}
	i, _ := machine.ToInt(co.Arg(argCount, 1))
	i++
	v := t.Get(machine.Int(i))
	if _, isNil := v.(machine.Nil); isNil {
		co.Push(machine.Null)
		return 1, nil
	}
	co.Push(machine.Int(i))
	co.Push(v)
	return 2, nil
}

func nativeSetMetatable(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	t, err := wantTable("setmetatable", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	mv := co.Arg(argCount, 1)
	switch mt := mv.(type) {
	case machine.Nil:
		t.SetMetatable(nil)
	case *machine.Table:
		t.SetMetatable(mt)
	default:
		return 0, argError("setmetatable", 2, "nil or table", mv)
	}
	co.Push(t)
	return 1, nil
}

func nativeGetMetatable(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	v := co.Arg(argCount, 0)
	mv, ok := v.(machine.HasMetatable)
	if !ok || mv.Metatable() == nil {
		co.Push(machine.Null)
		return 1, nil
	}
	mt := mv.Metatable()
	protect := mt.Get(machine.String("__metatable"))
	if _, isNil := protect.(machine.Nil); !isNil {
		co.Push(protect)
		return 1, nil
	}
	co.Push(mt)
	return 1, nil
}

func nativeRawGet(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	t, err := wantTable("rawget", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	co.Push(t.Get(co.Arg(argCount, 1)))
	return 1, nil
}

func nativeRawSet(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	t, err := wantTable("rawset", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	if err := t.Set(co.Arg(argCount, 1), co.Arg(argCount, 2)); err != nil {
		return 0, err
	}
	co.Push(t)
	return 1, nil
}

func nativeRawEqual(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	a, b := co.Arg(argCount, 0), co.Arg(argCount, 1)
	co.Push(machine.Bool(rawEqual(a, b)))
	return 1, nil
}

func rawEqual(a, b machine.Value) bool {
	switch av := a.(type) {
	case machine.Nil:
		_, ok := b.(machine.Nil)
		return ok
	case machine.Bool:
		bv, ok := b.(machine.Bool)
		return ok && av == bv
	case machine.String:
		bv, ok := b.(machine.String)
		return ok && av == bv
	case machine.Int:
		switch bv := b.(type) {
		case machine.Int:
			return av == bv
		case machine.Float:
			return machine.Float(av) == bv
		}
		return false
	case machine.Float:
		switch bv := b.(type) {
		case machine.Int:
			return av == machine.Float(bv)
		case machine.Float:
			return av == bv
		}
		return false
	}
	return a == b
}

func nativeAssert(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	v := co.Arg(argCount, 0)
	if v.Truthy() {
		for i := 0; i < argCount; i++ {
			co.Push(co.Arg(argCount, i))
		}
		return argCount, nil
	}
	if argCount >= 2 {
		return 0, &machine.RuntimeError{Value: co.Arg(argCount, 1)}
	}
	return 0, &machine.RuntimeError{Value: machine.String("assertion failed!")}
}

func nativeError(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	v := co.Arg(argCount, 0)
	level := int64(1)
	if argCount >= 2 {
		if l, ok := machine.ToInt(co.Arg(argCount, 1)); ok {
			level = l
		}
	}
	re := &machine.RuntimeError{Value: v}
	if s, ok := v.(machine.String); ok && level > 0 {
		if source, line := vm.Where(co); line > 0 {
			re.Source, re.Line = source, line
			re.Value = machine.String(fmt.Sprintf("%s:%d: %s", source, line, s))
		}
	}
	re.Traceback = vm.Traceback(co)
	return 0, re
}

func nativePCall(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	if argCount < 1 {
		return 0, fmt.Errorf("bad argument #1 to 'pcall' (value expected)")
	}
	fn := co.Arg(argCount, 0)
	args := make([]machine.Value, argCount-1)
	for i := range args {
		args[i] = co.Arg(argCount, i+1)
	}
	results, err := vm.Call(co, fn, args)
	if err != nil {
		co.Push(machine.Bool(false))
		co.Push(errorValue(err))
		return 2, nil
	}
	co.Push(machine.Bool(true))
	for _, r := range results {
		co.Push(r)
	}
	return 1 + len(results), nil
}

func nativeXPCall(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	if argCount < 2 {
		return 0, fmt.Errorf("bad argument #2 to 'xpcall' (value expected)")
	}
	fn := co.Arg(argCount, 0)
	handler := co.Arg(argCount, 1)
	args := make([]machine.Value, argCount-2)
	for i := range args {
		args[i] = co.Arg(argCount, i+2)
	}
	results, err := vm.Call(co, fn, args)
	if err != nil {
		handled, herr := vm.Call(co, handler, []machine.Value{errorValue(err)})
		if herr != nil {
			return 0, herr
		}
		co.Push(machine.Bool(false))
		for _, r := range handled {
			co.Push(r)
		}
		return 1 + len(handled), nil
	}
	co.Push(machine.Bool(true))
	for _, r := range results {
		co.Push(r)
	}
	return 1 + len(results), nil
}

// errorValue recovers the Lua-level error value from a Go error: a
// RuntimeError's own Value (whatever error()/a failed operation raised),
// or the error's message as a plain string for a HostError or anything
// else escaping from native Go code.
func errorValue(err error) machine.Value {
	if re, ok := err.(*machine.RuntimeError); ok {
		return re.Value
	}
	return machine.String(err.Error())
}
