package stdlib

import (
	"strings"

	"github.com/thara/vela/lang/machine"
)

func openString(vm *machine.VM) {
	t := vm.NewTable(0, 8)
	machine.Register(t, "upper", nativeStringUpper)
	machine.Register(t, "lower", nativeStringLower)
	machine.Register(t, "len", nativeStringLen)
	machine.Register(t, "sub", nativeStringSub)
	machine.Register(t, "byte", nativeStringByte)
	machine.Register(t, "char", nativeStringChar)
	machine.Register(t, "rep", nativeStringRep)
	machine.Register(t, "find", nativeStringFind)
	vm.Globals.Set(machine.String("string"), t)
}

func wantString(fn string, n int, co *machine.Coroutine, argCount, i int) (string, error) {
	v := co.Arg(argCount, i)
	s, ok := v.(machine.String)
	if !ok {
		return "", argError(fn, n, "string", v)
	}
	return string(s), nil
}

func wantInt(fn string, n int, co *machine.Coroutine, argCount, i int, def int64, hasDef bool) (int64, error) {
	v := co.Arg(argCount, i)
	if _, isNil := v.(machine.Nil); isNil && hasDef {
		return def, nil
	}
	iv, ok := machine.ToInt(v)
	if !ok {
		return 0, argError(fn, n, "number", v)
	}
	return iv, nil
}

func nativeStringUpper(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	s, err := wantString("upper", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	co.Push(machine.String(strings.ToUpper(s)))
	return 1, nil
}

func nativeStringLower(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	s, err := wantString("lower", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	co.Push(machine.String(strings.ToLower(s)))
	return 1, nil
}

func nativeStringLen(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	s, err := wantString("len", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	co.Push(machine.Int(len(s)))
	return 1, nil
}

// normalizeRange implements Lua's 1-based, negative-counts-from-the-end,
// clamped-to-bounds indexing shared by string.sub and string.byte.
func normalizeRange(n, i, j int) (int, int) {
	if i < 0 {
		i = n + i + 1
	}
	if j < 0 {
		j = n + j + 1
	}
	if i < 1 {
		i = 1
	}
	if j > n {
		j = n
	}
	return i, j
}

func nativeStringSub(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	s, err := wantString("sub", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	i, err := wantInt("sub", 2, co, argCount, 1, 1, false)
	if err != nil {
		return 0, err
	}
	j, err := wantInt("sub", 3, co, argCount, 2, -1, true)
	if err != nil {
		return 0, err
	}
	start, end := normalizeRange(len(s), int(i), int(j))
	if start > end {
		co.Push(machine.String(""))
		return 1, nil
	}
	co.Push(machine.String(s[start-1 : end]))
	return 1, nil
}

func nativeStringByte(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	s, err := wantString("byte", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	i, err := wantInt("byte", 2, co, argCount, 1, 1, true)
	if err != nil {
		return 0, err
	}
	j, err := wantInt("byte", 3, co, argCount, 2, i, true)
	if err != nil {
		return 0, err
	}
	start, end := normalizeRange(len(s), int(i), int(j))
	if start > end {
		return 0, nil
	}
	n := 0
	for k := start; k <= end; k++ {
		co.Push(machine.Int(s[k-1]))
		n++
	}
	return n, nil
}

func nativeStringChar(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	b := make([]byte, argCount)
	for i := 0; i < argCount; i++ {
		iv, ok := machine.ToInt(co.Arg(argCount, i))
		if !ok || iv < 0 || iv > 255 {
			return 0, argError("char", i+1, "number in [0,255]", co.Arg(argCount, i))
		}
		b[i] = byte(iv)
	}
	co.Push(machine.String(b))
	return 1, nil
}

func nativeStringRep(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	s, err := wantString("rep", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	n, err := wantInt("rep", 2, co, argCount, 1, 0, false)
	if err != nil {
		return 0, err
	}
	sep := ""
	if argCount >= 3 {
		sep, err = wantString("rep", 3, co, argCount, 2)
		if err != nil {
			return 0, err
		}
	}
	if n <= 0 {
		co.Push(machine.String(""))
		return 1, nil
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s
	}
	co.Push(machine.String(strings.Join(parts, sep)))
	return 1, nil
}

// nativeStringFind implements only the literal-substring subset of Lua's
// string.find: no pattern matching, per spec's explicit non-goal on that
// feature. A `plain` fourth argument, if given, is accepted and ignored,
// since every search this function does is already a plain search.
func nativeStringFind(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	s, err := wantString("find", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	pat, err := wantString("find", 2, co, argCount, 1)
	if err != nil {
		return 0, err
	}
	init, err := wantInt("find", 3, co, argCount, 2, 1, true)
	if err != nil {
		return 0, err
	}
	start := int(init)
	if start < 0 {
		start = len(s) + start + 1
	}
	if start < 1 {
		start = 1
	}
	if start > len(s)+1 {
		co.Push(machine.Null)
		return 1, nil
	}
	idx := strings.Index(s[start-1:], pat)
	if idx < 0 {
		co.Push(machine.Null)
		return 1, nil
	}
	from := start + idx
	to := from + len(pat) - 1
	co.Push(machine.Int(from))
	co.Push(machine.Int(to))
	return 2, nil
}
