package stdlib

import (
	"fmt"
	"strings"

	"github.com/thara/vela/lang/machine"
)

func openTable(vm *machine.VM) {
	t := vm.NewTable(0, 4)
	machine.Register(t, "insert", nativeTableInsert)
	machine.Register(t, "remove", nativeTableRemove)
	machine.Register(t, "concat", nativeTableConcat)
	machine.Register(t, "unpack", nativeTableUnpack)
	vm.Globals.Set(machine.String("table"), t)
}

// tableBorderLen finds a border the way table.insert/remove's original
// implementation does: walk forward from 1 until a nil is hit, rather than
// trusting Table.Len's "unspecified on tables with holes" contract, since
// insert/remove specifically need the sequence's true end.
func tableBorderLen(t *machine.Table) int {
	n := 1
	for {
		if _, isNil := t.Get(machine.Int(n)).(machine.Nil); isNil {
			return n - 1
		}
		n++
	}
}

func nativeTableInsert(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	if argCount < 2 || argCount > 3 {
		return 0, argCountError("insert", "2 or 3")
	}
	t, err := wantTable("insert", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	n := tableBorderLen(t)

	if argCount == 2 {
		if err := t.Set(machine.Int(n+1), co.Arg(argCount, 1)); err != nil {
			return 0, err
		}
		return 0, nil
	}

	pos, ok := machine.ToInt(co.Arg(argCount, 1))
	if !ok {
		return 0, argError("insert", 2, "number", co.Arg(argCount, 1))
	}
	value := co.Arg(argCount, 2)
	for i := n; i >= int(pos); i-- {
		if err := t.Set(machine.Int(i+1), t.Get(machine.Int(i))); err != nil {
			return 0, err
		}
	}
	if err := t.Set(machine.Int(pos), value); err != nil {
		return 0, err
	}
	return 0, nil
}

func nativeTableRemove(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	if argCount < 1 || argCount > 2 {
		return 0, argCountError("remove", "1 or 2")
	}
	t, err := wantTable("remove", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	n := tableBorderLen(t)
	pos := int64(n)
	if argCount == 2 {
		pos, err = wantInt("remove", 2, co, argCount, 1, int64(n), false)
		if err != nil {
			return 0, err
		}
	}

	removed := t.Get(machine.Int(pos))
	if pos >= 1 && int(pos) <= n {
		for i := int(pos); i < n; i++ {
			if err := t.Set(machine.Int(i), t.Get(machine.Int(i+1))); err != nil {
				return 0, err
			}
		}
		if err := t.Set(machine.Int(n), machine.Null); err != nil {
			return 0, err
		}
	}
	co.Push(removed)
	return 1, nil
}

func nativeTableConcat(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	if argCount < 1 || argCount > 4 {
		return 0, argCountError("concat", "1 to 4")
	}
	t, err := wantTable("concat", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	sep := ""
	if argCount >= 2 {
		sep, err = wantString("concat", 2, co, argCount, 1)
		if err != nil {
			return 0, err
		}
	}
	n := tableBorderLen(t)
	i, err := wantInt("concat", 3, co, argCount, 2, 1, true)
	if err != nil {
		return 0, err
	}
	j, err := wantInt("concat", 4, co, argCount, 3, int64(n), true)
	if err != nil {
		return 0, err
	}

	var parts []string
	for k := i; k <= j; k++ {
		v := t.Get(machine.Int(k))
		s, ok := concatPart(v)
		if !ok {
			return 0, argError("concat", 1, "string or number table entry", v)
		}
		parts = append(parts, s)
	}
	co.Push(machine.String(strings.Join(parts, sep)))
	return 1, nil
}

func concatPart(v machine.Value) (string, bool) {
	switch v := v.(type) {
	case machine.String:
		return string(v), true
	case machine.Int, machine.Float:
		return v.String(), true
	}
	return "", false
}

func nativeTableUnpack(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	if argCount < 1 || argCount > 3 {
		return 0, argCountError("unpack", "1 to 3")
	}
	t, err := wantTable("unpack", 1, co, argCount, 0)
	if err != nil {
		return 0, err
	}
	n := tableBorderLen(t)
	i, err := wantInt("unpack", 2, co, argCount, 1, 1, true)
	if err != nil {
		return 0, err
	}
	j, err := wantInt("unpack", 3, co, argCount, 2, int64(n), true)
	if err != nil {
		return 0, err
	}
	count := 0
	for k := i; k <= j; k++ {
		co.Push(t.Get(machine.Int(k)))
		count++
	}
	return count, nil
}

func argCountError(fn, want string) error {
	return fmt.Errorf("%s expects %s arguments", fn, want)
}
