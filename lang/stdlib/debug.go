package stdlib

import (
	"fmt"
	"strings"

	"github.com/thara/vela/lang/machine"
)

func openDebug(vm *machine.VM) {
	t := vm.NewTable(0, 4)
	machine.Register(t, "traceback", nativeDebugTraceback)
	machine.Register(t, "sethook", nativeDebugSethook)
	vm.Globals.Set(machine.String("debug"), t)
}

func nativeDebugTraceback(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	msg := ""
	if argCount >= 1 {
		if s, ok := co.Arg(argCount, 0).(machine.String); ok {
			msg = string(s) + "\n"
		}
	}
	var b strings.Builder
	b.WriteString(msg)
	b.WriteString("stack traceback:")
	for _, e := range vm.Traceback(co) {
		name := e.Name
		if name == "" {
			name = "?"
		}
		fmt.Fprintf(&b, "\n\t%s:%d: in function '%s'", e.Source, e.Line, name)
	}
	co.Push(machine.String(b.String()))
	return 1, nil
}

// nativeDebugSethook implements debug.sethook([thread,] hook, mask, count):
// a leading coroutine argument selects whose hook is set, otherwise the
// running coroutine's; with no hook argument the hook is cleared.
func nativeDebugSethook(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	target := co
	argBase := 0
	if argCount >= 1 {
		if t, ok := co.Arg(argCount, 0).(*machine.Coroutine); ok {
			target = t
			argBase = 1
		}
	}

	if argCount <= argBase {
		target.SetHook(nil, "", 0)
		return 0, nil
	}

	hook := co.Arg(argCount, argBase)
	mask := ""
	if argCount > argBase+1 {
		if s, ok := co.Arg(argCount, argBase+1).(machine.String); ok {
			mask = string(s)
		}
	}
	count := 0
	if argCount > argBase+2 {
		if n, ok := machine.ToInt(co.Arg(argCount, argBase+2)); ok {
			count = int(n)
		}
	}
	target.SetHook(hook, mask, count)
	return 0, nil
}
