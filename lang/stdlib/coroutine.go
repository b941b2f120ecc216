package stdlib

import (
	"fmt"

	"github.com/thara/vela/lang/machine"
)

func openCoroutine(vm *machine.VM) {
	t := vm.NewTable(0, 8)
	machine.Register(t, "create", nativeCoroutineCreate)
	machine.Register(t, "resume", nativeCoroutineResume)
	machine.Register(t, "yield", nativeCoroutineYield)
	machine.Register(t, "status", nativeCoroutineStatus)
	machine.Register(t, "running", nativeCoroutineRunning)
	machine.Register(t, "isyieldable", nativeCoroutineIsYieldable)
	machine.Register(t, "wrap", nativeCoroutineWrap)
	vm.Globals.Set(machine.String("coroutine"), t)
}

func nativeCoroutineCreate(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	cl, ok := co.Arg(argCount, 0).(*machine.Closure)
	if !ok {
		return 0, argError("create", 1, "function", co.Arg(argCount, 0))
	}
	co.Push(vm.NewCoroutine(cl))
	return 1, nil
}

func nativeCoroutineResume(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	if argCount < 1 {
		return 0, fmt.Errorf("bad argument #1 to 'resume' (coroutine expected)")
	}
	target, ok := co.Arg(argCount, 0).(*machine.Coroutine)
	if !ok {
		return 0, argError("resume", 1, "coroutine", co.Arg(argCount, 0))
	}
	args := make([]machine.Value, argCount-1)
	for i := range args {
		args[i] = co.Arg(argCount, i+1)
	}

	results, err := vm.Resume(target, args)
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

// nativeCoroutineYield suspends the running coroutine by returning a
// *yieldSignal-producing failure the machine package's call machinery
// intercepts specially (see lang/machine/call.go's callAt): yield is an
// ordinary native-function call, not a bytecode instruction, exactly as in
// the reference implementation this is grounded on.
func nativeCoroutineYield(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	vals := make([]machine.Value, argCount)
	for i := range vals {
		vals[i] = co.Arg(argCount, i)
	}
	return 0, machine.NewYieldSignal(vals)
}

func nativeCoroutineStatus(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	target, ok := co.Arg(argCount, 0).(*machine.Coroutine)
	if !ok {
		return 0, argError("status", 1, "coroutine", co.Arg(argCount, 0))
	}
	co.Push(machine.String(target.Status().String()))
	return 1, nil
}

func nativeCoroutineRunning(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	cur := vm.Current()
	if cur == nil {
		co.Push(machine.Null)
		co.Push(machine.Bool(true))
		return 2, nil
	}
	co.Push(cur)
	co.Push(machine.Bool(cur == vm.Main()))
	return 2, nil
}

func nativeCoroutineIsYieldable(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	cur := vm.Current()
	co.Push(machine.Bool(cur != nil && cur != vm.Main()))
	return 1, nil
}

// nativeCoroutineWrap returns a closure-free native function that wraps
// coroutine.create+resume: it propagates a resume error as a real Lua
// error instead of a (false, err) pair, matching coroutine.wrap's contract.
func nativeCoroutineWrap(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
	cl, ok := co.Arg(argCount, 0).(*machine.Closure)
	if !ok {
		return 0, argError("wrap", 1, "function", co.Arg(argCount, 0))
	}
	target := vm.NewCoroutine(cl)
	wrapped := &machine.NativeFn{
		FnName: "coroutine.wrap",
		Fn: func(vm *machine.VM, co *machine.Coroutine, argCount int) (int, error) {
			args := make([]machine.Value, argCount)
			for i := range args {
				args[i] = co.Arg(argCount, i)
			}
			results, err := vm.Resume(target, args)
			if err != nil {
				return 0, err
			}
			for _, r := range results {
				co.Push(r)
			}
			return len(results), nil
		},
	}
	co.Push(wrapped)
	return 1, nil
}
