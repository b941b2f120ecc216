package machine

// Native function protocol: a NativeFn's Fn is called with argCount
// arguments already sitting on top of co's stack (pushed by the caller, in
// order, with the callee itself one slot below the first argument). Fn
// reads them with co.Arg(argCount, i) and returns its results by pushing
// them with co.push, in order, without first popping its own arguments;
// the VM's call machinery trims the callee-and-arguments window away once
// Fn returns, keeping only the newly pushed results. Fn returns the number
// of values it pushed, or an error to raise a Lua error with that value.
//
// This mirrors the original implementation's native-function convention
// (arguments read directly off the interpreter's operand stack, results
// written back in place) adapted to a push-only discipline, which keeps
// every native function's stack bookkeeping symmetric with the bytecode
// instructions that call it.

// Arg returns the i'th argument (0-based) of the native call currently
// executing with argCount total arguments, or Null if i is out of range
// (Lua functions silently receive nil for missing arguments).
func (co *Coroutine) Arg(argCount, i int) Value {
	if i < 0 || i >= argCount {
		return Null
	}
	base := len(co.stack) - argCount
	return co.stack[base+i]
}

// Push is the public alias native functions use to return a result value;
// it is identical to the package-private push used by the dispatch loop.
func (co *Coroutine) Push(v Value) { co.push(v) }

// Register installs a native function under name in t, wrapping fn in a
// *NativeFn. It is a small convenience used by every standard-library
// package to populate its module table.
func Register(t *Table, name string, fn func(vm *VM, co *Coroutine, argCount int) (int, error)) {
	t.Set(String(name), &NativeFn{FnName: name, Fn: fn})
}

// Call invokes a Lua-callable value fn (a Closure or NativeFn, or a value
// whose metatable defines __call) from Go code, as used by pcall, xpcall,
// and metamethod dispatch. It runs to completion
// before returning: if fn is a Closure, this temporarily re-enters the
// dispatch loop for co.
func (vm *VM) Call(co *Coroutine, fn Value, args []Value) ([]Value, error) {
	depth := len(co.frames)
	if err := vm.callValue(co, fn, args, -1); err != nil {
		return nil, err
	}
	// If fn was a NativeFn (or a __call chain that bottomed out in one),
	// callValue already ran it to completion and pushed no frame; dispatch
	// then exits immediately, since len(co.frames) == depth already, and
	// reads the results callValue left on the stack.
	return vm.dispatch(co, depth)
}
