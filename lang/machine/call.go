package machine

import (
	"fmt"

	"github.com/thara/vela/lang/compiler"
)

func constToValue(k compiler.Const) Value {
	switch k.Kind {
	case compiler.ConstNil:
		return Null
	case compiler.ConstBool:
		return Bool(k.Bool)
	case compiler.ConstInt:
		return Int(k.Int)
	case compiler.ConstFloat:
		return Float(k.Float)
	case compiler.ConstString:
		return String(k.Str)
	default:
		return Null
	}
}

// callValue starts a call to fn with args, on co, wanting want results
// (want < 0 means "all", left for the caller to read back via
// co.lastResultCount once the call completes). Unlike callAt, which the
// dispatch loop uses for CALL/CALLMULTI (operating on values already sitting
// on the coroutine's stack), callValue is the entry point used by Resume and
// by native functions that need to call back into Lua (pcall, __index,
// ...): it pushes args itself.
func (vm *VM) callValue(co *Coroutine, fn Value, args []Value, want int) error {
	base := len(co.stack)
	co.push(fn)
	for _, a := range args {
		co.push(a)
	}
	return vm.callAt(co, base, len(args), want)
}

// callAt invokes the callable sitting at co.stack[base] with nargs
// arguments following it, requesting want results (want < 0 for "all").
// For a Closure this pushes a new frame and returns immediately, letting the
// dispatch loop run it; for a NativeFn it runs to completion synchronously.
// Either way, on return the callable and its arguments have been replaced
// in-place by the call's results (or, for a Closure call, will be once that
// frame eventually returns).
func (vm *VM) callAt(co *Coroutine, base, nargs, want int) error {
	if vm.MaxCallDepth > 0 && len(co.frames) >= vm.MaxCallDepth {
		return &RuntimeError{Value: String("stack overflow")}
	}

	fn := co.stack[base]
	switch f := fn.(type) {
	case *Closure:
		return vm.enterClosure(co, f, base, nargs, want, false)

	case *NativeFn:
		argc := nargs
		n, err := f.Fn(vm, co, argc)
		if ys, ok := err.(*yieldSignal); ok {
			// coroutine.yield suspends straight out of its own NativeFn call
			// rather than through a bytecode instruction: collapse the
			// callee+argument window exactly as a normal return would, and
			// leave co.xfer/fr.yieldWant for the eventual Resume to deliver
			// into, the same way the YIELD opcode's own handler does.
			co.stack = co.stack[:base]
			co.xfer = ys.vals
			if fr := co.currentFrame(); fr != nil {
				fr.yieldWant = want
			}
			co.status = StatusSuspended
			return nil
		}
		if err != nil {
			return wrapRuntimeError(vm, co, err)
		}
		return vm.finishNative(co, base, nargs, n, want)

	default:
		if h := metamethod(fn, metaCall); h != nil {
			// __call prepends the original callee as the new first argument.
			co.stack = append(co.stack[:base], append([]Value{h, fn}, co.stack[base+1:base+1+nargs]...)...)
			return vm.callAt(co, base, nargs+1, want)
		}
		return wrapRuntimeError(vm, co, fmt.Errorf("attempt to call a %s value", typeName(fn)))
	}
}

// tailCallAt implements TAILCALL/TAILCALLMULTI: a Closure callee replaces
// the current frame rather than nesting under it, so a chain of Lua tail
// calls runs in constant call-stack space. A NativeFn or __call chain has
// no frame of its own to replace; it is run synchronously to completion
// instead, and its results are then delivered to this frame's caller
// exactly as RETURN would.
func (vm *VM) tailCallAt(co *Coroutine, base, nargs int) error {
	fr := co.frames[len(co.frames)-1]
	fn := co.stack[base]

	if cl, ok := fn.(*Closure); ok {
		return vm.enterClosure(co, cl, base, nargs, fr.wantResults, true)
	}

	depth := len(co.frames)
	if err := vm.callAt(co, base, nargs, -1); err != nil {
		return err
	}
	if co.status == StatusSuspended {
		// fn (or a __call chain bottoming out in a NativeFn) suspended the
		// coroutine directly, e.g. a tail call to coroutine.yield; let the
		// suspension propagate up through the running dispatch loop as-is.
		// The resumed values land back in this frame's window, which RETURN
		// (already the only thing left in the tail-called function) delivers
		// onward exactly as it would any other return value.
		return nil
	}
	vals, err := vm.dispatch(co, depth)
	if err != nil {
		return err
	}
	vm.returnFrom(co, vals)
	return nil
}

// enterClosure pushes a new frame running cl's body with nargs arguments
// already sitting on the stack at base+1..base+nargs (base itself holds the
// callee, overwritten once the call returns). If tail is true, the new
// frame replaces the caller's own frame instead of nesting under it.
func (vm *VM) enterClosure(co *Coroutine, cl *Closure, base, nargs, want int, tail bool) error {
	p := cl.Proto
	fixed := p.NumParams

	newBase := base + 1 // the closure's locals start right after the callee slot
	co.ensure(newBase + p.MaxStack)

	varargBase, varargCount := 0, 0
	if p.IsVararg && nargs > fixed {
		varargBase = newBase + fixed
		varargCount = nargs - fixed
		// The extras stay in place (varargBase records where VARARG reads
		// them from) and the fixed parameters are copied above them, so the
		// frame's local slots start right after the extras.
		for i := 0; i < fixed; i++ {
			co.push(co.stack[newBase+i])
		}
		newBase += nargs
	}
	// Pad missing fixed parameters with nil, and trim extras passed to a
	// non-vararg function.
	for nargs < fixed {
		co.push(Null)
		nargs++
	}
	for !p.IsVararg && nargs > fixed {
		co.pop()
		nargs--
	}

	retBase := base
	wantResults := want
	var prevFrame *frame
	if tail {
		prevFrame = co.frames[len(co.frames)-1]
		retBase = prevFrame.retBase
		wantResults = prevFrame.wantResults
		co.open.closeFrom(prevFrame.base)
	}

	fr := &frame{
		closure:     cl,
		base:        newBase,
		varargBase:  varargBase,
		varargCount: varargCount,
		retBase:     retBase,
		wantResults: wantResults,
		isTail:      tail,
	}

	if tail {
		// Shift the callee+args window down over the old frame's window
		// (which starts at its retBase) and drop the old frame; the stack
		// no longer grows per nested tail call.
		oldBase := prevFrame.retBase
		shiftLen := newBase + fixed - base
		copy(co.stack[oldBase:oldBase+shiftLen], co.stack[base:base+shiftLen])
		co.stack = co.stack[:oldBase+shiftLen]
		fr.base = newBase - base + oldBase
		fr.varargBase = fr.varargBase - base + oldBase
		co.frames[len(co.frames)-1] = fr
	} else {
		co.frames = append(co.frames, fr)
	}
	if co.hookMask&hookCall != 0 {
		vm.fireHook(co, "call", fr.line())
	}
	return nil
}

// finishNative replaces a completed native call's callee+arguments window
// (base..base+nargs) with its n results, trimmed or nil-padded to want (or
// left as-is, recording n in lastResultCount, if want is AllResults).
func (vm *VM) finishNative(co *Coroutine, base, nargs, n, want int) error {
	results := append([]Value(nil), co.stack[len(co.stack)-n:]...)
	co.stack = co.stack[:base]
	if want < 0 {
		co.lastResultCount = n
		for _, v := range results {
			co.push(v)
		}
		return nil
	}
	for i := 0; i < want; i++ {
		if i < len(results) {
			co.push(results[i])
		} else {
			co.push(Null)
		}
	}
	return nil
}

// returnFrom pops co's topmost frame, delivering vals as its results to the
// caller: written at fr.retBase, trimmed/padded to fr.wantResults (or left
// as-is with lastResultCount set, if the caller wanted AllResults).
func (vm *VM) returnFrom(co *Coroutine, vals []Value) {
	fr := co.frames[len(co.frames)-1]
	if co.hookMask&hookReturn != 0 {
		vm.fireHook(co, "return", fr.line())
	}
	co.open.closeFrom(fr.base)
	co.frames = co.frames[:len(co.frames)-1]
	co.stack = co.stack[:fr.retBase]

	if fr.wantResults < 0 {
		co.lastResultCount = len(vals)
		for _, v := range vals {
			co.push(v)
		}
		return
	}
	for i := 0; i < fr.wantResults; i++ {
		if i < len(vals) {
			co.push(vals[i])
		} else {
			co.push(Null)
		}
	}
}

// Traceback reports co's active call frames, innermost first, as used by
// debug.traceback and by wrapRuntimeError's own RuntimeError.Traceback.
func (vm *VM) Traceback(co *Coroutine) []TraceEntry {
	var entries []TraceEntry
	for i := len(co.frames) - 1; i >= 0; i-- {
		fr := co.frames[i]
		entries = append(entries, TraceEntry{
			Source: fr.proto().Source,
			Line:   fr.line(),
			Name:   fr.closure.Name(),
		})
	}
	return entries
}

func wrapRuntimeError(vm *VM, co *Coroutine, err error) error {
	if _, ok := err.(*RuntimeError); ok {
		return err
	}
	if _, ok := err.(*HostError); ok {
		return err
	}
	re := &RuntimeError{Value: String(err.Error())}
	if fr := co.currentFrame(); fr != nil {
		re.Line = fr.line()
		re.Source = fr.proto().Source
	}
	for i := len(co.frames) - 1; i >= 0; i-- {
		fr := co.frames[i]
		re.Traceback = append(re.Traceback, TraceEntry{
			Source: fr.proto().Source,
			Line:   fr.line(),
			Name:   fr.closure.Name(),
		})
	}
	return re
}
