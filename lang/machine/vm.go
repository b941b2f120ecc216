package machine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/thara/vela/lang/compiler"
)

// VM is the shared state behind every coroutine compiled bytecode runs on:
// the global table, the heap and its collector, and the resource limits
// that bound a single Run. It plays the role the teacher's Thread plays for
// one Starlark program execution, but a VM outlives and is shared by many
// Coroutines, since Lua coroutines must be able to suspend and be resumed
// by a caller other than the one that created them.
type VM struct {
	Globals *Table

	// Stdout receives print's output and Stderr the Trace lines; nil means
	// the corresponding os.Std* stream. No library function reads Stdin.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxSteps bounds the number of bytecode instructions a single Run may
	// execute before it is cancelled; <= 0 means unlimited.
	MaxSteps int

	// MaxCallDepth bounds the coroutine call-frame stack depth; <= 0 means
	// unlimited (bounded only by available memory).
	MaxCallDepth int

	// Trace, when set, makes dispatch write one line per executed
	// instruction to Stderr: source:line, program counter, and opcode name.
	// Used by the CLI's -v/--verbose (alias --trace) flag.
	Trace bool

	gc *GC

	main    *Coroutine
	current *Coroutine

	ctx   context.Context
	steps uint64
}

// NewVM returns a VM with a fresh, empty global table.
func NewVM() *VM {
	vm := &VM{}
	vm.gc = newGC(vm.gcRoots)
	vm.Globals = NewTable(0, 64)
	vm.gc.track(vm.Globals, 512)
	return vm
}

// NewTable returns an empty table registered with vm's collector, for use
// by standard-library packages and host code building tables that must be
// tracked like any other heap object (an untracked table, once reachable
// only through an already-black object, would never be re-marked on a
// later collection cycle).
func (vm *VM) NewTable(arrayHint, hashHint int) *Table {
	t := NewTable(arrayHint, hashHint)
	vm.gc.track(t, int64(16*(arrayHint+hashHint)+32))
	return t
}

func (vm *VM) gcRoots() []Value {
	roots := []Value{vm.Globals}
	if vm.main != nil {
		roots = append(roots, vm.main)
	}
	if vm.current != nil && vm.current != vm.main {
		roots = append(roots, vm.current)
	}
	return roots
}

// Current returns the coroutine presently running on vm, or nil if vm is
// not in the middle of a Run/Resume. Used by coroutine.running and
// coroutine.isyieldable.
func (vm *VM) Current() *Coroutine { return vm.current }

// Main returns vm's main coroutine (the one Run started), or nil before
// the first Run. coroutine.isyieldable reports false when Current == Main.
func (vm *VM) Main() *Coroutine { return vm.main }

// NewCoroutine creates a fresh, suspended coroutine wrapping entry and
// registers it with vm's collector, as used by coroutine.create.
func (vm *VM) NewCoroutine(entry *Closure) *Coroutine {
	co := newCoroutine(entry)
	vm.gc.track(co, 256)
	return co
}

// Where reports the source and line the coroutine co is currently
// executing, or ("", 0) if co has no active frame (not yet started, or
// already dead). Used by error()'s default level-1 position prefix and by
// debug.traceback.
func (vm *VM) Where(co *Coroutine) (string, int32) {
	fr := co.currentFrame()
	if fr == nil {
		return "", 0
	}
	return fr.proto().Source, fr.line()
}

// Load wraps a compiled top-level chunk as a callable closure, with its
// sole upvalue "_ENV" bound to vm.Globals.
func (vm *VM) Load(proto *compiler.Proto) *Closure {
	env := &Upvalue{closed: vm.Globals}
	vm.gc.track(env, 32)
	cl := &Closure{Proto: proto, Upvals: []*Upvalue{env}}
	vm.gc.track(cl, 64)
	return cl
}

// Run compiles-and-runs nothing itself; it executes an already-loaded
// top-level closure to completion on a fresh main coroutine, passing args as
// the chunk's varargs, and returns its result values.
func (vm *VM) Run(ctx context.Context, top *Closure, args ...Value) ([]Value, error) {
	vm.ctx = ctx
	co := newCoroutine(top)
	vm.main = co
	vm.gc.track(co, 256)
	return vm.Resume(co, args)
}

// Resume starts co if it has never run, or continues it from its last
// yield point. On the first resume args become the entry function's
// arguments; afterwards they are the values coroutine.yield returns to it.
// It returns the values co returned or yielded,
// and any error raised while it ran.
func (vm *VM) Resume(co *Coroutine, args []Value) ([]Value, error) {
	if co.status == StatusDead {
		return nil, fmt.Errorf("cannot resume dead coroutine")
	}
	if co.status == StatusRunning || co.status == StatusNormal {
		return nil, fmt.Errorf("cannot resume non-suspended coroutine")
	}

	prev := vm.current
	if prev != nil {
		prev.status = StatusNormal
	}
	co.caller = prev
	co.status = StatusRunning
	vm.current = co

	var (
		results []Value
		err     error
	)
	if len(co.frames) == 0 {
		if err = vm.callValue(co, co.entry, args, -1); err == nil {
			results, err = vm.dispatch(co, 0)
		}
	} else {
		vm.deliverResume(co, args)
		results, err = vm.dispatch(co, 0)
	}

	vm.current = prev
	if prev != nil {
		prev.status = StatusRunning
	}
	switch {
	case err != nil, len(co.frames) == 0:
		co.status = StatusDead
	case co.status != StatusDead:
		co.status = StatusSuspended
	}
	return results, err
}

// deliverResume pushes the values a resume call supplies to a coroutine
// paused inside YIELD back onto its stack, truncated or nil-padded to the
// count the paused YIELD instruction requested.
func (vm *VM) deliverResume(co *Coroutine, args []Value) {
	fr := co.currentFrame()
	want := fr.yieldWant
	if want < 0 {
		co.lastResultCount = len(args)
		want = len(args)
	}
	for i := 0; i < want; i++ {
		if i < len(args) {
			co.push(args[i])
		} else {
			co.push(Null)
		}
	}
}

// dispatch runs co's topmost frame (and whatever it calls) until either its
// call-frame stack unwinds back down to baseDepth (the call that started
// this dispatch has returned) or a YIELD instruction suspends it. baseDepth
// lets a native function reenter the loop for a single nested Lua call
// (see Call) without running co all the way back out to its entry point.
func (vm *VM) dispatch(co *Coroutine, baseDepth int) ([]Value, error) {
	for {
		if len(co.frames) <= baseDepth {
			n := co.lastResultCount
			results := append([]Value(nil), co.stack[len(co.stack)-n:]...)
			co.stack = co.stack[:len(co.stack)-n]
			return results, nil
		}
		if err := vm.checkBudget(); err != nil {
			return nil, err
		}
		vm.checkLineAndCountHooks(co)
		if vm.Trace {
			vm.traceInstruction(co)
		}
		if err := vm.step(co); err != nil {
			return nil, err
		}
		if co.status == StatusSuspended {
			return co.xfer, nil
		}
	}
}

func (vm *VM) checkBudget() error {
	if vm.ctx != nil {
		select {
		case <-vm.ctx.Done():
			return &HostError{Reason: vm.ctx.Err().Error()}
		default:
		}
	}
	vm.steps++
	if vm.MaxSteps > 0 && vm.steps > uint64(vm.MaxSteps) {
		return &HostError{Reason: "exceeded step budget"}
	}
	vm.gc.maybeCollect()
	return nil
}

// SetGCGrowth overrides the multiplier the collector applies to its running
// allocation estimate to compute its next collection threshold (the original's
// `nextGC_ = bytesAllocated_ * 2`, made configurable here via
// internal/config's VELA_GC_GROWTH).
func (vm *VM) SetGCGrowth(g float64) {
	if g > 1 {
		vm.gc.growth = g
	}
}

// GCStats reports the collector's running allocation estimate (the sizes of
// every object tracked since the VM was created; sweeping does not reduce
// it) and the byte threshold that triggers its next cycle, used by the
// CLI's trace exit summary.
func (vm *VM) GCStats() (bytes, threshold int64) {
	return vm.gc.bytes, vm.gc.thresh
}

// traceInstruction writes one line describing the instruction about to run
// in co's topmost frame to Stderr.
func (vm *VM) traceInstruction(co *Coroutine) {
	fr := co.currentFrame()
	if fr == nil {
		return
	}
	code := fr.code()
	if fr.pc >= len(code) {
		return
	}
	op := compiler.Op(code[fr.pc])
	fmt.Fprintf(vm.traceOut(), "%s:%d  pc=%-4d %s\n", fr.proto().Source, fr.line(), fr.pc, op)
}

func (vm *VM) traceOut() io.Writer {
	if vm.Stderr != nil {
		return vm.Stderr
	}
	return os.Stderr
}
