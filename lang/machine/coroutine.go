package machine

import "fmt"

// CoroutineStatus mirrors the states the `coroutine.status` builtin reports.
type CoroutineStatus uint8

const (
	StatusSuspended CoroutineStatus = iota
	StatusRunning
	StatusNormal // resumed another coroutine and is waiting for it to finish
	StatusDead
)

func (s CoroutineStatus) String() string {
	switch s {
	case StatusSuspended:
		return "suspended"
	case StatusRunning:
		return "running"
	case StatusNormal:
		return "normal"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Coroutine is a first-class Lua thread of execution: its own value stack
// and call-frame stack, resumable and suspendable independently of the VM's
// other coroutines. The VM's main coroutine and every coroutine.create'd
// one share this same representation, following the original's
// CoroutineObject (stack, frames, openUpvalues, status, caller back-
// pointer) rather than the teacher's one-Thread-per-top-level-run design,
// since Lua coroutines need to suspend mid-call and be resumed later by a
// different caller.
type Coroutine struct {
	stack  []Value
	frames []*frame
	open   openUpvalues

	status CoroutineStatus
	caller *Coroutine // who resumed this coroutine, if currently running/normal

	// entry is the closure coroutine.create was given; resume starts it on
	// first call and the coroutine dies once it returns.
	entry *Closure

	// xfer carries values across a resume/yield boundary: resume's extra
	// arguments on the way in, yield's or the entry function's results on
	// the way out.
	xfer []Value

	// lastResultCount is how many values the most recently completed
	// CALL, CALLMULTI, VARARG, RETURN, or YIELD actually produced; the
	// AllResults operand sentinel means "consult this" rather than a fixed
	// literal count.
	lastResultCount int

	// hook, hookMask and hookCount implement debug.sethook: a callable
	// invoked non-reentrantly (inHook guards against the hook itself
	// triggering a hook call) as instructions with matching event bits
	// execute. hookCount/baseHookCount implement the "count" mask: the
	// hook fires every baseHookCount instructions.
	hook          Value
	hookMask      hookMask
	hookCount     int
	baseHookCount int
	lastHookLine  int32
	inHook        bool

	gcHeader
}

var _ Value = (*Coroutine)(nil)

func (co *Coroutine) String() string { return fmt.Sprintf("thread: %p", co) }
func (co *Coroutine) Type() string   { return "thread" }
func (co *Coroutine) Truthy() bool   { return true }

func (co *Coroutine) markChildren(gc *GC) {
	for _, v := range co.stack {
		if v != nil {
			gc.markValue(v)
		}
	}
	for _, fr := range co.frames {
		if fr.closure != nil {
			gc.markObject(fr.closure)
		}
	}
	for _, uv := range co.open.list {
		gc.markObject(uv)
	}
	for _, v := range co.xfer {
		gc.markValue(v)
	}
	if co.caller != nil {
		gc.markObject(co.caller)
	}
	if co.hook != nil {
		gc.markValue(co.hook)
	}
}

// newCoroutine returns a freshly created, suspended coroutine wrapping
// entry, which has not yet run.
func newCoroutine(entry *Closure) *Coroutine {
	return &Coroutine{
		entry:  entry,
		status: StatusSuspended,
		stack:  make([]Value, 0, entry.Proto.MaxStack+8),
	}
}

// push/pop/ensure manage the coroutine's shared value stack; the dispatch
// loop in vm.go grows it on demand rather than pre-sizing it exactly, since
// MaxStack is only a compiler-reported high-water-mark hint.
func (co *Coroutine) push(v Value) { co.stack = append(co.stack, v) }

func (co *Coroutine) pop() Value {
	n := len(co.stack) - 1
	v := co.stack[n]
	co.stack[n] = nil
	co.stack = co.stack[:n]
	return v
}

func (co *Coroutine) ensure(n int) {
	if cap(co.stack) < n {
		grown := make([]Value, len(co.stack), n)
		copy(grown, co.stack)
		co.stack = grown
	}
}

// Status reports co's current CoroutineStatus, as used by coroutine.status.
func (co *Coroutine) Status() CoroutineStatus { return co.status }

// SetHook installs (or, with hook == nil, clears) co's debug hook and the
// call/return/line/count event mask it responds to, as used by
// debug.sethook. count is the instruction interval for the "count" event;
// any count > 0 enables that event whatever mask says, and 0 disables it.
func (co *Coroutine) SetHook(hook Value, mask string, count int) {
	co.hook = hook
	co.hookMask = parseHookMask(mask)
	if count > 0 {
		co.hookMask |= hookCountEvt
		co.baseHookCount = count
		co.hookCount = count
	} else {
		co.baseHookCount = 0
		co.hookCount = 0
	}
}

func (co *Coroutine) currentFrame() *frame {
	if len(co.frames) == 0 {
		return nil
	}
	return co.frames[len(co.frames)-1]
}
