package machine

import "fmt"

// Upvalue is the indirection a closure uses to share a variable with the
// function that created it and with any sibling closures that capture the
// same local. It has two states, following the original's UpvalueObject:
// open, while the variable is still a live slot on some coroutine's value
// stack, and closed, once that stack frame has returned and the value has
// been copied out to be owned solely by the upvalue.
type Upvalue struct {
	stack  *[]Value // the coroutine value stack this upvalue is open on, or nil once closed
	index  int      // slot index into *stack while open
	closed Value    // the owned value once closed

	gcHeader
}

var _ Value = (*Upvalue)(nil)

func (u *Upvalue) String() string { return fmt.Sprintf("upvalue: %p", u) }
func (u *Upvalue) Type() string   { return "upvalue" }
func (u *Upvalue) Truthy() bool   { return true }

func (u *Upvalue) isOpen() bool { return u.stack != nil }

// get returns the upvalue's current value, reading through to the live
// stack slot while open.
func (u *Upvalue) get() Value {
	if u.isOpen() {
		return (*u.stack)[u.index]
	}
	return u.closed
}

// set stores v into the upvalue, writing through to the live stack slot
// while open.
func (u *Upvalue) set(v Value) {
	if u.isOpen() {
		(*u.stack)[u.index] = v
	} else {
		u.closed = v
	}
	u.barrier(u, v)
}

// close snapshots the current stack-slot value into the upvalue and detaches
// it from the stack, so it survives the stack frame that created it. Called
// when a local goes out of scope (CLOSEUPVAL), or when the function whose
// frame holds it returns or is replaced by a tail call.
func (u *Upvalue) close() {
	if !u.isOpen() {
		return
	}
	u.closed = (*u.stack)[u.index]
	u.stack = nil
	u.barrier(u, u.closed)
}

func (u *Upvalue) markChildren(gc *GC) { gc.markValue(u.get()) }

// openUpvalues tracks the open upvalues for one coroutine's stack, sorted by
// descending index, so that multiple closures capturing the same local
// share a single Upvalue instead of aliasing two independent cells.
// Grounded on the linked, sorted-by-stack-slot open-upvalue list pattern
// used by register-based closure implementations in the retrieved corpus
// (a single list walked front-to-back when a new upvalue is requested or
// when a range of slots is closed).
type openUpvalues struct {
	list []*Upvalue // kept sorted by descending index
}

// find returns the open upvalue already capturing stack slot index, if any.
func (o *openUpvalues) find(index int) *Upvalue {
	for _, uv := range o.list {
		if uv.index == index {
			return uv
		}
	}
	return nil
}

// capture returns the open upvalue for stack slot index, creating one
// pointed at stack and registering it with gc if none exists yet.
func (o *openUpvalues) capture(gc *GC, stack *[]Value, index int) *Upvalue {
	if uv := o.find(index); uv != nil {
		return uv
	}
	uv := &Upvalue{stack: stack, index: index}
	gc.track(uv, 32)
	i := 0
	for i < len(o.list) && o.list[i].index > index {
		i++
	}
	o.list = append(o.list, nil)
	copy(o.list[i+1:], o.list[i:])
	o.list[i] = uv
	return uv
}

// closeFrom closes and removes every open upvalue at or above stack slot
// from, called when a block or function scope whose base is from exits.
func (o *openUpvalues) closeFrom(from int) {
	kept := o.list[:0]
	for _, uv := range o.list {
		if uv.index >= from {
			uv.close()
		} else {
			kept = append(kept, uv)
		}
	}
	o.list = kept
}
