package machine

import (
	"fmt"

	"github.com/thara/vela/lang/compiler"
)

// Closure pairs a compiled function prototype with the upvalues it
// captured at the point its CLOSURE instruction ran. Grounded on the
// teacher's Function/Module split (a Funcode shared across instances plus
// per-instance free variables); here the split is Proto (shared, produced
// once by the compiler) plus Upvals (one slice per closure instance).
type Closure struct {
	Proto  *compiler.Proto
	Upvals []*Upvalue

	gcHeader
}

var (
	_ Value    = (*Closure)(nil)
	_ Callable = (*Closure)(nil)
)

func (c *Closure) String() string { return fmt.Sprintf("function: %p", c) }
func (c *Closure) Type() string   { return "function" }
func (c *Closure) Truthy() bool   { return true }
func (c *Closure) Name() string   { return c.Proto.Name }

func (c *Closure) markChildren(gc *GC) {
	for _, uv := range c.Upvals {
		gc.markObject(uv)
	}
}

// NativeFn is a Lua-callable function implemented in Go, following the
// native-function protocol: it receives the VM and the number of arguments
// pushed below the top of the current coroutine's stack, and returns the
// number of results it pushed in their place, or an error.
type NativeFn struct {
	FnName string
	Fn     func(vm *VM, co *Coroutine, argCount int) (int, error)
}

var (
	_ Value    = (*NativeFn)(nil)
	_ Callable = (*NativeFn)(nil)
)

func (f *NativeFn) String() string { return fmt.Sprintf("function: builtin: %s", f.FnName) }
func (f *NativeFn) Type() string   { return "function" }
func (f *NativeFn) Truthy() bool   { return true }
func (f *NativeFn) Name() string   { return f.FnName }

// Userdata wraps an arbitrary host Go value so it can travel through Lua
// values, optionally customized by a metatable the way Table is.
type Userdata struct {
	Data any
	meta *Table

	gcHeader
}

var (
	_ Value        = (*Userdata)(nil)
	_ HasMetatable = (*Userdata)(nil)
)

func (u *Userdata) String() string     { return fmt.Sprintf("userdata: %p", u) }
func (u *Userdata) Type() string       { return "userdata" }
func (u *Userdata) Truthy() bool       { return true }
func (u *Userdata) Metatable() *Table  { return u.meta }
func (u *Userdata) SetMetatable(m *Table) { u.meta = m }

func (u *Userdata) markChildren(gc *GC) {
	if u.meta != nil {
		gc.markObject(u.meta)
	}
}
