package machine

import (
	"math"
	"strconv"
)

// Value is the interface implemented by every value the virtual machine can
// hold in a register, local, upvalue, or table slot. Unlike the teacher's
// Starlark-derived Value hierarchy, which models an open-ended set of
// scripting types through a grab-bag of marker interfaces (Iterable,
// Sequence, HasAttrs, HasBinary, ...), Lua's value space is a small, closed
// set of kinds, so Value exposes just enough surface for the dispatch loop
// and the table/metatable machinery to treat any of them uniformly; kind-
// specific behavior (indexing, calling, comparison) is recovered with a type
// switch at the few sites that need it, following the concrete-type pattern
// of the teacher's own Int/Float/String et al.
type Value interface {
	// String returns the value's default string conversion, as used by
	// tostring and by string concatenation of a non-string operand.
	String() string

	// Type returns the Lua type name: "nil", "boolean", "number", "string",
	// "table", "function", "userdata", or "thread".
	Type() string

	// Truthy reports whether the value counts as true in a boolean context.
	// Every value is truthy except nil and the boolean false.
	Truthy() bool
}

// Nil is the unique value of type nil.
type Nil struct{}

// Null is the canonical nil value; it is comparable and safe to use as a map
// key or to store directly in a Table (which otherwise treats a missing key
// and a nil-valued key identically).
var Null = Nil{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }
func (Nil) Truthy() bool   { return false }

// Bool is a boolean value.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string   { return "boolean" }
func (b Bool) Truthy() bool { return bool(b) }

// Int is a Lua integer, the subtype of number holding exact 64-bit values.
type Int int64

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (Int) Type() string     { return "number" }
func (Int) Truthy() bool     { return true }

// Float is a Lua float, the subtype of number holding an IEEE-754 double.
type Float float64

func (f Float) String() string {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'g', 14, 64)
	}
}
func (Float) Type() string { return "number" }
func (Float) Truthy() bool { return true }

// String is an immutable Lua string. Lua strings are byte strings and are
// not required to hold valid UTF-8.
type String string

func (s String) String() string { return string(s) }
func (String) Type() string     { return "string" }
func (String) Truthy() bool     { return true }

// Callable is implemented by any value that may appear as the operand of a
// call expression: *Closure and *NativeFn.
type Callable interface {
	Value
	// Name returns a short name for the function, used in error messages and
	// tracebacks. It may be empty for an anonymous function.
	Name() string
}

// HasMetatable is implemented by values whose behavior can be customized
// through a metatable. *Table always implements it; *Userdata does too.
type HasMetatable interface {
	Value
	Metatable() *Table
	SetMetatable(*Table)
}

// typeName is a convenience for error messages; a nil Go interface (an
// absent value, as opposed to the Nil value) reports as "no value".
func typeName(v Value) string {
	if v == nil {
		return "no value"
	}
	return v.Type()
}
