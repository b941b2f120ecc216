package compiler

import (
	"sync"

	"github.com/thara/vela/lang/token"
)

// UpvalDesc describes how a closure's Nth upvalue is captured from the
// enclosing function at the moment the closure is built: either a live
// stack slot of the parent (IsLocal) or one of the parent's own upvalues.
type UpvalDesc struct {
	IsLocal bool
	Index   int
	Name    string // for tracing/disassembly only
}

// LocalDesc records a local variable's name and the instruction range over
// which its stack slot is live, for tracing and disassembly.
type LocalDesc struct {
	Name        string
	StartPC     int
	EndPC       int
	IsCaptured  bool
	Attrib      string // "const", "close", or ""
}

// Proto is the compiled representation of a single function body: its own
// chunk of bytecode plus everything needed to instantiate closures over it
// at run time. A Proto owns nested Protos (one per function literal it
// textually contains); a Closure at run time owns a Proto plus its captured
// upvalues.
type Proto struct {
	Source   string // chunk name, for error messages
	Name     string // "" for the top-level chunk or an anonymous function
	Line     token.Pos

	Code     []byte   // bytecode stream
	Lines    []int32  // Lines[pc] = source line of the instruction starting at pc

	Consts   []Const     // constant pool (numbers, strings, booleans used as CONST operands)
	Protos   []*Proto    // nested function prototypes, indexed by the CLOSURE operand
	Upvals   []UpvalDesc // upvalue descriptors, parallel to the closure's captured upvalues
	Locals   []LocalDesc // debug info only; not consulted by the VM

	NumParams int
	IsVararg  bool
	MaxStack  int // high-water mark of stack slots this function uses above its frame base

	once     sync.Once
	lineLookup []int32 // copy of Lines indexed by pc, built lazily
}

// Const is a compile-time constant value held in a Proto's constant pool.
// Only the immutable, internable Lua value kinds appear here; everything
// else is built by instructions at run time.
type Const struct {
	Kind  ConstKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

type ConstKind uint8

const (
	ConstNil ConstKind = iota
	ConstBool
	ConstInt
	ConstFloat
	ConstString
)

// LineForPC returns the source line associated with the instruction at pc,
// copying Lines into lineLookup on first use.
func (p *Proto) LineForPC(pc int) int32 {
	p.once.Do(func() {
		p.lineLookup = append([]int32(nil), p.Lines...)
	})
	if pc < 0 || pc >= len(p.lineLookup) {
		return 0
	}
	return p.lineLookup[pc]
}

func strConst(s string) Const   { return Const{Kind: ConstString, Str: s} }
func intConst(i int64) Const    { return Const{Kind: ConstInt, Int: i} }
func floatConst(f float64) Const { return Const{Kind: ConstFloat, Float: f} }
func boolConst(b bool) Const    { return Const{Kind: ConstBool, Bool: b} }
