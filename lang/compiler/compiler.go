// Package compiler takes a parsed AST and compiles it to the bytecode
// executed by the lang/machine virtual machine.
//
// The code generator is a single, syntax-directed pass over the tree: each
// nested function literal pushes a new funcState and pops back to its
// parent when the literal's body has been fully emitted, in the manner of
// the teacher repository's compiler package. Unlike the teacher's compiler,
// which lowers to a control-flow graph and linearizes it during an encoding
// pass, this compiler emits directly into a linear instruction stream and
// back-patches jump offsets once their target is known; it is closer to
// the classic single-pass "treewalk to stack bytecode" design and maps
// more directly onto Lua's own reference compiler.
package compiler

import (
	"fmt"

	"github.com/thara/vela/lang/ast"
	"github.com/thara/vela/lang/token"
)

// Compile compiles a single parsed chunk into its top-level Proto. The
// chunk's lone implicit upvalue, "_ENV", is wired to upvalue slot 0 by the
// loader that instantiates the resulting closure.
func Compile(fset *token.FileSet, chunk *ast.Chunk) (proto *Proto, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(compileError); ok {
				err = ce.err
				return
			}
			panic(r)
		}
	}()

	file := fset.File(chunk.Block.Start)
	c := &compiler{file: file}
	fs := c.newFuncState(nil, "main chunk", chunk.Block.Start)
	fs.upvalNames["_ENV"] = 0
	fs.proto.Upvals = []UpvalDesc{{IsLocal: false, Index: 0, Name: "_ENV"}}
	fs.proto.IsVararg = true

	c.fs = fs
	fs.scopes = append(fs.scopes, &scopeState{localBase: 0, labels: make(map[string]int)})
	c.block(chunk.Block)
	c.emit(RETURN, 0)

	return fs.proto, nil
}

// compileError unwinds the recursive descent on the first error, mirroring
// the parser's panic/recover scheme.
type compileError struct{ err error }

// A funcState holds the compiler state of one function body being
// compiled: the Proto under construction, its enclosing function (nil at
// the top level), and its lexical scope stack.
type funcState struct {
	parent *funcState
	proto  *Proto

	locals     []localVar
	upvalNames map[string]int

	scopes []*scopeState

	stackTop int // current height of the value stack above the frame base
	numConst map[Const]int
	curLine  int32
}

type localVar struct {
	name     string
	attrib   string
	captured bool
}

// scopeState tracks one lexically nested block: the loop/goto bookkeeping
// needed to compile break, goto, and label statements correctly.
type scopeState struct {
	localBase int // fs.locals length when the block was entered
	isLoop    bool
	breaks    []int // pending jump patch positions for "break" inside this loop

	labels map[string]int // label name -> pc, for this block
	gotos  []pendingGoto
}

type pendingGoto struct {
	label     string
	pos       token.Pos
	patchPos  int // position of the jump's operand bytes
	numLocals int // number of locals live at the goto, for close-upvalue emission
}

type compiler struct {
	file *token.File
	fs   *funcState
}

func (c *compiler) newFuncState(parent *funcState, name string, pos token.Pos) *funcState {
	fs := &funcState{
		parent:     parent,
		upvalNames: make(map[string]int),
		numConst:   make(map[Const]int),
		proto: &Proto{
			Source: c.file.Name(),
			Name:   name,
			Line:   pos,
		},
	}
	return fs
}

func (c *compiler) errorf(pos token.Pos, format string, args ...interface{}) {
	p := c.file.Position(pos)
	panic(compileError{fmt.Errorf("%s: %s", p, fmt.Sprintf(format, args...))})
}

// -- bytecode emission --

func (fs *funcState) emit(op Op, operands ...byte) int {
	pos := len(fs.proto.Code)
	fs.proto.Code = append(fs.proto.Code, byte(op))
	fs.proto.Code = append(fs.proto.Code, operands...)
	for i := 0; i < 1+len(operands); i++ {
		fs.proto.Lines = append(fs.proto.Lines, fs.curLine)
	}
	return pos
}

func (fs *funcState) setLine(line int32) { fs.curLine = line }

// growTemp records that n values have been pushed onto the stack above the
// current local count, bumping the function's high-water mark. The VM's
// value stack grows dynamically at run time; MaxStack is only a sizing
// hint used to preallocate it.
func (fs *funcState) growTemp(n int) {
	fs.stackTop += n
	if fs.stackTop > fs.proto.MaxStack {
		fs.proto.MaxStack = fs.stackTop
	}
}

func (fs *funcState) shrinkTemp(n int) {
	fs.stackTop -= n
	if fs.stackTop < len(fs.locals) {
		fs.stackTop = len(fs.locals)
	}
}

func (c *compiler) emit(op Op, operands ...byte) int { return c.fs.emit(op, operands...) }

// emitJump emits a jump instruction with a placeholder offset and returns
// the position of its 2-byte operand, to be resolved later by patchJump.
func (c *compiler) emitJump(op Op) int {
	pos := c.fs.emit(op, 0, 0)
	return pos + 1
}

// patchJump backpatches the jump operand at operandPos to target the
// current instruction pointer.
func (c *compiler) patchJump(operandPos int) {
	target := len(c.fs.proto.Code)
	offset := target - (operandPos + 2)
	if offset < 0 || offset > 0xffff {
		c.errorf(c.fs.proto.Line, "jump offset out of range")
	}
	c.fs.proto.Code[operandPos] = byte(offset)
	c.fs.proto.Code[operandPos+1] = byte(offset >> 8)
}

// emitLoop emits a backward jump (LOOP) to target.
func (c *compiler) emitLoop(target int) {
	pos := c.fs.emit(LOOP, 0, 0)
	operandPos := pos + 1
	offset := (operandPos + 2) - target
	if offset < 0 || offset > 0xffff {
		c.errorf(c.fs.proto.Line, "loop body too large")
	}
	c.fs.proto.Code[operandPos] = byte(offset)
	c.fs.proto.Code[operandPos+1] = byte(offset >> 8)
}

func (c *compiler) here() int { return len(c.fs.proto.Code) }

// -- constant pool --

func (c *compiler) constIndex(k Const) byte {
	fs := c.fs
	if idx, ok := fs.numConst[k]; ok {
		return byte(idx)
	}
	idx := len(fs.proto.Consts)
	fs.proto.Consts = append(fs.proto.Consts, k)
	fs.numConst[k] = idx
	return byte(idx)
}

func (c *compiler) stringConstIndex(s string) byte { return c.constIndex(strConst(s)) }

// -- scopes --

func (c *compiler) beginScope(isLoop bool) *scopeState {
	s := &scopeState{localBase: len(c.fs.locals), isLoop: isLoop, labels: make(map[string]int)}
	c.fs.scopes = append(c.fs.scopes, s)
	return s
}

// endScope pops locals declared in the current scope, closing upvalues for
// those that were captured and popping the rest, then pops the scope.
func (c *compiler) endScope() {
	fs := c.fs
	s := fs.scopes[len(fs.scopes)-1]

	for i := len(fs.locals) - 1; i >= s.localBase; i-- {
		if fs.locals[i].captured {
			c.emit(CLOSEUPVAL)
		} else {
			c.emit(POP)
		}
		fs.shrinkTemp(1)
	}
	fs.locals = fs.locals[:s.localBase]

	for _, g := range s.gotos {
		c.propagateGoto(g)
	}

	fs.scopes = fs.scopes[:len(fs.scopes)-1]
}

// propagateGoto re-records an unresolved goto against the enclosing scope
// once its own scope closes, or reports an error if there is nowhere left
// to look.
func (c *compiler) propagateGoto(g pendingGoto) {
	fs := c.fs
	if len(fs.scopes) == 0 {
		c.errorf(g.pos, "no visible label %q for goto", g.label)
		return
	}
	outer := fs.scopes[len(fs.scopes)-1]
	if pc, ok := outer.labels[g.label]; ok {
		c.patchJumpTo(g.patchPos, pc)
		return
	}
	outer.gotos = append(outer.gotos, g)
}

func (c *compiler) patchJumpTo(operandPos, targetPC int) {
	offset := targetPC - (operandPos + 2)
	if offset >= 0 {
		c.fs.proto.Code[operandPos] = byte(offset)
		c.fs.proto.Code[operandPos+1] = byte(offset >> 8)
		return
	}
	// Backward goto: rewrite the forward-style JMP into a LOOP at the same
	// site (both take a 2-byte offset, so the opcode byte alone changes).
	c.fs.proto.Code[operandPos-1] = byte(LOOP)
	off := (operandPos + 2) - targetPC
	c.fs.proto.Code[operandPos] = byte(off)
	c.fs.proto.Code[operandPos+1] = byte(off >> 8)
}

func (c *compiler) currentScope() *scopeState { return c.fs.scopes[len(c.fs.scopes)-1] }

func (c *compiler) innermostLoop() *scopeState {
	for i := len(c.fs.scopes) - 1; i >= 0; i-- {
		if c.fs.scopes[i].isLoop {
			return c.fs.scopes[i]
		}
	}
	return nil
}

// -- locals --

// declareLocal binds name to the stack slot that the most recently
// compiled expression (already pushed onto the value stack) occupies.
func (c *compiler) declareLocal(name, attrib string) int {
	fs := c.fs
	slot := len(fs.locals)
	fs.locals = append(fs.locals, localVar{name: name, attrib: attrib})
	fs.proto.Locals = append(fs.proto.Locals, LocalDesc{Name: name, StartPC: c.here(), Attrib: attrib})
	return slot
}

// resolveLocal looks up name among fs's own locals, innermost first.
func (fs *funcState) resolveLocal(name string) (slot int, ok bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// resolveUpval resolves name to an upvalue index of fs, recursively
// capturing it from an enclosing function if necessary. It returns false
// if name is not bound in any enclosing function either (a true global).
func (fs *funcState) resolveUpval(name string) (idx int, ok bool) {
	if idx, ok := fs.upvalNames[name]; ok {
		return idx, true
	}
	if fs.parent == nil {
		return 0, false
	}
	if slot, ok := fs.parent.resolveLocal(name); ok {
		fs.parent.locals[slot].captured = true
		return fs.addUpval(name, true, slot), true
	}
	if pidx, ok := fs.parent.resolveUpval(name); ok {
		return fs.addUpval(name, false, pidx), true
	}
	return 0, false
}

func (fs *funcState) addUpval(name string, isLocal bool, index int) int {
	idx := len(fs.proto.Upvals)
	fs.proto.Upvals = append(fs.proto.Upvals, UpvalDesc{IsLocal: isLocal, Index: index, Name: name})
	fs.upvalNames[name] = idx
	return idx
}

// envUpval resolves the "_ENV" upvalue, which every function can reach
// because the top-level chunk installs it as upvalue 0 and every nested
// function literal transitively captures it the first time it needs a
// global.
func (fs *funcState) envUpval() int {
	idx, ok := fs.resolveUpval("_ENV")
	if !ok {
		panic("internal error: _ENV not reachable")
	}
	return idx
}
