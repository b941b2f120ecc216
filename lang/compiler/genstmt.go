package compiler

import (
	"github.com/thara/vela/lang/ast"
)

func (c *compiler) block(b *ast.Block) {
	for _, stmt := range b.Stmts {
		c.stmt(stmt)
	}
}

func (c *compiler) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.BadStmt:
		// A parse error already produced a diagnostic; nothing to emit.

	case *ast.LocalStmt:
		c.compileLocalStmt(s)

	case *ast.AssignStmt:
		c.compileAssignStmt(s)

	case *ast.CallStmt:
		c.compileCall(s.Call, 0)

	case *ast.DoStmt:
		c.beginScope(false)
		c.block(s.Body)
		c.endScope()

	case *ast.WhileStmt:
		c.compileWhileStmt(s)

	case *ast.RepeatStmt:
		c.compileRepeatStmt(s)

	case *ast.IfStmt:
		c.compileIfStmt(s)

	case *ast.NumericForStmt:
		c.compileNumericForStmt(s)

	case *ast.GenericForStmt:
		c.compileGenericForStmt(s)

	case *ast.FunctionStmt:
		c.compileFunction(s.Body, funcNameString(s.Name))
		c.compileAssignTo(funcNameTarget(s.Name))

	case *ast.LocalFunctionStmt:
		// The local is declared before the body is compiled so the function
		// can call itself recursively through its own name.
		c.emit(CONSTNIL)
		c.fs.growTemp(1)
		slot := c.declareLocal(s.Name.Name, "")
		c.compileFunction(s.Body, s.Name.Name)
		c.emit(SETLOCAL, byte(slot))
		c.fs.shrinkTemp(1)

	case *ast.ReturnStmt:
		c.compileReturnStmt(s)

	case *ast.BreakStmt:
		c.compileBreakStmt(s)

	case *ast.GotoStmt:
		c.compileGotoStmt(s)

	case *ast.LabelStmt:
		c.currentScope().labels[s.Label] = c.here()
		c.resolvePendingGotos(s.Label)

	default:
		c.errorf(0, "internal error: unhandled statement %T", s)
	}
}

// funcNameTarget builds the synthetic assignable expression that a
// "function a.b.c:d(...)" statement assigns its closure into.
func funcNameTarget(fn *ast.FuncName) ast.Expr {
	var target ast.Expr = &ast.NameExpr{NamePos: fn.Base.NamePos, Name: fn.Base.Name}
	for _, d := range fn.Dots {
		target = &ast.AttrExpr{X: target, Sel: d}
	}
	if fn.Method != nil {
		target = &ast.AttrExpr{X: target, Sel: fn.Method}
	}
	return target
}

// funcNameString renders a function statement's name ("a.b.c:d") for the
// compiled Proto's Name.
func funcNameString(fn *ast.FuncName) string {
	s := fn.Base.Name
	for _, d := range fn.Dots {
		s += "." + d.Name
	}
	if fn.Method != nil {
		s += ":" + fn.Method.Name
	}
	return s
}

func (c *compiler) compileLocalStmt(s *ast.LocalStmt) {
	c.compileExprList(s.Exprs, len(s.Names))
	for i, name := range s.Names {
		c.declareLocal(name.Name, s.Attribs[i])
	}
}

func (c *compiler) compileAssignStmt(s *ast.AssignStmt) {
	c.compileExprList(s.Right, len(s.Left))
	// Assign in reverse so the last-pushed value (top of stack) matches the
	// last target, then work back down to the first.
	for i := len(s.Left) - 1; i >= 0; i-- {
		c.compileAssignTo(s.Left[i])
	}
}

func (c *compiler) compileReturnStmt(s *ast.ReturnStmt) {
	// A single tail call in a return statement is a genuine tail call: it
	// reuses the current frame instead of growing the call stack.
	if len(s.Exprs) == 1 {
		switch call := s.Exprs[0].(type) {
		case *ast.CallExpr, *ast.MethodCallExpr:
			c.compileTailCall(call)
			return
		}
	}

	if len(s.Exprs) == 0 {
		c.emit(RETURN, 0)
		return
	}
	if isMultiValue(s.Exprs[len(s.Exprs)-1]) {
		c.compileExprList(s.Exprs[:len(s.Exprs)-1], -1)
		c.compileMultiTail(s.Exprs[len(s.Exprs)-1], -1)
		c.emit(RETURN, byte(AllResults))
		return
	}
	for _, e := range s.Exprs {
		c.compileExpr(e)
	}
	c.emit(RETURN, byte(len(s.Exprs)))
}

func (c *compiler) compileTailCall(e ast.Expr) {
	fs := c.fs
	var args []ast.Expr
	nfixed := 0
	switch call := e.(type) {
	case *ast.CallExpr:
		c.compileExpr(call.Fn)
		args = call.Args
	case *ast.MethodCallExpr:
		c.compileExpr(call.X)
		c.emit(DUP)
		fs.growTemp(1)
		c.emit(CONST, c.stringConstIndex(call.Method.Name))
		fs.growTemp(1)
		c.emit(GETTABLE)
		fs.shrinkTemp(1)
		c.emit(SWAP)
		args = call.Args
		nfixed = 1
	}
	if len(args) > 0 && isMultiValue(args[len(args)-1]) {
		for _, a := range args[:len(args)-1] {
			c.compileExpr(a)
		}
		nfixed += len(args) - 1
		c.compileMultiTail(args[len(args)-1], -1)
		c.emit(TAILCALLMULTI, byte(nfixed))
		return
	}
	for _, a := range args {
		c.compileExpr(a)
	}
	nfixed += len(args)
	c.emit(TAILCALL, byte(nfixed))
}

func (c *compiler) compileBreakStmt(s *ast.BreakStmt) {
	loop := c.innermostLoop()
	if loop == nil {
		c.errorf(s.Break, "break outside a loop")
		return
	}
	c.closeLocalsAbove(loop.localBase)
	pos := c.emitJump(JMP)
	loop.breaks = append(loop.breaks, pos)
}

// closeLocalsAbove emits the close-upvalue/pop sequence for every local
// declared since base, without removing them from fs.locals (used for
// break and goto, which jump out of their enclosing scopes rather than
// ending them normally).
func (c *compiler) closeLocalsAbove(base int) {
	fs := c.fs
	for i := len(fs.locals) - 1; i >= base; i-- {
		if fs.locals[i].captured {
			c.emit(CLOSEUPVAL)
		} else {
			c.emit(POP)
		}
	}
}

func (c *compiler) compileGotoStmt(s *ast.GotoStmt) {
	scope := c.currentScope()
	c.closeLocalsAbove(scope.localBase)
	pos := c.emitJump(JMP)
	g := pendingGoto{label: s.Label, pos: s.Goto, patchPos: pos, numLocals: len(c.fs.locals)}
	if pc, ok := scope.labels[s.Label]; ok {
		c.patchJumpTo(pos, pc)
		return
	}
	scope.gotos = append(scope.gotos, g)
}

func (c *compiler) resolvePendingGotos(label string) {
	scope := c.currentScope()
	pc := scope.labels[label]
	remaining := scope.gotos[:0]
	for _, g := range scope.gotos {
		if g.label == label {
			c.patchJumpTo(g.patchPos, pc)
		} else {
			remaining = append(remaining, g)
		}
	}
	scope.gotos = remaining
}

func (c *compiler) compileWhileStmt(s *ast.WhileStmt) {
	start := c.here()
	c.compileExpr(s.Cond)
	exitJump := c.emitJump(JMPIFFALSE)
	c.emit(POP)
	c.fs.shrinkTemp(1)

	scope := c.beginScope(true)
	c.block(s.Body)
	c.endScope()

	c.emitLoop(start)
	c.patchJump(exitJump)
	c.emit(POP)
	c.fs.shrinkTemp(1)

	for _, pos := range scope.breaks {
		c.patchJump(pos)
	}
}

func (c *compiler) compileRepeatStmt(s *ast.RepeatStmt) {
	start := c.here()
	// The until condition can see the loop body's locals, so the scope
	// spans both the body and the condition.
	scope := c.beginScope(true)
	c.block(s.Body)
	c.compileExpr(s.Cond)
	c.emit(NOT)
	exitJump := c.emitJump(JMPIFFALSE) // taken when cond holds: leave the loop
	c.emit(POP)
	c.fs.shrinkTemp(1)
	c.closeLocalsAbove(scope.localBase)
	c.emitLoop(start)
	c.patchJump(exitJump)
	c.emit(POP)
	c.fs.shrinkTemp(1)
	c.endScope()

	for _, pos := range scope.breaks {
		c.patchJump(pos)
	}
}

func (c *compiler) compileIfStmt(s *ast.IfStmt) {
	var endJumps []int

	c.compileExpr(s.Cond)
	next := c.emitJump(JMPIFFALSE)
	c.emit(POP)
	c.fs.shrinkTemp(1)
	c.beginScope(false)
	c.block(s.Body)
	c.endScope()
	endJumps = append(endJumps, c.emitJump(JMP))
	c.patchJump(next)
	c.emit(POP)
	c.fs.shrinkTemp(1)

	for _, ei := range s.ElseIfs {
		c.compileExpr(ei.Cond)
		next = c.emitJump(JMPIFFALSE)
		c.emit(POP)
		c.fs.shrinkTemp(1)
		c.beginScope(false)
		c.block(ei.Body)
		c.endScope()
		endJumps = append(endJumps, c.emitJump(JMP))
		c.patchJump(next)
		c.emit(POP)
		c.fs.shrinkTemp(1)
	}

	if s.Else != nil {
		c.beginScope(false)
		c.block(s.Else)
		c.endScope()
	}

	for _, pos := range endJumps {
		c.patchJump(pos)
	}
}

// compileNumericForStmt compiles "for name = start, stop, step do ... end".
// The three control expressions occupy three hidden local slots ahead of
// the visible loop variable, mirroring the reference implementation.
func (c *compiler) compileNumericForStmt(s *ast.NumericForStmt) {
	c.compileExpr(s.Start)
	c.compileExpr(s.Stop)
	if s.Step != nil {
		c.compileExpr(s.Step)
	} else {
		c.emit(CONST, c.constIndex(intConst(1)))
		c.fs.growTemp(1)
	}

	scope := c.beginScope(true)
	startSlot := c.declareLocal("(for start)", "")
	stopSlot := c.declareLocal("(for stop)", "")
	stepSlot := c.declareLocal("(for step)", "")

	c.emit(GETLOCAL, byte(startSlot))
	c.fs.growTemp(1)
	varSlot := c.declareLocal(s.Name.Name, "")

	loopStart := c.here()
	// exit test: not ((step>=0 and var<=stop) or (step<0 and var>=stop))
	c.emit(GETLOCAL, byte(stepSlot))
	c.fs.growTemp(1)
	c.emit(CONST, c.constIndex(intConst(0)))
	c.fs.growTemp(1)
	c.emit(GE)
	c.fs.shrinkTemp(1)
	ascJump := c.emitJump(JMPIFFALSE)
	c.emit(POP)
	c.fs.shrinkTemp(1)
	c.emit(GETLOCAL, byte(varSlot))
	c.fs.growTemp(1)
	c.emit(GETLOCAL, byte(stopSlot))
	c.fs.growTemp(1)
	c.emit(LE)
	c.fs.shrinkTemp(1)
	skipDesc := c.emitJump(JMP)
	c.patchJump(ascJump)
	c.emit(POP)
	c.fs.shrinkTemp(1)
	c.emit(GETLOCAL, byte(varSlot))
	c.fs.growTemp(1)
	c.emit(GETLOCAL, byte(stopSlot))
	c.fs.growTemp(1)
	c.emit(GE)
	c.fs.shrinkTemp(1)
	c.patchJump(skipDesc)
	exitJump := c.emitJump(JMPIFFALSE)
	c.emit(POP)
	c.fs.shrinkTemp(1)

	c.beginScope(false)
	c.block(s.Body)
	c.endScope()

	// increment: var = var + step
	c.emit(GETLOCAL, byte(varSlot))
	c.fs.growTemp(1)
	c.emit(GETLOCAL, byte(stepSlot))
	c.fs.growTemp(1)
	c.emit(ADD)
	c.fs.shrinkTemp(1)
	c.emit(SETLOCAL, byte(varSlot))
	c.fs.shrinkTemp(1)

	c.emitLoop(loopStart)
	c.patchJump(exitJump)
	c.emit(POP)
	c.fs.shrinkTemp(1)
	c.endScope()

	for _, pos := range scope.breaks {
		c.patchJump(pos)
	}
}

// compileGenericForStmt compiles "for names in exprs do ... end" using the
// iterator/state/control protocol: exprs yields (iterator, state, control),
// and each iteration calls iterator(state, control).
func (c *compiler) compileGenericForStmt(s *ast.GenericForStmt) {
	c.compileExprList(s.Exprs, 3)

	scope := c.beginScope(true)
	iterSlot := c.declareLocal("(for iterator)", "")
	stateSlot := c.declareLocal("(for state)", "")
	ctrlSlot := c.declareLocal("(for control)", "")

	loopStart := c.here()
	c.emit(GETLOCAL, byte(iterSlot))
	c.fs.growTemp(1)
	c.emit(GETLOCAL, byte(stateSlot))
	c.fs.growTemp(1)
	c.emit(GETLOCAL, byte(ctrlSlot))
	c.fs.growTemp(1)
	c.emit(CALL, 2, byte(len(s.Names)))
	c.fs.growTemp(len(s.Names))

	varSlots := make([]int, len(s.Names))
	for i, n := range s.Names {
		varSlots[i] = c.declareLocal(n.Name, "")
	}

	// var[0] == nil means the iterator is exhausted.
	c.emit(GETLOCAL, byte(varSlots[0]))
	c.fs.growTemp(1)
	c.emit(CONSTNIL)
	c.fs.growTemp(1)
	c.emit(EQL)
	c.fs.shrinkTemp(1)
	isNilJump := c.emitJump(JMPIFFALSE) // taken when var[0] != nil: continue the loop
	c.emit(POP)
	c.fs.shrinkTemp(1)
	doneJump := c.emitJump(JMP) // var[0] == nil: fell through here, exit the loop
	c.patchJump(isNilJump)
	c.emit(POP)
	c.fs.shrinkTemp(1)

	c.emit(GETLOCAL, byte(varSlots[0]))
	c.fs.growTemp(1)
	c.emit(SETLOCAL, byte(ctrlSlot))
	c.fs.shrinkTemp(1)

	c.beginScope(false)
	c.block(s.Body)
	c.endScope()

	c.closeLocalsAbove(varSlots[0])
	c.emitLoop(loopStart)
	c.patchJump(doneJump)
	c.endScope()

	for _, pos := range scope.breaks {
		c.patchJump(pos)
	}
}

func (c *compiler) compileFunction(fn *ast.FunctionExpr, name string) {
	parent := c.fs
	child := c.newFuncState(parent, name, fn.Function)
	c.fs = child

	for _, p := range fn.Params {
		child.growTemp(1)
		c.declareLocal(p.Name, "")
	}
	child.proto.NumParams = len(fn.Params)
	child.proto.IsVararg = fn.Vararg

	child.scopes = append(child.scopes, &scopeState{localBase: 0, labels: make(map[string]int)})
	c.block(fn.Body)
	c.emit(RETURN, 0)

	c.fs = parent
	protoIdx := len(parent.proto.Protos)
	parent.proto.Protos = append(parent.proto.Protos, child.proto)

	c.emit(CLOSURE, byte(protoIdx))
	for _, uv := range child.proto.Upvals {
		isLocal := byte(0)
		if uv.IsLocal {
			isLocal = 1
		}
		parent.proto.Code = append(parent.proto.Code, isLocal, byte(uv.Index))
		parent.proto.Lines = append(parent.proto.Lines, parent.curLine, parent.curLine)
	}
	parent.growTemp(1)
}
