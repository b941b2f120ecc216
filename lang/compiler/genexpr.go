package compiler

import (
	"github.com/thara/vela/lang/ast"
	"github.com/thara/vela/lang/token"
)

// isMultiValue reports whether e can yield a number of values other than
// exactly one when it appears in a multi-value context (a call argument
// list, a return list, an assignment's right-hand side, or a table
// constructor's trailing field).
func isMultiValue(e ast.Expr) bool {
	switch e.(type) {
	case *ast.CallExpr, *ast.MethodCallExpr, *ast.VarargExpr:
		return true
	}
	return false
}

// compileExpr compiles e so that it leaves exactly one value on the stack.
func (c *compiler) compileExpr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.NilExpr:
		c.setLineOf(e)
		c.emit(CONSTNIL)
		c.fs.growTemp(1)

	case *ast.BoolExpr:
		c.setLineOf(e)
		if e.Value {
			c.emit(CONSTTRUE)
		} else {
			c.emit(CONSTFALSE)
		}
		c.fs.growTemp(1)

	case *ast.NumberExpr:
		c.setLineOf(e)
		var k Const
		if e.IsInt {
			k = intConst(e.Int)
		} else {
			k = floatConst(e.Float)
		}
		c.emit(CONST, c.constIndex(k))
		c.fs.growTemp(1)

	case *ast.StringExpr:
		c.setLineOf(e)
		c.emit(CONST, c.stringConstIndex(e.Value))
		c.fs.growTemp(1)

	case *ast.VarargExpr:
		c.setLineOf(e)
		c.emit(VARARG, 1)
		c.fs.growTemp(1)

	case *ast.NameExpr:
		c.compileName(e)

	case *ast.IndexExpr:
		c.compileExpr(e.X)
		c.compileExpr(e.Index)
		c.setLineOf(e)
		c.emit(GETTABLE)
		c.fs.shrinkTemp(1)

	case *ast.AttrExpr:
		c.compileExpr(e.X)
		c.setLineOf(e)
		c.emit(CONST, c.stringConstIndex(e.Sel.Name))
		c.fs.growTemp(1)
		c.emit(GETTABLE)
		c.fs.shrinkTemp(1)

	case *ast.ParenExpr:
		// Parentheses truncate a multi-value expression to exactly one value,
		// which compileExpr already does for every expression kind.
		c.compileExpr(e.X)

	case *ast.FunctionExpr:
		c.compileFunction(e, "")

	case *ast.TableExpr:
		c.compileTable(e)

	case *ast.UnaryExpr:
		c.compileExpr(e.X)
		c.setLineOf(e)
		switch e.Op {
		case token.MINUS:
			c.emit(UNM)
		case token.NOT:
			c.emit(NOT)
		case token.POUND:
			c.emit(LEN)
		case token.TILDE:
			c.emit(BNOT)
		}

	case *ast.BinaryExpr:
		c.compileBinary(e)

	case *ast.CallExpr, *ast.MethodCallExpr:
		c.compileCall(e, 1)

	default:
		c.errorf(0, "internal error: unhandled expression %T", e)
	}
}

func (c *compiler) setLineOf(n ast.Node) {
	if n == nil {
		return
	}
	start, _ := n.Span()
	c.fs.setLine(int32(c.file.Position(start).Line))
}

func (c *compiler) compileName(e *ast.NameExpr) {
	fs := c.fs
	c.setLineOf(e)
	if slot, ok := fs.resolveLocal(e.Name); ok {
		c.emit(GETLOCAL, byte(slot))
		fs.growTemp(1)
		return
	}
	if idx, ok := fs.resolveUpval(e.Name); ok {
		c.emit(GETUPVAL, byte(idx))
		fs.growTemp(1)
		return
	}
	c.emit(GETTABUP, byte(fs.envUpval()), c.stringConstIndex(e.Name))
	fs.growTemp(1)
}

// compileAssignTo emits the store instruction for a single assignable
// target, consuming the one value currently on top of the stack.
func (c *compiler) compileAssignTo(target ast.Expr) {
	fs := c.fs
	switch t := target.(type) {
	case *ast.NameExpr:
		if slot, ok := fs.resolveLocal(t.Name); ok {
			if fs.locals[slot].attrib == "const" || fs.locals[slot].attrib == "close" {
				c.errorf(0, "attempt to assign to const variable %q", t.Name)
			}
			c.emit(SETLOCAL, byte(slot))
			fs.shrinkTemp(1)
			return
		}
		if idx, ok := fs.resolveUpval(t.Name); ok {
			c.emit(SETUPVAL, byte(idx))
			fs.shrinkTemp(1)
			return
		}
		c.emit(SETTABUP, byte(fs.envUpval()), c.stringConstIndex(t.Name))
		fs.shrinkTemp(1)
	case *ast.IndexExpr:
		c.compileExpr(t.X)
		c.compileExpr(t.Index)
		c.emit(ROTATE, 3) // bring the assigned value (pushed before the target) to the top
		c.emit(SETTABLE)
		fs.shrinkTemp(3)
	case *ast.AttrExpr:
		c.compileExpr(t.X)
		c.emit(CONST, c.stringConstIndex(t.Sel.Name))
		fs.growTemp(1)
		c.emit(ROTATE, 3)
		c.emit(SETTABLE)
		fs.shrinkTemp(3)
	default:
		c.errorf(0, "internal error: unassignable target %T", target)
	}
}

func (c *compiler) compileBinary(e *ast.BinaryExpr) {
	switch e.Op {
	case token.AND:
		c.compileExpr(e.X)
		jmp := c.emitJump(JMPIFFALSE)
		c.emit(POP)
		c.fs.shrinkTemp(1)
		c.compileExpr(e.Y)
		c.patchJump(jmp)
		return
	case token.OR:
		c.compileExpr(e.X)
		jmpFalse := c.emitJump(JMPIFFALSE)
		jmpEnd := c.emitJump(JMP)
		c.patchJump(jmpFalse)
		c.emit(POP)
		c.fs.shrinkTemp(1)
		c.compileExpr(e.Y)
		c.patchJump(jmpEnd)
		return
	}

	c.compileExpr(e.X)
	c.compileExpr(e.Y)
	c.setLineOf(e)
	switch e.Op {
	case token.PLUS:
		c.emit(ADD)
	case token.MINUS:
		c.emit(SUB)
	case token.STAR:
		c.emit(MUL)
	case token.SLASH:
		c.emit(DIV)
	case token.SLASHSLASH:
		c.emit(IDIV)
	case token.PERCENT:
		c.emit(MOD)
	case token.CIRCUMFLEX:
		c.emit(POW)
	case token.AMPERSAND:
		c.emit(BAND)
	case token.PIPE:
		c.emit(BOR)
	case token.TILDE:
		c.emit(BXOR)
	case token.LTLT:
		c.emit(SHL)
	case token.GTGT:
		c.emit(SHR)
	case token.DOTDOT:
		c.emit(CONCAT)
	case token.LT:
		c.emit(LT)
	case token.LE:
		c.emit(LE)
	case token.GT:
		c.emit(GT)
	case token.GE:
		c.emit(GE)
	case token.EQEQ:
		c.emit(EQL)
	case token.NEQ:
		c.emit(NEQ)
	default:
		c.errorf(0, "internal error: unhandled binary operator %v", e.Op)
	}
	c.fs.shrinkTemp(1)
}

// compileExprList compiles exprs for a context that wants exactly want
// values (want == -1 means "as many as the last expression yields",
// propagated dynamically via lastResultCount). All but the last expression
// are always truncated to a single value; only the last one expands.
func (c *compiler) compileExprList(exprs []ast.Expr, want int) {
	if len(exprs) == 0 {
		if want > 0 {
			for i := 0; i < want; i++ {
				c.emit(CONSTNIL)
				c.fs.growTemp(1)
			}
		}
		return
	}

	for _, e := range exprs[:len(exprs)-1] {
		c.compileExpr(e)
	}

	last := exprs[len(exprs)-1]
	remaining := want
	if want >= 0 {
		remaining = want - (len(exprs) - 1)
		if remaining < 0 {
			remaining = 0
		}
	}

	if isMultiValue(last) {
		c.compileMultiTail(last, remaining)
		return
	}

	c.compileExpr(last)
	for i := 1; i < remaining; i++ {
		c.emit(CONSTNIL)
		c.fs.growTemp(1)
	}
}

// compileMultiTail compiles a call/method-call/vararg expression appearing
// in the tail position of a multi-value list, requesting want results
// (want < 0 means "all", consult lastResultCount at run time).
func (c *compiler) compileMultiTail(e ast.Expr, want int) {
	switch e := e.(type) {
	case *ast.VarargExpr:
		c.setLineOf(e)
		n := byte(AllResults)
		if want >= 0 {
			n = byte(want)
			c.fs.growTemp(want)
		}
		c.emit(VARARG, n)
	case *ast.CallExpr, *ast.MethodCallExpr:
		c.compileCall(e, want)
	}
}

// compileCall compiles a call or method-call expression, requesting want
// results (want < 0 means "all", consult lastResultCount at run time).
func (c *compiler) compileCall(e ast.Expr, want int) {
	fs := c.fs
	var args []ast.Expr
	nfixed := 0

	switch call := e.(type) {
	case *ast.CallExpr:
		c.compileExpr(call.Fn)
		args = call.Args
	case *ast.MethodCallExpr:
		c.compileExpr(call.X)
		c.setLineOf(call)
		c.emit(DUP)
		fs.growTemp(1)
		c.emit(CONST, c.stringConstIndex(call.Method.Name))
		fs.growTemp(1)
		c.emit(GETTABLE)
		fs.shrinkTemp(1)
		c.emit(SWAP) // [obj, method] -> [method, obj]
		args = call.Args
		nfixed = 1 // self
	}

	resultOperand := byte(AllResults)
	if want >= 0 {
		resultOperand = byte(want)
	}

	hasMultiTail := len(args) > 0 && isMultiValue(args[len(args)-1])
	if !hasMultiTail {
		for _, a := range args {
			c.compileExpr(a)
		}
		nfixed += len(args)
		c.emit(CALL, byte(nfixed), resultOperand)
	} else {
		for _, a := range args[:len(args)-1] {
			c.compileExpr(a)
		}
		nfixed += len(args) - 1
		c.compileMultiTail(args[len(args)-1], -1)
		c.emit(CALLMULTI, byte(nfixed), resultOperand)
	}

	if want >= 0 {
		fs.growTemp(want) // results replace the fn+args region; a loose upper-bound hint
	}
}

func (c *compiler) compileTable(e *ast.TableExpr) {
	c.setLineOf(e)
	c.emit(NEWTABLE)
	c.fs.growTemp(1)

	arrayIndex := 1
	for i, f := range e.Fields {
		isLast := i == len(e.Fields)-1
		if f.Key != nil {
			c.emit(DUP)
			c.fs.growTemp(1)
			c.compileExpr(f.Key)
			c.compileExpr(f.Value)
			c.emit(SETTABLE)
			c.fs.shrinkTemp(3)
			continue
		}
		if isLast && isMultiValue(f.Value) {
			c.emit(DUP)
			c.fs.growTemp(1)
			c.compileMultiTail(f.Value, -1)
			c.emit(SETLIST, byte(AllResults), byte(arrayIndex))
			c.fs.shrinkTemp(2) // table + the dynamic run of values it consumed
			continue
		}
		c.emit(DUP)
		c.fs.growTemp(1)
		c.compileExpr(f.Value)
		c.emit(SETLIST, 1, byte(arrayIndex))
		c.fs.shrinkTemp(2)
		arrayIndex++
	}
}
