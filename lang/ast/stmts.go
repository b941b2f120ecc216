package ast

import (
	"fmt"

	"github.com/thara/vela/lang/token"
)

type (
	// LocalStmt declares one or more local variables: local x, y = 1, 2.
	LocalStmt struct {
		Local   token.Pos
		Names   []*Name
		Attribs []string // parallel to Names; "" , "const" or "close"
		Exprs   []Expr
	}

	// AssignStmt assigns to one or more existing variables: x, y = 1, 2.
	AssignStmt struct {
		Left   []Expr // each is a *NameExpr, *IndexExpr or *AttrExpr
		Assign token.Pos
		Right  []Expr
	}

	// CallStmt is a function or method call used as a statement.
	CallStmt struct {
		Call Expr // *CallExpr or *MethodCallExpr
	}

	// DoStmt is an explicit do...end block, introducing a new scope.
	DoStmt struct {
		Do   token.Pos
		Body *Block
		End  token.Pos
	}

	// WhileStmt is while cond do body end.
	WhileStmt struct {
		While token.Pos
		Cond  Expr
		Body  *Block
		End   token.Pos
	}

	// RepeatStmt is repeat body until cond; the condition can see locals
	// declared in body.
	RepeatStmt struct {
		Repeat token.Pos
		Body   *Block
		Until  token.Pos
		Cond   Expr
	}

	// ElseIfClause is one elseif branch of an IfStmt.
	ElseIfClause struct {
		ElseIf token.Pos
		Cond   Expr
		Body   *Block
	}

	// IfStmt is if cond then body (elseif cond then body)* (else body)? end.
	IfStmt struct {
		If      token.Pos
		Cond    Expr
		Body    *Block
		ElseIfs []*ElseIfClause
		Else    *Block // nil if no else clause
		End     token.Pos
	}

	// NumericForStmt is for name = start, stop [, step] do body end.
	NumericForStmt struct {
		For   token.Pos
		Name  *Name
		Start Expr
		Stop  Expr
		Step  Expr // nil if not given, defaults to 1
		Body  *Block
		End   token.Pos
	}

	// GenericForStmt is for names in exprs do body end, where exprs supplies
	// an iterator function, state, and control variable per the generic-for
	// protocol.
	GenericForStmt struct {
		For   token.Pos
		Names []*Name
		Exprs []Expr
		Body  *Block
		End   token.Pos
	}

	// FuncName is the (possibly dotted, possibly method) name on the left of
	// a function statement: a.b.c or a.b:c.
	FuncName struct {
		Base   *Name
		Dots   []*Name // a.b.c -> Dots == [b, c]
		Method *Name   // non-nil for a.b:c, adds an implicit "self" parameter
	}

	// FunctionStmt is function name(params) body end, sugar for an assignment
	// of a FunctionExpr to name.
	FunctionStmt struct {
		Function token.Pos
		Name     *FuncName
		Body     *FunctionExpr
	}

	// LocalFunctionStmt is local function name(params) body end; unlike
	// FunctionStmt, name is in scope inside its own body (for recursion).
	LocalFunctionStmt struct {
		Local    token.Pos
		Function token.Pos
		Name     *Name
		Body     *FunctionExpr
	}

	// ReturnStmt returns zero or more values from the enclosing function.
	ReturnStmt struct {
		Return token.Pos
		Exprs  []Expr
	}

	// BreakStmt exits the nearest enclosing loop.
	BreakStmt struct {
		Break token.Pos
	}

	// GotoStmt transfers control to the label of the same name in the
	// enclosing function.
	GotoStmt struct {
		Goto  token.Pos
		Label string
	}

	// LabelStmt declares a goto target: ::name::.
	LabelStmt struct {
		Start token.Pos
		End   token.Pos
		Label string
	}

	// BadStmt is a placeholder for a syntactically invalid statement, used so
	// the parser can recover from an error and keep producing a usable tree
	// for the rest of the chunk.
	BadStmt struct {
		Start, End token.Pos
	}
)

func (*LocalStmt) stmtNode()         {}
func (*AssignStmt) stmtNode()        {}
func (*CallStmt) stmtNode()          {}
func (*DoStmt) stmtNode()            {}
func (*WhileStmt) stmtNode()         {}
func (*RepeatStmt) stmtNode()        {}
func (*IfStmt) stmtNode()            {}
func (*NumericForStmt) stmtNode()    {}
func (*GenericForStmt) stmtNode()    {}
func (*FunctionStmt) stmtNode()      {}
func (*LocalFunctionStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()        {}
func (*BreakStmt) stmtNode()         {}
func (*GotoStmt) stmtNode()          {}
func (*LabelStmt) stmtNode()         {}
func (*BadStmt) stmtNode()           {}

func (n *LocalStmt) BlockEnding() bool         { return false }
func (n *AssignStmt) BlockEnding() bool        { return false }
func (n *CallStmt) BlockEnding() bool          { return false }
func (n *DoStmt) BlockEnding() bool            { return false }
func (n *WhileStmt) BlockEnding() bool         { return false }
func (n *RepeatStmt) BlockEnding() bool        { return false }
func (n *IfStmt) BlockEnding() bool            { return false }
func (n *NumericForStmt) BlockEnding() bool    { return false }
func (n *GenericForStmt) BlockEnding() bool    { return false }
func (n *FunctionStmt) BlockEnding() bool      { return false }
func (n *LocalFunctionStmt) BlockEnding() bool { return false }
func (n *ReturnStmt) BlockEnding() bool        { return true }
func (n *BreakStmt) BlockEnding() bool         { return true }
func (n *GotoStmt) BlockEnding() bool          { return true }
func (n *LabelStmt) BlockEnding() bool         { return false }
func (n *BadStmt) BlockEnding() bool           { return false }

func (n *LocalStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "local", map[string]int{"names": len(n.Names)})
}
func (n *LocalStmt) Span() (start, end token.Pos) {
	end = n.Local + 5
	if len(n.Exprs) > 0 {
		_, end = n.Exprs[len(n.Exprs)-1].Span()
	} else if len(n.Names) > 0 {
		_, end = n.Names[len(n.Names)-1].Span()
	}
	return n.Local, end
}
func (n *LocalStmt) Walk(v Visitor) {
	for _, name := range n.Names {
		Walk(v, name)
	}
	for _, e := range n.Exprs {
		Walk(v, e)
	}
}

func (n *AssignStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "assign", map[string]int{"left": len(n.Left), "right": len(n.Right)})
}
func (n *AssignStmt) Span() (start, end token.Pos) {
	start, _ = n.Left[0].Span()
	_, end = n.Right[len(n.Right)-1].Span()
	return start, end
}
func (n *AssignStmt) Walk(v Visitor) {
	for _, e := range n.Left {
		Walk(v, e)
	}
	for _, e := range n.Right {
		Walk(v, e)
	}
}

func (n *CallStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "call stmt", nil) }
func (n *CallStmt) Span() (start, end token.Pos)  { return n.Call.Span() }
func (n *CallStmt) Walk(v Visitor)                { Walk(v, n.Call) }

func (n *DoStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "do", nil) }
func (n *DoStmt) Span() (start, end token.Pos)  { return n.Do, n.End + 3 }
func (n *DoStmt) Walk(v Visitor)                { Walk(v, n.Body) }

func (n *WhileStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "while", nil) }
func (n *WhileStmt) Span() (start, end token.Pos)  { return n.While, n.End + 3 }
func (n *WhileStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
}

func (n *RepeatStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "repeat", nil) }
func (n *RepeatStmt) Span() (start, end token.Pos) {
	_, end = n.Cond.Span()
	return n.Repeat, end
}
func (n *RepeatStmt) Walk(v Visitor) {
	Walk(v, n.Body)
	Walk(v, n.Cond)
}

func (n *IfStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "if", map[string]int{"elseifs": len(n.ElseIfs)})
}
func (n *IfStmt) Span() (start, end token.Pos) { return n.If, n.End + 3 }
func (n *IfStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
	for _, ei := range n.ElseIfs {
		Walk(v, ei.Cond)
		Walk(v, ei.Body)
	}
	if n.Else != nil {
		Walk(v, n.Else)
	}
}

func (n *NumericForStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "numeric for", nil) }
func (n *NumericForStmt) Span() (start, end token.Pos)  { return n.For, n.End + 3 }
func (n *NumericForStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	Walk(v, n.Start)
	Walk(v, n.Stop)
	if n.Step != nil {
		Walk(v, n.Step)
	}
	Walk(v, n.Body)
}

func (n *GenericForStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "generic for", map[string]int{"names": len(n.Names)})
}
func (n *GenericForStmt) Span() (start, end token.Pos) { return n.For, n.End + 3 }
func (n *GenericForStmt) Walk(v Visitor) {
	for _, name := range n.Names {
		Walk(v, name)
	}
	for _, e := range n.Exprs {
		Walk(v, e)
	}
	Walk(v, n.Body)
}

func funcNameString(fn *FuncName) string {
	s := fn.Base.Name
	for _, d := range fn.Dots {
		s += "." + d.Name
	}
	if fn.Method != nil {
		s += ":" + fn.Method.Name
	}
	return s
}

func (n *FunctionStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "function "+funcNameString(n.Name), nil)
}
func (n *FunctionStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.Function, end
}
func (n *FunctionStmt) Walk(v Visitor) {
	Walk(v, n.Name.Base)
	for _, d := range n.Name.Dots {
		Walk(v, d)
	}
	if n.Name.Method != nil {
		Walk(v, n.Name.Method)
	}
	Walk(v, n.Body)
}

func (n *LocalFunctionStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "local function "+n.Name.Name, nil)
}
func (n *LocalFunctionStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.Local, end
}
func (n *LocalFunctionStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	Walk(v, n.Body)
}

func (n *ReturnStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "return", map[string]int{"exprs": len(n.Exprs)})
}
func (n *ReturnStmt) Span() (start, end token.Pos) {
	end = n.Return + 6
	if len(n.Exprs) > 0 {
		_, end = n.Exprs[len(n.Exprs)-1].Span()
	}
	return n.Return, end
}
func (n *ReturnStmt) Walk(v Visitor) {
	for _, e := range n.Exprs {
		Walk(v, e)
	}
}

func (n *BreakStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "break", nil) }
func (n *BreakStmt) Span() (start, end token.Pos)  { return n.Break, n.Break + 5 }
func (n *BreakStmt) Walk(_ Visitor)                {}

func (n *GotoStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "goto "+n.Label, nil) }
func (n *GotoStmt) Span() (start, end token.Pos) {
	return n.Goto, n.Goto + token.Pos(5+len(n.Label))
}
func (n *GotoStmt) Walk(_ Visitor) {}

func (n *LabelStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "label "+n.Label, nil) }
func (n *LabelStmt) Span() (start, end token.Pos)  { return n.Start, n.End }
func (n *LabelStmt) Walk(_ Visitor)                {}

func (n *BadStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "bad stmt", nil) }
func (n *BadStmt) Span() (start, end token.Pos)  { return n.Start, n.End }
func (n *BadStmt) Walk(_ Visitor)                {}
