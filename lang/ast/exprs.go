package ast

import (
	"fmt"

	"github.com/thara/vela/lang/token"
)

// Unwrap strips any enclosing ParenExpr, recursively, returning the
// innermost non-parenthesized expression.
func Unwrap(e Expr) Expr {
	for {
		pe, ok := e.(*ParenExpr)
		if !ok {
			return e
		}
		e = pe.X
	}
}

// IsMultiValue reports whether e can yield more than one value when it
// appears in the tail position of an expression list: a function call or
// a vararg expression.
func IsMultiValue(e Expr) bool {
	switch Unwrap(e).(type) {
	case *CallExpr, *MethodCallExpr, *VarargExpr:
		return true
	}
	return false
}

// IsAssignable reports whether e is a valid assignment target: a bare name,
// an index expression, or an attribute (dotted) expression.
func IsAssignable(e Expr) bool {
	switch e.(type) {
	case *NameExpr, *IndexExpr, *AttrExpr:
		return true
	}
	return false
}

type (
	// NilExpr is the literal nil.
	NilExpr struct {
		Pos token.Pos
	}

	// BoolExpr is the literal true or false.
	BoolExpr struct {
		Pos   token.Pos
		Value bool
	}

	// NumberExpr is a numeric literal, either an integer or a float.
	NumberExpr struct {
		Pos     token.Pos
		Raw     string
		IsInt   bool
		Int     int64
		Float   float64
	}

	// StringExpr is a string literal (short or long-bracket).
	StringExpr struct {
		Pos   token.Pos
		Raw   string
		Value string
	}

	// VarargExpr is the "..." expression, only valid in a vararg function.
	VarargExpr struct {
		Pos token.Pos
	}

	// NameExpr is a bare identifier reference, resolved by the compiler to a
	// local, an upvalue, or a global (a _ENV index).
	NameExpr struct {
		NamePos token.Pos
		Name    string
	}

	// IndexExpr is x[index].
	IndexExpr struct {
		X      Expr
		Lbrack token.Pos
		Index  Expr
		Rbrack token.Pos
	}

	// AttrExpr is x.name, sugar for x["name"].
	AttrExpr struct {
		X   Expr
		Dot token.Pos
		Sel *Name
	}

	// CallExpr is fn(args...).
	CallExpr struct {
		Fn     Expr
		Lparen token.Pos
		Args   []Expr
		Rparen token.Pos
	}

	// MethodCallExpr is x:name(args...), sugar for x.name(x, args...).
	MethodCallExpr struct {
		X      Expr
		Colon  token.Pos
		Method *Name
		Lparen token.Pos
		Args   []Expr
		Rparen token.Pos
	}

	// FunctionExpr is a function literal: function(params...) body end.
	FunctionExpr struct {
		Function token.Pos
		Params   []*Name
		Vararg   bool
		Body     *Block
		End      token.Pos

		// Name is a best-effort label used in stack traces and debug info; it is
		// filled in by the parser when the literal appears directly as the
		// right-hand side of a named function statement.
		Name string
	}

	// TableField is one entry of a table constructor: either an array-style
	// entry (Key == nil), a [expr] = value entry, or a name = value entry
	// (Key is a *StringExpr in that case).
	TableField struct {
		Key    Expr
		Lbrack token.Pos // valid only for [expr] = value fields
		Rbrack token.Pos
		Eq     token.Pos // valid only when Key != nil
		Value  Expr
	}

	// TableExpr is a table constructor: { fields... }.
	TableExpr struct {
		Lbrace token.Pos
		Fields []*TableField
		Rbrace token.Pos
	}

	// BinaryExpr is a binary operator expression.
	BinaryExpr struct {
		X     Expr
		Op    token.Token
		OpPos token.Pos
		Y     Expr
	}

	// UnaryExpr is a unary operator expression: not, -, #, ~.
	UnaryExpr struct {
		Op    token.Token
		OpPos token.Pos
		X     Expr
	}

	// ParenExpr is a parenthesized expression, which truncates a multi-value
	// expression down to exactly one value.
	ParenExpr struct {
		Lparen token.Pos
		X      Expr
		Rparen token.Pos
	}
)

func (*NilExpr) exprNode()        {}
func (*BoolExpr) exprNode()       {}
func (*NumberExpr) exprNode()     {}
func (*StringExpr) exprNode()     {}
func (*VarargExpr) exprNode()     {}
func (*NameExpr) exprNode()       {}
func (*IndexExpr) exprNode()      {}
func (*AttrExpr) exprNode()       {}
func (*CallExpr) exprNode()       {}
func (*MethodCallExpr) exprNode() {}
func (*FunctionExpr) exprNode()   {}
func (*TableExpr) exprNode()      {}
func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*ParenExpr) exprNode()      {}

func (n *NilExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "nil", nil) }
func (n *NilExpr) Span() (start, end token.Pos)  { return n.Pos, n.Pos + 3 }
func (n *NilExpr) Walk(_ Visitor)                {}

func (n *BoolExpr) Format(f fmt.State, verb rune) {
	lbl := "false"
	if n.Value {
		lbl = "true"
	}
	format(f, verb, n, lbl, nil)
}
func (n *BoolExpr) Span() (start, end token.Pos) {
	l := 5
	if n.Value {
		l = 4
	}
	return n.Pos, n.Pos + token.Pos(l)
}
func (n *BoolExpr) Walk(_ Visitor) {}

func (n *NumberExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "number "+n.Raw, nil) }
func (n *NumberExpr) Span() (start, end token.Pos) {
	return n.Pos, n.Pos + token.Pos(len(n.Raw))
}
func (n *NumberExpr) Walk(_ Visitor) {}

func (n *StringExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "string "+n.Value, nil) }
func (n *StringExpr) Span() (start, end token.Pos) {
	return n.Pos, n.Pos + token.Pos(len(n.Raw))
}
func (n *StringExpr) Walk(_ Visitor) {}

func (n *VarargExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "...", nil) }
func (n *VarargExpr) Span() (start, end token.Pos)  { return n.Pos, n.Pos + 3 }
func (n *VarargExpr) Walk(_ Visitor)                {}

func (n *NameExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "name "+n.Name, nil) }
func (n *NameExpr) Span() (start, end token.Pos) {
	return n.NamePos, n.NamePos + token.Pos(len(n.Name))
}
func (n *NameExpr) Walk(_ Visitor) {}

func (n *IndexExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "index", nil) }
func (n *IndexExpr) Span() (start, end token.Pos) {
	start, _ = n.X.Span()
	return start, n.Rbrack + 1
}
func (n *IndexExpr) Walk(v Visitor) {
	Walk(v, n.X)
	Walk(v, n.Index)
}

func (n *AttrExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "attr ."+n.Sel.Name, nil) }
func (n *AttrExpr) Span() (start, end token.Pos) {
	start, _ = n.X.Span()
	_, end = n.Sel.Span()
	return start, end
}
func (n *AttrExpr) Walk(v Visitor) {
	Walk(v, n.X)
	Walk(v, n.Sel)
}

func (n *CallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "call", map[string]int{"args": len(n.Args)})
}
func (n *CallExpr) Span() (start, end token.Pos) {
	start, _ = n.Fn.Span()
	return start, n.Rparen + 1
}
func (n *CallExpr) Walk(v Visitor) {
	Walk(v, n.Fn)
	for _, a := range n.Args {
		Walk(v, a)
	}
}

func (n *MethodCallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "method call :"+n.Method.Name, map[string]int{"args": len(n.Args)})
}
func (n *MethodCallExpr) Span() (start, end token.Pos) {
	start, _ = n.X.Span()
	return start, n.Rparen + 1
}
func (n *MethodCallExpr) Walk(v Visitor) {
	Walk(v, n.X)
	Walk(v, n.Method)
	for _, a := range n.Args {
		Walk(v, a)
	}
}

func (n *FunctionExpr) Format(f fmt.State, verb rune) {
	lbl := "function"
	if n.Name != "" {
		lbl += " " + n.Name
	}
	format(f, verb, n, lbl, map[string]int{"params": len(n.Params)})
}
func (n *FunctionExpr) Span() (start, end token.Pos) { return n.Function, n.End + 3 }
func (n *FunctionExpr) Walk(v Visitor) {
	for _, p := range n.Params {
		Walk(v, p)
	}
	if n.Body != nil {
		Walk(v, n.Body)
	}
}

func (n *TableExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "table", map[string]int{"fields": len(n.Fields)})
}
func (n *TableExpr) Span() (start, end token.Pos) { return n.Lbrace, n.Rbrace + 1 }
func (n *TableExpr) Walk(v Visitor) {
	for _, fld := range n.Fields {
		if fld.Key != nil {
			Walk(v, fld.Key)
		}
		Walk(v, fld.Value)
	}
}

func (n *BinaryExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "binary "+n.Op.String(), nil) }
func (n *BinaryExpr) Span() (start, end token.Pos) {
	start, _ = n.X.Span()
	_, end = n.Y.Span()
	return start, end
}
func (n *BinaryExpr) Walk(v Visitor) {
	Walk(v, n.X)
	Walk(v, n.Y)
}

func (n *UnaryExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "unary "+n.Op.String(), nil) }
func (n *UnaryExpr) Span() (start, end token.Pos) {
	_, end = n.X.Span()
	return n.OpPos, end
}
func (n *UnaryExpr) Walk(v Visitor) { Walk(v, n.X) }

func (n *ParenExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "paren", nil) }
func (n *ParenExpr) Span() (start, end token.Pos)  { return n.Lparen, n.Rparen + 1 }
func (n *ParenExpr) Walk(v Visitor)                { Walk(v, n.X) }
