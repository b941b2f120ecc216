package parser

import (
	"github.com/thara/vela/lang/ast"
	"github.com/thara/vela/lang/token"
)

// binopPriority holds the left/right binding power of each binary operator,
// indexed by token.Token, following the Lua reference manual's precedence
// table (lowest to highest: or, and, comparisons, |, ~, &, shifts, ..,
// +/-, */ /// %, unary, ^). ".." and "^" are right-associative, which is
// expressed by giving them a higher left than right priority.
var binopPriority [100]struct{ left, right int }

func init() {
	set := func(tok token.Token, left, right int) { binopPriority[tok] = struct{ left, right int }{left, right} }
	set(token.OR, 1, 1)
	set(token.AND, 2, 2)
	set(token.LT, 3, 3)
	set(token.LE, 3, 3)
	set(token.GT, 3, 3)
	set(token.GE, 3, 3)
	set(token.EQEQ, 3, 3)
	set(token.NEQ, 3, 3)
	set(token.PIPE, 4, 4)
	set(token.TILDE, 5, 5)
	set(token.AMPERSAND, 6, 6)
	set(token.LTLT, 7, 7)
	set(token.GTGT, 7, 7)
	set(token.DOTDOT, 9, 8)
	set(token.PLUS, 10, 10)
	set(token.MINUS, 10, 10)
	set(token.STAR, 11, 11)
	set(token.SLASH, 11, 11)
	set(token.SLASHSLASH, 11, 11)
	set(token.PERCENT, 11, 11)
	set(token.CIRCUMFLEX, 14, 13)
}

const unopPriority = 12

func isBinop(tok token.Token) bool { return binopPriority[tok].left > 0 }

func isUnop(tok token.Token) bool {
	switch tok {
	case token.NOT, token.POUND, token.MINUS, token.TILDE:
		return true
	}
	return false
}

func (p *parser) parseExpr() ast.Expr { return p.parseSubExpr(0) }

// parseSubExpr implements precedence climbing: it parses an expression made
// of operators whose left binding power is greater than priority.
func (p *parser) parseSubExpr(priority int) ast.Expr {
	var left ast.Expr

	if isUnop(p.tok) {
		op := p.tok
		opPos := p.expect(p.tok)
		x := p.parseSubExpr(unopPriority)
		left = &ast.UnaryExpr{Op: op, OpPos: opPos, X: x}
	} else {
		left = p.parseSimpleExpr()
	}

	for isBinop(p.tok) && binopPriority[p.tok].left > priority {
		op := p.tok
		opPos := p.expect(p.tok)
		right := p.parseSubExpr(binopPriority[op].right)
		left = &ast.BinaryExpr{X: left, Op: op, OpPos: opPos, Y: right}
	}
	return left
}

func (p *parser) parseSimpleExpr() ast.Expr {
	switch p.tok {
	case token.NIL:
		pos := p.expect(token.NIL)
		return &ast.NilExpr{Pos: pos}
	case token.TRUE:
		pos := p.expect(token.TRUE)
		return &ast.BoolExpr{Pos: pos, Value: true}
	case token.FALSE:
		pos := p.expect(token.FALSE)
		return &ast.BoolExpr{Pos: pos, Value: false}
	case token.INT:
		e := &ast.NumberExpr{Pos: p.val.Pos, Raw: p.val.Raw, IsInt: true, Int: p.val.Int}
		p.advance()
		return e
	case token.FLOAT:
		e := &ast.NumberExpr{Pos: p.val.Pos, Raw: p.val.Raw, Float: p.val.Float}
		p.advance()
		return e
	case token.STRING:
		e := &ast.StringExpr{Pos: p.val.Pos, Raw: p.val.Raw, Value: p.val.String}
		p.advance()
		return e
	case token.DOTDOTDOT:
		pos := p.expect(token.DOTDOTDOT)
		return &ast.VarargExpr{Pos: pos}
	case token.FUNCTION:
		fnPos := p.expect(token.FUNCTION)
		return p.parseFuncBody(fnPos, false)
	case token.LBRACE:
		return p.parseTableExpr()
	default:
		return p.parseSuffixedExpr()
	}
}

// parsePrimaryExpr parses a NAME or a parenthesized expression, the two
// possible heads of a suffixed expression chain.
func (p *parser) parsePrimaryExpr() ast.Expr {
	switch p.tok {
	case token.IDENT:
		name := p.parseName()
		return &ast.NameExpr{NamePos: name.NamePos, Name: name.Name}
	case token.LPAREN:
		lparen := p.expect(token.LPAREN)
		x := p.parseExpr()
		rparen := p.expect(token.RPAREN)
		return &ast.ParenExpr{Lparen: lparen, X: x, Rparen: rparen}
	default:
		p.errorExpected(p.val.Pos, "expression")
		panic(errPanicMode)
	}
}

// parseSuffixedExpr parses a primary expression followed by zero or more
// index/attribute/call/method-call suffixes.
func (p *parser) parseSuffixedExpr() ast.Expr {
	x := p.parsePrimaryExpr()
	for {
		switch p.tok {
		case token.DOT:
			dot := p.expect(token.DOT)
			sel := p.parseName()
			x = &ast.AttrExpr{X: x, Dot: dot, Sel: sel}
		case token.LBRACK:
			lbrack := p.expect(token.LBRACK)
			idx := p.parseExpr()
			rbrack := p.expect(token.RBRACK)
			x = &ast.IndexExpr{X: x, Lbrack: lbrack, Index: idx, Rbrack: rbrack}
		case token.COLON:
			colon := p.expect(token.COLON)
			method := p.parseName()
			lparen, args, rparen := p.parseArgs()
			x = &ast.MethodCallExpr{X: x, Colon: colon, Method: method, Lparen: lparen, Args: args, Rparen: rparen}
		case token.LPAREN, token.STRING, token.LBRACE:
			lparen, args, rparen := p.parseArgs()
			x = &ast.CallExpr{Fn: x, Lparen: lparen, Args: args, Rparen: rparen}
		default:
			return x
		}
	}
}

// parseArgs parses a call's argument list: "(" explist? ")", a single
// string literal, or a single table constructor.
func (p *parser) parseArgs() (lparen token.Pos, args []ast.Expr, rparen token.Pos) {
	switch p.tok {
	case token.STRING:
		e := &ast.StringExpr{Pos: p.val.Pos, Raw: p.val.Raw, Value: p.val.String}
		pos := p.val.Pos
		p.advance()
		return pos, []ast.Expr{e}, pos
	case token.LBRACE:
		tbl := p.parseTableExpr()
		start, end := tbl.Span()
		return start, []ast.Expr{tbl}, end
	default:
		lparen = p.expect(token.LPAREN)
		if p.tok != token.RPAREN {
			args = p.parseExprList()
		}
		rparen = p.expect(token.RPAREN)
		return lparen, args, rparen
	}
}

func (p *parser) parseExprList() []ast.Expr {
	exprs := []ast.Expr{p.parseExpr()}
	for p.tok == token.COMMA {
		p.advance()
		exprs = append(exprs, p.parseExpr())
	}
	return exprs
}

func (p *parser) parseTableExpr() *ast.TableExpr {
	var tbl ast.TableExpr
	tbl.Lbrace = p.expect(token.LBRACE)

	for p.tok != token.RBRACE && p.tok != token.EOF {
		tbl.Fields = append(tbl.Fields, p.parseTableField())
		if tokenIn(p.tok, token.COMMA, token.SEMI) {
			p.advance()
		} else {
			break
		}
	}
	tbl.Rbrace = p.expect(token.RBRACE)
	return &tbl
}

func (p *parser) parseTableField() *ast.TableField {
	if p.tok == token.LBRACK {
		lbrack := p.expect(token.LBRACK)
		key := p.parseExpr()
		rbrack := p.expect(token.RBRACK)
		eq := p.expect(token.EQ)
		val := p.parseExpr()
		return &ast.TableField{Key: key, Lbrack: lbrack, Rbrack: rbrack, Eq: eq, Value: val}
	}
	if p.tok == token.IDENT {
		// could be "name = expr" or just a bare expression starting with a name
		save := *p
		name := p.parseName()
		if p.tok == token.EQ {
			eq := p.expect(token.EQ)
			val := p.parseExpr()
			key := &ast.StringExpr{Pos: name.NamePos, Raw: name.Name, Value: name.Name}
			return &ast.TableField{Key: key, Eq: eq, Value: val}
		}
		*p = save
	}
	val := p.parseExpr()
	return &ast.TableField{Value: val}
}

// parseFuncBody parses "(" parlist ")" block "end", the common suffix of a
// function expression, function statement, and local function statement.
// fnPos is the position of the already-consumed "function" keyword.
// isMethod prepends an implicit "self" parameter for a.b:c(...) syntax.
func (p *parser) parseFuncBody(fnPos token.Pos, isMethod bool) *ast.FunctionExpr {
	var fn ast.FunctionExpr
	fn.Function = fnPos

	if isMethod {
		fn.Params = append(fn.Params, &ast.Name{NamePos: fnPos, Name: "self"})
	}

	p.expect(token.LPAREN)
	for p.tok != token.RPAREN {
		if p.tok == token.DOTDOTDOT {
			p.advance()
			fn.Vararg = true
			break
		}
		fn.Params = append(fn.Params, p.parseName())
		if p.tok == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN)

	fn.Body = p.parseBlock(token.END)
	fn.End = p.expect(token.END)
	return &fn
}
