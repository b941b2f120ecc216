package parser

import (
	"github.com/thara/vela/lang/ast"
	"github.com/thara/vela/lang/token"
)

func (p *parser) parseName() *ast.Name {
	n := &ast.Name{NamePos: p.val.Pos, Name: p.val.Raw}
	p.expect(token.IDENT)
	return n
}

func (p *parser) parseLabelStmt() *ast.LabelStmt {
	start := p.expect(token.COLONCOLON)
	name := p.val.Raw
	p.expect(token.IDENT)
	end := p.expect(token.COLONCOLON)
	return &ast.LabelStmt{Start: start, End: end, Label: name}
}

func (p *parser) parseDoStmt() *ast.DoStmt {
	do := p.expect(token.DO)
	body := p.parseBlock(token.END)
	end := p.expect(token.END)
	return &ast.DoStmt{Do: do, Body: body, End: end}
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	start := p.expect(token.WHILE)
	cond := p.parseExpr()
	p.expect(token.DO)
	body := p.parseBlock(token.END)
	end := p.expect(token.END)
	return &ast.WhileStmt{While: start, Cond: cond, Body: body, End: end}
}

func (p *parser) parseRepeatStmt() *ast.RepeatStmt {
	start := p.expect(token.REPEAT)
	body := p.parseBlock(token.UNTIL)
	until := p.expect(token.UNTIL)
	cond := p.parseExpr()
	return &ast.RepeatStmt{Repeat: start, Body: body, Until: until, Cond: cond}
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	var stmt ast.IfStmt
	stmt.If = p.expect(token.IF)
	stmt.Cond = p.parseExpr()
	p.expect(token.THEN)
	stmt.Body = p.parseBlock(token.ELSEIF, token.ELSE, token.END)

	for p.tok == token.ELSEIF {
		pos := p.expect(token.ELSEIF)
		cond := p.parseExpr()
		p.expect(token.THEN)
		body := p.parseBlock(token.ELSEIF, token.ELSE, token.END)
		stmt.ElseIfs = append(stmt.ElseIfs, &ast.ElseIfClause{ElseIf: pos, Cond: cond, Body: body})
	}

	if p.tok == token.ELSE {
		p.expect(token.ELSE)
		stmt.Else = p.parseBlock(token.END)
	}
	stmt.End = p.expect(token.END)
	return &stmt
}

func (p *parser) parseForStmt() ast.Stmt {
	forPos := p.expect(token.FOR)
	first := p.parseName()

	if p.tok == token.EQ {
		return p.parseNumericForStmt(forPos, first)
	}
	return p.parseGenericForStmt(forPos, first)
}

func (p *parser) parseNumericForStmt(forPos token.Pos, name *ast.Name) *ast.NumericForStmt {
	var stmt ast.NumericForStmt
	stmt.For = forPos
	stmt.Name = name
	p.expect(token.EQ)
	stmt.Start = p.parseExpr()
	p.expect(token.COMMA)
	stmt.Stop = p.parseExpr()
	if p.tok == token.COMMA {
		p.advance()
		stmt.Step = p.parseExpr()
	}
	p.expect(token.DO)
	stmt.Body = p.parseBlock(token.END)
	stmt.End = p.expect(token.END)
	return &stmt
}

func (p *parser) parseGenericForStmt(forPos token.Pos, first *ast.Name) *ast.GenericForStmt {
	var stmt ast.GenericForStmt
	stmt.For = forPos
	names := []*ast.Name{first}
	for p.tok == token.COMMA {
		p.advance()
		names = append(names, p.parseName())
	}
	stmt.Names = names
	p.expect(token.IN)
	stmt.Exprs = p.parseExprList()
	p.expect(token.DO)
	stmt.Body = p.parseBlock(token.END)
	stmt.End = p.expect(token.END)
	return &stmt
}

func (p *parser) parseFunctionStmt() *ast.FunctionStmt {
	fnPos := p.expect(token.FUNCTION)

	name := &ast.FuncName{Base: p.parseName()}
	for p.tok == token.DOT {
		p.advance()
		name.Dots = append(name.Dots, p.parseName())
	}
	if p.tok == token.COLON {
		p.advance()
		name.Method = p.parseName()
	}

	body := p.parseFuncBody(fnPos, name.Method != nil)
	if name.Method != nil {
		body.Name = funcNameString(name)
	}
	return &ast.FunctionStmt{Function: fnPos, Name: name, Body: body}
}

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

func (p *parser) parseLocalStmt() ast.Stmt {
	localPos := p.expect(token.LOCAL)
	if p.tok == token.FUNCTION {
		p.advance()
		name := p.parseName()
		body := p.parseFuncBody(localPos, false)
		body.Name = name.Name
		return &ast.LocalFunctionStmt{Local: localPos, Function: localPos, Name: name, Body: body}
	}

	var names []*ast.Name
	var attribs []string
	names = append(names, p.parseName())
	attribs = append(attribs, p.parseAttrib())
	for p.tok == token.COMMA {
		p.advance()
		names = append(names, p.parseName())
		attribs = append(attribs, p.parseAttrib())
	}

	stmt := &ast.LocalStmt{Local: localPos, Names: names, Attribs: attribs}
	if p.tok == token.EQ {
		p.advance()
		stmt.Exprs = p.parseExprList()
	}
	return stmt
}

// parseAttrib parses an optional <const>/<close> variable attribute.
func (p *parser) parseAttrib() string {
	if p.tok != token.LT {
		return ""
	}
	p.advance()
	name := p.val.Raw
	p.expect(token.IDENT)
	p.expect(token.GT)
	return name
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	pos := p.expect(token.RETURN)
	var exprs []ast.Expr
	if !tokenIn(p.tok, token.END, token.ELSE, token.ELSEIF, token.UNTIL, token.EOF, token.SEMI) {
		exprs = p.parseExprList()
	}
	if p.tok == token.SEMI {
		p.advance()
	}
	return &ast.ReturnStmt{Return: pos, Exprs: exprs}
}

// parseExprOrAssignStmt parses either a function/method call statement or an
// assignment, disambiguated on whether a ',' or '=' follows the first
// suffixed expression.
func (p *parser) parseExprOrAssignStmt() ast.Stmt {
	expr := p.parseSuffixedExpr()

	if tokenIn(p.tok, token.COMMA, token.EQ) {
		left := []ast.Expr{expr}
		for p.tok == token.COMMA {
			p.advance()
			left = append(left, p.parseSuffixedExpr())
		}
		for _, e := range left {
			if !ast.IsAssignable(e) {
				start, _ := e.Span()
				p.errorExpected(start, "assignable expression")
			}
		}
		assign := p.expect(token.EQ)
		right := p.parseExprList()
		return &ast.AssignStmt{Left: left, Assign: assign, Right: right}
	}

	switch expr.(type) {
	case *ast.CallExpr, *ast.MethodCallExpr:
		return &ast.CallStmt{Call: expr}
	}
	start, end := expr.Span()
	p.errorExpected(start, "function call")
	return &ast.BadStmt{Start: start, End: end}
}
