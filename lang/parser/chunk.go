package parser

import (
	"github.com/thara/vela/lang/ast"
	"github.com/thara/vela/lang/token"
)

func (p *parser) parseChunk() *ast.Chunk {
	var chunk ast.Chunk
	chunk.Block = p.parseBlock()
	chunk.EOF = p.expect(token.EOF)
	return &chunk
}

// parseBlock parses statements until it sees one of endToks (EOF is always
// an implicit end token).
func (p *parser) parseBlock(endToks ...token.Token) *ast.Block {
	var block ast.Block
	block.Start = p.val.Pos

	endToks = append(endToks, token.EOF)

	var ending ast.Stmt
	var endingReported bool
	for !tokenIn(p.tok, endToks...) {
		stmt := p.parseStmt()
		if stmt == nil {
			continue
		}
		if ending != nil {
			if !endingReported {
				pos, _ := stmt.Span()
				p.errorExpected(pos, "end of block")
				endingReported = true
			}
		} else if stmt.BlockEnding() {
			ending = stmt
		}
		block.Stmts = append(block.Stmts, stmt)
	}

	block.End = p.val.Pos
	return &block
}

// parseStmt parses a single statement, returning nil for statements to
// discard (the empty ";" statement).
func (p *parser) parseStmt() (stmt ast.Stmt) {
	start := p.val.Pos

	defer func() {
		if err := recover(); err != nil {
			if err == errPanicMode {
				stmt = &ast.BadStmt{Start: start, End: p.syncAfterError()}
				return
			}
			panic(err)
		}
	}()

	switch p.tok {
	case token.SEMI:
		p.advance()
		return nil
	case token.COLONCOLON:
		return p.parseLabelStmt()
	case token.BREAK:
		pos := p.expect(token.BREAK)
		return &ast.BreakStmt{Break: pos}
	case token.GOTO:
		pos := p.expect(token.GOTO)
		name := p.val.Raw
		p.expect(token.IDENT)
		return &ast.GotoStmt{Goto: pos, Label: name}
	case token.DO:
		return p.parseDoStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.REPEAT:
		return p.parseRepeatStmt()
	case token.IF:
		return p.parseIfStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.FUNCTION:
		return p.parseFunctionStmt()
	case token.LOCAL:
		return p.parseLocalStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	default:
		return p.parseExprOrAssignStmt()
	}
}

var syncToks = map[token.Token]bool{
	token.SEMI: true, token.END: true, token.IF: true, token.WHILE: true,
	token.FOR: true, token.DO: true, token.REPEAT: true, token.FUNCTION: true,
	token.LOCAL: true, token.RETURN: true, token.BREAK: true, token.GOTO: true,
	token.COLONCOLON: true, token.UNTIL: true, token.ELSE: true, token.ELSEIF: true,
}

func (p *parser) syncAfterError() token.Pos {
	for p.tok != token.EOF {
		if syncToks[p.tok] {
			return p.val.Pos
		}
		p.advance()
	}
	return p.val.Pos
}
