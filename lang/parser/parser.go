// Package parser implements a recursive-descent parser that transforms
// tokenized source into an abstract syntax tree (AST).
//
// Its error-recovery scheme (panic-mode unwinding caught at the statement
// level, resynchronizing on a safe token) is adapted from the teacher
// repository's lang/parser package.
package parser

import (
	"errors"
	"os"
	"strings"

	"github.com/thara/vela/lang/ast"
	"github.com/thara/vela/lang/scanner"
	"github.com/thara/vela/lang/token"
)

// ParseFiles parses each of the given source files into a *ast.Chunk. The
// returned error, if non-nil, is a scanner.ErrorList.
func ParseFiles(files ...string) (*token.FileSet, []*ast.Chunk, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	var p parser
	res := make([]*ast.Chunk, 0, len(files))
	fs := token.NewFileSet()

	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			p.errors.Add(token.Position{Filename: file}, err.Error())
			continue
		}
		p.init(fs, file, b)
		ch := p.parseChunk()
		ch.Name = file
		res = append(res, ch)
	}
	p.errors.Sort()
	return fs, res, p.errors.Err()
}

// ParseChunk parses a single chunk of source, registering it in fset under
// filename. The returned error, if non-nil, is a scanner.ErrorList.
func ParseChunk(fset *token.FileSet, filename string, src []byte) (*ast.Chunk, error) {
	var p parser
	p.init(fset, filename, src)
	ch := p.parseChunk()
	ch.Name = filename
	return ch, p.errors.Err()
}

// parser holds the mutable state of a single parse.
type parser struct {
	scanner scanner.Scanner
	errors  scanner.ErrorList
	file    *token.File

	tok token.Token
	val token.Value
}

func (p *parser) init(fset *token.FileSet, filename string, src []byte) {
	p.file = fset.AddFile(filename, -1, len(src))
	p.scanner.Init(p.file, src, p.errors.Add)
	p.advance()
}

func (p *parser) advance() {
	p.tok = p.scanner.Scan(&p.val)
	for p.tok == token.COMMENT {
		p.tok = p.scanner.Scan(&p.val)
	}
}

var errPanicMode = errors.New("panic")

// expect consumes the current token if it is one of toks and returns its
// position; otherwise it records an error and unwinds to the nearest
// statement boundary via panic(errPanicMode).
func (p *parser) expect(toks ...token.Token) token.Pos {
	pos := p.val.Pos

	var ok bool
	for _, tok := range toks {
		if p.tok == tok {
			ok = true
			break
		}
	}
	if !ok {
		p.errorExpected(pos, describeExpected(toks))
		panic(errPanicMode)
	}
	p.advance()
	return pos
}

func describeExpected(toks []token.Token) string {
	var buf strings.Builder
	for i, tok := range toks {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(tok.GoString())
	}
	if len(toks) > 1 {
		return "one of " + buf.String()
	}
	return buf.String()
}

func (p *parser) error(pos token.Pos, msg string) {
	p.errors.Add(p.file.Position(pos), msg)
}

func (p *parser) errorExpected(pos token.Pos, msg string) {
	msg = "expected " + msg
	if pos == p.val.Pos {
		if lit := p.tok.Literal(p.val); lit != "" {
			msg += ", found " + lit
		} else {
			msg += ", found " + p.tok.GoString()
		}
	}
	p.error(pos, msg)
}

func tokenIn(t token.Token, toks ...token.Token) bool {
	for _, tok := range toks {
		if t == tok {
			return true
		}
	}
	return false
}
