package ast

import (
	"fmt"
	"io"
	"strings"

	"github.com/thara/vela/lang/token"
)

// Printer controls pretty-printing of AST nodes, used by the CLI's parse
// command.
type Printer struct {
	// Output is the io.Writer to print to.
	Output io.Writer

	// Fset resolves node positions to file:line:col; if nil, positions are
	// omitted from the output.
	Fset *token.FileSet
}

// Print pretty-prints the AST node n as an indented tree.
func (p *Printer) Print(n Node) error {
	pp := &printer{w: p.Output, fset: p.Fset}
	Walk(pp, n)
	return pp.err
}

type printer struct {
	w     io.Writer
	fset  *token.FileSet
	depth int
	err   error
}

func (p *printer) Visit(n Node, dir VisitDirection) Visitor {
	if dir == VisitExit || p.err != nil {
		p.depth--
		return nil
	}
	p.depth++
	p.printNode(n, p.depth-1)
	return p
}

func (p *printer) printNode(n Node, indent int) {
	if p.err != nil {
		return
	}
	prefix := strings.Repeat(". ", indent)
	if p.fset != nil {
		start, _ := n.Span()
		_, p.err = fmt.Fprintf(p.w, "%s[%s] %v\n", prefix, p.fset.Position(start), n)
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%v\n", prefix, n)
}
