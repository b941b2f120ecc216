package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/thara/vela/lang/ast"
	"github.com/thara/vela/lang/parser"
	"github.com/thara/vela/lang/scanner"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(stdio, args...)
}

// ParseFiles parses each of files and pretty-prints the resulting ASTs.
func ParseFiles(stdio mainer.Stdio, files ...string) error {
	printer := ast.Printer{Output: stdio.Stdout}
	fset, chunks, err := parser.ParseFiles(files...)
	printer.Fset = fset
	for _, ch := range chunks {
		if perr := printer.Print(ch); perr != nil {
			fmt.Fprintln(stdio.Stderr, perr)
			return perr
		}
	}
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
	}
	return err
}
