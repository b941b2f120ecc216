package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/thara/vela/lang/compiler"
	"github.com/thara/vela/lang/parser"
	"github.com/thara/vela/lang/scanner"
)

func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return DisasmFiles(stdio, args...)
}

// DisasmFiles compiles each of files and prints their bytecode listing.
func DisasmFiles(stdio mainer.Stdio, files ...string) error {
	fset, chunks, err := parser.ParseFiles(files...)
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return err
	}
	for _, ch := range chunks {
		proto, cerr := compiler.Compile(fset, ch)
		if cerr != nil {
			fmt.Fprintln(stdio.Stderr, cerr)
			return cerr
		}
		compiler.Disassemble(stdio.Stdout, proto)
	}
	return nil
}
