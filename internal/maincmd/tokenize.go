package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/thara/vela/lang/scanner"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(stdio, args...)
}

// TokenizeFiles scans each of files and prints the resulting token stream.
func TokenizeFiles(stdio mainer.Stdio, files ...string) error {
	fset, toksByFile, err := scanner.ScanFiles(files...)
	for _, toks := range toksByFile {
		for _, tv := range toks {
			pos := fset.Position(tv.Value.Pos)
			fmt.Fprintf(stdio.Stdout, "%s: %s", pos, tv.Token)
			if lit := tv.Token.Literal(tv.Value); lit != "" {
				fmt.Fprintf(stdio.Stdout, " %s", lit)
			}
			fmt.Fprintln(stdio.Stdout)
		}
	}
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
	}
	return err
}
