package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mattn/go-isatty"
	"github.com/mna/mainer"
	"github.com/thara/vela/internal/config"
	"github.com/thara/vela/lang/compiler"
	"github.com/thara/vela/lang/machine"
	"github.com/thara/vela/lang/parser"
	"github.com/thara/vela/lang/scanner"
	"github.com/thara/vela/lang/stdlib"
	"github.com/thara/vela/lang/token"
)

const (
	ansiCyan  = "\x1b[36m"
	ansiReset = "\x1b[0m"
)

// Repl runs an interactive read-eval-print loop over stdio: one chunk per
// line, sharing a single VM (and so a single global table) across the whole
// session. The prompt is colorized only when stdio.Stdout is backed by a
// real terminal, matching an interactive shell's usual behavior rather than
// polluting piped output with escape codes.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	vm := machine.NewVM()
	vm.Stdout = stdio.Stdout
	vm.Stderr = stdio.Stderr
	vm.Stdin = stdio.Stdin
	vm.MaxSteps = cfg.MaxSteps
	vm.MaxCallDepth = cfg.MaxCallDepth
	vm.SetGCGrowth(cfg.GCGrowth)
	vm.Trace = c.Trace
	stdlib.OpenAll(vm)

	prompt := "> "
	if f, ok := stdio.Stdout.(interface{ Fd() uintptr }); ok && isatty.IsTerminal(f.Fd()) {
		prompt = ansiCyan + "> " + ansiReset
	}

	scan := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, prompt)
		if !scan.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return scan.Err()
		}
		line := scan.Text()
		if line == "" {
			continue
		}
		if err := c.evalLine(ctx, vm, stdio, line); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
		}
	}
}

// evalLine compiles and runs one REPL line as its own chunk, reusing vm (and
// so vm.Globals) across every line evaluated this session.
func (c *Cmd) evalLine(ctx context.Context, vm *machine.VM, stdio mainer.Stdio, line string) error {
	fset := token.NewFileSet()
	chunk, err := parser.ParseChunk(fset, "=stdin", []byte(line))
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return err
	}
	proto, err := compiler.Compile(fset, chunk)
	if err != nil {
		return err
	}
	cl := vm.Load(proto)
	results, err := vm.Run(ctx, cl)
	if err != nil {
		return err
	}
	for _, r := range results {
		s, serr := vm.ToString(vm.Main(), r)
		if serr != nil {
			return serr
		}
		fmt.Fprintln(stdio.Stdout, s)
	}
	return nil
}
