package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mna/mainer"
	"github.com/thara/vela/internal/config"
	"github.com/thara/vela/lang/compiler"
	"github.com/thara/vela/lang/machine"
	"github.com/thara/vela/lang/parser"
	"github.com/thara/vela/lang/scanner"
	"github.com/thara/vela/lang/stdlib"
)

// CompileFile implements the -c/--compile flag: it compiles args[0] and
// writes the resulting Proto, serialized by lang/compiler's binary format,
// to c.Output. Dispatched directly from Validate rather than through
// buildCmds' subcommand map, since -c is a flag rather than a command name.
func (c *Cmd) CompileFile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	fset, chunks, err := parser.ParseFiles(args[0])
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return err
	}
	proto, err := compiler.Compile(fset, chunks[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	out, err := os.Create(c.Output)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	defer out.Close()

	if err := compiler.WriteBinary(out, proto); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	return nil
}

// RunBytecode implements the -b/--bytecode flag: it loads a Proto
// previously written by CompileFile/-c from args[0] and executes it
// directly, skipping the scan/parse/compile pipeline entirely.
func (c *Cmd) RunBytecode(ctx context.Context, stdio mainer.Stdio, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	defer f.Close()

	proto, err := compiler.ReadBinary(f)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

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

	scriptArgs := args[1:]
	argTable := vm.NewTable(len(scriptArgs), 0)
	for i, a := range scriptArgs {
		argTable.Set(machine.Int(i+1), machine.String(a))
	}
	vm.Globals.Set(machine.String("arg"), argTable)

	cl := vm.Load(proto)
	callArgs := make([]machine.Value, len(scriptArgs))
	for i, a := range scriptArgs {
		callArgs[i] = machine.String(a)
	}
	_, runErr := vm.Run(ctx, cl, callArgs...)
	if c.Trace {
		live, thresh := vm.GCStats()
		fmt.Fprintf(stdio.Stderr, "gc: %s allocated, next cycle at %s\n",
			humanize.Bytes(uint64(live)), humanize.Bytes(uint64(thresh)))
	}
	if runErr != nil {
		fmt.Fprintln(stdio.Stderr, runErr)
		return runErr
	}
	return nil
}
