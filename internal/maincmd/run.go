package maincmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/mna/mainer"
	"github.com/thara/vela/internal/config"
	"github.com/thara/vela/lang/compiler"
	"github.com/thara/vela/lang/machine"
	"github.com/thara/vela/lang/parser"
	"github.com/thara/vela/lang/scanner"
	"github.com/thara/vela/lang/stdlib"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return c.RunFile(ctx, stdio, args[0], args[1:])
}

// RunFile compiles and executes file on a fresh VM, passing scriptArgs to it
// as the ... vararg of the top-level chunk (as an arg table under the global
// "arg", Lua-style). c.ConfigPath, if non-empty, names a YAML file
// overriding the VM tuning knobs internal/config otherwise reads from the
// environment; c.Trace turns on per-instruction tracing and a humanized GC
// summary on exit.
func (c *Cmd) RunFile(ctx context.Context, stdio mainer.Stdio, file string, scriptArgs []string) error {
	fset, chunks, err := parser.ParseFiles(file)
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return err
	}
	proto, err := compiler.Compile(fset, chunks[0])
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

	argTable := vm.NewTable(len(scriptArgs), 0)
	for i, a := range scriptArgs {
		argTable.Set(machine.Int(i+1), machine.String(a))
	}
	vm.Globals.Set(machine.String("arg"), argTable)

	cl := vm.Load(proto)
	args := make([]machine.Value, len(scriptArgs))
	for i, a := range scriptArgs {
		args[i] = machine.String(a)
	}
	_, runErr := vm.Run(ctx, cl, args...)
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
