package maincmd

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "vela"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<path>...] [-- <arg>...]
       %[1]s [<option>...] <path> [<arg>...]
       %[1]s -c|--compile -o <path> <path>
       %[1]s -b|--bytecode <path> [<arg>...]
       %[1]s -h|--help
       %[1]s --version

Compiler and runtime for the %[1]s programming language, a Lua-family
scripting language.

The <command> can be one of:
       run                       Compile and execute a script, passing any
                                 trailing arguments (after --) to it.
       parse                     Execute the parser phase of the
                                 compilation and print the resulting
                                 abstract syntax tree (AST).
       tokenize                  Execute the scanner phase of the
                                 compilation and print the resulting
                                 tokens.
       disasm                    Compile a script and print its bytecode.

A bare script path with no recognized <command> name is equivalent to
'run': it is compiled and executed directly.

Valid flag options are:
       -h --help                 Show this help and exit.
       --version                 Print version and exit.
       -c --compile              Compile <path> and write serialized
                                 bytecode to -o's target instead of
                                 running it.
       -o <path>                 Output path for -c/--compile.
       -b --bytecode             Load <path> as bytecode previously
                                 written by -c/--compile and execute it
                                 directly, skipping scan/parse/compile.
       -v --verbose --trace      Trace every executed instruction to
                                 stderr and print humanized GC stats
                                 on exit.
       --config <path>           YAML file overriding VM tuning knobs
                                 otherwise read from the environment
                                 (VELA_MAX_STEPS, VELA_MAX_CALL_DEPTH,
                                 VELA_GC_GROWTH).

With no <command> and no <path>, starts an interactive REPL.

More information on the %[1]s repository:
       https://github.com/thara/vela
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help       bool   `flag:"h,help"`
	Version    bool   `flag:"version"`
	Trace      bool   `flag:"v,verbose,trace"`
	ConfigPath string `flag:"config"`
	Compile    bool   `flag:"c,compile"`
	Output     string `flag:"o"`
	Bytecode   bool   `flag:"b,bytecode"`

	args    []string
	cmdArgs []string
	flags   map[string]bool
	cmdFn   func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		// no command and no script: drop into the REPL, per the original
		// CLI's bare-invocation behavior.
		c.cmdFn = func(ctx context.Context, stdio mainer.Stdio, args []string) error {
			return c.Repl(ctx, stdio, args)
		}
		return nil
	}

	switch {
	case c.Compile:
		if c.Output == "" {
			return fmt.Errorf("-c/--compile requires -o <path>")
		}
		c.cmdFn = c.CompileFile
		c.cmdArgs = c.args
		return nil
	case c.Bytecode:
		c.cmdFn = c.RunBytecode
		c.cmdArgs = c.args
		return nil
	}

	cmdName := c.args[0]
	if fn, ok := buildCmds(c)[cmdName]; ok {
		if len(c.args[1:]) == 0 {
			return fmt.Errorf("%s: at least one file must be provided", cmdName)
		}
		c.cmdFn = fn
		c.cmdArgs = c.args[1:]
		return nil
	}

	// cmdName isn't a registered subcommand: treat the whole argument list
	// as a script path plus its own arguments, the original CLI's bare
	// 'vela script.lua [arg...]' invocation form.
	c.cmdFn = c.Run
	c.cmdArgs = c.args
	return nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.cmdArgs); err != nil {
		// each command takes care of printing its errors, just return with an error code
		return mainer.Failure
	}
	return mainer.Success
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
