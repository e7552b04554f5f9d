package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/jit/compiler"
	"github.com/slowlang/jit/compiler/ir"
	"github.com/slowlang/jit/compiler/jit"
	"github.com/slowlang/jit/compiler/native"
)

func main() {
	verifyCmd := &cli.Command{
		Name:        "verify",
		Description: "verify bitcode files",
		Action:      verifyAct,
		Args:        cli.Args{},
	}

	dumpCmd := &cli.Command{
		Name:        "dump",
		Description: "print bitcode files as text",
		Action:      dumpAct,
		Args:        cli.Args{},
	}

	globalsCmd := &cli.Command{
		Name:        "globals",
		Description: "list functions and global variables",
		Action:      globalsAct,
		Args:        cli.Args{},
	}

	linkCmd := &cli.Command{
		Name:        "link",
		Description: "link bitcode files into one",
		Action:      linkAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "a.bc", "output file"),
		},
	}

	optCmd := &cli.Command{
		Name:        "opt",
		Description: "optimize a bitcode file",
		Action:      optAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file, input is replaced if empty"),
			cli.NewFlag("level,O", 2, "optimization level 0-3"),
			cli.NewFlag("size,s", 0, "size level 0-2"),
		},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile a bitcode file and call a function: run <file> <func> [int args...]",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("float,f", false, "function takes and returns doubles"),
			cli.NewFlag("host", true, "map declared host functions (identity, llabs, trace)"),
		},
	}

	versionCmd := &cli.Command{
		Name:        "version",
		Description: "print backend version",
		Action:      versionAct,
	}

	app := &cli.Command{
		Name:        "slowjit",
		Description: "slowjit builds, checks and runs native code from bitcode files",
		Flags: []*cli.Flag{
			cli.NewFlag("config,c", "", "toml config file"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			verifyCmd,
			dumpCmd,
			globalsCmd,
			linkCmd,
			optCmd,
			runCmd,
			versionCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func setup(c *cli.Command) (ctx context.Context, cfg compiler.Config, err error) {
	tlog.SetVerbosity(c.String("verbosity"))

	ctx = context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	cfg = compiler.DefaultConfig()

	if p := c.String("config"); p != "" {
		err = compiler.LoadConfig(p, &cfg)
		if err != nil {
			return ctx, cfg, errors.Wrap(err, "load config")
		}
	}

	return ctx, cfg, nil
}

// load parses every argument into its own module of a fresh context.
func load(ctx context.Context, args []string) (*ir.Context, []*ir.Module, error) {
	ictx := ir.NewContext()

	var ms []*ir.Module

	for _, a := range args {
		m, err := compiler.LoadModule(ctx, ictx, a)
		if err != nil {
			ictx.Dispose()
			return nil, nil, errors.Wrap(err, "load %v", a)
		}

		ms = append(ms, m)
	}

	return ictx, ms, nil
}

func verifyAct(c *cli.Command) (err error) {
	ctx, _, err := setup(c)
	if err != nil {
		return err
	}

	ictx, ms, err := load(ctx, c.Args)
	if err != nil {
		return err
	}

	defer ictx.Dispose()

	var failed int

	for _, m := range ms {
		err = m.Verify()
		if err != nil {
			fmt.Printf("%v: %v\n", m.Name(), err)
			failed++

			continue
		}

		fmt.Printf("%v: ok\n", m.Name())
	}

	if failed != 0 {
		return errors.New("%d of %d modules are broken", failed, len(ms))
	}

	return nil
}

func dumpAct(c *cli.Command) (err error) {
	ctx, _, err := setup(c)
	if err != nil {
		return err
	}

	ictx, ms, err := load(ctx, c.Args)
	if err != nil {
		return err
	}

	defer ictx.Dispose()

	for _, m := range ms {
		fmt.Printf("%s", m)
	}

	return nil
}

func globalsAct(c *cli.Command) (err error) {
	ctx, _, err := setup(c)
	if err != nil {
		return err
	}

	ictx, ms, err := load(ctx, c.Args)
	if err != nil {
		return err
	}

	defer ictx.Dispose()

	for _, m := range ms {
		fmt.Printf("%v:\n", m.Name())

		for f := range m.Funcs() {
			kind := "func"
			if f.IsDeclaration() {
				kind = "declare"
			}

			fmt.Printf("  %-8v %v %v\n", kind, f.Name(), f.Signature())
		}

		for g := range m.Globals() {
			fmt.Printf("  %-8v %v %v\n", "global", g.Name(), g.ValueType())
		}
	}

	return nil
}

func linkAct(c *cli.Command) (err error) {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	if len(c.Args) == 0 {
		return errors.New("no input files")
	}

	out := c.String("output")

	m, err := compiler.LinkFiles(ctx, out, c.Args, cfg)
	if err != nil {
		return errors.Wrap(err, "link")
	}

	defer m.Context().Dispose()

	return writeModule(out, m)
}

func optAct(c *cli.Command) (err error) {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	if len(c.Args) != 1 {
		return errors.New("expected one input file")
	}

	ictx, ms, err := load(ctx, c.Args)
	if err != nil {
		return err
	}

	defer ictx.Dispose()

	m := ms[0]

	if cfg.Verify {
		if err = m.Verify(); err != nil {
			return err
		}
	}

	err = m.Optimize(ctx, c.Int("level"), c.Int("size"))
	if err != nil {
		return errors.Wrap(err, "optimize")
	}

	out := c.String("output")
	if out == "" {
		out = c.Args[0]
	}

	return writeModule(out, m)
}

func runAct(c *cli.Command) (err error) {
	ctx, cfg, err := setup(c)
	if err != nil {
		return err
	}

	if len(c.Args) < 2 {
		return errors.New("usage: run <file> <func> [args...]")
	}

	comp, err := compiler.LoadFile(ctx, c.Args[0], cfg)
	if err != nil {
		return err
	}

	defer comp.Close()

	if c.Bool("host") {
		mapHost(ctx, comp)
	}

	name := c.Args[1]

	f, ok := comp.Func(name)
	if !ok {
		return errors.New("no such function: %v", name)
	}

	fn, ok := comp.Callable(f)
	if !ok {
		return errors.New("function does not resolve: %v", name)
	}

	if c.Bool("float") {
		args := make([]float64, len(c.Args)-2)

		for i, a := range c.Args[2:] {
			args[i], err = strconv.ParseFloat(a, 64)
			if err != nil {
				return errors.Wrap(err, "arg %d", i)
			}
		}

		fmt.Printf("%v\n", fn.CallFloat(args...))

		return nil
	}

	args := make([]uint64, len(c.Args)-2)

	for i, a := range c.Args[2:] {
		args[i], err = parseInt(a)
		if err != nil {
			return errors.Wrap(err, "arg %d", i)
		}
	}

	r := fn.Call(args...)

	ret := f.Signature().Return()

	switch w := ret.Width(); {
	case ret.IsVoid():
	case w == 1:
		fmt.Printf("%v\n", r&1 != 0)
	case w != 0:
		fmt.Printf("%d\n", native.SignExtend(r, w))
	default:
		fmt.Printf("%#x\n", r)
	}

	return nil
}

func versionAct(c *cli.Command) error {
	if err := native.Init(); err != nil {
		return err
	}

	major, minor := native.Version()

	fmt.Printf("llvm %d.%d\n", major, minor)

	return nil
}

func mapHost(ctx context.Context, comp *jit.Compiler) {
	hosts := native.HostFuncs()

	for f := range comp.Module().Funcs() {
		if !f.IsDeclaration() || !slices.Contains(hosts, f.Name()) {
			continue
		}

		p, _ := native.HostFunc(f.Name())
		comp.MapGlobal(f.GlobalValue, p)

		tlog.SpanFromContext(ctx).Printw("map host function", "name", f.Name())
	}
}

func parseInt(s string) (uint64, error) {
	if x, err := strconv.ParseInt(s, 0, 64); err == nil {
		return uint64(x), nil
	}

	return strconv.ParseUint(s, 0, 64)
}

func writeModule(path string, m *ir.Module) error {
	err := os.WriteFile(path, m.Bitcode(), 0o644)
	if err != nil {
		return errors.Wrap(err, "write %v", path)
	}

	return nil
}
