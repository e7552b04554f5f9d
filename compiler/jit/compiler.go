package jit

import (
	"context"
	"iter"
	"os"
	"unsafe"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/jit/compiler/ir"
	"github.com/slowlang/jit/compiler/native"
	"github.com/slowlang/jit/compiler/tp"
)

type (
	// Compiler owns a context, its base module, a builder and an engine
	// compiling the base module and any module added later.
	Compiler struct {
		ctx    *ir.Context
		module *ir.Module
		b      *ir.Builder
		engine *Engine

		builders []*ir.Builder

		closed bool
	}

	// Callable is a compiled function.
	Callable struct {
		name string
		ptr  unsafe.Pointer
	}
)

// New creates a compiler over a new empty module.
func New(ctx context.Context, name string, opts ...Option) (*Compiler, error) {
	c := ir.NewContext()

	return newCompiler(ctx, c, c.NewModule(name), opts)
}

// FromBitcode creates a compiler over a module loaded from a bitcode file.
func FromBitcode(ctx context.Context, path string, opts ...Option) (*Compiler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read bitcode")
	}

	c := ir.NewContext()

	m, err := c.LoadBitcode(ctx, path, data)
	if err != nil {
		c.Dispose()
		return nil, err
	}

	return newCompiler(ctx, c, m, opts)
}

// FromModule creates a compiler taking over m and its context.
// The compiler disposes the context on Close.
func FromModule(ctx context.Context, m *ir.Module, opts ...Option) (*Compiler, error) {
	return newCompiler(ctx, m.Context(), m, opts)
}

func newCompiler(ctx context.Context, c *ir.Context, m *ir.Module, opts []Option) (_ *Compiler, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "jit: new compiler", "module", m)
	defer tr.Finish("err", &err)

	o := defaultOptions()

	for _, opt := range opts {
		opt(&o)
	}

	if o.OptLevel < 0 || o.OptLevel > 3 {
		c.Dispose()
		return nil, errors.New("bad opt level: %d", o.OptLevel)
	}

	e, err := NewEngine(ctx, m, o)
	if err != nil {
		c.Dispose()
		return nil, err
	}

	return &Compiler{
		ctx:    c,
		module: m,
		b:      c.NewBuilder(),
		engine: e,
	}, nil
}

// Close tears the compiler down: engine with its modules, builders, remaining modules, context.
// Every pointer obtained from the compiler is invalid afterwards.
func (c *Compiler) Close() {
	if c.closed {
		return
	}

	c.closed = true

	c.engine.Close()

	c.b.Dispose()

	for _, b := range c.builders {
		b.Dispose()
	}

	c.ctx.Dispose()
}

func (c *Compiler) Context() *ir.Context { return c.ctx }
func (c *Compiler) Module() *ir.Module   { return c.module }
func (c *Compiler) Engine() *Engine      { return c.engine }
func (c *Compiler) Builder() *ir.Builder { return c.b }
func (c *Compiler) Types() *tp.Table     { return c.ctx.Types() }

// NewBuilder returns an extra builder. It is disposed by Close.
func (c *Compiler) NewBuilder() *ir.Builder {
	c.mustLive()

	b := c.ctx.NewBuilder()
	c.builders = append(c.builders, b)

	return b
}

// NewModule creates a module in the compiler context. The caller owns it.
func (c *Compiler) NewModule(name string) *ir.Module {
	c.mustLive()

	return c.ctx.NewModule(name)
}

func (c *Compiler) Const(x any) ir.Constant {
	c.mustLive()

	return c.ctx.Const(x)
}

func (c *Compiler) AddModule(m *ir.Module) {
	c.mustLive()

	c.engine.AddModule(m)
}

func (c *Compiler) RemoveModule(m *ir.Module) error {
	c.mustLive()

	return c.engine.RemoveModule(m)
}

// PointerToGlobal resolves a global of any module in the engine. See Engine.PointerToGlobal.
func (c *Compiler) PointerToGlobal(g ir.GlobalValue) unsafe.Pointer {
	c.mustLive()

	return c.engine.PointerToGlobal(g)
}

func (c *Compiler) MapGlobal(g ir.GlobalValue, addr unsafe.Pointer) {
	c.mustLive()

	c.engine.MapGlobal(g, addr)
}

// FuncPtr returns the native entry point of fn or nil.
func (c *Compiler) FuncPtr(fn ir.Function) unsafe.Pointer {
	c.mustLive()

	return c.engine.PointerToGlobal(fn.GlobalValue)
}

// Callable resolves fn to a callable entry point.
// It returns false if fn does not resolve.
func (c *Compiler) Callable(fn ir.Function) (Callable, bool) {
	p := c.FuncPtr(fn)
	if p == nil {
		return Callable{}, false
	}

	return Callable{name: fn.Name(), ptr: p}, true
}

// Verify verifies the base module.
func (c *Compiler) Verify() error {
	c.mustLive()

	return c.module.Verify()
}

// Optimize optimizes the base module. Functions already compiled are not affected.
func (c *Compiler) Optimize(ctx context.Context, optLevel, sizeLevel int) error {
	c.mustLive()

	return c.module.Optimize(ctx, optLevel, sizeLevel)
}

func (c *Compiler) Dump() {
	c.mustLive()

	c.module.Dump()
}

func (c *Compiler) Target() string {
	c.mustLive()

	return c.module.Target()
}

func (c *Compiler) DataLayout() string {
	c.mustLive()

	return c.module.DataLayout()
}

func (c *Compiler) AddFunc(name string, sig tp.Type) ir.Function {
	c.mustLive()

	return c.module.AddFunc(name, sig)
}

func (c *Compiler) Func(name string) (ir.Function, bool) {
	c.mustLive()

	return c.module.Func(name)
}

// DeleteFunc removes the named function from the base module.
func (c *Compiler) DeleteFunc(name string) bool {
	c.mustLive()

	f, ok := c.module.Func(name)
	if ok {
		f.Delete()
	}

	return ok
}

func (c *Compiler) AddGlobal(name string, t tp.Type) ir.GlobalValue {
	c.mustLive()

	return c.module.AddGlobal(name, t)
}

func (c *Compiler) AddGlobalInAddrSpace(name string, t tp.Type, sp ir.AddressSpace) ir.GlobalValue {
	c.mustLive()

	return c.module.AddGlobalInAddrSpace(name, t, sp)
}

func (c *Compiler) AddGlobalConstant(name string, val ir.Operand) ir.GlobalValue {
	c.mustLive()

	return c.module.AddGlobalConstant(name, val)
}

func (c *Compiler) Global(name string) (ir.GlobalValue, bool) {
	c.mustLive()

	return c.module.Global(name)
}

func (c *Compiler) Globals() iter.Seq[ir.GlobalValue] {
	c.mustLive()

	return c.module.Globals()
}

// FuncPrototype adds a function to the base module.
// With a nil b the function stays a declaration, ready for MapGlobal.
// Otherwise an entry block is appended and b is positioned at its end.
func (c *Compiler) FuncPrototype(name string, ret tp.Type, params []tp.Type, b *ir.Builder) ir.Function {
	c.mustLive()

	f := c.module.AddFunc(name, tp.FuncOf(ret, params...))

	if b != nil {
		b.PositionAtEnd(f.Append("entry"))
	}

	return f
}

func (c *Compiler) mustLive() {
	if c.closed {
		panic(errors.New("use of closed compiler at %v", loc.Caller(2)))
	}
}

func (f Callable) Name() string { return f.name }

func (f Callable) Pointer() unsafe.Pointer { return f.ptr }

// Call calls the function with integer or pointer arguments and an integer or pointer result.
func (f Callable) Call(args ...uint64) uint64 {
	return native.Call(f.ptr, args...)
}

// CallFloat calls the function with double arguments and a double result.
func (f Callable) CallFloat(args ...float64) float64 {
	return native.CallFloat(f.ptr, args...)
}

func (c *Compiler) TlogAppend(b []byte) []byte {
	return c.module.TlogAppend(b)
}
