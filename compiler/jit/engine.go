package jit

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"tinygo.org/x/go-llvm"
	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/jit/compiler/ir"
	"github.com/slowlang/jit/compiler/native"
	"github.com/slowlang/jit/compiler/set"
)

type (
	// Engine is an MCJIT execution engine.
	// It owns every module added to it until the module is removed or the engine closed.
	Engine struct {
		mu sync.Mutex

		ee  llvm.ExecutionEngine
		ctx *ir.Context

		// modules are present in the engine, indexed by ir.Module.ID.
		present set.Bitmap
		modules map[int]*ir.Module

		closed bool
	}

	// EngineError is returned when the backend refuses to create an engine
	// or to give a module back.
	EngineError struct {
		Op      string
		Module  string
		Message string
	}
)

// NewEngine creates an engine with base as its first module.
// base is owned by the engine afterwards. It is disposed if creation fails.
func NewEngine(ctx context.Context, base *ir.Module, opts native.EngineOptions) (e *Engine, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "jit: new engine", "module", base, "opt_level", opts.OptLevel)
	defer tr.Finish("err", &err)

	if opts.OptLevel < 0 || opts.OptLevel > 3 {
		base.Dispose()

		return nil, &EngineError{Op: "create", Module: base.Name(), Message: fmt.Sprintf("opt level %d out of range 0..3", opts.OptLevel)}
	}

	err = native.Init()
	if err != nil {
		base.Dispose()

		return nil, errors.Wrap(err, "init backend")
	}

	ee, msg, ok := native.CreateEngine(base.Forget(), opts)
	if !ok {
		base.Released()

		return nil, &EngineError{Op: "create", Module: base.Name(), Message: msg}
	}

	e = &Engine{
		ee:      ee,
		ctx:     base.Context(),
		modules: map[int]*ir.Module{},
	}

	e.insert(base)

	return e, nil
}

func (e *Engine) Native() llvm.ExecutionEngine { return e.ee }

// AddModule hands m over to the engine. m is compiled lazily on first lookup.
func (e *Engine) AddModule(m *ir.Module) {
	defer e.mu.Unlock()
	e.mu.Lock()

	e.mustLive()

	if m.Context() != e.ctx {
		panic(errors.New("module %q is from another context at %v", m.Name(), loc.Caller(1)))
	}

	e.ee.AddModule(m.Forget())
	e.insert(m)

	tlog.V("engine").Printw("add module", "module", m, "present", &e.present)
}

// RemoveModule takes m back from the engine. The caller owns it again on success.
// Globals of a removed module no longer resolve.
func (e *Engine) RemoveModule(m *ir.Module) error {
	defer e.mu.Unlock()
	e.mu.Lock()

	e.mustLive()

	if !e.present.IsSet(m.ID()) || e.modules[m.ID()] != m {
		panic(errors.New("module %q is not in the engine at %v", m.Name(), loc.Caller(1)))
	}

	ok, msg := native.RemoveModule(e.ee, m.Native())
	if !ok {
		return &EngineError{Op: "remove", Module: m.Name(), Message: msg}
	}

	e.present.Clear(m.ID())
	delete(e.modules, m.ID())

	m.Reclaim()

	tlog.V("engine").Printw("remove module", "module", m, "present", &e.present)

	return nil
}

// Has reports whether m is currently in the engine.
func (e *Engine) Has(m *ir.Module) bool {
	defer e.mu.Unlock()
	e.mu.Lock()

	return !e.closed && e.present.IsSet(m.ID()) && e.modules[m.ID()] == m
}

// Modules returns the modules present in the engine in the order they were created.
func (e *Engine) Modules() []*ir.Module {
	defer e.mu.Unlock()
	e.mu.Lock()

	r := make([]*ir.Module, 0, e.present.Size())

	for id := range e.present.All() {
		r = append(r, e.modules[id])
	}

	return r
}

// PointerToGlobal returns the address of a function or global variable.
// It compiles the owning module if needed.
// It returns nil if the owning module is not in the engine or the symbol is unresolved.
func (e *Engine) PointerToGlobal(g ir.GlobalValue) unsafe.Pointer {
	defer e.mu.Unlock()
	e.mu.Lock()

	e.mustLive()

	m, ok := e.ctx.ModuleOf(g.Module())
	if !ok || !e.present.IsSet(m.ID()) {
		return nil
	}

	addr := native.GlobalValueAddress(e.ee, g.Name())

	if tlog.If("engine_lookup") {
		tlog.Printw("lookup", "name", g.Name(), "module", m, "addr", tlog.FormatNext("%#x"), addr)
	}

	return *(*unsafe.Pointer)(unsafe.Pointer(&addr))
}

// MapGlobal binds a declared global to a host address.
// Code compiled afterwards refers to addr for it.
func (e *Engine) MapGlobal(g ir.GlobalValue, addr unsafe.Pointer) {
	defer e.mu.Unlock()
	e.mu.Lock()

	e.mustLive()

	if addr == nil {
		panic(errors.New("map %q to nil at %v", g.Name(), loc.Caller(1)))
	}

	e.ee.AddGlobalMapping(g.Native(), addr)
}

// Close disposes the engine together with every module in it.
func (e *Engine) Close() {
	defer e.mu.Unlock()
	e.mu.Lock()

	if e.closed {
		return
	}

	e.closed = true
	e.ee.Dispose()

	for id := range e.present.All() {
		e.modules[id].Released()
	}

	tlog.V("engine").Printw("engine closed", "modules", e.present.Size())

	e.present.Reset()
	clear(e.modules)
}

func (e *Engine) insert(m *ir.Module) {
	e.present.Set(m.ID())
	e.modules[m.ID()] = m
}

func (e *Engine) mustLive() {
	if e.closed {
		panic(errors.New("use of closed engine at %v", loc.Caller(2)))
	}
}

func (e *EngineError) Error() string {
	return "engine " + e.Op + " " + e.Module + ": " + e.Message
}
