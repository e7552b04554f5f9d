package ir

import (
	"context"
	"fmt"
	"iter"

	"tinygo.org/x/go-llvm"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/jit/compiler/native"
	"github.com/slowlang/jit/compiler/tp"
)

type (
	Module struct {
		ctx  *Context
		m    llvm.Module
		name string
		id   int

		state moduleState
	}

	moduleState int

	AddressSpace int
)

const (
	stateOwned moduleState = iota
	stateEngine
	stateDisposed
)

const (
	AddrGeneric AddressSpace = 0
	AddrGlobal  AddressSpace = 1
	AddrShared  AddressSpace = 3
	AddrConst   AddressSpace = 4
	AddrLocal   AddressSpace = 5
)

var stateNames = []string{
	stateOwned:    "owned",
	stateEngine:   "engine",
	stateDisposed: "disposed",
}

func (m *Module) Name() string { return m.name }

// ID is the module index in its context. It is never reused.
func (m *Module) ID() int { return m.id }

func (m *Module) Context() *Context { return m.ctx }

func (m *Module) Native() llvm.Module {
	m.mustLive(2)

	return m.m
}

// Forget relinquishes disposal responsibility; the engine the module is handed to owns it now.
func (m *Module) Forget() llvm.Module {
	m.mustOwn(2)

	m.state = stateEngine

	return m.m
}

// Reclaim returns disposal responsibility to the caller after the engine let the module go.
func (m *Module) Reclaim() {
	if m.state != stateEngine {
		violation(1, "reclaim of module %q in state %v", m.name, stateNames[m.state])
	}

	m.state = stateOwned
}

// Released marks a module as disposed by its engine.
func (m *Module) Released() {
	if m.state != stateEngine {
		violation(1, "release of module %q in state %v", m.name, stateNames[m.state])
	}

	m.state = stateDisposed
}

func (m *Module) IsDisposed() bool    { return m.state == stateDisposed }
func (m *Module) IsEngineOwned() bool { return m.state == stateEngine }

// Dispose releases the module if the caller still owns it.
// It does nothing for modules forgotten into an engine or already disposed.
func (m *Module) Dispose() {
	if m.state != stateOwned {
		return
	}

	m.state = stateDisposed
	m.m.Dispose()
}

// Target returns the target triple. The string is a copy.
func (m *Module) Target() string {
	m.mustLive(2)

	return native.Target(m.m)
}

// DataLayout returns the data layout description. The string is a copy.
func (m *Module) DataLayout() string {
	m.mustLive(2)

	return native.DataLayout(m.m)
}

func (m *Module) SetTarget(triple string) {
	m.mustLive(2)

	m.m.SetTarget(triple)
}

func (m *Module) SetDataLayout(layout string) {
	m.mustLive(2)

	m.m.SetDataLayout(layout)
}

// Link links src into m and leaves src intact and owned by its caller.
func (m *Module) Link(ctx context.Context, src *Module) (err error) {
	m.mustLive(2)
	src.mustLive(2)

	if src == m {
		violation(1, "module %q linked into itself", m.name)
	}

	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "ir: link preserve", "dst", m.name, "src", src.name)
	defer tr.Finish("err", &err)

	cp := native.CloneModule(src.m)

	if ok, msg := native.LinkModules(m.m, cp); !ok {
		return &LinkError{Dst: m.name, Src: src.name, Message: msg}
	}

	return nil
}

// LinkDestroy links src into m consuming src. src is unusable afterwards, even on error.
func (m *Module) LinkDestroy(ctx context.Context, src *Module) (err error) {
	m.mustLive(2)
	src.mustOwn(2)

	if src == m {
		violation(1, "module %q linked into itself", m.name)
	}

	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "ir: link destroy", "dst", m.name, "src", src.name)
	defer tr.Finish("err", &err)

	src.state = stateDisposed

	if ok, msg := native.LinkModules(m.m, src.m); !ok {
		return &LinkError{Dst: m.name, Src: src.name, Message: msg}
	}

	return nil
}

// Optimize runs the default pass pipeline selected by the levels.
// sizeLevel 1 and 2 select the size pipelines Os and Oz and take precedence over optLevel.
func (m *Module) Optimize(ctx context.Context, optLevel, sizeLevel int) (err error) {
	m.mustLive(2)

	pipeline, err := Pipeline(optLevel, sizeLevel)
	if err != nil {
		return err
	}

	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "ir: optimize", "module", m.name, "pipeline", pipeline)
	defer tr.Finish("err", &err)

	opts := llvm.NewPassBuilderOptions()
	defer opts.Dispose()

	err = m.m.RunPasses(pipeline, llvm.TargetMachine{}, opts)
	if err != nil {
		return errors.Wrap(err, "run passes %v", pipeline)
	}

	return nil
}

func Pipeline(optLevel, sizeLevel int) (string, error) {
	switch {
	case sizeLevel == 1:
		return "default<Os>", nil
	case sizeLevel == 2:
		return "default<Oz>", nil
	case sizeLevel != 0:
		return "", errors.New("bad size level: %d", sizeLevel)
	case optLevel < 0 || optLevel > 3:
		return "", errors.New("bad opt level: %d", optLevel)
	}

	return fmt.Sprintf("default<O%d>", optLevel), nil
}

// Verify checks the whole module. It does not modify it.
func (m *Module) Verify() error {
	m.mustLive(2)

	ok, msg := native.VerifyModule(m.m)
	if ok {
		return nil
	}

	return &VerifyError{Target: "module " + m.name, Message: msg}
}

// Dump writes the module text to stderr.
func (m *Module) Dump() {
	m.mustLive(2)

	m.m.Dump()
}

func (m *Module) String() string {
	if m.state == stateDisposed {
		return fmt.Sprintf("module %q (disposed)", m.name)
	}

	return native.ModuleString(m.m)
}

// Type returns the named struct type.
func (m *Module) Type(name string) (tp.Type, bool) {
	m.mustLive(2)

	t := m.m.GetTypeByName(name)
	if t.C == nil {
		return tp.Type{}, false
	}

	return tp.FromNative(t), true
}

func (m *Module) AddFunc(name string, sig tp.Type) Function {
	m.mustLive(2)

	if sig.Kind() != tp.KindFunc {
		violation(1, "function %q signature is not a function type: %v", name, sig)
	}

	f := llvm.AddFunction(m.m, name, sig.Native())

	return Function{GlobalValue: GlobalValue{Value: Value{v: f}}}
}

func (m *Module) Func(name string) (Function, bool) {
	m.mustLive(2)

	f := m.m.NamedFunction(name)
	if f.IsNil() {
		return Function{}, false
	}

	return Function{GlobalValue: GlobalValue{Value: Value{v: f}}}, true
}

// AddGlobal adds a global variable without an initializer.
// It is external until an initializer is set.
func (m *Module) AddGlobal(name string, t tp.Type) GlobalValue {
	m.mustLive(2)

	return GlobalValue{Value: Value{v: llvm.AddGlobal(m.m, t.Native(), name)}}
}

func (m *Module) AddGlobalInAddrSpace(name string, t tp.Type, sp AddressSpace) GlobalValue {
	m.mustLive(2)

	return GlobalValue{Value: Value{v: llvm.AddGlobalInAddressSpace(m.m, t.Native(), name, int(sp))}}
}

// AddGlobalConstant adds a global of the value type initialized with val.
func (m *Module) AddGlobalConstant(name string, val Operand) GlobalValue {
	m.mustLive(2)

	v := val.Native()

	g := llvm.AddGlobal(m.m, v.Type(), name)
	g.SetInitializer(v)
	g.SetGlobalConstant(true)

	return GlobalValue{Value: Value{v: g}}
}

func (m *Module) Global(name string) (GlobalValue, bool) {
	m.mustLive(2)

	g := m.m.NamedGlobal(name)
	if g.IsNil() {
		return GlobalValue{}, false
	}

	return GlobalValue{Value: Value{v: g}}, true
}

// Globals yields global variables in definition order.
func (m *Module) Globals() iter.Seq[GlobalValue] {
	m.mustLive(2)

	return func(yield func(GlobalValue) bool) {
		for g := m.m.FirstGlobal(); !g.IsNil(); g = llvm.NextGlobal(g) {
			if !yield(GlobalValue{Value: Value{v: g}}) {
				return
			}
		}
	}
}

// Funcs yields functions, declarations included, in definition order.
func (m *Module) Funcs() iter.Seq[Function] {
	m.mustLive(2)

	return func(yield func(Function) bool) {
		for f := m.m.FirstFunction(); !f.IsNil(); f = llvm.NextFunction(f) {
			if !yield(Function{GlobalValue: GlobalValue{Value: Value{v: f}}}) {
				return
			}
		}
	}
}

func (m *Module) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyString(b, "name", m.name)
	b = e.AppendKeyString(b, "state", stateNames[m.state])

	return b
}

func (m *Module) mustLive(depth int) {
	if m.state == stateDisposed {
		violation(depth, "use of disposed module %q", m.name)
	}
}

func (m *Module) mustOwn(depth int) {
	if m.state != stateOwned {
		violation(depth, "module %q is %v, not owned by the caller", m.name, stateNames[m.state])
	}
}
