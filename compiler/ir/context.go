package ir

import (
	"tinygo.org/x/go-llvm"
	"tlog.app/go/tlog"

	"github.com/slowlang/jit/compiler/tp"
)

type (
	// Context is the root lifetime scope of every type, value and module created in it.
	// It is disposed exactly once, after every module it scopes.
	Context struct {
		c     llvm.Context
		types *tp.Table

		modules  []*Module
		disposed bool
	}
)

func NewContext() *Context {
	c := llvm.NewContext()

	return &Context{
		c:     c,
		types: tp.NewTable(c),
	}
}

func (c *Context) Native() llvm.Context {
	c.mustLive(2)

	return c.c
}

func (c *Context) Types() *tp.Table {
	c.mustLive(2)

	return c.types
}

func (c *Context) Type(s tp.Scalar) tp.Type {
	c.mustLive(2)

	return c.types.Get(s)
}

// NewModule creates an empty module owned by the caller.
func (c *Context) NewModule(name string) *Module {
	c.mustLive(2)

	return c.adopt(c.c.NewModule(name), name)
}

// Adopt takes ownership of a module built elsewhere in this context.
func (c *Context) Adopt(m llvm.Module) *Module {
	c.mustLive(2)

	if m.Context().C != c.c.C {
		violation(1, "module belongs to another context")
	}

	return c.adopt(m, "")
}

func (c *Context) adopt(m llvm.Module, name string) *Module {
	x := &Module{
		ctx:  c,
		m:    m,
		name: name,
		id:   len(c.modules),
	}

	c.modules = append(c.modules, x)

	return x
}

// ModuleOf finds the live module wrapping a native module handle.
func (c *Context) ModuleOf(m llvm.Module) (*Module, bool) {
	for _, x := range c.modules {
		if x.state != stateDisposed && x.m.C == m.C {
			return x, true
		}
	}

	return nil, false
}

// NewBuilder returns an unpositioned builder. The caller disposes it.
func (c *Context) NewBuilder() *Builder {
	c.mustLive(2)

	return &Builder{
		ctx: c,
		b:   c.c.NewBuilder(),
	}
}

// Dispose releases every module still owned by the caller, then the context itself.
// Modules forgotten into an engine must be released by the engine before.
func (c *Context) Dispose() {
	if c.disposed {
		return
	}

	for _, m := range c.modules {
		switch m.state {
		case stateOwned:
			m.Dispose()
		case stateEngine:
			violation(1, "context disposed while module %q is still owned by an engine", m.Name())
		}
	}

	tlog.V("context").Printw("dispose context", "modules", len(c.modules))

	c.modules = nil
	c.disposed = true
	c.c.Dispose()
}

func (c *Context) IsDisposed() bool { return c.disposed }

func (c *Context) mustLive(depth int) {
	if c.disposed {
		violation(depth, "use of disposed context")
	}
}
