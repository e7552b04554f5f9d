package ir

import (
	"context"

	"tinygo.org/x/go-llvm"
	"tlog.app/go/tlog"

	"github.com/slowlang/jit/compiler/native"
)

// LoadBitcode parses a serialized module into c. The returned module is owned by the caller.
// data is not retained.
func (c *Context) LoadBitcode(ctx context.Context, name string, data []byte) (m *Module, err error) {
	c.mustLive(2)

	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "ir: load bitcode", "name", name, "size", len(data))
	defer tr.Finish("err", &err)

	nm, msg, ok := native.ParseBitcode(c.c, name, data)
	if !ok {
		return nil, &BitcodeParseError{Name: name, Message: msg}
	}

	return c.adopt(nm, name), nil
}

// Bitcode serializes the module.
func (m *Module) Bitcode() []byte {
	m.mustLive(2)

	buf := llvm.WriteBitcodeToMemoryBuffer(m.m)
	defer buf.Dispose()

	b := buf.Bytes()

	return append([]byte(nil), b...)
}
