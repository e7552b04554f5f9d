package ir

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/jit/compiler/tp"
)

// retConst defines name() returning x in m.
func retConst(t *testing.T, m *Module, name string, x uint64) Function {
	t.Helper()

	c := m.Context()
	i64 := c.Types().I64()

	b := c.NewBuilder()
	defer b.Dispose()

	f := m.AddFunc(name, tp.FuncOf(i64))
	b.PositionAtEnd(f.Append("entry"))
	b.Ret(ConstInt(i64, x, false))

	return f
}

func TestModuleOwnership(t *testing.T) {
	c := NewContext()
	defer c.Dispose()

	m := c.NewModule("owned")

	assert.Equal(t, "owned", m.Name())
	assert.Same(t, c, m.Context())
	assert.False(t, m.IsEngineOwned())

	m.Forget()
	assert.True(t, m.IsEngineOwned())

	m.Dispose()
	assert.False(t, m.IsDisposed(), "dispose of engine owned module is a no-op")

	assert.Panics(t, func() { m.Forget() }, "forget twice")

	m.Reclaim()
	assert.False(t, m.IsEngineOwned())

	m.Dispose()
	assert.True(t, m.IsDisposed())

	m.Dispose()

	assert.Panics(t, func() { m.Verify() })
	assert.Panics(t, func() { m.AddGlobal("x", c.Types().I64()) })
	assert.Panics(t, func() { m.Reclaim() })

	assert.Contains(t, m.String(), "disposed")
}

func TestContextDisposeWithEngineModule(t *testing.T) {
	c := NewContext()

	m := c.NewModule("eng")
	m.Forget()

	assert.Panics(t, func() { c.Dispose() })

	m.Reclaim()
	c.Dispose()

	assert.True(t, c.IsDisposed())
	assert.True(t, m.IsDisposed())

	c.Dispose()

	assert.Panics(t, func() { c.NewModule("late") })
	assert.Panics(t, func() { c.NewBuilder() })
}

func TestModuleLookup(t *testing.T) {
	c := NewContext()
	defer c.Dispose()

	ty := c.Types()
	m := c.NewModule("lookup")

	retConst(t, m, "answer", 42)
	m.AddFunc("decl", tp.FuncOf(ty.I64(), ty.I64()))

	_, ok := m.Func("missing")
	assert.False(t, ok)

	f, ok := m.Func("answer")
	require.True(t, ok)
	assert.Equal(t, "answer", f.Name())
	assert.False(t, f.IsDeclaration())
	assert.Equal(t, 0, f.NumArgs())
	assert.True(t, f.Signature().Return().Equals(ty.I64()))

	d, ok := m.Func("decl")
	require.True(t, ok)
	assert.True(t, d.IsDeclaration())
	assert.Len(t, d.Args(), 1)

	g := m.AddGlobal("g0", ty.I64())
	g.SetInitializer(ConstInt(ty.I64(), 7, false))

	m.AddGlobalInAddrSpace("g1", ty.I32(), AddrGlobal)
	m.AddGlobalConstant("g2", c.Const(3.5))

	_, ok = m.Global("missing")
	assert.False(t, ok)

	g2, ok := m.Global("g2")
	require.True(t, ok)
	assert.True(t, g2.ValueType().Equals(ty.F64()))
	assert.False(t, g2.IsFunction())

	var names []string
	for g := range m.Globals() {
		names = append(names, g.Name())
	}

	assert.Equal(t, []string{"g0", "g1", "g2"}, names)

	names = names[:0]
	for f := range m.Funcs() {
		names = append(names, f.Name())
	}

	assert.Equal(t, []string{"answer", "decl"}, names)

	require.NoError(t, m.Verify())

	f.Delete()

	_, ok = m.Func("answer")
	assert.False(t, ok)
}

func TestModuleTargetStrings(t *testing.T) {
	c := NewContext()
	defer c.Dispose()

	m := c.NewModule("target")

	m.SetTarget("x86_64-unknown-linux-gnu")
	m.SetDataLayout("e-m:e-i64:64-n8:16:32:64-S128")

	assert.Equal(t, "x86_64-unknown-linux-gnu", m.Target())
	assert.Equal(t, "e-m:e-i64:64-n8:16:32:64-S128", m.DataLayout())
}

func TestModuleVerifyMissingTerminator(t *testing.T) {
	c := NewContext()
	defer c.Dispose()

	m := c.NewModule("broken")
	f := m.AddFunc("f", tp.FuncOf(c.Types().Void()))
	bb := f.Append("entry")

	_, ok := bb.Terminator()
	assert.False(t, ok)

	var verr *VerifyError

	require.ErrorAs(t, m.Verify(), &verr)
	assert.Contains(t, verr.Target, "broken")
	assert.NotEmpty(t, verr.Message)

	require.ErrorAs(t, f.Verify(), &verr)
	assert.Contains(t, verr.Target, `"f"`)
}

func TestModuleVerifyReadOnly(t *testing.T) {
	c := NewContext()
	defer c.Dispose()

	m := c.NewModule("broken")
	i64 := c.Types().I64()

	b := c.NewBuilder()
	defer b.Dispose()

	f := m.AddFunc("f", tp.FuncOf(i64, i64))
	b.PositionAtEnd(f.Append("entry"))
	b.Add(f.Arg(0), ConstInt(i64, 1, false))

	g := m.AddGlobal("g", i64)
	g.SetInitializer(ConstInt(i64, 3, false))

	before := m.String()

	require.Error(t, m.Verify())
	require.Error(t, f.Verify())

	assert.Equal(t, before, m.String())

	b.Ret(ConstInt(i64, 0, false))
	require.NoError(t, m.Verify())
}

func TestLink(t *testing.T) {
	ctx := context.Background()

	c := NewContext()
	defer c.Dispose()

	dst := c.NewModule("dst")
	src := c.NewModule("src")

	retConst(t, dst, "a", 1)
	retConst(t, src, "b", 2)

	err := dst.Link(ctx, src)
	require.NoError(t, err)

	_, ok := dst.Func("b")
	assert.True(t, ok)

	_, ok = src.Func("b")
	assert.True(t, ok, "source is preserved")

	other := c.NewModule("other")
	retConst(t, other, "c", 3)

	err = dst.LinkDestroy(ctx, other)
	require.NoError(t, err)

	assert.True(t, other.IsDisposed())
	assert.Panics(t, func() { other.Func("c") })

	_, ok = dst.Func("c")
	assert.True(t, ok)

	assert.Panics(t, func() { dst.Link(ctx, dst) })

	require.NoError(t, dst.Verify())
}

func TestLinkConflict(t *testing.T) {
	ctx := context.Background()

	c := NewContext()
	defer c.Dispose()

	dst := c.NewModule("dst")
	src := c.NewModule("src")

	retConst(t, dst, "same", 1)
	retConst(t, src, "same", 2)

	var lerr *LinkError

	err := dst.Link(ctx, src)
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "dst", lerr.Dst)
	assert.Equal(t, "src", lerr.Src)

	_, ok := src.Func("same")
	assert.True(t, ok)
}

func TestBitcodeRoundTrip(t *testing.T) {
	ctx := context.Background()

	c := NewContext()
	defer c.Dispose()

	m := c.NewModule("orig")
	retConst(t, m, "answer", 42)
	m.AddGlobalConstant("pi", c.Const(3.14))

	data := m.Bitcode()
	require.NotEmpty(t, data)

	loaded, err := c.LoadBitcode(ctx, "copy", data)
	require.NoError(t, err)

	assert.Equal(t, "copy", loaded.Name())

	_, ok := loaded.Func("answer")
	assert.True(t, ok)

	_, ok = loaded.Global("pi")
	assert.True(t, ok)

	require.NoError(t, loaded.Verify())

	loaded.Dispose()
}

func TestBitcodeMalformed(t *testing.T) {
	ctx := context.Background()

	c := NewContext()
	defer c.Dispose()

	for _, data := range [][]byte{nil, []byte("not bitcode")} {
		m, err := c.LoadBitcode(ctx, "bad", data)

		var perr *BitcodeParseError

		require.ErrorAs(t, err, &perr, "%q", data)
		assert.Nil(t, m)
		assert.Equal(t, "bad", perr.Name)
		assert.NotEmpty(t, perr.Message)
	}
}

func TestOptimize(t *testing.T) {
	ctx := context.Background()

	c := NewContext()
	defer c.Dispose()

	m := c.NewModule("opt")
	retConst(t, m, "answer", 42)

	for _, lv := range [][2]int{{0, 0}, {2, 0}, {3, 0}, {2, 1}, {2, 2}} {
		require.NoError(t, m.Optimize(ctx, lv[0], lv[1]), "%v", lv)
	}

	require.NoError(t, m.Verify())

	assert.Error(t, m.Optimize(ctx, 4, 0))
	assert.Error(t, m.Optimize(ctx, 0, 3))
}

func TestPipeline(t *testing.T) {
	for _, tc := range []struct {
		opt, size int
		exp       string
	}{
		{0, 0, "default<O0>"},
		{1, 0, "default<O1>"},
		{3, 0, "default<O3>"},
		{2, 1, "default<Os>"},
		{0, 2, "default<Oz>"},
	} {
		p, err := Pipeline(tc.opt, tc.size)
		require.NoError(t, err)
		assert.Equal(t, tc.exp, p)
	}

	_, err := Pipeline(-1, 0)
	assert.Error(t, err)
}

func TestConst(t *testing.T) {
	c := NewContext()
	defer c.Dispose()

	ty := c.Types()

	assert.True(t, c.Const(int64(-1)).Type().Equals(ty.I64()))
	assert.Equal(t, int64(-1), c.Const(int64(-1)).Int())
	assert.Equal(t, uint64(1), c.Const(true).Uint())
	assert.True(t, c.Const(float32(1)).Type().Equals(ty.F32()))
	assert.True(t, c.Const(uint8(200)).Type().Equals(c.Type(tp.ScalarU8)))
	assert.Equal(t, uint64(200), c.Const(uint8(200)).Uint())

	assert.Panics(t, func() { c.Const("string") })

	assert.True(t, ConstNull(ty.Ptr()).IsConstant())
}

func TestAdopt(t *testing.T) {
	c := NewContext()
	defer c.Dispose()

	other := NewContext()
	defer other.Dispose()

	m := c.Adopt(c.Native().NewModule("raw"))
	assert.False(t, m.IsDisposed())

	raw := other.Native().NewModule("foreign")

	assert.Panics(t, func() { c.Adopt(raw) })

	other.Adopt(raw)

	assert.True(t, slices.ContainsFunc(c.modules, func(x *Module) bool { return x == m }))
}
