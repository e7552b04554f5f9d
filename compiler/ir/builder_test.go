package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/go-llvm"

	"github.com/slowlang/jit/compiler/tp"
)

type fixture struct {
	c  *Context
	ty *tp.Table
	m  *Module
	b  *Builder
	f  Function
}

func newFixture(t *testing.T, ret tp.Scalar, params ...tp.Scalar) *fixture {
	t.Helper()

	c := NewContext()
	m := c.NewModule("test")
	b := c.NewBuilder()

	ps := make([]tp.Type, len(params))
	for i, s := range params {
		ps[i] = c.Type(s)
	}

	f := m.AddFunc("f", tp.FuncOf(c.Type(ret), ps...))
	b.PositionAtEnd(f.Append("entry"))

	t.Cleanup(func() {
		b.Dispose()
		c.Dispose()
	})

	return &fixture{c: c, ty: c.Types(), m: m, b: b, f: f}
}

func TestBuilderArith(t *testing.T) {
	x := newFixture(t, tp.ScalarI64, tp.ScalarI64, tp.ScalarI64)
	b := x.b

	a0, a1 := x.f.Arg(0), x.f.Arg(1)

	s := b.Add(a0, a1)
	s = b.Sub(s, a1)
	s = b.Mul(s, a0)
	s = b.Div(s, a1)
	s = b.Rem(s, a1)
	s = b.UDiv(s, a1)
	s = b.URem(s, a1)
	s = b.Shl(s, a1)
	s = b.AShr(s, a1)
	s = b.LShr(s, a1)
	s = b.And(s, a1)
	s = b.Or(s, a1)
	s = b.Xor(s, a1)
	s = b.Neg(s)
	s = b.Not(s)

	b.Ret(s)

	require.NoError(t, x.f.Verify())
	require.NoError(t, x.m.Verify())
}

func TestBuilderFloatDispatch(t *testing.T) {
	c := NewContext()
	defer c.Dispose()

	f64 := c.Types().F64()

	m := c.NewModule("float")
	f := m.AddFunc("f", tp.FuncOf(f64, f64, f64))

	b := c.NewBuilder()
	defer b.Dispose()

	b.PositionAtEnd(f.Append("entry"))

	s := b.Add(f.Arg(0), f.Arg(1))
	s = b.Mul(s, f.Arg(1))
	s = b.Div(s, f.Arg(0))
	s = b.Neg(s)

	cmp := b.Cmp(s, f.Arg(0), Lt)
	assert.True(t, cmp.Type().Equals(c.Types().Bool()))

	b.Ret(b.Select(cmp, s, f.Arg(0)))

	require.NoError(t, f.Verify())
	assert.Contains(t, f.String(), "fadd double")
	assert.Contains(t, f.String(), "fcmp olt double")
}

func TestBuilderCmpPredicates(t *testing.T) {
	x := newFixture(t, tp.ScalarBool, tp.ScalarI64, tp.ScalarI64)
	b := x.b

	for _, p := range []Predicate{Eq, Ne, Lt, Le, Gt, Ge} {
		b.Cmp(x.f.Arg(0), x.f.Arg(1), p)
		b.UCmp(x.f.Arg(0), x.f.Arg(1), p)
	}

	b.Ret(b.Cmp(x.f.Arg(0), x.f.Arg(1), Eq))

	require.NoError(t, x.f.Verify())

	text := x.f.String()

	for _, pred := range []string{"eq", "ne", "slt", "sle", "sgt", "sge", "ult", "ule", "ugt", "uge"} {
		assert.Contains(t, text, "icmp "+pred+" i64", pred)
	}
}

func TestBuilderContractViolations(t *testing.T) {
	x := newFixture(t, tp.ScalarI64, tp.ScalarI64, tp.ScalarI32)
	b := x.b

	assert.Panics(t, func() { b.Add(x.f.Arg(0), x.f.Arg(1)) }, "operand type mismatch")
	assert.Panics(t, func() { b.Cmp(x.f.Arg(0), x.f.Arg(1), Lt) }, "cmp type mismatch")
	assert.Panics(t, func() { x.f.Arg(2) }, "arg out of range")
	assert.Panics(t, func() { x.f.Arg(-1) }, "negative arg")
	assert.Panics(t, func() { b.Load(x.f.Arg(0)) }, "unknown element type")
	assert.Panics(t, func() { b.Cast(castCount, x.f.Arg(0), x.ty.I32()) }, "unknown cast")

	st := tp.StructOf(x.c.Native(), false, x.ty.I64())
	assert.Panics(t, func() { b.Add(Undef(st), Undef(st)) }, "non-numeric add")
	assert.Panics(t, func() { b.Cmp(Undef(st), Undef(st), Eq) }, "non-numeric cmp")

	other := x.c.NewBuilder()
	defer other.Dispose()

	assert.Panics(t, func() { other.RetVoid() }, "unpositioned builder")

	other.PositionAtEnd(x.f.Append("other"))
	other.ClearPosition()

	assert.Panics(t, func() { other.Add(x.f.Arg(0), x.f.Arg(0)) }, "cleared position")

	_, ok := other.InsertBlock()
	assert.False(t, ok)
}

func TestBuilderDisposed(t *testing.T) {
	c := NewContext()
	defer c.Dispose()

	b := c.NewBuilder()
	b.Dispose()
	b.Dispose()

	assert.Panics(t, func() { b.PositionAtEnd(Block{}) })
}

func TestSwitch(t *testing.T) {
	x := newFixture(t, tp.ScalarI64, tp.ScalarI64)
	b := x.b

	one, two, def := x.f.Append("one"), x.f.Append("two"), x.f.Append("def")

	i64 := x.ty.I64()

	assert.Panics(t, func() {
		b.Switch(x.f.Arg(0), def, Case{On: ConstInt(i64, 1, false), To: one}, Case{On: ConstInt(i64, 1, false), To: two})
	}, "duplicate case")

	entry, ok := x.f.Entry()
	require.True(t, ok)

	_, ok = entry.Terminator()
	assert.False(t, ok, "failed switch must not emit anything")

	b.Switch(x.f.Arg(0), def, Case{On: ConstInt(i64, 1, false), To: one}, Case{On: ConstInt(i64, 2, false), To: two})

	_, ok = entry.Terminator()
	assert.True(t, ok)

	for i, bb := range []Block{one, two, def} {
		b.PositionAtEnd(bb)
		b.Ret(ConstInt(i64, uint64(i), false))
	}

	require.NoError(t, x.f.Verify())
}

func TestSwitchWideCases(t *testing.T) {
	x := newFixture(t, tp.ScalarI64, tp.ScalarI64)
	b := x.b

	i128 := tp.IntN(x.c.Native(), 128)

	v := b.Cast(ZExt, x.f.Arg(0), i128)

	low := Constant{FromNative(llvm.ConstInt(i128.Native(), 1, false))}
	// 1<<64 + 1 shares its low 64 bits with low
	high := Constant{FromNative(llvm.ConstIntFromString(i128.Native(), "18446744073709551617", 10))}

	one, two, def := x.f.Append("one"), x.f.Append("two"), x.f.Append("def")

	assert.NotPanics(t, func() {
		b.Switch(v, def, Case{On: low, To: one}, Case{On: high, To: two})
	})

	for i, bb := range []Block{one, two, def} {
		b.PositionAtEnd(bb)
		b.Ret(ConstInt(x.ty.I64(), uint64(i), false))
	}

	require.NoError(t, x.f.Verify())
}

func TestAllocaCondBr(t *testing.T) {
	x := newFixture(t, tp.ScalarI64, tp.ScalarBool)
	b := x.b

	i64 := x.ty.I64()

	slot := b.Alloca(i64)

	then, els, done := x.f.Append("then"), x.f.Append("else"), x.f.Append("done")

	b.CondBr(x.f.Arg(0), then, els)

	b.PositionAtEnd(then)
	b.Store(ConstInt(i64, 8, false), slot)
	b.Br(done)

	b.PositionAtEnd(els)
	b.Store(ConstInt(i64, 16, false), slot)
	b.Br(done)

	b.PositionAtEnd(done)
	b.Ret(b.Load(slot))

	require.NoError(t, x.f.Verify())

	var names []string
	for bb := range x.f.Blocks() {
		names = append(names, bb.Name())
	}

	assert.Equal(t, []string{"entry", "then", "else", "done"}, names)
}

func TestPhi(t *testing.T) {
	x := newFixture(t, tp.ScalarI64, tp.ScalarBool)
	b := x.b

	i64 := x.ty.I64()

	entry, _ := x.f.Entry()
	then, done := x.f.Append("then"), x.f.Append("done")

	b.CondBr(x.f.Arg(0), then, done)

	b.PositionAtEnd(then)
	b.Br(done)

	b.PositionAtEnd(done)

	phi := b.Phi(i64, "r")
	phi.AddIncoming(ConstInt(i64, 1, false), entry)
	phi.AddIncoming(ConstInt(i64, 2, false), then)

	assert.Equal(t, 2, phi.IncomingCount())
	assert.Equal(t, "r", phi.Name())

	b.Ret(phi)

	require.NoError(t, x.f.Verify())
}

func TestStoreNonPointerFailsVerify(t *testing.T) {
	x := newFixture(t, tp.ScalarVoid, tp.ScalarI64)
	b := x.b

	b.Store(ConstInt(x.ty.I64(), 1, false), x.f.Arg(0))
	b.RetVoid()

	var verr *VerifyError

	err := x.f.Verify()
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Message)
}

func TestCasts(t *testing.T) {
	c := NewContext()
	defer c.Dispose()

	ty := c.Types()

	m := c.NewModule("casts")
	f := m.AddFunc("f", tp.FuncOf(ty.I64(), ty.I64(), ty.F64()))

	b := c.NewBuilder()
	defer b.Dispose()

	b.PositionAtEnd(f.Append("entry"))

	i, d := f.Arg(0), f.Arg(1)

	i32 := b.Cast(Trunc, i, ty.I32())
	z := b.Cast(ZExt, i32, ty.I64())
	s := b.Cast(SExt, i32, ty.I64())
	fl := b.Cast(FPTrunc, d, ty.F32())
	dd := b.Cast(FPExt, fl, ty.F64())
	u := b.Cast(FPToUI, dd, ty.I64())
	si := b.Cast(FPToSI, dd, ty.I64())
	uf := b.Cast(UIToFP, u, ty.F64())
	sf := b.Cast(SIToFP, si, ty.F64())
	p := b.Cast(IntToPtr, z, ty.Ptr())
	pi := b.Cast(PtrToInt, p, ty.I64())
	bits := b.BitCast(b.Add(uf, sf), ty.I64())

	r := b.Add(b.Add(s, pi), bits)
	b.Ret(r)

	require.NoError(t, f.Verify())

	text := f.String()
	assert.Contains(t, text, "fptosi double")
	assert.Contains(t, text, "fptoui double")

	assert.Equal(t, "fptosi", FPToSI.String())
	assert.Equal(t, "cast?", CastOp(100).String())
}

func TestTruncToWiderFailsVerify(t *testing.T) {
	x := newFixture(t, tp.ScalarI64, tp.ScalarI32)
	b := x.b

	b.Ret(b.Cast(Trunc, x.f.Arg(0), x.ty.I64()))

	var verr *VerifyError
	require.ErrorAs(t, x.f.Verify(), &verr)
}

func TestAggregates(t *testing.T) {
	x := newFixture(t, tp.ScalarI64, tp.ScalarI64, tp.ScalarI64)
	b := x.b

	i64 := x.ty.I64()
	st := tp.StructOf(x.c.Native(), false, i64, i64)

	agg := b.InsertValue(Undef(st), x.f.Arg(0), 0)
	agg = b.InsertValue(agg, x.f.Arg(1), 1)

	b.Ret(b.Sub(b.ExtractValue(agg, 1), b.ExtractValue(agg, 0)))

	require.NoError(t, x.f.Verify())
}

func TestMemory(t *testing.T) {
	x := newFixture(t, tp.ScalarI64, tp.ScalarI64)
	b := x.b

	i64 := x.ty.I64()
	arr := tp.ArrayOf(i64, 4)

	g := x.m.AddGlobal("table", arr)
	g.SetInitializer(ConstNull(arr))

	p := b.GEP(g, ConstInt(i64, 0, false), x.f.Arg(0))
	v := b.LoadType(i64, p)

	buf := b.ArrayAlloca(i64, ConstInt(i64, 4, false))
	q := b.GEPType(i64, buf, ConstInt(i64, 1, false))
	b.Store(v, q)

	h := b.Malloc(i64)
	b.Store(b.LoadType(i64, q), h)
	r := b.LoadType(i64, h)
	b.Free(h)

	hs := b.ArrayMalloc(i64, x.f.Arg(0))
	b.Free(hs)

	b.Ret(r)

	require.NoError(t, x.m.Verify())
}

func TestCall(t *testing.T) {
	x := newFixture(t, tp.ScalarI64, tp.ScalarI64)
	b := x.b

	i64 := x.ty.I64()

	callee := x.m.AddFunc("callee", tp.FuncOf(i64, i64))

	assert.Panics(t, func() { b.Call(callee) }, "arity")

	r := b.Call(callee, x.f.Arg(0))
	r = b.TailCall(callee, r)
	b.Ret(r)

	cb := callee.Append("entry")
	b.PositionAtEnd(cb)
	b.Ret(callee.Arg(0))

	require.NoError(t, x.m.Verify())
	assert.Contains(t, x.f.String(), "tail call i64 @callee")
}

func TestPredicateString(t *testing.T) {
	assert.Equal(t, "lt", Lt.String())
	assert.Equal(t, "pred?", Predicate(-1).String())
}
