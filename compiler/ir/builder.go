package ir

import (
	"tinygo.org/x/go-llvm"
	"tlog.app/go/tlog"

	"github.com/slowlang/jit/compiler/native"
	"github.com/slowlang/jit/compiler/tp"
)

type (
	// Builder is the instruction emission cursor.
	// It starts unpositioned; every emitting method requires a position.
	Builder struct {
		ctx *Context
		b   llvm.Builder

		disposed bool
	}

	Predicate int

	CastOp int

	// Case is a switch arm.
	Case struct {
		On Constant
		To Block
	}

	binop func(llvm.Builder, llvm.Value, llvm.Value, string) llvm.Value
	unop  func(llvm.Builder, llvm.Value, string) llvm.Value

	// binops selects the native instruction by operand kind.
	binops map[tp.Kind]binop
	unops  map[tp.Kind]unop
)

const (
	Eq Predicate = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

const (
	Trunc CastOp = iota
	ZExt
	SExt
	FPTrunc
	FPExt
	UIToFP
	SIToFP
	FPToUI
	FPToSI
	PtrToInt
	IntToPtr
	BitCast

	castCount
)

// noName is passed where the backend wants a value name; values stay anonymous.
const noName = ""

var (
	opAdd = binops{tp.KindInt: llvm.Builder.CreateAdd, tp.KindFloat: llvm.Builder.CreateFAdd}
	opSub = binops{tp.KindInt: llvm.Builder.CreateSub, tp.KindFloat: llvm.Builder.CreateFSub}
	opMul = binops{tp.KindInt: llvm.Builder.CreateMul, tp.KindFloat: llvm.Builder.CreateFMul}
	opDiv = binops{tp.KindInt: llvm.Builder.CreateSDiv, tp.KindFloat: llvm.Builder.CreateFDiv}
	opRem = binops{tp.KindInt: llvm.Builder.CreateSRem, tp.KindFloat: llvm.Builder.CreateFRem}

	opUDiv = binops{tp.KindInt: llvm.Builder.CreateUDiv}
	opURem = binops{tp.KindInt: llvm.Builder.CreateURem}
	opShl  = binops{tp.KindInt: llvm.Builder.CreateShl}
	opAShr = binops{tp.KindInt: llvm.Builder.CreateAShr}
	opLShr = binops{tp.KindInt: llvm.Builder.CreateLShr}
	opAnd  = binops{tp.KindInt: llvm.Builder.CreateAnd}
	opOr   = binops{tp.KindInt: llvm.Builder.CreateOr}
	opXor  = binops{tp.KindInt: llvm.Builder.CreateXor}

	opNeg = unops{tp.KindInt: llvm.Builder.CreateNeg, tp.KindFloat: llvm.Builder.CreateFNeg}
	opNot = unops{tp.KindInt: llvm.Builder.CreateNot}
)

var (
	// intPreds is indexed by predicate and signedness.
	intPreds = [...][2]llvm.IntPredicate{
		Eq: {llvm.IntEQ, llvm.IntEQ},
		Ne: {llvm.IntNE, llvm.IntNE},
		Lt: {llvm.IntULT, llvm.IntSLT},
		Le: {llvm.IntULE, llvm.IntSLE},
		Gt: {llvm.IntUGT, llvm.IntSGT},
		Ge: {llvm.IntUGE, llvm.IntSGE},
	}

	// Float comparisons are ordered: any NaN operand makes them false.
	floatPreds = [...]llvm.FloatPredicate{
		Eq: llvm.FloatOEQ,
		Ne: llvm.FloatONE,
		Lt: llvm.FloatOLT,
		Le: llvm.FloatOLE,
		Gt: llvm.FloatOGT,
		Ge: llvm.FloatOGE,
	}

	predNames = [...]string{Eq: "eq", Ne: "ne", Lt: "lt", Le: "le", Gt: "gt", Ge: "ge"}

	castOps = [...]llvm.Opcode{
		Trunc:    llvm.Trunc,
		ZExt:     llvm.ZExt,
		SExt:     llvm.SExt,
		FPTrunc:  llvm.FPTrunc,
		FPExt:    llvm.FPExt,
		UIToFP:   llvm.UIToFP,
		SIToFP:   llvm.SIToFP,
		FPToUI:   llvm.FPToUI,
		FPToSI:   llvm.FPToSI,
		PtrToInt: llvm.PtrToInt,
		IntToPtr: llvm.IntToPtr,
		BitCast:  llvm.BitCast,
	}

	castNames = [...]string{
		Trunc: "trunc", ZExt: "zext", SExt: "sext",
		FPTrunc: "fptrunc", FPExt: "fpext",
		UIToFP: "uitofp", SIToFP: "sitofp", FPToUI: "fptoui", FPToSI: "fptosi",
		PtrToInt: "ptrtoint", IntToPtr: "inttoptr", BitCast: "bitcast",
	}
)

func (b *Builder) Native() llvm.Builder { return b.b }

func (b *Builder) Dispose() {
	if b.disposed {
		return
	}

	b.disposed = true
	b.b.Dispose()
}

// InsertBlock returns the block the builder is positioned in.
func (b *Builder) InsertBlock() (Block, bool) {
	b.mustLive(2)

	bb := b.b.GetInsertBlock()

	return Block{bb: bb}, bb.C != nil
}

// PositionAt positions the builder before instr within block.
func (b *Builder) PositionAt(block Block, instr Instruction) {
	b.mustLive(2)

	b.b.SetInsertPoint(block.bb, instr.v)
}

// PositionAtEnd positions the builder after the last instruction of block.
func (b *Builder) PositionAtEnd(block Block) {
	b.mustLive(2)

	b.b.SetInsertPointAtEnd(block.bb)
}

func (b *Builder) ClearPosition() {
	b.mustLive(2)

	b.b.ClearInsertionPoint()
}

func (b *Builder) RetVoid() Instruction {
	b.mustPositioned(2)

	return inst(b.b.CreateRetVoid())
}

func (b *Builder) Ret(v Operand) Instruction {
	b.mustPositioned(2)

	return inst(b.b.CreateRet(v.Native()))
}

func (b *Builder) Unreachable() Instruction {
	b.mustPositioned(2)

	return inst(b.b.CreateUnreachable())
}

func (b *Builder) Br(dst Block) Instruction {
	b.mustPositioned(2)

	return inst(b.b.CreateBr(dst.bb))
}

// CondBr branches to then if cond is true and to els otherwise.
func (b *Builder) CondBr(cond Operand, then, els Block) Instruction {
	b.mustPositioned(2)

	return inst(b.b.CreateCondBr(cond.Native(), then.bb, els.bb))
}

// Switch jumps to the block of the case equal to v, or to def.
// Case constants must be distinct.
func (b *Builder) Switch(v Operand, def Block, cases ...Case) Instruction {
	b.mustPositioned(2)

	// integer constants are uniqued, equal values share a handle
	seen := make(map[llvm.Value]int, len(cases))

	for i, c := range cases {
		if c.On.IsNil() || c.On.v.IsAConstantInt().IsNil() {
			violation(1, "switch case %d is not an integer constant: %v", i, c.On)
		}

		if j, ok := seen[c.On.v]; ok {
			violation(1, "switch case %d duplicates case %d: %v", i, j, c.On)
		}

		seen[c.On.v] = i
	}

	sw := b.b.CreateSwitch(v.Native(), def.bb, len(cases))

	for _, c := range cases {
		sw.AddCase(c.On.v, c.To.bb)
	}

	tlog.V("builder").Printw("switch", "cases", len(cases), "default", def.Name())

	return inst(sw)
}

// Call calls fn with args. The result is the call instruction itself.
func (b *Builder) Call(fn Function, args ...Operand) Instruction {
	b.mustPositioned(2)

	return inst(b.call(fn, args, false))
}

// TailCall is Call marked as eligible for tail call optimization.
func (b *Builder) TailCall(fn Function, args ...Operand) Instruction {
	b.mustPositioned(2)

	return inst(b.call(fn, args, true))
}

func (b *Builder) call(fn Function, args []Operand, tail bool) llvm.Value {
	sig := fn.v.GlobalValueType()

	if n := sig.ParamTypesCount(); len(args) != n && !sig.IsFunctionVarArg() {
		violation(2, "call of %q with %d args, want %d", fn.Name(), len(args), n)
	}

	call := b.b.CreateCall(sig, fn.v, operands(args), noName)
	call.SetTailCall(tail)

	return call
}

// Select yields t if cond is true and f otherwise.
func (b *Builder) Select(cond, t, f Operand) Value {
	b.mustPositioned(2)

	return Value{v: b.b.CreateSelect(cond.Native(), t.Native(), f.Native(), noName)}
}

// Cast converts v to type to. The kind and width rules of op are checked by the verifier.
func (b *Builder) Cast(op CastOp, v Operand, to tp.Type) Value {
	b.mustPositioned(2)

	if op < 0 || op >= castCount {
		violation(1, "unknown cast op %d", int(op))
	}

	return Value{v: b.b.CreateCast(v.Native(), castOps[op], to.Native(), noName)}
}

func (b *Builder) BitCast(v Operand, to tp.Type) Value {
	b.mustPositioned(2)

	return Value{v: b.b.CreateBitCast(v.Native(), to.Native(), noName)}
}

// InsertValue returns agg with field idx replaced by elem.
func (b *Builder) InsertValue(agg, elem Operand, idx int) Value {
	b.mustPositioned(2)

	return Value{v: b.b.CreateInsertValue(agg.Native(), elem.Native(), idx, noName)}
}

func (b *Builder) ExtractValue(agg Operand, idx int) Value {
	b.mustPositioned(2)

	return Value{v: b.b.CreateExtractValue(agg.Native(), idx, noName)}
}

// Load loads from a pointer whose element type is known:
// an alloca or a global. Use LoadType for anything else.
func (b *Builder) Load(ptr Operand) Instruction {
	b.mustPositioned(2)

	t := b.pointee(ptr, "load")

	return inst(b.b.CreateLoad(t, ptr.Native(), noName))
}

func (b *Builder) LoadType(t tp.Type, ptr Operand) Instruction {
	b.mustPositioned(2)

	return inst(b.b.CreateLoad(t.Native(), ptr.Native(), noName))
}

// Store stores val through ptr.
// A ptr that is not a pointer is reported by the verifier, not here.
func (b *Builder) Store(val, ptr Operand) Instruction {
	b.mustPositioned(2)

	return inst(b.b.CreateStore(val.Native(), ptr.Native()))
}

// GEP computes an in-bounds sub-element address.
// The element type is taken from ptr like in Load. Indexes are not checked here.
func (b *Builder) GEP(ptr Operand, indices ...Operand) Value {
	b.mustPositioned(2)

	t := b.pointee(ptr, "gep")

	return Value{v: b.b.CreateInBoundsGEP(t, ptr.Native(), operands(indices), noName)}
}

func (b *Builder) GEPType(elem tp.Type, ptr Operand, indices ...Operand) Value {
	b.mustPositioned(2)

	return Value{v: b.b.CreateInBoundsGEP(elem.Native(), ptr.Native(), operands(indices), noName)}
}

// Phi creates a phi node. Incoming pairs are added later.
func (b *Builder) Phi(t tp.Type, name string) PhiNode {
	b.mustPositioned(2)

	return PhiNode{inst(b.b.CreatePHI(t.Native(), name))}
}

// Alloca reserves a stack slot for one value of type t.
func (b *Builder) Alloca(t tp.Type) Instruction {
	b.mustPositioned(2)

	return inst(b.b.CreateAlloca(t.Native(), noName))
}

// ArrayAlloca reserves a stack slot for n values of type elem.
func (b *Builder) ArrayAlloca(elem tp.Type, n Operand) Instruction {
	b.mustPositioned(2)

	return inst(b.b.CreateArrayAlloca(elem.Native(), n.Native(), noName))
}

// Malloc allocates one value of type t on the heap. Release it with Free.
func (b *Builder) Malloc(t tp.Type) Instruction {
	b.mustPositioned(2)

	return inst(b.b.CreateMalloc(t.Native(), noName))
}

func (b *Builder) ArrayMalloc(elem tp.Type, n Operand) Instruction {
	b.mustPositioned(2)

	return inst(b.b.CreateArrayMalloc(elem.Native(), n.Native(), noName))
}

// Free releases memory obtained from Malloc or ArrayMalloc.
// Pairing is the caller's responsibility.
func (b *Builder) Free(ptr Operand) Instruction {
	b.mustPositioned(2)

	return inst(b.b.CreateFree(ptr.Native()))
}

func (b *Builder) Neg(v Operand) Value { return b.unary("neg", opNeg, v) }
func (b *Builder) Not(v Operand) Value { return b.unary("not", opNot, v) }

func (b *Builder) Add(l, r Operand) Value { return b.binary("add", opAdd, l, r) }
func (b *Builder) Sub(l, r Operand) Value { return b.binary("sub", opSub, l, r) }
func (b *Builder) Mul(l, r Operand) Value { return b.binary("mul", opMul, l, r) }

// Div is signed for integers.
func (b *Builder) Div(l, r Operand) Value { return b.binary("div", opDiv, l, r) }

// Rem is signed for integers.
func (b *Builder) Rem(l, r Operand) Value { return b.binary("rem", opRem, l, r) }

func (b *Builder) UDiv(l, r Operand) Value { return b.binary("udiv", opUDiv, l, r) }
func (b *Builder) URem(l, r Operand) Value { return b.binary("urem", opURem, l, r) }
func (b *Builder) Shl(l, r Operand) Value  { return b.binary("shl", opShl, l, r) }
func (b *Builder) AShr(l, r Operand) Value { return b.binary("ashr", opAShr, l, r) }
func (b *Builder) LShr(l, r Operand) Value { return b.binary("lshr", opLShr, l, r) }
func (b *Builder) And(l, r Operand) Value  { return b.binary("and", opAnd, l, r) }
func (b *Builder) Or(l, r Operand) Value   { return b.binary("or", opOr, l, r) }
func (b *Builder) Xor(l, r Operand) Value  { return b.binary("xor", opXor, l, r) }

// Cmp compares l and r. Integers are compared as signed.
func (b *Builder) Cmp(l, r Operand, p Predicate) Value { return b.cmp(l, r, p, true) }

// UCmp compares l and r. Integers are compared as unsigned.
// Floats compare the same way as in Cmp.
func (b *Builder) UCmp(l, r Operand, p Predicate) Value { return b.cmp(l, r, p, false) }

func (b *Builder) cmp(l, r Operand, p Predicate, signed bool) Value {
	b.mustPositioned(3)

	if p < Eq || p > Ge {
		violation(2, "unknown predicate %d", int(p))
	}

	t := sameType(3, "cmp", l, r)

	switch t.Kind() {
	case tp.KindInt, tp.KindPointer:
		s := 0
		if signed {
			s = 1
		}

		return Value{v: b.b.CreateICmp(intPreds[p][s], l.Native(), r.Native(), noName)}
	case tp.KindFloat:
		return Value{v: b.b.CreateFCmp(floatPreds[p], l.Native(), r.Native(), noName)}
	}

	violation(2, "cmp %v: expected numbers, got %v", p, t)

	return Value{}
}

func (b *Builder) binary(name string, ops binops, l, r Operand) Value {
	b.mustPositioned(3)

	t := sameType(3, name, l, r)

	f := ops[t.Kind()]
	if f == nil {
		violation(2, "%v: unsupported operand type %v", name, t)
	}

	return Value{v: f(b.b, l.Native(), r.Native(), noName)}
}

func (b *Builder) unary(name string, ops unops, v Operand) Value {
	b.mustPositioned(3)

	t := tp.FromNative(v.Native().Type())

	f := ops[t.Kind()]
	if f == nil {
		violation(2, "%v: unsupported operand type %v", name, t)
	}

	return Value{v: f(b.b, v.Native(), noName)}
}

func (b *Builder) pointee(ptr Operand, op string) llvm.Type {
	v := ptr.Native()

	switch {
	case !v.IsAAllocaInst().IsNil():
		return native.AllocatedType(v)
	case !v.IsAGlobalValue().IsNil():
		return v.GlobalValueType()
	}

	violation(2, "%v: element type of %v is unknown, pass it explicitly", op, FromNative(v))

	return llvm.Type{}
}

func (b *Builder) mustLive(depth int) {
	if b.disposed {
		violation(depth, "use of disposed builder")
	}
}

func (b *Builder) mustPositioned(depth int) {
	b.mustLive(depth + 1)

	if b.b.GetInsertBlock().C == nil {
		violation(depth, "builder is not positioned")
	}
}

func sameType(depth int, op string, l, r Operand) tp.Type {
	lt := tp.FromNative(l.Native().Type())
	rt := tp.FromNative(r.Native().Type())

	if !lt.Equals(rt) {
		violation(depth, "%v: operand types differ: %v and %v", op, lt, rt)
	}

	return lt
}

func operands(xs []Operand) []llvm.Value {
	r := make([]llvm.Value, len(xs))

	for i, x := range xs {
		r[i] = x.Native()
	}

	return r
}

func inst(v llvm.Value) Instruction { return Instruction{Value{v: v}} }

func (p Predicate) String() string {
	if p < Eq || p > Ge {
		return "pred?"
	}

	return predNames[p]
}

func (op CastOp) String() string {
	if op < 0 || op >= castCount {
		return "cast?"
	}

	return castNames[op]
}
