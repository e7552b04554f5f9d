package ir

import (
	"fmt"
	"iter"

	"tinygo.org/x/go-llvm"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/jit/compiler/native"
	"github.com/slowlang/jit/compiler/tp"
)

type (
	// Operand is anything usable as an instruction operand.
	Operand interface {
		Native() llvm.Value
	}

	// Value is the common part of every IR value: typed, nameable, usable as an operand.
	Value struct {
		v llvm.Value
	}

	Constant struct {
		Value
	}

	Argument struct {
		Value
	}

	Instruction struct {
		Value
	}

	PhiNode struct {
		Instruction
	}

	GlobalValue struct {
		Value
	}

	Function struct {
		GlobalValue
	}
)

func FromNative(v llvm.Value) Value { return Value{v: v} }

func (v Value) Native() llvm.Value { return v.v }

func (v Value) IsNil() bool { return v.v.IsNil() }

func (v Value) Type() tp.Type { return tp.FromNative(v.v.Type()) }

func (v Value) Name() string { return v.v.Name() }

func (v Value) SetName(name string) { v.v.SetName(name) }

func (v Value) IsConstant() bool { return v.v.IsConstant() }

// Dump writes the value text to stderr.
func (v Value) Dump() { v.v.Dump() }

func (v Value) String() string {
	if v.IsNil() {
		return "<nil>"
	}

	return native.ValueString(v.v)
}

func (v Value) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, v.String())
}

func ConstInt(t tp.Type, x uint64, signExtend bool) Constant {
	return Constant{Value{v: llvm.ConstInt(t.Native(), x, signExtend)}}
}

func ConstFloat(t tp.Type, x float64) Constant {
	return Constant{Value{v: llvm.ConstFloat(t.Native(), x)}}
}

func ConstNull(t tp.Type) Constant {
	return Constant{Value{v: llvm.ConstNull(t.Native())}}
}

func Undef(t tp.Type) Constant {
	return Constant{Value{v: llvm.Undef(t.Native())}}
}

// Const converts a Go scalar into a constant of the matching native type.
func (c *Context) Const(x any) Constant {
	c.mustLive(2)

	s, ok := tp.ScalarOf(x)
	if !ok {
		violation(1, "unsupported constant type %T", x)
	}

	t := c.types.Get(s)

	switch x := x.(type) {
	case bool:
		var b uint64
		if x {
			b = 1
		}

		return ConstInt(t, b, false)
	case int8:
		return ConstInt(t, uint64(x), true)
	case int16:
		return ConstInt(t, uint64(x), true)
	case int32:
		return ConstInt(t, uint64(x), true)
	case int64:
		return ConstInt(t, uint64(x), true)
	case int:
		return ConstInt(t, uint64(x), true)
	case uint8:
		return ConstInt(t, uint64(x), false)
	case uint16:
		return ConstInt(t, uint64(x), false)
	case uint32:
		return ConstInt(t, uint64(x), false)
	case uint64:
		return ConstInt(t, x, false)
	case uint:
		return ConstInt(t, uint64(x), false)
	case uintptr:
		return ConstInt(t, uint64(x), false)
	case float32:
		return ConstFloat(t, float64(x))
	case float64:
		return ConstFloat(t, x)
	}

	panic(x)
}

// Uint returns the zero-extended value of an integer constant.
func (c Constant) Uint() uint64 { return c.v.ZExtValue() }

// Int returns the sign-extended value of an integer constant.
func (c Constant) Int() int64 { return c.v.SExtValue() }

func (i Instruction) Block() Block { return Block{bb: i.v.InstructionParent()} }

// Erase removes the instruction from its block and deletes it.
func (i Instruction) Erase() { i.v.EraseFromParentAsInstruction() }

// AddIncoming adds an incoming value for a predecessor block.
func (p PhiNode) AddIncoming(v Operand, from Block) {
	p.v.AddIncoming([]llvm.Value{v.Native()}, []llvm.BasicBlock{from.bb})
}

func (p PhiNode) IncomingCount() int { return p.v.IncomingCount() }

// ValueType is the type of the memory the global designates.
func (g GlobalValue) ValueType() tp.Type { return tp.FromNative(g.v.GlobalValueType()) }

func (g GlobalValue) SetInitializer(c Operand) { g.v.SetInitializer(c.Native()) }

func (g GlobalValue) SetConstant(x bool) { g.v.SetGlobalConstant(x) }

func (g GlobalValue) IsDeclaration() bool { return g.v.IsDeclaration() }

func (g GlobalValue) IsFunction() bool { return !g.v.IsAFunction().IsNil() }

// AsFunction returns the global as a function if it is one.
func (g GlobalValue) AsFunction() (Function, bool) {
	if !g.IsFunction() {
		return Function{}, false
	}

	return Function{GlobalValue: g}, true
}

// Module returns the native module the global is defined in.
func (g GlobalValue) Module() llvm.Module { return g.v.GlobalParent() }

// Signature is the function type.
func (f Function) Signature() tp.Type { return f.ValueType() }

// Append appends a new basic block to the function.
func (f Function) Append(name string) Block {
	ctx := f.v.GlobalParent().Context()

	return Block{bb: ctx.AddBasicBlock(f.v, name)}
}

// Arg returns the i-th parameter. Out of range indexes are a contract violation.
func (f Function) Arg(i int) Argument {
	if n := f.v.ParamsCount(); i < 0 || i >= n {
		violation(1, "function %q has %d params, arg %d requested", f.Name(), n, i)
	}

	return Argument{Value{v: f.v.Param(i)}}
}

func (f Function) NumArgs() int { return f.v.ParamsCount() }

func (f Function) Args() []Argument {
	ps := f.v.Params()
	r := make([]Argument, len(ps))

	for i, p := range ps {
		r[i] = Argument{Value{v: p}}
	}

	return r
}

func (f Function) Blocks() iter.Seq[Block] {
	return func(yield func(Block) bool) {
		for bb := f.v.FirstBasicBlock(); bb.C != nil; bb = llvm.NextBasicBlock(bb) {
			if !yield(Block{bb: bb}) {
				return
			}
		}
	}
}

func (f Function) Entry() (Block, bool) {
	bb := f.v.FirstBasicBlock()

	return Block{bb: bb}, bb.C != nil
}

// Verify checks the function alone. It does not modify it.
func (f Function) Verify() error {
	ok, msg := native.VerifyFunction(f.v)
	if ok {
		return nil
	}

	return &VerifyError{Target: fmt.Sprintf("function %q", f.Name()), Message: msg}
}

// Delete removes the function from its module.
// Any value referring to it becomes invalid.
func (f Function) Delete() { f.v.EraseFromParentAsFunction() }
