package tp

import (
	"tinygo.org/x/go-llvm"
)

type (
	// Scalar is a host scalar kind.
	Scalar int

	// Table caches the native types of host scalars for one context.
	Table struct {
		ctx   llvm.Context
		types [scalarCount]Type
	}
)

const (
	ScalarVoid Scalar = iota
	ScalarBool
	ScalarI8
	ScalarI16
	ScalarI32
	ScalarI64
	ScalarU8
	ScalarU16
	ScalarU32
	ScalarU64
	ScalarF32
	ScalarF64
	ScalarPtr

	scalarCount
)

var scalarNames = [...]string{
	ScalarVoid: "void",
	ScalarBool: "bool",
	ScalarI8:   "i8",
	ScalarI16:  "i16",
	ScalarI32:  "i32",
	ScalarI64:  "i64",
	ScalarU8:   "u8",
	ScalarU16:  "u16",
	ScalarU32:  "u32",
	ScalarU64:  "u64",
	ScalarF32:  "f32",
	ScalarF64:  "f64",
	ScalarPtr:  "ptr",
}

// Of returns the native type of a host scalar kind.
// Signedness is a property of instructions, not types: I64 and U64 are the same type.
func Of(ctx llvm.Context, s Scalar) Type {
	switch s {
	case ScalarVoid:
		return Void(ctx)
	case ScalarBool:
		return Bool(ctx)
	case ScalarI8, ScalarU8:
		return Type{t: ctx.Int8Type()}
	case ScalarI16, ScalarU16:
		return Type{t: ctx.Int16Type()}
	case ScalarI32, ScalarU32:
		return Type{t: ctx.Int32Type()}
	case ScalarI64, ScalarU64:
		return Type{t: ctx.Int64Type()}
	case ScalarF32:
		return Float(ctx)
	case ScalarF64:
		return Double(ctx)
	case ScalarPtr:
		return Type{t: llvm.PointerType(ctx.Int8Type(), AddrSpaceGeneric)}
	default:
		return Type{}
	}
}

// ScalarOf maps a Go value to its scalar kind.
func ScalarOf(x any) (Scalar, bool) {
	switch x.(type) {
	case bool:
		return ScalarBool, true
	case int8:
		return ScalarI8, true
	case int16:
		return ScalarI16, true
	case int32:
		return ScalarI32, true
	case int64, int:
		return ScalarI64, true
	case uint8:
		return ScalarU8, true
	case uint16:
		return ScalarU16, true
	case uint32:
		return ScalarU32, true
	case uint64, uint, uintptr:
		return ScalarU64, true
	case float32:
		return ScalarF32, true
	case float64:
		return ScalarF64, true
	default:
		return 0, false
	}
}

func (s Scalar) Signed() bool {
	switch s {
	case ScalarI8, ScalarI16, ScalarI32, ScalarI64:
		return true
	default:
		return false
	}
}

func (s Scalar) String() string {
	if s < 0 || s >= scalarCount {
		return "scalar?"
	}

	return scalarNames[s]
}

func NewTable(ctx llvm.Context) *Table {
	t := &Table{ctx: ctx}

	for s := Scalar(0); s < scalarCount; s++ {
		t.types[s] = Of(ctx, s)
	}

	return t
}

func (t *Table) Get(s Scalar) Type { return t.types[s] }

func (t *Table) Void() Type { return t.types[ScalarVoid] }
func (t *Table) Bool() Type { return t.types[ScalarBool] }
func (t *Table) I8() Type   { return t.types[ScalarI8] }
func (t *Table) I16() Type  { return t.types[ScalarI16] }
func (t *Table) I32() Type  { return t.types[ScalarI32] }
func (t *Table) I64() Type  { return t.types[ScalarI64] }
func (t *Table) U64() Type  { return t.types[ScalarU64] }
func (t *Table) F32() Type  { return t.types[ScalarF32] }
func (t *Table) F64() Type  { return t.types[ScalarF64] }
func (t *Table) Ptr() Type  { return t.types[ScalarPtr] }
