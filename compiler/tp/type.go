package tp

import (
	"tinygo.org/x/go-llvm"

	"github.com/slowlang/jit/compiler/native"
)

type (
	// Type is a native type handle. Types are interned by the backend,
	// so two Types of the same shape in one context are ==.
	Type struct {
		t llvm.Type
	}

	Kind int
)

const (
	KindOther Kind = iota
	KindVoid
	KindInt
	KindFloat
	KindPointer
	KindFunc
	KindStruct
	KindArray
	KindVector

	kindCount
)

// AddrSpaceGeneric is the default address space.
const AddrSpaceGeneric = 0

var kindNames = [...]string{
	KindOther:   "other",
	KindVoid:    "void",
	KindInt:     "int",
	KindFloat:   "float",
	KindPointer: "pointer",
	KindFunc:    "func",
	KindStruct:  "struct",
	KindArray:   "array",
	KindVector:  "vector",
}

func FromNative(t llvm.Type) Type { return Type{t: t} }

func (t Type) Native() llvm.Type { return t.t }

func (t Type) IsNil() bool { return t.t.C == nil }

func (t Type) Kind() Kind {
	if t.IsNil() {
		return KindOther
	}

	switch t.t.TypeKind() {
	case llvm.VoidTypeKind:
		return KindVoid
	case llvm.IntegerTypeKind:
		return KindInt
	case llvm.FloatTypeKind, llvm.DoubleTypeKind, llvm.X86_FP80TypeKind, llvm.FP128TypeKind, llvm.PPC_FP128TypeKind:
		return KindFloat
	case llvm.PointerTypeKind:
		return KindPointer
	case llvm.FunctionTypeKind:
		return KindFunc
	case llvm.StructTypeKind:
		return KindStruct
	case llvm.ArrayTypeKind:
		return KindArray
	case llvm.VectorTypeKind:
		return KindVector
	default:
		return KindOther
	}
}

func (t Type) IsInteger() bool { return t.Kind() == KindInt }
func (t Type) IsFloat() bool   { return t.Kind() == KindFloat }
func (t Type) IsPointer() bool { return t.Kind() == KindPointer }
func (t Type) IsVoid() bool    { return t.Kind() == KindVoid }

// Equals reports shape identity.
func (t Type) Equals(x Type) bool { return t.t.C == x.t.C }

// PointerTo returns a pointer to t in the generic address space.
// With opaque pointers every such pointer is the same type.
func (t Type) PointerTo() Type {
	return Type{t: llvm.PointerType(t.t, AddrSpaceGeneric)}
}

// Width is the bit width of an integer type and 0 for anything else.
func (t Type) Width() int {
	if !t.IsInteger() {
		return 0
	}

	return t.t.IntTypeWidth()
}

func (t Type) Return() Type {
	t.mustKind(KindFunc)

	return Type{t: t.t.ReturnType()}
}

func (t Type) Params() []Type {
	t.mustKind(KindFunc)

	ps := t.t.ParamTypes()
	r := make([]Type, len(ps))

	for i, p := range ps {
		r[i] = Type{t: p}
	}

	return r
}

func (t Type) IsVariadic() bool {
	t.mustKind(KindFunc)

	return t.t.IsFunctionVarArg()
}

func (t Type) Fields() []Type {
	t.mustKind(KindStruct)

	fs := t.t.StructElementTypes()
	r := make([]Type, len(fs))

	for i, f := range fs {
		r[i] = Type{t: f}
	}

	return r
}

func (t Type) Elem() Type {
	switch t.Kind() {
	case KindArray, KindVector:
	default:
		t.mustKind(KindArray)
	}

	return Type{t: t.t.ElementType()}
}

func (t Type) Len() int {
	switch t.Kind() {
	case KindArray:
		return t.t.ArrayLength()
	case KindVector:
		return t.t.VectorSize()
	default:
		t.mustKind(KindArray)
		return 0
	}
}

func (t Type) String() string {
	if t.IsNil() {
		return "<nil>"
	}

	return native.TypeString(t.t)
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "kind?"
	}

	return kindNames[k]
}
