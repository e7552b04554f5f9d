package tp

import (
	"tinygo.org/x/go-llvm"
	"tlog.app/go/errors"
	"tlog.app/go/loc"
)

func Void(ctx llvm.Context) Type   { return Type{t: ctx.VoidType()} }
func Bool(ctx llvm.Context) Type   { return Type{t: ctx.Int1Type()} }
func Float(ctx llvm.Context) Type  { return Type{t: ctx.FloatType()} }
func Double(ctx llvm.Context) Type { return Type{t: ctx.DoubleType()} }

func IntN(ctx llvm.Context, bits int) Type {
	if bits <= 0 {
		panic(errors.New("bad int width %d at %v", bits, loc.Caller(1)))
	}

	return Type{t: ctx.IntType(bits)}
}

func FuncOf(ret Type, params ...Type) Type {
	return Type{t: llvm.FunctionType(ret.t, natives(params), false)}
}

func VarFuncOf(ret Type, params ...Type) Type {
	return Type{t: llvm.FunctionType(ret.t, natives(params), true)}
}

func StructOf(ctx llvm.Context, packed bool, fields ...Type) Type {
	return Type{t: ctx.StructType(natives(fields), packed)}
}

func ArrayOf(elem Type, n int) Type {
	if n < 0 {
		panic(errors.New("negative array length %d at %v", n, loc.Caller(1)))
	}

	return Type{t: llvm.ArrayType(elem.t, n)}
}

func Natives(ts []Type) []llvm.Type { return natives(ts) }

func natives(ts []Type) []llvm.Type {
	r := make([]llvm.Type, len(ts))

	for i, t := range ts {
		r[i] = t.t
	}

	return r
}

func (t Type) mustKind(k Kind) {
	if got := t.Kind(); got != k {
		panic(errors.New("expected %v type, got %v (%v) at %v", k, got, t, loc.Caller(2)))
	}
}
