package jit

import (
	"tinygo.org/x/go-llvm"

	"github.com/slowlang/jit/compiler/native"
)

type (
	Option func(*native.EngineOptions)
)

const DefaultOptLevel = 2

func defaultOptions() native.EngineOptions {
	return native.EngineOptions{
		OptLevel:  DefaultOptLevel,
		CodeModel: llvm.CodeModelJITDefault,
	}
}

// WithOptLevel sets the code generation optimization level, 0 to 3.
func WithOptLevel(lvl int) Option {
	return func(o *native.EngineOptions) { o.OptLevel = lvl }
}

func WithCodeModel(cm llvm.CodeModel) Option {
	return func(o *native.EngineOptions) { o.CodeModel = cm }
}

func WithFastISel(on bool) Option {
	return func(o *native.EngineOptions) { o.FastISel = on }
}

// WithFramePointers keeps frame pointers in generated code.
func WithFramePointers(on bool) Option {
	return func(o *native.EngineOptions) { o.FramePointers = on }
}
