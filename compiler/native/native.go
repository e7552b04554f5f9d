// Package native is the cgo side of the JIT layer.
//
// It owns everything that talks to llvm-c directly instead of through go-llvm:
// calls that hand back diagnostic buffers, the one-time backend initialization,
// the version query and the trampolines used to call JIT-compiled code.
package native

/*
#include <stdlib.h>
#include <llvm-c/Core.h>
#include <llvm/Config/llvm-config.h>

#if LLVM_VERSION_MAJOR < 15
#error "LLVM 15 or newer is required (opaque pointers)"
#endif

static unsigned jit_version_major(void) { return LLVM_VERSION_MAJOR; }
static unsigned jit_version_minor(void) { return LLVM_VERSION_MINOR; }
*/
import "C"

import (
	"unsafe"

	"tinygo.org/x/go-llvm"
)

type (
	Handle interface {
		llvm.Context | llvm.Module | llvm.Value | llvm.Type | llvm.BasicBlock | llvm.ExecutionEngine
	}
)

// Ref returns the raw C reference held by a go-llvm handle.
// Every go-llvm handle is a struct with a single pointer field.
func Ref[H Handle](h H) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&h))
}

// Wrap is the inverse of Ref.
func Wrap[H Handle](p unsafe.Pointer) (h H) {
	*(*unsafe.Pointer)(unsafe.Pointer(&h)) = p

	return h
}

// Version reports the major and minor version of the backend the package was built against.
func Version() (major, minor int) {
	return int(C.jit_version_major()), int(C.jit_version_minor())
}

// takeMessage converts a backend-allocated message into a Go string and releases it.
// A nil slot means the backend produced nothing.
// It is the only place a message buffer is released.
func takeMessage(msg *C.char) string {
	if msg == nil {
		return ""
	}

	s := C.GoString(msg)
	C.LLVMDisposeMessage(msg)

	return s
}

func moduleRef(m llvm.Module) C.LLVMModuleRef {
	return C.LLVMModuleRef(Ref(m))
}

func valueRef(v llvm.Value) C.LLVMValueRef {
	return C.LLVMValueRef(Ref(v))
}

func contextRef(c llvm.Context) C.LLVMContextRef {
	return C.LLVMContextRef(Ref(c))
}
