package native

/*
#include <stdlib.h>
#include <llvm-c/Core.h>
#include <llvm-c/BitReader.h>

static LLVMBool jit_parse_bitcode(LLVMContextRef ctx, const char *data, size_t size, const char *name,
		LLVMModuleRef *mod, char **out) {
	LLVMMemoryBufferRef buf = LLVMCreateMemoryBufferWithMemoryRangeCopy(data, size, name);

	LLVMBool failed = LLVMParseBitcodeInContext(ctx, buf, mod, out);
	LLVMDisposeMemoryBuffer(buf);

	return failed;
}
*/
import "C"

import (
	"unsafe"

	"tinygo.org/x/go-llvm"
)

// ParseBitcode parses a serialized module into ctx.
// The data is copied; the caller keeps ownership of it.
func ParseBitcode(ctx llvm.Context, name string, data []byte) (m llvm.Module, msg string, ok bool) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var ptr *C.char
	if len(data) != 0 {
		ptr = (*C.char)(unsafe.Pointer(&data[0]))
	}

	var mod C.LLVMModuleRef
	var out *C.char

	failed := C.jit_parse_bitcode(contextRef(ctx), ptr, C.size_t(len(data)), cname, &mod, &out)
	msg = takeMessage(out)

	if failed != 0 {
		return llvm.Module{}, msg, false
	}

	return Wrap[llvm.Module](unsafe.Pointer(mod)), msg, true
}
