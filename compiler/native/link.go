package native

/*
#include <stdlib.h>
#include <llvm-c/Core.h>
#include <llvm-c/Linker.h>

static void jit_link_diag(LLVMDiagnosticInfoRef info, void *slot) {
	char **out = (char **)slot;

	if (LLVMGetDiagInfoSeverity(info) != LLVMDSError || *out != NULL) {
		return;
	}

	*out = LLVMGetDiagInfoDescription(info);
}

static LLVMBool jit_link_modules(LLVMModuleRef dst, LLVMModuleRef src, char **out) {
	LLVMContextRef ctx = LLVMGetModuleContext(dst);

	LLVMDiagnosticHandler prev = LLVMContextGetDiagnosticHandler(ctx);
	void *prevSlot = LLVMContextGetDiagnosticContext(ctx);

	LLVMContextSetDiagnosticHandler(ctx, jit_link_diag, out);
	LLVMBool failed = LLVMLinkModules2(dst, src);
	LLVMContextSetDiagnosticHandler(ctx, prev, prevSlot);

	return failed;
}
*/
import "C"

import (
	"unsafe"

	"tinygo.org/x/go-llvm"
)

// LinkModules links src into dst. The source module is always consumed,
// whether linking succeeds or not.
func LinkModules(dst, src llvm.Module) (ok bool, msg string) {
	var out *C.char

	failed := C.jit_link_modules(moduleRef(dst), moduleRef(src), &out)
	msg = takeMessage(out)

	return failed == 0, msg
}

// CloneModule returns an independent deep copy of m in the same context.
func CloneModule(m llvm.Module) llvm.Module {
	return Wrap[llvm.Module](unsafe.Pointer(C.LLVMCloneModule(moduleRef(m))))
}
