package native

/*
#include <llvm-c/Core.h>
*/
import "C"

import (
	"unsafe"

	"tinygo.org/x/go-llvm"
)

func TypeString(t llvm.Type) string {
	return takeMessage(C.LLVMPrintTypeToString(C.LLVMTypeRef(Ref(t))))
}

func ValueString(v llvm.Value) string {
	return takeMessage(C.LLVMPrintValueToString(valueRef(v)))
}

func ModuleString(m llvm.Module) string {
	return takeMessage(C.LLVMPrintModuleToString(moduleRef(m)))
}

// Target and DataLayout copy module-owned strings; the results outlive the module.

func Target(m llvm.Module) string {
	return C.GoString(C.LLVMGetTarget(moduleRef(m)))
}

func DataLayout(m llvm.Module) string {
	return C.GoString(C.LLVMGetDataLayoutStr(moduleRef(m)))
}

// AllocatedType returns the type an alloca instruction reserves memory for.
func AllocatedType(v llvm.Value) llvm.Type {
	return Wrap[llvm.Type](unsafe.Pointer(C.LLVMGetAllocatedType(valueRef(v))))
}
