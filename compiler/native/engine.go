package native

/*
#include <stdlib.h>
#include <llvm-c/Core.h>
#include <llvm-c/ExecutionEngine.h>

static LLVMBool jit_create_mcjit(LLVMExecutionEngineRef *ee, LLVMModuleRef m,
		unsigned opt, LLVMCodeModel cm, LLVMBool noFPElim, LLVMBool fastISel, char **out) {
	struct LLVMMCJITCompilerOptions opts;
	LLVMInitializeMCJITCompilerOptions(&opts, sizeof(opts));

	opts.OptLevel = opt;
	opts.CodeModel = cm;
	opts.NoFramePointerElim = noFPElim;
	opts.EnableFastISel = fastISel;

	return LLVMCreateMCJITCompilerForModule(ee, m, &opts, sizeof(opts), out);
}

static LLVMBool jit_remove_module(LLVMExecutionEngineRef ee, LLVMModuleRef m, char **out) {
	LLVMModuleRef removed = NULL;

	return LLVMRemoveModule(ee, m, &removed, out);
}
*/
import "C"

import (
	"unsafe"

	"fortio.org/safecast"
	"tinygo.org/x/go-llvm"
)

type (
	EngineOptions struct {
		OptLevel      int
		CodeModel     llvm.CodeModel
		FramePointers bool
		FastISel      bool
	}
)

func engineRef(ee llvm.ExecutionEngine) C.LLVMExecutionEngineRef {
	return C.LLVMExecutionEngineRef(Ref(ee))
}

func cbool(x bool) C.LLVMBool {
	if x {
		return 1
	}

	return 0
}

// CreateEngine builds an MCJIT engine owning m.
// m is consumed either way: on failure it is already disposed.
func CreateEngine(m llvm.Module, opts EngineOptions) (ee llvm.ExecutionEngine, msg string, ok bool) {
	lvl, err := safecast.Conv[uint32](opts.OptLevel)
	if err != nil {
		m.Dispose()

		return ee, "opt level: " + err.Error(), false
	}

	var ref C.LLVMExecutionEngineRef
	var out *C.char

	failed := C.jit_create_mcjit(&ref, moduleRef(m), C.uint(lvl), C.LLVMCodeModel(opts.CodeModel),
		cbool(opts.FramePointers), cbool(opts.FastISel), &out)
	msg = takeMessage(out)

	if failed != 0 {
		return ee, msg, false
	}

	return Wrap[llvm.ExecutionEngine](unsafe.Pointer(ref)), msg, true
}

// RemoveModule detaches m from ee. Ownership of m returns to the caller.
func RemoveModule(ee llvm.ExecutionEngine, m llvm.Module) (ok bool, msg string) {
	var out *C.char

	failed := C.jit_remove_module(engineRef(ee), moduleRef(m), &out)
	msg = takeMessage(out)

	return failed == 0, msg
}

// GlobalValueAddress resolves a global by name, compiling its module if needed.
// Zero means unresolved.
func GlobalValueAddress(ee llvm.ExecutionEngine, name string) uintptr {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	return uintptr(C.LLVMGetGlobalValueAddress(engineRef(ee), cname))
}
