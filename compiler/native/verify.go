package native

/*
#include <llvm-c/Analysis.h>
#include "shim.h"
*/
import "C"

import (
	"tinygo.org/x/go-llvm"
)

// VerifyModule runs the structural checker over the whole module.
// It never aborts the process and never mutates the module.
func VerifyModule(m llvm.Module) (ok bool, msg string) {
	var out *C.char

	broken := C.LLVMVerifyModule(moduleRef(m), C.LLVMReturnStatusAction, &out)
	msg = takeMessage(out)

	return broken == 0, msg
}

// VerifyFunction is VerifyModule for a single function.
func VerifyFunction(f llvm.Value) (ok bool, msg string) {
	var out *C.char

	broken := C.jit_verify_function(valueRef(f), &out)
	msg = takeMessage(out)

	return broken == 0, msg
}
