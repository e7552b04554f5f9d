package native

/*
#include <stdint.h>
#include <stdlib.h>

extern uint64_t jitHostTrace(uint64_t);

static uint64_t jit_host_identity(uint64_t x) { return x; }

static void *jit_host_identity_ptr(void) { return (void *)jit_host_identity; }
static void *jit_host_trace_ptr(void) { return (void *)jitHostTrace; }
static void *jit_host_llabs_ptr(void) { return (void *)llabs; }
*/
import "C"

import "unsafe"

// HostFunc returns the address of a host-native function JIT code may call back into.
// Every function takes and returns a 64-bit integer.
//
//	identity  returns its argument
//	trace     logs its argument and returns it (Go callback)
//	llabs     C library absolute value
func HostFunc(name string) (unsafe.Pointer, bool) {
	switch name {
	case "identity":
		return C.jit_host_identity_ptr(), true
	case "trace":
		return C.jit_host_trace_ptr(), true
	case "llabs":
		return C.jit_host_llabs_ptr(), true
	}

	return nil, false
}

func HostFuncs() []string {
	return []string{"identity", "llabs", "trace"}
}
