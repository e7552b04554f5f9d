package native

/*
#include <stdint.h>

typedef uint64_t u64;

static u64 jit_call(void *fn, const u64 *a, int n) {
	switch (n) {
	case 0: return ((u64 (*)(void))fn)();
	case 1: return ((u64 (*)(u64))fn)(a[0]);
	case 2: return ((u64 (*)(u64, u64))fn)(a[0], a[1]);
	case 3: return ((u64 (*)(u64, u64, u64))fn)(a[0], a[1], a[2]);
	case 4: return ((u64 (*)(u64, u64, u64, u64))fn)(a[0], a[1], a[2], a[3]);
	case 5: return ((u64 (*)(u64, u64, u64, u64, u64))fn)(a[0], a[1], a[2], a[3], a[4]);
	default: return ((u64 (*)(u64, u64, u64, u64, u64, u64))fn)(a[0], a[1], a[2], a[3], a[4], a[5]);
	}
}

static double jit_call_f(void *fn, const double *a, int n) {
	switch (n) {
	case 0: return ((double (*)(void))fn)();
	case 1: return ((double (*)(double))fn)(a[0]);
	case 2: return ((double (*)(double, double))fn)(a[0], a[1]);
	case 3: return ((double (*)(double, double, double))fn)(a[0], a[1], a[2]);
	default: return ((double (*)(double, double, double, double))fn)(a[0], a[1], a[2], a[3]);
	}
}
*/
import "C"

import (
	"unsafe"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
)

const (
	MaxIntArgs   = 6
	MaxFloatArgs = 4
)

// Call invokes fn as a C function taking and returning 64-bit integers.
// Pointers and narrower integer arguments travel in the same registers.
// Only the low bits of a narrower integer result are defined, see SignExtend.
// A signature mismatch is undefined behaviour.
func Call(fn unsafe.Pointer, args ...uint64) uint64 {
	if fn == nil {
		panic(errors.New("call of nil function pointer at %v", loc.Caller(1)))
	}

	if len(args) > MaxIntArgs {
		panic(errors.New("too many arguments: %d > %d at %v", len(args), MaxIntArgs, loc.Caller(1)))
	}

	var a [MaxIntArgs]C.uint64_t

	for i, x := range args {
		a[i] = C.uint64_t(x)
	}

	return uint64(C.jit_call(fn, &a[0], C.int(len(args))))
}

// CallFloat is Call for functions taking and returning doubles.
func CallFloat(fn unsafe.Pointer, args ...float64) float64 {
	if fn == nil {
		panic(errors.New("call of nil function pointer at %v", loc.Caller(1)))
	}

	if len(args) > MaxFloatArgs {
		panic(errors.New("too many arguments: %d > %d at %v", len(args), MaxFloatArgs, loc.Caller(1)))
	}

	var a [MaxFloatArgs]C.double

	for i, x := range args {
		a[i] = C.double(x)
	}

	return float64(C.jit_call_f(fn, &a[0], C.int(len(args))))
}

// SignExtend interprets the low width bits of x as a signed integer.
func SignExtend(x uint64, width int) int64 {
	if width <= 0 || width >= 64 {
		return int64(x)
	}

	sh := 64 - width

	return int64(x<<sh) >> sh
}
