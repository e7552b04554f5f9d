package native

// #include <stdint.h>
import "C"

import (
	"tlog.app/go/tlog"
)

//export jitHostTrace
func jitHostTrace(x C.uint64_t) C.uint64_t {
	tlog.V("host_trace").Printw("jit trace", "x", uint64(x))

	return x
}
