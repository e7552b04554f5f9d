package native

import (
	"sync"

	"tinygo.org/x/go-llvm"
	"tlog.app/go/tlog"
)

type (
	InitError struct {
		Step string
		Err  error
	}
)

var initState struct {
	once sync.Once
	err  error
}

// Init links MCJIT in and initializes the native target and asm printer.
// It runs once per process; later calls report the first outcome.
func Init() error {
	initState.once.Do(func() {
		llvm.LinkInMCJIT()

		if err := llvm.InitializeNativeTarget(); err != nil {
			initState.err = &InitError{Step: "native target", Err: err}
			return
		}

		if err := llvm.InitializeNativeAsmPrinter(); err != nil {
			initState.err = &InitError{Step: "native asm printer", Err: err}
			return
		}

		major, minor := Version()

		tlog.V("native").Printw("backend initialized", "llvm_major", major, "llvm_minor", minor, "triple", llvm.DefaultTargetTriple())
	})

	return initState.err
}

func (e *InitError) Error() string {
	return "init " + e.Step + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error { return e.Err }
