package ir

import (
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
)

type (
	// VerifyError is returned when the structural checker rejects a module or function.
	VerifyError struct {
		Target  string
		Message string
	}

	BitcodeParseError struct {
		Name    string
		Message string
	}

	LinkError struct {
		Dst, Src string
		Message  string
	}
)

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify %v: %v", e.Target, e.Message)
}

func (e *BitcodeParseError) Error() string {
	return fmt.Sprintf("parse bitcode %v: %v", e.Name, e.Message)
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %v into %v: %v", e.Src, e.Dst, e.Message)
}

// violation panics on a programmer contract violation.
// depth is the number of frames between the caller of the public API and violation.
func violation(depth int, format string, args ...any) {
	err := errors.New(format, args...)

	panic(errors.Wrap(err, "contract violation at %v", loc.Caller(depth+1)))
}
