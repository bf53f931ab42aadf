package emulator

import (
	"github.com/ezrec/lc3os/translate"
)

var f = translate.From

// ErrRuntime indicates the process and address of a runtime error.
type ErrRuntime struct {
	Pid    uint16 // Process running when the error occurred.
	Pc     uint16 // Address of the failing instruction.
	LineNo int    // Source line, if the process was assembled.
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo > 0 {
		return f("pid %d pc %#04x line %d: %v", err.Pid, err.Pc, err.LineNo, err.Err)
	}
	return f("pid %d pc %#04x: %v", err.Pid, err.Pc, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
