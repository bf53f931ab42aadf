package kernel

import (
	"errors"

	"github.com/ezrec/lc3os/translate"
)

var f = translate.From

var (
	// Process manager failures. The machine keeps running.
	ErrProcessTableFull = errors.New(f("process table full"))
	ErrCodeSegment      = errors.New(f("cannot create code segment"))
	ErrHeapSegment      = errors.New(f("cannot create heap segment"))
	ErrReservedPage     = errors.New(f("reserved page"))
	ErrNoProcess        = errors.New(f("no runnable process"))
)

// ErrImage is a process image that could not be opened.
type ErrImage struct {
	Path string
	Err  error
}

func (err *ErrImage) Error() string {
	return f("Cannot open file %s.", err.Path)
}

func (err *ErrImage) Unwrap() error {
	return err.Err
}
