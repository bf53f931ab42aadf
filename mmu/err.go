package mmu

import (
	"errors"

	"github.com/ezrec/lc3os/translate"
)

var f = translate.From

var (
	// Translation faults. These stop the whole machine.
	ErrSegmentation = errors.New(f("Segmentation fault."))
	ErrFreeSpace    = errors.New(f("Segmentation fault inside free space."))
	ErrNoRead       = errors.New(f("Cannot read the page."))
	ErrNoWrite      = errors.New(f("Cannot write to a read-only page."))

	// Allocation failures. These are reported to the caller.
	ErrPageMapped   = errors.New(f("page already allocated"))
	ErrPageUnmapped = errors.New(f("page not allocated"))
	ErrNoFreeFrame  = errors.New(f("no free page frames"))
)

// Fault is an address translation failure.
type Fault struct {
	Ptbr  uint16 // Page table in use.
	Vaddr uint16 // Faulting virtual address.
	Err   error  // One of the translation fault errors.
}

func (err *Fault) Error() string {
	return err.Err.Error()
}

func (err *Fault) Unwrap() error {
	return err.Err
}
