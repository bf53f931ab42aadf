package mmu

import (
	"fmt"

	"github.com/ezrec/lc3os/memory"
)

// PTE is a page table entry.
type PTE uint16

const (
	PTE_VALID PTE = 1 << 0 // Page is mapped.
	PTE_READ  PTE = 1 << 1 // Page is readable.
	PTE_WRITE PTE = 1 << 2 // Page is writable.

	PTE_FRAME_SHIFT = memory.PAGE_SHIFT // PFN lives in the top 5 bits.
)

// MakePTE creates a valid PTE for a frame.
func MakePTE(pfn uint16, read, write bool) (pte PTE) {
	pte = PTE(pfn<<PTE_FRAME_SHIFT) | PTE_VALID
	if read {
		pte |= PTE_READ
	}
	if write {
		pte |= PTE_WRITE
	}
	return
}

// Valid returns true if the PTE maps a frame.
func (pte PTE) Valid() bool {
	return (pte & PTE_VALID) != 0
}

// Readable returns true if loads are permitted.
func (pte PTE) Readable() bool {
	return (pte & PTE_READ) != 0
}

// Writable returns true if stores are permitted.
func (pte PTE) Writable() bool {
	return (pte & PTE_WRITE) != 0
}

// Frame returns the physical frame number.
func (pte PTE) Frame() uint16 {
	return uint16(pte) >> PTE_FRAME_SHIFT
}

func (pte PTE) String() string {
	flags := []byte("---")
	if pte.Valid() {
		flags[0] = 'v'
	}
	if pte.Readable() {
		flags[1] = 'r'
	}
	if pte.Writable() {
		flags[2] = 'w'
	}
	return fmt.Sprintf("%s:%d", flags, pte.Frame())
}
