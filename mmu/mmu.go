// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package mmu implements paged address translation and the physical
// frame allocator.
//
// Each process owns a flat table of 32 PTEs. A virtual address is split
// into a 5 bit page number and an 11 bit offset. Pages 0..2 are reserved
// for the OS and can never be reached through a page table.
package mmu

import (
	"log"

	"github.com/ezrec/lc3os/memory"
)

// Access is the kind of memory access being translated.
type Access int

const (
	ACCESS_READ  = Access(0) // Load or instruction fetch.
	ACCESS_WRITE = Access(1) // Store.
)

// Mmu translates virtual addresses through the page tables held in
// physical memory.
type Mmu struct {
	Verbose bool           // If set, enables verbose logging.
	Memory  *memory.Memory // Physical memory holding the page tables.
}

// NewMmu creates a translator over a physical memory.
func NewMmu(mem *memory.Memory) *Mmu {
	return &Mmu{Memory: mem}
}

// Split divides a virtual address into page number and offset.
func Split(vaddr uint16) (vpn uint16, offset uint16) {
	vpn = vaddr >> memory.PAGE_SHIFT
	offset = vaddr & memory.PAGE_OFFSET_MASK
	return
}

// PTE reads the page table entry for vpn.
func (mmu *Mmu) PTE(ptbr, vpn uint16) PTE {
	return PTE(mmu.Memory.Read(ptbr + vpn))
}

func (mmu *Mmu) setPTE(ptbr, vpn uint16, pte PTE) {
	mmu.Memory.Write(ptbr+vpn, uint16(pte))
}

// Translate maps a virtual address to a physical address.
// The returned error is always a *Fault.
func (mmu *Mmu) Translate(ptbr, vaddr uint16, access Access) (paddr uint16, err error) {
	vpn, offset := Split(vaddr)

	fault := func(reason error) error {
		if mmu.Verbose {
			log.Printf("mmu: ptbr %#04x vaddr %#04x: %v", ptbr, vaddr, reason)
		}
		return &Fault{Ptbr: ptbr, Vaddr: vaddr, Err: reason}
	}

	if vpn < memory.RESERVED_PAGES {
		err = fault(ErrSegmentation)
		return
	}

	pte := mmu.PTE(ptbr, vpn)
	if !pte.Valid() {
		err = fault(ErrFreeSpace)
		return
	}

	switch access {
	case ACCESS_READ:
		if !pte.Readable() {
			err = fault(ErrNoRead)
			return
		}
	case ACCESS_WRITE:
		if !pte.Writable() {
			err = fault(ErrNoWrite)
			return
		}
	}

	paddr = memory.FrameAddr(pte.Frame()) | offset
	return
}

// Read loads a word from a virtual address.
func (mmu *Mmu) Read(ptbr, vaddr uint16) (value uint16, err error) {
	paddr, err := mmu.Translate(ptbr, vaddr, ACCESS_READ)
	if err != nil {
		return
	}

	value = mmu.Memory.Read(paddr)
	return
}

// Write stores a word to a virtual address.
func (mmu *Mmu) Write(ptbr, vaddr uint16, value uint16) (err error) {
	paddr, err := mmu.Translate(ptbr, vaddr, ACCESS_WRITE)
	if err != nil {
		return
	}

	mmu.Memory.Write(paddr, value)
	return
}
