package mmu

import (
	"log"

	"github.com/ezrec/lc3os/memory"
)

// Allocate maps vpn of the page table at ptbr to the lowest numbered free
// frame.
//
// The target PTE must be invalid; ErrPageMapped is returned otherwise.
// ErrNoFreeFrame is returned when every frame is in use. Neither failure
// modifies the bitmap or the page table.
func (mmu *Mmu) Allocate(ptbr, vpn uint16, read, write bool) (err error) {
	if mmu.PTE(ptbr, vpn).Valid() {
		err = ErrPageMapped
		return
	}

	mem := mmu.Memory
	for pfn := range uint16(memory.FRAME_COUNT) {
		if !mem.FrameFree(pfn) {
			continue
		}

		mem.SetFrameFree(pfn, false)
		mmu.setPTE(ptbr, vpn, MakePTE(pfn, read, write))

		if mmu.Verbose {
			log.Printf("mmu: ptbr %#04x vpn %d -> frame %d", ptbr, vpn, pfn)
		}
		return
	}

	err = ErrNoFreeFrame
	return
}

// Free releases the frame mapped at vpn of the page table at ptbr.
//
// ErrPageUnmapped is returned if the PTE is already invalid. Only the
// valid bit is cleared; the stale permission and frame bits are
// unreachable once the page is invalid.
func (mmu *Mmu) Free(ptbr, vpn uint16) (err error) {
	pte := mmu.PTE(ptbr, vpn)
	if !pte.Valid() {
		err = ErrPageUnmapped
		return
	}

	mmu.Memory.SetFrameFree(pte.Frame(), true)
	mmu.setPTE(ptbr, vpn, pte&^PTE_VALID)

	if mmu.Verbose {
		log.Printf("mmu: ptbr %#04x vpn %d <- frame %d", ptbr, vpn, pte.Frame())
	}

	return
}

// FrameFree returns true if the bitmap marks pfn free.
func (mmu *Mmu) FrameFree(pfn uint16) bool {
	return mmu.Memory.FrameFree(pfn)
}

// FreeFrames returns the number of free frames.
func (mmu *Mmu) FreeFrames() (count int) {
	for pfn := range uint16(memory.FRAME_COUNT) {
		if mmu.Memory.FrameFree(pfn) {
			count++
		}
	}
	return
}

// Mapped returns the number of valid PTEs in the page table at ptbr.
func (mmu *Mmu) Mapped(ptbr uint16) (count int) {
	for vpn := range uint16(memory.PAGE_TABLE_ENTRIES) {
		if mmu.PTE(ptbr, vpn).Valid() {
			count++
		}
	}
	return
}
