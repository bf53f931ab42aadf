// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package memory implements the physical memory of the emulated machine.
//
// The machine has no separate kernel address space, so every operating
// system structure (bookkeeping words, frame bitmap, PCB table and page
// tables) lives at a fixed physical offset. The accessors in this package
// are the only place those offsets are spelled out.
package memory

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	MEMORY_SIZE = 1 << 16 // Words of physical memory.

	PAGE_SHIFT       = 11              // Bits of in-page offset.
	PAGE_SIZE        = 1 << PAGE_SHIFT // Words per page and per frame.
	PAGE_OFFSET_MASK = PAGE_SIZE - 1   // Mask of the in-page offset.

	FRAME_COUNT        = MEMORY_SIZE / PAGE_SIZE // Physical frames.
	PAGE_TABLE_ENTRIES = 32                      // PTEs per process.
	RESERVED_PAGES     = 3                       // Virtual pages 0..2 belong to the OS.
	RESERVED_FRAMES    = 3                       // Physical frames 0..2 belong to the OS.
)

// Bookkeeping word addresses.
const (
	ADDR_CUR_PROC        = 0      // Current running pid.
	ADDR_PROC_COUNT      = 1      // Processes ever created, and the next pid.
	ADDR_OS_STATUS       = 2      // OS status flags.
	ADDR_FREE_BITMAP     = 3      // Two words of free frame bitmap.
	ADDR_PCB_BASE        = 12     // First PCB.
	ADDR_PAGE_TABLE_BASE = 0x1000 // First page table.
)

// Process control block layout.
const (
	PCB_SIZE = 3 // Words per PCB.
	PCB_PID  = 0 // Pid, or NO_PID when terminated.
	PCB_PC   = 1 // Saved program counter.
	PCB_PTBR = 2 // Saved page table base register.

	MAX_PROCESS = 64     // Process slots.
	NO_PID      = 0xffff // Sentinel pid for a terminated slot.
)

// OS status flags.
const (
	STATUS_PCB_FULL = 1 << 0 // The PCB table is exhausted.
)

// Process image layout.
const (
	PC_START   = 0x3000 // Entry point of every process.
	CODE_PAGE  = 6      // First code page.
	CODE_PAGES = 2      // Code segment size in pages.
	HEAP_PAGE  = 8      // First heap page.
	HEAP_PAGES = 2      // Initial heap size in pages.
	HEAP_START = HEAP_PAGE << PAGE_SHIFT
)

// Memory is the flat physical memory of the machine.
type Memory struct {
	Word [MEMORY_SIZE]uint16
}

// NewMemory creates a zeroed memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Reset zeros all of memory.
func (mem *Memory) Reset() {
	clear(mem.Word[:])
}

// Read reads a physical word.
func (mem *Memory) Read(addr uint16) uint16 {
	return mem.Word[addr]
}

// Write writes a physical word.
func (mem *Memory) Write(addr uint16, value uint16) {
	mem.Word[addr] = value
}

// FrameAddr returns the physical address of the first word of a frame.
func FrameAddr(pfn uint16) uint16 {
	return pfn << PAGE_SHIFT
}

// Load copies an image of 16-bit words from input into memory.
//
// The image is split into chunks of at most one page, and chunk n is
// written starting at offsets[n]. Loading stops early, without error,
// when the input runs out.
func (mem *Memory) Load(input io.Reader, order binary.ByteOrder, offsets []uint16, size int) (err error) {
	buf := make([]byte, PAGE_SIZE*2)
	for s := 0; s < size; s += PAGE_SIZE {
		page := s / PAGE_SIZE
		if page >= len(offsets) {
			return
		}

		count := min(size-s, PAGE_SIZE)

		var n int
		n, err = io.ReadFull(input, buf[:count*2])
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = nil
		}
		if err != nil {
			return
		}

		base := offsets[page]
		for w := range n / 2 {
			mem.Word[base+uint16(w)] = order.Uint16(buf[w*2:])
		}

		if n < count*2 {
			return
		}
	}

	return
}
