// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package kernel implements the operating system of the LC-3 machine:
// process creation, the cooperative scheduler, and the trap handlers.
//
// All kernel state lives in physical memory (see package memory). The
// kernel itself only holds references to the devices it drives.
package kernel

import (
	"encoding/binary"
	"errors"
	"io"
	"log"
	"os"

	"golang.org/x/text/message"

	"github.com/ezrec/lc3os/console"
	"github.com/ezrec/lc3os/cpu"
	"github.com/ezrec/lc3os/memory"
)

// Kernel is the operating system state.
type Kernel struct {
	Verbose   bool             // If set, enables verbose logging.
	Cpu       *cpu.Cpu         // Processor, and through it the MMU and memory.
	Console   *console.Console // Console device for traps and diagnostics.
	ByteOrder binary.ByteOrder // Word order of process images.
}

// NewKernel creates a kernel driving a cpu and console, and installs it as
// the cpu's trap handler.
func NewKernel(c *cpu.Cpu, con *console.Console) (k *Kernel) {
	k = &Kernel{
		Cpu:       c,
		Console:   con,
		ByteOrder: binary.LittleEndian,
	}

	c.Trapper = k

	return
}

func (k *Kernel) memory() *memory.Memory {
	return k.Cpu.Memory()
}

// diag writes an operating system diagnostic to the console.
func (k *Kernel) diag(key message.Reference, args ...any) {
	err := k.Console.Diag(key, args...)
	if err != nil && k.Verbose {
		log.Printf("kernel: console: %v", err)
	}
}

// Boot clears physical memory and writes the initial OS bookkeeping.
func (k *Kernel) Boot() {
	if k.Verbose {
		log.Printf("kernel: boot")
	}

	mem := k.memory()
	mem.Reset()
	mem.Boot()
	k.Cpu.Reset()
}

// Pcb returns the process control block of pid.
func (k *Kernel) Pcb(pid uint16) memory.Pcb {
	return k.memory().Pcb(pid)
}

// Live returns the pids of all processes that have not terminated.
func (k *Kernel) Live() (pids []uint16) {
	mem := k.memory()
	for pid := range mem.ProcessCount() {
		if !mem.Pcb(pid).Terminated() {
			pids = append(pids, pid)
		}
	}
	return
}

// CreateFromFiles creates a process from a code and a heap image file.
// Both files are opened before any memory is touched.
func (k *Kernel) CreateFromFiles(codePath, heapPath string) (pid uint16, err error) {
	pid = memory.NO_PID

	code, err := os.Open(codePath)
	if err != nil {
		err = &ErrImage{Path: codePath, Err: err}
		return
	}
	defer code.Close()

	heap, err := os.Open(heapPath)
	if err != nil {
		err = &ErrImage{Path: heapPath, Err: err}
		return
	}
	defer heap.Close()

	return k.Create(code, heap)
}

// Create builds a new process from a code and a heap image.
//
// The process gets two read-only code pages at PC_START and two
// read-write heap pages at HEAP_START. On failure every page already
// allocated is released, the PCB is marked terminated, and NO_PID is
// returned. The pid is not reused.
func (k *Kernel) Create(code, heap io.Reader) (pid uint16, err error) {
	mem := k.memory()

	pid = mem.ProcessCount()
	if mem.Status()&memory.STATUS_PCB_FULL != 0 || pid >= memory.MAX_PROCESS {
		k.diag("The OS memory region is full. Cannot create a new PCB.")
		mem.SetStatus(mem.Status() | memory.STATUS_PCB_FULL)
		pid = memory.NO_PID
		err = ErrProcessTableFull
		return
	}

	mem.SetProcessCount(pid + 1)

	ptbr := memory.PageTableAddr(pid)
	mem.SetPcb(pid, memory.Pcb{Pid: pid, Pc: memory.PC_START, Ptbr: ptbr})

	defer func() {
		if err == nil {
			return
		}
		for vpn := range uint16(memory.PAGE_TABLE_ENTRIES) {
			_ = k.Cpu.Mmu.Free(ptbr, vpn)
		}
		mem.SetPcb(pid, memory.Pcb{Pid: memory.NO_PID, Pc: memory.PC_START, Ptbr: ptbr})
		if k.Verbose {
			log.Printf("kernel: pid %d: %v", pid, err)
		}
		pid = memory.NO_PID
	}()

	err = k.segment(ptbr, memory.CODE_PAGE, memory.CODE_PAGES, false, code)
	if err != nil {
		k.diag("Cannot create code segment.")
		err = errors.Join(ErrCodeSegment, err)
		return
	}

	err = k.segment(ptbr, memory.HEAP_PAGE, memory.HEAP_PAGES, true, heap)
	if err != nil {
		k.diag("Cannot create heap segment.")
		err = errors.Join(ErrHeapSegment, err)
		return
	}

	if k.Verbose {
		log.Printf("kernel: pid %d: created, ptbr %#04x", pid, ptbr)
	}

	return
}

// segment maps pages starting at vpn, and loads an image into them.
func (k *Kernel) segment(ptbr, vpn uint16, pages int, write bool, image io.Reader) (err error) {
	offsets := make([]uint16, pages)
	for n := range pages {
		page := vpn + uint16(n)
		err = k.Cpu.Mmu.Allocate(ptbr, page, true, write)
		if err != nil {
			return
		}
		offsets[n] = memory.FrameAddr(k.Cpu.Mmu.PTE(ptbr, page).Frame())
	}

	err = k.memory().Load(image, k.ByteOrder, offsets, pages*memory.PAGE_SIZE)
	return
}

// Load makes pid the current process.
func (k *Kernel) Load(pid uint16) {
	pcb := k.Pcb(pid)

	k.Cpu.Pc = pcb.Pc
	k.Cpu.Ptbr = pcb.Ptbr
	k.memory().SetCurrentPid(pid)

	if k.Verbose {
		log.Printf("kernel: load pid %d, pc %#04x", pid, pcb.Pc)
	}
}

// Start loads the lowest numbered live process and sets the machine
// running. ErrNoProcess is returned if there is nothing to run.
func (k *Kernel) Start() (err error) {
	live := k.Live()
	if len(live) == 0 {
		k.Cpu.Stop()
		err = ErrNoProcess
		return
	}

	k.Load(live[0])
	k.Cpu.Running = true

	return
}
