// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator assembles a complete LC-3 machine from its parts and
// runs it.
package emulator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"

	"github.com/ezrec/lc3os/console"
	"github.com/ezrec/lc3os/cpu"
	"github.com/ezrec/lc3os/kernel"
	"github.com/ezrec/lc3os/memory"
)

// TraceEntry describes an instruction about to be executed.
type TraceEntry struct {
	Pid  uint16   // Current process.
	Pc   uint16   // Virtual address of the instruction.
	Code cpu.Code // Instruction word.
}

// Emulator state. Memory + CPU + kernel + console.
type Emulator struct {
	Verbose  bool             // If set, enables verbose logging.
	*cpu.Cpu                  // Reference to the CPU simulation.
	Kernel   *kernel.Kernel   // Operating system.
	Console  *console.Console // Console device.

	// Tracer, if set, is called before every instruction.
	Tracer func(entry TraceEntry)

	// Program listings of assembled processes, by pid.
	programs map[uint16]*cpu.Program
}

// NewEmulator creates a new emulator with a freshly booted memory.
func NewEmulator(input io.Reader, output io.Writer) (emu *Emulator) {
	emu = &Emulator{
		Cpu:      cpu.NewCpu(memory.NewMemory()),
		Console:  console.NewConsole(input, output),
		programs: map[uint16]*cpu.Program{},
	}

	emu.Kernel = kernel.NewKernel(emu.Cpu, emu.Console)
	emu.Kernel.Boot()

	return
}

func (emu *Emulator) setVerbose() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Mmu.Verbose = emu.Verbose
	emu.Kernel.Verbose = emu.Verbose
}

// Reset reboots the machine, discarding every process.
func (emu *Emulator) Reset() {
	emu.setVerbose()
	emu.Kernel.Boot()
	clear(emu.programs)
}

// Create creates a process from a code and a heap image.
func (emu *Emulator) Create(code, heap io.Reader) (pid uint16, err error) {
	emu.setVerbose()
	return emu.Kernel.Create(code, heap)
}

// CreateFromFiles creates a process from a code and a heap image file.
func (emu *Emulator) CreateFromFiles(codePath, heapPath string) (pid uint16, err error) {
	emu.setVerbose()
	return emu.Kernel.CreateFromFiles(codePath, heapPath)
}

// CreateProgram creates a process from an assembled code program, and
// keeps its listing for runtime error reports.
func (emu *Emulator) CreateProgram(prog *cpu.Program, heap io.Reader) (pid uint16, err error) {
	var code bytes.Buffer
	err = prog.Marshal(&code, emu.Kernel.ByteOrder)
	if err != nil {
		return
	}

	pid, err = emu.Create(&code, heap)
	if err != nil {
		return
	}

	emu.programs[pid] = prog
	return
}

// Start sets the lowest numbered live process running.
func (emu *Emulator) Start() (err error) {
	emu.setVerbose()
	return emu.Kernel.Start()
}

// Pid returns the current process.
func (emu *Emulator) Pid() uint16 {
	return emu.Cpu.Memory().CurrentPid()
}

// Ticks returns the total instructions executed since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// LineNo returns the source line of the instruction at the PC, or 0 if
// the current process was not assembled.
func (emu *Emulator) LineNo() int {
	prog, ok := emu.programs[emu.Pid()]
	if !ok {
		return 0
	}

	dbg := prog.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator.
// done is set once the last process has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	emu.setVerbose()

	pid := emu.Pid()
	pc := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Pid: pid, Pc: pc, LineNo: lineno, Err: err}
		}
	}()

	if emu.Tracer != nil && emu.Cpu.Running {
		word, rerr := emu.Cpu.Read(pc)
		if rerr == nil {
			emu.Tracer(TraceEntry{Pid: pid, Pc: pc, Code: cpu.Code(word)})
		}
	}

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrHalted) {
		err = nil
		done = true
		return
	}
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: pid %d: %v", pid, emu.Cpu)
	}

	done = !emu.Cpu.Running
	return
}

// Run ticks the emulator until every process has halted, an error
// occurs, or the context is done.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	for {
		err = ctx.Err()
		if err != nil {
			return
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}
