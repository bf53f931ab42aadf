// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"log"

	"github.com/ezrec/lc3os/memory"
	"github.com/ezrec/lc3os/mmu"
)

// Trapper services TRAP instructions.
type Trapper interface {
	// Trap is called with the PC already past the TRAP instruction.
	Trap(cpu *Cpu, vector CodeTrap) (err error)
}

// Cpu is the simulation context for the LC-3 processor.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Mmu     *mmu.Mmu // Address translation for every memory access.
	Trapper Trapper  // Handler for TRAP instructions.

	Register [8]uint16 // Register bank.
	Pc       uint16    // Program counter.
	Cond     CodeCond  // Condition flags; exactly one of N, Z, P.
	Ptbr     uint16    // Page table base register.

	Running bool // Cleared when the last process halts.
	Ticks   int  // Instructions executed since reset.
}

// NewCpu creates a new CPU attached to physical memory.
func NewCpu(mem *memory.Memory) (cpu *Cpu) {
	cpu = &Cpu{
		Mmu: mmu.NewMmu(mem),
	}

	cpu.Reset()

	return
}

// Memory returns the physical memory behind the MMU.
func (cpu *Cpu) Memory() *memory.Memory {
	return cpu.Mmu.Memory
}

// Reset the CPU state.
// - Clears the registers.
// - Zeros statistics counters.
// - Sets the PC to the program entry and the flags to Z.
// - Marks the machine running.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Pc = memory.PC_START
	cpu.Cond = COND_Z
	cpu.Ptbr = 0
	cpu.Ticks = 0
	cpu.Running = true
}

// Stop clears the running flag. No further instructions are fetched.
func (cpu *Cpu) Stop() {
	if cpu.Verbose {
		log.Printf("cpu: stop")
	}
	cpu.Running = false
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("%5s: %04X\n", "pc", cpu.Pc)
	text += fmt.Sprintf("%5s: %v\n", "cond", cpu.Cond)
	text += fmt.Sprintf("%5s: %04X\n", "ptbr", cpu.Ptbr)
	for n, val := range cpu.Register {
		text += fmt.Sprintf("%5s: %04X\n", fmt.Sprintf("r%d", n), val)
	}

	return
}

// SetCond sets the condition flags from a result value.
func (cpu *Cpu) SetCond(value uint16) {
	switch {
	case value == 0:
		cpu.Cond = COND_Z
	case value&0x8000 != 0:
		cpu.Cond = COND_N
	default:
		cpu.Cond = COND_P
	}
}

// setRegister writes a register and updates the condition flags.
func (cpu *Cpu) setRegister(r int, value uint16) {
	cpu.Register[r] = value
	cpu.SetCond(value)
}

// Read loads a word from the current address space.
func (cpu *Cpu) Read(vaddr uint16) (value uint16, err error) {
	return cpu.Mmu.Read(cpu.Ptbr, vaddr)
}

// Write stores a word to the current address space.
func (cpu *Cpu) Write(vaddr uint16, value uint16) (err error) {
	return cpu.Mmu.Write(cpu.Ptbr, vaddr, value)
}

// FetchCode fetches the instruction at the PC, and advances the PC.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	if !cpu.Running {
		err = ErrHalted
		return
	}

	word, err := cpu.Read(cpu.Pc)
	if err != nil {
		return
	}

	code = Code(word)
	cpu.Pc++

	return
}

// Tick executes a single CPU instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	cpu.Mmu.Verbose = cpu.Verbose

	code, err := cpu.FetchCode()
	if err != nil {
		return
	}

	err = cpu.Execute(code)
	if err != nil {
		return
	}

	cpu.Ticks++

	return
}

// Execute executes a single decoded instruction.
// The PC must already point past the instruction.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code), err)
		}
	}()

	if cpu.Verbose {
		log.Printf("cpu: %04x: %v", cpu.Pc-1, code)
	}

	reg := &cpu.Register

	switch code.Op() {
	case OP_BR:
		if cpu.Cond&code.Cond() != 0 {
			cpu.Pc += code.Offset9()
		}
	case OP_ADD:
		value := reg[code.Sr2()]
		if code.IsImm() {
			value = code.Imm5()
		}
		cpu.setRegister(code.Dr(), reg[code.Sr1()]+value)
	case OP_AND:
		value := reg[code.Sr2()]
		if code.IsImm() {
			value = code.Imm5()
		}
		cpu.setRegister(code.Dr(), reg[code.Sr1()]&value)
	case OP_NOT:
		cpu.setRegister(code.Dr(), ^reg[code.Sr1()])
	case OP_LD:
		var value uint16
		value, err = cpu.Read(cpu.Pc + code.Offset9())
		if err != nil {
			return
		}
		cpu.setRegister(code.Dr(), value)
	case OP_LDI:
		var addr, value uint16
		addr, err = cpu.Read(cpu.Pc + code.Offset9())
		if err != nil {
			return
		}
		value, err = cpu.Read(addr)
		if err != nil {
			return
		}
		cpu.setRegister(code.Dr(), value)
	case OP_LDR:
		var value uint16
		value, err = cpu.Read(reg[code.Sr1()] + code.Offset6())
		if err != nil {
			return
		}
		cpu.setRegister(code.Dr(), value)
	case OP_LEA:
		cpu.setRegister(code.Dr(), cpu.Pc+code.Offset9())
	case OP_ST:
		err = cpu.Write(cpu.Pc+code.Offset9(), reg[code.Dr()])
	case OP_STI:
		var addr uint16
		addr, err = cpu.Read(cpu.Pc + code.Offset9())
		if err != nil {
			return
		}
		err = cpu.Write(addr, reg[code.Dr()])
	case OP_STR:
		err = cpu.Write(reg[code.Sr1()]+code.Offset6(), reg[code.Dr()])
	case OP_JMP:
		cpu.Pc = reg[code.Sr1()]
	case OP_JSR:
		link := cpu.Pc
		if code.IsLong() {
			cpu.Pc += code.Offset11()
		} else {
			cpu.Pc = reg[code.Sr1()]
		}
		reg[7] = link
	case OP_TRAP:
		vector := code.Trap()
		if vector < TRAP_BASE || vector > TRAP_BRK {
			err = ErrTrapInvalid
			return
		}
		if cpu.Trapper == nil {
			err = ErrTrapMissing
			return
		}
		err = cpu.Trapper.Trap(cpu, vector)
	case OP_RTI, OP_RES:
		// Reserved; no operation.
	}

	return
}
