package cpu

import (
	"fmt"

	"github.com/ezrec/lc3os/internal"
)

// CodeOp is the opcode held in the top 4 bits of an instruction.
type CodeOp int

//go:generate go tool stringer -linecomment -type=CodeOp
const (
	OP_BR   = CodeOp(0)  // br
	OP_ADD  = CodeOp(1)  // add
	OP_LD   = CodeOp(2)  // ld
	OP_ST   = CodeOp(3)  // st
	OP_JSR  = CodeOp(4)  // jsr
	OP_AND  = CodeOp(5)  // and
	OP_LDR  = CodeOp(6)  // ldr
	OP_STR  = CodeOp(7)  // str
	OP_RTI  = CodeOp(8)  // rti
	OP_NOT  = CodeOp(9)  // not
	OP_LDI  = CodeOp(10) // ldi
	OP_STI  = CodeOp(11) // sti
	OP_JMP  = CodeOp(12) // jmp
	OP_RES  = CodeOp(13) // res
	OP_LEA  = CodeOp(14) // lea
	OP_TRAP = CodeOp(15) // trap
)

// CodeTrap is a trap vector.
type CodeTrap int

//go:generate go tool stringer -linecomment -type=CodeTrap
const (
	TRAP_GETC   = CodeTrap(0x20) // getc
	TRAP_OUT    = CodeTrap(0x21) // out
	TRAP_PUTS   = CodeTrap(0x22) // puts
	TRAP_IN     = CodeTrap(0x23) // in
	TRAP_PUTSP  = CodeTrap(0x24) // putsp
	TRAP_HALT   = CodeTrap(0x25) // halt
	TRAP_INU16  = CodeTrap(0x26) // inu16
	TRAP_OUTU16 = CodeTrap(0x27) // outu16
	TRAP_YIELD  = CodeTrap(0x28) // yield
	TRAP_BRK    = CodeTrap(0x29) // brk
)

// TRAP_BASE is the first trap vector.
const TRAP_BASE = TRAP_GETC

// CodeCond is a set of condition flags.
type CodeCond uint16

const (
	COND_P = CodeCond(1 << 0) // Positive.
	COND_Z = CodeCond(1 << 1) // Zero.
	COND_N = CodeCond(1 << 2) // Negative.

	COND_NZP = COND_N | COND_Z | COND_P
)

func (cond CodeCond) String() (text string) {
	if cond&COND_N != 0 {
		text += "n"
	}
	if cond&COND_Z != 0 {
		text += "z"
	}
	if cond&COND_P != 0 {
		text += "p"
	}
	return
}

// Heap break request bits, passed in R0 to TRAP_BRK.
// The target page number occupies the top 5 bits.
const (
	BRK_ALLOC = 1 << 0 // Allocate when set, free when clear.
	BRK_READ  = 1 << 1 // Request a readable page.
	BRK_WRITE = 1 << 2 // Request a writable page.
)

// Code is a single 16-bit instruction word.
type Code uint16

// Op returns the opcode.
func (code Code) Op() CodeOp {
	return CodeOp(internal.Field(uint16(code), 12, 4))
}

// Dr returns the destination (or store source) register.
func (code Code) Dr() int {
	return int(internal.Field(uint16(code), 9, 3))
}

// Sr1 returns the first source register, also used as the base register.
func (code Code) Sr1() int {
	return int(internal.Field(uint16(code), 6, 3))
}

// Sr2 returns the second source register.
func (code Code) Sr2() int {
	return int(internal.Field(uint16(code), 0, 3))
}

// IsImm returns true if an ADD or AND uses the 5 bit immediate.
func (code Code) IsImm() bool {
	return internal.Field(uint16(code), 5, 1) != 0
}

// Imm5 returns the sign extended 5 bit immediate.
func (code Code) Imm5() uint16 {
	return internal.Sext(uint16(code), 5)
}

// Offset6 returns the sign extended 6 bit base offset.
func (code Code) Offset6() uint16 {
	return internal.Sext(uint16(code), 6)
}

// Offset9 returns the sign extended 9 bit PC offset.
func (code Code) Offset9() uint16 {
	return internal.Sext(uint16(code), 9)
}

// Offset11 returns the sign extended 11 bit PC offset.
func (code Code) Offset11() uint16 {
	return internal.Sext(uint16(code), 11)
}

// Cond returns the condition flags tested by BR.
func (code Code) Cond() CodeCond {
	return CodeCond(internal.Field(uint16(code), 9, 3))
}

// IsLong returns true if a JSR uses an 11 bit PC offset rather than a register.
func (code Code) IsLong() bool {
	return internal.Field(uint16(code), 11, 1) != 0
}

// Trap returns the trap vector.
func (code Code) Trap() CodeTrap {
	return CodeTrap(internal.Field(uint16(code), 0, 8))
}

func reg(r int) uint16 {
	return uint16(r & 7)
}

// MakeCodeReg creates an ADD or AND with a register operand.
func MakeCodeReg(op CodeOp, dr, sr1, sr2 int) Code {
	return Code(uint16(op)<<12 | reg(dr)<<9 | reg(sr1)<<6 | reg(sr2))
}

// MakeCodeImm creates an ADD or AND with an immediate operand.
func MakeCodeImm(op CodeOp, dr, sr1 int, imm5 int) Code {
	return Code(uint16(op)<<12 | reg(dr)<<9 | reg(sr1)<<6 | 1<<5 | uint16(imm5)&0x1f)
}

// MakeCodeNot creates a NOT.
func MakeCodeNot(dr, sr int) Code {
	return Code(uint16(OP_NOT)<<12 | reg(dr)<<9 | reg(sr)<<6 | 0x3f)
}

// MakeCodeBr creates a conditional branch.
func MakeCodeBr(cond CodeCond, offset9 int) Code {
	return Code(uint16(OP_BR)<<12 | uint16(cond&COND_NZP)<<9 | uint16(offset9)&0x1ff)
}

// MakeCodePc creates a PC relative LD, LDI, LEA, ST or STI.
func MakeCodePc(op CodeOp, r int, offset9 int) Code {
	return Code(uint16(op)<<12 | reg(r)<<9 | uint16(offset9)&0x1ff)
}

// MakeCodeBase creates a base relative LDR or STR.
func MakeCodeBase(op CodeOp, r, base int, offset6 int) Code {
	return Code(uint16(op)<<12 | reg(r)<<9 | reg(base)<<6 | uint16(offset6)&0x3f)
}

// MakeCodeJmp creates a JMP, or RET when base is R7.
func MakeCodeJmp(base int) Code {
	return Code(uint16(OP_JMP)<<12 | reg(base)<<6)
}

// MakeCodeJsr creates a PC relative subroutine call.
func MakeCodeJsr(offset11 int) Code {
	return Code(uint16(OP_JSR)<<12 | 1<<11 | uint16(offset11)&0x7ff)
}

// MakeCodeJsrr creates a register subroutine call.
func MakeCodeJsrr(base int) Code {
	return Code(uint16(OP_JSR)<<12 | reg(base)<<6)
}

// MakeCodeTrap creates a TRAP.
func MakeCodeTrap(vector CodeTrap) Code {
	return Code(uint16(OP_TRAP)<<12 | uint16(vector)&0xff)
}

// MakeCodeOp creates an operand-less opcode (RTI, RES).
func MakeCodeOp(op CodeOp) Code {
	return Code(uint16(op) << 12)
}

// String returns the assembly language representation of this instruction.
func (code Code) String() (out string) {
	op := code.Op()

	switch op {
	case OP_ADD, OP_AND:
		if code.IsImm() {
			out = fmt.Sprintf("%v r%d, r%d, #%d", op, code.Dr(), code.Sr1(), int16(code.Imm5()))
		} else {
			out = fmt.Sprintf("%v r%d, r%d, r%d", op, code.Dr(), code.Sr1(), code.Sr2())
		}
	case OP_NOT:
		out = fmt.Sprintf("%v r%d, r%d", op, code.Dr(), code.Sr1())
	case OP_BR:
		out = fmt.Sprintf("%v%v #%d", op, code.Cond(), int16(code.Offset9()))
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		out = fmt.Sprintf("%v r%d, #%d", op, code.Dr(), int16(code.Offset9()))
	case OP_LDR, OP_STR:
		out = fmt.Sprintf("%v r%d, r%d, #%d", op, code.Dr(), code.Sr1(), int16(code.Offset6()))
	case OP_JMP:
		if code.Sr1() == 7 {
			out = "ret"
		} else {
			out = fmt.Sprintf("%v r%d", op, code.Sr1())
		}
	case OP_JSR:
		if code.IsLong() {
			out = fmt.Sprintf("%v #%d", op, int16(code.Offset11()))
		} else {
			out = fmt.Sprintf("jsrr r%d", code.Sr1())
		}
	case OP_TRAP:
		out = fmt.Sprintf("%v %v", op, code.Trap())
	default:
		out = op.String()
	}

	return
}
