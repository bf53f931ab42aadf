// Package cpu implements the processor and assembler for the LC-3 machine.
//
// The CPU consists of a program counter (PC), eight 16-bit general-purpose
// registers (r0-r7), the N/Z/P condition flags and a page table base
// register (PTBR). Every memory access, including instruction fetch, goes
// through the MMU using the current PTBR. TRAP instructions are handed to
// a Trapper, which is the operating system.
//
// The assembler accepts the classic LC-3 assembly language, with labels,
// equates, and compile-time $(...) expression evaluation.
package cpu
