package emulator

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3os/cpu"
	"github.com/ezrec/lc3os/memory"
	"github.com/ezrec/lc3os/mmu"
)

func newTestEmulator(input string) (emu *Emulator, out *bytes.Buffer) {
	out = &bytes.Buffer{}
	emu = NewEmulator(strings.NewReader(input), out)
	return
}

func assemble(t *testing.T, lines ...string) *cpu.Program {
	asm := &cpu.Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("%v", err)
	}
	return prog
}

func words(codes ...cpu.Code) *bytes.Reader {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, codes)
	return bytes.NewReader(buf.Bytes())
}

func empty() *bytes.Reader {
	return bytes.NewReader(nil)
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu, _ := newTestEmulator("")

	assert.False(emu.Verbose)
	assert.Same(emu.Kernel, emu.Cpu.Trapper)
	assert.Equal(uint16(memory.NO_PID), emu.Pid())

	// Nothing to run.
	assert.Error(emu.Start())
	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)
}

func trace(emu *Emulator) *[]TraceEntry {
	entries := &[]TraceEntry{}
	emu.Tracer = func(entry TraceEntry) {
		*entries = append(*entries, entry)
	}
	return entries
}

func TestInterleave(t *testing.T) {
	assert := assert.New(t)

	emu, out := newTestEmulator("")
	entries := trace(emu)

	add := cpu.MakeCodeImm(cpu.OP_ADD, 1, 1, 1)
	yield := cpu.MakeCodeTrap(cpu.TRAP_YIELD)
	halt := cpu.MakeCodeTrap(cpu.TRAP_HALT)

	pid, err := emu.Create(words(add, yield, add, halt), empty())
	assert.NoError(err)
	assert.Equal(uint16(0), pid)

	pid, err = emu.Create(words(halt), empty())
	assert.NoError(err)
	assert.Equal(uint16(1), pid)

	assert.NoError(emu.Start())
	assert.NoError(emu.Run(context.Background()))

	assert.Equal([]TraceEntry{
		{0, 0x3000, add},
		{0, 0x3001, yield},
		{1, 0x3000, halt},
		{0, 0x3002, add},
		{0, 0x3003, halt},
	}, *entries)
	assert.Equal("We are switching from process 0 to 1.\n", out.String())

	// Registers are shared between processes.
	assert.Equal(uint16(2), emu.Cpu.Register[1])
	assert.Equal(5, emu.Ticks())
	assert.False(emu.Cpu.Running)
}

func TestInterleaveBothYield(t *testing.T) {
	assert := assert.New(t)

	emu, out := newTestEmulator("")
	entries := trace(emu)

	yield := cpu.MakeCodeTrap(cpu.TRAP_YIELD)
	halt := cpu.MakeCodeTrap(cpu.TRAP_HALT)

	for range 2 {
		_, err := emu.Create(words(yield, halt), empty())
		assert.NoError(err)
	}

	assert.NoError(emu.Start())
	assert.NoError(emu.Run(context.Background()))

	assert.Equal([]TraceEntry{
		{0, 0x3000, yield},
		{1, 0x3000, yield},
		{0, 0x3001, halt},
		{1, 0x3001, halt},
	}, *entries)
	assert.Equal("We are switching from process 0 to 1.\n"+
		"We are switching from process 1 to 0.\n", out.String())
}

func TestBrkExhausted(t *testing.T) {
	assert := assert.New(t)

	emu, out := newTestEmulator("")

	prog := assemble(t,
		".orig x3000",
		"      ld r0, REQ1",
		"      brk",
		"      ld r0, REQ2",
		"      brk",
		"      ld r1, ADDR",
		"      and r2, r2, #0",
		"      add r2, r2, #7",
		"      str r2, r1, #0",
		"      ldr r0, r1, #0",
		"      outu16",
		"      halt",
		"REQ1  .fill x5007",
		"REQ2  .fill x5807",
		"ADDR  .fill x5000",
	)

	pid, err := emu.CreateProgram(prog, empty())
	assert.NoError(err)
	assert.Equal(uint16(0), pid)

	// Six more processes leave a single free frame.
	for range 6 {
		_, err = emu.Create(words(cpu.MakeCodeTrap(cpu.TRAP_HALT)), empty())
		assert.NoError(err)
	}
	assert.Equal(1, emu.Cpu.Mmu.FreeFrames())

	assert.NoError(emu.Start())
	assert.NoError(emu.Run(context.Background()))

	assert.Equal("Heap increase requested by process 0.\n"+
		"Heap increase requested by process 0.\n"+
		"Cannot allocate more space for pid 0 since there is no free page frames.\n"+
		"7\n", out.String())

	assert.Equal(29, emu.Cpu.Mmu.FreeFrames())
}

func TestCreateHaltRoundTrip(t *testing.T) {
	assert := assert.New(t)

	emu, _ := newTestEmulator("")
	mem := emu.Cpu.Memory()

	bitmap := [2]uint16{mem.Read(memory.ADDR_FREE_BITMAP), mem.Read(memory.ADDR_FREE_BITMAP + 1)}

	_, err := emu.Create(words(cpu.MakeCodeTrap(cpu.TRAP_HALT)), words(1, 2, 3))
	assert.NoError(err)
	assert.Equal(25, emu.Cpu.Mmu.FreeFrames())

	assert.NoError(emu.Start())
	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)

	assert.Equal(bitmap[0], mem.Read(memory.ADDR_FREE_BITMAP))
	assert.Equal(bitmap[1], mem.Read(memory.ADDR_FREE_BITMAP+1))
	assert.True(mem.Pcb(0).Terminated())
	assert.Equal(0, emu.Cpu.Mmu.Mapped(memory.PageTableAddr(0)))

	// Further ticks stay done.
	done, err = emu.Tick()
	assert.NoError(err)
	assert.True(done)
}

func TestFault(t *testing.T) {
	assert := assert.New(t)

	emu, _ := newTestEmulator("")

	prog := assemble(t,
		".orig x3000",
		"      add r0, r0, #1",
		"HERE  st r0, HERE",
		"      halt",
	)

	_, err := emu.CreateProgram(prog, empty())
	assert.NoError(err)
	assert.NoError(emu.Start())

	err = emu.Run(context.Background())
	assert.ErrorIs(err, mmu.ErrNoWrite)

	var rerr *ErrRuntime
	if assert.ErrorAs(err, &rerr) {
		assert.Equal(uint16(0), rerr.Pid)
		assert.Equal(uint16(0x3001), rerr.Pc)
		assert.Equal(3, rerr.LineNo)
	}

	var fault *mmu.Fault
	if assert.ErrorAs(err, &fault) {
		assert.Equal("Cannot write to a read-only page.", fault.Error())
		assert.Equal(uint16(0x3001), fault.Vaddr)
	}
}

func TestRunCanceled(t *testing.T) {
	assert := assert.New(t)

	emu, _ := newTestEmulator("")

	// Spin forever.
	_, err := emu.Create(words(cpu.MakeCodeBr(cpu.COND_NZP, -1)), empty())
	assert.NoError(err)
	assert.NoError(emu.Start())

	ctx, cancel := context.WithCancel(context.Background())
	emu.Tracer = func(entry TraceEntry) {
		if emu.Ticks() == 100 {
			cancel()
		}
	}

	err = emu.Run(ctx)
	assert.ErrorIs(err, context.Canceled)
	assert.True(emu.Cpu.Running)
	assert.Equal(101, emu.Ticks())
}

func TestConsoleEcho(t *testing.T) {
	assert := assert.New(t)

	emu, out := newTestEmulator("hi")

	prog := assemble(t,
		".orig x3000",
		"LOOP  getc",
		"      brn DONE",
		"      out",
		"      br LOOP",
		"DONE  lea r0, MSG",
		"      puts",
		"      halt",
		"MSG   .stringz \"!\\n\"",
	)

	_, err := emu.CreateProgram(prog, empty())
	assert.NoError(err)
	assert.NoError(emu.Start())
	assert.NoError(emu.Run(context.Background()))

	assert.Equal("hi!\n", out.String())
}
