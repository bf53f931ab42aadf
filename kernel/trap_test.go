package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3os/console"
	"github.com/ezrec/lc3os/cpu"
	"github.com/ezrec/lc3os/memory"
	"github.com/ezrec/lc3os/mmu"
)

func TestTrapConsole(t *testing.T) {
	assert := assert.New(t)

	k, out := newTestKernel("ab 123 x")
	c := k.Cpu
	_, err := k.Create(empty(), empty())
	assert.NoError(err)
	assert.NoError(k.Start())

	assert.NoError(k.Trap(c, cpu.TRAP_GETC))
	assert.Equal(uint16('a'), c.Register[0])
	assert.Equal(cpu.COND_P, c.Cond)
	assert.Empty(out.String())

	assert.NoError(k.Trap(c, cpu.TRAP_IN))
	assert.Equal(uint16('b'), c.Register[0])
	assert.Equal("b", out.String())

	assert.NoError(k.Trap(c, cpu.TRAP_INU16))
	assert.Equal(uint16(123), c.Register[0])

	// Unparseable input leaves R0 alone.
	assert.NoError(k.Trap(c, cpu.TRAP_INU16))
	assert.Equal(uint16(123), c.Register[0])

	out.Reset()
	assert.NoError(k.Trap(c, cpu.TRAP_OUTU16))
	assert.Equal("123\n", out.String())

	out.Reset()
	c.Register[0] = 'Z'
	assert.NoError(k.Trap(c, cpu.TRAP_OUT))
	assert.NoError(k.Trap(c, cpu.TRAP_PUTSP))
	assert.Equal("Z", out.String())
}

func TestTrapGetcEOF(t *testing.T) {
	assert := assert.New(t)

	k, out := newTestKernel("")
	c := k.Cpu

	assert.NoError(k.Trap(c, cpu.TRAP_IN))
	assert.Equal(uint16(console.EOF), c.Register[0])
	assert.Equal(cpu.COND_N, c.Cond)
	assert.Empty(out.String())
}

func TestTrapPuts(t *testing.T) {
	assert := assert.New(t)

	k, out := newTestKernel("")
	c := k.Cpu
	_, err := k.Create(empty(), empty())
	assert.NoError(err)
	assert.NoError(k.Start())

	for n, ch := range "hello\n" {
		assert.NoError(c.Write(memory.HEAP_START+uint16(n), uint16(ch)))
	}

	c.Register[0] = memory.HEAP_START
	assert.NoError(k.Trap(c, cpu.TRAP_PUTS))
	assert.Equal("hello\n", out.String())

	// Strings are read through the page table.
	c.Register[0] = 0x5000
	err = k.Trap(c, cpu.TRAP_PUTS)
	assert.ErrorIs(err, mmu.ErrFreeSpace)
}

func TestTrapScheduler(t *testing.T) {
	assert := assert.New(t)

	k, out := newTestKernel("")
	c := k.Cpu
	for range 2 {
		_, err := k.Create(empty(), empty())
		assert.NoError(err)
	}
	assert.NoError(k.Start())

	assert.NoError(k.Trap(c, cpu.TRAP_YIELD))
	assert.Equal(uint16(1), c.Memory().CurrentPid())
	assert.Equal("We are switching from process 0 to 1.\n", out.String())

	assert.NoError(k.Trap(c, cpu.TRAP_HALT))
	assert.Equal(uint16(0), c.Memory().CurrentPid())

	// Refused heap requests never fail the machine.
	c.Register[0] = 6<<memory.PAGE_SHIFT | cpu.BRK_ALLOC
	assert.NoError(k.Trap(c, cpu.TRAP_BRK))
	assert.True(c.Running)

	assert.NoError(k.Trap(c, cpu.TRAP_HALT))
	assert.False(c.Running)
}

func TestTrapInvalid(t *testing.T) {
	assert := assert.New(t)

	k, _ := newTestKernel("")

	assert.ErrorIs(k.Trap(k.Cpu, cpu.CodeTrap(0x2a)), cpu.ErrTrapInvalid)
	assert.ErrorIs(k.Trap(k.Cpu, cpu.CodeTrap(0x1f)), cpu.ErrTrapInvalid)
}
