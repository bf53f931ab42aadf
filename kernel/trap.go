package kernel

import (
	"log"

	"github.com/ezrec/lc3os/console"
	"github.com/ezrec/lc3os/cpu"
	"github.com/ezrec/lc3os/memory"
	"github.com/ezrec/lc3os/mmu"
)

type trapFunc func(k *Kernel, c *cpu.Cpu) (err error)

// trapTable is indexed by vector - TRAP_BASE.
var trapTable = [...]trapFunc{
	cpu.TRAP_GETC - cpu.TRAP_BASE:   (*Kernel).trapGetc,
	cpu.TRAP_OUT - cpu.TRAP_BASE:    (*Kernel).trapOut,
	cpu.TRAP_PUTS - cpu.TRAP_BASE:   (*Kernel).trapPuts,
	cpu.TRAP_IN - cpu.TRAP_BASE:     (*Kernel).trapIn,
	cpu.TRAP_PUTSP - cpu.TRAP_BASE:  (*Kernel).trapPutsp,
	cpu.TRAP_HALT - cpu.TRAP_BASE:   (*Kernel).trapHalt,
	cpu.TRAP_INU16 - cpu.TRAP_BASE:  (*Kernel).trapInu16,
	cpu.TRAP_OUTU16 - cpu.TRAP_BASE: (*Kernel).trapOutu16,
	cpu.TRAP_YIELD - cpu.TRAP_BASE:  (*Kernel).trapYield,
	cpu.TRAP_BRK - cpu.TRAP_BASE:    (*Kernel).trapBrk,
}

// Trap dispatches a TRAP instruction to its handler.
func (k *Kernel) Trap(c *cpu.Cpu, vector cpu.CodeTrap) (err error) {
	index := int(vector - cpu.TRAP_BASE)
	if index < 0 || index >= len(trapTable) {
		err = cpu.ErrTrapInvalid
		return
	}

	if k.Verbose {
		log.Printf("kernel: pid %d: trap %v", k.memory().CurrentPid(), vector)
	}

	return trapTable[index](k, c)
}

func (k *Kernel) trapGetc(c *cpu.Cpu) (err error) {
	ch, err := k.Console.GetChar()
	if err != nil {
		return
	}

	c.Register[0] = ch
	c.SetCond(ch)
	return
}

func (k *Kernel) trapOut(c *cpu.Cpu) (err error) {
	return k.Console.PutChar(c.Register[0])
}

// trapPuts writes the zero terminated string at virtual address R0.
func (k *Kernel) trapPuts(c *cpu.Cpu) (err error) {
	for addr := c.Register[0]; ; addr++ {
		var ch uint16
		ch, err = c.Read(addr)
		if err != nil || ch == 0 {
			return
		}
		err = k.Console.PutChar(ch)
		if err != nil {
			return
		}
	}
}

func (k *Kernel) trapIn(c *cpu.Cpu) (err error) {
	err = k.trapGetc(c)
	if err != nil || c.Register[0] == console.EOF {
		return
	}

	return k.Console.PutChar(c.Register[0])
}

func (k *Kernel) trapPutsp(c *cpu.Cpu) (err error) {
	return
}

func (k *Kernel) trapHalt(c *cpu.Cpu) (err error) {
	k.Halt()
	return
}

// trapInu16 leaves R0 unchanged if no number could be read.
func (k *Kernel) trapInu16(c *cpu.Cpu) (err error) {
	value, ok, err := k.Console.ReadUint()
	if !ok {
		if k.Verbose {
			log.Printf("kernel: inu16: %v", err)
		}
		err = nil
		return
	}

	c.Register[0] = value
	c.SetCond(value)
	return
}

func (k *Kernel) trapOutu16(c *cpu.Cpu) (err error) {
	return k.Console.WriteUint(c.Register[0])
}

func (k *Kernel) trapYield(c *cpu.Cpu) (err error) {
	k.Yield()
	return
}

// trapBrk never fails the machine; a refused request is only reported.
func (k *Kernel) trapBrk(c *cpu.Cpu) (err error) {
	brkErr := k.Brk(c.Register[0])
	if brkErr != nil && k.Verbose {
		log.Printf("kernel: brk %#04x: %v", c.Register[0], brkErr)
	}
	return
}

// Brk grows or shrinks the current process by one page.
//
// The request word holds the target page in its top 5 bits, and the
// BRK_ALLOC, BRK_READ and BRK_WRITE flags in its low bits. A request for a
// reserved page halts the caller.
func (k *Kernel) Brk(request uint16) (err error) {
	mem := k.memory()
	pager := k.Cpu.Mmu
	ptbr := k.Cpu.Ptbr
	cur := mem.CurrentPid()

	vpn := request >> memory.PAGE_SHIFT
	alloc := request&cpu.BRK_ALLOC != 0
	read := request&cpu.BRK_READ != 0
	write := request&cpu.BRK_WRITE != 0

	if vpn < memory.RESERVED_PAGES {
		k.diag("Cannot allocate/free memory for the reserved segment.")
		k.Halt()
		err = ErrReservedPage
		return
	}

	if alloc {
		k.diag("Heap increase requested by process %d.", cur)
		if pager.PTE(ptbr, vpn).Valid() {
			k.diag("Cannot allocate memory for page %d of pid %d since it is already allocated.", vpn, cur)
			err = mmu.ErrPageMapped
			return
		}
		if pager.FreeFrames() == 0 {
			k.diag("Cannot allocate more space for pid %d since there is no free page frames.", cur)
			err = mmu.ErrNoFreeFrame
			return
		}
		err = pager.Allocate(ptbr, vpn, read, write)
		return
	}

	k.diag("Heap decrease requested by process %d.", cur)
	if !pager.PTE(ptbr, vpn).Valid() {
		k.diag("Cannot free memory of page %d of pid %d since it is not allocated.", vpn, cur)
		err = mmu.ErrPageUnmapped
		return
	}

	err = pager.Free(ptbr, vpn)
	return
}
