package kernel

import (
	"log"

	"github.com/ezrec/lc3os/memory"
)

// nextRunnable scans round robin from the process after cur, for one full
// lap, and returns the first live pid. The lap includes cur itself.
func (k *Kernel) nextRunnable(cur uint16) (pid uint16, ok bool) {
	mem := k.memory()

	count := int(mem.ProcessCount())
	if count == 0 {
		return
	}

	start := (int(cur) + 1) % count
	for n := range count {
		candidate := uint16((start + n) % count)
		if !mem.Pcb(candidate).Terminated() {
			pid = candidate
			ok = true
			return
		}
	}

	return
}

// Yield saves the current process and switches to the next live one.
// If the caller is the only live process, it keeps running.
func (k *Kernel) Yield() {
	mem := k.memory()
	cur := mem.CurrentPid()

	mem.SetPcb(cur, memory.Pcb{Pid: cur, Pc: k.Cpu.Pc, Ptbr: k.Cpu.Ptbr})

	next, ok := k.nextRunnable(cur)
	if !ok || next == cur {
		if k.Verbose {
			log.Printf("kernel: pid %d: yield, no other process", cur)
		}
		return
	}

	k.diag("We are switching from process %d to %d.", cur, next)
	k.Load(next)
}

// Halt terminates the current process, releasing all of its pages. The
// next live process is loaded, or the machine stops if none is left.
func (k *Kernel) Halt() {
	mem := k.memory()
	cur := mem.CurrentPid()
	ptbr := k.Cpu.Ptbr

	for vpn := range uint16(memory.PAGE_TABLE_ENTRIES) {
		_ = k.Cpu.Mmu.Free(ptbr, vpn)
	}

	pcb := mem.Pcb(cur)
	pcb.Pid = memory.NO_PID
	mem.SetPcb(cur, pcb)

	if k.Verbose {
		log.Printf("kernel: pid %d: halt", cur)
	}

	next, ok := k.nextRunnable(cur)
	if !ok {
		k.Cpu.Stop()
		return
	}

	k.Load(next)
}
