package memory

// CurrentPid returns the pid of the running process.
func (mem *Memory) CurrentPid() uint16 {
	return mem.Word[ADDR_CUR_PROC]
}

// SetCurrentPid records the pid of the running process.
func (mem *Memory) SetCurrentPid(pid uint16) {
	mem.Word[ADDR_CUR_PROC] = pid
}

// ProcessCount returns the number of processes ever created.
func (mem *Memory) ProcessCount() uint16 {
	return mem.Word[ADDR_PROC_COUNT]
}

// SetProcessCount sets the number of processes ever created.
func (mem *Memory) SetProcessCount(count uint16) {
	mem.Word[ADDR_PROC_COUNT] = count
}

// Status returns the OS status flags.
func (mem *Memory) Status() uint16 {
	return mem.Word[ADDR_OS_STATUS]
}

// SetStatus sets the OS status flags.
func (mem *Memory) SetStatus(status uint16) {
	mem.Word[ADDR_OS_STATUS] = status
}

// PcbAddr returns the physical address of a pid's PCB.
func PcbAddr(pid uint16) uint16 {
	return ADDR_PCB_BASE + pid*PCB_SIZE
}

// PageTableAddr returns the physical address of a pid's page table.
func PageTableAddr(pid uint16) uint16 {
	return ADDR_PAGE_TABLE_BASE + pid*PAGE_TABLE_ENTRIES
}

// Pcb is a decoded process control block.
type Pcb struct {
	Pid  uint16 // Pid, or NO_PID when terminated.
	Pc   uint16 // Saved program counter.
	Ptbr uint16 // Saved page table base register.
}

// Terminated returns true if the slot no longer holds a live process.
func (pcb Pcb) Terminated() bool {
	return pcb.Pid == NO_PID
}

// Pcb reads the PCB in slot pid.
func (mem *Memory) Pcb(pid uint16) (pcb Pcb) {
	addr := PcbAddr(pid)
	pcb.Pid = mem.Word[addr+PCB_PID]
	pcb.Pc = mem.Word[addr+PCB_PC]
	pcb.Ptbr = mem.Word[addr+PCB_PTBR]
	return
}

// SetPcb writes the PCB in slot pid.
func (mem *Memory) SetPcb(pid uint16, pcb Pcb) {
	addr := PcbAddr(pid)
	mem.Word[addr+PCB_PID] = pcb.Pid
	mem.Word[addr+PCB_PC] = pcb.Pc
	mem.Word[addr+PCB_PTBR] = pcb.Ptbr
}

// bitmapAddr returns the bitmap word and bit mask for a frame.
// Frame 0 is the MSB of the first word.
func bitmapAddr(pfn uint16) (addr uint16, mask uint16) {
	addr = ADDR_FREE_BITMAP + pfn/16
	mask = 1 << (15 - (pfn % 16))
	return
}

// FrameFree returns true if the bitmap marks a frame free.
func (mem *Memory) FrameFree(pfn uint16) bool {
	addr, mask := bitmapAddr(pfn)
	return (mem.Word[addr] & mask) != 0
}

// SetFrameFree marks a frame free or used in the bitmap.
func (mem *Memory) SetFrameFree(pfn uint16, free bool) {
	addr, mask := bitmapAddr(pfn)
	if free {
		mem.Word[addr] |= mask
	} else {
		mem.Word[addr] &^= mask
	}
}

// Boot writes the bookkeeping words of a freshly started OS.
// Frames 0..2 hold the OS region and page tables, and are never free.
func (mem *Memory) Boot() {
	mem.SetCurrentPid(NO_PID)
	mem.SetProcessCount(0)
	mem.SetStatus(0)
	mem.Word[ADDR_FREE_BITMAP] = 0x1fff
	mem.Word[ADDR_FREE_BITMAP+1] = 0xffff
}
