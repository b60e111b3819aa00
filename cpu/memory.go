package cpu

import (
	"log"
)

const (
	DEFAULT_STACK_RESERVE = 256  // Bytes kept free below RAMEND for the main stack.
	STACK_PAINT           = 0xa5 // Fill byte of unused stack memory.
)

// Stack is a statically reserved stack region [Base, Base+Size).
type Stack struct {
	Base uint16
	Size uint16
}

// Top is the initial stack pointer of the region.
func (s Stack) Top() uint16 {
	return s.Base + s.Size - 1
}

// Contains reports whether addr lies in the region.
func (s Stack) Contains(addr uint16) bool {
	return addr >= s.Base && int(addr) < int(s.Base)+int(s.Size)
}

// Used returns the bytes in use for a given stack pointer.
func (s Stack) Used(sp uint16) int {
	return int(s.Top()) - int(sp)
}

// Load reads a byte of SRAM.
func (cpu *Cpu) Load(addr uint16) uint8 {
	if addr < cpu.RamStart || addr > cpu.RamEnd {
		panic(ErrAddress(addr))
	}
	return cpu.Memory[addr]
}

// Store writes a byte of SRAM.
func (cpu *Cpu) Store(addr uint16, value uint8) {
	if addr < cpu.RamStart || addr > cpu.RamEnd {
		panic(ErrAddress(addr))
	}
	cpu.Memory[addr] = value
}

// Reserve statically allocates size bytes of SRAM, growing up from RAMSTART.
// Reservations are never released; only Reset() reclaims them.
func (cpu *Cpu) Reserve(size uint16) (base uint16, err error) {
	if size == 0 {
		err = ErrStackSize
		return
	}

	limit := int(cpu.RamEnd) + 1 - int(cpu.StackReserve)
	if int(cpu.brk)+int(size) > limit {
		err = ErrMemoryExhausted
		return
	}

	base = cpu.brk
	cpu.brk += size

	if cpu.Verbose {
		log.Printf("cpu: reserve 0x%04x..0x%04x", base, base+size-1)
	}

	return
}

// ReserveStack reserves a stack region and paints it with STACK_PAINT.
func (cpu *Cpu) ReserveStack(size uint16) (stack Stack, err error) {
	base, err := cpu.Reserve(size)
	if err != nil {
		return
	}

	stack = Stack{Base: base, Size: size}
	for addr := range int(size) {
		cpu.Memory[int(base)+addr] = STACK_PAINT
	}

	return
}

// Available returns the SRAM bytes still free for reservation.
func (cpu *Cpu) Available() int {
	free := int(cpu.RamEnd) + 1 - int(cpu.StackReserve) - int(cpu.brk)
	if free < 0 {
		free = 0
	}
	return free
}

// MainStack returns the region kept for the main context.
func (cpu *Cpu) MainStack() Stack {
	return Stack{
		Base: cpu.RamEnd + 1 - cpu.StackReserve,
		Size: cpu.StackReserve,
	}
}
