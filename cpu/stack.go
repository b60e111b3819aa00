package cpu

const (
	PUSH_CYCLES = 2 // Cycles of a push or pop.
)

// Push stores value at SP, then decrements SP.
func (cpu *Cpu) Push(value uint8) {
	cpu.Store(cpu.SP, value)
	cpu.SP--
	cpu.Ticks += PUSH_CYCLES
}

// Pop increments SP, then loads the value at SP.
func (cpu *Cpu) Pop() (value uint8) {
	cpu.SP++
	value = cpu.Load(cpu.SP)
	cpu.Ticks += PUSH_CYCLES
	return
}

// PushWord pushes a return address the way CALL does, low byte first.
func (cpu *Cpu) PushWord(value uint16) {
	cpu.Push(uint8(value))
	cpu.Push(uint8(value >> 8))
}

// PopWord pops a return address the way RET does.
func (cpu *Cpu) PopWord() (value uint16) {
	hi := cpu.Pop()
	lo := cpu.Pop()
	value = uint16(hi)<<8 | uint16(lo)
	return
}

// Peek returns the byte on top of the stack without popping it.
func (cpu *Cpu) Peek() (value uint8, ok bool) {
	if cpu.SP >= cpu.RamEnd {
		return
	}

	return cpu.Load(cpu.SP + 1), true
}
