// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"sync/atomic"
)

const (
	REGISTER_COUNT = 32            // Size of the register file.
	SREG_I         = uint8(1 << 7) // Global interrupt enable.
)

// CalleeSaved lists the registers a called routine must preserve under the
// avr-gcc ABI, in push order.
var CalleeSaved = [...]int{2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 28, 29}

// Cpu is the simulation context for the AVR core.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Register [REGISTER_COUNT]uint8 // Register file.
	SP       uint16                // Stack pointer.
	SREG     uint8                 // Status register.
	Memory   []uint8               // Data space, indexed by address.

	RamStart     uint16 // First SRAM address.
	RamEnd       uint16 // Last SRAM address.
	StackReserve uint16 // SRAM below RamEnd that Reserve() will not hand out.

	Ticks int // Cycles spent on stack and interrupt operations.

	brk     uint16               // Next free static allocation.
	vector  [VECTOR_COUNT]func() // Interrupt handlers.
	pending atomic.Uint32        // Raised, not yet serviced, vectors.
	inISR   bool                 // Set while a handler runs.
}

// NewCpu creates a core whose SRAM spans ramStart to ramEnd inclusive.
func NewCpu(ramStart uint16, ramEnd uint16) (cpu *Cpu) {
	cpu = &Cpu{
		Memory:       make([]uint8, int(ramEnd)+1),
		RamStart:     ramStart,
		RamEnd:       ramEnd,
		StackReserve: DEFAULT_STACK_RESERVE,
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"RAMSTART":       fmt.Sprintf("0x%x", cpu.RamStart),
		"RAMEND":         fmt.Sprintf("0x%x", cpu.RamEnd),
		"REGISTER_COUNT": fmt.Sprintf("%d", REGISTER_COUNT),
		"SREG_I":         fmt.Sprintf("0x%x", SREG_I),
	})
}

// Reset the CPU state.
// - Clears the registers and SRAM.
// - Releases all static reservations.
// - Disables interrupts and drops pending requests.
// - Sets SP to RAMEND.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	clear(cpu.Memory)
	cpu.SREG = 0
	cpu.SP = cpu.RamEnd
	cpu.Ticks = 0
	cpu.brk = cpu.RamStart
	cpu.pending.Store(0)
	cpu.inISR = false
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{"sp", "sreg", "isr", "pend"}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "sp":
			strval = fmt.Sprintf("%04X", cpu.SP)
		case "sreg":
			strval = fmt.Sprintf("%02X", cpu.SREG)
			if cpu.InterruptsEnabled() {
				strval += " (I)"
			}
		case "isr":
			strval = "false"
			if cpu.inISR {
				strval = "true"
			}
		case "pend":
			strval = fmt.Sprintf("%08b", cpu.pending.Load())
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	for row := 0; row < REGISTER_COUNT; row += 8 {
		text += fmt.Sprintf("% 5s:", fmt.Sprintf("r%d", row))
		for n := row; n < row+8; n++ {
			text += fmt.Sprintf(" %02X", cpu.Register[n])
		}
		text += "\n"
	}

	return
}
