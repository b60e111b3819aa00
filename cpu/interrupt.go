package cpu

import (
	"log"
	"math/bits"
)

// Vector is an interrupt vector number. Lower numbers have higher priority.
type Vector int

//go:generate go tool stringer -linecomment -type=Vector
const (
	VECTOR_INT0       = Vector(0) // int0
	VECTOR_TIMER0_OVF = Vector(1) // timer0_ovf
	VECTOR_USART_RX   = Vector(2) // usart_rx
	VECTOR_USART_UDRE = Vector(3) // usart_udre
)

const VECTOR_COUNT = 4

// Cli disables interrupts.
func (cpu *Cpu) Cli() {
	cpu.SREG &^= SREG_I
}

// Sei enables interrupts, and services any that are pending.
func (cpu *Cpu) Sei() {
	cpu.SREG |= SREG_I
	cpu.Poll()
}

// InterruptsEnabled reports the global interrupt flag.
func (cpu *Cpu) InterruptsEnabled() bool {
	return (cpu.SREG & SREG_I) != 0
}

// InInterrupt is true while an interrupt handler runs.
func (cpu *Cpu) InInterrupt() bool {
	return cpu.inISR
}

// Attach installs the handler of an interrupt vector. A nil isr detaches it.
func (cpu *Cpu) Attach(vector Vector, isr func()) (err error) {
	if vector < 0 || vector >= VECTOR_COUNT {
		err = ErrVectorInvalid
		return
	}

	cpu.vector[vector] = isr
	return
}

// Raise requests an interrupt. Safe to call from any goroutine.
func (cpu *Cpu) Raise(vector Vector) {
	cpu.pending.Or(1 << uint(vector))
}

// Pending reports whether any interrupt request is waiting.
func (cpu *Cpu) Pending() bool {
	return cpu.pending.Load() != 0
}

// Poll services pending interrupts, highest priority first, while the
// interrupt flag is set. Handlers never nest.
func (cpu *Cpu) Poll() (serviced int) {
	for cpu.InterruptsEnabled() && !cpu.inISR {
		pending := cpu.pending.Load()
		if pending == 0 {
			return
		}
		vector := Vector(bits.TrailingZeros32(pending))
		cpu.pending.And(^(uint32(1) << uint(vector)))
		cpu.service(vector)
		serviced++
	}

	return
}

// service runs one handler on the current stack, as the hardware would:
// return address pushed, I cleared on entry and set again by RETI.
func (cpu *Cpu) service(vector Vector) {
	isr := cpu.vector[vector]
	if isr == nil {
		if cpu.Verbose {
			log.Printf("cpu: unhandled interrupt %v", vector)
		}
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: interrupt %v sp=0x%04x", vector, cpu.SP)
	}

	cpu.PushWord(uint16(vector))
	cpu.SREG &^= SREG_I
	cpu.inISR = true
	defer func() {
		cpu.inISR = false
	}()

	isr()

	cpu.PopWord()
	cpu.SREG |= SREG_I
}
