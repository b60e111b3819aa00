// Package cpu implements the simulated AVR core that hosts cooperative tasks.
//
// The core consists of a 32 byte register file (r0-r31), a status register
// (SREG) carrying the global interrupt enable flag, a 16-bit stack pointer and
// a flat SRAM data space between RAMSTART and RAMEND. The stack grows down:
// a push stores at SP and then decrements it, a pop increments SP and then
// loads.
//
// Interrupt requests may be raised from any goroutine, but handlers only run
// on the goroutine that currently owns the core, at Sei() or Poll(), while the
// global interrupt flag is set.
package cpu
