package cpu

import (
	"errors"

	"github.com/ezrec/multitask/translate"
)

var f = translate.From

var (
	// Memory errors
	ErrMemoryExhausted = errors.New(f("sram exhausted"))
	ErrStackSize       = errors.New(f("stack size invalid"))

	// Interrupt errors
	ErrVectorInvalid = errors.New(f("interrupt vector invalid"))
)

// ErrAddress is raised (as a panic) on an access outside of SRAM.
type ErrAddress uint16

func (ea ErrAddress) Error() string {
	return f("address 0x%04x outside sram", uint16(ea))
}
