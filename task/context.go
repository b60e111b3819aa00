package task

import (
	"github.com/ezrec/multitask/cpu"
)

const (
	MAIN_ID   = 0      // Return marker of the main context.
	MAIN_NAME = "main" // Name of the main context.

	FRAME_SIZE     = 2 + len(cpu.CalleeSaved) // Return marker plus callee-saved registers.
	CANARY_SIZE    = 2                        // Guard bytes at the bottom of a task stack.
	STACK_CANARY   = uint16(0xc35a)           // Guard value.
	MIN_STACK_SIZE = 32                       // Frame, canary and one interrupt frame, with slack.
)

// Context is a point of execution: a saved stack pointer, and whether it
// has ever been switched in.
type Context struct {
	Name string

	id    uint16
	sp    uint16
	first bool
	stack cpu.Stack
	wake  chan struct{}

	sealed bool   // crc holds the checksum of the parked frame.
	crc    uint16 // CRC-16 of the parked frame.
}

// ID is the return marker the context leaves in its parked frames.
func (ctx *Context) ID() uint16 {
	return ctx.id
}

// StackPointer is the saved stack pointer. Only meaningful while parked.
func (ctx *Context) StackPointer() uint16 {
	return ctx.sp
}

// FirstActivation is true until the context is first switched in.
func (ctx *Context) FirstActivation() bool {
	return ctx.first
}

// Stack is the region the context's stack lives in.
func (ctx *Context) Stack() cpu.Stack {
	return ctx.stack
}

func (ctx *Context) String() string {
	return ctx.Name
}
