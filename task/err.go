package task

import (
	"errors"

	"github.com/ezrec/multitask/cpu"
	"github.com/ezrec/multitask/translate"
)

var f = translate.From

var (
	// Scheduler errors
	ErrSchedulerStarted = errors.New(f("scheduler already started"))
	ErrSchedulerClosed  = errors.New(f("scheduler closed"))
	ErrCloseFromTask    = errors.New(f("scheduler closed from a task"))

	// Task errors
	ErrStackTooSmall     = errors.New(f("task stack too small"))
	ErrSwitchInInterrupt = errors.New(f("context switch inside interrupt"))
	ErrTaskDead          = errors.New(f("task faulted"))
	ErrForeignTask       = errors.New(f("task of another scheduler"))

	// Frame errors
	ErrFrameMarker   = errors.New(f("return marker mismatch"))
	ErrFrameChecksum = errors.New(f("checksum mismatch"))
)

// ErrStackOverflow reports a task whose stack canary was overwritten.
type ErrStackOverflow struct {
	Task  string
	Stack cpu.Stack
	SP    uint16
}

func (err *ErrStackOverflow) Error() string {
	return f("task %v stack overflow, sp 0x%04x below 0x%04x",
		err.Task, err.SP, err.Stack.Base+CANARY_SIZE)
}

// ErrFrameCorrupt reports a parked frame that cannot be resumed.
type ErrFrameCorrupt struct {
	Context string
	Err     error
}

func (err *ErrFrameCorrupt) Error() string {
	return f("context %v frame corrupt: %v", err.Context, err.Err)
}

func (err *ErrFrameCorrupt) Unwrap() error {
	return err.Err
}

// Fault is raised on main when a task dies: its work panicked, or its
// stack overflowed.
type Fault struct {
	Task  string
	Value any
}

func (err *Fault) Error() string {
	return f("task %v fault: %v", err.Task, err.Value)
}

func (err *Fault) Unwrap() error {
	inner, _ := err.Value.(error)
	return inner
}
