// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"

	"github.com/marcinbor85/gohex"

	"github.com/ezrec/multitask/board"
	"github.com/ezrec/multitask/clock"
	"github.com/ezrec/multitask/cpu"
	"github.com/ezrec/multitask/internal"
	"github.com/ezrec/multitask/script"
	"github.com/ezrec/multitask/task"
	"github.com/ezrec/multitask/trace"
	"github.com/ezrec/multitask/uart"
)

const (
	POLL_CYCLES = 64 // Cycles between two clock readings of a polling loop.
	HEX_LINE    = 16 // Bytes per Intel HEX record.
)

var _emulator_defines = map[string]string{
	"FRAME_SIZE":     fmt.Sprintf("%v", task.FRAME_SIZE),
	"MIN_STACK_SIZE": fmt.Sprintf("%v", task.MIN_STACK_SIZE),
	"STACK_CANARY":   fmt.Sprintf("0x%x", task.STACK_CANARY),
}

// Emulator state. Board + CPU + scheduler + serial port + sketch.
type Emulator struct {
	Verbose  bool            // If set, enables verbose logging.
	Paranoid bool            // If set, checksums parked frames.
	*cpu.Cpu                 // Reference to the CPU simulation.
	Board    board.Board     // Profile of the simulated board.
	Clock    clock.Clock     // Time source of the scheduler.
	Serial   uart.Port       // USART0.
	Trace    *trace.Recorder // Switch recorder, may be nil.
	Sched    *task.Scheduler // Scheduler, rebuilt by Reset().
	Sketch   *script.Sketch  // Running sketch.

	loops int
}

// NewEmulator creates a new emulator of a board. Its clock advances a few
// microseconds per reading, as a polling loop on the board would.
func NewEmulator(b board.Board) (emu *Emulator) {
	step := uint32(1)
	if b.FCpu != 0 {
		step = max(step, uint32(uint64(POLL_CYCLES)*1_000_000/uint64(b.FCpu)))
	}

	emu = &Emulator{
		Cpu:   b.NewCpu(),
		Board: b,
		Clock: &clock.Counter{Step: step},
	}

	return
}

// Defines returns an iterator over all of the defines, by name.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Sorted(internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
		emu.Board.Defines(),
		emu.Serial.Defines(),
	))
}

// Close the emulator
func (emu *Emulator) Close() (err error) {
	err = emu.Serial.Close()

	if emu.Sched != nil {
		err = errors.Join(err, emu.Sched.Close())
		emu.Sched = nil
	}

	return
}

// Reset the emulator state: a fresh core, scheduler and serial port, with
// no sketch.
func (emu *Emulator) Reset() (err error) {
	err = emu.Close()
	if err != nil {
		return
	}

	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()
	emu.Cpu.Sei()

	emu.Sched = task.New(emu.Cpu, emu.Clock)
	emu.Sched.Verbose = emu.Verbose
	emu.Sched.Paranoid = emu.Paranoid
	if emu.Trace != nil {
		emu.Trace.Reset()
		emu.Sched.Observer = emu.Trace
	}

	emu.Serial.Verbose = emu.Verbose
	err = emu.Serial.Attach(emu.Cpu)
	if err != nil {
		return
	}

	emu.Sketch = nil
	emu.loops = 0

	return
}

// Load resets the emulator, then loads a sketch and runs its setup().
func (emu *Emulator) Load(name string, src io.Reader) (err error) {
	err = emu.Reset()
	if err != nil {
		return
	}

	sketch := &script.Sketch{
		Verbose:   emu.Verbose,
		Scheduler: emu.Sched,
		Serial:    &emu.Serial,
		Output:    &emu.Serial,
		TaskStack: uint16(emu.Board.TaskStack),
		Defines:   emu.Defines(),
	}

	err = sketch.Load(name, src)
	if err != nil {
		return
	}

	err = sketch.Setup()
	if err != nil {
		err = &ErrRuntime{Loop: 0, Err: err}
		return
	}

	emu.Sketch = sketch
	return
}

// Loops returns the loop() passes since the sketch was loaded.
func (emu *Emulator) Loops() int {
	return emu.loops
}

// Tick runs one pass of loop(). It is done once loop() returns False.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.Sketch == nil {
		err = ErrNoSketch
		return
	}

	emu.Cpu.Verbose = emu.Verbose

	emu.loops++
	defer func() {
		if err != nil {
			err = &ErrRuntime{Loop: emu.loops, Err: err}
		}
	}()

	emu.Cpu.Poll()

	done, err = emu.Sketch.Loop()
	return
}

// Dump writes the SRAM image as Intel HEX.
func (emu *Emulator) Dump(w io.Writer) (err error) {
	mem := gohex.NewMemory()

	err = mem.AddBinary(uint32(emu.Cpu.RamStart), emu.Cpu.Memory[emu.Cpu.RamStart:int(emu.Cpu.RamEnd)+1])
	if err != nil {
		return
	}

	err = mem.DumpIntelHex(w, HEX_LINE)
	return
}
